package nas

import (
	"errors"
	"fmt"
)

// Storage API status codes
const (
	StatusOK               = 1
	StatusExists           = 2
	StatusSessionExpired   = 3
	StatusPermissionDenied = 4
	StatusNotFound         = 5
	StatusLocked           = 6
	StatusInvalidParameter = 20
	StatusNameDuplicated   = 33
)

var statusMessages = map[int]string{
	StatusExists:           "file or folder already exists",
	StatusSessionExpired:   "session expired",
	StatusPermissionDenied: "permission denied",
	StatusNotFound:         "file or folder not found",
	StatusLocked:           "resource is locked or busy",
	StatusInvalidParameter: "invalid parameter",
	StatusNameDuplicated:   "name already in use",
}

// retryableStatuses are worth another attempt after a short wait.
var retryableStatuses = map[int]bool{
	StatusSessionExpired: true,
	StatusLocked:         true,
}

// StatusMessage describes a storage API status code.
func StatusMessage(status int) string {
	if msg, ok := statusMessages[status]; ok {
		return msg
	}
	return "unknown storage error"
}

// RemoteError is a non-OK status returned by the storage API.
type RemoteError struct {
	Status  int
	Message string
	Context string // storage function or operation that failed
}

func newRemoteError(status int, context string) *RemoteError {
	return &RemoteError{Status: status, Message: StatusMessage(status), Context: context}
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("nas %s: %s (status %d)", e.Context, e.Message, e.Status)
}

// Retryable reports whether the status is on the transient allowlist.
func (e *RemoteError) Retryable() bool {
	return retryableStatuses[e.Status]
}

// IsRetryable reports whether err carries a retryable RemoteError.
func IsRetryable(err error) bool {
	var re *RemoteError
	return errors.As(err, &re) && re.Retryable()
}

// IsStatus reports whether err carries a RemoteError with one of statuses.
func IsStatus(err error, statuses ...int) bool {
	var re *RemoteError
	if !errors.As(err, &re) {
		return false
	}
	for _, s := range statuses {
		if re.Status == s {
			return true
		}
	}
	return false
}

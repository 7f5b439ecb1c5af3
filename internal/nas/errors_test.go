package nas

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRetryable(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{StatusSessionExpired, true},
		{StatusLocked, true},
		{StatusNotFound, false},
		{StatusPermissionDenied, false},
		{StatusInvalidParameter, false},
		{99, false},
	}
	for _, tt := range tests {
		err := fmt.Errorf("move: %w", newRemoteError(tt.status, funcMove))
		assert.Equal(t, tt.want, IsRetryable(err), "status %d", tt.status)
	}
	assert.False(t, IsRetryable(fmt.Errorf("plain")))
}

func TestRemoteErrorMessage(t *testing.T) {
	err := newRemoteError(StatusNotFound, funcList)
	assert.Equal(t, "nas get_list: file or folder not found (status 5)", err.Error())
	assert.Equal(t, "unknown storage error", StatusMessage(42))
}

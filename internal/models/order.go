package models

import (
	"fmt"
	"sort"
	"time"
)

// Order types
const (
	OrderTypeGeneral = "general"
	OrderTypeTest    = "test"
)

// Order statuses
const (
	OrderStatusPending    = "pending"
	OrderStatusInProgress = "in_progress"
)

// Progress categories
const (
	CategoryProduction = "production"
	CategoryQC         = "qc"
	CategoryCorrection = "correction"
)

// File tracking statuses
const (
	FileStatusWorking     = "working"
	FileStatusPaused      = "paused"
	FileStatusTransferred = "transferred"
	FileStatusCompleted   = "completed"
	FileStatusCancelled   = "cancelled"
)

// Order is a unit of production work for a client. Progress holds one
// assignment per (employee, category, qc step), keyed by AssignmentKey.
type Order struct {
	ID         int                            `json:"id"`
	ClientCode string                         `json:"client_code"`
	FolderPath string                         `json:"folder_path"` // logical form, e.g. P:\Client\Job
	Type       string                         `json:"type"`        // 'general' or 'test'
	Status     string                         `json:"status"`
	Quantity   int                            `json:"quantity"`
	Production int                            `json:"production"`
	Progress   map[string]*ProgressAssignment `json:"progress"`
	Version    int                            `json:"version"`
	CreatedAt  time.Time                      `json:"created_at"`
	UpdatedAt  time.Time                      `json:"updated_at"`
}

// ProgressAssignment is an employee's work on one pipeline category of an order.
// Never deleted, even after all of its files are closed.
type ProgressAssignment struct {
	Key          string                        `json:"key"`
	Seq          int                           `json:"seq"` // insertion order within the order
	EmployeeID   int                           `json:"employee_id"`
	EmployeeName string                        `json:"employee_name"` // Denormalized for folder naming
	Shift        string                        `json:"shift,omitempty"`
	Category     string                        `json:"category"`
	JobType      string                        `json:"job_type"`
	IsQC         bool                          `json:"is_qc"`
	QCStep       int                           `json:"qc_step,omitempty"`
	AssignedAt   time.Time                     `json:"assigned_at"`
	Files        map[string]*FileTrackingEntry `json:"files"`
	History      []*FileTrackingEntry          `json:"history,omitempty"` // superseded closed entries
}

// FileTrackingEntry tracks one file inside an assignment.
type FileTrackingEntry struct {
	FileName            string     `json:"file_name"`
	Status              string     `json:"status"`
	StartTimestamp      *time.Time `json:"start_timestamp"`
	EndTimestamp        *time.Time `json:"end_timestamp"`
	PauseStartTimestamp *time.Time `json:"pause_start_timestamp"`
	TotalPauseDuration  int64      `json:"total_pause_duration"` // milliseconds of closed pause windows
	TransferredFrom     *int       `json:"transferred_from,omitempty"`
}

// AssignmentKey builds the Progress map key for an employee's assignment.
func AssignmentKey(employeeID int, category string, qcStep int) string {
	if category == CategoryQC {
		return fmt.Sprintf("%d:%s:%d", employeeID, category, qcStep)
	}
	return fmt.Sprintf("%d:%s", employeeID, category)
}

// IsHandedOff reports whether the entry was transferred out of its assignment.
func (e *FileTrackingEntry) IsHandedOff() bool {
	return e.Status == FileStatusTransferred && e.EndTimestamp != nil
}

// IsClosed reports whether no further transition is accepted on the entry.
func (e *FileTrackingEntry) IsClosed() bool {
	return e.Status == FileStatusCompleted || e.Status == FileStatusCancelled || e.IsHandedOff()
}

// IsOccupied reports whether the entry claims its file.
func (e *FileTrackingEntry) IsOccupied() bool {
	switch e.Status {
	case FileStatusWorking, FileStatusPaused:
		return true
	case FileStatusTransferred:
		return e.EndTimestamp == nil
	}
	return false
}

// Assignments returns the order's assignments in insertion order.
func (o *Order) Assignments() []*ProgressAssignment {
	list := make([]*ProgressAssignment, 0, len(o.Progress))
	for _, a := range o.Progress {
		list = append(list, a)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Seq < list[j].Seq })
	return list
}

// OccupiedFiles maps every claimed file name on the order to the employee holding it.
func (o *Order) OccupiedFiles() map[string]int {
	occupied := make(map[string]int)
	for _, a := range o.Progress {
		for name, e := range a.Files {
			if e.IsOccupied() {
				occupied[name] = a.EmployeeID
			}
		}
	}
	return occupied
}

// NextSeq returns the sequence number for a newly created assignment.
func (o *Order) NextSeq() int {
	max := 0
	for _, a := range o.Progress {
		if a.Seq > max {
			max = a.Seq
		}
	}
	return max + 1
}

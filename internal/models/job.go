package models

import "time"

// NewJobRequest represents the request body for picking up files of an order
type NewJobRequest struct {
	FileNames []string `json:"file_names"`
	JobType   string   `json:"job_type"`  // general, test, qc, correction
	Condition string   `json:"condition"` // fresh or incomplete
	QCStep    int      `json:"qc_step,omitempty"`
	Shift     string   `json:"shift,omitempty"`
}

// NewJobResult reports which requested files were claimed
type NewJobResult struct {
	OrderID int      `json:"order_id"`
	Claimed []string `json:"claimed"`
	Skipped []string `json:"skipped"` // already occupied elsewhere
}

// FileActionRequest represents the request body for resume/pause/finish/cancel
type FileActionRequest struct {
	FileName string `json:"file_name"`
}

// TransferFileRequest represents the request body for handing a file to another employee
type TransferFileRequest struct {
	FileName         string `json:"file_name"`
	TargetEmployeeID int    `json:"target_employee_id"`
}

// AvailableFilesQuery selects the stage folder to list
type AvailableFilesQuery struct {
	JobType   string `json:"job_type"`
	Condition string `json:"condition"`
	QCStep    int    `json:"qc_step,omitempty"`
}

// OrderProgress is the read projection of an order's assignments
type OrderProgress struct {
	OrderID     int                  `json:"order_id"`
	ClientCode  string               `json:"client_code"`
	Assignments []AssignmentProgress `json:"assignments"`
}

type AssignmentProgress struct {
	EmployeeID   int            `json:"employee_id"`
	EmployeeName string         `json:"employee_name"`
	Category     string         `json:"category"`
	QCStep       int            `json:"qc_step,omitempty"`
	Files        []FileProgress `json:"files"`
}

type FileProgress struct {
	FileName           string     `json:"file_name"`
	Status             string     `json:"status"`
	StartTimestamp     *time.Time `json:"start_timestamp"`
	EndTimestamp       *time.Time `json:"end_timestamp"`
	TotalPauseDuration int64      `json:"total_pause_duration"`
	ElapsedMillis      int64      `json:"elapsed_ms"`
	Elapsed            string     `json:"elapsed"`
	TransferredFrom    *int       `json:"transferred_from,omitempty"`
}

// JobEvent is an audit record of a file transition
type JobEvent struct {
	ID         int       `json:"id"`
	OrderID    int       `json:"order_id"`
	EmployeeID int       `json:"employee_id"`
	FileName   string    `json:"file_name"`
	EventType  string    `json:"event_type"`
	Notes      string    `json:"notes"`
	CreatedAt  time.Time `json:"created_at"`
}

// Event type constants
const (
	EventTypeJobStarted      = "JOB_STARTED"
	EventTypeFilePaused      = "FILE_PAUSED"
	EventTypeFileResumed     = "FILE_RESUMED"
	EventTypeFileFinished    = "FILE_FINISHED"
	EventTypeFileCancelled   = "FILE_CANCELLED"
	EventTypeFileTransferred = "FILE_TRANSFERRED"
)

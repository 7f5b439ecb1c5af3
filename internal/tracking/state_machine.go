// Package tracking holds the file lifecycle rules of an order: which
// transitions a file tracking entry accepts, how pause time is accounted, and
// how files move between employee assignments.
//
// Everything operates on the models.Order aggregate in place and takes the
// current time as an argument. Nothing here performs I/O.
package tracking

import (
	"time"

	"jobflow-backend/internal/apperr"
	"jobflow-backend/internal/models"
	"jobflow-backend/internal/storagepath"
)

// Action is a transition requested on a single file.
type Action string

const (
	ActionResume   Action = "resume"
	ActionPause    Action = "pause"
	ActionFinish   Action = "finish"
	ActionCancel   Action = "cancel"
	ActionTransfer Action = "transfer"
)

// allowedActions is the transition matrix for open entries. Closed entries
// (completed, cancelled, handed off) accept nothing.
var allowedActions = map[string]map[Action]bool{
	models.FileStatusWorking: {
		ActionPause: true, ActionFinish: true, ActionCancel: true, ActionTransfer: true,
	},
	models.FileStatusPaused: {
		ActionResume: true, ActionFinish: true, ActionCancel: true, ActionTransfer: true,
	},
	models.FileStatusTransferred: {
		ActionResume: true, ActionPause: true, ActionFinish: true, ActionCancel: true, ActionTransfer: true,
	},
}

// CanApply returns a conflict error when the entry does not accept action.
func CanApply(e *models.FileTrackingEntry, action Action) error {
	if e.IsClosed() {
		if e.IsHandedOff() {
			return apperr.Conflict("file %q was transferred to another employee", e.FileName)
		}
		return apperr.Conflict("file %q is already %s", e.FileName, e.Status)
	}
	if !allowedActions[e.Status][action] {
		return apperr.Conflict("cannot %s file %q while it is %s", action, e.FileName, e.Status)
	}
	return nil
}

// Resume puts a paused or freshly transferred file back to work. A transferred
// file starts its clock over at now.
func Resume(e *models.FileTrackingEntry, now time.Time) error {
	if err := CanApply(e, ActionResume); err != nil {
		return err
	}

	switch e.Status {
	case models.FileStatusPaused:
		foldPause(e, now)
	case models.FileStatusTransferred:
		e.StartTimestamp = timePtr(now)
		e.EndTimestamp = nil
		e.PauseStartTimestamp = nil
		e.TotalPauseDuration = 0
	}
	e.Status = models.FileStatusWorking
	return nil
}

// Pause opens a pause window. Pausing a transferred file counts as its first
// action, so the start time is set if still empty.
func Pause(e *models.FileTrackingEntry, now time.Time) error {
	if err := CanApply(e, ActionPause); err != nil {
		return err
	}

	if e.StartTimestamp == nil {
		e.StartTimestamp = timePtr(now)
	}
	e.PauseStartTimestamp = timePtr(now)
	e.Status = models.FileStatusPaused
	return nil
}

// Finish closes the entry as completed.
func Finish(e *models.FileTrackingEntry, now time.Time) error {
	if err := CanApply(e, ActionFinish); err != nil {
		return err
	}
	closeEntry(e, models.FileStatusCompleted, now)
	return nil
}

// Cancel closes the entry as cancelled.
func Cancel(e *models.FileTrackingEntry, now time.Time) error {
	if err := CanApply(e, ActionCancel); err != nil {
		return err
	}
	closeEntry(e, models.FileStatusCancelled, now)
	return nil
}

func closeEntry(e *models.FileTrackingEntry, status string, now time.Time) {
	foldPause(e, now)
	if e.StartTimestamp == nil {
		e.StartTimestamp = timePtr(now)
	}
	e.EndTimestamp = timePtr(now)
	e.Status = status
}

// Transfer hands fileName from the source assignment to target. The source
// entry is closed as transferred and a new transferred entry, not yet
// started, is added to the target's assignment in the same category.
// Nothing is mutated when an error is returned.
func Transfer(order *models.Order, src *models.ProgressAssignment, fileName string, target *models.Employee, now time.Time) (*models.ProgressAssignment, error) {
	entry, ok := src.Files[fileName]
	if !ok {
		return nil, apperr.NotFound("file %q is not assigned to employee %d", fileName, src.EmployeeID)
	}
	if err := CanApply(entry, ActionTransfer); err != nil {
		return nil, err
	}
	if target == nil {
		return nil, apperr.Validation("target employee is required")
	}
	if target.ID == src.EmployeeID {
		return nil, apperr.Conflict("cannot transfer file %q to its current owner", fileName)
	}

	key := models.AssignmentKey(target.ID, src.Category, src.QCStep)
	dst := order.Progress[key]
	if dst != nil {
		if existing, ok := dst.Files[fileName]; ok && !existing.IsClosed() {
			return nil, apperr.Conflict("employee %d already holds file %q", target.ID, fileName)
		}
	}

	foldPause(entry, now)
	entry.EndTimestamp = timePtr(now)
	entry.Status = models.FileStatusTransferred

	if dst == nil {
		dst = newAssignment(order, target, src.Category, src.JobType, src.QCStep, target.Shift, now)
	}
	retire(dst, fileName)

	from := src.EmployeeID
	dst.Files[fileName] = &models.FileTrackingEntry{
		FileName:        fileName,
		Status:          models.FileStatusTransferred,
		TransferredFrom: &from,
	}
	return dst, nil
}

// Assign gives files to emp as working entries starting at now, creating the
// assignment for the job type's category if needed. Files must not be open
// anywhere in the assignment already.
func Assign(order *models.Order, emp *models.Employee, jobType string, qcStep int, shift string, files []string, now time.Time) (*models.ProgressAssignment, error) {
	if emp == nil {
		return nil, apperr.Validation("employee is required")
	}
	category := CategoryFor(jobType)
	if category != models.CategoryQC {
		qcStep = 0
	}

	// An existing assignment keeps the name it was created with, so every
	// file of the assignment shares one working folder after a rename.
	a := order.Progress[models.AssignmentKey(emp.ID, category, qcStep)]
	if a != nil {
		for _, name := range files {
			if e, ok := a.Files[name]; ok && !e.IsClosed() {
				return nil, apperr.Conflict("file %q is already assigned to employee %d", name, emp.ID)
			}
		}
	} else {
		if shift == "" {
			shift = emp.Shift
		}
		a = newAssignment(order, emp, category, jobType, qcStep, shift, now)
	}

	for _, name := range files {
		retire(a, name)
		a.Files[name] = &models.FileTrackingEntry{
			FileName:       name,
			Status:         models.FileStatusWorking,
			StartTimestamp: timePtr(now),
		}
	}
	return a, nil
}

// Locate finds the entry employeeID holds for fileName. An open entry wins
// over closed ones; a closed entry is still returned so callers get a
// conflict instead of a not-found.
func Locate(order *models.Order, employeeID int, fileName string) (*models.ProgressAssignment, *models.FileTrackingEntry, error) {
	var closedA *models.ProgressAssignment
	var closedE *models.FileTrackingEntry

	for _, a := range order.Assignments() {
		if a.EmployeeID != employeeID {
			continue
		}
		e, ok := a.Files[fileName]
		if !ok {
			continue
		}
		if !e.IsClosed() {
			return a, e, nil
		}
		if closedE == nil {
			closedA, closedE = a, e
		}
	}

	if closedE != nil {
		return closedA, closedE, nil
	}
	return nil, nil, apperr.NotFound("file %q is not assigned to employee %d on order %d", fileName, employeeID, order.ID)
}

// CategoryFor maps a job type onto its progress category.
func CategoryFor(jobType string) string {
	switch jobType {
	case storagepath.JobQC:
		return models.CategoryQC
	case storagepath.JobCorrection:
		return models.CategoryCorrection
	}
	return models.CategoryProduction
}

func newAssignment(order *models.Order, emp *models.Employee, category, jobType string, qcStep int, shift string, now time.Time) *models.ProgressAssignment {
	if order.Progress == nil {
		order.Progress = make(map[string]*models.ProgressAssignment)
	}
	a := &models.ProgressAssignment{
		Key:          models.AssignmentKey(emp.ID, category, qcStep),
		Seq:          order.NextSeq(),
		EmployeeID:   emp.ID,
		EmployeeName: emp.Name,
		Shift:        shift,
		Category:     category,
		JobType:      jobType,
		IsQC:         category == models.CategoryQC,
		QCStep:       qcStep,
		AssignedAt:   now,
		Files:        make(map[string]*models.FileTrackingEntry),
	}
	order.Progress[a.Key] = a
	return a
}

// retire moves a closed entry for name into the assignment history.
func retire(a *models.ProgressAssignment, name string) {
	if old, ok := a.Files[name]; ok {
		a.History = append(a.History, old)
		delete(a.Files, name)
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}

package services

import (
	"context"
	"errors"
	"log"
	"sort"
	"strings"
	"time"

	"jobflow-backend/internal/apperr"
	"jobflow-backend/internal/metrics"
	"jobflow-backend/internal/models"
	"jobflow-backend/internal/repositories"
	"jobflow-backend/internal/storagepath"
	"jobflow-backend/internal/timeutil"
	"jobflow-backend/internal/tracking"
)

// maxSaveAttempts bounds reload-and-reapply after a version conflict
const maxSaveAttempts = 3

// PermissionFunc decides whether a permission set grants action
type PermissionFunc func(action string, permissions []string) bool

// EmployeeDirectory resolves employees for assignments
type EmployeeDirectory interface {
	Get(ctx context.Context, id int) (*models.Employee, error)
	GetByUserID(ctx context.Context, userID int) (*models.Employee, error)
}

// JobEventRecorder stores the audit trail of file transitions
type JobEventRecorder interface {
	Create(ctx context.Context, e *models.JobEvent) error
}

type JobService struct {
	Orders        repositories.OrderStore
	Employees     EmployeeDirectory
	Mover         *FileMover
	HasPermission PermissionFunc
	Clock         timeutil.Clock
	EventRepo     JobEventRecorder
}

func NewJobService(
	orders repositories.OrderStore,
	employees EmployeeDirectory,
	mover *FileMover,
	hasPermission PermissionFunc,
	clock timeutil.Clock,
) *JobService {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	return &JobService{
		Orders:        orders,
		Employees:     employees,
		Mover:         mover,
		HasPermission: hasPermission,
		Clock:         clock,
	}
}

// SetEventRepo enables the job_events audit trail
func (s *JobService) SetEventRepo(repo JobEventRecorder) {
	s.EventRepo = repo
}

func (s *JobService) authorize(actor *models.Actor, action string) error {
	if actor == nil {
		return apperr.Forbidden("authentication required")
	}
	if s.HasPermission == nil || !s.HasPermission(action, actor.Permissions) {
		return apperr.Forbidden("permission %q required", action)
	}
	return nil
}

func (s *JobService) actingEmployee(ctx context.Context, actor *models.Actor) (*models.Employee, error) {
	emp, err := s.Employees.GetByUserID(ctx, actor.UserID)
	if errors.Is(err, repositories.ErrEmployeeNotFound) {
		return nil, apperr.NotFound("no employee is linked to user %d", actor.UserID)
	}
	if err != nil {
		return nil, apperr.Persistence(err, "failed to resolve employee")
	}
	return emp, nil
}

func (s *JobService) loadOrder(ctx context.Context, store repositories.OrderStore, id int, forUpdate bool) (*models.Order, error) {
	var order *models.Order
	var err error
	if forUpdate {
		order, err = store.GetForUpdate(ctx, id)
	} else {
		order, err = store.Get(ctx, id)
	}
	if errors.Is(err, repositories.ErrOrderNotFound) {
		return nil, apperr.NotFound("order %d not found", id)
	}
	if err != nil {
		return nil, apperr.Persistence(err, "failed to load order %d", id)
	}
	return order, nil
}

// ============================================
// New job (bulk pickup)
// ============================================

// NewJob claims the requested files of an order for the acting employee and
// moves them into the employee's working folder. Files already claimed on this
// or another order sharing the folder are skipped. A failed move rolls the
// whole claim back.
func (s *JobService) NewJob(ctx context.Context, actor *models.Actor, orderID int, req *models.NewJobRequest) (*models.NewJobResult, error) {
	if err := s.authorize(actor, models.PermissionJobCreate); err != nil {
		return nil, err
	}
	if orderID <= 0 {
		return nil, apperr.Validation("order id is required")
	}
	if req == nil {
		return nil, apperr.Validation("request body is required")
	}

	jobType, condition, qcStep, err := validateStage(req.JobType, req.Condition, req.QCStep)
	if err != nil {
		return nil, err
	}

	files := uniqueNames(req.FileNames)
	if len(files) == 0 {
		return nil, apperr.Validation("at least one file name is required")
	}

	emp, err := s.actingEmployee(ctx, actor)
	if err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	result := &models.NewJobResult{OrderID: orderID}

	err = s.Orders.InTx(ctx, func(tx repositories.OrderStore) error {
		order, err := s.loadOrder(ctx, tx, orderID, true)
		if err != nil {
			return err
		}

		claimed := order.OccupiedFiles()
		elsewhere, err := tx.OccupiedFileNames(ctx, order.FolderPath, order.ID)
		if err != nil {
			return apperr.Persistence(err, "failed to check claimed files")
		}

		result.Claimed, result.Skipped = nil, nil
		for _, name := range files {
			if _, taken := claimed[name]; taken || elsewhere[name] {
				result.Skipped = append(result.Skipped, name)
				continue
			}
			result.Claimed = append(result.Claimed, name)
		}
		if len(result.Claimed) == 0 {
			return apperr.Conflict("all requested files are already claimed")
		}

		assignment, err := tracking.Assign(order, emp, jobType, qcStep, req.Shift, result.Claimed, now)
		if err != nil {
			return err
		}
		if order.Status == "" || order.Status == models.OrderStatusPending {
			order.Status = models.OrderStatusInProgress
		}

		if err := tx.Save(ctx, order); err != nil {
			if errors.Is(err, repositories.ErrVersionConflict) {
				return apperr.Conflict("order %d changed while claiming files, try again", orderID)
			}
			return apperr.Persistence(err, "failed to save order %d", orderID)
		}

		_, err = s.Mover.Move(ctx, MoveRequest{
			Kind:      MoveNewJob,
			JobType:   jobType,
			Condition: condition,
			QCStep:    qcStep,
			BasePath:  order.FolderPath,
			Employee:  assignment.EmployeeName,
			FileNames: result.Claimed,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.FileTransitionsTotal.WithLabelValues("new_job").Add(float64(len(result.Claimed)))
	for _, name := range result.Claimed {
		s.recordEvent(ctx, orderID, emp.ID, name, models.EventTypeJobStarted, jobType+"/"+condition)
	}
	log.Printf("[JobService] Employee %d claimed %d file(s) on order %d (%d skipped)",
		emp.ID, len(result.Claimed), orderID, len(result.Skipped))
	return result, nil
}

// ============================================
// Single-file transitions
// ============================================

// fileOp is one transition of a single file. apply locates and mutates the
// entry on order and reports the move it implies, if any. It must be safe to
// run again on a freshly loaded order.
type fileOp struct {
	action     tracking.Action
	permission string
	eventType  string
	apply      func(order *models.Order, emp *models.Employee, now time.Time) (*models.FileTrackingEntry, *MoveRequest, error)
}

func (s *JobService) ResumeFile(ctx context.Context, actor *models.Actor, orderID int, fileName string) (*models.FileTrackingEntry, error) {
	return s.runFileOp(ctx, actor, orderID, fileName, fileOp{
		action:     tracking.ActionResume,
		permission: models.PermissionFileResume,
		eventType:  models.EventTypeFileResumed,
		apply: func(order *models.Order, emp *models.Employee, now time.Time) (*models.FileTrackingEntry, *MoveRequest, error) {
			_, e, err := tracking.Locate(order, emp.ID, fileName)
			if err != nil {
				return nil, nil, err
			}
			return e, nil, tracking.Resume(e, now)
		},
	})
}

func (s *JobService) PauseFile(ctx context.Context, actor *models.Actor, orderID int, fileName string) (*models.FileTrackingEntry, error) {
	return s.runFileOp(ctx, actor, orderID, fileName, fileOp{
		action:     tracking.ActionPause,
		permission: models.PermissionFilePause,
		eventType:  models.EventTypeFilePaused,
		apply: func(order *models.Order, emp *models.Employee, now time.Time) (*models.FileTrackingEntry, *MoveRequest, error) {
			_, e, err := tracking.Locate(order, emp.ID, fileName)
			if err != nil {
				return nil, nil, err
			}
			return e, nil, tracking.Pause(e, now)
		},
	})
}

// FinishFile completes the file and moves it to the done stage of its job type
func (s *JobService) FinishFile(ctx context.Context, actor *models.Actor, orderID int, fileName string) (*models.FileTrackingEntry, error) {
	return s.runFileOp(ctx, actor, orderID, fileName, fileOp{
		action:     tracking.ActionFinish,
		permission: models.PermissionFileFinish,
		eventType:  models.EventTypeFileFinished,
		apply: func(order *models.Order, emp *models.Employee, now time.Time) (*models.FileTrackingEntry, *MoveRequest, error) {
			a, e, err := tracking.Locate(order, emp.ID, fileName)
			if err != nil {
				return nil, nil, err
			}
			if err := tracking.Finish(e, now); err != nil {
				return nil, nil, err
			}
			if a.Category == models.CategoryProduction {
				order.Production++
			}
			return e, &MoveRequest{
				Kind:      MoveFinish,
				JobType:   a.JobType,
				QCStep:    a.QCStep,
				BasePath:  order.FolderPath,
				Employee:  a.EmployeeName,
				FileNames: []string{fileName},
			}, nil
		},
	})
}

// CancelFile gives the file up and returns it to the shared partial pool
func (s *JobService) CancelFile(ctx context.Context, actor *models.Actor, orderID int, fileName string) (*models.FileTrackingEntry, error) {
	return s.runFileOp(ctx, actor, orderID, fileName, fileOp{
		action:     tracking.ActionCancel,
		permission: models.PermissionFileCancel,
		eventType:  models.EventTypeFileCancelled,
		apply: func(order *models.Order, emp *models.Employee, now time.Time) (*models.FileTrackingEntry, *MoveRequest, error) {
			a, e, err := tracking.Locate(order, emp.ID, fileName)
			if err != nil {
				return nil, nil, err
			}
			if err := tracking.Cancel(e, now); err != nil {
				return nil, nil, err
			}
			return e, &MoveRequest{
				Kind:      MoveCancel,
				JobType:   a.JobType,
				QCStep:    a.QCStep,
				BasePath:  order.FolderPath,
				Employee:  a.EmployeeName,
				FileNames: []string{fileName},
			}, nil
		},
	})
}

// TransferFile hands the file to another employee. The returned entry is the
// receiver's new one.
func (s *JobService) TransferFile(ctx context.Context, actor *models.Actor, orderID int, fileName string, targetEmployeeID int) (*models.FileTrackingEntry, error) {
	var target *models.Employee
	return s.runFileOp(ctx, actor, orderID, fileName, fileOp{
		action:     tracking.ActionTransfer,
		permission: models.PermissionFileTransfer,
		eventType:  models.EventTypeFileTransferred,
		apply: func(order *models.Order, emp *models.Employee, now time.Time) (*models.FileTrackingEntry, *MoveRequest, error) {
			if target == nil {
				if targetEmployeeID <= 0 {
					return nil, nil, apperr.Validation("target employee id is required")
				}
				var err error
				if target, err = s.targetEmployee(ctx, targetEmployeeID); err != nil {
					return nil, nil, err
				}
			}
			src, _, err := tracking.Locate(order, emp.ID, fileName)
			if err != nil {
				return nil, nil, err
			}
			dst, err := tracking.Transfer(order, src, fileName, target, now)
			if err != nil {
				return nil, nil, err
			}
			return dst.Files[fileName], &MoveRequest{
				Kind:           MoveTransfer,
				JobType:        src.JobType,
				QCStep:         src.QCStep,
				BasePath:       order.FolderPath,
				Employee:       src.EmployeeName,
				TargetEmployee: target.Name,
				FileNames:      []string{fileName},
			}, nil
		},
	})
}

func (s *JobService) targetEmployee(ctx context.Context, id int) (*models.Employee, error) {
	emp, err := s.Employees.Get(ctx, id)
	if errors.Is(err, repositories.ErrEmployeeNotFound) {
		return nil, apperr.NotFound("employee %d not found", id)
	}
	if err != nil {
		return nil, apperr.Persistence(err, "failed to load employee %d", id)
	}
	if !emp.IsActive {
		return nil, apperr.Validation("employee %d is not active", id)
	}
	return emp, nil
}

// runFileOp checks permission and ownership, applies the transition, moves
// the file when the transition requires it, then persists. Every business
// rule is decided before the move.
func (s *JobService) runFileOp(ctx context.Context, actor *models.Actor, orderID int, fileName string, op fileOp) (*models.FileTrackingEntry, error) {
	if err := s.authorize(actor, op.permission); err != nil {
		return nil, err
	}
	fileName = strings.TrimSpace(fileName)
	if orderID <= 0 {
		return nil, apperr.Validation("order id is required")
	}
	if fileName == "" {
		return nil, apperr.Validation("file name is required")
	}

	emp, err := s.actingEmployee(ctx, actor)
	if err != nil {
		return nil, err
	}
	order, err := s.loadOrder(ctx, s.Orders, orderID, false)
	if err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	entry, move, err := op.apply(order, emp, now)
	if err != nil {
		return nil, err
	}

	moved := false
	if move != nil {
		plan, err := s.Mover.Move(ctx, *move)
		if err != nil {
			return nil, err
		}
		moved = plan != nil
	}

	reapply := func(fresh *models.Order) (*models.FileTrackingEntry, error) {
		e, _, err := op.apply(fresh, emp, now)
		return e, err
	}
	entry, err = s.save(ctx, order, entry, reapply, moved, string(op.action), fileName)
	if err != nil {
		return nil, err
	}

	metrics.FileTransitionsTotal.WithLabelValues(string(op.action)).Inc()
	s.recordEvent(ctx, orderID, emp.ID, fileName, op.eventType, "")
	return entry, nil
}

// save persists order, reloading and reapplying the transition when another
// request saved the order first. Changes to other files survive that way.
func (s *JobService) save(
	ctx context.Context,
	order *models.Order,
	entry *models.FileTrackingEntry,
	reapply func(*models.Order) (*models.FileTrackingEntry, error),
	moved bool,
	action, fileName string,
) (*models.FileTrackingEntry, error) {
	for attempt := 1; ; attempt++ {
		err := s.Orders.Save(ctx, order)
		if err == nil {
			return entry, nil
		}

		if errors.Is(err, repositories.ErrVersionConflict) && attempt < maxSaveAttempts {
			fresh, loadErr := s.Orders.Get(ctx, order.ID)
			if loadErr == nil {
				e, applyErr := reapply(fresh)
				if applyErr == nil {
					order, entry = fresh, e
					continue
				}
				if !moved {
					return nil, applyErr
				}
				err = applyErr
			} else {
				err = loadErr
			}
		}

		if moved {
			log.Printf("[JobService] CRITICAL: %s of %q on order %d moved on NAS but was not saved: %v",
				action, fileName, order.ID, err)
		}
		return nil, apperr.Persistence(err, "failed to save %s of %q on order %d", action, fileName, order.ID)
	}
}

func (s *JobService) recordEvent(ctx context.Context, orderID, employeeID int, fileName, eventType, notes string) {
	if s.EventRepo == nil {
		return
	}
	event := &models.JobEvent{
		OrderID:    orderID,
		EmployeeID: employeeID,
		FileName:   fileName,
		EventType:  eventType,
		Notes:      notes,
	}
	if err := s.EventRepo.Create(ctx, event); err != nil {
		log.Printf("[JobService] Warning: failed to record %s for %q on order %d: %v", eventType, fileName, orderID, err)
	}
}

// ============================================
// Read operations
// ============================================

// ListAvailableFiles lists the files in an order's stage folder that nobody
// has claimed on this or any order sharing the folder.
func (s *JobService) ListAvailableFiles(ctx context.Context, actor *models.Actor, orderID int, q *models.AvailableFilesQuery) ([]string, error) {
	if err := s.authorize(actor, models.PermissionFileList); err != nil {
		return nil, err
	}
	if q == nil {
		return nil, apperr.Validation("a valid job_type is required")
	}
	jobType, condition, qcStep, err := validateStage(q.JobType, q.Condition, q.QCStep)
	if err != nil {
		return nil, err
	}

	order, err := s.loadOrder(ctx, s.Orders, orderID, false)
	if err != nil {
		return nil, err
	}

	names, _, err := s.Mover.ListStage(ctx, order.FolderPath, jobType, condition, qcStep)
	if err != nil {
		return nil, err
	}

	claimed := order.OccupiedFiles()
	elsewhere, err := s.Orders.OccupiedFileNames(ctx, order.FolderPath, order.ID)
	if err != nil {
		return nil, apperr.Persistence(err, "failed to check claimed files")
	}

	available := make([]string, 0, len(names))
	for _, name := range names {
		if _, taken := claimed[name]; taken || elsewhere[name] {
			continue
		}
		available = append(available, name)
	}
	sort.Strings(available)
	return available, nil
}

// GetProgress projects every assignment of an order with live elapsed times
func (s *JobService) GetProgress(ctx context.Context, actor *models.Actor, orderID int) (*models.OrderProgress, error) {
	if err := s.authorize(actor, models.PermissionFileList); err != nil {
		return nil, err
	}
	order, err := s.loadOrder(ctx, s.Orders, orderID, false)
	if err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	progress := &models.OrderProgress{OrderID: order.ID, ClientCode: order.ClientCode}
	for _, a := range order.Assignments() {
		ap := models.AssignmentProgress{
			EmployeeID:   a.EmployeeID,
			EmployeeName: a.EmployeeName,
			Category:     a.Category,
			QCStep:       a.QCStep,
			Files:        make([]models.FileProgress, 0, len(a.Files)),
		}
		names := make([]string, 0, len(a.Files))
		for name := range a.Files {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			e := a.Files[name]
			elapsed := timeutil.Millis(tracking.Elapsed(e, now))
			ap.Files = append(ap.Files, models.FileProgress{
				FileName:           e.FileName,
				Status:             e.Status,
				StartTimestamp:     e.StartTimestamp,
				EndTimestamp:       e.EndTimestamp,
				TotalPauseDuration: e.TotalPauseDuration,
				ElapsedMillis:      elapsed,
				Elapsed:            timeutil.FormatDuration(elapsed),
				TransferredFrom:    e.TransferredFrom,
			})
		}
		progress.Assignments = append(progress.Assignments, ap)
	}
	return progress, nil
}

// validateStage normalizes the stage selector shared by pickup and listing.
// qc jobs need step 1 or 2; other job types ignore the step.
func validateStage(jobType, condition string, qcStep int) (string, string, int, error) {
	jobType = strings.ToLower(strings.TrimSpace(jobType))
	condition = strings.ToLower(strings.TrimSpace(condition))
	if !storagepath.ValidJobType(jobType) {
		return "", "", 0, apperr.Validation("unknown job type %q", jobType)
	}
	if !storagepath.ValidCondition(condition) {
		return "", "", 0, apperr.Validation("condition must be fresh or incomplete")
	}
	if jobType != storagepath.JobQC {
		return jobType, condition, 0, nil
	}
	if qcStep != 1 && qcStep != 2 {
		return "", "", 0, apperr.Validation("qc_step must be 1 or 2 for qc jobs")
	}
	return jobType, condition, qcStep, nil
}

func uniqueNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

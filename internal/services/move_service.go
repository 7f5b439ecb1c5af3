package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cenkalti/backoff"

	"jobflow-backend/internal/apperr"
	"jobflow-backend/internal/cache"
	"jobflow-backend/internal/metrics"
	"jobflow-backend/internal/nas"
	"jobflow-backend/internal/storagepath"
)

// RemoteFS is the part of the NAS client the mover needs
type RemoteFS interface {
	List(ctx context.Context, dir string) ([]nas.FileInfo, error)
	CreateFolder(ctx context.Context, parent, name string) error
	Move(ctx context.Context, srcDir string, files []string, destDir string) error
}

type MoveKind string

const (
	MoveNewJob   MoveKind = "new_job"
	MoveTransfer MoveKind = "transfer"
	MoveFinish   MoveKind = "finish"
	MoveCancel   MoveKind = "cancel"
)

// MoveRequest describes a logical relocation of files of one order
type MoveRequest struct {
	Kind           MoveKind
	JobType        string
	Condition      string // new_job only
	QCStep         int
	BasePath       string // order folder, logical form
	Employee       string // acting (or transferring) employee
	TargetEmployee string // transfer only
	FileNames      []string
}

// MovePlan is the physical source and destination of a move
type MovePlan struct {
	Source      string   `json:"source"`
	Destination string   `json:"destination"`
	Files       []string `json:"files"`
}

// RetryPolicy bounds how often a move is retried after a transient error
type RetryPolicy struct {
	MaxRetries uint64
	Backoff    time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 2, Backoff: 500 * time.Millisecond}
}

type FileMover struct {
	FS     RemoteFS
	Drives storagepath.DriveMap
	Retry  RetryPolicy
}

func NewFileMover(fs RemoteFS, drives storagepath.DriveMap, retry RetryPolicy) *FileMover {
	if drives == nil {
		drives = storagepath.DefaultDriveMap()
	}
	return &FileMover{FS: fs, Drives: drives, Retry: retry}
}

// basePath converts an order folder to storage form. Empty means the order has
// no folder and nothing needs moving.
func (m *FileMover) basePath(logical string) (string, error) {
	if strings.TrimSpace(logical) == "" {
		return "", nil
	}
	base, err := m.Drives.ToStoragePath(logical)
	if err != nil {
		return "", apperr.Validation("order folder %q cannot be resolved: %v", logical, err)
	}
	return base, nil
}

// Plan computes where the files of req move from and to. A nil plan means the
// order has no folder configured.
func (m *FileMover) Plan(req MoveRequest) (*MovePlan, error) {
	base, err := m.basePath(req.BasePath)
	if err != nil || base == "" {
		return nil, err
	}

	working := storagepath.StageSuffix(req.JobType, storagepath.ConditionIncomplete, req.QCStep)
	plan := &MovePlan{Files: req.FileNames}

	switch req.Kind {
	case MoveNewJob:
		plan.Source = storagepath.Join(base, storagepath.StageSuffix(req.JobType, req.Condition, req.QCStep))
		plan.Destination = storagepath.EmployeeFolder(base, working, req.Employee)
	case MoveTransfer:
		plan.Source = storagepath.EmployeeFolder(base, working, req.Employee)
		plan.Destination = storagepath.EmployeeFolder(base, working, req.TargetEmployee)
	case MoveFinish:
		plan.Source = storagepath.EmployeeFolder(base, working, req.Employee)
		plan.Destination = storagepath.EmployeeFolder(base, storagepath.DoneSuffix(req.JobType, req.QCStep), req.Employee)
	case MoveCancel:
		// back to the shared partial pool, not an employee folder
		plan.Source = storagepath.EmployeeFolder(base, working, req.Employee)
		plan.Destination = storagepath.Join(base, working)
	default:
		return nil, fmt.Errorf("unknown move kind %q", req.Kind)
	}
	return plan, nil
}

// Move relocates the files of req on the NAS. The destination folder chain is
// created first; the move itself is retried only on transient NAS errors.
func (m *FileMover) Move(ctx context.Context, req MoveRequest) (*MovePlan, error) {
	plan, err := m.Plan(req)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		log.Printf("[Mover] No folder configured, skipping %s move of %d file(s)", req.Kind, len(req.FileNames))
		return nil, nil
	}
	if len(plan.Files) == 0 {
		return plan, nil
	}

	if err := m.EnsureFolders(ctx, plan.Destination, make(map[string]bool)); err != nil {
		return nil, err
	}

	attempt := 0
	operation := func() error {
		attempt++
		if attempt > 1 {
			metrics.NASMoveRetries.Inc()
			log.Printf("[Mover] Retrying move %s -> %s (attempt %d)", plan.Source, plan.Destination, attempt)
		}
		err := m.FS.Move(ctx, plan.Source, plan.Files, plan.Destination)
		if err == nil || nas.IsRetryable(err) {
			return err
		}
		return backoff.Permanent(err)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(m.Retry.Backoff), m.Retry.MaxRetries),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, apperr.Remote(err, "move %d file(s) from %s to %s failed", len(plan.Files), plan.Source, plan.Destination)
	}

	cache.InvalidateListings(ctx, plan.Source, plan.Destination)
	log.Printf("[Mover] Moved %d file(s) %s -> %s", len(plan.Files), plan.Source, plan.Destination)
	return plan, nil
}

// EnsureFolders creates every folder of dir below the share root. created
// remembers folders already handled during the current operation.
func (m *FileMover) EnsureFolders(ctx context.Context, dir string, created map[string]bool) error {
	segments := storagepath.Segments(dir)
	// segments[0] is the share itself and cannot be created
	for i := 1; i < len(segments); i++ {
		parent := "/" + strings.Join(segments[:i], "/")
		full := parent + "/" + segments[i]
		if created[full] {
			continue
		}
		if err := m.FS.CreateFolder(ctx, parent, segments[i]); err != nil {
			return apperr.Remote(err, "create folder %s failed", full)
		}
		created[full] = true
	}
	return nil
}

// ListStage returns the file names (folders excluded) in the stage folder of
// an order, plus the storage path it listed. Listings are cached briefly.
func (m *FileMover) ListStage(ctx context.Context, basePath, jobType, condition string, qcStep int) ([]string, string, error) {
	base, err := m.basePath(basePath)
	if err != nil || base == "" {
		return nil, "", err
	}
	dir := storagepath.Join(base, storagepath.StageSuffix(jobType, condition, qcStep))

	if data, ok := cache.GetCached(ctx, cache.ListingKey(dir)); ok {
		var names []string
		if json.Unmarshal(data, &names) == nil {
			return names, dir, nil
		}
	}

	entries, err := m.FS.List(ctx, dir)
	if nas.IsStatus(err, nas.StatusNotFound) {
		return []string{}, dir, nil
	}
	if err != nil {
		return nil, dir, apperr.Remote(err, "list %s failed", dir)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsFolder {
			names = append(names, e.Name)
		}
	}
	if data, err := json.Marshal(names); err == nil {
		cache.SetCached(ctx, cache.ListingKey(dir), data, cache.ListingTTL)
	}
	return names, dir, nil
}

package mover

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sys/unix"

	"triage/internal/faults"
	"triage/internal/fsys"
	"triage/internal/logging"
	"triage/internal/records"
)

// RecordStore is the subset of records.Store the engine writes through.
type RecordStore interface {
	RecordRejection(ctx context.Context, originalPath, deletedPath string) (int64, error)
	RecordRestore(ctx context.Context, rejectedID int64, originalPath, restoredPath string) error
	FindRejected(ctx context.Context, deletedPath string) *records.RejectedRecord
	MarkPurged(ctx context.Context, id int64) error
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock replaces the time source used for collision suffixes.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// Engine performs reject, restore and permanent delete through a backend.
type Engine struct {
	backend    fsys.Backend
	store      RecordStore
	quarantine string
	now        func() time.Time
	logger     *slog.Logger
}

// NewEngine builds an engine that quarantines into the backend location
// quarantine. An empty quarantine makes every reject fail validation.
func NewEngine(backend fsys.Backend, store RecordStore, quarantine string, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		backend:    backend,
		store:      store,
		quarantine: quarantine,
		now:        time.Now,
		logger:     logging.NewComponentLogger(logger, "mover"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Quarantine returns the configured quarantine location.
func (e *Engine) Quarantine() string { return e.quarantine }

// Reject moves src into quarantine and records the move. The record store is
// only updated after the file moved.
func (e *Engine) Reject(ctx context.Context, src string) Result {
	const op = "reject"
	if e.quarantine == "" {
		return e.report(op, src, failedAs(faults.KindValidation, op, "no quarantine folder configured", nil))
	}
	if src == "" {
		return e.report(op, src, failedAs(faults.KindValidation, op, "path is required", nil))
	}
	entry, err := e.backend.Stat(src)
	if err != nil {
		return e.report(op, src, failed(op, src, err))
	}
	if !entry.Regular {
		return e.report(op, src, failedAs(faults.KindValidation, op, src+" is not a regular file", nil))
	}

	dir, err := e.ensureQuarantine()
	if err != nil {
		return e.report(op, src, failed(op, "prepare quarantine "+e.quarantine, err))
	}

	_, name := e.backend.Split(src)
	target := e.backend.Join(dir, name)
	if fsys.Exists(e.backend, target) {
		target = e.backend.Join(dir, rejectName(name, e.now()))
		if fsys.Exists(e.backend, target) {
			return e.report(op, src, failedAs(faults.KindBusy, op, "quarantine name "+target+" is taken; retry", nil))
		}
	}

	if res := e.relocate(op, src, target, entry.Size); !res.Success {
		return e.report(op, src, res)
	}

	if _, err := e.store.RecordRejection(ctx, src, target); err != nil {
		e.rollback(op, target, src)
		return e.report(op, src, failedAs(faults.KindStorage, op, "record rejection of "+src, err))
	}
	return e.report(op, src, succeeded(target))
}

// Restore moves a quarantined file back to original. If original is occupied
// the file is restored under a "_restored_<timestamp>" name instead.
func (e *Engine) Restore(ctx context.Context, original, deleted string) Result {
	const op = "restore"
	if original == "" || deleted == "" {
		return e.report(op, deleted, failedAs(faults.KindValidation, op, "original and quarantined paths are required", nil))
	}

	rec := e.store.FindRejected(ctx, deleted)
	if rec == nil {
		return e.report(op, deleted, failedAs(faults.KindValidation, op, deleted+" is not a quarantined file", nil))
	}
	if rec.OriginalPath != original {
		return e.report(op, deleted, failedAs(faults.KindValidation, op,
			fmt.Sprintf("%s was rejected from %s, not %s", deleted, rec.OriginalPath, original), nil))
	}
	if rec.Purged() {
		return e.report(op, deleted, failedAs(faults.KindNotFound, op, deleted+" was permanently deleted", nil))
	}

	entry, err := e.backend.Stat(deleted)
	if err != nil {
		return e.report(op, deleted, failed(op, deleted, err))
	}

	target := original
	if fsys.Exists(e.backend, target) {
		dir, name := e.backend.Split(original)
		target = e.backend.Join(dir, restoreName(name, e.now()))
		if fsys.Exists(e.backend, target) {
			return e.report(op, deleted, failedAs(faults.KindBusy, op, "restore name "+target+" is taken; retry", nil))
		}
	}
	if err := e.ensureParent(target); err != nil {
		return e.report(op, deleted, failed(op, "recreate directory for "+target, err))
	}

	if res := e.relocate(op, deleted, target, entry.Size); !res.Success {
		return e.report(op, deleted, res)
	}

	if err := e.store.RecordRestore(ctx, rec.ID, original, target); err != nil {
		e.rollback(op, target, deleted)
		return e.report(op, deleted, failedAs(faults.KindStorage, op, "record restore of "+original, err))
	}
	return e.report(op, deleted, succeeded(target))
}

// PermanentlyDelete unlinks a quarantined file. Its move record is kept and
// stamped as purged.
func (e *Engine) PermanentlyDelete(ctx context.Context, deleted string) Result {
	const op = "permanent delete"
	if deleted == "" {
		return e.report(op, deleted, failedAs(faults.KindValidation, op, "path is required", nil))
	}
	rec := e.store.FindRejected(ctx, deleted)
	if rec == nil || rec.Purged() {
		return e.report(op, deleted, failedAs(faults.KindValidation, op, deleted+" is not a quarantined file", nil))
	}
	if _, err := e.backend.Stat(deleted); err != nil {
		return e.report(op, deleted, failed(op, deleted, err))
	}
	if err := e.backend.Remove(deleted); err != nil {
		return e.report(op, deleted, failed(op, deleted, err))
	}
	if err := e.store.MarkPurged(ctx, rec.ID); err != nil {
		res := failedAs(faults.KindStorage, op, "file removed but purge not recorded", err)
		res.Path = deleted
		return e.report(op, deleted, res)
	}
	return e.report(op, deleted, succeeded(deleted))
}

func (e *Engine) ensureQuarantine() (string, error) {
	parent, name := e.backend.Split(e.quarantine)
	return e.backend.CreateSubfolder(parent, name)
}

func (e *Engine) ensureParent(target string) error {
	dir, _ := e.backend.Split(target)
	if fsys.Exists(e.backend, dir) {
		return nil
	}
	parent, name := e.backend.Split(dir)
	_, err := e.backend.CreateSubfolder(parent, name)
	return err
}

// relocate moves src to dst, falling back to a verified copy across volumes.
func (e *Engine) relocate(op, src, dst string, size int64) Result {
	err := e.backend.Move(src, dst)
	switch {
	case err == nil:
		return succeeded(dst)
	case errors.Is(err, fsys.ErrDestinationExists):
		return failedAs(faults.KindBusy, op, dst+" appeared during the move; retry", err)
	case errors.Is(err, unix.EXDEV):
		copier, ok := e.backend.(fsys.Copier)
		if !ok {
			return failed(op, "cross-volume move of "+src+" is not supported by the "+e.backend.Name()+" backend", err)
		}
		return e.copyAcross(op, copier, src, dst, size)
	default:
		return failed(op, "move "+src, err)
	}
}

func (e *Engine) copyAcross(op string, copier fsys.Copier, src, dst string, size int64) Result {
	dir, _ := e.backend.Split(dst)
	free, err := copier.FreeSpace(dir)
	if err != nil {
		return failed(op, "check free space on "+dir, err)
	}
	if size > 0 && free < uint64(size) {
		return failedAs(faults.KindNoSpace, op,
			fmt.Sprintf("%s needs %d bytes, %d available", src, size, free), nil)
	}
	if err := copier.CopyVerified(src, dst); err != nil {
		if errors.Is(err, fsys.ErrDestinationExists) {
			return failedAs(faults.KindBusy, op, dst+" appeared during the copy; retry", err)
		}
		return failed(op, "copy "+src+" across volumes", err)
	}
	if err := e.backend.Remove(src); err != nil {
		if cleanupErr := e.backend.Remove(dst); cleanupErr != nil {
			logging.ErrorWithContext(e.logger, "failed to remove copy after source removal failed", "move_copy_cleanup_failed",
				logging.String("copy", dst),
				logging.Error(cleanupErr),
				logging.String(logging.FieldErrorHint, "delete the duplicate copy manually"),
			)
		}
		return failed(op, "remove "+src+" after copy", err)
	}
	e.logger.Info("moved across volumes",
		logging.String("source", src),
		logging.String("destination", dst),
		logging.Int64("bytes", size),
	)
	return succeeded(dst)
}

func (e *Engine) rollback(op, from, to string) {
	if res := e.relocate(op, from, to, 0); !res.Success {
		logging.ErrorWithContext(e.logger, "rollback failed; file left in place without a record", "move_rollback_failed",
			logging.String("operation", op),
			logging.String("location", from),
			logging.String("expected", to),
			logging.Error(res.Err),
			logging.String(logging.FieldErrorHint, "move the file back manually"),
		)
		return
	}
	e.logger.Info("move rolled back", logging.String("operation", op), logging.String("restored", to))
}

func (e *Engine) report(op, subject string, res Result) Result {
	if res.Success {
		e.logger.Info("move complete",
			logging.String("operation", op),
			logging.String("source", subject),
			logging.String("destination", res.Path),
		)
		return res
	}
	logging.WarnWithContext(e.logger, "move failed", "move_failed",
		logging.String("operation", op),
		logging.String("path", subject),
		logging.String(logging.FieldErrorKind, string(res.Kind)),
		logging.String(logging.FieldErrorHint, faults.Hint(res.Kind)),
		logging.String(logging.FieldImpact, "file left where it was"),
		logging.Error(res.Err),
	)
	return res
}

package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"triage/internal/config"
	"triage/internal/faults"
	"triage/internal/fsys"
	"triage/internal/logging"
	"triage/internal/media"
	"triage/internal/metrics"
	"triage/internal/mover"
	"triage/internal/records"
	"triage/internal/reviewqueue"
	"triage/internal/scanner"
)

// Option customizes a Session.
type Option func(*options)

type options struct {
	now     func() time.Time
	shuffle func([]string)
	backend fsys.Backend
}

// WithClock sets the time source used for collision suffixes.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithShuffle replaces the random queue permutation.
func WithShuffle(shuffle func([]string)) Option {
	return func(o *options) { o.shuffle = shuffle }
}

// WithBackend supplies the filesystem backend instead of building one from
// the config. The caller keeps ownership of it.
func WithBackend(backend fsys.Backend) Option {
	return func(o *options) { o.backend = backend }
}

// ScanSummary reports the outcome of InitializeScan or Resume.
type ScanSummary struct {
	// Count is the number of pending files in the review queue.
	Count           int
	Scanned         int
	AlreadyReviewed int
	Carried         int
	SkippedRoots    []string
	Elapsed         time.Duration
}

// Session drives one reviewer's queue.
type Session struct {
	id         string
	store      *records.Store
	backend    fsys.Backend
	closer     io.Closer
	classifier *media.Classifier
	builder    *reviewqueue.Builder
	engine     *mover.Engine
	logger     *slog.Logger
	// scope holds the host directories a path backend may act in. It is
	// empty for the root backend, which confines itself.
	scope []string

	mu    sync.Mutex
	queue *reviewqueue.Queue
}

// New wires a session over store using cfg. When cfg selects the root
// backend, the first scan path is opened as the granted directory.
func New(cfg *config.Config, store *records.Store, logger *slog.Logger, opts ...Option) (*Session, error) {
	if cfg == nil {
		return nil, errors.New("session requires a config")
	}
	if store == nil {
		return nil, errors.New("session requires a record store")
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	id := uuid.NewString()
	if logger == nil {
		logger = logging.NewNop()
	}
	base := logger.With(logging.String(logging.FieldSessionID, id))

	s := &Session{
		id:         id,
		store:      store,
		classifier: media.NewClassifier(cfg.FileTypes),
		logger:     logging.NewComponentLogger(base, "session"),
	}

	roots := cfg.Scan.Paths
	quarantine := cfg.Scan.QuarantineDir
	if cfg.UsesRootBackend() {
		roots = []string{"."}
		quarantine = cfg.Scan.QuarantineSubfolder
	}
	switch {
	case o.backend != nil:
		s.backend = o.backend
	case cfg.UsesRootBackend():
		if len(cfg.Scan.Paths) != 1 {
			return nil, faults.Wrap(faults.ErrValidation, "session", "open backend", "root backend needs exactly one scan path", nil)
		}
		root, err := fsys.OpenRoot(cfg.Scan.Paths[0])
		if err != nil {
			return nil, fmt.Errorf("open scan root: %w", err)
		}
		s.backend = root
		s.closer = root
	default:
		s.backend = fsys.NewPathBackend()
	}
	if !cfg.UsesRootBackend() {
		for _, dir := range append(slices.Clone(cfg.Scan.Paths), cfg.Scan.QuarantineDir) {
			if dir != "" {
				s.scope = append(s.scope, filepath.Clean(dir))
			}
		}
	}

	scan := scanner.New(s.backend, s.classifier, scanner.FilterFromConfig(cfg.Filters), base,
		scanner.WithMaxDepth(cfg.Scan.MaxDepth),
		scanner.WithConcurrency(cfg.Scan.Concurrency),
		scanner.WithExclude(quarantine),
	)
	queueOpts := []reviewqueue.Option{
		reviewqueue.WithExists(func(p string) bool { return fsys.Exists(s.backend, p) }),
	}
	if o.shuffle != nil {
		queueOpts = append(queueOpts, reviewqueue.WithShuffle(o.shuffle))
	}
	s.builder = reviewqueue.NewBuilder(store, scan, roots, base, queueOpts...)

	var moveOpts []mover.Option
	if o.now != nil {
		moveOpts = append(moveOpts, mover.WithClock(o.now))
	}
	s.engine = mover.NewEngine(s.backend, store, quarantine, base, moveOpts...)

	s.logger.Debug("session opened",
		logging.String("backend", s.backend.Name()),
		logging.Int("roots", len(roots)),
		logging.String("quarantine", quarantine),
	)
	return s, nil
}

// ID returns the session identifier attached to every log line.
func (s *Session) ID() string { return s.id }

// Backend returns the filesystem backend the session operates through.
func (s *Session) Backend() fsys.Backend { return s.backend }

// Quarantine returns the backend location rejected files are moved into.
func (s *Session) Quarantine() string { return s.engine.Quarantine() }

// HostPath maps a backend location to a path on the host for display.
func (s *Session) HostPath(location string) string {
	if root, ok := s.backend.(*fsys.RootBackend); ok {
		return root.HostPath(location)
	}
	return location
}

// Close releases the backend if the session opened it. The record store is
// owned by the caller.
func (s *Session) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

// InitializeScan scans every root and replaces the review queue with a
// freshly shuffled one.
func (s *Session) InitializeScan(ctx context.Context) (ScanSummary, error) {
	return s.rebuild(ctx, "build", s.builder.Build)
}

// Resume scans every root and merges the result into the persisted queue.
func (s *Session) Resume(ctx context.Context) (ScanSummary, error) {
	return s.rebuild(ctx, "resume", s.builder.Resume)
}

func (s *Session) rebuild(ctx context.Context, mode string, build func(context.Context) (*reviewqueue.Queue, reviewqueue.Summary, error)) (ScanSummary, error) {
	start := time.Now()
	q, summary, err := build(ctx)
	if err != nil {
		return ScanSummary{}, err
	}
	elapsed := time.Since(start)

	s.mu.Lock()
	s.queue = q
	s.mu.Unlock()

	metrics.Scan(summary.Queued, elapsed)
	s.logger.Info("review queue ready",
		logging.String("mode", mode),
		logging.Int("pending", summary.Queued),
		logging.Int("already_reviewed", summary.Reviewed),
		logging.Duration("elapsed", elapsed),
	)
	return ScanSummary{
		Count:           summary.Queued,
		Scanned:         summary.Scanned,
		AlreadyReviewed: summary.Reviewed,
		Carried:         summary.Carried,
		SkippedRoots:    summary.SkippedRoots,
		Elapsed:         elapsed,
	}, nil
}

// Load restores the persisted queue without scanning.
func (s *Session) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.loadLocked(ctx)
	return err
}

func (s *Session) loadLocked(ctx context.Context) (*reviewqueue.Queue, error) {
	if s.queue != nil {
		return s.queue, nil
	}
	q, err := s.builder.Load(ctx)
	if err != nil {
		return nil, err
	}
	s.queue = q
	return q, nil
}

func (s *Session) currentQueue(ctx context.Context) (*reviewqueue.Queue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

// NextFile returns the next file awaiting a decision, or nil when the queue
// and the store hold nothing pending.
func (s *Session) NextFile(ctx context.Context) (*records.FileRecord, error) {
	q, err := s.currentQueue(ctx)
	if err != nil {
		return nil, err
	}
	return q.Next(ctx)
}

// Skip leaves path pending and moves past it for the rest of this session.
func (s *Session) Skip(ctx context.Context, path string) error {
	loc, err := s.locate("skip", path)
	if err != nil {
		return err
	}
	q, err := s.currentQueue(ctx)
	if err != nil {
		return err
	}
	return q.Skip(ctx, loc)
}

// Keep records a keep decision. Keeping a rejected file is refused; restore
// it first.
func (s *Session) Keep(ctx context.Context, path string) error {
	loc, err := s.locate("keep", path)
	if err != nil {
		return err
	}
	rec, err := s.ensureRecord(ctx, "keep", loc)
	if err != nil {
		return err
	}
	switch rec.Status {
	case records.StatusKept:
		return nil
	case records.StatusRejected:
		return faults.Wrap(faults.ErrValidation, "session", "keep", loc+" is in quarantine; restore it first", nil)
	}
	if err := s.store.UpdateStatus(ctx, loc, records.StatusKept); err != nil {
		return err
	}
	metrics.Decision("keep", string(rec.MediaType))
	s.logger.Info("file kept", logging.Args(append(
		logging.DecisionAttrs("review", "keep", "reviewer decision"),
		logging.String("path", loc),
	)...)...)
	return nil
}

// Reject moves path into quarantine.
func (s *Session) Reject(ctx context.Context, path string) mover.Result {
	loc, err := s.locate("reject", path)
	if err != nil {
		return resultFromError(err)
	}
	rec, err := s.ensureRecord(ctx, "reject", loc)
	if err != nil {
		return resultFromError(err)
	}
	if rec.Status == records.StatusRejected {
		return resultFromError(faults.Wrap(faults.ErrValidation, "session", "reject", loc+" is already in quarantine", nil))
	}
	res := s.engine.Reject(ctx, loc)
	metrics.Move("reject", res.Kind)
	if res.Success {
		metrics.Decision("reject", string(rec.MediaType))
		s.logger.Info("file rejected", logging.Args(append(
			logging.DecisionAttrs("review", "reject", "reviewer decision"),
			logging.String("path", loc),
			logging.String("quarantine_path", res.Path),
		)...)...)
	}
	return res
}

// Restore moves a quarantined file back to its original location.
func (s *Session) Restore(ctx context.Context, original, deleted string) mover.Result {
	orig, err := s.locate("restore", original)
	if err != nil {
		return resultFromError(err)
	}
	del, err := s.locate("restore", deleted)
	if err != nil {
		return resultFromError(err)
	}
	res := s.engine.Restore(ctx, orig, del)
	metrics.Move("restore", res.Kind)
	return res
}

// PermanentlyDelete unlinks a quarantined file and keeps its audit record.
func (s *Session) PermanentlyDelete(ctx context.Context, deleted string) mover.Result {
	del, err := s.locate("permanent delete", deleted)
	if err != nil {
		return resultFromError(err)
	}
	res := s.engine.PermanentlyDelete(ctx, del)
	metrics.Move("purge", res.Kind)
	return res
}

// Stats returns aggregate counts over every record.
func (s *Session) Stats(ctx context.Context) (records.Stats, error) {
	return s.store.Stats(ctx)
}

// StatsByType returns counts per media type.
func (s *Session) StatsByType(ctx context.Context) (map[media.Type]records.Stats, error) {
	return s.store.StatsByType(ctx)
}

// RejectedFiles lists restorable quarantine records, most recent first.
func (s *Session) RejectedFiles(ctx context.Context) []records.RejectedRecord {
	return s.store.RejectedRecords(ctx)
}

// RejectionHistory lists every quarantine record including purged ones.
func (s *Session) RejectionHistory(ctx context.Context) []records.RejectedRecord {
	return s.store.RejectionHistory(ctx)
}

// Pending lists files still awaiting a decision, oldest first.
func (s *Session) Pending(ctx context.Context) []records.FileRecord {
	return s.store.PendingFiles(ctx)
}

// FilesByStatus lists files in the given status, oldest first.
func (s *Session) FilesByStatus(ctx context.Context, status records.Status) ([]records.FileRecord, error) {
	if !status.Valid() {
		return nil, faults.Wrap(faults.ErrValidation, "session", "list files", fmt.Sprintf("unknown status %q", status), nil)
	}
	return s.store.FilesByStatus(ctx, status), nil
}

// ExportRejected writes one "original -> deleted" line per restorable record
// and returns how many were written.
func (s *Session) ExportRejected(ctx context.Context, w io.Writer) (int, error) {
	rejected := s.store.RejectedRecords(ctx)
	for i, rec := range rejected {
		if _, err := fmt.Fprintf(w, "%s -> %s\n", rec.OriginalPath, rec.DeletedPath); err != nil {
			return i, err
		}
	}
	return len(rejected), nil
}

// Preview returns up to limit leading bytes of path.
func (s *Session) Preview(ctx context.Context, path string, limit int64) ([]byte, error) {
	loc, err := s.locate("preview", path)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := s.backend.ReadBytes(loc, limit)
	if err != nil {
		kind := faults.Classify(err)
		return nil, faults.Wrap(faults.Marker(kind), "session", "preview", loc, err)
	}
	return data, nil
}

func (s *Session) locate(operation, path string) (string, error) {
	loc, err := s.backend.Locate(path)
	if err != nil {
		return "", faults.Wrap(faults.ErrValidation, "session", operation, "resolve "+path, err)
	}
	if !s.inScope(loc) {
		return "", faults.Wrap(faults.ErrValidation, "session", operation, loc+" is outside the scan roots and quarantine folder", nil)
	}
	return loc, nil
}

func (s *Session) inScope(loc string) bool {
	if len(s.scope) == 0 {
		return true
	}
	for _, dir := range s.scope {
		rel, err := filepath.Rel(dir, loc)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// ensureRecord returns the record for loc, inserting it as pending when the
// file exists under a scan root but was never scanned.
func (s *Session) ensureRecord(ctx context.Context, operation, loc string) (*records.FileRecord, error) {
	if rec := s.store.GetFile(ctx, loc); rec != nil {
		return rec, nil
	}
	entry, err := s.backend.Stat(loc)
	if err != nil {
		return nil, faults.Wrap(faults.Marker(faults.Classify(err)), "session", operation, loc, err)
	}
	kind, ok := s.classifier.ClassifyName(entry.Name)
	if !ok || !entry.Regular {
		return nil, faults.Wrap(faults.ErrValidation, "session", operation, loc+" is not a reviewable file", nil)
	}
	if _, err := s.store.AddFile(ctx, records.NewFile{Filepath: loc, MediaType: kind, FileSize: entry.Size}); err != nil {
		return nil, err
	}
	rec := s.store.GetFile(ctx, loc)
	if rec == nil {
		return nil, faults.Wrap(faults.ErrStorage, "session", operation, "record for "+loc+" not readable after insert", nil)
	}
	return rec, nil
}

func resultFromError(err error) mover.Result {
	kind := faults.Classify(err)
	if kind == faults.KindNone {
		kind = faults.KindUnknown
	}
	return mover.Result{Kind: kind, Err: err}
}

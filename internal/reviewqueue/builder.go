package reviewqueue

import (
	"context"
	"log/slog"
	"math/rand/v2"

	"triage/internal/logging"
	"triage/internal/records"
	"triage/internal/scanner"
)

// Store is the subset of records.Store the queue reads and writes.
type Store interface {
	IsReviewed(ctx context.Context, filepath string) bool
	GetFile(ctx context.Context, filepath string) *records.FileRecord
	AddFiles(ctx context.Context, files []records.NewFile) error
	UpdateStatus(ctx context.Context, filepath string, status records.Status) error
	NextPending(ctx context.Context) *records.FileRecord
	PendingFiles(ctx context.Context) []records.FileRecord
	SaveQueue(ctx context.Context, entries []string) error
	LoadQueue(ctx context.Context) (records.QueueState, error)
	SaveQueuePosition(ctx context.Context, index int) error
}

// Scanner produces the candidate set for the configured roots.
type Scanner interface {
	Scan(ctx context.Context, roots []string) (scanner.Result, error)
	Accept(c scanner.Candidate) bool
}

// Summary reports what a build or resume did.
type Summary struct {
	Scanned      int
	Reviewed     int
	Queued       int
	Carried      int
	SkippedRoots []string
}

// Option customizes a Builder.
type Option func(*Builder)

// WithShuffle replaces the random permutation applied to new entries.
func WithShuffle(shuffle func([]string)) Option {
	return func(b *Builder) {
		if shuffle != nil {
			b.shuffle = shuffle
		}
	}
}

// WithExists installs the check used to detect files that vanished since
// they were queued. Without one every entry is assumed present.
func WithExists(exists func(path string) bool) Option {
	return func(b *Builder) {
		if exists != nil {
			b.exists = exists
		}
	}
}

// Builder constructs and restores review queues.
type Builder struct {
	store   Store
	scanner Scanner
	roots   []string
	shuffle func([]string)
	exists  func(string) bool
	logger  *slog.Logger
}

// NewBuilder wires a builder over store and scanner for the given roots.
func NewBuilder(store Store, scan Scanner, roots []string, logger *slog.Logger, opts ...Option) *Builder {
	b := &Builder{
		store:   store,
		scanner: scan,
		roots:   append([]string(nil), roots...),
		shuffle: fisherYates,
		exists:  func(string) bool { return true },
		logger:  logging.NewComponentLogger(logger, "reviewqueue"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func fisherYates(entries []string) {
	rand.Shuffle(len(entries), func(i, j int) {
		entries[i], entries[j] = entries[j], entries[i]
	})
}

// Build scans, records newly seen files as pending, and persists a freshly
// shuffled queue of every pending candidate.
func (b *Builder) Build(ctx context.Context) (*Queue, Summary, error) {
	pending, summary, err := b.discover(ctx)
	if err != nil {
		return nil, Summary{}, err
	}
	b.shuffle(pending)
	if err := b.store.SaveQueue(ctx, pending); err != nil {
		return nil, Summary{}, err
	}
	summary.Queued = len(pending)
	b.logger.Info("review queue built",
		logging.Int("scanned", summary.Scanned),
		logging.Int("already_reviewed", summary.Reviewed),
		logging.Int("queued", summary.Queued),
	)
	return b.newQueue(pending, 0), summary, nil
}

// Resume scans and merges the result into the persisted queue. Entries past
// the stored position that are still pending keep their order; new pending
// files are shuffled and appended. Without a persisted queue Resume behaves
// like Build.
func (b *Builder) Resume(ctx context.Context) (*Queue, Summary, error) {
	state, err := b.store.LoadQueue(ctx)
	if err != nil {
		return nil, Summary{}, err
	}
	if len(state.Entries) == 0 {
		return b.Build(ctx)
	}

	pending, summary, err := b.discover(ctx)
	if err != nil {
		return nil, Summary{}, err
	}

	carried := make([]string, 0, len(state.Remaining()))
	inQueue := make(map[string]struct{}, len(state.Entries))
	for _, entry := range state.Remaining() {
		if _, dup := inQueue[entry]; dup {
			continue
		}
		rec := b.store.GetFile(ctx, entry)
		if rec == nil || rec.Status != records.StatusPending {
			continue
		}
		inQueue[entry] = struct{}{}
		carried = append(carried, entry)
	}

	fresh := make([]string, 0, len(pending))
	for _, path := range pending {
		if _, ok := inQueue[path]; ok {
			continue
		}
		fresh = append(fresh, path)
	}
	b.shuffle(fresh)

	entries := append(carried, fresh...)
	if err := b.store.SaveQueue(ctx, entries); err != nil {
		return nil, Summary{}, err
	}
	summary.Carried = len(carried)
	summary.Queued = len(entries)
	b.logger.Info("review queue resumed",
		logging.Int("scanned", summary.Scanned),
		logging.Int("carried", summary.Carried),
		logging.Int("new", len(fresh)),
		logging.Int("queued", summary.Queued),
		logging.Int("previous_position", state.CurrentIndex),
	)
	return b.newQueue(entries, 0), summary, nil
}

// Load restores the persisted queue at its stored position without scanning.
func (b *Builder) Load(ctx context.Context) (*Queue, error) {
	state, err := b.store.LoadQueue(ctx)
	if err != nil {
		return nil, err
	}
	pos := min(max(state.CurrentIndex, 0), len(state.Entries))
	return b.newQueue(state.Entries, pos), nil
}

func (b *Builder) discover(ctx context.Context) ([]string, Summary, error) {
	result, err := b.scanner.Scan(ctx, b.roots)
	if err != nil {
		return nil, Summary{}, err
	}
	summary := Summary{SkippedRoots: result.Skipped}

	additions := make([]records.NewFile, 0, len(result.Candidates))
	paths := make([]string, 0, len(result.Candidates))
	for _, c := range result.Candidates {
		if !b.scanner.Accept(c) {
			continue
		}
		summary.Scanned++
		if b.store.IsReviewed(ctx, c.Filepath) {
			summary.Reviewed++
			continue
		}
		additions = append(additions, records.NewFile{
			Filepath:  c.Filepath,
			MediaType: c.MediaType,
			FileSize:  c.FileSize,
		})
		paths = append(paths, c.Filepath)
	}
	if err := b.store.AddFiles(ctx, additions); err != nil {
		return nil, Summary{}, err
	}
	return paths, summary, nil
}

func (b *Builder) newQueue(entries []string, pos int) *Queue {
	return &Queue{
		store:   b.store,
		entries: entries,
		pos:     pos,
		exists:  b.exists,
		skipped: make(map[string]struct{}),
		logger:  b.logger,
	}
}

package reviewqueue

import (
	"context"
	"log/slog"
	"sync"

	"triage/internal/logging"
	"triage/internal/records"
)

// Queue serves review candidates in persisted order. It is safe for
// concurrent use.
type Queue struct {
	mu      sync.Mutex
	store   Store
	entries []string
	pos     int
	exists  func(string) bool
	skipped map[string]struct{}
	logger  *slog.Logger
}

// Len returns the number of entries in the persisted order.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Position returns the index of the next entry to serve.
func (q *Queue) Position() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pos
}

// Remaining returns how many queued entries have not been served yet.
func (q *Queue) Remaining() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries) - q.pos
}

// Next returns the next pending file without consuming it, or nil when
// nothing is left. Entries that were decided elsewhere are skipped and files
// that no longer exist are marked missing. Once the queue is exhausted the
// oldest pending record in the store is served.
func (q *Queue) Next(ctx context.Context) (*records.FileRecord, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	start := q.pos
	for q.pos < len(q.entries) {
		path := q.entries[q.pos]
		if rec := q.servable(ctx, path); rec != nil {
			q.persistPosition(ctx, start)
			return rec, nil
		}
		q.pos++
	}
	q.persistPosition(ctx, start)
	return q.fallback(ctx), nil
}

// Skip moves past path without recording a decision. The file stays pending
// and is not served again by this queue.
func (q *Queue) Skip(ctx context.Context, path string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.skipped[path] = struct{}{}
	if q.pos < len(q.entries) && q.entries[q.pos] == path {
		q.pos++
		return q.store.SaveQueuePosition(ctx, q.pos)
	}
	return nil
}

// servable returns the record for path if it is still pending and present.
func (q *Queue) servable(ctx context.Context, path string) *records.FileRecord {
	if _, skipped := q.skipped[path]; skipped {
		return nil
	}
	rec := q.store.GetFile(ctx, path)
	if rec == nil || rec.Status != records.StatusPending {
		return nil
	}
	if !q.exists(path) {
		q.markMissing(ctx, path)
		return nil
	}
	return rec
}

func (q *Queue) fallback(ctx context.Context) *records.FileRecord {
	if len(q.skipped) == 0 {
		for {
			rec := q.store.NextPending(ctx)
			if rec == nil {
				return nil
			}
			if q.exists(rec.Filepath) {
				return rec
			}
			if !q.markMissing(ctx, rec.Filepath) {
				break
			}
		}
	}
	for _, rec := range q.store.PendingFiles(ctx) {
		if _, skipped := q.skipped[rec.Filepath]; skipped {
			continue
		}
		if q.exists(rec.Filepath) {
			return &rec
		}
		q.markMissing(ctx, rec.Filepath)
	}
	return nil
}

func (q *Queue) markMissing(ctx context.Context, path string) bool {
	if err := q.store.UpdateStatus(ctx, path, records.StatusMissing); err != nil {
		logging.WarnWithContext(q.logger, "failed to mark file missing", "queue_missing_update_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "file is skipped for this session"),
		)
		q.skipped[path] = struct{}{}
		return false
	}
	q.logger.Info("queued file no longer exists", logging.String("path", path))
	return true
}

func (q *Queue) persistPosition(ctx context.Context, previous int) {
	if q.pos == previous {
		return
	}
	if err := q.store.SaveQueuePosition(ctx, q.pos); err != nil {
		logging.WarnWithContext(q.logger, "failed to persist queue position", "queue_position_save_failed",
			logging.Int("position", q.pos),
			logging.Error(err),
			logging.String(logging.FieldImpact, "decided entries are re-checked on the next load"),
		)
	}
}

package records

import (
	"time"

	"triage/internal/media"
)

// Status is the review state of a file.
type Status string

const (
	StatusPending  Status = "pending"
	StatusKept     Status = "kept"
	StatusRejected Status = "rejected"
	StatusMissing  Status = "missing"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusKept, StatusRejected, StatusMissing:
		return true
	}
	return false
}

// FileRecord is one file the system has ever seen.
type FileRecord struct {
	ID         int64
	Filepath   string
	MediaType  media.Type
	Status     Status
	FileSize   int64
	FileHash   string
	ReviewedAt *time.Time
	CreatedAt  time.Time
}

// Reviewed reports whether a decision (or a missing-file check) moved the
// record away from pending.
func (r FileRecord) Reviewed() bool {
	return r.Status != StatusPending
}

// RejectedRecord is one executed move into quarantine.
type RejectedRecord struct {
	ID           int64
	OriginalPath string
	DeletedPath  string
	RejectedAt   time.Time
	PurgedAt     *time.Time
}

// Purged reports whether the quarantined file was permanently deleted.
func (r RejectedRecord) Purged() bool {
	return r.PurgedAt != nil
}

// Stats aggregates file counts by status. Missing files count toward Total
// only, so Total-Pending includes them.
type Stats struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Kept     int `json:"kept"`
	Rejected int `json:"rejected"`
}

// Reviewed returns the number of files no longer pending.
func (s Stats) Reviewed() int {
	return s.Total - s.Pending
}

// QueueState is the persisted review queue: the shuffled file order and the
// position of the next entry to serve.
type QueueState struct {
	CurrentIndex int
	LastUpdated  time.Time
	Entries      []string
}

// Remaining returns the entries at or after CurrentIndex.
func (q QueueState) Remaining() []string {
	if q.CurrentIndex <= 0 {
		return q.Entries
	}
	if q.CurrentIndex >= len(q.Entries) {
		return nil
	}
	return q.Entries[q.CurrentIndex:]
}

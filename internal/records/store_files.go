package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"triage/internal/faults"
	"triage/internal/logging"
	"triage/internal/media"
)

// NewFile describes a file to insert as pending.
type NewFile struct {
	Filepath  string
	MediaType media.Type
	FileSize  int64
	FileHash  string
}

func (f NewFile) validate() error {
	if f.Filepath == "" {
		return faults.Wrap(faults.ErrValidation, "records", "add file", "filepath is required", nil)
	}
	if f.MediaType == "" {
		return faults.Wrap(faults.ErrValidation, "records", "add file", fmt.Sprintf("%s has no media type", f.Filepath), nil)
	}
	return nil
}

const insertFileSQL = `INSERT OR IGNORE INTO files (filepath, media_type, status, file_size, file_hash, created_at)
VALUES (?, ?, 'pending', ?, ?, ?)`

// AddFile inserts f as pending and returns its row id. When the path is
// already known the existing id is returned and the row is left untouched.
func (s *Store) AddFile(ctx context.Context, f NewFile) (int64, error) {
	if err := f.validate(); err != nil {
		return 0, err
	}
	res, err := s.execWithRetry(ctx, insertFileSQL, f.Filepath, string(f.MediaType), f.FileSize, nullableString(f.FileHash), s.timestamp())
	if err != nil {
		return 0, storageError("add file", f.Filepath, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 1 {
		if id, err := res.LastInsertId(); err == nil {
			return id, nil
		}
	}

	var id int64
	if err := s.db.QueryRowContext(ensureContext(ctx), "SELECT id FROM files WHERE filepath = ?", f.Filepath).Scan(&id); err != nil {
		return 0, storageError("add file", "lookup existing "+f.Filepath, err)
	}
	return id, nil
}

// AddFiles inserts every file in one transaction. Known paths are skipped, and
// any failure leaves the table unchanged.
func (s *Store) AddFiles(ctx context.Context, files []NewFile) error {
	if len(files) == 0 {
		return nil
	}
	for _, f := range files {
		if err := f.validate(); err != nil {
			return err
		}
	}
	created := s.timestamp()
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, insertFileSQL)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, f := range files {
			if _, err := stmt.ExecContext(ctx, f.Filepath, string(f.MediaType), f.FileSize, nullableString(f.FileHash), created); err != nil {
				return fmt.Errorf("%s: %w", f.Filepath, err)
			}
		}
		return nil
	})
	if err != nil {
		return storageError("add files", fmt.Sprintf("batch of %d", len(files)), err)
	}
	return nil
}

// GetFile returns the record for filepath, or nil when it is unknown or the
// lookup failed.
func (s *Store) GetFile(ctx context.Context, filepath string) *FileRecord {
	row := s.db.QueryRowContext(ensureContext(ctx), "SELECT "+fileColumns+" FROM files WHERE filepath = ?", filepath)
	rec, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		s.readFailed("get file", err, logging.String("filepath", filepath))
		return nil
	}
	return &rec
}

// UpdateStatus sets the status of filepath and refreshes reviewed_at. Unknown
// paths are a no-op.
func (s *Store) UpdateStatus(ctx context.Context, filepath string, status Status) error {
	if !status.Valid() {
		return faults.Wrap(faults.ErrValidation, "records", "update status", fmt.Sprintf("unknown status %q", status), nil)
	}
	if _, err := s.execWithRetry(ctx, "UPDATE files SET status = ?, reviewed_at = ? WHERE filepath = ?", string(status), s.timestamp(), filepath); err != nil {
		return storageError("update status", filepath, err)
	}
	return nil
}

// IsReviewed reports whether filepath is known and no longer pending.
func (s *Store) IsReviewed(ctx context.Context, filepath string) bool {
	rec := s.GetFile(ctx, filepath)
	return rec != nil && rec.Reviewed()
}

// PendingFiles lists pending records, oldest first.
func (s *Store) PendingFiles(ctx context.Context) []FileRecord {
	return s.listFiles(ctx, "pending files",
		"SELECT "+fileColumns+" FROM files WHERE status = ? ORDER BY created_at, id", string(StatusPending))
}

// FilesByStatus lists records with the given status, oldest first.
func (s *Store) FilesByStatus(ctx context.Context, status Status) []FileRecord {
	return s.listFiles(ctx, "files by status",
		"SELECT "+fileColumns+" FROM files WHERE status = ? ORDER BY created_at, id", string(status))
}

// NextPending returns the oldest pending record, or nil when none remain.
func (s *Store) NextPending(ctx context.Context) *FileRecord {
	row := s.db.QueryRowContext(ensureContext(ctx),
		"SELECT "+fileColumns+" FROM files WHERE status = ? ORDER BY created_at, id LIMIT 1", string(StatusPending))
	rec, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		s.readFailed("next pending", err)
		return nil
	}
	return &rec
}

func (s *Store) listFiles(ctx context.Context, operation, query string, args ...any) []FileRecord {
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		s.readFailed(operation, err)
		return nil
	}
	defer rows.Close()

	var out []FileRecord
	for rows.Next() {
		rec, err := scanFile(rows)
		if err != nil {
			s.readFailed(operation, err)
			return nil
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		s.readFailed(operation, err)
		return nil
	}
	return out
}

// Stats aggregates record counts across all statuses.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	byType, err := s.StatsByType(ctx)
	if err != nil {
		return Stats{}, err
	}
	var total Stats
	for _, st := range byType {
		total.Total += st.Total
		total.Pending += st.Pending
		total.Kept += st.Kept
		total.Rejected += st.Rejected
	}
	return total, nil
}

// StatsByType aggregates record counts per media type.
func (s *Store) StatsByType(ctx context.Context) (map[media.Type]Stats, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), "SELECT media_type, status, COUNT(*) FROM files GROUP BY media_type, status")
	if err != nil {
		return nil, storageError("stats", "", err)
	}
	defer rows.Close()

	out := make(map[media.Type]Stats)
	for rows.Next() {
		var (
			mediaType string
			status    string
			count     int
		)
		if err := rows.Scan(&mediaType, &status, &count); err != nil {
			return nil, storageError("stats", "scan row", err)
		}
		st := out[media.Type(mediaType)]
		st.Total += count
		switch Status(status) {
		case StatusPending:
			st.Pending += count
		case StatusKept:
			st.Kept += count
		case StatusRejected:
			st.Rejected += count
		}
		out[media.Type(mediaType)] = st
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("stats", "iterate rows", err)
	}
	return out, nil
}

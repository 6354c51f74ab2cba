package records

import (
	"context"
	"database/sql"
	"errors"

	"triage/internal/logging"
)

// AddRejectedRecord appends a quarantine move record.
func (s *Store) AddRejectedRecord(ctx context.Context, originalPath, deletedPath string) (int64, error) {
	res, err := s.execWithRetry(ctx,
		"INSERT INTO rejected_files (original_path, deleted_path, rejected_at) VALUES (?, ?, ?)",
		originalPath, deletedPath, s.timestamp())
	if err != nil {
		return 0, storageError("add rejected record", originalPath, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storageError("add rejected record", "read id", err)
	}
	return id, nil
}

// RecordRejection stores the move record and flips the file to rejected in a
// single transaction.
func (s *Store) RecordRejection(ctx context.Context, originalPath, deletedPath string) (int64, error) {
	var id int64
	now := s.timestamp()
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO rejected_files (original_path, deleted_path, rejected_at) VALUES (?, ?, ?)",
			originalPath, deletedPath, now)
		if err != nil {
			return err
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			"UPDATE files SET status = ?, reviewed_at = ? WHERE filepath = ?",
			string(StatusRejected), now, originalPath)
		return err
	})
	if err != nil {
		return 0, storageError("record rejection", originalPath, err)
	}
	return id, nil
}

// RecordRestore marks originalPath pending again and drops the move record
// identified by rejectedID. When the file came back under a different name,
// restoredPath is inserted as its own pending record with the original media
// type. A zero rejectedID skips the record removal.
func (s *Store) RecordRestore(ctx context.Context, rejectedID int64, originalPath, restoredPath string) error {
	now := s.timestamp()
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"UPDATE files SET status = ?, reviewed_at = ? WHERE filepath = ?",
			string(StatusPending), now, originalPath); err != nil {
			return err
		}
		if restoredPath != "" && restoredPath != originalPath {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO files (filepath, media_type, status, file_size, file_hash, reviewed_at, created_at)
				 SELECT ?, media_type, 'pending', file_size, file_hash, ?, ? FROM files WHERE filepath = ?`,
				restoredPath, now, now, originalPath); err != nil {
				return err
			}
		}
		if rejectedID > 0 {
			if _, err := tx.ExecContext(ctx, "DELETE FROM rejected_files WHERE id = ?", rejectedID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return storageError("record restore", originalPath, err)
	}
	return nil
}

// RejectedRecords lists quarantined files that are still restorable, most
// recent first.
func (s *Store) RejectedRecords(ctx context.Context) []RejectedRecord {
	return s.listRejected(ctx, "rejected records",
		"SELECT "+rejectedColumns+" FROM rejected_files WHERE purged_at IS NULL ORDER BY rejected_at DESC, id DESC")
}

// RejectionHistory lists every move record including purged ones, most recent
// first.
func (s *Store) RejectionHistory(ctx context.Context) []RejectedRecord {
	return s.listRejected(ctx, "rejection history",
		"SELECT "+rejectedColumns+" FROM rejected_files ORDER BY rejected_at DESC, id DESC")
}

// FindRejected returns the newest move record whose quarantine location is
// deletedPath, or nil when there is none.
func (s *Store) FindRejected(ctx context.Context, deletedPath string) *RejectedRecord {
	row := s.db.QueryRowContext(ensureContext(ctx),
		"SELECT "+rejectedColumns+" FROM rejected_files WHERE deleted_path = ? ORDER BY id DESC LIMIT 1", deletedPath)
	rec, err := scanRejected(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		s.readFailed("find rejected", err, logging.String("deleted_path", deletedPath))
		return nil
	}
	return &rec
}

// RemoveRejectedRecord deletes one move record.
func (s *Store) RemoveRejectedRecord(ctx context.Context, id int64) error {
	if _, err := s.execWithRetry(ctx, "DELETE FROM rejected_files WHERE id = ?", id); err != nil {
		return storageError("remove rejected record", "", err)
	}
	return nil
}

// MarkPurged stamps purged_at on a move record whose file was permanently
// deleted. The record itself is kept for audit.
func (s *Store) MarkPurged(ctx context.Context, id int64) error {
	if _, err := s.execWithRetry(ctx, "UPDATE rejected_files SET purged_at = ? WHERE id = ?", s.timestamp(), id); err != nil {
		return storageError("mark purged", "", err)
	}
	return nil
}

func (s *Store) listRejected(ctx context.Context, operation, query string, args ...any) []RejectedRecord {
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		s.readFailed(operation, err)
		return nil
	}
	defer rows.Close()

	var out []RejectedRecord
	for rows.Next() {
		rec, err := scanRejected(rows)
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

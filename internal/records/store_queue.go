package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const upsertQueueStateSQL = `INSERT INTO queue_state (id, current_index, last_updated) VALUES (1, ?, ?)
ON CONFLICT(id) DO UPDATE SET current_index = excluded.current_index, last_updated = excluded.last_updated`

// SaveQueuePosition overwrites the single queue position slot.
func (s *Store) SaveQueuePosition(ctx context.Context, index int) error {
	if index < 0 {
		index = 0
	}
	if _, err := s.execWithRetry(ctx, upsertQueueStateSQL, index, s.timestamp()); err != nil {
		return storageError("save queue position", fmt.Sprintf("index %d", index), err)
	}
	return nil
}

// QueuePosition returns the persisted queue position, or 0 when unset or
// unreadable.
func (s *Store) QueuePosition(ctx context.Context) int {
	var index int
	err := s.db.QueryRowContext(ensureContext(ctx), "SELECT current_index FROM queue_state WHERE id = 1").Scan(&index)
	if errors.Is(err, sql.ErrNoRows) {
		return 0
	}
	if err != nil {
		s.readFailed("queue position", err)
		return 0
	}
	return index
}

// SaveQueue replaces the persisted review queue with entries and resets the
// position to the first entry, atomically.
func (s *Store) SaveQueue(ctx context.Context, entries []string) error {
	now := s.timestamp()
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM queue_entries"); err != nil {
			return err
		}
		if len(entries) > 0 {
			stmt, err := tx.PrepareContext(ctx, "INSERT INTO queue_entries (position, filepath) VALUES (?, ?)")
			if err != nil {
				return err
			}
			defer stmt.Close()
			for i, entry := range entries {
				if _, err := stmt.ExecContext(ctx, i, entry); err != nil {
					return err
				}
			}
		}
		_, err := tx.ExecContext(ctx, upsertQueueStateSQL, 0, now)
		return err
	})
	if err != nil {
		return storageError("save queue", fmt.Sprintf("%d entries", len(entries)), err)
	}
	return nil
}

// LoadQueue returns the persisted queue and position. A store that never saved
// a queue yields an empty state.
func (s *Store) LoadQueue(ctx context.Context) (QueueState, error) {
	ctx = ensureContext(ctx)
	var (
		state      QueueState
		updatedRaw string
	)
	err := s.db.QueryRowContext(ctx, "SELECT current_index, last_updated FROM queue_state WHERE id = 1").Scan(&state.CurrentIndex, &updatedRaw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return QueueState{}, nil
	case err != nil:
		return QueueState{}, storageError("load queue", "state", err)
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		state.LastUpdated = updated
	}

	rows, err := s.db.QueryContext(ctx, "SELECT filepath FROM queue_entries ORDER BY position")
	if err != nil {
		return QueueState{}, storageError("load queue", "entries", err)
	}
	defer rows.Close()
	for rows.Next() {
		var entry string
		if err := rows.Scan(&entry); err != nil {
			return QueueState{}, storageError("load queue", "scan entry", err)
		}
		state.Entries = append(state.Entries, entry)
	}
	if err := rows.Err(); err != nil {
		return QueueState{}, storageError("load queue", "iterate entries", err)
	}
	return state, nil
}

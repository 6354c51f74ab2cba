package records

import (
	"database/sql"
	"errors"
	"time"

	"triage/internal/media"
)

const fileColumns = "id, filepath, media_type, status, file_size, file_hash, reviewed_at, created_at"

const rejectedColumns = "id, original_path, deleted_path, rejected_at, purged_at"

// timeLayout is fixed-width so stored timestamps sort lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type rowScanner interface{ Scan(dest ...any) error }

func scanFile(scanner rowScanner) (FileRecord, error) {
	var (
		rec         FileRecord
		mediaType   string
		status      string
		fileSize    sql.NullInt64
		fileHash    sql.NullString
		reviewedRaw sql.NullString
		createdRaw  string
	)
	if err := scanner.Scan(&rec.ID, &rec.Filepath, &mediaType, &status, &fileSize, &fileHash, &reviewedRaw, &createdRaw); err != nil {
		return FileRecord{}, err
	}
	rec.MediaType = media.Type(mediaType)
	rec.Status = Status(status)
	rec.FileSize = fileSize.Int64
	rec.FileHash = fileHash.String
	rec.ReviewedAt = parseNullableTime(reviewedRaw)
	if created, err := parseTimeString(createdRaw); err == nil {
		rec.CreatedAt = created
	}
	return rec, nil
}

func scanRejected(scanner rowScanner) (RejectedRecord, error) {
	var (
		rec         RejectedRecord
		rejectedRaw string
		purgedRaw   sql.NullString
	)
	if err := scanner.Scan(&rec.ID, &rec.OriginalPath, &rec.DeletedPath, &rejectedRaw, &purgedRaw); err != nil {
		return RejectedRecord{}, err
	}
	if rejected, err := parseTimeString(rejectedRaw); err == nil {
		rec.RejectedAt = rejected
	}
	rec.PurgedAt = parseNullableTime(purgedRaw)
	return rec, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseNullableTime(raw sql.NullString) *time.Time {
	if !raw.Valid {
		return nil
	}
	t, err := parseTimeString(raw.String)
	if err != nil {
		return nil
	}
	return &t
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

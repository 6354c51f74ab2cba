package api

import (
	"slices"

	"triage/internal/faults"
	"triage/internal/media"
	"triage/internal/mover"
	"triage/internal/records"
)

// FromFileRecord converts a record to its API representation. hostPath is
// included only when it differs from the record's own location.
func FromFileRecord(rec *records.FileRecord, hostPath string) FileItem {
	if rec == nil {
		return FileItem{}
	}
	dto := FileItem{
		ID:        rec.ID,
		Filepath:  rec.Filepath,
		MediaType: string(rec.MediaType),
		Status:    string(rec.Status),
		FileSize:  rec.FileSize,
	}
	if hostPath != "" && hostPath != rec.Filepath {
		dto.HostPath = hostPath
	}
	if rec.ReviewedAt != nil {
		dto.ReviewedAt = rec.ReviewedAt.UTC().Format(dateTimeFormat)
	}
	if !rec.CreatedAt.IsZero() {
		dto.CreatedAt = rec.CreatedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromFileRecords converts a slice of records.
func FromFileRecords(recs []records.FileRecord) []FileItem {
	out := make([]FileItem, 0, len(recs))
	for i := range recs {
		out = append(out, FromFileRecord(&recs[i], ""))
	}
	return out
}

// FromRejectedRecord converts a quarantine record.
func FromRejectedRecord(rec records.RejectedRecord) RejectedItem {
	dto := RejectedItem{
		ID:           rec.ID,
		OriginalPath: rec.OriginalPath,
		DeletedPath:  rec.DeletedPath,
	}
	if !rec.RejectedAt.IsZero() {
		dto.RejectedAt = rec.RejectedAt.UTC().Format(dateTimeFormat)
	}
	if rec.PurgedAt != nil {
		dto.PurgedAt = rec.PurgedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromRejectedRecords converts a slice of quarantine records.
func FromRejectedRecords(recs []records.RejectedRecord) []RejectedItem {
	out := make([]RejectedItem, 0, len(recs))
	for _, rec := range recs {
		out = append(out, FromRejectedRecord(rec))
	}
	return out
}

// FromStats converts aggregate counts.
func FromStats(s records.Stats) Counts {
	return Counts{
		Total:    s.Total,
		Pending:  s.Pending,
		Kept:     s.Kept,
		Rejected: s.Rejected,
		Reviewed: s.Reviewed(),
	}
}

// FromStatsByType builds a stats payload with a deterministic per-type map.
func FromStatsByType(total records.Stats, byType map[media.Type]records.Stats) StatsResponse {
	resp := StatsResponse{Counts: FromStats(total)}
	if len(byType) == 0 {
		return resp
	}
	resp.ByType = make(map[string]Counts, len(byType))
	for kind, st := range byType {
		resp.ByType[string(kind)] = FromStats(st)
	}
	return resp
}

// MediaTypesInOrder returns the keys of byType in display order, followed by
// any unexpected types sorted by name.
func MediaTypesInOrder(byType map[string]Counts) []string {
	out := make([]string, 0, len(byType))
	for _, kind := range media.Types {
		if _, ok := byType[string(kind)]; ok {
			out = append(out, string(kind))
		}
	}
	var extra []string
	for kind := range byType {
		if !slices.Contains(out, kind) {
			extra = append(extra, kind)
		}
	}
	slices.Sort(extra)
	return append(out, extra...)
}

// FromMoveResult converts a move outcome.
func FromMoveResult(res mover.Result) MoveResponse {
	dto := MoveResponse{
		Success: res.Success,
		Path:    res.Path,
	}
	if !res.Success {
		dto.Error = res.Error()
		dto.ErrorKind = string(res.Kind)
		dto.ErrorHint = faults.Hint(res.Kind)
	}
	return dto
}

// FromError converts a failed keep or skip.
func FromError(err error) DecisionResponse {
	if err == nil {
		return DecisionResponse{Success: true}
	}
	return DecisionResponse{
		Error:     err.Error(),
		ErrorKind: string(faults.Classify(err)),
	}
}

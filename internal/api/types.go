package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// FileItem describes one known file.
type FileItem struct {
	ID         int64  `json:"id"`
	Filepath   string `json:"filepath"`
	HostPath   string `json:"hostPath,omitempty"`
	MediaType  string `json:"mediaType"`
	Status     string `json:"status"`
	FileSize   int64  `json:"fileSize"`
	ReviewedAt string `json:"reviewedAt,omitempty"`
	CreatedAt  string `json:"createdAt,omitempty"`
}

// RejectedItem describes one quarantine move.
type RejectedItem struct {
	ID           int64  `json:"id"`
	OriginalPath string `json:"originalPath"`
	DeletedPath  string `json:"deletedPath"`
	RejectedAt   string `json:"rejectedAt,omitempty"`
	PurgedAt     string `json:"purgedAt,omitempty"`
}

// Counts mirrors records.Stats.
type Counts struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Kept     int `json:"kept"`
	Rejected int `json:"rejected"`
	Reviewed int `json:"reviewed"`
}

// StatsResponse wraps totals and the per-type breakdown.
type StatsResponse struct {
	Counts Counts            `json:"counts"`
	ByType map[string]Counts `json:"byType,omitempty"`
}

// ScanResponse reports a queue build.
type ScanResponse struct {
	Count           int      `json:"count"`
	Scanned         int      `json:"scanned"`
	AlreadyReviewed int      `json:"alreadyReviewed"`
	Carried         int      `json:"carried,omitempty"`
	SkippedRoots    []string `json:"skippedRoots,omitempty"`
	ElapsedMillis   int64    `json:"elapsedMs"`
}

// NextResponse carries the next file, or nil when the queue is empty.
type NextResponse struct {
	File *FileItem `json:"file"`
}

// MoveResponse reports a reject, restore or purge.
type MoveResponse struct {
	Success   bool   `json:"success"`
	Path      string `json:"path,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"errorKind,omitempty"`
	ErrorHint string `json:"errorHint,omitempty"`
}

// DecisionResponse reports a keep or skip.
type DecisionResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"errorKind,omitempty"`
}

// PathRequest names a single file.
type PathRequest struct {
	Path string `json:"path"`
}

// RestoreRequest names a quarantined file and its original location.
type RestoreRequest struct {
	OriginalPath string `json:"originalPath"`
	DeletedPath  string `json:"deletedPath"`
}

// FileListResponse wraps a collection of files.
type FileListResponse struct {
	Items []FileItem `json:"items"`
}

// RejectedListResponse wraps a collection of quarantine records.
type RejectedListResponse struct {
	Items []RejectedItem `json:"items"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error     string `json:"error"`
	ErrorKind string `json:"errorKind,omitempty"`
}

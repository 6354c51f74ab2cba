package mover

import (
	"triage/internal/faults"
)

// Result reports the outcome of one move operation.
type Result struct {
	Success bool
	Kind    faults.Kind
	Err     error
	// Path is the location of the file after the operation: the quarantine
	// location for a reject, the restored location for a restore, and the
	// removed location for a permanent delete.
	Path string
}

// Error returns the failure message, or "" on success.
func (r Result) Error() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

func succeeded(path string) Result {
	return Result{Success: true, Path: path}
}

func failed(operation, message string, err error) Result {
	kind := faults.Classify(err)
	if kind == faults.KindNone {
		kind = faults.KindUnknown
	}
	return failedAs(kind, operation, message, err)
}

func failedAs(kind faults.Kind, operation, message string, err error) Result {
	return Result{
		Kind: kind,
		Err:  faults.Wrap(faults.Marker(kind), "mover", operation, message, err),
	}
}

package faults

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"golang.org/x/sys/unix"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrBusy             = errors.New("busy")
	ErrNoSpace          = errors.New("no space left")
	ErrValidation       = errors.New("validation error")
	ErrStorage          = errors.New("storage error")
	ErrUnknown          = errors.New("unknown failure")
)

// Kind is the coarse classification reported with every move result.
type Kind string

const (
	KindNone             Kind = ""
	KindNotFound         Kind = "not_found"
	KindPermissionDenied Kind = "permission_denied"
	KindBusy             Kind = "busy"
	KindNoSpace          Kind = "no_space"
	KindValidation       Kind = "validation"
	KindStorage          Kind = "storage"
	KindUnknown          Kind = "unknown"
)

// Wrap builds an error message that includes component context while tagging
// it with marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrUnknown
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classify maps err to a Kind. Sentinel markers win over errno values so an
// explicitly tagged failure keeps its classification.
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}
	switch {
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrStorage):
		return KindStorage
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrPermissionDenied):
		return KindPermissionDenied
	case errors.Is(err, ErrNoSpace):
		return KindNoSpace
	case errors.Is(err, ErrBusy):
		return KindBusy
	case errors.Is(err, ErrUnknown):
		return KindUnknown
	}
	return classifyErrno(err)
}

func classifyErrno(err error) Kind {
	var errno unix.Errno
	if errors.As(err, &errno) {
		switch errno {
		case unix.ENOENT, unix.ENOTDIR:
			return KindNotFound
		case unix.EACCES, unix.EPERM, unix.EROFS:
			return KindPermissionDenied
		case unix.ENOSPC, unix.EDQUOT:
			return KindNoSpace
		case unix.EBUSY, unix.ETXTBSY, unix.EAGAIN:
			return KindBusy
		}
	}
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return KindNotFound
	case errors.Is(err, fs.ErrPermission):
		return KindPermissionDenied
	}
	return KindUnknown
}

// Marker returns the sentinel error associated with kind.
func Marker(kind Kind) error {
	switch kind {
	case KindNotFound:
		return ErrNotFound
	case KindPermissionDenied:
		return ErrPermissionDenied
	case KindBusy:
		return ErrBusy
	case KindNoSpace:
		return ErrNoSpace
	case KindValidation:
		return ErrValidation
	case KindStorage:
		return ErrStorage
	case KindNone:
		return nil
	default:
		return ErrUnknown
	}
}

// Hint returns a short remediation string for kind.
func Hint(kind Kind) string {
	switch kind {
	case KindNotFound:
		return "the file was moved or deleted outside triage; rescan"
	case KindPermissionDenied:
		return "check file permissions or close the program holding the file"
	case KindBusy:
		return "the file is in use; retry in a moment"
	case KindNoSpace:
		return "free space on the quarantine volume"
	case KindValidation:
		return "check scan.quarantine_dir and the requested path"
	case KindStorage:
		return "check the state database and disk health"
	case KindNone:
		return ""
	default:
		return "check logs for details"
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "operation failed"
	}
	return strings.Join(parts, ": ")
}

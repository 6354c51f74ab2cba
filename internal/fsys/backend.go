package fsys

import (
	"context"
	"errors"
	"io/fs"
	"time"
)

// Entry describes one file or directory yielded by a backend.
type Entry struct {
	// Path is the backend location: an absolute path for PathBackend or a
	// root-relative token for RootBackend.
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
	IsDir   bool
	Regular bool
	// Depth is 0 for the walked root, 1 for its direct children, and so on.
	Depth int
}

// WalkFunc is called for every entry under a root. Returning fs.SkipDir from a
// directory entry prunes it. A non-nil err reports a failure reading entry;
// returning nil continues with the next sibling.
type WalkFunc func(entry Entry, err error) error

// Backend is the capability surface shared by the scanner and move engine.
type Backend interface {
	// Name identifies the backend in logs.
	Name() string
	// Enumerate walks root depth-first in lexical order.
	Enumerate(ctx context.Context, root string, fn WalkFunc) error
	// ReadBytes returns up to limit bytes from the start of the file. A limit
	// of zero or less reads the whole file.
	ReadBytes(path string, limit int64) ([]byte, error)
	// Move renames src to dst. The destination must not exist.
	Move(src, dst string) error
	// Remove unlinks a file.
	Remove(path string) error
	// CreateSubfolder creates parent/name (and any missing parents) and
	// returns its location.
	CreateSubfolder(parent, name string) (string, error)
	// Stat describes a single location.
	Stat(path string) (Entry, error)
	// Join and Split compose locations using the backend's separator rules.
	Join(elem ...string) string
	Split(path string) (dir, file string)
	// Locate converts a host path supplied by a user into a backend location.
	Locate(hostPath string) (string, error)
}

// Copier is implemented by backends that can relocate a file across volumes
// when a rename is not possible.
type Copier interface {
	// CopyVerified copies src to dst and verifies the copy before returning.
	CopyVerified(src, dst string) error
	// FreeSpace reports the bytes available to unprivileged writers on the
	// volume holding path.
	FreeSpace(path string) (uint64, error)
}

// ErrDestinationExists is returned by Move when dst is already taken.
var ErrDestinationExists = errors.New("destination exists")

// Exists reports whether path exists on b. Errors other than not-exist are
// reported as existing so callers never overwrite something they could not
// inspect.
func Exists(b Backend, path string) bool {
	_, err := b.Stat(path)
	return err == nil || !errors.Is(err, fs.ErrNotExist)
}

func entryFromInfo(path string, info fs.FileInfo, depth int) Entry {
	return Entry{
		Path:    path,
		Name:    info.Name(),
		Size:    info.Size(),
		ModTime: info.ModTime(),
		IsDir:   info.IsDir(),
		Regular: info.Mode().IsRegular(),
		Depth:   depth,
	}
}

package fsys

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"triage/internal/fileutil"
)

// PathBackend operates directly on absolute host paths.
type PathBackend struct{}

// NewPathBackend returns a backend over the host filesystem.
func NewPathBackend() *PathBackend {
	return &PathBackend{}
}

func (*PathBackend) Name() string { return "path" }

func (b *PathBackend) Enumerate(ctx context.Context, root string, fn WalkFunc) error {
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return &fs.PathError{Op: "enumerate", Path: root, Err: unix.ENOTDIR}
	}

	return filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		depth := pathDepth(root, p)
		if walkErr != nil {
			return fn(Entry{Path: p, Name: filepath.Base(p), IsDir: d != nil && d.IsDir(), Depth: depth}, walkErr)
		}
		entry := Entry{Path: p, Name: d.Name(), IsDir: d.IsDir(), Depth: depth}
		if d.Type().IsRegular() {
			info, err := d.Info()
			if err != nil {
				return fn(entry, err)
			}
			entry = entryFromInfo(p, info, depth)
		}
		return fn(entry, nil)
	})
}

func pathDepth(root, p string) int {
	rel, err := filepath.Rel(root, p)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}

func (b *PathBackend) ReadBytes(path string, limit int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var r io.Reader = f
	if limit > 0 {
		r = io.LimitReader(f, limit)
	}
	return io.ReadAll(r)
}

func (b *PathBackend) Move(src, dst string) error {
	return renameNoReplace(src, dst)
}

func (b *PathBackend) Remove(path string) error {
	return os.Remove(path)
}

func (b *PathBackend) CreateSubfolder(parent, name string) (string, error) {
	dir := filepath.Join(parent, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

func (b *PathBackend) Stat(path string) (Entry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Entry{}, err
	}
	return entryFromInfo(path, info, 0), nil
}

func (b *PathBackend) Join(elem ...string) string { return filepath.Join(elem...) }

func (b *PathBackend) Split(path string) (string, string) {
	return filepath.Dir(path), filepath.Base(path)
}

func (b *PathBackend) Locate(hostPath string) (string, error) {
	if strings.TrimSpace(hostPath) == "" {
		return "", fmt.Errorf("empty path")
	}
	return filepath.Abs(hostPath)
}

// CopyVerified copies src to dst with checksum verification and carries over
// the source modification time.
func (b *PathBackend) CopyVerified(src, dst string) error {
	if _, err := os.Lstat(dst); err == nil {
		return &os.LinkError{Op: "copy", Old: src, New: dst, Err: ErrDestinationExists}
	}
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if err := fileutil.CopyFileVerified(src, dst); err != nil {
		return err
	}
	_ = os.Chmod(dst, info.Mode().Perm())
	_ = os.Chtimes(dst, info.ModTime(), info.ModTime())
	return nil
}

func (b *PathBackend) FreeSpace(path string) (uint64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, err
	}
	return st.Bavail * uint64(st.Bsize), nil
}

package fsys

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// RootBackend confines every operation to one directory. Locations are
// slash-separated paths relative to that directory, with "." naming the
// directory itself; symlinks and ".." cannot escape it.
type RootBackend struct {
	root *os.Root
	dir  string
}

// OpenRoot grants the backend access to dir.
func OpenRoot(dir string) (*RootBackend, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	root, err := os.OpenRoot(abs)
	if err != nil {
		return nil, err
	}
	return &RootBackend{root: root, dir: abs}, nil
}

// Close releases the directory handle.
func (b *RootBackend) Close() error {
	return b.root.Close()
}

// Dir returns the host directory the backend is scoped to.
func (b *RootBackend) Dir() string { return b.dir }

func (*RootBackend) Name() string { return "root" }

func (b *RootBackend) Enumerate(ctx context.Context, root string, fn WalkFunc) error {
	root = cleanToken(root)
	info, err := b.root.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return &fs.PathError{Op: "enumerate", Path: root, Err: fmt.Errorf("not a directory")}
	}

	return fs.WalkDir(b.root.FS(), root, func(p string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		depth := tokenDepth(root, p)
		if walkErr != nil {
			return fn(Entry{Path: p, Name: path.Base(p), IsDir: d != nil && d.IsDir(), Depth: depth}, walkErr)
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

func tokenDepth(root, p string) int {
	if p == root {
		return 0
	}
	rel := p
	if root != "." {
		rel = strings.TrimPrefix(p, root+"/")
	}
	return strings.Count(rel, "/") + 1
}

func (b *RootBackend) ReadBytes(token string, limit int64) ([]byte, error) {
	f, err := b.root.Open(cleanToken(token))
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

func (b *RootBackend) Move(src, dst string) error {
	src, dst = cleanToken(src), cleanToken(dst)
	if _, err := b.root.Lstat(dst); err == nil {
		return &os.LinkError{Op: "rename", Old: src, New: dst, Err: ErrDestinationExists}
	}
	return b.root.Rename(src, dst)
}

func (b *RootBackend) Remove(token string) error {
	return b.root.Remove(cleanToken(token))
}

func (b *RootBackend) CreateSubfolder(parent, name string) (string, error) {
	dir := cleanToken(path.Join(parent, name))
	if err := b.root.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

func (b *RootBackend) Stat(token string) (Entry, error) {
	token = cleanToken(token)
	info, err := b.root.Stat(token)
	if err != nil {
		return Entry{}, err
	}
	entry := entryFromInfo(token, info, 0)
	return entry, nil
}

func (b *RootBackend) Join(elem ...string) string { return cleanToken(path.Join(elem...)) }

func (b *RootBackend) Split(token string) (string, string) {
	token = cleanToken(token)
	return path.Dir(token), path.Base(token)
}

// Locate accepts either a token or a host path inside the granted directory.
func (b *RootBackend) Locate(hostPath string) (string, error) {
	if strings.TrimSpace(hostPath) == "" {
		return "", fmt.Errorf("empty path")
	}
	rel := hostPath
	if filepath.IsAbs(hostPath) {
		var err error
		if rel, err = filepath.Rel(b.dir, hostPath); err != nil {
			return "", err
		}
	}
	rel = path.Clean(filepath.ToSlash(rel))
	if rel == ".." || strings.HasPrefix(rel, "../") || path.IsAbs(rel) {
		return "", fmt.Errorf("%s is outside %s", hostPath, b.dir)
	}
	return cleanToken(rel), nil
}

// HostPath maps a token back to its location on the host.
func (b *RootBackend) HostPath(token string) string {
	return filepath.Join(b.dir, filepath.FromSlash(cleanToken(token)))
}

func cleanToken(token string) string {
	token = strings.TrimPrefix(path.Clean("/"+token), "/")
	if token == "" {
		return "."
	}
	return token
}

// Package fileutil holds the cross-volume copy used when a rename into
// quarantine cannot be performed atomically.
package fileutil

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrVerification reports a copy whose size or checksum did not match the source.
var ErrVerification = errors.New("copy verification failed")

// CopyFileVerified streams src into a temporary sibling of dst, checks size
// and SHA-256 against the source, syncs, then renames it into place. On any
// failure dst is left absent and the temporary file removed; src is never
// modified.
func CopyFileVerified(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp := dst + ".partial"
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, srcInfo.Mode().Perm()|0o200)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = out.Close()
			_ = os.Remove(tmp)
		}
	}()

	srcHasher := sha256.New()
	dstHasher := sha256.New()
	written, err := io.Copy(io.MultiWriter(out, dstHasher), io.TeeReader(in, srcHasher))
	if err != nil {
		return err
	}
	if written != srcInfo.Size() {
		return fmt.Errorf("%w: source %d bytes, copied %d bytes", ErrVerification, srcInfo.Size(), written)
	}
	if !bytes.Equal(srcHasher.Sum(nil), dstHasher.Sum(nil)) {
		return fmt.Errorf("%w: checksum mismatch", ErrVerification)
	}
	if err := out.Sync(); err != nil {
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		return fmt.Errorf("rename %s into place: %w", tmp, err)
	}
	committed = true
	return nil
}

// SameContent reports whether two files have identical size and SHA-256.
func SameContent(a, b string) (bool, error) {
	sumA, sizeA, err := digest(a)
	if err != nil {
		return false, err
	}
	sumB, sizeB, err := digest(b)
	if err != nil {
		return false, err
	}
	return sizeA == sizeB && bytes.Equal(sumA, sumB), nil
}

func digest(path string) ([]byte, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()
	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return nil, 0, err
	}
	return h.Sum(nil), n, nil
}

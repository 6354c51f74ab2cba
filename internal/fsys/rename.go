package fsys

import "os"

func checkedRename(src, dst string) error {
	if _, err := os.Lstat(dst); err == nil {
		return &os.LinkError{Op: "rename", Old: src, New: dst, Err: ErrDestinationExists}
	}
	return os.Rename(src, dst)
}

//go:build !linux

package fsys

func renameNoReplace(src, dst string) error {
	return checkedRename(src, dst)
}

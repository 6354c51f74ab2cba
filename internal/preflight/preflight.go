package preflight

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"triage/internal/config"
)

// Result reports the outcome of a single preflight check. Warn marks a
// passing check whose detail the user should still read.
type Result struct {
	Name   string
	Passed bool
	Warn   bool
	Detail string
}

// RunAll executes every applicable check for cfg.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir, unix.R_OK|unix.W_OK|unix.X_OK))
	for _, root := range cfg.Scan.Paths {
		results = append(results, CheckDirectoryAccess("Scan root", root, unix.R_OK|unix.X_OK))
	}

	quarantine := cfg.Scan.QuarantineDir
	if cfg.UsesRootBackend() && len(cfg.Scan.Paths) == 1 {
		quarantine = filepath.Join(cfg.Scan.Paths[0], filepath.FromSlash(cfg.Scan.QuarantineSubfolder))
	}
	results = append(results, CheckQuarantine(quarantine))
	if !cfg.UsesRootBackend() {
		for _, root := range cfg.Scan.Paths {
			results = append(results, CheckSameVolume(root, quarantine))
		}
	}
	return results
}

// CheckDirectoryAccess verifies that path is a directory granting mode
// (a unix.Access mask).
func CheckDirectoryAccess(name, path string, mode uint32) Result {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, mode); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s ok)", path, accessLabel(mode))}
}

// CheckQuarantine verifies that the quarantine folder is writable, or that
// it can be created when it does not exist yet.
func CheckQuarantine(path string) Result {
	const name = "Quarantine"
	if path == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		parent := nearestExisting(filepath.Dir(path))
		res := CheckDirectoryAccess(name, parent, unix.W_OK|unix.X_OK)
		if res.Passed {
			res.Detail = fmt.Sprintf("%s (will be created under %s)", path, parent)
		}
		return res
	}
	return CheckDirectoryAccess(name, path, unix.R_OK|unix.W_OK|unix.X_OK)
}

// CheckSameVolume reports whether root and the quarantine folder share a
// filesystem. Rejects across volumes fall back to a verified copy, which is
// slower and needs free space, so a mismatch is a warning rather than a
// failure.
func CheckSameVolume(root, quarantine string) Result {
	name := "Volume " + root
	rootDev, err := deviceOf(root)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("stat %s: %v", root, err)}
	}
	quarantineDev, err := deviceOf(nearestExisting(quarantine))
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("stat %s: %v", quarantine, err)}
	}
	if rootDev != quarantineDev {
		return Result{Name: name, Passed: true, Warn: true, Detail: "quarantine is on another volume; rejects will copy then delete"}
	}
	return Result{Name: name, Passed: true, Detail: "same volume as quarantine"}
}

func deviceOf(path string) (uint64, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return 0, err
	}
	return uint64(st.Dev), nil
}

// nearestExisting walks up from path to the first ancestor that exists.
func nearestExisting(path string) string {
	for {
		if _, err := os.Stat(path); err == nil {
			return path
		}
		parent := filepath.Dir(path)
		if parent == path {
			return path
		}
		path = parent
	}
}

func accessLabel(mode uint32) string {
	switch {
	case mode&unix.W_OK != 0 && mode&unix.R_OK != 0:
		return "read/write"
	case mode&unix.W_OK != 0:
		return "write"
	default:
		return "read"
	}
}

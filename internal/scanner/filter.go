package scanner

import (
	"strings"

	"golang.org/x/text/cases"

	"triage/internal/config"
)

// Filter holds the size and visibility rules applied to every entry.
type Filter struct {
	MinSize       int64
	MaxSize       int64
	ExcludeHidden bool
	ExcludeSystem bool
}

// FilterFromConfig copies the configured filter section.
func FilterFromConfig(f config.Filters) Filter {
	return Filter{
		MinSize:       f.MinSize,
		MaxSize:       f.MaxSize,
		ExcludeHidden: f.ExcludeHidden,
		ExcludeSystem: f.ExcludeSystem,
	}
}

var systemFiles = map[string]struct{}{
	"thumbs.db":   {},
	"desktop.ini": {},
	".ds_store":   {},
	"ehthumbs.db": {},
	"icon\r":      {},
}

var systemDirs = map[string]struct{}{
	"$recycle.bin":              {},
	"system volume information": {},
	".spotlight-v100":           {},
	".fseventsd":                {},
	"node_modules":              {},
}

// AllowsSize reports whether size is within [MinSize, MaxSize]. A MaxSize of
// zero means no upper bound.
func (f Filter) AllowsSize(size int64) bool {
	if size < f.MinSize {
		return false
	}
	if f.MaxSize > 0 && size > f.MaxSize {
		return false
	}
	return true
}

// AllowsFile reports whether a regular file with this base name and size
// passes the filter.
func (f Filter) AllowsFile(name string, size int64) bool {
	if f.ExcludeHidden && isHidden(name) {
		return false
	}
	if f.ExcludeSystem {
		if _, ok := systemFiles[fold(name)]; ok {
			return false
		}
	}
	return f.AllowsSize(size)
}

// AllowsDir reports whether a directory should be descended into.
func (f Filter) AllowsDir(name string) bool {
	if f.ExcludeHidden && isHidden(name) {
		return false
	}
	if f.ExcludeSystem {
		key := fold(name)
		if _, ok := systemDirs[key]; ok {
			return false
		}
		if strings.HasPrefix(key, ".trash") {
			return false
		}
	}
	return true
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

func fold(name string) string {
	return cases.Fold().String(name)
}

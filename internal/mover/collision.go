package mover

import (
	"strings"
	"time"

	"triage/internal/media"
)

const (
	rejectStampLayout  = "2006-01-02_15-04-05"
	restoreStampPrefix = "restored_"
)

// withSuffix inserts "_"+suffix before the extension of name.
func withSuffix(name, suffix string) string {
	ext := media.Extension(name)
	stem := strings.TrimSuffix(name, ext)
	return stem + "_" + suffix + ext
}

func rejectName(name string, now time.Time) string {
	return withSuffix(name, now.UTC().Format(rejectStampLayout))
}

func restoreName(name string, now time.Time) string {
	return withSuffix(name, restoreStampPrefix+now.UTC().Format(rejectStampLayout))
}

package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"triage/internal/api"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

func isTerminal(stream any) bool {
	file, ok := stream.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func colorize(s, color string, enabled bool) string {
	if !enabled || color == "" {
		return s
	}
	return color + s + ansiReset
}

func statusColor(status string) string {
	switch status {
	case "kept":
		return ansiGreen
	case "rejected":
		return ansiRed
	case "pending":
		return ansiYellow
	default:
		return ""
	}
}

func formatSize(size int64) string {
	if size < 0 {
		return "-"
	}
	return humanize.IBytes(uint64(size))
}

// formatWhen renders an API timestamp as a relative time, falling back to
// the raw value when it does not parse.
func formatWhen(raw string) string {
	if raw == "" {
		return "-"
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return raw
	}
	return humanize.Time(t)
}

func printFile(out io.Writer, item api.FileItem, color bool) {
	path := item.Filepath
	if item.HostPath != "" {
		path = item.HostPath
	}
	fmt.Fprintln(out, colorize(path, ansiBlue, color))
	fmt.Fprintf(out, "  type:   %s\n", item.MediaType)
	fmt.Fprintf(out, "  size:   %s\n", formatSize(item.FileSize))
	fmt.Fprintf(out, "  status: %s\n", colorize(item.Status, statusColor(item.Status), color))
}

func printMove(out io.Writer, verb string, resp api.MoveResponse) {
	if resp.Success {
		fmt.Fprintf(out, "%s -> %s\n", verb, resp.Path)
		return
	}
	fmt.Fprintf(out, "%s failed (%s): %s\n", verb, resp.ErrorKind, resp.Error)
	if resp.ErrorHint != "" {
		fmt.Fprintf(out, "  hint: %s\n", resp.ErrorHint)
	}
}

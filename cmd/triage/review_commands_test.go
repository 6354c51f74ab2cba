package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"triage/internal/api"
)

func TestScanNextKeepStats(t *testing.T) {
	env := setupCLITestEnv(t, "a.jpg", "notes.txt")

	out := mustRunCLI(t, env, "scan")
	requireContains(t, out, "Queued 2 files for review (2 scanned, 0 already reviewed)")

	var next api.NextResponse
	decodeJSON(t, mustRunCLI(t, env, "--json", "next"), &next)
	if next.File == nil || next.File.Filepath != env.path("a.jpg") {
		t.Fatalf("next = %+v", next.File)
	}

	out = mustRunCLI(t, env, "keep", env.path("a.jpg"))
	requireContains(t, out, "Kept "+env.path("a.jpg"))

	out = mustRunCLI(t, env, "next")
	requireContains(t, out, env.path("notes.txt"))
	requireContains(t, out, "type:   document")

	var stats api.StatsResponse
	decodeJSON(t, mustRunCLI(t, env, "--json", "stats"), &stats)
	if stats.Counts.Kept != 1 || stats.Counts.Pending != 1 || stats.ByType["image"].Kept != 1 {
		t.Fatalf("stats = %+v", stats)
	}

	out = mustRunCLI(t, env, "stats")
	requireContains(t, out, "image")
	requireContains(t, out, "total")
	requireContains(t, out, "50%")

	out = mustRunCLI(t, env, "pending")
	requireContains(t, out, env.path("notes.txt"))
	if strings.Contains(out, env.path("a.jpg")) {
		t.Fatalf("kept file listed as pending:\n%s", out)
	}

	var kept api.FileListResponse
	decodeJSON(t, mustRunCLI(t, env, "--json", "pending", "--status", "kept"), &kept)
	if len(kept.Items) != 1 || kept.Items[0].Filepath != env.path("a.jpg") {
		t.Fatalf("kept files = %+v", kept.Items)
	}
	requireContains(t, mustRunCLI(t, env, "pending", "--status", "missing"), "No missing files")
	if _, _, err := runCLI(t, env, "", "pending", "--status", "archived"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestScanResumeCarriesQueue(t *testing.T) {
	env := setupCLITestEnv(t, "a.jpg", "b.jpg")
	mustRunCLI(t, env, "scan")
	mustRunCLI(t, env, "keep", env.path("a.jpg"))
	testWrite(t, env.path("c.jpg"))

	var scan api.ScanResponse
	decodeJSON(t, mustRunCLI(t, env, "--json", "scan", "--resume"), &scan)
	if scan.Count != 2 || scan.Carried != 1 || scan.AlreadyReviewed != 1 {
		t.Fatalf("resume scan = %+v", scan)
	}

	var next api.NextResponse
	decodeJSON(t, mustRunCLI(t, env, "--json", "next"), &next)
	if next.File == nil || next.File.Filepath != env.path("b.jpg") {
		t.Fatalf("carried entry should come first, got %+v", next.File)
	}
}

func TestKeepReportsFailures(t *testing.T) {
	env := setupCLITestEnv(t, "a.jpg")
	out, _, err := runCLI(t, env, "", "keep", env.path("a.jpg"), env.path("ghost.jpg"))
	if err == nil {
		t.Fatal("expected an error for the missing file")
	}
	requireContains(t, out, "Kept "+env.path("a.jpg"))
	requireContains(t, out, env.path("ghost.jpg")+":")
}

func TestRejectRestorePurge(t *testing.T) {
	env := setupCLITestEnv(t, "a.jpg")
	original := env.path("a.jpg")
	mustRunCLI(t, env, "scan")

	out := mustRunCLI(t, env, "reject", original)
	quarantined := filepath.Join(env.quarantine, "a.jpg")
	requireContains(t, out, "Rejected "+original+" -> "+quarantined)
	if _, err := os.Stat(original); !os.IsNotExist(err) {
		t.Fatal("rejected file still at its original location")
	}

	var list api.RejectedListResponse
	decodeJSON(t, mustRunCLI(t, env, "--json", "rejected", "list"), &list)
	if len(list.Items) != 1 || list.Items[0].DeletedPath != quarantined {
		t.Fatalf("rejected list = %+v", list.Items)
	}

	out = mustRunCLI(t, env, "rejected", "export")
	if want := original + " -> " + quarantined + "\n"; out != want {
		t.Fatalf("export = %q, want %q", out, want)
	}
	exportFile := filepath.Join(t.TempDir(), "rejected.txt")
	out = mustRunCLI(t, env, "rejected", "export", "--output", exportFile)
	requireContains(t, out, "Exported 1 records")

	out = mustRunCLI(t, env, "rejected", "restore", quarantined)
	requireContains(t, out, "Restored -> "+original)
	if _, err := os.Stat(original); err != nil {
		t.Fatalf("restored file missing: %v", err)
	}

	mustRunCLI(t, env, "reject", original)
	if _, _, err := runCLI(t, env, "", "rejected", "purge", quarantined); err == nil {
		t.Fatal("expected purge without --yes to be refused")
	}
	if _, err := os.Stat(quarantined); err != nil {
		t.Fatalf("refused purge removed the file: %v", err)
	}
	mustRunCLI(t, env, "rejected", "purge", "--yes", quarantined)
	if _, err := os.Stat(quarantined); !os.IsNotExist(err) {
		t.Fatal("purged file still present")
	}

	out = mustRunCLI(t, env, "rejected", "list")
	requireContains(t, out, "Quarantine is empty")

	var history api.RejectedListResponse
	decodeJSON(t, mustRunCLI(t, env, "--json", "rejected", "list", "--all"), &history)
	if len(history.Items) != 1 || history.Items[0].PurgedAt == "" {
		t.Fatalf("history = %+v", history.Items)
	}

	if _, _, err := runCLI(t, env, "", "rejected", "restore", quarantined); err == nil {
		t.Fatal("expected restore of a purged file to fail")
	}
}

func TestReviewLoop(t *testing.T) {
	env := setupCLITestEnv(t, "a.jpg", "b.jpg", "c.jpg")

	out, _, err := runCLI(t, env, "k\nbogus\nr\ns\n", "review", "--scan")
	if err != nil {
		t.Fatalf("review: %v\n%s", err, out)
	}
	requireContains(t, out, `Unknown choice "bogus"`)
	requireContains(t, out, "Nothing left to review")
	requireContains(t, out, "Session: 1 kept, 1 rejected, 1 skipped")

	var stats api.StatsResponse
	decodeJSON(t, mustRunCLI(t, env, "--json", "stats"), &stats)
	if stats.Counts.Kept != 1 || stats.Counts.Rejected != 1 || stats.Counts.Pending != 1 {
		t.Fatalf("stats after review = %+v", stats.Counts)
	}

	out, _, err = runCLI(t, env, "q\n", "review")
	if err != nil {
		t.Fatalf("second review: %v", err)
	}
	requireContains(t, out, env.path("c.jpg"))
	requireContains(t, out, "Session: 0 kept, 0 rejected, 0 skipped")
}

func TestReviewStopsAtEndOfInput(t *testing.T) {
	env := setupCLITestEnv(t, "a.jpg", "b.jpg")
	out, _, err := runCLI(t, env, "k", "review", "--scan")
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	requireContains(t, out, "Session: 1 kept, 0 rejected, 0 skipped")
	if _, _, err := runCLI(t, env, "", "review", "--scan", "--resume"); err == nil {
		t.Fatal("expected --scan with --resume to be refused")
	}
}

func TestNextOnEmptyQueue(t *testing.T) {
	env := setupCLITestEnv(t)
	out := mustRunCLI(t, env, "next")
	requireContains(t, out, "Nothing left to review")

	out = mustRunCLI(t, env, "--json", "next")
	requireContains(t, out, `"file": null`)
}

func testWrite(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(filepath.Base(path)), 0o644); err != nil {
		t.Fatal(err)
	}
}

package session

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"triage/internal/config"
	"triage/internal/faults"
	"triage/internal/logging"
	"triage/internal/media"
	"triage/internal/records"
	"triage/internal/testsupport"
)

func clock() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }

func open(t *testing.T, cfg *config.Config, store *records.Store) *Session {
	t.Helper()
	sess, err := New(cfg, store, logging.NewNop(), WithClock(clock), WithShuffle(func([]string) {}))
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	t.Cleanup(func() { _ = sess.Close() })
	return sess
}

func seed(t *testing.T, root string, names ...string) []string {
	t.Helper()
	out := make([]string, 0, len(names))
	for _, name := range names {
		p := filepath.Join(root, filepath.FromSlash(name))
		testsupport.WriteText(t, p, "data:"+name)
		out = append(out, p)
	}
	return out
}

func TestFirstRunScenario(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	seed(t, testsupport.MediaRoot(cfg), "a.jpg", "b.png", "c.pdf", "d.mp4", "e.mp3", "notes.xyz")
	sess := open(t, cfg, store)
	ctx := context.Background()

	summary, err := sess.InitializeScan(ctx)
	if err != nil {
		t.Fatalf("InitializeScan: %v", err)
	}
	if summary.Count != 5 {
		t.Fatalf("count = %d, want 5", summary.Count)
	}
	stats, err := sess.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats != (records.Stats{Total: 5, Pending: 5}) {
		t.Fatalf("stats = %+v", stats)
	}
	byType, err := sess.StatsByType(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if byType[media.Image].Total != 2 || byType[media.Audio].Total != 1 {
		t.Fatalf("by type = %+v", byType)
	}
}

func TestReviewLoop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	paths := seed(t, testsupport.MediaRoot(cfg), "a.jpg", "b.jpg", "c.jpg")
	sess := open(t, cfg, store)
	ctx := context.Background()
	if _, err := sess.InitializeScan(ctx); err != nil {
		t.Fatal(err)
	}

	first, err := sess.NextFile(ctx)
	if err != nil || first == nil || first.Filepath != paths[0] {
		t.Fatalf("first = %+v, %v", first, err)
	}
	if err := sess.Keep(ctx, first.Filepath); err != nil {
		t.Fatalf("Keep: %v", err)
	}

	second, _ := sess.NextFile(ctx)
	if second == nil || second.Filepath != paths[1] {
		t.Fatalf("second = %+v", second)
	}
	res := sess.Reject(ctx, second.Filepath)
	if !res.Success {
		t.Fatalf("Reject: %v", res.Err)
	}

	third, _ := sess.NextFile(ctx)
	if third == nil || third.Filepath != paths[2] {
		t.Fatalf("third = %+v", third)
	}
	if err := sess.Skip(ctx, third.Filepath); err != nil {
		t.Fatal(err)
	}
	if rest, _ := sess.NextFile(ctx); rest != nil {
		t.Fatalf("expected nothing after skip, got %+v", rest)
	}

	stats, _ := sess.Stats(ctx)
	if stats != (records.Stats{Total: 3, Pending: 1, Kept: 1, Rejected: 1}) {
		t.Fatalf("stats = %+v", stats)
	}
	if pending := sess.Pending(ctx); len(pending) != 1 || pending[0].Filepath != paths[2] {
		t.Fatalf("pending = %+v", pending)
	}
}

func TestKeepRejectedIsRefused(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	paths := seed(t, testsupport.MediaRoot(cfg), "a.jpg")
	sess := open(t, cfg, store)
	ctx := context.Background()
	if _, err := sess.InitializeScan(ctx); err != nil {
		t.Fatal(err)
	}
	if res := sess.Reject(ctx, paths[0]); !res.Success {
		t.Fatal(res.Err)
	}
	err := sess.Keep(ctx, paths[0])
	if !errors.Is(err, faults.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if res := sess.Reject(ctx, paths[0]); res.Success || res.Kind != faults.KindValidation {
		t.Fatalf("second reject = %+v", res)
	}
}

func TestDecisionsOnUnscannedFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	sess := open(t, cfg, store)
	ctx := context.Background()
	unscanned := seed(t, testsupport.MediaRoot(cfg), "later/photo.jpg", "later/data.bin")

	if err := sess.Keep(ctx, unscanned[0]); err != nil {
		t.Fatalf("Keep: %v", err)
	}
	testsupport.MustStatus(t, store, unscanned[0], records.StatusKept)

	if err := sess.Keep(ctx, unscanned[1]); !errors.Is(err, faults.ErrValidation) {
		t.Fatalf("expected validation for unclassified file, got %v", err)
	}
	res := sess.Reject(ctx, filepath.Join(testsupport.MediaRoot(cfg), "ghost.jpg"))
	if res.Success || res.Kind != faults.KindNotFound {
		t.Fatalf("reject of missing file = %+v", res)
	}
}

func TestDecisionsOutsideScanRoots(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	sess := open(t, cfg, store)
	ctx := context.Background()
	outside := seed(t, testsupport.BaseDir(cfg), "elsewhere/taxes.pdf")[0]
	sibling := seed(t, testsupport.BaseDir(cfg), "media-old/photo.jpg")[0]

	if err := sess.Keep(ctx, outside); !errors.Is(err, faults.ErrValidation) {
		t.Fatalf("keep outside roots = %v", err)
	}
	if res := sess.Reject(ctx, outside); res.Success || res.Kind != faults.KindValidation {
		t.Fatalf("reject outside roots = %+v", res)
	}
	if res := sess.Reject(ctx, sibling); res.Success || res.Kind != faults.KindValidation {
		t.Fatalf("reject in sibling directory = %+v", res)
	}
	if _, err := sess.Preview(ctx, outside, 16); !errors.Is(err, faults.ErrValidation) {
		t.Fatalf("preview outside roots = %v", err)
	}
	res := sess.Restore(ctx, filepath.Join(testsupport.MediaRoot(cfg), "stolen.pdf"), outside)
	if res.Success || res.Kind != faults.KindValidation {
		t.Fatalf("restore from outside quarantine = %+v", res)
	}
	if !testsupport.Exists(outside) || !testsupport.Exists(sibling) {
		t.Fatal("files outside the roots must not move")
	}
	if rec := store.GetFile(ctx, outside); rec != nil {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestRestoreExportAndPurge(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	paths := seed(t, testsupport.MediaRoot(cfg), "a.jpg", "b.pdf")
	sess := open(t, cfg, store)
	ctx := context.Background()
	if _, err := sess.InitializeScan(ctx); err != nil {
		t.Fatal(err)
	}

	ra := sess.Reject(ctx, paths[0])
	rb := sess.Reject(ctx, paths[1])
	if !ra.Success || !rb.Success {
		t.Fatalf("rejects: %v / %v", ra.Err, rb.Err)
	}

	var buf bytes.Buffer
	n, err := sess.ExportRejected(ctx, &buf)
	if err != nil || n != 2 {
		t.Fatalf("export n=%d err=%v", n, err)
	}
	out := buf.String()
	for _, line := range []string{paths[0] + " -> " + ra.Path, paths[1] + " -> " + rb.Path} {
		if !strings.Contains(out, line+"\n") {
			t.Fatalf("export missing %q in:\n%s", line, out)
		}
	}

	back := sess.Restore(ctx, paths[0], ra.Path)
	if !back.Success || back.Path != paths[0] {
		t.Fatalf("restore = %+v", back)
	}
	testsupport.MustStatus(t, store, paths[0], records.StatusPending)

	if purged := sess.PermanentlyDelete(ctx, rb.Path); !purged.Success {
		t.Fatalf("purge: %v", purged.Err)
	}
	if got := sess.RejectedFiles(ctx); len(got) != 0 {
		t.Fatalf("rejected files = %+v", got)
	}
	if got := sess.RejectionHistory(ctx); len(got) != 1 || !got[0].Purged() {
		t.Fatalf("history = %+v", got)
	}
	if again := sess.Restore(ctx, paths[1], rb.Path); again.Kind != faults.KindNotFound {
		t.Fatalf("restore after purge = %+v", again)
	}
}

func TestResumeAcrossSessions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	paths := seed(t, testsupport.MediaRoot(cfg), "a.jpg", "b.jpg", "c.jpg")
	ctx := context.Background()

	first := open(t, cfg, store)
	if _, err := first.InitializeScan(ctx); err != nil {
		t.Fatal(err)
	}
	rec, _ := first.NextFile(ctx)
	if err := first.Keep(ctx, rec.Filepath); err != nil {
		t.Fatal(err)
	}
	if _, err := first.NextFile(ctx); err != nil {
		t.Fatal(err)
	}
	if first.ID() == "" {
		t.Fatal("expected a session id")
	}

	added := seed(t, testsupport.MediaRoot(cfg), "d.jpg")
	second := open(t, cfg, store)
	if second.ID() == first.ID() {
		t.Fatal("sessions should have distinct ids")
	}
	summary, err := second.Resume(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Carried != 2 || summary.Count != 3 {
		t.Fatalf("summary = %+v", summary)
	}
	var served []string
	for {
		rec, err := second.NextFile(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if rec == nil {
			break
		}
		served = append(served, rec.Filepath)
		if err := second.Keep(ctx, rec.Filepath); err != nil {
			t.Fatal(err)
		}
	}
	want := []string{paths[1], paths[2], added[0]}
	if strings.Join(served, ",") != strings.Join(want, ",") {
		t.Fatalf("served %v, want %v", served, want)
	}
}

func TestLoadWithoutScanServesPersistedQueue(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	paths := seed(t, testsupport.MediaRoot(cfg), "a.jpg", "b.jpg")
	ctx := context.Background()

	if _, err := open(t, cfg, store).InitializeScan(ctx); err != nil {
		t.Fatal(err)
	}
	later := open(t, cfg, store)
	if err := later.Load(ctx); err != nil {
		t.Fatal(err)
	}
	rec, err := later.NextFile(ctx)
	if err != nil || rec == nil || rec.Filepath != paths[0] {
		t.Fatalf("NextFile = %+v, %v", rec, err)
	}
}

func TestPreview(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	paths := seed(t, testsupport.MediaRoot(cfg), "notes.txt")
	sess := open(t, cfg, store)

	data, err := sess.Preview(context.Background(), paths[0], 4)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "data" {
		t.Fatalf("preview = %q", data)
	}
	if _, err := sess.Preview(context.Background(), paths[0]+".gone", 4); !errors.Is(err, faults.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRootBackendSession(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithRootBackend())
	store := testsupport.MustOpenStore(t, cfg)
	root := testsupport.MediaRoot(cfg)
	seed(t, root, "pics/cat.png", "docs/cv.pdf")
	sess := open(t, cfg, store)
	ctx := context.Background()

	summary, err := sess.InitializeScan(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Count != 2 {
		t.Fatalf("count = %d", summary.Count)
	}
	rec, _ := sess.NextFile(ctx)
	if rec == nil || rec.Filepath != "docs/cv.pdf" {
		t.Fatalf("NextFile = %+v", rec)
	}
	if got := sess.HostPath(rec.Filepath); got != filepath.Join(root, "docs", "cv.pdf") {
		t.Fatalf("HostPath = %q", got)
	}

	// Host paths inside the granted directory resolve to tokens.
	res := sess.Reject(ctx, filepath.Join(root, "docs", "cv.pdf"))
	if !res.Success || res.Path != "Media_Cleanup_Deleted/cv.pdf" {
		t.Fatalf("Reject = %+v", res)
	}
	if !testsupport.Exists(filepath.Join(root, "Media_Cleanup_Deleted", "cv.pdf")) {
		t.Fatal("file not quarantined inside the root")
	}

	// A rescan must not pick up the quarantine folder.
	summary, err = sess.InitializeScan(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Count != 1 || summary.AlreadyReviewed != 0 {
		t.Fatalf("rescan summary = %+v", summary)
	}

	if res := sess.Reject(ctx, filepath.Join(testsupport.BaseDir(cfg), "outside.png")); res.Kind != faults.KindValidation {
		t.Fatalf("reject outside root = %+v", res)
	}
}

package mover

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"triage/internal/config"
	"triage/internal/faults"
	"triage/internal/fsys"
	"triage/internal/logging"
	"triage/internal/records"
	"triage/internal/testsupport"
)

var fixedNow = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

type env struct {
	cfg        *config.Config
	store      *records.Store
	root       string
	quarantine string
}

func newEnv(t *testing.T) env {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	return env{
		cfg:        cfg,
		store:      testsupport.MustOpenStore(t, cfg),
		root:       testsupport.MediaRoot(cfg),
		quarantine: cfg.Scan.QuarantineDir,
	}
}

func (e env) engine(backend fsys.Backend, store RecordStore) *Engine {
	if backend == nil {
		backend = fsys.NewPathBackend()
	}
	if store == nil {
		store = e.store
	}
	return NewEngine(backend, store, e.quarantine, logging.NewNop(), WithClock(fixedClock))
}

func (e env) addFile(t *testing.T, rel string) string {
	t.Helper()
	p := filepath.Join(e.root, rel)
	testsupport.WriteText(t, p, "content of "+rel)
	testsupport.AddFile(t, e.store, p, int64(len("content of "+rel)))
	return p
}

// movingBackend lets a test intercept renames.
type movingBackend struct {
	*fsys.PathBackend
	hook func(src, dst string) error
}

func (b *movingBackend) Move(src, dst string) error {
	if b.hook != nil {
		if err := b.hook(src, dst); err != nil {
			return err
		}
	}
	return b.PathBackend.Move(src, dst)
}

// crossDeviceBackend reports every rename as crossing volumes.
type crossDeviceBackend struct {
	*fsys.PathBackend
	free uint64
}

func (b *crossDeviceBackend) Move(src, dst string) error {
	return &os.LinkError{Op: "rename", Old: src, New: dst, Err: unix.EXDEV}
}

func (b *crossDeviceBackend) FreeSpace(string) (uint64, error) { return b.free, nil }

type failingStore struct {
	*records.Store
	failReject  bool
	failRestore bool
	failPurge   bool
}

var errInjected = errors.New("injected store failure")

func (s *failingStore) RecordRejection(ctx context.Context, original, deleted string) (int64, error) {
	if s.failReject {
		return 0, errInjected
	}
	return s.Store.RecordRejection(ctx, original, deleted)
}

func (s *failingStore) RecordRestore(ctx context.Context, id int64, original, restored string) error {
	if s.failRestore {
		return errInjected
	}
	return s.Store.RecordRestore(ctx, id, original, restored)
}

func (s *failingStore) MarkPurged(ctx context.Context, id int64) error {
	if s.failPurge {
		return errInjected
	}
	return s.Store.MarkPurged(ctx, id)
}

func TestRejectMovesFileAndRecords(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.addFile(t, "a.jpg")
	e.addFile(t, "b.jpg")
	e.addFile(t, "c.jpg")

	res := e.engine(nil, nil).Reject(ctx, a)
	if !res.Success {
		t.Fatalf("Reject failed: %v", res.Err)
	}
	if res.Path != filepath.Join(e.quarantine, "a.jpg") {
		t.Fatalf("quarantine path = %q", res.Path)
	}
	if testsupport.Exists(a) || !testsupport.Exists(res.Path) {
		t.Fatal("file was not moved")
	}
	stats, err := e.store.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats != (records.Stats{Total: 3, Pending: 2, Rejected: 1}) {
		t.Fatalf("stats = %+v", stats)
	}
	rejected := e.store.RejectedRecords(ctx)
	if len(rejected) != 1 || rejected[0].OriginalPath != a || rejected[0].DeletedPath != res.Path {
		t.Fatalf("rejected records = %+v", rejected)
	}
}

func TestRejectMissingSource(t *testing.T) {
	e := newEnv(t)
	res := e.engine(nil, nil).Reject(context.Background(), filepath.Join(e.root, "ghost.jpg"))
	if res.Success || res.Kind != faults.KindNotFound {
		t.Fatalf("expected not found, got %+v", res)
	}
	if !errors.Is(res.Err, faults.ErrNotFound) {
		t.Fatalf("expected ErrNotFound marker, got %v", res.Err)
	}
}

func TestRejectWithoutQuarantine(t *testing.T) {
	e := newEnv(t)
	a := e.addFile(t, "a.jpg")
	engine := NewEngine(fsys.NewPathBackend(), e.store, "", logging.NewNop())
	res := engine.Reject(context.Background(), a)
	if res.Success || res.Kind != faults.KindValidation {
		t.Fatalf("expected validation failure, got %+v", res)
	}
	testsupport.MustStatus(t, e.store, a, records.StatusPending)
}

func TestRejectPermissionErrorLeavesStateUntouched(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.addFile(t, "a.jpg")
	backend := &movingBackend{
		PathBackend: fsys.NewPathBackend(),
		hook: func(src, dst string) error {
			return &os.LinkError{Op: "rename", Old: src, New: dst, Err: unix.EACCES}
		},
	}

	res := e.engine(backend, nil).Reject(ctx, a)
	if res.Success || res.Kind != faults.KindPermissionDenied {
		t.Fatalf("expected permission denied, got %+v", res)
	}
	testsupport.MustStatus(t, e.store, a, records.StatusPending)
	if got := e.store.RejectedRecords(ctx); len(got) != 0 {
		t.Fatalf("expected no rejected records, got %+v", got)
	}
	if !testsupport.Exists(a) {
		t.Fatal("source should remain in place")
	}
}

func TestRejectCollisionsNeverOverwrite(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	first := e.addFile(t, "one/photo.jpg")
	second := e.addFile(t, "two/photo.jpg")
	third := e.addFile(t, "three/photo.jpg")
	engine := e.engine(nil, nil)

	r1 := engine.Reject(ctx, first)
	r2 := engine.Reject(ctx, second)
	if !r1.Success || !r2.Success {
		t.Fatalf("rejects failed: %v / %v", r1.Err, r2.Err)
	}
	if r2.Path != filepath.Join(e.quarantine, "photo_2024-05-06_07-08-09.jpg") {
		t.Fatalf("disambiguated path = %q", r2.Path)
	}
	if testsupport.ReadText(t, r1.Path) != "content of one/photo.jpg" ||
		testsupport.ReadText(t, r2.Path) != "content of two/photo.jpg" {
		t.Fatal("quarantined content mixed up")
	}

	// A third collision within the same second is refused, not overwritten.
	r3 := engine.Reject(ctx, third)
	if r3.Success || r3.Kind != faults.KindBusy {
		t.Fatalf("expected busy, got %+v", r3)
	}
	if !testsupport.Exists(third) {
		t.Fatal("third source should be untouched")
	}
	testsupport.MustStatus(t, e.store, third, records.StatusPending)
}

func TestRejectRollsBackWhenRecordFails(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.addFile(t, "a.jpg")
	store := &failingStore{Store: e.store, failReject: true}

	res := e.engine(nil, store).Reject(ctx, a)
	if res.Success || res.Kind != faults.KindStorage {
		t.Fatalf("expected storage failure, got %+v", res)
	}
	if !testsupport.Exists(a) {
		t.Fatal("file should be moved back after a failed record")
	}
	if testsupport.Exists(filepath.Join(e.quarantine, "a.jpg")) {
		t.Fatal("quarantine copy should be gone")
	}
	testsupport.MustStatus(t, e.store, a, records.StatusPending)
}

func TestRestoreRoundTrip(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.addFile(t, "a.jpg")
	engine := e.engine(nil, nil)

	rejected := engine.Reject(ctx, a)
	if !rejected.Success {
		t.Fatal(rejected.Err)
	}
	restored := engine.Restore(ctx, a, rejected.Path)
	if !restored.Success {
		t.Fatalf("Restore failed: %v", restored.Err)
	}
	if restored.Path != a || !testsupport.Exists(a) || testsupport.Exists(rejected.Path) {
		t.Fatalf("unexpected restore result %+v", restored)
	}
	testsupport.MustStatus(t, e.store, a, records.StatusPending)
	if got := e.store.RejectedRecords(ctx); len(got) != 0 {
		t.Fatalf("rejected record should be removed, got %+v", got)
	}
}

func TestRestoreIntoOccupiedLocation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.addFile(t, "a.jpg")
	engine := e.engine(nil, nil)

	rejected := engine.Reject(ctx, a)
	if !rejected.Success {
		t.Fatal(rejected.Err)
	}
	testsupport.WriteText(t, a, "a newer file")

	restored := engine.Restore(ctx, a, rejected.Path)
	if !restored.Success {
		t.Fatalf("Restore failed: %v", restored.Err)
	}
	want := filepath.Join(e.root, "a_restored_2024-05-06_07-08-09.jpg")
	if restored.Path != want {
		t.Fatalf("restored path = %q, want %q", restored.Path, want)
	}
	if testsupport.ReadText(t, a) != "a newer file" {
		t.Fatal("occupying file was overwritten")
	}
	testsupport.MustStatus(t, e.store, a, records.StatusPending)
	testsupport.MustStatus(t, e.store, want, records.StatusPending)
}

func TestRestoreRecreatesMissingDirectory(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.addFile(t, "album/a.jpg")
	engine := e.engine(nil, nil)

	rejected := engine.Reject(ctx, a)
	if !rejected.Success {
		t.Fatal(rejected.Err)
	}
	if err := os.Remove(filepath.Dir(a)); err != nil {
		t.Fatal(err)
	}
	if res := engine.Restore(ctx, a, rejected.Path); !res.Success {
		t.Fatalf("Restore failed: %v", res.Err)
	}
	if !testsupport.Exists(a) {
		t.Fatal("file not restored")
	}
}

func TestRestoreRollsBackWhenRecordFails(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.addFile(t, "a.jpg")
	store := &failingStore{Store: e.store}
	engine := e.engine(nil, store)

	rejected := engine.Reject(ctx, a)
	if !rejected.Success {
		t.Fatal(rejected.Err)
	}
	store.failRestore = true
	res := engine.Restore(ctx, a, rejected.Path)
	if res.Success || res.Kind != faults.KindStorage {
		t.Fatalf("expected storage failure, got %+v", res)
	}
	if testsupport.Exists(a) || !testsupport.Exists(rejected.Path) {
		t.Fatal("file should be back in quarantine")
	}
	testsupport.MustStatus(t, e.store, a, records.StatusRejected)
}

func TestRestoreRejectsMismatchedOriginal(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.addFile(t, "a.jpg")
	engine := e.engine(nil, nil)
	rejected := engine.Reject(ctx, a)
	if !rejected.Success {
		t.Fatal(rejected.Err)
	}
	res := engine.Restore(ctx, filepath.Join(e.root, "other.jpg"), rejected.Path)
	if res.Success || res.Kind != faults.KindValidation {
		t.Fatalf("expected validation failure, got %+v", res)
	}
}

func TestRestoreRequiresRejectionRecord(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	outside := filepath.Join(t.TempDir(), "secret.txt")
	testsupport.WriteText(t, outside, "private")
	target := filepath.Join(e.root, "stolen.txt")

	res := e.engine(nil, nil).Restore(ctx, target, outside)
	if res.Success || res.Kind != faults.KindValidation {
		t.Fatalf("expected validation failure, got %+v", res)
	}
	if !testsupport.Exists(outside) || testsupport.Exists(target) {
		t.Fatal("unrecorded file must not move")
	}
	if rec := e.store.GetFile(ctx, target); rec != nil {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestPermanentlyDelete(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.addFile(t, "a.pdf")
	engine := e.engine(nil, nil)

	rejected := engine.Reject(ctx, a)
	if !rejected.Success {
		t.Fatal(rejected.Err)
	}
	res := engine.PermanentlyDelete(ctx, rejected.Path)
	if !res.Success {
		t.Fatalf("PermanentlyDelete failed: %v", res.Err)
	}
	if testsupport.Exists(rejected.Path) {
		t.Fatal("quarantined file still present")
	}
	history := e.store.RejectionHistory(ctx)
	if len(history) != 1 || !history[0].Purged() {
		t.Fatalf("expected purged audit record, got %+v", history)
	}
	if got := e.store.RejectedRecords(ctx); len(got) != 0 {
		t.Fatalf("purged record should not be restorable, got %+v", got)
	}

	if again := engine.Restore(ctx, a, rejected.Path); again.Success || again.Kind != faults.KindNotFound {
		t.Fatalf("restore after purge = %+v", again)
	}
	if again := engine.PermanentlyDelete(ctx, rejected.Path); again.Success || again.Kind != faults.KindValidation {
		t.Fatalf("second purge = %+v", again)
	}
}

func TestPermanentlyDeleteStoreFailure(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.addFile(t, "a.pdf")
	store := &failingStore{Store: e.store, failPurge: true}
	engine := e.engine(nil, store)

	rejected := engine.Reject(ctx, a)
	if !rejected.Success {
		t.Fatal(rejected.Err)
	}
	res := engine.PermanentlyDelete(ctx, rejected.Path)
	if res.Success || res.Kind != faults.KindStorage || res.Path != rejected.Path {
		t.Fatalf("expected storage failure with path, got %+v", res)
	}
}

func TestRejectAcrossVolumes(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.addFile(t, "a.mp4")
	backend := &crossDeviceBackend{PathBackend: fsys.NewPathBackend(), free: 1 << 30}

	res := e.engine(backend, nil).Reject(ctx, a)
	if !res.Success {
		t.Fatalf("Reject failed: %v", res.Err)
	}
	if testsupport.Exists(a) {
		t.Fatal("source should be removed after a verified copy")
	}
	if testsupport.ReadText(t, res.Path) != "content of a.mp4" {
		t.Fatal("copied content mismatch")
	}
	testsupport.MustStatus(t, e.store, a, records.StatusRejected)
}

func TestRejectAcrossVolumesWithoutSpace(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.addFile(t, "a.mp4")
	backend := &crossDeviceBackend{PathBackend: fsys.NewPathBackend(), free: 1}

	res := e.engine(backend, nil).Reject(ctx, a)
	if res.Success || res.Kind != faults.KindNoSpace {
		t.Fatalf("expected no space, got %+v", res)
	}
	if !testsupport.Exists(a) {
		t.Fatal("source should be untouched")
	}
	testsupport.MustStatus(t, e.store, a, records.StatusPending)
}

func TestRootBackendRejectAndRestore(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	testsupport.WriteText(t, filepath.Join(e.root, "pics", "cat.png"), "meow")
	testsupport.AddFile(t, e.store, "pics/cat.png", 4)

	backend, err := fsys.OpenRoot(e.root)
	if err != nil {
		t.Fatal(err)
	}
	defer backend.Close()
	engine := NewEngine(backend, e.store, "Media_Cleanup_Deleted", logging.NewNop(), WithClock(fixedClock))

	res := engine.Reject(ctx, "pics/cat.png")
	if !res.Success {
		t.Fatalf("Reject failed: %v", res.Err)
	}
	if res.Path != "Media_Cleanup_Deleted/cat.png" {
		t.Fatalf("token = %q", res.Path)
	}
	if !testsupport.Exists(filepath.Join(e.root, "Media_Cleanup_Deleted", "cat.png")) {
		t.Fatal("file not in quarantine subfolder")
	}

	back := engine.Restore(ctx, "pics/cat.png", res.Path)
	if !back.Success || back.Path != "pics/cat.png" {
		t.Fatalf("Restore = %+v", back)
	}
	testsupport.MustStatus(t, e.store, "pics/cat.png", records.StatusPending)
}

func TestWithSuffix(t *testing.T) {
	cases := map[string]string{
		"photo.jpg":      "photo_X.jpg",
		"archive.tar.gz": "archive.tar_X.gz",
		"README":         "README_X",
		".hidden":        ".hidden_X",
	}
	for in, want := range cases {
		if got := withSuffix(in, "X"); got != want {
			t.Errorf("withSuffix(%q) = %q, want %q", in, got, want)
		}
	}
}

package preflight

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/sys/unix"

	"triage/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir, unix.R_OK|unix.W_OK|unix.X_OK)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"), unix.R_OK)
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f, unix.R_OK)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckQuarantine_NotCreatedYet(t *testing.T) {
	target := filepath.Join(t.TempDir(), "deleted", "nested")
	result := CheckQuarantine(target)
	if !result.Passed {
		t.Fatalf("expected pass for creatable quarantine, got: %s", result.Detail)
	}
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Fatal("check must not create the quarantine folder")
	}
}

func TestCheckQuarantine_Unset(t *testing.T) {
	if result := CheckQuarantine(""); result.Passed {
		t.Fatal("expected failure when quarantine is not configured")
	}
}

func TestCheckSameVolume(t *testing.T) {
	base := t.TempDir()
	result := CheckSameVolume(base, filepath.Join(base, "quarantine"))
	if !result.Passed || result.Warn {
		t.Fatalf("expected same-volume pass, got %+v", result)
	}
}

func TestRunAll(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	results := RunAll(cfg)
	if len(results) != 4 {
		t.Fatalf("expected state, root, quarantine and volume checks, got %d", len(results))
	}
	for _, r := range results {
		if !r.Passed {
			t.Fatalf("%s failed: %s", r.Name, r.Detail)
		}
	}

	rootCfg := testsupport.NewConfig(t, testsupport.WithRootBackend())
	if err := rootCfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	results = RunAll(rootCfg)
	if len(results) != 3 {
		t.Fatalf("root backend skips the volume check, got %d results", len(results))
	}
	if want := filepath.Join(testsupport.MediaRoot(rootCfg), rootCfg.Scan.QuarantineSubfolder); !strings.Contains(results[2].Detail, want) {
		t.Fatalf("quarantine detail %q should mention %s", results[2].Detail, want)
	}
}

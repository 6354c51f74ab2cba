package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out := mustRunCLI(t, env, "config", "validate")
	requireContains(t, out, "Config path: "+env.configPath)
	requireContains(t, out, "Quarantine:")
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "config.toml")
	out = mustRunCLI(t, env, "config", "init", "--path", target)
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, env, "", "config", "init", "--path", target); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}
	mustRunCLI(t, env, "config", "init", "--path", target, "--overwrite")
}

func TestConfigValidateReportsMissingRoot(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.RemoveAll(env.root); err != nil {
		t.Fatal(err)
	}
	out, _, err := runCLI(t, env, "", "config", "validate")
	if err == nil {
		t.Fatal("expected validate to fail for a missing scan root")
	}
	requireContains(t, out, "[FAIL]")
}

func TestInvalidConfigIsRejected(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.WriteFile(env.configPath, []byte("[scan]\nbackend = \"tape\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := runCLI(t, env, "", "stats"); err == nil {
		t.Fatal("expected an invalid backend to fail config loading")
	}
}

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"triage/internal/config"
	"triage/internal/session"
	"triage/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	root       string
	quarantine string
}

func setupCLITestEnv(t *testing.T, files ...string) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	t.Setenv("HOME", testsupport.BaseDir(cfg))
	cfg.Logging.Level = "error"

	root := testsupport.MediaRoot(cfg)
	for _, name := range files {
		testsupport.WriteText(t, filepath.Join(root, name), "contents of "+name)
	}

	configPath := filepath.Join(testsupport.BaseDir(cfg), "triage.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		root:       root,
		quarantine: cfg.Scan.QuarantineDir,
	}
}

func (e *cliTestEnv) path(name string) string {
	return filepath.Join(e.root, name)
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

// runCLI executes one invocation with a fixed queue order.
func runCLI(t *testing.T, env *cliTestEnv, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand(session.WithShuffle(func([]string) {}))
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func mustRunCLI(t *testing.T, env *cliTestEnv, args ...string) string {
	t.Helper()
	out, _, err := runCLI(t, env, "", args...)
	if err != nil {
		t.Fatalf("triage %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func decodeJSON(t *testing.T, raw string, v any) {
	t.Helper()
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		t.Fatalf("decode %q: %v", raw, err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains state and log directory configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// Scan contains the roots to walk and where rejected files are quarantined.
type Scan struct {
	Paths               []string `toml:"paths"`
	QuarantineDir       string   `toml:"quarantine_dir"`
	QuarantineSubfolder string   `toml:"quarantine_subfolder"`
	MaxDepth            int      `toml:"max_depth"`
	Backend             string   `toml:"backend"`
	Concurrency         int      `toml:"concurrency"`
}

// FileTypes maps each media category to the extensions that belong to it.
type FileTypes struct {
	Images    []string `toml:"images"`
	Documents []string `toml:"documents"`
	Videos    []string `toml:"videos"`
	Audio     []string `toml:"audio"`
}

// Filters contains the size and visibility rules applied while scanning.
type Filters struct {
	MinSize       int64 `toml:"min_size"`
	MaxSize       int64 `toml:"max_size"`
	ExcludeHidden bool  `toml:"exclude_hidden"`
	ExcludeSystem bool  `toml:"exclude_system"`
}

// Server contains configuration for the local HTTP surface.
type Server struct {
	Bind string `toml:"bind"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for triage.
//
// Configuration sections by subsystem:
//   - Paths: state database and log directories
//   - Scan: scan roots, quarantine location, traversal limits, backend
//   - FileTypes: extension table per media category
//   - Filters: size bounds and hidden/system file exclusion
//   - Server: bind address for `triage serve`
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Scan      Scan      `toml:"scan"`
	FileTypes FileTypes `toml:"file_types"`
	Filters   Filters   `toml:"filters"`
	Server    Server    `toml:"server"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/triage/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and extensions normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("triage.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories. The quarantine
// folder is created lazily by the move engine on first reject.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// StorePath returns the location of the review state database.
func (c *Config) StorePath() string {
	return filepath.Join(c.Paths.StateDir, "triage.db")
}

// LogPath returns the location of the shared log file.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, "triage.log")
}

// UsesRootBackend reports whether scanning and moves go through a single
// capability-scoped directory handle instead of absolute paths.
func (c *Config) UsesRootBackend() bool {
	return c.Scan.Backend == BackendRoot
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

package config

import (
	"fmt"
	"path"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeScan(); err != nil {
		return err
	}
	c.normalizeFileTypes()
	c.normalizeServer()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeScan() error {
	roots := make([]string, 0, len(c.Scan.Paths))
	seen := make(map[string]struct{}, len(c.Scan.Paths))
	for i, raw := range c.Scan.Paths {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		expanded, err := expandPath(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("scan.paths[%d]: %w", i, err)
		}
		if _, dup := seen[expanded]; dup {
			continue
		}
		seen[expanded] = struct{}{}
		roots = append(roots, expanded)
	}
	c.Scan.Paths = roots

	var err error
	c.Scan.QuarantineDir = strings.TrimSpace(c.Scan.QuarantineDir)
	if c.Scan.QuarantineDir, err = expandPath(c.Scan.QuarantineDir); err != nil {
		return fmt.Errorf("scan.quarantine_dir: %w", err)
	}

	sub := strings.Trim(strings.TrimSpace(c.Scan.QuarantineSubfolder), "/")
	if sub == "" {
		sub = defaultQuarantineSubfolder
	}
	c.Scan.QuarantineSubfolder = path.Clean(sub)

	c.Scan.Backend = strings.ToLower(strings.TrimSpace(c.Scan.Backend))
	if c.Scan.Backend == "" {
		c.Scan.Backend = BackendPath
	}
	if c.Scan.Concurrency == 0 {
		c.Scan.Concurrency = defaultScanConcurrency
	}
	return nil
}

func (c *Config) normalizeFileTypes() {
	c.FileTypes.Images = normalizeExtensions(c.FileTypes.Images)
	c.FileTypes.Documents = normalizeExtensions(c.FileTypes.Documents)
	c.FileTypes.Videos = normalizeExtensions(c.FileTypes.Videos)
	c.FileTypes.Audio = normalizeExtensions(c.FileTypes.Audio)
}

// normalizeExtensions lower-cases entries, adds the leading dot, and drops
// blanks and duplicates while keeping the configured order.
func normalizeExtensions(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		ext := strings.ToLower(strings.TrimSpace(value))
		if ext == "" || ext == "." {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if _, dup := seen[ext]; dup {
			continue
		}
		seen[ext] = struct{}{}
		out = append(out, ext)
	}
	return out
}

func (c *Config) normalizeServer() {
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultServerBind
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

package config

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateScan(); err != nil {
		return err
	}
	if err := c.validateFileTypes(); err != nil {
		return err
	}
	if err := c.validateFilters(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateScan() error {
	switch c.Scan.Backend {
	case BackendPath:
		if c.Scan.QuarantineDir == "" {
			return errors.New("scan.quarantine_dir must be set")
		}
	case BackendRoot:
		if len(c.Scan.Paths) != 1 {
			return errors.New("scan.backend \"root\" requires exactly one entry in scan.paths")
		}
		if strings.HasPrefix(c.Scan.QuarantineSubfolder, "..") || path.IsAbs(c.Scan.QuarantineSubfolder) {
			return errors.New("scan.quarantine_subfolder must stay inside the scanned directory")
		}
	default:
		return fmt.Errorf("scan.backend must be %q or %q", BackendPath, BackendRoot)
	}
	if c.Scan.MaxDepth < 0 {
		return errors.New("scan.max_depth must be zero (unbounded) or positive")
	}
	if c.Scan.Concurrency < 1 {
		return errors.New("scan.concurrency must be at least 1")
	}
	return nil
}

func (c *Config) validateFileTypes() error {
	total := len(c.FileTypes.Images) + len(c.FileTypes.Documents) + len(c.FileTypes.Videos) + len(c.FileTypes.Audio)
	if total == 0 {
		return errors.New("file_types must enable at least one extension")
	}
	return nil
}

func (c *Config) validateFilters() error {
	if c.Filters.MinSize < 0 {
		return errors.New("filters.min_size must be zero or positive")
	}
	if c.Filters.MaxSize < 0 {
		return errors.New("filters.max_size must be zero (unbounded) or positive")
	}
	if c.Filters.MaxSize > 0 && c.Filters.MaxSize < c.Filters.MinSize {
		return errors.New("filters.max_size must be greater than or equal to filters.min_size")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be \"console\" or \"json\", got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level)
	}
	return nil
}

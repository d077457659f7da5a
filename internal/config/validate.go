package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

var (
	// ErrMissingTarget reports that no target root was configured.
	ErrMissingTarget = errors.New("paths.target_dir is required")
	// ErrMissingCatalog reports that no catalog database path was configured.
	ErrMissingCatalog = errors.New("paths.catalog_path is required")
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateScan(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = defaultConfigPath
	}
	if strings.TrimSpace(c.Paths.TargetDir) == "" {
		return fmt.Errorf("%w. Pass --target, set %s, or edit %s (create with 'archivist config init')",
			ErrMissingTarget, EnvTarget, defaultPath)
	}
	if strings.TrimSpace(c.Paths.CatalogPath) == "" {
		return fmt.Errorf("%w. Pass --db, set %s, or edit %s (create with 'archivist config init')",
			ErrMissingCatalog, EnvCatalog, defaultPath)
	}
	if c.Paths.SourceDir != "" && c.Paths.SourceDir == c.Paths.TargetDir {
		return errors.New("paths.source_dir must differ from paths.target_dir")
	}
	return nil
}

func (c *Config) validateScan() error {
	for _, pattern := range c.Scan.IgnorePatterns {
		if !doublestar.ValidatePattern(filepath.ToSlash(pattern)) {
			return fmt.Errorf("scan.ignore_patterns: invalid pattern %q", pattern)
		}
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.Workers < 0 {
		return errors.New("workflow.workers must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not recognized", c.Logging.Level)
	}
	return nil
}

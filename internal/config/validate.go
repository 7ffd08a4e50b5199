package config

import (
	"fmt"
	"strings"
)

var validLogFormats = map[string]struct{}{
	"console": {},
	"json":    {},
}

var validLogLevels = map[string]struct{}{
	"debug": {},
	"info":  {},
	"warn":  {},
	"error": {},
}

// Validate checks configuration invariants after normalization.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Paths.WorkspaceDir) == "" {
		return fmt.Errorf("paths.workspace_dir must not be empty")
	}
	if strings.TrimSpace(c.Paths.BlobDir) == "" {
		return fmt.Errorf("paths.blob_dir must not be empty")
	}
	if strings.TrimSpace(c.Storage.DatabasePath) == "" {
		return fmt.Errorf("storage.database_path must not be empty")
	}
	if c.Storage.QuotaMiB < 0 {
		return fmt.Errorf("storage.quota_mib must not be negative")
	}
	if _, ok := validLogFormats[c.Logging.Format]; !ok {
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	if _, ok := validLogLevels[c.Logging.Level]; !ok {
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	if c.Cache.StaleSeconds < c.Cache.GraceSeconds {
		return fmt.Errorf("cache.stale_seconds must be at least cache.grace_seconds")
	}
	return nil
}

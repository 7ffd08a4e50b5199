package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	WorkspaceDir string `toml:"workspace_dir"`
	BlobDir      string `toml:"blob_dir"`
	LogDir       string `toml:"log_dir"`
	ExportDir    string `toml:"export_dir"`
	APIBind      string `toml:"api_bind"`
	APIToken     string `toml:"api_token"`
}

// Storage contains configuration for the persistent asset store.
type Storage struct {
	DatabasePath string `toml:"database_path"`
	QuotaMiB     int64  `toml:"quota_mib"`
}

// Cache contains timing configuration for the stable handle cache.
type Cache struct {
	FreshnessSeconds   int `toml:"freshness_seconds"`
	GraceSeconds       int `toml:"grace_seconds"`
	SweepSeconds       int `toml:"sweep_seconds"`
	StaleSeconds       int `toml:"stale_seconds"`
	ProbeTimeoutMillis int `toml:"probe_timeout_millis"`
	RepairProbeTTLSecs int `toml:"repair_probe_ttl_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for novelkit.
//
// Configuration sections by subsystem:
//   - Paths: workspace layout and API bind address
//   - Storage: asset database location and quota
//   - Cache: handle cache freshness, eviction, and probe timing
//   - Logging: log format and level
type Config struct {
	Paths   Paths   `toml:"paths"`
	Storage Storage `toml:"storage"`
	Cache   Cache   `toml:"cache"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/novelkit/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
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

	projectPath, err := filepath.Abs("novelkit.toml")
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

// EnsureDirectories creates the directories novelkit needs at runtime.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkspaceDir, c.Paths.BlobDir, c.Paths.LogDir, c.Paths.ExportDir, c.ProjectsDir()} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ProjectsDir returns the directory holding project documents.
func (c *Config) ProjectsDir() string {
	return filepath.Join(c.Paths.WorkspaceDir, "projects")
}

// QuotaBytes returns the configured storage quota in bytes. Zero disables
// quota enforcement.
func (c *Config) QuotaBytes() int64 {
	if c.Storage.QuotaMiB <= 0 {
		return 0
	}
	return c.Storage.QuotaMiB * 1024 * 1024
}

// FreshnessWindow returns how recently a cached handle must have been
// accessed to skip the validity probe.
func (c *Config) FreshnessWindow() time.Duration {
	return time.Duration(c.Cache.FreshnessSeconds) * time.Second
}

// GraceDelay returns how long a zero-reference cache entry survives after
// its final release before becoming evictable.
func (c *Config) GraceDelay() time.Duration {
	return time.Duration(c.Cache.GraceSeconds) * time.Second
}

// SweepInterval returns how often the cache's background sweep runs.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Cache.SweepSeconds) * time.Second
}

// StaleThreshold returns the access age past which an unreferenced entry is
// swept regardless of release scheduling.
func (c *Config) StaleThreshold() time.Duration {
	return time.Duration(c.Cache.StaleSeconds) * time.Second
}

// ProbeTimeout bounds a single handle validity probe.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Cache.ProbeTimeoutMillis) * time.Millisecond
}

// RepairProbeTTL returns how long a probe result is memoized within one
// reconciliation pass.
func (c *Config) RepairProbeTTL() time.Duration {
	return time.Duration(c.Cache.RepairProbeTTLSecs) * time.Second
}

// LogLevel implements logging.LoggingConfig.
func (c *Config) LogLevel() string { return c.Logging.Level }

// LogFormat implements logging.LoggingConfig.
func (c *Config) LogFormat() string { return c.Logging.Format }

// LogDir implements logging.LoggingConfig.
func (c *Config) LogDir() string { return c.Paths.LogDir }

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
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

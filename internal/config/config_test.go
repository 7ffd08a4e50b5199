package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"novelkit/internal/config"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, _, exists, err := config.Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing config")
	}
	if cfg.Storage.QuotaMiB != 2048 {
		t.Fatalf("unexpected quota default: %d", cfg.Storage.QuotaMiB)
	}
	if cfg.Paths.BlobDir != filepath.Join(cfg.Paths.WorkspaceDir, "blobs") {
		t.Fatalf("blob dir not derived from workspace: %s", cfg.Paths.BlobDir)
	}
	if cfg.Storage.DatabasePath != filepath.Join(cfg.Paths.WorkspaceDir, "novelkit.db") {
		t.Fatalf("database path not derived from workspace: %s", cfg.Storage.DatabasePath)
	}
}

func TestLoadOverridesWorkspace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := "[paths]\nworkspace_dir = \"" + filepath.Join(dir, "ws") + "\"\n\n[cache]\nfreshness_seconds = 5\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("unexpected resolution: exists=%v path=%s", exists, resolved)
	}
	if cfg.Paths.WorkspaceDir != filepath.Join(dir, "ws") {
		t.Fatalf("workspace override ignored: %s", cfg.Paths.WorkspaceDir)
	}
	if cfg.Cache.FreshnessSeconds != 5 {
		t.Fatalf("cache override ignored: %d", cfg.Cache.FreshnessSeconds)
	}
	if cfg.Cache.GraceSeconds != 60 {
		t.Fatalf("expected default grace, got %d", cfg.Cache.GraceSeconds)
	}
}

func TestValidateRejectsBadLogFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[logging]\nformat = \"xml\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for unsupported log format")
	}
}

func TestValidateRejectsNegativeQuota(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[storage]\nquota_mib = -1\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for negative quota")
	}
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.WorkspaceDir = filepath.Join(dir, "ws")
	cfg.Paths.BlobDir = filepath.Join(dir, "ws", "blobs")
	cfg.Paths.LogDir = filepath.Join(dir, "ws", "logs")
	cfg.Paths.ExportDir = filepath.Join(dir, "ws", "exports")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, d := range []string{cfg.Paths.BlobDir, cfg.Paths.LogDir, cfg.Paths.ExportDir} {
		info, err := os.Stat(d)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", d, err)
		}
	}
}

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"novelkit/internal/asset/handle"
	"novelkit/internal/asset/repair"
	"novelkit/internal/asset/store"
	"novelkit/internal/asset/urlcache"
	"novelkit/internal/config"
	"novelkit/internal/export"
	"novelkit/internal/logging"
	"novelkit/internal/project"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// runtime bundles the wired subsystem instances a command operates on.
type runtime struct {
	cfg      *config.Config
	registry *handle.Registry
	store    *store.Store
	cache    *urlcache.Cache
	repairer *repair.Service
	exporter *export.Pipeline
	projects *project.Store
	logger   *slog.Logger
}

// withRuntime opens the store and cache for the duration of fn and tears
// them down afterwards, revoking every outstanding handle. The workspace
// lock serializes commands against each other and against a running server.
func (c *commandContext) withRuntime(logger *slog.Logger, fn func(*runtime) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lock := flock.New(filepath.Join(cfg.Paths.LogDir, "novelkit.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire workspace lock: %w", err)
	}
	if !locked {
		return errors.New("another novelkit process holds the workspace lock")
	}
	defer func() { _ = lock.Unlock() }()

	registry := handle.NewRegistry(logger)
	st, err := store.Open(cfg, registry, logger)
	if err != nil {
		return err
	}
	cache := urlcache.New(cfg, st, registry, logger)

	rt := &runtime{
		cfg:      cfg,
		registry: registry,
		store:    st,
		cache:    cache,
		repairer: repair.New(cfg, cache, registry, logger),
		exporter: export.New(cfg, st, logger),
		projects: project.NewStore(cfg.ProjectsDir()),
		logger:   logger,
	}

	defer func() {
		cache.Close()
		_ = st.Close()
	}()
	return fn(rt)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

package urlcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"novelkit/internal/asset"
	"novelkit/internal/asset/handle"
	"novelkit/internal/config"
	"novelkit/internal/logging"
)

// ErrHandleUnavailable marks the case where the cache cannot produce any
// usable handle, not even a degraded fallback. The UI renders a broken-asset
// placeholder for it.
var ErrHandleUnavailable = errors.New("no usable handle available")

// Backend is the slice of the persistent store the cache needs.
type Backend interface {
	MintHandle(ctx context.Context, projectID, assetID string) (string, error)
	TouchLastUsed(ctx context.Context, projectID, assetID string, at time.Time)
}

type key struct {
	projectID string
	assetID   string
}

type entry struct {
	handle       string
	lastAccessed time.Time
	refCount     int
	generation   uint64
	evictAt      time.Time // zero until a release schedules eviction
}

// Cache maps (project, asset) to a currently valid handle with reference
// counting and delayed eviction. Construct one per application and share it;
// it is safe for concurrent use.
type Cache struct {
	backend  Backend
	registry *handle.Registry
	logger   *slog.Logger
	now      func() time.Time

	fresh        time.Duration
	grace        time.Duration
	stale        time.Duration
	probeTimeout time.Duration

	mu         sync.Mutex
	entries    map[key]*entry
	generation uint64
	closed     bool

	ticker *time.Ticker
	done   chan struct{}
	wg     sync.WaitGroup
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the cache time source for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// New constructs the cache and starts its background sweep. Callers own the
// lifecycle: Close stops the sweep and invalidates every entry.
func New(cfg *config.Config, backend Backend, registry *handle.Registry, logger *slog.Logger, opts ...Option) *Cache {
	c := &Cache{
		backend:      backend,
		registry:     registry,
		logger:       logging.NewComponentLogger(logger, "urlcache"),
		now:          time.Now,
		fresh:        cfg.FreshnessWindow(),
		grace:        cfg.GraceDelay(),
		stale:        cfg.StaleThreshold(),
		probeTimeout: cfg.ProbeTimeout(),
		entries:      make(map[key]*entry),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.ticker = time.NewTicker(cfg.SweepInterval())
	c.wg.Add(1)
	go c.sweepLoop()

	return c
}

// Acquire returns a handle for the asset that is valid at the time of the
// call. On cache miss or detected invalidity a fresh handle is minted; when
// even minting fails the asset's last-known url is returned as a degraded
// result, and only when that too is empty does the call fail.
func (c *Cache) Acquire(ctx context.Context, projectID string, a asset.Asset) (string, error) {
	k := key{projectID: projectID, assetID: a.ID}
	now := c.now()

	c.mu.Lock()
	e, ok := c.entries[k]
	if !ok {
		c.mu.Unlock()
		return c.mint(ctx, k, a)
	}

	// A handle minted moments ago cannot plausibly be dead; skip the probe
	// round trip inside the freshness window.
	if now.Sub(e.lastAccessed) < c.fresh {
		e.refCount++
		e.lastAccessed = now
		e.evictAt = time.Time{}
		h := e.handle
		c.mu.Unlock()
		c.backend.TouchLastUsed(ctx, projectID, a.ID, now)
		return h, nil
	}

	gen := e.generation
	h := e.handle
	c.mu.Unlock()

	probeCtx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	valid := c.registry.Probe(probeCtx, h)
	cancel()

	c.mu.Lock()
	cur, still := c.entries[k]
	switch {
	case still && cur.generation == gen && valid:
		cur.refCount++
		cur.lastAccessed = c.now()
		cur.evictAt = time.Time{}
		c.mu.Unlock()
		c.backend.TouchLastUsed(ctx, projectID, a.ID, now)
		return h, nil
	case still && cur.generation != gen:
		// The entry was re-minted while we probed; our probe result is about
		// a handle that no longer matters. Use the newer entry.
		cur.refCount++
		cur.lastAccessed = c.now()
		cur.evictAt = time.Time{}
		h = cur.handle
		c.mu.Unlock()
		return h, nil
	case still:
		// Same generation, probe says dead: drop it before re-minting.
		delete(c.entries, k)
		c.mu.Unlock()
		c.registry.Revoke(h)
		c.logger.Debug("cached handle invalid, re-minting",
			logging.String(logging.FieldProjectID, projectID),
			logging.String(logging.FieldAssetID, a.ID))
	default:
		// Entry vanished (teardown or sweep) while probing.
		c.mu.Unlock()
	}

	return c.mint(ctx, k, a)
}

func (c *Cache) mint(ctx context.Context, k key, a asset.Asset) (string, error) {
	h, err := c.backend.MintHandle(ctx, k.projectID, a.ID)
	if err != nil {
		if a.URL != "" {
			c.logger.Warn("mint failed, degrading to last-known url",
				logging.String(logging.FieldProjectID, k.projectID),
				logging.String(logging.FieldAssetID, a.ID),
				logging.Error(err),
				logging.String(logging.FieldImpact, "asset may render stale or broken"))
			return a.URL, nil
		}
		return "", fmt.Errorf("%w: %s/%s: %w", ErrHandleUnavailable, k.projectID, a.ID, err)
	}

	now := c.now()
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.registry.Revoke(h)
		return "", fmt.Errorf("%w: cache closed", ErrHandleUnavailable)
	}
	c.generation++
	gen := c.generation
	var staleHandle string
	if prev, ok := c.entries[k]; ok && prev.handle != h {
		// Concurrent acquires may each mint; last writer wins and carries
		// the outstanding references forward.
		staleHandle = prev.handle
		c.entries[k] = &entry{handle: h, lastAccessed: now, refCount: prev.refCount + 1, generation: gen}
	} else {
		c.entries[k] = &entry{handle: h, lastAccessed: now, refCount: 1, generation: gen}
	}
	c.mu.Unlock()

	if staleHandle != "" {
		c.registry.Revoke(staleHandle)
	}
	c.backend.TouchLastUsed(ctx, k.projectID, a.ID, now)
	return h, nil
}

// Evict unconditionally drops the entry and revokes its handle, regardless
// of outstanding references. Used when the underlying asset is deleted.
func (c *Cache) Evict(projectID, assetID string) {
	k := key{projectID: projectID, assetID: assetID}
	c.mu.Lock()
	e, ok := c.entries[k]
	if ok {
		delete(c.entries, k)
	}
	c.mu.Unlock()
	if ok {
		c.registry.Revoke(e.handle)
	}
}

// Remint mints a fresh handle for the asset through the cache, replacing
// any cached entry without taking a reference. Unlike Acquire it never
// degrades to the last-known url; callers see the backend's error.
func (c *Cache) Remint(ctx context.Context, projectID string, a asset.Asset) (string, error) {
	h, err := c.backend.MintHandle(ctx, projectID, a.ID)
	if err != nil {
		return "", err
	}

	k := key{projectID: projectID, assetID: a.ID}
	now := c.now()
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.registry.Revoke(h)
		return "", fmt.Errorf("%w: cache closed", ErrHandleUnavailable)
	}
	c.generation++
	gen := c.generation
	var staleHandle string
	if prev, ok := c.entries[k]; ok {
		staleHandle = prev.handle
		c.entries[k] = &entry{handle: h, lastAccessed: now, refCount: prev.refCount, generation: gen}
	} else {
		c.entries[k] = &entry{handle: h, lastAccessed: now, generation: gen}
	}
	c.mu.Unlock()

	if staleHandle != "" && staleHandle != h {
		c.registry.Revoke(staleHandle)
	}
	c.backend.TouchLastUsed(ctx, projectID, a.ID, now)
	return h, nil
}

// AcquireAll resolves handles for a batch of assets. Individual failures are
// logged and omitted from the result rather than aborting the batch.
func (c *Cache) AcquireAll(ctx context.Context, projectID string, assets []asset.Asset) map[string]string {
	handles := make(map[string]string, len(assets))
	for _, a := range assets {
		h, err := c.Acquire(ctx, projectID, a)
		if err != nil {
			c.logger.Warn("batch acquire failed for asset",
				logging.String(logging.FieldProjectID, projectID),
				logging.String(logging.FieldAssetID, a.ID),
				logging.Error(err))
			continue
		}
		handles[a.ID] = h
	}
	return handles
}

// Release decrements the reference count, floored at zero. When the count
// reaches zero the entry is scheduled for eviction after the grace delay so
// a quick re-select does not thrash mint/revoke cycles.
func (c *Cache) Release(projectID, assetID string) {
	k := key{projectID: projectID, assetID: assetID}

	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[k]
	if !ok {
		return
	}
	if e.refCount > 0 {
		e.refCount--
	}
	if e.refCount == 0 && e.evictAt.IsZero() {
		e.evictAt = c.now().Add(c.grace)
	}
}

// ReleaseProject unconditionally evicts and invalidates every entry for the
// project, regardless of reference counts. Invoked when switching projects.
func (c *Cache) ReleaseProject(projectID string) {
	c.mu.Lock()
	var stale []string
	for k, e := range c.entries {
		if k.projectID == projectID {
			stale = append(stale, e.handle)
			delete(c.entries, k)
		}
	}
	c.mu.Unlock()

	for _, h := range stale {
		c.registry.Revoke(h)
	}
	if len(stale) > 0 {
		c.logger.Info("released project handles",
			logging.String(logging.FieldProjectID, projectID),
			logging.Int("count", len(stale)))
	}
}

// SweepOnce evicts every entry whose reference count is zero and whose
// grace delay has elapsed or whose last access predates the staleness
// threshold. Entries still referenced are never evicted.
func (c *Cache) SweepOnce() int {
	now := c.now()

	c.mu.Lock()
	var stale []string
	for k, e := range c.entries {
		if e.refCount > 0 {
			continue
		}
		expired := !e.evictAt.IsZero() && !now.Before(e.evictAt)
		abandoned := now.Sub(e.lastAccessed) >= c.stale
		if expired || abandoned {
			stale = append(stale, e.handle)
			delete(c.entries, k)
		}
	}
	c.mu.Unlock()

	for _, h := range stale {
		c.registry.Revoke(h)
	}
	if len(stale) > 0 {
		c.logger.Debug("swept cache entries", logging.Int("count", len(stale)))
	}
	return len(stale)
}

func (c *Cache) sweepLoop() {
	defer c.wg.Done()
	for {
		select {
		case <-c.ticker.C:
			c.SweepOnce()
		case <-c.done:
			return
		}
	}
}

// Stats summarizes cache state for diagnostics.
type Stats struct {
	Entries    int
	Referenced int
}

// Snapshot returns current cache statistics.
func (c *Cache) Snapshot() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	stats := Stats{Entries: len(c.entries)}
	for _, e := range c.entries {
		if e.refCount > 0 {
			stats.Referenced++
		}
	}
	return stats
}

// RefCount reports the current reference count for a key. Diagnostics only.
func (c *Cache) RefCount(projectID, assetID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key{projectID: projectID, assetID: assetID}]; ok {
		return e.refCount
	}
	return 0
}

// Close stops the background sweep and invalidates every entry. The cache
// must not be used afterwards.
func (c *Cache) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	var stale []string
	for k, e := range c.entries {
		stale = append(stale, e.handle)
		delete(c.entries, k)
	}
	c.mu.Unlock()

	c.ticker.Stop()
	close(c.done)
	c.wg.Wait()

	for _, h := range stale {
		c.registry.Revoke(h)
	}
	c.logger.Debug("cache closed", logging.Int("evicted", len(stale)))
}

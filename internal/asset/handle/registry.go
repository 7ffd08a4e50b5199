package handle

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"novelkit/internal/asset"
	"novelkit/internal/logging"
)

type entry struct {
	data     []byte
	mime     string
	mintedAt time.Time
}

// Registry owns every live handle. It is safe for concurrent use. Callers
// must Revoke handles they minted once no longer needed or the payload stays
// referenced for the registry's lifetime.
type Registry struct {
	logger *slog.Logger
	now    func() time.Time

	mu      sync.RWMutex
	entries map[string]entry
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides the registry time source for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRegistry constructs an empty handle registry.
func NewRegistry(logger *slog.Logger, opts ...Option) *Registry {
	r := &Registry{
		logger:  logging.NewComponentLogger(logger, "handle"),
		now:     time.Now,
		entries: make(map[string]entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Mint issues a new handle referencing the provided payload. The payload is
// not copied; callers must not mutate it after minting.
func (r *Registry) Mint(data []byte, mime string) string {
	h := asset.HandleScheme + uuid.NewString()

	r.mu.Lock()
	r.entries[h] = entry{data: data, mime: mime, mintedAt: r.now()}
	count := len(r.entries)
	r.mu.Unlock()

	r.logger.Debug("minted handle",
		logging.String(logging.FieldHandle, h),
		logging.Int("live_handles", count))
	return h
}

// Revoke invalidates a handle. Revoking an unknown or already-revoked handle
// is a no-op.
func (r *Registry) Revoke(h string) {
	if h == "" {
		return
	}
	r.mu.Lock()
	_, existed := r.entries[h]
	delete(r.entries, h)
	r.mu.Unlock()

	if existed {
		r.logger.Debug("revoked handle", logging.String(logging.FieldHandle, h))
	}
}

// Probe reports whether the handle is currently valid. The check is bounded
// by the context: an expired or cancelled context counts as invalid, so a
// wedged backend can never stall a caller indefinitely.
func (r *Registry) Probe(ctx context.Context, h string) bool {
	if h == "" || !asset.IsHandleURL(h) {
		return false
	}

	done := make(chan bool, 1)
	go func() {
		r.mu.RLock()
		_, ok := r.entries[h]
		r.mu.RUnlock()
		done <- ok
	}()

	select {
	case ok := <-done:
		return ok
	case <-ctx.Done():
		r.logger.Warn("handle probe timed out",
			logging.String(logging.FieldHandle, h),
			logging.String(logging.FieldEventType, "handle_probe_timeout"),
			logging.String(logging.FieldImpact, "handle treated as invalid"))
		return false
	}
}

// Bytes returns the payload and MIME type behind a live handle.
func (r *Registry) Bytes(h string) ([]byte, string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[h]
	if !ok {
		return nil, "", false
	}
	return e.data, e.mime, true
}

// Len returns the number of live handles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// RevokeAll invalidates every outstanding handle.
func (r *Registry) RevokeAll() {
	r.mu.Lock()
	count := len(r.entries)
	r.entries = make(map[string]entry)
	r.mu.Unlock()

	if count > 0 {
		r.logger.Debug("revoked all handles", logging.Int("count", count))
	}
}

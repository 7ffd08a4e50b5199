package repair

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"novelkit/internal/asset"
	"novelkit/internal/asset/handle"
	"novelkit/internal/asset/store"
	"novelkit/internal/config"
	"novelkit/internal/logging"
	"novelkit/internal/project"
)

// Strategy selects how a reconciliation pass decides which handles to
// re-mint.
type Strategy int

const (
	// StrategyValidate probes each volatile handle and re-mints only the
	// ones that prove dead. This is the default.
	StrategyValidate Strategy = iota
	// StrategyProactive re-mints every volatile handle regardless of
	// apparent validity. Used right after opening a serialized project,
	// where stored handles cannot have survived.
	StrategyProactive
)

func (s Strategy) String() string {
	switch s {
	case StrategyProactive:
		return "proactive"
	default:
		return "validate"
	}
}

// ParseStrategy maps a user-facing strategy name to its value.
func ParseStrategy(name string) (Strategy, error) {
	switch name {
	case "", "validate", "validation":
		return StrategyValidate, nil
	case "proactive":
		return StrategyProactive, nil
	default:
		return StrategyValidate, fmt.Errorf("unknown repair strategy %q", name)
	}
}

// Minter issues fresh tracked handles for stored assets. *urlcache.Cache
// satisfies it.
type Minter interface {
	Remint(ctx context.Context, projectID string, a asset.Asset) (string, error)
}

// Warning reports a single asset that could not be repaired. The asset is
// passed through with its original url.
type Warning struct {
	AssetID string
	Err     error
}

// Service runs reconciliation passes over batches of assets.
type Service struct {
	minter       Minter
	registry     *handle.Registry
	logger       *slog.Logger
	now          func() time.Time
	probeTTL     time.Duration
	probeTimeout time.Duration

	mu   sync.Mutex
	memo map[string]probeResult
}

type probeResult struct {
	valid bool
	at    time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a repair service minting through the given Minter.
func New(cfg *config.Config, minter Minter, registry *handle.Registry, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		minter:       minter,
		registry:     registry,
		logger:       logging.NewComponentLogger(logger, "repair"),
		now:          time.Now,
		probeTTL:     cfg.RepairProbeTTL(),
		probeTimeout: cfg.ProbeTimeout(),
		memo:         make(map[string]probeResult),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RepairBatch heals a batch of assets for one project. Assets whose url is
// not a volatile handle are passed through untouched. An individual asset
// that cannot be re-minted is passed through with its original url and a
// warning; only a systemic failure rejects the whole batch.
func (s *Service) RepairBatch(ctx context.Context, projectID string, assets []asset.Asset, strategy Strategy) ([]asset.Asset, []Warning, error) {
	repaired := make([]asset.Asset, 0, len(assets))
	var warnings []Warning

	for _, a := range assets {
		if !asset.IsHandleURL(a.URL) {
			// Durable encodings are self-contained and cannot go stale.
			repaired = append(repaired, a)
			continue
		}
		if strategy == StrategyValidate && s.probe(ctx, a.URL) {
			repaired = append(repaired, a)
			continue
		}

		h, err := s.minter.Remint(ctx, projectID, a)
		if err != nil {
			// Failures scoped to this one asset warn and pass it through;
			// only a backend-level failure rejects the batch.
			if errors.Is(err, store.ErrAssetNotFound) || errors.Is(err, store.ErrPayloadRead) {
				s.logger.Warn("asset payload unavailable, passing through",
					logging.String(logging.FieldProjectID, projectID),
					logging.String(logging.FieldAssetID, a.ID),
					logging.Error(err),
					logging.String(logging.FieldImpact, "asset keeps a possibly dead url"))
				warnings = append(warnings, Warning{AssetID: a.ID, Err: err})
				repaired = append(repaired, a)
				continue
			}
			return nil, nil, fmt.Errorf("repair batch for project %s: %w", projectID, err)
		}

		a.URL = h
		s.remember(h, true)
		repaired = append(repaired, a)
	}

	return repaired, warnings, nil
}

// RepairProject heals the project's flat asset list in place. Paragraph
// slots and character sprites hold only asset ids and resolve through the
// flat list, so a repaired url is visible at every reference site at once.
func (s *Service) RepairProject(ctx context.Context, p *project.Project, strategy Strategy) ([]Warning, error) {
	repaired, warnings, err := s.RepairBatch(ctx, p.ID, p.Assets, strategy)
	if err != nil {
		return nil, err
	}
	p.Assets = repaired
	return warnings, nil
}

// probe checks handle validity, memoizing results for a short TTL so one
// reconciliation pass never probes the same handle twice.
func (s *Service) probe(ctx context.Context, h string) bool {
	now := s.now()
	s.mu.Lock()
	if r, ok := s.memo[h]; ok && now.Sub(r.at) < s.probeTTL {
		s.mu.Unlock()
		return r.valid
	}
	s.mu.Unlock()

	probeCtx, cancel := context.WithTimeout(ctx, s.probeTimeout)
	valid := s.registry.Probe(probeCtx, h)
	cancel()

	s.remember(h, valid)
	return valid
}

func (s *Service) remember(h string, valid bool) {
	s.mu.Lock()
	s.memo[h] = probeResult{valid: valid, at: s.now()}
	s.mu.Unlock()
}

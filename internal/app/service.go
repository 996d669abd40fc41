package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"pixelary/internal/config"
	"pixelary/internal/domain"
	"pixelary/internal/ports"
	"pixelary/internal/selection"

	"github.com/heroiclabs/nakama-common/runtime"
)

// Deps are the adapters a Service runs on. Slates and Metrics are optional.
type Deps struct {
	Counters ports.CounterStore
	Pool     ports.WordPool
	Slates   ports.SlateStore
	Config   ports.BanditConfigStore
	Metrics  ports.MetricsPort
	Logger   runtime.Logger
	Rng      *rand.Rand
	Clock    func() time.Time
}

// Service contains the word slate use-cases for one namespace.
type Service struct {
	settings config.Settings
	counters ports.CounterStore
	pool     ports.WordPool
	configs  ports.BanditConfigStore
	metrics  ports.MetricsPort
	logger   runtime.Logger
	now      func() time.Time

	selector *selection.Selector
	tracker  *SlateTracker
	cfg      *configCache
	workers  *WorkerPool
	cancel   context.CancelFunc
}

// NewService wires the use-cases and starts the tracking workers.
// Call Close to drain queued tracking events.
func NewService(settings config.Settings, deps Deps) *Service {
	if deps.Metrics == nil {
		deps.Metrics = ports.NoopMetrics{}
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}

	tracker := NewSlateTracker(settings.Namespace, settings.SlateTTL, deps.Slates, deps.Counters, deps.Metrics, deps.Logger)
	tracker.now = deps.Clock

	s := &Service{
		settings: settings,
		counters: deps.Counters,
		pool:     deps.Pool,
		configs:  deps.Config,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
		now:      deps.Clock,
		selector: selection.NewSelector(deps.Rng),
		tracker:  tracker,
		cfg:      newConfigCache(deps.Config, settings.Namespace, settings.ConfigCacheTTL, deps.Clock),
		workers:  NewWorkerPool(settings.TrackWorkers, settings.TrackQueue),
	}
	s.workers.OnError = func(err error) {
		s.logger.Warn("Service: Dropped tracking event: %v", err)
		s.dropped("ingest_failed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.workers.Start(ctx)
	return s
}

// Close stops accepting tracking events and waits for queued ones.
func (s *Service) Close() {
	s.workers.Close()
	s.cancel()
}

// Tracker exposes the slate tracker for synchronous callers such as batch imports.
func (s *Service) Tracker() *SlateTracker {
	return s.tracker
}

// GetCandidates selects a slate of words. The response always has
// domain.SlotCount slots; trailing slots are nil when the pool is short.
func (s *Service) GetCandidates(ctx context.Context) (CandidatesResponse, error) {
	cfg := s.banditConfig(ctx)

	scored, cold, err := s.scorePool(ctx, cfg)
	if err != nil {
		return CandidatesResponse{}, err
	}

	// Without counters every word ties, so every slot explores.
	rate := cfg.ExplorationRate
	if cold {
		rate = 1
	}
	picks := s.selector.Select(scored, rate, domain.SlotCount)
	refs := make([]domain.WordRef, 0, len(picks))
	explored := 0
	for _, p := range picks {
		refs = append(refs, p.Word.WordRef)
		if p.Mode == selection.ModeExplore {
			explored++
		}
	}

	slate := s.tracker.Issue(ctx, refs)
	s.logger.Debug("Service: Issued slate %s with %d words (%d explored, pool %d)", slate.ID, len(refs), explored, len(scored))
	return CandidatesResponse{SlateID: slate.ID, Candidates: slate.Candidates}, nil
}

// TrackAction queues a slate action for ingestion. It never waits on the store;
// OK is false when the request is malformed or the queue is full.
func (s *Service) TrackAction(ctx context.Context, req TrackRequest) TrackResponse {
	if err := requestValidate.Struct(req); err != nil {
		s.logger.Warn("Service: Rejected track request for slate %q: %v", req.SlateID, err)
		s.dropped("invalid")
		return TrackResponse{OK: false}
	}

	ev := domain.SlateActionEvent{
		SlateID:   req.SlateID,
		Action:    domain.Action(req.Action),
		Word:      req.Word,
		Metadata:  req.Metadata,
		Timestamp: s.now().UTC(),
	}
	err := s.workers.TrySubmit(func(jobCtx context.Context) error {
		if err := s.tracker.Ingest(jobCtx, ev); err != nil {
			return fmt.Errorf("%s on slate %s: %w", ev.Action, ev.SlateID, err)
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("Service: Could not queue %s for slate %s: %v", ev.Action, ev.SlateID, err)
		s.dropped("queue_full")
		return TrackResponse{OK: false}
	}
	return TrackResponse{OK: true}
}

// RecordOutcome queues a gameplay outcome with the same contract as TrackAction.
func (s *Service) RecordOutcome(ctx context.Context, req OutcomeRequest) TrackResponse {
	if err := requestValidate.Struct(req); err != nil {
		s.logger.Warn("Service: Rejected outcome for word %q: %v", req.Word, err)
		s.dropped("invalid")
		return TrackResponse{OK: false}
	}

	ref := domain.WordRef{Word: req.Word, Dictionary: req.Dictionary}
	outcome := domain.Outcome(req.Outcome)
	err := s.workers.TrySubmit(func(jobCtx context.Context) error {
		if err := s.tracker.IngestOutcome(jobCtx, ref, outcome); err != nil {
			return fmt.Errorf("%s for %q: %w", outcome, ref.Word, err)
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("Service: Could not queue %s for %q: %v", outcome, ref.Word, err)
		s.dropped("queue_full")
		return TrackResponse{OK: false}
	}
	return TrackResponse{OK: true}
}

// GetWordStats returns the top words by score and by uncertainty.
// Orderings are total, so repeated calls over unchanged counters agree.
func (s *Service) GetWordStats(ctx context.Context, req StatsRequest) (WordStatsResponse, error) {
	if err := requestValidate.Struct(req); err != nil {
		return WordStatsResponse{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	limit := req.Limit
	if limit == 0 {
		limit = DefaultStatsLimit
	}

	cfg := s.banditConfig(ctx)
	scored, _, err := s.scorePool(ctx, cfg)
	if err != nil {
		return WordStatsResponse{}, err
	}

	resp := WordStatsResponse{
		ByScore:       topN(selection.RankByScore(scored), limit),
		ByUncertainty: topN(selection.RankByUncertainty(scored), limit),
		PoolSize:      len(scored),
		ConfigVersion: cfg.Version,
	}
	return resp, nil
}

// GetConfig returns the stored bandit parameters, bypassing the cache.
func (s *Service) GetConfig(ctx context.Context) (config.BanditConfig, error) {
	if s.configs == nil {
		return config.BanditConfig{}, ErrNotConfigurable
	}
	cfg, err := s.configs.GetConfig(ctx, s.settings.Namespace)
	if err != nil {
		return config.BanditConfig{}, fmt.Errorf("get config: %w", err)
	}
	return cfg.Normalize(), nil
}

// UpdateConfig overlays patch on the stored parameters, clamps the result and
// persists it. Selection sees the new values on its next call.
func (s *Service) UpdateConfig(ctx context.Context, patch ConfigPatch) (config.BanditConfig, error) {
	current, err := s.GetConfig(ctx)
	if err != nil {
		return config.BanditConfig{}, err
	}

	next := patch.Apply(current).Normalize()
	next.UpdatedAt = s.now().UTC()
	stored, err := s.configs.PutConfig(ctx, s.settings.Namespace, next)
	if err != nil {
		return config.BanditConfig{}, fmt.Errorf("put config: %w", err)
	}
	s.cfg.Invalidate()

	s.logger.Info("Service: Bandit config v%d saved (epsilon=%.3f clamp=%.2f wPick=%.2f wPost=%.2f)",
		stored.Version, stored.ExplorationRate, stored.ZScoreClamp, stored.WeightPickRate, stored.WeightPostRate)
	return stored, nil
}

// banditConfig reads the cached parameters. A store failure degrades to the
// last good value or the defaults so selection keeps working.
func (s *Service) banditConfig(ctx context.Context) config.BanditConfig {
	if s.configs == nil {
		return config.DefaultBanditConfig()
	}
	cfg, err := s.cfg.Get(ctx)
	if err != nil {
		s.logger.Warn("Service: Using fallback bandit config: %v", err)
	}
	return cfg
}

// scorePool loads the eligible words with their counters and scores them.
// A counter read failure scores every word as cold rather than failing and
// reports cold=true.
func (s *Service) scorePool(ctx context.Context, cfg config.BanditConfig) (scored []selection.ScoredWord, cold bool, err error) {
	words, err := s.pool.EligibleWords(ctx, s.settings.Namespace, s.settings.Dictionaries)
	if err != nil {
		return nil, false, fmt.Errorf("eligible words: %w", err)
	}
	if len(words) == 0 {
		return nil, false, nil
	}

	keys := make([]string, len(words))
	for i, w := range words {
		keys[i] = domain.NormalizeWord(w.Word)
	}
	counters, err := s.counters.Counters(ctx, s.settings.Namespace, keys)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, false, err
		}
		s.logger.Error("Service: Failed to read counters, scoring %d words as cold: %v", len(keys), err)
		counters, cold = nil, true
	}

	records := make([]domain.WordRecord, len(words))
	for i, w := range words {
		w.Word = keys[i]
		records[i] = domain.WordRecord{WordRef: w, Counters: counters[keys[i]]}
	}

	scored = selection.ScorePool(selection.Aggregate(records), selection.Weights{
		PickRate: cfg.WeightPickRate,
		PostRate: cfg.WeightPostRate,
		ZClamp:   cfg.ZScoreClamp,
	})
	return scored, cold, nil
}

func (s *Service) dropped(reason string) {
	s.metrics.CounterAdd(MetricEventsDropped, map[string]string{"namespace": s.settings.Namespace, "reason": reason}, 1)
}

func topN(ranked []selection.ScoredWord, n int) []WordStat {
	if n > len(ranked) {
		n = len(ranked)
	}
	out := make([]WordStat, 0, n)
	for _, w := range ranked[:n] {
		out = append(out, toWordStat(w))
	}
	return out
}

package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pixelary/internal/domain"
	"pixelary/internal/ports"

	"github.com/google/uuid"
	"github.com/heroiclabs/nakama-common/runtime"
)

var (
	ErrInvalidAction   = errors.New("invalid slate action")
	ErrMissingWord     = errors.New("action requires a word")
	ErrUnknownSlate    = errors.New("unknown or expired slate")
	ErrInvalidOutcome  = errors.New("invalid word outcome")
	ErrInvalidRequest  = errors.New("invalid request")
	ErrNotConfigurable = errors.New("config store unavailable")
)

// Metric names emitted by the engine.
const (
	MetricSlatesIssued    = "wordslate_slates_issued"
	MetricEventsIngested  = "wordslate_events_ingested"
	MetricEventsDropped   = "wordslate_events_dropped"
	MetricMaintenanceRuns = "wordslate_maintenance_runs"
)

// SlateTracker issues slate ids and folds action events back into counters.
type SlateTracker struct {
	namespace string
	ttl       time.Duration
	slates    ports.SlateStore
	counters  ports.CounterStore
	metrics   ports.MetricsPort
	logger    runtime.Logger
	newID     func() string
	now       func() time.Time
}

// NewSlateTracker wires a tracker for one namespace.
// slates may be nil, in which case events must always carry their word.
func NewSlateTracker(namespace string, ttl time.Duration, slates ports.SlateStore, counters ports.CounterStore, metrics ports.MetricsPort, logger runtime.Logger) *SlateTracker {
	if metrics == nil {
		metrics = ports.NoopMetrics{}
	}
	return &SlateTracker{
		namespace: namespace,
		ttl:       ttl,
		slates:    slates,
		counters:  counters,
		metrics:   metrics,
		logger:    logger,
		newID:     uuid.NewString,
		now:       time.Now,
	}
}

// Issue assigns a fresh id to the candidates and remembers them for ttl.
// Persisting the association is best-effort; the slate is returned either way.
func (t *SlateTracker) Issue(ctx context.Context, candidates []domain.WordRef) domain.Slate {
	slate := domain.Slate{ID: t.newID(), CreatedAt: t.now().UTC()}
	for i := 0; i < domain.SlotCount && i < len(candidates); i++ {
		c := candidates[i]
		slate.Candidates[i] = &c
	}

	if t.slates != nil {
		if err := t.slates.SaveSlate(ctx, t.namespace, slate, t.ttl); err != nil {
			t.logger.Warn("SlateTracker: Failed to persist slate %s: %v", slate.ID, err)
		}
	}
	t.metrics.CounterAdd(MetricSlatesIssued, map[string]string{"namespace": t.namespace}, 1)
	return slate
}

// Ingest applies one action event to the counters.
//
//   - impression: served+1 for every slate word, or only for ev.Word when set
//   - click: picked+1 for the word
//   - publish: posted+1 for the word
//
// Events are counted at face value; duplicates and out-of-order events are not
// filtered. An event naming its word is counted even when the slate cannot be
// loaded or never offered that word.
func (t *SlateTracker) Ingest(ctx context.Context, ev domain.SlateActionEvent) error {
	field := ev.Action.Field()
	if _, err := domain.ParseAction(string(ev.Action)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAction, err)
	}

	slate, slateErr := t.loadSlate(ctx, ev.SlateID)

	var targets []domain.WordRef
	switch {
	case ev.Word != "":
		targets = []domain.WordRef{t.resolveWord(slate, slateErr, ev)}
	case slateErr != nil:
		return slateErr
	case ev.Action == domain.ActionImpression:
		targets = slate.Words()
	default:
		words := slate.Words()
		if len(words) != 1 {
			return fmt.Errorf("%w: %s on slate %s", ErrMissingWord, ev.Action, ev.SlateID)
		}
		targets = words
	}

	if err := t.increment(ctx, targets, field); err != nil {
		return err
	}
	t.metrics.CounterAdd(MetricEventsIngested, map[string]string{"namespace": t.namespace, "action": string(ev.Action)}, 1)
	return nil
}

// resolveWord attributes ev.Word to its slate slot when the slate is known.
func (t *SlateTracker) resolveWord(slate domain.Slate, slateErr error, ev domain.SlateActionEvent) domain.WordRef {
	ref := domain.WordRef{Word: domain.NormalizeWord(ev.Word)}
	switch {
	case errors.Is(slateErr, ErrUnknownSlate):
	case slateErr != nil:
		t.logger.Warn("SlateTracker: Counting %s for %q without slate %s: %v", ev.Action, ref.Word, ev.SlateID, slateErr)
	default:
		match, ok := slate.Candidate(ref.Word)
		if !ok {
			t.logger.Warn("SlateTracker: %s for %q was not offered in slate %s", ev.Action, ref.Word, ev.SlateID)
			break
		}
		ref = match
	}
	return ref
}

// IngestOutcome applies a gameplay outcome to the word's counters.
func (t *SlateTracker) IngestOutcome(ctx context.Context, ref domain.WordRef, outcome domain.Outcome) error {
	if _, err := domain.ParseOutcome(string(outcome)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOutcome, err)
	}
	ref.Word = domain.NormalizeWord(ref.Word)
	if ref.Word == "" {
		return ErrMissingWord
	}
	if err := t.increment(ctx, []domain.WordRef{ref}, outcome.Field()); err != nil {
		return err
	}
	t.metrics.CounterAdd(MetricEventsIngested, map[string]string{"namespace": t.namespace, "action": string(outcome)}, 1)
	return nil
}

func (t *SlateTracker) increment(ctx context.Context, targets []domain.WordRef, field domain.CounterField) error {
	if len(targets) == 0 {
		return nil
	}
	incs := make([]ports.CounterIncrement, 0, len(targets))
	for _, ref := range targets {
		incs = append(incs, ports.CounterIncrement{
			Word:       ref.Word,
			Dictionary: ref.Dictionary,
			Field:      field,
			Delta:      1,
		})
	}
	if err := t.counters.Increment(ctx, t.namespace, incs); err != nil {
		return fmt.Errorf("increment %s: %w", field, err)
	}
	return nil
}

func (t *SlateTracker) loadSlate(ctx context.Context, slateID string) (domain.Slate, error) {
	if t.slates == nil {
		return domain.Slate{}, fmt.Errorf("%w: %s", ErrUnknownSlate, slateID)
	}
	slate, err := t.slates.LoadSlate(ctx, t.namespace, slateID)
	if errors.Is(err, ports.ErrSlateNotFound) {
		return domain.Slate{}, fmt.Errorf("%w: %s", ErrUnknownSlate, slateID)
	}
	if err != nil {
		return domain.Slate{}, fmt.Errorf("load slate %s: %w", slateID, err)
	}
	return slate, nil
}

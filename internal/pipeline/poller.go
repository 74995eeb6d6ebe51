package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/flood-sensor-etl/internal/domain"
	"github.com/couchcryptid/flood-sensor-etl/internal/observability"
)

// Poller periodically renders the source page and commits a classified
// snapshot. At most one cycle runs at a time.
type Poller struct {
	renderer   Renderer
	classifier *domain.Classifier
	store      SnapshotStore
	mirrors    []Mirror
	opts       Options
	clock      clockwork.Clock
	logger     *slog.Logger
	metrics    *observability.Metrics
	state      atomic.Int32
}

// New creates a Poller. Mirrors are added with AddMirror before Run.
func New(r Renderer, c *domain.Classifier, s SnapshotStore, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Poller {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	return &Poller{
		renderer:   r,
		classifier: c,
		store:      s,
		opts:       opts,
		clock:      opts.Clock,
		logger:     logger,
		metrics:    metrics,
	}
}

// AddMirror registers a sink notified after every commit, in registration order.
func (p *Poller) AddMirror(m Mirror) {
	p.mirrors = append(p.mirrors, m)
}

// State returns the current cycle state.
func (p *Poller) State() State {
	return State(p.state.Load())
}

func (p *Poller) setState(s State) {
	p.state.Store(int32(s))
	p.metrics.PollerState.Set(float64(s))
}

// CheckReadiness returns nil once the store holds a snapshot, either from a
// completed cycle or from startup recovery.
func (p *Poller) CheckReadiness(_ context.Context) error {
	if !p.store.HasSnapshot() {
		return errors.New("no snapshot yet")
	}
	return nil
}

// Run executes a cycle immediately, then one cycle per interval until ctx is
// canceled. Cycle failures are logged and never stop the loop.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("poller started",
		"source_url", p.opts.SourceURL,
		"interval", p.opts.Interval,
		"max_attempts", p.opts.MaxAttempts,
	)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poller stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if err := p.RunCycle(ctx); err != nil && ctx.Err() == nil {
			p.logger.Error("poll cycle failed", "error", err)
		}

		if !sleepWithContext(ctx, p.clock, p.opts.Interval) {
			p.logger.Info("poller stopping", "reason", ctx.Err())
			return nil
		}
	}
}

// RunCycle performs one fetch, parse, classify and commit pass. On failure the
// store is left untouched. The renderer session is opened by the first attempt
// that needs it and closed before returning.
func (p *Poller) RunCycle(ctx context.Context) (err error) {
	start := p.clock.Now()
	cycleID := uuid.NewString()
	log := p.logger.With("cycle_id", cycleID)

	defer p.setState(StateIdle)
	defer func() {
		p.metrics.CycleDuration.Observe(p.clock.Since(start).Seconds())
		p.metrics.CyclesTotal.WithLabelValues(cycleOutcome(ctx, err)).Inc()
	}()

	p.setState(StateFetching)
	var sess Session
	defer func() {
		if sess == nil {
			return
		}
		if cerr := sess.Close(); cerr != nil {
			log.Warn("close renderer session failed", "error", cerr)
		}
	}()

	raw, err := p.fetch(ctx, &sess, log)
	if err != nil {
		return err
	}

	p.setState(StateClassifying)
	snap, stats := p.classifier.Classify(slices.Values(raw))
	snap.CycleID = cycleID
	snap.TakenAt = p.clock.Now().UTC()

	p.setState(StateCommitting)
	p.commit(ctx, snap, raw, log)

	p.metrics.RecordsObserved.Set(float64(stats.Observed))
	p.metrics.RecordsDefaulted.Set(float64(stats.Defaulted))
	p.metrics.RecordsUnknown.Set(float64(stats.Unknown))
	p.metrics.LastSuccess.Set(float64(snap.TakenAt.Unix()))

	log.Info("snapshot committed",
		"rows", len(raw),
		"observed", stats.Observed,
		"defaulted", stats.Defaulted,
		"unknown", stats.Unknown,
		"duplicates", stats.Duplicates,
		"duration", p.clock.Since(start),
	)
	return nil
}

// fetch renders and parses the page, retrying up to MaxAttempts times with
// RetryDelay between attempts. A session that failed to open is retried the
// same way.
func (p *Poller) fetch(ctx context.Context, sess *Session, log *slog.Logger) ([]domain.RawRecord, error) {
	var lastErr error
	for attempt := 1; attempt <= p.opts.MaxAttempts; attempt++ {
		if attempt > 1 {
			p.setState(StateRetrying)
			if !sleepWithContext(ctx, p.clock, p.opts.RetryDelay) {
				return nil, fmt.Errorf("fetch canceled: %w", ctx.Err())
			}
			p.setState(StateFetching)
		}

		raw, err := p.attempt(ctx, sess)
		if err == nil {
			p.metrics.RenderAttempts.WithLabelValues("success").Inc()
			if attempt > 1 {
				log.Info("fetch recovered", "attempt", attempt)
			}
			return raw, nil
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("fetch canceled: %w", ctx.Err())
		}

		p.metrics.RenderAttempts.WithLabelValues(attemptOutcome(err)).Inc()
		log.Warn("fetch attempt failed",
			"attempt", attempt,
			"max_attempts", p.opts.MaxAttempts,
			"error", err,
		)
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %d attempts: %w", domain.ErrRetriesExhausted, p.opts.MaxAttempts, lastErr)
}

func (p *Poller) attempt(ctx context.Context, sess *Session) ([]domain.RawRecord, error) {
	if *sess == nil {
		s, err := p.renderer.Open(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errOpenSession, err)
		}
		*sess = s
	}
	table, err := (*sess).Render(ctx, p.opts.SourceURL, p.opts.ReadySelector, p.opts.PageLoadTimeout)
	if err != nil {
		return nil, err
	}
	p.setState(StateParsing)
	return domain.Parse(table)
}

// commit swaps the snapshot into the store, then notifies mirrors. Mirror
// failures are logged and counted; the in-memory commit stands.
func (p *Poller) commit(ctx context.Context, snap domain.Snapshot, raw []domain.RawRecord, log *slog.Logger) {
	p.store.Write(snap, raw)

	for _, m := range p.mirrors {
		if err := m.Mirror(ctx, snap, raw); err != nil {
			p.metrics.MirrorErrors.WithLabelValues(m.Name()).Inc()
			log.Error("mirror snapshot failed", "mirror", m.Name(), "error", err)
		}
	}
}

// Recover warms the store from the first source holding a snapshot that still
// matches the taxonomy. It returns the name of the source used.
func (p *Poller) Recover(ctx context.Context, sources ...SnapshotSource) (string, bool) {
	tax := p.classifier.Taxonomy()
	for _, src := range sources {
		snap, ok, err := src.Latest(ctx)
		if err != nil {
			p.logger.Warn("snapshot recovery failed", "source", src.Name(), "error", err)
			continue
		}
		if !ok {
			continue
		}
		if errs := tax.Verify(snap); len(errs) > 0 {
			p.logger.Warn("recovered snapshot does not match taxonomy, skipping",
				"source", src.Name(),
				"cycle_id", snap.CycleID,
				"error", errors.Join(errs...),
			)
			continue
		}

		p.store.Write(snap, nil)
		p.logger.Info("snapshot recovered",
			"source", src.Name(),
			"cycle_id", snap.CycleID,
			"taken_at", snap.TakenAt,
		)
		return src.Name(), true
	}
	return "", false
}

var errOpenSession = errors.New("open renderer session")

func attemptOutcome(err error) string {
	switch {
	case errors.Is(err, errOpenSession):
		return "launch"
	case errors.Is(err, domain.ErrRenderTimeout):
		return "timeout"
	case errors.Is(err, domain.ErrExtractionEmpty):
		return "empty"
	default:
		return "error"
	}
}

func cycleOutcome(ctx context.Context, err error) string {
	switch {
	case err == nil:
		return "success"
	case ctx.Err() != nil:
		return "canceled"
	case errors.Is(err, domain.ErrRetriesExhausted):
		return "exhausted"
	default:
		return "error"
	}
}

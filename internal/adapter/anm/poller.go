package anm

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/anm-alert-map/internal/domain"
	"github.com/couchcryptid/anm-alert-map/internal/observability"
	"github.com/jonboulle/clockwork"
)

// WarningsFetcher returns the warnings currently in force.
type WarningsFetcher interface {
	FetchWarnings(ctx context.Context) ([]domain.MapEntry, error)
}

// StateSink receives entity states built from the feed.
type StateSink interface {
	Apply(states ...domain.EntityState) int
}

// Poller publishes the ANM warnings as the state of one entity, once at
// start and then on every interval. A failed poll leaves the last state in
// place.
type Poller struct {
	fetcher  WarningsFetcher
	sink     StateSink
	entity   string
	interval time.Duration
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewPoller creates a poller that feeds entity with warnings from fetcher.
func NewPoller(fetcher WarningsFetcher, sink StateSink, entity string, interval time.Duration, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Poller {
	return &Poller{
		fetcher:  fetcher,
		sink:     sink,
		entity:   entity,
		interval: interval,
		clock:    clock,
		logger:   logger,
		metrics:  metrics,
	}
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("anm feed started", "entity", p.entity, "interval", p.interval)
	p.metrics.FeedEnabled.Set(1)
	defer p.metrics.FeedEnabled.Set(0)

	p.poll(ctx)

	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("anm feed stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	entries, err := p.fetcher.FetchWarnings(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Warn("anm feed poll failed", "error", err)
		}
		return
	}

	st, err := domain.BuildANMState(p.entity, entries)
	if err != nil {
		p.logger.Error("anm state build failed", "error", err)
		return
	}
	p.sink.Apply(st)
	p.logger.Debug("anm state applied", "entity", p.entity, "state", st.State, "warnings", len(entries))
}

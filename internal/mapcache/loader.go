// Package mapcache loads the base map document once per card instance and
// shares the result with every render.
package mapcache

import (
	"bytes"
	"context"
	"log/slog"
	"sync"

	"github.com/couchcryptid/anm-alert-map/internal/observability"
	"github.com/couchcryptid/anm-alert-map/internal/svgdoc"
)

// Loader memoizes a single fetch-and-parse of the map template. Concurrent
// callers share the pending or resolved result. A failed load resolves to a
// nil template; the failure is logged and counted, never returned.
//
// The template handed out is shared and must not be modified; callers
// clone it before editing.
type Loader struct {
	fetcher Fetcher
	logger  *slog.Logger
	metrics *observability.Metrics

	once sync.Once
	done chan struct{}
	doc  *svgdoc.Document
}

// NewLoader creates a loader around fetcher. Nothing is fetched until Start.
func NewLoader(fetcher Fetcher, logger *slog.Logger, metrics *observability.Metrics) *Loader {
	return &Loader{
		fetcher: fetcher,
		logger:  logger,
		metrics: metrics,
		done:    make(chan struct{}),
	}
}

// Start begins the load on first call and returns a channel closed once the
// template has resolved. Later calls return the same channel. The fetch is
// detached from ctx cancellation; it ends on its own timeout.
func (l *Loader) Start(ctx context.Context) <-chan struct{} {
	l.once.Do(func() {
		go l.load(context.WithoutCancel(ctx))
	})
	return l.done
}

// Wait starts the load if needed and blocks until it resolves or ctx ends.
// ok is false when the load failed or ctx ended first.
func (l *Loader) Wait(ctx context.Context) (doc *svgdoc.Document, ok bool) {
	done := l.Start(ctx)
	select {
	case <-done:
		return l.doc, l.doc != nil
	case <-ctx.Done():
		return nil, false
	}
}

// Template returns the template without blocking. resolved is false while
// the load is still pending; doc is nil after a failed load.
func (l *Loader) Template() (doc *svgdoc.Document, resolved bool) {
	select {
	case <-l.done:
		return l.doc, true
	default:
		return nil, false
	}
}

func (l *Loader) load(ctx context.Context) {
	defer close(l.done)

	data, err := l.fetcher.Fetch(ctx)
	if err != nil {
		l.logger.Error("map template fetch failed", "error", err)
		l.metrics.TemplateLoads.WithLabelValues("error").Inc()
		return
	}

	doc, err := svgdoc.Parse(bytes.NewReader(data))
	if err != nil {
		l.logger.Error("map template parse failed", "error", err, "bytes", len(data))
		l.metrics.TemplateLoads.WithLabelValues("error").Inc()
		return
	}

	l.doc = doc
	l.metrics.TemplateLoads.WithLabelValues("success").Inc()
	l.logger.Info("map template loaded", "elements", len(doc.Descendants()))
}

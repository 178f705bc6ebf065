// Package card renders the ANM alert map for one configured entity. It owns
// the map template, the pagination cursor and the latest alert snapshot, and
// turns state updates and navigation into rendered frames.
package card

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/anm-alert-map/internal/classify"
	"github.com/couchcryptid/anm-alert-map/internal/domain"
	"github.com/couchcryptid/anm-alert-map/internal/observability"
	"github.com/couchcryptid/anm-alert-map/internal/pagination"
	"github.com/couchcryptid/anm-alert-map/internal/svgdoc"
	"github.com/google/uuid"
)

// Size is the card's height hint in dashboard grid units.
const Size = 4

// StubEntity is the sensor the integration creates for the alert map.
const StubEntity = "sensor.harta_avertizari_anm"

var (
	// ErrEntityRequired is returned by Configure when no entity is given.
	ErrEntityRequired = errors.New("card config: entity is required")
	// ErrNotReady is reported until the first frame has been rendered.
	ErrNotReady = errors.New("card has not rendered a frame yet")
	// ErrClosed is returned by operations on a closed card.
	ErrClosed = errors.New("card is closed")
	// ErrTemplateUnavailable is reported once the map template failed to load.
	ErrTemplateUnavailable = errors.New("map template unavailable")
)

// Reasons an update did not produce a render, used as metric labels.
const (
	reasonUnconfigured   = "unconfigured"
	reasonMissingEntity  = "missing_entity"
	reasonNoAlertData    = "no_alert_data"
	reasonMalformed      = "malformed"
	reasonTemplateFailed = "template_failed"
)

// Config is the card configuration.
type Config struct {
	Entity string `json:"entity"`
}

// StubConfig returns the configuration suggested for a new card.
func StubConfig() Config {
	return Config{Entity: StubEntity}
}

// State is the lifecycle state of a card.
type State int

const (
	Unconfigured State = iota
	AwaitingTemplate
	Ready
	Failed
	Closed
)

func (s State) String() string {
	switch s {
	case Unconfigured:
		return "unconfigured"
	case AwaitingTemplate:
		return "awaiting_template"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// TemplateSource provides the map template. Start begins a one-shot load and
// returns a channel closed when it resolves; Template then returns the
// document, or nil when the load failed.
type TemplateSource interface {
	Start(ctx context.Context) <-chan struct{}
	Template() (doc *svgdoc.Document, resolved bool)
}

// Status is a point-in-time summary of the card.
type Status struct {
	State  string `json:"state"`
	Entity string `json:"entity,omitempty"`
	Index  int    `json:"index"`
	Count  int    `json:"count"`
	Label  string `json:"label,omitempty"`
	Size   int    `json:"size"`
	Frame  string `json:"frame_id,omitempty"`
}

// Card is the render orchestrator for one widget instance. All methods are
// safe for concurrent use; updates, navigation and template resolution are
// serialised so that no two renders overlap.
type Card struct {
	templates TemplateSource
	logger    *slog.Logger
	metrics   *observability.Metrics

	mu       sync.Mutex
	state    State
	config   Config
	gen      uint64
	template *svgdoc.Document
	snap     *domain.Snapshot
	pager    pagination.Pager
	frame    *Frame
	subs     map[int]chan *Frame
	nextSub  int
	closed   chan struct{}
}

// New creates an unconfigured card that loads its template from templates.
func New(templates TemplateSource, logger *slog.Logger, metrics *observability.Metrics) *Card {
	return &Card{
		templates: templates,
		logger:    logger,
		metrics:   metrics,
		subs:      make(map[int]chan *Frame),
		closed:    make(chan struct{}),
	}
}

// Configure applies a configuration. The first call starts the template
// load; later calls reuse it. Pagination returns to the first map and the
// current snapshot and frame are dropped.
func (c *Card) Configure(ctx context.Context, cfg Config) error {
	if cfg.Entity == "" {
		return ErrEntityRequired
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Closed {
		return ErrClosed
	}

	c.config = cfg
	c.gen++
	c.pager.Reset()
	c.snap = nil
	c.frame = nil
	c.metrics.MapIndex.Set(0)
	c.metrics.MapCount.Set(0)

	switch c.state {
	case Unconfigured, AwaitingTemplate:
		c.state = AwaitingTemplate
		done := c.templates.Start(ctx)
		go c.awaitTemplate(c.gen, done)
	}

	c.logger.Info("card configured", "entity", cfg.Entity, "state", c.state.String())
	return nil
}

// awaitTemplate moves the card out of AwaitingTemplate once the load
// resolves. A resolution that arrives after Close or a newer Configure is
// dropped.
func (c *Card) awaitTemplate(gen uint64, done <-chan struct{}) {
	select {
	case <-done:
	case <-c.closed:
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gen != gen || c.state != AwaitingTemplate {
		return
	}

	doc, _ := c.templates.Template()
	if doc == nil {
		c.state = Failed
		c.logger.Error("map template unavailable, card will not render", "entity", c.config.Entity)
		return
	}

	c.template = doc
	c.state = Ready
	if c.snap != nil {
		c.logger.Debug("rendering deferred snapshot", "entity", c.config.Entity)
		c.render()
	}
}

// Update applies a new host state table. Updates that carry no alert data
// for the configured entity are ignored and the last frame stays on display.
// While the template is loading only the latest snapshot is kept.
func (c *Card) Update(table domain.StateTable) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case Unconfigured, Closed:
		c.ignore(reasonUnconfigured)
		return
	case Failed:
		c.ignore(reasonTemplateFailed)
		return
	}

	entity, ok := table.Lookup(c.config.Entity)
	if !ok {
		c.ignore(reasonMissingEntity)
		return
	}

	snap, err := domain.ParseSnapshot(entity.Attributes)
	if err != nil {
		if errors.Is(err, domain.ErrNoAlertData) {
			c.ignore(reasonNoAlertData)
			return
		}
		c.logger.Warn("entity attributes not decodable, ignoring update",
			"entity", c.config.Entity, "error", err)
		c.ignore(reasonMalformed)
		return
	}
	if snap.Skipped > 0 {
		c.logger.Warn("dropped malformed shape records", "entity", c.config.Entity, "skipped", snap.Skipped)
		c.metrics.ShapesSkipped.Add(float64(snap.Skipped))
	}

	c.snap = &snap
	c.pager.SetMaps(snap.MapCount())

	if c.state == AwaitingTemplate {
		c.logger.Debug("template pending, render deferred", "entity", c.config.Entity)
		return
	}
	c.render()
}

// Next shows the following map. It reports whether a new frame was rendered.
func (c *Card) Next() bool {
	return c.navigate((*pagination.Pager).Next)
}

// Prev shows the previous map. It reports whether a new frame was rendered.
func (c *Card) Prev() bool {
	return c.navigate((*pagination.Pager).Prev)
}

func (c *Card) navigate(step func(*pagination.Pager) bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Ready || c.snap == nil {
		return false
	}
	if !step(&c.pager) {
		return false
	}
	c.render()
	return true
}

// render paints the active map onto a fresh copy of the template, rebuilds
// the panel and swaps in the new frame. The caller holds c.mu.
func (c *Card) render() {
	start := time.Now()

	shapes, meta := c.snap.Select(c.pager.Index())
	doc, res := classify.Apply(c.template, shapes)
	svg := doc.String()

	data := newPanelData(meta, &c.pager)
	panel, err := renderPanel(data)
	if err != nil {
		c.logger.Error("panel render failed", "entity", c.config.Entity, "error", err)
		return
	}
	html, err := renderCard(svg, data)
	if err != nil {
		c.logger.Error("card render failed", "entity", c.config.Entity, "error", err)
		return
	}

	unmatched := make([]string, 0, len(res.Unmatched))
	for _, s := range res.Unmatched {
		unmatched = append(unmatched, s.ID)
	}

	f := &Frame{
		ID:         uuid.NewString(),
		Entity:     c.config.Entity,
		Index:      c.pager.Index(),
		Count:      c.pager.Count(),
		Label:      c.pager.Label(),
		Navigable:  c.pager.Navigable(),
		Meta:       meta,
		Classes:    res.Classes,
		Unmatched:  unmatched,
		SVG:        svg,
		Panel:      panel,
		HTML:       html,
		RenderedAt: domain.Now().UTC(),
	}
	c.frame = f

	c.metrics.Renders.Inc()
	c.metrics.RenderDuration.Observe(time.Since(start).Seconds())
	c.metrics.ShapesUnmatched.Add(float64(len(res.Unmatched)))
	c.metrics.MapIndex.Set(float64(f.Index))
	c.metrics.MapCount.Set(float64(f.Count))

	c.logger.Debug("map rendered",
		"entity", f.Entity,
		"frame_id", f.ID,
		"index", f.Index,
		"count", f.Count,
		"shapes", len(shapes),
		"painted", res.Painted,
		"unmatched", len(res.Unmatched),
	)

	c.broadcast(f)
}

func (c *Card) ignore(reason string) {
	c.metrics.UpdatesIgnored.WithLabelValues(reason).Inc()
}

// broadcast hands f to every subscriber. A subscriber that has not taken
// the previous frame has it replaced; only the latest frame matters.
func (c *Card) broadcast(f *Frame) {
	for _, ch := range c.subs {
		select {
		case ch <- f:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- f:
		default:
		}
	}
}

// Subscribe returns a channel of rendered frames and a function that ends
// the subscription. The current frame, if any, is delivered first. The
// channel is closed when the subscription ends or the card is closed.
func (c *Card) Subscribe() (<-chan *Frame, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan *Frame, 1)
	if c.state == Closed {
		close(ch)
		return ch, func() {}
	}
	if c.frame != nil {
		ch <- c.frame
	}

	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(sub)
			}
		})
	}
}

// Frame returns the frame on display, or nil when nothing has been rendered
// since the last Configure.
func (c *Card) Frame() *Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frame
}

// State returns the lifecycle state.
func (c *Card) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Size returns the card's height hint in grid units.
func (c *Card) Size() int {
	return Size
}

// Status summarises the card for diagnostics.
func (c *Card) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{
		State:  c.state.String(),
		Entity: c.config.Entity,
		Index:  c.pager.Index(),
		Count:  c.pager.Count(),
		Label:  c.pager.Label(),
		Size:   Size,
	}
	if c.frame != nil {
		st.Frame = c.frame.ID
	}
	return st
}

// CheckReadiness returns nil once a frame is on display.
func (c *Card) CheckReadiness(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.state == Failed:
		return ErrTemplateUnavailable
	case c.state == Closed:
		return ErrClosed
	case c.frame == nil:
		return ErrNotReady
	}
	return nil
}

// Close tears the card down. A template load still in flight resolves into
// nothing. Subscriber channels are closed.
func (c *Card) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Closed {
		return
	}
	c.state = Closed
	close(c.closed)
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
	c.logger.Info("card closed", "entity", c.config.Entity)
}

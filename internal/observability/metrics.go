package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the map card service.
type Metrics struct {
	StatesConsumed  prometheus.Counter
	StateErrors     prometheus.Counter
	UpdatesIgnored  *prometheus.CounterVec // labels: reason={unconfigured,missing_entity,no_alert_data,failed}
	PipelineRunning prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Rendering metrics.
	Renders          prometheus.Counter
	RenderDuration   prometheus.Histogram
	ShapesUnmatched  prometheus.Counter
	ShapesSkipped    prometheus.Counter
	TemplateLoads    *prometheus.CounterVec // labels: outcome={success,error}
	MapIndex         prometheus.Gauge
	MapCount         prometheus.Gauge
	FramesPublished  prometheus.Counter
	FramePublishErrs prometheus.Counter

	// ANM feed metrics.
	FeedRequests    *prometheus.CounterVec // labels: outcome={success,error,empty}
	FeedAPIDuration prometheus.Histogram
	FeedEnabled     prometheus.Gauge
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.StatesConsumed,
		m.StateErrors,
		m.UpdatesIgnored,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.Renders,
		m.RenderDuration,
		m.ShapesUnmatched,
		m.ShapesSkipped,
		m.TemplateLoads,
		m.MapIndex,
		m.MapCount,
		m.FramesPublished,
		m.FramePublishErrs,
		m.FeedRequests,
		m.FeedAPIDuration,
		m.FeedEnabled,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		StatesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "anm_map",
			Name:      "states_consumed_total",
			Help:      "Total entity state messages read from the source topic.",
		}),
		StateErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "anm_map",
			Name:      "state_decode_errors_total",
			Help:      "Total entity state messages that could not be decoded.",
		}),
		UpdatesIgnored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "anm_map",
			Name:      "updates_ignored_total",
			Help:      "State updates that did not trigger a render, by reason.",
		}, []string{"reason"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "anm_map",
			Name:      "pipeline_running",
			Help:      "1 when the state pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "anm_map",
			Name:      "batch_size",
			Help:      "Number of state messages per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "anm_map",
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-decode-apply cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		Renders: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "anm_map",
			Name:      "renders_total",
			Help:      "Total map renders.",
		}),
		RenderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "anm_map",
			Name:      "render_duration_seconds",
			Help:      "Duration of a clone-reset-paint-panel render.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.5},
		}),
		ShapesUnmatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "anm_map",
			Name:      "shapes_unmatched_total",
			Help:      "Alert shapes that matched no map region.",
		}),
		ShapesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "anm_map",
			Name:      "shapes_skipped_total",
			Help:      "Malformed alert shape records dropped before painting.",
		}),
		TemplateLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "anm_map",
			Name:      "template_loads_total",
			Help:      "Map template loads by outcome.",
		}, []string{"outcome"}),
		MapIndex: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "anm_map",
			Name:      "map_index",
			Help:      "Zero-based index of the map on display.",
		}),
		MapCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "anm_map",
			Name:      "map_count",
			Help:      "Number of maps in the latest snapshot.",
		}),
		FramesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "anm_map",
			Name:      "frames_published_total",
			Help:      "Rendered frames written to the sink topic.",
		}),
		FramePublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "anm_map",
			Name:      "frame_publish_errors_total",
			Help:      "Rendered frames that failed to reach the sink topic.",
		}),
		FeedRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "anm_map",
			Name:      "feed_requests_total",
			Help:      "ANM feed requests by outcome.",
		}, []string{"outcome"}),
		FeedAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "anm_map",
			Name:      "feed_api_duration_seconds",
			Help:      "ANM API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		FeedEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "anm_map",
			Name:      "feed_enabled",
			Help:      "1 when the built-in ANM feed is enabled, 0 otherwise.",
		}),
	}
}

package liveview

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// MetricsNamespace prefixes every collector name.
const MetricsNamespace = "liveview"

// Metrics is the set of Prometheus collectors an Engine reports to.
type Metrics struct {
	registry *prometheus.Registry

	FramesRendered   prometheus.Counter
	FrameUploads     prometheus.Counter
	DroppedFrames    prometheus.Counter
	LateTicks        prometheus.Counter
	AssetErrors      prometheus.Counter
	Reconfigurations prometheus.Counter
	ActiveFrame      prometheus.Gauge
	RenderDuration   prometheus.Histogram
}

// NewMetrics creates the collectors and registers them, together with the
// Go runtime and process collectors, on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		FramesRendered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "frames_rendered_total",
			Help:      "Frames submitted and presented.",
		}),
		FrameUploads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "frame_uploads_total",
			Help:      "Texture uploads caused by a change of the active frame.",
		}),
		DroppedFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "dropped_frames_total",
			Help:      "Sequence frames skipped because rendering fell behind.",
		}),
		LateTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "late_ticks_total",
			Help:      "Scheduler iterations that finished after their deadline.",
		}),
		AssetErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "asset_errors_total",
			Help:      "Frame images that could not be read or did not match the texture.",
		}),
		Reconfigurations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "surface_reconfigures_total",
			Help:      "Surface reconfigurations caused by resize events.",
		}),
		ActiveFrame: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "active_frame",
			Help:      "Index of the active sequence frame, -1 when idle.",
		}),
		RenderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: MetricsNamespace,
			Name:      "render_duration_seconds",
			Help:      "Time spent in the locked render operation.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
	}
	m.ActiveFrame.Set(float64(NoFrame))

	m.registry.MustRegister(
		m.FramesRendered,
		m.FrameUploads,
		m.DroppedFrames,
		m.LateTicks,
		m.AssetErrors,
		m.Reconfigurations,
		m.ActiveFrame,
		m.RenderDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry holding the collectors, for use with
// promhttp.HandlerFor.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the recorder's own counters on a dedicated registry so
// the /metrics endpoint exposes only what the app emits plus the
// standard process and Go collectors.
type Metrics struct {
	registry *prometheus.Registry

	FramesComposed    prometheus.Counter
	SegmentsBuffered  prometheus.Counter
	SegmentBytes      prometheus.Counter
	RecordingsStarted prometheus.Counter
	RecordingsDone    prometheus.Counter
	Failures          *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		FramesComposed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "omnirec",
			Name:      "frames_composed_total",
			Help:      "Composite frames rendered.",
		}),
		SegmentsBuffered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "omnirec",
			Name:      "segments_buffered_total",
			Help:      "Container segments buffered for delivery.",
		}),
		SegmentBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "omnirec",
			Name:      "segment_bytes_total",
			Help:      "Total bytes of buffered container segments.",
		}),
		RecordingsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "omnirec",
			Name:      "recordings_started_total",
			Help:      "Recording sessions started.",
		}),
		RecordingsDone: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "omnirec",
			Name:      "recordings_finished_total",
			Help:      "Recording sessions finished.",
		}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "omnirec",
			Name:      "failures_total",
			Help:      "Failures by stage.",
		}, []string{"stage"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.FramesComposed,
		m.SegmentsBuffered,
		m.SegmentBytes,
		m.RecordingsStarted,
		m.RecordingsDone,
		m.Failures,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

package tracking

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Frame results used as the "result" label.
const (
	resultSubmitted  = "submitted"
	resultProcessed  = "processed"
	resultSkipped    = "skipped"
	resultSuperseded = "superseded"
	resultFailed     = "failed"
)

// Metrics holds Prometheus metrics for the tracking pipeline.
type Metrics struct {
	FramesTotal        *prometheus.CounterVec
	HandsRejectedTotal *prometheus.CounterVec
	ProcessingSeconds  prometheus.Histogram
	LatencySeconds     prometheus.Histogram
	SnapshotSeq        prometheus.Gauge
	HandsTracked       prometheus.Gauge
}

// NewMetrics creates and registers the pipeline metrics once per process.
//
// Metrics:
//   - mudra_frames_total{result} - frames by outcome
//   - mudra_hands_rejected_total{reason} - detections dropped before classification
//   - mudra_processing_seconds - per-frame worker time
//   - mudra_latency_seconds - capture to publish time
//   - mudra_snapshot_seq - sequence number of the current snapshot
//   - mudra_hands_tracked - hands in the current snapshot
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			FramesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "mudra_frames_total",
					Help: "Total number of frames by pipeline outcome",
				},
				[]string{"result"},
			),

			HandsRejectedTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "mudra_hands_rejected_total",
					Help: "Total number of detected hands dropped before classification",
				},
				[]string{"reason"},
			),

			ProcessingSeconds: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "mudra_processing_seconds",
					Help:    "Worker time spent on one frame in seconds",
					Buckets: prometheus.ExponentialBuckets(0.001, 2, 10), // 1ms to ~1s
				},
			),

			LatencySeconds: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "mudra_latency_seconds",
					Help:    "Time from frame capture to snapshot publish in seconds",
					Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
				},
			),

			SnapshotSeq: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "mudra_snapshot_seq",
					Help: "Sequence number of the current snapshot",
				},
			),

			HandsTracked: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "mudra_hands_tracked",
					Help: "Number of hands in the current snapshot",
				},
			),
		}
	})

	return globalMetrics
}

func (m *Metrics) recordFrame(result string) {
	m.FramesTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) recordRejected(reason string) {
	m.HandsRejectedTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) recordPublish(s *Snapshot) {
	m.FramesTotal.WithLabelValues(resultProcessed).Inc()
	m.ProcessingSeconds.Observe(s.ProcessingTime.Seconds())
	m.LatencySeconds.Observe(s.Latency.Seconds())
	m.SnapshotSeq.Set(float64(s.Seq))
	m.HandsTracked.Set(float64(len(s.Hands)))
}

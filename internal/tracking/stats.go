package tracking

import (
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

// processingSamples is the length of the rolling processing-time mean.
const processingSamples = 30

// Stats are the pipeline counters.
type Stats struct {
	FramesSubmitted    uint64        `json:"frames_submitted"`
	FramesProcessed    uint64        `json:"frames_processed"`
	FramesSkipped      uint64        `json:"frames_skipped"`
	FramesSuperseded   uint64        `json:"frames_superseded"`
	FramesFailed       uint64        `json:"frames_failed"`
	HandsRejected      uint64        `json:"hands_rejected"`
	AvgProcessingTime  time.Duration `json:"avg_processing_time"`
	LastProcessingTime time.Duration `json:"last_processing_time"`
	LastLatency        time.Duration `json:"last_latency"`
}

// SkipRatio is the share of worker iterations that found no new frame.
func (s Stats) SkipRatio() float64 {
	total := s.FramesSkipped + s.FramesProcessed
	if total == 0 {
		return 0
	}
	return float64(s.FramesSkipped) / float64(total)
}

type statsTracker struct {
	mu      sync.Mutex
	s       Stats
	samples []float64
	next    int
}

func (t *statsTracker) snapshot() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.s
}

func (t *statsTracker) submitted(superseded bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.s.FramesSubmitted++
	if superseded {
		t.s.FramesSuperseded++
	}
}

func (t *statsTracker) skipped() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.s.FramesSkipped++
}

func (t *statsTracker) failed(rejected int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.s.FramesFailed++
	t.s.HandsRejected += uint64(rejected)
}

func (t *statsTracker) processed(processing, latency time.Duration, rejected int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.s.FramesProcessed++
	t.s.HandsRejected += uint64(rejected)
	t.s.LastProcessingTime = processing
	t.s.LastLatency = latency

	if len(t.samples) < processingSamples {
		t.samples = append(t.samples, float64(processing))
	} else {
		t.samples[t.next] = float64(processing)
		t.next = (t.next + 1) % processingSamples
	}
	t.s.AvgProcessingTime = time.Duration(stat.Mean(t.samples, nil))
}

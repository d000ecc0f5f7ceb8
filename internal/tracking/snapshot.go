package tracking

import (
	"sync/atomic"
	"time"

	"github.com/ayusman/mudra/internal/gesture"
)

// Snapshot is one published tracking result. It is immutable once published.
type Snapshot struct {
	Seq            uint64                 `json:"seq"`
	FrameTime      time.Time              `json:"frame_time"`
	PublishedAt    time.Time              `json:"published_at"`
	Hands          []gesture.HandAnalysis `json:"hands"`
	Latency        time.Duration          `json:"latency"`
	ProcessingTime time.Duration          `json:"processing_time"`
}

// doubleBuffer hands snapshots from the single worker to any number of
// readers without locks. The writer fills the inactive slot and then flips
// state; readers retry when state moved while they were reading.
type doubleBuffer struct {
	slots [2]atomic.Pointer[Snapshot]
	// state is generation<<1 | active slot index.
	state atomic.Uint64
}

// publish must only be called from one goroutine.
func (b *doubleBuffer) publish(s *Snapshot) {
	st := b.state.Load()
	next := 1 - st&1
	b.slots[next].Store(s)
	b.state.Store((st>>1+1)<<1 | next)
}

// load returns the active snapshot, or nil before the first publish.
func (b *doubleBuffer) load() *Snapshot {
	for {
		st := b.state.Load()
		s := b.slots[st&1].Load()
		if b.state.Load() == st {
			return s
		}
	}
}

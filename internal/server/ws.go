package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/server/api"
)

const writeWait = 2 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// SnapshotStream pushes each new tracking snapshot to WebSocket clients.
// Clients that fall behind only see the newest snapshot.
type SnapshotStream struct {
	tracker  api.Tracker
	interval time.Duration
	log      *zap.Logger
}

// NewSnapshotStream creates a stream polling t every interval.
func NewSnapshotStream(t api.Tracker, interval time.Duration, log *zap.Logger) *SnapshotStream {
	return &SnapshotStream{tracker: t, interval: interval, log: log}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *SnapshotStream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// Reads are only used to notice the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var lastSeq uint64
	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		snap, ok := h.tracker.Latest()
		if !ok || snap.Seq == lastSeq {
			continue
		}
		lastSeq = snap.Seq

		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(snap); err != nil {
			h.log.Debug("stream client dropped", zap.Error(err))
			return
		}
	}
}

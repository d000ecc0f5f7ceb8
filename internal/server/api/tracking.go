package api

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/logging"
	"github.com/ayusman/mudra/internal/tracking"
)

// Tracker is the consumer side of the tracking orchestrator.
type Tracker interface {
	Latest() (tracking.Snapshot, bool)
	Stats() tracking.Stats
	Config() config.Tracking
	SetConfig(config.Tracking) error
	State() tracking.State
}

// TrackingHandler serves /api/snapshot, /api/stats and /api/config.
type TrackingHandler struct {
	tracker Tracker
	persist func(config.Tracking) error
	log     *zap.Logger
}

// NewTrackingHandler creates a TrackingHandler. persist, when set, is called
// after every accepted config update.
func NewTrackingHandler(t Tracker, persist func(config.Tracking) error, log *zap.Logger) *TrackingHandler {
	return &TrackingHandler{tracker: t, persist: persist, log: logging.OrNop(log)}
}

// ServeHTTP routes on the request path.
func (h *TrackingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/snapshot":
		h.snapshot(w, r)
	case "/api/stats":
		h.stats(w, r)
	case "/api/config":
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, h.tracker.Config())
		case http.MethodPut:
			h.updateConfig(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	default:
		http.NotFound(w, r)
	}
}

type statsResponse struct {
	tracking.Stats
	SkipRatio float64 `json:"skip_ratio"`
	State     string  `json:"state"`
}

// snapshot handles GET /api/snapshot. It answers 204 until the first frame
// has been processed.
func (h *TrackingHandler) snapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snap, ok := h.tracker.Latest()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// stats handles GET /api/stats.
func (h *TrackingHandler) stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s := h.tracker.Stats()
	writeJSON(w, http.StatusOK, statsResponse{
		Stats:     s,
		SkipRatio: s.SkipRatio(),
		State:     h.tracker.State().String(),
	})
}

// updateConfig handles PUT /api/config. Fields missing from the body keep
// their current values.
func (h *TrackingHandler) updateConfig(w http.ResponseWriter, r *http.Request) {
	cfg := h.tracker.Config()
	if err := decodeBody(w, r, &cfg); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := h.tracker.SetConfig(cfg); err != nil {
		if errors.Is(err, config.ErrInvalid) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to apply config")
		return
	}

	if h.persist != nil {
		if err := h.persist(cfg); err != nil {
			h.log.Warn("failed to persist tracking config", zap.Error(err))
		}
	}

	writeJSON(w, http.StatusOK, h.tracker.Config())
}

package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ayusman/mudra/internal/store"
)

// SessionHandler handles HTTP requests for recorded sessions.
type SessionHandler struct {
	store *store.Store
}

// NewSessionHandler creates a new SessionHandler with the given store.
func NewSessionHandler(s *store.Store) *SessionHandler {
	return &SessionHandler{store: s}
}

// ServeHTTP routes requests for /api/sessions, /api/sessions/{id} and
// /api/sessions/{id}/frames.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/sessions")
	path = strings.Trim(path, "/")

	if path == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)
		return
	}

	id, rest, _ := strings.Cut(path, "/")
	switch {
	case rest == "":
		switch r.Method {
		case http.MethodGet:
			h.get(w, r, id)
		case http.MethodDelete:
			h.delete(w, r, id)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case rest == "frames":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.frames(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

type listSessionsResponse struct {
	Sessions []*store.Session `json:"sessions"`
}

type listFramesResponse struct {
	Session *store.Session    `json:"session"`
	Frames  []store.HandFrame `json:"frames"`
}

// list handles GET /api/sessions.
func (h *SessionHandler) list(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.Sessions().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}
	if sessions == nil {
		sessions = []*store.Session{}
	}
	writeJSON(w, http.StatusOK, listSessionsResponse{Sessions: sessions})
}

// get handles GET /api/sessions/{id}.
func (h *SessionHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	sess, err := h.store.Sessions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// delete handles DELETE /api/sessions/{id}.
func (h *SessionHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Sessions().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// frames handles GET /api/sessions/{id}/frames?limit=N.
func (h *SessionHandler) frames(w http.ResponseWriter, r *http.Request, id string) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	sess, err := h.store.Sessions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}

	frames, err := h.store.Frames().ListBySession(id, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list frames")
		return
	}
	if frames == nil {
		frames = []store.HandFrame{}
	}
	writeJSON(w, http.StatusOK, listFramesResponse{Session: sess, Frames: frames})
}

// RecordingHandler starts and stops recording on /api/recording.
type RecordingHandler struct {
	recorder *store.Recorder
}

// NewRecordingHandler creates a RecordingHandler for rec.
func NewRecordingHandler(rec *store.Recorder) *RecordingHandler {
	return &RecordingHandler{recorder: rec}
}

type startRecordingRequest struct {
	Label string `json:"label"`
}

type recordingResponse struct {
	Recording bool           `json:"recording"`
	Session   *store.Session `json:"session,omitempty"`
}

// ServeHTTP handles GET (status), POST (start) and DELETE (stop).
func (h *RecordingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		sess := h.recorder.Active()
		writeJSON(w, http.StatusOK, recordingResponse{Recording: sess != nil, Session: sess})

	case http.MethodPost:
		var req startRecordingRequest
		if r.ContentLength != 0 {
			if err := decodeBody(w, r, &req); err != nil {
				writeError(w, http.StatusBadRequest, "Invalid request body")
				return
			}
		}
		sess, err := h.recorder.Begin(req.Label)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to start recording")
			return
		}
		writeJSON(w, http.StatusCreated, recordingResponse{Recording: true, Session: sess})

	case http.MethodDelete:
		sess, err := h.recorder.End()
		if err != nil {
			if errors.Is(err, store.ErrNotRecording) {
				writeError(w, http.StatusConflict, "Not recording")
				return
			}
			writeError(w, http.StatusInternalServerError, "Failed to stop recording")
			return
		}
		writeJSON(w, http.StatusOK, recordingResponse{Recording: false, Session: sess})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"synergy/internal/session"
	"synergy/internal/share"

	"github.com/go-chi/chi/v5"
)

const maxInputBody = 1 << 10

func (h *routerHandlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (h *routerHandlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]interface{}{
		"sessions":    h.sessions.Count(),
		"rateLimiter": h.rateLimiter.GetStats(),
	}
	if h.eventLog != nil {
		stats["eventLog"] = h.eventLog.GetStats()
	}
	writeJSON(w, stats)
}

func (h *routerHandlers) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Create()
	if errors.Is(err, session.ErrSessionLimit) {
		RecordConnectionRejected("session_limit")
		writeError(w, "Session limit reached", http.StatusServiceUnavailable)
		return
	}
	if errors.Is(err, session.ErrManagerStopped) {
		writeError(w, "Server is shutting down", http.StatusServiceUnavailable)
		return
	}
	if err != nil {
		log.Printf("❌ Session create failed: %v", err)
		writeError(w, "Could not create session", http.StatusInternalServerError)
		return
	}

	writeJSONStatus(w, http.StatusCreated, map[string]interface{}{
		"id":    s.ID,
		"state": s.Snapshot(),
	})
}

func (h *routerHandlers) handleListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.sessions.List())
}

// lookupSession resolves {id} or writes a 404
func (h *routerHandlers) lookupSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := h.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "Session not found", http.StatusNotFound)
		return nil, false
	}
	return s, true
}

func (h *routerHandlers) handleGetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookupSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, s.Snapshot())
}

func (h *routerHandlers) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Remove(chi.URLParam(r, "id")); err != nil {
		writeError(w, "Session not found", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]bool{"success": true})
}

// inputRequest is the body of POST /input and of WebSocket messages
type inputRequest struct {
	Action string `json:"action"`
}

func (h *routerHandlers) handleInput(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookupSession(w, r)
	if !ok {
		return
	}

	var req inputRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxInputBody)).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	action, err := session.ParseAction(req.Action)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.Apply(action); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, map[string]interface{}{
		"success": true,
		"state":   s.Snapshot(),
	})
}

func (h *routerHandlers) handleShare(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookupSession(w, r)
	if !ok {
		return
	}

	score := s.Snapshot().Score
	writeJSON(w, map[string]interface{}{
		"score": score,
		"text":  share.Text(score),
		"url":   share.IntentURL(score),
	})
}

func (h *routerHandlers) handleFrame(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookupSession(w, r)
	if !ok {
		return
	}

	start := time.Now()
	var buf bytes.Buffer
	if err := h.renderer.EncodePNG(&buf, s.Snapshot()); err != nil {
		log.Printf("❌ Frame render failed for %s: %v", s.ID, err)
		writeError(w, "Render failed", http.StatusInternalServerError)
		return
	}
	RecordRender(time.Since(start))

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.Bytes())
}

// Helper functions (package-level for reuse)

func writeJSON(w http.ResponseWriter, data interface{}) {
	writeJSONStatus(w, http.StatusOK, data)
}

func writeJSONStatus(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	writeJSONStatus(w, code, map[string]string{"error": message})
}

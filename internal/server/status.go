package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/foxseedlab/soapscribe/internal/apperror"
	"github.com/foxseedlab/soapscribe/internal/session"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	setNoCacheHeaders(w)
	cred, err := s.issuer.Issue(r.Context())
	if err != nil {
		writeError(w, r, err, "Failed to issue transcription token")
		return
	}
	s.metrics.RecordTokenIssued(cred.Ephemeral)
	writeJSON(w, http.StatusOK, map[string]any{"key": cred.Key})
}

func (s *Server) handleSessionTranscript(w http.ResponseWriter, r *http.Request) {
	snap, err := s.sessions.Get(chi.URLParam(r, "id"))
	if errors.Is(err, session.ErrSessionNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Recording session not found"})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	snap, err := s.sessions.Close(chi.URLParam(r, "id"))
	s.metrics.SetActiveSessions(s.sessions.ActiveCount())
	if errors.Is(err, session.ErrSessionNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Recording session not found"})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleDebugSTT is a debugging surface: failures include the raw
// upstream body.
func (s *Server) handleDebugSTT(w http.ResponseWriter, r *http.Request) {
	name := s.forwarder.RecognizerName()
	if s.checker == nil {
		writeJSON(w, http.StatusNotImplemented, errorBody{Error: "Connectivity check is not supported", Details: name})
		return
	}
	if err := s.checker.CheckConnectivity(r.Context()); err != nil {
		appErr := apperror.As(err)
		details := appErr.Body
		if details == "" {
			details = err.Error()
		}
		slog.Warn("speech-to-text connectivity check failed", "transcriber", name, "error", err)
		writeJSON(w, apperror.HTTPStatus(err), errorBody{Error: "Speech-to-text connectivity check failed", Details: details})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "transcriber": name})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	entry, err := s.notes.CurrentModel(r.Context())
	if err != nil {
		status = "degraded"
		slog.Warn("health: generation model unavailable", "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      status,
		"transcriber": s.forwarder.RecognizerName(),
		"model":       entry.Value,
		"modelStale":  entry.Stale,
	})
}

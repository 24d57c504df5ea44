package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/foxseedlab/soapscribe/internal/noteformat"
	"github.com/foxseedlab/soapscribe/internal/notegen"
	"github.com/foxseedlab/soapscribe/internal/prompt"
	"github.com/foxseedlab/soapscribe/internal/session"
)

type generateNoteRequest struct {
	PatientID   string `json:"patientId"`
	PatientName string `json:"patientName"`
	VisitType   string `json:"visitType"`
	Transcript  string `json:"transcript"`
	// SessionID supplies the transcript from a recording session when
	// Transcript is empty.
	SessionID   string `json:"sessionId"`
	PriorNote   string `json:"priorNote"`
	Preferences string `json:"preferences"`
}

type generateNoteResponse struct {
	NoteID     string              `json:"noteId,omitempty"`
	Model      string              `json:"model"`
	ModelStale bool                `json:"modelStale"`
	Note       noteformat.SoapNote `json:"note"`
	CreatedAt  time.Time           `json:"createdAt"`
}

type formatNoteRequest struct {
	Raw string `json:"raw"`
}

func (s *Server) handleGenerateNote(w http.ResponseWriter, r *http.Request) {
	var req generateNoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, "")
		return
	}

	transcript := req.Transcript
	if strings.TrimSpace(transcript) == "" && strings.TrimSpace(req.SessionID) != "" {
		snap, err := s.sessions.Get(strings.TrimSpace(req.SessionID))
		if errors.Is(err, session.ErrSessionNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody{Error: "Recording session not found"})
			return
		}
		transcript = snap.Transcript
	}

	visitType := prompt.VisitType(strings.TrimSpace(req.VisitType))
	started := time.Now()
	result, err := s.notes.Generate(r.Context(), notegen.Request{
		PatientID:   strings.TrimSpace(req.PatientID),
		PatientName: req.PatientName,
		VisitType:   visitType,
		Transcript:  transcript,
		PriorNote:   req.PriorNote,
		Preferences: req.Preferences,
	})
	s.metrics.RecordNoteGeneration(visitTypeLabel(visitType), outcomeLabel(err), time.Since(started).Seconds())
	if err != nil {
		writeError(w, r, err, "Failed to generate note")
		return
	}

	writeJSON(w, http.StatusOK, generateNoteResponse{
		NoteID:     result.NoteID,
		Model:      result.Model,
		ModelStale: result.ModelStale,
		Note:       result.Note,
		CreatedAt:  result.CreatedAt,
	})
}

func (s *Server) handleFormatNote(w http.ResponseWriter, r *http.Request) {
	var req formatNoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, noteformat.NewSoapNote(req.Raw))
}

func visitTypeLabel(v prompt.VisitType) string {
	if v.Valid() {
		return string(v)
	}
	return "unknown"
}

func outcomeLabel(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

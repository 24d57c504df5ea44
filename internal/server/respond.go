package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/foxseedlab/soapscribe/internal/apperror"
)

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps err to a status and a client-safe body. Upstream bodies
// and configuration detail stay in the server log.
func writeError(w http.ResponseWriter, r *http.Request, err error, message string) {
	appErr := apperror.As(err)
	status := apperror.HTTPStatus(err)
	body := errorBody{Error: message}
	requestID := requestIDFrom(r.Context())

	switch appErr.Kind {
	case apperror.KindValidation:
		body.Error = appErr.Message
		body.Details = appErr.Code
		slog.Debug("request rejected", "code", appErr.Code, "error", err, "request_id", requestID)
	case apperror.KindUpstream:
		body.Details = appErr.Message
		slog.Warn(message, "status_code", appErr.StatusCode, "upstream_body", appErr.Body, "error", err, "request_id", requestID)
	default:
		slog.Error(message, "kind", appErr.Kind, "error", err, "request_id", requestID)
	}
	writeJSON(w, status, body)
}

func setNoCacheHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	h.Set("Pragma", "no-cache")
	h.Set("Expires", "0")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes))
	if err := dec.Decode(v); err != nil {
		return apperror.ValidationCause(apperror.CodeInvalidJSON, "Request body must be valid JSON", err)
	}
	return nil
}

type requestIDKey struct{}

func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

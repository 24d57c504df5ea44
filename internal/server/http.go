package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/foxseedlab/soapscribe/internal/audio"
	"github.com/foxseedlab/soapscribe/internal/credential"
	"github.com/foxseedlab/soapscribe/internal/metrics"
	"github.com/foxseedlab/soapscribe/internal/notegen"
	"github.com/foxseedlab/soapscribe/internal/session"
	"github.com/foxseedlab/soapscribe/internal/transcriber"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const (
	maxAudioUploadBytes = 25 << 20
	maxJSONBodyBytes    = 2 << 20
	requestIDHeader     = "X-Request-Id"
)

type Deps struct {
	Forwarder      *transcriber.Forwarder
	Encoder        *audio.Encoder
	PacketDecoders audio.PacketDecoderFactory
	Sessions       *session.Manager
	Notes          *notegen.Service
	Issuer         *credential.Issuer
	// Checker is nil when the configured recognizer has no connectivity check.
	Checker transcriber.ConnectivityChecker
	Metrics *metrics.Metrics
}

// Server exposes the transcription and note pipeline over HTTP.
type Server struct {
	forwarder      *transcriber.Forwarder
	encoder        *audio.Encoder
	packetDecoders audio.PacketDecoderFactory
	sessions       *session.Manager
	notes          *notegen.Service
	issuer         *credential.Issuer
	checker        transcriber.ConnectivityChecker
	metrics        *metrics.Metrics
	router         chi.Router
}

func New(deps Deps) *Server {
	s := &Server{
		forwarder:      deps.Forwarder,
		encoder:        deps.Encoder,
		packetDecoders: deps.PacketDecoders,
		sessions:       deps.Sessions,
		notes:          deps.Notes,
		issuer:         deps.Issuer,
		checker:        deps.Checker,
		metrics:        deps.Metrics,
	}
	s.router = s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(s.withRequestID, s.withRecover, s.withMetrics)

	r.Post("/transcribe", s.handleTranscribe)
	r.Post("/transcribe/samples", s.handleTranscribeSamples)
	r.Get("/token", s.handleToken)

	r.Post("/notes/generate", s.handleGenerateNote)
	r.Post("/notes/format", s.handleFormatNote)

	r.Get("/sessions/{id}/transcript", s.handleSessionTranscript)
	r.Delete("/sessions/{id}", s.handleCloseSession)

	r.Get("/debug/stt", s.handleDebugSTT)
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "Method not allowed"})
	})
	return r
}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(withRequestID(r.Context(), id)))
	})
}

func (s *Server) withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				slog.Error("handler panicked", "panic", fmt.Sprint(rec), "path", r.URL.Path, "request_id", requestIDFrom(r.Context()))
				writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Internal server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// withMetrics records request count and latency labelled with the matched
// route pattern, so path parameters do not explode label cardinality.
func (s *Server) withMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(ww, r)

		endpoint := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			endpoint = rctx.RoutePattern()
		}
		elapsed := time.Since(started)
		s.metrics.RecordHTTPRequest(r.Method, endpoint, fmt.Sprintf("%d", ww.statusCode), elapsed.Seconds())
		if ww.statusCode >= 400 {
			errorType := "client_error"
			if ww.statusCode >= 500 {
				errorType = "server_error"
			}
			s.metrics.RecordHTTPError(r.Method, endpoint, errorType)
		}
		if endpoint != "/metrics" && endpoint != "/health" {
			slog.Info("http request", "method", r.Method, "endpoint", endpoint, "status_code", ww.statusCode, "elapsed_ms", elapsed.Milliseconds(), "request_id", requestIDFrom(r.Context()))
		}
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

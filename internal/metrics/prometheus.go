package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the scribe backend. Each
// instance owns its registry so several can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	// Transcription
	TranscriptionRequests  prometheus.Counter
	TranscriptionSuccesses prometheus.Counter
	TranscriptionFailures  prometheus.Counter
	TranscriptionSkipped   prometheus.Counter
	TranscriptionDuration  prometheus.Histogram
	ChunkSize              prometheus.Histogram

	// Note generation
	NoteGenerations        *prometheus.CounterVec
	NoteGenerationDuration prometheus.Histogram

	// Sessions and credentials
	ActiveSessions prometheus.Gauge
	TokensIssued   *prometheus.CounterVec

	// HTTP API
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		TranscriptionRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "soapscribe_transcription_requests_total",
			Help: "Total number of audio chunks received for transcription",
		}),
		TranscriptionSuccesses: factory.NewCounter(prometheus.CounterOpts{
			Name: "soapscribe_transcription_successes_total",
			Help: "Total number of chunks transcribed by the speech provider",
		}),
		TranscriptionFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "soapscribe_transcription_failures_total",
			Help: "Total number of failed transcription requests",
		}),
		TranscriptionSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "soapscribe_transcription_skipped_total",
			Help: "Total number of chunks below the forwarding threshold",
		}),
		TranscriptionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "soapscribe_transcription_duration_seconds",
			Help:    "Duration of transcription requests",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~50s
		}),
		ChunkSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "soapscribe_chunk_size_bytes",
			Help:    "Size of received audio chunks in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 2, 12), // 1KB to ~4MB
		}),

		NoteGenerations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "soapscribe_note_generations_total",
			Help: "Total number of SOAP note generation attempts",
		}, []string{"visit_type", "outcome"}),
		NoteGenerationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "soapscribe_note_generation_duration_seconds",
			Help:    "Duration of SOAP note generation",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 9), // 0.5s to ~2 minutes
		}),

		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "soapscribe_active_sessions",
			Help: "Current number of open recording sessions",
		}),
		TokensIssued: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "soapscribe_tokens_issued_total",
			Help: "Total number of speech credentials handed to clients",
		}, []string{"kind"}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "soapscribe_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "soapscribe_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "soapscribe_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) RecordTranscriptionRequest(sizeBytes int) {
	m.TranscriptionRequests.Inc()
	m.ChunkSize.Observe(float64(sizeBytes))
}

func (m *Metrics) RecordTranscriptionSkipped() {
	m.TranscriptionSkipped.Inc()
}

func (m *Metrics) RecordTranscriptionSuccess(durationSeconds float64) {
	m.TranscriptionSuccesses.Inc()
	m.TranscriptionDuration.Observe(durationSeconds)
}

func (m *Metrics) RecordTranscriptionFailure(durationSeconds float64) {
	m.TranscriptionFailures.Inc()
	m.TranscriptionDuration.Observe(durationSeconds)
}

// RecordNoteGeneration records one generation attempt; outcome is
// "success" or "failure".
func (m *Metrics) RecordNoteGeneration(visitType, outcome string, durationSeconds float64) {
	m.NoteGenerations.WithLabelValues(visitType, outcome).Inc()
	m.NoteGenerationDuration.Observe(durationSeconds)
}

func (m *Metrics) SetActiveSessions(count int) {
	m.ActiveSessions.Set(float64(count))
}

func (m *Metrics) RecordTokenIssued(ephemeral bool) {
	kind := "raw"
	if ephemeral {
		kind = "ephemeral"
	}
	m.TokensIssued.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}

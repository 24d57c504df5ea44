package server

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/foxseedlab/soapscribe/internal/apperror"
	"github.com/foxseedlab/soapscribe/internal/audio"
	"github.com/foxseedlab/soapscribe/internal/config"
	"github.com/foxseedlab/soapscribe/internal/credential"
	"github.com/foxseedlab/soapscribe/internal/metrics"
	"github.com/foxseedlab/soapscribe/internal/notegen"
	"github.com/foxseedlab/soapscribe/internal/prompt"
	"github.com/foxseedlab/soapscribe/internal/repository"
	"github.com/foxseedlab/soapscribe/internal/session"
	"github.com/foxseedlab/soapscribe/internal/transcriber"
	"github.com/foxseedlab/soapscribe/internal/webhook"
	"github.com/stretchr/testify/suite"
)

type fakeRecognizer struct {
	mu       sync.Mutex
	calls    int
	gotMIME  string
	results  []transcriber.Result
	err      error
	checkErr error
}

func (f *fakeRecognizer) Recognize(_ context.Context, _ []byte, mimeType string) (transcriber.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.gotMIME = mimeType
	if f.err != nil {
		return transcriber.Result{}, f.err
	}
	if len(f.results) == 0 {
		return transcriber.Result{}, nil
	}
	res := f.results[0]
	f.results = f.results[1:]
	return res, nil
}

func (f *fakeRecognizer) Name() string { return "fake" }

func (f *fakeRecognizer) CheckConnectivity(context.Context) error { return f.checkErr }

// fakeFrameEncoder emits one byte per PCM sample so encoded size is predictable.
type fakeFrameEncoder struct{}

func (fakeFrameEncoder) Encode(block []int16) ([]byte, error) { return make([]byte, len(block)), nil }
func (fakeFrameEncoder) Flush() ([]byte, error)               { return []byte{0xFF}, nil }

type fakeRepository struct {
	created []repository.CreateNoteInput
}

func (f *fakeRepository) CreateNote(_ context.Context, input repository.CreateNoteInput) (*repository.Note, error) {
	f.created = append(f.created, input)
	return &repository.Note{ID: "note-1", CreatedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}, nil
}

func (f *fakeRepository) GetLatestNoteByPatient(context.Context, string) (*repository.Note, error) {
	return nil, nil
}

func (f *fakeRepository) GetSetting(context.Context, string) (string, bool, error) {
	return "", false, nil
}

type fakeGenerator struct {
	messages []prompt.Message
	text     string
}

func (f *fakeGenerator) Generate(_ context.Context, _ string, messages []prompt.Message) (string, error) {
	f.messages = messages
	return f.text, nil
}

type noopWebhook struct{}

func (noopWebhook) SendNote(context.Context, webhook.NotePayload) error { return nil }

type fakeMinter struct{ key string }

func (f fakeMinter) MintTemporaryKey(context.Context, time.Duration) (string, error) {
	return f.key, nil
}

type ServerSuite struct {
	suite.Suite
	recognizer *fakeRecognizer
	generator  *fakeGenerator
	repo       *fakeRepository
	sessions   *session.Manager
	mode       config.RuntimeMode
	server     *httptest.Server
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerSuite))
}

func (s *ServerSuite) SetupTest() {
	s.recognizer = &fakeRecognizer{}
	s.generator = &fakeGenerator{text: "## Subjective\nPatient reports improved mood."}
	s.repo = &fakeRepository{}
	s.sessions = session.NewManager(time.Minute)
	s.mode = config.RuntimeModeLocal
	s.start()
}

func (s *ServerSuite) TearDownTest() {
	s.server.Close()
	s.server = nil
}

func (s *ServerSuite) start() {
	if s.server != nil {
		s.server.Close()
	}
	encoder, err := audio.NewEncoder(16000, func(int, int) (audio.FrameEncoder, error) {
		return fakeFrameEncoder{}, nil
	})
	s.Require().NoError(err)
	assembler, err := prompt.NewAssembler()
	s.Require().NoError(err)

	srv := New(Deps{
		Forwarder: transcriber.NewForwarder(s.recognizer, time.Second),
		Encoder:   encoder,
		PacketDecoders: func(rate int) (audio.PacketDecoder, error) {
			return nil, apperror.Configuration("opus decoding is unavailable", nil)
		},
		Sessions: s.sessions,
		Notes:    notegen.NewService(assembler, s.generator, notegen.NewModelCache(s.repo, "gpt-4o", time.Second), s.repo, noopWebhook{}),
		Issuer:   credential.NewIssuer(s.mode, "raw-key", fakeMinter{key: "temp-key"}, time.Hour),
		Checker:  s.recognizer,
		Metrics:  metrics.NewMetrics(),
	})
	s.server = httptest.NewServer(srv.Handler())
}

func (s *ServerSuite) postAudio(data []byte, sessionID string) *http.Response {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if data != nil {
		part, err := mw.CreateFormFile(audioFormField, "chunk.webm")
		s.Require().NoError(err)
		_, err = part.Write(data)
		s.Require().NoError(err)
	}
	if sessionID != "" {
		s.Require().NoError(mw.WriteField(sessionIDField, sessionID))
	}
	s.Require().NoError(mw.Close())

	resp, err := http.Post(s.server.URL+"/transcribe", mw.FormDataContentType(), &body)
	s.Require().NoError(err)
	return resp
}

func (s *ServerSuite) postJSON(path string, v any) *http.Response {
	b, err := json.Marshal(v)
	s.Require().NoError(err)
	resp, err := http.Post(s.server.URL+path, "application/json", bytes.NewReader(b))
	s.Require().NoError(err)
	return resp
}

func decodeBody[T any](s *ServerSuite, resp *http.Response) T {
	defer resp.Body.Close()
	var v T
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (s *ServerSuite) TestTranscribe_MissingAudio() {
	resp := s.postAudio(nil, "")
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	body := decodeBody[errorBody](s, resp)
	s.Equal(apperror.CodeMissingAudio, body.Details)
	s.Zero(s.recognizer.calls)
}

func (s *ServerSuite) TestTranscribe_EmptyAudio() {
	resp := s.postAudio([]byte{}, "")
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	s.Equal(apperror.CodeEmptyAudio, decodeBody[errorBody](s, resp).Details)
}

func (s *ServerSuite) TestTranscribe_SmallChunkReturnsEmptyTranscript() {
	resp := s.postAudio(bytes.Repeat([]byte{1}, 999), "")
	s.Equal(http.StatusOK, resp.StatusCode)
	body := decodeBody[transcribeResponse](s, resp)
	s.Require().Len(body.Results.Channels, 1)
	s.Equal("", body.Results.Channels[0].Alternatives[0].Transcript)
	s.Zero(body.Results.Channels[0].Alternatives[0].Confidence)
	s.Zero(s.recognizer.calls)
}

func (s *ServerSuite) TestTranscribe_UpstreamStatusPreserved() {
	s.recognizer.err = apperror.Upstream(http.StatusUnauthorized, `{"err_msg":"Invalid credentials"}`, nil)
	resp := s.postAudio(bytes.Repeat([]byte{1}, 2000), "")
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
	body := decodeBody[errorBody](s, resp)
	s.Equal("Failed to transcribe audio", body.Error)
	s.NotContains(body.Details, "Invalid credentials")
}

func (s *ServerSuite) TestTranscribe_SessionAccumulatesInOrder() {
	s.recognizer.results = []transcriber.Result{
		{Text: "Patient reports", Confidence: 0.9},
		{Text: "  ", Confidence: 0.4},
		{Text: "improved mood.", Confidence: 0.8},
	}
	var last transcribeResponse
	for range 3 {
		resp := s.postAudio(bytes.Repeat([]byte{1}, 1500), "visit-1")
		s.Require().Equal(http.StatusOK, resp.StatusCode)
		last = decodeBody[transcribeResponse](s, resp)
	}
	s.Require().NotNil(last.Session)
	s.Equal("visit-1", last.Session.ID)
	s.Equal("Patient reports improved mood.", last.Session.Transcript)
	s.Equal("improved mood.", last.Results.Channels[0].Alternatives[0].Transcript)

	resp, err := http.Get(s.server.URL + "/sessions/visit-1/transcript")
	s.Require().NoError(err)
	snap := decodeBody[session.Snapshot](s, resp)
	s.Len(snap.Segments, 2)

	req, err := http.NewRequest(http.MethodDelete, s.server.URL+"/sessions/visit-1", nil)
	s.Require().NoError(err)
	resp, err = http.DefaultClient.Do(req)
	s.Require().NoError(err)
	s.Equal(http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(s.server.URL + "/sessions/visit-1/transcript")
	s.Require().NoError(err)
	s.Equal(http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func f32Samples(n int) []byte {
	b := make([]byte, 4*n)
	for i := range n {
		v := float32(0.5 * math.Sin(float64(i)/10))
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return b
}

func (s *ServerSuite) TestTranscribeSamples_EncodesAndForwards() {
	s.recognizer.results = []transcriber.Result{{Text: "hello", Confidence: 0.7}}
	resp, err := http.Post(s.server.URL+"/transcribe/samples?sampleRate=16000&format=f32le", "application/octet-stream", bytes.NewReader(f32Samples(4000)))
	s.Require().NoError(err)
	s.Equal(http.StatusOK, resp.StatusCode)
	body := decodeBody[transcribeResponse](s, resp)
	s.Equal("hello", body.Results.Channels[0].Alternatives[0].Transcript)
	s.Equal(audio.MIMETypeMP3, s.recognizer.gotMIME)
}

func (s *ServerSuite) TestTranscribeSamples_Validation() {
	cases := []struct {
		name  string
		query string
		body  []byte
		code  string
	}{
		{name: "missing rate", query: "format=f32le", body: f32Samples(10), code: apperror.CodeInvalidSampleRate},
		{name: "misaligned", query: "sampleRate=16000&format=f32le", body: []byte{1, 2, 3}, code: apperror.CodeInvalidSamples},
		{name: "unknown format", query: "sampleRate=16000&format=flac", body: []byte{1, 2}, code: apperror.CodeUnsupportedSampleFormat},
		{name: "opus rate", query: "sampleRate=44100&format=opus", body: []byte{0, 1, 2}, code: apperror.CodeInvalidSampleRate},
		{name: "empty", query: "sampleRate=16000", body: nil, code: apperror.CodeEmptyAudio},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			resp, err := http.Post(s.server.URL+"/transcribe/samples?"+tc.query, "application/octet-stream", bytes.NewReader(tc.body))
			s.Require().NoError(err)
			s.Equal(http.StatusBadRequest, resp.StatusCode)
			s.Equal(tc.code, decodeBody[errorBody](s, resp).Details)
		})
	}
}

func (s *ServerSuite) TestToken_LocalReturnsRawKey() {
	resp, err := http.Get(s.server.URL + "/token")
	s.Require().NoError(err)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("no-store, no-cache, must-revalidate, max-age=0", resp.Header.Get("Cache-Control"))
	s.Equal("no-cache", resp.Header.Get("Pragma"))
	s.Equal("0", resp.Header.Get("Expires"))
	s.Equal("raw-key", decodeBody[map[string]string](s, resp)["key"])
}

func (s *ServerSuite) TestToken_HostedReturnsEphemeralKey() {
	s.mode = config.RuntimeModeHosted
	s.start()
	resp, err := http.Get(s.server.URL + "/token")
	s.Require().NoError(err)
	s.Equal("temp-key", decodeBody[map[string]string](s, resp)["key"])
}

func (s *ServerSuite) TestGenerateNote() {
	resp := s.postJSON("/notes/generate", map[string]string{
		"patientId":   "patient-1",
		"patientName": "Jane Doe",
		"visitType":   "followup",
		"transcript":  "Patient reports improved mood.",
	})
	s.Equal(http.StatusOK, resp.StatusCode)
	body := decodeBody[map[string]any](s, resp)
	s.Equal("note-1", body["noteId"])
	s.Equal("gpt-4o", body["model"])
	note := body["note"].(map[string]any)
	s.Contains(note["formattedHtml"], "<p><strong>Subjective</strong></p>")

	s.Require().Len(s.generator.messages, 2)
	s.True(strings.HasSuffix(s.generator.messages[1].Content, "Patient reports improved mood."))
	s.Require().Len(s.repo.created, 1)
}

func (s *ServerSuite) TestGenerateNote_UsesSessionTranscript() {
	s.recognizer.results = []transcriber.Result{{Text: "Sleeping better this week.", Confidence: 0.9}}
	resp := s.postAudio(bytes.Repeat([]byte{1}, 1500), "visit-2")
	resp.Body.Close()

	resp = s.postJSON("/notes/generate", map[string]string{
		"patientName": "Jane Doe",
		"visitType":   "initial",
		"sessionId":   "visit-2",
	})
	s.Equal(http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	s.Contains(s.generator.messages[len(s.generator.messages)-1].Content, "Sleeping better this week.")
	s.Empty(s.repo.created)
}

func (s *ServerSuite) TestGenerateNote_Validation() {
	resp, err := http.Post(s.server.URL+"/notes/generate", "application/json", strings.NewReader("{"))
	s.Require().NoError(err)
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	s.Equal(apperror.CodeInvalidJSON, decodeBody[errorBody](s, resp).Details)

	resp = s.postJSON("/notes/generate", map[string]string{"patientName": "Jane Doe", "visitType": "initial"})
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	s.Equal(apperror.CodeMissingTranscript, decodeBody[errorBody](s, resp).Details)

	resp = s.postJSON("/notes/generate", map[string]string{"sessionId": "nope", "patientName": "Jane Doe", "visitType": "initial"})
	s.Equal(http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func (s *ServerSuite) TestFormatNote() {
	resp := s.postJSON("/notes/format", map[string]string{"raw": "Mode of Communication\n: Session conducted via secure audio."})
	s.Equal(http.StatusOK, resp.StatusCode)
	body := decodeBody[map[string]string](s, resp)
	s.Equal("Mode of Communication: Session conducted via secure audio.", body["formattedPlainText"])
}

func (s *ServerSuite) TestDebugSTT_ReturnsUpstreamBody() {
	s.recognizer.checkErr = apperror.Upstream(http.StatusForbidden, `{"err_msg":"Insufficient permissions"}`, nil)
	resp, err := http.Get(s.server.URL + "/debug/stt")
	s.Require().NoError(err)
	s.Equal(http.StatusForbidden, resp.StatusCode)
	s.Contains(decodeBody[errorBody](s, resp).Details, "Insufficient permissions")
}

func (s *ServerSuite) TestHealthAndMetrics() {
	resp, err := http.Get(s.server.URL + "/health")
	s.Require().NoError(err)
	health := decodeBody[map[string]any](s, resp)
	s.Equal("ok", health["status"])
	s.Equal("fake", health["transcriber"])
	s.Equal("gpt-4o", health["model"])

	resp, err = http.Get(s.server.URL + "/metrics")
	s.Require().NoError(err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	s.Require().NoError(err)
	s.Contains(buf.String(), `soapscribe_http_requests_total{endpoint="/health",method="GET",status_code="200"} 1`)
}

func (s *ServerSuite) TestRequestIDEchoed() {
	req, err := http.NewRequest(http.MethodGet, s.server.URL+"/health", nil)
	s.Require().NoError(err)
	req.Header.Set(requestIDHeader, "req-123")
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	resp.Body.Close()
	s.Equal("req-123", resp.Header.Get(requestIDHeader))
}

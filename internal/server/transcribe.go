package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/foxseedlab/soapscribe/internal/apperror"
	"github.com/foxseedlab/soapscribe/internal/audio"
	"github.com/foxseedlab/soapscribe/internal/session"
	"github.com/foxseedlab/soapscribe/internal/transcriber"
)

const (
	audioFormField       = "audio"
	sessionIDField       = "sessionId"
	multipartMemoryBytes = 8 << 20
	minInputSampleRate   = 8000
	maxInputSampleRate   = 192000
	encodedChunkFilename = "samples.mp3"
)

var opusSampleRates = map[int]bool{8000: true, 12000: true, 16000: true, 24000: true, 48000: true}

type transcriptAlternative struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
}

type transcriptChannel struct {
	Alternatives []transcriptAlternative `json:"alternatives"`
}

type transcriptResults struct {
	Channels []transcriptChannel `json:"channels"`
}

type sessionView struct {
	ID         string `json:"id"`
	Transcript string `json:"transcript"`
}

type transcribeResponse struct {
	Results transcriptResults `json:"results"`
	Session *sessionView      `json:"session,omitempty"`
}

func newTranscribeResponse(res transcriber.Result, snap *session.Snapshot) transcribeResponse {
	resp := transcribeResponse{
		Results: transcriptResults{Channels: []transcriptChannel{{
			Alternatives: []transcriptAlternative{{Transcript: res.Text, Confidence: res.Confidence}},
		}}},
	}
	if snap != nil {
		resp.Session = &sessionView{ID: snap.ID, Transcript: snap.Transcript}
	}
	return resp
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxAudioUploadBytes)
	chunk, err := readAudioPart(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "Audio payload is too large"})
			return
		}
		writeError(w, r, err, "Failed to read audio upload")
		return
	}
	s.respondTranscription(w, r, strings.TrimSpace(r.FormValue(sessionIDField)), chunk)
}

// readAudioPart returns a nil chunk when the request carries no audio part.
func readAudioPart(r *http.Request) (*transcriber.Chunk, error) {
	if err := r.ParseMultipartForm(multipartMemoryBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		return nil, nil
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile(audioFormField)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	return &transcriber.Chunk{
		Data:     data,
		MIMEType: header.Header.Get("Content-Type"),
		Filename: header.Filename,
	}, nil
}

func (s *Server) handleTranscribeSamples(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rate, err := strconv.Atoi(q.Get("sampleRate"))
	if err != nil || rate < minInputSampleRate || rate > maxInputSampleRate {
		writeError(w, r, apperror.Validation(apperror.CodeInvalidSampleRate, "sampleRate must be an integer between 8000 and 192000"), "")
		return
	}
	format := audio.SampleFormat(strings.ToLower(strings.TrimSpace(q.Get("format"))))
	if format == "" {
		format = audio.SampleFormatF32LE
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxAudioUploadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "Audio payload is too large"})
			return
		}
		writeError(w, r, err, "Failed to read audio samples")
		return
	}
	if len(body) == 0 {
		writeError(w, r, apperror.Validation(apperror.CodeEmptyAudio, "Audio payload is empty"), "")
		return
	}

	buf, err := s.decodeSamples(format, body, rate)
	if err != nil {
		writeError(w, r, err, "Failed to decode audio samples")
		return
	}
	if len(buf.Samples) == 0 {
		writeError(w, r, apperror.Validation(apperror.CodeEmptyAudio, "Audio payload contains no samples"), "")
		return
	}

	encoded, err := s.encoder.Encode(buf)
	if err != nil {
		writeError(w, r, apperror.Unexpected("encode audio", err), "Failed to encode audio")
		return
	}
	chunk := &transcriber.Chunk{Data: encoded.Data, MIMEType: encoded.MIMEType, Filename: encodedChunkFilename}
	s.respondTranscription(w, r, strings.TrimSpace(q.Get(sessionIDField)), chunk)
}

func (s *Server) decodeSamples(format audio.SampleFormat, body []byte, rate int) (audio.SampleBuffer, error) {
	switch format {
	case audio.SampleFormatF32LE, audio.SampleFormatS16LE:
		buf, err := audio.DecodeRawSamples(format, body, rate)
		if err != nil {
			return audio.SampleBuffer{}, apperror.ValidationCause(apperror.CodeInvalidSamples, "Sample payload length does not match the sample format", err)
		}
		return buf, nil
	case audio.SampleFormatOpus:
		if !opusSampleRates[rate] {
			return audio.SampleBuffer{}, apperror.Validation(apperror.CodeInvalidSampleRate, "Opus sampleRate must be 8000, 12000, 16000, 24000 or 48000")
		}
		dec, err := s.packetDecoders(rate)
		if err != nil {
			return audio.SampleBuffer{}, apperror.Unexpected("create opus decoder", err)
		}
		return dec.Decode(body)
	default:
		return audio.SampleBuffer{}, apperror.Validation(apperror.CodeUnsupportedSampleFormat, "format must be f32le, s16le or opus")
	}
}

func (s *Server) respondTranscription(w http.ResponseWriter, r *http.Request, sessionID string, chunk *transcriber.Chunk) {
	res, snap, err := s.transcribe(r.Context(), sessionID, chunk)
	if err != nil {
		writeError(w, r, err, "Failed to transcribe audio")
		return
	}
	writeJSON(w, http.StatusOK, newTranscribeResponse(res, snap))
}

func (s *Server) transcribe(ctx context.Context, sessionID string, chunk *transcriber.Chunk) (transcriber.Result, *session.Snapshot, error) {
	if sessionID == "" || chunk == nil || len(chunk.Data) == 0 {
		res, err := s.forward(ctx, chunk)
		return res, nil, err
	}
	res, snap, err := s.sessions.Process(ctx, sessionID, func(ctx context.Context) (transcriber.Result, error) {
		return s.forward(ctx, chunk)
	})
	s.metrics.SetActiveSessions(s.sessions.ActiveCount())
	if err != nil {
		return transcriber.Result{}, nil, err
	}
	return res, &snap, nil
}

func (s *Server) forward(ctx context.Context, chunk *transcriber.Chunk) (transcriber.Result, error) {
	if chunk != nil && len(chunk.Data) > 0 {
		s.metrics.RecordTranscriptionRequest(len(chunk.Data))
	}
	started := time.Now()
	res, err := s.forwarder.Forward(ctx, chunk)
	switch {
	case apperror.IsValidation(err, ""):
	case err != nil:
		s.metrics.RecordTranscriptionFailure(time.Since(started).Seconds())
	case res.Skipped:
		s.metrics.RecordTranscriptionSkipped()
	default:
		s.metrics.RecordTranscriptionSuccess(time.Since(started).Seconds())
	}
	return res, err
}

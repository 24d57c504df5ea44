package transcriber

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/foxseedlab/soapscribe/internal/apperror"
)

type Forwarder struct {
	recognizer Recognizer
	timeout    time.Duration
}

func NewForwarder(recognizer Recognizer, timeout time.Duration) *Forwarder {
	return &Forwarder{recognizer: recognizer, timeout: timeout}
}

func (f *Forwarder) RecognizerName() string {
	return f.recognizer.Name()
}

// Forward validates chunk and sends it to the recognizer. A nil chunk is
// missing audio, a zero-length one is empty audio, and anything under
// MinForwardBytes returns an empty result without a network call.
func (f *Forwarder) Forward(ctx context.Context, chunk *Chunk) (Result, error) {
	if chunk == nil {
		return Result{}, apperror.Validation(apperror.CodeMissingAudio, "No audio file provided")
	}
	size := len(chunk.Data)
	if size == 0 {
		return Result{}, apperror.Validation(apperror.CodeEmptyAudio, "Audio file is empty")
	}
	if size < MinForwardBytes {
		slog.Debug("audio chunk below forwarding threshold", "bytes", size)
		return Result{ChunkSize: size, Skipped: true}, nil
	}

	mimeType := strings.TrimSpace(chunk.MIMEType)
	if mimeType == "" {
		mimeType = DefaultMIMEType
	}

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	started := time.Now()
	res, err := f.recognizer.Recognize(ctx, chunk.Data, mimeType)
	if err != nil {
		slog.Warn("transcription upstream call failed", "error", err, "bytes", size, "recognizer", f.recognizer.Name(), "elapsed_ms", time.Since(started).Milliseconds())
		return Result{}, err
	}
	res.Text = strings.TrimSpace(res.Text)
	if res.Text == "" {
		res.Confidence = 0
	}
	res.ChunkSize = size
	slog.Debug("transcription completed", "bytes", size, "chars", len(res.Text), "confidence", res.Confidence, "elapsed_ms", time.Since(started).Milliseconds())
	return res, nil
}

package transcriber

import "context"

// MinForwardBytes is the smallest chunk worth sending upstream. Smaller
// chunks are answered locally with an empty result.
const MinForwardBytes = 1000

const DefaultMIMEType = "application/octet-stream"

// Chunk is one uploaded audio payload. The container format is detected by
// the recognizer from the bytes themselves.
type Chunk struct {
	Data     []byte
	MIMEType string
	Filename string
}

type Result struct {
	Text       string
	Confidence float64
	ChunkSize  int
	// Skipped reports that the chunk never reached the recognizer.
	Skipped bool
}

type Recognizer interface {
	Recognize(ctx context.Context, audio []byte, mimeType string) (Result, error)
	Name() string
}

// ConnectivityChecker is implemented by recognizers that can verify their
// credentials without transcribing audio.
type ConnectivityChecker interface {
	CheckConnectivity(ctx context.Context) error
}

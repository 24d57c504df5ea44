package audio

import "time"

const MIMETypeMP3 = "audio/mpeg"

// SampleBuffer holds mono floating-point samples nominally in [-1.0, 1.0].
type SampleBuffer struct {
	Samples    []float32
	SampleRate int
}

type EncodedChunk struct {
	Data       []byte
	MIMEType   string
	ByteLength int
	CapturedAt time.Time
}

// FrameEncoder is a stateful compressed-frame encoder for one chunk.
type FrameEncoder interface {
	Encode(block []int16) ([]byte, error)
	Flush() ([]byte, error)
}

type FrameEncoderFactory func(sampleRate, channels int) (FrameEncoder, error)

// PacketDecoder turns a framed compressed stream into samples.
type PacketDecoder interface {
	Decode(framed []byte) (SampleBuffer, error)
}

type PacketDecoderFactory func(sampleRate int) (PacketDecoder, error)

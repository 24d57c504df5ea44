package audio

import (
	"bytes"
	"fmt"

	"github.com/braheezy/shine-mp3/pkg/mp3"
	"github.com/foxseedlab/soapscribe/internal/audio"
)

// MP3FrameEncoder wraps the pure-Go shine encoder. Shine encodes exactly one
// frame per pass (1152 samples per channel for MPEG-1 rates, 576 below
// 32 kHz) and reads a whole frame regardless of the slice it is given, so
// every write hands it one full frame. The final partial frame is zero
// padded on Flush.
type MP3FrameEncoder struct {
	enc      *mp3.Encoder
	frameLen int
	pending  []int16
}

func NewMP3FrameEncoder(sampleRate, channels int) (audio.FrameEncoder, error) {
	if !audio.IsSupportedSampleRate(sampleRate) {
		return nil, fmt.Errorf("%w: %d", audio.ErrUnsupportedSampleRate, sampleRate)
	}
	if channels != 1 && channels != 2 {
		return nil, fmt.Errorf("unsupported channel count %d", channels)
	}
	enc := mp3.NewEncoder(sampleRate, channels)
	return &MP3FrameEncoder{
		enc:      enc,
		frameLen: int(enc.Mpeg.GranulesPerFrame) * mp3.GRANULE_SIZE * channels,
	}, nil
}

func (e *MP3FrameEncoder) Encode(block []int16) ([]byte, error) {
	e.pending = append(e.pending, block...)
	if len(e.pending) < e.frameLen {
		return nil, nil
	}
	var out bytes.Buffer
	off := 0
	for ; len(e.pending)-off >= e.frameLen; off += e.frameLen {
		if err := e.writeFrame(&out, e.pending[off:off+e.frameLen]); err != nil {
			return nil, err
		}
	}
	e.pending = append(e.pending[:0], e.pending[off:]...)
	return out.Bytes(), nil
}

func (e *MP3FrameEncoder) Flush() ([]byte, error) {
	if len(e.pending) == 0 {
		return nil, nil
	}
	frame := make([]int16, e.frameLen)
	copy(frame, e.pending)
	e.pending = e.pending[:0]

	var out bytes.Buffer
	if err := e.writeFrame(&out, frame); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func (e *MP3FrameEncoder) writeFrame(out *bytes.Buffer, frame []int16) error {
	if err := e.enc.Write(out, frame); err != nil {
		return fmt.Errorf("mp3 write: %w", err)
	}
	return nil
}

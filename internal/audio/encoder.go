package audio

import (
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	BlockSize = 1152
	channels  = 1
)

var ErrUnsupportedSampleRate = errors.New("unsupported sample rate")

var supportedSampleRates = map[int]struct{}{
	8000: {}, 11025: {}, 12000: {},
	16000: {}, 22050: {}, 24000: {},
	32000: {}, 44100: {}, 48000: {},
}

func IsSupportedSampleRate(rate int) bool {
	_, ok := supportedSampleRates[rate]
	return ok
}

type Encoder struct {
	targetRate int
	newEncoder FrameEncoderFactory
	now        func() time.Time
}

func NewEncoder(targetRate int, newEncoder FrameEncoderFactory) (*Encoder, error) {
	if !IsSupportedSampleRate(targetRate) {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedSampleRate, targetRate)
	}
	return &Encoder{targetRate: targetRate, newEncoder: newEncoder, now: time.Now}, nil
}

func (e *Encoder) TargetRate() int {
	return e.targetRate
}

// Encode compresses buf into a single chunk. Samples are converted to PCM16,
// fed to the frame encoder in fixed-size blocks, and the encoder is flushed
// once at the end.
func (e *Encoder) Encode(buf SampleBuffer) (EncodedChunk, error) {
	samples := buf.Samples
	if buf.SampleRate > 0 && buf.SampleRate != e.targetRate {
		samples = Resample(samples, buf.SampleRate, e.targetRate)
	}
	pcm := ToPCM16(samples)

	enc, err := e.newEncoder(e.targetRate, channels)
	if err != nil {
		return EncodedChunk{}, fmt.Errorf("create frame encoder: %w", err)
	}

	var out []byte
	for start := 0; start < len(pcm); start += BlockSize {
		end := min(start+BlockSize, len(pcm))
		frames, err := enc.Encode(pcm[start:end])
		if err != nil {
			return EncodedChunk{}, fmt.Errorf("encode block at sample %d: %w", start, err)
		}
		out = append(out, frames...)
	}
	tail, err := enc.Flush()
	if err != nil {
		return EncodedChunk{}, fmt.Errorf("flush frame encoder: %w", err)
	}
	out = append(out, tail...)

	return EncodedChunk{
		Data:       out,
		MIMEType:   MIMETypeMP3,
		ByteLength: len(out),
		CapturedAt: e.now(),
	}, nil
}

// ToPCM16 scales negative samples by 32768 and non-negative samples by 32767
// so both -1.0 and 1.0 map onto the full int16 range. Out-of-range input is
// clamped and NaN becomes silence.
func ToPCM16(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		out[i] = floatToPCM16(s)
	}
	return out
}

func floatToPCM16(s float32) int16 {
	v := float64(s)
	if math.IsNaN(v) {
		return 0
	}
	if v < 0 {
		return clampPCM(int32(math.Max(v*32768, -32768)))
	}
	return clampPCM(int32(math.Min(v*32767, 32767)))
}

func clampPCM(v int32) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}

// FromPCM16 is the inverse scaling of ToPCM16.
func FromPCM16(pcm []int16) []float32 {
	out := make([]float32, len(pcm))
	for i, v := range pcm {
		if v < 0 {
			out[i] = float32(v) / 32768
		} else {
			out[i] = float32(v) / 32767
		}
	}
	return out
}

// Resample converts samples between rates with linear interpolation.
func Resample(samples []float32, fromRate, toRate int) []float32 {
	if fromRate <= 0 || toRate <= 0 || fromRate == toRate || len(samples) == 0 {
		return samples
	}
	outLen := int(int64(len(samples)) * int64(toRate) / int64(fromRate))
	if outLen == 0 {
		outLen = 1
	}
	out := make([]float32, outLen)
	step := float64(fromRate) / float64(toRate)
	last := len(samples) - 1
	for i := range out {
		pos := float64(i) * step
		idx := int(pos)
		if idx >= last {
			out[i] = samples[last]
			continue
		}
		frac := float32(pos - float64(idx))
		out[i] = samples[idx] + (samples[idx+1]-samples[idx])*frac
	}
	return out
}

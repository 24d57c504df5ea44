package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

type SampleFormat string

const (
	SampleFormatF32LE SampleFormat = "f32le"
	SampleFormatS16LE SampleFormat = "s16le"
	SampleFormatOpus  SampleFormat = "opus"
)

var ErrMisalignedSamples = errors.New("sample payload length is not a multiple of the sample width")

// DecodeRawSamples parses little-endian mono PCM.
func DecodeRawSamples(format SampleFormat, body []byte, sampleRate int) (SampleBuffer, error) {
	switch format {
	case SampleFormatF32LE:
		if len(body)%4 != 0 {
			return SampleBuffer{}, fmt.Errorf("%w: %d bytes for f32le", ErrMisalignedSamples, len(body))
		}
		samples := make([]float32, len(body)/4)
		for i := range samples {
			samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(body[i*4:]))
		}
		return SampleBuffer{Samples: samples, SampleRate: sampleRate}, nil
	case SampleFormatS16LE:
		if len(body)%2 != 0 {
			return SampleBuffer{}, fmt.Errorf("%w: %d bytes for s16le", ErrMisalignedSamples, len(body))
		}
		pcm := make([]int16, len(body)/2)
		for i := range pcm {
			pcm[i] = int16(binary.LittleEndian.Uint16(body[i*2:]))
		}
		return SampleBuffer{Samples: FromPCM16(pcm), SampleRate: sampleRate}, nil
	default:
		return SampleBuffer{}, fmt.Errorf("unsupported raw sample format %q", format)
	}
}

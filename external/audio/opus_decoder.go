//go:build opus

package audio

import (
	"fmt"

	"github.com/foxseedlab/soapscribe/internal/apperror"
	"github.com/foxseedlab/soapscribe/internal/audio"
	"github.com/hraban/opus"
)

const (
	opusChannels    = 1
	maxFrameSamples = 5760
)

type OpusPacketDecoder struct {
	sampleRate int
	dec        *opus.Decoder
}

func NewOpusPacketDecoder(sampleRate int) (audio.PacketDecoder, error) {
	dec, err := opus.NewDecoder(sampleRate, opusChannels)
	if err != nil {
		return nil, fmt.Errorf("create opus decoder: %w", err)
	}
	return &OpusPacketDecoder{sampleRate: sampleRate, dec: dec}, nil
}

func (d *OpusPacketDecoder) Decode(framed []byte) (audio.SampleBuffer, error) {
	packets, err := splitPackets(framed)
	if err != nil {
		return audio.SampleBuffer{}, framingError(err)
	}
	var pcm []int16
	frame := make([]int16, maxFrameSamples*opusChannels)
	for i, p := range packets {
		n, err := d.dec.Decode(p, frame)
		if err != nil {
			return audio.SampleBuffer{}, apperror.ValidationCause(apperror.CodeInvalidSamples, "Opus packet could not be decoded", fmt.Errorf("decode opus packet %d: %w", i, err))
		}
		pcm = append(pcm, frame[:n*opusChannels]...)
	}
	return audio.SampleBuffer{Samples: audio.FromPCM16(pcm), SampleRate: d.sampleRate}, nil
}

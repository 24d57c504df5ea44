//go:build !opus

package audio

import (
	"errors"

	"github.com/foxseedlab/soapscribe/internal/apperror"
	"github.com/foxseedlab/soapscribe/internal/audio"
)

var ErrOpusUnavailable = errors.New("opus decoding is not compiled in (build with -tags opus)")

type unavailableOpusDecoder struct{}

func NewOpusPacketDecoder(_ int) (audio.PacketDecoder, error) {
	return &unavailableOpusDecoder{}, nil
}

func (d *unavailableOpusDecoder) Decode(framed []byte) (audio.SampleBuffer, error) {
	if _, err := splitPackets(framed); err != nil {
		return audio.SampleBuffer{}, framingError(err)
	}
	return audio.SampleBuffer{}, apperror.Configuration("opus decoding is unavailable", ErrOpusUnavailable)
}

package audio

import (
	"github.com/foxseedlab/soapscribe/internal/audio"
	"github.com/foxseedlab/soapscribe/internal/config"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.ProvideValue(injector, audio.FrameEncoderFactory(NewMP3FrameEncoder))
	do.ProvideValue(injector, audio.PacketDecoderFactory(NewOpusPacketDecoder))
	do.Provide(injector, func(i do.Injector) (*audio.Encoder, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return audio.NewEncoder(cfg.EncoderSampleRate, do.MustInvoke[audio.FrameEncoderFactory](i))
	})
}

package server

import (
	"github.com/foxseedlab/soapscribe/internal/audio"
	"github.com/foxseedlab/soapscribe/internal/credential"
	"github.com/foxseedlab/soapscribe/internal/metrics"
	"github.com/foxseedlab/soapscribe/internal/notegen"
	"github.com/foxseedlab/soapscribe/internal/session"
	"github.com/foxseedlab/soapscribe/internal/transcriber"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Server, error) {
		checker, _ := do.MustInvoke[transcriber.Recognizer](i).(transcriber.ConnectivityChecker)
		return New(Deps{
			Forwarder:      do.MustInvoke[*transcriber.Forwarder](i),
			Encoder:        do.MustInvoke[*audio.Encoder](i),
			PacketDecoders: do.MustInvoke[audio.PacketDecoderFactory](i),
			Sessions:       do.MustInvoke[*session.Manager](i),
			Notes:          do.MustInvoke[*notegen.Service](i),
			Issuer:         do.MustInvoke[*credential.Issuer](i),
			Checker:        checker,
			Metrics:        do.MustInvoke[*metrics.Metrics](i),
		}), nil
	})
}

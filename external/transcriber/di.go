package transcriber

import (
	"context"
	"fmt"

	"github.com/foxseedlab/soapscribe/internal/config"
	"github.com/foxseedlab/soapscribe/internal/transcriber"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (transcriber.Recognizer, error) {
		c := do.MustInvoke[*config.Config](i)
		switch c.TranscriberProvider {
		case config.TranscriberProviderDeepgram:
			return NewDeepgramRecognizer(DeepgramConfig{
				APIKey:                   c.DeepgramAPIKey,
				BaseURL:                  c.DeepgramBaseURL,
				Model:                    c.DeepgramModel,
				Language:                 c.TranscribeLanguage,
				ConnectivityCheckTimeout: c.ConnectivityCheckTimeout,
			}), nil
		case config.TranscriberProviderGoogle:
			return NewCloudSpeechRecognizer(context.Background(), CloudSpeechConfig{
				ProjectID:       c.GoogleCloudProjectID,
				CredentialsJSON: c.GoogleCloudCredentialsJSON,
				Language:        c.TranscribeLanguage,
				Location:        c.GoogleCloudSpeechLocation,
				Model:           c.GoogleCloudSpeechModel,
			})
		default:
			return nil, fmt.Errorf("unknown transcriber provider %q", c.TranscriberProvider)
		}
	})
	do.Provide(injector, func(i do.Injector) (*transcriber.Forwarder, error) {
		c := do.MustInvoke[*config.Config](i)
		return transcriber.NewForwarder(do.MustInvoke[transcriber.Recognizer](i), c.TranscribeTimeout), nil
	})
}

package credential

import (
	"fmt"

	"github.com/foxseedlab/soapscribe/internal/config"
	"github.com/foxseedlab/soapscribe/internal/credential"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*credential.Issuer, error) {
		return newIssuer(do.MustInvoke[*config.Config](i)), nil
	})
}

// newIssuer only hands out keys for the provider the browser streams to.
func newIssuer(c *config.Config) *credential.Issuer {
	if c.TranscriberProvider != config.TranscriberProviderDeepgram {
		return credential.NewUnavailableIssuer(fmt.Sprintf(
			"browser transcription tokens require the %s provider, configured provider is %s",
			config.TranscriberProviderDeepgram, c.TranscriberProvider))
	}
	var minter credential.KeyMinter
	if c.DeepgramProjectID != "" {
		minter = NewDeepgramKeyMinter(c.DeepgramAPIKey, c.DeepgramProjectID, c.DeepgramBaseURL)
	}
	return credential.NewIssuer(c.RuntimeMode, c.DeepgramAPIKey, minter, c.EphemeralKeyTTL)
}

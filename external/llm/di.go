package llm

import (
	"github.com/foxseedlab/soapscribe/internal/config"
	"github.com/foxseedlab/soapscribe/internal/notegen"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (notegen.Generator, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewOpenAIGenerator(OpenAIConfig{
			APIKey:  c.OpenAIAPIKey,
			BaseURL: c.OpenAIBaseURL,
			Timeout: c.GenerationTimeout,
		}), nil
	})
}

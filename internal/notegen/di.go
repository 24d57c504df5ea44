package notegen

import (
	"github.com/foxseedlab/soapscribe/internal/config"
	"github.com/foxseedlab/soapscribe/internal/modelcache"
	"github.com/foxseedlab/soapscribe/internal/prompt"
	"github.com/foxseedlab/soapscribe/internal/repository"
	"github.com/foxseedlab/soapscribe/internal/webhook"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Service, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo := do.MustInvoke[repository.Repository](i)
		assembler, err := prompt.NewAssembler()
		if err != nil {
			return nil, err
		}
		models := NewModelCache(repo, cfg.DefaultGenerationModel, cfg.ModelCacheTTL, modelcache.WithRefreshTimeout(cfg.ModelRefreshTimeout))
		return NewService(assembler, do.MustInvoke[Generator](i), models, repo, do.MustInvoke[webhook.Sender](i)), nil
	})
}

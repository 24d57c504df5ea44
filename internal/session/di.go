package session

import (
	"github.com/foxseedlab/soapscribe/internal/config"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Manager, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return NewManager(cfg.SessionIdleTimeout), nil
	})
}

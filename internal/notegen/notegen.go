package notegen

import (
	"context"

	"github.com/foxseedlab/soapscribe/internal/prompt"
)

// Generator turns an assembled conversation into note text.
type Generator interface {
	Generate(ctx context.Context, model string, messages []prompt.Message) (string, error)
}

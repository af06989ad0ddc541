package answer

import (
	"context"

	"github.com/askdoc-cloud/askdoc/internal/domain"
)

// Generator produces schema-constrained text for answer synthesis.
type Generator interface {
	Generate(ctx context.Context, req domain.GenerateRequest) (domain.GenerateResult, error)
}

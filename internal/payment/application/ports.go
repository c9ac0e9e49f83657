package application

import (
	"context"

	"github.com/shopline-labs/commerce-core/internal/payment/domain"
)

type MethodRepository interface {
	// IsEnabled reports the registry flag; unknown methods read as disabled.
	IsEnabled(ctx context.Context, method domain.Method) (bool, error)
	SetEnabled(ctx context.Context, method domain.Method, enabled bool) error
}

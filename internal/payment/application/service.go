package application

import (
	"context"
	"log/slog"

	"github.com/shopline-labs/commerce-core/internal/payment/domain"
)

// Service gates checkout on the payment method registry.
type Service struct {
	log  *slog.Logger
	repo MethodRepository
}

func NewService(log *slog.Logger, repo MethodRepository) *Service {
	return &Service{log: log, repo: repo}
}

// CheckAvailable fails with ErrPaymentMethodDisabled when a gateway-backed
// method is switched off. Cash on delivery never depends on the registry.
func (s *Service) CheckAvailable(ctx context.Context, method domain.Method) error {
	if !method.RequiresGateway() {
		return nil
	}
	enabled, err := s.repo.IsEnabled(ctx, method)
	if err != nil {
		return err
	}
	if !enabled {
		return domain.ErrPaymentMethodDisabled
	}
	return nil
}

func (s *Service) SetEnabled(ctx context.Context, method domain.Method, enabled bool) error {
	if err := s.repo.SetEnabled(ctx, method, enabled); err != nil {
		return err
	}
	s.log.Info("payment method toggled", "method", string(method), "enabled", enabled)
	return nil
}

package payment

import (
	"context"
	"fmt"

	"storepay-core/internal/logger"

	"go.uber.org/zap"
)

// Service is the entry point the checkout collaborator calls. It holds
// the provider registry and dispatches by provider name; it never retries
// a transient failure on its own.
type Service struct {
	providers map[string]Provider
}

func NewService(providers ...Provider) *Service {
	reg := make(map[string]Provider, len(providers))
	for _, p := range providers {
		reg[p.Name()] = p
	}
	return &Service{providers: reg}
}

// Provider looks up a registered adapter by name.
func (s *Service) Provider(name string) (Provider, bool) {
	p, ok := s.providers[name]
	return p, ok
}

// Providers returns the registered adapter names.
func (s *Service) Providers() []string {
	names := make([]string, 0, len(s.providers))
	for name := range s.providers {
		names = append(names, name)
	}
	return names
}

// CreatePayment validates the request invariants and hands it to the
// named provider. The caller sees a payment URL (or SDK config) or an
// error it can classify as retryable; provider internals stay here.
func (s *Service) CreatePayment(ctx context.Context, providerName string, req PaymentRequest) (*CreateResult, error) {
	p, ok := s.providers[providerName]
	if !ok {
		return nil, fmt.Errorf("unknown payment provider %q", providerName)
	}

	if err := req.Validate(); err != nil {
		logger.FromCtx(ctx).Warn("rejecting invalid payment request",
			zap.String("provider", providerName),
			zap.String("order_id", req.OrderID),
			zap.Error(err),
		)
		return nil, err
	}

	return p.CreatePayment(ctx, req)
}

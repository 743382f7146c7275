package airtime

import (
	"context"
	"fmt"

	"github.com/qatalysthq/qatalyst-backend/pkg/logger"
	"github.com/qatalysthq/qatalyst-backend/pkg/phone"
)

type service struct {
	providers []Provider
	logg      *logger.Logger
}

// NewService wires the failover chain. Providers are tried in order; the first
// success wins and later providers never run.
func NewService(providers []Provider, logg *logger.Logger) (Service, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("at least one provider required")
	}
	return &service{providers: providers, logg: logg}, nil
}

func (s *service) Purchase(ctx context.Context, msisdn string, amountNGN int) Receipt {
	if !ValidAmount(amountNGN) {
		return Receipt{Reason: fmt.Sprintf("amount must be between %d and %d", MinAmountNGN, MaxAmountNGN)}
	}
	normalized, err := phone.Normalize(msisdn)
	if err != nil {
		return Receipt{Reason: "invalid recipient number"}
	}

	return s.attempt(ctx, func(p Provider) (string, error) {
		return p.SendAirtime(ctx, normalized, amountNGN)
	})
}

func (s *service) PurchaseBundle(ctx context.Context, msisdn string, bundleID string) Receipt {
	bundle, ok := BundleByID(bundleID)
	if !ok {
		return Receipt{Reason: "Invalid bundle selection"}
	}
	normalized, err := phone.Normalize(msisdn)
	if err != nil {
		return Receipt{Reason: "invalid recipient number"}
	}

	receipt := s.attempt(ctx, func(p Provider) (string, error) {
		return p.SendBundle(ctx, normalized, bundle)
	})
	receipt.Bundle = &bundle
	return receipt
}

func (s *service) attempt(ctx context.Context, send func(Provider) (string, error)) Receipt {
	var lastErr error
	for _, provider := range s.providers {
		txID, err := send(provider)
		if err == nil {
			return Receipt{Success: true, TransactionID: txID}
		}
		lastErr = err
		if s.logg != nil {
			logCtx := s.logg.WithField(ctx, "provider", provider.Name())
			s.logg.Warn(logCtx, fmt.Sprintf("purchase provider failed: %v", err))
		}
	}
	return Receipt{Reason: lastErr.Error()}
}

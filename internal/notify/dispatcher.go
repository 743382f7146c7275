package notify

import (
	"context"
	"fmt"

	"github.com/qatalysthq/qatalyst-backend/pkg/logger"
	"github.com/qatalysthq/qatalyst-backend/pkg/phone"
)

// Dispatcher walks the provider chain until a delivery succeeds. It reports
// which provider won so the attempt can be recorded.
type Dispatcher struct {
	providers []Provider
	logg      *logger.Logger
}

func NewDispatcher(providers []Provider, logg *logger.Logger) (*Dispatcher, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("at least one provider required")
	}
	return &Dispatcher{providers: providers, logg: logg}, nil
}

// Send attempts delivery through each provider in order. The returned provider
// name identifies the successful one; on total failure it names the last
// provider tried.
func (d *Dispatcher) Send(ctx context.Context, msisdn, message string) (string, error) {
	var lastErr error
	lastProvider := ""
	for _, provider := range d.providers {
		lastProvider = provider.Name()
		if err := provider.Send(ctx, msisdn, message); err != nil {
			lastErr = err
			if d.logg != nil {
				logCtx := d.logg.WithPhone(ctx, phone.Mask(msisdn))
				logCtx = d.logg.WithField(logCtx, "provider", provider.Name())
				d.logg.Warn(logCtx, fmt.Sprintf("sms provider failed: %v", err))
			}
			continue
		}
		return provider.Name(), nil
	}
	return lastProvider, lastErr
}

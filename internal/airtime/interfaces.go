package airtime

import "context"

// Provider performs a remote top-up. Implementations return the provider's
// transaction id on success; any error is treated as a provider failure and
// the chain falls through to the next provider.
type Provider interface {
	Name() string
	SendAirtime(ctx context.Context, phone string, amountNGN int) (string, error)
	SendBundle(ctx context.Context, phone string, bundle Bundle) (string, error)
}

// Service is the collaborator the USSD flows purchase through. Remote failures
// surface as Receipt{Success: false, Reason: ...}, never as an error.
type Service interface {
	Purchase(ctx context.Context, phone string, amountNGN int) Receipt
	PurchaseBundle(ctx context.Context, phone string, bundleID string) Receipt
}

// Receipt is the outcome of a purchase attempt.
type Receipt struct {
	Success       bool
	TransactionID string
	Reason        string
	Bundle        *Bundle
}

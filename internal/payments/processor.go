package payments

import "context"

// Intent is the client-facing half of a payment authorization: the
// ClientSecret goes to the customer's device, the Reference is what the
// escrow ledger records once the processor confirms success out-of-band.
type Intent struct {
	ClientSecret string `json:"client_secret"`
	Reference    string `json:"reference"`
}

// Processor is the opaque payment capability the escrow ledger consumes.
// Funds are authorized at deposit time and only captured on Release, so the
// processor itself holds the escrow.
type Processor interface {
	CreateIntent(ctx context.Context, amount float64, currency string) (*Intent, error)
	Release(ctx context.Context, reference string) error
	Refund(ctx context.Context, reference string) error
}

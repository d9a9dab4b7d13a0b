package payments

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// StripeProcessor implements Processor with manual-capture PaymentIntents:
// the deposit authorizes the card, Release captures the held amount, Refund
// cancels or reverses it.
type StripeProcessor struct {
	api *client.API
}

func NewStripeProcessor(secretKey string) *StripeProcessor {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeProcessor{api: api}
}

func (p *StripeProcessor) CreateIntent(ctx context.Context, amount float64, currency string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(toMinorUnits(amount)),
		Currency:      stripe.String(currency),
		CaptureMethod: stripe.String(string(stripe.PaymentIntentCaptureMethodManual)),
	}
	params.Context = ctx

	pi, err := p.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe create intent: %w", err)
	}

	return &Intent{
		ClientSecret: pi.ClientSecret,
		Reference:    pi.ID,
	}, nil
}

func (p *StripeProcessor) Release(ctx context.Context, reference string) error {
	params := &stripe.PaymentIntentCaptureParams{}
	params.Context = ctx

	if _, err := p.api.PaymentIntents.Capture(reference, params); err != nil {
		return fmt.Errorf("stripe capture %s: %w", reference, err)
	}
	return nil
}

func (p *StripeProcessor) Refund(ctx context.Context, reference string) error {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(reference),
	}
	params.Context = ctx

	if _, err := p.api.Refunds.New(params); err != nil {
		return fmt.Errorf("stripe refund %s: %w", reference, err)
	}
	return nil
}

func toMinorUnits(amount float64) int64 {
	return int64(amount*100 + 0.5)
}

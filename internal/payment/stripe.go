package payment

import (
	"context"
	"errors"

	"velorent/internal/domain"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/paymentintent"
)

// StripeProvider authorizes rentals through Stripe PaymentIntents.
// One-shot: a created-and-confirmed intent either succeeds or declines.
type StripeProvider struct {
	paymentMethod string
}

// NewStripeProvider configures the global Stripe client. paymentMethod is
// the saved payment method charged for server-initiated rentals (the
// mobile client attaches it during checkout setup).
func NewStripeProvider(apiKey, paymentMethod string) *StripeProvider {
	stripe.Key = apiKey
	return &StripeProvider{paymentMethod: paymentMethod}
}

func (p *StripeProvider) Authorize(ctx context.Context, amountCents int64, currency, description string) (domain.PaymentAuthorization, error) {
	idempotencyKey := uuid.NewString()

	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(amountCents),
		Currency:      stripe.String(currency),
		Description:   stripe.String(description),
		PaymentMethod: stripe.String(p.paymentMethod),
		Confirm:       stripe.Bool(true),
		// Fail instead of returning an intent stuck in requires_action;
		// the one-shot contract has no second round trip.
		ErrorOnRequiresAction: stripe.Bool(true),
	}
	params.Context = ctx
	params.SetIdempotencyKey(idempotencyKey)

	pi, err := paymentintent.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodeCardDeclined {
			return domain.PaymentAuthorization{Approved: false}, nil
		}
		return domain.PaymentAuthorization{}, err
	}

	return domain.PaymentAuthorization{
		Reference: pi.ID,
		Approved:  pi.Status == stripe.PaymentIntentStatusSucceeded,
	}, nil
}

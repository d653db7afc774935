// Package payments talks to Stripe: it verifies card payments before they are
// recorded and decodes the payment_intent webhooks that record them.
package payments

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/paymentintent"

	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/apperr"
)

// minorUnitExp converts Stripe's integer amounts (cents) to decimal units.
// Zero-decimal currencies are not supported.
const minorUnitExp = -2

// IntentFetcher is satisfied by *paymentintent.Client.
type IntentFetcher interface {
	Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

type StripeVerifier struct {
	intents IntentFetcher
}

func NewStripeVerifier(secretKey string) *StripeVerifier {
	return NewStripeVerifierWith(&paymentintent.Client{
		B:   stripe.GetBackend(stripe.APIBackend),
		Key: strings.TrimSpace(secretKey),
	})
}

func NewStripeVerifierWith(intents IntentFetcher) *StripeVerifier {
	return &StripeVerifier{intents: intents}
}

// VerifyCardPayment accepts a card payment only when the referenced intent has
// succeeded and received at least amount.
func (v *StripeVerifier) VerifyCardPayment(ctx context.Context, reference string, amount decimal.Decimal) error {
	if !strings.HasPrefix(reference, "pi_") {
		return apperr.InvalidArgument("reference %q is not a payment intent", reference)
	}
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := v.intents.Get(reference, params)
	if err != nil {
		var se *stripe.Error
		if errors.As(err, &se) && se.HTTPStatusCode == http.StatusNotFound {
			return apperr.InvalidArgument("payment intent %s not found", reference)
		}
		return apperr.Unavailable(err)
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return apperr.InvalidArgument("payment intent %s is %s", reference, pi.Status)
	}
	received := decimal.New(pi.AmountReceived, minorUnitExp)
	if amount.GreaterThan(received) {
		return apperr.InvalidArgument("amount %s exceeds %s received by %s", amount, received, reference)
	}
	return nil
}

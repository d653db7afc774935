package payments

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
)

// MetadataAppointmentID is the PaymentIntent metadata key that ties a charge
// to an appointment.
const MetadataAppointmentID = "appointment_id"

// SucceededIntent is a card charge reported by Stripe.
type SucceededIntent struct {
	EventID       string
	IntentID      string
	AppointmentID string
	Amount        decimal.Decimal
}

// ParseWebhook checks the Stripe-Signature header and extracts a succeeded
// payment intent. ok is false for event types the service does not act on.
func ParseWebhook(body []byte, signature, secret string, tolerance time.Duration) (_ SucceededIntent, ok bool, err error) {
	evt, err := webhook.ConstructEventWithOptions(body, signature, secret, webhook.ConstructEventOptions{
		Tolerance:                tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return SucceededIntent{}, false, fmt.Errorf("verify stripe signature: %w", err)
	}
	if evt.Type != stripe.EventTypePaymentIntentSucceeded {
		return SucceededIntent{}, false, nil
	}
	if evt.Data == nil {
		return SucceededIntent{}, false, fmt.Errorf("event %s has no data", evt.ID)
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(evt.Data.Raw, &pi); err != nil {
		return SucceededIntent{}, false, fmt.Errorf("decode payment intent: %w", err)
	}
	apptID := strings.TrimSpace(pi.Metadata[MetadataAppointmentID])
	if apptID == "" {
		return SucceededIntent{}, false, fmt.Errorf("payment intent %s has no %s metadata", pi.ID, MetadataAppointmentID)
	}
	return SucceededIntent{
		EventID:       evt.ID,
		IntentID:      pi.ID,
		AppointmentID: apptID,
		Amount:        decimal.New(pi.AmountReceived, minorUnitExp),
	}, true, nil
}

// Command stripe-webhook-sim posts a signed payment_intent.succeeded event to
// a running booking service so the card payment path can be exercised
// without a Stripe account.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/NahunMenem/TurnosLu/libs/config"
)

func main() {
	var (
		baseURL     = flag.String("base-url", config.String("BASE_URL", "http://localhost:8083"), "booking service base url")
		appointment = flag.String("appointment-id", config.String("APPOINTMENT_ID", ""), "appointment_id metadata")
		amount      = flag.Int64("amount", 5000, "amount received in minor units (cents)")
		currency    = flag.String("currency", config.String("CURRENCY", "usd"), "intent currency")
		intentID    = flag.String("intent-id", "", "payment intent id (generated when empty)")
		secret      = flag.String("secret", config.String("STRIPE_WEBHOOK_SECRET", ""), "stripe webhook signing secret (whsec_...)")
	)
	flag.Parse()

	if *secret == "" {
		fatal("STRIPE_WEBHOOK_SECRET is required")
	}
	if strings.TrimSpace(*appointment) == "" {
		fatal("APPOINTMENT_ID is required")
	}
	if *amount < 0 {
		fatal("amount must not be negative")
	}

	now := time.Now().UTC()
	if *intentID == "" {
		*intentID = fmt.Sprintf("pi_test_%d", now.UnixNano())
	}
	payload, err := buildEventJSON(fmt.Sprintf("evt_test_%d", now.UnixNano()), *intentID, now, *appointment, *amount, *currency)
	if err != nil {
		fatal(err.Error())
	}

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    *secret,
		Timestamp: now,
		Scheme:    "v1",
	})

	req, err := http.NewRequest(http.MethodPost, strings.TrimRight(*baseURL, "/")+"/api/v1/payments/webhooks/stripe", bytes.NewReader(payload))
	if err != nil {
		fatal(err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", signed.Header)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		fatal(err.Error())
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	fmt.Printf("status=%d intent=%s body=%s\n", resp.StatusCode, *intentID, strings.TrimSpace(string(body)))
	if resp.StatusCode >= 300 {
		os.Exit(1)
	}
}

func buildEventJSON(eventID, intentID string, t time.Time, appointmentID string, amount int64, currency string) ([]byte, error) {
	return json.Marshal(map[string]any{
		"id":          eventID,
		"object":      "event",
		"created":     t.Unix(),
		"type":        string(stripe.EventTypePaymentIntentSucceeded),
		"api_version": stripe.APIVersion,
		"data": map[string]any{
			"object": map[string]any{
				"id":              intentID,
				"object":          "payment_intent",
				"status":          string(stripe.PaymentIntentStatusSucceeded),
				"amount":          amount,
				"amount_received": amount,
				"currency":        strings.ToLower(currency),
				"metadata": map[string]any{
					"appointment_id": appointmentID,
				},
			},
		},
	})
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(2)
}

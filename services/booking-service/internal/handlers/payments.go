package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/apperr"
	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/booking"
	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/model"
	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/payments"
)

func (h *Handler) RegisterPayment(w http.ResponseWriter, r *http.Request) {
	var req registerPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if req.Amount == nil {
		badRequest(w, "amount is required")
		return
	}
	id, err := h.engine.RegisterPayment(r.Context(), booking.PaymentRequest{
		AppointmentID: chi.URLParam(r, "id"),
		Method:        req.Method,
		Amount:        *req.Amount,
		Reference:     req.Reference,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, registerPaymentResponse{PaymentID: id})
}

func (h *Handler) TotalPaid(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	total, err := h.engine.TotalPaid(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, totalPaidResponse{AppointmentID: id, TotalPaid: total})
}

type webhookResponse struct {
	Received bool   `json:"received"`
	Result   string `json:"result"`
}

// StripeWebhook records card payments reported by payment_intent.succeeded.
// The signature is the authentication. Events that can never be applied are
// acknowledged so Stripe stops redelivering them.
func (h *Handler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	if strings.TrimSpace(h.stripeWebhookSecret) == "" {
		http.Error(w, "stripe webhook not configured", http.StatusServiceUnavailable)
		return
	}
	sig := r.Header.Get("Stripe-Signature")
	if strings.TrimSpace(sig) == "" {
		http.Error(w, "missing Stripe-Signature header", http.StatusBadRequest)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	intent, ok, err := payments.ParseWebhook(body, sig, h.stripeWebhookSecret, h.stripeWebhookTolerance)
	if err != nil {
		h.logger.Warn("stripe webhook rejected", "err", err)
		http.Error(w, "invalid webhook", http.StatusBadRequest)
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, webhookResponse{Received: true, Result: "ignored"})
		return
	}

	_, err = h.engine.RegisterPayment(r.Context(), booking.PaymentRequest{
		AppointmentID: intent.AppointmentID,
		Method:        string(model.MethodCard),
		Amount:        intent.Amount,
		Reference:     intent.IntentID,
	})
	switch {
	case err == nil:
		h.logger.Info("card payment recorded from stripe", "provider_event_id", intent.EventID, "appointment_id", intent.AppointmentID)
		writeJSON(w, http.StatusOK, webhookResponse{Received: true, Result: "recorded"})
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusOK, webhookResponse{Received: true, Result: "duplicate"})
	case errors.Is(err, apperr.ErrNotFound), errors.Is(err, apperr.ErrInvalidArgument):
		h.logger.Warn("stripe payment not applicable", "provider_event_id", intent.EventID, "appointment_id", intent.AppointmentID, "err", err)
		writeJSON(w, http.StatusOK, webhookResponse{Received: true, Result: "skipped"})
	default:
		h.writeError(w, r, err)
	}
}

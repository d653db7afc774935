package booking

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/apperr"
	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/model"
	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/outbox"
)

type PaymentRequest struct {
	AppointmentID string
	Method        string
	Amount        decimal.Decimal
	// Reference is the processor's payment id, checked for card payments.
	Reference string
}

// RegisterPayment appends a payment to the appointment's ledger. Payments are
// never edited; a correction is another row.
func (e *Engine) RegisterPayment(ctx context.Context, req PaymentRequest) (_ string, err error) {
	ctx, span := e.start(ctx, "RegisterPayment",
		attribute.String("appointment.id", req.AppointmentID),
		attribute.String("payment.method", req.Method))
	defer func() { err = finish(span, err) }()

	method := model.PaymentMethod(strings.ToLower(strings.TrimSpace(req.Method)))
	if !method.Valid() {
		return "", apperr.InvalidArgument("unknown payment method %q", req.Method)
	}
	if req.Amount.IsNegative() {
		return "", apperr.InvalidArgument("amount %s is negative", req.Amount.String())
	}

	p := model.Payment{
		AppointmentID: req.AppointmentID,
		Method:        method,
		Amount:        req.Amount,
		Reference:     strings.TrimSpace(req.Reference),
	}
	// The processor is consulted outside the transaction so no row lock is
	// held across a network call.
	if method == model.MethodCard && p.Reference != "" && e.verifier != nil {
		if _, err := e.store.GetAppointment(ctx, p.AppointmentID); err != nil {
			return "", err
		}
		if err := e.verifier.VerifyCardPayment(ctx, p.Reference, p.Amount); err != nil {
			return "", err
		}
	}

	err = e.store.WithinTx(ctx, func(tx Tx) error {
		if _, err := tx.LockAppointment(ctx, req.AppointmentID); err != nil {
			return err
		}
		if err := tx.InsertPayment(ctx, &p); err != nil {
			return err
		}
		evt, err := outbox.NewAppointmentEvent(outbox.TypePaymentRegistered, p.AppointmentID, map[string]any{
			"payment_id":     p.ID,
			"appointment_id": p.AppointmentID,
			"method":         string(p.Method),
			"amount":         p.Amount.String(),
			"reference":      p.Reference,
		})
		if err != nil {
			return err
		}
		return tx.AppendEvent(ctx, evt)
	})
	if err != nil {
		return "", err
	}
	e.logger.Info("payment registered", "payment_id", p.ID, "appointment_id", p.AppointmentID, "method", string(p.Method))
	return p.ID, nil
}

// TotalPaid sums the appointment's payments; zero when there are none.
func (e *Engine) TotalPaid(ctx context.Context, appointmentID string) (_ decimal.Decimal, err error) {
	ctx, span := e.start(ctx, "TotalPaid", attribute.String("appointment.id", appointmentID))
	defer func() { err = finish(span, err) }()

	v, err := e.store.GetAppointment(ctx, appointmentID)
	if err != nil {
		return decimal.Zero, err
	}
	return v.TotalPaid, nil
}

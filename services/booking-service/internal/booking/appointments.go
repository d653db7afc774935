package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/apperr"
	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/model"
	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/outbox"
)

type BookRequest struct {
	ServiceID     string
	Date          time.Time
	Time          model.Clock
	ClientName    string
	ClientContact string
}

// Book holds the slot for the client. The store's uniqueness on
// (service, date, time) decides concurrent attempts: exactly one wins and
// the others get ErrConflict.
func (e *Engine) Book(ctx context.Context, req BookRequest) (_ string, err error) {
	ctx, span := e.start(ctx, "Book",
		attribute.String("service.id", req.ServiceID),
		attribute.String("slot.time", req.Time.String()))
	defer func() { err = finish(span, err) }()

	if req.Date.IsZero() {
		return "", apperr.InvalidArgument("date is required")
	}
	if !req.Time.Valid() {
		return "", apperr.InvalidArgument("time %d is outside the day", int(req.Time))
	}
	name := strings.TrimSpace(req.ClientName)
	if name == "" {
		return "", apperr.InvalidArgument("client name is required")
	}

	svc, err := e.activeService(ctx, req.ServiceID)
	if err != nil {
		return "", err
	}

	appt := model.Appointment{
		ServiceID:     svc.ID,
		Date:          model.DateOf(req.Date),
		Time:          req.Time,
		Status:        model.StatusBooked,
		ClientName:    name,
		ClientContact: strings.TrimSpace(req.ClientContact),
	}
	err = e.store.WithinTx(ctx, func(tx Tx) error {
		if err := tx.InsertAppointment(ctx, &appt); err != nil {
			return err
		}
		evt, err := outbox.NewAppointmentEvent(outbox.TypeAppointmentBooked, appt.ID, appointmentPayload(appt, svc.Name))
		if err != nil {
			return err
		}
		return tx.AppendEvent(ctx, evt)
	})
	if err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			e.logger.Info("slot already taken", "service_id", svc.ID, "date", appt.Date.Format(model.DateLayout), "time", appt.Time.String())
		}
		return "", err
	}

	if e.notifier != nil && appt.ClientContact != "" {
		e.notifier.Notify(ctx, appt.ClientContact, ConfirmationMessage(appt))
	}
	e.logger.Info("appointment booked", "appointment_id", appt.ID, "service_id", svc.ID)
	return appt.ID, nil
}

// Confirm marks the appointment confirmed. Confirming twice succeeds; the
// event is only emitted on the first transition.
func (e *Engine) Confirm(ctx context.Context, id string) (err error) {
	ctx, span := e.start(ctx, "Confirm", attribute.String("appointment.id", id))
	defer func() { err = finish(span, err) }()

	return e.store.WithinTx(ctx, func(tx Tx) error {
		appt, err := tx.LockAppointment(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.ConfirmAppointment(ctx, id); err != nil {
			return err
		}
		if appt.Confirmed {
			return nil
		}
		appt.Status, appt.Confirmed = model.StatusConfirmed, true
		evt, err := outbox.NewAppointmentEvent(outbox.TypeAppointmentConfirmed, id, appointmentPayload(appt, ""))
		if err != nil {
			return err
		}
		return tx.AppendEvent(ctx, evt)
	})
}

// Remove deletes a booked appointment together with its payments. Confirmed
// appointments are kept and the call fails with ErrConflict.
func (e *Engine) Remove(ctx context.Context, id string) (err error) {
	ctx, span := e.start(ctx, "Remove", attribute.String("appointment.id", id))
	defer func() { err = finish(span, err) }()

	return e.store.WithinTx(ctx, func(tx Tx) error {
		appt, err := tx.LockAppointment(ctx, id)
		if err != nil {
			return err
		}
		if appt.Confirmed || appt.Status == model.StatusConfirmed {
			return apperr.Conflict("appointment %s is confirmed and cannot be removed", id)
		}
		n, err := tx.DeletePayments(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.DeleteAppointment(ctx, id); err != nil {
			return err
		}
		payload := appointmentPayload(appt, "")
		payload["payments_deleted"] = n
		evt, err := outbox.NewAppointmentEvent(outbox.TypeAppointmentRemoved, id, payload)
		if err != nil {
			return err
		}
		return tx.AppendEvent(ctx, evt)
	})
}

// ListAppointments returns appointments ordered by date and time, limited to
// one day when date is set.
func (e *Engine) ListAppointments(ctx context.Context, date *time.Time) (_ []model.AppointmentView, err error) {
	ctx, span := e.start(ctx, "ListAppointments")
	defer func() { err = finish(span, err) }()

	if date != nil {
		d := model.DateOf(*date)
		date = &d
	}
	return e.store.ListAppointments(ctx, date)
}

func (e *Engine) GetAppointment(ctx context.Context, id string) (_ model.AppointmentView, err error) {
	ctx, span := e.start(ctx, "GetAppointment", attribute.String("appointment.id", id))
	defer func() { err = finish(span, err) }()

	return e.store.GetAppointment(ctx, id)
}

func appointmentPayload(appt model.Appointment, serviceName string) map[string]any {
	p := map[string]any{
		"appointment_id": appt.ID,
		"service_id":     appt.ServiceID,
		"date":           appt.Date.Format(model.DateLayout),
		"time":           appt.Time.String(),
		"status":         appt.Status,
		"client_name":    appt.ClientName,
		"client_contact": appt.ClientContact,
	}
	if serviceName != "" {
		p["service_name"] = serviceName
	}
	return p
}

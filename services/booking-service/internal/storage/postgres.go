// Package storage is the Postgres implementation of the booking and catalog
// stores.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/NahunMenem/TurnosLu/libs/db"
	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/apperr"
	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/booking"
	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/catalog"
	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/model"
	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/outbox"
	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/report"
)

type Postgres struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewPostgres(pool *db.Pool, outboxRepo *outbox.Repository) *Postgres {
	return &Postgres{pool: pool, outbox: outboxRepo}
}

var (
	_ booking.Store = (*Postgres)(nil)
	_ catalog.Store = (*Postgres)(nil)
)

type scanner interface {
	Scan(dest ...any) error
}

// validID rejects ids that cannot be a row key. Postgres would fail them with
// invalid_text_representation; callers see them as missing instead.
func validID(kind, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperr.NotFound("%s %s", kind, id)
	}
	return nil
}

func notFound(err error, kind, id string) error {
	if db.IsNoRows(err) {
		return apperr.NotFound("%s %s", kind, id)
	}
	return err
}

const serviceColumns = `id::text, name, description, duration_minutes, price::text, active, created_at`

func scanService(row scanner) (model.Service, error) {
	var (
		svc   model.Service
		price string
	)
	if err := row.Scan(&svc.ID, &svc.Name, &svc.Description, &svc.DurationMinutes, &price, &svc.Active, &svc.CreatedAt); err != nil {
		return model.Service{}, err
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return model.Service{}, fmt.Errorf("service %s price: %w", svc.ID, err)
	}
	svc.Price = p
	return svc, nil
}

func (s *Postgres) GetService(ctx context.Context, id string) (model.Service, error) {
	if err := validID("service", id); err != nil {
		return model.Service{}, err
	}
	svc, err := scanService(s.pool.QueryRow(ctx, `SELECT `+serviceColumns+` FROM services WHERE id = $1`, id))
	if err != nil {
		return model.Service{}, notFound(err, "service", id)
	}
	return svc, nil
}

func (s *Postgres) ListServices(ctx context.Context, activeOnly bool) ([]model.Service, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+serviceColumns+`
		FROM services
		WHERE active OR NOT $1
		ORDER BY name, id
	`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Service{}
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, svc)
	}
	return out, rows.Err()
}

func (s *Postgres) CreateService(ctx context.Context, svc *model.Service) error {
	svc.ID = uuid.NewString()
	return s.pool.QueryRow(ctx, `
		INSERT INTO services (id, name, description, duration_minutes, price, active)
		VALUES ($1, $2, $3, $4, $5::numeric, $6)
		RETURNING created_at
	`, svc.ID, svc.Name, svc.Description, svc.DurationMinutes, svc.Price.String(), svc.Active).Scan(&svc.CreatedAt)
}

const ruleColumns = `id::text, service_id::text, weekday, start_time::text, end_time::text`

func scanRules(rows pgx.Rows) ([]model.ScheduleRule, error) {
	defer rows.Close()
	out := []model.ScheduleRule{}
	for rows.Next() {
		var (
			r          model.ScheduleRule
			start, end string
			err        error
		)
		if err := rows.Scan(&r.ID, &r.ServiceID, &r.Weekday, &start, &end); err != nil {
			return nil, err
		}
		if r.Start, err = model.ParseClock(start); err != nil {
			return nil, err
		}
		if r.End, err = model.ParseClock(end); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Postgres) RulesFor(ctx context.Context, serviceID string, weekday int) ([]model.ScheduleRule, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+ruleColumns+`
		FROM schedule_rules
		WHERE service_id = $1 AND weekday = $2
		ORDER BY start_time, id
	`, serviceID, weekday)
	if err != nil {
		return nil, err
	}
	return scanRules(rows)
}

func (s *Postgres) ListRules(ctx context.Context, serviceID string) ([]model.ScheduleRule, error) {
	if err := validID("service", serviceID); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+ruleColumns+`
		FROM schedule_rules
		WHERE service_id = $1
		ORDER BY weekday, start_time, id
	`, serviceID)
	if err != nil {
		return nil, err
	}
	return scanRules(rows)
}

func (s *Postgres) CreateRule(ctx context.Context, rule *model.ScheduleRule) error {
	if err := validID("service", rule.ServiceID); err != nil {
		return err
	}
	rule.ID = uuid.NewString()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO schedule_rules (id, service_id, weekday, start_time, end_time)
		VALUES ($1, $2, $3, $4::time, $5::time)
	`, rule.ID, rule.ServiceID, rule.Weekday, rule.Start.String(), rule.End.String())
	if db.HasCode(err, db.CodeForeignKeyViolation) {
		return apperr.NotFound("service %s", rule.ServiceID)
	}
	return err
}

func (s *Postgres) OccupiedTimes(ctx context.Context, serviceID string, date time.Time) ([]model.Clock, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT slot_time::text
		FROM appointments
		WHERE service_id = $1 AND appointment_date = $2 AND status IN ('booked', 'confirmed')
	`, serviceID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Clock
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		c, err := model.ParseClock(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

const appointmentColumns = `a.id::text, a.service_id::text, a.appointment_date, a.slot_time::text,
	a.status, a.confirmed, a.client_name, a.client_contact, a.created_at`

func scanAppointment(row scanner, extra ...any) (model.Appointment, error) {
	var (
		appt model.Appointment
		slot string
	)
	dest := append([]any{&appt.ID, &appt.ServiceID, &appt.Date, &slot, &appt.Status, &appt.Confirmed,
		&appt.ClientName, &appt.ClientContact, &appt.CreatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return model.Appointment{}, err
	}
	c, err := model.ParseClock(slot)
	if err != nil {
		return model.Appointment{}, err
	}
	appt.Time = c
	appt.Date = model.DateOf(appt.Date)
	return appt, nil
}

const viewQuery = `
	SELECT ` + appointmentColumns + `, s.name,
		COALESCE((SELECT SUM(p.amount) FROM payments p WHERE p.appointment_id = a.id), 0)::text
	FROM appointments a
	JOIN services s ON s.id = a.service_id`

func scanView(row scanner) (model.AppointmentView, error) {
	var (
		v     model.AppointmentView
		total string
	)
	appt, err := scanAppointment(row, &v.ServiceName, &total)
	if err != nil {
		return model.AppointmentView{}, err
	}
	v.Appointment = appt
	if v.TotalPaid, err = decimal.NewFromString(total); err != nil {
		return model.AppointmentView{}, fmt.Errorf("appointment %s total: %w", appt.ID, err)
	}
	return v, nil
}

func (s *Postgres) GetAppointment(ctx context.Context, id string) (model.AppointmentView, error) {
	if err := validID("appointment", id); err != nil {
		return model.AppointmentView{}, err
	}
	v, err := scanView(s.pool.QueryRow(ctx, viewQuery+` WHERE a.id = $1`, id))
	if err != nil {
		return model.AppointmentView{}, notFound(err, "appointment", id)
	}
	return v, nil
}

func (s *Postgres) ListAppointments(ctx context.Context, date *time.Time) ([]model.AppointmentView, error) {
	rows, err := s.pool.Query(ctx, viewQuery+`
		WHERE $1::date IS NULL OR a.appointment_date = $1::date
		ORDER BY a.appointment_date, a.slot_time, a.id
	`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.AppointmentView{}
	for rows.Next() {
		v, err := scanView(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Postgres) ReportRows(ctx context.Context, from, to time.Time) ([]report.AppointmentRow, []report.PaymentRow, error) {
	var appts []report.AppointmentRow
	rows, err := s.pool.Query(ctx, `
		SELECT a.id::text, s.name, a.appointment_date
		FROM appointments a
		JOIN services s ON s.id = a.service_id
		WHERE a.appointment_date BETWEEN $1 AND $2
	`, from, to)
	if err != nil {
		return nil, nil, err
	}
	for rows.Next() {
		var r report.AppointmentRow
		if err := rows.Scan(&r.AppointmentID, &r.ServiceName, &r.Date); err != nil {
			rows.Close()
			return nil, nil, err
		}
		appts = append(appts, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	var payments []report.PaymentRow
	rows, err = s.pool.Query(ctx, `
		SELECT p.appointment_id::text, p.method, p.amount::text
		FROM payments p
		JOIN appointments a ON a.id = p.appointment_id
		WHERE a.appointment_date BETWEEN $1 AND $2
	`, from, to)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			r      report.PaymentRow
			amount string
		)
		if err := rows.Scan(&r.AppointmentID, &r.Method, &amount); err != nil {
			return nil, nil, err
		}
		if r.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, nil, err
		}
		payments = append(payments, r)
	}
	return appts, payments, rows.Err()
}

func (s *Postgres) WithinTx(ctx context.Context, fn func(booking.Tx) error) error {
	return s.pool.WithTx(ctx, func(tx pgx.Tx) error {
		return fn(&pgTx{tx: tx, outbox: s.outbox})
	})
}

type pgTx struct {
	tx     pgx.Tx
	outbox *outbox.Repository
}

func (t *pgTx) InsertAppointment(ctx context.Context, appt *model.Appointment) error {
	appt.ID = uuid.NewString()
	err := t.tx.QueryRow(ctx, `
		INSERT INTO appointments (id, service_id, appointment_date, slot_time, status, confirmed, client_name, client_contact)
		VALUES ($1, $2, $3, $4::time, $5, false, $6, $7)
		RETURNING created_at
	`, appt.ID, appt.ServiceID, appt.Date, appt.Time.String(), appt.Status, appt.ClientName, appt.ClientContact).Scan(&appt.CreatedAt)
	switch {
	case err == nil:
		return nil
	case db.HasCode(err, db.CodeUniqueViolation):
		return apperr.Conflict("slot already taken")
	case db.HasCode(err, db.CodeForeignKeyViolation):
		return apperr.NotFound("service %s", appt.ServiceID)
	default:
		return err
	}
}

func (t *pgTx) LockAppointment(ctx context.Context, id string) (model.Appointment, error) {
	if err := validID("appointment", id); err != nil {
		return model.Appointment{}, err
	}
	appt, err := scanAppointment(t.tx.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments a
		WHERE a.id = $1
		FOR UPDATE
	`, id))
	if err != nil {
		return model.Appointment{}, notFound(err, "appointment", id)
	}
	return appt, nil
}

func (t *pgTx) ConfirmAppointment(ctx context.Context, id string) error {
	tag, err := t.tx.Exec(ctx, `UPDATE appointments SET status = 'confirmed', confirmed = true WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("appointment %s", id)
	}
	return nil
}

func (t *pgTx) DeletePayments(ctx context.Context, appointmentID string) (int64, error) {
	tag, err := t.tx.Exec(ctx, `DELETE FROM payments WHERE appointment_id = $1`, appointmentID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (t *pgTx) DeleteAppointment(ctx context.Context, id string) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		if db.HasCode(err, db.CodeForeignKeyViolation) {
			return apperr.Conflict("appointment %s still has payments", id)
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("appointment %s", id)
	}
	return nil
}

func (t *pgTx) InsertPayment(ctx context.Context, p *model.Payment) error {
	p.ID = uuid.NewString()
	err := t.tx.QueryRow(ctx, `
		INSERT INTO payments (id, appointment_id, method, amount, reference)
		VALUES ($1, $2, $3, $4::numeric, $5)
		RETURNING created_at
	`, p.ID, p.AppointmentID, string(p.Method), p.Amount.String(), p.Reference).Scan(&p.CreatedAt)
	return paymentError(err, p)
}

func paymentError(err error, p *model.Payment) error {
	switch {
	case err == nil:
		return nil
	case db.HasCode(err, db.CodeForeignKeyViolation):
		return apperr.NotFound("appointment %s", p.AppointmentID)
	case db.HasCode(err, db.CodeUniqueViolation):
		return apperr.Conflict("payment reference %s already recorded", p.Reference)
	case db.HasCode(err, db.CodeCheckViolation), db.HasCode(err, db.CodeNumericOutOfRange):
		return apperr.InvalidArgument("amount %s rejected by store: %v", p.Amount.String(), err)
	default:
		return err
	}
}

func (t *pgTx) AppendEvent(ctx context.Context, evt outbox.Event) error {
	if err := t.outbox.Insert(ctx, t.tx, evt); err != nil {
		return fmt.Errorf("append %s: %w", evt.EventType, err)
	}
	return nil
}

package booking

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/model"
	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/outbox"
	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/report"
)

// Store is the persistence the engine runs on. Implementations report
// missing rows as apperr.ErrNotFound and uniqueness violations as
// apperr.ErrConflict; anything else is treated as unavailable.
type Store interface {
	GetService(ctx context.Context, id string) (model.Service, error)
	// RulesFor returns the windows of a service on an ISO weekday (Monday = 0).
	RulesFor(ctx context.Context, serviceID string, weekday int) ([]model.ScheduleRule, error)
	// OccupiedTimes lists the start times of every appointment held for the day.
	OccupiedTimes(ctx context.Context, serviceID string, date time.Time) ([]model.Clock, error)

	GetAppointment(ctx context.Context, id string) (model.AppointmentView, error)
	// ListAppointments orders by date then time. A nil date lists everything.
	ListAppointments(ctx context.Context, date *time.Time) ([]model.AppointmentView, error)

	// ReportRows returns the appointments dated within [from, to] and the
	// payments attached to them.
	ReportRows(ctx context.Context, from, to time.Time) ([]report.AppointmentRow, []report.PaymentRow, error)

	// WithinTx runs fn in one transaction: committed when fn returns nil,
	// rolled back otherwise.
	WithinTx(ctx context.Context, fn func(Tx) error) error
}

// Tx is the mutating half of Store, only reachable inside WithinTx.
type Tx interface {
	// InsertAppointment fills in ID and CreatedAt. A second appointment for
	// the same (service, date, time) fails with apperr.ErrConflict.
	InsertAppointment(ctx context.Context, appt *model.Appointment) error
	// LockAppointment reads the row and holds it until the transaction ends.
	LockAppointment(ctx context.Context, id string) (model.Appointment, error)
	ConfirmAppointment(ctx context.Context, id string) error
	DeletePayments(ctx context.Context, appointmentID string) (int64, error)
	DeleteAppointment(ctx context.Context, id string) error
	// InsertPayment fills in ID and CreatedAt.
	InsertPayment(ctx context.Context, p *model.Payment) error
	AppendEvent(ctx context.Context, evt outbox.Event) error
}

// SlotCache memoizes the candidate slot starts a service's rules produce on
// an ISO weekday, before any booking is applied. It is advisory: the engine
// logs its errors and falls back to the store.
type SlotCache interface {
	Get(ctx context.Context, serviceID string, weekday int) ([]model.Clock, bool, error)
	Set(ctx context.Context, serviceID string, weekday int, slots []model.Clock) error
}

// Notifier delivers a message to a client contact. It has no result: delivery
// problems never reach the booking caller.
type Notifier interface {
	Notify(ctx context.Context, contact, message string)
}

// CardVerifier checks a card payment against the processor before it is
// recorded. reference is the processor's payment id.
type CardVerifier interface {
	VerifyCardPayment(ctx context.Context, reference string, amount decimal.Decimal) error
}

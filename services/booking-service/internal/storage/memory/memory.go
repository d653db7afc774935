// Package memory is an in-process store for tests and local runs without
// Postgres. A transaction holds the write lock for its whole duration and
// restores a snapshot when it fails.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/apperr"
	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/booking"
	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/catalog"
	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/model"
	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/outbox"
	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/report"
)

type slotKey struct {
	serviceID string
	date      time.Time
	time      model.Clock
}

type state struct {
	services     map[string]model.Service
	rules        map[string]model.ScheduleRule
	appointments map[string]model.Appointment
	slots        map[slotKey]string
	payments     map[string][]model.Payment
	events       []outbox.Event
}

func (s *state) clone() *state {
	c := &state{
		services:     make(map[string]model.Service, len(s.services)),
		rules:        make(map[string]model.ScheduleRule, len(s.rules)),
		appointments: make(map[string]model.Appointment, len(s.appointments)),
		slots:        make(map[slotKey]string, len(s.slots)),
		payments:     make(map[string][]model.Payment, len(s.payments)),
		events:       append([]outbox.Event(nil), s.events...),
	}
	for k, v := range s.services {
		c.services[k] = v
	}
	for k, v := range s.rules {
		c.rules[k] = v
	}
	for k, v := range s.appointments {
		c.appointments[k] = v
	}
	for k, v := range s.slots {
		c.slots[k] = v
	}
	for k, v := range s.payments {
		c.payments[k] = append([]model.Payment(nil), v...)
	}
	return c
}

type Store struct {
	mu  sync.RWMutex
	st  *state
	now func() time.Time
}

func New() *Store {
	return &Store{
		st: &state{
			services:     make(map[string]model.Service),
			rules:        make(map[string]model.ScheduleRule),
			appointments: make(map[string]model.Appointment),
			slots:        make(map[slotKey]string),
			payments:     make(map[string][]model.Payment),
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

var (
	_ booking.Store = (*Store)(nil)
	_ catalog.Store = (*Store)(nil)
)

func (s *Store) GetService(_ context.Context, id string) (model.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	svc, ok := s.st.services[id]
	if !ok {
		return model.Service{}, apperr.NotFound("service %s", id)
	}
	return svc, nil
}

func (s *Store) ListServices(_ context.Context, activeOnly bool) ([]model.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Service, 0, len(s.st.services))
	for _, svc := range s.st.services {
		if activeOnly && !svc.Active {
			continue
		}
		out = append(out, svc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) CreateService(_ context.Context, svc *model.Service) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	svc.ID = uuid.NewString()
	svc.CreatedAt = s.now()
	s.st.services[svc.ID] = *svc
	return nil
}

func (s *Store) ListRules(_ context.Context, serviceID string) ([]model.ScheduleRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rulesLocked(func(r model.ScheduleRule) bool { return r.ServiceID == serviceID }), nil
}

func (s *Store) RulesFor(_ context.Context, serviceID string, weekday int) ([]model.ScheduleRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rulesLocked(func(r model.ScheduleRule) bool {
		return r.ServiceID == serviceID && r.Weekday == weekday
	}), nil
}

func (s *Store) rulesLocked(keep func(model.ScheduleRule) bool) []model.ScheduleRule {
	var out []model.ScheduleRule
	for _, r := range s.st.rules {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weekday != out[j].Weekday {
			return out[i].Weekday < out[j].Weekday
		}
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) CreateRule(_ context.Context, rule *model.ScheduleRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.st.services[rule.ServiceID]; !ok {
		return apperr.NotFound("service %s", rule.ServiceID)
	}
	rule.ID = uuid.NewString()
	s.st.rules[rule.ID] = *rule
	return nil
}

func (s *Store) OccupiedTimes(_ context.Context, serviceID string, date time.Time) ([]model.Clock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Clock
	for k := range s.st.slots {
		if k.serviceID == serviceID && k.date.Equal(date) {
			out = append(out, k.time)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (s *Store) GetAppointment(_ context.Context, id string) (model.AppointmentView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	appt, ok := s.st.appointments[id]
	if !ok {
		return model.AppointmentView{}, apperr.NotFound("appointment %s", id)
	}
	return s.viewLocked(appt), nil
}

func (s *Store) ListAppointments(_ context.Context, date *time.Time) ([]model.AppointmentView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.AppointmentView{}
	for _, appt := range s.st.appointments {
		if date != nil && !appt.Date.Equal(*date) {
			continue
		}
		out = append(out, s.viewLocked(appt))
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Time != b.Time {
			return a.Time < b.Time
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (s *Store) viewLocked(appt model.Appointment) model.AppointmentView {
	total := decimal.Zero
	for _, p := range s.st.payments[appt.ID] {
		total = total.Add(p.Amount)
	}
	return model.AppointmentView{
		Appointment: appt,
		ServiceName: s.st.services[appt.ServiceID].Name,
		TotalPaid:   total,
	}
}

func (s *Store) ReportRows(_ context.Context, from, to time.Time) ([]report.AppointmentRow, []report.PaymentRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var appts []report.AppointmentRow
	var payments []report.PaymentRow
	for _, appt := range s.st.appointments {
		if appt.Date.Before(from) || appt.Date.After(to) {
			continue
		}
		appts = append(appts, report.AppointmentRow{
			AppointmentID: appt.ID,
			ServiceName:   s.st.services[appt.ServiceID].Name,
			Date:          appt.Date,
		})
		for _, p := range s.st.payments[appt.ID] {
			payments = append(payments, report.PaymentRow{AppointmentID: appt.ID, Method: p.Method, Amount: p.Amount})
		}
	}
	return appts, payments, nil
}

// Events returns the outbox events committed so far, oldest first.
func (s *Store) Events() []outbox.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]outbox.Event(nil), s.st.events...)
}

func (s *Store) WithinTx(ctx context.Context, fn func(booking.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	snapshot := s.st.clone()
	committed := false
	defer func() {
		if !committed {
			s.st = snapshot
		}
	}()
	if err := fn(&tx{s: s}); err != nil {
		return err
	}
	committed = true
	return nil
}

// tx mutates the store's live state; the caller already holds s.mu.
type tx struct {
	s *Store
}

func (t *tx) InsertAppointment(_ context.Context, appt *model.Appointment) error {
	st := t.s.st
	if _, ok := st.services[appt.ServiceID]; !ok {
		return apperr.NotFound("service %s", appt.ServiceID)
	}
	k := slotKey{serviceID: appt.ServiceID, date: appt.Date, time: appt.Time}
	if _, taken := st.slots[k]; taken {
		return apperr.Conflict("slot already taken")
	}
	appt.ID = uuid.NewString()
	appt.CreatedAt = t.s.now()
	st.appointments[appt.ID] = *appt
	st.slots[k] = appt.ID
	return nil
}

func (t *tx) LockAppointment(_ context.Context, id string) (model.Appointment, error) {
	appt, ok := t.s.st.appointments[id]
	if !ok {
		return model.Appointment{}, apperr.NotFound("appointment %s", id)
	}
	return appt, nil
}

func (t *tx) ConfirmAppointment(_ context.Context, id string) error {
	appt, ok := t.s.st.appointments[id]
	if !ok {
		return apperr.NotFound("appointment %s", id)
	}
	appt.Status, appt.Confirmed = model.StatusConfirmed, true
	t.s.st.appointments[id] = appt
	return nil
}

func (t *tx) DeletePayments(_ context.Context, appointmentID string) (int64, error) {
	n := len(t.s.st.payments[appointmentID])
	delete(t.s.st.payments, appointmentID)
	return int64(n), nil
}

func (t *tx) DeleteAppointment(_ context.Context, id string) error {
	st := t.s.st
	appt, ok := st.appointments[id]
	if !ok {
		return apperr.NotFound("appointment %s", id)
	}
	if len(st.payments[id]) > 0 {
		return apperr.Conflict("appointment %s still has payments", id)
	}
	delete(st.appointments, id)
	delete(st.slots, slotKey{serviceID: appt.ServiceID, date: appt.Date, time: appt.Time})
	return nil
}

func (t *tx) InsertPayment(_ context.Context, p *model.Payment) error {
	if _, ok := t.s.st.appointments[p.AppointmentID]; !ok {
		return apperr.NotFound("appointment %s", p.AppointmentID)
	}
	if p.Reference != "" {
		for _, list := range t.s.st.payments {
			for _, existing := range list {
				if existing.Reference == p.Reference {
					return apperr.Conflict("payment reference %s already recorded", p.Reference)
				}
			}
		}
	}
	p.ID = uuid.NewString()
	p.CreatedAt = t.s.now()
	t.s.st.payments[p.AppointmentID] = append(t.s.st.payments[p.AppointmentID], *p)
	return nil
}

func (t *tx) AppendEvent(_ context.Context, evt outbox.Event) error {
	t.s.st.events = append(t.s.st.events, evt)
	return nil
}

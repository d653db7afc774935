package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/apperr"
	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/booking"
	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/model"
	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/outbox"
)

var day = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func seed(t *testing.T, s *Store) model.Service {
	t.Helper()
	svc := model.Service{Name: "Haircut", DurationMinutes: 30, Price: decimal.NewFromInt(20), Active: true}
	require.NoError(t, s.CreateService(context.Background(), &svc))
	return svc
}

func TestInsertAppointmentUniqueSlot(t *testing.T) {
	ctx := context.Background()
	s := New()
	svc := seed(t, s)

	insert := func() error {
		return s.WithinTx(ctx, func(tx booking.Tx) error {
			appt := model.Appointment{ServiceID: svc.ID, Date: day, Time: 540, Status: model.StatusBooked}
			return tx.InsertAppointment(ctx, &appt)
		})
	}
	require.NoError(t, insert())
	assert.ErrorIs(t, insert(), apperr.ErrConflict)

	times, err := s.OccupiedTimes(ctx, svc.ID, day)
	require.NoError(t, err)
	assert.Equal(t, []model.Clock{540}, times)
}

func TestWithinTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s := New()
	svc := seed(t, s)
	boom := errors.New("boom")

	err := s.WithinTx(ctx, func(tx booking.Tx) error {
		appt := model.Appointment{ServiceID: svc.ID, Date: day, Time: 600, Status: model.StatusBooked}
		require.NoError(t, tx.InsertAppointment(ctx, &appt))
		require.NoError(t, tx.AppendEvent(ctx, outbox.Event{EventType: outbox.TypeAppointmentBooked}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	list, err := s.ListAppointments(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Empty(t, s.Events())
	times, _ := s.OccupiedTimes(ctx, svc.ID, day)
	assert.Empty(t, times)
}

func TestDeleteAppointmentRequiresPaymentsGone(t *testing.T) {
	ctx := context.Background()
	s := New()
	svc := seed(t, s)

	var id string
	require.NoError(t, s.WithinTx(ctx, func(tx booking.Tx) error {
		appt := model.Appointment{ServiceID: svc.ID, Date: day, Time: 540, Status: model.StatusBooked}
		if err := tx.InsertAppointment(ctx, &appt); err != nil {
			return err
		}
		id = appt.ID
		return tx.InsertPayment(ctx, &model.Payment{AppointmentID: id, Method: model.MethodCash, Amount: decimal.NewFromInt(5)})
	}))

	err := s.WithinTx(ctx, func(tx booking.Tx) error { return tx.DeleteAppointment(ctx, id) })
	assert.ErrorIs(t, err, apperr.ErrConflict)

	require.NoError(t, s.WithinTx(ctx, func(tx booking.Tx) error {
		n, err := tx.DeletePayments(ctx, id)
		assert.EqualValues(t, 1, n)
		if err != nil {
			return err
		}
		return tx.DeleteAppointment(ctx, id)
	}))
	_, err = s.GetAppointment(ctx, id)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRulesOrdering(t *testing.T) {
	ctx := context.Background()
	s := New()
	svc := seed(t, s)
	for _, r := range []model.ScheduleRule{
		{ServiceID: svc.ID, Weekday: 2, Start: 540, End: 600},
		{ServiceID: svc.ID, Weekday: 0, Start: 840, End: 900},
		{ServiceID: svc.ID, Weekday: 0, Start: 540, End: 600},
	} {
		require.NoError(t, s.CreateRule(ctx, &r))
	}

	rules, err := s.ListRules(ctx, svc.ID)
	require.NoError(t, err)
	require.Len(t, rules, 3)
	assert.Equal(t, model.Clock(540), rules[0].Start)
	assert.Equal(t, model.Clock(840), rules[1].Start)
	assert.Equal(t, 2, rules[2].Weekday)

	monday, err := s.RulesFor(ctx, svc.ID, 0)
	require.NoError(t, err)
	assert.Len(t, monday, 2)

	assert.ErrorIs(t, s.CreateRule(ctx, &model.ScheduleRule{ServiceID: "missing", Start: 1, End: 2}), apperr.ErrNotFound)
}

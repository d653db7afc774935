package report_test

import (
	"testing"
	"time"

	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/model"
	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/report"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	from = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to   = time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestBuild_TotalsReconcile(t *testing.T) {
	appts := []report.AppointmentRow{
		{AppointmentID: "a1", ServiceName: "Haircut"},
		{AppointmentID: "a2", ServiceName: "Haircut"},
		{AppointmentID: "a3", ServiceName: "Massage"},
		{AppointmentID: "a4", ServiceName: "Nails"},
	}
	pays := []report.PaymentRow{
		{AppointmentID: "a1", Method: model.MethodCash, Amount: dec("50")},
		{AppointmentID: "a1", Method: model.MethodCard, Amount: dec("30")},
		{AppointmentID: "a3", Method: model.MethodCash, Amount: dec("100.50")},
		{AppointmentID: "outside", Method: model.MethodTransfer, Amount: dec("999")},
	}

	c := report.Build(from, to, appts, pays)

	assert.True(t, dec("180.50").Equal(c.TotalGeneral), c.TotalGeneral.String())
	assert.Equal(t, 4, c.TotalAppointments)

	// GIVEN no transfer in range, THEN the method is omitted.
	require.Len(t, c.TotalByMethod, 2)
	assert.Equal(t, model.MethodCard, c.TotalByMethod[0].Method)
	assert.Equal(t, model.MethodCash, c.TotalByMethod[1].Method)

	sum := decimal.Zero
	for _, m := range c.TotalByMethod {
		sum = sum.Add(m.Total)
	}
	assert.True(t, sum.Equal(c.TotalGeneral))

	// Left-join semantics: Nails has an appointment and no payment.
	require.Len(t, c.TotalByService, 3)
	assert.Equal(t, "Haircut", c.TotalByService[0].ServiceName)
	assert.True(t, dec("80").Equal(c.TotalByService[0].Total))
	assert.Equal(t, "Nails", c.TotalByService[2].ServiceName)
	assert.True(t, c.TotalByService[2].Total.IsZero())
}

func TestBuild_DemandShare(t *testing.T) {
	appts := []report.AppointmentRow{
		{AppointmentID: "a1", ServiceName: "A"},
		{AppointmentID: "a2", ServiceName: "B"},
		{AppointmentID: "a3", ServiceName: "C"},
	}
	c := report.Build(from, to, appts, nil)

	require.Len(t, c.DemandShare, 3)
	sum := decimal.Zero
	for _, d := range c.DemandShare {
		assert.True(t, dec("33.33").Equal(d.Percentage), d.Percentage.String())
		sum = sum.Add(d.Percentage)
	}
	assert.True(t, sum.Sub(hundredDec).Abs().LessThanOrEqual(dec("0.03")))
	assert.Equal(t, "A", c.DemandShare[0].ServiceName)
}

var hundredDec = decimal.NewFromInt(100)

func TestBuild_DemandOrderedByCount(t *testing.T) {
	appts := []report.AppointmentRow{
		{AppointmentID: "a1", ServiceName: "B"},
		{AppointmentID: "a2", ServiceName: "A"},
		{AppointmentID: "a3", ServiceName: "B"},
		{AppointmentID: "a4", ServiceName: "B"},
	}
	c := report.Build(from, to, appts, nil)
	require.Len(t, c.DemandShare, 2)
	assert.Equal(t, "B", c.DemandShare[0].ServiceName)
	assert.True(t, dec("75").Equal(c.DemandShare[0].Percentage))
	assert.True(t, dec("25").Equal(c.DemandShare[1].Percentage))
}

func TestBuild_Empty(t *testing.T) {
	c := report.Build(from, to, nil, nil)
	assert.True(t, c.TotalGeneral.IsZero())
	assert.Zero(t, c.TotalAppointments)
	assert.Empty(t, c.TotalByMethod)
	assert.Empty(t, c.TotalByService)
	assert.Empty(t, c.DemandShare)
}

package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	c, err := ParseClock("09:30")
	require.NoError(t, err)
	assert.Equal(t, Clock(570), c)
	assert.Equal(t, "09:30", c.String())

	c, err = ParseClock("17:05:00")
	require.NoError(t, err)
	assert.Equal(t, "17:05", c.String())

	for _, bad := range []string{"", "9:30", "24:00", "12:60", "12:00:30", "ab:cd"} {
		_, err := ParseClock(bad)
		assert.Error(t, err, bad)
	}
}

func TestClockText(t *testing.T) {
	var c Clock
	require.NoError(t, c.UnmarshalText([]byte("08:15")))
	b, err := c.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "08:15", string(b))
	assert.Equal(t, 8*time.Hour+15*time.Minute, c.Duration())
	assert.Equal(t, c, ClockFromDuration(c.Duration()))
}

func TestISOWeekday(t *testing.T) {
	monday := time.Date(2026, 1, 26, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, ISOWeekday(monday))
	assert.Equal(t, 6, ISOWeekday(monday.AddDate(0, 0, 6)))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-03-10")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("10/03/2026")
	assert.Error(t, err)

	assert.Equal(t, d, DateOf(d.Add(13*time.Hour)))
}

func TestPaymentMethodValid(t *testing.T) {
	assert.True(t, MethodCash.Valid())
	assert.True(t, PaymentMethod("transfer").Valid())
	assert.False(t, PaymentMethod("crypto").Valid())
}

package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Service struct {
	ID              string
	Name            string
	Description     string
	DurationMinutes int
	Price           decimal.Decimal
	Active          bool
	CreatedAt       time.Time
}

// ScheduleRule is a recurring weekly window in which a service can be booked.
type ScheduleRule struct {
	ID        string
	ServiceID string
	Weekday   int // Monday = 0
	Start     Clock
	End       Clock
}

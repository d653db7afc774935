package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusBooked    = "booked"
	StatusConfirmed = "confirmed"
)

type Appointment struct {
	ID            string
	ServiceID     string
	Date          time.Time
	Time          Clock
	Status        string
	Confirmed     bool
	ClientName    string
	ClientContact string
	CreatedAt     time.Time
}

// AppointmentView is the listing shape: the appointment plus its service name
// and what has been paid so far.
type AppointmentView struct {
	Appointment
	ServiceName string
	TotalPaid   decimal.Decimal
}

package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	MethodCash     PaymentMethod = "cash"
	MethodCard     PaymentMethod = "card"
	MethodTransfer PaymentMethod = "transfer"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodCard, MethodTransfer:
		return true
	}
	return false
}

// Payment rows are append-only; they disappear only with their appointment.
type Payment struct {
	ID            string
	AppointmentID string
	Method        PaymentMethod
	Amount        decimal.Decimal
	Reference     string
	CreatedAt     time.Time
}

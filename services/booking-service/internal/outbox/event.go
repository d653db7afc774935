package outbox

import (
	"encoding/json"
	"fmt"
)

// Event types emitted by the booking service. The Kafka topic equals the type.
const (
	TypeAppointmentBooked    = "booking.appointment.booked.v1"
	TypeAppointmentConfirmed = "booking.appointment.confirmed.v1"
	TypeAppointmentRemoved   = "booking.appointment.removed.v1"
	TypePaymentRegistered    = "booking.payment.registered.v1"
)

const AggregateAppointment = "appointment"

// Event is the envelope written to the outbox in the same transaction as
// the state change it describes.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// NewAppointmentEvent marshals payload into an appointment-scoped event.
func NewAppointmentEvent(eventType, appointmentID string, payload map[string]any) (Event, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{
		AggregateType: AggregateAppointment,
		AggregateID:   appointmentID,
		EventType:     eventType,
		Payload:       b,
	}, nil
}

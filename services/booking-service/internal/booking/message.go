package booking

import (
	"fmt"

	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/model"
)

// ConfirmationMessage is the text sent to the client once a booking commits.
func ConfirmationMessage(appt model.Appointment) string {
	return fmt.Sprintf("Appointment booked\n\nHi %s, your appointment is scheduled for %s at %s.\n\nThank you for booking with us!",
		appt.ClientName, appt.Date.Format("02/01/2006"), appt.Time.String())
}

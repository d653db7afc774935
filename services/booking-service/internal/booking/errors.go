package booking

import "github.com/NahunMenem/TurnosLu/services/booking-service/internal/apperr"

// Error kinds returned by the engine. They alias apperr so stores and
// handlers can classify without importing this package.
var (
	ErrNotFound        = apperr.ErrNotFound
	ErrConflict        = apperr.ErrConflict
	ErrInvalidArgument = apperr.ErrInvalidArgument
	ErrUnavailable     = apperr.ErrUnavailable
)

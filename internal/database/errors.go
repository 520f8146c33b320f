package database

import "errors"

var (
	// ErrInvalidInterval — запрошенный интервал некорректен (end <= start).
	ErrInvalidInterval = errors.New("invalid interval: end must be after start")

	// ErrNotAvailable — advisory проверка не прошла, слот занят.
	ErrNotAvailable = errors.New("bike is not available for the requested interval")

	// ErrSlotTaken — повторная проверка при фиксации нашла конфликт.
	ErrSlotTaken = errors.New("slot is no longer available")

	// ErrPaymentDeclined — платёжный провайдер отклонил авторизацию.
	ErrPaymentDeclined = errors.New("payment declined")

	// ErrMissingRenter — нет аутентифицированного арендатора.
	ErrMissingRenter = errors.New("renter identity is required")

	// ErrPersistenceFailure — запись не удалась после успешной оплаты.
	// Требует ручного вмешательства (компенсирующий возврат средств).
	ErrPersistenceFailure = errors.New("booking persistence failed after payment")

	ErrPastDate               = errors.New("booking start is in the past")
	ErrTooManyAttempts        = errors.New("too many booking attempts")
	ErrDateTooFar             = errors.New("booking start is too far in the future")
	ErrBikeNotFound           = errors.New("bike not found")
	ErrBookingNotFound        = errors.New("booking not found")
	ErrConcurrentModification = errors.New("booking was modified concurrently")
)

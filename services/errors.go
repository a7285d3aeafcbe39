package services

import "errors"

var (
	ErrNotEligible          = errors.New("not eligible for a free trial")
	ErrUnavailable          = errors.New("service unavailable, please try again")
	ErrUserNotFound         = errors.New("user not found")
	ErrUserExists           = errors.New("profile already exists")
	ErrEventNotFound        = errors.New("event not found")
	ErrEventInactive        = errors.New("event is not open for booking")
	ErrEventNotPayable      = errors.New("event has no price configured")
	ErrBookingNotFound      = errors.New("booking not found")
	ErrPaymentRequired      = errors.New("payment reference required")
	ErrInvalidSignature     = errors.New("invalid payment signature")
	ErrPaymentUsed          = errors.New("payment already used for a booking")
	ErrPaymentMismatch      = errors.New("payment does not match this event")
	ErrInvalidStatus        = errors.New("invalid booking status")
	ErrTicketUsed           = errors.New("ticket already used")
	ErrInvalidDate          = errors.New("invalid date")
	ErrNotificationNotFound = errors.New("notification not found")
)

// ValidationError is a client input problem reported verbatim.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

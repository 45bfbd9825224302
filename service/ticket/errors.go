package ticket

import "errors"

var (
	ErrTicketNotFound     = errors.New("ticket not found")
	ErrBookingNotFound    = errors.New("booking not found")
	ErrSubjectNotFound    = errors.New("event or activity not found")
	ErrSubjectUnavailable = errors.New("event or activity is not open for booking")
	ErrInvalidQuantity    = errors.New("ticket quantity must be positive")
	ErrBookingTooLarge    = errors.New("too many tickets in one booking")
	ErrUnknownTicketType  = errors.New("unknown ticket type")
	ErrCapacityExceeded   = errors.New("not enough capacity left")
	ErrInvalidSchedule    = errors.New("invalid date or time slot")
	ErrInvalidFormat      = errors.New("invalid ticket number")
	ErrTicketNotActive    = errors.New("ticket is not active")
	ErrNotTransferable    = errors.New("tickets of a single-ticket booking cannot be transferred")
	ErrTicketNotInBooking = errors.New("ticket does not belong to the booking")
	ErrNotCancellable     = errors.New("ticket already used or cancelled")
	ErrInvalidHolder      = errors.New("holder needs a name and an email or phone")
)

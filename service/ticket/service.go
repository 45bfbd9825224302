// Package ticket implements the ticket lifecycle: number generation, issuance of bookings,
// validation at the door and the admin/holder mutations (use, transfer, cancel, expire).
//
// Status moves active -> used | expired | cancelled. Every transition is a compare-and-swap on the
// current status, so two writers racing on the same ticket can never both succeed.
package ticket

import (
	"context"
	"errors"
	"time"

	"zestpass/db"

	"github.com/google/uuid"
)

const (
	// Tickets stay valid this long after the end of their window
	GracePeriod = 2 * time.Hour

	// Earliest a ticket can be scanned before its window starts
	EarlyEntryWindow = 2 * time.Hour

	// A second scan inside this window is flagged as a rapid re-scan
	RapidRescanWindow = 5 * time.Minute

	// Expiry sweep page size
	defaultSweepBatchSize = 500
)

// Ticket lifecycle service
type Service struct {
	store         db.Store
	generator     *Generator
	loc           *time.Location
	maxPerBooking int
	sweepBatch    int
	now           func() time.Time
}

// Constructor for the ticket service. `loc` is the timezone calendar dates are compared in
func NewService(store db.Store, loc *time.Location, maxPerBooking int) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		store:         store,
		generator:     NewGenerator(),
		loc:           loc,
		maxPerBooking: maxPerBooking,
		sweepBatch:    defaultSweepBatchSize,
		now:           time.Now,
	}
}

// Replace the clock
func (service *Service) SetClock(now func() time.Time) {
	service.now = now
}

// A booking: the attendee record and its tickets
type Booking struct {
	Attendee db.Attendee `json:"attendee"`
	Tickets  []db.Ticket `json:"tickets"`
}

// Get a ticket by ID
func (service *Service) Ticket(ctx context.Context, id uuid.UUID) (*db.Ticket, error) {
	ticket, err := service.store.GetTicket(ctx, id, false)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrTicketNotFound
	}
	return ticket, err
}

// Get a ticket by its number. Input is normalized first
func (service *Service) FindByNumber(ctx context.Context, number string) (*db.Ticket, error) {
	ticket, err := service.store.GetTicketByNumber(ctx, NormalizeTicketNumber(number))
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrTicketNotFound
	}
	return ticket, err
}

// Get a booking with its tickets
func (service *Service) Booking(ctx context.Context, attendeeID uuid.UUID) (*Booking, error) {
	attendee, err := service.store.GetAttendee(ctx, attendeeID, false)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}

	tickets, err := service.store.ListTicketsByAttendee(ctx, attendeeID)
	if err != nil {
		return nil, err
	}
	return &Booking{Attendee: *attendee, Tickets: tickets}, nil
}

// Tickets linked to a user account, latest window first
func (service *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]db.Ticket, error) {
	return service.store.ListTicketsByUser(ctx, userID)
}

// Validation history of a ticket
func (service *Service) History(ctx context.Context, ticketID uuid.UUID) ([]db.TicketValidation, error) {
	return service.store.ListValidations(ctx, ticketID)
}

// Calendar day of t in the service's timezone, as midnight
func (service *Service) day(t time.Time) time.Time {
	local := t.In(service.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, service.loc)
}

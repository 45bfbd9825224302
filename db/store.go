package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// Returned by every lookup that finds nothing
	ErrNotFound = errors.New("record not found")

	// Returned when a write breaks a unique constraint (ticket number, payment ID,...)
	ErrConflict = errors.New("record already exists")
)

// Status compare-and-swap of a single ticket
type StatusChange struct {
	TicketID uuid.UUID
	From     TicketStatus
	To       TicketStatus
	At       time.Time
	ActorID  *uuid.UUID
	Reason   string
}

// Filter for counting the tickets that hold capacity (active or used)
type CapacityFilter struct {
	SubjectType SubjectType
	SubjectID   uuid.UUID
	TicketType  string     // empty for any type
	WindowStart *time.Time // activity occurrence, nil for any
}

// Cutoffs of the expiry sweep. A ticket is a candidate when it is active and either its window ended before
// EndedBefore, it has no end and started before StartedBefore, or its subject is cancelled.
// Candidates come in (window_start, id) order, strictly after After when it is set
type ExpiryCutoff struct {
	EndedBefore   time.Time
	StartedBefore time.Time
	After         *SweepCursor
}

// Position of the last ticket of a sweep page
type SweepCursor struct {
	WindowStart time.Time
	ID          uuid.UUID
}

// Store is the persistence boundary of the services. Queries implements it over Postgres and Redis,
// memdb over process memory.
// Lookups return ErrNotFound when nothing matches. `forUpdate` locks the row until the surrounding
// transaction ends and only matters inside WithinTx.
type Store interface {
	// Run fn in a transaction. Every write made through tx is rolled back if fn returns an error
	WithinTx(ctx context.Context, fn func(tx Store) error) error

	// Users and pages
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	FindUserByContact(ctx context.Context, email, phone string) (*User, error)
	CreatePage(ctx context.Context, page *Page) error
	GetPage(ctx context.Context, id uuid.UUID) (*Page, error)
	PageSlugExists(ctx context.Context, slug string) (bool, error)

	// Events and activities
	CreateEvent(ctx context.Context, event *Event) error
	CreateActivity(ctx context.Context, activity *Activity) error
	GetSubject(ctx context.Context, subjectType SubjectType, id uuid.UUID, forUpdate bool) (*Subject, error)

	// Bookings and tickets
	TicketNumberExists(ctx context.Context, number string) (bool, error)
	CountCapacityTickets(ctx context.Context, filter CapacityFilter) (int64, error)
	CreateAttendee(ctx context.Context, attendee *Attendee) error
	GetAttendee(ctx context.Context, id uuid.UUID, forUpdate bool) (*Attendee, error)
	GetAttendeeByPaymentID(ctx context.Context, paymentID string) (*Attendee, error)
	SaveAttendee(ctx context.Context, attendee *Attendee) error
	CreateTickets(ctx context.Context, tickets []Ticket) error
	GetTicket(ctx context.Context, id uuid.UUID, forUpdate bool) (*Ticket, error)
	GetTicketByNumber(ctx context.Context, number string) (*Ticket, error)
	ListTicketsByIDs(ctx context.Context, ids []uuid.UUID, forUpdate bool) ([]Ticket, error)
	ListTicketsByAttendee(ctx context.Context, attendeeID uuid.UUID) ([]Ticket, error)
	ListTicketsByUser(ctx context.Context, userID uuid.UUID) ([]Ticket, error)
	SaveTicket(ctx context.Context, ticket *Ticket) error
	SetTicketQRImage(ctx context.Context, ticketID uuid.UUID, url string) error
	CompareAndSetStatus(ctx context.Context, change StatusChange) (bool, error)
	ListExpirableTickets(ctx context.Context, cutoff ExpiryCutoff, limit int) ([]Ticket, error)
	AppendValidation(ctx context.Context, entry *TicketValidation) error
	ListValidations(ctx context.Context, ticketID uuid.UUID) ([]TicketValidation, error)
	RecordSecurityEvent(ctx context.Context, event *SecurityEvent) error

	// Orders and refunds
	CreateOrder(ctx context.Context, order *Order) error
	GetOrderByGatewayID(ctx context.Context, gatewayOrderID string, forUpdate bool) (*Order, error)
	SaveOrder(ctx context.Context, order *Order) error
	CreateRefund(ctx context.Context, refund *Refund) error
	GetRefund(ctx context.Context, id uuid.UUID, forUpdate bool) (*Refund, error)
	SaveRefund(ctx context.Context, refund *Refund) error

	// Sharing assignments
	GetAssignment(ctx context.Context, contentType ContentType, contentID, granteeID uuid.UUID) (*SharingAssignment, error)
	GetAssignmentByID(ctx context.Context, id uuid.UUID) (*SharingAssignment, error)
	SaveAssignment(ctx context.Context, assignment *SharingAssignment) error

	// Short-lived processing locks
	AcquireLock(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, owner string) error
}

package db

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Share fields of all models: ID, create at and updated at timestamp
type Model struct {
	ID          uuid.UUID `gorm:"type:uuid;not null;default:gen_random_uuid();primaryKey" json:"id"`
	DateCreated time.Time `gorm:"not null;default:now()" json:"created_at"`
	DateUpdated time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func NewModel() Model {
	now := time.Now()
	return Model{
		ID:          uuid.New(),
		DateCreated: now,
		DateUpdated: now,
	}
}

// Enum defined
type Role string

type PageType string

type SubjectType string

type SubjectStatus string

type TicketStatus string

type TicketSource string

type PaymentStatus string

type OrderStatus string

type RefundStatus string

type ContentType string

type Permission string

// Constant defined
const (
	// Constant role defined
	Customer Role = "customer"
	Host     Role = "host"
	Staff    Role = "staff"
	Admin    Role = "admin"

	// Organizer page types
	ArtistPage       PageType = "artist"
	OrganizationPage PageType = "organization"
	VenuePage        PageType = "venue"

	// What a ticket admits to. Events and activities are mutually exclusive on a ticket
	SubjectEvent    SubjectType = "event"
	SubjectActivity SubjectType = "activity"

	// Event/activity status
	SubjectDraft     SubjectStatus = "draft"
	SubjectPublished SubjectStatus = "published"
	SubjectCancelled SubjectStatus = "cancelled"

	// Ticket status
	TicketActive    TicketStatus = "active"
	TicketUsed      TicketStatus = "used"
	TicketCancelled TicketStatus = "cancelled"
	TicketExpired   TicketStatus = "expired"

	// How the tickets of a booking were created
	SourcePayment TicketSource = "payment"
	SourceManual  TicketSource = "manual"

	// Booking payment status
	PaymentPaid     PaymentStatus = "paid"
	PaymentManual   PaymentStatus = "manual"
	PaymentPartial  PaymentStatus = "partially_refunded"
	PaymentRefunded PaymentStatus = "refunded"

	// Gateway order status
	OrderCreated OrderStatus = "created"
	OrderPaid    OrderStatus = "paid"
	OrderFailed  OrderStatus = "failed"

	// Refund status
	RefundPending RefundStatus = "pending"
	RefundIssued  RefundStatus = "issued"
	RefundFailed  RefundStatus = "failed"

	// Shareable content
	ContentPage     ContentType = "page"
	ContentEvent    ContentType = "event"
	ContentActivity ContentType = "activity"
	ContentSession  ContentType = "session"

	// Permissions carried by a sharing assignment
	PermView    Permission = "view"
	PermEdit    Permission = "edit"
	PermCheckin Permission = "checkin"
	PermManage  Permission = "manage"
)

// Validation history actions
const (
	ActionValidated   = "validated"
	ActionUsed        = "used"
	ActionExpired     = "expired"
	ActionTransferred = "transferred"
	ActionCancelled   = "cancelled"
	ActionIssued      = "issued"
)

// User of the marketplace. Roles:
// 1. customer: books tickets
// 2. host: runs organizer pages and their events/activities
// 3. staff: scans tickets at the door
// 4. admin: platform's administrator
type User struct {
	Model
	Name     string `gorm:"type:varchar(100);not null" json:"name"`
	Email    string `gorm:"type:varchar(100);uniqueIndex" json:"email"`
	Phone    string `gorm:"type:varchar(20);index" json:"phone"`
	Password string `gorm:"type:varchar(60);not null" json:"-"`
	Role     Role   `gorm:"type:varchar(20);not null;default:customer" json:"role"`

	// Relationships
	Tickets []Ticket `gorm:"foreignKey:UserID" json:"tickets,omitempty"`
	Pages   []Page   `gorm:"foreignKey:OwnerID" json:"pages,omitempty"`
}

// Organizer page: an artist, organization or venue that publishes events and activities.
// `slug` is unique and used for public URLs
type Page struct {
	Model
	Type    PageType  `gorm:"type:varchar(20);not null;index" json:"type"`
	Name    string    `gorm:"type:varchar(100);not null" json:"name"`
	Slug    string    `gorm:"type:varchar(120);not null;uniqueIndex" json:"slug"`
	OwnerID uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_id"`
}

// Event information.
// `PageID` is the owning page (creator.pageId). `OrganizationID` and `CreatedBy` are the legacy owner fields,
// kept for events created before pages existed. Never branch on them directly: go through NormalizeEvent.
// StartAt/EndAt are the single date/time window of the event
type Event struct {
	Model
	Title          string        `gorm:"type:varchar(200);not null" json:"title"`
	PageID         *uuid.UUID    `gorm:"type:uuid;index" json:"page_id,omitempty"`
	OrganizationID *uuid.UUID    `gorm:"type:uuid;index" json:"organization_id,omitempty"`
	CreatedBy      *uuid.UUID    `gorm:"type:uuid;index" json:"created_by,omitempty"`
	StartAt        time.Time     `gorm:"not null" json:"start_at"`
	EndAt          *time.Time    `json:"end_at,omitempty"`
	Status         SubjectStatus `gorm:"type:varchar(20);not null;default:published" json:"status"`

	// Relationships
	TicketTypes []TicketType `gorm:"foreignKey:EventID" json:"ticket_types,omitempty"`
}

// Ticket type of an event (General, VIP,...). Capacity = 0 means unlimited
type TicketType struct {
	Model
	EventID  uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_event_ticket_type" json:"event_id"`
	Name     string          `gorm:"type:varchar(50);not null;uniqueIndex:idx_event_ticket_type" json:"name"`
	Price    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Capacity int             `gorm:"not null;default:0" json:"capacity"`
}

// Activity: a recurring offering (workshop, tour,...) booked per date and weekly time slot
type Activity struct {
	Model
	Title          string          `gorm:"type:varchar(200);not null" json:"title"`
	PageID         *uuid.UUID      `gorm:"type:uuid;index" json:"page_id,omitempty"`
	OrganizationID *uuid.UUID      `gorm:"type:uuid;index" json:"organization_id,omitempty"`
	CreatedBy      *uuid.UUID      `gorm:"type:uuid;index" json:"created_by,omitempty"`
	Price          decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Status         SubjectStatus   `gorm:"type:varchar(20);not null;default:published" json:"status"`

	// Relationships
	Slots []ActivitySlot `gorm:"foreignKey:ActivityID" json:"slots,omitempty"`
}

// Weekly recurring slot of an activity. StartTime/EndTime are wall-clock "15:04" in the configured timezone.
// Capacity is per occurrence (one date + slot)
type ActivitySlot struct {
	Model
	ActivityID uuid.UUID    `gorm:"type:uuid;not null;index" json:"activity_id"`
	Weekday    time.Weekday `gorm:"not null" json:"weekday"`
	StartTime  string       `gorm:"type:varchar(5);not null" json:"start_time"`
	EndTime    string       `gorm:"type:varchar(5);not null" json:"end_time"`
	Capacity   int          `gorm:"not null;default:0" json:"capacity"`
}

// Attendee (booking) record: groups the 1..N tickets created by a single payment or manual entry.
// Business rules:
// 1. `TicketCounts` is the ticket-type breakdown ({"General": 3, "VIP": 1}); activities use the single type "Standard"
// 2. `CheckInEligible` is false once every ticket of the booking has been cancelled
// 3. `PaymentID` is unique when set, so a gateway payment can only ever create one booking
type Attendee struct {
	Model
	SubjectType      SubjectType     `gorm:"type:varchar(20);not null;index:idx_attendee_subject" json:"subject_type"`
	SubjectID        uuid.UUID       `gorm:"type:uuid;not null;index:idx_attendee_subject" json:"subject_id"`
	UserID           *uuid.UUID      `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Name             string          `gorm:"type:varchar(100);not null" json:"name"`
	Email            string          `gorm:"type:varchar(100);index" json:"email"`
	Phone            string          `gorm:"type:varchar(20);index" json:"phone"`
	TicketCounts     TicketCounts    `gorm:"type:jsonb;not null" json:"tickets"`
	TotalTickets     int             `gorm:"not null" json:"total_tickets"`
	CancelledTickets int             `gorm:"not null;default:0" json:"cancelled_tickets"`
	TotalAmount      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	PaymentStatus    PaymentStatus   `gorm:"type:varchar(30);not null" json:"payment_status"`
	PaymentID        *string         `gorm:"type:varchar(100);uniqueIndex" json:"payment_id,omitempty"`
	OrderID          *uuid.UUID      `gorm:"type:uuid" json:"order_id,omitempty"`
	Source           TicketSource    `gorm:"type:varchar(20);not null" json:"source"`
	CheckInEligible  bool            `gorm:"not null;default:true" json:"check_in_eligible"`
	SelectedDate     *time.Time      `json:"selected_date,omitempty"`
	CreatedByID      *uuid.UUID      `gorm:"type:uuid" json:"created_by_id,omitempty"` // Host who entered a manual booking

	// Relationships
	Tickets []Ticket `gorm:"foreignKey:AttendeeID" json:"ticket_list,omitempty"`
}

// A single admittable unit.
// Invariants:
// 1. `TicketNumber` is globally unique (unique index) and `QRPayload` always equals it
// 2. Status moves active -> used | expired | cancelled and never leaves a terminal status
// 3. `WindowStart`/`WindowEnd` are copied from the schedule at issuance: the event's date/time or the
// activity's selected date + slot
type Ticket struct {
	Model
	TicketNumber          string          `gorm:"type:varchar(64);not null;uniqueIndex" json:"ticket_number"`
	QRPayload             string          `gorm:"type:varchar(64);not null" json:"qr_payload"`
	QRImageURL            string          `gorm:"type:varchar" json:"qr_image_url,omitempty"`
	UserID                *uuid.UUID      `gorm:"type:uuid;index" json:"user_id,omitempty"`
	HolderName            string          `gorm:"type:varchar(100)" json:"holder_name"`
	HolderEmail           string          `gorm:"type:varchar(100)" json:"holder_email"`
	HolderPhone           string          `gorm:"type:varchar(20)" json:"holder_phone"`
	SubjectType           SubjectType     `gorm:"type:varchar(20);not null;index:idx_ticket_subject" json:"type"`
	SubjectID             uuid.UUID       `gorm:"type:uuid;not null;index:idx_ticket_subject" json:"subject_id"`
	AttendeeID            uuid.UUID       `gorm:"type:uuid;not null;index" json:"attendee_id"`
	TicketType            string          `gorm:"type:varchar(50);not null" json:"ticket_type"`
	SelectedDate          *time.Time      `json:"selected_date,omitempty"`
	WindowStart           time.Time       `gorm:"not null" json:"window_start"`
	WindowEnd             *time.Time      `gorm:"index" json:"window_end,omitempty"`
	Amount                decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Status                TicketStatus    `gorm:"type:varchar(20);not null;default:active;index" json:"status"`
	StatusReason          string          `gorm:"type:varchar(100)" json:"status_reason,omitempty"`
	Source                TicketSource    `gorm:"type:varchar(20);not null" json:"source"`
	TicketIndex           int             `gorm:"not null" json:"ticket_index"`
	TotalTicketsInBooking int             `gorm:"not null" json:"total_tickets_in_booking"`
	UsedAt                *time.Time      `json:"used_at,omitempty"`
	UsedBy                *uuid.UUID      `gorm:"type:uuid" json:"used_by,omitempty"`
	CancelledAt           *time.Time      `json:"cancelled_at,omitempty"`
	ExpiredAt             *time.Time      `json:"expired_at,omitempty"`
}

// Append-only validation history of a ticket: every scan, transition and transfer adds a row
type TicketValidation struct {
	Model
	TicketID uuid.UUID  `gorm:"type:uuid;not null;index" json:"ticket_id"`
	Action   string     `gorm:"type:varchar(20);not null" json:"action"`
	Location string     `gorm:"type:varchar(100)" json:"location,omitempty"`
	ActorID  *uuid.UUID `gorm:"type:uuid" json:"actor_id,omitempty"`
	Note     string     `gorm:"type:varchar" json:"note,omitempty"`
}

// Gateway order created before checkout. `Amount` is recomputed from the subject's price list and is the only
// amount a verified payment may book. `PaymentID` is unique: this is the server-side idempotency guard
type Order struct {
	Model
	Gateway        string          `gorm:"type:varchar(20);not null" json:"gateway"`
	GatewayOrderID string          `gorm:"type:varchar(100);not null;uniqueIndex" json:"gateway_order_id"`
	SubjectType    SubjectType     `gorm:"type:varchar(20);not null" json:"subject_type"`
	SubjectID      uuid.UUID       `gorm:"type:uuid;not null" json:"subject_id"`
	UserID         *uuid.UUID      `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Name           string          `gorm:"type:varchar(100);not null" json:"name"`
	Email          string          `gorm:"type:varchar(100)" json:"email"`
	Phone          string          `gorm:"type:varchar(20)" json:"phone"`
	TicketCounts   TicketCounts    `gorm:"type:jsonb;not null" json:"tickets"`
	SelectedDate   *time.Time      `json:"selected_date,omitempty"`
	SlotID         *uuid.UUID      `gorm:"type:uuid" json:"slot_id,omitempty"`
	Amount         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Currency       string          `gorm:"type:varchar(3);not null" json:"currency"`
	Status         OrderStatus     `gorm:"type:varchar(20);not null;default:created" json:"status"`
	PaymentID      *string         `gorm:"type:varchar(100);uniqueIndex" json:"payment_id,omitempty"`
	AttendeeID     *uuid.UUID      `gorm:"type:uuid" json:"attendee_id,omitempty"`
}

// Refund computed when tickets are cancelled out of a booking.
// It stays `pending` until an admin explicitly issues it through the payment gateway
type Refund struct {
	Model
	AttendeeID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"attendee_id"`
	PaymentID       string          `gorm:"type:varchar(100)" json:"payment_id"`
	Amount          decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	TicketCount     int             `gorm:"not null" json:"ticket_count"`
	Reason          string          `gorm:"type:varchar(100)" json:"reason"`
	Status          RefundStatus    `gorm:"type:varchar(20);not null;default:pending" json:"status"`
	GatewayRefundID string          `gorm:"type:varchar(100)" json:"gateway_refund_id,omitempty"`
	RequestedBy     *uuid.UUID      `gorm:"type:uuid" json:"requested_by,omitempty"`
}

// Collaboration/sharing assignment: (content type, content ID, grantee) -> permissions + role + optional expiry.
// Used for page content sharing and per-session check-in delegation. Removal and expiry deactivate the
// row, it is never hard-deleted
type SharingAssignment struct {
	Model
	ContentType ContentType `gorm:"type:varchar(20);not null;uniqueIndex:idx_sharing_grant" json:"content_type"`
	ContentID   uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_sharing_grant" json:"content_id"`
	GranteeID   uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_sharing_grant" json:"grantee_id"`
	GrantorID   uuid.UUID   `gorm:"type:uuid;not null" json:"grantor_id"`
	Role        string      `gorm:"type:varchar(30);not null" json:"role"`
	Permissions Permissions `gorm:"type:jsonb;not null" json:"permissions"`
	ExpiresAt   *time.Time  `json:"expires_at,omitempty"`
	Active      bool        `gorm:"not null;default:true" json:"active"`
}

// Advisory security events raised while scanning tickets
type SecurityEvent struct {
	Model
	TicketID uuid.UUID  `gorm:"type:uuid;not null;index" json:"ticket_id"`
	Kind     string     `gorm:"type:varchar(30);not null" json:"kind"`
	ActorID  *uuid.UUID `gorm:"type:uuid" json:"actor_id,omitempty"`
	Location string     `gorm:"type:varchar(100)" json:"location,omitempty"`
	Details  string     `gorm:"type:varchar" json:"details,omitempty"`
}

// All models, in migration order
func AllModels() []any {
	return []any{
		&User{}, &Page{}, &Event{}, &TicketType{}, &Activity{}, &ActivitySlot{},
		&Attendee{}, &Ticket{}, &TicketValidation{}, &Order{}, &Refund{},
		&SharingAssignment{}, &SecurityEvent{},
	}
}

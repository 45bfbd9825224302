// Package memdb is an in-memory db.Store. It backs the service tests and STORAGE=memory local runs.
// Transactions hold a single store-wide mutex and restore a snapshot when the callback fails,
// so it offers the same all-or-nothing behaviour as the Postgres store, without the concurrency.
package memdb

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"zestpass/db"

	"github.com/google/uuid"
)

type lockEntry struct {
	owner   string
	expires time.Time
}

type state struct {
	users       map[uuid.UUID]db.User
	pages       map[uuid.UUID]db.Page
	events      map[uuid.UUID]db.Event
	activities  map[uuid.UUID]db.Activity
	attendees   map[uuid.UUID]db.Attendee
	tickets     map[uuid.UUID]db.Ticket
	validations []db.TicketValidation
	orders      map[uuid.UUID]db.Order
	refunds     map[uuid.UUID]db.Refund
	assignments map[uuid.UUID]db.SharingAssignment
	security    []db.SecurityEvent
	locks       map[string]lockEntry
}

func newState() *state {
	return &state{
		users:       map[uuid.UUID]db.User{},
		pages:       map[uuid.UUID]db.Page{},
		events:      map[uuid.UUID]db.Event{},
		activities:  map[uuid.UUID]db.Activity{},
		attendees:   map[uuid.UUID]db.Attendee{},
		tickets:     map[uuid.UUID]db.Ticket{},
		orders:      map[uuid.UUID]db.Order{},
		refunds:     map[uuid.UUID]db.Refund{},
		assignments: map[uuid.UUID]db.SharingAssignment{},
		locks:       map[string]lockEntry{},
	}
}

// Snapshot for rollback. Map values are copied through the clone helpers, so later in-place edits of
// jsonb-like fields don't leak into the snapshot
func (s *state) clone() *state {
	c := newState()
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.pages {
		c.pages[k] = v
	}
	for k, v := range s.events {
		c.events[k] = cloneEvent(v)
	}
	for k, v := range s.activities {
		c.activities[k] = cloneActivity(v)
	}
	for k, v := range s.attendees {
		c.attendees[k] = cloneAttendee(v)
	}
	for k, v := range s.tickets {
		c.tickets[k] = v
	}
	c.validations = slices.Clone(s.validations)
	for k, v := range s.orders {
		c.orders[k] = cloneOrder(v)
	}
	for k, v := range s.refunds {
		c.refunds[k] = v
	}
	for k, v := range s.assignments {
		c.assignments[k] = cloneAssignment(v)
	}
	c.security = slices.Clone(s.security)
	for k, v := range s.locks {
		c.locks[k] = v
	}
	return c
}

// Store is safe for concurrent use
type Store struct {
	mu    *sync.Mutex
	state **state
	inTx  bool
}

// New empty store
func New() *Store {
	st := newState()
	return &Store{mu: &sync.Mutex{}, state: &st}
}

func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) st() *state {
	return *s.state
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx db.Store) error) error {
	if s.inTx {
		return fn(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st().clone()
	tx := &Store{mu: s.mu, state: s.state, inTx: true}
	if err := fn(tx); err != nil {
		*s.state = snapshot
		return err
	}
	return ctx.Err()
}

func touch(m *db.Model) {
	now := time.Now()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.DateCreated.IsZero() {
		m.DateCreated = now
	}
	m.DateUpdated = now
}

func conflict(what string) error {
	return fmt.Errorf("%w: %s", db.ErrConflict, what)
}

// Users and pages

func (s *Store) CreateUser(ctx context.Context, user *db.User) error {
	defer s.lock()()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	for _, u := range s.st().users {
		if user.Email != "" && u.Email == user.Email {
			return conflict("user email")
		}
	}
	touch(&user.Model)
	s.st().users[user.ID] = *user
	return nil
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*db.User, error) {
	defer s.lock()()
	user, ok := s.st().users[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &user, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*db.User, error) {
	defer s.lock()()
	return s.userWhere(func(u db.User) bool { return u.Email == strings.ToLower(strings.TrimSpace(email)) })
}

func (s *Store) FindUserByContact(ctx context.Context, email, phone string) (*db.User, error) {
	defer s.lock()()
	if email != "" {
		user, err := s.userWhere(func(u db.User) bool { return u.Email == strings.ToLower(strings.TrimSpace(email)) })
		if err == nil {
			return user, nil
		}
	}
	if phone != "" {
		return s.userWhere(func(u db.User) bool { return u.Phone == phone })
	}
	return nil, db.ErrNotFound
}

func (s *Store) userWhere(match func(db.User) bool) (*db.User, error) {
	for _, u := range s.st().users {
		if match(u) {
			user := u
			return &user, nil
		}
	}
	return nil, db.ErrNotFound
}

func (s *Store) CreatePage(ctx context.Context, page *db.Page) error {
	defer s.lock()()
	for _, p := range s.st().pages {
		if p.Slug == page.Slug {
			return conflict("page slug")
		}
	}
	touch(&page.Model)
	s.st().pages[page.ID] = *page
	return nil
}

func (s *Store) GetPage(ctx context.Context, id uuid.UUID) (*db.Page, error) {
	defer s.lock()()
	page, ok := s.st().pages[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &page, nil
}

func (s *Store) PageSlugExists(ctx context.Context, slug string) (bool, error) {
	defer s.lock()()
	for _, p := range s.st().pages {
		if p.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

// Events and activities

func (s *Store) CreateEvent(ctx context.Context, event *db.Event) error {
	defer s.lock()()
	touch(&event.Model)
	for i := range event.TicketTypes {
		touch(&event.TicketTypes[i].Model)
		event.TicketTypes[i].EventID = event.ID
	}
	s.st().events[event.ID] = cloneEvent(*event)
	return nil
}

func (s *Store) CreateActivity(ctx context.Context, activity *db.Activity) error {
	defer s.lock()()
	touch(&activity.Model)
	for i := range activity.Slots {
		touch(&activity.Slots[i].Model)
		activity.Slots[i].ActivityID = activity.ID
	}
	s.st().activities[activity.ID] = cloneActivity(*activity)
	return nil
}

// Replace an event, used by tests to reschedule or cancel
func (s *Store) SaveEvent(event db.Event) {
	defer s.lock()()
	s.st().events[event.ID] = cloneEvent(event)
}

// Replace an activity, used by tests to cancel
func (s *Store) SaveActivity(activity db.Activity) {
	defer s.lock()()
	s.st().activities[activity.ID] = cloneActivity(activity)
}

// Transactions are serialised on the store lock, so forUpdate needs no extra work
func (s *Store) GetSubject(ctx context.Context, subjectType db.SubjectType, id uuid.UUID, forUpdate bool) (*db.Subject, error) {
	defer s.lock()()
	switch subjectType {
	case db.SubjectEvent:
		event, ok := s.st().events[id]
		if !ok {
			return nil, db.ErrNotFound
		}
		subject := db.NormalizeEvent(cloneEvent(event))
		return &subject, nil
	case db.SubjectActivity:
		activity, ok := s.st().activities[id]
		if !ok {
			return nil, db.ErrNotFound
		}
		subject := db.NormalizeActivity(cloneActivity(activity))
		return &subject, nil
	default:
		return nil, db.ErrNotFound
	}
}

// Bookings and tickets

func (s *Store) TicketNumberExists(ctx context.Context, number string) (bool, error) {
	defer s.lock()()
	for _, t := range s.st().tickets {
		if t.TicketNumber == number {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) CountCapacityTickets(ctx context.Context, filter db.CapacityFilter) (int64, error) {
	defer s.lock()()
	var count int64
	for _, t := range s.st().tickets {
		if t.SubjectType != filter.SubjectType || t.SubjectID != filter.SubjectID {
			continue
		}
		if t.Status != db.TicketActive && t.Status != db.TicketUsed {
			continue
		}
		if filter.TicketType != "" && t.TicketType != filter.TicketType {
			continue
		}
		if filter.WindowStart != nil && !t.WindowStart.Equal(*filter.WindowStart) {
			continue
		}
		count++
	}
	return count, nil
}

func (s *Store) CreateAttendee(ctx context.Context, attendee *db.Attendee) error {
	defer s.lock()()
	if attendee.PaymentID != nil {
		for _, a := range s.st().attendees {
			if a.PaymentID != nil && *a.PaymentID == *attendee.PaymentID {
				return conflict("attendee payment id")
			}
		}
	}
	touch(&attendee.Model)
	s.st().attendees[attendee.ID] = cloneAttendee(*attendee)
	return nil
}

func (s *Store) GetAttendee(ctx context.Context, id uuid.UUID, forUpdate bool) (*db.Attendee, error) {
	defer s.lock()()
	attendee, ok := s.st().attendees[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	attendee = cloneAttendee(attendee)
	return &attendee, nil
}

func (s *Store) GetAttendeeByPaymentID(ctx context.Context, paymentID string) (*db.Attendee, error) {
	defer s.lock()()
	for _, a := range s.st().attendees {
		if a.PaymentID != nil && *a.PaymentID == paymentID {
			attendee := cloneAttendee(a)
			return &attendee, nil
		}
	}
	return nil, db.ErrNotFound
}

func (s *Store) SaveAttendee(ctx context.Context, attendee *db.Attendee) error {
	defer s.lock()()
	touch(&attendee.Model)
	s.st().attendees[attendee.ID] = cloneAttendee(*attendee)
	return nil
}

func (s *Store) CreateTickets(ctx context.Context, tickets []db.Ticket) error {
	defer s.lock()()
	seen := map[string]bool{}
	for _, t := range s.st().tickets {
		seen[t.TicketNumber] = true
	}
	for i := range tickets {
		if seen[tickets[i].TicketNumber] {
			return conflict("ticket number " + tickets[i].TicketNumber)
		}
		seen[tickets[i].TicketNumber] = true
	}
	for i := range tickets {
		touch(&tickets[i].Model)
		s.st().tickets[tickets[i].ID] = tickets[i]
	}
	return nil
}

func (s *Store) GetTicket(ctx context.Context, id uuid.UUID, forUpdate bool) (*db.Ticket, error) {
	defer s.lock()()
	ticket, ok := s.st().tickets[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &ticket, nil
}

func (s *Store) GetTicketByNumber(ctx context.Context, number string) (*db.Ticket, error) {
	defer s.lock()()
	for _, t := range s.st().tickets {
		if t.TicketNumber == number {
			ticket := t
			return &ticket, nil
		}
	}
	return nil, db.ErrNotFound
}

func (s *Store) ListTicketsByIDs(ctx context.Context, ids []uuid.UUID, forUpdate bool) ([]db.Ticket, error) {
	defer s.lock()()
	var tickets []db.Ticket
	for _, id := range ids {
		if t, ok := s.st().tickets[id]; ok {
			tickets = append(tickets, t)
		}
	}
	sort.Slice(tickets, func(i, j int) bool { return tickets[i].ID.String() < tickets[j].ID.String() })
	return tickets, nil
}

func (s *Store) ListTicketsByAttendee(ctx context.Context, attendeeID uuid.UUID) ([]db.Ticket, error) {
	defer s.lock()()
	tickets := s.ticketsWhere(func(t db.Ticket) bool { return t.AttendeeID == attendeeID })
	sort.Slice(tickets, func(i, j int) bool { return tickets[i].TicketIndex < tickets[j].TicketIndex })
	return tickets, nil
}

func (s *Store) ListTicketsByUser(ctx context.Context, userID uuid.UUID) ([]db.Ticket, error) {
	defer s.lock()()
	tickets := s.ticketsWhere(func(t db.Ticket) bool { return t.UserID != nil && *t.UserID == userID })
	sort.Slice(tickets, func(i, j int) bool {
		if !tickets[i].WindowStart.Equal(tickets[j].WindowStart) {
			return tickets[i].WindowStart.After(tickets[j].WindowStart)
		}
		return tickets[i].TicketIndex < tickets[j].TicketIndex
	})
	return tickets, nil
}

func (s *Store) ticketsWhere(match func(db.Ticket) bool) []db.Ticket {
	var tickets []db.Ticket
	for _, t := range s.st().tickets {
		if match(t) {
			tickets = append(tickets, t)
		}
	}
	return tickets
}

func (s *Store) SaveTicket(ctx context.Context, ticket *db.Ticket) error {
	defer s.lock()()
	for _, t := range s.st().tickets {
		if t.ID != ticket.ID && t.TicketNumber == ticket.TicketNumber {
			return conflict("ticket number " + ticket.TicketNumber)
		}
	}
	touch(&ticket.Model)
	s.st().tickets[ticket.ID] = *ticket
	return nil
}

func (s *Store) SetTicketQRImage(ctx context.Context, ticketID uuid.UUID, url string) error {
	defer s.lock()()
	ticket, ok := s.st().tickets[ticketID]
	if !ok {
		return db.ErrNotFound
	}
	ticket.QRImageURL = url
	touch(&ticket.Model)
	s.st().tickets[ticketID] = ticket
	return nil
}

func (s *Store) CompareAndSetStatus(ctx context.Context, change db.StatusChange) (bool, error) {
	defer s.lock()()
	ticket, ok := s.st().tickets[change.TicketID]
	if !ok || ticket.Status != change.From {
		return false, nil
	}

	at := change.At
	ticket.Status = change.To
	ticket.StatusReason = change.Reason
	ticket.DateUpdated = at
	switch change.To {
	case db.TicketUsed:
		ticket.UsedAt = &at
		ticket.UsedBy = change.ActorID
	case db.TicketExpired:
		ticket.ExpiredAt = &at
	case db.TicketCancelled:
		ticket.CancelledAt = &at
	}
	s.st().tickets[ticket.ID] = ticket
	return true, nil
}

func (s *Store) ListExpirableTickets(ctx context.Context, cutoff db.ExpiryCutoff, limit int) ([]db.Ticket, error) {
	defer s.lock()()
	tickets := s.ticketsWhere(func(t db.Ticket) bool {
		if t.Status != db.TicketActive {
			return false
		}
		if after := cutoff.After; after != nil && !sweepAfter(t, *after) {
			return false
		}
		if t.WindowEnd != nil && t.WindowEnd.Before(cutoff.EndedBefore) {
			return true
		}
		if t.WindowEnd == nil && t.WindowStart.Before(cutoff.StartedBefore) {
			return true
		}
		switch t.SubjectType {
		case db.SubjectEvent:
			return s.st().events[t.SubjectID].Status == db.SubjectCancelled
		case db.SubjectActivity:
			return s.st().activities[t.SubjectID].Status == db.SubjectCancelled
		}
		return false
	})
	sort.Slice(tickets, func(i, j int) bool {
		if !tickets[i].WindowStart.Equal(tickets[j].WindowStart) {
			return tickets[i].WindowStart.Before(tickets[j].WindowStart)
		}
		return tickets[i].ID.String() < tickets[j].ID.String()
	})
	if limit > 0 && len(tickets) > limit {
		tickets = tickets[:limit]
	}
	return tickets, nil
}

// (window_start, id) of t is strictly after the cursor
func sweepAfter(t db.Ticket, cursor db.SweepCursor) bool {
	if !t.WindowStart.Equal(cursor.WindowStart) {
		return t.WindowStart.After(cursor.WindowStart)
	}
	return t.ID.String() > cursor.ID.String()
}

func (s *Store) AppendValidation(ctx context.Context, entry *db.TicketValidation) error {
	defer s.lock()()
	if entry.ID == uuid.Nil {
		touch(&entry.Model)
	}
	s.st().validations = append(s.st().validations, *entry)
	return nil
}

func (s *Store) ListValidations(ctx context.Context, ticketID uuid.UUID) ([]db.TicketValidation, error) {
	defer s.lock()()
	var entries []db.TicketValidation
	for _, v := range s.st().validations {
		if v.TicketID == ticketID {
			entries = append(entries, v)
		}
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].DateCreated.Before(entries[j].DateCreated) })
	return entries, nil
}

func (s *Store) RecordSecurityEvent(ctx context.Context, event *db.SecurityEvent) error {
	defer s.lock()()
	touch(&event.Model)
	s.st().security = append(s.st().security, *event)
	return nil
}

// Recorded security events, oldest first
func (s *Store) SecurityEvents() []db.SecurityEvent {
	defer s.lock()()
	return slices.Clone(s.st().security)
}

// Orders and refunds

func (s *Store) CreateOrder(ctx context.Context, order *db.Order) error {
	defer s.lock()()
	for _, o := range s.st().orders {
		if o.GatewayOrderID == order.GatewayOrderID {
			return conflict("gateway order id")
		}
	}
	touch(&order.Model)
	s.st().orders[order.ID] = cloneOrder(*order)
	return nil
}

func (s *Store) GetOrderByGatewayID(ctx context.Context, gatewayOrderID string, forUpdate bool) (*db.Order, error) {
	defer s.lock()()
	for _, o := range s.st().orders {
		if o.GatewayOrderID == gatewayOrderID {
			order := cloneOrder(o)
			return &order, nil
		}
	}
	return nil, db.ErrNotFound
}

func (s *Store) SaveOrder(ctx context.Context, order *db.Order) error {
	defer s.lock()()
	if order.PaymentID != nil {
		for _, o := range s.st().orders {
			if o.ID != order.ID && o.PaymentID != nil && *o.PaymentID == *order.PaymentID {
				return conflict("order payment id")
			}
		}
	}
	touch(&order.Model)
	s.st().orders[order.ID] = cloneOrder(*order)
	return nil
}

func (s *Store) CreateRefund(ctx context.Context, refund *db.Refund) error {
	defer s.lock()()
	touch(&refund.Model)
	s.st().refunds[refund.ID] = *refund
	return nil
}

func (s *Store) GetRefund(ctx context.Context, id uuid.UUID, forUpdate bool) (*db.Refund, error) {
	defer s.lock()()
	refund, ok := s.st().refunds[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &refund, nil
}

func (s *Store) SaveRefund(ctx context.Context, refund *db.Refund) error {
	defer s.lock()()
	touch(&refund.Model)
	s.st().refunds[refund.ID] = *refund
	return nil
}

// Sharing assignments

func (s *Store) GetAssignment(ctx context.Context, contentType db.ContentType, contentID, granteeID uuid.UUID) (*db.SharingAssignment, error) {
	defer s.lock()()
	for _, a := range s.st().assignments {
		if a.ContentType == contentType && a.ContentID == contentID && a.GranteeID == granteeID {
			assignment := cloneAssignment(a)
			return &assignment, nil
		}
	}
	return nil, db.ErrNotFound
}

func (s *Store) GetAssignmentByID(ctx context.Context, id uuid.UUID) (*db.SharingAssignment, error) {
	defer s.lock()()
	a, ok := s.st().assignments[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	assignment := cloneAssignment(a)
	return &assignment, nil
}

func (s *Store) SaveAssignment(ctx context.Context, assignment *db.SharingAssignment) error {
	defer s.lock()()
	for _, a := range s.st().assignments {
		if a.ID != assignment.ID && a.ContentType == assignment.ContentType &&
			a.ContentID == assignment.ContentID && a.GranteeID == assignment.GranteeID {
			return conflict("sharing assignment")
		}
	}
	touch(&assignment.Model)
	s.st().assignments[assignment.ID] = cloneAssignment(*assignment)
	return nil
}

// Locks

func (s *Store) AcquireLock(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	defer s.lock()()
	now := time.Now()
	if entry, ok := s.st().locks[key]; ok && now.Before(entry.expires) {
		return false, nil
	}
	s.st().locks[key] = lockEntry{owner: owner, expires: now.Add(ttl)}
	return true, nil
}

func (s *Store) ReleaseLock(ctx context.Context, key, owner string) error {
	defer s.lock()()
	if entry, ok := s.st().locks[key]; ok && entry.owner == owner {
		delete(s.st().locks, key)
	}
	return nil
}

func cloneEvent(e db.Event) db.Event {
	e.TicketTypes = slices.Clone(e.TicketTypes)
	return e
}

func cloneActivity(a db.Activity) db.Activity {
	a.Slots = slices.Clone(a.Slots)
	return a
}

func cloneAttendee(a db.Attendee) db.Attendee {
	a.TicketCounts = a.TicketCounts.Clone()
	a.Tickets = nil
	return a
}

func cloneOrder(o db.Order) db.Order {
	o.TicketCounts = o.TicketCounts.Clone()
	return o
}

func cloneAssignment(a db.SharingAssignment) db.SharingAssignment {
	a.Permissions = slices.Clone(a.Permissions)
	return a
}

var _ db.Store = (*Store)(nil)

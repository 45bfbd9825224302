package db

import (
	"context"

	"github.com/google/uuid"
)

func (queries *Queries) TicketNumberExists(ctx context.Context, number string) (bool, error) {
	var count int64
	err := queries.DB.WithContext(ctx).Model(&Ticket{}).Where("ticket_number = ?", number).Count(&count).Error
	return count > 0, err
}

// Count tickets that still hold a seat: active and used. Cancelled and expired tickets free their capacity
func (queries *Queries) CountCapacityTickets(ctx context.Context, filter CapacityFilter) (int64, error) {
	q := queries.DB.WithContext(ctx).Model(&Ticket{}).
		Where("subject_type = ? AND subject_id = ?", filter.SubjectType, filter.SubjectID).
		Where("status IN ?", []TicketStatus{TicketActive, TicketUsed})
	if filter.TicketType != "" {
		q = q.Where("ticket_type = ?", filter.TicketType)
	}
	if filter.WindowStart != nil {
		q = q.Where("window_start = ?", *filter.WindowStart)
	}

	var count int64
	err := q.Count(&count).Error
	return count, err
}

func (queries *Queries) CreateAttendee(ctx context.Context, attendee *Attendee) error {
	return translate(queries.DB.WithContext(ctx).Omit("Tickets").Create(attendee).Error)
}

func (queries *Queries) GetAttendee(ctx context.Context, id uuid.UUID, forUpdate bool) (*Attendee, error) {
	var attendee Attendee
	if err := queries.query(ctx, forUpdate).First(&attendee, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &attendee, nil
}

func (queries *Queries) GetAttendeeByPaymentID(ctx context.Context, paymentID string) (*Attendee, error) {
	var attendee Attendee
	if err := queries.DB.WithContext(ctx).First(&attendee, "payment_id = ?", paymentID).Error; err != nil {
		return nil, translate(err)
	}
	return &attendee, nil
}

func (queries *Queries) SaveAttendee(ctx context.Context, attendee *Attendee) error {
	return translate(queries.DB.WithContext(ctx).Omit("Tickets").Save(attendee).Error)
}

// Insert tickets in batches. Runs inside the caller's transaction, so a failing batch rolls back every ticket
func (queries *Queries) CreateTickets(ctx context.Context, tickets []Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	return translate(queries.DB.WithContext(ctx).CreateInBatches(tickets, 100).Error)
}

func (queries *Queries) GetTicket(ctx context.Context, id uuid.UUID, forUpdate bool) (*Ticket, error) {
	var ticket Ticket
	if err := queries.query(ctx, forUpdate).First(&ticket, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &ticket, nil
}

func (queries *Queries) GetTicketByNumber(ctx context.Context, number string) (*Ticket, error) {
	var ticket Ticket
	if err := queries.DB.WithContext(ctx).First(&ticket, "ticket_number = ?", number).Error; err != nil {
		return nil, translate(err)
	}
	return &ticket, nil
}

// Tickets in ID order, so concurrent transactions lock rows in the same order
func (queries *Queries) ListTicketsByIDs(ctx context.Context, ids []uuid.UUID, forUpdate bool) ([]Ticket, error) {
	var tickets []Ticket
	err := queries.query(ctx, forUpdate).Where("id IN ?", ids).Order("id").Find(&tickets).Error
	return tickets, translate(err)
}

func (queries *Queries) ListTicketsByAttendee(ctx context.Context, attendeeID uuid.UUID) ([]Ticket, error) {
	var tickets []Ticket
	err := queries.DB.WithContext(ctx).Where("attendee_id = ?", attendeeID).Order("ticket_index").Find(&tickets).Error
	return tickets, translate(err)
}

func (queries *Queries) ListTicketsByUser(ctx context.Context, userID uuid.UUID) ([]Ticket, error) {
	var tickets []Ticket
	err := queries.DB.WithContext(ctx).Where("user_id = ?", userID).
		Order("window_start DESC, ticket_index").Find(&tickets).Error
	return tickets, translate(err)
}

func (queries *Queries) SaveTicket(ctx context.Context, ticket *Ticket) error {
	return translate(queries.DB.WithContext(ctx).Save(ticket).Error)
}

// Only touches the image column, so it never overwrites a concurrent status change
func (queries *Queries) SetTicketQRImage(ctx context.Context, ticketID uuid.UUID, url string) error {
	result := queries.DB.WithContext(ctx).Model(&Ticket{}).Where("id = ?", ticketID).Update("qr_image_url", url)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Conditional update: the status only changes if it still equals change.From.
// Returns false when another writer got there first
func (queries *Queries) CompareAndSetStatus(ctx context.Context, change StatusChange) (bool, error) {
	updates := map[string]any{
		"status":        change.To,
		"status_reason": change.Reason,
		"date_updated":  change.At,
	}
	switch change.To {
	case TicketUsed:
		updates["used_at"] = change.At
		updates["used_by"] = change.ActorID
	case TicketExpired:
		updates["expired_at"] = change.At
	case TicketCancelled:
		updates["cancelled_at"] = change.At
	}

	result := queries.DB.WithContext(ctx).Model(&Ticket{}).
		Where("id = ? AND status = ?", change.TicketID, change.From).
		Updates(updates)
	if result.Error != nil {
		return false, translate(result.Error)
	}
	return result.RowsAffected == 1, nil
}

// Active tickets the expiry sweep should look at. The service re-checks each one against the live schedule
func (queries *Queries) ListExpirableTickets(ctx context.Context, cutoff ExpiryCutoff, limit int) ([]Ticket, error) {
	cancelledEvents := queries.DB.Model(&Event{}).Select("id").Where("status = ?", SubjectCancelled)
	cancelledActivities := queries.DB.Model(&Activity{}).Select("id").Where("status = ?", SubjectCancelled)

	q := queries.DB.WithContext(ctx)
	if cutoff.After != nil {
		q = q.Where("(window_start, id) > (?, ?)", cutoff.After.WindowStart, cutoff.After.ID)
	}

	var tickets []Ticket
	err := q.
		Where("status = ?", TicketActive).
		Where(
			queries.DB.Where("window_end IS NOT NULL AND window_end < ?", cutoff.EndedBefore).
				Or("window_end IS NULL AND window_start < ?", cutoff.StartedBefore).
				Or("subject_type = ? AND subject_id IN (?)", SubjectEvent, cancelledEvents).
				Or("subject_type = ? AND subject_id IN (?)", SubjectActivity, cancelledActivities),
		).
		Order("window_start, id").
		Limit(limit).
		Find(&tickets).Error
	return tickets, translate(err)
}

func (queries *Queries) AppendValidation(ctx context.Context, entry *TicketValidation) error {
	return translate(queries.DB.WithContext(ctx).Create(entry).Error)
}

// Validation history, oldest first
func (queries *Queries) ListValidations(ctx context.Context, ticketID uuid.UUID) ([]TicketValidation, error) {
	var entries []TicketValidation
	err := queries.DB.WithContext(ctx).Where("ticket_id = ?", ticketID).Order("date_created").Find(&entries).Error
	return entries, translate(err)
}

func (queries *Queries) RecordSecurityEvent(ctx context.Context, event *SecurityEvent) error {
	return translate(queries.DB.WithContext(ctx).Create(event).Error)
}

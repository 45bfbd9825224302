package ticket

import (
	"context"
	"errors"
	"fmt"
	"time"

	"zestpass/db"
	"zestpass/service/metrics"
	"zestpass/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// A confirmed booking to turn into tickets.
// Events book a ticket type -> quantity map. Activities book a flat quantity for a date and weekly slot.
type BookingRequest struct {
	SubjectType  db.SubjectType
	SubjectID    uuid.UUID
	UserID       *uuid.UUID // Buyer account, if known. Otherwise matched by email/phone
	Name         string
	Email        string
	Phone        string
	TicketCounts db.TicketCounts
	Quantity     int
	SelectedDate *time.Time
	SlotID       *uuid.UUID
	TotalAmount  decimal.Decimal
	PaymentID    *string
	OrderID      *uuid.UUID
	Source       db.TicketSource
	CreatedByID  *uuid.UUID
}

// Resolved schedule of a booking
type window struct {
	start        time.Time
	end          *time.Time
	selectedDate *time.Time
	slot         *db.ActivitySlot
}

// Breakdown of the request, with zero entries dropped. Activities always book StandardTicketType
func (req *BookingRequest) Counts() (db.TicketCounts, error) {
	counts := db.TicketCounts{}
	if req.SubjectType == db.SubjectActivity {
		quantity := req.Quantity
		if quantity == 0 {
			quantity = req.TicketCounts[db.StandardTicketType]
		}
		if quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		counts[db.StandardTicketType] = quantity
		return counts, nil
	}

	for name, n := range req.TicketCounts {
		if n < 0 {
			return nil, fmt.Errorf("%w: %s", ErrInvalidQuantity, name)
		}
		if n > 0 {
			counts[name] = n
		}
	}
	if counts.Total() == 0 {
		return nil, ErrInvalidQuantity
	}
	return counts, nil
}

// Price a breakdown against the subject's price list. Unknown ticket types are rejected
func PriceBooking(subject *db.Subject, counts db.TicketCounts) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, name := range counts.Types() {
		price, ok := subject.Prices[name]
		if !ok {
			return decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownTicketType, name)
		}
		total = total.Add(price.Mul(decimal.NewFromInt(int64(counts[name]))))
	}
	return total, nil
}

// Check a request against the subject without writing anything: quantities, ticket types, schedule
// and remaining capacity. Returns the total price of the request
func (service *Service) Quote(ctx context.Context, req BookingRequest) (decimal.Decimal, error) {
	counts, err := req.Counts()
	if err != nil {
		return decimal.Zero, err
	}
	if service.maxPerBooking > 0 && counts.Total() > service.maxPerBooking {
		return decimal.Zero, fmt.Errorf("%w: maximum is %d", ErrBookingTooLarge, service.maxPerBooking)
	}

	subject, err := service.subject(ctx, service.store, req.SubjectType, req.SubjectID, false)
	if err != nil {
		return decimal.Zero, err
	}
	if !subject.Published || subject.Cancelled {
		return decimal.Zero, ErrSubjectUnavailable
	}

	total, err := PriceBooking(subject, counts)
	if err != nil {
		return decimal.Zero, err
	}

	w, err := service.resolveWindow(subject, req)
	if err != nil {
		return decimal.Zero, err
	}
	if err := service.checkCapacity(ctx, service.store, subject, counts, w); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// Issue a confirmed booking: one attendee record and one ticket per unit, written in a single transaction.
// Each ticket carries an even share of the total amount. If the buyer has an account the tickets are linked
// to it in the same transaction
func (service *Service) IssueBooking(ctx context.Context, req BookingRequest) (*Booking, error) {
	counts, err := req.Counts()
	if err != nil {
		return nil, err
	}

	n := counts.Total()
	if service.maxPerBooking > 0 && n > service.maxPerBooking {
		return nil, fmt.Errorf("%w: maximum is %d", ErrBookingTooLarge, service.maxPerBooking)
	}
	if req.TotalAmount.IsNegative() {
		return nil, fmt.Errorf("%w: negative amount", ErrInvalidQuantity)
	}
	if req.Source == "" {
		req.Source = db.SourcePayment
	}

	var booking *Booking
	err = service.store.WithinTx(ctx, func(tx db.Store) error {
		// Locked until commit, so concurrent bookings of this subject see each other's tickets in checkCapacity
		subject, err := service.subject(ctx, tx, req.SubjectType, req.SubjectID, true)
		if err != nil {
			return err
		}
		if subject.Cancelled || (req.Source == db.SourcePayment && !subject.Published) {
			return ErrSubjectUnavailable
		}

		for _, name := range counts.Types() {
			if _, ok := subject.Prices[name]; !ok {
				return fmt.Errorf("%w: %s", ErrUnknownTicketType, name)
			}
		}

		w, err := service.resolveWindow(subject, req)
		if err != nil {
			return err
		}
		if err := service.checkCapacity(ctx, tx, subject, counts, w); err != nil {
			return err
		}

		userID, err := service.resolveUser(ctx, tx, req)
		if err != nil {
			return err
		}

		paymentStatus := db.PaymentPaid
		if req.Source == db.SourceManual {
			paymentStatus = db.PaymentManual
		}

		attendee := db.Attendee{
			Model:           db.NewModel(),
			SubjectType:     subject.Type,
			SubjectID:       subject.ID,
			UserID:          userID,
			Name:            req.Name,
			Email:           util.NormalizeEmail(req.Email),
			Phone:           util.NormalizePhone(req.Phone),
			TicketCounts:    counts,
			TotalTickets:    n,
			TotalAmount:     req.TotalAmount,
			PaymentStatus:   paymentStatus,
			PaymentID:       req.PaymentID,
			OrderID:         req.OrderID,
			Source:          req.Source,
			CheckInEligible: true,
			SelectedDate:    w.selectedDate,
			CreatedByID:     req.CreatedByID,
		}
		if err := tx.CreateAttendee(ctx, &attendee); err != nil {
			return err
		}

		// Even share rounded to cents, the last ticket takes the remainder so the amounts add up to the total
		amount := req.TotalAmount.DivRound(decimal.NewFromInt(int64(n)), 2)
		last := req.TotalAmount.Sub(amount.Mul(decimal.NewFromInt(int64(n - 1))))
		taken := map[string]bool{}
		tickets := make([]db.Ticket, 0, n)
		for _, name := range counts.Types() {
			for range counts[name] {
				number, err := service.generator.Next(ctx, tx, taken)
				if err != nil {
					return err
				}

				share := amount
				if len(tickets) == n-1 {
					share = last
				}
				tickets = append(tickets, db.Ticket{
					Model:                 db.NewModel(),
					TicketNumber:          number,
					QRPayload:             number,
					UserID:                userID,
					HolderName:            attendee.Name,
					HolderEmail:           attendee.Email,
					HolderPhone:           attendee.Phone,
					SubjectType:           subject.Type,
					SubjectID:             subject.ID,
					AttendeeID:            attendee.ID,
					TicketType:            name,
					SelectedDate:          w.selectedDate,
					WindowStart:           w.start,
					WindowEnd:             w.end,
					Amount:                share,
					Status:                db.TicketActive,
					Source:                req.Source,
					TicketIndex:           len(tickets) + 1,
					TotalTicketsInBooking: n,
				})
			}
		}
		if err := tx.CreateTickets(ctx, tickets); err != nil {
			return err
		}

		for _, ticket := range tickets {
			entry := db.TicketValidation{
				Model:    db.NewModel(),
				TicketID: ticket.ID,
				Action:   db.ActionIssued,
				ActorID:  req.CreatedByID,
				Note:     string(req.Source),
			}
			if err := tx.AppendValidation(ctx, &entry); err != nil {
				return err
			}
		}

		booking = &Booking{Attendee: attendee, Tickets: tickets}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.TicketsIssued(string(req.SubjectType), string(req.Source), n)
	util.LOGGER.Info("Booking issued", "attendee_id", booking.Attendee.ID, "subject_type", req.SubjectType,
		"subject_id", req.SubjectID, "tickets", n, "source", req.Source)
	return booking, nil
}

func (service *Service) subject(ctx context.Context, store db.Store, subjectType db.SubjectType, id uuid.UUID, forUpdate bool) (*db.Subject, error) {
	if subjectType != db.SubjectEvent && subjectType != db.SubjectActivity {
		return nil, fmt.Errorf("%w: unknown type %q", ErrSubjectNotFound, subjectType)
	}
	subject, err := store.GetSubject(ctx, subjectType, id, forUpdate)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrSubjectNotFound
	}
	return subject, err
}

// Events take their window from the event. Activities need a selected date that falls on the slot's
// weekday and is not in the past
func (service *Service) resolveWindow(subject *db.Subject, req BookingRequest) (window, error) {
	if subject.Type == db.SubjectEvent {
		w := window{start: *subject.StartAt, end: subject.EndAt}
		if req.SelectedDate != nil {
			day := service.day(*req.SelectedDate)
			w.selectedDate = &day
		} else {
			day := service.day(*subject.StartAt)
			w.selectedDate = &day
		}
		return w, nil
	}

	if req.SelectedDate == nil || req.SlotID == nil {
		return window{}, fmt.Errorf("%w: activities need a date and a slot", ErrInvalidSchedule)
	}
	slot, ok := subject.Slot(*req.SlotID)
	if !ok {
		return window{}, fmt.Errorf("%w: unknown slot", ErrInvalidSchedule)
	}

	day := service.day(*req.SelectedDate)
	if day.Before(service.day(service.now())) {
		return window{}, fmt.Errorf("%w: date is in the past", ErrInvalidSchedule)
	}

	start, end, err := db.SlotWindow(slot, day, service.loc)
	if err != nil {
		return window{}, fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}
	return window{start: start, end: &end, selectedDate: &day, slot: &slot}, nil
}

// Per ticket type for events, per occurrence (date + slot) for activities. 0 capacity means unlimited
func (service *Service) checkCapacity(ctx context.Context, store db.Store, subject *db.Subject, counts db.TicketCounts, w window) error {
	if subject.Type == db.SubjectActivity {
		if w.slot == nil || w.slot.Capacity <= 0 {
			return nil
		}
		held, err := store.CountCapacityTickets(ctx, db.CapacityFilter{
			SubjectType: subject.Type,
			SubjectID:   subject.ID,
			WindowStart: &w.start,
		})
		if err != nil {
			return err
		}
		if int(held)+counts.Total() > w.slot.Capacity {
			return fmt.Errorf("%w: %d of %d spots left", ErrCapacityExceeded, max(w.slot.Capacity-int(held), 0), w.slot.Capacity)
		}
		return nil
	}

	for _, name := range counts.Types() {
		capacity := subject.Capacities[name]
		if capacity <= 0 {
			continue
		}
		held, err := store.CountCapacityTickets(ctx, db.CapacityFilter{
			SubjectType: subject.Type,
			SubjectID:   subject.ID,
			TicketType:  name,
		})
		if err != nil {
			return err
		}
		if int(held)+counts[name] > capacity {
			return fmt.Errorf("%w: %d %s tickets left", ErrCapacityExceeded, max(capacity-int(held), 0), name)
		}
	}
	return nil
}

// Account the booking belongs to: the given user if it exists, otherwise the account matching the
// contact email or phone. Bookings made by phone only for someone without an account stay unlinked
func (service *Service) resolveUser(ctx context.Context, store db.Store, req BookingRequest) (*uuid.UUID, error) {
	if req.UserID != nil {
		user, err := store.GetUser(ctx, *req.UserID)
		if err == nil {
			return &user.ID, nil
		}
		if !errors.Is(err, db.ErrNotFound) {
			return nil, err
		}
	}

	user, err := store.FindUserByContact(ctx, util.NormalizeEmail(req.Email), util.NormalizePhone(req.Phone))
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user.ID, nil
}

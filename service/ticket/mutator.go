package ticket

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"zestpass/db"
	"zestpass/service/metrics"
	"zestpass/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Mark an active ticket used. Single compare-and-swap on the status: of two concurrent scans of the same
// ticket exactly one succeeds, the other gets ErrTicketNotActive
func (service *Service) MarkUsed(ctx context.Context, ticketID uuid.UUID, actorID *uuid.UUID, location string) (*db.Ticket, error) {
	now := service.now()
	ok, err := service.store.CompareAndSetStatus(ctx, db.StatusChange{
		TicketID: ticketID,
		From:     db.TicketActive,
		To:       db.TicketUsed,
		At:       now,
		ActorID:  actorID,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		if _, err := service.Ticket(ctx, ticketID); err != nil {
			return nil, err
		}
		return nil, ErrTicketNotActive
	}

	metrics.TicketTransition(string(db.TicketUsed), 1)
	entry := db.TicketValidation{
		Model:    db.Model{ID: uuid.New(), DateCreated: now, DateUpdated: now},
		TicketID: ticketID,
		Action:   db.ActionUsed,
		Location: location,
		ActorID:  actorID,
	}
	if err := service.store.AppendValidation(ctx, &entry); err != nil {
		return nil, err
	}

	return service.Ticket(ctx, ticketID)
}

// New holder of a transferred ticket
type TransferRequest struct {
	TicketID uuid.UUID
	Name     string
	Email    string
	Phone    string
	ActorID  *uuid.UUID
}

// Transfer a ticket to a new holder.
// Only active tickets of group bookings (more than one ticket) can be transferred. The ticket is relinked to the
// new holder's account when one matches the email or phone, and unlinked otherwise
func (service *Service) Transfer(ctx context.Context, req TransferRequest) (*db.Ticket, error) {
	if strings.TrimSpace(req.Name) == "" || (req.Email == "" && req.Phone == "") {
		return nil, ErrInvalidHolder
	}

	var transferred *db.Ticket
	err := service.store.WithinTx(ctx, func(tx db.Store) error {
		ticket, err := tx.GetTicket(ctx, req.TicketID, true)
		if errors.Is(err, db.ErrNotFound) {
			return ErrTicketNotFound
		}
		if err != nil {
			return err
		}

		if ticket.Status != db.TicketActive {
			return ErrTicketNotActive
		}
		if ticket.TotalTicketsInBooking <= 1 {
			return ErrNotTransferable
		}

		email, phone := util.NormalizeEmail(req.Email), util.NormalizePhone(req.Phone)
		var userID *uuid.UUID
		user, err := tx.FindUserByContact(ctx, email, phone)
		switch {
		case err == nil:
			userID = &user.ID
		case !errors.Is(err, db.ErrNotFound):
			return err
		}

		note := fmt.Sprintf("%s -> %s", ticket.HolderName, req.Name)
		ticket.HolderName = strings.TrimSpace(req.Name)
		ticket.HolderEmail = email
		ticket.HolderPhone = phone
		ticket.UserID = userID
		if err := tx.SaveTicket(ctx, ticket); err != nil {
			return err
		}

		now := service.now()
		entry := db.TicketValidation{
			Model:    db.Model{ID: uuid.New(), DateCreated: now, DateUpdated: now},
			TicketID: ticket.ID,
			Action:   db.ActionTransferred,
			ActorID:  req.ActorID,
			Note:     note,
		}
		if err := tx.AppendValidation(ctx, &entry); err != nil {
			return err
		}

		transferred = ticket
		return nil
	})
	if err != nil {
		return nil, err
	}

	util.LOGGER.Info("Ticket transferred", "ticket_id", transferred.ID, "linked", transferred.UserID != nil)
	return transferred, nil
}

// Tickets to cancel out of a booking
type CancelRequest struct {
	AttendeeID uuid.UUID
	TicketIDs  []uuid.UUID
	Reason     string
	ActorID    *uuid.UUID
}

// Outcome of a cancellation. Refund is nil when nothing was paid through the gateway
type Cancellation struct {
	Tickets      []db.Ticket     `json:"tickets"`
	RefundAmount decimal.Decimal `json:"refund_amount"`
	Refund       *db.Refund      `json:"refund,omitempty"`
}

// Cancel a subset of the tickets of a booking.
// The whole set is rejected if any ticket is already used or cancelled, or does not belong to the booking.
// The refund amount is the sum of the cancelled tickets' amounts. It is recorded as a pending refund only:
// sending it to the gateway is an explicit admin action
func (service *Service) CancelIndividual(ctx context.Context, req CancelRequest) (*Cancellation, error) {
	ids := slices.Clone(req.TicketIDs)
	slices.SortFunc(ids, func(a, b uuid.UUID) int { return strings.Compare(a.String(), b.String()) })
	ids = slices.Compact(ids)
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no tickets selected", ErrInvalidQuantity)
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = "cancelled_by_request"
	}

	var result *Cancellation
	err := service.store.WithinTx(ctx, func(tx db.Store) error {
		attendee, err := tx.GetAttendee(ctx, req.AttendeeID, true)
		if errors.Is(err, db.ErrNotFound) {
			return ErrBookingNotFound
		}
		if err != nil {
			return err
		}

		tickets, err := tx.ListTicketsByIDs(ctx, ids, true)
		if err != nil {
			return err
		}
		if len(tickets) != len(ids) {
			return ErrTicketNotFound
		}

		for _, ticket := range tickets {
			if ticket.AttendeeID != attendee.ID {
				return fmt.Errorf("%w: %s", ErrTicketNotInBooking, ticket.TicketNumber)
			}
			if ticket.Status == db.TicketUsed || ticket.Status == db.TicketCancelled {
				return fmt.Errorf("%w: %s is %s", ErrNotCancellable, ticket.TicketNumber, ticket.Status)
			}
			if ticket.Status != db.TicketActive {
				return fmt.Errorf("%w: %s is %s", ErrTicketNotActive, ticket.TicketNumber, ticket.Status)
			}
		}

		now := service.now()
		refund := decimal.Zero
		for i := range tickets {
			ok, err := tx.CompareAndSetStatus(ctx, db.StatusChange{
				TicketID: tickets[i].ID,
				From:     db.TicketActive,
				To:       db.TicketCancelled,
				At:       now,
				ActorID:  req.ActorID,
				Reason:   reason,
			})
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: %s", ErrTicketNotActive, tickets[i].TicketNumber)
			}

			entry := db.TicketValidation{
				Model:    db.Model{ID: uuid.New(), DateCreated: now, DateUpdated: now},
				TicketID: tickets[i].ID,
				Action:   db.ActionCancelled,
				ActorID:  req.ActorID,
				Note:     reason,
			}
			if err := tx.AppendValidation(ctx, &entry); err != nil {
				return err
			}

			refund = refund.Add(tickets[i].Amount)
			tickets[i].Status = db.TicketCancelled
			tickets[i].StatusReason = reason
			tickets[i].CancelledAt = &now
		}

		attendee.CancelledTickets += len(tickets)
		attendee.CheckInEligible = attendee.CancelledTickets < attendee.TotalTickets
		if err := tx.SaveAttendee(ctx, attendee); err != nil {
			return err
		}

		result = &Cancellation{Tickets: tickets, RefundAmount: refund}
		if attendee.PaymentID != nil && refund.IsPositive() {
			record := db.Refund{
				Model:       db.NewModel(),
				AttendeeID:  attendee.ID,
				PaymentID:   *attendee.PaymentID,
				Amount:      refund,
				TicketCount: len(tickets),
				Reason:      reason,
				Status:      db.RefundPending,
				RequestedBy: req.ActorID,
			}
			if err := tx.CreateRefund(ctx, &record); err != nil {
				return err
			}
			result.Refund = &record
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.TicketTransition(string(db.TicketCancelled), len(result.Tickets))
	util.LOGGER.Info("Tickets cancelled", "attendee_id", req.AttendeeID, "count", len(result.Tickets),
		"refund_amount", result.RefundAmount.StringFixed(2))
	return result, nil
}

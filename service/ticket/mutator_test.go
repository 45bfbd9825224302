package ticket

import (
	"testing"
	"time"

	"zestpass/db"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestMarkUsedOnlyFromActive(t *testing.T) {
	f := newFixture(t)
	booking := f.book(t, db.TicketCounts{"General": 1})
	id := booking.Tickets[0].ID

	ticket, err := f.service.MarkUsed(f.ctx, id, nil, "Gate A")
	require.NoError(t, err)
	require.Equal(t, db.TicketUsed, ticket.Status)
	require.NotNil(t, ticket.UsedAt)

	_, err = f.service.MarkUsed(f.ctx, id, nil, "Gate A")
	require.ErrorIs(t, err, ErrTicketNotActive)

	_, err = f.service.MarkUsed(f.ctx, uuid.New(), nil, "Gate A")
	require.ErrorIs(t, err, ErrTicketNotFound)
}

func TestCancelIndividualRejectsWholeSetIfAnyUsed(t *testing.T) {
	f := newFixture(t)
	booking := f.book(t, db.TicketCounts{"General": 3})
	tickets := booking.Tickets

	_, err := f.service.MarkUsed(f.ctx, tickets[0].ID, nil, "")
	require.NoError(t, err)

	_, err = f.service.CancelIndividual(f.ctx, CancelRequest{
		AttendeeID: booking.Attendee.ID,
		TicketIDs:  []uuid.UUID{tickets[1].ID, tickets[0].ID},
	})
	require.ErrorIs(t, err, ErrNotCancellable)
	require.Equal(t, db.TicketActive, f.status(t, tickets[1].ID))
	require.Equal(t, db.TicketUsed, f.status(t, tickets[0].ID))

	attendee, err := f.store.GetAttendee(f.ctx, booking.Attendee.ID, false)
	require.NoError(t, err)
	require.Zero(t, attendee.CancelledTickets)
}

func TestCancelIndividualRecordsPendingRefund(t *testing.T) {
	f := newFixture(t)
	booking := f.book(t, db.TicketCounts{"General": 2, "VIP": 1})
	tickets := booking.Tickets
	actor := uuid.New()

	cancellation, err := f.service.CancelIndividual(f.ctx, CancelRequest{
		AttendeeID: booking.Attendee.ID,
		TicketIDs:  []uuid.UUID{tickets[0].ID, tickets[1].ID, tickets[0].ID},
		Reason:     "plans changed",
		ActorID:    &actor,
	})
	require.NoError(t, err)
	require.Len(t, cancellation.Tickets, 2)

	// 450 split across 3 tickets, 2 cancelled
	require.True(t, cancellation.RefundAmount.Equal(decimal.NewFromInt(300)), cancellation.RefundAmount.String())
	require.NotNil(t, cancellation.Refund)
	require.Equal(t, db.RefundPending, cancellation.Refund.Status)
	require.Equal(t, *booking.Attendee.PaymentID, cancellation.Refund.PaymentID)
	require.Equal(t, 2, cancellation.Refund.TicketCount)

	stored, err := f.store.GetRefund(f.ctx, cancellation.Refund.ID, false)
	require.NoError(t, err)
	require.True(t, stored.Amount.Equal(decimal.NewFromInt(300)))

	attendee, err := f.store.GetAttendee(f.ctx, booking.Attendee.ID, false)
	require.NoError(t, err)
	require.Equal(t, 2, attendee.CancelledTickets)
	require.True(t, attendee.CheckInEligible)
	require.Equal(t, db.PaymentPaid, attendee.PaymentStatus)

	for _, ticket := range tickets[:2] {
		require.Equal(t, db.TicketCancelled, f.status(t, ticket.ID))
	}
	require.Equal(t, db.TicketActive, f.status(t, tickets[2].ID))

	// Cancelling them again is rejected
	_, err = f.service.CancelIndividual(f.ctx, CancelRequest{
		AttendeeID: booking.Attendee.ID,
		TicketIDs:  []uuid.UUID{tickets[0].ID},
	})
	require.ErrorIs(t, err, ErrNotCancellable)

	// Last ticket: the booking is no longer eligible for check-in
	_, err = f.service.CancelIndividual(f.ctx, CancelRequest{
		AttendeeID: booking.Attendee.ID,
		TicketIDs:  []uuid.UUID{tickets[2].ID},
	})
	require.NoError(t, err)
	attendee, err = f.store.GetAttendee(f.ctx, booking.Attendee.ID, false)
	require.NoError(t, err)
	require.False(t, attendee.CheckInEligible)
}

func TestCancelIndividualManualBookingHasNoRefund(t *testing.T) {
	f := newFixture(t)
	booking := f.book(t, db.TicketCounts{"General": 2}, manual)

	cancellation, err := f.service.CancelIndividual(f.ctx, CancelRequest{
		AttendeeID: booking.Attendee.ID,
		TicketIDs:  []uuid.UUID{booking.Tickets[0].ID},
	})
	require.NoError(t, err)
	require.Nil(t, cancellation.Refund)
	require.True(t, cancellation.RefundAmount.Equal(decimal.NewFromInt(100)))
}

func TestCancelIndividualForeignTicket(t *testing.T) {
	f := newFixture(t)
	first := f.book(t, db.TicketCounts{"General": 2})
	second := f.book(t, db.TicketCounts{"General": 2})

	_, err := f.service.CancelIndividual(f.ctx, CancelRequest{
		AttendeeID: first.Attendee.ID,
		TicketIDs:  []uuid.UUID{first.Tickets[0].ID, second.Tickets[0].ID},
	})
	require.ErrorIs(t, err, ErrTicketNotInBooking)
	require.Equal(t, db.TicketActive, f.status(t, first.Tickets[0].ID))

	_, err = f.service.CancelIndividual(f.ctx, CancelRequest{AttendeeID: first.Attendee.ID})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = f.service.CancelIndividual(f.ctx, CancelRequest{AttendeeID: uuid.New(), TicketIDs: []uuid.UUID{first.Tickets[0].ID}})
	require.ErrorIs(t, err, ErrBookingNotFound)
}

func TestTransferRejectsSingleTicketBooking(t *testing.T) {
	f := newFixture(t)
	booking := f.book(t, db.TicketCounts{"General": 1})

	_, err := f.service.Transfer(f.ctx, TransferRequest{
		TicketID: booking.Tickets[0].ID,
		Name:     "Meera",
		Email:    "meera@example.com",
	})
	require.ErrorIs(t, err, ErrNotTransferable)
}

func TestTransferRelinksHolder(t *testing.T) {
	f := newFixture(t)
	friend := db.User{Model: db.NewModel(), Name: "Meera", Email: "meera@example.com"}
	require.NoError(t, f.store.CreateUser(f.ctx, &friend))
	booking := f.book(t, db.TicketCounts{"General": 2})

	ticket, err := f.service.Transfer(f.ctx, TransferRequest{
		TicketID: booking.Tickets[1].ID,
		Name:     "Meera",
		Email:    "Meera@Example.com",
	})
	require.NoError(t, err)
	require.Equal(t, "Meera", ticket.HolderName)
	require.Equal(t, "meera@example.com", ticket.HolderEmail)
	require.Equal(t, friend.ID, *ticket.UserID)
	require.Equal(t, booking.Tickets[1].TicketNumber, ticket.TicketNumber)

	history, err := f.service.History(f.ctx, ticket.ID)
	require.NoError(t, err)
	require.Equal(t, db.ActionTransferred, history[len(history)-1].Action)

	// Unknown holder: unlinked
	ticket, err = f.service.Transfer(f.ctx, TransferRequest{
		TicketID: booking.Tickets[1].ID,
		Name:     "Kabir",
		Phone:    "+91 90000 00000",
	})
	require.NoError(t, err)
	require.Nil(t, ticket.UserID)

	_, err = f.service.Transfer(f.ctx, TransferRequest{TicketID: booking.Tickets[1].ID, Name: "Nobody"})
	require.ErrorIs(t, err, ErrInvalidHolder)
}

func TestTransferRejectsInactiveTicket(t *testing.T) {
	f := newFixture(t)
	booking := f.book(t, db.TicketCounts{"General": 2})

	_, err := f.service.MarkUsed(f.ctx, booking.Tickets[0].ID, nil, "")
	require.NoError(t, err)

	_, err = f.service.Transfer(f.ctx, TransferRequest{
		TicketID: booking.Tickets[0].ID,
		Name:     "Meera",
		Email:    "meera@example.com",
	})
	require.ErrorIs(t, err, ErrTicketNotActive)

	_, err = f.service.Transfer(f.ctx, TransferRequest{TicketID: uuid.New(), Name: "Meera", Email: "meera@example.com"})
	require.ErrorIs(t, err, ErrTicketNotFound)
}

func TestExpirePastTickets(t *testing.T) {
	f := newFixture(t)
	past := f.book(t, db.TicketCounts{"General": 3})
	used := f.book(t, db.TicketCounts{"General": 1})
	_, err := f.service.MarkUsed(f.ctx, used.Tickets[0].ID, nil, "")
	require.NoError(t, err)

	later := db.Event{
		Title:       "Next Month",
		PageID:      &f.pageID,
		StartAt:     f.event.StartAt.AddDate(0, 1, 0),
		Status:      db.SubjectPublished,
		TicketTypes: []db.TicketType{{Name: "General", Price: decimal.NewFromInt(80)}},
	}
	require.NoError(t, f.store.CreateEvent(f.ctx, &later))
	future, err := f.service.IssueBooking(f.ctx, BookingRequest{
		SubjectType:  db.SubjectEvent,
		SubjectID:    later.ID,
		Name:         "Asha",
		TicketCounts: db.TicketCounts{"General": 2},
		TotalAmount:  decimal.NewFromInt(160),
		Source:       db.SourceManual,
	})
	require.NoError(t, err)

	// Nothing to do before the grace period ends
	f.now = f.event.EndAt.Add(time.Hour)
	expired, err := f.service.ExpirePastTickets(f.ctx)
	require.NoError(t, err)
	require.Zero(t, expired)

	f.now = f.event.EndAt.Add(3 * time.Hour)
	expired, err = f.service.ExpirePastTickets(f.ctx)
	require.NoError(t, err)
	require.Equal(t, 3, expired)

	for _, ticket := range past.Tickets {
		require.Equal(t, db.TicketExpired, f.status(t, ticket.ID))
	}
	require.Equal(t, db.TicketUsed, f.status(t, used.Tickets[0].ID))
	for _, ticket := range future.Tickets {
		require.Equal(t, db.TicketActive, f.status(t, ticket.ID))
	}

	// Cancelling the later event expires its tickets on the next sweep
	later.Status = db.SubjectCancelled
	f.store.SaveEvent(later)
	expired, err = f.service.ExpirePastTickets(f.ctx)
	require.NoError(t, err)
	require.Equal(t, 2, expired)
}

func TestExpirePastTicketsPagesPastRescheduledEvent(t *testing.T) {
	f := newFixture(t)
	f.service.sweepBatch = 2
	rescheduled := f.book(t, db.TicketCounts{"General": 3})

	matineeEnd := time.Date(2026, time.March, 10, 20, 0, 0, 0, time.UTC)
	matinee := db.Event{
		Title:       "Matinee",
		PageID:      &f.pageID,
		StartAt:     time.Date(2026, time.March, 10, 19, 0, 0, 0, time.UTC),
		EndAt:       &matineeEnd,
		Status:      db.SubjectPublished,
		TicketTypes: []db.TicketType{{Name: "General", Price: decimal.NewFromInt(50)}},
	}
	require.NoError(t, f.store.CreateEvent(f.ctx, &matinee))
	past, err := f.service.IssueBooking(f.ctx, BookingRequest{
		SubjectType:  db.SubjectEvent,
		SubjectID:    matinee.ID,
		Name:         "Asha",
		TicketCounts: db.TicketCounts{"General": 2},
		TotalAmount:  decimal.NewFromInt(100),
		Source:       db.SourceManual,
	})
	require.NoError(t, err)

	// Moved a month later: its tickets keep the old stored window and lead every sweep page
	f.event.StartAt = f.event.StartAt.AddDate(0, 1, 0)
	movedEnd := f.event.EndAt.AddDate(0, 1, 0)
	f.event.EndAt = &movedEnd
	f.store.SaveEvent(f.event)

	f.now = time.Date(2026, time.March, 11, 0, 0, 0, 0, time.UTC)
	expired, err := f.service.ExpirePastTickets(f.ctx)
	require.NoError(t, err)
	require.Equal(t, 2, expired)

	for _, ticket := range past.Tickets {
		require.Equal(t, db.TicketExpired, f.status(t, ticket.ID))
	}
	for _, ticket := range rescheduled.Tickets {
		require.Equal(t, db.TicketActive, f.status(t, ticket.ID))
	}
}

package ticket

import (
	"testing"
	"time"

	"zestpass/db"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestIssueBookingSplitsAmount(t *testing.T) {
	f := newFixture(t)

	booking := f.book(t, db.TicketCounts{"General": 3, "VIP": 1})

	require.Len(t, booking.Tickets, 4)
	require.Equal(t, db.TicketCounts{"General": 3, "VIP": 1}, booking.Attendee.TicketCounts)
	require.Equal(t, 4, booking.Attendee.TotalTickets)
	require.True(t, booking.Attendee.TotalAmount.Equal(decimal.NewFromInt(550)))
	require.Equal(t, db.PaymentPaid, booking.Attendee.PaymentStatus)
	require.True(t, booking.Attendee.CheckInEligible)

	numbers := map[string]bool{}
	for i, ticket := range booking.Tickets {
		require.True(t, ticket.Amount.Equal(decimal.RequireFromString("137.50")), ticket.Amount.String())
		require.Equal(t, ticket.TicketNumber, ticket.QRPayload)
		require.Equal(t, db.TicketActive, ticket.Status)
		require.Equal(t, i+1, ticket.TicketIndex)
		require.Equal(t, 4, ticket.TotalTicketsInBooking)
		require.Equal(t, booking.Attendee.ID, ticket.AttendeeID)
		require.Equal(t, f.event.StartAt, ticket.WindowStart)
		numbers[ticket.TicketNumber] = true
	}
	require.Len(t, numbers, 4)

	// Types are expanded in sorted order
	require.Equal(t, "General", booking.Tickets[0].TicketType)
	require.Equal(t, "VIP", booking.Tickets[3].TicketType)

	stored, err := f.service.Booking(f.ctx, booking.Attendee.ID)
	require.NoError(t, err)
	require.Len(t, stored.Tickets, 4)

	history, err := f.service.History(f.ctx, booking.Tickets[0].ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, db.ActionIssued, history[0].Action)
}

func TestIssueBookingLinksExistingAccount(t *testing.T) {
	f := newFixture(t)

	user := db.User{Model: db.NewModel(), Name: "Asha", Email: "asha@example.com", Role: db.Customer}
	require.NoError(t, f.store.CreateUser(f.ctx, &user))

	booking := f.book(t, db.TicketCounts{"General": 2}, func(req *BookingRequest) {
		req.Email = "  ASHA@example.com "
	})
	require.NotNil(t, booking.Attendee.UserID)
	require.Equal(t, user.ID, *booking.Attendee.UserID)

	tickets, err := f.service.ListForUser(f.ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, tickets, 2)
}

func TestIssueBookingUnlinkedByPhone(t *testing.T) {
	f := newFixture(t)

	booking := f.book(t, db.TicketCounts{"General": 1}, manual)
	require.Nil(t, booking.Attendee.UserID)
	require.Nil(t, booking.Tickets[0].UserID)
	require.Equal(t, db.PaymentManual, booking.Attendee.PaymentStatus)
	require.Equal(t, "+15550100", booking.Tickets[0].HolderPhone)
}

func TestIssueBookingRejections(t *testing.T) {
	f := newFixture(t)

	testCases := []struct {
		name   string
		counts db.TicketCounts
		err    error
	}{
		{"empty", db.TicketCounts{}, ErrInvalidQuantity},
		{"zero", db.TicketCounts{"General": 0}, ErrInvalidQuantity},
		{"negative", db.TicketCounts{"General": -1, "VIP": 2}, ErrInvalidQuantity},
		{"unknown type", db.TicketCounts{"Backstage": 1}, ErrUnknownTicketType},
		{"over capacity", db.TicketCounts{"VIP": 3}, ErrCapacityExceeded},
		{"too large", db.TicketCounts{"General": 11}, ErrBookingTooLarge},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.service.IssueBooking(f.ctx, BookingRequest{
				SubjectType:  db.SubjectEvent,
				SubjectID:    f.event.ID,
				Name:         "Asha",
				Email:        "asha@example.com",
				TicketCounts: tc.counts,
				TotalAmount:  decimal.NewFromInt(100),
				Source:       db.SourcePayment,
			})
			require.ErrorIs(t, err, tc.err)
		})
	}

	_, err := f.service.IssueBooking(f.ctx, BookingRequest{
		SubjectType:  db.SubjectEvent,
		SubjectID:    uuid.New(),
		TicketCounts: db.TicketCounts{"General": 1},
	})
	require.ErrorIs(t, err, ErrSubjectNotFound)
}

func TestIssueBookingCapacityCountsExistingTickets(t *testing.T) {
	f := newFixture(t)

	booking := f.book(t, db.TicketCounts{"VIP": 2})
	_, err := f.service.Quote(f.ctx, BookingRequest{
		SubjectType:  db.SubjectEvent,
		SubjectID:    f.event.ID,
		TicketCounts: db.TicketCounts{"VIP": 1},
	})
	require.ErrorIs(t, err, ErrCapacityExceeded)

	// Cancelled tickets free their seat
	_, err = f.service.CancelIndividual(f.ctx, CancelRequest{
		AttendeeID: booking.Attendee.ID,
		TicketIDs:  []uuid.UUID{booking.Tickets[0].ID},
	})
	require.NoError(t, err)

	total, err := f.service.Quote(f.ctx, BookingRequest{
		SubjectType:  db.SubjectEvent,
		SubjectID:    f.event.ID,
		TicketCounts: db.TicketCounts{"VIP": 1},
	})
	require.NoError(t, err)
	require.True(t, total.Equal(decimal.NewFromInt(250)))
}

func TestIssueBookingAmountsAddUpToTotal(t *testing.T) {
	f := newFixture(t)

	paymentID := "pay_thirds"
	booking, err := f.service.IssueBooking(f.ctx, BookingRequest{
		SubjectType:  db.SubjectEvent,
		SubjectID:    f.event.ID,
		Name:         "Asha",
		Email:        "asha@example.com",
		TicketCounts: db.TicketCounts{"General": 3},
		TotalAmount:  decimal.NewFromInt(100),
		PaymentID:    &paymentID,
		Source:       db.SourcePayment,
	})
	require.NoError(t, err)

	sum := decimal.Zero
	ids := make([]uuid.UUID, 0, len(booking.Tickets))
	for _, ticket := range booking.Tickets {
		sum = sum.Add(ticket.Amount)
		ids = append(ids, ticket.ID)
	}
	require.True(t, sum.Equal(decimal.NewFromInt(100)), sum.String())
	require.Equal(t, "33.33", booking.Tickets[0].Amount.StringFixed(2))
	require.Equal(t, "33.34", booking.Tickets[2].Amount.StringFixed(2))

	// Cancelling every ticket refunds the full payment
	cancellation, err := f.service.CancelIndividual(f.ctx, CancelRequest{AttendeeID: booking.Attendee.ID, TicketIDs: ids})
	require.NoError(t, err)
	require.True(t, cancellation.RefundAmount.Equal(decimal.NewFromInt(100)), cancellation.RefundAmount.String())
}

func TestIssueBookingSamePaymentOnce(t *testing.T) {
	f := newFixture(t)

	paymentID := "pay_duplicate"
	withPayment := func(req *BookingRequest) { req.PaymentID = &paymentID }
	f.book(t, db.TicketCounts{"General": 2}, withPayment)

	_, err := f.service.IssueBooking(f.ctx, BookingRequest{
		SubjectType:  db.SubjectEvent,
		SubjectID:    f.event.ID,
		Name:         "Asha",
		TicketCounts: db.TicketCounts{"General": 2},
		TotalAmount:  decimal.NewFromInt(200),
		PaymentID:    &paymentID,
		Source:       db.SourcePayment,
	})
	require.ErrorIs(t, err, db.ErrConflict)

	held, err := f.store.CountCapacityTickets(f.ctx, db.CapacityFilter{SubjectType: db.SubjectEvent, SubjectID: f.event.ID})
	require.NoError(t, err)
	require.EqualValues(t, 2, held)
}

func TestIssueBookingCancelledEvent(t *testing.T) {
	f := newFixture(t)

	f.event.Status = db.SubjectCancelled
	f.store.SaveEvent(f.event)

	_, err := f.service.IssueBooking(f.ctx, BookingRequest{
		SubjectType:  db.SubjectEvent,
		SubjectID:    f.event.ID,
		Name:         "Asha",
		TicketCounts: db.TicketCounts{"General": 1},
		TotalAmount:  decimal.NewFromInt(100),
		Source:       db.SourceManual,
	})
	require.ErrorIs(t, err, ErrSubjectUnavailable)
}

func TestIssueActivityBooking(t *testing.T) {
	f := newFixture(t)

	activity := db.Activity{
		Title:  "Pottery Workshop",
		PageID: &f.pageID,
		Price:  decimal.RequireFromString("499.99"),
		Status: db.SubjectPublished,
		Slots: []db.ActivitySlot{
			{Weekday: time.Tuesday, StartTime: "10:00", EndTime: "12:00", Capacity: 2},
		},
	}
	require.NoError(t, f.store.CreateActivity(f.ctx, &activity))
	slotID := activity.Slots[0].ID

	nextTuesday := time.Date(2026, time.March, 17, 0, 0, 0, 0, time.UTC)
	request := func(quantity int, date time.Time) BookingRequest {
		return BookingRequest{
			SubjectType:  db.SubjectActivity,
			SubjectID:    activity.ID,
			Name:         "Ravi",
			Email:        "ravi@example.com",
			Quantity:     quantity,
			SelectedDate: &date,
			SlotID:       &slotID,
			TotalAmount:  activity.Price.Mul(decimal.NewFromInt(int64(quantity))),
			Source:       db.SourcePayment,
		}
	}

	booking, err := f.service.IssueBooking(f.ctx, request(2, nextTuesday))
	require.NoError(t, err)
	require.Len(t, booking.Tickets, 2)
	require.Equal(t, db.TicketCounts{db.StandardTicketType: 2}, booking.Attendee.TicketCounts)
	require.Equal(t, time.Date(2026, time.March, 17, 10, 0, 0, 0, time.UTC), booking.Tickets[0].WindowStart)
	require.Equal(t, time.Date(2026, time.March, 17, 12, 0, 0, 0, time.UTC), *booking.Tickets[0].WindowEnd)
	require.True(t, booking.Tickets[0].Amount.Equal(decimal.RequireFromString("499.99")))

	// The occurrence is full, the next week is not
	_, err = f.service.IssueBooking(f.ctx, request(1, nextTuesday))
	require.ErrorIs(t, err, ErrCapacityExceeded)
	_, err = f.service.IssueBooking(f.ctx, request(1, nextTuesday.AddDate(0, 0, 7)))
	require.NoError(t, err)

	// Wrong weekday and past dates
	_, err = f.service.IssueBooking(f.ctx, request(1, nextTuesday.AddDate(0, 0, 1)))
	require.ErrorIs(t, err, ErrInvalidSchedule)
	_, err = f.service.IssueBooking(f.ctx, request(1, nextTuesday.AddDate(0, 0, -14)))
	require.ErrorIs(t, err, ErrInvalidSchedule)
}

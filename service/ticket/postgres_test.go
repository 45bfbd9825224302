package ticket

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"zestpass/db"
	"zestpass/db/dbtest"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// Published event on Postgres starting in an hour, with a single VIP seat
func createPostgresEvent(t *testing.T, store db.Store) db.Event {
	t.Helper()

	pageID := uuid.New()
	start := time.Now().Add(time.Hour).Truncate(time.Second)
	end := start.Add(3 * time.Hour)
	event := db.Event{
		Model:   db.NewModel(),
		Title:   "Rooftop Session",
		PageID:  &pageID,
		StartAt: start,
		EndAt:   &end,
		Status:  db.SubjectPublished,
		TicketTypes: []db.TicketType{
			{Model: db.NewModel(), Name: "General", Price: decimal.NewFromInt(100)},
			{Model: db.NewModel(), Name: "VIP", Price: decimal.NewFromInt(250), Capacity: 1},
		},
	}
	require.NoError(t, store.CreateEvent(context.Background(), &event))
	return event
}

func postgresBooking(event db.Event, counts db.TicketCounts, total int64) BookingRequest {
	paymentID := "pay_" + uuid.NewString()
	return BookingRequest{
		SubjectType:  db.SubjectEvent,
		SubjectID:    event.ID,
		Name:         "Asha Rao",
		Email:        "asha@example.com",
		TicketCounts: counts,
		TotalAmount:  decimal.NewFromInt(total),
		PaymentID:    &paymentID,
		Source:       db.SourcePayment,
	}
}

func TestPostgresConcurrentBookingsRespectCapacity(t *testing.T) {
	store := dbtest.Queries(t)
	service := NewService(store, time.UTC, 10)
	ctx := context.Background()
	event := createPostgresEvent(t, store)

	var wg sync.WaitGroup
	errs := make([]error, 6)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = service.IssueBooking(ctx, postgresBooking(event, db.TicketCounts{"VIP": 1}, 250))
		}(i)
	}
	wg.Wait()

	booked := 0
	for _, err := range errs {
		if err == nil {
			booked++
			continue
		}
		require.True(t, errors.Is(err, ErrCapacityExceeded), "unexpected error: %v", err)
	}
	require.Equal(t, 1, booked)

	count, err := store.CountCapacityTickets(ctx, db.CapacityFilter{
		SubjectType: db.SubjectEvent, SubjectID: event.ID, TicketType: "VIP",
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestPostgresConcurrentCheckInAdmitsOnce(t *testing.T) {
	store := dbtest.Queries(t)
	service := NewService(store, time.UTC, 10)
	ctx := context.Background()
	event := createPostgresEvent(t, store)

	booking, err := service.IssueBooking(ctx, postgresBooking(event, db.TicketCounts{"General": 3}, 300))
	require.NoError(t, err)
	require.Len(t, booking.Tickets, 3)

	total := decimal.Zero
	for _, ticket := range booking.Tickets {
		total = total.Add(ticket.Amount)
	}
	require.True(t, total.Equal(decimal.NewFromInt(300)))

	number := booking.Tickets[0].TicketNumber
	var wg sync.WaitGroup
	results := make([]Result, 8)
	errs := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = service.CheckIn(ctx, ScanRequest{TicketNumber: number, Location: "Gate A"})
		}(i)
	}
	wg.Wait()

	admitted := 0
	for i, result := range results {
		require.NoError(t, errs[i])
		if result.IsValid {
			admitted++
		} else {
			require.Equal(t, CodeTicketUsed, result.Code)
		}
	}
	require.Equal(t, 1, admitted)

	stored, err := store.GetTicket(ctx, booking.Tickets[0].ID, false)
	require.NoError(t, err)
	require.Equal(t, db.TicketUsed, stored.Status)
}

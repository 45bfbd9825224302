package ticket

import (
	"context"
	"testing"
	"time"

	"zestpass/db"
	"zestpass/db/memdb"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// Tuesday 10 March 2026, 15:00 UTC
var baseNow = time.Date(2026, time.March, 10, 15, 0, 0, 0, time.UTC)

type fixture struct {
	ctx     context.Context
	store   *memdb.Store
	service *Service
	now     time.Time
	pageID  uuid.UUID
	event   db.Event
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		ctx:    context.Background(),
		store:  memdb.New(),
		now:    baseNow,
		pageID: uuid.New(),
	}
	f.service = NewService(f.store, time.UTC, 10)
	f.service.SetClock(func() time.Time { return f.now })

	start := time.Date(2026, time.March, 10, 18, 0, 0, 0, time.UTC)
	end := time.Date(2026, time.March, 10, 21, 0, 0, 0, time.UTC)
	f.event = db.Event{
		Title:   "Indie Night",
		PageID:  &f.pageID,
		StartAt: start,
		EndAt:   &end,
		Status:  db.SubjectPublished,
		TicketTypes: []db.TicketType{
			{Name: "General", Price: decimal.NewFromInt(100)},
			{Name: "VIP", Price: decimal.NewFromInt(250), Capacity: 2},
		},
	}
	require.NoError(t, f.store.CreateEvent(f.ctx, &f.event))
	return f
}

// Book an event with the given breakdown at list price
func (f *fixture) book(t *testing.T, counts db.TicketCounts, opts ...func(*BookingRequest)) *Booking {
	t.Helper()

	subject, err := f.store.GetSubject(f.ctx, db.SubjectEvent, f.event.ID, false)
	require.NoError(t, err)
	total, err := PriceBooking(subject, counts)
	require.NoError(t, err)

	paymentID := "pay_" + uuid.NewString()
	req := BookingRequest{
		SubjectType:  db.SubjectEvent,
		SubjectID:    f.event.ID,
		Name:         "Asha Rao",
		Email:        "asha@example.com",
		Phone:        "+91 98765 43210",
		TicketCounts: counts,
		TotalAmount:  total,
		PaymentID:    &paymentID,
		Source:       db.SourcePayment,
	}
	for _, opt := range opts {
		opt(&req)
	}

	booking, err := f.service.IssueBooking(f.ctx, req)
	require.NoError(t, err)
	return booking
}

func manual(req *BookingRequest) {
	req.Source = db.SourceManual
	req.PaymentID = nil
	req.Email = ""
	req.Phone = "+1 555 0100"
}

func (f *fixture) status(t *testing.T, id uuid.UUID) db.TicketStatus {
	t.Helper()
	ticket, err := f.store.GetTicket(f.ctx, id, false)
	require.NoError(t, err)
	return ticket.Status
}

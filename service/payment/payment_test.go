package payment

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"zestpass/db"
	"zestpass/db/memdb"
	"zestpass/service/ticket"
	"zestpass/service/worker"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
)

// Gateway double: every order succeeds, payments verify when the signature is "ok"
type fakeGateway struct {
	mu        sync.Mutex
	orders    int
	refunds   []string
	refundErr error
}

func (gateway *fakeGateway) Name() string { return "fake" }

func (gateway *fakeGateway) CreateOrder(ctx context.Context, amount decimal.Decimal, currency, receipt string) (*GatewayOrder, error) {
	gateway.mu.Lock()
	defer gateway.mu.Unlock()
	gateway.orders++
	return &GatewayOrder{ID: fmt.Sprintf("order_%d", gateway.orders)}, nil
}

func (gateway *fakeGateway) VerifyPayment(ctx context.Context, order *db.Order, confirmation Confirmation) (string, error) {
	if confirmation.Signature != "ok" {
		return "", fmt.Errorf("%w: bad signature", ErrPaymentNotVerified)
	}
	return confirmation.PaymentID, nil
}

func (gateway *fakeGateway) Refund(ctx context.Context, paymentID string, amount decimal.Decimal) (string, error) {
	gateway.mu.Lock()
	defer gateway.mu.Unlock()
	if gateway.refundErr != nil {
		return "", gateway.refundErr
	}
	gateway.refunds = append(gateway.refunds, paymentID+":"+amount.StringFixed(2))
	return fmt.Sprintf("rfnd_%d", len(gateway.refunds)), nil
}

type fakeDistributor struct {
	mu    sync.Mutex
	tasks []string
}

func (d *fakeDistributor) DistributeTask(ctx context.Context, name string, payload any, opts ...asynq.Option) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tasks = append(d.tasks, name)
	return nil
}

type checkoutFixture struct {
	ctx         context.Context
	store       *memdb.Store
	tickets     *ticket.Service
	gateway     *fakeGateway
	distributor *fakeDistributor
	checkout    *Checkout
	event       db.Event
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()

	f := &checkoutFixture{
		ctx:         context.Background(),
		store:       memdb.New(),
		gateway:     &fakeGateway{},
		distributor: &fakeDistributor{},
	}
	f.tickets = ticket.NewService(f.store, time.UTC, 10)
	f.tickets.SetClock(func() time.Time { return time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC) })
	f.checkout = NewCheckout(f.store, f.tickets, f.gateway, f.distributor, "INR")

	end := time.Date(2026, time.March, 10, 21, 0, 0, 0, time.UTC)
	f.event = db.Event{
		Title:   "Indie Night",
		StartAt: time.Date(2026, time.March, 10, 18, 0, 0, 0, time.UTC),
		EndAt:   &end,
		Status:  db.SubjectPublished,
		TicketTypes: []db.TicketType{
			{Name: "General", Price: decimal.RequireFromString("99.50")},
			{Name: "VIP", Price: decimal.NewFromInt(250), Capacity: 2},
		},
	}
	require.NoError(t, f.store.CreateEvent(f.ctx, &f.event))
	return f
}

func (f *checkoutFixture) request(counts db.TicketCounts) ticket.BookingRequest {
	return ticket.BookingRequest{
		SubjectType:  db.SubjectEvent,
		SubjectID:    f.event.ID,
		Name:         "Asha Rao",
		Email:        "asha@example.com",
		Phone:        "+91 98765 43210",
		TicketCounts: counts,
		// Ignored: the amount comes from the price list
		TotalAmount: decimal.NewFromInt(1),
	}
}

func TestMinorUnits(t *testing.T) {
	require.Equal(t, int64(19900), MinorUnits(decimal.RequireFromString("199")))
	require.Equal(t, int64(9950), MinorUnits(decimal.RequireFromString("99.50")))
	require.Equal(t, int64(3334), MinorUnits(decimal.RequireFromString("33.335")))
}

func TestVerifySignature(t *testing.T) {
	secret := "rzp_test_secret"
	signature := "ab3735900b4a9387cdef0bbf14b8c89fe7fb8f561461fd7267d5f3cfea25144e"

	require.True(t, VerifySignature(secret, "order_Q1w2e3r4t5y6u7", "pay_A1s2d3f4g5h6j7", signature))
	require.True(t, VerifySignature(secret, "order_Q1w2e3r4t5y6u7", "pay_A1s2d3f4g5h6j7", strings.ToUpper(signature)))
	require.False(t, VerifySignature(secret, "order_Q1w2e3r4t5y6u7", "pay_other", signature))
	require.False(t, VerifySignature("wrong", "order_Q1w2e3r4t5y6u7", "pay_A1s2d3f4g5h6j7", signature))
}

func TestRazorpayVerifyPayment(t *testing.T) {
	gateway := NewRazorpayGateway("rzp_test_key", "rzp_test_secret")
	order := &db.Order{GatewayOrderID: "order_Q1w2e3r4t5y6u7"}

	paymentID, err := gateway.VerifyPayment(context.Background(), order, Confirmation{
		OrderID:   "order_Q1w2e3r4t5y6u7",
		PaymentID: "pay_A1s2d3f4g5h6j7",
		Signature: "ab3735900b4a9387cdef0bbf14b8c89fe7fb8f561461fd7267d5f3cfea25144e",
	})
	require.NoError(t, err)
	require.Equal(t, "pay_A1s2d3f4g5h6j7", paymentID)

	testCases := []struct {
		name         string
		confirmation Confirmation
	}{
		{"other order", Confirmation{OrderID: "order_X", PaymentID: "pay_A1s2d3f4g5h6j7", Signature: "ab37"}},
		{"missing signature", Confirmation{OrderID: "order_Q1w2e3r4t5y6u7", PaymentID: "pay_A1s2d3f4g5h6j7"}},
		{"forged signature", Confirmation{OrderID: "order_Q1w2e3r4t5y6u7", PaymentID: "pay_A1s2d3f4g5h6j7", Signature: strings.Repeat("0", 64)}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := gateway.VerifyPayment(context.Background(), order, tc.confirmation)
			require.ErrorIs(t, err, ErrPaymentNotVerified)
		})
	}
}

func TestCreateOrderPricesServerSide(t *testing.T) {
	f := newCheckoutFixture(t)

	created, err := f.checkout.CreateOrder(f.ctx, f.request(db.TicketCounts{"General": 2, "VIP": 1}))
	require.NoError(t, err)
	require.Equal(t, "449.00", created.Order.Amount.StringFixed(2))
	require.Equal(t, "order_1", created.Order.GatewayOrderID)
	require.Equal(t, db.OrderCreated, created.Order.Status)
	require.Equal(t, "INR", created.Order.Currency)

	_, err = f.checkout.CreateOrder(f.ctx, f.request(db.TicketCounts{"VIP": 3}))
	require.ErrorIs(t, err, ticket.ErrCapacityExceeded)

	_, err = f.checkout.CreateOrder(f.ctx, f.request(db.TicketCounts{"Backstage": 1}))
	require.ErrorIs(t, err, ticket.ErrUnknownTicketType)
}

func TestCreateOrderFreeBooking(t *testing.T) {
	f := newCheckoutFixture(t)
	free := db.Event{
		Title:       "Open Rehearsal",
		StartAt:     f.event.StartAt,
		Status:      db.SubjectPublished,
		TicketTypes: []db.TicketType{{Name: "General", Price: decimal.Zero}},
	}
	require.NoError(t, f.store.CreateEvent(f.ctx, &free))

	req := f.request(db.TicketCounts{"General": 1})
	req.SubjectID = free.ID
	_, err := f.checkout.CreateOrder(f.ctx, req)
	require.ErrorIs(t, err, ErrNothingToPay)
}

func TestVerifyAndBook(t *testing.T) {
	f := newCheckoutFixture(t)
	created, err := f.checkout.CreateOrder(f.ctx, f.request(db.TicketCounts{"General": 2, "VIP": 1}))
	require.NoError(t, err)

	confirmation := Confirmation{OrderID: created.Order.GatewayOrderID, PaymentID: "pay_1", Signature: "ok"}
	booking, err := f.checkout.VerifyAndBook(f.ctx, confirmation)
	require.NoError(t, err)
	require.Len(t, booking.Tickets, 3)
	require.Equal(t, "449.00", booking.Attendee.TotalAmount.StringFixed(2))
	require.Equal(t, db.PaymentPaid, booking.Attendee.PaymentStatus)
	require.Equal(t, "pay_1", *booking.Attendee.PaymentID)
	require.Equal(t, []string{worker.PublishTicketQR, worker.SendTicketEmail}, f.distributor.tasks)

	order, err := f.store.GetOrderByGatewayID(f.ctx, created.Order.GatewayOrderID, false)
	require.NoError(t, err)
	require.Equal(t, db.OrderPaid, order.Status)
	require.Equal(t, booking.Attendee.ID, *order.AttendeeID)

	// Replaying the confirmation returns the same booking and queues nothing
	again, err := f.checkout.VerifyAndBook(f.ctx, confirmation)
	require.NoError(t, err)
	require.Equal(t, booking.Attendee.ID, again.Attendee.ID)
	require.Len(t, f.distributor.tasks, 2)
}

func TestVerifyAndBookConcurrent(t *testing.T) {
	f := newCheckoutFixture(t)
	created, err := f.checkout.CreateOrder(f.ctx, f.request(db.TicketCounts{"General": 1}))
	require.NoError(t, err)
	confirmation := Confirmation{OrderID: created.Order.GatewayOrderID, PaymentID: "pay_1", Signature: "ok"}

	var wg sync.WaitGroup
	results := make(chan error, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.checkout.VerifyAndBook(f.ctx, confirmation)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	for err := range results {
		if err != nil {
			require.ErrorIs(t, err, ErrPaymentInProgress)
		}
	}

	// Whatever the interleaving, exactly one booking exists for the payment
	booking, err := f.checkout.VerifyAndBook(f.ctx, confirmation)
	require.NoError(t, err)
	require.Len(t, booking.Tickets, 1)

	attendee, err := f.store.GetAttendeeByPaymentID(f.ctx, "pay_1")
	require.NoError(t, err)
	require.Equal(t, booking.Attendee.ID, attendee.ID)
}

func TestVerifyAndBookRejected(t *testing.T) {
	f := newCheckoutFixture(t)
	created, err := f.checkout.CreateOrder(f.ctx, f.request(db.TicketCounts{"General": 1}))
	require.NoError(t, err)

	_, err = f.checkout.VerifyAndBook(f.ctx, Confirmation{OrderID: created.Order.GatewayOrderID, PaymentID: "pay_1", Signature: "forged"})
	require.ErrorIs(t, err, ErrPaymentNotVerified)

	_, err = f.store.GetAttendeeByPaymentID(f.ctx, "pay_1")
	require.ErrorIs(t, err, db.ErrNotFound)
	require.Empty(t, f.distributor.tasks)

	_, err = f.checkout.VerifyAndBook(f.ctx, Confirmation{OrderID: "order_unknown", PaymentID: "pay_1", Signature: "ok"})
	require.ErrorIs(t, err, ErrOrderNotFound)
}

func TestVerifyAndBookLocked(t *testing.T) {
	f := newCheckoutFixture(t)
	created, err := f.checkout.CreateOrder(f.ctx, f.request(db.TicketCounts{"General": 1}))
	require.NoError(t, err)

	acquired, err := f.store.AcquireLock(f.ctx, "payment:"+created.Order.GatewayOrderID, "other", time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	_, err = f.checkout.VerifyAndBook(f.ctx, Confirmation{OrderID: created.Order.GatewayOrderID, PaymentID: "pay_1", Signature: "ok"})
	require.ErrorIs(t, err, ErrPaymentInProgress)

	require.NoError(t, f.store.ReleaseLock(f.ctx, "payment:"+created.Order.GatewayOrderID, "other"))
	_, err = f.checkout.VerifyAndBook(f.ctx, Confirmation{OrderID: created.Order.GatewayOrderID, PaymentID: "pay_1", Signature: "ok"})
	require.NoError(t, err)
}

func TestVerifyAndBookSoldOutMarksOrderFailed(t *testing.T) {
	f := newCheckoutFixture(t)
	first, err := f.checkout.CreateOrder(f.ctx, f.request(db.TicketCounts{"VIP": 2}))
	require.NoError(t, err)
	second, err := f.checkout.CreateOrder(f.ctx, f.request(db.TicketCounts{"VIP": 1}))
	require.NoError(t, err)

	_, err = f.checkout.VerifyAndBook(f.ctx, Confirmation{OrderID: first.Order.GatewayOrderID, PaymentID: "pay_1", Signature: "ok"})
	require.NoError(t, err)

	_, err = f.checkout.VerifyAndBook(f.ctx, Confirmation{OrderID: second.Order.GatewayOrderID, PaymentID: "pay_2", Signature: "ok"})
	require.ErrorIs(t, err, ticket.ErrCapacityExceeded)

	order, err := f.store.GetOrderByGatewayID(f.ctx, second.Order.GatewayOrderID, false)
	require.NoError(t, err)
	require.Equal(t, db.OrderFailed, order.Status)
	require.Equal(t, "pay_2", *order.PaymentID)
}

func TestIssueRefund(t *testing.T) {
	f := newCheckoutFixture(t)
	created, err := f.checkout.CreateOrder(f.ctx, f.request(db.TicketCounts{"General": 2}))
	require.NoError(t, err)
	booking, err := f.checkout.VerifyAndBook(f.ctx, Confirmation{OrderID: created.Order.GatewayOrderID, PaymentID: "pay_1", Signature: "ok"})
	require.NoError(t, err)

	admin := uuid.New()
	cancellation, err := f.tickets.CancelIndividual(f.ctx, ticket.CancelRequest{
		AttendeeID: booking.Attendee.ID,
		TicketIDs:  []uuid.UUID{booking.Tickets[0].ID},
		ActorID:    &admin,
	})
	require.NoError(t, err)
	require.NotNil(t, cancellation.Refund)
	require.Empty(t, f.gateway.refunds)

	// Gateway failure leaves the refund failed, it can be issued again
	f.gateway.refundErr = errors.New("gateway timeout")
	_, err = f.checkout.IssueRefund(f.ctx, admin, cancellation.Refund.ID)
	require.ErrorIs(t, err, ErrRefundFailed)
	stored, err := f.store.GetRefund(f.ctx, cancellation.Refund.ID, false)
	require.NoError(t, err)
	require.Equal(t, db.RefundFailed, stored.Status)

	f.gateway.refundErr = nil
	refund, err := f.checkout.IssueRefund(f.ctx, admin, cancellation.Refund.ID)
	require.NoError(t, err)
	require.Equal(t, db.RefundIssued, refund.Status)
	require.Equal(t, "rfnd_1", refund.GatewayRefundID)
	require.Equal(t, []string{"pay_1:99.50"}, f.gateway.refunds)

	attendee, err := f.store.GetAttendee(f.ctx, booking.Attendee.ID, false)
	require.NoError(t, err)
	require.Equal(t, db.PaymentPartial, attendee.PaymentStatus)

	_, err = f.checkout.IssueRefund(f.ctx, admin, cancellation.Refund.ID)
	require.ErrorIs(t, err, ErrRefundNotPending)

	_, err = f.checkout.IssueRefund(f.ctx, admin, uuid.New())
	require.ErrorIs(t, err, ErrRefundNotFound)
}

func TestStripePayment(t *testing.T) {
	// Integration test against the Stripe test mode API
	if os.Getenv("CI") != "" || os.Getenv("STRIPE_SECRET_KEY") == "" {
		t.Skip("no Stripe key, skip integration test")
	}
	InitStripe(os.Getenv("STRIPE_SECRET_KEY"))
	ctx := context.Background()

	// Pick a random value in the valid range
	amount := int64(5_000) + rand.Int63n(1_000_000)

	intent, err := CreatePaymentIntent(ctx, amount, stripe.CurrencyINR, uuid.NewString())
	require.NoError(t, err)
	require.NotNil(t, intent)

	confirm, err := ConfirmPaymentIntent(ctx, intent.ID, "pm_card_visa", "https://example.com/return")
	require.NoError(t, err)
	require.Equal(t, intent.ID, confirm.ID)

	gateway := NewStripeGateway(os.Getenv("STRIPE_SECRET_KEY"))
	order := &db.Order{GatewayOrderID: intent.ID, Amount: decimal.New(amount, -2)}
	paymentID, err := gateway.VerifyPayment(ctx, order, Confirmation{OrderID: intent.ID})
	require.NoError(t, err)
	require.Equal(t, intent.ID, paymentID)

	// Partial refund
	refund, err := CreateRefund(ctx, intent.ID, Duplicate, amount/5)
	require.NoError(t, err)
	require.Equal(t, intent.ID, refund.PaymentIntent.ID)
	require.Equal(t, amount/5, refund.Amount)
}

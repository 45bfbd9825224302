package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"zestpass/db"
	"zestpass/service/metrics"
	"zestpass/service/ticket"
	"zestpass/service/worker"
	"zestpass/util"

	"github.com/google/uuid"
)

// Held while a payment or refund is processed. Long enough for a gateway round trip
const lockTTL = 30 * time.Second

// Checkout service: gateway orders, payment verification and refunds
type Checkout struct {
	store       db.Store
	tickets     *ticket.Service
	gateway     Gateway
	distributor worker.TaskDistributor
	currency    string
}

// Constructor for the checkout service. `distributor` may be nil, then no follow-up task is queued
func NewCheckout(store db.Store, tickets *ticket.Service, gateway Gateway, distributor worker.TaskDistributor, currency string) *Checkout {
	return &Checkout{
		store:       store,
		tickets:     tickets,
		gateway:     gateway,
		distributor: distributor,
		currency:    currency,
	}
}

// Gateway name
func (checkout *Checkout) Gateway() string {
	return checkout.gateway.Name()
}

// Order created for a checkout
type CheckoutOrder struct {
	Order        db.Order `json:"order"`
	ClientSecret string   `json:"client_secret,omitempty"`
}

// Create a gateway order for a booking request. The amount is always computed from the price list,
// whatever the client sent
func (checkout *Checkout) CreateOrder(ctx context.Context, req ticket.BookingRequest) (*CheckoutOrder, error) {
	req.Source = db.SourcePayment
	amount, err := checkout.tickets.Quote(ctx, req)
	if err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, ErrNothingToPay
	}

	counts, err := req.Counts()
	if err != nil {
		return nil, err
	}

	order := db.Order{
		Model:        db.NewModel(),
		Gateway:      checkout.gateway.Name(),
		SubjectType:  req.SubjectType,
		SubjectID:    req.SubjectID,
		UserID:       req.UserID,
		Name:         req.Name,
		Email:        util.NormalizeEmail(req.Email),
		Phone:        util.NormalizePhone(req.Phone),
		TicketCounts: counts,
		SelectedDate: req.SelectedDate,
		SlotID:       req.SlotID,
		Amount:       amount,
		Currency:     checkout.currency,
		Status:       db.OrderCreated,
	}

	gatewayOrder, err := checkout.gateway.CreateOrder(ctx, amount, checkout.currency, order.ID.String())
	if err != nil {
		return nil, err
	}
	order.GatewayOrderID = gatewayOrder.ID

	if err := checkout.store.CreateOrder(ctx, &order); err != nil {
		return nil, err
	}

	util.LOGGER.Info("Order created", "order_id", order.ID, "gateway", order.Gateway, "gateway_order_id", order.GatewayOrderID,
		"amount", order.Amount.StringFixed(2), "currency", order.Currency)
	return &CheckoutOrder{Order: order, ClientSecret: gatewayOrder.ClientSecret}, nil
}

// Verify a completed payment and issue its booking.
// Idempotent: a lock per gateway order keeps concurrent calls out, and a payment that already produced a
// booking returns that booking instead of issuing a second one
func (checkout *Checkout) VerifyAndBook(ctx context.Context, confirmation Confirmation) (*ticket.Booking, error) {
	if _, err := checkout.order(ctx, confirmation.OrderID); err != nil {
		return nil, err
	}

	key := "payment:" + confirmation.OrderID
	owner := uuid.NewString()
	acquired, err := checkout.store.AcquireLock(ctx, key, owner, lockTTL)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, ErrPaymentInProgress
	}
	defer func() {
		if err := checkout.store.ReleaseLock(context.WithoutCancel(ctx), key, owner); err != nil {
			util.LOGGER.Warn("failed to release payment lock", "key", key, "error", err)
		}
	}()

	// Read again under the lock, a previous call may have finished meanwhile
	order, err := checkout.order(ctx, confirmation.OrderID)
	if err != nil {
		return nil, err
	}
	if order.Status == db.OrderPaid && order.AttendeeID != nil {
		metrics.PaymentVerified(order.Gateway, "duplicate")
		return checkout.tickets.Booking(ctx, *order.AttendeeID)
	}

	paymentID, err := checkout.gateway.VerifyPayment(ctx, order, confirmation)
	if err != nil {
		metrics.PaymentVerified(order.Gateway, "rejected")
		util.LOGGER.Warn("Payment rejected", "gateway_order_id", order.GatewayOrderID, "payment_id", confirmation.PaymentID, "error", err)
		return nil, err
	}

	booking, err := checkout.bookingForPayment(ctx, order, paymentID)
	if errors.Is(err, db.ErrConflict) {
		// Another order already turned this payment into a booking
		booking, err = checkout.existingBooking(ctx, paymentID)
	}
	if err != nil {
		if !errors.Is(err, db.ErrConflict) {
			checkout.failOrder(ctx, order, paymentID, err)
		}
		return nil, err
	}

	order.Status = db.OrderPaid
	order.PaymentID = &paymentID
	order.AttendeeID = &booking.Attendee.ID
	if err := checkout.store.SaveOrder(ctx, order); err != nil {
		return nil, err
	}

	metrics.PaymentVerified(order.Gateway, "verified")
	worker.DistributeBookingTasks(ctx, checkout.distributor, booking.Attendee.ID)
	return booking, nil
}

// Existing booking of the payment, or a new one
func (checkout *Checkout) bookingForPayment(ctx context.Context, order *db.Order, paymentID string) (*ticket.Booking, error) {
	booking, err := checkout.existingBooking(ctx, paymentID)
	if err == nil {
		return booking, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, err
	}

	return checkout.tickets.IssueBooking(ctx, ticket.BookingRequest{
		SubjectType:  order.SubjectType,
		SubjectID:    order.SubjectID,
		UserID:       order.UserID,
		Name:         order.Name,
		Email:        order.Email,
		Phone:        order.Phone,
		TicketCounts: order.TicketCounts,
		SelectedDate: order.SelectedDate,
		SlotID:       order.SlotID,
		TotalAmount:  order.Amount,
		PaymentID:    &paymentID,
		OrderID:      &order.ID,
		Source:       db.SourcePayment,
	})
}

func (checkout *Checkout) existingBooking(ctx context.Context, paymentID string) (*ticket.Booking, error) {
	attendee, err := checkout.store.GetAttendeeByPaymentID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	return checkout.tickets.Booking(ctx, attendee.ID)
}

// A payment went through but no booking could be issued (sold out, cancelled meanwhile). The order is
// marked failed so an admin can refund it
func (checkout *Checkout) failOrder(ctx context.Context, order *db.Order, paymentID string, cause error) {
	util.LOGGER.Error("Paid order could not be booked, refund needed", "order_id", order.ID,
		"gateway_order_id", order.GatewayOrderID, "payment_id", paymentID, "error", cause)

	order.Status = db.OrderFailed
	order.PaymentID = &paymentID
	if err := checkout.store.SaveOrder(context.WithoutCancel(ctx), order); err != nil {
		util.LOGGER.Error("failed to mark order failed", "order_id", order.ID, "error", err)
	}
}

func (checkout *Checkout) order(ctx context.Context, gatewayOrderID string) (*db.Order, error) {
	order, err := checkout.store.GetOrderByGatewayID(ctx, gatewayOrderID, false)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	return order, err
}

// Send a pending refund to the gateway. This is the only path by which money is returned: cancelling
// tickets only records the refund. A failed refund can be issued again
func (checkout *Checkout) IssueRefund(ctx context.Context, adminID, refundID uuid.UUID) (*db.Refund, error) {
	key := "refund:" + refundID.String()
	owner := uuid.NewString()
	acquired, err := checkout.store.AcquireLock(ctx, key, owner, lockTTL)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, ErrPaymentInProgress
	}
	defer func() {
		if err := checkout.store.ReleaseLock(context.WithoutCancel(ctx), key, owner); err != nil {
			util.LOGGER.Warn("failed to release refund lock", "key", key, "error", err)
		}
	}()

	refund, err := checkout.store.GetRefund(ctx, refundID, false)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrRefundNotFound
	}
	if err != nil {
		return nil, err
	}
	if refund.Status == db.RefundIssued {
		return nil, ErrRefundNotPending
	}
	if refund.PaymentID == "" || !refund.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: nothing to refund", ErrRefundFailed)
	}

	gatewayRefundID, gatewayErr := checkout.gateway.Refund(ctx, refund.PaymentID, refund.Amount)
	err = checkout.store.WithinTx(ctx, func(tx db.Store) error {
		refund, err := tx.GetRefund(ctx, refundID, true)
		if err != nil {
			return err
		}

		if gatewayErr != nil {
			refund.Status = db.RefundFailed
			return tx.SaveRefund(ctx, refund)
		}

		refund.Status = db.RefundIssued
		refund.GatewayRefundID = gatewayRefundID
		if err := tx.SaveRefund(ctx, refund); err != nil {
			return err
		}

		attendee, err := tx.GetAttendee(ctx, refund.AttendeeID, true)
		if err != nil {
			return err
		}
		attendee.PaymentStatus = db.PaymentPartial
		if attendee.CancelledTickets >= attendee.TotalTickets {
			attendee.PaymentStatus = db.PaymentRefunded
		}
		return tx.SaveAttendee(ctx, attendee)
	})
	if err != nil {
		return nil, err
	}
	if gatewayErr != nil {
		util.LOGGER.Error("Refund failed", "refund_id", refundID, "payment_id", refund.PaymentID, "admin_id", adminID, "error", gatewayErr)
		return nil, fmt.Errorf("%w: %v", ErrRefundFailed, gatewayErr)
	}

	refund, err = checkout.store.GetRefund(ctx, refundID, false)
	if err != nil {
		return nil, err
	}
	util.LOGGER.Info("Refund issued", "refund_id", refundID, "gateway_refund_id", gatewayRefundID,
		"amount", refund.Amount.StringFixed(2), "admin_id", adminID)
	return refund, nil
}

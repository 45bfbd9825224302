// Package payment talks to the payment gateways and turns verified payments into bookings.
package payment

import (
	"context"
	"errors"

	"zestpass/db"

	"github.com/shopspring/decimal"
)

// Gateway names, as configured and stored on orders
const (
	Razorpay = "razorpay"
	Stripe   = "stripe"
)

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrNothingToPay       = errors.New("booking is free, no payment needed")
	ErrPaymentInProgress  = errors.New("payment is already being processed")
	ErrPaymentNotVerified = errors.New("payment could not be verified")
	ErrAmountMismatch     = errors.New("paid amount does not match the order")
	ErrRefundNotFound     = errors.New("refund not found")
	ErrRefundNotPending   = errors.New("refund was already issued")
	ErrRefundFailed       = errors.New("gateway rejected the refund")
)

// Order as created on the gateway
type GatewayOrder struct {
	ID           string
	ClientSecret string // Stripe only: the client completes the PaymentIntent with it
}

// What the client sends back once checkout completes
type Confirmation struct {
	OrderID   string `json:"order_id" binding:"required"`
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature"`
}

// Payment gateway
type Gateway interface {
	// Gateway name, stored on orders
	Name() string

	// Create an order for `amount` in `currency`. `receipt` is our own order ID
	CreateOrder(ctx context.Context, amount decimal.Decimal, currency, receipt string) (*GatewayOrder, error)

	// Check that the payment of `order` was really made. Returns the gateway payment ID
	VerifyPayment(ctx context.Context, order *db.Order, confirmation Confirmation) (string, error)

	// Refund part or all of a payment. Returns the gateway refund ID
	Refund(ctx context.Context, paymentID string, amount decimal.Decimal) (string, error)
}

// Amount in the currency's minor unit (paise, cents)
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

package payment

import (
	"context"
	"fmt"
	"strings"

	"zestpass/db"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
	"github.com/stripe/stripe-go/v82/refund"
)

type RefundReason string

const (
	Duplicate           RefundReason = RefundReason(stripe.RefundReasonDuplicate)
	Fraudulent          RefundReason = RefundReason(stripe.RefundReasonFraudulent)
	RequestedByCustomer RefundReason = RefundReason(stripe.RefundReasonRequestedByCustomer)
)

// Set the Stripe secret key used by every call
func InitStripe(secretKey string) {
	stripe.Key = secretKey
}

// Create a payment intent. `amount` is in the currency's minor unit
func CreatePaymentIntent(ctx context.Context, amount int64, currency stripe.Currency, receipt string) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(string(currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	if receipt != "" {
		params.AddMetadata("order_id", receipt)
	}
	return paymentintent.New(params)
}

// Get a payment intent
func GetPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	return paymentintent.Get(id, params)
}

// Confirm a payment intent with a payment method. Used by server-side flows and tests, browsers confirm
// with the client secret instead
func ConfirmPaymentIntent(ctx context.Context, id, paymentMethod, returnURL string) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentConfirmParams{
		PaymentMethod: stripe.String(paymentMethod),
		ReturnURL:     stripe.String(returnURL),
	}
	params.Context = ctx
	return paymentintent.Confirm(id, params)
}

// Refund part or all of a payment intent. `amount` is in the currency's minor unit
func CreateRefund(ctx context.Context, intentID string, reason RefundReason, amount int64) (*stripe.Refund, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(intentID),
		Reason:        stripe.String(string(reason)),
		Amount:        stripe.Int64(amount),
	}
	params.Context = ctx
	return refund.New(params)
}

// Stripe gateway. The PaymentIntent plays the role of the order, and its ID is also the payment ID
type StripeGateway struct{}

// Constructor for the Stripe gateway
func NewStripeGateway(secretKey string) *StripeGateway {
	InitStripe(secretKey)
	return &StripeGateway{}
}

func (gateway *StripeGateway) Name() string {
	return Stripe
}

func (gateway *StripeGateway) CreateOrder(ctx context.Context, amount decimal.Decimal, currency, receipt string) (*GatewayOrder, error) {
	intent, err := CreatePaymentIntent(ctx, MinorUnits(amount), stripe.Currency(strings.ToLower(currency)), receipt)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}
	return &GatewayOrder{ID: intent.ID, ClientSecret: intent.ClientSecret}, nil
}

// The intent must have succeeded for exactly the order's amount
func (gateway *StripeGateway) VerifyPayment(ctx context.Context, order *db.Order, confirmation Confirmation) (string, error) {
	if confirmation.OrderID != order.GatewayOrderID {
		return "", fmt.Errorf("%w: order mismatch", ErrPaymentNotVerified)
	}

	intent, err := GetPaymentIntent(ctx, order.GatewayOrderID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPaymentNotVerified, err)
	}
	if intent.Status != stripe.PaymentIntentStatusSucceeded {
		return "", fmt.Errorf("%w: payment intent is %s", ErrPaymentNotVerified, intent.Status)
	}
	if intent.AmountReceived != MinorUnits(order.Amount) {
		return "", fmt.Errorf("%w: received %d, expected %d", ErrAmountMismatch, intent.AmountReceived, MinorUnits(order.Amount))
	}
	return intent.ID, nil
}

func (gateway *StripeGateway) Refund(ctx context.Context, paymentID string, amount decimal.Decimal) (string, error) {
	result, err := CreateRefund(ctx, paymentID, RequestedByCustomer, MinorUnits(amount))
	if err != nil {
		return "", err
	}
	return result.ID, nil
}

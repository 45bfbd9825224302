package payment

import (
	"context"
	"fmt"
	"strings"

	"zestpass/db"

	razorpay "github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"
	"github.com/shopspring/decimal"
)

// Razorpay gateway
type RazorpayGateway struct {
	client *razorpay.Client
	secret string
}

// Constructor for the Razorpay gateway
func NewRazorpayGateway(keyID, keySecret string) *RazorpayGateway {
	return &RazorpayGateway{
		client: razorpay.NewClient(keyID, keySecret),
		secret: keySecret,
	}
}

func (gateway *RazorpayGateway) Name() string {
	return Razorpay
}

func (gateway *RazorpayGateway) CreateOrder(ctx context.Context, amount decimal.Decimal, currency, receipt string) (*GatewayOrder, error) {
	body, err := gateway.client.Order.Create(map[string]any{
		"amount":          MinorUnits(amount),
		"currency":        currency,
		"receipt":         receipt,
		"payment_capture": 1,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create razorpay order: %w", err)
	}

	id, _ := body["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("razorpay order response has no id")
	}
	return &GatewayOrder{ID: id}, nil
}

// The checkout signature is HMAC-SHA256("<order id>|<payment id>") with the key secret, hex encoded
func (gateway *RazorpayGateway) VerifyPayment(ctx context.Context, order *db.Order, confirmation Confirmation) (string, error) {
	if confirmation.OrderID != order.GatewayOrderID {
		return "", fmt.Errorf("%w: order mismatch", ErrPaymentNotVerified)
	}
	if strings.TrimSpace(confirmation.PaymentID) == "" || strings.TrimSpace(confirmation.Signature) == "" {
		return "", fmt.Errorf("%w: missing payment ID or signature", ErrPaymentNotVerified)
	}
	if !VerifySignature(gateway.secret, confirmation.OrderID, confirmation.PaymentID, confirmation.Signature) {
		return "", fmt.Errorf("%w: bad signature", ErrPaymentNotVerified)
	}
	return confirmation.PaymentID, nil
}

func (gateway *RazorpayGateway) Refund(ctx context.Context, paymentID string, amount decimal.Decimal) (string, error) {
	body, err := gateway.client.Payment.Refund(paymentID, int(MinorUnits(amount)), nil, nil)
	if err != nil {
		return "", err
	}

	id, _ := body["id"].(string)
	if id == "" {
		return "", fmt.Errorf("razorpay refund response has no id")
	}
	return id, nil
}

// Check a Razorpay checkout signature
func VerifySignature(secret, orderID, paymentID, signature string) bool {
	params := map[string]any{
		"razorpay_order_id":   orderID,
		"razorpay_payment_id": paymentID,
	}
	return utils.VerifyPaymentSignature(params, strings.ToLower(strings.TrimSpace(signature)), secret)
}

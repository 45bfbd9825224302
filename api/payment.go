package api

import (
	"net/http"

	"zestpass/service/payment"

	"github.com/gin-gonic/gin"
)

type CreateOrderResponse struct {
	payment.CheckoutOrder
	KeyID string `json:"key_id,omitempty"` // Razorpay only: public key the checkout widget is opened with
}

// CreateOrder godoc
// @Summary      Create a payment order
// @Description  Prices the booking from the event/activity price list and creates an order on the payment gateway.
// @Description  Any amount sent by the client is ignored. Signing in is optional: a signed in buyer is linked
// @Description  to the booking, otherwise it is matched by email or phone.
// @Tags         Payments
// @Accept       json
// @Produce      json
// @Param        request body BookingInput true "What to book"
// @Success      201  {object}  CreateOrderResponse  "Order created"
// @Failure      400  {object}  ErrorResponse        "Invalid request or free booking"
// @Failure      404  {object}  ErrorResponse        "Event or activity not found"
// @Failure      409  {object}  ErrorResponse        "Sold out or not bookable"
// @Failure      500  {object}  ErrorResponse        "Internal server error or gateway failure"
// @Router       /api/payment/create-order [post]
func (server *Server) CreateOrder(ctx *gin.Context) {
	var body BookingInput
	if err := ctx.ShouldBindJSON(&body); err != nil {
		server.badRequest(ctx, err)
		return
	}
	req, err := body.request(server.loc)
	if err != nil {
		server.badRequest(ctx, err)
		return
	}
	if actor, ok := actorFrom(ctx); ok {
		req.UserID = &actor.ID
	}

	order, err := server.checkout.CreateOrder(ctx, req)
	if err != nil {
		server.fail(ctx, "failed to create order", err)
		return
	}

	resp := CreateOrderResponse{CheckoutOrder: *order}
	if server.checkout.Gateway() == payment.Razorpay {
		resp.KeyID = server.config.RazorpayKeyID
	}
	ctx.JSON(http.StatusCreated, resp)
}

// VerifyPayment godoc
// @Summary      Verify a payment and issue tickets
// @Description  Verifies the payment of an order with the gateway (Razorpay signature, Stripe PaymentIntent status
// @Description  and amount) and issues the booking. Calling it again for the same payment returns the same booking.
// @Tags         Payments
// @Accept       json
// @Produce      json
// @Param        request body payment.Confirmation true "Gateway confirmation"
// @Success      200  {object}  ticket.Booking  "Booking issued"
// @Failure      400  {object}  ErrorResponse   "Invalid request body"
// @Failure      402  {object}  ErrorResponse   "Payment could not be verified"
// @Failure      404  {object}  ErrorResponse   "Order not found"
// @Failure      409  {object}  ErrorResponse   "Payment already being processed, or sold out"
// @Failure      500  {object}  ErrorResponse   "Internal server error"
// @Router       /api/payment/verify [post]
func (server *Server) VerifyPayment(ctx *gin.Context) {
	var req payment.Confirmation
	if err := ctx.ShouldBindJSON(&req); err != nil {
		server.badRequest(ctx, err)
		return
	}

	booking, err := server.checkout.VerifyAndBook(ctx, req)
	if err != nil {
		server.fail(ctx, "failed to verify payment", err)
		return
	}

	ctx.JSON(http.StatusOK, booking)
}

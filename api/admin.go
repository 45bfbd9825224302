package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// IssueRefund godoc
// @Summary      Issue a pending refund
// @Description  Sends a pending (or previously failed) refund to the payment gateway. Cancelling tickets only
// @Description  records the refund: this is the only way money goes back to the buyer.
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Refund ID"
// @Success      200  {object}  db.Refund      "Refund issued"
// @Failure      404  {object}  ErrorResponse  "Refund not found"
// @Failure      409  {object}  ErrorResponse  "Refund already issued or being issued"
// @Failure      502  {object}  ErrorResponse  "Gateway rejected the refund"
// @Router       /api/refunds/{id}/issue [post]
func (server *Server) IssueRefund(ctx *gin.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}

	actor, _ := actorFrom(ctx)
	refund, err := server.checkout.IssueRefund(ctx, actor.ID, id)
	if err != nil {
		server.fail(ctx, "failed to issue refund", err)
		return
	}

	ctx.JSON(http.StatusOK, refund)
}

type ExpireTicketsResponse struct {
	Expired int `json:"expired"`
}

// ExpireTickets godoc
// @Summary      Run the ticket expiry sweep
// @Description  Expires every active ticket whose window (plus grace period) has passed or whose event or
// @Description  activity was cancelled. The same sweep runs periodically in the background.
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  ExpireTicketsResponse  "Number of tickets expired"
// @Failure      500  {object}  ErrorResponse          "Internal server error"
// @Router       /api/maintenance/expire-tickets [post]
func (server *Server) ExpireTickets(ctx *gin.Context) {
	expired, err := server.tickets.ExpirePastTickets(ctx)
	if err != nil {
		server.fail(ctx, "failed to expire tickets", err)
		return
	}

	ctx.JSON(http.StatusOK, ExpireTicketsResponse{Expired: expired})
}

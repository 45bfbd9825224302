package api

import (
	"errors"
	"net/http"

	"zestpass/db"
	"zestpass/service/ticket"
	"zestpass/service/worker"
	"zestpass/util"

	"github.com/gin-gonic/gin"
)

type VerifyEntryRequest struct {
	TicketNumber string `json:"ticket_number" binding:"required"`
	Location     string `json:"location"`
	ValidateOnly bool   `json:"validate_only"` // Only report the ticket's state, never mark it used
}

// VerifyEntry godoc
// @Summary      Scan a ticket at the door
// @Description  Validates a scanned ticket number and, unless `validate_only` is set, marks a valid ticket as used.
// @Description  Needs the check-in permission on the ticket's event or activity. An invalid ticket is still a 200
// @Description  with `is_valid` false and a result code (TICKET_NOT_FOUND, TICKET_USED, TICKET_EXPIRED, ...).
// @Description  Without the permission the answer is the same as for an unknown number.
// @Tags         Checkin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body VerifyEntryRequest true "Scanned ticket"
// @Success      200  {object}  ticket.Result  "Scan result"
// @Failure      400  {object}  ErrorResponse  "Invalid request body"
// @Failure      500  {object}  ErrorResponse  "Internal server error"
// @Router       /api/tickets/verify-entry [post]
func (server *Server) VerifyEntry(ctx *gin.Context) {
	var req VerifyEntryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		server.badRequest(ctx, err)
		return
	}
	actor, _ := actorFrom(ctx)

	// A ticket the caller may not check in gets the same answer as an unknown number
	scanned, err := server.tickets.FindByNumber(ctx, req.TicketNumber)
	switch {
	case err == nil:
		allowed, err := server.allowedOnSubject(ctx, actor, scanned.SubjectType, scanned.SubjectID, db.PermCheckin)
		if err != nil {
			server.fail(ctx, "failed to check permission", err)
			return
		}
		if !allowed {
			util.LOGGER.Warn("POST /api/tickets/verify-entry: no check-in permission", "user_id", actor.ID, "ticket_id", scanned.ID)
			ctx.JSON(http.StatusOK, ticket.NotFoundResult())
			return
		}
	case errors.Is(err, ticket.ErrTicketNotFound):
	default:
		server.fail(ctx, "failed to find ticket", err)
		return
	}

	scan := ticket.ScanRequest{TicketNumber: req.TicketNumber, ActorID: &actor.ID, Location: req.Location}
	var result ticket.Result
	if req.ValidateOnly {
		result, err = server.tickets.Validate(ctx, scan)
	} else {
		result, err = server.tickets.CheckIn(ctx, scan)
	}
	if err != nil {
		server.fail(ctx, "failed to validate ticket", err)
		return
	}
	if result.IsValid && !req.ValidateOnly {
		worker.DistributeCheckIn(ctx, server.distributor, result.Ticket.ID, req.Location)
	}

	ctx.JSON(http.StatusOK, result)
}

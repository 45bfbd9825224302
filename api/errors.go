package api

import (
	"errors"
	"net/http"

	"zestpass/db"
	"zestpass/service/access"
	"zestpass/service/payment"
	"zestpass/service/ticket"
	"zestpass/util"

	"github.com/gin-gonic/gin"
)

// Service error -> HTTP status. The first matching entry wins
var errorStatus = []struct {
	target error
	status int
}{
	{ticket.ErrTicketNotFound, http.StatusNotFound},
	{ticket.ErrBookingNotFound, http.StatusNotFound},
	{ticket.ErrSubjectNotFound, http.StatusNotFound},
	{payment.ErrOrderNotFound, http.StatusNotFound},
	{payment.ErrRefundNotFound, http.StatusNotFound},
	{access.ErrContentNotFound, http.StatusNotFound},
	{access.ErrAssignmentNotFound, http.StatusNotFound},
	{access.ErrGranteeNotFound, http.StatusNotFound},
	{db.ErrNotFound, http.StatusNotFound},

	{access.ErrForbidden, http.StatusForbidden},

	{ticket.ErrSubjectUnavailable, http.StatusConflict},
	{ticket.ErrCapacityExceeded, http.StatusConflict},
	{ticket.ErrTicketNotActive, http.StatusConflict},
	{ticket.ErrNotCancellable, http.StatusConflict},
	{payment.ErrPaymentInProgress, http.StatusConflict},
	{payment.ErrRefundNotPending, http.StatusConflict},
	{db.ErrConflict, http.StatusConflict},

	{payment.ErrPaymentNotVerified, http.StatusPaymentRequired},
	{payment.ErrAmountMismatch, http.StatusPaymentRequired},
	{payment.ErrRefundFailed, http.StatusBadGateway},

	{ticket.ErrInvalidQuantity, http.StatusBadRequest},
	{ticket.ErrBookingTooLarge, http.StatusBadRequest},
	{ticket.ErrUnknownTicketType, http.StatusBadRequest},
	{ticket.ErrInvalidSchedule, http.StatusBadRequest},
	{ticket.ErrInvalidFormat, http.StatusBadRequest},
	{ticket.ErrNotTransferable, http.StatusBadRequest},
	{ticket.ErrTicketNotInBooking, http.StatusBadRequest},
	{ticket.ErrInvalidHolder, http.StatusBadRequest},
	{payment.ErrNothingToPay, http.StatusBadRequest},
	{access.ErrUnknownContentType, http.StatusBadRequest},
	{access.ErrUnknownPermission, http.StatusBadRequest},
	{access.ErrSelfAssignment, http.StatusBadRequest},
	{access.ErrExpiryInThePast, http.StatusBadRequest},
	{access.ErrEmptyPermissionList, http.StatusBadRequest},
}

// Write the error response of a failed service call and log it. Unknown errors are a 500 whose detail only
// goes out outside production
func (server *Server) fail(ctx *gin.Context, message string, err error) {
	route := ctx.Request.Method + " " + ctx.FullPath()
	for _, entry := range errorStatus {
		if errors.Is(err, entry.target) {
			util.LOGGER.Warn(route+": "+message, "error", err)
			ctx.JSON(entry.status, ErrorResponse{Message: err.Error()})
			return
		}
	}

	util.LOGGER.Error(route+": "+message, "error", err)
	resp := ErrorResponse{Message: "Internal server error"}
	if !server.config.IsProduction() {
		resp.Debug = gin.H{"cause": err.Error(), "step": message}
	}
	ctx.JSON(http.StatusInternalServerError, resp)
}

// 400 for a body that does not bind
func (server *Server) badRequest(ctx *gin.Context, err error) {
	util.LOGGER.Warn(ctx.Request.Method+" "+ctx.FullPath()+": failed to parse request body", "error", err)
	resp := ErrorResponse{Message: "Invalid request body"}
	if !server.config.IsProduction() {
		resp.Debug = gin.H{"cause": err.Error()}
	}
	ctx.JSON(http.StatusBadRequest, resp)
}

// 403 for a caller without the needed permission
func forbidden(ctx *gin.Context) {
	util.LOGGER.Warn(ctx.Request.Method+" "+ctx.FullPath()+": permission denied")
	ctx.JSON(http.StatusForbidden, ErrorResponse{Message: "You don't have permission to perform this request"})
}

package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"zestpass/db"
	"zestpass/service/access"
	"zestpass/service/ticket"
	"zestpass/service/worker"
	"zestpass/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// What to book, shared by checkout and manual entry.
// Events take `tickets` (ticket type -> quantity). Activities take `quantity`, `selected_date` and `slot_id`
type BookingInput struct {
	SubjectType  db.SubjectType  `json:"subject_type" binding:"required,oneof=event activity"`
	SubjectID    uuid.UUID       `json:"subject_id" binding:"required"`
	Name         string          `json:"name" binding:"required"`
	Email        string          `json:"email" binding:"omitempty,email"`
	Phone        string          `json:"phone"`
	Tickets      db.TicketCounts `json:"tickets"`
	Quantity     int             `json:"quantity" binding:"min=0"`
	SelectedDate string          `json:"selected_date" binding:"omitempty,datetime=2006-01-02"`
	SlotID       *uuid.UUID      `json:"slot_id"`
}

func (input BookingInput) request(loc *time.Location) (ticket.BookingRequest, error) {
	if strings.TrimSpace(input.Email) == "" && strings.TrimSpace(input.Phone) == "" {
		return ticket.BookingRequest{}, errors.New("an email or a phone number is required")
	}

	req := ticket.BookingRequest{
		SubjectType:  input.SubjectType,
		SubjectID:    input.SubjectID,
		Name:         strings.TrimSpace(input.Name),
		Email:        input.Email,
		Phone:        input.Phone,
		TicketCounts: input.Tickets,
		Quantity:     input.Quantity,
		SlotID:       input.SlotID,
	}
	if input.SelectedDate != "" {
		date, err := time.ParseInLocation(time.DateOnly, input.SelectedDate, loc)
		if err != nil {
			return ticket.BookingRequest{}, err
		}
		req.SelectedDate = &date
	}
	return req, nil
}

type ManualAttendeeRequest struct {
	BookingInput
	TotalAmount decimal.Decimal `json:"total_amount"` // Amount collected outside the platform, 0 for complimentary
}

// ManualAttendee godoc
// @Summary      Add an attendee without payment
// @Description  Lets a host (or a collaborator with manage permission) add an attendee and issue tickets
// @Description  for an event or activity without going through the payment gateway.
// @Tags         Bookings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body ManualAttendeeRequest true "Attendee and tickets"
// @Success      201  {object}  ticket.Booking  "Booking created"
// @Failure      400  {object}  ErrorResponse   "Invalid request"
// @Failure      403  {object}  ErrorResponse   "No manage permission"
// @Failure      404  {object}  ErrorResponse   "Event or activity not found"
// @Failure      409  {object}  ErrorResponse   "Sold out"
// @Failure      500  {object}  ErrorResponse   "Internal server error"
// @Router       /api/manual-attendee [post]
func (server *Server) ManualAttendee(ctx *gin.Context) {
	var body ManualAttendeeRequest
	if err := ctx.ShouldBindJSON(&body); err != nil {
		server.badRequest(ctx, err)
		return
	}
	req, err := body.request(server.loc)
	if err != nil {
		server.badRequest(ctx, err)
		return
	}

	actor, _ := actorFrom(ctx)
	allowed, err := server.access.CanOnSubject(ctx, actor, req.SubjectType, req.SubjectID, db.PermManage)
	if errors.Is(err, access.ErrContentNotFound) {
		ctx.JSON(http.StatusNotFound, ErrorResponse{Message: ticket.ErrSubjectNotFound.Error()})
		return
	}
	if err != nil {
		server.fail(ctx, "failed to check permission", err)
		return
	}
	if !allowed {
		forbidden(ctx)
		return
	}

	req.Source = db.SourceManual
	req.TotalAmount = body.TotalAmount
	req.CreatedByID = &actor.ID

	booking, err := server.tickets.IssueBooking(ctx, req)
	if err != nil {
		server.fail(ctx, "failed to issue booking", err)
		return
	}

	worker.DistributeBookingTasks(ctx, server.distributor, booking.Attendee.ID)
	ctx.JSON(http.StatusCreated, booking)
}

// GetBooking godoc
// @Summary      Get a booking
// @Description  Returns a booking with its tickets. Allowed for the buyer, managers of the event/activity and admins.
// @Tags         Bookings
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Booking (attendee) ID"
// @Success      200  {object}  ticket.Booking  "Booking"
// @Failure      403  {object}  ErrorResponse   "Not allowed"
// @Failure      404  {object}  ErrorResponse   "Booking not found"
// @Router       /api/bookings/{id} [get]
func (server *Server) GetBooking(ctx *gin.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}

	booking, err := server.tickets.Booking(ctx, id)
	if err != nil {
		server.fail(ctx, "failed to get booking", err)
		return
	}
	if !server.canActOnBooking(ctx, &booking.Attendee, db.PermView) {
		return
	}

	ctx.JSON(http.StatusOK, booking)
}

type CancelTicketsRequest struct {
	TicketIDs []uuid.UUID `json:"ticket_ids" binding:"required,min=1"`
	Reason    string      `json:"reason"`
}

// CancelTickets godoc
// @Summary      Cancel tickets of a booking
// @Description  Cancels a subset of the tickets of a booking. The whole request is rejected if any ticket is used
// @Description  or already cancelled. A pro-rated refund is recorded as pending; an admin issues it separately.
// @Tags         Bookings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path  string                true  "Booking (attendee) ID"
// @Param        request  body  CancelTicketsRequest  true  "Tickets to cancel"
// @Success      200  {object}  ticket.Cancellation  "Tickets cancelled"
// @Failure      400  {object}  ErrorResponse        "Invalid request"
// @Failure      403  {object}  ErrorResponse        "Not allowed"
// @Failure      404  {object}  ErrorResponse        "Booking or ticket not found"
// @Failure      409  {object}  ErrorResponse        "Ticket already used or cancelled"
// @Router       /api/bookings/{id}/cancel-tickets [post]
func (server *Server) CancelTickets(ctx *gin.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}
	var req CancelTicketsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		server.badRequest(ctx, err)
		return
	}

	booking, err := server.tickets.Booking(ctx, id)
	if err != nil {
		server.fail(ctx, "failed to get booking", err)
		return
	}
	if !server.canActOnBooking(ctx, &booking.Attendee, db.PermManage) {
		return
	}

	actor, _ := actorFrom(ctx)
	result, err := server.tickets.CancelIndividual(ctx, ticket.CancelRequest{
		AttendeeID: id,
		TicketIDs:  req.TicketIDs,
		Reason:     req.Reason,
		ActorID:    &actor.ID,
	})
	if err != nil {
		server.fail(ctx, "failed to cancel tickets", err)
		return
	}

	ctx.JSON(http.StatusOK, result)
}

// ListTickets godoc
// @Summary      List tickets of a user
// @Description  Returns the tickets linked to a user account, latest first. Users see their own tickets, admins anyone's.
// @Tags         Tickets
// @Produce      json
// @Security     BearerAuth
// @Param        userId  query     string  false  "User ID, defaults to the caller"
// @Success      200     {array}   db.Ticket      "Tickets"
// @Failure      400     {object}  ErrorResponse  "Invalid user ID"
// @Failure      403     {object}  ErrorResponse  "Not allowed"
// @Router       /api/tickets [get]
func (server *Server) ListTickets(ctx *gin.Context) {
	actor, _ := actorFrom(ctx)
	userID := actor.ID
	if raw := ctx.Query("userId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid user ID"})
			return
		}
		userID = id
	}
	if userID != actor.ID && actor.Role != db.Admin {
		forbidden(ctx)
		return
	}

	tickets, err := server.tickets.ListForUser(ctx, userID)
	if err != nil {
		server.fail(ctx, "failed to list tickets", err)
		return
	}
	if tickets == nil {
		tickets = []db.Ticket{}
	}
	ctx.JSON(http.StatusOK, tickets)
}

type TransferTicketRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"omitempty,email"`
	Phone string `json:"phone"`
}

// TransferTicket godoc
// @Summary      Transfer a ticket
// @Description  Hands an active ticket of a group booking to a new holder. Allowed for the current holder,
// @Description  managers of the event/activity and admins.
// @Tags         Tickets
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path  string                 true  "Ticket ID"
// @Param        request  body  TransferTicketRequest  true  "New holder"
// @Success      200  {object}  db.Ticket      "Ticket transferred"
// @Failure      400  {object}  ErrorResponse  "Ticket cannot be transferred"
// @Failure      403  {object}  ErrorResponse  "Not allowed"
// @Failure      404  {object}  ErrorResponse  "Ticket not found"
// @Failure      409  {object}  ErrorResponse  "Ticket is not active"
// @Router       /api/tickets/{id}/transfer [post]
func (server *Server) TransferTicket(ctx *gin.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}
	var req TransferTicketRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		server.badRequest(ctx, err)
		return
	}

	current, err := server.tickets.Ticket(ctx, id)
	if err != nil {
		server.fail(ctx, "failed to get ticket", err)
		return
	}
	if !server.canActOnTicket(ctx, current, db.PermManage) {
		return
	}

	actor, _ := actorFrom(ctx)
	transferred, err := server.tickets.Transfer(ctx, ticket.TransferRequest{
		TicketID: id,
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		ActorID:  &actor.ID,
	})
	if err != nil {
		server.fail(ctx, "failed to transfer ticket", err)
		return
	}

	ctx.JSON(http.StatusOK, transferred)
}

// TicketHistory godoc
// @Summary      Validation history of a ticket
// @Tags         Tickets
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Ticket ID"
// @Success      200  {array}   db.TicketValidation  "History, oldest first"
// @Failure      403  {object}  ErrorResponse        "Not allowed"
// @Failure      404  {object}  ErrorResponse        "Ticket not found"
// @Router       /api/tickets/{id}/history [get]
func (server *Server) TicketHistory(ctx *gin.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}

	current, err := server.tickets.Ticket(ctx, id)
	if err != nil {
		server.fail(ctx, "failed to get ticket", err)
		return
	}
	if !server.canActOnTicket(ctx, current, db.PermView) {
		return
	}

	history, err := server.tickets.History(ctx, id)
	if err != nil {
		server.fail(ctx, "failed to get history", err)
		return
	}
	ctx.JSON(http.StatusOK, history)
}

// The buyer of a booking, or a user holding `perm` on its event/activity.
// Writes the error response and returns false otherwise
func (server *Server) canActOnBooking(ctx *gin.Context, attendee *db.Attendee, perm db.Permission) bool {
	actor, _ := actorFrom(ctx)
	if attendee.UserID != nil && *attendee.UserID == actor.ID {
		return true
	}
	return server.canOnSubject(ctx, actor, attendee.SubjectType, attendee.SubjectID, perm)
}

// The holder of a ticket, or a user holding `perm` on its event/activity
func (server *Server) canActOnTicket(ctx *gin.Context, current *db.Ticket, perm db.Permission) bool {
	actor, _ := actorFrom(ctx)
	if current.UserID != nil && *current.UserID == actor.ID {
		return true
	}
	return server.canOnSubject(ctx, actor, current.SubjectType, current.SubjectID, perm)
}

func (server *Server) canOnSubject(ctx *gin.Context, actor access.Actor, subjectType db.SubjectType, subjectID uuid.UUID, perm db.Permission) bool {
	allowed, err := server.allowedOnSubject(ctx, actor, subjectType, subjectID, perm)
	if err != nil {
		server.fail(ctx, "failed to check permission", err)
		return false
	}
	if !allowed {
		forbidden(ctx)
		return false
	}
	return true
}

func (server *Server) allowedOnSubject(ctx *gin.Context, actor access.Actor, subjectType db.SubjectType, subjectID uuid.UUID, perm db.Permission) (bool, error) {
	allowed, err := server.access.CanOnSubject(ctx, actor, subjectType, subjectID, perm)
	if errors.Is(err, access.ErrContentNotFound) {
		// Orphaned booking: only admins may touch it
		return actor.Role == db.Admin, nil
	}
	return allowed, err
}

// UUID path parameter `id`. Writes a 400 and returns false when malformed
func pathID(ctx *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		util.LOGGER.Warn(ctx.Request.Method+" "+ctx.FullPath()+": invalid id", "id", ctx.Param("id"))
		ctx.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid ID"})
		return uuid.Nil, false
	}
	return id, true
}

package api

import (
	"net/http"
	"strings"
	"time"

	"zestpass/db"
	"zestpass/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreatePageRequest struct {
	Type db.PageType `json:"type" binding:"required,oneof=artist organization venue"`
	Name string      `json:"name" binding:"required"`
}

// CreatePage godoc
// @Summary      Create an organizer page
// @Description  Creates an artist, organization or venue page owned by the caller. The slug is derived from the name.
// @Tags         Pages
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreatePageRequest true "Page details"
// @Success      201  {object}  db.Page        "Page created"
// @Failure      400  {object}  ErrorResponse  "Invalid request body"
// @Failure      403  {object}  ErrorResponse  "Only hosts can create pages"
// @Failure      500  {object}  ErrorResponse  "Internal server error"
// @Router       /api/pages [post]
func (server *Server) CreatePage(ctx *gin.Context) {
	var req CreatePageRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		server.badRequest(ctx, err)
		return
	}
	actor, _ := actorFrom(ctx)

	slug, err := server.uniqueSlug(ctx, req.Name)
	if err != nil {
		server.fail(ctx, "failed to generate slug", err)
		return
	}

	page := db.Page{
		Model:   db.NewModel(),
		Type:    req.Type,
		Name:    strings.TrimSpace(req.Name),
		Slug:    slug,
		OwnerID: actor.ID,
	}
	if err := server.store.CreatePage(ctx, &page); err != nil {
		server.fail(ctx, "failed to create page", err)
		return
	}

	ctx.JSON(http.StatusCreated, page)
}

// Slug of the name, with a random suffix while it is taken
func (server *Server) uniqueSlug(ctx *gin.Context, name string) (string, error) {
	base := util.GenerateSlug(name)
	slug := base
	for range 5 {
		exists, err := server.store.PageSlugExists(ctx, slug)
		if err != nil {
			return "", err
		}
		if !exists {
			return slug, nil
		}
		slug = base + "-" + strings.ToLower(util.RandomString(4))
	}
	return base + "-" + strings.ToLower(util.RandomString(8)), nil
}

type TicketTypeInput struct {
	Name     string          `json:"name" binding:"required"`
	Price    decimal.Decimal `json:"price"`
	Capacity int             `json:"capacity" binding:"min=0"`
}

type CreateEventRequest struct {
	PageID      uuid.UUID         `json:"page_id" binding:"required"`
	Title       string            `json:"title" binding:"required"`
	StartAt     time.Time         `json:"start_at" binding:"required"`
	EndAt       *time.Time        `json:"end_at"`
	Draft       bool              `json:"draft"`
	TicketTypes []TicketTypeInput `json:"ticket_types" binding:"required,min=1,dive"`
}

// CreateEvent godoc
// @Summary      Create an event
// @Description  Creates an event with its ticket types under a page the caller can edit.
// @Tags         Pages
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateEventRequest true "Event details"
// @Success      201  {object}  db.Event       "Event created"
// @Failure      400  {object}  ErrorResponse  "Invalid request body"
// @Failure      403  {object}  ErrorResponse  "No edit permission on the page"
// @Failure      404  {object}  ErrorResponse  "Page not found"
// @Failure      500  {object}  ErrorResponse  "Internal server error"
// @Router       /api/events [post]
func (server *Server) CreateEvent(ctx *gin.Context) {
	var req CreateEventRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		server.badRequest(ctx, err)
		return
	}
	if req.EndAt != nil && !req.EndAt.After(req.StartAt) {
		ctx.JSON(http.StatusBadRequest, ErrorResponse{Message: "end_at must be after start_at"})
		return
	}
	if !server.canEditPage(ctx, req.PageID) {
		return
	}

	actor, _ := actorFrom(ctx)
	event := db.Event{
		Model:     db.NewModel(),
		Title:     strings.TrimSpace(req.Title),
		PageID:    &req.PageID,
		CreatedBy: &actor.ID,
		StartAt:   req.StartAt,
		EndAt:     req.EndAt,
		Status:    db.SubjectPublished,
	}
	if req.Draft {
		event.Status = db.SubjectDraft
	}

	seen := map[string]bool{}
	for _, input := range req.TicketTypes {
		name := strings.TrimSpace(input.Name)
		if seen[name] || input.Price.IsNegative() {
			ctx.JSON(http.StatusBadRequest, ErrorResponse{Message: "Ticket types need unique names and non-negative prices"})
			return
		}
		seen[name] = true
		event.TicketTypes = append(event.TicketTypes, db.TicketType{
			Model:    db.NewModel(),
			EventID:  event.ID,
			Name:     name,
			Price:    input.Price,
			Capacity: input.Capacity,
		})
	}

	if err := server.store.CreateEvent(ctx, &event); err != nil {
		server.fail(ctx, "failed to create event", err)
		return
	}
	ctx.JSON(http.StatusCreated, event)
}

type SlotInput struct {
	Weekday   time.Weekday `json:"weekday" binding:"min=0,max=6"`
	StartTime string       `json:"start_time" binding:"required,datetime=15:04"`
	EndTime   string       `json:"end_time" binding:"required,datetime=15:04"`
	Capacity  int          `json:"capacity" binding:"min=0"`
}

type CreateActivityRequest struct {
	PageID uuid.UUID       `json:"page_id" binding:"required"`
	Title  string          `json:"title" binding:"required"`
	Price  decimal.Decimal `json:"price"`
	Draft  bool            `json:"draft"`
	Slots  []SlotInput     `json:"slots" binding:"required,min=1,dive"`
}

// CreateActivity godoc
// @Summary      Create an activity
// @Description  Creates a recurring activity with its weekly slots under a page the caller can edit.
// @Tags         Pages
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateActivityRequest true "Activity details"
// @Success      201  {object}  db.Activity    "Activity created"
// @Failure      400  {object}  ErrorResponse  "Invalid request body"
// @Failure      403  {object}  ErrorResponse  "No edit permission on the page"
// @Failure      404  {object}  ErrorResponse  "Page not found"
// @Failure      500  {object}  ErrorResponse  "Internal server error"
// @Router       /api/activities [post]
func (server *Server) CreateActivity(ctx *gin.Context) {
	var req CreateActivityRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		server.badRequest(ctx, err)
		return
	}
	if req.Price.IsNegative() {
		ctx.JSON(http.StatusBadRequest, ErrorResponse{Message: "Price must not be negative"})
		return
	}
	if !server.canEditPage(ctx, req.PageID) {
		return
	}

	actor, _ := actorFrom(ctx)
	activity := db.Activity{
		Model:     db.NewModel(),
		Title:     strings.TrimSpace(req.Title),
		PageID:    &req.PageID,
		CreatedBy: &actor.ID,
		Price:     req.Price,
		Status:    db.SubjectPublished,
	}
	if req.Draft {
		activity.Status = db.SubjectDraft
	}
	for _, input := range req.Slots {
		activity.Slots = append(activity.Slots, db.ActivitySlot{
			Model:      db.NewModel(),
			ActivityID: activity.ID,
			Weekday:    input.Weekday,
			StartTime:  input.StartTime,
			EndTime:    input.EndTime,
			Capacity:   input.Capacity,
		})
	}

	if err := server.store.CreateActivity(ctx, &activity); err != nil {
		server.fail(ctx, "failed to create activity", err)
		return
	}
	ctx.JSON(http.StatusCreated, activity)
}

// Writes the error response and returns false unless the caller can edit the page
func (server *Server) canEditPage(ctx *gin.Context, pageID uuid.UUID) bool {
	actor, _ := actorFrom(ctx)
	allowed, err := server.access.Can(ctx, actor, db.ContentPage, pageID, db.PermEdit)
	if err != nil {
		server.fail(ctx, "failed to check page permission", err)
		return false
	}
	if !allowed {
		forbidden(ctx)
		return false
	}
	return true
}

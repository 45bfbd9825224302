package api

import (
	"net/http"
	"time"

	"zestpass/db"
	"zestpass/service/access"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ShareRequest struct {
	ContentType db.ContentType `json:"content_type" binding:"required"`
	ContentID   uuid.UUID      `json:"content_id" binding:"required"`
	GranteeID   uuid.UUID      `json:"grantee_id" binding:"required"`
	Role        string         `json:"role"`
	Permissions db.Permissions `json:"permissions" binding:"required"`
	ExpiresAt   *time.Time     `json:"expires_at"`
}

// Share godoc
// @Summary      Share content with a collaborator
// @Description  Grants a user permissions (view, edit, checkin, manage) over a page, event, activity or session.
// @Description  Page grants also cover the page's events and activities. Sharing again with the same user
// @Description  replaces the permissions and reactivates the assignment.
// @Tags         Sharing
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body ShareRequest true "Assignment"
// @Success      200  {object}  db.SharingAssignment  "Assignment saved"
// @Failure      400  {object}  ErrorResponse         "Invalid request"
// @Failure      403  {object}  ErrorResponse         "Not allowed to share this content"
// @Failure      404  {object}  ErrorResponse         "Content or grantee not found"
// @Router       /api/sharing [post]
func (server *Server) Share(ctx *gin.Context) {
	var req ShareRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		server.badRequest(ctx, err)
		return
	}

	actor, _ := actorFrom(ctx)
	assignment, err := server.access.Grant(ctx, actor, access.GrantRequest{
		ContentType: req.ContentType,
		ContentID:   req.ContentID,
		GranteeID:   req.GranteeID,
		Role:        req.Role,
		Permissions: req.Permissions,
		ExpiresAt:   req.ExpiresAt,
	})
	if err != nil {
		server.fail(ctx, "failed to share content", err)
		return
	}

	ctx.JSON(http.StatusOK, assignment)
}

// Unshare godoc
// @Summary      Revoke a sharing assignment
// @Description  Deactivates an assignment. Allowed for whoever could grant it and for the grantee.
// @Tags         Sharing
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Assignment ID"
// @Success      200  {object}  db.SharingAssignment  "Assignment revoked"
// @Failure      403  {object}  ErrorResponse         "Not allowed"
// @Failure      404  {object}  ErrorResponse         "Assignment not found"
// @Router       /api/sharing/{id} [delete]
func (server *Server) Unshare(ctx *gin.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}

	actor, _ := actorFrom(ctx)
	assignment, err := server.access.Revoke(ctx, actor, id)
	if err != nil {
		server.fail(ctx, "failed to revoke assignment", err)
		return
	}

	ctx.JSON(http.StatusOK, assignment)
}

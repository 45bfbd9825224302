package api

import (
	"net/http"
	"slices"
	"strings"

	"zestpass/db"
	"zestpass/service/access"
	"zestpass/service/security"
	"zestpass/util"

	"github.com/gin-gonic/gin"
)

const actorKey = "actor"

// CORS middleware
func (server *Server) CORSMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Header("Access-Control-Allow-Origin", "*")
		ctx.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		ctx.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		// Handle preflight and return immediately so Gin doesn't respond 404 for OPTIONS
		if ctx.Request.Method == http.MethodOptions {
			ctx.AbortWithStatus(http.StatusOK)
			return
		}

		ctx.Next()
	}
}

// Auth middleware: requires a valid Bearer access token and stores the caller in the context
func (server *Server) AuthMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		claims, ok := server.bearerClaims(ctx)
		if !ok {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Message: "Missing or invalid access token"})
			return
		}

		ctx.Set(actorKey, access.Actor{ID: claims.ID, Role: claims.Role})
		ctx.Next()
	}
}

// Same as AuthMiddleware, but anonymous requests go through. An invalid token is still rejected
func (server *Server) optionalAuth() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if ctx.GetHeader("Authorization") == "" {
			ctx.Next()
			return
		}
		server.AuthMiddleware()(ctx)
	}
}

// Role middleware, must run after AuthMiddleware
func (server *Server) RequireRole(roles ...db.Role) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		actor, ok := actorFrom(ctx)
		if !ok || !slices.Contains(roles, actor.Role) {
			util.LOGGER.Warn(ctx.Request.Method+" "+ctx.FullPath()+": role not allowed", "role", actor.Role)
			ctx.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Message: "You don't have permission to perform this request"})
			return
		}
		ctx.Next()
	}
}

func (server *Server) bearerClaims(ctx *gin.Context) (*security.CustomClaims, bool) {
	header := ctx.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return nil, false
	}

	claims, err := server.jwtService.VerifyToken(strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")))
	if err != nil {
		util.LOGGER.Warn(ctx.Request.Method+" "+ctx.FullPath()+": invalid access token", "error", err)
		return nil, false
	}
	if claims.TokenType != security.AccessToken {
		return nil, false
	}
	return claims, true
}

// Caller set by the auth middleware
func actorFrom(ctx *gin.Context) (access.Actor, bool) {
	value, ok := ctx.Get(actorKey)
	if !ok {
		return access.Actor{}, false
	}
	actor, ok := value.(access.Actor)
	return actor, ok
}

package api

import (
	"errors"
	"net/http"
	"strings"

	"zestpass/db"
	"zestpass/service/security"
	"zestpass/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone"`
	Password string `json:"password" binding:"required,min=8"`
}

// Register godoc
// @Summary      Register a customer account
// @Description  Creates a customer account. Past bookings made with the same email or phone are linked on the next booking.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body RegisterRequest true "Account details"
// @Success      201  {object}  db.User        "Account created"
// @Failure      400  {object}  ErrorResponse  "Invalid request body"
// @Failure      409  {object}  ErrorResponse  "Email already registered"
// @Failure      500  {object}  ErrorResponse  "Internal server error"
// @Router       /api/auth/register [post]
func (server *Server) Register(ctx *gin.Context) {
	var req RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		server.badRequest(ctx, err)
		return
	}

	hashed, err := security.BcryptHash(req.Password)
	if err != nil {
		server.fail(ctx, "failed to hash password", err)
		return
	}

	user := db.User{
		Model:    db.NewModel(),
		Name:     strings.TrimSpace(req.Name),
		Email:    util.NormalizeEmail(req.Email),
		Phone:    util.NormalizePhone(req.Phone),
		Password: hashed,
		Role:     db.Customer,
	}
	if err := server.store.CreateUser(ctx, &user); err != nil {
		server.fail(ctx, "failed to create user", err)
		return
	}

	ctx.JSON(http.StatusCreated, user)
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	ID           uuid.UUID `json:"id"`
	Role         db.Role   `json:"role"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	Expires      int       `json:"expires"` // Access token lifetime, in seconds
}

// Login godoc
// @Summary      User login
// @Description  Authenticates a user with email and password and returns an access token and refresh token.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "User login credentials"
// @Success      200 {object} LoginResponse "Login successful"
// @Failure      400 {object} ErrorResponse "Invalid request body"
// @Failure      401 {object} ErrorResponse "Incorrect login credentials"
// @Failure      500 {object} ErrorResponse "Internal server error"
// @Router       /api/auth/login [post]
func (server *Server) Login(ctx *gin.Context) {
	var req LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		server.badRequest(ctx, err)
		return
	}

	user, err := server.store.GetUserByEmail(ctx, util.NormalizeEmail(req.Email))
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		server.fail(ctx, "failed to get user", err)
		return
	}
	if err != nil || !security.BcryptCompare(user.Password, req.Password) {
		util.LOGGER.Warn("POST /api/auth/login: incorrect credentials", "email", req.Email)
		ctx.JSON(http.StatusUnauthorized, ErrorResponse{Message: "Incorrect email or password"})
		return
	}

	server.issueTokens(ctx, user)
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// RefreshToken godoc
// @Summary      Refresh access token
// @Description  Exchanges a valid refresh token for a new token pair. The role is read again from the account.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body RefreshRequest true "Refresh token"
// @Success      200 {object} LoginResponse "Token refresh success"
// @Failure      400 {object} ErrorResponse "Invalid request body"
// @Failure      401 {object} ErrorResponse "Invalid token"
// @Failure      500 {object} ErrorResponse "Internal server error"
// @Router       /api/auth/refresh [post]
func (server *Server) RefreshToken(ctx *gin.Context) {
	var req RefreshRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		server.badRequest(ctx, err)
		return
	}

	claims, err := server.jwtService.VerifyToken(req.RefreshToken)
	if err != nil || claims.TokenType != security.RefreshToken {
		util.LOGGER.Warn("POST /api/auth/refresh: invalid refresh token", "error", err)
		ctx.JSON(http.StatusUnauthorized, ErrorResponse{Message: "Invalid refresh token"})
		return
	}

	user, err := server.store.GetUser(ctx, claims.ID)
	if errors.Is(err, db.ErrNotFound) {
		ctx.JSON(http.StatusUnauthorized, ErrorResponse{Message: "Invalid refresh token"})
		return
	}
	if err != nil {
		server.fail(ctx, "failed to get user", err)
		return
	}

	server.issueTokens(ctx, user)
}

func (server *Server) issueTokens(ctx *gin.Context, user *db.User) {
	accessToken, err := server.jwtService.CreateToken(user.ID, user.Role, security.AccessToken)
	if err != nil {
		server.fail(ctx, "failed to create access token", err)
		return
	}
	refreshToken, err := server.jwtService.CreateToken(user.ID, user.Role, security.RefreshToken)
	if err != nil {
		server.fail(ctx, "failed to create refresh token", err)
		return
	}

	ctx.JSON(http.StatusOK, LoginResponse{
		ID:           user.ID,
		Role:         user.Role,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Expires:      int(server.config.TokenExpiration.Seconds()),
	})
}

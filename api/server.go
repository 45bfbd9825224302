package api

import (
	"net/http"
	"time"

	"zestpass/db"
	_ "zestpass/docs"
	"zestpass/service/access"
	"zestpass/service/payment"
	"zestpass/service/security"
	"zestpass/service/ticket"
	"zestpass/service/worker"
	"zestpass/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Server struct, holds the router, dependencies and system config
type Server struct {
	// API router
	router *gin.Engine

	// Config
	config *util.Config
	loc    *time.Location

	// Store
	store db.Store

	// Dependencies
	tickets     *ticket.Service
	checkout    *payment.Checkout
	access      *access.Service
	jwtService  *security.JWTService
	distributor worker.TaskDistributor
}

// Constructor method for server struct
func NewServer(
	config *util.Config,
	store db.Store,
	tickets *ticket.Service,
	checkout *payment.Checkout,
	accessService *access.Service,
	jwtService *security.JWTService,
	distributor worker.TaskDistributor,
) *Server {
	server := &Server{
		router:      gin.Default(),
		config:      config,
		loc:         config.Location(),
		store:       store,
		tickets:     tickets,
		checkout:    checkout,
		access:      accessService,
		jwtService:  jwtService,
		distributor: distributor,
	}
	// Handlers pass the gin context down to the services: let it carry the request's cancellation
	server.router.ContextWithFallback = true
	server.RegisterHandler()
	return server
}

// Helper method to register handler for API
func (server *Server) RegisterHandler() {
	server.router.Use(server.CORSMiddleware())

	server.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	server.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// API routes
	api := server.router.Group("/api")
	{
		api.GET("/", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"message": "Hello world"})
		})

		// Auth
		auth := api.Group("/auth")
		{
			auth.POST("/register", server.Register)
			auth.POST("/login", server.Login)
			auth.POST("/refresh", server.RefreshToken)
		}

		// Payment
		api.POST("/payment/create-order", server.optionalAuth(), server.CreateOrder)
		api.POST("/payment/verify", server.VerifyPayment)

		// Everything below needs a signed in user
		protected := api.Group("")
		protected.Use(server.AuthMiddleware())
		{
			protected.POST("/pages", server.RequireRole(db.Host, db.Admin), server.CreatePage)
			protected.POST("/events", server.RequireRole(db.Host, db.Admin), server.CreateEvent)
			protected.POST("/activities", server.RequireRole(db.Host, db.Admin), server.CreateActivity)

			protected.POST("/manual-attendee", server.ManualAttendee)
			protected.GET("/bookings/:id", server.GetBooking)
			protected.POST("/bookings/:id/cancel-tickets", server.CancelTickets)

			protected.GET("/tickets", server.ListTickets)
			protected.POST("/tickets/verify-entry", server.VerifyEntry)
			protected.POST("/tickets/:id/transfer", server.TransferTicket)
			protected.GET("/tickets/:id/history", server.TicketHistory)

			protected.POST("/sharing", server.Share)
			protected.DELETE("/sharing/:id", server.Unshare)

			admin := protected.Group("")
			admin.Use(server.RequireRole(db.Admin))
			{
				admin.POST("/refunds/:id/issue", server.IssueRefund)
				admin.POST("/maintenance/expire-tickets", server.ExpireTickets)
			}
		}
	}
}

// Start server
func (server *Server) Start() error {
	return server.router.Run(server.config.ServerAddr)
}

// HTTP handler of the server
func (server *Server) Handler() http.Handler {
	return server.router
}

// Error response struct. Debug detail is only filled outside production
type ErrorResponse struct {
	Message string `json:"error"`
	Debug   any    `json:"debug,omitempty"`
}

// Success message struct
type SuccessMessage struct {
	Message string `json:"message"`
}

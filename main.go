package main

import (
	"context"
	"os"

	"zestpass/api"
	"zestpass/db"
	"zestpass/db/memdb"
	"zestpass/service/access"
	"zestpass/service/mail"
	"zestpass/service/notify"
	"zestpass/service/payment"
	"zestpass/service/security"
	"zestpass/service/ticket"
	"zestpass/service/uploader"
	"zestpass/service/worker"
	"zestpass/util"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// @title           Zestpass API
// @version         1.0
// @description     Events and activities booking: checkout, tickets, check-in and collaboration.
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Load config
	config := util.LoadConfig(".env")
	loc := config.Location()
	ctx := context.Background()

	// Connect to database and Redis. Memory storage runs without either, and without background workers
	store, withWorkers, err := OpenStore(ctx, config)
	if err != nil {
		os.Exit(1)
	}

	// Create dependencies for server
	tickets := ticket.NewService(store, loc, config.MaxTicketsPerBooking)
	accessService := access.NewService(store)
	jwtService := security.NewJWTService([]byte(config.SecretKey), config.TokenExpiration, config.RefreshTokenExpiration)

	var gateway payment.Gateway
	switch config.PaymentGateway {
	case payment.Stripe:
		gateway = payment.NewStripeGateway(config.StripeSecretKey)
	case payment.Razorpay:
		gateway = payment.NewRazorpayGateway(config.RazorpayKeyID, config.RazorpayKeySecret)
	default:
		util.LOGGER.Error("Unknown payment gateway", "gateway", config.PaymentGateway)
		os.Exit(1)
	}

	var distributor worker.TaskDistributor
	if withWorkers {
		redisOpt := asynq.RedisClientOpt{Addr: config.RedisAddr}
		redisDistributor := worker.NewRedisTaskDistributor(redisOpt)
		defer redisDistributor.Close()
		distributor = redisDistributor

		// Start the background processor and the expiry scheduler in separate goroutines (they block)
		go StartBackgroundProcessor(config, redisOpt, store, tickets)
		go StartScheduler(config, redisOpt)
	}

	checkout := payment.NewCheckout(store, tickets, gateway, distributor, config.Currency)

	// Start server
	server := api.NewServer(config, store, tickets, checkout, accessService, jwtService, distributor)
	if err := server.Start(); err != nil {
		util.LOGGER.Error("Failed to start server", "error", err)
		os.Exit(1)
	}
}

// Open the configured store. Background workers only run on Postgres + Redis
func OpenStore(ctx context.Context, config *util.Config) (db.Store, bool, error) {
	if config.Storage == "memory" {
		util.LOGGER.Warn("Using in-memory storage, data is lost on restart. No background workers or expiry scheduler run: "+
			"tickets expire only when scanned or through POST /api/maintenance/expire-tickets",
			"storage", config.Storage)
		return memdb.New(), false, nil
	}

	queries := db.NewQueries()
	if err := queries.ConnectDB(config.DbConn); err != nil {
		util.LOGGER.Error("Error connecting to database", "error", err)
		return nil, false, err
	}

	// Run database migration
	if err := queries.AutoMigration(); err != nil {
		util.LOGGER.Error("Error running auto migration", "error", err)
		return nil, false, err
	}

	if err := queries.ConnectRedis(ctx, &redis.Options{Addr: config.RedisAddr}); err != nil {
		util.LOGGER.Error("Error connecting to Redis", "error", err)
		return nil, false, err
	}
	return queries, true, nil
}

func StartBackgroundProcessor(config *util.Config, redisOpts asynq.RedisClientOpt, store db.Store, tickets *ticket.Service) {
	// QR images go to Cloudinary when configured, inline data URLs otherwise
	var imageUploader uploader.ImageUploader = uploader.DataURLUploader{}
	if config.CloudStorageName != "" {
		cld, err := uploader.NewCloudinaryService(config.CloudStorageName, config.CloudStorageKey, config.CloudStorageSecret)
		if err != nil {
			util.LOGGER.Error("failed to initialize Cloudinary service", "error", err)
			os.Exit(1)
		}
		imageUploader = cld
	}

	var mailService mail.MailService = mail.LogMailService{}
	if config.Email != "" {
		mailService = mail.NewEmailService(config.Email, config.AppPassword)
	}

	var publisher notify.Publisher = notify.NopPublisher{}
	if config.AblyAPIKey != "" {
		ably, err := notify.NewAblyService(config.AblyAPIKey)
		if err != nil {
			util.LOGGER.Error("failed to initialize Ably service", "error", err)
			os.Exit(1)
		}
		publisher = ably
	}

	// Create the processor
	processor := worker.NewRedisTaskProcessor(redisOpts, config.MaxWorkers, store, tickets, imageUploader, mailService, publisher, config.Location())

	// Start process tasks
	if err := processor.Start(); err != nil {
		util.LOGGER.Error("failed to start background processor", "error", err)
		os.Exit(1)
	}
}

func StartScheduler(config *util.Config, redisOpts asynq.RedisClientOpt) {
	scheduler, err := worker.NewScheduler(redisOpts, config.ExpirySweepCron, config.Location())
	if err != nil {
		util.LOGGER.Error("failed to register expiry sweep", "cron", config.ExpirySweepCron, "error", err)
		os.Exit(1)
	}

	if err := scheduler.Run(); err != nil {
		util.LOGGER.Error("expiry scheduler stopped", "error", err)
	}
}

package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"zestpass/db"
	"zestpass/service/mail"
	"zestpass/service/notify"
	"zestpass/service/ticket"
	"zestpass/service/uploader"
	"zestpass/util"

	"github.com/hibiken/asynq"
)

// Task processor interface
type TaskProcessor interface {
	Start() error
	Shutdown()
}

// Redis task processor
type RedisTaskProcessor struct {
	// Asynq server
	server *asynq.Server

	// Dependencies
	store       db.Store
	tickets     *ticket.Service
	uploader    uploader.ImageUploader
	mailService mail.MailService
	publisher   notify.Publisher
	loc         *time.Location
}

// Constructor method for Redis task processor
func NewRedisTaskProcessor(
	redisOpts asynq.RedisClientOpt,
	concurrency int,
	store db.Store,
	tickets *ticket.Service,
	imageUploader uploader.ImageUploader,
	mailService mail.MailService,
	publisher notify.Publisher,
	loc *time.Location,
) *RedisTaskProcessor {
	if loc == nil {
		loc = time.UTC
	}

	return &RedisTaskProcessor{
		server: asynq.NewServer(redisOpts, asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				HIGH_IMPACT:   6,
				MEDIUM_IMPACT: 3,
				LOW_IMPACT:    1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				util.LOGGER.Error("background task failed", "task", task.Type(), "payload", string(task.Payload()), "error", err)
			}),
		}),
		store:       store,
		tickets:     tickets,
		uploader:    imageUploader,
		mailService: mailService,
		publisher:   publisher,
		loc:         loc,
	}
}

// Method to start the worker server
func (processor *RedisTaskProcessor) Start() error {
	return processor.server.Start(processor.mux())
}

// Stop pulling new tasks and wait for the running ones
func (processor *RedisTaskProcessor) Shutdown() {
	processor.server.Shutdown()
}

func (processor *RedisTaskProcessor) mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(PublishTicketQR, bookingHandler(processor.PublishTicketQR))
	mux.HandleFunc(SendTicketEmail, bookingHandler(processor.SendTicketEmail))
	mux.HandleFunc(NotifyCheckIn, processor.handleNotifyCheckIn)
	mux.HandleFunc(ExpirePastTickets, func(ctx context.Context, task *asynq.Task) error {
		return processor.ExpirePastTickets(ctx)
	})
	return mux
}

// Decode the booking payload before calling the task. A payload that cannot be decoded is never retried
func bookingHandler(handle func(context.Context, BookingPayload) error) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var payload BookingPayload
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return fmt.Errorf("invalid payload for task %s: %v: %w", task.Type(), err, asynq.SkipRetry)
		}
		return handle(ctx, payload)
	}
}

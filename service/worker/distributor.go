package worker

import (
	"context"
	"encoding/json"
	"time"

	"zestpass/util"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Queue names, with their priority weight on the processor
const (
	HIGH_IMPACT   = "critical"
	MEDIUM_IMPACT = "default"
	LOW_IMPACT    = "low"
)

// Task distributor interface
type TaskDistributor interface {
	DistributeTask(ctx context.Context, taskName string, payload any, opts ...asynq.Option) error
}

// Redis task distributor
type RedisTaskDistributor struct {
	client *asynq.Client
}

// Constructor method for Redis task distributor
func NewRedisTaskDistributor(redisOpt asynq.RedisClientOpt) *RedisTaskDistributor {
	return &RedisTaskDistributor{
		client: asynq.NewClient(redisOpt),
	}
}

// Distribute task.
// `name` should be unique since it's used to identify task
func (distributor *RedisTaskDistributor) DistributeTask(ctx context.Context, name string, payload any, opts ...asynq.Option) error {
	// Marshal payload
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	// Send task to Redis queue
	info, err := distributor.client.EnqueueContext(ctx, asynq.NewTask(name, data, opts...))
	if err != nil {
		return err
	}

	util.LOGGER.Info("Task info", "task_name", name, "queue", info.Queue, "max_retry", info.MaxRetry)
	return nil
}

func (distributor *RedisTaskDistributor) Close() error {
	return distributor.client.Close()
}

// Enqueue the follow-up work of a new booking: QR images, then the ticket email.
// Failures are logged, never returned: the booking itself is already committed
func DistributeBookingTasks(ctx context.Context, distributor TaskDistributor, attendeeID uuid.UUID) {
	if distributor == nil {
		return
	}

	payload := BookingPayload{AttendeeID: attendeeID}
	if err := distributor.DistributeTask(ctx, PublishTicketQR, payload, asynq.Queue(HIGH_IMPACT), asynq.MaxRetry(5)); err != nil {
		util.LOGGER.Error("failed to distribute background task", "task", PublishTicketQR, "attendee_id", attendeeID, "error", err)
	}

	// Give the QR task a head start so the email can link the images
	err := distributor.DistributeTask(ctx, SendTicketEmail, payload,
		asynq.Queue(MEDIUM_IMPACT), asynq.MaxRetry(5), asynq.ProcessIn(30*time.Second))
	if err != nil {
		util.LOGGER.Error("failed to distribute background task", "task", SendTicketEmail, "attendee_id", attendeeID, "error", err)
	}
}

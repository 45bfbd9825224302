package worker

import (
	"context"
	"time"

	"zestpass/util"

	"github.com/hibiken/asynq"
)

const ExpirePastTickets = "expire-past-tickets"

// Run the ticket expiry sweep
func (processor *RedisTaskProcessor) ExpirePastTickets(ctx context.Context) error {
	expired, err := processor.tickets.ExpirePastTickets(ctx)
	if err != nil {
		util.LOGGER.Error("background log", "task", ExpirePastTickets, "expired", expired, "error", err)
		return err
	}

	util.LOGGER.Info("background log", "task", ExpirePastTickets, "expired", expired)
	return nil
}

// Periodic task scheduler. The expiry sweep is enqueued on `cronSpec`, evaluated in `loc`
func NewScheduler(redisOpt asynq.RedisClientOpt, cronSpec string, loc *time.Location) (*asynq.Scheduler, error) {
	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{Location: loc})

	// No second sweep is queued while one is still pending
	entryID, err := scheduler.Register(cronSpec, asynq.NewTask(ExpirePastTickets, nil),
		asynq.Queue(LOW_IMPACT), asynq.MaxRetry(1), asynq.Unique(10*time.Minute))
	if err != nil {
		return nil, err
	}

	util.LOGGER.Info("Periodic task registered", "task", ExpirePastTickets, "cron", cronSpec, "entry_id", entryID)
	return scheduler, nil
}

package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"zestpass/db"
	"zestpass/service/notify"
	"zestpass/util"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type CheckInPayload struct {
	TicketID uuid.UUID `json:"ticket_id"`
	Location string    `json:"location"`
}

const NotifyCheckIn = "notify-check-in"

// Push a check-in to the live feed of its event or activity
func (processor *RedisTaskProcessor) NotifyCheckIn(ctx context.Context, payload CheckInPayload) error {
	ticket, err := processor.store.GetTicket(ctx, payload.TicketID, false)
	if errors.Is(err, db.ErrNotFound) {
		return fmt.Errorf("ticket %s not found: %w", payload.TicketID, asynq.SkipRetry)
	}
	if err != nil {
		return err
	}

	err = processor.publisher.Publish(ctx, notify.CheckInChannel(ticket.SubjectID.String()), notify.CheckInEvent, map[string]any{
		"ticket_number": ticket.TicketNumber,
		"ticket_type":   ticket.TicketType,
		"holder":        ticket.HolderName,
		"location":      payload.Location,
		"used_at":       ticket.UsedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to publish check-in of %s: %w", ticket.TicketNumber, err)
	}

	util.LOGGER.Info("background log", "task", NotifyCheckIn, "ticket_number", ticket.TicketNumber)
	return nil
}

func (processor *RedisTaskProcessor) handleNotifyCheckIn(ctx context.Context, task *asynq.Task) error {
	var payload CheckInPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid payload for task %s: %v: %w", task.Type(), err, asynq.SkipRetry)
	}
	return processor.NotifyCheckIn(ctx, payload)
}

// Enqueue the live feed update of a check-in. A nil distributor does nothing
func DistributeCheckIn(ctx context.Context, distributor TaskDistributor, ticketID uuid.UUID, location string) {
	if distributor == nil {
		return
	}

	payload := CheckInPayload{TicketID: ticketID, Location: location}
	if err := distributor.DistributeTask(ctx, NotifyCheckIn, payload, asynq.Queue(HIGH_IMPACT), asynq.MaxRetry(3)); err != nil {
		util.LOGGER.Error("failed to distribute background task", "task", NotifyCheckIn, "ticket_id", ticketID, "error", err)
	}
}

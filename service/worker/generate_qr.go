package worker

import (
	"context"
	"fmt"
	"strings"

	"zestpass/util"

	"github.com/google/uuid"
)

// Payload of the follow-up tasks of a booking
type BookingPayload struct {
	AttendeeID uuid.UUID `json:"attendee_id"`
}

const PublishTicketQR = "publish-ticket-qr"

// Render the QR code of every ticket in the booking and store its image URL.
// Tickets that already have an image are skipped, so a retried task only does the remaining work
func (processor *RedisTaskProcessor) PublishTicketQR(ctx context.Context, payload BookingPayload) error {
	tickets, err := processor.store.ListTicketsByAttendee(ctx, payload.AttendeeID)
	if err != nil {
		return fmt.Errorf("failed to load tickets of booking %s: %w", payload.AttendeeID, err)
	}

	published := 0
	for i := range tickets {
		ticket := &tickets[i]
		if ticket.QRImageURL != "" {
			continue
		}

		png, err := util.GenerateQR(ticket.QRPayload)
		if err != nil {
			return fmt.Errorf("failed to render QR of ticket %s: %w", ticket.TicketNumber, err)
		}

		url, err := processor.uploader.UploadImage(ctx, strings.ToLower(ticket.TicketNumber), png)
		if err != nil {
			return fmt.Errorf("failed to upload QR of ticket %s: %w", ticket.TicketNumber, err)
		}

		if err := processor.store.SetTicketQRImage(ctx, ticket.ID, url); err != nil {
			return fmt.Errorf("failed to store QR of ticket %s: %w", ticket.TicketNumber, err)
		}
		published++
	}

	util.LOGGER.Info("background log", "task", PublishTicketQR, "attendee_id", payload.AttendeeID, "published", published)
	return nil
}

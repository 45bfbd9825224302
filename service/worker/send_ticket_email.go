package worker

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"zestpass/util"
)

const SendTicketEmail = "send-ticket-email"

//go:embed ticket_email.html
var fs embed.FS

var ticketEmail = template.Must(template.ParseFS(fs, "ticket_email.html"))

type ticketEmailData struct {
	Title   string
	Name    string
	Tickets []ticketEmailLine
}

type ticketEmailLine struct {
	Number     string
	Type       string
	Index      int
	Total      int
	Starts     string
	QRImageURL template.URL
}

// Email the ticket numbers (and QR images, once published) to the booking contact.
// Bookings without an email, such as phone-only manual entries, are skipped
func (processor *RedisTaskProcessor) SendTicketEmail(ctx context.Context, payload BookingPayload) error {
	attendee, err := processor.store.GetAttendee(ctx, payload.AttendeeID, false)
	if err != nil {
		return fmt.Errorf("failed to load booking %s: %w", payload.AttendeeID, err)
	}
	if strings.TrimSpace(attendee.Email) == "" {
		util.LOGGER.Info("background log", "task", SendTicketEmail, "attendee_id", attendee.ID, "status", "skipped, no email")
		return nil
	}

	subject, err := processor.store.GetSubject(ctx, attendee.SubjectType, attendee.SubjectID, false)
	if err != nil {
		return fmt.Errorf("failed to load %s %s: %w", attendee.SubjectType, attendee.SubjectID, err)
	}

	tickets, err := processor.store.ListTicketsByAttendee(ctx, attendee.ID)
	if err != nil {
		return err
	}

	data := ticketEmailData{Title: subject.Title, Name: attendee.Name}
	for _, ticket := range tickets {
		data.Tickets = append(data.Tickets, ticketEmailLine{
			Number:     ticket.TicketNumber,
			Type:       ticket.TicketType,
			Index:      ticket.TicketIndex,
			Total:      ticket.TotalTicketsInBooking,
			Starts:     ticket.WindowStart.In(processor.loc).Format("Mon, 02 Jan 2006 15:04"),
			QRImageURL: template.URL(ticket.QRImageURL),
		})
	}

	var buffer bytes.Buffer
	if err := ticketEmail.Execute(&buffer, data); err != nil {
		return err
	}

	title := fmt.Sprintf("Your tickets for %s", subject.Title)
	if err := processor.mailService.SendEmail(attendee.Email, title, buffer.String()); err != nil {
		return err
	}

	util.LOGGER.Info("background log", "task", SendTicketEmail, "attendee_id", attendee.ID, "tickets", len(tickets))
	return nil
}

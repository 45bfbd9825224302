package ticket

import (
	"context"
	"errors"
	"fmt"
	"time"

	"zestpass/db"
	"zestpass/service/metrics"
	"zestpass/util"

	"github.com/google/uuid"
)

// Scan result code
type Code string

// Advisory flag raised on a valid scan. Flags never deny entry
type Flag string

const (
	CodeValidActive     Code = "VALID_ACTIVE"
	CodeTicketNotFound  Code = "TICKET_NOT_FOUND"
	CodeTicketUsed      Code = "TICKET_USED"
	CodeTicketCancelled Code = "TICKET_CANCELLED"
	CodeTicketExpired   Code = "TICKET_EXPIRED"
	CodeFutureDate      Code = "FUTURE_DATE"
	CodeTooEarly        Code = "TOO_EARLY"

	FlagRapidRescan         Flag = "RAPID_RESCAN"
	FlagPreviouslyValidated Flag = "PREVIOUSLY_VALIDATED"
	FlagManualEntry         Flag = "MANUAL_ENTRY"
	FlagUnlinkedTicket      Flag = "UNLINKED_TICKET"
	FlagChecksumMismatch    Flag = "CHECKSUM_MISMATCH"
)

// Reasons a ticket expires
const (
	ReasonSubjectCancelled = "subject_cancelled"
	ReasonGracePassed      = "grace_period_passed"
	ReasonDatePassed       = "date_passed"
)

// A scan at the door
type ScanRequest struct {
	TicketNumber string
	ActorID      *uuid.UUID
	Location     string
}

// Result of a scan
type Result struct {
	IsValid bool       `json:"is_valid"`
	Code    Code       `json:"code"`
	Message string     `json:"message"`
	Ticket  *db.Ticket `json:"ticket,omitempty"`
	Flags   []Flag     `json:"flags,omitempty"`
}

var messages = map[Code]string{
	CodeValidActive:     "Ticket is valid",
	CodeTicketNotFound:  "Ticket not found",
	CodeTicketUsed:      "Ticket has already been used",
	CodeTicketCancelled: "Ticket has been cancelled",
	CodeTicketExpired:   "Ticket has expired",
	CodeFutureDate:      "Ticket is for a future date",
	CodeTooEarly:        "Too early: entry opens 2 hours before start",
}

func newResult(code Code, ticket *db.Ticket) Result {
	return Result{IsValid: code == CodeValidActive, Code: code, Message: messages[code], Ticket: ticket}
}

// Answer for a number that matches no ticket
func NotFoundResult() Result {
	return newResult(CodeTicketNotFound, nil)
}

// Validate a scanned ticket number.
// The expiry of an active ticket is recomputed against the live schedule on every scan and persisted before
// answering, so a ticket past its end + grace period always reports TICKET_EXPIRED even if the sweep has not run.
// Validation never moves a ticket to `used`, see CheckIn
func (service *Service) Validate(ctx context.Context, req ScanRequest) (Result, error) {
	result, err := service.validate(ctx, req)
	if err != nil {
		return Result{}, err
	}
	metrics.TicketScanned(string(result.Code))
	return result, nil
}

// Validate and, if the ticket is valid, mark it used. A concurrent scan that wins the race makes this one
// report TICKET_USED
func (service *Service) CheckIn(ctx context.Context, req ScanRequest) (Result, error) {
	result, err := service.validate(ctx, req)
	if err != nil {
		return Result{}, err
	}

	if result.IsValid {
		ticket, err := service.MarkUsed(ctx, result.Ticket.ID, req.ActorID, req.Location)
		switch {
		case errors.Is(err, ErrTicketNotActive):
			current, err := service.store.GetTicket(ctx, result.Ticket.ID, false)
			if err != nil {
				return Result{}, err
			}
			result = newResult(statusCode(current.Status), current)
		case err != nil:
			return Result{}, err
		default:
			result.Ticket = ticket
			result.Message = "Ticket checked in"
		}
	}

	metrics.TicketScanned(string(result.Code))
	return result, nil
}

func (service *Service) validate(ctx context.Context, req ScanRequest) (Result, error) {
	number := NormalizeTicketNumber(req.TicketNumber)
	ticket, err := service.store.GetTicketByNumber(ctx, number)
	if errors.Is(err, db.ErrNotFound) {
		return NotFoundResult(), nil
	}
	if err != nil {
		return Result{}, err
	}

	now := service.now()
	result, err := service.resolve(ctx, ticket, now)
	if err != nil {
		return Result{}, err
	}

	if result.Code == CodeValidActive {
		flags, err := service.flags(ctx, ticket, now)
		if err != nil {
			return Result{}, err
		}
		result.Flags = flags
		for _, flag := range flags {
			event := db.SecurityEvent{
				Model:    db.NewModel(),
				TicketID: ticket.ID,
				Kind:     string(flag),
				ActorID:  req.ActorID,
				Location: req.Location,
			}
			if err := service.store.RecordSecurityEvent(ctx, &event); err != nil {
				return Result{}, err
			}
		}
	}

	entry := db.TicketValidation{
		Model:    db.Model{ID: uuid.New(), DateCreated: now, DateUpdated: now},
		TicketID: ticket.ID,
		Action:   db.ActionValidated,
		Location: req.Location,
		ActorID:  req.ActorID,
		Note:     string(result.Code),
	}
	if err := service.store.AppendValidation(ctx, &entry); err != nil {
		return Result{}, err
	}

	return result, nil
}

// Status of the ticket as of now. Persists the expiry of an active ticket that should be expired
func (service *Service) resolve(ctx context.Context, ticket *db.Ticket, now time.Time) (Result, error) {
	if ticket.Status != db.TicketActive {
		return newResult(statusCode(ticket.Status), ticket), nil
	}

	subject, err := service.store.GetSubject(ctx, ticket.SubjectType, ticket.SubjectID, false)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return Result{}, err
	}

	start, end := service.window(ticket, subject)
	if reason := service.expiryReason(subject, start, end, now); reason != "" {
		expired, err := service.expire(ctx, ticket, reason, now)
		if err != nil {
			return Result{}, err
		}
		return newResult(statusCode(expired.Status), expired), nil
	}

	if service.day(start).After(service.day(now)) {
		return newResult(CodeFutureDate, ticket), nil
	}
	if now.Before(start.Add(-EarlyEntryWindow)) {
		return newResult(CodeTooEarly, ticket), nil
	}
	return newResult(CodeValidActive, ticket), nil
}

// Window of a ticket against the live schedule: events may be rescheduled after issuance,
// activity tickets keep the occurrence they were booked for
func (service *Service) window(ticket *db.Ticket, subject *db.Subject) (time.Time, *time.Time) {
	if subject != nil && subject.Type == db.SubjectEvent && subject.StartAt != nil {
		return *subject.StartAt, subject.EndAt
	}
	return ticket.WindowStart, ticket.WindowEnd
}

// Empty when the ticket should still be active. A missing subject counts as cancelled
func (service *Service) expiryReason(subject *db.Subject, start time.Time, end *time.Time, now time.Time) string {
	if subject == nil || subject.Cancelled {
		return ReasonSubjectCancelled
	}
	if end != nil {
		if now.After(end.Add(GracePeriod)) {
			return ReasonGracePassed
		}
		return ""
	}
	if service.day(start).Before(service.day(now)) {
		return ReasonDatePassed
	}
	return ""
}

// CAS active -> expired. If another writer changed the ticket first, the current row is returned instead
func (service *Service) expire(ctx context.Context, ticket *db.Ticket, reason string, now time.Time) (*db.Ticket, error) {
	ok, err := service.store.CompareAndSetStatus(ctx, db.StatusChange{
		TicketID: ticket.ID,
		From:     db.TicketActive,
		To:       db.TicketExpired,
		At:       now,
		Reason:   reason,
	})
	if err != nil {
		return nil, err
	}

	if ok {
		metrics.TicketTransition(string(db.TicketExpired), 1)
		entry := db.TicketValidation{
			Model:    db.Model{ID: uuid.New(), DateCreated: now, DateUpdated: now},
			TicketID: ticket.ID,
			Action:   db.ActionExpired,
			Note:     reason,
		}
		if err := service.store.AppendValidation(ctx, &entry); err != nil {
			return nil, err
		}
	}

	return service.store.GetTicket(ctx, ticket.ID, false)
}

func (service *Service) flags(ctx context.Context, ticket *db.Ticket, now time.Time) ([]Flag, error) {
	history, err := service.store.ListValidations(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}

	var flags []Flag
	var last *db.TicketValidation
	for i := range history {
		if history[i].Action == db.ActionValidated && history[i].Note == string(CodeValidActive) {
			last = &history[i]
		}
	}
	if last != nil {
		if now.Sub(last.DateCreated) < RapidRescanWindow {
			flags = append(flags, FlagRapidRescan)
		}
		flags = append(flags, FlagPreviouslyValidated)
	}
	if ticket.Source == db.SourceManual {
		flags = append(flags, FlagManualEntry)
	}
	if ticket.UserID == nil {
		flags = append(flags, FlagUnlinkedTicket)
	}
	if ParseTicketNumber(ticket.TicketNumber) != nil {
		flags = append(flags, FlagChecksumMismatch)
	}

	if len(flags) > 0 {
		util.LOGGER.Warn("Ticket scan flagged", "ticket_number", ticket.TicketNumber, "flags", fmt.Sprint(flags))
	}
	return flags, nil
}

func statusCode(status db.TicketStatus) Code {
	switch status {
	case db.TicketUsed:
		return CodeTicketUsed
	case db.TicketCancelled:
		return CodeTicketCancelled
	case db.TicketExpired:
		return CodeTicketExpired
	default:
		return CodeValidActive
	}
}

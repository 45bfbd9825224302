package db

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ticket type used by activities, which have a single flat price
const StandardTicketType = "Standard"

// Subject is the normalized view of an event or an activity: the one shape the ticket lifecycle works with.
// It is built only by NormalizeEvent/NormalizeActivity, which resolve the legacy owner fields
type Subject struct {
	Type        SubjectType
	ID          uuid.UUID
	Title       string
	OwnerPageID *uuid.UUID  // creator.pageId, or the legacy organization when it is the only owner reference
	LegacyOwner *uuid.UUID  // legacy createdBy user
	StartAt     *time.Time  // nil for activities: their window depends on the booked date and slot
	EndAt       *time.Time  // nil when the event has no end time
	Cancelled   bool
	Published   bool
	Prices      map[string]decimal.Decimal
	Capacities  map[string]int // 0 or missing means unlimited
	Slots       []ActivitySlot
}

// Normalize an event. Owner precedence: PageID, then the legacy OrganizationID (which is the page ID of the
// organization that created it)
func NormalizeEvent(event Event) Subject {
	subject := Subject{
		Type:        SubjectEvent,
		ID:          event.ID,
		Title:       event.Title,
		OwnerPageID: firstID(event.PageID, event.OrganizationID),
		LegacyOwner: event.CreatedBy,
		Cancelled:   event.Status == SubjectCancelled,
		Published:   event.Status == SubjectPublished,
		Prices:      map[string]decimal.Decimal{},
		Capacities:  map[string]int{},
	}

	start := event.StartAt
	subject.StartAt = &start
	if event.EndAt != nil {
		end := *event.EndAt
		subject.EndAt = &end
	}

	for _, tt := range event.TicketTypes {
		subject.Prices[tt.Name] = tt.Price
		if tt.Capacity > 0 {
			subject.Capacities[tt.Name] = tt.Capacity
		}
	}

	return subject
}

// Normalize an activity. Activities have one ticket type, StandardTicketType
func NormalizeActivity(activity Activity) Subject {
	return Subject{
		Type:        SubjectActivity,
		ID:          activity.ID,
		Title:       activity.Title,
		OwnerPageID: firstID(activity.PageID, activity.OrganizationID),
		LegacyOwner: activity.CreatedBy,
		Cancelled:   activity.Status == SubjectCancelled,
		Published:   activity.Status == SubjectPublished,
		Prices:      map[string]decimal.Decimal{StandardTicketType: activity.Price},
		Capacities:  map[string]int{},
		Slots:       activity.Slots,
	}
}

// Find a slot by ID
func (subject *Subject) Slot(id uuid.UUID) (ActivitySlot, bool) {
	for _, slot := range subject.Slots {
		if slot.ID == id {
			return slot, true
		}
	}
	return ActivitySlot{}, false
}

// Resolve the concrete window of a slot on a date, in the given location.
// The date must fall on the slot's weekday
func SlotWindow(slot ActivitySlot, date time.Time, loc *time.Location) (time.Time, time.Time, error) {
	day := date.In(loc)
	if day.Weekday() != slot.Weekday {
		return time.Time{}, time.Time{}, fmt.Errorf("slot runs on %s, selected date is a %s", slot.Weekday, day.Weekday())
	}

	start, err := atClock(day, slot.StartTime, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := atClock(day, slot.EndTime, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !end.After(start) {
		// Slot crosses midnight
		end = end.AddDate(0, 0, 1)
	}
	return start, end, nil
}

func atClock(day time.Time, clock string, loc *time.Location) (time.Time, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid slot time %q: %w", clock, err)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
}

func firstID(ids ...*uuid.UUID) *uuid.UUID {
	for _, id := range ids {
		if id != nil && *id != uuid.Nil {
			v := *id
			return &v
		}
	}
	return nil
}

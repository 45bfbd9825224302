package db

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

func (queries *Queries) CreateUser(ctx context.Context, user *User) error {
	return translate(queries.DB.WithContext(ctx).Create(user).Error)
}

func (queries *Queries) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	var user User
	if err := queries.DB.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (queries *Queries) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	err := queries.DB.WithContext(ctx).First(&user, "email = ?", strings.ToLower(strings.TrimSpace(email))).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// Find the account a booking contact belongs to. Email wins over phone; empty values never match
func (queries *Queries) FindUserByContact(ctx context.Context, email, phone string) (*User, error) {
	if email != "" {
		user, err := queries.GetUserByEmail(ctx, email)
		if err == nil || !errors.Is(err, ErrNotFound) {
			return user, err
		}
	}

	if phone != "" {
		var user User
		if err := queries.DB.WithContext(ctx).First(&user, "phone = ?", phone).Error; err != nil {
			return nil, translate(err)
		}
		return &user, nil
	}

	return nil, ErrNotFound
}

func (queries *Queries) CreatePage(ctx context.Context, page *Page) error {
	return translate(queries.DB.WithContext(ctx).Create(page).Error)
}

func (queries *Queries) GetPage(ctx context.Context, id uuid.UUID) (*Page, error) {
	var page Page
	if err := queries.DB.WithContext(ctx).First(&page, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &page, nil
}

func (queries *Queries) PageSlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := queries.DB.WithContext(ctx).Model(&Page{}).Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}

func (queries *Queries) CreateEvent(ctx context.Context, event *Event) error {
	return translate(queries.DB.WithContext(ctx).Create(event).Error)
}

func (queries *Queries) CreateActivity(ctx context.Context, activity *Activity) error {
	return translate(queries.DB.WithContext(ctx).Create(activity).Error)
}

// Load an event or activity with its price list/slots and normalize it.
// forUpdate locks the event/activity row first: bookings of the same subject then count capacity one at a time
func (queries *Queries) GetSubject(ctx context.Context, subjectType SubjectType, id uuid.UUID, forUpdate bool) (*Subject, error) {
	switch subjectType {
	case SubjectEvent:
		var event Event
		if forUpdate {
			if err := queries.query(ctx, true).Select("id").First(&Event{}, "id = ?", id).Error; err != nil {
				return nil, translate(err)
			}
		}
		if err := queries.DB.WithContext(ctx).Preload("TicketTypes").First(&event, "id = ?", id).Error; err != nil {
			return nil, translate(err)
		}
		subject := NormalizeEvent(event)
		return &subject, nil
	case SubjectActivity:
		var activity Activity
		if forUpdate {
			if err := queries.query(ctx, true).Select("id").First(&Activity{}, "id = ?", id).Error; err != nil {
				return nil, translate(err)
			}
		}
		if err := queries.DB.WithContext(ctx).Preload("Slots").First(&activity, "id = ?", id).Error; err != nil {
			return nil, translate(err)
		}
		subject := NormalizeActivity(activity)
		return &subject, nil
	default:
		return nil, ErrNotFound
	}
}

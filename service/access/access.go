// Package access resolves who may manage or scan what: owners of a page and its events/activities,
// admins, and users holding a sharing assignment.
//
// An assignment grants a permission set over one piece of content. Page-level assignments also cover
// the events and activities of that page, and session assignments delegate check-in for one event or activity.
// Assignments are never deleted: revocation and expiry set Active to false.
package access

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"zestpass/db"
	"zestpass/util"

	"github.com/google/uuid"
)

var (
	ErrForbidden           = errors.New("not allowed")
	ErrContentNotFound     = errors.New("content not found")
	ErrAssignmentNotFound  = errors.New("sharing assignment not found")
	ErrUnknownContentType  = errors.New("unknown content type")
	ErrUnknownPermission   = errors.New("unknown permission")
	ErrGranteeNotFound     = errors.New("grantee not found")
	ErrSelfAssignment      = errors.New("cannot share content with yourself")
	ErrExpiryInThePast     = errors.New("expiry must be in the future")
	ErrEmptyPermissionList = errors.New("at least one permission is required")
)

var knownPermissions = []db.Permission{db.PermView, db.PermEdit, db.PermCheckin, db.PermManage}

// The user asking
type Actor struct {
	ID   uuid.UUID
	Role db.Role
}

// Access service
type Service struct {
	store db.Store
	now   func() time.Time
}

// Constructor for the access service
func NewService(store db.Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Replace the clock
func (service *Service) SetClock(now func() time.Time) {
	service.now = now
}

// A grant of permissions over a piece of content
type GrantRequest struct {
	ContentType db.ContentType
	ContentID   uuid.UUID
	GranteeID   uuid.UUID
	Role        string
	Permissions db.Permissions
	ExpiresAt   *time.Time
}

// Grant or update an assignment. The grantor must own the content, be an admin, or hold `manage` on it.
// Re-granting to the same grantee replaces the permissions and reactivates the assignment
func (service *Service) Grant(ctx context.Context, grantor Actor, req GrantRequest) (*db.SharingAssignment, error) {
	perms, err := validatePermissions(req.Permissions)
	if err != nil {
		return nil, err
	}
	if req.GranteeID == grantor.ID {
		return nil, ErrSelfAssignment
	}
	now := service.now()
	if req.ExpiresAt != nil && !req.ExpiresAt.After(now) {
		return nil, ErrExpiryInThePast
	}
	role := strings.TrimSpace(req.Role)
	if role == "" {
		role = "collaborator"
	}

	var assignment *db.SharingAssignment
	err = service.store.WithinTx(ctx, func(tx db.Store) error {
		allowed, err := service.can(ctx, tx, grantor, req.ContentType, req.ContentID, db.PermManage)
		if err != nil {
			return err
		}
		if !allowed {
			return ErrForbidden
		}

		if _, err := tx.GetUser(ctx, req.GranteeID); err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return ErrGranteeNotFound
			}
			return err
		}

		existing, err := tx.GetAssignment(ctx, req.ContentType, req.ContentID, req.GranteeID)
		switch {
		case errors.Is(err, db.ErrNotFound):
			existing = &db.SharingAssignment{
				Model:       db.NewModel(),
				ContentType: req.ContentType,
				ContentID:   req.ContentID,
				GranteeID:   req.GranteeID,
			}
		case err != nil:
			return err
		}

		existing.GrantorID = grantor.ID
		existing.Role = role
		existing.Permissions = perms
		existing.ExpiresAt = req.ExpiresAt
		existing.Active = true
		if err := tx.SaveAssignment(ctx, existing); err != nil {
			return err
		}

		assignment = existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	util.LOGGER.Info("Content shared", "content_type", req.ContentType, "content_id", req.ContentID,
		"grantee_id", req.GranteeID, "permissions", fmt.Sprint(perms))
	return assignment, nil
}

// Deactivate an assignment. Allowed for whoever could grant it, and for the grantee giving it up
func (service *Service) Revoke(ctx context.Context, actor Actor, assignmentID uuid.UUID) (*db.SharingAssignment, error) {
	var assignment *db.SharingAssignment
	err := service.store.WithinTx(ctx, func(tx db.Store) error {
		existing, err := tx.GetAssignmentByID(ctx, assignmentID)
		if errors.Is(err, db.ErrNotFound) {
			return ErrAssignmentNotFound
		}
		if err != nil {
			return err
		}

		if existing.GranteeID != actor.ID {
			allowed, err := service.can(ctx, tx, actor, existing.ContentType, existing.ContentID, db.PermManage)
			if err != nil {
				return err
			}
			if !allowed {
				return ErrForbidden
			}
		}

		existing.Active = false
		if err := tx.SaveAssignment(ctx, existing); err != nil {
			return err
		}
		assignment = existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	util.LOGGER.Info("Sharing revoked", "assignment_id", assignmentID, "by", actor.ID)
	return assignment, nil
}

// Whether the actor holds the permission on the content
func (service *Service) Can(ctx context.Context, actor Actor, contentType db.ContentType, contentID uuid.UUID, perm db.Permission) (bool, error) {
	return service.can(ctx, service.store, actor, contentType, contentID, perm)
}

// Same as Can for the subject a ticket admits to
func (service *Service) CanOnSubject(ctx context.Context, actor Actor, subjectType db.SubjectType, subjectID uuid.UUID, perm db.Permission) (bool, error) {
	return service.Can(ctx, actor, subjectContentType(subjectType), subjectID, perm)
}

func (service *Service) can(ctx context.Context, store db.Store, actor Actor, contentType db.ContentType, contentID uuid.UUID, perm db.Permission) (bool, error) {
	resolved, err := resolveOwners(ctx, store, contentType, contentID)
	if err != nil {
		return false, err
	}
	if actor.Role == db.Admin || resolved.isOwner(actor.ID) {
		return true, nil
	}

	// The content itself, its session delegation, then the page it belongs to
	scopes := []scope{{contentType, contentID}}
	if resolved.subjectType != "" {
		scopes = append(scopes, scope{db.ContentSession, contentID}, scope{subjectContentType(resolved.subjectType), contentID})
	}
	if resolved.pageID != nil && contentType != db.ContentPage {
		scopes = append(scopes, scope{db.ContentPage, *resolved.pageID})
	}

	seen := map[scope]bool{}
	for _, s := range scopes {
		if seen[s] {
			continue
		}
		seen[s] = true

		assignment, err := store.GetAssignment(ctx, s.contentType, s.contentID, actor.ID)
		if errors.Is(err, db.ErrNotFound) {
			continue
		}
		if err != nil {
			return false, err
		}

		live, err := service.live(ctx, store, assignment)
		if err != nil {
			return false, err
		}
		if live && assignment.Permissions.Has(perm) {
			return true, nil
		}
	}
	return false, nil
}

// Whether an assignment is in force. An expired assignment found active is deactivated here
func (service *Service) live(ctx context.Context, store db.Store, assignment *db.SharingAssignment) (bool, error) {
	if !assignment.Active {
		return false, nil
	}
	if assignment.ExpiresAt == nil || service.now().Before(*assignment.ExpiresAt) {
		return true, nil
	}

	assignment.Active = false
	if err := store.SaveAssignment(ctx, assignment); err != nil {
		return false, err
	}
	util.LOGGER.Info("Sharing assignment expired", "assignment_id", assignment.ID, "grantee_id", assignment.GranteeID)
	return false, nil
}

type scope struct {
	contentType db.ContentType
	contentID   uuid.UUID
}

type owners struct {
	pageOwner   *uuid.UUID
	legacyOwner *uuid.UUID
	pageID      *uuid.UUID
	subjectType db.SubjectType
}

func (o owners) isOwner(id uuid.UUID) bool {
	return (o.pageOwner != nil && *o.pageOwner == id) || (o.legacyOwner != nil && *o.legacyOwner == id)
}

// Owners of a piece of content. Events and activities are owned through their page, with the legacy
// creator as a fallback. A session is addressed by the ID of its event or activity
func resolveOwners(ctx context.Context, store db.Store, contentType db.ContentType, contentID uuid.UUID) (owners, error) {
	switch contentType {
	case db.ContentPage:
		page, err := store.GetPage(ctx, contentID)
		if errors.Is(err, db.ErrNotFound) {
			return owners{}, ErrContentNotFound
		}
		if err != nil {
			return owners{}, err
		}
		return owners{pageOwner: &page.OwnerID, pageID: &page.ID}, nil

	case db.ContentEvent, db.ContentActivity, db.ContentSession:
		var subject *db.Subject
		var err error
		for _, subjectType := range subjectTypesFor(contentType) {
			subject, err = store.GetSubject(ctx, subjectType, contentID, false)
			if err == nil || !errors.Is(err, db.ErrNotFound) {
				break
			}
		}
		if errors.Is(err, db.ErrNotFound) {
			return owners{}, ErrContentNotFound
		}
		if err != nil {
			return owners{}, err
		}

		result := owners{legacyOwner: subject.LegacyOwner, pageID: subject.OwnerPageID, subjectType: subject.Type}
		if subject.OwnerPageID != nil {
			page, err := store.GetPage(ctx, *subject.OwnerPageID)
			switch {
			case err == nil:
				result.pageOwner = &page.OwnerID
			case !errors.Is(err, db.ErrNotFound):
				return owners{}, err
			}
		}
		return result, nil

	default:
		return owners{}, fmt.Errorf("%w: %q", ErrUnknownContentType, contentType)
	}
}

func subjectTypesFor(contentType db.ContentType) []db.SubjectType {
	switch contentType {
	case db.ContentEvent:
		return []db.SubjectType{db.SubjectEvent}
	case db.ContentActivity:
		return []db.SubjectType{db.SubjectActivity}
	default:
		return []db.SubjectType{db.SubjectEvent, db.SubjectActivity}
	}
}

func subjectContentType(subjectType db.SubjectType) db.ContentType {
	if subjectType == db.SubjectActivity {
		return db.ContentActivity
	}
	return db.ContentEvent
}

func validatePermissions(perms db.Permissions) (db.Permissions, error) {
	if len(perms) == 0 {
		return nil, ErrEmptyPermissionList
	}
	result := db.Permissions{}
	for _, perm := range perms {
		perm = db.Permission(strings.ToLower(strings.TrimSpace(string(perm))))
		if !slices.Contains(knownPermissions, perm) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownPermission, perm)
		}
		if !slices.Contains(result, perm) {
			result = append(result, perm)
		}
	}
	return result, nil
}

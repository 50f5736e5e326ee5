package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/droppoint-backend/pkg/db/models"
	"github.com/angelmondragon/droppoint-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/droppoint-backend/pkg/errors"
	"github.com/angelmondragon/droppoint-backend/pkg/pagination"
)

// Viewer selects a feed: customers read their own rows, staff and admins share one feed.
type Viewer struct {
	Audience    enums.NotificationAudience
	RecipientID *uuid.UUID
}

// ViewerFor maps an authenticated caller onto its feed.
func ViewerFor(userID uuid.UUID, role enums.ActorRole) (Viewer, error) {
	switch {
	case userID == uuid.Nil:
		return Viewer{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	case role.IsOperator():
		return Viewer{Audience: enums.AudienceStaff}, nil
	case role == enums.ActorRoleCustomer:
		return Viewer{Audience: enums.AudienceCustomer, RecipientID: &userID}, nil
	default:
		return Viewer{}, pkgerrors.New(pkgerrors.CodeForbidden, "role has no notification feed")
	}
}

func (v Viewer) validate() error {
	if !v.Audience.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification audience required")
	}
	return nil
}

func (v Viewer) scope(db *gorm.DB) *gorm.DB {
	db = db.Where("audience = ?", v.Audience)
	if v.RecipientID != nil {
		db = db.Where("recipient_id = ?", *v.RecipientID)
	}
	return db
}

// Service reads and acknowledges a viewer's feed.
type Service interface {
	List(ctx context.Context, params ListParams) (*ListResult, error)
	MarkRead(ctx context.Context, viewer Viewer, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, viewer Viewer) (int64, error)
}

type ListParams struct {
	Viewer     Viewer
	Limit      int
	Cursor     string
	UnreadOnly bool
}

// ListResult is one page, newest first. Cursor is empty on the last page.
type ListResult struct {
	Items  []models.Notification `json:"items"`
	Cursor string                `json:"cursor"`
}

type service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	return &service{repo: repo, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if err := params.Viewer.validate(); err != nil {
		return nil, err
	}
	q := feedQuery{Viewer: params.Viewer, Limit: params.Limit, UnreadOnly: params.UnreadOnly}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		q.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}
	out := &ListResult{Items: rows}
	if out.Items == nil {
		out.Items = []models.Notification{}
	}
	if next != nil {
		out.Cursor = pagination.EncodeCursor(*next)
	}
	return out, nil
}

// MarkRead is idempotent: an already-read row still succeeds.
func (s *service) MarkRead(ctx context.Context, viewer Viewer, notificationID uuid.UUID) error {
	if err := viewer.validate(); err != nil {
		return err
	}
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}
	found, err := s.repo.MarkRead(ctx, viewer, notificationID, s.now())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if !found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, viewer Viewer) (int64, error) {
	if err := viewer.validate(); err != nil {
		return 0, err
	}
	n, err := s.repo.MarkAllRead(ctx, viewer, s.now())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return n, nil
}

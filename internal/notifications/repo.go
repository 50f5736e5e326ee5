package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/droppoint-backend/pkg/db"
	"github.com/angelmondragon/droppoint-backend/pkg/db/models"
	"github.com/angelmondragon/droppoint-backend/pkg/pagination"
)

// Repository persists feed rows. Every read and write is scoped to a Viewer.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateBatch(ctx context.Context, rows []models.Notification) error
	List(ctx context.Context, q feedQuery) ([]models.Notification, *pagination.Cursor, error)
	// MarkRead reports whether the row exists for the viewer, read or not.
	MarkRead(ctx context.Context, viewer Viewer, id uuid.UUID, at time.Time) (bool, error)
	MarkAllRead(ctx context.Context, viewer Viewer, at time.Time) (int64, error)
}

type feedQuery struct {
	Viewer     Viewer
	Limit      int
	Cursor     *pagination.Cursor
	UnreadOnly bool
}

type feedStore struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &feedStore{db: db}
}

func (s *feedStore) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return s
	}
	return &feedStore{db: tx}
}

func (s *feedStore) CreateBatch(ctx context.Context, rows []models.Notification) error {
	if len(rows) == 0 {
		return nil
	}
	for i := range rows {
		if rows[i].ID == uuid.Nil {
			rows[i].ID = uuid.New()
		}
	}
	return dbpkg.Classify(s.db.WithContext(ctx).Create(&rows).Error, "insert feed rows")
}

func (s *feedStore) List(ctx context.Context, q feedQuery) ([]models.Notification, *pagination.Cursor, error) {
	var rows []models.Notification
	err := s.feed(ctx, q.Viewer).
		Scopes(unreadOnly(q.UnreadOnly), pagination.Keyset(q.Cursor)).
		Limit(pagination.LimitWithBuffer(q.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, nil, err
	}
	page, next := pagination.Trim(rows, q.Limit, func(n models.Notification) pagination.Cursor {
		return pagination.Cursor{CreatedAt: n.CreatedAt, ID: n.ID}
	})
	return page, next, nil
}

func (s *feedStore) MarkRead(ctx context.Context, viewer Viewer, id uuid.UUID, at time.Time) (bool, error) {
	res := s.feed(ctx, viewer).Scopes(unreadOnly(true)).Where("id = ?", id).UpdateColumn("read_at", at)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}
	// nothing updated: either already read or not in this viewer's feed
	var n int64
	if err := s.feed(ctx, viewer).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *feedStore) MarkAllRead(ctx context.Context, viewer Viewer, at time.Time) (int64, error) {
	res := s.feed(ctx, viewer).Scopes(unreadOnly(true)).UpdateColumn("read_at", at)
	return res.RowsAffected, res.Error
}

func (s *feedStore) feed(ctx context.Context, viewer Viewer) *gorm.DB {
	return s.db.WithContext(ctx).Model(&models.Notification{}).Scopes(viewer.scope)
}

func unreadOnly(on bool) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if !on {
			return db
		}
		return db.Where("read_at IS NULL")
	}
}

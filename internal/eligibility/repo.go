package eligibility

import (
	"context"
	"errors"
	"strings"

	"github.com/angelmondragon/droppoint-backend/pkg/db/models"
	"github.com/angelmondragon/droppoint-backend/pkg/enums"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository reads the area configuration and writes the origin singleton.
type Repository interface {
	LoadSnapshot(ctx context.Context) (*Snapshot, error)
	IsPostalEligible(ctx context.Context, code string) (bool, error)
	FindOrigin(ctx context.Context) (*models.OriginCenter, error)
	UpsertOrigin(ctx context.Context, origin *models.OriginCenter) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the eligibility repository to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) LoadSnapshot(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}

	origin, err := r.FindOrigin(ctx)
	if err != nil {
		return nil, err
	}
	snap.Origin = origin

	if err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("created_at ASC").
		Find(&snap.ServicePoints).Error; err != nil {
		return nil, err
	}

	var slots []models.DistanceSlot
	if err := r.db.WithContext(ctx).Find(&slots).Error; err != nil {
		return nil, err
	}
	for _, slot := range slots {
		switch slot.Kind {
		case enums.SlotKindCharge:
			snap.ChargeSlots = append(snap.ChargeSlots, slot)
		case enums.SlotKindTime:
			snap.TimeSlots = append(snap.TimeSlots, slot)
		}
	}
	sortSlots(snap.ChargeSlots)
	sortSlots(snap.TimeSlots)

	return snap, nil
}

func (r *repository) IsPostalEligible(ctx context.Context, code string) (bool, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return false, nil
	}
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PostalEligibility{}).
		Where("code = ? AND active = ?", code, true).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) FindOrigin(ctx context.Context) (*models.OriginCenter, error) {
	var origin models.OriginCenter
	err := r.db.WithContext(ctx).Where("id = ?", models.OriginCenterID).First(&origin).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &origin, nil
}

// UpsertOrigin replaces the singleton row; the id is always forced to OriginCenterID.
func (r *repository) UpsertOrigin(ctx context.Context, origin *models.OriginCenter) error {
	origin.ID = models.OriginCenterID
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"label", "location", "active", "updated_by", "updated_at"}),
		}).
		Create(origin).Error
}

package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/droppoint-backend/pkg/types"
)

// OriginCenterID is the primary key of the single origin row.
const OriginCenterID = 1

// OriginCenter is the singleton dispatch origin every distance is measured from.
type OriginCenter struct {
	ID        int                  `gorm:"column:id;primaryKey" json:"id"`
	Label     string               `gorm:"column:label;not null" json:"label"`
	Location  types.GeographyPoint `gorm:"column:location;type:geography(Point,4326);not null" json:"location"`
	Active    bool                 `gorm:"column:active;not null" json:"active"`
	UpdatedBy *uuid.UUID           `gorm:"column:updated_by;type:uuid" json:"updatedBy,omitempty"`
	UpdatedAt time.Time            `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (OriginCenter) TableName() string { return "origin_center" }

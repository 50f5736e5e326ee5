package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/droppoint-backend/pkg/types"
)

// ServicePoint is a circular service area.
type ServicePoint struct {
	ID        uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Label     string               `gorm:"column:label;not null"`
	Center    types.GeographyPoint `gorm:"column:center;type:geography(Point,4326);not null"`
	RadiusKm  float64              `gorm:"column:radius_km;not null"`
	Active    bool                 `gorm:"column:active;not null"`
	CreatedAt time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

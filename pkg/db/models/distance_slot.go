package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/droppoint-backend/pkg/enums"
)

// DistanceSlot maps a distance range to a fee (charge) or minutes (time).
type DistanceSlot struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Kind          enums.SlotKind  `gorm:"column:kind;not null"`
	Position      int             `gorm:"column:position;not null;default:0"`
	MinDistanceKm float64         `gorm:"column:min_distance_km;not null"`
	MaxDistanceKm float64         `gorm:"column:max_distance_km;not null"`
	Value         decimal.Decimal `gorm:"column:value;type:numeric(12,2);not null"`
}

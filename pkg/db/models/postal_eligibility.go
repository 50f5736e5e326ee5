package models

// PostalEligibility is one allow-listed delivery postal code.
type PostalEligibility struct {
	Code      string `gorm:"column:code;primaryKey"`
	AreaLabel string `gorm:"column:area_label;not null"`
	Active    bool   `gorm:"column:active;not null"`
}

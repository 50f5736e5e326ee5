package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/droppoint-backend/pkg/enums"
)

// Notification is one row of a viewer's order feed.
type Notification struct {
	ID          uuid.UUID                  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Audience    enums.NotificationAudience `gorm:"column:audience;not null" json:"audience"`
	RecipientID *uuid.UUID                 `gorm:"column:recipient_id;type:uuid" json:"recipientId,omitempty"`
	OrderID     uuid.UUID                  `gorm:"column:order_id;type:uuid;not null" json:"orderId"`
	Type        enums.NotificationType     `gorm:"column:type;not null" json:"type"`
	Title       string                     `gorm:"column:title;not null" json:"title"`
	Message     string                     `gorm:"column:message;not null" json:"message"`
	ReadAt      *time.Time                 `gorm:"column:read_at" json:"readAt,omitempty"`
	CreatedAt   time.Time                  `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

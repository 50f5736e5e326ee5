package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/droppoint-backend/pkg/enums"
	"github.com/angelmondragon/droppoint-backend/pkg/types"
)

// Order is the delivery order aggregate root. The total is never stored; see TotalAmount.
type Order struct {
	ID                uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID        uuid.UUID               `gorm:"column:customer_id;type:uuid;not null"`
	AddressLine       string                  `gorm:"column:address_line;not null"`
	Building          *string                 `gorm:"column:building"`
	Unit              *string                 `gorm:"column:unit"`
	PostalCode        string                  `gorm:"column:postal_code;not null"`
	Destination       *types.GeographyPoint   `gorm:"column:destination;type:geography(Point,4326)"`
	DistanceKm        float64                 `gorm:"column:distance_km;not null"`
	DeliveryFee       decimal.Decimal         `gorm:"column:delivery_fee;type:numeric(12,2);not null"`
	EstimatedMinutes  int                     `gorm:"column:estimated_minutes;not null"`
	Currency          string                  `gorm:"column:currency;not null"`
	PaymentMethod     enums.PaymentMethod     `gorm:"column:payment_method;not null"`
	PaymentStatus     enums.PaymentStatus     `gorm:"column:payment_status;not null;default:'pending'"`
	FulfillmentStatus enums.FulfillmentStatus `gorm:"column:fulfillment_status;not null;default:'pending'"`
	GatewayIntentID   *string                 `gorm:"column:gateway_intent_id"`
	GatewayPaymentID  *string                 `gorm:"column:gateway_payment_id"`
	GatewaySignature  *string                 `gorm:"column:gateway_signature"`
	IntentCreatedAt   *time.Time              `gorm:"column:intent_created_at"`
	HandledBy         *uuid.UUID              `gorm:"column:handled_by;type:uuid"`
	CreatedAt         time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time               `gorm:"column:updated_at;autoUpdateTime"`
	LineItems         []OrderLineItem         `gorm:"foreignKey:OrderID"`
}

// Subtotal sums the line totals.
func (o Order) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range o.LineItems {
		sum = sum.Add(item.LineTotal)
	}
	return sum
}

// TotalAmount is the sum of line totals plus the delivery fee.
func (o Order) TotalAmount() decimal.Decimal {
	return o.Subtotal().Add(o.DeliveryFee)
}

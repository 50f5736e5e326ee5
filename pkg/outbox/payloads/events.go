package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/droppoint-backend/pkg/db/models"
	"github.com/angelmondragon/droppoint-backend/pkg/enums"
	"github.com/angelmondragon/droppoint-backend/pkg/types"
)

// OrderView is the order representation shared by the query API, the live
// stream and published events.
type OrderView struct {
	ID                uuid.UUID               `json:"id"`
	CustomerID        uuid.UUID               `json:"customerId"`
	LineItems         []LineItemView          `json:"lineItems"`
	Destination       DestinationView         `json:"destination"`
	DistanceKm        float64                 `json:"distanceKm"`
	DeliveryFee       decimal.Decimal         `json:"deliveryFee"`
	EstimatedMinutes  int                     `json:"estimatedMinutes"`
	TotalAmount       decimal.Decimal         `json:"totalAmount"`
	Currency          string                  `json:"currency"`
	PaymentMethod     enums.PaymentMethod     `json:"paymentMethod"`
	PaymentStatus     enums.PaymentStatus     `json:"paymentStatus"`
	FulfillmentStatus enums.FulfillmentStatus `json:"fulfillmentStatus"`
	GatewayIntentID   *string                 `json:"gatewayIntentId,omitempty"`
	GatewayPaymentID  *string                 `json:"gatewayPaymentId,omitempty"`
	HandledBy         *uuid.UUID              `json:"handledBy,omitempty"`
	CreatedAt         time.Time               `json:"createdAt"`
	UpdatedAt         time.Time               `json:"updatedAt"`
}

// LineItemView is one priced line of an order.
type LineItemView struct {
	CatalogRef uuid.UUID       `json:"catalogRef"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	LineTotal  decimal.Decimal `json:"lineTotal"`
}

// DestinationView is the delivery address of an order.
type DestinationView struct {
	AddressLine string                `json:"addressLine"`
	Building    *string               `json:"building,omitempty"`
	Unit        *string               `json:"unit,omitempty"`
	PostalCode  string                `json:"postalCode"`
	Point       *types.GeographyPoint `json:"point,omitempty"`
}

// OrderChangedEvent is the payload of every order event: {type, order}.
type OrderChangedEvent struct {
	Type  enums.OutboxEventType `json:"type"`
	Order OrderView             `json:"order"`
}

// NewOrderView maps the persisted aggregate to its wire representation.
func NewOrderView(order models.Order) OrderView {
	items := make([]LineItemView, 0, len(order.LineItems))
	for _, item := range order.LineItems {
		items = append(items, LineItemView{
			CatalogRef: item.CatalogItemID,
			Name:       item.Name,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			LineTotal:  item.LineTotal,
		})
	}
	return OrderView{
		ID:         order.ID,
		CustomerID: order.CustomerID,
		LineItems:  items,
		Destination: DestinationView{
			AddressLine: order.AddressLine,
			Building:    order.Building,
			Unit:        order.Unit,
			PostalCode:  order.PostalCode,
			Point:       order.Destination,
		},
		DistanceKm:        order.DistanceKm,
		DeliveryFee:       order.DeliveryFee,
		EstimatedMinutes:  order.EstimatedMinutes,
		TotalAmount:       order.TotalAmount(),
		Currency:          order.Currency,
		PaymentMethod:     order.PaymentMethod,
		PaymentStatus:     order.PaymentStatus,
		FulfillmentStatus: order.FulfillmentStatus,
		GatewayIntentID:   order.GatewayIntentID,
		GatewayPaymentID:  order.GatewayPaymentID,
		HandledBy:         order.HandledBy,
		CreatedAt:         order.CreatedAt,
		UpdatedAt:         order.UpdatedAt,
	}
}

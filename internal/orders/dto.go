package orders

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/droppoint-backend/pkg/db/models"
	"github.com/angelmondragon/droppoint-backend/pkg/enums"
	"github.com/angelmondragon/droppoint-backend/pkg/pagination"
	"github.com/angelmondragon/droppoint-backend/pkg/types"
)

// Actor is the authenticated caller behind a mutation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.ActorRole
}

// SystemActor is used by background jobs.
var SystemActor = Actor{Role: enums.ActorRoleSystem}

// CartItem is one requested catalog entry. Prices are never accepted from callers.
type CartItem struct {
	CatalogRef uuid.UUID
	Quantity   int
}

// DestinationInput is the delivery address captured at checkout.
type DestinationInput struct {
	AddressLine string
	Building    *string
	Unit        *string
	PostalCode  string
	Point       *types.GeographyPoint
}

// PlaceOrderInput is the raw checkout request.
type PlaceOrderInput struct {
	Actor          Actor
	Items          []CartItem
	Destination    DestinationInput
	PaymentMethod  enums.PaymentMethod
	IdempotencyKey string
}

// PaymentIntent is the gateway-side intent opened for a gateway order.
type PaymentIntent struct {
	OrderID         uuid.UUID `json:"orderId"`
	GatewayIntentID string    `json:"gatewayIntentId"`
	AmountMinor     int64     `json:"amountMinorUnits"`
	Currency        string    `json:"currency"`
}

// PlaceOrderResult carries the persisted order and, for gateway orders, its
// intent. PaymentErr is set instead of Payment when the order was stored but
// the intent could not be opened; the caller retries payment on the order.
type PlaceOrderResult struct {
	Order      *models.Order
	Payment    *PaymentIntent
	PaymentErr error
}

// AdvanceFulfillmentInput requests a fulfillment transition.
type AdvanceFulfillmentInput struct {
	OrderID uuid.UUID
	Status  enums.FulfillmentStatus
	Actor   Actor
}

// SetPaymentStatusInput records cash collection.
type SetPaymentStatusInput struct {
	OrderID uuid.UUID
	Status  enums.PaymentStatus
	Actor   Actor
}

// InitiatePaymentInput opens a gateway intent for an order.
type InitiatePaymentInput struct {
	OrderID        uuid.UUID
	Actor          Actor
	IdempotencyKey string
}

// ListParams are the caller-facing list filters.
type ListParams struct {
	Pagination pagination.Params
	Status     *enums.FulfillmentStatus
}

// ListQuery is the repository-level list filter.
type ListQuery struct {
	CustomerID *uuid.UUID
	Status     *enums.FulfillmentStatus
	Limit      int
	Cursor     string
}

// OrderList is one page of orders, newest first.
type OrderList struct {
	Orders     []models.Order
	NextCursor string
}

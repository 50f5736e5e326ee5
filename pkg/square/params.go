package square

import (
	"errors"
	"strings"

	sq "github.com/square/square-go-sdk"
)

// OrderIntentParams describes the amount a customer must settle for one delivery order.
type OrderIntentParams struct {
	AmountMinor    int64
	Currency       string
	LocationID     string
	ReferenceID    string
	Description    string
	IdempotencyKey string
}

func (p OrderIntentParams) validate() error {
	if p.AmountMinor <= 0 {
		return errors.New("amount must be positive")
	}
	if strings.TrimSpace(p.LocationID) == "" {
		return errLocationRequired
	}
	if strings.TrimSpace(p.ReferenceID) == "" {
		return errors.New("reference id is required")
	}
	return nil
}

// toSquareRequest models the delivery order as a single line carrying the
// full amount; items are already priced on our side.
func (p OrderIntentParams) toSquareRequest() *sq.CreateOrderRequest {
	name := strings.TrimSpace(p.Description)
	if name == "" {
		name = "Delivery order " + p.ReferenceID
	}
	amount := p.AmountMinor
	currency := sq.Currency(strings.ToUpper(strings.TrimSpace(p.Currency)))
	if currency == "" {
		currency = sq.Currency("USD")
	}
	return &sq.CreateOrderRequest{
		IdempotencyKey: optional(p.IdempotencyKey),
		Order: &sq.Order{
			LocationID:  strings.TrimSpace(p.LocationID),
			ReferenceID: optional(p.ReferenceID),
			LineItems: []*sq.OrderLineItem{{
				Name:           optional(name),
				Quantity:       "1",
				BasePriceMoney: &sq.Money{Amount: &amount, Currency: &currency},
			}},
		},
	}
}

func optional(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}

package enums

// FulfillmentStatus tracks the delivery progress of an order.
type FulfillmentStatus string

const (
	FulfillmentPending    FulfillmentStatus = "pending"
	FulfillmentConfirmed  FulfillmentStatus = "confirmed"
	FulfillmentProcessing FulfillmentStatus = "processing"
	FulfillmentDelivered  FulfillmentStatus = "delivered"
	FulfillmentCancelled  FulfillmentStatus = "cancelled"
)

var fulfillmentStatuses = newSet("fulfillment status",
	FulfillmentPending,
	FulfillmentConfirmed,
	FulfillmentProcessing,
	FulfillmentDelivered,
	FulfillmentCancelled,
)

func (f FulfillmentStatus) String() string { return string(f) }

func (f FulfillmentStatus) IsValid() bool { return fulfillmentStatuses.has(f) }

// IsTerminal reports whether no further transition is allowed.
func (f FulfillmentStatus) IsTerminal() bool {
	return f == FulfillmentDelivered || f == FulfillmentCancelled
}

func ParseFulfillmentStatus(value string) (FulfillmentStatus, error) {
	return fulfillmentStatuses.parse(value)
}

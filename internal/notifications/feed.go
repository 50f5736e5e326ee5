package notifications

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/droppoint-backend/pkg/db/models"
	"github.com/angelmondragon/droppoint-backend/pkg/enums"
	"github.com/angelmondragon/droppoint-backend/pkg/outbox/payloads"
)

// BuildFeedRows renders the customer and staff feed rows for an order event.
// Events that carry no viewer-visible change return nil.
func BuildFeedRows(event payloads.OrderChangedEvent) []models.Notification {
	order := event.Order
	short := shortID(order.ID)
	customer := order.CustomerID

	var (
		kind          enums.NotificationType
		customerTitle string
		customerMsg   string
		staffTitle    string
		staffMsg      string
	)
	switch event.Type {
	case enums.EventOrderCreated:
		kind = enums.NotificationTypeOrderCreated
		customerTitle = "Order received"
		customerMsg = fmt.Sprintf("Order %s was placed. Estimated delivery in %d minutes.", short, order.EstimatedMinutes)
		staffTitle = "New order"
		staffMsg = fmt.Sprintf("Order %s (%s, %s %s) is waiting for confirmation.", short, order.PaymentMethod, order.TotalAmount.StringFixed(2), order.Currency)
	case enums.EventOrderFulfillmentChanged:
		kind = enums.NotificationTypeOrderUpdated
		customerTitle = "Order " + string(order.FulfillmentStatus)
		customerMsg = fmt.Sprintf("Order %s is now %s.", short, order.FulfillmentStatus)
		staffTitle = customerTitle
		staffMsg = customerMsg
	case enums.EventOrderPaymentChanged, enums.EventOrderPaymentSettled:
		kind = enums.NotificationTypePaymentUpdate
		if order.PaymentStatus == enums.PaymentStatusPaid {
			customerTitle = "Payment received"
			customerMsg = fmt.Sprintf("Payment for order %s was received.", short)
		} else {
			customerTitle = "Payment updated"
			customerMsg = fmt.Sprintf("Payment for order %s is %s.", short, order.PaymentStatus)
		}
		staffTitle = customerTitle
		staffMsg = customerMsg
	case enums.EventOrderPaymentExpired:
		kind = enums.NotificationTypePaymentUpdate
		customerTitle = "Payment window expired"
		customerMsg = fmt.Sprintf("Order %s was cancelled because payment was not completed.", short)
		staffTitle = "Order cancelled"
		staffMsg = fmt.Sprintf("Order %s expired without payment.", short)
	default:
		return nil
	}

	return []models.Notification{
		{
			Audience:    enums.AudienceCustomer,
			RecipientID: &customer,
			OrderID:     order.ID,
			Type:        kind,
			Title:       customerTitle,
			Message:     strings.TrimSpace(customerMsg),
		},
		{
			Audience: enums.AudienceStaff,
			OrderID:  order.ID,
			Type:     kind,
			Title:    staffTitle,
			Message:  strings.TrimSpace(staffMsg),
		},
	}
}

func shortID(id uuid.UUID) string {
	return strings.ToUpper(id.String()[:8])
}

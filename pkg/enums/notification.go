package enums

// NotificationType is the kind of feed row written for an order change.
type NotificationType string

const (
	NotificationTypeOrderCreated  NotificationType = "order_created"
	NotificationTypeOrderUpdated  NotificationType = "order_updated"
	NotificationTypePaymentUpdate NotificationType = "payment_update"
)

var notificationTypes = newSet("notification type",
	NotificationTypeOrderCreated,
	NotificationTypeOrderUpdated,
	NotificationTypePaymentUpdate,
)

func (n NotificationType) IsValid() bool { return notificationTypes.has(n) }

func ParseNotificationType(value string) (NotificationType, error) {
	return notificationTypes.parse(value)
}

// NotificationAudience selects which viewer a feed row is for.
type NotificationAudience string

const (
	AudienceCustomer NotificationAudience = "customer"
	AudienceStaff    NotificationAudience = "staff"
)

var audiences = newSet("notification audience", AudienceCustomer, AudienceStaff)

func (a NotificationAudience) IsValid() bool { return audiences.has(a) }

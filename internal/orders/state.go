package orders

import "github.com/angelmondragon/droppoint-backend/pkg/enums"

var forwardTransitions = map[enums.FulfillmentStatus]enums.FulfillmentStatus{
	enums.FulfillmentPending:    enums.FulfillmentConfirmed,
	enums.FulfillmentConfirmed:  enums.FulfillmentProcessing,
	enums.FulfillmentProcessing: enums.FulfillmentDelivered,
}

// CanTransition reports whether from -> to is a single forward step or a
// cancellation of a non-terminal order.
func CanTransition(from, to enums.FulfillmentStatus) bool {
	if from.IsTerminal() || !to.IsValid() {
		return false
	}
	if to == enums.FulfillmentCancelled {
		return true
	}
	next, ok := forwardTransitions[from]
	return ok && next == to
}

package notifications

import (
	"sync"

	"github.com/google/uuid"

	"github.com/angelmondragon/droppoint-backend/pkg/outbox/payloads"
)

// EffectKind classifies what a viewer should react to.
type EffectKind string

const (
	EffectNewOrder      EffectKind = "new_order"
	EffectStatusChanged EffectKind = "status_changed"
	EffectRemoved       EffectKind = "order_removed"
)

// Effect is one viewer-side reaction (sound, toast, feed row) to an order state.
type Effect struct {
	Kind    EffectKind
	OrderID uuid.UUID
	Status  string
	Order   payloads.OrderView
}

// StatusKey is the observed state effects are keyed on.
func StatusKey(view payloads.OrderView) string {
	return string(view.FulfillmentStatus) + "/" + string(view.PaymentStatus)
}

// Diff compares the last seen order list with a freshly fetched one and returns
// the effects a viewer missed: new and changed orders in next order, then one
// removal per order that dropped out of the list, in prev order.
func Diff(prev, next []payloads.OrderView) []Effect {
	seen := make(map[uuid.UUID]string, len(prev))
	for _, view := range prev {
		seen[view.ID] = StatusKey(view)
	}

	var effects []Effect
	present := make(map[uuid.UUID]struct{}, len(next))
	for _, view := range next {
		present[view.ID] = struct{}{}
		key := StatusKey(view)
		old, ok := seen[view.ID]
		switch {
		case !ok:
			effects = append(effects, Effect{Kind: EffectNewOrder, OrderID: view.ID, Status: key, Order: view})
		case old != key:
			effects = append(effects, Effect{Kind: EffectStatusChanged, OrderID: view.ID, Status: key, Order: view})
		}
	}
	for _, view := range prev {
		if _, ok := present[view.ID]; ok {
			continue
		}
		present[view.ID] = struct{}{}
		effects = append(effects, Effect{Kind: EffectRemoved, OrderID: view.ID, Status: seen[view.ID], Order: view})
	}
	return effects
}

// Reducer applies each (orderId, status) effect at most once, whichever of the
// push or poll paths delivers it first. It is safe for concurrent use.
type Reducer struct {
	mu      sync.Mutex
	applied map[uuid.UUID]map[string]struct{}
}

// NewReducer returns a Reducer that has seen nothing.
func NewReducer() *Reducer {
	return &Reducer{applied: make(map[uuid.UUID]map[string]struct{})}
}

// Apply reports whether the effect is new. A removal forgets the order and is
// new only if the order was being tracked.
func (r *Reducer) Apply(effect Effect) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.apply(effect)
}

func (r *Reducer) apply(effect Effect) bool {
	statuses, ok := r.applied[effect.OrderID]
	if effect.Kind == EffectRemoved {
		delete(r.applied, effect.OrderID)
		return ok
	}
	if !ok {
		statuses = make(map[string]struct{})
		r.applied[effect.OrderID] = statuses
	}
	if _, done := statuses[effect.Status]; done {
		return false
	}
	statuses[effect.Status] = struct{}{}
	return true
}

// Observe converts a pushed event into an effect and applies it.
func (r *Reducer) Observe(event payloads.OrderChangedEvent) (Effect, bool) {
	effect := Effect{
		Kind:    EffectStatusChanged,
		OrderID: event.Order.ID,
		Status:  StatusKey(event.Order),
		Order:   event.Order,
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, known := r.applied[event.Order.ID]; !known {
		effect.Kind = EffectNewOrder
	}
	return effect, r.apply(effect)
}

// Forget drops an order, e.g. once it reaches a terminal state and leaves the viewer's list.
func (r *Reducer) Forget(orderID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.applied, orderID)
}

package eligibility

import (
	"sort"

	"github.com/angelmondragon/droppoint-backend/pkg/db/models"
)

// Snapshot is the area configuration the engine evaluates against.
type Snapshot struct {
	Origin        *models.OriginCenter
	ServicePoints []models.ServicePoint
	ChargeSlots   []models.DistanceSlot
	TimeSlots     []models.DistanceSlot
}

// ActiveOrigin returns the origin when it is configured and active.
func (s Snapshot) ActiveOrigin() (*models.OriginCenter, bool) {
	if s.Origin == nil || !s.Origin.Active {
		return nil, false
	}
	return s.Origin, true
}

// ActiveServicePoints filters out disabled geofences.
func (s Snapshot) ActiveServicePoints() []models.ServicePoint {
	active := make([]models.ServicePoint, 0, len(s.ServicePoints))
	for _, sp := range s.ServicePoints {
		if sp.Active {
			active = append(active, sp)
		}
	}
	return active
}

// HasSlots reports whether either slot table has rows.
func (s Snapshot) HasSlots() bool {
	return len(s.ChargeSlots) > 0 || len(s.TimeSlots) > 0
}

// LookupSlot returns the first slot whose [min, max] range contains km.
// Both ends are inclusive and ties resolve to table order.
func LookupSlot(slots []models.DistanceSlot, km float64) (models.DistanceSlot, bool) {
	for _, slot := range slots {
		if km >= slot.MinDistanceKm && km <= slot.MaxDistanceKm {
			return slot, true
		}
	}
	return models.DistanceSlot{}, false
}

// sortSlots orders a slot table by position, then by lower bound.
func sortSlots(slots []models.DistanceSlot) {
	sort.SliceStable(slots, func(i, j int) bool {
		if slots[i].Position != slots[j].Position {
			return slots[i].Position < slots[j].Position
		}
		return slots[i].MinDistanceKm < slots[j].MinDistanceKm
	})
}

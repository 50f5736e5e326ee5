package enums

// SlotKind distinguishes the charge table from the time table.
type SlotKind string

const (
	SlotKindCharge SlotKind = "charge"
	SlotKindTime   SlotKind = "time"
)

var slotKinds = newSet("slot kind", SlotKindCharge, SlotKindTime)

func (s SlotKind) IsValid() bool { return slotKinds.has(s) }

func ParseSlotKind(value string) (SlotKind, error) { return slotKinds.parse(value) }

package registry

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/angelmondragon/droppoint-backend/pkg/enums"
	"github.com/angelmondragon/droppoint-backend/pkg/outbox"
	"github.com/angelmondragon/droppoint-backend/pkg/outbox/payloads"
)

// CurrentOrderEventVersion is the envelope version the lifecycle service writes.
const CurrentOrderEventVersion = outbox.EnvelopeVersion

// OrderEventDecodeFunc turns one envelope version's data into the current event shape.
type OrderEventDecodeFunc func(data json.RawMessage) (payloads.OrderChangedEvent, error)

// OrderEventDecoder unwraps published order envelopes for subscribers. Older
// versions stay decodable while messages for them may still be in flight.
type OrderEventDecoder struct {
	mtx       sync.RWMutex
	byVersion map[int]OrderEventDecodeFunc
}

// NewOrderEventDecoder knows the current version out of the box.
func NewOrderEventDecoder() *OrderEventDecoder {
	d := &OrderEventDecoder{byVersion: make(map[int]OrderEventDecodeFunc)}
	d.Register(CurrentOrderEventVersion, decodeOrderEventV1)
	return d
}

// Register installs or replaces the decoder for version.
func (d *OrderEventDecoder) Register(version int, fn OrderEventDecodeFunc) {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	d.byVersion[version] = fn
}

// Decode parses a message body. An event without its own type inherits eventType
// from the message attributes. Envelopes without a version are treated as current.
func (d *OrderEventDecoder) Decode(body []byte, eventType enums.OutboxEventType) (outbox.PayloadEnvelope, payloads.OrderChangedEvent, error) {
	envelope, err := outbox.ParseEnvelope(body)
	if err != nil {
		return envelope, payloads.OrderChangedEvent{}, err
	}
	version := envelope.Version
	if version == 0 {
		version = CurrentOrderEventVersion
	}

	d.mtx.RLock()
	fn, ok := d.byVersion[version]
	d.mtx.RUnlock()
	if !ok {
		return envelope, payloads.OrderChangedEvent{}, fmt.Errorf("decoder not registered for %s@v%d", eventType, version)
	}

	event, err := fn(envelope.Data)
	if err != nil {
		return envelope, payloads.OrderChangedEvent{}, fmt.Errorf("decode %s@v%d: %w", eventType, version, err)
	}
	if event.Type == "" {
		event.Type = eventType
	}
	return envelope, event, nil
}

func decodeOrderEventV1(data json.RawMessage) (payloads.OrderChangedEvent, error) {
	var event payloads.OrderChangedEvent
	err := json.Unmarshal(data, &event)
	return event, err
}

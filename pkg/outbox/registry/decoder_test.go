package registry

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/angelmondragon/droppoint-backend/pkg/enums"
	"github.com/angelmondragon/droppoint-backend/pkg/outbox/payloads"
)

func TestOrderEventDecoderCurrentVersion(t *testing.T) {
	dec := NewOrderEventDecoder()
	body := []byte(`{"version":1,"eventId":"evt-1","data":{"type":"order.fulfillment_changed","order":{"fulfillmentStatus":"confirmed"}}}`)

	envelope, event, err := dec.Decode(body, enums.EventOrderFulfillmentChanged)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if envelope.EventID != "evt-1" {
		t.Fatalf("unexpected envelope %+v", envelope)
	}
	if event.Order.FulfillmentStatus != enums.FulfillmentConfirmed {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestOrderEventDecoderFillsTypeAndDefaultsVersion(t *testing.T) {
	body := []byte(`{"data":{"order":{"paymentStatus":"paid"}}}`)
	_, event, err := NewOrderEventDecoder().Decode(body, enums.EventOrderPaymentSettled)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.Type != enums.EventOrderPaymentSettled || event.Order.PaymentStatus != enums.PaymentStatusPaid {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestOrderEventDecoderVersions(t *testing.T) {
	dec := NewOrderEventDecoder()
	body := []byte(`{"version":2,"data":{}}`)
	if _, _, err := dec.Decode(body, enums.EventOrderCreated); err == nil {
		t.Fatal("expected error for unregistered version")
	}

	dec.Register(2, func(json.RawMessage) (payloads.OrderChangedEvent, error) {
		return payloads.OrderChangedEvent{Type: enums.EventOrderCreated}, nil
	})
	if _, event, err := dec.Decode(body, ""); err != nil || event.Type != enums.EventOrderCreated {
		t.Fatalf("expected v2 decoder, got %+v %v", event, err)
	}

	dec.Register(2, func(json.RawMessage) (payloads.OrderChangedEvent, error) {
		return payloads.OrderChangedEvent{}, errors.New("bad shape")
	})
	if _, _, err := dec.Decode(body, enums.EventOrderCreated); err == nil {
		t.Fatal("expected decode error to surface")
	}
	if _, _, err := dec.Decode([]byte(`not-json`), enums.EventOrderCreated); err == nil {
		t.Fatal("expected envelope error")
	}
}

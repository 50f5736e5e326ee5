package enums

import "testing"

func TestParseStatusesAcceptMixedCase(t *testing.T) {
	if got, err := ParsePaymentStatus("Paid"); err != nil || got != PaymentStatusPaid {
		t.Fatalf("expected paid, got %q err=%v", got, err)
	}
	if got, err := ParseFulfillmentStatus(" Confirmed "); err != nil || got != FulfillmentConfirmed {
		t.Fatalf("expected confirmed, got %q err=%v", got, err)
	}
	if got, err := ParsePaymentMethod("GATEWAY"); err != nil || got != PaymentMethodGateway {
		t.Fatalf("expected gateway, got %q err=%v", got, err)
	}
	if _, err := ParsePaymentStatus("refunded"); err == nil {
		t.Fatal("expected error for unknown payment status")
	}
}

func TestFulfillmentTerminal(t *testing.T) {
	tests := map[FulfillmentStatus]bool{
		FulfillmentPending:    false,
		FulfillmentConfirmed:  false,
		FulfillmentProcessing: false,
		FulfillmentDelivered:  true,
		FulfillmentCancelled:  true,
	}
	for status, want := range tests {
		if got := status.IsTerminal(); got != want {
			t.Fatalf("%s terminal=%v want %v", status, got, want)
		}
	}
}

func TestActorRoleOperator(t *testing.T) {
	if ActorRoleCustomer.IsOperator() {
		t.Fatal("customer is not an operator")
	}
	if !ActorRoleStaff.IsOperator() || !ActorRoleAdmin.IsOperator() {
		t.Fatal("staff and admin are operators")
	}
}

func TestOutboxEventTypes(t *testing.T) {
	if _, err := ParseOutboxEventType("order.payment_settled"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if OutboxEventType("order.unknown").IsValid() {
		t.Fatal("unexpected valid event type")
	}
}

func TestParseReportsLabelAndRawInput(t *testing.T) {
	_, err := ParseSlotKind(" Weekly ")
	if err == nil || err.Error() != `invalid slot kind " Weekly "` {
		t.Fatalf("unexpected error %v", err)
	}
	if got, err := ParseActorRole("STAFF"); err != nil || got != ActorRoleStaff {
		t.Fatalf("expected staff, got %q err=%v", got, err)
	}
	if !OutboxDLQReasonMaxAttempts.IsValid() || OutboxDLQErrorReason("timeout").IsValid() {
		t.Fatal("unexpected dlq reason validity")
	}
}

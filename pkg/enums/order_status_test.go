package enums

import "testing"

func TestParseOrderStatus(t *testing.T) {
	for _, raw := range []string{"Processing", "Shipped", "Delivered", "Cancelled"} {
		got, err := ParseOrderStatus(raw)
		if err != nil {
			t.Fatalf("ParseOrderStatus(%q) returned error: %v", raw, err)
		}
		if got.String() != raw {
			t.Fatalf("expected %q got %q", raw, got)
		}
	}
	for _, raw := range []string{"", "processing", "Refunded"} {
		if _, err := ParseOrderStatus(raw); err == nil {
			t.Fatalf("expected %q to be rejected", raw)
		}
	}
}

func TestOrderStatusesReturnsCopy(t *testing.T) {
	statuses := OrderStatuses()
	statuses[0] = "mutated"
	if !OrderStatusProcessing.IsValid() || OrderStatuses()[0] != OrderStatusProcessing {
		t.Fatal("OrderStatuses must not expose the backing slice")
	}
}

func TestUserRoleAndOutboxEnums(t *testing.T) {
	if _, err := ParseUserRole("admin"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if UserRole("owner").IsValid() {
		t.Fatal("unknown role should be invalid")
	}
	if _, err := ParseOutboxEventType("order_settled"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseOutboxAggregateType("cart"); err == nil {
		t.Fatal("unknown aggregate should be rejected")
	}
}

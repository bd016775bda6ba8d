package enums

import "testing"

func TestOrderStatusDisplayIsTotal(t *testing.T) {
	seen := map[string]OrderStatus{}
	for _, status := range validOrderStatuses {
		display := status.Display()
		if display.Label == "" {
			t.Fatalf("status %s has empty label", status)
		}
		if prev, ok := seen[display.Label]; ok {
			t.Fatalf("label %q shared by %s and %s", display.Label, prev, status)
		}
		seen[display.Label] = status
	}
}

func TestOrderStatusDisplayPanicsOnUnknown(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for unmapped status")
		}
	}()
	OrderStatus("SHIPPED").Display()
}

func TestTicketStatusDisplayIsTotal(t *testing.T) {
	for _, status := range TicketStatuses() {
		if status.Display().Label == "" {
			t.Fatalf("ticket status %s has empty label", status)
		}
	}
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for unmapped ticket status")
		}
	}()
	TicketStatus("reopened").Display()
}

func TestTerminalStatuses(t *testing.T) {
	for _, status := range validOrderStatuses {
		want := status == OrderStatusCompleted || status == OrderStatusCanceled
		if status.IsTerminal() != want {
			t.Fatalf("status %s terminal=%v want %v", status, status.IsTerminal(), want)
		}
	}
}

func TestParseOrderStatus(t *testing.T) {
	got, err := ParseOrderStatus("DISPUTED")
	if err != nil || got != OrderStatusDisputed {
		t.Fatalf("unexpected parse result %q err=%v", got, err)
	}
	if _, err := ParseOrderStatus("disputed"); err == nil {
		t.Fatalf("expected case-sensitive parse to fail")
	}
}

func TestActorRoleSenderType(t *testing.T) {
	cases := map[ActorRole]SenderType{
		ActorRoleBuyer:   SenderTypeBuyer,
		ActorRoleSeller:  SenderTypeSeller,
		ActorRoleSupport: SenderTypeSupport,
		ActorRoleSystem:  SenderTypeSystem,
	}
	for role, want := range cases {
		if got := role.SenderType(); got != want {
			t.Fatalf("role %s sender %s want %s", role, got, want)
		}
	}
}

func TestResolutionOutcomeStatus(t *testing.T) {
	if s, err := ResolutionOutcomeCompleted.Status(); err != nil || s != OrderStatusCompleted {
		t.Fatalf("unexpected completed mapping %s %v", s, err)
	}
	if s, err := ResolutionOutcomeCanceled.Status(); err != nil || s != OrderStatusCanceled {
		t.Fatalf("unexpected canceled mapping %s %v", s, err)
	}
	if _, err := ResolutionOutcome("refund").Status(); err == nil {
		t.Fatalf("expected error for unknown outcome")
	}
}

package enums

import "testing"

func TestParseCheckoutState(t *testing.T) {
	state, err := ParseCheckoutState("awaiting_verification")
	if err != nil || state != CheckoutStateAwaitingVerification {
		t.Fatalf("unexpected parse result %q err=%v", state, err)
	}
	if _, err := ParseCheckoutState("refunded"); err == nil {
		t.Fatal("expected unknown state to fail")
	}
}

func TestCheckoutStateIsBusy(t *testing.T) {
	busy := map[CheckoutState]bool{
		CheckoutStateIdle:                 false,
		CheckoutStateProcessing:           true,
		CheckoutStateAwaitingVerification: true,
		CheckoutStateSuccess:              false,
		CheckoutStateError:                false,
	}
	for state, want := range busy {
		if got := state.IsBusy(); got != want {
			t.Fatalf("%s busy=%v want %v", state, got, want)
		}
	}
}

func TestParsePaymentChannelNormalizes(t *testing.T) {
	channel, err := ParsePaymentChannel("  MPESA ")
	if err != nil || channel != PaymentChannelMPesa {
		t.Fatalf("unexpected channel %q err=%v", channel, err)
	}
	if _, err := ParsePaymentChannel("card"); err == nil {
		t.Fatal("card is not exposed")
	}
}

func TestPanelResources(t *testing.T) {
	if len(PanelResources) != 4 {
		t.Fatalf("expected four panel resources, got %d", len(PanelResources))
	}
	if _, err := ParsePanelResource("tickets"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if PanelResource("ledger").IsValid() {
		t.Fatal("ledger is not a panel resource")
	}
}

func TestTicketTypeStatusPurchasable(t *testing.T) {
	if !TicketTypeStatusActive.IsPurchasable() {
		t.Fatal("active should be purchasable")
	}
	if TicketTypeStatusSoldOut.IsPurchasable() || TicketTypeStatus("").IsPurchasable() {
		t.Fatal("only active is purchasable")
	}
}

func TestParseAdminRole(t *testing.T) {
	if r, err := ParseAdminRole("owner"); err != nil || r != AdminRoleOwner {
		t.Fatalf("unexpected parse result %q err=%v", r, err)
	}
	if _, err := ParseAdminRole("root"); err == nil {
		t.Fatal("expected unknown role to fail")
	}
}

package enums

import "fmt"

// CheckoutState is a node of the checkout payment state machine.
type CheckoutState string

const (
	CheckoutStateIdle                 CheckoutState = "idle"
	CheckoutStateProcessing           CheckoutState = "processing"
	CheckoutStateAwaitingVerification CheckoutState = "awaiting_verification"
	CheckoutStateSuccess              CheckoutState = "success"
	CheckoutStateError                CheckoutState = "error"
)

var validCheckoutStates = []CheckoutState{
	CheckoutStateIdle,
	CheckoutStateProcessing,
	CheckoutStateAwaitingVerification,
	CheckoutStateSuccess,
	CheckoutStateError,
}

// String implements fmt.Stringer.
func (s CheckoutState) String() string {
	return string(s)
}

// IsValid reports whether the value is a known CheckoutState.
func (s CheckoutState) IsValid() bool {
	for _, candidate := range validCheckoutStates {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsBusy reports whether a payment attempt is in flight.
func (s CheckoutState) IsBusy() bool {
	return s == CheckoutStateProcessing || s == CheckoutStateAwaitingVerification
}

// ParseCheckoutState converts raw input into a CheckoutState.
func ParseCheckoutState(value string) (CheckoutState, error) {
	for _, candidate := range validCheckoutStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid checkout state %q", value)
}

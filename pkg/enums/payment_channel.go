package enums

import (
	"fmt"
	"strings"
)

// PaymentChannel identifies the off-band payment rail sent with initiation.
type PaymentChannel string

const (
	PaymentChannelMPesa PaymentChannel = "mpesa"
)

// exposedPaymentChannels lists the rails a shopper can currently pick.
var exposedPaymentChannels = []PaymentChannel{
	PaymentChannelMPesa,
}

func (c PaymentChannel) String() string {
	return string(c)
}

// IsValid reports whether the channel is exposed to shoppers.
func (c PaymentChannel) IsValid() bool {
	for _, candidate := range exposedPaymentChannels {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParsePaymentChannel normalizes and validates a channel identifier.
func ParsePaymentChannel(value string) (PaymentChannel, error) {
	normalized := PaymentChannel(strings.ToLower(strings.TrimSpace(value)))
	if normalized.IsValid() {
		return normalized, nil
	}
	return "", fmt.Errorf("invalid payment channel %q", value)
}

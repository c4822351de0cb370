package enums

import "fmt"

// PanelResource names one independently synchronized admin panel dataset.
type PanelResource string

const (
	PanelResourceBalances      PanelResource = "balances"
	PanelResourceTickets       PanelResource = "tickets"
	PanelResourceTransactions  PanelResource = "transactions"
	PanelResourceComplementary PanelResource = "complementary"
)

// PanelResources is the fixed set of resources every admin panel tracks.
var PanelResources = []PanelResource{
	PanelResourceBalances,
	PanelResourceTickets,
	PanelResourceTransactions,
	PanelResourceComplementary,
}

func (r PanelResource) String() string {
	return string(r)
}

func (r PanelResource) IsValid() bool {
	for _, candidate := range PanelResources {
		if candidate == r {
			return true
		}
	}
	return false
}

func ParsePanelResource(value string) (PanelResource, error) {
	for _, candidate := range PanelResources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid panel resource %q", value)
}

// PanelStatus describes whether a panel is waiting on identifiers or syncing.
type PanelStatus string

const (
	PanelStatusWaitingForPrerequisites PanelStatus = "waiting_for_prerequisites"
	PanelStatusSyncing                 PanelStatus = "syncing"
	PanelStatusClosed                  PanelStatus = "closed"
)

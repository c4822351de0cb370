package panel

import (
	"github.com/angelmondragon/boxoffice-backend/internal/fetch"
	"github.com/angelmondragon/boxoffice-backend/internal/ticketing"
	"github.com/angelmondragon/boxoffice-backend/pkg/enums"
)

// ResourceView is one resource as the panel renders it.
type ResourceView[T any] struct {
	Phase     fetch.Phase `json:"phase"`
	Data      *T          `json:"data"`
	IsLoading bool        `json:"isLoading"`
	Error     *string     `json:"error"`
}

func viewOf[T any](st fetch.State[T]) ResourceView[T] {
	return ResourceView[T]{
		Phase:     st.Phase(),
		Data:      st.Data,
		IsLoading: st.IsLoading,
		Error:     st.Error,
	}
}

// Snapshot is a consistent-per-resource copy of the panel.
type Snapshot struct {
	Params        Params                                        `json:"params"`
	Status        enums.PanelStatus                             `json:"status"`
	Balances      ResourceView[*ticketing.Balances]             `json:"balances"`
	Tickets       ResourceView[[]ticketing.SoldTicket]          `json:"tickets"`
	Transactions  ResourceView[[]ticketing.Transaction]         `json:"transactions"`
	Complementary ResourceView[[]ticketing.ComplementaryTicket] `json:"complementary"`
}

func (s *Synchronizer) Snapshot() Snapshot {
	s.mu.Lock()
	params, status := s.params, s.status
	s.mu.Unlock()
	return Snapshot{
		Params:        params,
		Status:        status,
		Balances:      viewOf(s.balances.State()),
		Tickets:       viewOf(s.tickets.State()),
		Transactions:  viewOf(s.transactions.State()),
		Complementary: viewOf(s.complementary.State()),
	}
}

// Package subscriber defines the subscriber aggregate: an escrow
// balance plus the set of providers it is billed by.
package subscriber

import (
	"slices"

	"github.com/xraph/tally/id"
	"github.com/xraph/tally/types"
)

// Subscriber holds prepaid escrow that providers draw recurring fees
// from. Balance is denominated in settlement-token base units and is
// shared across every linked provider.
type Subscriber struct {
	types.Entity
	ID          id.SubscriberID `json:"id"`
	Owner       types.Address   `json:"owner"`
	Balance     types.Amount    `json:"balance"`
	ProviderIDs []id.ProviderID `json:"provider_ids"`
}

// HasProvider reports whether the subscriber is linked to the provider.
func (s *Subscriber) HasProvider(pid id.ProviderID) bool {
	return slices.Contains(s.ProviderIDs, pid)
}

// AddProvider appends the provider to the subscriber's link list.
func (s *Subscriber) AddProvider(pid id.ProviderID) {
	s.ProviderIDs = append(s.ProviderIDs, pid)
}

// Credit adds to the escrow balance.
func (s *Subscriber) Credit(amount types.Amount) {
	s.Balance = s.Balance.Add(amount)
}

// Debit removes from the escrow balance unconditionally. The balance
// may go negative; callers that must not overdraw check first.
func (s *Subscriber) Debit(amount types.Amount) {
	s.Balance = s.Balance.Sub(amount)
}

// CanAfford reports whether the balance covers the amount.
func (s *Subscriber) CanAfford(amount types.Amount) bool {
	return s.Balance >= amount
}

// Clone returns a deep copy. Stores hand out clones so callers can
// stage mutations without touching committed state.
func (s *Subscriber) Clone() *Subscriber {
	if s == nil {
		return nil
	}
	cp := *s
	cp.ProviderIDs = make([]id.ProviderID, len(s.ProviderIDs))
	copy(cp.ProviderIDs, s.ProviderIDs)
	return &cp
}

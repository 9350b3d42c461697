package mongo

import (
	"time"

	"github.com/xraph/tally/id"
	"github.com/xraph/tally/provider"
	"github.com/xraph/tally/subscriber"
	"github.com/xraph/tally/types"
)

// ==================== Sequence model ====================

type sequenceModel struct {
	Kind   string `bson:"_id"`
	LastID int64  `bson:"last_id"`
}

// ==================== Provider models ====================

type linkModel struct {
	SubscriberID  int64     `bson:"subscriber_id"`
	Paused        bool      `bson:"paused"`
	NextBillingAt time.Time `bson:"next_billing_at"`
}

type providerModel struct {
	ID               int64       `bson:"_id"`
	Owner            string      `bson:"owner"`
	KeyHash          string      `bson:"key_hash"`
	FeePerCycle      int64       `bson:"fee_per_cycle"`
	Cycle            string      `bson:"cycle"`
	Balance          int64       `bson:"balance"`
	Active           bool        `bson:"active"`
	Links            []linkModel `bson:"links"`
	NextWithdrawalAt time.Time   `bson:"next_withdrawal_at"`
	CreatedAt        time.Time   `bson:"created_at"`
	UpdatedAt        time.Time   `bson:"updated_at"`
}

func toProviderModel(p *provider.Provider) *providerModel {
	links := make([]linkModel, len(p.Links))
	for i, l := range p.Links {
		links[i] = linkModel{
			SubscriberID:  int64(l.SubscriberID),
			Paused:        l.Paused,
			NextBillingAt: l.NextBillingAt,
		}
	}
	return &providerModel{
		ID:               int64(p.ID),
		Owner:            string(p.Owner),
		KeyHash:          p.KeyHash,
		FeePerCycle:      p.FeePerCycle.Units(),
		Cycle:            string(p.Cycle),
		Balance:          p.Balance.Units(),
		Active:           p.Active,
		Links:            links,
		NextWithdrawalAt: p.NextWithdrawalAt,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

func fromProviderModel(m *providerModel) *provider.Provider {
	links := make([]provider.Link, len(m.Links))
	for i, l := range m.Links {
		links[i] = provider.Link{
			SubscriberID:  id.SubscriberID(l.SubscriberID),
			Paused:        l.Paused,
			NextBillingAt: l.NextBillingAt,
		}
	}
	p := &provider.Provider{
		ID:               id.ProviderID(m.ID),
		Owner:            types.Address(m.Owner),
		KeyHash:          m.KeyHash,
		FeePerCycle:      types.Units(m.FeePerCycle),
		Cycle:            provider.BillingCycle(m.Cycle),
		Balance:          types.Units(m.Balance),
		Active:           m.Active,
		Links:            links,
		NextWithdrawalAt: m.NextWithdrawalAt,
	}
	p.CreatedAt = m.CreatedAt
	p.UpdatedAt = m.UpdatedAt
	return p
}

// ==================== Subscriber models ====================

type subscriberModel struct {
	ID          int64     `bson:"_id"`
	Owner       string    `bson:"owner"`
	Balance     int64     `bson:"balance"`
	ProviderIDs []int64   `bson:"provider_ids"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func toSubscriberModel(sub *subscriber.Subscriber) *subscriberModel {
	pids := make([]int64, len(sub.ProviderIDs))
	for i, pid := range sub.ProviderIDs {
		pids[i] = int64(pid)
	}
	return &subscriberModel{
		ID:          int64(sub.ID),
		Owner:       string(sub.Owner),
		Balance:     sub.Balance.Units(),
		ProviderIDs: pids,
		CreatedAt:   sub.CreatedAt,
		UpdatedAt:   sub.UpdatedAt,
	}
}

func fromSubscriberModel(m *subscriberModel) *subscriber.Subscriber {
	pids := make([]id.ProviderID, len(m.ProviderIDs))
	for i, pid := range m.ProviderIDs {
		pids[i] = id.ProviderID(pid)
	}
	sub := &subscriber.Subscriber{
		ID:          id.SubscriberID(m.ID),
		Owner:       types.Address(m.Owner),
		Balance:     types.Units(m.Balance),
		ProviderIDs: pids,
	}
	sub.CreatedAt = m.CreatedAt
	sub.UpdatedAt = m.UpdatedAt
	return sub
}

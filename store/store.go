// Package store defines the storage contract for Tally state.
//
// Reads hand out deep copies so callers can stage mutations freely.
// All writes go through a ChangeSet applied atomically: either every
// staged row and sequence advance lands, or none of it does. The
// billing engine relies on this for its all-or-nothing operations.
package store

import (
	"context"

	"github.com/xraph/tally/id"
	"github.com/xraph/tally/provider"
	"github.com/xraph/tally/subscriber"
)

// Store is the unified storage interface for all Tally entities.
// Instead of embedding the sub-interfaces, we explicitly declare all methods
// to avoid naming conflicts.
type Store interface {
	// Sequence methods.
	// Sequence returns the last identifier issued for the kind; zero
	// means none yet. Sequences advance only through an applied
	// ChangeSet so a failed operation never burns an identifier.
	Sequence(ctx context.Context, kind id.Kind) (uint64, error)

	// Provider methods
	GetProvider(ctx context.Context, pid id.ProviderID) (*provider.Provider, error)
	GetProviderByKeyHash(ctx context.Context, keyHash string) (*provider.Provider, error)
	ListProviders(ctx context.Context, opts provider.ListOpts) ([]*provider.Provider, error)
	CountProviders(ctx context.Context) (uint64, error)

	// Subscriber methods
	GetSubscriber(ctx context.Context, sid id.SubscriberID) (*subscriber.Subscriber, error)

	// Apply commits a change set atomically.
	Apply(ctx context.Context, cs *ChangeSet) error

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// ChangeSet is a staged batch of writes. Zero sequence fields leave
// the stored sequence alone; staged entities replace stored rows
// wholesale.
type ChangeSet struct {
	ProviderSeq   uint64
	SubscriberSeq uint64

	Providers       []*provider.Provider
	RemoveProviders []id.ProviderID
	Subscribers     []*subscriber.Subscriber
}

// PutProvider stages a provider write, replacing any earlier staged
// copy with the same ID.
func (cs *ChangeSet) PutProvider(p *provider.Provider) {
	for i, existing := range cs.Providers {
		if existing.ID == p.ID {
			cs.Providers[i] = p
			return
		}
	}
	cs.Providers = append(cs.Providers, p)
}

// PutSubscriber stages a subscriber write, replacing any earlier
// staged copy with the same ID.
func (cs *ChangeSet) PutSubscriber(s *subscriber.Subscriber) {
	for i, existing := range cs.Subscribers {
		if existing.ID == s.ID {
			cs.Subscribers[i] = s
			return
		}
	}
	cs.Subscribers = append(cs.Subscribers, s)
}

// Empty reports whether the change set stages nothing.
func (cs *ChangeSet) Empty() bool {
	return cs.ProviderSeq == 0 && cs.SubscriberSeq == 0 &&
		len(cs.Providers) == 0 && len(cs.RemoveProviders) == 0 &&
		len(cs.Subscribers) == 0
}

package tally

import (
	"context"

	"github.com/xraph/tally/id"
	"github.com/xraph/tally/provider"
	"github.com/xraph/tally/subscriber"
	"github.com/xraph/tally/types"
)

// SubscriberLookup resolves a subscriber record during link matching.
type SubscriberLookup func(ctx context.Context, sid id.SubscriberID) (*subscriber.Subscriber, error)

// LinkMatcher selects which of a provider's links a pause or resume
// request targets. It returns the index into the provider's link list.
type LinkMatcher interface {
	Match(ctx context.Context, p *provider.Provider, sid id.SubscriberID, caller types.Address, lookup SubscriberLookup) (int, error)
}

// OwnerMatch authorizes by scanning the provider's link list in order
// and picking the first link whose subscriber record is owned by the
// caller. The sid argument is ignored: a caller owning several
// subscriber records always acts on the earliest-registered link. This
// is the historical policy; use ExactIDMatch for id-precise targeting.
type OwnerMatch struct{}

var _ LinkMatcher = OwnerMatch{}

func (OwnerMatch) Match(ctx context.Context, p *provider.Provider, _ id.SubscriberID, caller types.Address, lookup SubscriberLookup) (int, error) {
	caller = types.NormalizeAddress(caller)
	for i := range p.Links {
		sub, err := lookup(ctx, p.Links[i].SubscriberID)
		if err != nil {
			// Dangling links left behind by removed subscriber records
			// are skipped; anything else is a store failure.
			if IsNotFound(err) {
				continue
			}
			return -1, err
		}
		if types.NormalizeAddress(sub.Owner) == caller {
			return i, nil
		}
	}
	return -1, ErrSubscriberNotFound
}

// ExactIDMatch targets the link for the given subscriber id and
// requires the caller to own that exact record.
type ExactIDMatch struct{}

var _ LinkMatcher = ExactIDMatch{}

func (ExactIDMatch) Match(ctx context.Context, p *provider.Provider, sid id.SubscriberID, caller types.Address, lookup SubscriberLookup) (int, error) {
	idx := p.LinkIndex(sid)
	if idx < 0 {
		return -1, ErrSubscriberNotFound
	}

	sub, err := lookup(ctx, sid)
	if err != nil {
		return -1, err
	}
	if types.NormalizeAddress(sub.Owner) != types.NormalizeAddress(caller) {
		return -1, ErrNotOwner
	}
	return idx, nil
}

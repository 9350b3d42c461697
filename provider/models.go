// Package provider defines the provider aggregate: a registered
// service offering with its billing terms, public key, accumulated
// earnings, and the ordered list of subscriber links billed against it.
package provider

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"golang.org/x/crypto/sha3"

	"github.com/xraph/tally/id"
	"github.com/xraph/tally/types"
)

// BillingCycle is the recurrence of a provider's fee.
type BillingCycle string

const (
	CycleDay   BillingCycle = "day"
	CycleMonth BillingCycle = "month"
	CycleYear  BillingCycle = "year"
)

// Duration returns the fixed length of one billing cycle. Months are
// 30 days and years are 365 days; calendar alignment is out of scope.
func (c BillingCycle) Duration() time.Duration {
	switch c {
	case CycleDay:
		return 24 * time.Hour
	case CycleMonth:
		return 30 * 24 * time.Hour
	case CycleYear:
		return 365 * 24 * time.Hour
	default:
		return 0
	}
}

// Valid reports whether c is one of the defined cycles.
func (c BillingCycle) Valid() bool {
	return c == CycleDay || c == CycleMonth || c == CycleYear
}

// Link ties a subscriber to a provider. Links are kept in registration
// order; the position of a link in the provider's slice is stable for
// the life of the link.
type Link struct {
	SubscriberID  id.SubscriberID `json:"subscriber_id"`
	Paused        bool            `json:"paused"`
	NextBillingAt time.Time       `json:"next_billing_at"`
}

// Due reports whether the link is billable at the given instant.
func (l Link) Due(now time.Time) bool {
	return !l.Paused && !l.NextBillingAt.After(now)
}

// Provider is a registered offering. Balance holds earnings not yet
// withdrawn, denominated in settlement-token base units.
type Provider struct {
	types.Entity
	ID               id.ProviderID   `json:"id"`
	Owner            types.Address   `json:"owner"`
	KeyHash          string          `json:"key_hash"`
	FeePerCycle      types.Amount    `json:"fee_per_cycle"`
	Cycle            BillingCycle    `json:"cycle"`
	Balance          types.Amount    `json:"balance"`
	Active           bool            `json:"active"`
	Links            []Link          `json:"links"`
	NextWithdrawalAt time.Time       `json:"next_withdrawal_at"`
}

// LinkIndex returns the position of the subscriber's link, or -1.
// Linear scan: link lists are short-lived hot data and iteration order
// is part of the billing contract.
func (p *Provider) LinkIndex(sid id.SubscriberID) int {
	for i := range p.Links {
		if p.Links[i].SubscriberID == sid {
			return i
		}
	}
	return -1
}

// Linked reports whether the subscriber has a link to this provider.
func (p *Provider) Linked(sid id.SubscriberID) bool {
	return p.LinkIndex(sid) >= 0
}

// Clone returns a deep copy. Stores hand out clones so callers can
// stage mutations without touching committed state.
func (p *Provider) Clone() *Provider {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Links = make([]Link, len(p.Links))
	copy(cp.Links, p.Links)
	return &cp
}

// HashKey derives the uniqueness digest binding a provider-chosen key
// to its registrant. The raw key is never stored; two registrations
// collide exactly when both key and owner match.
func HashKey(key []byte, owner types.Address) string {
	h := sha3.New256()
	h.Write(key)
	h.Write([]byte(types.NormalizeAddress(owner)))
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint returns a short stable handle for logs and audit events,
// derived from the key hash. Safe to expose; not reversible.
func Fingerprint(keyHash string) string {
	sum := sha256.Sum256([]byte(keyHash))
	return hex.EncodeToString(sum[:4])
}

// Package id defines identity types for all Tally entities.
//
// Providers and subscribers use dense sequential identifiers allocated
// by the store, starting at 1; zero always means "absent". Event and
// receipt records use TypeIDs, which are K-sortable (UUIDv7-based),
// globally unique, and URL-safe in the format "prefix_suffix".
package id

import (
	"fmt"
	"strconv"
)

// ──────────────────────────────────────────────────
// Sequential identifiers
// ──────────────────────────────────────────────────

// Kind selects which identifier sequence an allocation draws from.
type Kind string

// Kind constants for the sequential identifier spaces.
const (
	KindProvider   Kind = "provider"
	KindSubscriber Kind = "subscriber"
)

// ProviderID identifies a registered provider. The zero value is never
// allocated and marks a missing or removed provider.
type ProviderID uint64

// IsZero reports whether the ID is unallocated.
func (p ProviderID) IsZero() bool { return p == 0 }

// String implements fmt.Stringer.
func (p ProviderID) String() string { return strconv.FormatUint(uint64(p), 10) }

// ParseProviderID parses a decimal provider ID. Zero is rejected.
func ParseProviderID(s string) (ProviderID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("id: parse provider id %q: %w", s, err)
	}
	if v == 0 {
		return 0, fmt.Errorf("id: parse provider id %q: zero is reserved", s)
	}
	return ProviderID(v), nil
}

// SubscriberID identifies a registered subscriber. The zero value is
// never allocated and marks a missing subscriber.
type SubscriberID uint64

// IsZero reports whether the ID is unallocated.
func (s SubscriberID) IsZero() bool { return s == 0 }

// String implements fmt.Stringer.
func (s SubscriberID) String() string { return strconv.FormatUint(uint64(s), 10) }

// ParseSubscriberID parses a decimal subscriber ID. Zero is rejected.
func ParseSubscriberID(s string) (SubscriberID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("id: parse subscriber id %q: %w", s, err)
	}
	if v == 0 {
		return 0, fmt.Errorf("id: parse subscriber id %q: zero is reserved", s)
	}
	return SubscriberID(v), nil
}

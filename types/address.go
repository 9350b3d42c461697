package types

import "strings"

// Address identifies an external account that owns providers or
// subscribers and sends or receives settlement-token transfers.
// Tally treats it as an opaque case-insensitive string; the settlement
// layer decides what a valid address looks like.
type Address string

// NormalizeAddress lowercases and trims an address so that lookups
// are case-insensitive.
func NormalizeAddress(a Address) Address {
	return Address(strings.ToLower(strings.TrimSpace(string(a))))
}

// IsZero reports whether the address is empty.
func (a Address) IsZero() bool { return a == "" }

// String implements fmt.Stringer.
func (a Address) String() string { return string(a) }

package tally

import "github.com/xraph/tally/id"

// ProviderID is re-exported from the id package.
type ProviderID = id.ProviderID

// SubscriberID is re-exported from the id package.
type SubscriberID = id.SubscriberID

// ID is the TypeID-based identifier used for append-only records.
type ID = id.ID

// Prefix identifies the record type encoded in a TypeID.
type Prefix = id.Prefix

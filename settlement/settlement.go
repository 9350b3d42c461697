// Package settlement moves the settlement token between external
// accounts and the ledger's custody. The engine calls Transfer around
// its own bookkeeping: PullFrom when escrow or earnings enter custody,
// PushTo when funds leave it.
package settlement

import (
	"context"
	"errors"

	"github.com/xraph/tally/types"
)

// Transfer moves settlement tokens between an external account and
// custody. Implementations must be safe for concurrent use.
type Transfer interface {
	// PullFrom moves amount from the account into custody.
	PullFrom(ctx context.Context, from types.Address, amount types.Amount) error
	// PushTo moves amount from custody to the account.
	PushTo(ctx context.Context, to types.Address, amount types.Amount) error
}

// ErrTransferFailed wraps any failure to move funds.
var ErrTransferFailed = errors.New("settlement: transfer failed")

// Unmanaged is a Transfer that never moves funds. It suits deployments
// where token custody is handled out of band and the ledger is pure
// bookkeeping.
type Unmanaged struct{}

var _ Transfer = Unmanaged{}

func (Unmanaged) PullFrom(context.Context, types.Address, types.Amount) error { return nil }
func (Unmanaged) PushTo(context.Context, types.Address, types.Amount) error   { return nil }

package settlement

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/xraph/tally/id"
	"github.com/xraph/tally/types"
)

// Direction labels which way a receipt moved funds.
type Direction string

const (
	DirectionPull Direction = "pull" // account -> custody
	DirectionPush Direction = "push" // custody -> account
)

// Receipt records one completed transfer.
type Receipt struct {
	ID        id.ReceiptID  `json:"id"`
	Account   types.Address `json:"account"`
	Amount    types.Amount  `json:"amount"`
	Direction Direction     `json:"direction"`
	At        time.Time     `json:"at"`
}

// Pool is an in-memory custodial Transfer. Each external account holds
// a funded balance; PullFrom draws against it and PushTo returns to
// it. Every movement appends a receipt.
//
// Pool is the reference implementation used in tests and single-node
// deployments; production systems typically wire a chain or payment
// backend behind the Transfer interface instead.
type Pool struct {
	mu       sync.Mutex
	balances map[types.Address]types.Amount
	receipts []Receipt
	now      func() time.Time
}

var _ Transfer = (*Pool)(nil)

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithPoolClock overrides the time source. Used in tests.
func WithPoolClock(now func() time.Time) PoolOption {
	return func(p *Pool) { p.now = now }
}

// NewPool creates an empty Pool.
func NewPool(opts ...PoolOption) *Pool {
	p := &Pool{
		balances: make(map[types.Address]types.Amount),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Fund credits an external account's balance in the pool. It models an
// on-ramp deposit and is the only way funds enter the pool.
func (p *Pool) Fund(account types.Address, amount types.Amount) {
	account = types.NormalizeAddress(account)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.balances[account] = p.balances[account].Add(amount)
}

// Balance returns the account's funded balance.
func (p *Pool) Balance(account types.Address) types.Amount {
	account = types.NormalizeAddress(account)
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.balances[account]
}

// Receipts returns a copy of all recorded transfers in order.
func (p *Pool) Receipts() []Receipt {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Receipt, len(p.receipts))
	copy(out, p.receipts)
	return out
}

// PullFrom implements Transfer. It fails without moving funds when the
// account balance does not cover the amount.
func (p *Pool) PullFrom(_ context.Context, from types.Address, amount types.Amount) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w: negative amount %s", ErrTransferFailed, amount)
	}
	from = types.NormalizeAddress(from)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.balances[from] < amount {
		return fmt.Errorf("%w: account %s holds %s, needs %s",
			ErrTransferFailed, from, p.balances[from], amount)
	}
	p.balances[from] = p.balances[from].Sub(amount)
	p.record(from, amount, DirectionPull)
	return nil
}

// PushTo implements Transfer.
func (p *Pool) PushTo(_ context.Context, to types.Address, amount types.Amount) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w: negative amount %s", ErrTransferFailed, amount)
	}
	to = types.NormalizeAddress(to)

	p.mu.Lock()
	defer p.mu.Unlock()

	p.balances[to] = p.balances[to].Add(amount)
	p.record(to, amount, DirectionPush)
	return nil
}

// record appends a receipt. Caller holds p.mu.
func (p *Pool) record(account types.Address, amount types.Amount, dir Direction) {
	p.receipts = append(p.receipts, Receipt{
		ID:        id.NewReceiptID(),
		Account:   account,
		Amount:    amount,
		Direction: dir,
		At:        p.now().UTC(),
	})
}

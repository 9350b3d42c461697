// Package oracle supplies the external price floors that gate
// registration: the minimum fee a provider may charge per cycle and
// the minimum escrow a subscriber must deposit.
package oracle

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/xraph/tally/types"
)

// ErrUnavailable is returned when the oracle cannot produce a quote,
// for example because the feed is stale or unreachable.
var ErrUnavailable = errors.New("oracle: price unavailable")

// Oracle quotes the current price floors. Implementations must be safe
// for concurrent use.
type Oracle interface {
	// MinimumFee is the lowest per-cycle fee a provider may register with.
	MinimumFee(ctx context.Context) (types.Amount, error)
	// MinimumDeposit is the lowest escrow a subscriber may register with.
	MinimumDeposit(ctx context.Context) (types.Amount, error)
}

// Permissive quotes the lowest positive floor for both values, so any
// positive fee or deposit is accepted. It is the engine's default when
// no oracle is configured.
type Permissive struct{}

var _ Oracle = Permissive{}

// MinimumFee implements Oracle.
func (Permissive) MinimumFee(_ context.Context) (types.Amount, error) { return 1, nil }

// MinimumDeposit implements Oracle.
func (Permissive) MinimumDeposit(_ context.Context) (types.Amount, error) { return 1, nil }

// Quote is a point-in-time pair of price floors.
type Quote struct {
	MinFee     types.Amount
	MinDeposit types.Amount
	UpdatedAt  time.Time
}

// Static serves quotes set by an operator. An optional freshness
// window marks quotes older than MaxAge as unavailable, matching the
// behavior of a live feed that has stopped updating.
type Static struct {
	mu     sync.RWMutex
	quote  Quote
	maxAge time.Duration
	now    func() time.Time
}

var _ Oracle = (*Static)(nil)

// StaticOption configures a Static oracle.
type StaticOption func(*Static)

// WithMaxAge marks quotes older than d as unavailable. Zero disables
// the freshness check.
func WithMaxAge(d time.Duration) StaticOption {
	return func(s *Static) { s.maxAge = d }
}

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) StaticOption {
	return func(s *Static) { s.now = now }
}

// NewStatic creates a Static oracle with the given initial floors.
func NewStatic(minFee, minDeposit types.Amount, opts ...StaticOption) *Static {
	s := &Static{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.quote = Quote{MinFee: minFee, MinDeposit: minDeposit, UpdatedAt: s.now()}
	return s
}

// Update replaces the current quote and resets its timestamp.
func (s *Static) Update(minFee, minDeposit types.Amount) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quote = Quote{MinFee: minFee, MinDeposit: minDeposit, UpdatedAt: s.now()}
}

// Current returns the quote regardless of freshness.
func (s *Static) Current() Quote {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.quote
}

func (s *Static) fresh() (Quote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.maxAge > 0 && s.now().Sub(s.quote.UpdatedAt) > s.maxAge {
		return Quote{}, ErrUnavailable
	}
	return s.quote, nil
}

// MinimumFee implements Oracle. A non-positive floor is treated the
// same as a stale quote.
func (s *Static) MinimumFee(_ context.Context) (types.Amount, error) {
	q, err := s.fresh()
	if err != nil {
		return 0, err
	}
	if q.MinFee <= 0 {
		return 0, ErrUnavailable
	}
	return q.MinFee, nil
}

// MinimumDeposit implements Oracle. A non-positive floor is treated
// the same as a stale quote.
func (s *Static) MinimumDeposit(_ context.Context) (types.Amount, error) {
	q, err := s.fresh()
	if err != nil {
		return 0, err
	}
	if q.MinDeposit <= 0 {
		return 0, ErrUnavailable
	}
	return q.MinDeposit, nil
}

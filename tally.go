package tally

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/tally/id"
	"github.com/xraph/tally/oracle"
	"github.com/xraph/tally/plugin"
	"github.com/xraph/tally/provider"
	"github.com/xraph/tally/settlement"
	"github.com/xraph/tally/store"
	"github.com/xraph/tally/subscriber"
	"github.com/xraph/tally/types"
)

// DefaultWithdrawalLockout is the rolling lockout applied after every
// registration and withdrawal, independent of the billing cycle.
const DefaultWithdrawalLockout = 30 * 24 * time.Hour

// Authorizer answers privileged-operation checks for the engine.
type Authorizer interface {
	IsAdministrator(ctx context.Context, caller types.Address) bool
}

// AuthorizerFunc adapts a function to the Authorizer interface.
type AuthorizerFunc func(ctx context.Context, caller types.Address) bool

func (f AuthorizerFunc) IsAdministrator(ctx context.Context, caller types.Address) bool {
	return f(ctx, caller)
}

// Ledger is the billing engine. All mutating operations run under a
// single writer lock and commit through one atomic change set, so
// every operation either lands fully or leaves the ledger untouched.
type Ledger struct {
	mu sync.Mutex

	store    store.Store
	oracle   oracle.Oracle
	transfer settlement.Transfer
	auth     Authorizer
	matcher  LinkMatcher
	plugins  *plugin.Registry
	logger   *slog.Logger

	// Configuration
	maxProviders      uint64 // 0 means unlimited
	withdrawalLockout time.Duration
	now               func() time.Time
}

// New creates a new Ledger instance.
func New(s store.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:             s,
		oracle:            oracle.Permissive{},
		transfer:          settlement.Unmanaged{},
		auth:              AuthorizerFunc(func(context.Context, types.Address) bool { return false }),
		matcher:           OwnerMatch{},
		plugins:           plugin.NewRegistry(),
		logger:            slog.Default(),
		withdrawalLockout: DefaultWithdrawalLockout,
		now:               time.Now,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Option configures a Ledger instance.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
		l.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(l *Ledger) {
		_ = l.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithOracle sets the price oracle consulted on registration paths.
func WithOracle(o oracle.Oracle) Option {
	return func(l *Ledger) { l.oracle = o }
}

// WithTransfer sets the settlement transfer collaborator.
func WithTransfer(t settlement.Transfer) Option {
	return func(l *Ledger) { l.transfer = t }
}

// WithAuthorizer sets the access-control collaborator for privileged
// operations.
func WithAuthorizer(a Authorizer) Option {
	return func(l *Ledger) { l.auth = a }
}

// WithMaxProviders caps the number of provider ids ever issued.
// Zero means unlimited.
func WithMaxProviders(limit uint64) Option {
	return func(l *Ledger) { l.maxProviders = limit }
}

// WithWithdrawalLockout overrides the rolling withdrawal lockout.
func WithWithdrawalLockout(d time.Duration) Option {
	return func(l *Ledger) { l.withdrawalLockout = d }
}

// WithLinkMatcher swaps the pause/resume targeting policy.
func WithLinkMatcher(m LinkMatcher) Option {
	return func(l *Ledger) { l.matcher = m }
}

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// Start migrates the store and initializes plugins.
func (l *Ledger) Start(ctx context.Context) error {
	if err := l.store.Migrate(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrMigrationFailed, err)
	}

	l.plugins.EmitInit(ctx, l)

	l.logger.Info("tally started",
		"max_providers", l.maxProviders,
		"withdrawal_lockout", l.withdrawalLockout,
	)

	return nil
}

// Stop shuts down the Ledger.
func (l *Ledger) Stop() error {
	ctx := context.Background()
	l.plugins.EmitShutdown(ctx)

	return l.store.Close()
}

// ──────────────────────────────────────────────────
// Provider Management
// ──────────────────────────────────────────────────

// RegisterProvider registers a new offering and returns its id.
// The provider starts active with zero earnings, a MONTH cycle, and a
// full withdrawal lockout. The key is never stored, only its digest
// bound to the caller; the same key under the same owner cannot be
// registered twice.
func (l *Ledger) RegisterProvider(ctx context.Context, caller types.Address, key []byte, fee types.Amount) (id.ProviderID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller.IsZero() {
		return 0, ValidationError{Field: "caller", Message: "empty address"}
	}
	if len(key) == 0 {
		return 0, ValidationError{Field: "key", Message: "empty key"}
	}
	if fee.IsNegative() {
		return 0, ValidationError{Field: "fee", Message: "negative amount"}
	}

	minFee, err := l.oracle.MinimumFee(ctx)
	if err != nil {
		return 0, err
	}

	seq, err := l.store.Sequence(ctx, id.KindProvider)
	if err != nil {
		return 0, err
	}
	if l.maxProviders > 0 && seq+1 > l.maxProviders {
		return 0, CapacityError{Limit: l.maxProviders}
	}
	if fee < minFee {
		return 0, FeeTooLowError{Fee: fee, Minimum: minFee}
	}

	keyHash := provider.HashKey(key, caller)
	if _, err := l.store.GetProviderByKeyHash(ctx, keyHash); err == nil {
		return 0, ErrDuplicateKey
	} else if !IsNotFound(err) {
		return 0, err
	}

	now := l.now()
	p := &provider.Provider{
		Entity:           types.NewEntity(now),
		ID:               id.ProviderID(seq + 1),
		Owner:            types.NormalizeAddress(caller),
		KeyHash:          keyHash,
		FeePerCycle:      fee,
		Cycle:            provider.CycleMonth,
		Active:           true,
		NextWithdrawalAt: now.Add(l.withdrawalLockout),
	}

	cs := &store.ChangeSet{ProviderSeq: seq + 1}
	cs.PutProvider(p)
	if err := l.store.Apply(ctx, cs); err != nil {
		return 0, err
	}

	l.logger.Info("provider registered",
		"provider_id", p.ID,
		"key", provider.Fingerprint(keyHash),
		"fee", fee,
	)
	l.plugins.EmitProviderRegistered(ctx, p)

	return p.ID, nil
}

// RemoveProvider deletes the caller's provider and returns its earned
// balance, which is pushed back to the caller through the settlement
// collaborator. Links held by subscribers are not cleaned up; they
// simply stop resolving.
func (l *Ledger) RemoveProvider(ctx context.Context, caller types.Address, pid id.ProviderID) (types.Amount, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, err := l.ownedProvider(ctx, caller, pid)
	if err != nil {
		return 0, err
	}

	refund := p.Balance
	cs := &store.ChangeSet{RemoveProviders: []id.ProviderID{pid}}
	if err := l.store.Apply(ctx, cs); err != nil {
		return 0, err
	}

	if refund.IsPositive() {
		if err := l.transfer.PushTo(ctx, caller, refund); err != nil {
			return refund, err
		}
	}

	l.logger.Info("provider removed", "provider_id", pid, "refund", refund)
	l.plugins.EmitProviderRemoved(ctx, pid, refund)

	return refund, nil
}

// UpdateFee changes the caller's per-cycle fee and, if different, the
// billing cycle. A cycle change affects only future settlements; due
// times already scheduled keep their stored values.
func (l *Ledger) UpdateFee(ctx context.Context, caller types.Address, pid id.ProviderID, newFee types.Amount, newCycle provider.BillingCycle) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !newCycle.Valid() {
		return ValidationError{Field: "cycle", Message: "unknown billing cycle"}
	}

	p, err := l.ownedProvider(ctx, caller, pid)
	if err != nil {
		return err
	}

	minFee, err := l.oracle.MinimumFee(ctx)
	if err != nil {
		return err
	}
	if newFee < minFee {
		return FeeTooLowError{Fee: newFee, Minimum: minFee}
	}

	oldFee := p.FeePerCycle
	p.FeePerCycle = newFee
	if newCycle != p.Cycle {
		p.Cycle = newCycle
	}
	p.TouchAt(l.now())

	cs := &store.ChangeSet{}
	cs.PutProvider(p)
	if err := l.store.Apply(ctx, cs); err != nil {
		return err
	}

	l.logger.Info("provider fee updated",
		"provider_id", pid,
		"old_fee", oldFee,
		"new_fee", newFee,
		"cycle", p.Cycle,
	)
	l.plugins.EmitFeeUpdated(ctx, pid, oldFee, newFee)

	return nil
}

// SetActive flips a provider's active flag. Restricted to
// administrators. An inactive provider accepts no new links and its
// settlement passes are rejected; the owner can still withdraw
// already-earned balance.
func (l *Ledger) SetActive(ctx context.Context, caller types.Address, pid id.ProviderID, active bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.auth.IsAdministrator(ctx, caller) {
		return ErrNotAdministrator
	}

	p, err := l.store.GetProvider(ctx, pid)
	if err != nil {
		return err
	}
	if p.Active == active {
		return ErrStateUnchanged
	}

	p.Active = active
	p.TouchAt(l.now())

	cs := &store.ChangeSet{}
	cs.PutProvider(p)
	if err := l.store.Apply(ctx, cs); err != nil {
		return err
	}

	l.logger.Info("provider state changed", "provider_id", pid, "active", active)
	l.plugins.EmitProviderStateChanged(ctx, pid, active)

	return nil
}

// ──────────────────────────────────────────────────
// Subscriber Management
// ──────────────────────────────────────────────────

// RegisterSubscriber creates a subscriber with the given escrow
// deposit and links it to every listed provider, charging one cycle
// per provider immediately. The whole registration is all-or-nothing:
// if any link fails, no subscriber is created and no provider is
// credited. Duplicate ids in the input fail with ErrAlreadyLinked.
func (l *Ledger) RegisterSubscriber(ctx context.Context, caller types.Address, deposit types.Amount, pids []id.ProviderID) (id.SubscriberID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller.IsZero() {
		return 0, ValidationError{Field: "caller", Message: "empty address"}
	}
	if len(pids) == 0 {
		return 0, ErrNoProviders
	}

	minDeposit, err := l.oracle.MinimumDeposit(ctx)
	if err != nil {
		return 0, err
	}
	if deposit < minDeposit {
		return 0, DepositTooLowError{Deposit: deposit, Minimum: minDeposit}
	}

	seq, err := l.store.Sequence(ctx, id.KindSubscriber)
	if err != nil {
		return 0, err
	}

	now := l.now()
	sub := &subscriber.Subscriber{
		Entity:  types.NewEntity(now),
		ID:      id.SubscriberID(seq + 1),
		Owner:   types.NormalizeAddress(caller),
		Balance: deposit,
	}

	// Link against working copies; nothing is committed until every
	// provider has accepted its first charge.
	working := make(map[id.ProviderID]*provider.Provider, len(pids))
	var charges []charge
	for _, pid := range pids {
		p, ok := working[pid]
		if !ok {
			p, err = l.store.GetProvider(ctx, pid)
			if err != nil {
				return 0, err
			}
			working[pid] = p
		}
		if err := l.addLink(p, sub, now); err != nil {
			return 0, err
		}
		charges = append(charges, charge{pid: pid, sid: sub.ID, amount: p.FeePerCycle})
	}

	cs := &store.ChangeSet{SubscriberSeq: seq + 1}
	for _, p := range working {
		cs.PutProvider(p)
	}
	cs.PutSubscriber(sub)
	if err := l.store.Apply(ctx, cs); err != nil {
		return 0, err
	}

	if err := l.transfer.PullFrom(ctx, caller, deposit); err != nil {
		return sub.ID, err
	}

	l.logger.Info("subscriber registered",
		"subscriber_id", sub.ID,
		"deposit", deposit,
		"providers", len(pids),
	)
	l.plugins.EmitSubscriberRegistered(ctx, sub)
	for _, c := range charges {
		l.plugins.EmitChargeSettled(ctx, c.pid, c.sid, c.amount)
	}

	return sub.ID, nil
}

// LinkProvider links an existing subscriber to one more provider,
// charging the first cycle immediately.
func (l *Ledger) LinkProvider(ctx context.Context, caller types.Address, sid id.SubscriberID, pid id.ProviderID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	sub, err := l.ownedSubscriber(ctx, caller, sid)
	if err != nil {
		return err
	}

	p, err := l.store.GetProvider(ctx, pid)
	if err != nil {
		return err
	}

	now := l.now()
	if err := l.addLink(p, sub, now); err != nil {
		return err
	}
	sub.TouchAt(now)
	p.TouchAt(now)

	cs := &store.ChangeSet{}
	cs.PutProvider(p)
	cs.PutSubscriber(sub)
	if err := l.store.Apply(ctx, cs); err != nil {
		return err
	}

	l.logger.Info("subscriber linked", "subscriber_id", sid, "provider_id", pid)
	l.plugins.EmitChargeSettled(ctx, pid, sid, p.FeePerCycle)

	return nil
}

// Deposit adds escrow to the caller's subscriber and pulls the
// equivalent funds into custody.
func (l *Ledger) Deposit(ctx context.Context, caller types.Address, sid id.SubscriberID, amount types.Amount) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !amount.IsPositive() {
		return ValidationError{Field: "amount", Message: "must be positive"}
	}

	sub, err := l.ownedSubscriber(ctx, caller, sid)
	if err != nil {
		return err
	}

	sub.Credit(amount)
	sub.TouchAt(l.now())

	cs := &store.ChangeSet{}
	cs.PutSubscriber(sub)
	if err := l.store.Apply(ctx, cs); err != nil {
		return err
	}

	if err := l.transfer.PullFrom(ctx, caller, amount); err != nil {
		return err
	}

	l.logger.Info("escrow deposited",
		"subscriber_id", sid,
		"amount", amount,
		"balance", sub.Balance,
	)
	l.plugins.EmitDeposit(ctx, sid, amount, sub.Balance)

	return nil
}

// ──────────────────────────────────────────────────
// Billing
// ──────────────────────────────────────────────────

// ProcessPayments runs one settlement pass over the provider's links
// and returns the provider's resulting earned balance. Links that are
// due and covered are settled; links whose subscriber cannot cover the
// fee are paused. The pass is idempotent until a link's next due time
// arrives.
func (l *Ledger) ProcessPayments(ctx context.Context, pid id.ProviderID) (types.Amount, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, err := l.store.GetProvider(ctx, pid)
	if err != nil {
		return 0, err
	}
	if !p.Active {
		return 0, ErrProviderNotActive
	}

	cs := &store.ChangeSet{}
	result, err := l.settle(ctx, p, cs)
	if err != nil {
		return 0, err
	}

	if !cs.Empty() {
		if err := l.store.Apply(ctx, cs); err != nil {
			return 0, err
		}
	}

	l.emitSettlement(ctx, p.ID, result)

	return p.Balance, nil
}

// WithdrawEarnings settles all currently-due cycles for the caller's
// provider, then moves amount out of its earned balance and pushes it
// to the caller. Each withdrawal rearms the rolling lockout.
func (l *Ledger) WithdrawEarnings(ctx context.Context, caller types.Address, pid id.ProviderID, amount types.Amount) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !amount.IsPositive() {
		return ValidationError{Field: "amount", Message: "must be positive"}
	}

	p, err := l.ownedProvider(ctx, caller, pid)
	if err != nil {
		return err
	}

	now := l.now()
	if now.Before(p.NextWithdrawalAt) {
		return WithdrawalLockedError{Until: p.NextWithdrawalAt}
	}

	// Settle due links first so the withdrawable balance reflects
	// every cycle owed up to now. Staged, not yet committed: if the
	// withdrawal itself fails, the pass is discarded with it.
	cs := &store.ChangeSet{}
	result, err := l.settle(ctx, p, cs)
	if err != nil {
		return err
	}

	if amount > p.Balance {
		return InsufficientBalanceError{Balance: p.Balance, Required: amount}
	}

	p.Balance = p.Balance.Sub(amount)
	p.NextWithdrawalAt = now.Add(l.withdrawalLockout)
	p.TouchAt(now)
	cs.PutProvider(p)

	if err := l.store.Apply(ctx, cs); err != nil {
		return err
	}

	if err := l.transfer.PushTo(ctx, caller, amount); err != nil {
		return err
	}

	l.emitSettlement(ctx, p.ID, result)
	l.logger.Info("earnings withdrawn",
		"provider_id", pid,
		"amount", amount,
		"remaining", p.Balance,
	)
	l.plugins.EmitWithdrawal(ctx, pid, amount)

	return nil
}

// ──────────────────────────────────────────────────
// Pause / Resume
// ──────────────────────────────────────────────────

// PauseLink pauses the caller's link to the provider. Which link that
// is depends on the configured LinkMatcher. Paused links are skipped
// by settlement until resumed.
func (l *Ledger) PauseLink(ctx context.Context, caller types.Address, sid id.SubscriberID, pid id.ProviderID) error {
	return l.setLinkPaused(ctx, caller, sid, pid, true)
}

// ResumeLink clears the paused flag on the caller's link. The stored
// due time is not reset, so a long-paused link may be immediately due.
func (l *Ledger) ResumeLink(ctx context.Context, caller types.Address, sid id.SubscriberID, pid id.ProviderID) error {
	return l.setLinkPaused(ctx, caller, sid, pid, false)
}

func (l *Ledger) setLinkPaused(ctx context.Context, caller types.Address, sid id.SubscriberID, pid id.ProviderID, paused bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, err := l.store.GetProvider(ctx, pid)
	if err != nil {
		return err
	}

	idx, err := l.matcher.Match(ctx, p, sid, caller, l.store.GetSubscriber)
	if err != nil {
		return err
	}

	if p.Links[idx].Paused == paused {
		return nil
	}
	p.Links[idx].Paused = paused
	p.TouchAt(l.now())

	cs := &store.ChangeSet{}
	cs.PutProvider(p)
	if err := l.store.Apply(ctx, cs); err != nil {
		return err
	}

	target := p.Links[idx].SubscriberID
	if paused {
		l.logger.Info("link paused", "provider_id", pid, "subscriber_id", target)
		l.plugins.EmitLinkPaused(ctx, pid, target)
	} else {
		l.logger.Info("link resumed", "provider_id", pid, "subscriber_id", target)
		l.plugins.EmitLinkResumed(ctx, pid, target)
	}

	return nil
}

// ──────────────────────────────────────────────────
// Read accessors
// ──────────────────────────────────────────────────

// ProviderInfo is the read-only provider summary.
type ProviderInfo struct {
	Owner       types.Address `json:"owner"`
	FeePerCycle types.Amount  `json:"fee_per_cycle"`
	Balance     types.Amount  `json:"balance"`
	LinkCount   int           `json:"link_count"`
	Active      bool          `json:"active"`
}

// SubscriberInfo is the read-only subscriber summary.
type SubscriberInfo struct {
	Owner       types.Address   `json:"owner"`
	Balance     types.Amount    `json:"balance"`
	ProviderIDs []id.ProviderID `json:"provider_ids"`
}

// GetProviderInfo returns the provider summary tuple.
func (l *Ledger) GetProviderInfo(ctx context.Context, pid id.ProviderID) (ProviderInfo, error) {
	p, err := l.store.GetProvider(ctx, pid)
	if err != nil {
		return ProviderInfo{}, err
	}
	return ProviderInfo{
		Owner:       p.Owner,
		FeePerCycle: p.FeePerCycle,
		Balance:     p.Balance,
		LinkCount:   len(p.Links),
		Active:      p.Active,
	}, nil
}

// GetSubscriberInfo returns the subscriber summary tuple.
func (l *Ledger) GetSubscriberInfo(ctx context.Context, sid id.SubscriberID) (SubscriberInfo, error) {
	sub, err := l.store.GetSubscriber(ctx, sid)
	if err != nil {
		return SubscriberInfo{}, err
	}
	return SubscriberInfo{
		Owner:       sub.Owner,
		Balance:     sub.Balance,
		ProviderIDs: sub.ProviderIDs,
	}, nil
}

// GetProvider returns a copy of the full provider record.
func (l *Ledger) GetProvider(ctx context.Context, pid id.ProviderID) (*provider.Provider, error) {
	return l.store.GetProvider(ctx, pid)
}

// GetSubscriber returns a copy of the full subscriber record.
func (l *Ledger) GetSubscriber(ctx context.Context, sid id.SubscriberID) (*subscriber.Subscriber, error) {
	return l.store.GetSubscriber(ctx, sid)
}

// ListProviders returns providers matching the options.
func (l *Ledger) ListProviders(ctx context.Context, opts provider.ListOpts) ([]*provider.Provider, error) {
	return l.store.ListProviders(ctx, opts)
}

// ──────────────────────────────────────────────────
// Internals
// ──────────────────────────────────────────────────

type charge struct {
	pid    id.ProviderID
	sid    id.SubscriberID
	amount types.Amount
}

type settleResult struct {
	charges  []charge
	paused   []id.SubscriberID
	elapsed  time.Duration
	anyDirty bool
}

// addLink charges the subscriber one cycle and appends an active link.
// Mutates working copies only; the caller stages and commits them.
func (l *Ledger) addLink(p *provider.Provider, sub *subscriber.Subscriber, now time.Time) error {
	if !p.Active {
		return ErrProviderNotActive
	}
	if p.Linked(sub.ID) {
		return ErrAlreadyLinked
	}
	if !sub.CanAfford(p.FeePerCycle) {
		return InsufficientBalanceError{Balance: sub.Balance, Required: p.FeePerCycle}
	}

	sub.Debit(p.FeePerCycle)
	p.Balance = p.Balance.Add(p.FeePerCycle)
	p.Links = append(p.Links, provider.Link{
		SubscriberID:  sub.ID,
		NextBillingAt: now.Add(p.Cycle.Duration()),
	})
	sub.AddProvider(p.ID)

	return nil
}

// settle walks the provider's links in order and settles or pauses
// every due one against working copies, staging dirty subscribers into
// cs. The provider itself is staged by the caller once its own
// mutations are complete.
func (l *Ledger) settle(ctx context.Context, p *provider.Provider, cs *store.ChangeSet) (settleResult, error) {
	start := l.now()
	fee := p.FeePerCycle
	cycle := p.Cycle.Duration()

	var result settleResult
	subs := make(map[id.SubscriberID]*subscriber.Subscriber)
	dirty := make(map[id.SubscriberID]bool)

	for i := range p.Links {
		link := &p.Links[i]
		if !link.Due(start) {
			continue
		}

		sub, ok := subs[link.SubscriberID]
		if !ok {
			var err error
			sub, err = l.store.GetSubscriber(ctx, link.SubscriberID)
			if err != nil {
				return settleResult{}, err
			}
			subs[link.SubscriberID] = sub
		}

		if sub.CanAfford(fee) {
			sub.Debit(fee)
			p.Balance = p.Balance.Add(fee)
			// One cycle from now, not compounded from the stored due
			// time: late billing never charges missed interim cycles.
			link.NextBillingAt = start.Add(cycle)
			dirty[sub.ID] = true
			result.charges = append(result.charges, charge{pid: p.ID, sid: sub.ID, amount: fee})
		} else {
			link.Paused = true
			result.paused = append(result.paused, sub.ID)
		}
		result.anyDirty = true
	}

	if result.anyDirty {
		p.TouchAt(start)
		cs.PutProvider(p)
		for sid := range dirty {
			subs[sid].TouchAt(start)
			cs.PutSubscriber(subs[sid])
		}
	}
	result.elapsed = l.now().Sub(start)

	return result, nil
}

// emitSettlement publishes the outcome of a committed settlement pass.
func (l *Ledger) emitSettlement(ctx context.Context, pid id.ProviderID, result settleResult) {
	for _, c := range result.charges {
		l.plugins.EmitChargeSettled(ctx, c.pid, c.sid, c.amount)
	}
	for _, sid := range result.paused {
		l.logger.Warn("link paused on insufficient escrow",
			"provider_id", pid,
			"subscriber_id", sid,
		)
		l.plugins.EmitLinkPaused(ctx, pid, sid)
	}
	l.plugins.EmitSettlementPass(ctx, pid, len(result.charges), len(result.paused), result.elapsed)

	if result.anyDirty {
		l.logger.Debug("settlement pass completed",
			"provider_id", pid,
			"settled", len(result.charges),
			"paused", len(result.paused),
			"elapsed_ms", result.elapsed.Milliseconds(),
		)
	}
}

// ownedProvider fetches a provider and verifies caller ownership.
func (l *Ledger) ownedProvider(ctx context.Context, caller types.Address, pid id.ProviderID) (*provider.Provider, error) {
	p, err := l.store.GetProvider(ctx, pid)
	if err != nil {
		return nil, err
	}
	if p.Owner != types.NormalizeAddress(caller) {
		return nil, ErrNotOwner
	}
	return p, nil
}

// ownedSubscriber fetches a subscriber and verifies caller ownership.
func (l *Ledger) ownedSubscriber(ctx context.Context, caller types.Address, sid id.SubscriberID) (*subscriber.Subscriber, error) {
	sub, err := l.store.GetSubscriber(ctx, sid)
	if err != nil {
		return nil, err
	}
	if sub.Owner != types.NormalizeAddress(caller) {
		return nil, ErrNotOwner
	}
	return sub, nil
}

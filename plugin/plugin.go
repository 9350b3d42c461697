// Package plugin provides an extensible plugin system for Tally.
// Plugins can hook into various lifecycle events to extend functionality.
package plugin

import (
	"context"
	"time"

	"github.com/xraph/tally/id"
	"github.com/xraph/tally/types"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, l interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Provider lifecycle hooks
// ──────────────────────────────────────────────────

// OnProviderRegistered is called when a provider registers.
// The prov argument is the committed *provider.Provider.
type OnProviderRegistered interface {
	Plugin
	OnProviderRegistered(ctx context.Context, prov interface{}) error
}

// OnProviderRemoved is called when a provider deregisters.
type OnProviderRemoved interface {
	Plugin
	OnProviderRemoved(ctx context.Context, pid id.ProviderID, refund types.Amount) error
}

// OnFeeUpdated is called when a provider changes its fee or cycle.
type OnFeeUpdated interface {
	Plugin
	OnFeeUpdated(ctx context.Context, pid id.ProviderID, oldFee, newFee types.Amount) error
}

// OnProviderStateChanged is called when an administrator flips a
// provider's active flag.
type OnProviderStateChanged interface {
	Plugin
	OnProviderStateChanged(ctx context.Context, pid id.ProviderID, active bool) error
}

// ──────────────────────────────────────────────────
// Subscriber lifecycle hooks
// ──────────────────────────────────────────────────

// OnSubscriberRegistered is called when a subscriber registers.
// The sub argument is the committed *subscriber.Subscriber.
type OnSubscriberRegistered interface {
	Plugin
	OnSubscriberRegistered(ctx context.Context, sub interface{}) error
}

// OnDeposit is called when escrow is added to a subscriber.
type OnDeposit interface {
	Plugin
	OnDeposit(ctx context.Context, sid id.SubscriberID, amount, balance types.Amount) error
}

// ──────────────────────────────────────────────────
// Billing hooks
// ──────────────────────────────────────────────────

// OnChargeSettled is called for every fee moved from a subscriber's
// escrow to a provider's earnings.
type OnChargeSettled interface {
	Plugin
	OnChargeSettled(ctx context.Context, pid id.ProviderID, sid id.SubscriberID, amount types.Amount) error
}

// OnLinkPaused is called when a link is paused, whether by a caller or
// by the billing engine after an uncovered charge.
type OnLinkPaused interface {
	Plugin
	OnLinkPaused(ctx context.Context, pid id.ProviderID, sid id.SubscriberID) error
}

// OnLinkResumed is called when a paused link is resumed.
type OnLinkResumed interface {
	Plugin
	OnLinkResumed(ctx context.Context, pid id.ProviderID, sid id.SubscriberID) error
}

// OnWithdrawal is called when a provider withdraws earnings.
type OnWithdrawal interface {
	Plugin
	OnWithdrawal(ctx context.Context, pid id.ProviderID, amount types.Amount) error
}

// OnSettlementPass is called after each completed settlement pass over
// a provider's links.
type OnSettlementPass interface {
	Plugin
	OnSettlementPass(ctx context.Context, pid id.ProviderID, settled, paused int, elapsed time.Duration) error
}

// Package observability provides a metrics extension for Tally that records
// lifecycle event counts through a pluggable MetricFactory.
package observability

import (
	"context"
	"time"

	"github.com/xraph/tally/id"
	"github.com/xraph/tally/plugin"
	"github.com/xraph/tally/types"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                 = (*MetricsExtension)(nil)
	_ plugin.OnInit                 = (*MetricsExtension)(nil)
	_ plugin.OnProviderRegistered   = (*MetricsExtension)(nil)
	_ plugin.OnProviderRemoved      = (*MetricsExtension)(nil)
	_ plugin.OnFeeUpdated           = (*MetricsExtension)(nil)
	_ plugin.OnProviderStateChanged = (*MetricsExtension)(nil)
	_ plugin.OnSubscriberRegistered = (*MetricsExtension)(nil)
	_ plugin.OnDeposit              = (*MetricsExtension)(nil)
	_ plugin.OnChargeSettled        = (*MetricsExtension)(nil)
	_ plugin.OnLinkPaused           = (*MetricsExtension)(nil)
	_ plugin.OnLinkResumed          = (*MetricsExtension)(nil)
	_ plugin.OnWithdrawal           = (*MetricsExtension)(nil)
	_ plugin.OnSettlementPass       = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a Ledger plugin to automatically track billing metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Provider metrics
	ProviderRegistered Counter
	ProviderRemoved    Counter
	FeeUpdated         Counter
	ProviderActivated  Counter
	ProviderSuspended  Counter

	// Subscriber metrics
	SubscriberRegistered Counter
	DepositCount         Counter
	DepositAmount        Histogram

	// Billing metrics
	ChargesSettled         Counter
	ChargeAmount           Histogram
	LinksPaused            Counter
	LinksResumed           Counter
	SettlementPassDuration Histogram
	SettlementPassSettled  Histogram

	// Payout metrics
	Withdrawals      Counter
	WithdrawalAmount Histogram
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Provider metrics
		ProviderRegistered: factory.Counter("tally.provider.registered"),
		ProviderRemoved:    factory.Counter("tally.provider.removed"),
		FeeUpdated:         factory.Counter("tally.provider.fee_updated"),
		ProviderActivated:  factory.Counter("tally.provider.activated"),
		ProviderSuspended:  factory.Counter("tally.provider.suspended"),

		// Subscriber metrics
		SubscriberRegistered: factory.Counter("tally.subscriber.registered"),
		DepositCount:         factory.Counter("tally.escrow.deposits"),
		DepositAmount:        factory.Histogram("tally.escrow.deposit_amount"),

		// Billing metrics
		ChargesSettled:         factory.Counter("tally.billing.charges_settled"),
		ChargeAmount:           factory.Histogram("tally.billing.charge_amount"),
		LinksPaused:            factory.Counter("tally.billing.links_paused"),
		LinksResumed:           factory.Counter("tally.billing.links_resumed"),
		SettlementPassDuration: factory.Histogram("tally.billing.pass_duration_ms"),
		SettlementPassSettled:  factory.Histogram("tally.billing.pass_settled"),

		// Payout metrics
		Withdrawals:      factory.Counter("tally.payout.withdrawals"),
		WithdrawalAmount: factory.Histogram("tally.payout.withdrawal_amount"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Provider lifecycle hooks
// ──────────────────────────────────────────────────

// OnProviderRegistered implements plugin.OnProviderRegistered.
func (m *MetricsExtension) OnProviderRegistered(_ context.Context, _ interface{}) error {
	m.ProviderRegistered.Inc()
	return nil
}

// OnProviderRemoved implements plugin.OnProviderRemoved.
func (m *MetricsExtension) OnProviderRemoved(_ context.Context, _ id.ProviderID, _ types.Amount) error {
	m.ProviderRemoved.Inc()
	return nil
}

// OnFeeUpdated implements plugin.OnFeeUpdated.
func (m *MetricsExtension) OnFeeUpdated(_ context.Context, _ id.ProviderID, _, _ types.Amount) error {
	m.FeeUpdated.Inc()
	return nil
}

// OnProviderStateChanged implements plugin.OnProviderStateChanged.
func (m *MetricsExtension) OnProviderStateChanged(_ context.Context, _ id.ProviderID, active bool) error {
	if active {
		m.ProviderActivated.Inc()
	} else {
		m.ProviderSuspended.Inc()
	}
	return nil
}

// ──────────────────────────────────────────────────
// Subscriber lifecycle hooks
// ──────────────────────────────────────────────────

// OnSubscriberRegistered implements plugin.OnSubscriberRegistered.
func (m *MetricsExtension) OnSubscriberRegistered(_ context.Context, _ interface{}) error {
	m.SubscriberRegistered.Inc()
	return nil
}

// OnDeposit implements plugin.OnDeposit.
func (m *MetricsExtension) OnDeposit(_ context.Context, _ id.SubscriberID, amount, _ types.Amount) error {
	m.DepositCount.Inc()
	m.DepositAmount.Observe(amount.Tokens())
	return nil
}

// ──────────────────────────────────────────────────
// Billing hooks
// ──────────────────────────────────────────────────

// OnChargeSettled implements plugin.OnChargeSettled.
func (m *MetricsExtension) OnChargeSettled(_ context.Context, _ id.ProviderID, _ id.SubscriberID, amount types.Amount) error {
	m.ChargesSettled.Inc()
	m.ChargeAmount.Observe(amount.Tokens())
	return nil
}

// OnLinkPaused implements plugin.OnLinkPaused.
func (m *MetricsExtension) OnLinkPaused(_ context.Context, _ id.ProviderID, _ id.SubscriberID) error {
	m.LinksPaused.Inc()
	return nil
}

// OnLinkResumed implements plugin.OnLinkResumed.
func (m *MetricsExtension) OnLinkResumed(_ context.Context, _ id.ProviderID, _ id.SubscriberID) error {
	m.LinksResumed.Inc()
	return nil
}

// OnWithdrawal implements plugin.OnWithdrawal.
func (m *MetricsExtension) OnWithdrawal(_ context.Context, _ id.ProviderID, amount types.Amount) error {
	m.Withdrawals.Inc()
	m.WithdrawalAmount.Observe(amount.Tokens())
	return nil
}

// OnSettlementPass implements plugin.OnSettlementPass.
func (m *MetricsExtension) OnSettlementPass(_ context.Context, _ id.ProviderID, settled, _ int, elapsed time.Duration) error {
	m.SettlementPassDuration.Observe(float64(elapsed.Milliseconds()))
	m.SettlementPassSettled.Observe(float64(settled))
	return nil
}

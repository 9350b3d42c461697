// Package audithook bridges Ledger lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import
// Chronicle directly. Callers inject a RecorderFunc adapter that bridges
// to Chronicle at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/tally/id"
	"github.com/xraph/tally/plugin"
	"github.com/xraph/tally/types"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                 = (*Extension)(nil)
	_ plugin.OnProviderRegistered   = (*Extension)(nil)
	_ plugin.OnProviderRemoved      = (*Extension)(nil)
	_ plugin.OnFeeUpdated           = (*Extension)(nil)
	_ plugin.OnProviderStateChanged = (*Extension)(nil)
	_ plugin.OnSubscriberRegistered = (*Extension)(nil)
	_ plugin.OnDeposit              = (*Extension)(nil)
	_ plugin.OnChargeSettled        = (*Extension)(nil)
	_ plugin.OnLinkPaused           = (*Extension)(nil)
	_ plugin.OnLinkResumed          = (*Extension)(nil)
	_ plugin.OnWithdrawal           = (*Extension)(nil)
	_ plugin.OnSettlementPass       = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// This matches chronicle.Emitter but is defined locally so that the
// audit_hook package does not import Chronicle directly; callers inject
// the concrete *chronicle.Chronicle at wiring time.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
// It mirrors chronicle/audit.Event but avoids a module dependency.
type AuditEvent struct {
	ID         id.EventID     `json:"id"`
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges Ledger lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Provider lifecycle hooks
// ──────────────────────────────────────────────────

// OnProviderRegistered implements plugin.OnProviderRegistered.
func (e *Extension) OnProviderRegistered(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionProviderRegistered, SeverityInfo, OutcomeSuccess,
		ResourceProvider, "", CategoryRegistry, nil,
		"event", "provider_registered",
	)
}

// OnProviderRemoved implements plugin.OnProviderRemoved.
func (e *Extension) OnProviderRemoved(ctx context.Context, pid id.ProviderID, refund types.Amount) error {
	return e.record(ctx, ActionProviderRemoved, SeverityInfo, OutcomeSuccess,
		ResourceProvider, pid.String(), CategoryRegistry, nil,
		"provider_id", pid.String(),
		"refund", refund.Format(),
	)
}

// OnFeeUpdated implements plugin.OnFeeUpdated.
func (e *Extension) OnFeeUpdated(ctx context.Context, pid id.ProviderID, oldFee, newFee types.Amount) error {
	return e.record(ctx, ActionProviderFeeUpdated, SeverityInfo, OutcomeSuccess,
		ResourceProvider, pid.String(), CategoryRegistry, nil,
		"provider_id", pid.String(),
		"old_fee", oldFee.Format(),
		"new_fee", newFee.Format(),
	)
}

// OnProviderStateChanged implements plugin.OnProviderStateChanged.
func (e *Extension) OnProviderStateChanged(ctx context.Context, pid id.ProviderID, active bool) error {
	severity := SeverityInfo
	if !active {
		// Deactivation cuts off new links and billing; flag it louder.
		severity = SeverityWarning
	}
	return e.record(ctx, ActionProviderStateChanged, severity, OutcomeSuccess,
		ResourceProvider, pid.String(), CategoryRegistry, nil,
		"provider_id", pid.String(),
		"active", active,
	)
}

// ──────────────────────────────────────────────────
// Subscriber lifecycle hooks
// ──────────────────────────────────────────────────

// OnSubscriberRegistered implements plugin.OnSubscriberRegistered.
func (e *Extension) OnSubscriberRegistered(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionSubscriberRegistered, SeverityInfo, OutcomeSuccess,
		ResourceSubscriber, "", CategoryEscrow, nil,
		"event", "subscriber_registered",
	)
}

// OnDeposit implements plugin.OnDeposit.
func (e *Extension) OnDeposit(ctx context.Context, sid id.SubscriberID, amount, balance types.Amount) error {
	return e.record(ctx, ActionEscrowDeposited, SeverityInfo, OutcomeSuccess,
		ResourceSubscriber, sid.String(), CategoryEscrow, nil,
		"subscriber_id", sid.String(),
		"amount", amount.Format(),
		"balance", balance.Format(),
	)
}

// ──────────────────────────────────────────────────
// Billing hooks
// ──────────────────────────────────────────────────

// OnChargeSettled implements plugin.OnChargeSettled.
func (e *Extension) OnChargeSettled(ctx context.Context, pid id.ProviderID, sid id.SubscriberID, amount types.Amount) error {
	return e.record(ctx, ActionChargeSettled, SeverityInfo, OutcomeSuccess,
		ResourceLink, pid.String(), CategoryBilling, nil,
		"provider_id", pid.String(),
		"subscriber_id", sid.String(),
		"amount", amount.Format(),
	)
}

// OnLinkPaused implements plugin.OnLinkPaused.
func (e *Extension) OnLinkPaused(ctx context.Context, pid id.ProviderID, sid id.SubscriberID) error {
	return e.record(ctx, ActionLinkPaused, SeverityWarning, OutcomeSuccess,
		ResourceLink, pid.String(), CategoryBilling, nil,
		"provider_id", pid.String(),
		"subscriber_id", sid.String(),
	)
}

// OnLinkResumed implements plugin.OnLinkResumed.
func (e *Extension) OnLinkResumed(ctx context.Context, pid id.ProviderID, sid id.SubscriberID) error {
	return e.record(ctx, ActionLinkResumed, SeverityInfo, OutcomeSuccess,
		ResourceLink, pid.String(), CategoryBilling, nil,
		"provider_id", pid.String(),
		"subscriber_id", sid.String(),
	)
}

// OnWithdrawal implements plugin.OnWithdrawal.
func (e *Extension) OnWithdrawal(ctx context.Context, pid id.ProviderID, amount types.Amount) error {
	return e.record(ctx, ActionEarningsWithdrawn, SeverityInfo, OutcomeSuccess,
		ResourceProvider, pid.String(), CategoryPayout, nil,
		"provider_id", pid.String(),
		"amount", amount.Format(),
	)
}

// OnSettlementPass implements plugin.OnSettlementPass.
func (e *Extension) OnSettlementPass(ctx context.Context, pid id.ProviderID, settled, paused int, elapsed time.Duration) error {
	outcome := OutcomeSuccess
	if paused > 0 {
		outcome = OutcomePartial
	}
	return e.record(ctx, ActionSettlementPass, SeverityInfo, outcome,
		ResourceSettlement, pid.String(), CategoryBilling, nil,
		"provider_id", pid.String(),
		"settled", settled,
		"paused", paused,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		ID:         id.NewEventID(),
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}

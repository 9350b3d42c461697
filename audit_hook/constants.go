package audithook

// Action constants for audit events.
const (
	// Provider actions
	ActionProviderRegistered   = "provider.registered"
	ActionProviderRemoved      = "provider.removed"
	ActionProviderFeeUpdated   = "provider.fee_updated"
	ActionProviderStateChanged = "provider.state_changed"

	// Subscriber actions
	ActionSubscriberRegistered = "subscriber.registered"
	ActionEscrowDeposited      = "escrow.deposited"

	// Billing actions
	ActionChargeSettled     = "charge.settled"
	ActionLinkPaused        = "link.paused"
	ActionLinkResumed       = "link.resumed"
	ActionEarningsWithdrawn = "earnings.withdrawn"
	ActionSettlementPass    = "settlement.pass"
)

// Resource constants for audit events.
const (
	ResourceProvider   = "provider"
	ResourceSubscriber = "subscriber"
	ResourceLink       = "link"
	ResourceSettlement = "settlement"
)

// Category constants for audit events.
const (
	CategoryRegistry = "registry"
	CategoryEscrow   = "escrow"
	CategoryBilling  = "billing"
	CategoryPayout   = "payout"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)

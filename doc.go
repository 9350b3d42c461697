// Package tally provides a composable recurring-billing ledger for Go applications.
//
// Tally is designed as a library, not a service. Import it directly into your Go
// application for maximum performance and flexibility. It provides:
//
//   - Provider registration with capacity limits and key uniqueness
//   - Subscriber escrow accounting with multi-provider links
//   - Cycle-based settlement that conserves funds on every charge
//   - A pause/resume state machine protecting provider earnings
//   - Pluggable price oracle, settlement transfer, and access control
//   - Memory, SQLite, Postgres, and MongoDB storage backends
//
// # Quick Start
//
// Create a ledger instance with your preferred store:
//
//	import (
//	    "github.com/xraph/tally"
//	    "github.com/xraph/tally/store/postgres"
//	)
//
//	// Initialize store
//	store, err := postgres.Open(databaseURL)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Create ledger
//	l := tally.New(store)
//
//	// Start the ledger (migrates the store, initializes plugins)
//	if err := l.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Stop()
//
// # Core Concepts
//
// Providers register offerings with a per-cycle fee:
//
//	pid, err := l.RegisterProvider(ctx, "0xprovider", pubKey, tally.Units(100))
//
// Subscribers deposit escrow and link to providers; each link is
// charged one cycle immediately:
//
//	sid, err := l.RegisterSubscriber(ctx, "0xsubscriber", tally.Units(250), []tally.ProviderID{pid})
//
// Settlement moves due fees from subscriber escrow to provider
// earnings, pausing links that cannot cover their fee:
//
//	balance, err := l.ProcessPayments(ctx, pid)
//
// Earnings leave the system only through withdrawal, which settles all
// due cycles first and rearms a rolling 30-day lockout:
//
//	err := l.WithdrawEarnings(ctx, "0xprovider", pid, tally.Units(100))
//
// # Accounting
//
// All monetary calculations use integer arithmetic to avoid
// floating-point precision issues. The Amount type represents
// settlement-token base units; on every settled charge the amount
// debited from the subscriber equals the amount credited to the
// provider, so billing never creates or destroys funds.
//
// # Integration
//
// Tally integrates with the Forgery ecosystem:
//
//   - Forge: extension lifecycle, configuration, and DI
//   - Vessel: service registration for injected ledger instances
//
// # Identifiers
//
// Providers and subscribers use dense sequential ids issued by the
// store, starting at 1; zero always means "absent". Append-only
// records (audit events, transfer receipts) use K-sortable TypeIDs:
//
//	evt_01h2xcejqtf2nbrexx3vqjhp41  // Event ID
//	pay_01h455vb4pex5vsknk084sn02q  // Receipt ID
package tally

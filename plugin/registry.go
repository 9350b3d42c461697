package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/tally/id"
	"github.com/xraph/tally/types"
)

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	// Type-cached plugin lists for efficient dispatch
	onInit                 []OnInit
	onShutdown             []OnShutdown
	onProviderRegistered   []OnProviderRegistered
	onProviderRemoved      []OnProviderRemoved
	onFeeUpdated           []OnFeeUpdated
	onProviderStateChanged []OnProviderStateChanged
	onSubscriberRegistered []OnSubscriberRegistered
	onDeposit              []OnDeposit
	onChargeSettled        []OnChargeSettled
	onLinkPaused           []OnLinkPaused
	onLinkResumed          []OnLinkResumed
	onWithdrawal           []OnWithdrawal
	onSettlementPass       []OnSettlementPass
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger: slog.Default(),
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnProviderRegistered); ok {
		r.onProviderRegistered = append(r.onProviderRegistered, v)
	}
	if v, ok := p.(OnProviderRemoved); ok {
		r.onProviderRemoved = append(r.onProviderRemoved, v)
	}
	if v, ok := p.(OnFeeUpdated); ok {
		r.onFeeUpdated = append(r.onFeeUpdated, v)
	}
	if v, ok := p.(OnProviderStateChanged); ok {
		r.onProviderStateChanged = append(r.onProviderStateChanged, v)
	}
	if v, ok := p.(OnSubscriberRegistered); ok {
		r.onSubscriberRegistered = append(r.onSubscriberRegistered, v)
	}
	if v, ok := p.(OnDeposit); ok {
		r.onDeposit = append(r.onDeposit, v)
	}
	if v, ok := p.(OnChargeSettled); ok {
		r.onChargeSettled = append(r.onChargeSettled, v)
	}
	if v, ok := p.(OnLinkPaused); ok {
		r.onLinkPaused = append(r.onLinkPaused, v)
	}
	if v, ok := p.(OnLinkResumed); ok {
		r.onLinkResumed = append(r.onLinkResumed, v)
	}
	if v, ok := p.(OnWithdrawal); ok {
		r.onWithdrawal = append(r.onWithdrawal, v)
	}
	if v, ok := p.(OnSettlementPass); ok {
		r.onSettlementPass = append(r.onSettlementPass, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", r.getImplementedInterfaces(p),
	)

	return nil
}

// getImplementedInterfaces returns a list of interfaces implemented by the plugin.
func (r *Registry) getImplementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)

	// Check each interface
	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	// List all interfaces to check
	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnProviderRegistered)(nil)).Elem(), "OnProviderRegistered")
	checkInterface(reflect.TypeOf((*OnProviderRemoved)(nil)).Elem(), "OnProviderRemoved")
	checkInterface(reflect.TypeOf((*OnFeeUpdated)(nil)).Elem(), "OnFeeUpdated")
	checkInterface(reflect.TypeOf((*OnProviderStateChanged)(nil)).Elem(), "OnProviderStateChanged")
	checkInterface(reflect.TypeOf((*OnSubscriberRegistered)(nil)).Elem(), "OnSubscriberRegistered")
	checkInterface(reflect.TypeOf((*OnDeposit)(nil)).Elem(), "OnDeposit")
	checkInterface(reflect.TypeOf((*OnChargeSettled)(nil)).Elem(), "OnChargeSettled")
	checkInterface(reflect.TypeOf((*OnLinkPaused)(nil)).Elem(), "OnLinkPaused")
	checkInterface(reflect.TypeOf((*OnLinkResumed)(nil)).Elem(), "OnLinkResumed")
	checkInterface(reflect.TypeOf((*OnWithdrawal)(nil)).Elem(), "OnWithdrawal")
	checkInterface(reflect.TypeOf((*OnSettlementPass)(nil)).Elem(), "OnSettlementPass")

	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, ledger interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, ledger)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitProviderRegistered emits a provider registered event.
func (r *Registry) EmitProviderRegistered(ctx context.Context, prov interface{}) {
	r.mu.RLock()
	plugins := r.onProviderRegistered
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnProviderRegistered(ctx, prov)
		}); err != nil {
			r.logger.Warn("plugin OnProviderRegistered failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitProviderRemoved emits a provider removed event.
func (r *Registry) EmitProviderRemoved(ctx context.Context, pid id.ProviderID, refund types.Amount) {
	r.mu.RLock()
	plugins := r.onProviderRemoved
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnProviderRemoved(ctx, pid, refund)
		}); err != nil {
			r.logger.Warn("plugin OnProviderRemoved failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitFeeUpdated emits a fee updated event.
func (r *Registry) EmitFeeUpdated(ctx context.Context, pid id.ProviderID, oldFee, newFee types.Amount) {
	r.mu.RLock()
	plugins := r.onFeeUpdated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnFeeUpdated(ctx, pid, oldFee, newFee)
		}); err != nil {
			r.logger.Warn("plugin OnFeeUpdated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitProviderStateChanged emits a provider state changed event.
func (r *Registry) EmitProviderStateChanged(ctx context.Context, pid id.ProviderID, active bool) {
	r.mu.RLock()
	plugins := r.onProviderStateChanged
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnProviderStateChanged(ctx, pid, active)
		}); err != nil {
			r.logger.Warn("plugin OnProviderStateChanged failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitSubscriberRegistered emits a subscriber registered event.
func (r *Registry) EmitSubscriberRegistered(ctx context.Context, sub interface{}) {
	r.mu.RLock()
	plugins := r.onSubscriberRegistered
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnSubscriberRegistered(ctx, sub)
		}); err != nil {
			r.logger.Warn("plugin OnSubscriberRegistered failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitDeposit emits a deposit event.
func (r *Registry) EmitDeposit(ctx context.Context, sid id.SubscriberID, amount, balance types.Amount) {
	r.mu.RLock()
	plugins := r.onDeposit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnDeposit(ctx, sid, amount, balance)
		}); err != nil {
			r.logger.Warn("plugin OnDeposit failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitChargeSettled emits a charge settled event.
func (r *Registry) EmitChargeSettled(ctx context.Context, pid id.ProviderID, sid id.SubscriberID, amount types.Amount) {
	r.mu.RLock()
	plugins := r.onChargeSettled
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnChargeSettled(ctx, pid, sid, amount)
		}); err != nil {
			r.logger.Warn("plugin OnChargeSettled failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitLinkPaused emits a link paused event.
func (r *Registry) EmitLinkPaused(ctx context.Context, pid id.ProviderID, sid id.SubscriberID) {
	r.mu.RLock()
	plugins := r.onLinkPaused
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnLinkPaused(ctx, pid, sid)
		}); err != nil {
			r.logger.Warn("plugin OnLinkPaused failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitLinkResumed emits a link resumed event.
func (r *Registry) EmitLinkResumed(ctx context.Context, pid id.ProviderID, sid id.SubscriberID) {
	r.mu.RLock()
	plugins := r.onLinkResumed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnLinkResumed(ctx, pid, sid)
		}); err != nil {
			r.logger.Warn("plugin OnLinkResumed failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitWithdrawal emits a withdrawal event.
func (r *Registry) EmitWithdrawal(ctx context.Context, pid id.ProviderID, amount types.Amount) {
	r.mu.RLock()
	plugins := r.onWithdrawal
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnWithdrawal(ctx, pid, amount)
		}); err != nil {
			r.logger.Warn("plugin OnWithdrawal failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitSettlementPass emits a settlement pass event.
func (r *Registry) EmitSettlementPass(ctx context.Context, pid id.ProviderID, settled, paused int, elapsed time.Duration) {
	r.mu.RLock()
	plugins := r.onSettlementPass
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnSettlementPass(ctx, pid, settled, paused, elapsed)
		}); err != nil {
			r.logger.Warn("plugin OnSettlementPass failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the billing pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}

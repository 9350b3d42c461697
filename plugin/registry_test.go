package plugin

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xraph/tally/id"
	"github.com/xraph/tally/types"
)

type basePlugin struct{ name string }

func (p basePlugin) Name() string { return p.name }

type chargePlugin struct {
	basePlugin
	calls atomic.Int64
	last  types.Amount
}

func (p *chargePlugin) OnChargeSettled(_ context.Context, _ id.ProviderID, _ id.SubscriberID, amount types.Amount) error {
	p.calls.Add(1)
	p.last = amount
	return nil
}

type failingPlugin struct{ basePlugin }

func (p *failingPlugin) OnChargeSettled(context.Context, id.ProviderID, id.SubscriberID, types.Amount) error {
	return errors.New("boom")
}

type slowPlugin struct {
	basePlugin
	block chan struct{}
}

func (p *slowPlugin) OnSettlementPass(ctx context.Context, _ id.ProviderID, _, _ int, _ time.Duration) error {
	select {
	case <-p.block:
	case <-ctx.Done():
	}
	return nil
}

func TestRegisterAndDispatch(t *testing.T) {
	r := NewRegistry()
	p := &chargePlugin{basePlugin: basePlugin{name: "charges"}}

	if err := r.Register(p); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if r.Count() != 1 {
		t.Errorf("Count = %d, want 1", r.Count())
	}
	if r.Get("charges") != p {
		t.Error("Get did not return the registered plugin")
	}

	r.EmitChargeSettled(context.Background(), 1, 2, types.Units(100))
	if got := p.calls.Load(); got != 1 {
		t.Errorf("hook called %d times, want 1", got)
	}
	if p.last != types.Units(100) {
		t.Errorf("hook amount = %d, want 100", p.last.Units())
	}
}

func TestRegisterDuplicate(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(basePlugin{name: "dup"}); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}
	if err := r.Register(basePlugin{name: "dup"}); err == nil {
		t.Error("expected error for duplicate plugin name")
	}
}

func TestDispatchSkipsNonImplementers(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(basePlugin{name: "bare"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	// A bare plugin implements no hooks; emission must be a no-op.
	r.EmitChargeSettled(context.Background(), 1, 2, types.Units(1))
	r.EmitLinkPaused(context.Background(), 1, 2)
}

func TestFailingPluginDoesNotStopOthers(t *testing.T) {
	r := NewRegistry()
	ok := &chargePlugin{basePlugin: basePlugin{name: "ok"}}

	if err := r.Register(&failingPlugin{basePlugin{name: "bad"}}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := r.Register(ok); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	r.EmitChargeSettled(context.Background(), 1, 2, types.Units(5))
	if got := ok.calls.Load(); got != 1 {
		t.Errorf("healthy plugin called %d times, want 1", got)
	}
}

func TestDispatchHonorsContextCancellation(t *testing.T) {
	r := NewRegistry()
	slow := &slowPlugin{basePlugin: basePlugin{name: "slow"}, block: make(chan struct{})}
	if err := r.Register(slow); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		r.EmitSettlementPass(ctx, 1, 0, 0, 0)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("emission blocked on canceled context")
	}
	close(slow.block)
}

package settlement

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/tally/types"
)

func TestPoolFundAndPull(t *testing.T) {
	p := NewPool()
	ctx := context.Background()

	p.Fund("alice", types.Units(1000))
	if got := p.Balance("alice"); got != types.Units(1000) {
		t.Fatalf("Balance = %d, want 1000", got.Units())
	}

	if err := p.PullFrom(ctx, "alice", types.Units(400)); err != nil {
		t.Fatalf("PullFrom failed: %v", err)
	}
	if got := p.Balance("alice"); got != types.Units(600) {
		t.Errorf("Balance after pull = %d, want 600", got.Units())
	}
}

func TestPoolPullInsufficient(t *testing.T) {
	p := NewPool()
	ctx := context.Background()

	p.Fund("alice", types.Units(100))
	err := p.PullFrom(ctx, "alice", types.Units(101))
	if !errors.Is(err, ErrTransferFailed) {
		t.Fatalf("expected ErrTransferFailed, got %v", err)
	}
	if got := p.Balance("alice"); got != types.Units(100) {
		t.Errorf("failed pull moved funds: balance = %d", got.Units())
	}
}

func TestPoolPush(t *testing.T) {
	p := NewPool()
	ctx := context.Background()

	if err := p.PushTo(ctx, "bob", types.Units(250)); err != nil {
		t.Fatalf("PushTo failed: %v", err)
	}
	if got := p.Balance("bob"); got != types.Units(250) {
		t.Errorf("Balance after push = %d, want 250", got.Units())
	}
}

func TestPoolRejectsNegative(t *testing.T) {
	p := NewPool()
	ctx := context.Background()

	if err := p.PullFrom(ctx, "alice", types.Units(-1)); !errors.Is(err, ErrTransferFailed) {
		t.Errorf("negative pull: got %v, want ErrTransferFailed", err)
	}
	if err := p.PushTo(ctx, "alice", types.Units(-1)); !errors.Is(err, ErrTransferFailed) {
		t.Errorf("negative push: got %v, want ErrTransferFailed", err)
	}
}

func TestPoolAddressNormalization(t *testing.T) {
	p := NewPool()

	p.Fund("Alice", types.Units(50))
	if got := p.Balance("alice"); got != types.Units(50) {
		t.Errorf("case-insensitive lookup failed: %d", got.Units())
	}
}

func TestPoolReceipts(t *testing.T) {
	p := NewPool()
	ctx := context.Background()

	p.Fund("alice", types.Units(100))
	if err := p.PullFrom(ctx, "alice", types.Units(60)); err != nil {
		t.Fatalf("PullFrom failed: %v", err)
	}
	if err := p.PushTo(ctx, "bob", types.Units(60)); err != nil {
		t.Fatalf("PushTo failed: %v", err)
	}

	receipts := p.Receipts()
	if len(receipts) != 2 {
		t.Fatalf("expected 2 receipts, got %d", len(receipts))
	}
	if receipts[0].Direction != DirectionPull || receipts[0].Account != "alice" {
		t.Errorf("receipt 0 = %+v, want pull from alice", receipts[0])
	}
	if receipts[1].Direction != DirectionPush || receipts[1].Account != "bob" {
		t.Errorf("receipt 1 = %+v, want push to bob", receipts[1])
	}
	for _, r := range receipts {
		if r.ID.IsNil() {
			t.Error("receipt with nil ID")
		}
	}
}

func TestUnmanaged(t *testing.T) {
	ctx := context.Background()
	var u Unmanaged

	if err := u.PullFrom(ctx, "anyone", types.Units(1_000_000)); err != nil {
		t.Errorf("Unmanaged.PullFrom failed: %v", err)
	}
	if err := u.PushTo(ctx, "anyone", types.Units(1_000_000)); err != nil {
		t.Errorf("Unmanaged.PushTo failed: %v", err)
	}
}

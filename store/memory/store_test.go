package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/tally"
	"github.com/xraph/tally/id"
	"github.com/xraph/tally/provider"
	"github.com/xraph/tally/store"
	"github.com/xraph/tally/subscriber"
	"github.com/xraph/tally/types"
)

func testProvider(pid id.ProviderID, key string) *provider.Provider {
	return &provider.Provider{
		Entity:      types.NewEntity(time.Now()),
		ID:          pid,
		Owner:       "owner",
		KeyHash:     provider.HashKey([]byte(key), "owner"),
		FeePerCycle: types.Units(100),
		Cycle:       provider.CycleMonth,
		Active:      true,
	}
}

func TestApplyAndGet(t *testing.T) {
	s := New()
	ctx := context.Background()

	p := testProvider(1, "key-1")
	cs := &store.ChangeSet{ProviderSeq: 1}
	cs.PutProvider(p)
	if err := s.Apply(ctx, cs); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	got, err := s.GetProvider(ctx, 1)
	if err != nil {
		t.Fatalf("GetProvider failed: %v", err)
	}
	if got.KeyHash != p.KeyHash {
		t.Errorf("KeyHash mismatch")
	}

	seq, err := s.Sequence(ctx, id.KindProvider)
	if err != nil {
		t.Fatalf("Sequence failed: %v", err)
	}
	if seq != 1 {
		t.Errorf("Sequence = %d, want 1", seq)
	}
}

func TestGetReturnsClone(t *testing.T) {
	s := New()
	ctx := context.Background()

	p := testProvider(1, "key-1")
	p.Links = []provider.Link{{SubscriberID: 9}}
	cs := &store.ChangeSet{}
	cs.PutProvider(p)
	if err := s.Apply(ctx, cs); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	got, _ := s.GetProvider(ctx, 1)
	got.Links[0].Paused = true
	got.Balance = types.Units(999)

	fresh, _ := s.GetProvider(ctx, 1)
	if fresh.Links[0].Paused || fresh.Balance != 0 {
		t.Error("mutating a Get result leaked into stored state")
	}
}

func TestGetProviderNotFound(t *testing.T) {
	s := New()
	if _, err := s.GetProvider(context.Background(), 42); !errors.Is(err, tally.ErrProviderNotFound) {
		t.Errorf("expected ErrProviderNotFound, got %v", err)
	}
}

func TestGetByKeyHash(t *testing.T) {
	s := New()
	ctx := context.Background()

	p := testProvider(1, "key-1")
	cs := &store.ChangeSet{}
	cs.PutProvider(p)
	if err := s.Apply(ctx, cs); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	got, err := s.GetProviderByKeyHash(ctx, p.KeyHash)
	if err != nil {
		t.Fatalf("GetProviderByKeyHash failed: %v", err)
	}
	if got.ID != 1 {
		t.Errorf("ID = %v, want 1", got.ID)
	}

	if _, err := s.GetProviderByKeyHash(ctx, "missing"); !errors.Is(err, tally.ErrProviderNotFound) {
		t.Errorf("expected ErrProviderNotFound, got %v", err)
	}
}

func TestRemoveProviderClearsIndex(t *testing.T) {
	s := New()
	ctx := context.Background()

	p := testProvider(1, "key-1")
	cs := &store.ChangeSet{}
	cs.PutProvider(p)
	if err := s.Apply(ctx, cs); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if err := s.Apply(ctx, &store.ChangeSet{RemoveProviders: []id.ProviderID{1}}); err != nil {
		t.Fatalf("Apply remove failed: %v", err)
	}

	if _, err := s.GetProvider(ctx, 1); !errors.Is(err, tally.ErrProviderNotFound) {
		t.Errorf("expected ErrProviderNotFound after removal, got %v", err)
	}
	if _, err := s.GetProviderByKeyHash(ctx, p.KeyHash); !errors.Is(err, tally.ErrProviderNotFound) {
		t.Error("key hash index not cleared on removal")
	}

	// The hash is free for a new registration.
	p2 := testProvider(2, "key-1")
	cs2 := &store.ChangeSet{}
	cs2.PutProvider(p2)
	if err := s.Apply(ctx, cs2); err != nil {
		t.Fatalf("re-register after removal failed: %v", err)
	}
}

func TestListProviders(t *testing.T) {
	s := New()
	ctx := context.Background()

	cs := &store.ChangeSet{}
	for i := 1; i <= 5; i++ {
		p := testProvider(id.ProviderID(i), string(rune('a'+i)))
		if i%2 == 0 {
			p.Active = false
		}
		if i == 5 {
			p.Owner = "other"
		}
		cs.PutProvider(p)
	}
	if err := s.Apply(ctx, cs); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	all, err := s.ListProviders(ctx, provider.ListOpts{})
	if err != nil {
		t.Fatalf("ListProviders failed: %v", err)
	}
	if len(all) != 5 {
		t.Errorf("len = %d, want 5", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].ID >= all[i].ID {
			t.Error("results not ordered by ID")
		}
	}

	active, _ := s.ListProviders(ctx, provider.ListOpts{ActiveOnly: true})
	if len(active) != 3 {
		t.Errorf("active len = %d, want 3", len(active))
	}

	owned, _ := s.ListProviders(ctx, provider.ListOpts{Owner: "other"})
	if len(owned) != 1 || owned[0].ID != 5 {
		t.Errorf("owner filter returned %d rows", len(owned))
	}

	// The owner filter is normalized the same way stored owners are.
	owned, _ = s.ListProviders(ctx, provider.ListOpts{Owner: "  OTHER "})
	if len(owned) != 1 || owned[0].ID != 5 {
		t.Errorf("unnormalized owner filter returned %d rows", len(owned))
	}

	page, _ := s.ListProviders(ctx, provider.ListOpts{Limit: 2, Offset: 1})
	if len(page) != 2 || page[0].ID != 2 {
		t.Errorf("pagination returned %d rows starting at %v", len(page), page[0].ID)
	}

	count, _ := s.CountProviders(ctx)
	if count != 5 {
		t.Errorf("CountProviders = %d, want 5", count)
	}
}

func TestSubscribers(t *testing.T) {
	s := New()
	ctx := context.Background()

	sub := &subscriber.Subscriber{
		ID:          3,
		Owner:       "bob",
		Balance:     types.Units(500),
		ProviderIDs: []id.ProviderID{1},
	}
	cs := &store.ChangeSet{SubscriberSeq: 3}
	cs.PutSubscriber(sub)
	if err := s.Apply(ctx, cs); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	got, err := s.GetSubscriber(ctx, 3)
	if err != nil {
		t.Fatalf("GetSubscriber failed: %v", err)
	}
	if got.Balance != types.Units(500) {
		t.Errorf("Balance = %d, want 500", got.Balance.Units())
	}

	if _, err := s.GetSubscriber(ctx, 99); !errors.Is(err, tally.ErrSubscriberNotFound) {
		t.Errorf("expected ErrSubscriberNotFound, got %v", err)
	}
}

func TestChangeSetPutDedupes(t *testing.T) {
	cs := &store.ChangeSet{}
	a := testProvider(1, "key-1")
	b := testProvider(1, "key-1")
	b.Balance = types.Units(77)

	cs.PutProvider(a)
	cs.PutProvider(b)
	if len(cs.Providers) != 1 {
		t.Fatalf("staged %d providers, want 1", len(cs.Providers))
	}
	if cs.Providers[0].Balance != types.Units(77) {
		t.Error("later Put did not replace earlier staged copy")
	}
}

func TestClosedStore(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, err := s.GetProvider(ctx, 1); !errors.Is(err, tally.ErrStoreClosed) {
		t.Errorf("GetProvider on closed store: got %v", err)
	}
	if err := s.Apply(ctx, &store.ChangeSet{}); !errors.Is(err, tally.ErrStoreClosed) {
		t.Errorf("Apply on closed store: got %v", err)
	}
	if err := s.Ping(ctx); !errors.Is(err, tally.ErrStoreClosed) {
		t.Errorf("Ping on closed store: got %v", err)
	}
}

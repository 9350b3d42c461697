package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	tally "github.com/xraph/tally"
	"github.com/xraph/tally/id"
	"github.com/xraph/tally/provider"
	"github.com/xraph/tally/store"
	"github.com/xraph/tally/subscriber"
	"github.com/xraph/tally/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	return s
}

func testProvider(pid id.ProviderID, key string) *provider.Provider {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &provider.Provider{
		Entity:      types.NewEntity(now),
		ID:          pid,
		Owner:       "owner",
		KeyHash:     provider.HashKey([]byte(key), "owner"),
		FeePerCycle: types.Units(100),
		Cycle:       provider.CycleMonth,
		Active:      true,
		Links: []provider.Link{
			{SubscriberID: 1, NextBillingAt: now.Add(30 * 24 * time.Hour)},
		},
		NextWithdrawalAt: now.Add(30 * 24 * time.Hour),
	}
}

func TestMigrateIdempotent(t *testing.T) {
	s := newTestStore(t)
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}
}

func TestApplyAndGetProvider(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := testProvider(1, "key-1")
	cs := &store.ChangeSet{ProviderSeq: 1}
	cs.PutProvider(p)
	if err := s.Apply(ctx, cs); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	seq, err := s.Sequence(ctx, id.KindProvider)
	if err != nil {
		t.Fatalf("Sequence failed: %v", err)
	}
	if seq != 1 {
		t.Errorf("sequence = %d, want 1", seq)
	}

	got, err := s.GetProvider(ctx, 1)
	if err != nil {
		t.Fatalf("GetProvider failed: %v", err)
	}
	if got.Owner != p.Owner || got.KeyHash != p.KeyHash || got.FeePerCycle != p.FeePerCycle {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.Cycle != provider.CycleMonth || !got.Active {
		t.Errorf("cycle/active mismatch: %+v", got)
	}
	if len(got.Links) != 1 || got.Links[0].SubscriberID != 1 {
		t.Errorf("links mismatch: %+v", got.Links)
	}
	if !got.Links[0].NextBillingAt.Equal(p.Links[0].NextBillingAt) {
		t.Errorf("due time mismatch: %v != %v", got.Links[0].NextBillingAt, p.Links[0].NextBillingAt)
	}
	if !got.NextWithdrawalAt.Equal(p.NextWithdrawalAt) {
		t.Errorf("withdrawal time mismatch: %v", got.NextWithdrawalAt)
	}
	if !got.CreatedAt.Equal(p.CreatedAt) {
		t.Errorf("created_at mismatch: %v != %v", got.CreatedAt, p.CreatedAt)
	}
}

func TestGetProviderNotFound(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.GetProvider(context.Background(), 99); !errors.Is(err, tally.ErrProviderNotFound) {
		t.Errorf("got %v, want ErrProviderNotFound", err)
	}
	if _, err := s.GetProviderByKeyHash(context.Background(), "nope"); !errors.Is(err, tally.ErrProviderNotFound) {
		t.Errorf("keyhash lookup: got %v, want ErrProviderNotFound", err)
	}
}

func TestGetProviderByKeyHash(t *testing.T) {
	s := newTestStore(t)
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
	if got.ID != p.ID {
		t.Errorf("id = %v, want %v", got.ID, p.ID)
	}
}

func TestRemoveProviderFreesKeyHash(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := testProvider(1, "key-1")
	cs := &store.ChangeSet{}
	cs.PutProvider(p)
	if err := s.Apply(ctx, cs); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if err := s.Apply(ctx, &store.ChangeSet{RemoveProviders: []id.ProviderID{1}}); err != nil {
		t.Fatalf("removal Apply failed: %v", err)
	}
	if _, err := s.GetProvider(ctx, 1); !errors.Is(err, tally.ErrProviderNotFound) {
		t.Fatalf("provider still readable after removal: %v", err)
	}

	// The unique key hash is reusable after removal.
	p2 := testProvider(2, "key-1")
	cs2 := &store.ChangeSet{}
	cs2.PutProvider(p2)
	if err := s.Apply(ctx, cs2); err != nil {
		t.Fatalf("re-registering freed key hash failed: %v", err)
	}
}

func TestListProviders(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cs := &store.ChangeSet{}
	for i := 1; i <= 5; i++ {
		p := testProvider(id.ProviderID(i), "key-"+string(rune('0'+i)))
		if i == 3 {
			p.Owner = "other"
		}
		if i == 4 {
			p.Active = false
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
		t.Fatalf("len = %d, want 5", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].ID <= all[i-1].ID {
			t.Fatal("results not ordered by id")
		}
	}

	byOwner, err := s.ListProviders(ctx, provider.ListOpts{Owner: "other"})
	if err != nil {
		t.Fatalf("owner filter failed: %v", err)
	}
	if len(byOwner) != 1 || byOwner[0].ID != 3 {
		t.Errorf("owner filter = %+v", byOwner)
	}

	active, err := s.ListProviders(ctx, provider.ListOpts{ActiveOnly: true})
	if err != nil {
		t.Fatalf("active filter failed: %v", err)
	}
	if len(active) != 4 {
		t.Errorf("active filter len = %d, want 4", len(active))
	}

	page, err := s.ListProviders(ctx, provider.ListOpts{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("pagination failed: %v", err)
	}
	if len(page) != 2 || page[0].ID != 3 || page[1].ID != 4 {
		t.Errorf("page = %+v", page)
	}

	n, err := s.CountProviders(ctx)
	if err != nil {
		t.Fatalf("CountProviders failed: %v", err)
	}
	if n != 5 {
		t.Errorf("count = %d, want 5", n)
	}
}

func TestApplySubscriber(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sub := &subscriber.Subscriber{
		Entity:      types.NewEntity(now),
		ID:          1,
		Owner:       "bob",
		Balance:     types.Units(250),
		ProviderIDs: []id.ProviderID{1, 2},
	}
	cs := &store.ChangeSet{SubscriberSeq: 1}
	cs.PutSubscriber(sub)
	if err := s.Apply(ctx, cs); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	got, err := s.GetSubscriber(ctx, 1)
	if err != nil {
		t.Fatalf("GetSubscriber failed: %v", err)
	}
	if got.Owner != "bob" || got.Balance != types.Units(250) {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if len(got.ProviderIDs) != 2 {
		t.Errorf("provider ids = %v", got.ProviderIDs)
	}

	if _, err := s.GetSubscriber(ctx, 9); !errors.Is(err, tally.ErrSubscriberNotFound) {
		t.Errorf("missing subscriber: got %v, want ErrSubscriberNotFound", err)
	}

	seq, err := s.Sequence(ctx, id.KindSubscriber)
	if err != nil {
		t.Fatalf("Sequence failed: %v", err)
	}
	if seq != 1 {
		t.Errorf("sequence = %d, want 1", seq)
	}
}

func TestApplyOverwrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := testProvider(1, "key-1")
	cs := &store.ChangeSet{}
	cs.PutProvider(p)
	if err := s.Apply(ctx, cs); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	p.Balance = types.Units(500)
	p.Links[0].Paused = true
	cs2 := &store.ChangeSet{}
	cs2.PutProvider(p)
	if err := s.Apply(ctx, cs2); err != nil {
		t.Fatalf("overwrite Apply failed: %v", err)
	}

	got, err := s.GetProvider(ctx, 1)
	if err != nil {
		t.Fatalf("GetProvider failed: %v", err)
	}
	if got.Balance != types.Units(500) || !got.Links[0].Paused {
		t.Errorf("overwrite not persisted: %+v", got)
	}
}

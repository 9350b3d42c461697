// Package memory provides an in-memory Store. It is the default
// backend for tests and embedded use; state is lost on process exit.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/xraph/tally"
	"github.com/xraph/tally/id"
	"github.com/xraph/tally/provider"
	"github.com/xraph/tally/store"
	"github.com/xraph/tally/subscriber"
	"github.com/xraph/tally/types"
)

type Store struct {
	mu     sync.RWMutex
	closed bool

	// Sequence counters, last issued per kind.
	seqs map[id.Kind]uint64

	// Provider storage with a key-hash uniqueness index.
	providers map[id.ProviderID]*provider.Provider
	byKeyHash map[string]id.ProviderID

	// Subscriber storage
	subscribers map[id.SubscriberID]*subscriber.Subscriber
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		seqs:        make(map[id.Kind]uint64),
		providers:   make(map[id.ProviderID]*provider.Provider),
		byKeyHash:   make(map[string]id.ProviderID),
		subscribers: make(map[id.SubscriberID]*subscriber.Subscriber),
	}
}

func (s *Store) Sequence(_ context.Context, kind id.Kind) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, tally.ErrStoreClosed
	}
	return s.seqs[kind], nil
}

func (s *Store) GetProvider(_ context.Context, pid id.ProviderID) (*provider.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, tally.ErrStoreClosed
	}
	if p, ok := s.providers[pid]; ok {
		return p.Clone(), nil
	}
	return nil, tally.ErrProviderNotFound
}

func (s *Store) GetProviderByKeyHash(_ context.Context, keyHash string) (*provider.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, tally.ErrStoreClosed
	}
	if pid, ok := s.byKeyHash[keyHash]; ok {
		return s.providers[pid].Clone(), nil
	}
	return nil, tally.ErrProviderNotFound
}

func (s *Store) ListProviders(_ context.Context, opts provider.ListOpts) ([]*provider.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, tally.ErrStoreClosed
	}

	owner := types.NormalizeAddress(opts.Owner)
	result := make([]*provider.Provider, 0)
	for _, p := range s.providers {
		if owner != "" && p.Owner != owner {
			continue
		}
		if opts.ActiveOnly && !p.Active {
			continue
		}
		result = append(result, p.Clone())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	// Apply limit/offset
	start := opts.Offset
	if start > len(result) {
		start = len(result)
	}
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(result) {
		end = len(result)
	}

	return result[start:end], nil
}

func (s *Store) CountProviders(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, tally.ErrStoreClosed
	}
	return uint64(len(s.providers)), nil
}

func (s *Store) GetSubscriber(_ context.Context, sid id.SubscriberID) (*subscriber.Subscriber, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, tally.ErrStoreClosed
	}
	if sub, ok := s.subscribers[sid]; ok {
		return sub.Clone(), nil
	}
	return nil, tally.ErrSubscriberNotFound
}

// Apply commits the change set under the write lock. Everything is
// staged in maps first, so once the lock is held nothing can fail and
// the commit is all-or-nothing by construction.
func (s *Store) Apply(_ context.Context, cs *store.ChangeSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return tally.ErrStoreClosed
	}

	if cs.ProviderSeq > 0 {
		s.seqs[id.KindProvider] = cs.ProviderSeq
	}
	if cs.SubscriberSeq > 0 {
		s.seqs[id.KindSubscriber] = cs.SubscriberSeq
	}

	for _, p := range cs.Providers {
		if prev, ok := s.providers[p.ID]; ok && prev.KeyHash != p.KeyHash {
			delete(s.byKeyHash, prev.KeyHash)
		}
		s.providers[p.ID] = p.Clone()
		s.byKeyHash[p.KeyHash] = p.ID
	}

	for _, pid := range cs.RemoveProviders {
		if prev, ok := s.providers[pid]; ok {
			delete(s.byKeyHash, prev.KeyHash)
			delete(s.providers, pid)
		}
	}

	for _, sub := range cs.Subscribers {
		s.subscribers[sub.ID] = sub.Clone()
	}

	return nil
}

func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return tally.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

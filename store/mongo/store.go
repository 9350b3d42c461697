// Package mongo implements store.Store on MongoDB.
//
// Apply runs inside a multi-document transaction, which requires the
// server to be a replica set (a single-node replica set is enough).
package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	tally "github.com/xraph/tally"
	"github.com/xraph/tally/id"
	"github.com/xraph/tally/provider"
	tallystore "github.com/xraph/tally/store"
	"github.com/xraph/tally/subscriber"
	"github.com/xraph/tally/types"
)

// Collection name constants.
const (
	colSequences   = "tally_sequences"
	colProviders   = "tally_providers"
	colSubscribers = "tally_subscribers"
)

// compile-time interface check
var _ tallystore.Store = (*Store)(nil)

// Store implements store.Store on MongoDB.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Open connects to the deployment at uri and uses the named database.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("tally/mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("tally/mongo: ping: %w", err)
	}
	return &Store{client: client, db: client.Database(database)}, nil
}

// New wraps an existing client. The caller keeps ownership of the
// client's lifecycle if it is shared; Close disconnects it.
func New(client *mongo.Client, database string) *Store {
	return &Store{client: client, db: client.Database(database)}
}

// DB returns the underlying database handle for direct access.
func (s *Store) DB() *mongo.Database { return s.db }

// Migrate creates indexes for all tally collections.
func (s *Store) Migrate(ctx context.Context) error {
	providerIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "key_hash", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "owner", Value: 1}},
		},
	}
	if _, err := s.db.Collection(colProviders).Indexes().CreateMany(ctx, providerIndexes); err != nil {
		return fmt.Errorf("tally/mongo: migrate %s indexes: %w", colProviders, err)
	}

	subscriberIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "owner", Value: 1}},
		},
	}
	if _, err := s.db.Collection(colSubscribers).Indexes().CreateMany(ctx, subscriberIndexes); err != nil {
		return fmt.Errorf("tally/mongo: migrate %s indexes: %w", colSubscribers, err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}

// ==================== Sequences ====================

func (s *Store) Sequence(ctx context.Context, kind id.Kind) (uint64, error) {
	var m sequenceModel
	err := s.db.Collection(colSequences).
		FindOne(ctx, bson.M{"_id": string(kind)}).
		Decode(&m)
	if isNoDocuments(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("tally/mongo: sequence %s: %w", kind, err)
	}
	return uint64(m.LastID), nil
}

// ==================== Providers ====================

func (s *Store) GetProvider(ctx context.Context, pid id.ProviderID) (*provider.Provider, error) {
	var m providerModel
	err := s.db.Collection(colProviders).
		FindOne(ctx, bson.M{"_id": int64(pid)}).
		Decode(&m)
	if isNoDocuments(err) {
		return nil, tally.ErrProviderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("tally/mongo: get provider: %w", err)
	}
	return fromProviderModel(&m), nil
}

func (s *Store) GetProviderByKeyHash(ctx context.Context, keyHash string) (*provider.Provider, error) {
	var m providerModel
	err := s.db.Collection(colProviders).
		FindOne(ctx, bson.M{"key_hash": keyHash}).
		Decode(&m)
	if isNoDocuments(err) {
		return nil, tally.ErrProviderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("tally/mongo: get provider by key hash: %w", err)
	}
	return fromProviderModel(&m), nil
}

func (s *Store) ListProviders(ctx context.Context, opts provider.ListOpts) ([]*provider.Provider, error) {
	filter := bson.M{}
	if !opts.Owner.IsZero() {
		filter["owner"] = string(types.NormalizeAddress(opts.Owner))
	}
	if opts.ActiveOnly {
		filter["active"] = true
	}

	findOpts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		findOpts.SetSkip(int64(opts.Offset))
	}

	cur, err := s.db.Collection(colProviders).Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("tally/mongo: list providers: %w", err)
	}
	defer cur.Close(ctx)

	var result []*provider.Provider
	for cur.Next(ctx) {
		var m providerModel
		if err := cur.Decode(&m); err != nil {
			return nil, fmt.Errorf("tally/mongo: decode provider: %w", err)
		}
		result = append(result, fromProviderModel(&m))
	}
	return result, cur.Err()
}

func (s *Store) CountProviders(ctx context.Context) (uint64, error) {
	n, err := s.db.Collection(colProviders).CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("tally/mongo: count providers: %w", err)
	}
	return uint64(n), nil
}

// ==================== Subscribers ====================

func (s *Store) GetSubscriber(ctx context.Context, sid id.SubscriberID) (*subscriber.Subscriber, error) {
	var m subscriberModel
	err := s.db.Collection(colSubscribers).
		FindOne(ctx, bson.M{"_id": int64(sid)}).
		Decode(&m)
	if isNoDocuments(err) {
		return nil, tally.ErrSubscriberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("tally/mongo: get subscriber: %w", err)
	}
	return fromSubscriberModel(&m), nil
}

// ==================== Apply ====================

func (s *Store) Apply(ctx context.Context, cs *tallystore.ChangeSet) error {
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("%w: start session: %v", tally.ErrTransactionFailed, err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc context.Context) (any, error) {
		return nil, s.applyTx(sc, cs)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", tally.ErrTransactionFailed, err)
	}
	return nil
}

func (s *Store) applyTx(ctx context.Context, cs *tallystore.ChangeSet) error {
	replace := options.Replace().SetUpsert(true)

	if cs.ProviderSeq > 0 {
		if err := s.upsertSequence(ctx, id.KindProvider, cs.ProviderSeq); err != nil {
			return err
		}
	}
	if cs.SubscriberSeq > 0 {
		if err := s.upsertSequence(ctx, id.KindSubscriber, cs.SubscriberSeq); err != nil {
			return err
		}
	}

	for _, p := range cs.Providers {
		m := toProviderModel(p)
		if _, err := s.db.Collection(colProviders).
			ReplaceOne(ctx, bson.M{"_id": m.ID}, m, replace); err != nil {
			return fmt.Errorf("upsert provider %d: %w", p.ID, err)
		}
	}
	for _, pid := range cs.RemoveProviders {
		if _, err := s.db.Collection(colProviders).
			DeleteOne(ctx, bson.M{"_id": int64(pid)}); err != nil {
			return fmt.Errorf("delete provider %d: %w", pid, err)
		}
	}
	for _, sub := range cs.Subscribers {
		m := toSubscriberModel(sub)
		if _, err := s.db.Collection(colSubscribers).
			ReplaceOne(ctx, bson.M{"_id": m.ID}, m, replace); err != nil {
			return fmt.Errorf("upsert subscriber %d: %w", sub.ID, err)
		}
	}
	return nil
}

func (s *Store) upsertSequence(ctx context.Context, kind id.Kind, last uint64) error {
	_, err := s.db.Collection(colSequences).ReplaceOne(ctx,
		bson.M{"_id": string(kind)},
		&sequenceModel{Kind: string(kind), LastID: int64(last)},
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("sequence %s: %w", kind, err)
	}
	return nil
}

// ==================== Helpers ====================

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

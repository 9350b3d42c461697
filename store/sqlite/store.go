// Package sqlite implements store.Store on an embedded SQLite database
// using the modernc.org/sqlite driver. Suitable for single-node
// deployments and tests that need durable state without a server.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	tally "github.com/xraph/tally"
	"github.com/xraph/tally/id"
	"github.com/xraph/tally/provider"
	tallystore "github.com/xraph/tally/store"
	"github.com/xraph/tally/subscriber"
	"github.com/xraph/tally/types"
)

// compile-time interface check
var _ tallystore.Store = (*Store)(nil)

// Store implements store.Store on SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and returns a Store.
// Pass ":memory:" for an in-process throwaway database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("tally/sqlite: open %s: %w", path, err)
	}
	// The driver serializes access per connection; a single connection
	// avoids SQLITE_BUSY under concurrent writers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode = WAL; PRAGMA busy_timeout = 5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("tally/sqlite: set pragmas: %w", err)
	}
	return &Store{db: db}, nil
}

// New wraps an existing database handle. The caller keeps ownership of
// pragmas and pool settings.
func New(db *sql.DB) *Store { return &Store{db: db} }

// DB returns the underlying database handle for direct access.
func (s *Store) DB() *sql.DB { return s.db }

// Migrate applies any pending schema migrations.
func (s *Store) Migrate(ctx context.Context) error {
	return runMigrations(ctx, s.db)
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Sequences ====================

func (s *Store) Sequence(ctx context.Context, kind id.Kind) (uint64, error) {
	var last uint64
	err := s.db.QueryRowContext(ctx,
		`SELECT last_id FROM tally_sequences WHERE kind = ?`, string(kind),
	).Scan(&last)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("tally/sqlite: sequence %s: %w", kind, err)
	}
	return last, nil
}

// ==================== Providers ====================

func (s *Store) GetProvider(ctx context.Context, pid id.ProviderID) (*provider.Provider, error) {
	row := s.db.QueryRowContext(ctx,
		providerSelect+` WHERE id = ?`, uint64(pid))
	p, err := scanProvider(row)
	if err == sql.ErrNoRows {
		return nil, tally.ErrProviderNotFound
	}
	return p, err
}

func (s *Store) GetProviderByKeyHash(ctx context.Context, keyHash string) (*provider.Provider, error) {
	row := s.db.QueryRowContext(ctx,
		providerSelect+` WHERE key_hash = ?`, keyHash)
	p, err := scanProvider(row)
	if err == sql.ErrNoRows {
		return nil, tally.ErrProviderNotFound
	}
	return p, err
}

func (s *Store) ListProviders(ctx context.Context, opts provider.ListOpts) ([]*provider.Provider, error) {
	query := providerSelect + ` WHERE 1=1`
	var args []any

	if !opts.Owner.IsZero() {
		query += ` AND owner = ?`
		args = append(args, string(types.NormalizeAddress(opts.Owner)))
	}
	if opts.ActiveOnly {
		query += ` AND active = 1`
	}
	query += ` ORDER BY id ASC`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}
	if opts.Offset > 0 {
		if opts.Limit <= 0 {
			query += ` LIMIT -1`
		}
		query += ` OFFSET ?`
		args = append(args, opts.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("tally/sqlite: list providers: %w", err)
	}
	defer rows.Close()

	var result []*provider.Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (s *Store) CountProviders(ctx context.Context) (uint64, error) {
	var n uint64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tally_providers`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("tally/sqlite: count providers: %w", err)
	}
	return n, nil
}

// ==================== Subscribers ====================

func (s *Store) GetSubscriber(ctx context.Context, sid id.SubscriberID) (*subscriber.Subscriber, error) {
	row := s.db.QueryRowContext(ctx,
		subscriberSelect+` WHERE id = ?`, uint64(sid))
	sub, err := scanSubscriber(row)
	if err == sql.ErrNoRows {
		return nil, tally.ErrSubscriberNotFound
	}
	return sub, err
}

// ==================== Apply ====================

func (s *Store) Apply(ctx context.Context, cs *tallystore.ChangeSet) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", tally.ErrTransactionFailed, err)
	}
	defer tx.Rollback()

	if cs.ProviderSeq > 0 {
		if err := upsertSequence(ctx, tx, id.KindProvider, cs.ProviderSeq); err != nil {
			return err
		}
	}
	if cs.SubscriberSeq > 0 {
		if err := upsertSequence(ctx, tx, id.KindSubscriber, cs.SubscriberSeq); err != nil {
			return err
		}
	}

	for _, p := range cs.Providers {
		if err := upsertProvider(ctx, tx, p); err != nil {
			return err
		}
	}
	for _, pid := range cs.RemoveProviders {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM tally_providers WHERE id = ?`, uint64(pid)); err != nil {
			return fmt.Errorf("%w: delete provider %d: %v", tally.ErrTransactionFailed, pid, err)
		}
	}
	for _, sub := range cs.Subscribers {
		if err := upsertSubscriber(ctx, tx, sub); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", tally.ErrTransactionFailed, err)
	}
	return nil
}

func upsertSequence(ctx context.Context, tx *sql.Tx, kind id.Kind, last uint64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO tally_sequences (kind, last_id) VALUES (?, ?)
		ON CONFLICT (kind) DO UPDATE SET last_id = excluded.last_id`,
		string(kind), last)
	if err != nil {
		return fmt.Errorf("%w: sequence %s: %v", tally.ErrTransactionFailed, kind, err)
	}
	return nil
}

func upsertProvider(ctx context.Context, tx *sql.Tx, p *provider.Provider) error {
	links, err := json.Marshal(p.Links)
	if err != nil {
		return fmt.Errorf("tally/sqlite: encode links: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO tally_providers
			(id, owner, key_hash, fee_per_cycle, cycle, balance, active, links,
			 next_withdrawal_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			owner = excluded.owner,
			key_hash = excluded.key_hash,
			fee_per_cycle = excluded.fee_per_cycle,
			cycle = excluded.cycle,
			balance = excluded.balance,
			active = excluded.active,
			links = excluded.links,
			next_withdrawal_at = excluded.next_withdrawal_at,
			updated_at = excluded.updated_at`,
		uint64(p.ID), string(p.Owner), p.KeyHash, p.FeePerCycle.Units(),
		string(p.Cycle), p.Balance.Units(), boolToInt(p.Active), string(links),
		timeToNanos(p.NextWithdrawalAt), timeToNanos(p.CreatedAt), timeToNanos(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("%w: upsert provider %d: %v", tally.ErrTransactionFailed, p.ID, err)
	}
	return nil
}

func upsertSubscriber(ctx context.Context, tx *sql.Tx, sub *subscriber.Subscriber) error {
	pids, err := json.Marshal(sub.ProviderIDs)
	if err != nil {
		return fmt.Errorf("tally/sqlite: encode provider ids: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO tally_subscribers
			(id, owner, balance, provider_ids, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			owner = excluded.owner,
			balance = excluded.balance,
			provider_ids = excluded.provider_ids,
			updated_at = excluded.updated_at`,
		uint64(sub.ID), string(sub.Owner), sub.Balance.Units(), string(pids),
		timeToNanos(sub.CreatedAt), timeToNanos(sub.UpdatedAt))
	if err != nil {
		return fmt.Errorf("%w: upsert subscriber %d: %v", tally.ErrTransactionFailed, sub.ID, err)
	}
	return nil
}

// ==================== Row scanning ====================

const providerSelect = `
	SELECT id, owner, key_hash, fee_per_cycle, cycle, balance, active, links,
	       next_withdrawal_at, created_at, updated_at
	FROM tally_providers`

const subscriberSelect = `
	SELECT id, owner, balance, provider_ids, created_at, updated_at
	FROM tally_subscribers`

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanProvider(row scanner) (*provider.Provider, error) {
	var (
		pid, withdrawal, created, updated int64
		fee, balance                      int64
		owner, keyHash, cycle, links      string
		active                            int
	)
	if err := row.Scan(&pid, &owner, &keyHash, &fee, &cycle, &balance,
		&active, &links, &withdrawal, &created, &updated); err != nil {
		return nil, err
	}

	p := &provider.Provider{
		ID:               id.ProviderID(pid),
		Owner:            types.Address(owner),
		KeyHash:          keyHash,
		FeePerCycle:      types.Units(fee),
		Cycle:            provider.BillingCycle(cycle),
		Balance:          types.Units(balance),
		Active:           active != 0,
		NextWithdrawalAt: nanosToTime(withdrawal),
	}
	p.CreatedAt = nanosToTime(created)
	p.UpdatedAt = nanosToTime(updated)
	if err := json.Unmarshal([]byte(links), &p.Links); err != nil {
		return nil, fmt.Errorf("tally/sqlite: decode links for provider %d: %w", pid, err)
	}
	return p, nil
}

func scanSubscriber(row scanner) (*subscriber.Subscriber, error) {
	var (
		sid, created, updated int64
		balance               int64
		owner, pids           string
	)
	if err := row.Scan(&sid, &owner, &balance, &pids, &created, &updated); err != nil {
		return nil, err
	}

	sub := &subscriber.Subscriber{
		ID:      id.SubscriberID(sid),
		Owner:   types.Address(owner),
		Balance: types.Units(balance),
	}
	sub.CreatedAt = nanosToTime(created)
	sub.UpdatedAt = nanosToTime(updated)
	if err := json.Unmarshal([]byte(pids), &sub.ProviderIDs); err != nil {
		return nil, fmt.Errorf("tally/sqlite: decode provider ids for subscriber %d: %w", sid, err)
	}
	return sub, nil
}

// ==================== Helpers ====================

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// timeToNanos stores timestamps as unix nanoseconds; zero means unset.
func timeToNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func nanosToTime(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

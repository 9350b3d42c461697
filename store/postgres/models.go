package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	tally "github.com/xraph/tally"
	"github.com/xraph/tally/id"
	"github.com/xraph/tally/provider"
	"github.com/xraph/tally/subscriber"
	"github.com/xraph/tally/types"
)

// Rows are stored with link lists and provider-id lists as JSONB;
// timestamps are TIMESTAMPTZ and amounts are BIGINT base units.

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
		pid, fee, balance int64
		owner, keyHash    string
		cycle             string
		active            bool
		links             []byte
		withdrawal        sql.NullTime
		created, updated  sql.NullTime
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
		Active:           active,
		NextWithdrawalAt: withdrawal.Time,
	}
	p.CreatedAt = created.Time
	p.UpdatedAt = updated.Time
	if err := json.Unmarshal(links, &p.Links); err != nil {
		return nil, fmt.Errorf("tally/postgres: decode links for provider %d: %w", pid, err)
	}
	return p, nil
}

func scanSubscriber(row scanner) (*subscriber.Subscriber, error) {
	var (
		sid, balance     int64
		owner            string
		pids             []byte
		created, updated sql.NullTime
	)
	if err := row.Scan(&sid, &owner, &balance, &pids, &created, &updated); err != nil {
		return nil, err
	}

	sub := &subscriber.Subscriber{
		ID:      id.SubscriberID(sid),
		Owner:   types.Address(owner),
		Balance: types.Units(balance),
	}
	sub.CreatedAt = created.Time
	sub.UpdatedAt = updated.Time
	if err := json.Unmarshal(pids, &sub.ProviderIDs); err != nil {
		return nil, fmt.Errorf("tally/postgres: decode provider ids for subscriber %d: %w", sid, err)
	}
	return sub, nil
}

func upsertProvider(ctx context.Context, tx *sql.Tx, p *provider.Provider) error {
	links, err := json.Marshal(p.Links)
	if err != nil {
		return fmt.Errorf("tally/postgres: encode links: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO tally_providers
			(id, owner, key_hash, fee_per_cycle, cycle, balance, active, links,
			 next_withdrawal_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			owner = EXCLUDED.owner,
			key_hash = EXCLUDED.key_hash,
			fee_per_cycle = EXCLUDED.fee_per_cycle,
			cycle = EXCLUDED.cycle,
			balance = EXCLUDED.balance,
			active = EXCLUDED.active,
			links = EXCLUDED.links,
			next_withdrawal_at = EXCLUDED.next_withdrawal_at,
			updated_at = EXCLUDED.updated_at`,
		int64(p.ID), string(p.Owner), p.KeyHash, p.FeePerCycle.Units(),
		string(p.Cycle), p.Balance.Units(), p.Active, links,
		p.NextWithdrawalAt, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%w: upsert provider %d: %v", tally.ErrTransactionFailed, p.ID, err)
	}
	return nil
}

func upsertSubscriber(ctx context.Context, tx *sql.Tx, sub *subscriber.Subscriber) error {
	pids, err := json.Marshal(sub.ProviderIDs)
	if err != nil {
		return fmt.Errorf("tally/postgres: encode provider ids: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO tally_subscribers
			(id, owner, balance, provider_ids, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			owner = EXCLUDED.owner,
			balance = EXCLUDED.balance,
			provider_ids = EXCLUDED.provider_ids,
			updated_at = EXCLUDED.updated_at`,
		int64(sub.ID), string(sub.Owner), sub.Balance.Units(), pids,
		sub.CreatedAt, sub.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%w: upsert subscriber %d: %v", tally.ErrTransactionFailed, sub.ID, err)
	}
	return nil
}

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/xray/internal/contracts"
)

// HoldingsRepository implements contracts.HoldingsCache on Postgres.
// Tables are replaced atomically per fund so a reader never sees a
// half-written composition.
type HoldingsRepository struct {
	pool *pgxpool.Pool
}

func NewHoldingsRepository(pool *pgxpool.Pool) *HoldingsRepository {
	return &HoldingsRepository{pool: pool}
}

var _ contracts.HoldingsCache = (*HoldingsRepository)(nil)

// Get returns the cached table if fresher than maxAge
func (r *HoldingsRepository) Get(ctx context.Context, fundID string, maxAge time.Duration) (*contracts.HoldingsTable, bool, error) {
	var source string
	var fetchedAt time.Time
	err := r.pool.QueryRow(ctx, `
		SELECT source, fetched_at
		FROM xray.fund_holdings
		WHERE fund_id = $1
	`, fundID).Scan(&source, &fetchedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if time.Since(fetchedAt) > maxAge {
		return nil, false, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT raw_ticker, ticker, name, weight, provider_id
		FROM xray.fund_holding_rows
		WHERE fund_id = $1
		ORDER BY row_index ASC
	`, fundID)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	table := &contracts.HoldingsTable{
		FundID:    fundID,
		Source:    contracts.HoldingsSource(source),
		FetchedAt: fetchedAt,
	}
	for rows.Next() {
		var row contracts.HoldingRow
		if err := rows.Scan(&row.RawTicker, &row.Ticker, &row.Name, &row.Weight, &row.ProviderID); err != nil {
			return nil, false, err
		}
		table.Rows = append(table.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	return table, true, nil
}

// Put replaces the cached table for a fund
func (r *HoldingsRepository) Put(ctx context.Context, table *contracts.HoldingsTable) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin holdings write: %w", err)
	}
	defer tx.Rollback(ctx)

	fetchedAt := table.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now()
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO xray.fund_holdings (fund_id, source, fetched_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (fund_id) DO UPDATE SET
			source = EXCLUDED.source,
			fetched_at = EXCLUDED.fetched_at
	`, table.FundID, string(table.Source), fetchedAt)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM xray.fund_holding_rows WHERE fund_id = $1`, table.FundID); err != nil {
		return err
	}

	for i, row := range table.Rows {
		_, err := tx.Exec(ctx, `
			INSERT INTO xray.fund_holding_rows (fund_id, row_index, raw_ticker, ticker, name, weight, provider_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, table.FundID, i, row.RawTicker, row.Ticker, row.Name, row.Weight, row.ProviderID)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// Invalidate drops a fund's cached table
func (r *HoldingsRepository) Invalidate(ctx context.Context, fundID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM xray.fund_holdings WHERE fund_id = $1`, fundID)
	return err
}

// StaleFunds lists funds whose cached table is older than maxAge
func (r *HoldingsRepository) StaleFunds(ctx context.Context, maxAge time.Duration) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT fund_id
		FROM xray.fund_holdings
		WHERE fetched_at < $1
		ORDER BY fetched_at ASC
	`, time.Now().Add(-maxAge))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Stats summarizes the cache contents for the cache CLI
func (r *HoldingsRepository) Stats(ctx context.Context) (contracts.CacheStats, error) {
	var stats contracts.CacheStats
	var oldest, newest *time.Time

	err := r.pool.QueryRow(ctx, `
		SELECT count(*), min(fetched_at), max(fetched_at)
		FROM xray.fund_holdings
	`).Scan(&stats.Funds, &oldest, &newest)
	if err != nil {
		return stats, err
	}
	if oldest != nil {
		stats.OldestFetch = *oldest
	}
	if newest != nil {
		stats.NewestFetch = *newest
	}

	err = r.pool.QueryRow(ctx, `SELECT count(*) FROM xray.fund_holding_rows`).Scan(&stats.Rows)
	return stats, err
}

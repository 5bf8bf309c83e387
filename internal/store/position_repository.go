package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/xray/internal/contracts"
)

// PositionRepository implements contracts.PositionSource on Postgres.
// Positions are synced into the table by the brokerage import; the
// pipeline only reads them.
type PositionRepository struct {
	pool *pgxpool.Pool
}

func NewPositionRepository(pool *pgxpool.Pool) *PositionRepository {
	return &PositionRepository{pool: pool}
}

var _ contracts.PositionSource = (*PositionRepository)(nil)

// GetPositions loads every position of a portfolio
func (r *PositionRepository) GetPositions(ctx context.Context, portfolioID string) ([]contracts.Position, error) {
	query := `
		SELECT security_id, name, quantity, unit_price, currency, asset_class
		FROM xray.positions
		WHERE portfolio_id = $1
		ORDER BY quantity * unit_price DESC
	`

	rows, err := r.pool.Query(ctx, query, portfolioID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions []contracts.Position
	for rows.Next() {
		var p contracts.Position
		var assetClass string
		if err := rows.Scan(&p.ID, &p.Name, &p.Quantity, &p.UnitPrice, &p.Currency, &assetClass); err != nil {
			return nil, err
		}
		p.AssetClass = contracts.AssetClass(assetClass)
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

// SavePositions replaces a portfolio's positions
func (r *PositionRepository) SavePositions(ctx context.Context, portfolioID string, positions []contracts.Position) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM xray.positions WHERE portfolio_id = $1`, portfolioID); err != nil {
		return err
	}

	for _, p := range positions {
		_, err := tx.Exec(ctx, `
			INSERT INTO xray.positions (portfolio_id, security_id, name, quantity, unit_price, currency, asset_class)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, portfolioID, p.ID, p.Name, p.Quantity, p.UnitPrice, p.Currency, string(p.AssetClass))
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

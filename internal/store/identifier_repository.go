package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/xray/internal/contracts"
)

// IdentifierRepository implements contracts.IdentifierCache on Postgres
type IdentifierRepository struct {
	pool *pgxpool.Pool
}

func NewIdentifierRepository(pool *pgxpool.Pool) *IdentifierRepository {
	return &IdentifierRepository{pool: pool}
}

var _ contracts.IdentifierCache = (*IdentifierRepository)(nil)

// GetByTicker looks up a prior resolution by cleaned ticker
func (r *IdentifierRepository) GetByTicker(ctx context.Context, ticker string) (string, bool, error) {
	query := `
		SELECT canonical_id
		FROM xray.identifier_cache
		WHERE ticker = $1
	`

	var id string
	err := r.pool.QueryRow(ctx, query, ticker).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

// GetByName looks up a prior resolution by normalized name
func (r *IdentifierRepository) GetByName(ctx context.Context, name string) (string, bool, error) {
	query := `
		SELECT canonical_id
		FROM xray.identifier_cache
		WHERE name = $1
		ORDER BY resolved_at DESC
		LIMIT 1
	`

	var id string
	err := r.pool.QueryRow(ctx, query, name).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

// Put stores a successful resolution for future runs
func (r *IdentifierRepository) Put(ctx context.Context, ticker, name, canonicalID string, source contracts.ResolutionSource) error {
	query := `
		INSERT INTO xray.identifier_cache (ticker, name, canonical_id, source, resolved_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (ticker) DO UPDATE SET
			name = EXCLUDED.name,
			canonical_id = EXCLUDED.canonical_id,
			source = EXCLUDED.source,
			resolved_at = now()
	`

	_, err := r.pool.Exec(ctx, query, ticker, name, canonicalID, string(source))
	return err
}

// ListCanonicalIDs returns every distinct resolved canonical id,
// the working set for the nightly community metadata sync.
func (r *IdentifierRepository) ListCanonicalIDs(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT canonical_id
		FROM xray.identifier_cache
		ORDER BY canonical_id
	`

	rows, err := r.pool.Query(ctx, query)
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

// GetMetadata fetches cached sector/geography for a canonical id
func (r *IdentifierRepository) GetMetadata(ctx context.Context, canonicalID string) (*contracts.Metadata, bool, error) {
	query := `
		SELECT sector, geography, asset_class
		FROM xray.security_metadata
		WHERE canonical_id = $1
	`

	var m contracts.Metadata
	err := r.pool.QueryRow(ctx, query, canonicalID).Scan(&m.Sector, &m.Geography, &m.AssetClass)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &m, true, nil
}

// PutMetadata stores sector/geography for a canonical id
func (r *IdentifierRepository) PutMetadata(ctx context.Context, canonicalID string, meta contracts.Metadata) error {
	query := `
		INSERT INTO xray.security_metadata (canonical_id, sector, geography, asset_class, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (canonical_id) DO UPDATE SET
			sector = EXCLUDED.sector,
			geography = EXCLUDED.geography,
			asset_class = EXCLUDED.asset_class,
			updated_at = now()
	`

	_, err := r.pool.Exec(ctx, query, canonicalID, meta.Sector, meta.Geography, meta.AssetClass)
	return err
}

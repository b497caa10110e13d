package postgres

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/autentica/marketplace/internal/domain"
)

// MintStore implements domain.MintStore using PostgreSQL.
type MintStore struct {
	pool *pgxpool.Pool
}

// NewMintStore creates a MintStore backed by the given pool.
func NewMintStore(pool *pgxpool.Pool) *MintStore {
	return &MintStore{pool: pool}
}

// Insert persists one mint record. A missing id is generated.
func (s *MintStore) Insert(ctx context.Context, m domain.MintRecord) error {
	id := m.ID
	if id == "" {
		id = uuid.NewString()
	}
	const query = `
		INSERT INTO mints (
			id, collection, token_id, creator, investor,
			royalty_fee, investor_fee, uri, minted_at
		) VALUES (
			$1, $2, $3::numeric, $4, $5,
			$6::numeric, $7::numeric, $8, $9
		)`
	_, err := s.pool.Exec(ctx, query,
		id, m.Collection.Hex(), numStr(m.TokenID),
		m.Creator.Hex(), m.Investor.Hex(),
		numStr(m.RoyaltyFee), numStr(m.InvestorFee),
		m.URI, m.MintedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert mint: %w", err)
	}
	return nil
}

// ListByCollection returns mint records for one collection, newest first.
func (s *MintStore) ListByCollection(ctx context.Context, collection common.Address, opts domain.ListOpts) ([]domain.MintRecord, error) {
	const query = `
		SELECT id, collection, token_id::text, creator, investor,
			royalty_fee::text, investor_fee::text, uri, minted_at
		FROM mints
		WHERE collection = $1
		ORDER BY minted_at DESC
		LIMIT $2 OFFSET $3`
	rows, err := s.pool.Query(ctx, query, collection.Hex(), limit(opts), opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("postgres: list mints by collection: %w", err)
	}
	defer rows.Close()

	var out []domain.MintRecord
	for rows.Next() {
		var (
			m                             domain.MintRecord
			coll, creator, investor       string
			tokenID, royaltyFee, invFee   string
		)
		if err := rows.Scan(
			&m.ID, &coll, &tokenID, &creator, &investor,
			&royaltyFee, &invFee, &m.URI, &m.MintedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan mint: %w", err)
		}
		m.Collection = common.HexToAddress(coll)
		m.Creator = common.HexToAddress(creator)
		m.Investor = common.HexToAddress(investor)
		m.TokenID = parseNum(tokenID)
		m.RoyaltyFee = parseNum(royaltyFee)
		m.InvestorFee = parseNum(invFee)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: mint rows: %w", err)
	}
	return out, nil
}

var _ domain.MintStore = (*MintStore)(nil)

package postgres

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/autentica/marketplace/internal/domain"
)

// SettlementStore implements domain.SettlementStore using PostgreSQL.
//
// Amounts and token ids are stored as NUMERIC(78,0), wide enough for any
// uint256 value, and travel as decimal strings on the wire.
type SettlementStore struct {
	pool *pgxpool.Pool
}

// NewSettlementStore creates a SettlementStore backed by the given pool.
func NewSettlementStore(pool *pgxpool.Pool) *SettlementStore {
	return &SettlementStore{pool: pool}
}

const settlementSelectCols = `id, collection, token_id::text, seller, buyer,
	payment_token, price::text, owner_proceeds::text, creator_proceeds::text,
	investor_proceeds::text, marketplace_proceeds::text, settled_at`

// Insert persists one settlement. A missing id is generated.
func (s *SettlementStore) Insert(ctx context.Context, st domain.Settlement) error {
	id := st.ID
	if id == "" {
		id = uuid.NewString()
	}
	const query = `
		INSERT INTO settlements (
			id, collection, token_id, seller, buyer, payment_token,
			price, owner_proceeds, creator_proceeds, investor_proceeds,
			marketplace_proceeds, settled_at
		) VALUES (
			$1, $2, $3::numeric, $4, $5, $6,
			$7::numeric, $8::numeric, $9::numeric, $10::numeric,
			$11::numeric, $12
		)`
	_, err := s.pool.Exec(ctx, query,
		id, st.Collection.Hex(), numStr(st.TokenID),
		st.Seller.Hex(), st.Buyer.Hex(), st.PaymentToken.Hex(),
		numStr(st.Price), numStr(st.Proceeds.Owner), numStr(st.Proceeds.Creator),
		numStr(st.Proceeds.Investor), numStr(st.Proceeds.Marketplace),
		st.SettledAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert settlement: %w", err)
	}
	return nil
}

// ListByCollection returns settlements for one collection, newest first.
func (s *SettlementStore) ListByCollection(ctx context.Context, collection common.Address, opts domain.ListOpts) ([]domain.Settlement, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM settlements
		WHERE collection = $1
		ORDER BY settled_at DESC
		LIMIT $2 OFFSET $3`, settlementSelectCols)
	rows, err := s.pool.Query(ctx, query, collection.Hex(), limit(opts), opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("postgres: list settlements by collection: %w", err)
	}
	defer rows.Close()
	return scanSettlementRows(rows)
}

// ListByAddress returns settlements where addr was the seller or the buyer,
// newest first.
func (s *SettlementStore) ListByAddress(ctx context.Context, addr common.Address, opts domain.ListOpts) ([]domain.Settlement, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM settlements
		WHERE seller = $1 OR buyer = $1
		ORDER BY settled_at DESC
		LIMIT $2 OFFSET $3`, settlementSelectCols)
	rows, err := s.pool.Query(ctx, query, addr.Hex(), limit(opts), opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("postgres: list settlements by address: %w", err)
	}
	defer rows.Close()
	return scanSettlementRows(rows)
}

// ListRecent returns the newest settlements across all collections.
func (s *SettlementStore) ListRecent(ctx context.Context, opts domain.ListOpts) ([]domain.Settlement, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM settlements
		ORDER BY settled_at DESC
		LIMIT $1 OFFSET $2`, settlementSelectCols)
	rows, err := s.pool.Query(ctx, query, limit(opts), opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent settlements: %w", err)
	}
	defer rows.Close()
	return scanSettlementRows(rows)
}

// ListBefore returns settlements executed strictly before the cutoff, oldest
// first, for archival.
func (s *SettlementStore) ListBefore(ctx context.Context, before time.Time) ([]domain.Settlement, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM settlements
		WHERE settled_at < $1
		ORDER BY settled_at ASC`, settlementSelectCols)
	rows, err := s.pool.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list settlements before cutoff: %w", err)
	}
	defer rows.Close()
	return scanSettlementRows(rows)
}

func scanSettlementRows(rows pgx.Rows) ([]domain.Settlement, error) {
	var out []domain.Settlement
	for rows.Next() {
		var (
			st                              domain.Settlement
			collection, seller, buyer       string
			paymentToken                    string
			tokenID, price                  string
			owner, creator, investor, mkt   string
		)
		if err := rows.Scan(
			&st.ID, &collection, &tokenID, &seller, &buyer,
			&paymentToken, &price, &owner, &creator,
			&investor, &mkt, &st.SettledAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan settlement: %w", err)
		}
		st.Collection = common.HexToAddress(collection)
		st.Seller = common.HexToAddress(seller)
		st.Buyer = common.HexToAddress(buyer)
		st.PaymentToken = common.HexToAddress(paymentToken)
		st.TokenID = parseNum(tokenID)
		st.Price = parseNum(price)
		st.Proceeds = domain.Proceeds{
			Owner:       parseNum(owner),
			Creator:     parseNum(creator),
			Investor:    parseNum(investor),
			Marketplace: parseNum(mkt),
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: settlement rows: %w", err)
	}
	return out, nil
}

func numStr(n *big.Int) string {
	if n == nil {
		return "0"
	}
	return n.String()
}

func parseNum(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return big.NewInt(0)
	}
	return n
}

func limit(opts domain.ListOpts) int {
	if opts.Limit <= 0 {
		return 50
	}
	return opts.Limit
}

var _ domain.SettlementStore = (*SettlementStore)(nil)

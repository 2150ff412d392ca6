package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dexiq/dexiq/internal/domain"
)

// TickerSnapshotStore implements domain.TickerSnapshotStore using PostgreSQL.
type TickerSnapshotStore struct {
	pool *pgxpool.Pool
}

// NewTickerSnapshotStore creates a new TickerSnapshotStore backed by the
// given connection pool.
func NewTickerSnapshotStore(pool *pgxpool.Pool) *TickerSnapshotStore {
	return &TickerSnapshotStore{pool: pool}
}

const tickerSelectCols = `id, token_id, chain_id, dex_id, url,
	price_usd, price_native,
	txns_5m, txns_1h, txns_6h, txns_24h,
	volume_5m, volume_1h, volume_6h, volume_24h,
	price_change_5m, price_change_1h, price_change_6h, price_change_24h,
	liquidity_usd, liquidity_base, liquidity_quote,
	fdv, market_cap, pair_created_at, fetched_at, created_at`

func scanTickerRow(row pgx.Row) (domain.TickerSnapshot, error) {
	var s domain.TickerSnapshot
	err := row.Scan(
		&s.ID, &s.TokenID, &s.ChainID, &s.DexID, &s.URL,
		&s.PriceUSD, &s.PriceNative,
		&s.Txns5m, &s.Txns1h, &s.Txns6h, &s.Txns24h,
		&s.Volume5m, &s.Volume1h, &s.Volume6h, &s.Volume24h,
		&s.PriceChange5m, &s.PriceChange1h, &s.PriceChange6h, &s.PriceChange24h,
		&s.LiquidityUSD, &s.LiquidityBase, &s.LiquidityQuote,
		&s.FDV, &s.MarketCap, &s.PairCreatedAt, &s.FetchedAt, &s.CreatedAt,
	)
	return s, err
}

// Insert appends an immutable ticker snapshot. FetchedAt defaults to the
// write time when the caller leaves it zero.
func (s *TickerSnapshotStore) Insert(ctx context.Context, snap domain.TickerSnapshot) (domain.TickerSnapshot, error) {
	if snap.FetchedAt.IsZero() {
		snap.FetchedAt = time.Now().UTC()
	}

	const query = `
		INSERT INTO ticker_snapshots (
			token_id, chain_id, dex_id, url,
			price_usd, price_native,
			txns_5m, txns_1h, txns_6h, txns_24h,
			volume_5m, volume_1h, volume_6h, volume_24h,
			price_change_5m, price_change_1h, price_change_6h, price_change_24h,
			liquidity_usd, liquidity_base, liquidity_quote,
			fdv, market_cap, pair_created_at, fetched_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6,
			$7, $8, $9, $10,
			$11, $12, $13, $14,
			$15, $16, $17, $18,
			$19, $20, $21,
			$22, $23, $24, $25
		)
		RETURNING ` + tickerSelectCols

	row := s.pool.QueryRow(ctx, query,
		snap.TokenID, snap.ChainID, snap.DexID, snap.URL,
		snap.PriceUSD, snap.PriceNative,
		snap.Txns5m, snap.Txns1h, snap.Txns6h, snap.Txns24h,
		snap.Volume5m, snap.Volume1h, snap.Volume6h, snap.Volume24h,
		snap.PriceChange5m, snap.PriceChange1h, snap.PriceChange6h, snap.PriceChange24h,
		snap.LiquidityUSD, snap.LiquidityBase, snap.LiquidityQuote,
		snap.FDV, snap.MarketCap, snap.PairCreatedAt, snap.FetchedAt,
	)
	out, err := scanTickerRow(row)
	if err != nil {
		return domain.TickerSnapshot{}, fmt.Errorf("postgres: insert ticker snapshot for token %d: %w", snap.TokenID, err)
	}
	return out, nil
}

// Latest returns the most recently created ticker snapshot for a token. The
// (token_id, created_at) index makes this a single backward index walk.
func (s *TickerSnapshotStore) Latest(ctx context.Context, tokenID int64) (domain.TickerSnapshot, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+tickerSelectCols+` FROM ticker_snapshots
		 WHERE token_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`, tokenID)

	snap, err := scanTickerRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.TickerSnapshot{}, domain.ErrNotFound
		}
		return domain.TickerSnapshot{}, fmt.Errorf("postgres: latest ticker snapshot for token %d: %w", tokenID, err)
	}
	return snap, nil
}

// Count returns how many ticker snapshots exist for a token.
func (s *TickerSnapshotStore) Count(ctx context.Context, tokenID int64) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM ticker_snapshots WHERE token_id = $1`, tokenID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("postgres: count ticker snapshots for token %d: %w", tokenID, err)
	}
	return n, nil
}

// LatestFetchedAt returns the newest fetched_at across a token's ticker
// snapshots, or nil when none exist.
func (s *TickerSnapshotStore) LatestFetchedAt(ctx context.Context, tokenID int64) (*time.Time, error) {
	var ts *time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT MAX(fetched_at) FROM ticker_snapshots WHERE token_id = $1`, tokenID).Scan(&ts)
	if err != nil {
		return nil, fmt.Errorf("postgres: latest ticker fetched_at for token %d: %w", tokenID, err)
	}
	return ts, nil
}

package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dexiq/dexiq/internal/domain"
)

// CandleStore implements domain.CandleStore using PostgreSQL.
type CandleStore struct {
	pool *pgxpool.Pool
}

// NewCandleStore creates a new CandleStore backed by the given connection
// pool.
func NewCandleStore(pool *pgxpool.Pool) *CandleStore {
	return &CandleStore{pool: pool}
}

const candleSelectCols = `id, token_id, timeframe, aggregate, ts,
	open, high, low, close, volume, created_at`

// InsertBatch inserts candles using a pgx Batch. Rows that collide on the
// (token, timeframe, aggregate, ts) bucket key are silently skipped via
// ON CONFLICT DO NOTHING, so overlapping or repeated fetches are safe. The
// return value is the number of rows actually inserted; 0 is the expected
// result of re-fetching an already-covered range.
func (s *CandleStore) InsertBatch(ctx context.Context, candles []domain.Candle) (int, error) {
	if len(candles) == 0 {
		return 0, nil
	}

	const query = `
		INSERT INTO candles (token_id, timeframe, aggregate, ts, open, high, low, close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (token_id, timeframe, aggregate, ts) DO NOTHING`

	batch := &pgx.Batch{}
	for _, c := range candles {
		batch.Queue(query,
			c.TokenID, string(c.Timeframe), c.Aggregate, c.Ts,
			c.Open, c.High, c.Low, c.Close, c.Volume,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	inserted := 0
	for i := range candles {
		tag, err := br.Exec()
		if err != nil {
			return inserted, fmt.Errorf("postgres: insert candle batch item %d: %w", i, err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

// LatestTs returns the maximum candle timestamp stored for a token and
// timeframe spec, or domain.ErrNoData when no candle exists yet.
func (s *CandleStore) LatestTs(ctx context.Context, tokenID int64, spec domain.TimeframeSpec) (int64, error) {
	var ts *int64
	err := s.pool.QueryRow(ctx,
		`SELECT MAX(ts) FROM candles
		 WHERE token_id = $1 AND timeframe = $2 AND aggregate = $3`,
		tokenID, string(spec.Timeframe), spec.Aggregate).Scan(&ts)
	if err != nil {
		return 0, fmt.Errorf("postgres: latest candle ts for token %d: %w", tokenID, err)
	}
	if ts == nil {
		return 0, domain.ErrNoData
	}
	return *ts, nil
}

// Recent returns up to limit candles for a timeframe spec ordered by bucket
// time ascending (oldest first), taken from the newest end of the series.
func (s *CandleStore) Recent(ctx context.Context, tokenID int64, spec domain.TimeframeSpec, limit int) ([]domain.Candle, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+candleSelectCols+` FROM (
			SELECT `+candleSelectCols+` FROM candles
			WHERE token_id = $1 AND timeframe = $2 AND aggregate = $3
			ORDER BY ts DESC
			LIMIT $4
		) latest ORDER BY ts ASC`,
		tokenID, string(spec.Timeframe), spec.Aggregate, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: recent candles for token %d: %w", tokenID, err)
	}
	defer rows.Close()

	var candles []domain.Candle
	for rows.Next() {
		var c domain.Candle
		var timeframe string
		if err := rows.Scan(
			&c.ID, &c.TokenID, &timeframe, &c.Aggregate, &c.Ts,
			&c.Open, &c.High, &c.Low, &c.Close, &c.Volume, &c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan candle: %w", err)
		}
		c.Timeframe = domain.Timeframe(timeframe)
		candles = append(candles, c)
	}
	return candles, rows.Err()
}

// Count returns how many candles exist for a token across all timeframes.
func (s *CandleStore) Count(ctx context.Context, tokenID int64) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM candles WHERE token_id = $1`, tokenID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("postgres: count candles for token %d: %w", tokenID, err)
	}
	return n, nil
}

// LatestCreatedAt returns the newest created_at across a token's candles, or
// nil when none exist. Used by the readiness evaluator as the candle source's
// last-fetch time.
func (s *CandleStore) LatestCreatedAt(ctx context.Context, tokenID int64) (*time.Time, error) {
	var ts *time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT MAX(created_at) FROM candles WHERE token_id = $1`, tokenID).Scan(&ts)
	if err != nil {
		return nil, fmt.Errorf("postgres: latest candle created_at for token %d: %w", tokenID, err)
	}
	return ts, nil
}

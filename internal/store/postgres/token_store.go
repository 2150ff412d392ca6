package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dexiq/dexiq/internal/domain"
)

// TokenStore implements domain.TokenStore using PostgreSQL.
type TokenStore struct {
	pool *pgxpool.Pool
}

// NewTokenStore creates a new TokenStore backed by the given connection pool.
func NewTokenStore(pool *pgxpool.Pool) *TokenStore {
	return &TokenStore{pool: pool}
}

const tokenSelectCols = `id, chain_id, pool_address, symbol, quote_symbol,
	token_url, user_id, created_at, updated_at`

func scanTokenRow(row pgx.Row) (domain.Token, error) {
	var t domain.Token
	err := row.Scan(
		&t.ID, &t.ChainID, &t.PoolAddress, &t.Symbol, &t.QuoteSymbol,
		&t.TokenURL, &t.UserID, &t.CreatedAt, &t.UpdatedAt,
	)
	return t, err
}

// Upsert inserts the token or, when the (chain_id, pool_address) identity is
// already tracked, refreshes its display fields and returns the existing row.
// Concurrent submissions of the same identity resolve to a single record.
func (s *TokenStore) Upsert(ctx context.Context, t domain.Token) (domain.Token, error) {
	const query = `
		INSERT INTO tokens (chain_id, pool_address, symbol, quote_symbol, token_url, user_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (chain_id, pool_address) DO UPDATE SET
			symbol       = COALESCE(NULLIF(EXCLUDED.symbol, ''), tokens.symbol),
			quote_symbol = COALESCE(NULLIF(EXCLUDED.quote_symbol, ''), tokens.quote_symbol),
			token_url    = COALESCE(NULLIF(EXCLUDED.token_url, ''), tokens.token_url),
			updated_at   = NOW()
		RETURNING ` + tokenSelectCols

	row := s.pool.QueryRow(ctx, query,
		t.ChainID, t.PoolAddress, t.Symbol, t.QuoteSymbol, t.TokenURL, t.UserID,
	)
	out, err := scanTokenRow(row)
	if err != nil {
		return domain.Token{}, fmt.Errorf("postgres: upsert token %s/%s: %w", t.ChainID, t.PoolAddress, err)
	}
	return out, nil
}

// GetByID retrieves a token by its primary key.
func (s *TokenStore) GetByID(ctx context.Context, id int64) (domain.Token, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+tokenSelectCols+` FROM tokens WHERE id = $1`, id)

	t, err := scanTokenRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Token{}, domain.ErrNotFound
		}
		return domain.Token{}, fmt.Errorf("postgres: get token %d: %w", id, err)
	}
	return t, nil
}

// GetByIdentity retrieves a token by its (chain_id, pool_address) key.
func (s *TokenStore) GetByIdentity(ctx context.Context, identity domain.TokenIdentity) (domain.Token, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+tokenSelectCols+` FROM tokens WHERE chain_id = $1 AND pool_address = $2`,
		identity.ChainID, identity.PoolAddress)

	t, err := scanTokenRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Token{}, domain.ErrNotFound
		}
		return domain.Token{}, fmt.Errorf("postgres: get token %s/%s: %w", identity.ChainID, identity.PoolAddress, err)
	}
	return t, nil
}

// ListByUser returns all tokens owned by the given user, newest first.
func (s *TokenStore) ListByUser(ctx context.Context, userID int64) ([]domain.Token, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+tokenSelectCols+` FROM tokens WHERE user_id = $1 ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list tokens for user %d: %w", userID, err)
	}
	defer rows.Close()

	var tokens []domain.Token
	for rows.Next() {
		var t domain.Token
		if err := rows.Scan(
			&t.ID, &t.ChainID, &t.PoolAddress, &t.Symbol, &t.QuoteSymbol,
			&t.TokenURL, &t.UserID, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan token: %w", err)
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

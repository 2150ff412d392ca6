package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dexiq/dexiq/internal/domain"
)

// TransactionStore implements domain.TransactionStore using PostgreSQL. The
// transactions table is append-only; rows are never updated or deleted.
type TransactionStore struct {
	pool *pgxpool.Pool
}

// NewTransactionStore creates a new TransactionStore backed by the given
// connection pool.
func NewTransactionStore(pool *pgxpool.Pool) *TransactionStore {
	return &TransactionStore{pool: pool}
}

const txSelectCols = `id, token_id, user_id, tx_type, amount, unit_price, tx_hash, note, created_at`

// Append records a new ledger transaction and returns it with its assigned
// id and creation timestamp.
func (s *TransactionStore) Append(ctx context.Context, tx domain.Transaction) (domain.Transaction, error) {
	const query = `
		INSERT INTO transactions (token_id, user_id, tx_type, amount, unit_price, tx_hash, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + txSelectCols

	row := s.pool.QueryRow(ctx, query,
		tx.TokenID, tx.UserID, string(tx.Type), tx.Amount, tx.UnitPrice, tx.TxHash, tx.Note,
	)

	var out domain.Transaction
	var txType string
	err := row.Scan(
		&out.ID, &out.TokenID, &out.UserID, &txType,
		&out.Amount, &out.UnitPrice, &out.TxHash, &out.Note, &out.CreatedAt,
	)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("postgres: append transaction for token %d: %w", tx.TokenID, err)
	}
	out.Type = domain.TxType(txType)
	return out, nil
}

// List returns the full transaction log for a (token, user) pair ordered by
// (created_at, id) ascending. The single query gives the ledger a consistent
// snapshot of the log; the monotonic id breaks ties between rows recorded in
// the same instant.
func (s *TransactionStore) List(ctx context.Context, tokenID, userID int64) ([]domain.Transaction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+txSelectCols+` FROM transactions
		 WHERE token_id = $1 AND user_id = $2
		 ORDER BY created_at ASC, id ASC`,
		tokenID, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list transactions for token %d user %d: %w", tokenID, userID, err)
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		var tx domain.Transaction
		var txType string
		if err := rows.Scan(
			&tx.ID, &tx.TokenID, &tx.UserID, &txType,
			&tx.Amount, &tx.UnitPrice, &tx.TxHash, &tx.Note, &tx.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan transaction: %w", err)
		}
		tx.Type = domain.TxType(txType)
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// Package ledger records buy/sell transactions and derives positions from
// them. The transaction log is the single source of truth: every summary is
// recomputed from the full log on read, nothing is cached or stored derived.
package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/dexiq/dexiq/internal/domain"
)

// Service is the position ledger.
type Service struct {
	txs    domain.TransactionStore
	logger *slog.Logger
}

// NewService creates the ledger service.
func NewService(txs domain.TransactionStore, logger *slog.Logger) *Service {
	return &Service{txs: txs, logger: logger.With("component", "ledger")}
}

// Record validates and appends one transaction. Validation failures come back
// as a *domain.ValidationError listing every offending field; nothing is
// persisted in that case.
func (s *Service) Record(ctx context.Context, tx domain.Transaction) (domain.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return domain.Transaction{}, err
	}

	stored, err := s.txs.Append(ctx, tx)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("ledger: append: %w", err)
	}

	s.logger.Info("transaction recorded",
		"token_id", stored.TokenID, "user_id", stored.UserID,
		"type", stored.Type, "amount", stored.Amount.String(), "unit_price", stored.UnitPrice.String())
	return stored, nil
}

// Summary derives the position and P&L for a (token, user) pair from the
// full ordered transaction log. currentPrice may be nil; unrealized P&L is
// then reported as zero. An empty log yields an all-zero summary, not an
// error.
func (s *Service) Summary(ctx context.Context, tokenID, userID int64, currentPrice *decimal.Decimal) (domain.PositionSummary, error) {
	txs, err := s.txs.List(ctx, tokenID, userID)
	if err != nil {
		return domain.PositionSummary{}, fmt.Errorf("ledger: list transactions: %w", err)
	}
	return domain.ComputePosition(txs, currentPrice), nil
}

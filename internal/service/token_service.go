// Package service implements the application operations behind the API
// surface: tracking tokens, reading readiness, driving the ledger and
// requesting analysis. Handlers stay thin; policy lives here.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dexiq/dexiq/internal/chains"
	"github.com/dexiq/dexiq/internal/domain"
	"github.com/dexiq/dexiq/internal/ledger"
)

// Enqueuer hands jobs to the pipeline. Both methods are fire-and-forget and
// report whether the queue accepted the job.
type Enqueuer interface {
	EnqueueIngest(tokenID int64) bool
	EnqueueAnalysisWithPrice(token domain.Token, referencePrice *decimal.Decimal) bool
}

// Evaluator derives a token's readiness status.
type Evaluator interface {
	Evaluate(ctx context.Context, tokenID int64) (domain.ReadinessStatus, error)
}

// TokenService is the application service for tracked tokens.
type TokenService struct {
	tokens    domain.TokenStore
	tickers   domain.TickerSnapshotStore
	evaluator Evaluator
	ledger    *ledger.Service
	enqueuer  Enqueuer
	logger    *slog.Logger
}

// NewTokenService creates the token service.
func NewTokenService(
	tokens domain.TokenStore,
	tickers domain.TickerSnapshotStore,
	evaluator Evaluator,
	ledgerSvc *ledger.Service,
	enqueuer Enqueuer,
	logger *slog.Logger,
) *TokenService {
	return &TokenService{
		tokens:    tokens,
		tickers:   tickers,
		evaluator: evaluator,
		ledger:    ledgerSvc,
		enqueuer:  enqueuer,
		logger:    logger.With("component", "service"),
	}
}

// TrackRequest is the input for tracking a token.
type TrackRequest struct {
	ChainID     string
	PoolAddress string
	Symbol      string
	QuoteSymbol string
	TokenURL    string
	UserID      int64
}

func (r *TrackRequest) validate() error {
	ve := &domain.ValidationError{}
	if strings.TrimSpace(r.ChainID) == "" {
		ve.Add("chain_id", "is required")
	}
	if strings.TrimSpace(r.PoolAddress) == "" {
		ve.Add("pool_address", "is required")
	}
	if r.UserID <= 0 {
		ve.Add("user_id", "is required")
	}
	if ve.HasErrors() {
		return ve
	}
	return nil
}

// Track registers a token for tracking. Re-submitting a known
// (chain, pool) identity resolves to the existing token with refreshed
// display fields; either way an ingestion pass is scheduled immediately.
func (s *TokenService) Track(ctx context.Context, req TrackRequest) (domain.Token, error) {
	if err := req.validate(); err != nil {
		return domain.Token{}, err
	}

	token, err := s.tokens.Upsert(ctx, domain.Token{
		ChainID:     chains.Canonical(req.ChainID),
		PoolAddress: strings.TrimSpace(req.PoolAddress),
		Symbol:      strings.TrimSpace(req.Symbol),
		QuoteSymbol: strings.TrimSpace(req.QuoteSymbol),
		TokenURL:    strings.TrimSpace(req.TokenURL),
		UserID:      req.UserID,
	})
	if err != nil {
		return domain.Token{}, fmt.Errorf("service: track token: %w", err)
	}

	if !s.enqueuer.EnqueueIngest(token.ID) {
		s.logger.Warn("ingest enqueue rejected", "token_id", token.ID)
	}

	s.logger.Info("token tracked",
		"token_id", token.ID, "chain", token.ChainID, "pool", token.PoolAddress)
	return token, nil
}

// Get returns one tracked token.
func (s *TokenService) Get(ctx context.Context, tokenID int64) (domain.Token, error) {
	return s.tokens.GetByID(ctx, tokenID)
}

// List returns the tokens tracked by a user.
func (s *TokenService) List(ctx context.Context, userID int64) ([]domain.Token, error) {
	return s.tokens.ListByUser(ctx, userID)
}

// Status returns the readiness status for a token.
func (s *TokenService) Status(ctx context.Context, tokenID int64) (domain.ReadinessStatus, error) {
	if _, err := s.tokens.GetByID(ctx, tokenID); err != nil {
		return domain.ReadinessStatus{}, err
	}
	return s.evaluator.Evaluate(ctx, tokenID)
}

// RecordTransaction validates and appends a ledger entry for a token.
func (s *TokenService) RecordTransaction(ctx context.Context, tx domain.Transaction) (domain.Transaction, error) {
	if _, err := s.tokens.GetByID(ctx, tx.TokenID); err != nil {
		return domain.Transaction{}, err
	}
	return s.ledger.Record(ctx, tx)
}

// Position derives the current position and P&L for a (token, user) pair.
// When priceOverride is nil the latest ingested ticker price is used; with
// neither available the summary reports zero unrealized P&L.
func (s *TokenService) Position(ctx context.Context, tokenID, userID int64, priceOverride *decimal.Decimal) (domain.PositionSummary, error) {
	if _, err := s.tokens.GetByID(ctx, tokenID); err != nil {
		return domain.PositionSummary{}, err
	}

	price := priceOverride
	if price == nil {
		price = s.latestPrice(ctx, tokenID)
	}
	return s.ledger.Summary(ctx, tokenID, userID, price)
}

// RequestAnalysis schedules an analysis run for a token that is ready. It
// returns domain.ErrNoData when the token lacks the base metadata or candles
// the collaborator needs.
func (s *TokenService) RequestAnalysis(ctx context.Context, tokenID int64, purchasePrice *decimal.Decimal) (domain.ReadinessStatus, error) {
	token, err := s.tokens.GetByID(ctx, tokenID)
	if err != nil {
		return domain.ReadinessStatus{}, err
	}

	status, err := s.evaluator.Evaluate(ctx, tokenID)
	if err != nil {
		return domain.ReadinessStatus{}, err
	}
	if !status.ReadyForAnalysis {
		return status, fmt.Errorf("service: token %d not ready for analysis: %w", tokenID, domain.ErrNoData)
	}

	if !s.enqueuer.EnqueueAnalysisWithPrice(token, purchasePrice) {
		return status, errors.New("service: analysis queue full")
	}
	return status, nil
}

// latestPrice reads the newest ingested USD price, nil when no ticker
// snapshot carries one.
func (s *TokenService) latestPrice(ctx context.Context, tokenID int64) *decimal.Decimal {
	snap, err := s.tickers.Latest(ctx, tokenID)
	if err != nil || snap.PriceUSD == nil {
		return nil
	}
	price := decimal.NewFromFloat(*snap.PriceUSD)
	return &price
}

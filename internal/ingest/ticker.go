package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dexiq/dexiq/internal/domain"
)

// TickerFetcher is the part of the DexScreener client the ticker source uses.
type TickerFetcher interface {
	FetchSnapshot(ctx context.Context, chainID, pairAddress string, tokenID int64) (domain.TickerSnapshot, error)
}

// TickerSource ingests DexScreener pair snapshots. A snapshot younger than
// the staleness window short-circuits the fetch.
type TickerSource struct {
	fetcher   TickerFetcher
	store     domain.TickerSnapshotStore
	staleness time.Duration
	logger    *slog.Logger
}

// NewTickerSource creates the ticker source.
func NewTickerSource(fetcher TickerFetcher, store domain.TickerSnapshotStore, staleness time.Duration, logger *slog.Logger) *TickerSource {
	return &TickerSource{
		fetcher:   fetcher,
		store:     store,
		staleness: staleness,
		logger:    logger.With("source", "ticker"),
	}
}

// Name implements Source.
func (s *TickerSource) Name() string { return "ticker" }

// Fetch implements Source.
func (s *TickerSource) Fetch(ctx context.Context, token *domain.Token) (int, error) {
	fresh, err := isFresh(ctx, s.store.LatestFetchedAt, token.ID, s.staleness)
	if err != nil {
		return 0, fmt.Errorf("ingest: ticker freshness check: %w", err)
	}
	if fresh {
		s.logger.Debug("snapshot fresh, skipping fetch", "token_id", token.ID)
		return 0, nil
	}

	snap, err := s.fetcher.FetchSnapshot(ctx, token.ChainID, token.PoolAddress, token.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNoData) {
			s.logger.Debug("no pair data upstream", "token_id", token.ID)
			return 0, nil
		}
		return 0, fmt.Errorf("ingest: ticker fetch: %w", err)
	}
	snap.FetchedAt = time.Now().UTC()

	if _, err := s.store.Insert(ctx, snap); err != nil {
		return 0, fmt.Errorf("ingest: ticker insert: %w", err)
	}
	return 1, nil
}

// isFresh reports whether the latest stored fetch for a token is younger than
// the staleness window. A token with no fetches is never fresh.
func isFresh(ctx context.Context, latestFetchedAt func(context.Context, int64) (*time.Time, error), tokenID int64, staleness time.Duration) (bool, error) {
	last, err := latestFetchedAt(ctx, tokenID)
	if err != nil {
		return false, err
	}
	if last == nil {
		return false, nil
	}
	return time.Since(*last) < staleness, nil
}

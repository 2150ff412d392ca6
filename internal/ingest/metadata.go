package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dexiq/dexiq/internal/chains"
	"github.com/dexiq/dexiq/internal/domain"
)

// MetadataFetcher is the part of the GeckoTerminal client the metadata source
// uses. It returns snapshots for both sides of the pool, base first.
type MetadataFetcher interface {
	FetchPoolInfo(ctx context.Context, network, poolAddress string, tokenID int64) ([]domain.MetadataSnapshot, error)
}

// MetadataSource ingests GeckoTerminal pool metadata for both pair sides.
type MetadataSource struct {
	fetcher   MetadataFetcher
	store     domain.MetadataSnapshotStore
	staleness time.Duration
	logger    *slog.Logger
}

// NewMetadataSource creates the metadata source.
func NewMetadataSource(fetcher MetadataFetcher, store domain.MetadataSnapshotStore, staleness time.Duration, logger *slog.Logger) *MetadataSource {
	return &MetadataSource{
		fetcher:   fetcher,
		store:     store,
		staleness: staleness,
		logger:    logger.With("source", "metadata"),
	}
}

// Name implements Source.
func (s *MetadataSource) Name() string { return "metadata" }

// Fetch implements Source.
func (s *MetadataSource) Fetch(ctx context.Context, token *domain.Token) (int, error) {
	fresh, err := isFresh(ctx, s.store.LatestFetchedAt, token.ID, s.staleness)
	if err != nil {
		return 0, fmt.Errorf("ingest: metadata freshness check: %w", err)
	}
	if fresh {
		s.logger.Debug("metadata fresh, skipping fetch", "token_id", token.ID)
		return 0, nil
	}

	network := chains.GeckoNetwork(token.ChainID)
	snaps, err := s.fetcher.FetchPoolInfo(ctx, network, token.PoolAddress, token.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNoData) {
			s.logger.Debug("no pool metadata upstream", "token_id", token.ID)
			return 0, nil
		}
		return 0, fmt.Errorf("ingest: metadata fetch: %w", err)
	}

	now := time.Now().UTC()
	inserted := 0
	for _, snap := range snaps {
		snap.FetchedAt = now
		if _, err := s.store.Insert(ctx, snap); err != nil {
			return inserted, fmt.Errorf("ingest: metadata insert role %s: %w", snap.Role, err)
		}
		inserted++
	}
	return inserted, nil
}

package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dexiq/dexiq/internal/chains"
	"github.com/dexiq/dexiq/internal/domain"
	"github.com/dexiq/dexiq/internal/platform/geckoterminal"
)

// CandleFetcher is the part of the GeckoTerminal client the candle source
// uses.
type CandleFetcher interface {
	FetchOHLCV(ctx context.Context, network, poolAddress string, tokenID int64, q geckoterminal.OHLCVQuery) ([]domain.Candle, error)
}

// CandleSource ingests OHLCV candles for every supported timeframe. Fetches
// are incremental: each run asks the upstream only for buckets after the
// latest one already stored, so repeated runs converge to no-ops and a
// concurrent duplicate run is absorbed by the store's idempotent batch
// insert.
type CandleSource struct {
	fetcher   CandleFetcher
	store     domain.CandleStore
	pageLimit int
	logger    *slog.Logger
}

// NewCandleSource creates the candle source.
func NewCandleSource(fetcher CandleFetcher, store domain.CandleStore, pageLimit int, logger *slog.Logger) *CandleSource {
	return &CandleSource{
		fetcher:   fetcher,
		store:     store,
		pageLimit: pageLimit,
		logger:    logger.With("source", "candles"),
	}
}

// Name implements Source.
func (s *CandleSource) Name() string { return "candles" }

// Fetch implements Source. Timeframes are fetched sequentially; a failure on
// one timeframe aborts the run but keeps whatever earlier timeframes stored.
func (s *CandleSource) Fetch(ctx context.Context, token *domain.Token) (int, error) {
	network := chains.GeckoNetwork(token.ChainID)

	total := 0
	for _, spec := range domain.SupportedTimeframes {
		n, err := s.fetchTimeframe(ctx, token, network, spec)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (s *CandleSource) fetchTimeframe(ctx context.Context, token *domain.Token, network string, spec domain.TimeframeSpec) (int, error) {
	var fromTs int64
	latest, err := s.store.LatestTs(ctx, token.ID, spec)
	switch {
	case err == nil:
		// Ask only for buckets strictly after the newest stored one.
		fromTs = latest + 1
	case errors.Is(err, domain.ErrNoData):
		fromTs = 0
	default:
		return 0, fmt.Errorf("ingest: candles latest ts %s/%d: %w", spec.Timeframe, spec.Aggregate, err)
	}

	candles, err := s.fetcher.FetchOHLCV(ctx, network, token.PoolAddress, token.ID, geckoterminal.OHLCVQuery{
		Spec:   spec,
		FromTs: fromTs,
		Limit:  s.pageLimit,
	})
	if err != nil {
		if errors.Is(err, domain.ErrNoData) {
			s.logger.Debug("no new candles upstream",
				"token_id", token.ID, "timeframe", spec.Timeframe, "aggregate", spec.Aggregate)
			return 0, nil
		}
		return 0, fmt.Errorf("ingest: candles fetch %s/%d: %w", spec.Timeframe, spec.Aggregate, err)
	}

	inserted, err := s.store.InsertBatch(ctx, candles)
	if err != nil {
		return 0, fmt.Errorf("ingest: candles insert %s/%d: %w", spec.Timeframe, spec.Aggregate, err)
	}
	if inserted > 0 {
		s.logger.Debug("stored candles",
			"token_id", token.ID, "timeframe", spec.Timeframe, "aggregate", spec.Aggregate,
			"fetched", len(candles), "inserted", inserted)
	}
	return inserted, nil
}

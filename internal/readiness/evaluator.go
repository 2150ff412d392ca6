// Package readiness classifies how much external data exists for a token and
// whether it is analyzable. It is purely read-side: evaluation never mutates
// anything and never treats absent data as an error.
package readiness

import (
	"context"
	"fmt"
	"time"

	"github.com/dexiq/dexiq/internal/domain"
)

// Evaluator derives a token's readiness status from the snapshot stores.
type Evaluator struct {
	tickers  domain.TickerSnapshotStore
	metadata domain.MetadataSnapshotStore
	candles  domain.CandleStore
}

// NewEvaluator creates the evaluator.
func NewEvaluator(tickers domain.TickerSnapshotStore, metadata domain.MetadataSnapshotStore, candles domain.CandleStore) *Evaluator {
	return &Evaluator{tickers: tickers, metadata: metadata, candles: candles}
}

// Evaluate builds the readiness status for a token. A token with no data at
// all yields TierNone with every flag false and a nil LastUpdated.
func (e *Evaluator) Evaluate(ctx context.Context, tokenID int64) (domain.ReadinessStatus, error) {
	status := domain.ReadinessStatus{TokenID: tokenID, Tier: domain.TierNone}

	var err error
	if status.TickerCount, err = e.tickers.Count(ctx, tokenID); err != nil {
		return status, fmt.Errorf("readiness: ticker count: %w", err)
	}
	if status.MetadataCount, err = e.metadata.Count(ctx, tokenID); err != nil {
		return status, fmt.Errorf("readiness: metadata count: %w", err)
	}
	if status.CandleCount, err = e.candles.Count(ctx, tokenID); err != nil {
		return status, fmt.Errorf("readiness: candle count: %w", err)
	}

	status.HasTicker = status.TickerCount > 0
	status.HasMetadata = status.MetadataCount > 0
	status.HasCandles = status.CandleCount > 0

	switch status.SourceCount() {
	case 0:
		status.Tier = domain.TierNone
	case 3:
		status.Tier = domain.TierLots
	default:
		status.Tier = domain.TierSome
	}

	hasBase, err := e.metadata.HasRole(ctx, tokenID, domain.RoleBase)
	if err != nil {
		return status, fmt.Errorf("readiness: base metadata check: %w", err)
	}
	status.ReadyForAnalysis = hasBase && status.HasCandles

	if status.LastUpdated, err = e.lastUpdated(ctx, tokenID); err != nil {
		return status, err
	}
	return status, nil
}

// lastUpdated returns the newest fetch time across all three sources, nil
// when no source has data.
func (e *Evaluator) lastUpdated(ctx context.Context, tokenID int64) (*time.Time, error) {
	tickerAt, err := e.tickers.LatestFetchedAt(ctx, tokenID)
	if err != nil {
		return nil, fmt.Errorf("readiness: ticker fetched_at: %w", err)
	}
	metaAt, err := e.metadata.LatestFetchedAt(ctx, tokenID)
	if err != nil {
		return nil, fmt.Errorf("readiness: metadata fetched_at: %w", err)
	}
	candleAt, err := e.candles.LatestCreatedAt(ctx, tokenID)
	if err != nil {
		return nil, fmt.Errorf("readiness: candle created_at: %w", err)
	}

	var latest *time.Time
	for _, t := range []*time.Time{tickerAt, metaAt, candleAt} {
		if t == nil {
			continue
		}
		if latest == nil || t.After(*latest) {
			latest = t
		}
	}
	return latest, nil
}

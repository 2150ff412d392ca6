// Package analysis runs the AI analysis trigger: assemble the latest
// snapshots for a token, consult the result cache, call the collaborator and
// publish the outcome to the status bus.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dexiq/dexiq/internal/domain"
)

// Recent-candle window handed to the collaborator per timeframe.
const (
	recent1mCandles  = 60
	recent15mCandles = 48
)

// previewLimit bounds the summary excerpt carried in status events.
const previewLimit = 240

// Evaluator provides the readiness status embedded in published events.
type Evaluator interface {
	Evaluate(ctx context.Context, tokenID int64) (domain.ReadinessStatus, error)
}

// Trigger orchestrates one analysis run. It never retries: scheduling retry
// policy belongs to the pipeline, and subscribers get an error event they can
// react to.
type Trigger struct {
	tickers   domain.TickerSnapshotStore
	metadata  domain.MetadataSnapshotStore
	candles   domain.CandleStore
	evaluator Evaluator
	analyzer  domain.Analyzer
	cache     domain.AnalysisCache
	bus       domain.StatusBus
	logger    *slog.Logger
}

// NewTrigger creates the analysis trigger.
func NewTrigger(
	tickers domain.TickerSnapshotStore,
	metadata domain.MetadataSnapshotStore,
	candles domain.CandleStore,
	evaluator Evaluator,
	analyzer domain.Analyzer,
	cache domain.AnalysisCache,
	bus domain.StatusBus,
	logger *slog.Logger,
) *Trigger {
	return &Trigger{
		tickers:   tickers,
		metadata:  metadata,
		candles:   candles,
		evaluator: evaluator,
		analyzer:  analyzer,
		cache:     cache,
		bus:       bus,
		logger:    logger.With("component", "analysis"),
	}
}

// Run performs one analysis for the token, using the cache when a result for
// the same (token, reference price) is still live. The outcome is published
// to the status bus either way; an error event does not mask the returned
// error.
func (t *Trigger) Run(ctx context.Context, token domain.Token, referencePrice *decimal.Decimal) (domain.AnalysisResult, error) {
	if cached, err := t.cache.Get(ctx, token.ID, referencePrice); err == nil {
		t.logger.Debug("analysis cache hit", "token_id", token.ID)
		t.publishReady(ctx, token.ID, cached)
		return cached, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		t.logger.Warn("analysis cache read failed", "token_id", token.ID, "error", err)
	}

	bundle, err := t.assembleBundle(ctx, token.ID)
	if err != nil {
		t.publishError(ctx, token.ID, err)
		return domain.AnalysisResult{}, err
	}

	result, err := t.analyzer.Analyze(ctx, domain.AnalysisRequest{
		Token:          token,
		ReferencePrice: referencePrice,
		Bundle:         bundle,
	})
	if err != nil {
		t.logger.Error("analysis failed", "token_id", token.ID, "error", err)
		t.publishError(ctx, token.ID, err)
		return domain.AnalysisResult{}, err
	}

	if err := t.cache.Set(ctx, token.ID, referencePrice, result); err != nil {
		t.logger.Warn("analysis cache write failed", "token_id", token.ID, "error", err)
	}

	t.publishReady(ctx, token.ID, result)
	t.logger.Info("analysis complete", "token_id", token.ID, "insights", len(result.Insights))
	return result, nil
}

// assembleBundle gathers the latest capture from each source plus recent
// short-timeframe candles. A token without base metadata cannot be analysed.
func (t *Trigger) assembleBundle(ctx context.Context, tokenID int64) (domain.SnapshotBundle, error) {
	var bundle domain.SnapshotBundle

	base, err := t.metadata.Latest(ctx, tokenID, domain.RoleBase)
	switch {
	case err == nil:
		bundle.BaseMetadata = &base
	case errors.Is(err, domain.ErrNotFound):
		return bundle, fmt.Errorf("analysis: token %d has no base metadata: %w", tokenID, domain.ErrNoData)
	default:
		return bundle, fmt.Errorf("analysis: load base metadata: %w", err)
	}

	ticker, err := t.tickers.Latest(ctx, tokenID)
	switch {
	case err == nil:
		bundle.Ticker = &ticker
	case errors.Is(err, domain.ErrNotFound):
		// Analysable without a ticker; the prompt just omits that section.
	default:
		return bundle, fmt.Errorf("analysis: load ticker: %w", err)
	}

	spec1m := domain.TimeframeSpec{Timeframe: domain.TimeframeMinute, Aggregate: 1}
	if bundle.Candles1m, err = t.candles.Recent(ctx, tokenID, spec1m, recent1mCandles); err != nil {
		return bundle, fmt.Errorf("analysis: load 1m candles: %w", err)
	}
	spec15m := domain.TimeframeSpec{Timeframe: domain.TimeframeMinute, Aggregate: 15}
	if bundle.Candles15m, err = t.candles.Recent(ctx, tokenID, spec15m, recent15mCandles); err != nil {
		return bundle, fmt.Errorf("analysis: load 15m candles: %w", err)
	}

	if len(bundle.Candles1m) == 0 && len(bundle.Candles15m) == 0 {
		return bundle, fmt.Errorf("analysis: token %d has no candles: %w", tokenID, domain.ErrNoData)
	}
	return bundle, nil
}

func (t *Trigger) publishReady(ctx context.Context, tokenID int64, result domain.AnalysisResult) {
	event := t.baseEvent(ctx, tokenID)
	event.Status = domain.StatusReady
	event.AnalysisPreview = preview(result.Summary)
	if err := t.bus.Publish(ctx, tokenID, event); err != nil {
		t.logger.Warn("status publish failed", "token_id", tokenID, "error", err)
	}
}

func (t *Trigger) publishError(ctx context.Context, tokenID int64, cause error) {
	event := t.baseEvent(ctx, tokenID)
	event.Status = domain.StatusError
	event.Error = cause.Error()
	if err := t.bus.Publish(ctx, tokenID, event); err != nil {
		t.logger.Warn("status publish failed", "token_id", tokenID, "error", err)
	}
}

func (t *Trigger) baseEvent(ctx context.Context, tokenID int64) domain.StatusEvent {
	event := domain.StatusEvent{
		EventID:   uuid.NewString(),
		TokenID:   tokenID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if status, err := t.evaluator.Evaluate(ctx, tokenID); err == nil {
		event.Tier = status.Tier
		event.HasTicker = status.HasTicker
		event.HasMetadata = status.HasMetadata
		event.HasCandles = status.HasCandles
	} else {
		t.logger.Warn("readiness evaluation failed for event", "token_id", tokenID, "error", err)
	}
	return event
}

func preview(summary string) string {
	if len(summary) <= previewLimit {
		return summary
	}
	return summary[:previewLimit] + "…"
}

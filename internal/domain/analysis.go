package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// SnapshotBundle is the structured data handed to the analysis collaborator:
// the latest capture from each source plus recent candles for the short
// timeframes.
type SnapshotBundle struct {
	Ticker       *TickerSnapshot
	BaseMetadata *MetadataSnapshot
	Candles1m    []Candle
	Candles15m   []Candle
}

// AnalysisRequest identifies the token and context for one analysis run.
type AnalysisRequest struct {
	Token          Token
	ReferencePrice *decimal.Decimal // user's purchase price, if provided
	Bundle         SnapshotBundle
}

// AnalysisResult is the opaque collaborator output: a free-text summary plus
// a bounded list of short insight strings.
type AnalysisResult struct {
	Summary     string            `json:"summary"`
	Insights    []string          `json:"insights"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	GeneratedAt time.Time         `json:"generated_at"`
}

// Analyzer is the external text-generation collaborator. Implementations
// return ErrAnalysisUnavailable (possibly wrapped) when the upstream service
// fails; retry policy belongs to the caller's scheduler, not to the
// implementation.
type Analyzer interface {
	Analyze(ctx context.Context, req AnalysisRequest) (AnalysisResult, error)
}

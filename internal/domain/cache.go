package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// AnalysisCache is a time-boxed cache of collaborator output keyed by
// (token, reference price). Get returns ErrNotFound on miss or expiry.
type AnalysisCache interface {
	Get(ctx context.Context, tokenID int64, referencePrice *decimal.Decimal) (AnalysisResult, error)
	Set(ctx context.Context, tokenID int64, referencePrice *decimal.Decimal, result AnalysisResult) error
}

// StatusBus is the notification sink. Events are published to a channel
// derived from the token id; delivery is at-most-once and no acknowledgement
// is awaited. Subscribe returns a channel of raw JSON payloads that is
// closed when ctx is cancelled.
type StatusBus interface {
	Publish(ctx context.Context, tokenID int64, event StatusEvent) error
	Subscribe(ctx context.Context, pattern string) (<-chan []byte, error)
}

// StatusEvent is the payload pushed to subscribers when a token's data
// becomes ready or a pipeline stage fails.
type StatusEvent struct {
	EventID         string `json:"event_id"`
	TokenID         int64  `json:"token_id"`
	Status          string `json:"status"` // "ready" or "error"
	Tier            Tier   `json:"tier,omitempty"`
	HasTicker       bool   `json:"has_ticker"`
	HasMetadata     bool   `json:"has_metadata"`
	HasCandles      bool   `json:"has_candles"`
	AnalysisPreview string `json:"analysis_preview,omitempty"`
	Error           string `json:"error,omitempty"`
	Timestamp       string `json:"timestamp"`
}

// Event status values.
const (
	StatusReady = "ready"
	StatusError = "error"
)

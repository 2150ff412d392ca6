package domain

import "time"

// Tier is the coarse classification of how much external data exists for a
// token, driven by how many of the three sources have at least one snapshot.
type Tier string

const (
	TierNone Tier = "none"
	TierSome Tier = "some"
	TierLots Tier = "lots"
)

// ReadinessStatus summarises a token's data completeness. Absence of data is
// a valid state, not an error; a token with zero snapshots reports TierNone
// with all flags false.
type ReadinessStatus struct {
	TokenID          int64      `json:"token_id"`
	Tier             Tier       `json:"tier"`
	ReadyForAnalysis bool       `json:"ready_for_analysis"`
	HasTicker        bool       `json:"has_ticker"`
	HasMetadata      bool       `json:"has_metadata"`
	HasCandles       bool       `json:"has_candles"`
	TickerCount      int        `json:"ticker_count"`
	MetadataCount    int        `json:"metadata_count"`
	CandleCount      int        `json:"candle_count"`
	LastUpdated      *time.Time `json:"last_updated,omitempty"`
}

// SourceCount returns how many independent sources have data.
func (s *ReadinessStatus) SourceCount() int {
	n := 0
	if s.HasTicker {
		n++
	}
	if s.HasMetadata {
		n++
	}
	if s.HasCandles {
		n++
	}
	return n
}

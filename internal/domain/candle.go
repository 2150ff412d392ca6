package domain

import "time"

// Timeframe is the GeckoTerminal candle bucket unit.
type Timeframe string

const (
	TimeframeMinute Timeframe = "minute"
	TimeframeHour   Timeframe = "hour"
	TimeframeDay    Timeframe = "day"
)

// TimeframeSpec pairs a bucket unit with its aggregation multiplier, e.g.
// {minute, 15} is a 15-minute candle.
type TimeframeSpec struct {
	Timeframe Timeframe
	Aggregate int
}

// SupportedTimeframes is the fixed set of candle resolutions the ingestion
// pipeline maintains for every token.
var SupportedTimeframes = []TimeframeSpec{
	{TimeframeMinute, 1},
	{TimeframeMinute, 15},
	{TimeframeHour, 4},
	{TimeframeDay, 1},
}

// Candle is one OHLCV record for a fixed time bucket. At most one candle
// exists per (token, timeframe, aggregate, ts); duplicate writes are no-ops.
type Candle struct {
	ID        int64
	TokenID   int64
	Timeframe Timeframe
	Aggregate int
	Ts        int64 // unix seconds, bucket open time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	CreatedAt time.Time
}

// Time returns the candle bucket open time.
func (c *Candle) Time() time.Time {
	return time.Unix(c.Ts, 0).UTC()
}

// Bullish reports whether the candle closed above its open.
func (c *Candle) Bullish() bool {
	return c.Close > c.Open
}

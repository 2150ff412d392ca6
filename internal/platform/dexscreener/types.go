package dexscreener

import (
	"strconv"
	"time"

	"github.com/dexiq/dexiq/internal/domain"
)

// pairsResponse is the DexScreener /pairs envelope.
type pairsResponse struct {
	SchemaVersion string    `json:"schemaVersion"`
	Pairs         []APIPair `json:"pairs"`
	Pair          *APIPair  `json:"pair"`
}

// APIPair is the raw DexScreener pair record.
type APIPair struct {
	ChainID     string `json:"chainId"`
	DexID       string `json:"dexId"`
	URL         string `json:"url"`
	PairAddress string `json:"pairAddress"`

	PriceNative string `json:"priceNative"`
	PriceUSD    string `json:"priceUsd"`

	Txns map[string]struct {
		Buys  int `json:"buys"`
		Sells int `json:"sells"`
	} `json:"txns"`

	Volume      map[string]float64 `json:"volume"`
	PriceChange map[string]float64 `json:"priceChange"`

	Liquidity *struct {
		USD   float64 `json:"usd"`
		Base  float64 `json:"base"`
		Quote float64 `json:"quote"`
	} `json:"liquidity"`

	FDV       float64 `json:"fdv"`
	MarketCap float64 `json:"marketCap"`

	PairCreatedAt int64 `json:"pairCreatedAt"` // unix milliseconds
}

// ToSnapshot converts the API record into a domain ticker snapshot for the
// given token.
func (p *APIPair) ToSnapshot(tokenID int64) domain.TickerSnapshot {
	snap := domain.TickerSnapshot{
		TokenID: tokenID,
		ChainID: p.ChainID,
		DexID:   p.DexID,
		URL:     p.URL,
	}

	if v, err := strconv.ParseFloat(p.PriceUSD, 64); err == nil {
		snap.PriceUSD = &v
	}
	if v, err := strconv.ParseFloat(p.PriceNative, 64); err == nil {
		snap.PriceNative = &v
	}

	snap.Txns5m = p.txnCounts("m5")
	snap.Txns1h = p.txnCounts("h1")
	snap.Txns6h = p.txnCounts("h6")
	snap.Txns24h = p.txnCounts("h24")

	snap.Volume5m = floatBucket(p.Volume, "m5")
	snap.Volume1h = floatBucket(p.Volume, "h1")
	snap.Volume6h = floatBucket(p.Volume, "h6")
	snap.Volume24h = floatBucket(p.Volume, "h24")

	snap.PriceChange5m = floatBucket(p.PriceChange, "m5")
	snap.PriceChange1h = floatBucket(p.PriceChange, "h1")
	snap.PriceChange6h = floatBucket(p.PriceChange, "h6")
	snap.PriceChange24h = floatBucket(p.PriceChange, "h24")

	if p.Liquidity != nil {
		usd, base, quote := p.Liquidity.USD, p.Liquidity.Base, p.Liquidity.Quote
		snap.LiquidityUSD = &usd
		snap.LiquidityBase = &base
		snap.LiquidityQuote = &quote
	}

	if p.FDV != 0 {
		fdv := int64(p.FDV)
		snap.FDV = &fdv
	}
	if p.MarketCap != 0 {
		mc := int64(p.MarketCap)
		snap.MarketCap = &mc
	}

	if p.PairCreatedAt > 0 {
		t := time.UnixMilli(p.PairCreatedAt).UTC()
		snap.PairCreatedAt = &t
	}

	return snap
}

func (p *APIPair) txnCounts(bucket string) *domain.TxnCounts {
	c, ok := p.Txns[bucket]
	if !ok {
		return nil
	}
	return &domain.TxnCounts{Buys: c.Buys, Sells: c.Sells}
}

func floatBucket(m map[string]float64, bucket string) *float64 {
	v, ok := m[bucket]
	if !ok {
		return nil
	}
	return &v
}

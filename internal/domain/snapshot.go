package domain

import "time"

// MetadataRole identifies which side of the pair a metadata snapshot
// describes.
type MetadataRole string

const (
	RoleBase  MetadataRole = "base"
	RoleQuote MetadataRole = "quote"
)

// TxnCounts holds buy/sell transaction counts for one ticker time bucket.
type TxnCounts struct {
	Buys  int `json:"buys"`
	Sells int `json:"sells"`
}

// TickerSnapshot is one immutable capture of DexScreener pair data. Snapshots
// are append-only; the latest one is derived by creation time, never updated
// in place.
type TickerSnapshot struct {
	ID          int64
	TokenID     int64
	ChainID     string
	DexID       string
	URL         string
	PriceUSD    *float64
	PriceNative *float64

	Txns5m  *TxnCounts
	Txns1h  *TxnCounts
	Txns6h  *TxnCounts
	Txns24h *TxnCounts

	Volume5m  *float64
	Volume1h  *float64
	Volume6h  *float64
	Volume24h *float64

	PriceChange5m  *float64
	PriceChange1h  *float64
	PriceChange6h  *float64
	PriceChange24h *float64

	LiquidityUSD   *float64
	LiquidityBase  *float64
	LiquidityQuote *float64

	FDV       *int64
	MarketCap *int64

	PairCreatedAt *time.Time
	FetchedAt     time.Time
	CreatedAt     time.Time
}

// BuySellRatio returns buys/sells for the 24h bucket, or 0 when unknown or
// when there were no sells.
func (s *TickerSnapshot) BuySellRatio() float64 {
	if s.Txns24h == nil || s.Txns24h.Sells == 0 {
		return 0
	}
	return float64(s.Txns24h.Buys) / float64(s.Txns24h.Sells)
}

// MetadataSnapshot is one immutable capture of GeckoTerminal token metadata
// for one side of the pair.
type MetadataSnapshot struct {
	ID      int64
	TokenID int64
	Role    MetadataRole

	Address         string
	Name            string
	Symbol          string
	Decimals        *int
	CoingeckoCoinID string

	ImageLarge string
	ImageSmall string
	ImageThumb string

	Description    string
	TwitterHandle  string
	DiscordURL     string
	TelegramHandle string

	GTScore *float64

	HoldersCount  *int
	HoldersTop10  string
	Holders11To20 string
	Holders21To40 string
	HoldersRest   string

	MintAuthority   string
	FreezeAuthority string

	FetchedAt time.Time
	CreatedAt time.Time
}

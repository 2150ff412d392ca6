package openai

import (
	"fmt"
	"strings"

	"github.com/dexiq/dexiq/internal/domain"
)

const systemPrompt = `You are a DEX trading analyst. You receive structured market data for a ` +
	`token pair and reply with strict JSON: {"summary": string, "insights": [string]}. ` +
	`The summary is a short paragraph on momentum, liquidity and holder risk. Each insight ` +
	`is one actionable sentence. Do not invent data that is not in the input.`

// buildPrompt renders the snapshot bundle as a compact plain-text report. The
// model sees only what was actually captured; absent sections are omitted
// rather than zero-filled.
func buildPrompt(req domain.AnalysisRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Pair: %s on %s\n", req.Token.PairLabel(), req.Token.ChainID)
	fmt.Fprintf(&b, "Pool: %s\n", req.Token.PoolAddress)
	if req.ReferencePrice != nil {
		fmt.Fprintf(&b, "User purchase price (USD): %s\n", req.ReferencePrice.String())
	}

	if t := req.Bundle.Ticker; t != nil {
		b.WriteString("\n## Ticker\n")
		writeFloat(&b, "Price USD", t.PriceUSD)
		writeFloat(&b, "Liquidity USD", t.LiquidityUSD)
		writeInt(&b, "Market cap USD", t.MarketCap)
		writeInt(&b, "FDV USD", t.FDV)
		writeFloat(&b, "Volume 1h", t.Volume1h)
		writeFloat(&b, "Volume 24h", t.Volume24h)
		writeFloat(&b, "Price change 1h %", t.PriceChange1h)
		writeFloat(&b, "Price change 24h %", t.PriceChange24h)
		if t.Txns24h != nil {
			fmt.Fprintf(&b, "Txns 24h: %d buys / %d sells (ratio %.2f)\n",
				t.Txns24h.Buys, t.Txns24h.Sells, t.BuySellRatio())
		}
		if t.PairCreatedAt != nil {
			fmt.Fprintf(&b, "Pair created: %s\n", t.PairCreatedAt.Format("2006-01-02"))
		}
	}

	if m := req.Bundle.BaseMetadata; m != nil {
		b.WriteString("\n## Token metadata\n")
		fmt.Fprintf(&b, "Name: %s (%s)\n", m.Name, m.Symbol)
		if m.GTScore != nil {
			fmt.Fprintf(&b, "GT score: %.1f\n", *m.GTScore)
		}
		if m.HoldersCount != nil {
			fmt.Fprintf(&b, "Holders: %d\n", *m.HoldersCount)
		}
		if m.HoldersTop10 != "" {
			fmt.Fprintf(&b, "Top 10 holders own: %s%%\n", m.HoldersTop10)
		}
		if m.MintAuthority != "" {
			fmt.Fprintf(&b, "Mint authority: %s\n", m.MintAuthority)
		}
		if m.FreezeAuthority != "" {
			fmt.Fprintf(&b, "Freeze authority: %s\n", m.FreezeAuthority)
		}
	}

	writeCandles(&b, "1m candles (recent)", req.Bundle.Candles1m)
	writeCandles(&b, "15m candles (recent)", req.Bundle.Candles15m)

	return b.String()
}

func writeCandles(b *strings.Builder, title string, candles []domain.Candle) {
	if len(candles) == 0 {
		return
	}
	fmt.Fprintf(b, "\n## %s\n", title)
	b.WriteString("ts,open,high,low,close,volume\n")
	for _, c := range candles {
		fmt.Fprintf(b, "%d,%g,%g,%g,%g,%g\n", c.Ts, c.Open, c.High, c.Low, c.Close, c.Volume)
	}
}

func writeFloat(b *strings.Builder, label string, v *float64) {
	if v == nil {
		return
	}
	fmt.Fprintf(b, "%s: %g\n", label, *v)
}

func writeInt(b *strings.Builder, label string, v *int64) {
	if v == nil {
		return
	}
	fmt.Fprintf(b, "%s: %d\n", label, *v)
}

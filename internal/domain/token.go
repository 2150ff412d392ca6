package domain

import "time"

// TokenIdentity is the globally unique key for a tracked pair: the canonical
// chain identifier plus the pool (pair) contract address.
type TokenIdentity struct {
	ChainID     string
	PoolAddress string
}

// Token is a tracked blockchain token/pair. Identity fields never change once
// the token exists; the display fields may be refreshed on re-submission.
type Token struct {
	ID          int64
	ChainID     string
	PoolAddress string
	Symbol      string
	QuoteSymbol string
	TokenURL    string
	UserID      int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Identity returns the composite key for the token.
func (t *Token) Identity() TokenIdentity {
	return TokenIdentity{ChainID: t.ChainID, PoolAddress: t.PoolAddress}
}

// PairLabel renders the "BASE/QUOTE" display label used in analysis output
// and notifications.
func (t *Token) PairLabel() string {
	base := t.Symbol
	if base == "" {
		base = "?"
	}
	quote := t.QuoteSymbol
	if quote == "" {
		quote = "?"
	}
	return base + "/" + quote
}

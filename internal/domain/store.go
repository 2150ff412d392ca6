package domain

import (
	"context"
	"time"
)

// TokenStore persists tracked tokens. Upsert is idempotent on the
// (chain_id, pool_address) identity: re-submitting a known identity resolves
// to the existing row, refreshing display fields, and never creates a
// duplicate.
type TokenStore interface {
	Upsert(ctx context.Context, t Token) (Token, error)
	GetByID(ctx context.Context, id int64) (Token, error)
	GetByIdentity(ctx context.Context, identity TokenIdentity) (Token, error)
	ListByUser(ctx context.Context, userID int64) ([]Token, error)
}

// TickerSnapshotStore persists immutable DexScreener captures. Writes are
// insert-only; FetchedAt defaults to write time when left zero.
type TickerSnapshotStore interface {
	Insert(ctx context.Context, s TickerSnapshot) (TickerSnapshot, error)
	Latest(ctx context.Context, tokenID int64) (TickerSnapshot, error)
	Count(ctx context.Context, tokenID int64) (int, error)
	LatestFetchedAt(ctx context.Context, tokenID int64) (*time.Time, error)
}

// MetadataSnapshotStore persists immutable GeckoTerminal metadata captures.
type MetadataSnapshotStore interface {
	Insert(ctx context.Context, s MetadataSnapshot) (MetadataSnapshot, error)
	Latest(ctx context.Context, tokenID int64, role MetadataRole) (MetadataSnapshot, error)
	LatestAny(ctx context.Context, tokenID int64) (MetadataSnapshot, error)
	Count(ctx context.Context, tokenID int64) (int, error)
	HasRole(ctx context.Context, tokenID int64, role MetadataRole) (bool, error)
	LatestFetchedAt(ctx context.Context, tokenID int64) (*time.Time, error)
}

// CandleStore persists OHLCV candles. InsertBatch is idempotent on the
// (token, timeframe, aggregate, ts) key and reports how many rows were newly
// inserted; 0 is the expected result of re-fetching an already-covered range.
type CandleStore interface {
	InsertBatch(ctx context.Context, candles []Candle) (int, error)
	LatestTs(ctx context.Context, tokenID int64, spec TimeframeSpec) (int64, error)
	Recent(ctx context.Context, tokenID int64, spec TimeframeSpec, limit int) ([]Candle, error)
	Count(ctx context.Context, tokenID int64) (int, error)
	LatestCreatedAt(ctx context.Context, tokenID int64) (*time.Time, error)
}

// TransactionStore is the append-only ledger log. List returns the full log
// for a (token, user) pair ordered by (created_at, id) ascending in a single
// consistent read.
type TransactionStore interface {
	Append(ctx context.Context, tx Transaction) (Transaction, error)
	List(ctx context.Context, tokenID, userID int64) ([]Transaction, error)
}

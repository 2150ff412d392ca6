package ingest

import (
	"context"
	"time"

	"github.com/dexiq/dexiq/internal/domain"
	"github.com/dexiq/dexiq/internal/platform/geckoterminal"
)

type fakeTickerFetcher struct {
	snap  domain.TickerSnapshot
	err   error
	calls int
}

func (f *fakeTickerFetcher) FetchSnapshot(_ context.Context, _, _ string, tokenID int64) (domain.TickerSnapshot, error) {
	f.calls++
	if f.err != nil {
		return domain.TickerSnapshot{}, f.err
	}
	snap := f.snap
	snap.TokenID = tokenID
	return snap, nil
}

type fakeTickerStore struct {
	lastFetch *time.Time
	inserted  []domain.TickerSnapshot
}

func (f *fakeTickerStore) Insert(_ context.Context, s domain.TickerSnapshot) (domain.TickerSnapshot, error) {
	f.inserted = append(f.inserted, s)
	return s, nil
}

func (f *fakeTickerStore) Latest(context.Context, int64) (domain.TickerSnapshot, error) {
	return domain.TickerSnapshot{}, domain.ErrNotFound
}

func (f *fakeTickerStore) Count(context.Context, int64) (int, error) {
	return len(f.inserted), nil
}

func (f *fakeTickerStore) LatestFetchedAt(context.Context, int64) (*time.Time, error) {
	return f.lastFetch, nil
}

type fakeMetadataFetcher struct {
	snaps []domain.MetadataSnapshot
	err   error
}

func (f *fakeMetadataFetcher) FetchPoolInfo(_ context.Context, _, _ string, tokenID int64) ([]domain.MetadataSnapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.MetadataSnapshot, len(f.snaps))
	for i, s := range f.snaps {
		s.TokenID = tokenID
		out[i] = s
	}
	return out, nil
}

type fakeMetadataStore struct {
	lastFetch *time.Time
	hasBase   bool
	inserted  []domain.MetadataSnapshot
}

func (f *fakeMetadataStore) Insert(_ context.Context, s domain.MetadataSnapshot) (domain.MetadataSnapshot, error) {
	f.inserted = append(f.inserted, s)
	return s, nil
}

func (f *fakeMetadataStore) Latest(context.Context, int64, domain.MetadataRole) (domain.MetadataSnapshot, error) {
	return domain.MetadataSnapshot{}, domain.ErrNotFound
}

func (f *fakeMetadataStore) LatestAny(context.Context, int64) (domain.MetadataSnapshot, error) {
	return domain.MetadataSnapshot{}, domain.ErrNotFound
}

func (f *fakeMetadataStore) Count(context.Context, int64) (int, error) {
	return len(f.inserted), nil
}

func (f *fakeMetadataStore) HasRole(_ context.Context, _ int64, role domain.MetadataRole) (bool, error) {
	if role == domain.RoleBase {
		return f.hasBase, nil
	}
	return false, nil
}

func (f *fakeMetadataStore) LatestFetchedAt(context.Context, int64) (*time.Time, error) {
	return f.lastFetch, nil
}

type fakeCandleFetcher struct {
	byTimeframe map[domain.TimeframeSpec][]domain.Candle
	err         error
	queries     []geckoterminal.OHLCVQuery
}

func (f *fakeCandleFetcher) FetchOHLCV(_ context.Context, _, _ string, tokenID int64, q geckoterminal.OHLCVQuery) ([]domain.Candle, error) {
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}
	candles, ok := f.byTimeframe[q.Spec]
	if !ok {
		return nil, domain.ErrNoData
	}
	out := make([]domain.Candle, len(candles))
	for i, c := range candles {
		c.TokenID = tokenID
		c.Timeframe = q.Spec.Timeframe
		c.Aggregate = q.Spec.Aggregate
		out[i] = c
	}
	return out, nil
}

type fakeCandleStore struct {
	latestTs map[domain.TimeframeSpec]int64
	count    int
	inserted []domain.Candle
}

func (f *fakeCandleStore) InsertBatch(_ context.Context, candles []domain.Candle) (int, error) {
	f.inserted = append(f.inserted, candles...)
	f.count += len(candles)
	return len(candles), nil
}

func (f *fakeCandleStore) LatestTs(_ context.Context, _ int64, spec domain.TimeframeSpec) (int64, error) {
	ts, ok := f.latestTs[spec]
	if !ok {
		return 0, domain.ErrNoData
	}
	return ts, nil
}

func (f *fakeCandleStore) Recent(context.Context, int64, domain.TimeframeSpec, int) ([]domain.Candle, error) {
	return nil, nil
}

func (f *fakeCandleStore) Count(context.Context, int64) (int, error) {
	return f.count, nil
}

func (f *fakeCandleStore) LatestCreatedAt(context.Context, int64) (*time.Time, error) {
	return nil, nil
}

type fakeEnqueuer struct {
	tokens []domain.Token
	full   bool
}

func (f *fakeEnqueuer) EnqueueAnalysis(t domain.Token) bool {
	if f.full {
		return false
	}
	f.tokens = append(f.tokens, t)
	return true
}

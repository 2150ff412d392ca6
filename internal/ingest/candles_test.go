package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dexiq/dexiq/internal/domain"
)

func TestCandleSourceFetchesEverySupportedTimeframe(t *testing.T) {
	fetcher := &fakeCandleFetcher{byTimeframe: map[domain.TimeframeSpec][]domain.Candle{}}
	store := &fakeCandleStore{latestTs: map[domain.TimeframeSpec]int64{}}
	src := NewCandleSource(fetcher, store, 1000, testLogger())

	token := testToken()
	n, err := src.Fetch(context.Background(), &token)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.Len(t, fetcher.queries, len(domain.SupportedTimeframes))
	for i, q := range fetcher.queries {
		assert.Equal(t, domain.SupportedTimeframes[i], q.Spec)
		assert.Equal(t, 1000, q.Limit)
	}
}

func TestCandleSourceUsesIncrementalLowerBound(t *testing.T) {
	spec15m := domain.TimeframeSpec{Timeframe: domain.TimeframeMinute, Aggregate: 15}
	fetcher := &fakeCandleFetcher{byTimeframe: map[domain.TimeframeSpec][]domain.Candle{}}
	store := &fakeCandleStore{latestTs: map[domain.TimeframeSpec]int64{
		spec15m: 1_700_000_000,
	}}
	src := NewCandleSource(fetcher, store, 1000, testLogger())

	token := testToken()
	_, err := src.Fetch(context.Background(), &token)
	require.NoError(t, err)

	byName := map[domain.TimeframeSpec]int64{}
	for _, q := range fetcher.queries {
		byName[q.Spec] = q.FromTs
	}
	// Covered timeframe resumes one past the stored tip; the rest start from
	// scratch.
	assert.Equal(t, int64(1_700_000_001), byName[spec15m])
	assert.Zero(t, byName[domain.TimeframeSpec{Timeframe: domain.TimeframeMinute, Aggregate: 1}])
}

func TestCandleSourceStoresFetchedCandles(t *testing.T) {
	spec1m := domain.TimeframeSpec{Timeframe: domain.TimeframeMinute, Aggregate: 1}
	fetcher := &fakeCandleFetcher{byTimeframe: map[domain.TimeframeSpec][]domain.Candle{
		spec1m: {
			{Ts: 100, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10},
			{Ts: 160, Open: 1.5, High: 1.8, Low: 1.2, Close: 1.6, Volume: 8},
		},
	}}
	store := &fakeCandleStore{latestTs: map[domain.TimeframeSpec]int64{}}
	src := NewCandleSource(fetcher, store, 1000, testLogger())

	token := testToken()
	n, err := src.Fetch(context.Background(), &token)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, store.inserted, 2)
	assert.Equal(t, token.ID, store.inserted[0].TokenID)
	assert.Equal(t, domain.TimeframeMinute, store.inserted[0].Timeframe)
}

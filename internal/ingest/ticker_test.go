package ingest

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dexiq/dexiq/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func testToken() domain.Token {
	return domain.Token{
		ID:          42,
		ChainID:     "ethereum",
		PoolAddress: "0xabc",
		Symbol:      "PEPE",
		QuoteSymbol: "WETH",
	}
}

func TestTickerSourceFetchesWhenStale(t *testing.T) {
	price := 1.25
	fetcher := &fakeTickerFetcher{snap: domain.TickerSnapshot{PriceUSD: &price}}
	store := &fakeTickerStore{}
	src := NewTickerSource(fetcher, store, 5*time.Minute, testLogger())

	token := testToken()
	n, err := src.Fetch(context.Background(), &token)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, store.inserted, 1)
	assert.Equal(t, token.ID, store.inserted[0].TokenID)
	assert.False(t, store.inserted[0].FetchedAt.IsZero())
}

func TestTickerSourceSkipsWhenFresh(t *testing.T) {
	recent := time.Now().Add(-time.Minute)
	fetcher := &fakeTickerFetcher{}
	store := &fakeTickerStore{lastFetch: &recent}
	src := NewTickerSource(fetcher, store, 5*time.Minute, testLogger())

	token := testToken()
	n, err := src.Fetch(context.Background(), &token)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, fetcher.calls)
}

func TestTickerSourceRefetchesPastStaleness(t *testing.T) {
	old := time.Now().Add(-10 * time.Minute)
	fetcher := &fakeTickerFetcher{}
	store := &fakeTickerStore{lastFetch: &old}
	src := NewTickerSource(fetcher, store, 5*time.Minute, testLogger())

	token := testToken()
	n, err := src.Fetch(context.Background(), &token)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, fetcher.calls)
}

func TestTickerSourceTreatsNoDataAsSkip(t *testing.T) {
	fetcher := &fakeTickerFetcher{err: domain.ErrNoData}
	store := &fakeTickerStore{}
	src := NewTickerSource(fetcher, store, 5*time.Minute, testLogger())

	token := testToken()
	n, err := src.Fetch(context.Background(), &token)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, store.inserted)
}

func TestTickerSourcePropagatesFetchErrors(t *testing.T) {
	boom := errors.New("upstream down")
	fetcher := &fakeTickerFetcher{err: boom}
	store := &fakeTickerStore{}
	src := NewTickerSource(fetcher, store, 5*time.Minute, testLogger())

	token := testToken()
	_, err := src.Fetch(context.Background(), &token)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

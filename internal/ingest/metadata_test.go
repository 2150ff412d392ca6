package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dexiq/dexiq/internal/domain"
)

func TestMetadataSourceStoresBothRoles(t *testing.T) {
	fetcher := &fakeMetadataFetcher{snaps: []domain.MetadataSnapshot{
		{Role: domain.RoleBase, Symbol: "PEPE"},
		{Role: domain.RoleQuote, Symbol: "WETH"},
	}}
	store := &fakeMetadataStore{}
	src := NewMetadataSource(fetcher, store, 5*time.Minute, testLogger())

	token := testToken()
	n, err := src.Fetch(context.Background(), &token)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, store.inserted, 2)
	assert.Equal(t, domain.RoleBase, store.inserted[0].Role)
	assert.Equal(t, domain.RoleQuote, store.inserted[1].Role)
	assert.Equal(t, token.ID, store.inserted[0].TokenID)
}

func TestMetadataSourceSkipsWhenFresh(t *testing.T) {
	recent := time.Now().Add(-time.Minute)
	store := &fakeMetadataStore{lastFetch: &recent}
	src := NewMetadataSource(&fakeMetadataFetcher{}, store, 5*time.Minute, testLogger())

	token := testToken()
	n, err := src.Fetch(context.Background(), &token)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, store.inserted)
}

func TestMetadataSourceTreatsNoDataAsSkip(t *testing.T) {
	fetcher := &fakeMetadataFetcher{err: domain.ErrNoData}
	store := &fakeMetadataStore{}
	src := NewMetadataSource(fetcher, store, 5*time.Minute, testLogger())

	token := testToken()
	n, err := src.Fetch(context.Background(), &token)
	require.NoError(t, err)
	assert.Zero(t, n)
}

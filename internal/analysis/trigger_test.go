package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dexiq/dexiq/internal/domain"
)

type fakeTickerStore struct {
	latest *domain.TickerSnapshot
}

func (f *fakeTickerStore) Insert(context.Context, domain.TickerSnapshot) (domain.TickerSnapshot, error) {
	return domain.TickerSnapshot{}, nil
}

func (f *fakeTickerStore) Latest(context.Context, int64) (domain.TickerSnapshot, error) {
	if f.latest == nil {
		return domain.TickerSnapshot{}, domain.ErrNotFound
	}
	return *f.latest, nil
}

func (f *fakeTickerStore) Count(context.Context, int64) (int, error) { return 0, nil }

func (f *fakeTickerStore) LatestFetchedAt(context.Context, int64) (*time.Time, error) {
	return nil, nil
}

type fakeMetadataStore struct {
	base *domain.MetadataSnapshot
}

func (f *fakeMetadataStore) Insert(context.Context, domain.MetadataSnapshot) (domain.MetadataSnapshot, error) {
	return domain.MetadataSnapshot{}, nil
}

func (f *fakeMetadataStore) Latest(_ context.Context, _ int64, role domain.MetadataRole) (domain.MetadataSnapshot, error) {
	if role == domain.RoleBase && f.base != nil {
		return *f.base, nil
	}
	return domain.MetadataSnapshot{}, domain.ErrNotFound
}

func (f *fakeMetadataStore) LatestAny(context.Context, int64) (domain.MetadataSnapshot, error) {
	return domain.MetadataSnapshot{}, domain.ErrNotFound
}

func (f *fakeMetadataStore) Count(context.Context, int64) (int, error) { return 0, nil }

func (f *fakeMetadataStore) HasRole(context.Context, int64, domain.MetadataRole) (bool, error) {
	return f.base != nil, nil
}

func (f *fakeMetadataStore) LatestFetchedAt(context.Context, int64) (*time.Time, error) {
	return nil, nil
}

type fakeCandleStore struct {
	recent []domain.Candle
}

func (f *fakeCandleStore) InsertBatch(context.Context, []domain.Candle) (int, error) { return 0, nil }

func (f *fakeCandleStore) LatestTs(context.Context, int64, domain.TimeframeSpec) (int64, error) {
	return 0, domain.ErrNoData
}

func (f *fakeCandleStore) Recent(context.Context, int64, domain.TimeframeSpec, int) ([]domain.Candle, error) {
	return f.recent, nil
}

func (f *fakeCandleStore) Count(context.Context, int64) (int, error) {
	return len(f.recent), nil
}

func (f *fakeCandleStore) LatestCreatedAt(context.Context, int64) (*time.Time, error) {
	return nil, nil
}

type fakeEvaluator struct {
	status domain.ReadinessStatus
}

func (f *fakeEvaluator) Evaluate(context.Context, int64) (domain.ReadinessStatus, error) {
	return f.status, nil
}

type fakeAnalyzer struct {
	result domain.AnalysisResult
	err    error
	calls  int
	last   domain.AnalysisRequest
}

func (f *fakeAnalyzer) Analyze(_ context.Context, req domain.AnalysisRequest) (domain.AnalysisResult, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return domain.AnalysisResult{}, f.err
	}
	return f.result, nil
}

type fakeCache struct {
	entries map[string]domain.AnalysisResult
}

func cacheKey(tokenID int64, price *decimal.Decimal) string {
	if price == nil {
		return fmt.Sprintf("%d:none", tokenID)
	}
	return fmt.Sprintf("%d:%s", tokenID, price.String())
}

func (f *fakeCache) Get(_ context.Context, tokenID int64, price *decimal.Decimal) (domain.AnalysisResult, error) {
	if r, ok := f.entries[cacheKey(tokenID, price)]; ok {
		return r, nil
	}
	return domain.AnalysisResult{}, domain.ErrNotFound
}

func (f *fakeCache) Set(_ context.Context, tokenID int64, price *decimal.Decimal, result domain.AnalysisResult) error {
	if f.entries == nil {
		f.entries = map[string]domain.AnalysisResult{}
	}
	f.entries[cacheKey(tokenID, price)] = result
	return nil
}

type fakeBus struct {
	events []domain.StatusEvent
}

func (f *fakeBus) Publish(_ context.Context, _ int64, event domain.StatusEvent) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakeBus) Subscribe(context.Context, string) (<-chan []byte, error) {
	return nil, nil
}

type triggerFixture struct {
	trigger  *Trigger
	analyzer *fakeAnalyzer
	cache    *fakeCache
	bus      *fakeBus
}

func newFixture(analyzer *fakeAnalyzer) *triggerFixture {
	cache := &fakeCache{}
	bus := &fakeBus{}
	trigger := NewTrigger(
		&fakeTickerStore{latest: &domain.TickerSnapshot{}},
		&fakeMetadataStore{base: &domain.MetadataSnapshot{Symbol: "PEPE"}},
		&fakeCandleStore{recent: []domain.Candle{{Ts: 100, Close: 1.5}}},
		&fakeEvaluator{status: domain.ReadinessStatus{
			Tier: domain.TierLots, HasTicker: true, HasMetadata: true, HasCandles: true,
		}},
		analyzer,
		cache,
		bus,
		slog.New(slog.DiscardHandler),
	)
	return &triggerFixture{trigger: trigger, analyzer: analyzer, cache: cache, bus: bus}
}

func testToken() domain.Token {
	return domain.Token{ID: 42, ChainID: "ethereum", PoolAddress: "0xabc", Symbol: "PEPE", QuoteSymbol: "WETH"}
}

func TestRunAnalyzesCachesAndPublishes(t *testing.T) {
	fx := newFixture(&fakeAnalyzer{result: domain.AnalysisResult{
		Summary:  "strong short-term momentum",
		Insights: []string{"volume rising"},
	}})

	result, err := fx.trigger.Run(context.Background(), testToken(), nil)
	require.NoError(t, err)
	assert.Equal(t, "strong short-term momentum", result.Summary)
	assert.Equal(t, 1, fx.analyzer.calls)

	require.Len(t, fx.bus.events, 1)
	event := fx.bus.events[0]
	assert.Equal(t, domain.StatusReady, event.Status)
	assert.Equal(t, int64(42), event.TokenID)
	assert.Equal(t, domain.TierLots, event.Tier)
	assert.Equal(t, "strong short-term momentum", event.AnalysisPreview)
	assert.NotEmpty(t, event.EventID)
	assert.NotEmpty(t, event.Timestamp)

	assert.Len(t, fx.cache.entries, 1)
}

func TestRunServesFromCacheWithoutReanalyzing(t *testing.T) {
	fx := newFixture(&fakeAnalyzer{result: domain.AnalysisResult{Summary: "v1"}})
	ctx := context.Background()

	price := decimal.RequireFromString("0.5")
	_, err := fx.trigger.Run(ctx, testToken(), &price)
	require.NoError(t, err)

	_, err = fx.trigger.Run(ctx, testToken(), &price)
	require.NoError(t, err)
	assert.Equal(t, 1, fx.analyzer.calls)
	// Both runs publish a ready event.
	assert.Len(t, fx.bus.events, 2)
}

func TestRunCacheKeyedByReferencePrice(t *testing.T) {
	fx := newFixture(&fakeAnalyzer{result: domain.AnalysisResult{Summary: "v1"}})
	ctx := context.Background()

	priceA := decimal.RequireFromString("0.5")
	priceB := decimal.RequireFromString("0.7")
	_, err := fx.trigger.Run(ctx, testToken(), &priceA)
	require.NoError(t, err)
	_, err = fx.trigger.Run(ctx, testToken(), &priceB)
	require.NoError(t, err)
	assert.Equal(t, 2, fx.analyzer.calls)
}

func TestRunPublishesErrorEventOnFailure(t *testing.T) {
	fx := newFixture(&fakeAnalyzer{err: domain.ErrAnalysisUnavailable})

	_, err := fx.trigger.Run(context.Background(), testToken(), nil)
	require.ErrorIs(t, err, domain.ErrAnalysisUnavailable)

	require.Len(t, fx.bus.events, 1)
	event := fx.bus.events[0]
	assert.Equal(t, domain.StatusError, event.Status)
	assert.NotEmpty(t, event.Error)
	assert.Empty(t, fx.cache.entries)
}

func TestRunRequiresBaseMetadata(t *testing.T) {
	bus := &fakeBus{}
	trigger := NewTrigger(
		&fakeTickerStore{},
		&fakeMetadataStore{},
		&fakeCandleStore{recent: []domain.Candle{{Ts: 1}}},
		&fakeEvaluator{},
		&fakeAnalyzer{},
		&fakeCache{},
		bus,
		slog.New(slog.DiscardHandler),
	)

	_, err := trigger.Run(context.Background(), testToken(), nil)
	require.ErrorIs(t, err, domain.ErrNoData)
	require.Len(t, bus.events, 1)
	assert.Equal(t, domain.StatusError, bus.events[0].Status)
}

func TestRunRequiresCandles(t *testing.T) {
	trigger := NewTrigger(
		&fakeTickerStore{},
		&fakeMetadataStore{base: &domain.MetadataSnapshot{}},
		&fakeCandleStore{},
		&fakeEvaluator{},
		&fakeAnalyzer{},
		&fakeCache{},
		&fakeBus{},
		slog.New(slog.DiscardHandler),
	)

	_, err := trigger.Run(context.Background(), testToken(), nil)
	require.ErrorIs(t, err, domain.ErrNoData)
}

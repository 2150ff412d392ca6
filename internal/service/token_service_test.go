package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dexiq/dexiq/internal/domain"
	"github.com/dexiq/dexiq/internal/ledger"
)

type fakeTokenStore struct {
	byID     map[int64]domain.Token
	nextID   int64
	upserted []domain.Token
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{byID: map[int64]domain.Token{}}
}

func (f *fakeTokenStore) Upsert(_ context.Context, t domain.Token) (domain.Token, error) {
	f.upserted = append(f.upserted, t)
	for _, existing := range f.byID {
		if existing.ChainID == t.ChainID && existing.PoolAddress == t.PoolAddress {
			existing.Symbol = t.Symbol
			f.byID[existing.ID] = existing
			return existing, nil
		}
	}
	f.nextID++
	t.ID = f.nextID
	f.byID[t.ID] = t
	return t, nil
}

func (f *fakeTokenStore) GetByID(_ context.Context, id int64) (domain.Token, error) {
	t, ok := f.byID[id]
	if !ok {
		return domain.Token{}, domain.ErrNotFound
	}
	return t, nil
}

func (f *fakeTokenStore) GetByIdentity(_ context.Context, identity domain.TokenIdentity) (domain.Token, error) {
	for _, t := range f.byID {
		if t.Identity() == identity {
			return t, nil
		}
	}
	return domain.Token{}, domain.ErrNotFound
}

func (f *fakeTokenStore) ListByUser(_ context.Context, userID int64) ([]domain.Token, error) {
	var out []domain.Token
	for _, t := range f.byID {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

type fakeTickerStore struct {
	price *float64
}

func (f *fakeTickerStore) Insert(context.Context, domain.TickerSnapshot) (domain.TickerSnapshot, error) {
	return domain.TickerSnapshot{}, nil
}

func (f *fakeTickerStore) Latest(context.Context, int64) (domain.TickerSnapshot, error) {
	if f.price == nil {
		return domain.TickerSnapshot{}, domain.ErrNotFound
	}
	return domain.TickerSnapshot{PriceUSD: f.price}, nil
}

func (f *fakeTickerStore) Count(context.Context, int64) (int, error) { return 0, nil }

func (f *fakeTickerStore) LatestFetchedAt(context.Context, int64) (*time.Time, error) {
	return nil, nil
}

type fakeEvaluator struct {
	status domain.ReadinessStatus
}

func (f *fakeEvaluator) Evaluate(_ context.Context, tokenID int64) (domain.ReadinessStatus, error) {
	status := f.status
	status.TokenID = tokenID
	return status, nil
}

type fakeEnqueuer struct {
	ingested []int64
	analyses []domain.Token
	prices   []*decimal.Decimal
	full     bool
}

func (f *fakeEnqueuer) EnqueueIngest(tokenID int64) bool {
	if f.full {
		return false
	}
	f.ingested = append(f.ingested, tokenID)
	return true
}

func (f *fakeEnqueuer) EnqueueAnalysisWithPrice(token domain.Token, price *decimal.Decimal) bool {
	if f.full {
		return false
	}
	f.analyses = append(f.analyses, token)
	f.prices = append(f.prices, price)
	return true
}

type fakeTxStore struct {
	entries []domain.Transaction
}

func (f *fakeTxStore) Append(_ context.Context, tx domain.Transaction) (domain.Transaction, error) {
	tx.ID = int64(len(f.entries) + 1)
	f.entries = append(f.entries, tx)
	return tx, nil
}

func (f *fakeTxStore) List(_ context.Context, tokenID, userID int64) ([]domain.Transaction, error) {
	var out []domain.Transaction
	for _, tx := range f.entries {
		if tx.TokenID == tokenID && tx.UserID == userID {
			out = append(out, tx)
		}
	}
	return out, nil
}

type fixture struct {
	svc      *TokenService
	tokens   *fakeTokenStore
	tickers  *fakeTickerStore
	enqueuer *fakeEnqueuer
	txs      *fakeTxStore
}

func newFixture(status domain.ReadinessStatus) *fixture {
	logger := slog.New(slog.DiscardHandler)
	tokens := newFakeTokenStore()
	tickers := &fakeTickerStore{}
	enqueuer := &fakeEnqueuer{}
	txs := &fakeTxStore{}
	svc := NewTokenService(tokens, tickers, &fakeEvaluator{status: status}, ledger.NewService(txs, logger), enqueuer, logger)
	return &fixture{svc: svc, tokens: tokens, tickers: tickers, enqueuer: enqueuer, txs: txs}
}

func trackReq() TrackRequest {
	return TrackRequest{
		ChainID:     "eth",
		PoolAddress: "0xabc",
		Symbol:      "PEPE",
		QuoteSymbol: "WETH",
		UserID:      1,
	}
}

func TestTrackNormalizesChainAndEnqueuesIngest(t *testing.T) {
	fx := newFixture(domain.ReadinessStatus{})

	token, err := fx.svc.Track(context.Background(), trackReq())
	require.NoError(t, err)
	assert.Equal(t, "ethereum", token.ChainID)
	assert.Equal(t, []int64{token.ID}, fx.enqueuer.ingested)
}

func TestTrackIsIdempotentOnIdentity(t *testing.T) {
	fx := newFixture(domain.ReadinessStatus{})
	ctx := context.Background()

	first, err := fx.svc.Track(ctx, trackReq())
	require.NoError(t, err)

	req := trackReq()
	req.ChainID = "ethereum" // alias of the first submission
	req.Symbol = "PEPE2"
	second, err := fx.svc.Track(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	// Re-tracking schedules another pass.
	assert.Len(t, fx.enqueuer.ingested, 2)
}

func TestTrackValidatesInput(t *testing.T) {
	fx := newFixture(domain.ReadinessStatus{})

	_, err := fx.svc.Track(context.Background(), TrackRequest{})
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
	assert.Empty(t, fx.enqueuer.ingested)
}

func TestStatusUnknownTokenIsNotFound(t *testing.T) {
	fx := newFixture(domain.ReadinessStatus{})

	_, err := fx.svc.Status(context.Background(), 99)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPositionUsesLatestTickerPrice(t *testing.T) {
	fx := newFixture(domain.ReadinessStatus{})
	ctx := context.Background()

	token, err := fx.svc.Track(ctx, trackReq())
	require.NoError(t, err)

	_, err = fx.svc.RecordTransaction(ctx, domain.Transaction{
		TokenID: token.ID, UserID: 1, Type: domain.TxBuy,
		Amount:    decimal.RequireFromString("10"),
		UnitPrice: decimal.RequireFromString("1.0"),
	})
	require.NoError(t, err)

	price := 2.0
	fx.tickers.price = &price

	sum, err := fx.svc.Position(ctx, token.ID, 1, nil)
	require.NoError(t, err)
	require.NotNil(t, sum.CurrentPrice)
	assert.True(t, sum.UnrealizedPnL.Equal(decimal.RequireFromString("10")), "unrealized: %s", sum.UnrealizedPnL)
}

func TestPositionPriceOverrideWins(t *testing.T) {
	fx := newFixture(domain.ReadinessStatus{})
	ctx := context.Background()

	token, err := fx.svc.Track(ctx, trackReq())
	require.NoError(t, err)

	_, err = fx.svc.RecordTransaction(ctx, domain.Transaction{
		TokenID: token.ID, UserID: 1, Type: domain.TxBuy,
		Amount:    decimal.RequireFromString("4"),
		UnitPrice: decimal.RequireFromString("1.0"),
	})
	require.NoError(t, err)

	ticker := 2.0
	fx.tickers.price = &ticker
	override := decimal.RequireFromString("3.0")

	sum, err := fx.svc.Position(ctx, token.ID, 1, &override)
	require.NoError(t, err)
	assert.True(t, sum.UnrealizedPnL.Equal(decimal.RequireFromString("8")), "unrealized: %s", sum.UnrealizedPnL)
}

func TestRecordTransactionUnknownToken(t *testing.T) {
	fx := newFixture(domain.ReadinessStatus{})

	_, err := fx.svc.RecordTransaction(context.Background(), domain.Transaction{
		TokenID: 99, UserID: 1, Type: domain.TxBuy,
		Amount:    decimal.RequireFromString("1"),
		UnitPrice: decimal.RequireFromString("1"),
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRequestAnalysisWhenReady(t *testing.T) {
	fx := newFixture(domain.ReadinessStatus{Tier: domain.TierLots, ReadyForAnalysis: true})
	ctx := context.Background()

	token, err := fx.svc.Track(ctx, trackReq())
	require.NoError(t, err)

	price := decimal.RequireFromString("0.5")
	status, err := fx.svc.RequestAnalysis(ctx, token.ID, &price)
	require.NoError(t, err)
	assert.True(t, status.ReadyForAnalysis)
	require.Len(t, fx.enqueuer.analyses, 1)
	require.NotNil(t, fx.enqueuer.prices[0])
	assert.True(t, fx.enqueuer.prices[0].Equal(price))
}

func TestRequestAnalysisRejectedWhenNotReady(t *testing.T) {
	fx := newFixture(domain.ReadinessStatus{Tier: domain.TierSome})
	ctx := context.Background()

	token, err := fx.svc.Track(ctx, trackReq())
	require.NoError(t, err)

	_, err = fx.svc.RequestAnalysis(ctx, token.ID, nil)
	require.ErrorIs(t, err, domain.ErrNoData)
	assert.Empty(t, fx.enqueuer.analyses)
}

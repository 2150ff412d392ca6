package ledger

import (
	"context"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dexiq/dexiq/internal/domain"
)

type fakeTxStore struct {
	entries []domain.Transaction
	nextID  int64
}

func (f *fakeTxStore) Append(_ context.Context, tx domain.Transaction) (domain.Transaction, error) {
	f.nextID++
	tx.ID = f.nextID
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

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestService() (*Service, *fakeTxStore) {
	store := &fakeTxStore{}
	return NewService(store, slog.New(slog.DiscardHandler)), store
}

func TestRecordAppendsValidTransaction(t *testing.T) {
	svc, store := newTestService()

	tx, err := svc.Record(context.Background(), domain.Transaction{
		TokenID:   1,
		UserID:    9,
		Type:      domain.TxBuy,
		Amount:    dec("10"),
		UnitPrice: dec("1.0"),
	})
	require.NoError(t, err)
	assert.NotZero(t, tx.ID)
	assert.Len(t, store.entries, 1)
}

func TestRecordRejectsInvalidTransaction(t *testing.T) {
	svc, store := newTestService()

	_, err := svc.Record(context.Background(), domain.Transaction{
		TokenID:   1,
		UserID:    9,
		Type:      "transfer",
		Amount:    dec("-5"),
		UnitPrice: decimal.Zero,
	})
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
	assert.Empty(t, store.entries)

	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Fields, 3)
}

func TestSummaryWeightedAverage(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	mustRecord := func(typ domain.TxType, amount, price string) {
		_, err := svc.Record(ctx, domain.Transaction{
			TokenID: 1, UserID: 9, Type: typ,
			Amount: dec(amount), UnitPrice: dec(price),
		})
		require.NoError(t, err)
	}

	mustRecord(domain.TxBuy, "10", "1.0")
	mustRecord(domain.TxSell, "4", "1.5")

	price := dec("2.0")
	sum, err := svc.Summary(ctx, 1, 9, &price)
	require.NoError(t, err)

	require.NotNil(t, sum.AverageBuyPrice)
	assert.True(t, sum.AverageBuyPrice.Equal(dec("1.0")), "avg buy price: %s", sum.AverageBuyPrice)
	assert.True(t, sum.CurrentPosition.Equal(dec("6")), "position: %s", sum.CurrentPosition)
	// Invested capital nets out sell proceeds: 10×1.0 − 4×1.5 = 4.0.
	assert.True(t, sum.TotalInvested.Equal(dec("4.0")), "invested: %s", sum.TotalInvested)
	// Realized: 4 sold at 1.5 against a 1.0 average = 2.0.
	assert.True(t, sum.RealizedPnL.Equal(dec("2.0")), "realized: %s", sum.RealizedPnL)
	// Unrealized: (2.0 − 1.0) × 6 = 6.0.
	assert.True(t, sum.UnrealizedPnL.Equal(dec("6.0")), "unrealized: %s", sum.UnrealizedPnL)
	assert.True(t, sum.TotalPnL.Equal(dec("8.0")), "total: %s", sum.TotalPnL)
	// 8.0 / 4.0 × 100.
	assert.True(t, sum.PnLPercentage.Equal(dec("200")), "pct: %s", sum.PnLPercentage)
	assert.Equal(t, 2, sum.TxCount)
}

func TestSummaryWithoutPriceSkipsUnrealized(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Record(ctx, domain.Transaction{
		TokenID: 1, UserID: 9, Type: domain.TxBuy,
		Amount: dec("3"), UnitPrice: dec("2.0"),
	})
	require.NoError(t, err)

	sum, err := svc.Summary(ctx, 1, 9, nil)
	require.NoError(t, err)
	assert.True(t, sum.UnrealizedPnL.IsZero())
	assert.True(t, sum.CurrentValue.IsZero())
	assert.Nil(t, sum.CurrentPrice)
}

func TestSummaryEmptyLogIsZero(t *testing.T) {
	svc, _ := newTestService()

	sum, err := svc.Summary(context.Background(), 1, 9, nil)
	require.NoError(t, err)
	assert.Zero(t, sum.TxCount)
	assert.Nil(t, sum.AverageBuyPrice)
	assert.True(t, sum.CurrentPosition.IsZero())
	assert.True(t, sum.PnLPercentage.IsZero())
}

func TestSummaryIsolatesUsers(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Record(ctx, domain.Transaction{
		TokenID: 1, UserID: 9, Type: domain.TxBuy,
		Amount: dec("5"), UnitPrice: dec("1"),
	})
	require.NoError(t, err)

	sum, err := svc.Summary(ctx, 1, 10, nil)
	require.NoError(t, err)
	assert.Zero(t, sum.TxCount)
}

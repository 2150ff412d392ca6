package domain

import "github.com/shopspring/decimal"

// PositionSummary is the derived position and P&L for a (token, user) pair.
// It is computed from the transaction log on every read and never stored.
//
// The ledger uses the weighted-average cost method: the average buy price is
// total cost divided by total quantity bought, with no FIFO/LIFO lot
// matching. TotalInvested nets sell proceeds against invested capital rather
// than reducing cost basis, which matches the presentation the product has
// always shown.
type PositionSummary struct {
	TotalBought     decimal.Decimal
	TotalSold       decimal.Decimal
	CurrentPosition decimal.Decimal
	AverageBuyPrice *decimal.Decimal // nil when no buys recorded
	TotalInvested   decimal.Decimal
	CurrentValue    decimal.Decimal
	RealizedPnL     decimal.Decimal
	UnrealizedPnL   decimal.Decimal
	TotalPnL        decimal.Decimal
	PnLPercentage   decimal.Decimal
	CurrentPrice    *decimal.Decimal // echo of the reference price, if any
	TxCount         int
}

// ComputePosition derives the full position summary from an ordered
// transaction log. currentPrice may be nil when no reference price is known;
// unrealized P&L is then 0.
//
// CurrentPosition goes negative when recorded sells exceed recorded buys; no
// short-sell protection is applied, the imbalance is simply reported.
func ComputePosition(txs []Transaction, currentPrice *decimal.Decimal) PositionSummary {
	var (
		totalBought   = decimal.Zero
		totalSold     = decimal.Zero
		totalBuyCost  = decimal.Zero
		totalSellCost = decimal.Zero
	)

	for i := range txs {
		tx := &txs[i]
		switch tx.Type {
		case TxBuy:
			totalBought = totalBought.Add(tx.Amount)
			totalBuyCost = totalBuyCost.Add(tx.Value())
		case TxSell:
			totalSold = totalSold.Add(tx.Amount)
			totalSellCost = totalSellCost.Add(tx.Value())
		}
	}

	sum := PositionSummary{
		TotalBought:     totalBought,
		TotalSold:       totalSold,
		CurrentPosition: totalBought.Sub(totalSold),
		TotalInvested:   totalBuyCost.Sub(totalSellCost),
		RealizedPnL:     decimal.Zero,
		UnrealizedPnL:   decimal.Zero,
		CurrentPrice:    currentPrice,
		TxCount:         len(txs),
	}

	if totalBought.IsPositive() {
		avg := totalBuyCost.Div(totalBought)
		sum.AverageBuyPrice = &avg

		for i := range txs {
			tx := &txs[i]
			if tx.Type != TxSell {
				continue
			}
			sum.RealizedPnL = sum.RealizedPnL.Add(tx.UnitPrice.Sub(avg).Mul(tx.Amount))
		}
	}

	if currentPrice != nil {
		sum.CurrentValue = sum.CurrentPosition.Mul(*currentPrice)
		if sum.AverageBuyPrice != nil && sum.CurrentPosition.IsPositive() && !currentPrice.IsZero() {
			sum.UnrealizedPnL = currentPrice.Sub(*sum.AverageBuyPrice).Mul(sum.CurrentPosition)
		}
	}

	sum.TotalPnL = sum.RealizedPnL.Add(sum.UnrealizedPnL)

	if !sum.TotalInvested.IsZero() {
		sum.PnLPercentage = sum.TotalPnL.Div(sum.TotalInvested).Mul(decimal.NewFromInt(100))
	}

	return sum
}

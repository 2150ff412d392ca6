package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TxType is the direction of a ledger transaction.
type TxType string

const (
	TxBuy  TxType = "buy"
	TxSell TxType = "sell"
)

// Transaction is one immutable ledger entry for a (token, user) pair.
// Ordering for accounting purposes is (CreatedAt, ID) ascending; the
// monotonic ID breaks ties between entries recorded in the same instant.
type Transaction struct {
	ID        int64
	TokenID   int64
	UserID    int64
	Type      TxType
	Amount    decimal.Decimal
	UnitPrice decimal.Decimal
	TxHash    string
	Note      string
	CreatedAt time.Time
}

// Value returns amount × unit price.
func (t *Transaction) Value() decimal.Decimal {
	return t.Amount.Mul(t.UnitPrice)
}

// Validate checks the transaction before persistence and returns a
// *ValidationError describing every invalid field, or nil when the record is
// acceptable.
func (t *Transaction) Validate() error {
	ve := &ValidationError{}

	switch t.Type {
	case TxBuy, TxSell:
	case "":
		ve.Add("type", "is required")
	default:
		ve.Add("type", "must be \"buy\" or \"sell\"")
	}

	if t.Amount.LessThanOrEqual(decimal.Zero) {
		ve.Add("amount", "must be greater than 0")
	}
	if t.UnitPrice.LessThanOrEqual(decimal.Zero) {
		ve.Add("unit_price", "must be greater than 0")
	}

	if ve.HasErrors() {
		return ve
	}
	return nil
}

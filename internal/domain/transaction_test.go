package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionValidateAccepts(t *testing.T) {
	tx := Transaction{
		Type:      TxBuy,
		Amount:    d("1.5"),
		UnitPrice: d("0.002"),
	}
	assert.NoError(t, tx.Validate())
}

func TestTransactionValidateCollectsAllFieldErrors(t *testing.T) {
	tx := Transaction{
		Type:      "transfer",
		Amount:    d("-1"),
		UnitPrice: decimal.Zero,
	}

	err := tx.Validate()
	require.Error(t, err)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Len(t, ve.Fields, 3)

	fields := map[string]string{}
	for _, f := range ve.Fields {
		fields[f.Field] = f.Message
	}
	assert.Contains(t, fields, "type")
	assert.Contains(t, fields, "amount")
	assert.Contains(t, fields, "unit_price")
}

func TestTransactionValidateRequiresType(t *testing.T) {
	tx := Transaction{Amount: d("1"), UnitPrice: d("1")}

	err := tx.Validate()
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestTransactionValue(t *testing.T) {
	tx := Transaction{Type: TxBuy, Amount: d("2.5"), UnitPrice: d("0.4")}
	assert.True(t, tx.Value().Equal(d("1.0")))
}

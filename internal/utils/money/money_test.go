package money_test

import (
	"testing"

	"github.com/shopkosh/coin_wallet_service/internal/utils/money"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMinor(t *testing.T) {
	minor, err := money.ToMinor(decimal.RequireFromString("12.50"))
	require.NoError(t, err)
	assert.Equal(t, int64(1250), minor)

	minor, err = money.ToMinor(decimal.RequireFromString("0.01"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), minor)

	_, err = money.ToMinor(decimal.RequireFromString("0.005"))
	assert.Error(t, err)
}

func TestToMajor(t *testing.T) {
	assert.True(t, decimal.RequireFromString("12.50").Equal(money.ToMajor(1250)))
	assert.True(t, decimal.RequireFromString("-3.00").Equal(money.ToMajor(-300)))
	assert.True(t, decimal.Zero.Equal(money.ToMajor(0)))
}

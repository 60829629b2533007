package domain_test

import (
	"testing"

	"github.com/shopkosh/coin_wallet_service/internal/core/domain"
	"github.com/stretchr/testify/assert"
)

func TestProjectBalance(t *testing.T) {
	testCases := []struct {
		name              string
		actual            int64
		wantDisplay       int64
		wantPendingAdjust int64
		wantCanRedeem     bool
	}{
		{name: "positive balance", actual: 500, wantDisplay: 500, wantPendingAdjust: 0, wantCanRedeem: true},
		{name: "zero balance", actual: 0, wantDisplay: 0, wantPendingAdjust: 0, wantCanRedeem: false},
		{name: "negative balance shows zero with pending adjustment", actual: -300, wantDisplay: 0, wantPendingAdjust: 300, wantCanRedeem: false},
		{name: "single paisa", actual: 1, wantDisplay: 1, wantPendingAdjust: 0, wantCanRedeem: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b := domain.ProjectBalance(tc.actual)
			assert.Equal(t, tc.actual, b.ActualMinor)
			assert.Equal(t, tc.wantDisplay, b.DisplayMinor)
			assert.Equal(t, tc.wantPendingAdjust, b.PendingAdjustmentMinor)
			assert.Equal(t, tc.wantCanRedeem, b.CanRedeem)
		})
	}
}

func TestProjectBalanceFromEntries(t *testing.T) {
	entries := []domain.WalletEntry{
		{EntryType: domain.EntryEarn, AmountMinor: 500},
		{EntryType: domain.EntrySpend, AmountMinor: -300},
		{EntryType: domain.EntryReversal, AmountMinor: -500},
	}

	b := domain.ProjectBalanceFromEntries(entries)
	assert.Equal(t, int64(-300), b.ActualMinor)
	assert.Equal(t, int64(0), b.DisplayMinor)
	assert.Equal(t, int64(300), b.PendingAdjustmentMinor)
	assert.False(t, b.CanRedeem)
}

func TestDisplayStatus(t *testing.T) {
	active := domain.EarnActive
	earn := domain.WalletEntry{EntryType: domain.EntryEarn, AmountMinor: 500, Status: &active}
	assert.Equal(t, "ACTIVE", earn.DisplayStatus())

	spend := domain.WalletEntry{EntryType: domain.EntrySpend, AmountMinor: -200}
	assert.Equal(t, "DEBITED", spend.DisplayStatus())

	credit := domain.WalletEntry{EntryType: domain.EntryAdjustmentCredit, AmountMinor: 300}
	assert.Equal(t, "CREDITED", credit.DisplayStatus())
}

func TestEarnStatusTerminal(t *testing.T) {
	assert.False(t, domain.EarnActive.Terminal())
	assert.True(t, domain.EarnConsumed.Terminal())
	assert.True(t, domain.EarnExpired.Terminal())
	assert.True(t, domain.EarnReversed.Terminal())
}

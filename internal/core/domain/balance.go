package domain

// Balance is the projection of a customer's entry set. It is always derived
// from the ledger, never cached as a mutable running total.
type Balance struct {
	ActualMinor            int64 `json:"actualMinor"`
	DisplayMinor           int64 `json:"displayMinor"`
	PendingAdjustmentMinor int64 `json:"pendingAdjustmentMinor"`
	CanRedeem              bool  `json:"canRedeem"`
}

// ProjectBalance derives the balance from a signed actual amount.
// The display balance is floored at zero; the pending adjustment is the
// magnitude of any debt created when reversed or expired credit exceeded
// what remained unspent.
func ProjectBalance(actualMinor int64) Balance {
	b := Balance{ActualMinor: actualMinor}
	if actualMinor > 0 {
		b.DisplayMinor = actualMinor
	}
	if actualMinor < 0 {
		b.PendingAdjustmentMinor = -actualMinor
	}
	b.CanRedeem = actualMinor >= 0 && b.DisplayMinor > 0
	return b
}

// ProjectBalanceFromEntries sums a customer's entries and projects the
// balance. Used by tests and anywhere the full entry set is already in hand;
// the repository computes the same sum in SQL.
func ProjectBalanceFromEntries(entries []WalletEntry) Balance {
	var sum int64
	for _, e := range entries {
		sum += e.AmountMinor
	}
	return ProjectBalance(sum)
}

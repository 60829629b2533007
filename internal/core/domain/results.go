package domain

import "time"

// MutationResult is the outcome of a wallet mutation. Applied=false marks an
// idempotent no-op (duplicate key, missing grant, already-finalized grant);
// callers must not treat it as a failure.
type MutationResult struct {
	Applied bool    `json:"applied"`
	Balance Balance `json:"balance"`
}

// ReversalResult extends MutationResult with the owning customer, which the
// caller (an order hook) does not know up front.
type ReversalResult struct {
	Applied     bool    `json:"applied"`
	CustomerID  string  `json:"customerID"`
	AmountMinor int64   `json:"amountMinor"`
	Balance     Balance `json:"balance"`
}

// ExpiryCandidate is one ACTIVE grant past its expiry date, as reported by
// the read-only expiry scan.
type ExpiryCandidate struct {
	EntryID        string    `json:"entryID"`
	CustomerID     string    `json:"customerID"`
	AmountMinor    int64     `json:"amountMinor"`
	RemainingMinor int64     `json:"remainingMinor"`
	ExpiresAt      time.Time `json:"expiresAt"`
}

// WalletSnapshot is the read path used by account screens: projected
// balances plus the display-ordered transaction history.
type WalletSnapshot struct {
	Balance      Balance       `json:"balance"`
	Transactions []WalletEntry `json:"transactions"`
}

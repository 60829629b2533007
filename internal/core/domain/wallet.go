package domain

import "time"

// EntryType is the closed set of wallet ledger entry variants.
type EntryType string

const (
	EntryEarn             EntryType = "EARN"
	EntrySpend            EntryType = "SPEND"
	EntryReversal         EntryType = "REVERSAL"
	EntryExpiry           EntryType = "EXPIRY"
	EntryAdjustmentCredit EntryType = "ADJUSTMENT_CREDIT"
	EntryAdjustmentDebit  EntryType = "ADJUSTMENT_DEBIT"
)

// IsCredit reports whether entries of this type carry a positive amount.
func (t EntryType) IsCredit() bool {
	return t == EntryEarn || t == EntryAdjustmentCredit
}

// EarnStatus is the lifecycle state of an EARN grant. A grant transitions at
// most once away from ACTIVE; the terminal states are final.
type EarnStatus string

const (
	EarnActive   EarnStatus = "ACTIVE"
	EarnConsumed EarnStatus = "CONSUMED"
	EarnExpired  EarnStatus = "EXPIRED"
	EarnReversed EarnStatus = "REVERSED"
)

// Terminal reports whether the status permits no further transition.
func (s EarnStatus) Terminal() bool {
	return s == EarnConsumed || s == EarnExpired || s == EarnReversed
}

// WalletEntry is one immutable row of a customer's coin ledger. Amounts are
// signed integers in minor currency units (paise); the customer's balance is
// always the sum over their entries, never a stored total.
//
// The only mutation ever applied after insert is the grant bookkeeping on
// EARN entries: RemainingMinor decreases as spends consume the grant, and
// Status moves once from ACTIVE to a terminal state.
type WalletEntry struct {
	EntryID        string            `json:"entryID"`
	CustomerID     string            `json:"customerID"`
	EntryType      EntryType         `json:"entryType"`
	AmountMinor    int64             `json:"amountMinor"`
	ReferenceID    string            `json:"referenceID"`
	IdempotencyKey *string           `json:"idempotencyKey,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
	ExpiresAt      *time.Time        `json:"expiresAt,omitempty"`     // EARN only
	RemainingMinor *int64            `json:"remainingMinor,omitempty"` // EARN only
	Status         *EarnStatus       `json:"status,omitempty"`         // EARN only
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// DisplayStatus annotates an entry for account history screens. It never
// feeds back into balance logic.
func (e WalletEntry) DisplayStatus() string {
	if e.EntryType == EntryEarn && e.Status != nil {
		return string(*e.Status)
	}
	if e.AmountMinor >= 0 {
		return "CREDITED"
	}
	return "DEBITED"
}

package dto

import (
	"fmt"
	"time"

	"github.com/shopkosh/coin_wallet_service/internal/core/domain"
	"github.com/shopkosh/coin_wallet_service/internal/utils/money"
	"github.com/shopspring/decimal"
)

// EarnCoinsRequest is sent by the order-completion hook. Amounts are in
// major units (rupees); the order ID doubles as the idempotency key.
type EarnCoinsRequest struct {
	CustomerID string            `json:"customer_id" binding:"required"`
	OrderID    string            `json:"order_id" binding:"required"`
	Amount     decimal.Decimal   `json:"amount" binding:"required,gt=0"`
	ExpiryDate time.Time         `json:"expiry_date" binding:"required"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// SpendCoinsRequest is sent by checkout for the authenticated customer.
type SpendCoinsRequest struct {
	OrderID        string            `json:"order_id" binding:"required"`
	Amount         decimal.Decimal   `json:"amount" binding:"required,gt=0"`
	IdempotencyKey *string           `json:"idempotency_key,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// ReverseEarnedRequest is sent by the cancellation and refund hooks.
type ReverseEarnedRequest struct {
	OrderID string `json:"order_id" binding:"required"`
	Reason  string `json:"reason,omitempty"`
}

// CreditAdjustmentRequest restores a coin-funded discount undone by a
// return or cancellation.
type CreditAdjustmentRequest struct {
	CustomerID     string            `json:"customer_id" binding:"required"`
	ReferenceID    string            `json:"reference_id" binding:"required"`
	IdempotencyKey *string           `json:"idempotency_key,omitempty"`
	Amount         decimal.Decimal   `json:"amount" binding:"required,gt=0"`
	Reason         string            `json:"reason,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// EarnCoinsResponse mirrors the shape the order hook expects.
type EarnCoinsResponse struct {
	Success          bool            `json:"success"`
	CoinsEarned      decimal.Decimal `json:"coins_earned"`
	NewActualBalance decimal.Decimal `json:"new_actual_balance"`
	ExpiryDate       time.Time       `json:"expiry_date"`
}

// SpendCoinsResponse mirrors the shape checkout expects. DiscountAmount
// equals the redeemed value in major units.
type SpendCoinsResponse struct {
	Success          bool            `json:"success"`
	CoinsRedeemed    decimal.Decimal `json:"coins_redeemed"`
	DiscountAmount   decimal.Decimal `json:"discount_amount"`
	NewActualBalance decimal.Decimal `json:"new_actual_balance"`
}

// ReverseEarnedResponse mirrors the shape the order hooks expect.
type ReverseEarnedResponse struct {
	Success          bool            `json:"success"`
	Reversed         bool            `json:"reversed"`
	Amount           decimal.Decimal `json:"amount"`
	NewActualBalance decimal.Decimal `json:"new_actual_balance"`
	CustomerID       string          `json:"customer_id"`
}

// AdjustmentResponse reports the balance after a credit adjustment.
type AdjustmentResponse struct {
	Success          bool            `json:"success"`
	Applied          bool            `json:"applied"`
	NewActualBalance decimal.Decimal `json:"new_actual_balance"`
}

// WalletTransactionView is one history row on the account screen.
type WalletTransactionView struct {
	EntryID     string          `json:"entry_id"`
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Status      string          `json:"status"`
	ReferenceID string          `json:"reference_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	ExpiresAt   *time.Time      `json:"expires_at,omitempty"`
}

// WalletSnapshotResponse is the account-screen read model. Balance and
// DisplayBalance are the floored-at-zero figure shown to the customer;
// ActualBalance can be negative while a clawback is outstanding.
type WalletSnapshotResponse struct {
	Balance           decimal.Decimal         `json:"balance"`
	DisplayBalance    decimal.Decimal         `json:"display_balance"`
	ActualBalance     decimal.Decimal         `json:"actual_balance"`
	PendingAdjustment decimal.Decimal         `json:"pending_adjustment"`
	AdjustmentMessage string                  `json:"adjustment_message,omitempty"`
	CanRedeem         bool                    `json:"can_redeem"`
	Transactions      []WalletTransactionView `json:"transactions"`
}

// ExpiryRunResponse summarizes one expiry job run.
type ExpiryRunResponse struct {
	Success bool `json:"success"`
	Scanned int  `json:"scanned"`
	Expired int  `json:"expired"`
	Skipped int  `json:"skipped"`
}

// ToWalletSnapshotResponse converts the domain snapshot, translating minor
// units to major at the boundary.
func ToWalletSnapshotResponse(snapshot *domain.WalletSnapshot) WalletSnapshotResponse {
	resp := WalletSnapshotResponse{
		Balance:           money.ToMajor(snapshot.Balance.DisplayMinor),
		DisplayBalance:    money.ToMajor(snapshot.Balance.DisplayMinor),
		ActualBalance:     money.ToMajor(snapshot.Balance.ActualMinor),
		PendingAdjustment: money.ToMajor(snapshot.Balance.PendingAdjustmentMinor),
		CanRedeem:         snapshot.Balance.CanRedeem,
		Transactions:      make([]WalletTransactionView, len(snapshot.Transactions)),
	}
	if snapshot.Balance.PendingAdjustmentMinor > 0 {
		resp.AdjustmentMessage = fmt.Sprintf(
			"%s coins from a reversed or expired reward will be deducted from your future coin credits.",
			money.ToMajor(snapshot.Balance.PendingAdjustmentMinor).String(),
		)
	}
	for i, entry := range snapshot.Transactions {
		resp.Transactions[i] = WalletTransactionView{
			EntryID:     entry.EntryID,
			Type:        string(entry.EntryType),
			Amount:      money.ToMajor(entry.AmountMinor),
			Status:      entry.DisplayStatus(),
			ReferenceID: entry.ReferenceID,
			CreatedAt:   entry.CreatedAt,
			ExpiresAt:   entry.ExpiresAt,
		}
	}
	return resp
}

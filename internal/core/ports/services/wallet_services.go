package services

import (
	"context"
	"time"

	"github.com/shopkosh/coin_wallet_service/internal/core/domain"
)

// WalletSvcFacade is the full surface of the coin wallet ledger. Every
// mutating operation executes as one customer-locked transaction; duplicate
// calls are absorbed as Applied=false results, never errors.
type WalletSvcFacade interface {
	// EarnCoins credits a grant for an order. The order ID is the natural
	// idempotency key: a second call for the same order is a no-op
	// returning the prior balance.
	EarnCoins(ctx context.Context, customerID, orderID string, amountMinor int64, expiresAt time.Time, metadata map[string]string) (*domain.MutationResult, error)

	// SpendCoins redeems coins at checkout. Fails with
	// apperrors.ErrNegativeBalance while the customer carries unresolved
	// debt, or apperrors.ErrInsufficientBalance when the amount exceeds the
	// balance. No partial effects on failure.
	SpendCoins(ctx context.Context, customerID, orderID string, amountMinor int64, idempotencyKey *string, metadata map[string]string) (*domain.MutationResult, error)

	// ReverseEarned claws back the full original grant for a cancelled or
	// refunded order. Safe to call from multiple hooks.
	ReverseEarned(ctx context.Context, orderID, reason string) (*domain.ReversalResult, error)

	// ExpireEarnedCoins scans for stale ACTIVE grants. It mutates nothing.
	ExpireEarnedCoins(ctx context.Context, limit int) ([]domain.ExpiryCandidate, error)

	// ApplyExpiry finalizes one scanned grant, debiting its unspent
	// remainder. A grant that finalized since the scan yields Applied=false.
	ApplyExpiry(ctx context.Context, entryID, customerID string) (*domain.MutationResult, error)

	// CreditAdjustment restores balance deducted as an order discount that a
	// later return or cancellation undid. Always a credit.
	CreditAdjustment(ctx context.Context, customerID, referenceID string, idempotencyKey *string, amountMinor int64, reason string, metadata map[string]string) (*domain.MutationResult, error)

	// GetWalletSnapshot returns balances plus display-ordered history.
	GetWalletSnapshot(ctx context.Context, customerID string) (*domain.WalletSnapshot, error)
}

// ServiceContainer aggregates the service interfaces handed to the HTTP
// layer.
type ServiceContainer struct {
	Wallet WalletSvcFacade
}

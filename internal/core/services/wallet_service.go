package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/shopkosh/coin_wallet_service/internal/apperrors"
	"github.com/shopkosh/coin_wallet_service/internal/core/domain"
	portsrepo "github.com/shopkosh/coin_wallet_service/internal/core/ports/repositories"
	portssvc "github.com/shopkosh/coin_wallet_service/internal/core/ports/services"
	"github.com/shopkosh/coin_wallet_service/internal/middleware"
	"github.com/shopkosh/coin_wallet_service/internal/platform/metrics"
)

const (
	defaultExpiryScanLimit = 100
	defaultHistoryLimit    = 100
)

// walletService implements the coin wallet ledger over a customer-locked
// repository. Every mutation follows the same shape: acquire the customer
// lock, recompute the balance from the entry log, check the precondition,
// append exactly one entry. Nothing outside the transaction ever observes a
// partial effect.
type walletService struct {
	walletRepo portsrepo.WalletRepositoryFacade
}

// NewWalletService creates the wallet ledger service.
func NewWalletService(walletRepo portsrepo.WalletRepositoryFacade) portssvc.WalletSvcFacade {
	return &walletService{walletRepo: walletRepo}
}

var _ portssvc.WalletSvcFacade = (*walletService)(nil)

// EarnCoins credits a grant of amountMinor coins for an order. The order ID
// is the natural idempotency key: if an EARN entry already references it the
// call is absorbed as Applied=false with the current balance.
func (s *walletService) EarnCoins(ctx context.Context, customerID, orderID string, amountMinor int64, expiresAt time.Time, metadata map[string]string) (*domain.MutationResult, error) {
	logger := middleware.GetLoggerFromCtx(ctx)
	if amountMinor <= 0 {
		return nil, fmt.Errorf("%w: earn amount must be a positive number of minor units", apperrors.ErrValidation)
	}
	if customerID == "" || orderID == "" {
		return nil, fmt.Errorf("%w: customer ID and order ID are required", apperrors.ErrValidation)
	}

	result := &domain.MutationResult{}
	err := s.walletRepo.WithCustomerLock(ctx, customerID, func(tx pgx.Tx) error {
		existing, err := s.walletRepo.FindEarnByReferenceTx(ctx, tx, orderID)
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return err
		}
		if existing != nil {
			logger.Info("Earn already recorded for order, skipping",
				slog.String("customer_id", customerID), slog.String("order_id", orderID))
			return s.finishMutation(ctx, tx, customerID, result, false)
		}

		now := time.Now().UTC()
		remaining := amountMinor
		status := domain.EarnActive
		entry := domain.WalletEntry{
			EntryID:        uuid.NewString(),
			CustomerID:     customerID,
			EntryType:      domain.EntryEarn,
			AmountMinor:    amountMinor,
			ReferenceID:    orderID,
			CreatedAt:      now,
			ExpiresAt:      &expiresAt,
			RemainingMinor: &remaining,
			Status:         &status,
			Metadata:       metadata,
		}
		if err := s.walletRepo.InsertEntryTx(ctx, tx, entry); err != nil {
			return err
		}
		return s.finishMutation(ctx, tx, customerID, result, true)
	})
	metrics.RecordOperation("earn", outcomeOf(err, result))
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SpendCoins redeems amountMinor coins against the customer's balance and
// draws the amount down from the oldest ACTIVE grants first. The FIFO walk
// exists to keep each grant's unspent remainder accurate for reversal and
// expiry accounting; the balance itself stays a pure sum over the log.
func (s *walletService) SpendCoins(ctx context.Context, customerID, orderID string, amountMinor int64, idempotencyKey *string, metadata map[string]string) (*domain.MutationResult, error) {
	logger := middleware.GetLoggerFromCtx(ctx)
	if amountMinor <= 0 {
		return nil, fmt.Errorf("%w: spend amount must be a positive number of minor units", apperrors.ErrValidation)
	}
	if customerID == "" {
		return nil, fmt.Errorf("%w: customer ID is required", apperrors.ErrValidation)
	}

	result := &domain.MutationResult{}
	err := s.walletRepo.WithCustomerLock(ctx, customerID, func(tx pgx.Tx) error {
		if prior, err := s.findByIdempotencyKey(ctx, tx, customerID, idempotencyKey); err != nil {
			return err
		} else if prior != nil {
			logger.Info("Spend already recorded for idempotency key, skipping",
				slog.String("customer_id", customerID), slog.String("idempotency_key", *idempotencyKey))
			return s.finishMutation(ctx, tx, customerID, result, false)
		}

		actual, err := s.walletRepo.SumBalanceTx(ctx, tx, customerID)
		if err != nil {
			return err
		}
		// Redemption is frozen while the customer carries unresolved debt,
		// independent of the requested amount.
		if actual < 0 {
			return apperrors.ErrNegativeBalance
		}
		if amountMinor > actual {
			return apperrors.ErrInsufficientBalance
		}

		entry := domain.WalletEntry{
			EntryID:        uuid.NewString(),
			CustomerID:     customerID,
			EntryType:      domain.EntrySpend,
			AmountMinor:    -amountMinor,
			ReferenceID:    orderID,
			IdempotencyKey: idempotencyKey,
			CreatedAt:      time.Now().UTC(),
			Metadata:       metadata,
		}
		if err := s.walletRepo.InsertEntryTx(ctx, tx, entry); err != nil {
			return err
		}
		if err := s.consumeGrantsFIFO(ctx, tx, customerID, amountMinor); err != nil {
			return err
		}
		return s.finishMutation(ctx, tx, customerID, result, true)
	})
	metrics.RecordOperation("spend", outcomeOf(err, result))
	if err != nil {
		return nil, err
	}
	return result, nil
}

// consumeGrantsFIFO walks the customer's ACTIVE grants oldest-first,
// decrementing each remainder by up to the spend amount and marking grants
// CONSUMED as they hit zero, until the spend is fully allocated. A spend
// backed partly by adjustment credits can legitimately exhaust all grants
// with an unallocated remainder.
func (s *walletService) consumeGrantsFIFO(ctx context.Context, tx pgx.Tx, customerID string, amountMinor int64) error {
	grants, err := s.walletRepo.ListActiveEarnsTx(ctx, tx, customerID)
	if err != nil {
		return err
	}
	toAllocate := amountMinor
	for _, grant := range grants {
		if toAllocate <= 0 {
			break
		}
		if grant.RemainingMinor == nil || *grant.RemainingMinor <= 0 {
			continue
		}
		take := *grant.RemainingMinor
		if take > toAllocate {
			take = toAllocate
		}
		newRemaining := *grant.RemainingMinor - take
		status := domain.EarnActive
		if newRemaining == 0 {
			status = domain.EarnConsumed
		}
		if err := s.walletRepo.UpdateEarnGrantTx(ctx, tx, grant.EntryID, newRemaining, status); err != nil {
			return err
		}
		toAllocate -= take
	}
	return nil
}

// ReverseEarned claws back the coins granted for an order that was cancelled
// or refunded. The reversal debits the grant's full original amount even when
// part of it was already spent, which is the mechanism that pushes a balance
// negative and freezes redemption until the debt clears.
func (s *walletService) ReverseEarned(ctx context.Context, orderID, reason string) (*domain.ReversalResult, error) {
	logger := middleware.GetLoggerFromCtx(ctx)
	if orderID == "" {
		return nil, fmt.Errorf("%w: order ID is required", apperrors.ErrValidation)
	}

	// Unlocked lookup first: the order hooks do not know the customer, and
	// the grant is re-read under the lock before any decision is made.
	grant, err := s.walletRepo.FindEarnByReference(ctx, orderID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.Info("No earn grant found for order, reversal is a no-op", slog.String("order_id", orderID))
			metrics.RecordOperation("reverse", "noop")
			return &domain.ReversalResult{Applied: false}, nil
		}
		metrics.RecordOperation("reverse", "error")
		return nil, err
	}

	result := &domain.ReversalResult{CustomerID: grant.CustomerID}
	err = s.walletRepo.WithCustomerLock(ctx, grant.CustomerID, func(tx pgx.Tx) error {
		locked, err := s.walletRepo.FindEarnByIDTx(ctx, tx, grant.EntryID)
		if err != nil {
			return err
		}
		if locked.Status == nil || locked.Status.Terminal() {
			actual, err := s.walletRepo.SumBalanceTx(ctx, tx, grant.CustomerID)
			if err != nil {
				return err
			}
			result.Applied = false
			result.Balance = domain.ProjectBalance(actual)
			return nil
		}

		entry := domain.WalletEntry{
			EntryID:     uuid.NewString(),
			CustomerID:  locked.CustomerID,
			EntryType:   domain.EntryReversal,
			AmountMinor: -locked.AmountMinor,
			ReferenceID: orderID,
			CreatedAt:   time.Now().UTC(),
			Metadata:    map[string]string{"reason": reason},
		}
		if err := s.walletRepo.InsertEntryTx(ctx, tx, entry); err != nil {
			return err
		}
		if err := s.walletRepo.UpdateEarnGrantTx(ctx, tx, locked.EntryID, 0, domain.EarnReversed); err != nil {
			return err
		}

		actual, err := s.walletRepo.SumBalanceTx(ctx, tx, locked.CustomerID)
		if err != nil {
			return err
		}
		result.Applied = true
		result.AmountMinor = locked.AmountMinor
		result.Balance = domain.ProjectBalance(actual)
		return nil
	})
	if err != nil {
		metrics.RecordOperation("reverse", "error")
		return nil, err
	}
	if result.Applied {
		metrics.RecordOperation("reverse", "applied")
	} else {
		metrics.RecordOperation("reverse", "noop")
	}
	return result, nil
}

// ExpireEarnedCoins returns up to limit ACTIVE grants whose expiry date has
// passed, oldest expiry first. The scan performs no mutation; each candidate
// is finalized individually by ApplyExpiry under its customer's lock.
func (s *walletService) ExpireEarnedCoins(ctx context.Context, limit int) ([]domain.ExpiryCandidate, error) {
	if limit <= 0 {
		limit = defaultExpiryScanLimit
	}
	return s.walletRepo.FindExpiryCandidates(ctx, time.Now().UTC(), limit)
}

// ApplyExpiry finalizes one expiry candidate. The grant is re-read under the
// customer lock: if it was consumed, reversed, or already expired since the
// scan the call is a no-op. The EXPIRY entry debits the grant's unspent
// remainder at the moment of the locked re-read, never its original amount,
// so coins that were already spent are not expired a second time.
func (s *walletService) ApplyExpiry(ctx context.Context, entryID, customerID string) (*domain.MutationResult, error) {
	logger := middleware.GetLoggerFromCtx(ctx)
	if entryID == "" || customerID == "" {
		return nil, fmt.Errorf("%w: entry ID and customer ID are required", apperrors.ErrValidation)
	}

	result := &domain.MutationResult{}
	err := s.walletRepo.WithCustomerLock(ctx, customerID, func(tx pgx.Tx) error {
		grant, err := s.walletRepo.FindEarnByIDTx(ctx, tx, entryID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return s.finishMutation(ctx, tx, customerID, result, false)
			}
			return err
		}
		if grant.CustomerID != customerID {
			return fmt.Errorf("%w: grant %s does not belong to customer %s", apperrors.ErrValidation, entryID, customerID)
		}
		now := time.Now().UTC()
		stillExpirable := grant.Status != nil && *grant.Status == domain.EarnActive &&
			grant.ExpiresAt != nil && !grant.ExpiresAt.After(now)
		if !stillExpirable {
			logger.Info("Grant no longer expirable, skipping",
				slog.String("entry_id", entryID), slog.String("customer_id", customerID))
			return s.finishMutation(ctx, tx, customerID, result, false)
		}

		remaining := int64(0)
		if grant.RemainingMinor != nil {
			remaining = *grant.RemainingMinor
		}
		if remaining > 0 {
			entry := domain.WalletEntry{
				EntryID:     uuid.NewString(),
				CustomerID:  customerID,
				EntryType:   domain.EntryExpiry,
				AmountMinor: -remaining,
				ReferenceID: grant.EntryID,
				CreatedAt:   now,
			}
			if err := s.walletRepo.InsertEntryTx(ctx, tx, entry); err != nil {
				return err
			}
		}
		if err := s.walletRepo.UpdateEarnGrantTx(ctx, tx, grant.EntryID, 0, domain.EarnExpired); err != nil {
			return err
		}
		return s.finishMutation(ctx, tx, customerID, result, true)
	})
	if err != nil {
		metrics.RecordOperation("expire", "error")
		return nil, err
	}
	if result.Applied {
		metrics.RecordExpiredGrant()
		metrics.RecordOperation("expire", "applied")
	} else {
		metrics.RecordOperation("expire", "noop")
	}
	return result, nil
}

// CreditAdjustment credits back coins that were deducted as an order
// discount which a later return or cancellation undid. It is always a
// credit, so no balance precondition applies.
func (s *walletService) CreditAdjustment(ctx context.Context, customerID, referenceID string, idempotencyKey *string, amountMinor int64, reason string, metadata map[string]string) (*domain.MutationResult, error) {
	logger := middleware.GetLoggerFromCtx(ctx)
	if amountMinor <= 0 {
		return nil, fmt.Errorf("%w: adjustment amount must be a positive number of minor units", apperrors.ErrValidation)
	}
	if customerID == "" {
		return nil, fmt.Errorf("%w: customer ID is required", apperrors.ErrValidation)
	}

	result := &domain.MutationResult{}
	err := s.walletRepo.WithCustomerLock(ctx, customerID, func(tx pgx.Tx) error {
		if prior, err := s.findByIdempotencyKey(ctx, tx, customerID, idempotencyKey); err != nil {
			return err
		} else if prior != nil {
			logger.Info("Adjustment already recorded for idempotency key, skipping",
				slog.String("customer_id", customerID), slog.String("idempotency_key", *idempotencyKey))
			return s.finishMutation(ctx, tx, customerID, result, false)
		}

		if metadata == nil {
			metadata = map[string]string{}
		}
		if reason != "" {
			metadata["reason"] = reason
		}
		entry := domain.WalletEntry{
			EntryID:        uuid.NewString(),
			CustomerID:     customerID,
			EntryType:      domain.EntryAdjustmentCredit,
			AmountMinor:    amountMinor,
			ReferenceID:    referenceID,
			IdempotencyKey: idempotencyKey,
			CreatedAt:      time.Now().UTC(),
			Metadata:       metadata,
		}
		if err := s.walletRepo.InsertEntryTx(ctx, tx, entry); err != nil {
			return err
		}
		return s.finishMutation(ctx, tx, customerID, result, true)
	})
	metrics.RecordOperation("adjust", outcomeOf(err, result))
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetWalletSnapshot returns the projected balances plus the customer's
// entries most-recent-first. It takes no lock: dirty reads of an
// append-only ledger are acceptable for display.
func (s *walletService) GetWalletSnapshot(ctx context.Context, customerID string) (*domain.WalletSnapshot, error) {
	if customerID == "" {
		return nil, fmt.Errorf("%w: customer ID is required", apperrors.ErrValidation)
	}
	actual, err := s.walletRepo.SumBalance(ctx, customerID)
	if err != nil {
		return nil, err
	}
	entries, err := s.walletRepo.ListEntriesByCustomer(ctx, customerID, defaultHistoryLimit)
	if err != nil {
		return nil, err
	}
	return &domain.WalletSnapshot{
		Balance:      domain.ProjectBalance(actual),
		Transactions: entries,
	}, nil
}

// findByIdempotencyKey looks up a prior entry for the key, treating a nil or
// empty key as "no dedupe requested".
func (s *walletService) findByIdempotencyKey(ctx context.Context, tx pgx.Tx, customerID string, idempotencyKey *string) (*domain.WalletEntry, error) {
	if idempotencyKey == nil || *idempotencyKey == "" {
		return nil, nil
	}
	prior, err := s.walletRepo.FindEntryByIdempotencyKeyTx(ctx, tx, customerID, *idempotencyKey)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return prior, nil
}

// finishMutation recomputes the balance under the lock and fills the result.
func (s *walletService) finishMutation(ctx context.Context, tx pgx.Tx, customerID string, result *domain.MutationResult, applied bool) error {
	actual, err := s.walletRepo.SumBalanceTx(ctx, tx, customerID)
	if err != nil {
		return err
	}
	result.Applied = applied
	result.Balance = domain.ProjectBalance(actual)
	return nil
}

func outcomeOf(err error, result *domain.MutationResult) string {
	switch {
	case errors.Is(err, apperrors.ErrInsufficientBalance), errors.Is(err, apperrors.ErrNegativeBalance):
		return "rejected"
	case err != nil:
		return "error"
	case result.Applied:
		return "applied"
	default:
		return "noop"
	}
}

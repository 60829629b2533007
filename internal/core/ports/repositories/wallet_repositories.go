package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopkosh/coin_wallet_service/internal/core/domain"
)

// WalletReader defines the unlocked read operations over the ledger. Dirty
// reads of a monotonically appended log are acceptable for display purposes.
type WalletReader interface {
	// SumBalance returns the signed sum of all entry amounts for a customer.
	SumBalance(ctx context.Context, customerID string) (int64, error)

	// ListEntriesByCustomer retrieves a customer's entries most-recent-first.
	// limit <= 0 applies the repository default.
	ListEntriesByCustomer(ctx context.Context, customerID string, limit int) ([]domain.WalletEntry, error)

	// FindEarnByReference locates the EARN entry created for an order, or
	// apperrors.ErrNotFound when the order never granted coins.
	FindEarnByReference(ctx context.Context, referenceID string) (*domain.WalletEntry, error)

	// FindExpiryCandidates returns up to limit ACTIVE EARN entries with
	// expires_at <= asOf, ordered oldest expiry first. Read-only.
	FindExpiryCandidates(ctx context.Context, asOf time.Time, limit int) ([]domain.ExpiryCandidate, error)
}

// WalletTxOperations defines the operations that must run inside a
// customer-locked transaction obtained from WithCustomerLock.
type WalletTxOperations interface {
	// SumBalanceTx recomputes the customer's balance under the lock.
	SumBalanceTx(ctx context.Context, tx pgx.Tx, customerID string) (int64, error)

	// InsertEntryTx appends one ledger entry.
	InsertEntryTx(ctx context.Context, tx pgx.Tx, entry domain.WalletEntry) error

	// FindEntryByIdempotencyKeyTx returns the entry previously recorded for
	// this customer and key, or apperrors.ErrNotFound.
	FindEntryByIdempotencyKeyTx(ctx context.Context, tx pgx.Tx, customerID, idempotencyKey string) (*domain.WalletEntry, error)

	// FindEarnByReferenceTx is FindEarnByReference under the lock.
	FindEarnByReferenceTx(ctx context.Context, tx pgx.Tx, referenceID string) (*domain.WalletEntry, error)

	// FindEarnByIDTx re-reads one EARN entry with a row lock.
	FindEarnByIDTx(ctx context.Context, tx pgx.Tx, entryID string) (*domain.WalletEntry, error)

	// ListActiveEarnsTx lists the customer's ACTIVE EARN entries oldest
	// first with row locks, for FIFO consumption.
	ListActiveEarnsTx(ctx context.Context, tx pgx.Tx, customerID string) ([]domain.WalletEntry, error)

	// UpdateEarnGrantTx sets the remaining amount and status of a grant.
	UpdateEarnGrantTx(ctx context.Context, tx pgx.Tx, entryID string, remainingMinor int64, status domain.EarnStatus) error
}

// CustomerLocker serializes mutations per customer. fn runs inside a
// database transaction holding an exclusive lock on the customer's anchor
// row; an error from fn rolls the whole transaction back.
type CustomerLocker interface {
	WithCustomerLock(ctx context.Context, customerID string, fn func(tx pgx.Tx) error) error
}

// WalletRepositoryFacade combines all ledger store interfaces.
type WalletRepositoryFacade interface {
	WalletReader
	WalletTxOperations
	CustomerLocker
}

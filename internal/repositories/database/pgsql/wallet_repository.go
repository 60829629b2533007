package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopkosh/coin_wallet_service/internal/apperrors"
	"github.com/shopkosh/coin_wallet_service/internal/core/domain"
	portsrepo "github.com/shopkosh/coin_wallet_service/internal/core/ports/repositories"
	"github.com/shopkosh/coin_wallet_service/internal/models"
	"github.com/shopkosh/coin_wallet_service/internal/utils/mapping"
)

const (
	// Postgres error codes mapped to application errors.
	pgUniqueViolation  = "23505"
	pgLockNotAvailable = "55P03"

	defaultListLimit = 100
)

const entryColumns = `entry_id, customer_id, entry_type, amount_minor, reference_id, idempotency_key, created_at, expires_at, remaining_minor, status, metadata`

// PgxWalletRepository is the ledger store: one append-mostly table of signed
// entries plus a per-customer anchor row used for locking.
type PgxWalletRepository struct {
	BaseRepository
	lockTimeout time.Duration
}

// NewWalletRepository creates the wallet ledger repository. lockTimeout
// bounds how long a mutation waits behind a concurrent one for the same
// customer before failing with a retryable error.
func NewWalletRepository(pool *pgxpool.Pool, lockTimeout time.Duration) portsrepo.WalletRepositoryFacade {
	return &PgxWalletRepository{
		BaseRepository: BaseRepository{Pool: pool},
		lockTimeout:    lockTimeout,
	}
}

var _ portsrepo.WalletRepositoryFacade = (*PgxWalletRepository)(nil)

// WithCustomerLock runs fn inside a transaction holding an exclusive lock on
// the customer's anchor row. The lock is taken before fn reads anything, so
// the read-check-write sequence of every mutation is atomic per customer.
// Locks for different customers never block each other.
func (r *PgxWalletRepository) WithCustomerLock(ctx context.Context, customerID string, fn func(tx pgx.Tx) error) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	if r.lockTimeout > 0 {
		// SET LOCAL scopes the timeout to this transaction only.
		if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())); err != nil {
			return fmt.Errorf("failed to set lock timeout: %w", err)
		}
	}

	// Ensure the anchor row exists, then lock it. The upsert takes no lock
	// when the row is already present.
	if _, err := tx.Exec(ctx,
		`INSERT INTO wallet_customers (customer_id) VALUES ($1) ON CONFLICT (customer_id) DO NOTHING;`,
		customerID,
	); err != nil {
		return mapPgError("failed to ensure wallet anchor row for customer "+customerID, err)
	}
	var locked string
	if err := tx.QueryRow(ctx,
		`SELECT customer_id FROM wallet_customers WHERE customer_id = $1 FOR UPDATE;`,
		customerID,
	).Scan(&locked); err != nil {
		return mapPgError("failed to lock wallet for customer "+customerID, err)
	}

	if err := fn(tx); err != nil {
		return err
	}

	return r.Commit(ctx, tx)
}

// SumBalance returns the signed sum of all entry amounts for a customer.
func (r *PgxWalletRepository) SumBalance(ctx context.Context, customerID string) (int64, error) {
	return sumBalance(ctx, r.Pool, customerID)
}

// SumBalanceTx recomputes the balance inside a customer-locked transaction.
func (r *PgxWalletRepository) SumBalanceTx(ctx context.Context, tx pgx.Tx, customerID string) (int64, error) {
	return sumBalance(ctx, tx, customerID)
}

// querier covers both pgxpool.Pool and pgx.Tx.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func sumBalance(ctx context.Context, q querier, customerID string) (int64, error) {
	query := `
		SELECT COALESCE(SUM(amount_minor), 0)
		FROM wallet_ledger_entries
		WHERE customer_id = $1;
	`
	var sum int64
	if err := q.QueryRow(ctx, query, customerID).Scan(&sum); err != nil {
		return 0, fmt.Errorf("failed to sum balance for customer %s: %w", customerID, err)
	}
	return sum, nil
}

// InsertEntryTx appends one ledger entry inside a customer-locked
// transaction. A duplicate idempotency key surfaces as apperrors.ErrDuplicate
// via the partial unique index, as a backstop behind the service-level check.
func (r *PgxWalletRepository) InsertEntryTx(ctx context.Context, tx pgx.Tx, entry domain.WalletEntry) error {
	m := mapping.ToModelWalletEntry(entry)
	query := `
		INSERT INTO wallet_ledger_entries (` + entryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
	`
	_, err := tx.Exec(ctx, query,
		m.EntryID,
		m.CustomerID,
		m.EntryType,
		m.AmountMinor,
		m.ReferenceID,
		m.IdempotencyKey,
		m.CreatedAt,
		m.ExpiresAt,
		m.RemainingMinor,
		m.Status,
		m.Metadata,
	)
	if err != nil {
		return mapPgError("failed to insert wallet entry "+m.EntryID, err)
	}
	return nil
}

// FindEntryByIdempotencyKeyTx returns the entry previously recorded for this
// customer and key.
func (r *PgxWalletRepository) FindEntryByIdempotencyKeyTx(ctx context.Context, tx pgx.Tx, customerID, idempotencyKey string) (*domain.WalletEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM wallet_ledger_entries
		WHERE customer_id = $1 AND idempotency_key = $2;
	`
	return scanOneEntry(tx.QueryRow(ctx, query, customerID, idempotencyKey),
		"failed to find entry by idempotency key for customer "+customerID)
}

// FindEarnByReference locates the EARN entry created for an order.
func (r *PgxWalletRepository) FindEarnByReference(ctx context.Context, referenceID string) (*domain.WalletEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM wallet_ledger_entries
		WHERE entry_type = 'EARN' AND reference_id = $1;
	`
	return scanOneEntry(r.Pool.QueryRow(ctx, query, referenceID),
		"failed to find earn entry for reference "+referenceID)
}

// FindEarnByReferenceTx is FindEarnByReference inside a customer-locked
// transaction.
func (r *PgxWalletRepository) FindEarnByReferenceTx(ctx context.Context, tx pgx.Tx, referenceID string) (*domain.WalletEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM wallet_ledger_entries
		WHERE entry_type = 'EARN' AND reference_id = $1
		FOR UPDATE;
	`
	return scanOneEntry(tx.QueryRow(ctx, query, referenceID),
		"failed to find earn entry for reference "+referenceID)
}

// FindEarnByIDTx re-reads one EARN entry with a row lock. The expiry and
// reversal paths use this re-read to decide whether the grant is still
// ACTIVE after the lock was acquired.
func (r *PgxWalletRepository) FindEarnByIDTx(ctx context.Context, tx pgx.Tx, entryID string) (*domain.WalletEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM wallet_ledger_entries
		WHERE entry_id = $1 AND entry_type = 'EARN'
		FOR UPDATE;
	`
	return scanOneEntry(tx.QueryRow(ctx, query, entryID),
		"failed to find earn entry "+entryID)
}

// ListActiveEarnsTx lists the customer's ACTIVE grants oldest-first with row
// locks, for FIFO consumption.
func (r *PgxWalletRepository) ListActiveEarnsTx(ctx context.Context, tx pgx.Tx, customerID string) ([]domain.WalletEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM wallet_ledger_entries
		WHERE customer_id = $1 AND entry_type = 'EARN' AND status = 'ACTIVE'
		ORDER BY created_at, entry_id
		FOR UPDATE;
	`
	rows, err := tx.Query(ctx, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query active earn entries for customer %s: %w", customerID, err)
	}
	defer rows.Close()
	return scanEntries(rows, "failed to scan active earn entries for customer "+customerID)
}

// UpdateEarnGrantTx sets the remaining amount and status of a grant.
func (r *PgxWalletRepository) UpdateEarnGrantTx(ctx context.Context, tx pgx.Tx, entryID string, remainingMinor int64, status domain.EarnStatus) error {
	query := `
		UPDATE wallet_ledger_entries
		SET remaining_minor = $2, status = $3
		WHERE entry_id = $1 AND entry_type = 'EARN';
	`
	cmdTag, err := tx.Exec(ctx, query, entryID, remainingMinor, string(status))
	if err != nil {
		return fmt.Errorf("failed to update earn grant %s: %w", entryID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// ListEntriesByCustomer retrieves a customer's entries most-recent-first.
func (r *PgxWalletRepository) ListEntriesByCustomer(ctx context.Context, customerID string, limit int) ([]domain.WalletEntry, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	query := `
		SELECT ` + entryColumns + `
		FROM wallet_ledger_entries
		WHERE customer_id = $1
		ORDER BY created_at DESC, entry_id DESC
		LIMIT $2;
	`
	rows, err := r.Pool.Query(ctx, query, customerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries for customer %s: %w", customerID, err)
	}
	defer rows.Close()
	return scanEntries(rows, "failed to scan entries for customer "+customerID)
}

// FindExpiryCandidates returns up to limit ACTIVE grants with
// expires_at <= asOf, oldest expiry first. Read-only; repeated scans before
// expiry is applied are safe.
func (r *PgxWalletRepository) FindExpiryCandidates(ctx context.Context, asOf time.Time, limit int) ([]domain.ExpiryCandidate, error) {
	query := `
		SELECT entry_id, customer_id, amount_minor, remaining_minor, expires_at
		FROM wallet_ledger_entries
		WHERE entry_type = 'EARN' AND status = 'ACTIVE' AND expires_at <= $1
		ORDER BY expires_at, entry_id
		LIMIT $2;
	`
	rows, err := r.Pool.Query(ctx, query, asOf, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query expiry candidates: %w", err)
	}
	defer rows.Close()

	candidates := []domain.ExpiryCandidate{}
	for rows.Next() {
		var c domain.ExpiryCandidate
		if err := rows.Scan(&c.EntryID, &c.CustomerID, &c.AmountMinor, &c.RemainingMinor, &c.ExpiresAt); err != nil {
			return nil, fmt.Errorf("failed to scan expiry candidate row: %w", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expiry candidate rows: %w", err)
	}
	return candidates, nil
}

// scanOneEntry scans a single entry row, mapping pgx.ErrNoRows to
// apperrors.ErrNotFound.
func scanOneEntry(row pgx.Row, errMsg string) (*domain.WalletEntry, error) {
	var m models.WalletEntry
	err := row.Scan(
		&m.EntryID,
		&m.CustomerID,
		&m.EntryType,
		&m.AmountMinor,
		&m.ReferenceID,
		&m.IdempotencyKey,
		&m.CreatedAt,
		&m.ExpiresAt,
		&m.RemainingMinor,
		&m.Status,
		&m.Metadata,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", errMsg, err)
	}
	entry := mapping.ToDomainWalletEntry(m)
	return &entry, nil
}

func scanEntries(rows pgx.Rows, errMsg string) ([]domain.WalletEntry, error) {
	modelEntries := []models.WalletEntry{}
	for rows.Next() {
		var m models.WalletEntry
		if err := rows.Scan(
			&m.EntryID,
			&m.CustomerID,
			&m.EntryType,
			&m.AmountMinor,
			&m.ReferenceID,
			&m.IdempotencyKey,
			&m.CreatedAt,
			&m.ExpiresAt,
			&m.RemainingMinor,
			&m.Status,
			&m.Metadata,
		); err != nil {
			return nil, fmt.Errorf("%s: %w", errMsg, err)
		}
		modelEntries = append(modelEntries, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", errMsg, err)
	}
	return mapping.ToDomainWalletEntrySlice(modelEntries), nil
}

// mapPgError translates Postgres error codes into application errors so the
// service layer never inspects SQLSTATEs.
func mapPgError(msg string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%s: %w", msg, apperrors.ErrDuplicate)
		case pgLockNotAvailable:
			return fmt.Errorf("%s: %w", msg, apperrors.ErrLockTimeout)
		}
	}
	return fmt.Errorf("%s: %w", msg, err)
}

package models

import "time"

// WalletEntry is the database representation of one wallet ledger row.
// Metadata is stored as JSONB; pgx handles the map encoding.
type WalletEntry struct {
	EntryID        string
	CustomerID     string
	EntryType      string
	AmountMinor    int64
	ReferenceID    string
	IdempotencyKey *string
	CreatedAt      time.Time
	ExpiresAt      *time.Time
	RemainingMinor *int64
	Status         *string
	Metadata       map[string]string
}

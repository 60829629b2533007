package mapping

import (
	"github.com/shopkosh/coin_wallet_service/internal/core/domain"
	"github.com/shopkosh/coin_wallet_service/internal/models"
)

// ToDomainWalletEntry converts a database wallet entry to its domain form.
func ToDomainWalletEntry(m models.WalletEntry) domain.WalletEntry {
	e := domain.WalletEntry{
		EntryID:        m.EntryID,
		CustomerID:     m.CustomerID,
		EntryType:      domain.EntryType(m.EntryType),
		AmountMinor:    m.AmountMinor,
		ReferenceID:    m.ReferenceID,
		IdempotencyKey: m.IdempotencyKey,
		CreatedAt:      m.CreatedAt,
		ExpiresAt:      m.ExpiresAt,
		RemainingMinor: m.RemainingMinor,
		Metadata:       m.Metadata,
	}
	if m.Status != nil {
		status := domain.EarnStatus(*m.Status)
		e.Status = &status
	}
	return e
}

// ToDomainWalletEntrySlice converts a slice of database entries.
func ToDomainWalletEntrySlice(ms []models.WalletEntry) []domain.WalletEntry {
	entries := make([]domain.WalletEntry, len(ms))
	for i, m := range ms {
		entries[i] = ToDomainWalletEntry(m)
	}
	return entries
}

// ToModelWalletEntry converts a domain wallet entry to its database form.
func ToModelWalletEntry(e domain.WalletEntry) models.WalletEntry {
	m := models.WalletEntry{
		EntryID:        e.EntryID,
		CustomerID:     e.CustomerID,
		EntryType:      string(e.EntryType),
		AmountMinor:    e.AmountMinor,
		ReferenceID:    e.ReferenceID,
		IdempotencyKey: e.IdempotencyKey,
		CreatedAt:      e.CreatedAt,
		ExpiresAt:      e.ExpiresAt,
		RemainingMinor: e.RemainingMinor,
		Metadata:       e.Metadata,
	}
	if e.Status != nil {
		status := string(*e.Status)
		m.Status = &status
	}
	return m
}

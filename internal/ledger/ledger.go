// Package ledger keeps the append-only points log for one identity.
package ledger

import (
	"fmt"
	"strings"
	"sync"

	"github.com/julianstephens/grove/internal/clock"
	grerrors "github.com/julianstephens/grove/internal/errors"
	"github.com/julianstephens/grove/internal/models"
)

// Ledger is an append-only list of signed point deltas.
// The balance check and the append of a debit happen under one lock,
// so concurrent debits can never both pass against a stale balance.
type Ledger struct {
	mu      sync.Mutex
	clock   clock.Clock
	entries []models.LedgerEntry
}

// New returns a ledger seeded with previously persisted entries
func New(c clock.Clock, entries []models.LedgerEntry) *Ledger {
	seeded := make([]models.LedgerEntry, len(entries))
	copy(seeded, entries)
	return &Ledger{
		clock:   c,
		entries: seeded,
	}
}

// Credit appends a positive entry
func (l *Ledger) Credit(amount int, source string) (models.LedgerEntry, error) {
	if amount <= 0 {
		return models.LedgerEntry{}, fmt.Errorf("credit %d: %w", amount, grerrors.ErrInvalidAmount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.appendLocked(amount, source), nil
}

// Debit appends a negative entry if the balance covers amount.
// Otherwise it fails with ErrInsufficientBalance and appends nothing.
func (l *Ledger) Debit(amount int, source string) (models.LedgerEntry, error) {
	if amount <= 0 {
		return models.LedgerEntry{}, fmt.Errorf("debit %d: %w", amount, grerrors.ErrInvalidAmount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if balance := l.balanceLocked(); balance < amount {
		return models.LedgerEntry{}, fmt.Errorf("debit %d with balance %d: %w", amount, balance, grerrors.ErrInsufficientBalance)
	}
	return l.appendLocked(-amount, source), nil
}

// CanAfford reports whether the current balance covers amount
func (l *Ledger) CanAfford(amount int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balanceLocked() >= amount
}

// Balance sums every entry
func (l *Ledger) Balance() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balanceLocked()
}

// Entries returns a copy of the log, oldest first
func (l *Ledger) Entries() []models.LedgerEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.LedgerEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// TotalsBySource groups the net amount per source kind (the part of the tag before ':')
func (l *Ledger) TotalsBySource() map[string]int {
	l.mu.Lock()
	defer l.mu.Unlock()

	totals := make(map[string]int)
	for _, e := range l.entries {
		kind, _, _ := strings.Cut(e.Source, ":")
		totals[kind] += e.Amount
	}
	return totals
}

func (l *Ledger) appendLocked(amount int, source string) models.LedgerEntry {
	entry := models.LedgerEntry{
		Amount:    amount,
		Source:    source,
		Timestamp: l.clock.Now(),
	}
	l.entries = append(l.entries, entry)
	return entry
}

func (l *Ledger) balanceLocked() int {
	total := 0
	for _, e := range l.entries {
		total += e.Amount
	}
	return total
}

// Source builds a "<kind>:<ref>" tag
func Source(kind, ref string) string {
	if ref == "" {
		return kind
	}
	return kind + ":" + ref
}

package models

import "time"

// LedgerEntry is a single signed change to an identity's points balance
type LedgerEntry struct {
	Amount    int       `json:"amount"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

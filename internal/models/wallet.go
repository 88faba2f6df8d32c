package models

import (
	"time"
)

// LedgerDirection is the side of a wallet ledger entry.
type LedgerDirection string

const (
	DirectionCredit LedgerDirection = "credit"
	DirectionDebit  LedgerDirection = "debit"
)

// Wallet is the per-account stored-value balance row. Created lazily at
// zero on first access and only ever mutated through WalletService debit
// and credit under the account row lock.
type Wallet struct {
	AccountID int64    `json:"account_id" db:"account_id"`
	Balance   Centavos `json:"balance" db:"balance"`
	Version   int      `json:"version" db:"version"` // for optimistic locking
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// LedgerEntry is one immutable credit or debit against a wallet.
// Invariant: wallet.balance == sum(credits) - sum(debits) over the
// account's entries.
type LedgerEntry struct {
	ID          int64           `json:"id" db:"id"`
	ReferenceID string          `json:"reference_id" db:"reference_id"`
	AccountID   int64           `json:"account_id" db:"account_id"`
	Amount      Centavos        `json:"amount" db:"amount"` // always positive
	Direction   LedgerDirection `json:"direction" db:"direction"`
	Description string          `json:"description" db:"description"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

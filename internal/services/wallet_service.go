package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lunarveil/backend/internal/audit"
	"github.com/lunarveil/backend/internal/models"
)

// WalletService owns the per-account balance and the append-only
// wallet_transactions ledger. Every mutation runs under the account's
// row lock inside the caller's transaction, so concurrent orders
// against one wallet are fully serialized while different wallets
// proceed in parallel.
type WalletService struct {
	db    *sql.DB
	audit *audit.Logger
}

func NewWalletService(db *sql.DB) *WalletService {
	return &WalletService{
		db:    db,
		audit: audit.NewLogger(),
	}
}

// GetBalance returns the current balance, creating the wallet row at
// zero on first access.
func (s *WalletService) GetBalance(ctx context.Context, accountID int64) (models.Centavos, error) {
	if err := s.ensureWallet(ctx, accountID); err != nil {
		return 0, err
	}

	var balance int64
	err := s.db.QueryRowContext(ctx,
		`SELECT balance FROM wallets WHERE account_id = $1`, accountID).Scan(&balance)
	if err != nil {
		return 0, storageErr("get balance", err)
	}
	return models.Centavos(balance), nil
}

// Deposit credits the wallet and records a ledger entry, atomically.
func (s *WalletService) Deposit(ctx context.Context, accountID int64, amount models.Centavos) (models.Centavos, error) {
	if amount <= 0 {
		return 0, &ValidationError{Code: CodeInvalidAmount, Message: "amount must be greater than zero"}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, storageErr("begin deposit", err)
	}
	defer tx.Rollback()

	newBalance, err := s.CreditTx(tx, accountID, amount, "Funds added")
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, storageErr("commit deposit", err)
	}
	return newBalance, nil
}

// Withdraw debits the wallet, failing without side effects when the
// balance does not cover the amount.
func (s *WalletService) Withdraw(ctx context.Context, accountID int64, amount models.Centavos) (models.Centavos, error) {
	if amount <= 0 {
		return 0, &ValidationError{Code: CodeInvalidAmount, Message: "amount must be greater than zero"}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, storageErr("begin withdrawal", err)
	}
	defer tx.Rollback()

	newBalance, err := s.DebitTx(tx, accountID, amount, "Funds withdrawn")
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, storageErr("commit withdrawal", err)
	}
	return newBalance, nil
}

// DebitTx debits amount from the account inside the caller's
// transaction. The wallet row stays locked until the caller commits or
// rolls back, so the balance read here cannot go stale. Returns
// InsufficientFundsError, with the balance untouched, when amount
// exceeds the balance.
func (s *WalletService) DebitTx(tx *sql.Tx, accountID int64, amount models.Centavos, description string) (models.Centavos, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("debit amount must be positive, got %s", amount)
	}

	wallet, err := s.lockWallet(tx, accountID)
	if err != nil {
		return 0, err
	}

	if amount > wallet.Balance {
		return 0, &InsufficientFundsError{Required: amount, Available: wallet.Balance}
	}

	newBalance := wallet.Balance - amount
	if err := s.updateWalletBalance(tx, accountID, newBalance, wallet.Version); err != nil {
		return 0, err
	}

	refID := uuid.NewString()
	if err := s.appendLedgerEntry(tx, refID, accountID, amount, models.DirectionDebit, description); err != nil {
		return 0, err
	}

	s.audit.LogDebit(refID, accountID, amount)
	return newBalance, nil
}

// CreditTx credits amount to the account inside the caller's
// transaction. Always succeeds for positive amounts.
func (s *WalletService) CreditTx(tx *sql.Tx, accountID int64, amount models.Centavos, description string) (models.Centavos, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("credit amount must be positive, got %s", amount)
	}

	wallet, err := s.lockWallet(tx, accountID)
	if err != nil {
		return 0, err
	}

	newBalance := wallet.Balance + amount
	if err := s.updateWalletBalance(tx, accountID, newBalance, wallet.Version); err != nil {
		return 0, err
	}

	refID := uuid.NewString()
	if err := s.appendLedgerEntry(tx, refID, accountID, amount, models.DirectionCredit, description); err != nil {
		return 0, err
	}

	s.audit.LogCredit(refID, accountID, amount)
	return newBalance, nil
}

// GetLedgerHistory returns the account's ledger entries, newest first.
func (s *WalletService) GetLedgerHistory(ctx context.Context, accountID int64, limit int) ([]models.LedgerEntry, error) {
	if limit <= 0 {
		limit = 15
	}
	if limit > 100 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, reference_id, account_id, amount, direction, description, created_at
		FROM wallet_transactions
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, accountID, limit)
	if err != nil {
		return nil, storageErr("fetch ledger history", err)
	}
	defer rows.Close()

	entries := []models.LedgerEntry{}
	for rows.Next() {
		var e models.LedgerEntry
		var amount int64
		var direction string
		if err := rows.Scan(&e.ID, &e.ReferenceID, &e.AccountID, &amount, &direction, &e.Description, &e.CreatedAt); err != nil {
			return nil, storageErr("scan ledger entry", err)
		}
		e.Amount = models.Centavos(amount)
		e.Direction = models.LedgerDirection(direction)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate ledger history", err)
	}

	return entries, nil
}

// lockWallet takes the exclusive row lock on the account's wallet,
// creating the row at zero first if it does not exist. The lock is the
// serialization point for everything that touches the balance.
func (s *WalletService) lockWallet(tx *sql.Tx, accountID int64) (*models.Wallet, error) {
	_, err := tx.Exec(`
		INSERT INTO wallets (account_id, balance, version, updated_at)
		VALUES ($1, 0, 1, $2)
		ON CONFLICT (account_id) DO NOTHING`, accountID, time.Now())
	if err != nil {
		return nil, storageErr("ensure wallet", err)
	}

	var wallet models.Wallet
	var balance int64
	err = tx.QueryRow(`
		SELECT account_id, balance, version, updated_at
		FROM wallets
		WHERE account_id = $1
		FOR UPDATE`, accountID).Scan(&wallet.AccountID, &balance, &wallet.Version, &wallet.UpdatedAt)
	if err != nil {
		return nil, storageErr("lock wallet", err)
	}
	wallet.Balance = models.Centavos(balance)

	return &wallet, nil
}

func (s *WalletService) ensureWallet(ctx context.Context, accountID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO wallets (account_id, balance, version, updated_at)
		VALUES ($1, 0, 1, $2)
		ON CONFLICT (account_id) DO NOTHING`, accountID, time.Now())
	if err != nil {
		return storageErr("ensure wallet", err)
	}
	return nil
}

func (s *WalletService) updateWalletBalance(tx *sql.Tx, accountID int64, newBalance models.Centavos, version int) error {
	result, err := tx.Exec(`
		UPDATE wallets
		SET balance = $1, version = version + 1, updated_at = $2
		WHERE account_id = $3 AND version = $4`,
		int64(newBalance), time.Now(), accountID, version)
	if err != nil {
		return storageErr("update wallet balance", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return storageErr("update wallet balance", err)
	}
	if rowsAffected == 0 {
		return storageErr("update wallet balance", fmt.Errorf("optimistic lock failed for account %d", accountID))
	}

	return nil
}

func (s *WalletService) appendLedgerEntry(tx *sql.Tx, referenceID string, accountID int64, amount models.Centavos, direction models.LedgerDirection, description string) error {
	_, err := tx.Exec(`
		INSERT INTO wallet_transactions (reference_id, account_id, amount, direction, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		referenceID, accountID, int64(amount), string(direction), description, time.Now())
	if err != nil {
		return storageErr("append ledger entry", err)
	}
	return nil
}

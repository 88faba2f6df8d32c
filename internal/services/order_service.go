package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lunarveil/backend/internal/audit"
	"github.com/lunarveil/backend/internal/models"
)

// OrderService is the single entry point for every balance-affecting
// order operation. PlaceOrder and CancelOrder each run as one atomic
// transaction: wallet mutation, order rows and ledger entry commit
// together or not at all.
type OrderService struct {
	db        *sql.DB
	wallet    *WalletService
	validator *PriceValidator
	audit     *audit.Logger
}

func NewOrderService(db *sql.DB, wallet *WalletService, validator *PriceValidator) *OrderService {
	return &OrderService{
		db:        db,
		wallet:    wallet,
		validator: validator,
		audit:     audit.NewLogger(),
	}
}

// PlaceOrderResult is what a successful checkout returns to the caller.
type PlaceOrderResult struct {
	OrderID     int64           `json:"order_id"`
	NewBalance  models.Centavos `json:"new_balance"`
	Subtotal    models.Centavos `json:"subtotal"`
	TaxAmount   models.Centavos `json:"tax_amount"`
	DeliveryFee models.Centavos `json:"delivery_fee"`
	TotalAmount models.Centavos `json:"total_amount"`
}

// PlaceOrder prices the cart from the catalog, debits the wallet and
// creates the order with its line items, all-or-nothing. A failed
// attempt leaves no order row, no line items and no ledger entry.
func (s *OrderService) PlaceOrder(ctx context.Context, accountID int64, cart []models.CartItem, orderType models.OrderType, deliveryAddress, specialNotes string) (*PlaceOrderResult, error) {
	// Validation happens before any lock or transaction is opened.
	priced, err := s.validator.Validate(ctx, cart, orderType, deliveryAddress)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storageErr("begin order", err)
	}
	defer tx.Rollback()

	// Taking the wallet lock here serializes competing orders for this
	// account; the early balance check avoids creating rows we know
	// will roll back.
	wallet, err := s.wallet.lockWallet(tx, accountID)
	if err != nil {
		return nil, err
	}
	if priced.TotalAmount > wallet.Balance {
		s.audit.LogError("", accountID, &InsufficientFundsError{Required: priced.TotalAmount, Available: wallet.Balance})
		return nil, &InsufficientFundsError{Required: priced.TotalAmount, Available: wallet.Balance}
	}

	orderID, err := s.insertOrder(tx, accountID, priced, orderType, deliveryAddress, specialNotes)
	if err != nil {
		return nil, err
	}

	if err := s.insertLineItems(tx, orderID, priced.Items); err != nil {
		return nil, err
	}

	description := fmt.Sprintf("Order Payment #%d (₱%s)", orderID, priced.TotalAmount)
	newBalance, err := s.wallet.DebitTx(tx, accountID, priced.TotalAmount, description)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, storageErr("commit order", err)
	}

	s.audit.LogOrderPayment(orderID, accountID, priced.TotalAmount)
	return &PlaceOrderResult{
		OrderID:     orderID,
		NewBalance:  newBalance,
		Subtotal:    priced.Subtotal,
		TaxAmount:   priced.TaxAmount,
		DeliveryFee: priced.DeliveryFee,
		TotalAmount: priced.TotalAmount,
	}, nil
}

// CancelOrder cancels a Pending or Making order and refunds the full
// amount to the wallet, atomically. The refund ledger entry references
// the cancelled order.
func (s *OrderService) CancelOrder(ctx context.Context, orderID, accountID int64) (models.Centavos, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, storageErr("begin cancellation", err)
	}
	defer tx.Rollback()

	var status string
	var totalAmount int64
	err = tx.QueryRow(`
		SELECT status, total_amount
		FROM orders
		WHERE id = $1 AND account_id = $2
		FOR UPDATE`, orderID, accountID).Scan(&status, &totalAmount)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrOrderNotFound
	}
	if err != nil {
		return 0, storageErr("fetch order for cancellation", err)
	}

	current := models.OrderStatus(status)
	if !current.Cancellable() {
		return 0, fmt.Errorf("%w: cannot cancel order in status %s", ErrInvalidStateTransition, current)
	}

	// Conditional update so a racing status change loses cleanly.
	result, err := tx.Exec(`
		UPDATE orders
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4`,
		string(models.StatusCancelled), time.Now(), orderID, status)
	if err != nil {
		return 0, storageErr("cancel order", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return 0, fmt.Errorf("%w: order status changed concurrently", ErrInvalidStateTransition)
	}

	description := fmt.Sprintf("Refund for cancelled Order #%d (₱%s)", orderID, models.Centavos(totalAmount))
	newBalance, err := s.wallet.CreditTx(tx, accountID, models.Centavos(totalAmount), description)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, storageErr("commit cancellation", err)
	}

	s.audit.LogStatusChange(orderID, current, models.StatusCancelled)
	s.audit.LogOrderRefund(orderID, accountID, models.Centavos(totalAmount))
	return newBalance, nil
}

// AdvanceOrderStatus moves an order along the state machine via a
// single guarded update, so an operator transition cannot race a
// concurrent cancellation.
func (s *OrderService) AdvanceOrderStatus(ctx context.Context, orderID int64, from, to models.OrderStatus) error {
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, from, to)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4`,
		string(to), time.Now(), orderID, string(from))
	if err != nil {
		return storageErr("update order status", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return storageErr("update order status", err)
	}
	if affected == 0 {
		var current string
		err := s.db.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = $1`, orderID).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrOrderNotFound
		}
		if err != nil {
			return storageErr("check order status", err)
		}
		return fmt.Errorf("%w: order is %s, expected %s", ErrInvalidStateTransition, current, from)
	}

	s.audit.LogStatusChange(orderID, from, to)
	return nil
}

// GetOrder returns one order with its line items, scoped to the owning
// account.
func (s *OrderService) GetOrder(ctx context.Context, orderID, accountID int64) (*models.Order, error) {
	order, err := s.scanOrder(s.db.QueryRowContext(ctx, `
		SELECT id, account_id, subtotal, tax_amount, delivery_fee, total_amount,
		       order_type, COALESCE(delivery_address, ''), COALESCE(special_notes, ''),
		       status, created_at, updated_at
		FROM orders
		WHERE id = $1 AND account_id = $2`, orderID, accountID))
	if err != nil {
		return nil, err
	}

	items, err := s.fetchLineItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	order.Items = items

	return order, nil
}

// ListOrders returns the account's order history, newest first.
func (s *OrderService) ListOrders(ctx context.Context, accountID int64, limit int) ([]models.Order, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, subtotal, tax_amount, delivery_fee, total_amount,
		       order_type, COALESCE(delivery_address, ''), COALESCE(special_notes, ''),
		       status, created_at, updated_at
		FROM orders
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, accountID, limit)
	if err != nil {
		return nil, storageErr("fetch orders", err)
	}
	defer rows.Close()

	return s.collectOrders(rows)
}

// ListAllOrders returns recent orders across all accounts for the
// operator board, each with a one-line summary of its items.
func (s *OrderService) ListAllOrders(ctx context.Context, limit int) ([]models.Order, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT o.id, o.account_id, o.subtotal, o.tax_amount, o.delivery_fee, o.total_amount,
		       o.order_type, COALESCE(o.delivery_address, ''), COALESCE(o.special_notes, ''),
		       o.status, o.created_at, o.updated_at,
		       COALESCE((
		           SELECT string_agg(COALESCE(p.name, '?') || ' x' || oi.quantity, ', ' ORDER BY oi.product_id)
		           FROM order_items oi
		           LEFT JOIN products p ON p.id = oi.product_id
		           WHERE oi.order_id = o.id), '')
		FROM orders o
		ORDER BY o.created_at DESC, o.id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, storageErr("fetch all orders", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		var o models.Order
		var subtotal, tax, fee, total int64
		var orderType, status string
		if err := rows.Scan(&o.ID, &o.AccountID, &subtotal, &tax, &fee, &total,
			&orderType, &o.DeliveryAddress, &o.SpecialNotes, &status,
			&o.CreatedAt, &o.UpdatedAt, &o.ItemsSummary); err != nil {
			return nil, storageErr("scan order summary", err)
		}
		o.Subtotal = models.Centavos(subtotal)
		o.TaxAmount = models.Centavos(tax)
		o.DeliveryFee = models.Centavos(fee)
		o.TotalAmount = models.Centavos(total)
		o.OrderType = models.OrderType(orderType)
		o.Status = models.OrderStatus(status)
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate orders", err)
	}
	return orders, nil
}

// GetOrderDetails returns any account's order with its line items. For
// the operator surface only; customer reads go through GetOrder.
func (s *OrderService) GetOrderDetails(ctx context.Context, orderID int64) (*models.Order, error) {
	order, err := s.scanOrder(s.db.QueryRowContext(ctx, `
		SELECT id, account_id, subtotal, tax_amount, delivery_fee, total_amount,
		       order_type, COALESCE(delivery_address, ''), COALESCE(special_notes, ''),
		       status, created_at, updated_at
		FROM orders
		WHERE id = $1`, orderID))
	if err != nil {
		return nil, err
	}

	items, err := s.fetchLineItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	order.Items = items

	return order, nil
}

func (s *OrderService) insertOrder(tx *sql.Tx, accountID int64, priced *PricedOrder, orderType models.OrderType, deliveryAddress, specialNotes string) (int64, error) {
	var orderID int64
	err := tx.QueryRow(`
		INSERT INTO orders (account_id, subtotal, tax_amount, delivery_fee, total_amount,
		                    order_type, delivery_address, special_notes, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		RETURNING id`,
		accountID, int64(priced.Subtotal), int64(priced.TaxAmount), int64(priced.DeliveryFee),
		int64(priced.TotalAmount), string(orderType), deliveryAddress, specialNotes,
		string(models.StatusPending), time.Now()).Scan(&orderID)
	if err != nil {
		return 0, storageErr("insert order", err)
	}
	return orderID, nil
}

func (s *OrderService) insertLineItems(tx *sql.Tx, orderID int64, items []models.LineItem) error {
	for _, item := range items {
		_, err := tx.Exec(`
			INSERT INTO order_items (order_id, product_id, quantity, price_at_purchase)
			VALUES ($1, $2, $3, $4)`,
			orderID, item.ProductID, item.Quantity, int64(item.PriceAtPurchase))
		if err != nil {
			return storageErr("insert line item", err)
		}
	}
	return nil
}

func (s *OrderService) fetchLineItems(ctx context.Context, orderID int64) ([]models.LineItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT oi.order_id, oi.product_id, COALESCE(p.name, ''), oi.quantity, oi.price_at_purchase
		FROM order_items oi
		LEFT JOIN products p ON oi.product_id = p.id
		WHERE oi.order_id = $1`, orderID)
	if err != nil {
		return nil, storageErr("fetch line items", err)
	}
	defer rows.Close()

	items := []models.LineItem{}
	for rows.Next() {
		var item models.LineItem
		var price int64
		if err := rows.Scan(&item.OrderID, &item.ProductID, &item.ProductName, &item.Quantity, &price); err != nil {
			return nil, storageErr("scan line item", err)
		}
		item.PriceAtPurchase = models.Centavos(price)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate line items", err)
	}

	return items, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *OrderService) scanOrder(row rowScanner) (*models.Order, error) {
	var o models.Order
	var subtotal, tax, fee, total int64
	var orderType, status string
	err := row.Scan(&o.ID, &o.AccountID, &subtotal, &tax, &fee, &total,
		&orderType, &o.DeliveryAddress, &o.SpecialNotes, &status, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, storageErr("scan order", err)
	}

	o.Subtotal = models.Centavos(subtotal)
	o.TaxAmount = models.Centavos(tax)
	o.DeliveryFee = models.Centavos(fee)
	o.TotalAmount = models.Centavos(total)
	o.OrderType = models.OrderType(orderType)
	o.Status = models.OrderStatus(status)
	return &o, nil
}

func (s *OrderService) collectOrders(rows *sql.Rows) ([]models.Order, error) {
	orders := []models.Order{}
	for rows.Next() {
		order, err := s.scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate orders", err)
	}
	return orders, nil
}

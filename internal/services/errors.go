package services

import (
	"errors"
	"fmt"

	"github.com/lunarveil/backend/internal/models"
)

// Business outcomes and system failures surfaced by the ordering core.
// Handlers map these onto HTTP status codes; anything not in this
// taxonomy is logged in full and returned to the caller redacted.
var (
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrOrderNotFound          = errors.New("order not found")
	ErrProductNotFound        = errors.New("product not found")
	ErrInvalidStateTransition = errors.New("invalid order status transition")
	ErrStorage                = errors.New("storage error")
)

// ValidationCode identifies why a cart failed validation.
type ValidationCode string

const (
	CodeEmptyCart          ValidationCode = "EmptyCart"
	CodeInvalidQuantity    ValidationCode = "InvalidQuantity"
	CodeProductUnavailable ValidationCode = "ProductUnavailable"
	CodeMissingAddress     ValidationCode = "MissingAddress"
	CodeTotalMismatch      ValidationCode = "TotalMismatch"
	CodeInvalidAmount      ValidationCode = "InvalidAmount"
)

// ValidationError is returned before any lock or transaction is opened.
type ValidationError struct {
	Code      ValidationCode
	ProductID int64
	Message   string
}

func (e *ValidationError) Error() string {
	if e.ProductID != 0 {
		return fmt.Sprintf("validation failed (%s, product %d): %s", e.Code, e.ProductID, e.Message)
	}
	return fmt.Sprintf("validation failed (%s): %s", e.Code, e.Message)
}

// InsufficientFundsError carries required vs. available so the caller
// can react without the server leaking anything else.
type InsufficientFundsError struct {
	Required  models.Centavos
	Available models.Centavos
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: required %s, available %s", e.Required, e.Available)
}

// IsInsufficientFunds reports whether err is an insufficient-funds
// business outcome.
func IsInsufficientFunds(err error) bool {
	var ife *InsufficientFundsError
	return errors.As(err, &ife)
}

// storageErr wraps a low-level database failure so callers see a
// retryable StorageError while the detail stays server-side.
func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStorage, op, err)
}

package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/lunarveil/backend/internal/services"
)

// respondServiceError maps the service error taxonomy onto HTTP
// responses. Business outcomes keep their detail; storage and unknown
// failures are logged in full and returned redacted.
func respondServiceError(w http.ResponseWriter, tag string, err error) {
	var ve *services.ValidationError
	if errors.As(err, &ve) {
		services.SendErrorResponseCode(w, ve.Message, string(ve.Code), http.StatusBadRequest, nil)
		return
	}

	var ife *services.InsufficientFundsError
	if errors.As(err, &ife) {
		services.SendErrorResponseCode(w,
			"Insufficient wallet balance. Needed: ₱"+ife.Required.String()+", Available: ₱"+ife.Available.String(),
			"InsufficientFunds", http.StatusPaymentRequired, nil)
		return
	}

	switch {
	case errors.Is(err, services.ErrOrderNotFound):
		services.SendErrorResponseCode(w, "Order not found", "OrderNotFound", http.StatusNotFound, nil)
	case errors.Is(err, services.ErrProductNotFound):
		services.SendErrorResponseCode(w, "Product not found", "ProductNotFound", http.StatusNotFound, nil)
	case errors.Is(err, services.ErrInvalidStateTransition):
		services.SendErrorResponseCode(w, err.Error(), "InvalidStateTransition", http.StatusConflict, nil)
	case errors.Is(err, services.ErrPickupUnavailable):
		services.SendErrorResponseCode(w, err.Error(), "PickupUnavailable", http.StatusConflict, nil)
	case errors.Is(err, services.ErrStorage):
		log.Printf("[%s] Storage error: %v", tag, err)
		services.SendErrorResponseCode(w, "A temporary storage error occurred. Please retry.", "StorageError", http.StatusServiceUnavailable, nil)
	default:
		log.Printf("[%s] Unexpected error: %v", tag, err)
		services.SendErrorResponse(w, "An internal error occurred", http.StatusInternalServerError, nil)
	}
}

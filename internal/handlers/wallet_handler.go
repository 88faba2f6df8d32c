package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/lunarveil/backend/internal/middleware"
	"github.com/lunarveil/backend/internal/models"
	"github.com/lunarveil/backend/internal/services"
)

type WalletHandler struct {
	wallet    *services.WalletService
	validator *services.ValidationHelper
}

func NewWalletHandler(wallet *services.WalletService) *WalletHandler {
	return &WalletHandler{
		wallet:    wallet,
		validator: services.NewValidationHelper(),
	}
}

// AmountRequest carries a decimal peso amount like "150.00".
type AmountRequest struct {
	Amount models.Centavos `json:"amount" validate:"required"`
}

// GetBalance returns the wallet balance
// @Summary Wallet balance
// @Description Current stored-value balance; the wallet is created at zero on first access
// @Tags wallet
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{balance=string}
// @Router /wallet/balance [get]
func (h *WalletHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.AccountID(r.Context())
	if !ok {
		services.SendErrorResponseCode(w, "Authentication required", "AuthenticationRequired", http.StatusUnauthorized, nil)
		return
	}

	balance, err := h.wallet.GetBalance(r.Context(), accountID)
	if err != nil {
		respondServiceError(w, "WALLET", err)
		return
	}

	services.WriteJSON(w, http.StatusOK, map[string]any{"balance": balance})
}

// Deposit adds funds to the wallet
// @Summary Add funds
// @Tags wallet
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body AmountRequest true "Amount to add"
// @Success 200 {object} object{new_balance=string}
// @Failure 400 {object} services.ErrorResponse
// @Router /wallet/deposit [post]
func (h *WalletHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.mutateBalance(w, r, "deposit", h.wallet.Deposit)
}

// Withdraw removes funds from the wallet
// @Summary Withdraw funds
// @Tags wallet
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body AmountRequest true "Amount to withdraw"
// @Success 200 {object} object{new_balance=string}
// @Failure 400 {object} services.ErrorResponse
// @Failure 402 {object} services.ErrorResponse
// @Router /wallet/withdraw [post]
func (h *WalletHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.mutateBalance(w, r, "withdrawal", h.wallet.Withdraw)
}

// GetLedgerHistory returns the wallet's ledger entries, newest first
// @Summary Wallet history
// @Tags wallet
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Number of entries to return (default 15, max 100)"
// @Success 200 {object} object{wallet_transactions=[]models.LedgerEntry,count=int}
// @Router /wallet/history [get]
func (h *WalletHandler) GetLedgerHistory(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.AccountID(r.Context())
	if !ok {
		services.SendErrorResponseCode(w, "Authentication required", "AuthenticationRequired", http.StatusUnauthorized, nil)
		return
	}

	limit := 15
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil {
			limit = l
		}
	}

	entries, err := h.wallet.GetLedgerHistory(r.Context(), accountID, limit)
	if err != nil {
		respondServiceError(w, "WALLET", err)
		return
	}

	services.WriteJSON(w, http.StatusOK, map[string]any{
		"wallet_transactions": entries,
		"count":               len(entries),
	})
}

func (h *WalletHandler) mutateBalance(w http.ResponseWriter, r *http.Request, op string, fn func(ctx context.Context, accountID int64, amount models.Centavos) (models.Centavos, error)) {
	accountID, ok := middleware.AccountID(r.Context())
	if !ok {
		services.SendErrorResponseCode(w, "Authentication required", "AuthenticationRequired", http.StatusUnauthorized, nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req AmountRequest
	if err := dec.Decode(&req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	newBalance, err := fn(r.Context(), accountID, req.Amount)
	if err != nil {
		respondServiceError(w, "WALLET", err)
		return
	}

	log.Printf("[WALLET] %s of %s for account %d, new balance %s", op, req.Amount, accountID, newBalance)
	services.WriteJSON(w, http.StatusOK, map[string]any{"new_balance": newBalance})
}

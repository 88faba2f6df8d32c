package handlers

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/lunarveil/backend/internal/middleware"
	"github.com/lunarveil/backend/internal/models"
	"github.com/lunarveil/backend/internal/services"
)

type OrderHandler struct {
	orders    *services.OrderService
	pickup    *services.PickupService
	validator *services.ValidationHelper
}

func NewOrderHandler(orders *services.OrderService, pickup *services.PickupService) *OrderHandler {
	return &OrderHandler{
		orders:    orders,
		pickup:    pickup,
		validator: services.NewValidationHelper(),
	}
}

// PlaceOrderRequest is the checkout payload. Prices are never part of
// it; the server computes all amounts from the catalog.
type PlaceOrderRequest struct {
	CartItems       []models.CartItem `json:"cart_items" validate:"required,min=1,dive"`
	OrderType       string            `json:"order_type" validate:"required,oneof=Pickup Delivery"`
	DeliveryAddress string            `json:"delivery_address,omitempty" validate:"max=300"`
	SpecialNotes    string            `json:"special_notes,omitempty" validate:"max=500"`
}

// PlaceOrder places an order paid from the wallet
// @Summary Place an order
// @Description Price the cart from the catalog, debit the wallet and create the order atomically
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body PlaceOrderRequest true "Order request"
// @Success 201 {object} services.PlaceOrderResult
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 402 {object} services.ErrorResponse
// @Router /orders [post]
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.AccountID(r.Context())
	if !ok {
		services.SendErrorResponseCode(w, "Authentication required", "AuthenticationRequired", http.StatusUnauthorized, nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req PlaceOrderRequest
	if err := dec.Decode(&req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	orderType, err := models.ParseOrderType(req.OrderType)
	if err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}

	result, err := h.orders.PlaceOrder(r.Context(), accountID, req.CartItems, orderType, req.DeliveryAddress, req.SpecialNotes)
	if err != nil {
		respondServiceError(w, "ORDER", err)
		return
	}

	log.Printf("[ORDER] Placed order %d for account %d, total %s", result.OrderID, accountID, result.TotalAmount)
	services.WriteJSON(w, http.StatusCreated, result)
}

// CancelOrder cancels an order and refunds the wallet
// @Summary Cancel an order
// @Description Cancel a Pending or Making order; the full amount is refunded to the wallet
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param orderId path int true "Order ID"
// @Success 200 {object} object{new_balance=string}
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /orders/{orderId}/cancel [post]
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.AccountID(r.Context())
	if !ok {
		services.SendErrorResponseCode(w, "Authentication required", "AuthenticationRequired", http.StatusUnauthorized, nil)
		return
	}

	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderId"), 10, 64)
	if err != nil || orderID <= 0 {
		services.SendErrorResponse(w, "Invalid order id", http.StatusBadRequest, nil)
		return
	}

	newBalance, err := h.orders.CancelOrder(r.Context(), orderID, accountID)
	if err != nil {
		respondServiceError(w, "ORDER", err)
		return
	}

	log.Printf("[ORDER] Cancelled order %d for account %d", orderID, accountID)
	services.WriteJSON(w, http.StatusOK, map[string]any{"new_balance": newBalance})
}

// GetOrder returns a single order with its line items
// @Summary Get order
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param orderId path int true "Order ID"
// @Success 200 {object} models.Order
// @Failure 404 {object} services.ErrorResponse
// @Router /orders/{orderId} [get]
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.AccountID(r.Context())
	if !ok {
		services.SendErrorResponseCode(w, "Authentication required", "AuthenticationRequired", http.StatusUnauthorized, nil)
		return
	}

	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderId"), 10, 64)
	if err != nil || orderID <= 0 {
		services.SendErrorResponse(w, "Invalid order id", http.StatusBadRequest, nil)
		return
	}

	order, err := h.orders.GetOrder(r.Context(), orderID, accountID)
	if err != nil {
		respondServiceError(w, "ORDER", err)
		return
	}

	services.WriteJSON(w, http.StatusOK, order)
}

// ListOrders returns the caller's order history
// @Summary List orders
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Number of orders to return (default 20, max 100)"
// @Success 200 {object} object{orders=[]models.Order,count=int}
// @Router /orders [get]
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.AccountID(r.Context())
	if !ok {
		services.SendErrorResponseCode(w, "Authentication required", "AuthenticationRequired", http.StatusUnauthorized, nil)
		return
	}

	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil {
			limit = l
		}
	}

	orders, err := h.orders.ListOrders(r.Context(), accountID, limit)
	if err != nil {
		respondServiceError(w, "ORDER", err)
		return
	}

	services.WriteJSON(w, http.StatusOK, map[string]any{
		"orders": orders,
		"count":  len(orders),
	})
}

// PickupQR returns a QR code for collecting an order
// @Summary Pickup QR code
// @Description PNG QR code for an order in ReadyForPickup, scanned at the counter
// @Tags orders
// @Produce png
// @Security BearerAuth
// @Param orderId path int true "Order ID"
// @Success 200 {file} binary
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /orders/{orderId}/pickup-qr [get]
func (h *OrderHandler) PickupQR(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.AccountID(r.Context())
	if !ok {
		services.SendErrorResponseCode(w, "Authentication required", "AuthenticationRequired", http.StatusUnauthorized, nil)
		return
	}

	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderId"), 10, 64)
	if err != nil || orderID <= 0 {
		services.SendErrorResponse(w, "Invalid order id", http.StatusBadRequest, nil)
		return
	}

	png, err := h.pickup.GeneratePickupQR(r.Context(), orderID, accountID)
	if err != nil {
		respondServiceError(w, "PICKUP", err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(png)
}

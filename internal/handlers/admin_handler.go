package handlers

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/lunarveil/backend/internal/models"
	"github.com/lunarveil/backend/internal/services"
)

// AdminHandler is the operator surface: the order board and status
// transitions. Routes using it sit behind the staff-role middleware.
type AdminHandler struct {
	orders    *services.OrderService
	pickup    *services.PickupService
	catalog   *services.CatalogService
	validator *services.ValidationHelper
}

func NewAdminHandler(orders *services.OrderService, pickup *services.PickupService, catalog *services.CatalogService) *AdminHandler {
	return &AdminHandler{
		orders:    orders,
		pickup:    pickup,
		catalog:   catalog,
		validator: services.NewValidationHelper(),
	}
}

type UpdateStatusRequest struct {
	From string `json:"from" validate:"required"`
	To   string `json:"to" validate:"required"`
}

// UpdateProductRequest carries the new price and availability flag.
type UpdateProductRequest struct {
	Price    models.Centavos `json:"price" validate:"required"`
	IsActive bool            `json:"is_active"`
}

// ListAllOrders returns recent orders across all accounts
// @Summary Operator order board
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Number of orders to return (default 50, max 200)"
// @Success 200 {object} object{orders=[]models.Order,count=int}
// @Failure 403 {object} services.ErrorResponse
// @Router /admin/orders [get]
func (h *AdminHandler) ListAllOrders(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil {
			limit = l
		}
	}

	orders, err := h.orders.ListAllOrders(r.Context(), limit)
	if err != nil {
		respondServiceError(w, "ADMIN", err)
		return
	}

	services.WriteJSON(w, http.StatusOK, map[string]any{
		"orders": orders,
		"count":  len(orders),
	})
}

// UpdateOrderStatus advances an order's status
// @Summary Update order status
// @Description Guarded transition: only applied when the order is still in the expected status
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param orderId path int true "Order ID"
// @Param request body UpdateStatusRequest true "Expected and new status"
// @Success 200 {object} object{order_id=int,status=string}
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /admin/orders/{orderId}/status [put]
func (h *AdminHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderId"), 10, 64)
	if err != nil || orderID <= 0 {
		services.SendErrorResponse(w, "Invalid order id", http.StatusBadRequest, nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req UpdateStatusRequest
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

	from, err := models.ParseOrderStatus(req.From)
	if err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	to, err := models.ParseOrderStatus(req.To)
	if err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}

	if err := h.orders.AdvanceOrderStatus(r.Context(), orderID, from, to); err != nil {
		respondServiceError(w, "ADMIN", err)
		return
	}

	log.Printf("[ADMIN] Order %d status %s -> %s", orderID, from, to)
	services.WriteJSON(w, http.StatusOK, map[string]any{
		"order_id": orderID,
		"status":   to,
	})
}

// GetOrderDetails returns any account's order with line items
// @Summary Staff order detail
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param orderId path int true "Order ID"
// @Success 200 {object} models.Order
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /admin/orders/{orderId} [get]
func (h *AdminHandler) GetOrderDetails(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderId"), 10, 64)
	if err != nil || orderID <= 0 {
		services.SendErrorResponse(w, "Invalid order id", http.StatusBadRequest, nil)
		return
	}

	order, err := h.orders.GetOrderDetails(r.Context(), orderID)
	if err != nil {
		respondServiceError(w, "ADMIN", err)
		return
	}

	services.WriteJSON(w, http.StatusOK, order)
}

// UpdateProduct changes a product's price or availability
// @Summary Update product
// @Description Set price and availability; the cached menu is invalidated immediately
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param productId path int true "Product ID"
// @Param request body UpdateProductRequest true "New price and availability"
// @Success 200 {object} object{product_id=int,price=string,is_active=bool}
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /admin/products/{productId} [put]
func (h *AdminHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "productId"), 10, 64)
	if err != nil || productID <= 0 {
		services.SendErrorResponse(w, "Invalid product id", http.StatusBadRequest, nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req UpdateProductRequest
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

	if err := h.catalog.UpdateProduct(r.Context(), productID, req.Price, req.IsActive); err != nil {
		respondServiceError(w, "ADMIN", err)
		return
	}

	log.Printf("[ADMIN] Product %d updated: price %s, active %t", productID, req.Price, req.IsActive)
	services.WriteJSON(w, http.StatusOK, map[string]any{
		"product_id": productID,
		"price":      req.Price,
		"is_active":  req.IsActive,
	})
}

// VerifyPickup consumes a scanned pickup code at the counter
// @Summary Verify pickup code
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{code=string} true "Scanned code"
// @Success 200 {object} object{order_id=int}
// @Failure 409 {object} services.ErrorResponse
// @Router /admin/pickup/verify [post]
func (h *AdminHandler) VerifyPickup(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req struct {
		Code string `json:"code" validate:"required"`
	}
	if err := dec.Decode(&req); err != nil || req.Code == "" {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	orderID, err := h.pickup.VerifyPickupCode(r.Context(), req.Code)
	if err != nil {
		respondServiceError(w, "ADMIN", err)
		return
	}

	services.WriteJSON(w, http.StatusOK, map[string]any{"order_id": orderID})
}

package handlers

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/lunarveil/backend/internal/config"
	"github.com/lunarveil/backend/internal/services"
)

func newAdminHandlerForTest(db *sql.DB) *AdminHandler {
	wallet := services.NewWalletService(db)
	catalog := services.NewCatalogService(db, nil, time.Minute)
	pricing := &config.PricingConfig{TaxRateBasisPoints: 1200, DeliveryFee: 5000, MenuCacheSeconds: 60}
	orders := services.NewOrderService(db, wallet, services.NewPriceValidator(catalog, pricing))
	return NewAdminHandler(orders, services.NewPickupService(db, nil), catalog)
}

func TestAdminHandler_UpdateOrderStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	handler := newAdminHandlerForTest(db)

	router := chi.NewRouter()
	router.Put("/admin/orders/{orderId}/status", handler.UpdateOrderStatus)

	t.Run("valid transition", func(t *testing.T) {
		mock.ExpectExec("UPDATE orders SET status = \\$1").
			WithArgs("Making", sqlmock.AnyArg(), int64(101), "Pending").
			WillReturnResult(sqlmock.NewResult(0, 1))

		r := authedRequest(http.MethodPut, "/admin/orders/101/status", `{"from":"Pending","to":"Making"}`, 2)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"Making"`)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown status string", func(t *testing.T) {
		r := authedRequest(http.MethodPut, "/admin/orders/101/status", `{"from":"Pending","to":"Shipped"}`, 2)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("illegal transition maps to 409", func(t *testing.T) {
		r := authedRequest(http.MethodPut, "/admin/orders/101/status", `{"from":"Pending","to":"Delivered"}`, 2)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, r)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stale expected status maps to 409", func(t *testing.T) {
		mock.ExpectExec("UPDATE orders SET status = \\$1").
			WithArgs("ReadyForPickup", sqlmock.AnyArg(), int64(101), "Making").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT status FROM orders WHERE id = \\$1").
			WithArgs(int64(101)).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("Cancelled"))

		r := authedRequest(http.MethodPut, "/admin/orders/101/status", `{"from":"Making","to":"ReadyForPickup"}`, 2)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, r)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAdminHandler_ListAllOrders(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	handler := newAdminHandlerForTest(db)

	orderColumns := []string{"id", "account_id", "subtotal", "tax_amount", "delivery_fee", "total_amount",
		"order_type", "delivery_address", "special_notes", "status", "created_at", "updated_at", "items_summary"}

	t.Run("order board carries item summaries", func(t *testing.T) {
		now := time.Now()
		mock.ExpectQuery("SELECT o.id, o.account_id, o.subtotal, o.tax_amount, o.delivery_fee, o.total_amount").
			WithArgs(50).
			WillReturnRows(sqlmock.NewRows(orderColumns).
				AddRow(101, 11, 5000, 600, 0, 5600, "Pickup", "", "", "Pending", now, now, "Caramel Latte x1").
				AddRow(100, 12, 20000, 2400, 5000, 27400, "Delivery", "42 Mabini St", "", "Making", now, now, "Espresso Doppio x2, Ube Cheesecake x1"))

		r := authedRequest(http.MethodGet, "/admin/orders", "", 2)
		w := httptest.NewRecorder()

		handler.ListAllOrders(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"count":2`)
		assert.Contains(t, w.Body.String(), `"items_summary":"Caramel Latte x1"`)
		assert.Contains(t, w.Body.String(), `"items_summary":"Espresso Doppio x2, Ube Cheesecake x1"`)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAdminHandler_GetOrderDetails(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	handler := newAdminHandlerForTest(db)

	router := chi.NewRouter()
	router.Get("/admin/orders/{orderId}", handler.GetOrderDetails)

	orderColumns := []string{"id", "account_id", "subtotal", "tax_amount", "delivery_fee", "total_amount",
		"order_type", "delivery_address", "special_notes", "status", "created_at", "updated_at"}

	t.Run("staff can view any account's order", func(t *testing.T) {
		now := time.Now()
		mock.ExpectQuery("SELECT id, account_id, subtotal, tax_amount, delivery_fee, total_amount").
			WithArgs(int64(101)).
			WillReturnRows(sqlmock.NewRows(orderColumns).
				AddRow(101, 11, 5000, 600, 0, 5600, "Pickup", "", "no sugar", "Making", now, now))
		mock.ExpectQuery("SELECT oi.order_id, oi.product_id").
			WithArgs(int64(101)).
			WillReturnRows(sqlmock.NewRows([]string{"order_id", "product_id", "name", "quantity", "price_at_purchase"}).
				AddRow(101, 3, "Caramel Latte", 1, 5000))

		// Staff identity, not the order's owner
		r := authedRequest(http.MethodGet, "/admin/orders/101", "", 2)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"account_id":11`)
		assert.Contains(t, w.Body.String(), `"product_name":"Caramel Latte"`)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown order maps to 404", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, account_id, subtotal, tax_amount, delivery_fee, total_amount").
			WithArgs(int64(999)).
			WillReturnRows(sqlmock.NewRows(orderColumns))

		r := authedRequest(http.MethodGet, "/admin/orders/999", "", 2)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, r)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAdminHandler_UpdateProduct(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	handler := newAdminHandlerForTest(db)

	router := chi.NewRouter()
	router.Put("/admin/products/{productId}", handler.UpdateProduct)

	t.Run("price change", func(t *testing.T) {
		mock.ExpectExec("UPDATE products SET price = \\$1, is_active = \\$2 WHERE id = \\$3").
			WithArgs(int64(9500), true, int64(3)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		r := authedRequest(http.MethodPut, "/admin/products/3", `{"price":"95.00","is_active":true}`, 2)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"price":"95.00"`)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown product maps to 404", func(t *testing.T) {
		mock.ExpectExec("UPDATE products SET price = \\$1, is_active = \\$2 WHERE id = \\$3").
			WithArgs(int64(9500), true, int64(999)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		r := authedRequest(http.MethodPut, "/admin/products/999", `{"price":"95.00","is_active":true}`, 2)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, r)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("zero price is rejected", func(t *testing.T) {
		r := authedRequest(http.MethodPut, "/admin/products/3", `{"price":"0.00","is_active":true}`, 2)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAdminHandler_VerifyPickup(t *testing.T) {
	db, _, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	handler := newAdminHandlerForTest(db)

	t.Run("missing code", func(t *testing.T) {
		r := authedRequest(http.MethodPost, "/admin/pickup/verify", `{"code":""}`, 2)
		w := httptest.NewRecorder()

		handler.VerifyPickup(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("redis offline maps to 409", func(t *testing.T) {
		r := authedRequest(http.MethodPost, "/admin/pickup/verify", `{"code":"scanned"}`, 2)
		w := httptest.NewRecorder()

		handler.VerifyPickup(w, r)

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

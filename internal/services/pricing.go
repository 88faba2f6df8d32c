package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/lunarveil/backend/internal/config"
	"github.com/lunarveil/backend/internal/models"
)

// PricedOrder is a cart priced entirely from the catalog: authoritative
// line items plus the recomputed totals. TotalAmount is always
// Subtotal + TaxAmount + DeliveryFee.
type PricedOrder struct {
	Items       []models.LineItem
	Subtotal    models.Centavos
	TaxAmount   models.Centavos
	DeliveryFee models.Centavos
	TotalAmount models.Centavos
}

// PriceValidator recomputes an order's monetary total from trusted
// catalog data. Client-submitted prices are never read.
type PriceValidator struct {
	catalog *CatalogService
	pricing *config.PricingConfig
}

func NewPriceValidator(catalog *CatalogService, pricing *config.PricingConfig) *PriceValidator {
	return &PriceValidator{
		catalog: catalog,
		pricing: pricing,
	}
}

// Validate prices the cart. It runs before any lock or transaction is
// opened, so a rejected cart leaves no trace anywhere.
func (v *PriceValidator) Validate(ctx context.Context, cart []models.CartItem, orderType models.OrderType, deliveryAddress string) (*PricedOrder, error) {
	if len(cart) == 0 {
		return nil, &ValidationError{Code: CodeEmptyCart, Message: "cart is empty"}
	}

	if orderType == models.OrderTypeDelivery && strings.TrimSpace(deliveryAddress) == "" {
		return nil, &ValidationError{Code: CodeMissingAddress, Message: "delivery address is required for delivery orders"}
	}

	productIDs := make([]int64, 0, len(cart))
	for _, item := range cart {
		if item.Quantity <= 0 {
			return nil, &ValidationError{
				Code:      CodeInvalidQuantity,
				ProductID: item.ProductID,
				Message:   fmt.Sprintf("quantity must be positive, got %d", item.Quantity),
			}
		}
		productIDs = append(productIDs, item.ProductID)
	}

	prices, err := v.catalog.LookupPrices(ctx, productIDs)
	if err != nil {
		return nil, err
	}

	priced := &PricedOrder{Items: make([]models.LineItem, 0, len(cart))}
	for _, item := range cart {
		catalogPrice, ok := prices[item.ProductID]
		if !ok {
			return nil, &ValidationError{
				Code:      CodeProductUnavailable,
				ProductID: item.ProductID,
				Message:   "product is unknown or no longer available",
			}
		}

		priced.Items = append(priced.Items, models.LineItem{
			ProductID:       item.ProductID,
			ProductName:     catalogPrice.Name,
			Quantity:        item.Quantity,
			PriceAtPurchase: catalogPrice.Price,
		})
		priced.Subtotal += catalogPrice.Price * models.Centavos(item.Quantity)
	}

	priced.TaxAmount = v.pricing.Tax(priced.Subtotal)
	if orderType == models.OrderTypeDelivery {
		priced.DeliveryFee = v.pricing.DeliveryFee
	}
	priced.TotalAmount = priced.Subtotal + priced.TaxAmount + priced.DeliveryFee

	return priced, nil
}

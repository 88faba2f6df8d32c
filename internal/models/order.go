package models

import (
	"fmt"
	"time"
)

// OrderStatus is the closed set of order states. Pending is the only
// initial state; Delivered and Cancelled are terminal.
type OrderStatus string

const (
	StatusPending        OrderStatus = "Pending"
	StatusMaking         OrderStatus = "Making"
	StatusReadyForPickup OrderStatus = "ReadyForPickup"
	StatusDelivered      OrderStatus = "Delivered"
	StatusCancelled      OrderStatus = "Cancelled"
)

// ParseOrderStatus validates a status string at the boundary.
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch OrderStatus(s) {
	case StatusPending, StatusMaking, StatusReadyForPickup, StatusDelivered, StatusCancelled:
		return OrderStatus(s), nil
	}
	return "", fmt.Errorf("unknown order status %q", s)
}

// CanTransitionTo reports whether the status state machine allows
// moving from s to next. Pending -> Making -> ReadyForPickup ->
// Delivered, with cancellation allowed from Pending or Making only.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusMaking || next == StatusCancelled
	case StatusMaking:
		return next == StatusReadyForPickup || next == StatusCancelled
	case StatusReadyForPickup:
		return next == StatusDelivered
	}
	return false
}

// Cancellable reports whether a customer cancellation is still allowed.
func (s OrderStatus) Cancellable() bool {
	return s == StatusPending || s == StatusMaking
}

// OrderType distinguishes pickup from delivery orders.
type OrderType string

const (
	OrderTypePickup   OrderType = "Pickup"
	OrderTypeDelivery OrderType = "Delivery"
)

func ParseOrderType(s string) (OrderType, error) {
	switch OrderType(s) {
	case OrderTypePickup, OrderTypeDelivery:
		return OrderType(s), nil
	}
	return "", fmt.Errorf("unknown order type %q", s)
}

// Order is a placed purchase. Header totals are recomputed server-side
// from the catalog; total_amount == subtotal + tax_amount + delivery_fee.
type Order struct {
	ID              int64       `json:"order_id" db:"id"`
	AccountID       int64       `json:"account_id" db:"account_id"`
	Subtotal        Centavos    `json:"subtotal" db:"subtotal"`
	TaxAmount       Centavos    `json:"tax_amount" db:"tax_amount"`
	DeliveryFee     Centavos    `json:"delivery_fee" db:"delivery_fee"`
	TotalAmount     Centavos    `json:"total_amount" db:"total_amount"`
	OrderType       OrderType   `json:"order_type" db:"order_type"`
	DeliveryAddress string      `json:"delivery_address,omitempty" db:"delivery_address"`
	SpecialNotes    string      `json:"special_notes,omitempty" db:"special_notes"`
	Status          OrderStatus `json:"status" db:"status"`
	Items           []LineItem  `json:"items,omitempty"`
	ItemsSummary    string      `json:"items_summary,omitempty"`
	CreatedAt       time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at" db:"updated_at"`
}

// LineItem is one product line on an order. PriceAtPurchase is the
// catalog price at order time, never the client-submitted price.
type LineItem struct {
	OrderID         int64    `json:"order_id" db:"order_id"`
	ProductID       int64    `json:"product_id" db:"product_id"`
	ProductName     string   `json:"product_name,omitempty" db:"product_name"`
	Quantity        int      `json:"quantity" db:"quantity"`
	PriceAtPurchase Centavos `json:"price_at_purchase" db:"price_at_purchase"`
}

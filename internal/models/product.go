package models

// Product is one catalog entry. The catalog is the authoritative source
// of price and availability; the ordering core only reads it.
type Product struct {
	ID          int64    `json:"id" db:"id"`
	Name        string   `json:"name" db:"name"`
	Description string   `json:"description" db:"description"`
	Price       Centavos `json:"price" db:"price"`
	Category    string   `json:"category" db:"category"`
	IsActive    bool     `json:"is_active" db:"is_active"`
}

// CatalogPrice is the LookupPrices result for one product id. Inactive
// and unknown products are simply absent from the lookup result.
type CatalogPrice struct {
	Price  Centavos
	Active bool
	Name   string
}

// CartItem is one client-submitted cart line. Any price field a client
// sends alongside these is ignored.
type CartItem struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required"`
}

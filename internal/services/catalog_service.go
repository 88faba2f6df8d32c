package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/lib/pq"
	"github.com/lunarveil/backend/internal/models"
)

const menuCacheKey = "menu:active"

// CatalogService is the read-only view of the product catalog. Prices
// and availability always come from here, never from the client.
type CatalogService struct {
	db       *sql.DB
	redis    *redis.Client
	cacheTTL time.Duration
}

func NewCatalogService(db *sql.DB, redisClient *redis.Client, cacheTTL time.Duration) *CatalogService {
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &CatalogService{
		db:       db,
		redis:    redisClient,
		cacheTTL: cacheTTL,
	}
}

// LookupPrices returns the current price for each requested product id.
// Unknown and inactive products are absent from the result; the price
// validator treats absence as a hard failure.
func (s *CatalogService) LookupPrices(ctx context.Context, productIDs []int64) (map[int64]models.CatalogPrice, error) {
	prices := make(map[int64]models.CatalogPrice, len(productIDs))
	if len(productIDs) == 0 {
		return prices, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, price
		FROM products
		WHERE id = ANY($1) AND is_active = TRUE`, pq.Array(productIDs))
	if err != nil {
		return nil, storageErr("lookup prices", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, price int64
		var name string
		if err := rows.Scan(&id, &name, &price); err != nil {
			return nil, storageErr("scan product price", err)
		}
		prices[id] = models.CatalogPrice{Price: models.Centavos(price), Active: true, Name: name}
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate product prices", err)
	}

	return prices, nil
}

// Menu returns all active products in display order, served from Redis
// when the cache is warm.
func (s *CatalogService) Menu(ctx context.Context) ([]models.Product, error) {
	if s.redis != nil {
		if data, err := s.redis.Get(ctx, menuCacheKey).Bytes(); err == nil {
			var cached []models.Product
			if err := json.Unmarshal(data, &cached); err == nil {
				return cached, nil
			}
		}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, price, category
		FROM products
		WHERE is_active = TRUE
		ORDER BY array_position(ARRAY['Espresso','Latte','Frappe','Tea','Pastry','Dessert','Special'], category), name`)
	if err != nil {
		return nil, storageErr("fetch menu", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		var p models.Product
		var price int64
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &price, &p.Category); err != nil {
			return nil, storageErr("scan menu item", err)
		}
		p.Price = models.Centavos(price)
		p.IsActive = true
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate menu", err)
	}

	if s.redis != nil {
		if data, err := json.Marshal(products); err == nil {
			if err := s.redis.Set(ctx, menuCacheKey, data, s.cacheTTL).Err(); err != nil {
				log.Printf("[CATALOG] Failed to cache menu: %v", err)
			}
		}
	}

	return products, nil
}

// UpdateProduct sets a product's price and availability, then drops the
// cached menu so the change is visible on the next read.
func (s *CatalogService) UpdateProduct(ctx context.Context, productID int64, price models.Centavos, active bool) error {
	if price <= 0 {
		return &ValidationError{Code: CodeInvalidAmount, Message: "price must be greater than zero"}
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET price = $1, is_active = $2
		WHERE id = $3`, int64(price), active, productID)
	if err != nil {
		return storageErr("update product", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return storageErr("update product", err)
	}
	if affected == 0 {
		return ErrProductNotFound
	}

	s.InvalidateMenuCache(ctx)
	return nil
}

// InvalidateMenuCache drops the cached menu after a catalog change.
func (s *CatalogService) InvalidateMenuCache(ctx context.Context) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, menuCacheKey).Err(); err != nil {
		log.Printf("[CATALOG] Failed to invalidate menu cache: %v", err)
	}
}

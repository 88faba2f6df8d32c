package config

import (
	"os"
	"strconv"

	"github.com/lunarveil/backend/internal/models"
)

// PricingConfig is the server-side pricing policy. Tax is a percentage
// of the subtotal in basis points; the delivery fee is flat and applies
// to delivery orders only. Clients never influence these numbers.
type PricingConfig struct {
	TaxRateBasisPoints int64           // 1200 = 12% VAT
	DeliveryFee        models.Centavos // flat, Delivery orders only
	MenuCacheSeconds   int
}

func LoadPricingConfig() *PricingConfig {
	return &PricingConfig{
		TaxRateBasisPoints: getEnvAsInt64("PRICING_TAX_RATE_BP", 1200),
		DeliveryFee:        models.Centavos(getEnvAsInt64("PRICING_DELIVERY_FEE_CENTAVOS", 5000)),
		MenuCacheSeconds:   int(getEnvAsInt64("MENU_CACHE_SECONDS", 60)),
	}
}

// Tax computes the tax on a subtotal, rounding half up to the centavo.
func (c *PricingConfig) Tax(subtotal models.Centavos) models.Centavos {
	return models.Centavos((int64(subtotal)*c.TaxRateBasisPoints + 5000) / 10000)
}

func getEnvAsInt64(key string, defaultVal int64) int64 {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.ParseInt(val, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultVal
}

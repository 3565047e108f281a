package payments

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/veloshop/veloshop/internal/pkg/cache"
)

const catalogCacheKey = "catalog:products"

// CatalogSource lists the purchasable products.
type CatalogSource interface {
	ListProducts(ctx context.Context) ([]CatalogProduct, error)
}

// CachedCatalog caches the product listing in Redis so the storefront does
// not call the provider on every page load. A cache miss or unreadable entry
// falls through to the source.
type CachedCatalog struct {
	source CatalogSource
	ttl    time.Duration
}

// NewCachedCatalog wraps a catalog source with a Redis cache. A zero ttl
// defaults to 5 minutes.
func NewCachedCatalog(source CatalogSource, ttl time.Duration) *CachedCatalog {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedCatalog{source: source, ttl: ttl}
}

func (c *CachedCatalog) ListProducts(ctx context.Context) ([]CatalogProduct, error) {
	if raw, err := cache.Get(catalogCacheKey); err == nil && raw != "" {
		var products []CatalogProduct
		if err := json.Unmarshal([]byte(raw), &products); err == nil {
			return products, nil
		}
	}

	products, err := c.source.ListProducts(ctx)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(products); err == nil {
		if err := cache.Set(catalogCacheKey, string(raw), c.ttl); err != nil {
			log.Printf("Failed to cache product listing: %v", err)
		}
	}
	return products, nil
}

// Invalidate drops the cached listing. The next page load refetches from the
// provider; used after catalog changes in the Stripe dashboard.
func (c *CachedCatalog) Invalidate() error {
	return cache.Delete(catalogCacheKey)
}

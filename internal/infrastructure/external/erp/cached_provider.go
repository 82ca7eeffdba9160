package erp

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/garyjia/ai-claims/internal/application/port"
	"github.com/garyjia/ai-claims/internal/domain/entity"
)

// cacheEntry lets a "no data" answer be cached alongside real records
type cacheEntry struct {
	ref *port.ReferenceData
}

// CachedProvider memoizes lookups per order number for a TTL.
// Errors are never cached.
type CachedProvider struct {
	next   port.ReferenceDataProvider
	cache  *gocache.Cache
	logger *zap.Logger
}

// NewCachedProvider wraps next with a TTL cache
func NewCachedProvider(next port.ReferenceDataProvider, ttl time.Duration, logger *zap.Logger) *CachedProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedProvider{
		next:   next,
		cache:  gocache.New(ttl, 2*ttl),
		logger: logger,
	}
}

// Lookup serves from the cache, falling through to the wrapped provider on a miss
func (p *CachedProvider) Lookup(ctx context.Context, claim *entity.Claim) (*port.ReferenceData, error) {
	key := claim.OrderNumber
	if val, found := p.cache.Get(key); found {
		return cloneReference(val.(cacheEntry).ref), nil
	}

	ref, err := p.next.Lookup(ctx, claim)
	if err != nil {
		p.logger.Error("Reference lookup failed",
			zap.String("claim_id", claim.ID),
			zap.String("order_number", key),
			zap.Error(err))
		return nil, err
	}

	p.cache.SetDefault(key, cacheEntry{ref: cloneReference(ref)})
	return ref, nil
}

// Invalidate drops the cached answer for an order
func (p *CachedProvider) Invalidate(orderNumber string) {
	p.cache.Delete(orderNumber)
}

var _ port.ReferenceDataProvider = (*CachedProvider)(nil)

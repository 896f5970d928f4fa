package invoicing

import (
	"context"

	"github.com/dropship/invoicer/internal/domain/integration"
)

// refCache memoizes accounting-system reference lookups for one run. The
// shared references (generic item, tax item, shipping item, class, term)
// resolve once; customer references resolve once per customer id. The
// cache is never persisted and must not outlive the run.
type refCache struct {
	gateway integration.AccountingGateway

	item         *integration.Ref
	taxItem      *integration.Ref
	shippingItem *integration.Ref
	class        *integration.Ref
	term         *integration.Ref
	customers    map[string]integration.Ref
}

func newRefCache(gateway integration.AccountingGateway) *refCache {
	return &refCache{
		gateway:   gateway,
		customers: make(map[string]integration.Ref),
	}
}

func (c *refCache) itemRef(ctx context.Context, id string) (integration.Ref, error) {
	return c.memoize(&c.item, func() (integration.Ref, error) {
		return c.gateway.FetchItemRef(ctx, id)
	})
}

func (c *refCache) taxItemRef(ctx context.Context, id string) (integration.Ref, error) {
	return c.memoize(&c.taxItem, func() (integration.Ref, error) {
		return c.gateway.FetchItemRef(ctx, id)
	})
}

func (c *refCache) shippingItemRef(ctx context.Context, id string) (integration.Ref, error) {
	return c.memoize(&c.shippingItem, func() (integration.Ref, error) {
		return c.gateway.FetchItemRef(ctx, id)
	})
}

func (c *refCache) classRef(ctx context.Context, id string) (integration.Ref, error) {
	return c.memoize(&c.class, func() (integration.Ref, error) {
		return c.gateway.FetchClassRef(ctx, id)
	})
}

func (c *refCache) termRef(ctx context.Context, id string) (integration.Ref, error) {
	return c.memoize(&c.term, func() (integration.Ref, error) {
		return c.gateway.FetchTermRef(ctx, id)
	})
}

func (c *refCache) customerRef(ctx context.Context, customerID string) (integration.Ref, error) {
	if ref, ok := c.customers[customerID]; ok {
		return ref, nil
	}
	ref, err := c.gateway.FetchCustomerRef(ctx, customerID)
	if err != nil {
		return integration.Ref{}, err
	}
	c.customers[customerID] = ref
	return ref, nil
}

func (c *refCache) memoize(slot **integration.Ref, fetch func() (integration.Ref, error)) (integration.Ref, error) {
	if *slot != nil {
		return **slot, nil
	}
	ref, err := fetch()
	if err != nil {
		return integration.Ref{}, err
	}
	*slot = &ref
	return ref, nil
}

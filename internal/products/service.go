// Package products serves the read-only inventory listing.
package products

import (
	"context"
	"fmt"

	"github.com/martdesk/martdesk/internal/platform/httpx"
	"github.com/martdesk/martdesk/internal/query"
	"github.com/martdesk/martdesk/internal/shared"
	"github.com/martdesk/martdesk/internal/upstream"
)

const resource = "products"

// Availability filter values accepted from the dashboard.
const (
	AvailabilityInStock    = "in-stock"
	AvailabilityOutOfStock = "out-of-stock"
)

// API is the slice of the upstream client this package consumes.
type API interface {
	ListProducts(ctx context.Context, token string, p query.Params) (upstream.ProductsPage, error)
}

// Service fetches inventory through the shared query cache.
type Service struct {
	api   API
	cache *query.Cache
}

// NewService constructs a Service.
func NewService(api API, cache *query.Cache) *Service {
	return &Service{api: api, cache: cache}
}

// List returns one page of inventory for the current user.
func (s *Service) List(ctx context.Context, user *shared.UserSnapshot, token string, p query.Params) (upstream.ProductsPage, error) {
	p = p.Normalize()
	if p.Availability != "" && p.Availability != AvailabilityInStock && p.Availability != AvailabilityOutOfStock {
		return upstream.ProductsPage{}, fmt.Errorf("%w: unknown availability %q", httpx.ErrValidation, p.Availability)
	}
	if !user.CanAccessStore(p.StoreID) {
		return upstream.ProductsPage{}, fmt.Errorf("%w: store not in your allowed list", httpx.ErrForbidden)
	}

	key, err := s.cache.BuildKey(ctx, resource, user.ID, p)
	if err != nil {
		return upstream.ProductsPage{}, err
	}

	var page upstream.ProductsPage
	err = s.cache.FetchJSON(ctx, key, &page, func(ctx context.Context) (any, error) {
		return s.api.ListProducts(ctx, token, p)
	})
	if err != nil {
		return upstream.ProductsPage{}, upstream.Shape(err)
	}
	return page, nil
}

// Package orders serves the read-only orders listing.
package orders

import (
	"context"
	"fmt"

	"github.com/martdesk/martdesk/internal/platform/httpx"
	"github.com/martdesk/martdesk/internal/query"
	"github.com/martdesk/martdesk/internal/shared"
	"github.com/martdesk/martdesk/internal/upstream"
)

const resource = "orders"

// API is the slice of the upstream client this package consumes.
type API interface {
	ListOrders(ctx context.Context, token string, p query.Params) (upstream.OrdersPage, error)
	GetOrder(ctx context.Context, token, id string) (upstream.Order, error)
}

// Service fetches orders through the shared query cache.
type Service struct {
	api   API
	cache *query.Cache
}

// NewService constructs a Service.
func NewService(api API, cache *query.Cache) *Service {
	return &Service{api: api, cache: cache}
}

// List returns one page of orders for the current user. A store filter
// outside the user's allowed store list is rejected before any request.
func (s *Service) List(ctx context.Context, user *shared.UserSnapshot, token string, p query.Params) (upstream.OrdersPage, error) {
	p = p.Normalize()
	if !user.CanAccessStore(p.StoreID) {
		return upstream.OrdersPage{}, fmt.Errorf("%w: store not in your allowed list", httpx.ErrForbidden)
	}

	key, err := s.cache.BuildKey(ctx, resource, user.ID, p)
	if err != nil {
		return upstream.OrdersPage{}, err
	}

	var page upstream.OrdersPage
	err = s.cache.FetchJSON(ctx, key, &page, func(ctx context.Context) (any, error) {
		return s.api.ListOrders(ctx, token, p)
	})
	if err != nil {
		return upstream.OrdersPage{}, upstream.Shape(err)
	}
	return page, nil
}

// Get fetches one order.
func (s *Service) Get(ctx context.Context, token, id string) (upstream.Order, error) {
	order, err := s.api.GetOrder(ctx, token, id)
	if err != nil {
		return upstream.Order{}, upstream.Shape(err)
	}
	return order, nil
}

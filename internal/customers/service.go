// Package customers serves the read-only customer listing.
package customers

import (
	"context"
	"fmt"

	"github.com/martdesk/martdesk/internal/platform/httpx"
	"github.com/martdesk/martdesk/internal/query"
	"github.com/martdesk/martdesk/internal/shared"
	"github.com/martdesk/martdesk/internal/upstream"
)

const resource = "customers"

// API is the slice of the upstream client this package consumes.
type API interface {
	ListCustomers(ctx context.Context, token string, p query.Params) (upstream.CustomersPage, error)
}

// Service fetches customers through the shared query cache.
type Service struct {
	api   API
	cache *query.Cache
}

// NewService constructs a Service.
func NewService(api API, cache *query.Cache) *Service {
	return &Service{api: api, cache: cache}
}

// List returns one page of customers for the current user.
func (s *Service) List(ctx context.Context, user *shared.UserSnapshot, token string, p query.Params) (upstream.CustomersPage, error) {
	p = p.Normalize()
	if !user.CanAccessStore(p.StoreID) {
		return upstream.CustomersPage{}, fmt.Errorf("%w: store not in your allowed list", httpx.ErrForbidden)
	}

	key, err := s.cache.BuildKey(ctx, resource, user.ID, p)
	if err != nil {
		return upstream.CustomersPage{}, err
	}

	var page upstream.CustomersPage
	err = s.cache.FetchJSON(ctx, key, &page, func(ctx context.Context) (any, error) {
		return s.api.ListCustomers(ctx, token, p)
	})
	if err != nil {
		return upstream.CustomersPage{}, upstream.Shape(err)
	}
	return page, nil
}

// Package dashboard serves the landing page data: the navigation visible
// to the user and a small summary of the sections they can open.
package dashboard

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/martdesk/martdesk/internal/authz"
	"github.com/martdesk/martdesk/internal/query"
	"github.com/martdesk/martdesk/internal/shared"
	"github.com/martdesk/martdesk/internal/upstream"
)

// API is the slice of the upstream client this package consumes.
type API interface {
	ListOrders(ctx context.Context, token string, p query.Params) (upstream.OrdersPage, error)
	ListProducts(ctx context.Context, token string, p query.Params) (upstream.ProductsPage, error)
	ListCustomers(ctx context.Context, token string, p query.Params) (upstream.CustomersPage, error)
	ListStores(ctx context.Context, token string) ([]upstream.Store, error)
}

// Counts is the per-section totals block. A section the user cannot open
// stays at -1 so the client can tell "hidden" from "empty".
type Counts struct {
	Orders    int `json:"orders"`
	Products  int `json:"products"`
	Customers int `json:"customers"`
	Stores    int `json:"stores"`
}

// Summary is the dashboard payload.
type Summary struct {
	Nav    []authz.NavEntry `json:"nav"`
	Counts Counts           `json:"counts"`
}

// Service aggregates dashboard data.
type Service struct {
	api API
}

// NewService constructs a Service.
func NewService(api API) *Service {
	return &Service{api: api}
}

// Summary fans out the section counts in parallel. Each count is gated by
// the same permission that gates its page; sections the user cannot see
// are never requested. A failing section zeroes its own count but does not
// fail the page.
func (s *Service) Summary(ctx context.Context, user *shared.UserSnapshot, token string) (Summary, error) {
	out := Summary{
		Nav:    authz.VisibleFor(user.Permissions),
		Counts: Counts{Orders: -1, Products: -1, Customers: -1, Stores: -1},
	}

	countParams := query.Params{Page: 1, Limit: 1}.Normalize()
	g, ctx := errgroup.WithContext(ctx)
	var mu sync.Mutex

	if authz.Allow(user.Permissions, []string{authz.PermOrderView}, authz.Any) {
		g.Go(func() error {
			page, err := s.api.ListOrders(ctx, token, countParams)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				out.Counts.Orders = 0
				return nil
			}
			out.Counts.Orders = page.Total
			return nil
		})
	}
	if authz.Allow(user.Permissions, []string{authz.PermProductView}, authz.Any) {
		g.Go(func() error {
			page, err := s.api.ListProducts(ctx, token, countParams)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				out.Counts.Products = 0
				return nil
			}
			out.Counts.Products = page.Pagination.Total
			return nil
		})
	}
	if authz.Allow(user.Permissions, []string{authz.PermCustomerView}, authz.Any) {
		g.Go(func() error {
			page, err := s.api.ListCustomers(ctx, token, countParams)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				out.Counts.Customers = 0
				return nil
			}
			out.Counts.Customers = page.Total
			return nil
		})
	}
	if authz.Allow(user.Permissions, []string{authz.PermStoreView, authz.PermStoreManage}, authz.Any) {
		g.Go(func() error {
			list, err := s.api.ListStores(ctx, token)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				out.Counts.Stores = 0
				return nil
			}
			out.Counts.Stores = len(list)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	return out, nil
}

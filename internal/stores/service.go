// Package stores manages the storefront registry.
package stores

import (
	"context"
	"fmt"

	"github.com/martdesk/martdesk/internal/platform/httpx"
	"github.com/martdesk/martdesk/internal/query"
	"github.com/martdesk/martdesk/internal/shared"
	"github.com/martdesk/martdesk/internal/upstream"
)

const resource = "stores"

// API is the slice of the upstream client this package consumes.
type API interface {
	ListStores(ctx context.Context, token string) ([]upstream.Store, error)
	CreateStore(ctx context.Context, token string, input upstream.CreateStoreInput) (upstream.Store, error)
	DeleteStore(ctx context.Context, token, id string) error
}

// Service fetches and mutates stores. Mutations bump the stores cache
// version so every cached listing is reissued on the next read.
type Service struct {
	api   API
	cache *query.Cache
}

// NewService constructs a Service.
func NewService(api API, cache *query.Cache) *Service {
	return &Service{api: api, cache: cache}
}

// List returns the stores visible to the user. The upstream endpoint is
// unpaginated; users with a restricted store list see only their own.
func (s *Service) List(ctx context.Context, user *shared.UserSnapshot, token string) ([]upstream.Store, error) {
	key, err := s.cache.BuildKey(ctx, resource, user.ID, query.Params{}.Normalize())
	if err != nil {
		return nil, err
	}

	var all []upstream.Store
	err = s.cache.FetchJSON(ctx, key, &all, func(ctx context.Context) (any, error) {
		return s.api.ListStores(ctx, token)
	})
	if err != nil {
		return nil, upstream.Shape(err)
	}

	if len(user.StoreIDs) == 0 {
		return all, nil
	}
	visible := make([]upstream.Store, 0, len(all))
	for _, store := range all {
		if user.CanAccessStore(store.ID) {
			visible = append(visible, store)
		}
	}
	return visible, nil
}

// Create registers a new store. The client credentials are forwarded and
// never echoed back.
func (s *Service) Create(ctx context.Context, token string, input upstream.CreateStoreInput) (upstream.Store, error) {
	store, err := s.api.CreateStore(ctx, token, input)
	if err != nil {
		return upstream.Store{}, upstream.Shape(err)
	}
	if err := s.cache.Bump(ctx, resource); err != nil {
		return store, fmt.Errorf("invalidate stores cache: %w", err)
	}
	return store, nil
}

// Delete removes a store.
func (s *Service) Delete(ctx context.Context, user *shared.UserSnapshot, token, id string) error {
	if id == "" {
		return fmt.Errorf("%w: store id is required", httpx.ErrValidation)
	}
	if !user.CanAccessStore(id) {
		return fmt.Errorf("%w: store not in your allowed list", httpx.ErrForbidden)
	}
	if err := s.api.DeleteStore(ctx, token, id); err != nil {
		return upstream.Shape(err)
	}
	if err := s.cache.Bump(ctx, resource); err != nil {
		return fmt.Errorf("invalidate stores cache: %w", err)
	}
	return nil
}

// Package uploads serves the failed-uploads diagnostic listing.
package uploads

import (
	"context"
	"fmt"

	"github.com/martdesk/martdesk/internal/platform/httpx"
	"github.com/martdesk/martdesk/internal/query"
	"github.com/martdesk/martdesk/internal/shared"
	"github.com/martdesk/martdesk/internal/upstream"
)

const resource = "failed-uploads"

// API is the slice of the upstream client this package consumes.
type API interface {
	ListFailedUploads(ctx context.Context, token string, p query.Params) (upstream.FailedUploadsPage, error)
}

// Service fetches rejected ingestion rows through the shared query cache.
type Service struct {
	api   API
	cache *query.Cache
}

// NewService constructs a Service.
func NewService(api API, cache *query.Cache) *Service {
	return &Service{api: api, cache: cache}
}

// List returns one page of failed uploads. The store filter accepts a
// multi-store selection; a single-entry selection collapses to the plain
// store filter so the cache key matches the equivalent single-store query.
func (s *Service) List(ctx context.Context, user *shared.UserSnapshot, token string, p query.Params) (upstream.FailedUploadsPage, error) {
	p = p.Normalize()
	if len(p.StoreIDs) == 1 {
		p.StoreID = p.StoreIDs[0]
		p.StoreIDs = nil
	}
	if !user.CanAccessStore(p.StoreID) {
		return upstream.FailedUploadsPage{}, fmt.Errorf("%w: store not in your allowed list", httpx.ErrForbidden)
	}
	for _, id := range p.StoreIDs {
		if !user.CanAccessStore(id) {
			return upstream.FailedUploadsPage{}, fmt.Errorf("%w: store not in your allowed list", httpx.ErrForbidden)
		}
	}

	key, err := s.cache.BuildKey(ctx, resource, user.ID, p)
	if err != nil {
		return upstream.FailedUploadsPage{}, err
	}

	var page upstream.FailedUploadsPage
	err = s.cache.FetchJSON(ctx, key, &page, func(ctx context.Context) (any, error) {
		return s.api.ListFailedUploads(ctx, token, p)
	})
	if err != nil {
		return upstream.FailedUploadsPage{}, upstream.Shape(err)
	}
	return page, nil
}

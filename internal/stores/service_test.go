package stores

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martdesk/martdesk/internal/platform/httpx"
	"github.com/martdesk/martdesk/internal/query"
	"github.com/martdesk/martdesk/internal/shared"
	"github.com/martdesk/martdesk/internal/upstream"
)

type stubAPI struct {
	stores    []upstream.Store
	listCalls int
	deleted   []string
	err       error
}

func (s *stubAPI) ListStores(context.Context, string) ([]upstream.Store, error) {
	s.listCalls++
	return s.stores, s.err
}

func (s *stubAPI) CreateStore(_ context.Context, _ string, input upstream.CreateStoreInput) (upstream.Store, error) {
	if s.err != nil {
		return upstream.Store{}, s.err
	}
	store := upstream.Store{ID: "new", Name: input.Name, Email: input.Email, Status: upstream.StoreStatusPending}
	s.stores = append(s.stores, store)
	return store, nil
}

func (s *stubAPI) DeleteStore(_ context.Context, _ string, id string) error {
	if s.err != nil {
		return s.err
	}
	s.deleted = append(s.deleted, id)
	return nil
}

func cachedService(t *testing.T, api *stubAPI) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewService(api, query.NewCache(client, time.Minute))
}

func TestListFiltersToAllowedStores(t *testing.T) {
	api := &stubAPI{stores: []upstream.Store{{ID: "s1"}, {ID: "s2"}, {ID: "s3"}}}
	svc := NewService(api, query.NewCache(nil, time.Minute))

	user := &shared.UserSnapshot{ID: "u1", StoreIDs: []string{"s1", "s3"}}
	list, err := svc.List(context.Background(), user, "tok")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "s1", list[0].ID)
	assert.Equal(t, "s3", list[1].ID)
}

func TestListUnrestrictedUserSeesAll(t *testing.T) {
	api := &stubAPI{stores: []upstream.Store{{ID: "s1"}, {ID: "s2"}}}
	svc := NewService(api, query.NewCache(nil, time.Minute))

	list, err := svc.List(context.Background(), &shared.UserSnapshot{ID: "u1"}, "tok")
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestCreateBumpsCachedListing(t *testing.T) {
	api := &stubAPI{stores: []upstream.Store{{ID: "s1"}}}
	svc := cachedService(t, api)
	ctx := context.Background()
	user := &shared.UserSnapshot{ID: "u1"}

	_, err := svc.List(ctx, user, "tok")
	require.NoError(t, err)
	_, err = svc.List(ctx, user, "tok")
	require.NoError(t, err)
	assert.Equal(t, 1, api.listCalls, "second read must come from cache")

	_, err = svc.Create(ctx, "tok", upstream.CreateStoreInput{Name: "North", Email: "north@example.com"})
	require.NoError(t, err)

	list, err := svc.List(ctx, user, "tok")
	require.NoError(t, err)
	assert.Equal(t, 2, api.listCalls, "mutation must force a fresh read")
	assert.Len(t, list, 2)
}

func TestDeleteBumpsCachedListing(t *testing.T) {
	api := &stubAPI{stores: []upstream.Store{{ID: "s1"}, {ID: "s2"}}}
	svc := cachedService(t, api)
	ctx := context.Background()
	user := &shared.UserSnapshot{ID: "u1"}

	_, err := svc.List(ctx, user, "tok")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, user, "tok", "s2"))
	assert.Equal(t, []string{"s2"}, api.deleted)

	_, err = svc.List(ctx, user, "tok")
	require.NoError(t, err)
	assert.Equal(t, 2, api.listCalls)
}

func TestDeleteRejectsForeignStore(t *testing.T) {
	api := &stubAPI{}
	svc := NewService(api, query.NewCache(nil, time.Minute))

	user := &shared.UserSnapshot{ID: "u1", StoreIDs: []string{"s1"}}
	err := svc.Delete(context.Background(), user, "tok", "s9")
	assert.ErrorIs(t, err, httpx.ErrForbidden)
	assert.Empty(t, api.deleted)
}

func TestDeleteRequiresID(t *testing.T) {
	svc := NewService(&stubAPI{}, query.NewCache(nil, time.Minute))
	err := svc.Delete(context.Background(), &shared.UserSnapshot{ID: "u1"}, "tok", "")
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

package orders

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martdesk/martdesk/internal/authz"
	"github.com/martdesk/martdesk/internal/query"
	"github.com/martdesk/martdesk/internal/shared"
	"github.com/martdesk/martdesk/internal/upstream"
)

type stubAPI struct {
	page  upstream.OrdersPage
	err   error
	calls int
	last  query.Params
}

func (s *stubAPI) ListOrders(ctx context.Context, token string, p query.Params) (upstream.OrdersPage, error) {
	s.calls++
	s.last = p
	if s.err != nil {
		return upstream.OrdersPage{}, s.err
	}
	return s.page, nil
}

func (s *stubAPI) GetOrder(ctx context.Context, token, id string) (upstream.Order, error) {
	if s.err != nil {
		return upstream.Order{}, s.err
	}
	return upstream.Order{ID: id}, nil
}

func newRequestWithUser(t *testing.T, target string, user shared.UserSnapshot) *http.Request {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	sm := shared.NewSessionManager(client, "martdesk_session", "secret", time.Hour, false)

	req := httptest.NewRequest(http.MethodGet, target, nil)
	sess, err := sm.Load(req.Context(), req)
	require.NoError(t, err)
	sess.SetUser(user, "tok-1")
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func newHandler(api *stubAPI) *Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := NewService(api, query.NewCache(nil, time.Minute))
	return NewHandler(logger, service, authz.Middleware{})
}

func TestListRendersPaginationAndRange(t *testing.T) {
	api := &stubAPI{page: upstream.OrdersPage{
		Orders: []upstream.Order{{ID: "o1"}, {ID: "o2"}},
		Total:  45, Page: 2, Limit: 20, Pages: 3,
	}}
	h := newHandler(api)

	req := newRequestWithUser(t, "/orders?page=2&limit=20", shared.UserSnapshot{ID: "u1", Permissions: []string{authz.PermOrderView}})
	rec := httptest.NewRecorder()
	h.List(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Orders     []upstream.Order `json:"orders"`
		Pagination query.Pagination `json:"pagination"`
		Range      string           `json:"range"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Orders, 2)
	assert.Equal(t, 3, body.Pagination.Pages)
	assert.Equal(t, "Showing 21 to 40 of 45", body.Range)
}

func TestListRejectsStoreOutsideAllowedList(t *testing.T) {
	api := &stubAPI{}
	h := newHandler(api)

	user := shared.UserSnapshot{ID: "u1", Permissions: []string{authz.PermOrderView}, StoreIDs: []string{"s1"}}
	req := newRequestWithUser(t, "/orders?storeId=s9", user)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Zero(t, api.calls, "denied request must not reach upstream")
}

func TestListSurfacesUpstreamFailureAsProblem(t *testing.T) {
	api := &stubAPI{err: &upstream.Error{Status: 503, Message: "orders service unavailable"}}
	h := newHandler(api)

	req := newRequestWithUser(t, "/orders", shared.UserSnapshot{ID: "u1", Permissions: []string{authz.PermOrderView}})
	rec := httptest.NewRecorder()
	h.List(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	var problem struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Contains(t, problem.Detail, "orders service unavailable")
}

func TestGuardBlocksWithoutOrderView(t *testing.T) {
	api := &stubAPI{}
	h := newHandler(api)

	guard := authz.Middleware{}
	protected := guard.RequireAny(authz.PermOrderView)(http.HandlerFunc(h.List))

	req := newRequestWithUser(t, "/orders", shared.UserSnapshot{ID: "u1", Permissions: []string{authz.PermProductView}})
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	var problem struct {
		Redirect string `json:"redirect"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, "/dashboard", problem.Redirect, "denial must navigate away, never a blank page")
	assert.Zero(t, api.calls)
}

func TestListExposesBoundaryControls(t *testing.T) {
	api := &stubAPI{page: upstream.OrdersPage{
		Orders: []upstream.Order{{ID: "o1"}},
		Total:  45, Page: 3, Limit: 20, Pages: 3,
	}}
	h := newHandler(api)

	req := newRequestWithUser(t, "/orders?page=3&limit=20", shared.UserSnapshot{ID: "u1", Permissions: []string{authz.PermOrderView}})
	rec := httptest.NewRecorder()
	h.List(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Pagination struct {
			HasPrev bool `json:"hasPrev"`
			HasNext bool `json:"hasNext"`
		} `json:"pagination"`
		HasFilters bool `json:"hasFilters"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Pagination.HasPrev)
	assert.False(t, body.Pagination.HasNext, "last page must disable the next control")
	assert.False(t, body.HasFilters, "page and limit alone are not filters")
}

func TestListRemembersFiltersAcrossVisits(t *testing.T) {
	api := &stubAPI{page: upstream.OrdersPage{Page: 1, Limit: 10}}
	h := newHandler(api)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	sm := shared.NewSessionManager(client, "martdesk_session", "secret", time.Hour, false)

	first := httptest.NewRequest(http.MethodGet, "/orders?page=4&search=mug", nil)
	sess, err := sm.Load(first.Context(), first)
	require.NoError(t, err)
	sess.SetUser(shared.UserSnapshot{ID: "u1", Permissions: []string{authz.PermOrderView}}, "tok-1")

	h.List(httptest.NewRecorder(), first.WithContext(shared.ContextWithSession(first.Context(), sess)))
	assert.Equal(t, 4, api.last.Page)
	assert.Equal(t, "mug", api.last.Search)

	// A changed search against the remembered tuple lands on page one.
	second := httptest.NewRequest(http.MethodGet, "/orders?page=4&search=glass", nil)
	h.List(httptest.NewRecorder(), second.WithContext(shared.ContextWithSession(second.Context(), sess)))
	assert.Equal(t, 1, api.last.Page)
	assert.Equal(t, "glass", api.last.Search)

	// Reset clears the stored filters, keeping the page size.
	third := httptest.NewRequest(http.MethodGet, "/orders?limit=10&reset=1", nil)
	h.List(httptest.NewRecorder(), third.WithContext(shared.ContextWithSession(third.Context(), sess)))
	assert.Empty(t, api.last.Search)
	assert.Equal(t, 1, api.last.Page)
}

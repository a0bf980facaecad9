package dashboard

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martdesk/martdesk/internal/authz"
	"github.com/martdesk/martdesk/internal/query"
	"github.com/martdesk/martdesk/internal/shared"
	"github.com/martdesk/martdesk/internal/upstream"
)

type stubAPI struct {
	orderCalls    atomic.Int32
	productCalls  atomic.Int32
	customerCalls atomic.Int32
	storeCalls    atomic.Int32
	ordersErr     error
}

func (s *stubAPI) ListOrders(context.Context, string, query.Params) (upstream.OrdersPage, error) {
	s.orderCalls.Add(1)
	if s.ordersErr != nil {
		return upstream.OrdersPage{}, s.ordersErr
	}
	return upstream.OrdersPage{Total: 12}, nil
}

func (s *stubAPI) ListProducts(context.Context, string, query.Params) (upstream.ProductsPage, error) {
	s.productCalls.Add(1)
	var page upstream.ProductsPage
	page.Pagination.Total = 34
	return page, nil
}

func (s *stubAPI) ListCustomers(context.Context, string, query.Params) (upstream.CustomersPage, error) {
	s.customerCalls.Add(1)
	return upstream.CustomersPage{Total: 7}, nil
}

func (s *stubAPI) ListStores(context.Context, string) ([]upstream.Store, error) {
	s.storeCalls.Add(1)
	return []upstream.Store{{ID: "s1"}, {ID: "s2"}}, nil
}

func TestSummaryCountsOnlyPermittedSections(t *testing.T) {
	api := &stubAPI{}
	svc := NewService(api)

	user := &shared.UserSnapshot{ID: "u1", Permissions: []string{authz.PermOrderView, authz.PermStoreView}}
	summary, err := svc.Summary(context.Background(), user, "tok")
	require.NoError(t, err)

	assert.Equal(t, 12, summary.Counts.Orders)
	assert.Equal(t, 2, summary.Counts.Stores)
	assert.Equal(t, -1, summary.Counts.Products, "hidden section stays at -1")
	assert.Equal(t, -1, summary.Counts.Customers)
	assert.Zero(t, api.productCalls.Load(), "hidden section must not be requested")
	assert.Zero(t, api.customerCalls.Load())
}

func TestSummaryNavMatchesPermissions(t *testing.T) {
	svc := NewService(&stubAPI{})

	user := &shared.UserSnapshot{ID: "u1", Permissions: []string{authz.PermOrderView}}
	summary, err := svc.Summary(context.Background(), user, "tok")
	require.NoError(t, err)

	var labels []string
	for _, entry := range summary.Nav {
		labels = append(labels, entry.Label)
	}
	assert.Contains(t, labels, "Dashboard")
	assert.Contains(t, labels, "Orders")
	assert.NotContains(t, labels, "Stores")
}

func TestSummarySurvivesOneFailingSection(t *testing.T) {
	api := &stubAPI{ordersErr: errors.New("upstream down")}
	svc := NewService(api)

	user := &shared.UserSnapshot{ID: "u1", Permissions: []string{
		authz.PermOrderView, authz.PermCustomerView,
	}}
	summary, err := svc.Summary(context.Background(), user, "tok")
	require.NoError(t, err)

	assert.Zero(t, summary.Counts.Orders, "failed section reports zero, not an error page")
	assert.Equal(t, 7, summary.Counts.Customers)
}

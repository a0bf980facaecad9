package auth

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martdesk/martdesk/internal/shared"
	"github.com/martdesk/martdesk/internal/upstream"
)

type stubAPI struct {
	loginResult upstream.LoginResult
	loginErr    error
	loginCalls  int
	profile     upstream.User
	updated     upstream.User
}

func (s *stubAPI) Login(_ context.Context, email, password string) (upstream.LoginResult, error) {
	s.loginCalls++
	if s.loginErr != nil {
		return upstream.LoginResult{}, s.loginErr
	}
	return s.loginResult, nil
}

func (s *stubAPI) GetProfile(context.Context, string) (upstream.User, error) {
	return s.profile, nil
}

func (s *stubAPI) UpdateProfile(_ context.Context, _ string, input upstream.UpdateProfileInput) (upstream.User, error) {
	s.updated.Name = input.Name
	s.updated.Email = input.Email
	s.updated.Image = input.Image
	return s.updated, nil
}

type memoryRegistry struct {
	mu       sync.Mutex
	sessions map[string]string
}

func newMemoryRegistry() *memoryRegistry {
	return &memoryRegistry{sessions: map[string]string{}}
}

func (r *memoryRegistry) CreateSession(_ context.Context, id, userID string, _ time.Time, _, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id] = userID
	return nil
}

func (r *memoryRegistry) DeleteSession(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

func (r *memoryRegistry) DeleteExpiredBefore(context.Context, time.Time) (int64, error) {
	return 0, nil
}

type fixture struct {
	handler  *Handler
	api      *stubAPI
	registry *memoryRegistry
	sessions *shared.SessionManager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	api := &stubAPI{}
	registry := newMemoryRegistry()
	sm := shared.NewSessionManager(client, "martdesk_session", "secret", time.Hour, false)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(logger, NewService(api, registry), sm)
	return &fixture{handler: handler, api: api, registry: registry, sessions: sm}
}

func (f *fixture) loginRequest(t *testing.T, body string) (*http.Request, *shared.Session) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	sess, err := f.sessions.Load(req.Context(), req)
	require.NoError(t, err)
	return req.WithContext(shared.ContextWithSession(req.Context(), sess)), sess
}

func TestLoginStoresSnapshotAndRegistersSession(t *testing.T) {
	f := newFixture(t)
	f.api.loginResult = upstream.LoginResult{
		User: upstream.User{
			ID: "u1", Name: "Ada", Email: "ada@example.com",
			Permissions: []string{"order:view"},
			Stores:      []string{"s1"},
		},
		Token: "tok-xyz",
	}

	req, sess := f.loginRequest(t, `{"email":"ada@example.com","password":"hunter22"}`)
	rec := httptest.NewRecorder()
	f.handler.handleLogin(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	user := sess.User()
	require.NotNil(t, user)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, []string{"order:view"}, user.Permissions)
	assert.Equal(t, []string{"s1"}, user.StoreIDs)
	assert.Equal(t, "tok-xyz", sess.Token())
	assert.Equal(t, "u1", f.registry.sessions[sess.ID])

	var body struct {
		Redirect string `json:"redirect"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "/dashboard", body.Redirect)
	assert.NotContains(t, rec.Body.String(), "tok-xyz", "the upstream token never leaves the session")
}

func TestLoginValidatesFormBeforeUpstream(t *testing.T) {
	f := newFixture(t)

	req, _ := f.loginRequest(t, `{"email":"not-an-email","password":""}`)
	rec := httptest.NewRecorder()
	f.handler.handleLogin(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp struct {
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Fields, "Email")
	assert.Contains(t, resp.Fields, "Password")
	assert.Zero(t, f.api.loginCalls)
}

func TestLoginSurfacesUpstreamRejection(t *testing.T) {
	f := newFixture(t)
	f.api.loginErr = &upstream.Error{Status: 401, Message: "invalid credentials"}

	req, sess := f.loginRequest(t, `{"email":"ada@example.com","password":"wrong-pass"}`)
	rec := httptest.NewRecorder()
	f.handler.handleLogin(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid credentials")
	assert.Nil(t, sess.User())
}

func TestLogoutClearsSessionAndRegistry(t *testing.T) {
	f := newFixture(t)

	req, sess := f.loginRequest(t, "")
	sess.SetUser(shared.UserSnapshot{ID: "u1"}, "tok")
	f.registry.sessions[sess.ID] = "u1"

	rec := httptest.NewRecorder()
	f.handler.handleLogout(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, sess.User())
	assert.Empty(t, sess.Token())
	assert.NotContains(t, f.registry.sessions, sess.ID)
}

func TestUpdateProfileRefreshesSessionSnapshot(t *testing.T) {
	f := newFixture(t)
	f.api.updated = upstream.User{ID: "u1", Permissions: []string{"order:view"}}

	req, sess := f.loginRequest(t, "")
	sess.SetUser(shared.UserSnapshot{ID: "u1", Name: "Old Name"}, "tok")

	body := strings.NewReader(`{"name":"New Name","email":"new@example.com"}`)
	update := httptest.NewRequest(http.MethodPut, "/profile", body)
	update.Header.Set("Content-Type", "application/json")
	update = update.WithContext(req.Context())

	rec := httptest.NewRecorder()
	f.handler.updateProfile(rec, update)

	require.Equal(t, http.StatusOK, rec.Code)
	user := sess.User()
	require.NotNil(t, user)
	assert.Equal(t, "New Name", user.Name)
	assert.Equal(t, "new@example.com", user.Email)
}

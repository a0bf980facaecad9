// Package auth handles login against the upstream API and the local
// session lifecycle around it.
package auth

import (
	"context"
	"time"

	"github.com/martdesk/martdesk/internal/shared"
	"github.com/martdesk/martdesk/internal/upstream"
)

// API is the slice of the upstream client this package consumes.
// Credential verification happens upstream; the gateway only carries the
// returned token.
type API interface {
	Login(ctx context.Context, email, password string) (upstream.LoginResult, error)
	GetProfile(ctx context.Context, token string) (upstream.User, error)
	UpdateProfile(ctx context.Context, token string, input upstream.UpdateProfileInput) (upstream.User, error)
}

// Service wraps the authentication flow.
type Service struct {
	api  API
	repo Repository
}

// NewService constructs a new Service.
func NewService(api API, repo Repository) *Service {
	return &Service{api: api, repo: repo}
}

// Authenticate forwards the credentials upstream and returns the token
// with the snapshot to store in the session.
func (s *Service) Authenticate(ctx context.Context, email, password string) (shared.UserSnapshot, string, error) {
	result, err := s.api.Login(ctx, email, password)
	if err != nil {
		return shared.UserSnapshot{}, "", upstream.Shape(err)
	}
	return snapshotOf(result.User), result.Token, nil
}

// Profile fetches the caller's profile.
func (s *Service) Profile(ctx context.Context, token string) (upstream.User, error) {
	user, err := s.api.GetProfile(ctx, token)
	if err != nil {
		return upstream.User{}, upstream.Shape(err)
	}
	return user, nil
}

// UpdateProfile re-submits the edited profile and returns the refreshed
// snapshot so the session copy never drifts from the upstream record.
func (s *Service) UpdateProfile(ctx context.Context, token string, input upstream.UpdateProfileInput) (shared.UserSnapshot, error) {
	user, err := s.api.UpdateProfile(ctx, token, input)
	if err != nil {
		return shared.UserSnapshot{}, upstream.Shape(err)
	}
	return snapshotOf(user), nil
}

// RegisterSession records the login in the postgres session registry.
func (s *Service) RegisterSession(ctx context.Context, id, userID string, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, userID, expiresAt, ip, ua)
}

// RemoveSession deletes a session registry record.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}

func snapshotOf(user upstream.User) shared.UserSnapshot {
	return shared.UserSnapshot{
		ID:          user.ID,
		Name:        user.Name,
		Email:       user.Email,
		Role:        user.Role,
		Permissions: user.Permissions,
		StoreIDs:    user.Stores,
		Image:       user.Image,
	}
}

package authz

import (
	"log/slog"
	"net/http"

	"github.com/martdesk/martdesk/internal/platform/httpx"
	"github.com/martdesk/martdesk/internal/shared"
)

// Middleware wires permission guards for HTTP handlers. A denial never
// produces a silent blank page: the response carries a notification flash
// and a redirect hint for the dashboard.
type Middleware struct {
	Logger *slog.Logger
}

// RequireAuth ensures a logged-in session. Unauthenticated requests are
// pointed back to the login surface at "/", which itself stays reachable.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if shared.CurrentUser(r.Context()) == nil {
			httpx.ProblemRedirect(w, http.StatusUnauthorized, "Unauthorized", "please sign in to continue", "/")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAny ensures the current user holds at least one of the required
// permissions.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	return m.require(Any, perms)
}

// RequireAll ensures the current user holds every required permission.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	return m.require(All, perms)
}

func (m Middleware) require(mode Mode, perms []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := shared.CurrentUser(r.Context())
			if user == nil {
				httpx.ProblemRedirect(w, http.StatusUnauthorized, "Unauthorized", "please sign in to continue", "/")
				return
			}
			if Allow(user.Permissions, perms, mode) {
				next.ServeHTTP(w, r)
				return
			}
			if m.Logger != nil {
				m.Logger.Warn("permission denied",
					slog.String("path", r.URL.Path),
					slog.String("user", user.ID))
			}
			if sess := shared.SessionFromContext(r.Context()); sess != nil {
				sess.AddFlash(shared.FlashMessage{Kind: "error", Message: "You do not have access to that page"})
			}
			httpx.ProblemRedirect(w, http.StatusForbidden, "Forbidden", "missing required permission", "/dashboard")
		})
	}
}

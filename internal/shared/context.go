package shared

import "context"

type sessionContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// CurrentUser returns the authenticated user snapshot, nil when anonymous.
func CurrentUser(ctx context.Context) *UserSnapshot {
	sess := SessionFromContext(ctx)
	if sess == nil {
		return nil
	}
	return sess.User()
}

// CurrentToken returns the upstream API token for the request, empty when
// the caller is not authenticated.
func CurrentToken(ctx context.Context) string {
	sess := SessionFromContext(ctx)
	if sess == nil {
		return ""
	}
	return sess.Token()
}

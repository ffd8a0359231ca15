package tokenauth

import "context"

var authCtxKey = &contextKey{"authentication"}

type contextKey struct {
	name string
}

// WithAuthentication stores the Authentication in the given context.
func WithAuthentication(ctx context.Context, auth *Authentication) context.Context {
	return context.WithValue(ctx, authCtxKey, auth)
}

// AuthenticationFromContext finds the Authentication in the context.
func AuthenticationFromContext(ctx context.Context) (*Authentication, bool) {
	raw, ok := ctx.Value(authCtxKey).(*Authentication)
	return raw, ok
}

// UIDFromContext is a convenience for handlers that only need the caller
// identity. Blank when unauthenticated.
func UIDFromContext(ctx context.Context) string {
	auth, ok := AuthenticationFromContext(ctx)
	if !ok || !auth.IsAuthenticated() {
		return ""
	}
	return auth.UID()
}

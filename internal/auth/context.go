package auth

import "context"

type contextKey string

const identityKey contextKey = "traininglog-auth-identity"

// Identity describes the authenticated caller attached to a request.
type Identity struct {
	Username  string
	SessionID string
	CSRFToken string
}

// WithIdentity stores the identity on the context.
func WithIdentity(ctx context.Context, ident *Identity) context.Context {
	return context.WithValue(ctx, identityKey, ident)
}

// FromContext retrieves the identity stored by WithIdentity.
func FromContext(ctx context.Context) (*Identity, bool) {
	ident, ok := ctx.Value(identityKey).(*Identity)
	return ident, ok
}

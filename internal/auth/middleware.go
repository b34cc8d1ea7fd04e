package auth

import "net/http"

// Middleware resolves the session cookie and attaches the caller's identity
// to the request context. It never rejects a request itself; handlers guard
// with FromContext so unauthenticated paths like login still work.
type Middleware struct {
	manager *Manager
}

// NewMiddleware constructs Middleware over the session manager.
func NewMiddleware(manager *Manager) Middleware {
	return Middleware{manager: manager}
}

// Wrap attaches identity resolution to an http.Handler.
func (m Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s, ok := m.manager.Lookup(r); ok {
			ident := &Identity{
				Username:  s.Username,
				SessionID: s.ID,
				CSRFToken: s.CSRFToken,
			}
			r = r.WithContext(WithIdentity(r.Context(), ident))
		}
		next.ServeHTTP(w, r)
	})
}

package auth

import (
	"crypto/subtle"
	"net/http"
	"time"
)

// CookieName is the session cookie issued to the browser.
const CookieName = "traininglog_session"

// Manager issues, resolves and destroys browser sessions.
type Manager struct {
	store  Store
	secure bool
}

// NewManager constructs a Manager. With secure the cookie is marked Secure
// and SameSite=None so cross-origin frontends can send it over TLS.
func NewManager(store Store, secure bool) *Manager {
	return &Manager{store: store, secure: secure}
}

// Lookup resolves the request's session cookie. Expired or unknown cookies
// yield no session.
func (m *Manager) Lookup(r *http.Request) (*Session, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return nil, false
	}
	return m.store.Get(cookie.Value)
}

// Establish creates a fresh authenticated session for username and sets the
// cookie. Any prior session for the request is dropped first, so a login
// always rotates the session id (fixation defense).
func (m *Manager) Establish(w http.ResponseWriter, r *http.Request, username string) *Session {
	if old, ok := m.Lookup(r); ok {
		m.store.Delete(old.ID)
	}

	s := &Session{
		ID:        newToken(16),
		Username:  username,
		CSRFToken: newToken(32),
		LastSeen:  time.Now(),
	}
	m.store.Put(s)
	m.setCookie(w, s.ID, 0)
	return s
}

// Destroy clears the request's session state and expires the cookie
// immediately.
func (m *Manager) Destroy(w http.ResponseWriter, r *http.Request) {
	if s, ok := m.Lookup(r); ok {
		m.store.Delete(s.ID)
	}
	m.setCookie(w, "", -1)
}

func (m *Manager) setCookie(w http.ResponseWriter, value string, maxAge int) {
	cookie := &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.secure,
	}
	if m.secure {
		cookie.SameSite = http.SameSiteNoneMode
	}
	http.SetCookie(w, cookie)
}

// VerifyCSRF reports whether the request echoes the session's anti-forgery
// token. Comparison is constant time.
func VerifyCSRF(r *http.Request, ident *Identity) bool {
	token := r.Header.Get("X-CSRF-Token")
	if token == "" || ident.CSRFToken == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(ident.CSRFToken)) == 1
}

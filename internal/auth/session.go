// Package auth implements cookie-based session authentication with CSRF
// protection for the browser-facing API.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

// Session holds the server-side state for one authenticated browser.
type Session struct {
	ID        string
	Username  string
	CSRFToken string
	LastSeen  time.Time
}

// Store abstracts session persistence so sessions can live in memory
// (default) or in a shared backing store.
type Store interface {
	// Get retrieves a session by id. Returns false if the session does not
	// exist or has exceeded the idle timeout, in which case it is removed.
	Get(id string) (*Session, bool)
	// Put creates or updates a session.
	Put(s *Session)
	// Delete removes a session by id.
	Delete(id string)
}

// MemoryStore is the in-process Store implementation.
type MemoryStore struct {
	mu          sync.Mutex
	sessions    map[string]*Session
	idleTimeout time.Duration
}

// NewMemoryStore constructs a MemoryStore enforcing the given idle timeout.
func NewMemoryStore(idleTimeout time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions:    make(map[string]*Session),
		idleTimeout: idleTimeout,
	}
}

// Get returns the live session for id, touching its idle deadline. An idle
// session is dropped so the caller silently starts over unauthenticated.
func (m *MemoryStore) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	if time.Since(s.LastSeen) > m.idleTimeout {
		delete(m.sessions, id)
		return nil, false
	}
	s.LastSeen = time.Now()
	return s, true
}

// Put stores the session.
func (m *MemoryStore) Put(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
}

// Delete removes the session.
func (m *MemoryStore) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

func newToken(bytes int) string {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}

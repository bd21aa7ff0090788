package agent

import (
	"sync"

	"github.com/lingxi-album/backend/internal/model"
)

// DefaultSessionID is used when a caller omits conversation_id, per
// spec.md §4.7.
const DefaultSessionID = "default_session"

// SessionStore is the process-wide, concurrency-safe session map spec.md
// §5 requires: all mutations of the session map and a session's history
// happen under a per-collection lock.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*model.Session
}

// NewSessionStore creates an empty SessionStore.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*model.Session)}
}

// Resolve returns the session for id, creating it if absent, per
// spec.md §4.7 step 1. An empty id resolves to DefaultSessionID.
func (s *SessionStore) Resolve(id string) *model.Session {
	if id == "" {
		id = DefaultSessionID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		sess = model.NewSession(id)
		s.sessions[id] = sess
	}
	return sess
}

// Get returns the session for id without creating it.
func (s *SessionStore) Get(id string) (*model.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// WithLock runs fn while holding the store's lock, so callers can append
// history or mutate LastImages atomically with respect to other
// producers (the request handler and the point-cloud session monitor).
func (s *SessionStore) WithLock(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

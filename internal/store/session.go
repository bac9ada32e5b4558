package store

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/scangate/qrlogin-server-go/internal/model"
)

// ErrNotFound is returned when a session is absent from the store. Callers
// cannot distinguish an expired session from one that never existed.
var ErrNotFound = errors.New("session not found")

// SessionStore owns the authoritative state of every login session. All
// operations take the store-wide mutex, so per-id transitions never
// interleave. State is process-local and not persisted.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*model.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*model.Session),
	}
}

// Create allocates a pending session under a fresh id. Ids are uuids and
// never reused.
func (s *SessionStore) Create() *model.Session {
	session := &model.Session{
		ID:        uuid.NewString(),
		Status:    model.SessionStatusPending,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	return snapshot(session)
}

// Get returns a copy of the session, or false when absent.
func (s *SessionStore) Get(id string) (*model.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	return snapshot(session), true
}

// Authenticate transitions the session to authenticated, binds the user,
// and restarts the expiry clock so the longer authenticated TTL applies.
// Idempotent: re-confirming an authenticated session rebinds the user and
// refreshes the timestamp.
func (s *SessionStore) Authenticate(id, user string) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}

	session.Status = model.SessionStatusAuthenticated
	session.User = user
	session.CreatedAt = time.Now().UTC()

	return snapshot(session), nil
}

// Remove deletes the session and reports whether it existed.
func (s *SessionStore) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.sessions[id]
	delete(s.sessions, id)
	return ok
}

// Sweep evicts every session whose TTL for its current status has elapsed
// and returns the evicted ids. Pending sessions age against pendingTTL,
// authenticated ones against authedTTL.
func (s *SessionStore) Sweep(now time.Time, pendingTTL, authedTTL time.Duration) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var evicted []string
	for id, session := range s.sessions {
		ttl := pendingTTL
		if session.Status == model.SessionStatusAuthenticated {
			ttl = authedTTL
		}
		if now.Sub(session.CreatedAt) > ttl {
			delete(s.sessions, id)
			evicted = append(evicted, id)
		}
	}
	return evicted
}

// Len reports the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func snapshot(session *model.Session) *model.Session {
	copied := *session
	return &copied
}

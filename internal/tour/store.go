package tour

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"sort"
	"sync"
)

// SessionStore manages tour sessions in memory
type SessionStore struct {
	engine   *Engine
	sessions map[string]*Session
	mu       sync.RWMutex
}

// NewSessionStore creates a session store backed by engine
func NewSessionStore(engine *Engine) *SessionStore {
	return &SessionStore{
		engine:   engine,
		sessions: make(map[string]*Session),
	}
}

// Create starts a new session with a random id
func (s *SessionStore) Create() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := generateSessionID()
	for s.sessions[id] != nil {
		id = generateSessionID()
	}
	session := s.engine.NewSession(id)
	s.sessions[id] = session
	log.Printf("[SESSION] Created tour session: id=%s", id)
	return session
}

// Get returns a session or nil
func (s *SessionStore) Get(id string) *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[id]
}

// Update runs fn on a session while holding the store lock.
// Returns false if the session doesn't exist.
func (s *SessionStore) Update(id string, fn func(*Session)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	session := s.sessions[id]
	if session == nil {
		return false
	}
	fn(session)
	return true
}

// Delete removes a session and stops its monitor
func (s *SessionStore) Delete(id string) bool {
	s.mu.Lock()
	session := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if session == nil {
		return false
	}
	session.Close()
	log.Printf("[SESSION] Deleted tour session: id=%s", id)
	return true
}

// IDs returns every session id, sorted
func (s *SessionStore) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close stops every session's monitor
func (s *SessionStore) Close() {
	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	for _, session := range sessions {
		session.Close()
	}
	log.Printf("[SESSION] Closed all sessions: count=%d", len(sessions))
}

func generateSessionID() string {
	bytes := make([]byte, 16)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

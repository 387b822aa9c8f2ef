// Package memstore holds conversation sessions in process memory. Sessions
// are deliberately not durable: after a restart every user re-enters at the
// root state via session recovery.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/stroyrent/rentbot/internal/domain/session"
)

// SessionStore implements session.Store on a mutex-guarded map. The lock only
// protects the map itself; per-conversation ordering is the transport's job.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[int64]*session.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[int64]*session.Session)}
}

func (s *SessionStore) Get(_ context.Context, conversationID int64) (*session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[conversationID]
	if !ok {
		return nil, nil
	}
	return sess.Clone(), nil
}

func (s *SessionStore) Save(_ context.Context, sess *session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess.UpdatedAt = time.Now().UTC()
	s.sessions[sess.ConversationID] = sess.Clone()
	return nil
}

func (s *SessionStore) Update(_ context.Context, conversationID int64, fn func(*session.Session)) (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[conversationID]
	if !ok {
		sess = session.New(conversationID)
		s.sessions[conversationID] = sess
	}
	fn(sess)
	sess.UpdatedAt = time.Now().UTC()
	return sess.Clone(), nil
}

func (s *SessionStore) Reset(_ context.Context, conversationID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, conversationID)
	return nil
}

// Sweep evicts sessions idle for longer than ttl and returns how many were
// removed. Evicted users re-enter at the root state on their next action.
func (s *SessionStore) Sweep(ttl time.Duration) int {
	cutoff := time.Now().UTC().Add(-ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, sess := range s.sessions {
		if sess.UpdatedAt.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

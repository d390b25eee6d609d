package store

import (
	"context"
	"sync"
	"time"

	"github.com/DwirefS/ANF-AIOps-sub003/internal/domain"
	"github.com/DwirefS/ANF-AIOps-sub003/internal/logging"
)

// MemoryStore is the default in-memory session store. Expiry is enforced
// lazily on access and by a background sweep.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.ConversationSession
	log      *logging.Logger
	now      func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(log *logging.Logger) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*domain.ConversationSession),
		log:      log.Sub("store.memory"),
		now:      time.Now,
	}
}

// Get returns the session for a key. An expired session is removed and
// reported as ErrExpired.
func (m *MemoryStore) Get(key domain.SessionKey) (*domain.ConversationSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[key.String()]
	if !ok {
		return nil, nil
	}
	if sess.Expired(m.now()) {
		delete(m.sessions, key.String())
		return nil, ErrExpired
	}

	cp := cloneSession(sess)
	return &cp, nil
}

// Put stores or replaces the session for its key.
func (m *MemoryStore) Put(sess *domain.ConversationSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := cloneSession(sess)
	m.sessions[sess.Key.String()] = &cp
	return nil
}

// Delete removes the session for a key, if any.
func (m *MemoryStore) Delete(key domain.SessionKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, key.String())
	return nil
}

// Len returns the number of live sessions (expired ones included until
// swept or accessed).
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep removes all expired sessions and returns how many were removed.
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for key, sess := range m.sessions {
		if sess.Expired(now) {
			delete(m.sessions, key)
			removed++
		}
	}
	return removed
}

// StartSweeper runs Sweep on the given interval until ctx is cancelled.
func (m *MemoryStore) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := m.Sweep(); n > 0 {
					m.log.Debug().Int("removed", n).Msg("swept expired sessions")
				}
			}
		}
	}()
}

// cloneSession copies a session so callers never share the stored map.
func cloneSession(s *domain.ConversationSession) domain.ConversationSession {
	cp := *s
	cp.Params = make(map[string]string, len(s.Params))
	for k, v := range s.Params {
		cp.Params[k] = v
	}
	return cp
}

package storage

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/lehigh-university-libraries/vibetrack/internal/coordinator"
)

// Session is one user's coordinator, addressed by ID over HTTP
type Session struct {
	ID          string
	CreatedAt   time.Time
	Coordinator *coordinator.Coordinator

	// unix nanoseconds of the last Create or Get
	lastSeen atomic.Int64
}

// LastSeen reports when the session was last looked up
func (s *Session) LastSeen() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

type SessionStore struct {
	sessions map[string]*Session
	mu       sync.RWMutex
	now      func() time.Time
}

func New() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Create registers coord under a new random ID
func (s *SessionStore) Create(coord *coordinator.Coordinator) *Session {
	now := s.now()
	session := &Session{
		ID:          uuid.NewString(),
		CreatedAt:   now,
		Coordinator: coord,
	}
	session.lastSeen.Store(now.UnixNano())

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
	return session
}

func (s *SessionStore) Get(sessionID string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, exists := s.sessions[sessionID]
	if exists {
		session.lastSeen.Store(s.now().UnixNano())
	}
	return session, exists
}

// GetAll returns every session, oldest first
func (s *SessionStore) GetAll() []*Session {
	s.mu.RLock()
	result := make([]*Session, 0, len(s.sessions))
	for _, v := range s.sessions {
		result = append(result, v)
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

// Delete removes the session and closes its coordinator, releasing its
// previews. It reports whether the session existed.
func (s *SessionStore) Delete(sessionID string) bool {
	s.mu.Lock()
	session, exists := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	if exists {
		session.Coordinator.Close()
	}
	return exists
}

// CloseAll closes and forgets every session, returning how many there were
func (s *SessionStore) CloseAll() int {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	for _, session := range sessions {
		session.Coordinator.Close()
	}
	return len(sessions)
}

// EvictIdle closes and forgets every session not looked up within maxIdle,
// returning how many were removed. maxIdle <= 0 evicts nothing.
func (s *SessionStore) EvictIdle(maxIdle time.Duration) int {
	if maxIdle <= 0 {
		return 0
	}
	cutoff := s.now().Add(-maxIdle).UnixNano()

	var stale []*Session
	s.mu.Lock()
	for id, session := range s.sessions {
		if session.lastSeen.Load() < cutoff {
			stale = append(stale, session)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, session := range stale {
		session.Coordinator.Close()
		slog.Debug("Evicted idle session", "id", session.ID, "last_seen", session.LastSeen())
	}
	return len(stale)
}

// EvictIdleEvery runs EvictIdle on each tick of interval until ctx is done
func (s *SessionStore) EvictIdleEvery(ctx context.Context, interval, maxIdle time.Duration) {
	if interval <= 0 || maxIdle <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.EvictIdle(maxIdle); n > 0 {
				slog.Info("Evicted idle sessions", "count", n, "max_idle", maxIdle)
			}
		}
	}
}

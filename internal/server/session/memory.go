package session

import (
	"context"
	"sync"
	"time"

	"github.com/camazac/realty/internal/models"
	"github.com/camazac/realty/internal/server/storage"
)

var _ storage.SessionStorage = (*MemoryStore)(nil)

// MemoryStore keeps sessions in process memory.
// Sessions are lost on restart.
type MemoryStore struct {
	sessions map[string]models.Session
	now      func() time.Time
	stopC    chan struct{}
	stopOnce sync.Once
	mu       sync.RWMutex
}

// NewMemoryStore создает in-memory хранилище
// Если sweepInterval > 0, запускается периодическая очистка истекших сессий
func NewMemoryStore(sweepInterval time.Duration) *MemoryStore {
	s := &MemoryStore{
		sessions: make(map[string]models.Session),
		now:      time.Now,
		stopC:    make(chan struct{}),
	}

	if sweepInterval > 0 {
		go s.cleanup(sweepInterval)
	}

	return s
}

// cleanup периодически удаляет истекшие сессии
func (s *MemoryStore) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_, _ = s.DeleteExpiredSessions(context.Background())
		case <-s.stopC:
			return
		}
	}
}

// Close останавливает cleanup goroutine
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopC) })
	return nil
}

// SaveSession stores a session
func (s *MemoryStore) SaveSession(ctx context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.Token] = *session
	return nil
}

// GetSession retrieves session by token
func (s *MemoryStore) GetSession(ctx context.Context, token string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[token]
	if !ok {
		return nil, storage.ErrSessionNotFound
	}
	return &session, nil
}

// DeleteSession deletes session by token
func (s *MemoryStore) DeleteSession(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, token)
	return nil
}

// DeleteExpiredSessions removes all expired sessions
func (s *MemoryStore) DeleteExpiredSessions(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	deleted := 0
	for token, session := range s.sessions {
		if session.Expired(now) {
			delete(s.sessions, token)
			deleted++
		}
	}
	return deleted, nil
}

// Len returns the number of stored sessions
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

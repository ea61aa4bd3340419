package adapters

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/satriahrh/agribot/domain/entities"
	"github.com/satriahrh/agribot/domain/repositories"
)

// MemorySessionRepository keeps live sessions in process memory.
// Sessions are dropped on expiry, deletion or restart; nothing is persisted.
type MemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*entities.Session // id -> session mapping
}

var _ repositories.SessionRepository = (*MemorySessionRepository)(nil)

func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{
		sessions: make(map[string]*entities.Session),
	}
}

// Create starts a new session with the given display language
func (m *MemorySessionRepository) Create(ctx context.Context, language entities.LanguageTag) (*entities.Session, error) {
	if language != "" && !language.Valid() {
		return nil, errors.New("unsupported language")
	}

	session := entities.NewSession(language)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = session
	return session, nil
}

// Get returns the live session. The pointer is shared on purpose: the session
// guards its own state.
func (m *MemorySessionRepository) Get(ctx context.Context, id string) (*entities.Session, error) {
	if id == "" {
		return nil, errors.New("session ID cannot be empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[id]
	if !exists {
		return nil, repositories.ErrSessionNotFound
	}
	return session, nil
}

func (m *MemorySessionRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[id]; !exists {
		return repositories.ErrSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}

// ExpireIdle removes every session inactive for longer than ttl
func (m *MemorySessionRepository) ExpireIdle(ctx context.Context, ttl time.Duration) (int, error) {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, session := range m.sessions {
		if session.IsIdle(ttl, now) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed, nil
}

func (m *MemorySessionRepository) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

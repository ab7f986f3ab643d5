package repo

import (
	"context"
	"sync"
	"time"

	"github.com/campfinder-assistant/server/internal/agent/model"
)

// MemorySessionStore keeps sessions in process memory. It is the default store and
// the fake used by tests.
type MemorySessionStore struct {
	mu           sync.RWMutex
	sessions     map[string]*model.ConversationSession
	history      map[string][]model.HistoryEntry
	historyLimit int
}

func NewMemorySessionStore(historyLimit int) *MemorySessionStore {
	if historyLimit <= 0 {
		historyLimit = model.DefaultHistoryLimit
	}
	return &MemorySessionStore{
		sessions:     make(map[string]*model.ConversationSession),
		history:      make(map[string][]model.HistoryEntry),
		historyLimit: historyLimit,
	}
}

func (m *MemorySessionStore) Get(ctx context.Context, userID string) (*model.ConversationSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[userID]
	if !ok {
		return nil, model.ErrSessionNotFound
	}
	return s.Clone(), nil
}

func (m *MemorySessionStore) Put(ctx context.Context, session *model.ConversationSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[session.UserID] = session.Clone()
	return nil
}

func (m *MemorySessionStore) Delete(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, userID)
	delete(m.history, userID)
	return nil
}

func (m *MemorySessionStore) Sweep(ctx context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for userID, s := range m.sessions {
		if s.LastActivityAt.Before(cutoff) {
			delete(m.sessions, userID)
			delete(m.history, userID)
			removed++
		}
	}
	return removed, nil
}

func (m *MemorySessionStore) AppendHistory(ctx context.Context, userID string, entries ...model.HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	log := append(m.history[userID], entries...)
	if over := len(log) - m.historyLimit; over > 0 {
		log = append([]model.HistoryEntry(nil), log[over:]...)
	}
	m.history[userID] = log
	return nil
}

func (m *MemorySessionStore) History(ctx context.Context, userID string, limit int) ([]model.HistoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return trimTail(m.history[userID], limit), nil
}

// Len reports how many sessions are stored.
func (m *MemorySessionStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// trimTail copies the last n entries (all when n <= 0).
func trimTail(entries []model.HistoryEntry, n int) []model.HistoryEntry {
	if n <= 0 || len(entries) <= n {
		result := make([]model.HistoryEntry, len(entries))
		copy(result, entries)
		return result
	}
	source := entries[len(entries)-n:]
	result := make([]model.HistoryEntry, len(source))
	copy(result, source)
	return result
}

var _ model.SessionStore = (*MemorySessionStore)(nil)

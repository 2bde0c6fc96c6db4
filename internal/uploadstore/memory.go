package uploadstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore keeps sessions and chunks in process memory. It does not
// survive a restart and exists for dev deployments and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	chunks   map[string]map[int][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		chunks:   make(map[string]map[int][]byte),
	}
}

func (ms *MemoryStore) CreateSession(_ context.Context, s *Session) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	copied := *s
	ms.sessions[s.ID] = &copied
	ms.chunks[s.ID] = make(map[int][]byte)
	return nil
}

func (ms *MemoryStore) GetSession(_ context.Context, id string) (*Session, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	s, ok := ms.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	copied := *s
	return &copied, nil
}

func (ms *MemoryStore) PutChunk(_ context.Context, sessionID string, index int, payload []byte) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	chunks, ok := ms.chunks[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	copied := make([]byte, len(payload))
	copy(copied, payload)
	chunks[index] = copied
	return nil
}

func (ms *MemoryStore) Chunks(_ context.Context, sessionID string) ([]ChunkInfo, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	stored := ms.chunks[sessionID]
	chunks := make([]ChunkInfo, 0, len(stored))
	for idx, payload := range stored {
		chunks = append(chunks, ChunkInfo{Index: idx, Size: int64(len(payload))})
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Index < chunks[j].Index })
	return chunks, nil
}

func (ms *MemoryStore) ChunkPayload(_ context.Context, sessionID string, index int) ([]byte, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	payload, ok := ms.chunks[sessionID][index]
	if !ok {
		return nil, fmt.Errorf("chunk %d not found for session %s", index, sessionID)
	}
	return payload, nil
}

func (ms *MemoryStore) DeleteSession(_ context.Context, id string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	delete(ms.sessions, id)
	delete(ms.chunks, id)
	return nil
}

func (ms *MemoryStore) ListSessions(_ context.Context) ([]*Session, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	sessions := make([]*Session, 0, len(ms.sessions))
	for _, s := range ms.sessions {
		copied := *s
		sessions = append(sessions, &copied)
	}
	return sessions, nil
}

func (ms *MemoryStore) Close() error {
	return nil
}

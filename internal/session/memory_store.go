package session

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore is the registry used when no Redis URL is configured. It does
// not survive restarts.
type MemoryStore struct {
	mu      sync.Mutex
	now     func() time.Time
	records map[string]memoryEntry
}

type memoryEntry struct {
	record    Record
	expiresAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now, records: map[string]memoryEntry{}}
}

func (s *MemoryStore) SaveSession(_ context.Context, jti string, record Record, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !expiresAt.After(s.now()) {
		return fmt.Errorf("save session: already expired")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = s.now().UTC()
	}
	s.records[jti] = memoryEntry{record: record, expiresAt: expiresAt}
	return nil
}

func (s *MemoryStore) LookupSession(_ context.Context, jti string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.records[jti]
	if !ok {
		return Record{}, ErrNotFound
	}
	if !entry.expiresAt.After(s.now()) {
		delete(s.records, jti)
		return Record{}, ErrNotFound
	}
	return entry.record, nil
}

func (s *MemoryStore) RevokeSession(_ context.Context, jti string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, jti)
	return nil
}

func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

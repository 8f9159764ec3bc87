package srs

import (
	"context"
	"sort"
	"sync"
)

// Store persists WordRecords keyed by (language, word).
type Store interface {
	// Get returns ErrNotFound when no record exists.
	Get(ctx context.Context, language, word string) (WordRecord, error)
	Put(ctx context.Context, rec WordRecord) error
	// List returns every record for language; an empty language lists all.
	List(ctx context.Context, language string) ([]WordRecord, error)
	// Delete returns ErrNotFound when no record exists.
	Delete(ctx context.Context, language, word string) error
}

type recordKey struct {
	language string
	word     string
}

// MemoryStore is an in-process Store, mostly useful for tests and dry runs.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[recordKey]WordRecord
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[recordKey]WordRecord)}
}

func (m *MemoryStore) Get(ctx context.Context, language, word string) (WordRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[recordKey{language, word}]
	if !ok {
		return WordRecord{}, ErrNotFound
	}
	return rec.clone(), nil
}

func (m *MemoryStore) Put(ctx context.Context, rec WordRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[recordKey{rec.Language, rec.Word}] = rec.clone()
	return nil
}

func (m *MemoryStore) List(ctx context.Context, language string) ([]WordRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]WordRecord, 0, len(m.records))
	for k, rec := range m.records {
		if language != "" && k.language != language {
			continue
		}
		out = append(out, rec.clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Language != out[j].Language {
			return out[i].Language < out[j].Language
		}
		return out[i].Word < out[j].Word
	})
	return out, nil
}

func (m *MemoryStore) Delete(ctx context.Context, language, word string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := recordKey{language, word}
	if _, ok := m.records[k]; !ok {
		return ErrNotFound
	}
	delete(m.records, k)
	return nil
}

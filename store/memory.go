package store

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"
)

type inMemory struct {
	mu         sync.RWMutex
	storage    map[string]*Transcript
	maxEntries int
}

// NewMemoryStore returns the store that keeps the transcripts in the process memory.
// When maxEntries is positive, the oldest transcripts are evicted above the limit.
func NewMemoryStore(maxEntries int) TranscriptStore {
	return &inMemory{
		storage:    make(map[string]*Transcript),
		maxEntries: maxEntries,
	}
}

func (m *inMemory) Save(_ context.Context, t *Transcript) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *t
	m.storage[t.ID] = &cp

	if m.maxEntries > 0 && len(m.storage) > m.maxEntries {
		for _, old := range m.sorted()[m.maxEntries:] {
			delete(m.storage, old.ID)
		}
	}
	return nil
}

func (m *inMemory) Get(_ context.Context, id string) (*Transcript, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.storage[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *inMemory) List(_ context.Context, limit int) ([]*Transcript, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := m.sorted()
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	res := make([]*Transcript, 0, len(list))
	for _, t := range list {
		cp := *t
		res = append(res, &cp)
	}
	return res, nil
}

func (m *inMemory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.storage, id)
	return nil
}

func (m *inMemory) Cleanup(_ context.Context, olderThan time.Duration) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := TimeNowFn().Add(-olderThan)
	deleted := uint32(0)
	for id, t := range m.storage {
		if t.CreatedAt.Before(cutoff) {
			delete(m.storage, id)
			deleted++
		}
	}
	return deleted, nil
}

// sorted returns the transcripts, the most recent first
func (m *inMemory) sorted() []*Transcript {
	list := make([]*Transcript, 0, len(m.storage))
	for _, t := range m.storage {
		list = append(list, t)
	}
	slices.SortFunc(list, func(a, b *Transcript) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	return list
}

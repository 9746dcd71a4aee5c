// Package memory provides a bounded in-process LRU key-value store. It backs
// the embedding cache when no shared database is configured, keeping cache
// growth capped instead of unbounded.
package memory

import (
	"container/list"
	"context"
	"fmt"
	"sync"

	"github.com/campuskit/studyrag/internal/db"
)

// Compile-time check: Store implements db.KVStore.
var _ db.KVStore = (*Store)(nil)

// DefaultCapacity bounds the cache when no capacity is configured.
const DefaultCapacity = 4096

type entry struct {
	key   string
	value []byte
}

// Store is a thread-safe LRU map from key to value. Entries are evicted
// least-recently-used first once capacity is reached. Concurrent writers to
// the same key are last-writer-wins.
type Store struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*list.Element
	order    *list.List // front = most recently used
}

// NewStore creates an LRU store with the given capacity.
func NewStore(capacity int) (*Store, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("capacity must be positive, got %d", capacity)
	}
	return &Store{
		capacity: capacity,
		items:    make(map[string]*list.Element, capacity),
		order:    list.New(),
	}, nil
}

// Get returns the value for key and marks it recently used.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.items[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	s.order.MoveToFront(el)
	return el.Value.(*entry).value, nil
}

// Set stores the value, evicting the least-recently-used entry when full.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.items[key]; ok {
		el.Value.(*entry).value = value
		s.order.MoveToFront(el)
		return nil
	}

	if s.order.Len() >= s.capacity {
		oldest := s.order.Back()
		if oldest != nil {
			s.order.Remove(oldest)
			delete(s.items, oldest.Value.(*entry).key)
		}
	}

	s.items[key] = s.order.PushFront(&entry{key: key, value: value})
	return nil
}

// Len returns the number of cached entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}

package report

import (
	"container/list"
	"sync"
)

// LRUStore is an in-memory LRU cache that delegates to a backing Store on miss.
type LRUStore struct {
	mu    sync.Mutex
	cap   int
	back  Store
	order *list.List // front is most recently used; values are *RunResult
	items map[string]*list.Element
}

// NewLRUStore creates an LRU cache holding at most cap results that
// delegates to back on cache misses. cap is raised to 1 if smaller.
func NewLRUStore(cap int, back Store) *LRUStore {
	if cap < 1 {
		cap = 1
	}
	return &LRUStore{
		cap:   cap,
		back:  back,
		order: list.New(),
		items: make(map[string]*list.Element, cap),
	}
}

// Save caches the result and writes it through to the backing store.
func (s *LRUStore) Save(result *RunResult) error {
	s.mu.Lock()
	s.put(result)
	s.mu.Unlock()

	return s.back.Save(result)
}

// Load serves from the cache, falling back to the backing store and
// caching what it returns.
func (s *LRUStore) Load(runID string) (*RunResult, error) {
	s.mu.Lock()
	if el, ok := s.items[runID]; ok {
		s.order.MoveToFront(el)
		r := el.Value.(*RunResult)
		s.mu.Unlock()
		return r, nil
	}
	s.mu.Unlock()

	result, err := s.back.Load(runID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.put(result)
	s.mu.Unlock()
	return result, nil
}

// Len returns the number of cached results.
func (s *LRUStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}

// put must be called with s.mu held.
func (s *LRUStore) put(result *RunResult) {
	if el, ok := s.items[result.ID]; ok {
		el.Value = result
		s.order.MoveToFront(el)
		return
	}
	s.items[result.ID] = s.order.PushFront(result)
	for s.order.Len() > s.cap {
		oldest := s.order.Back()
		s.order.Remove(oldest)
		delete(s.items, oldest.Value.(*RunResult).ID)
	}
}

package repositories

import "sync"

// MockCounterRepository is an in-memory implementation of CounterRepository.
// The mutex-guarded map honors the same atomicity contract as the storage
// implementation, so concurrent callers still never share a value.
type MockCounterRepository struct {
	counters map[string]int64
	mu       sync.Mutex
}

// NewMockCounterRepository creates a new instance of MockCounterRepository.
func NewMockCounterRepository() *MockCounterRepository {
	return &MockCounterRepository{
		counters: make(map[string]int64),
	}
}

// Next increments the named counter and returns the new value.
func (r *MockCounterRepository) Next(name string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.counters[name]++
	return r.counters[name], nil
}

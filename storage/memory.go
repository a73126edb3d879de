package storage

import "sync"

// Memory is a process-local Storage for tests and callers that do not need
// persistence across restarts.
type Memory struct {
	mu sync.RWMutex
	m  map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{m: make(map[string][]byte)}
}

func (s *Memory) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.m[key]
	if !ok {
		return nil, nil
	}

	out := make([]byte, len(value))
	copy(out, value)

	return out, nil
}

func (s *Memory) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	s.m[key] = stored

	return nil
}

func (s *Memory) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.m, key)

	return nil
}

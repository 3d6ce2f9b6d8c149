package localstore

import "sync"

// MemoryStore keeps values in memory. Used by tests and by the CLI when no data dir is set.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string][]byte)}
}

func (ms *MemoryStore) Get(key string) ([]byte, bool, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	v, ok := ms.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (ms *MemoryStore) Set(key string, value []byte) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.values[key] = append([]byte(nil), value...)
	return nil
}

func (ms *MemoryStore) Delete(key string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	delete(ms.values, key)
	return nil
}

package localstore

import (
	"encoding/json"
	"fmt"
)

// Store is a small key/value persistence layer for client-side state
type Store interface {
	// Get returns the value for key and whether it was present
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Delete(key string) error
}

// GetJSON decodes the value stored under key into v.
// It reports false without error when the key is absent.
func GetJSON(s Store, key string, v any) (bool, error) {
	data, ok, err := s.Get(key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return true, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes v and stores it under key
func SetJSON(s Store, key string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return s.Set(key, data)
}

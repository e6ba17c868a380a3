package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"fintrack/internal/kv"
)

// Store keeps raw JSON documents in a map. Values are copied on the way in
// and out so callers never share buffers with the store.
type Store struct {
	mu    sync.Mutex
	items map[string]json.RawMessage
}

func New() *Store {
	return &Store{items: make(map[string]json.RawMessage)}
}

// NewFromFiles seeds the store from <base>/<key>.json for each collection key.
// Missing or malformed files are skipped.
func NewFromFiles(base string) *Store {
	s := New()
	for _, key := range kv.Keys() {
		raw := readDocument(filepath.Join(base, key+".json"))
		if raw != nil {
			s.items[key] = raw
		}
	}
	return s
}

func (s *Store) Get(_ context.Context, key string) (json.RawMessage, error) {
	if err := kv.ValidateKey(key); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.items[key]
	if !ok {
		return nil, fmt.Errorf("get %q: %w", key, kv.ErrNotFound)
	}
	return clone(v), nil
}

func (s *Store) Set(_ context.Context, key string, value json.RawMessage) error {
	if err := kv.ValidateKey(key); err != nil {
		return err
	}
	if !json.Valid(value) {
		return fmt.Errorf("set %q: value is not valid JSON", key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = clone(value)
	return nil
}

// Delete removes key. Deleting a missing key succeeds.
func (s *Store) Delete(_ context.Context, key string) error {
	if err := kv.ValidateKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

// Len returns the number of stored keys.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func readDocument(path string) json.RawMessage {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || strings.HasPrefix(string(b), "#") || !json.Valid(b) {
		return nil
	}
	return b
}

func clone(v json.RawMessage) json.RawMessage {
	return append(json.RawMessage(nil), v...)
}

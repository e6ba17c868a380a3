// Package kv defines the key-value contract the domain store persists through.
//
// A Store holds one JSON document per key. The four well-known keys hold the
// whole transactions, goals, subscriptions and settings collections; every
// write is a full overwrite and the last write wins.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Well-known keys, one per collection.
const (
	KeyTransactions  = "transactions"
	KeyGoals         = "goals"
	KeySubscriptions = "subscriptions"
	KeySettings      = "settings"
)

var (
	// ErrNotFound is returned by Get when the key has never been written.
	ErrNotFound = errors.New("kv: key not found")
	// ErrUnavailable wraps network, status and storage failures.
	ErrUnavailable = errors.New("kv: store unavailable")
	// ErrInvalidKey is returned for keys outside the accepted alphabet.
	ErrInvalidKey = errors.New("kv: invalid key")
)

// Store is implemented by every backend.
type Store interface {
	Get(ctx context.Context, key string) (json.RawMessage, error)
	Set(ctx context.Context, key string, value json.RawMessage) error
	Delete(ctx context.Context, key string) error
}

// StatusError carries an unexpected HTTP status from the remote service.
type StatusError struct {
	Op     string
	Key    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("kv %s %q: status %d", e.Op, e.Key, e.Status)
	}
	return fmt.Sprintf("kv %s %q: status %d: %s", e.Op, e.Key, e.Status, e.Body)
}

// Unwrap lets errors.Is(err, ErrUnavailable) match status failures.
func (e *StatusError) Unwrap() error { return ErrUnavailable }

// Keys lists the collection keys in load order.
func Keys() []string {
	return []string{KeyTransactions, KeyGoals, KeySubscriptions, KeySettings}
}

// IsCollectionKey reports whether key is one of the four collection keys.
func IsCollectionKey(key string) bool {
	switch key {
	case KeyTransactions, KeyGoals, KeySubscriptions, KeySettings:
		return true
	}
	return false
}

// ValidateKey accepts non-empty keys of at most 128 bytes without control
// characters or slashes.
func ValidateKey(key string) error {
	if key == "" || len(key) > 128 {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, r := range key {
		if r < 0x20 || r == 0x7f || r == '/' {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}

// GetJSON reads key and decodes it into T.
func GetJSON[T any](ctx context.Context, s Store, key string) (T, error) {
	var out T
	raw, err := s.Get(ctx, key)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode %s: %w", key, err)
	}
	return out, nil
}

// SetJSON encodes v and writes it under key.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, raw)
}

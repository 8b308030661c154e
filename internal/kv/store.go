// Package kv provides the key-value stores that hold checkpoints, autosave
// snapshots and saved projects. Every backend overwrites a key in full on
// each write.
package kv

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Store is a byte-valued key-value store.
type Store interface {
	// Get returns the value for key and whether it exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

var ErrEmptyKey = errors.New("kv: empty key")

func checkKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrEmptyKey
	}
	return nil
}

// fileName maps a key to a single path segment.
func fileName(key string) string {
	return url.PathEscape(key) + ".json"
}

func keyFromFileName(name string) (string, error) {
	trimmed := strings.TrimSuffix(name, ".json")
	key, err := url.PathUnescape(trimmed)
	if err != nil {
		return "", fmt.Errorf("decode key %q: %w", name, err)
	}
	return key, nil
}

// Package objectstore is an opaque durable blob store addressed by slash
// separated keys.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound   = errors.New("object not found")
	ErrInvalidKey = errors.New("invalid object key")
)

type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// Put replaces the object atomically.
	Put(ctx context.Context, key string, data []byte) error
	// List returns the keys starting with prefix in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// DeletePrefix removes every object under prefix and returns how many were
// deleted.
func DeletePrefix(ctx context.Context, s Store, prefix string) (int, error) {
	keys, err := s.List(ctx, prefix)
	if err != nil {
		return 0, fmt.Errorf("list %q: %w", prefix, err)
	}

	for i, key := range keys {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if err := s.Delete(ctx, key); err != nil {
			return i, fmt.Errorf("delete %q: %w", key, err)
		}
	}
	return len(keys), nil
}

func validateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.HasSuffix(key, "/") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}

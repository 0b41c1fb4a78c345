// Package store is the snapshot store: JSON documents addressed by logical
// slash-separated keys (e.g. "account/SHIBUYA/2025-01-15",
// "timeseries/SHIBUYA"). Writes are idempotent (identical content is not
// rewritten) and atomic by replacement.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no document exists under a key.
var ErrNotFound = errors.New("snapshot not found")

// Repository persists and retrieves JSON snapshot documents.
type Repository interface {
	// Get unmarshals the document at key into out.
	Get(ctx context.Context, key string, out any) error

	// Put writes doc at key unless the serialized content is identical to
	// what is already stored. It reports whether anything was written.
	Put(ctx context.Context, key string, doc any) (changed bool, err error)

	// List returns all keys under prefix, sorted ascending.
	List(ctx context.Context, prefix string) ([]string, error)

	// Ping reports whether the backing medium is reachable.
	Ping(ctx context.Context) error
}

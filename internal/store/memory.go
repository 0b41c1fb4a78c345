package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemoryRepository is an in-memory Repository for tests and development.
// It mirrors the filesystem semantics, including write-if-changed.
type MemoryRepository struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewMemoryRepository creates an empty in-memory snapshot store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{docs: make(map[string][]byte)}
}

func (r *MemoryRepository) Get(ctx context.Context, key string, out any) error {
	r.mu.RLock()
	content, ok := r.docs[key]
	r.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	if err := json.Unmarshal(content, out); err != nil {
		return fmt.Errorf("decode snapshot %s: %w", key, err)
	}
	return nil
}

func (r *MemoryRepository) Put(ctx context.Context, key string, doc any) (bool, error) {
	next, err := json.Marshal(doc)
	if err != nil {
		return false, fmt.Errorf("encode snapshot %s: %w", key, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.docs[key]; ok && bytes.Equal(current, next) {
		return false, nil
	}
	r.docs[key] = next
	return true, nil
}

func (r *MemoryRepository) List(ctx context.Context, prefix string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var keys []string
	for k := range r.docs {
		if prefix == "" || k == prefix || strings.HasPrefix(k, prefix+"/") {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (r *MemoryRepository) Ping(ctx context.Context) error { return nil }

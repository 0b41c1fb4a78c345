package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileSystemRepository implements Repository on a local directory tree.
// A key maps to root/<key>.json; intermediate directories are created on
// demand. This is the data-lake layout the static dashboard reads directly.
type FileSystemRepository struct {
	rootDir string
}

// NewFileSystemRepository creates a repository rooted at rootDir.
func NewFileSystemRepository(rootDir string) *FileSystemRepository {
	return &FileSystemRepository{rootDir: rootDir}
}

func (r *FileSystemRepository) pathFor(key string) (string, error) {
	if key == "" || strings.Contains(key, "..") || strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("invalid snapshot key %q", key)
	}
	return filepath.Join(r.rootDir, filepath.FromSlash(key)+".json"), nil
}

func (r *FileSystemRepository) Get(ctx context.Context, key string, out any) error {
	path, err := r.pathFor(key)
	if err != nil {
		return err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("read snapshot %s: %w", key, err)
	}
	if err := json.Unmarshal(content, out); err != nil {
		return fmt.Errorf("decode snapshot %s: %w", key, err)
	}
	return nil
}

// Put serializes doc and writes it unless the on-disk content already
// matches. The write goes through a temp file in the same directory followed
// by a rename, so readers always see either the previous or the new document
// in full.
func (r *FileSystemRepository) Put(ctx context.Context, key string, doc any) (bool, error) {
	path, err := r.pathFor(key)
	if err != nil {
		return false, err
	}
	next, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return false, fmt.Errorf("encode snapshot %s: %w", key, err)
	}
	next = append(next, '\n')

	if current, err := os.ReadFile(path); err == nil && bytes.Equal(current, next) {
		return false, nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("create snapshot dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return false, fmt.Errorf("create temp for %s: %w", key, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(next); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return false, fmt.Errorf("write snapshot %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return false, fmt.Errorf("close snapshot %s: %w", key, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return false, fmt.Errorf("replace snapshot %s: %w", key, err)
	}
	return true, nil
}

func (r *FileSystemRepository) List(ctx context.Context, prefix string) ([]string, error) {
	base := r.rootDir
	if prefix != "" {
		p, err := r.pathFor(prefix)
		if err != nil {
			return nil, err
		}
		base = strings.TrimSuffix(p, ".json")
	}

	var keys []string
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}
		rel, err := filepath.Rel(r.rootDir, path)
		if err != nil {
			return err
		}
		keys = append(keys, strings.TrimSuffix(filepath.ToSlash(rel), ".json"))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list snapshots under %q: %w", prefix, err)
	}
	sort.Strings(keys)
	return keys, nil
}

func (r *FileSystemRepository) Ping(ctx context.Context) error {
	if _, err := os.Stat(r.rootDir); err != nil {
		return fmt.Errorf("snapshot root %s not accessible: %w", r.rootDir, err)
	}
	return nil
}

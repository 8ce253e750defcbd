// Package handlecache persists the handle cache document.
package handlecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"postmatch/internal/models"
	"postmatch/internal/store"
)

var _ store.HandleCacheStore = (*FileStore)(nil)

// FileStore keeps the cache as a JSON file on local disk.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load returns an empty cache when the file does not exist yet.
func (s *FileStore) Load(_ context.Context) (map[string]models.HandleCacheEntry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]models.HandleCacheEntry{}, nil
		}
		return nil, fmt.Errorf("read handle cache %s: %w", s.path, err)
	}
	return decode(data)
}

// Save replaces the file atomically.
func (s *FileStore) Save(_ context.Context, entries map[string]models.HandleCacheEntry) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	b, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode handle cache: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write handle cache: %w", err)
	}
	return os.Rename(tmp, s.path)
}

func decode(data []byte) (map[string]models.HandleCacheEntry, error) {
	entries := map[string]models.HandleCacheEntry{}
	if len(data) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: corrupt document: %v", store.ErrCacheUnavailable, err)
	}
	return entries, nil
}

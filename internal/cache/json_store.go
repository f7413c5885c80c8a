package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/nao1215/sitepack/internal/model"
)

// JSONFileStore keeps the entry map in a single JSON file.
type JSONFileStore struct {
	path string
}

// NewJSONFileStore returns a store backed by the file at path.
// The file and its directory are created on the first Save.
func NewJSONFileStore(path string) *JSONFileStore {
	return &JSONFileStore{path: path}
}

// Path returns the file location.
func (s *JSONFileStore) Path() string {
	return s.path
}

// Load reads the entry map. A missing file is an empty cache.
func (s *JSONFileStore) Load(_ context.Context) (map[string]model.CacheEntry, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]model.CacheEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}
	if len(data) == 0 {
		return map[string]model.CacheEntry{}, nil
	}

	entries := make(map[string]model.CacheEntry)
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse cache file %s: %w", s.path, err)
	}
	return entries, nil
}

// Save writes the entry map through a temporary file and rename, so a
// crash mid-write leaves the previous file intact.
func (s *JSONFileStore) Save(_ context.Context, entries map[string]model.CacheEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cache: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".crawl-cache-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temporary cache file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close cache file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace cache file: %w", err)
	}
	return nil
}

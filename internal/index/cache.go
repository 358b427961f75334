package index

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"cambridge-collector/internal/types"
)

// SaveCache writes the index to a JSON cache file. The write is atomic
// (temp file + rename) and serialized against other processes via a
// sibling lock file.
func SaveCache(path string, idx *types.ProductIndex) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock cache file: %w", err)
	}
	defer lock.Unlock()

	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace cache file: %w", err)
	}
	return nil
}

// LoadCache reads a cached index. A missing file returns (nil, nil) so
// callers can treat absence as "needs rebuild" without error handling.
func LoadCache(path string) (*types.ProductIndex, error) {
	lock := flock.New(path + ".lock")
	if err := lock.RLock(); err != nil {
		return nil, fmt.Errorf("failed to lock cache file: %w", err)
	}
	defer lock.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}

	var idx types.ProductIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("failed to parse cache file: %w", err)
	}
	return &idx, nil
}

// Stale reports whether the index is older than maxAgeDays. An index with
// a missing or malformed timestamp is always stale.
func Stale(idx *types.ProductIndex, maxAgeDays int) bool {
	if idx == nil {
		return true
	}
	updated, err := time.Parse(time.RFC3339, idx.LastUpdated)
	if err != nil {
		return true
	}
	return time.Since(updated) > time.Duration(maxAgeDays)*24*time.Hour
}

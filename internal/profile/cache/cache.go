// Package cache persists resolved profile records on disk, one JSON file per
// case identifier. A cached record is trusted indefinitely; there is no
// expiry or invalidation, which is an accepted operator-managed limitation.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	apperrors "postergen/internal/common/errors"
	"postergen/internal/common/logger"
	"postergen/internal/profile"
)

type Cache struct {
	dir    string
	logger logger.Logger
}

// New creates a cache rooted at dir. An empty dir disables the cache: Get
// always misses and Put is a no-op.
func New(dir string, log logger.Logger) (*Cache, error) {
	if dir != "" && strings.HasSuffix(dir, string(os.PathSeparator)) {
		return nil, apperrors.NewConfigInvalidError("profile.cache must not end in a path separator")
	}
	return &Cache{
		dir:    dir,
		logger: log.WithFields(map[string]interface{}{"cacheDir": dir}),
	}, nil
}

// Enabled reports whether a cache directory is configured.
func (c *Cache) Enabled() bool {
	return c.dir != ""
}

// Get returns the cached record for the case identifier, if any. A missing
// file is a miss, not an error.
func (c *Cache) Get(caseID string) (profile.Record, bool, error) {
	if !c.Enabled() {
		return nil, false, nil
	}
	data, err := os.ReadFile(c.path(caseID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read cached profile %s: %w", caseID, err)
	}

	var rec profile.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, false, fmt.Errorf("parse cached profile %s: %w", caseID, err)
	}
	c.logger.Debug("cache hit", map[string]interface{}{"caseId": caseID})
	return rec, true, nil
}

// Put writes the record under a filename derived from the case identifier,
// creating the cache directory on first use.
func (c *Cache) Put(caseID string, rec profile.Record) error {
	if !c.Enabled() {
		return nil
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal profile %s: %w", caseID, err)
	}
	if err := os.WriteFile(c.path(caseID), data, 0o644); err != nil {
		return fmt.Errorf("write cached profile %s: %w", caseID, err)
	}
	c.logger.Debug("cache write", map[string]interface{}{"caseId": caseID})
	return nil
}

func (c *Cache) path(caseID string) string {
	return filepath.Join(c.dir, sanitize(caseID)+".json")
}

// sanitize keeps the cache filename safe for identifiers that carry path
// characters.
func sanitize(caseID string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", "..", "_", ":", "_")
	return r.Replace(caseID)
}

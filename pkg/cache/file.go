package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// FileCache persists metadata records between runs as JSON files under a
// hashed two-level directory layout (first two hex chars of the key hash
// shard the entries). Keys look like "github:repo:owner/name".
type FileCache struct {
	dir string
	now func() time.Time
}

// NewFileCache creates a file-backed cache rooted at dir, creating the
// directory if needed.
func NewFileCache(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &FileCache{dir: dir, now: time.Now}, nil
}

// record is the on-disk entry format. Key is stored alongside the payload
// so a sharded file can be verified against the lookup that found it.
type record struct {
	Key       string    `json:"key"`
	Payload   []byte    `json:"payload"`
	SavedAt   time.Time `json:"saved_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Get retrieves a record's payload. Expired, corrupt, and mismatched
// entries are dropped and reported as misses.
func (c *FileCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	path := c.path(key)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil || rec.Key != key {
		_ = os.Remove(path)
		return nil, false, nil
	}
	if !rec.ExpiresAt.IsZero() && c.now().After(rec.ExpiresAt) {
		_ = os.Remove(path)
		return nil, false, nil
	}

	return rec.Payload, true, nil
}

// Set stores a payload. A non-positive ttl stores it without expiry.
func (c *FileCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	rec := record{
		Key:     key,
		Payload: data,
		SavedAt: c.now(),
	}
	if ttl > 0 {
		rec.ExpiresAt = rec.SavedAt.Add(ttl)
	}

	encoded, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	path := c.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, encoded, 0644)
}

// Delete removes a record. Deleting a missing key is not an error.
func (c *FileCache) Delete(ctx context.Context, key string) error {
	err := os.Remove(c.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Close does nothing for file cache.
func (c *FileCache) Close() error {
	return nil
}

func (c *FileCache) path(key string) string {
	hash := Hash([]byte(key))
	return filepath.Join(c.dir, hash[:2], hash[2:]+".json")
}

// Ensure FileCache implements Cache.
var _ Cache = (*FileCache)(nil)

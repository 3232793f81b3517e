// Package cache provides a small file-backed JSON cache for provider
// catalog data (regions, pricing) that is expensive to refetch.
package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// envelope wraps a cached payload with its expiry so entries remain
// valid across file copies that reset modification times.
type envelope struct {
	ExpiresAt time.Time       `json:"expires_at"`
	Payload   json.RawMessage `json:"payload"`
}

// Cache stores JSON entries as individual files under a directory.
type Cache struct {
	dir string
}

// New returns a cache rooted at dir.
func New(dir string) *Cache {
	return &Cache{dir: dir}
}

// NewDefault returns a cache rooted at the OS user cache dir.
func NewDefault() *Cache {
	base, err := os.UserCacheDir()
	if err != nil || base == "" {
		base = os.TempDir()
	}
	return &Cache{dir: filepath.Join(base, "outpost")}
}

// Get decodes a live entry into dest and reports whether one was
// found. Expired or unreadable entries are treated as misses.
func (c *Cache) Get(key string, dest any) (bool, error) {
	if c == nil || c.dir == "" {
		return false, nil
	}

	data, err := os.ReadFile(c.pathFor(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return false, nil
	}
	if time.Now().After(env.ExpiresAt) {
		_ = os.Remove(c.pathFor(key))
		return false, nil
	}
	if err := json.Unmarshal(env.Payload, dest); err != nil {
		return false, nil
	}

	return true, nil
}

// Set stores value under key, expiring after ttl.
func (c *Cache) Set(key string, value any, ttl time.Duration) error {
	if c == nil || c.dir == "" || ttl <= 0 {
		return nil
	}

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	data, err := json.Marshal(envelope{ExpiresAt: time.Now().Add(ttl), Payload: payload})
	if err != nil {
		return err
	}

	// Write-then-rename so readers never see a partial entry.
	tmp, err := os.CreateTemp(c.dir, fileNameFor(key)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}

	return os.Rename(tmpName, c.pathFor(key))
}

// Invalidate removes a single entry. Missing entries are not an error.
func (c *Cache) Invalidate(key string) error {
	if c == nil || c.dir == "" {
		return nil
	}

	err := os.Remove(c.pathFor(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Clear removes every entry in the cache directory.
func (c *Cache) Clear() error {
	if c == nil || c.dir == "" {
		return nil
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(c.dir, entry.Name())); err != nil {
			return err
		}
	}

	return nil
}

func (c *Cache) pathFor(key string) string {
	return filepath.Join(c.dir, fileNameFor(key)+".json")
}

func fileNameFor(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return "entry"
	}

	var b strings.Builder
	b.Grow(len(key))
	for i := 0; i < len(key); i++ {
		ch := key[i]
		if (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') || ch == '-' || ch == '_' {
			b.WriteByte(ch)
			continue
		}
		b.WriteByte('_')
	}
	return b.String()
}

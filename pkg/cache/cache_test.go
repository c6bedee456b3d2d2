package cache

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestFileCacheRoundTrip(t *testing.T) {
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	key := "github:repo:o/r"

	if _, ok, err := c.Get(ctx, key); ok || err != nil {
		t.Fatalf("empty cache: ok=%v err=%v", ok, err)
	}

	if err := c.Set(ctx, key, []byte(`{"stars":7}`), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}

	data, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if string(data) != `{"stars":7}` {
		t.Errorf("data = %s", data)
	}

	if err := c.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := c.Get(ctx, key); ok {
		t.Error("entry survived delete")
	}

	// Deleting a missing key is not an error.
	if err := c.Delete(ctx, "absent"); err != nil {
		t.Errorf("Delete absent: %v", err)
	}
}

func TestFileCacheExpiry(t *testing.T) {
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	defer c.Close()

	clock := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }

	ctx := context.Background()
	if err := c.Set(ctx, "k", []byte("v"), -time.Second); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := c.Set(ctx, "short", []byte("v"), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}

	clock = clock.Add(2 * time.Hour)
	// A non-positive TTL stores without expiry.
	if _, ok, _ := c.Get(ctx, "k"); !ok {
		t.Error("no-TTL entry should not expire")
	}
	if _, ok, _ := c.Get(ctx, "short"); ok {
		t.Error("expired entry served")
	}
	// Expired entries are removed on read.
	clock = clock.Add(-2 * time.Hour)
	if _, ok, _ := c.Get(ctx, "short"); ok {
		t.Error("expired entry survived on disk")
	}
}

func TestFileCacheDropsForeignRecords(t *testing.T) {
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	if err := c.Set(ctx, "github:repo:o/r", []byte("v"), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// A record whose stored key disagrees with the lookup is a miss, not
	// a hit against someone else's payload.
	path := c.path("github:repo:o/r")
	if err := os.WriteFile(path, []byte(`{"key":"github:repo:o/other","payload":"dg=="}`), 0644); err != nil {
		t.Fatalf("overwrite record: %v", err)
	}
	if _, ok, err := c.Get(ctx, "github:repo:o/r"); ok || err != nil {
		t.Errorf("Get: ok=%v err=%v, want miss", ok, err)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Error("mismatched record left on disk")
	}
}

func TestNullCacheAlwaysMisses(t *testing.T) {
	c := NewNullCache()
	ctx := context.Background()

	if err := c.Set(ctx, "k", []byte("v"), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, ok, err := c.Get(ctx, "k"); ok || err != nil {
		t.Errorf("Get: ok=%v err=%v, want miss", ok, err)
	}
	if err := c.Delete(ctx, "k"); err != nil {
		t.Errorf("Delete: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestHashIsStable(t *testing.T) {
	a := Hash([]byte("key"))
	b := Hash([]byte("key"))
	if a != b {
		t.Errorf("hash not deterministic: %s vs %s", a, b)
	}
	if a == Hash([]byte("other")) {
		t.Error("distinct keys collided")
	}
}

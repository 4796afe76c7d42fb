package store

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"osmflex/pkg/db"
)

func TestSQLiteStore(t *testing.T) {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "test.db")

	// Init DB
	d, err := db.Init(dbPath)
	if err != nil {
		t.Fatalf("Failed to init DB: %v", err)
	}
	defer d.Close()

	store := NewSQLiteStore(d)
	ctx := context.Background()

	testCache(t, ctx, store)
	testCacheCompression(t, ctx, store)
	testCacheKeys(t, ctx, store)
	testState(t, ctx, store)
}

func testCache(t *testing.T, ctx context.Context, store *SQLiteStore) {
	t.Run("Cache", func(t *testing.T) {
		if err := store.SetCache(ctx, "foo", []byte("bar")); err != nil {
			t.Errorf("SetCache failed: %v", err)
		}
		val, hit := store.GetCache(ctx, "foo")
		if !hit {
			t.Error("Expected cache hit")
		}
		if string(val) != "bar" {
			t.Errorf("Expected 'bar', got '%s'", string(val))
		}

		has, err := store.HasCache(ctx, "foo")
		if err != nil || !has {
			t.Errorf("HasCache = %v, %v; want true, nil", has, err)
		}
		if _, hit := store.GetCache(ctx, "missing"); hit {
			t.Error("Expected cache miss")
		}
	})
}

func testCacheCompression(t *testing.T, ctx context.Context, store *SQLiteStore) {
	t.Run("Compression", func(t *testing.T) {
		payload := bytes.Repeat([]byte("<a href=\"germany-latest.osm.pbf\">"), 200)
		if err := store.SetCache(ctx, "index:europe", payload); err != nil {
			t.Fatalf("SetCache failed: %v", err)
		}

		var raw []byte
		if err := store.db.QueryRow("SELECT value FROM cache WHERE key = ?", "index:europe").Scan(&raw); err != nil {
			t.Fatal(err)
		}
		if len(raw) >= len(payload) {
			t.Errorf("expected stored value to be compressed: %d >= %d", len(raw), len(payload))
		}

		val, hit := store.GetCache(ctx, "index:europe")
		if !hit || !bytes.Equal(val, payload) {
			t.Error("expected transparent decompression")
		}
	})
}

func testCacheKeys(t *testing.T, ctx context.Context, store *SQLiteStore) {
	t.Run("Keys", func(t *testing.T) {
		for _, k := range []string{"index:asia", "index:africa", "other"} {
			if err := store.SetCache(ctx, k, []byte("x")); err != nil {
				t.Fatal(err)
			}
		}
		keys, err := store.ListCacheKeys(ctx, "index:a")
		if err != nil {
			t.Fatalf("ListCacheKeys failed: %v", err)
		}
		if len(keys) != 2 || keys[0] != "index:africa" || keys[1] != "index:asia" {
			t.Errorf("unexpected keys: %v", keys)
		}
	})
}

func testState(t *testing.T, ctx context.Context, store *SQLiteStore) {
	t.Run("State", func(t *testing.T) {
		if err := store.SetState(ctx, "my_key", "my_val"); err != nil {
			t.Errorf("SetState failed: %v", err)
		}
		sVal, sHit := store.GetState(ctx, "my_key")
		if !sHit {
			t.Error("Expected state hit")
		}
		if sVal != "my_val" {
			t.Errorf("Expected 'my_val', got '%s'", sVal)
		}

		if err := store.DeleteState(ctx, "my_key"); err != nil {
			t.Errorf("DeleteState failed: %v", err)
		}
		if _, hit := store.GetState(ctx, "my_key"); hit {
			t.Error("Expected state miss after delete")
		}
	})
}

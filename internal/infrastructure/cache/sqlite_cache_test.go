package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"freestylecal/internal/infrastructure/persistence/sqlite/model"
)

func setupSQLiteCache(t *testing.T) *SQLiteCache {
	t.Helper()

	db, err := gorm.Open(gormsqlite.Open(filepath.Join(t.TempDir(), "kv.sqlite")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(&model.KV{}); err != nil {
		t.Fatalf("auto migrate kv_state: %v", err)
	}

	return NewSQLiteCache(db)
}

func TestSQLiteCacheSetGetDelete(t *testing.T) {
	cache := setupSQLiteCache(t)
	ctx := context.Background()

	if err := cache.Set(ctx, "last_run:fms", `{"written":7}`, 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	value, found, err := cache.Get(ctx, "last_run:fms")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !found || value != `{"written":7}` {
		t.Fatalf("Get() = %q, found=%v", value, found)
	}

	if err := cache.Set(ctx, "last_run:fms", `{"written":3}`, 0); err != nil {
		t.Fatalf("Set(update) error = %v", err)
	}
	value, found, err = cache.Get(ctx, "last_run:fms")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !found || value != `{"written":3}` {
		t.Fatalf("Get() after update = %q, found=%v", value, found)
	}

	if err := cache.Delete(ctx, "last_run:fms"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, found, err = cache.Get(ctx, "last_run:fms"); err != nil || found {
		t.Fatalf("Get() after delete found=%v err=%v", found, err)
	}
}

func TestSQLiteCacheExpiresEntries(t *testing.T) {
	cache := setupSQLiteCache(t)
	ctx := context.Background()

	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	if err := cache.Set(ctx, "last_run:redbull", "ok", time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if _, found, _ := cache.Get(ctx, "last_run:redbull"); !found {
		t.Fatalf("Get() before expiry found=false")
	}

	now = now.Add(2 * time.Minute)
	if _, found, _ := cache.Get(ctx, "last_run:redbull"); found {
		t.Fatalf("Get() after expiry found=true")
	}
	keys, err := cache.Keys(ctx, "last_run:")
	if err != nil {
		t.Fatalf("Keys() error = %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("Keys() = %v, want none after expiry", keys)
	}
}

func TestSQLiteCacheKeysByPrefix(t *testing.T) {
	cache := setupSQLiteCache(t)
	ctx := context.Background()

	for _, key := range []string{"last_run:redbull", "last_run:fms", "other"} {
		if err := cache.Set(ctx, key, "v", 0); err != nil {
			t.Fatalf("Set(%q) error = %v", key, err)
		}
	}

	keys, err := cache.Keys(ctx, "last_run:")
	if err != nil {
		t.Fatalf("Keys() error = %v", err)
	}
	if len(keys) != 2 || keys[0] != "last_run:fms" || keys[1] != "last_run:redbull" {
		t.Fatalf("Keys() = %v", keys)
	}
}

func TestSQLiteCacheRejectsEmptyKey(t *testing.T) {
	cache := setupSQLiteCache(t)
	ctx := context.Background()

	if err := cache.Set(ctx, "", "v", 0); err == nil {
		t.Fatalf("Set() expected error for empty key")
	}
	if _, _, err := cache.Get(ctx, " "); err == nil {
		t.Fatalf("Get() expected error for empty key")
	}
	if err := cache.Delete(ctx, ""); err == nil {
		t.Fatalf("Delete() expected error for empty key")
	}
}

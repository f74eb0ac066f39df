package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestSQLStore(t *testing.T) *SQLStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "store.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	store, err := NewSQLStore(db)
	if err != nil {
		t.Fatalf("failed to build store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// exerciseStore checks the behaviour every Store implementation shares.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.Set(ctx, "", "value"); !errors.Is(err, ErrEmptyKey) {
		t.Fatalf("expected ErrEmptyKey, got %v", err)
	}

	if err := store.Set(ctx, "audio-1", "first"); err != nil {
		t.Fatalf("unexpected set error: %v", err)
	}
	if err := store.Set(ctx, "audio-1", "second"); err != nil {
		t.Fatalf("unexpected overwrite error: %v", err)
	}
	value, err := store.Get(ctx, "audio-1")
	if err != nil || value != "second" {
		t.Fatalf("expected overwritten value, got %q (%v)", value, err)
	}

	for _, key := range []string{"audio-2", "audio_x", "notes"} {
		if err := store.Set(ctx, key, "v"); err != nil {
			t.Fatalf("unexpected set error: %v", err)
		}
	}
	keys, err := store.Keys(ctx, "audio-")
	if err != nil {
		t.Fatalf("unexpected keys error: %v", err)
	}
	slices.Sort(keys)
	if !slices.Equal(keys, []string{"audio-1", "audio-2"}) {
		t.Fatalf("unexpected prefix listing %v", keys)
	}

	if err := store.Delete(ctx, "audio-1"); err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}
	if err := store.Delete(ctx, "audio-1"); err != nil {
		t.Fatalf("expected deleting a missing key to succeed, got %v", err)
	}
	if _, err := store.Get(ctx, "audio-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected deleted key to be gone, got %v", err)
	}
}

func TestSQLStore(t *testing.T) {
	store := newTestSQLStore(t)
	store.clock = func() time.Time { return time.Date(2026, time.March, 4, 10, 0, 0, 0, time.UTC) }
	exerciseStore(t, store)

	var entry Entry
	if err := store.db.Where(queryKey, "notes").Take(&entry).Error; err != nil {
		t.Fatalf("failed to read entry: %v", err)
	}
	if entry.UpdatedAtSeconds != 1772618400 {
		t.Fatalf("expected write time to be recorded, got %d", entry.UpdatedAtSeconds)
	}
}

func TestSQLStoreRequiresDatabase(t *testing.T) {
	if _, err := NewSQLStore(nil); err == nil {
		t.Fatalf("expected nil database to be rejected")
	}
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("VOICE_CANVAS_TEST_REDIS_URL")
	if url == "" {
		t.Skip("VOICE_CANVAS_TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	prefix := "voice-canvas-test:" + time.Now().UTC().Format("20060102150405.000000000") + ":"
	store, err := NewRedisStore(ctx, url, prefix)
	if err != nil {
		t.Fatalf("failed to connect redis: %v", err)
	}
	t.Cleanup(func() {
		keys, _ := store.Keys(ctx, "")
		for _, key := range keys {
			_ = store.Delete(ctx, key)
		}
		_ = store.Close()
	})
	exerciseStore(t, store)
}

func TestNewRedisStoreRejectsInvalidURL(t *testing.T) {
	if _, err := NewRedisStore(context.Background(), "not a url", ""); err == nil {
		t.Fatalf("expected invalid url to fail")
	}
}

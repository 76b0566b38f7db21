package redisstore

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/goliatone/go-roomsync/settings"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestStoreMissingKey(t *testing.T) {
	_, client := setupTestRedis(t)
	store := New[settings.Settings](client)

	_, _, ok, err := store.Load(context.Background(), "extension")
	if err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
}

func TestStoreSaveLoad(t *testing.T) {
	mr, client := setupTestRedis(t)
	store := New[settings.Settings](client, WithPrefix("test:"))
	ctx := context.Background()

	in := settings.Settings{Extension: settings.Extension{Beeps: settings.Bool(false)}}
	if _, err := store.Save(ctx, "extension", in, settings.Meta{ETag: "v1"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !mr.Exists("test:extension") {
		t.Fatalf("expected prefixed key in redis")
	}

	out, meta, ok, err := store.Load(ctx, "extension")
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if meta.ETag != "v1" {
		t.Fatalf("expected etag v1, got %q", meta.ETag)
	}
	if out.Extension.Beeps == nil || *out.Extension.Beeps {
		t.Fatalf("expected beeps=false, got %+v", out.Extension)
	}
	if out.Bridge.Push != nil {
		t.Fatalf("unset fields should stay nil")
	}

	if err := store.Delete(ctx, "extension"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, _, ok, _ := store.Load(ctx, "extension"); ok {
		t.Fatalf("expected key removed")
	}
}

func TestStoreWithMutate(t *testing.T) {
	_, client := setupTestRedis(t)
	store := New[settings.Settings](client)
	ctx := context.Background()

	_, first, err := settings.Mutate[settings.Settings](ctx, store, "extension", settings.Meta{}, func(s *settings.Settings) error {
		s.Extension.IDBillboards = settings.Bool(false)
		return nil
	})
	if err != nil {
		t.Fatalf("mutate: %v", err)
	}
	_, _, err = settings.Mutate[settings.Settings](ctx, store, "extension", settings.Meta{ETag: "stale"}, func(s *settings.Settings) error {
		return nil
	})
	if !errors.Is(err, settings.ErrETagMismatch) {
		t.Fatalf("expected etag mismatch, got %v", err)
	}

	layer, ok, err := settings.LoadLayer(ctx, store, "extension")
	if err != nil || !ok {
		t.Fatalf("load layer: ok=%v err=%v", ok, err)
	}
	if layer.SnapshotID != first.SnapshotID {
		t.Fatalf("expected snapshot id %q, got %q", first.SnapshotID, layer.SnapshotID)
	}
}

func TestStoreCorruptPayload(t *testing.T) {
	mr, client := setupTestRedis(t)
	store := New[settings.Settings](client)
	if err := mr.Set(store.Key("extension"), "not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, _, _, err := store.Load(context.Background(), "extension"); err == nil {
		t.Fatalf("expected decode error")
	}
}

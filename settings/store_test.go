package settings

import (
	"context"
	"errors"
	"testing"
)

type failingStore struct {
	loadErr error
	saveErr error
	saves   int
}

func (s *failingStore) Load(context.Context, string) (Settings, Meta, bool, error) {
	return Settings{}, Meta{}, false, s.loadErr
}

func (s *failingStore) Save(context.Context, string, Settings, Meta) (Meta, error) {
	s.saves++
	return Meta{}, s.saveErr
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore[Settings]()

	if _, _, ok, err := store.Load(ctx, "extension"); ok || err != nil {
		t.Fatalf("expected empty store, got ok=%v err=%v", ok, err)
	}
	in := Settings{Extension: Extension{Beeps: Bool(false)}}
	if _, err := store.Save(ctx, "extension", in, Meta{ETag: "v1"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	*in.Extension.Beeps = true

	out, meta, ok, err := store.Load(ctx, "extension")
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if meta.ETag != "v1" || *out.Extension.Beeps {
		t.Fatalf("stored snapshot should be detached, got %+v %+v", meta, out.Extension)
	}
	if _, _, _, err := store.Load(ctx, " "); err == nil {
		t.Fatalf("expected key error")
	}
}

func TestMutateAssignsMetaAndValidates(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore[Settings]()

	s, meta, err := Mutate[Settings](ctx, store, "extension", Meta{}, func(s *Settings) error {
		s.Extension.IDBillboards = Bool(false)
		return nil
	})
	if err != nil {
		t.Fatalf("mutate: %v", err)
	}
	if meta.ETag == "" || meta.SnapshotID == "" || meta.UpdatedAt.IsZero() {
		t.Fatalf("expected generated meta, got %+v", meta)
	}
	if *s.Extension.IDBillboards {
		t.Fatalf("expected billboards=false")
	}

	_, _, err = Mutate[Settings](ctx, store, "extension", meta, func(s *Settings) error {
		s.Bridge.PollIntervalMS = Int64(0)
		return nil
	})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	_, stored, _, _ := store.Load(ctx, "extension")
	if stored.ETag != meta.ETag {
		t.Fatalf("invalid mutation must not save")
	}
}

func TestMutateETagMismatch(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore[Settings]()
	_, first, err := Mutate[Settings](ctx, store, "extension", Meta{}, func(s *Settings) error { return nil })
	if err != nil {
		t.Fatalf("mutate: %v", err)
	}
	_, second, err := Mutate[Settings](ctx, store, "extension", first, func(s *Settings) error {
		s.Extension.Beeps = Bool(false)
		return nil
	})
	if err != nil {
		t.Fatalf("mutate with current etag: %v", err)
	}
	if second.ETag == first.ETag {
		t.Fatalf("expected a fresh etag")
	}

	called := false
	_, _, err = Mutate[Settings](ctx, store, "extension", first, func(s *Settings) error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrETagMismatch) {
		t.Fatalf("expected ErrETagMismatch, got %v", err)
	}
	if called {
		t.Fatalf("mutator should not run on mismatch")
	}
}

func TestMutateErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")

	store := &failingStore{loadErr: boom}
	if _, _, err := Mutate[Settings](ctx, store, "k", Meta{}, func(*Settings) error { return nil }); !errors.Is(err, boom) {
		t.Fatalf("expected load error, got %v", err)
	}

	store = &failingStore{saveErr: boom}
	if _, _, err := Mutate[Settings](ctx, store, "k", Meta{}, func(*Settings) error { return nil }); !errors.Is(err, boom) {
		t.Fatalf("expected save error, got %v", err)
	}

	store = &failingStore{}
	mutErr := errors.New("refused")
	if _, _, err := Mutate[Settings](ctx, store, "k", Meta{}, func(*Settings) error { return mutErr }); !errors.Is(err, mutErr) {
		t.Fatalf("expected mutator error, got %v", err)
	}
	if store.saves != 0 {
		t.Fatalf("failed mutator must not save")
	}
	if _, _, err := Mutate[Settings](ctx, nil, "k", Meta{}, func(*Settings) error { return nil }); err == nil {
		t.Fatalf("expected missing store error")
	}
}

func TestLoadLayer(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore[Settings]()
	if _, ok, err := LoadLayer(ctx, store, "extension"); ok || err != nil {
		t.Fatalf("expected no layer, ok=%v err=%v", ok, err)
	}
	_, meta, err := Mutate[Settings](ctx, store, "extension", Meta{}, func(s *Settings) error {
		s.Bridge.Push = Bool(false)
		return nil
	})
	if err != nil {
		t.Fatalf("mutate: %v", err)
	}
	layer, ok, err := LoadLayer(ctx, store, "extension")
	if err != nil || !ok {
		t.Fatalf("load layer: ok=%v err=%v", ok, err)
	}
	if layer.Scope.Name != ScopeStored || layer.SnapshotID != meta.SnapshotID {
		t.Fatalf("unexpected layer %+v", layer)
	}
	resolved, err := Resolve(layer)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Effective.Push {
		t.Fatalf("stored push=false should apply")
	}
	trace, _ := resolved.Trace("bridge.push")
	if winner, _ := trace.Winner(); winner.SnapshotID != meta.SnapshotID {
		t.Fatalf("expected snapshot id in provenance, got %+v", winner)
	}
}

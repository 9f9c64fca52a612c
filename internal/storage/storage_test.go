package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

// newStore cancels the autosave context before Close; Close blocks otherwise.
func newStore(t *testing.T) *Storage {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	store, err := New(ctx, filepath.Join(t.TempDir(), "bindings.json"))
	if err != nil {
		cancel()
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		_ = store.Close()
	})
	return store
}

func TestBindingsRoundTrip(t *testing.T) {
	t.Parallel()

	store := newStore(t)

	in := []CommandBinding{
		{Name: "ping", Type: 1, ID: "123", Hash: "abc", SyncedAt: time.Now().UTC().Truncate(time.Second)},
		{Name: "mod", Type: 1, ID: "456", Hash: "def", SyncedAt: time.Now().UTC().Truncate(time.Second)},
	}
	if err := store.SetBindings("guild-1", in); err != nil {
		t.Fatalf("SetBindings: %v", err)
	}

	out, err := store.Bindings("guild-1")
	if err != nil {
		t.Fatalf("Bindings: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d bindings, want 2", len(out))
	}
	if out[0].Name != "ping" || out[0].ID != "123" || out[0].Hash != "abc" {
		t.Fatalf("first binding = %+v", out[0])
	}
}

func TestBindingsUnknownScopeIsEmpty(t *testing.T) {
	t.Parallel()

	store := newStore(t)

	out, err := store.Bindings("never-synced")
	if err != nil {
		t.Fatalf("Bindings: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("got %d bindings for an unknown scope, want 0", len(out))
	}
}

func TestGlobalScopeKey(t *testing.T) {
	t.Parallel()

	store := newStore(t)

	if err := store.SetBindings("", []CommandBinding{{Name: "ping", ID: "1"}}); err != nil {
		t.Fatalf("SetBindings: %v", err)
	}
	out, err := store.Bindings("")
	if err != nil {
		t.Fatalf("Bindings: %v", err)
	}
	if len(out) != 1 || out[0].Name != "ping" {
		t.Fatalf("global bindings = %+v, want the stored entry", out)
	}
}

func TestBindingsSurviveReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bindings.json")

	ctx, cancel := context.WithCancel(context.Background())
	store, err := New(ctx, path)
	if err != nil {
		cancel()
		t.Fatalf("New: %v", err)
	}
	if err := store.SetBindings("guild-1", []CommandBinding{{Name: "tag", ID: "77"}}); err != nil {
		t.Fatalf("SetBindings: %v", err)
	}
	cancel()
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	ctx2, cancel2 := context.WithCancel(context.Background())
	reopened, err := New(ctx2, path)
	if err != nil {
		cancel2()
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() {
		cancel2()
		_ = reopened.Close()
	})

	out, err := reopened.Bindings("guild-1")
	if err != nil {
		t.Fatalf("Bindings after reopen: %v", err)
	}
	if len(out) != 1 || out[0].Name != "tag" || out[0].ID != "77" {
		t.Fatalf("reopened bindings = %+v", out)
	}
}

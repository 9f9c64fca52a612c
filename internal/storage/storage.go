// Package storage persists the remote-binding snapshot (command identifiers
// and definition hashes per scope) across restarts, so drift between the
// last-synced state and the current code can be logged before any network
// call is made. Synchronization never trusts this cache over a live fetch.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/keshon/datastore"
)

// CommandBinding is one persisted command binding.
type CommandBinding struct {
	Name     string    `json:"name"`
	Type     int       `json:"type"`
	ID       string    `json:"id"`
	Hash     string    `json:"hash"`
	SyncedAt time.Time `json:"synced_at"`
}

// Storage is a thin typed layer over the JSON-file datastore.
type Storage struct {
	ds *datastore.DataStore
}

// New opens (or creates) the store at filePath. ctx bounds the datastore's
// autosave loop: cancel it before calling Close, or Close blocks waiting for
// the loop to exit.
func New(ctx context.Context, filePath string) (*Storage, error) {
	ds, err := datastore.New(ctx, filePath)
	if err != nil {
		return nil, fmt.Errorf("open datastore: %w", err)
	}
	return &Storage{ds: ds}, nil
}

func bindingsKey(scope string) string {
	if scope == "" {
		scope = "global"
	}
	return "bindings:" + scope
}

// SetBindings replaces the persisted bindings of one scope ("" = global).
func (s *Storage) SetBindings(scope string, bindings []CommandBinding) error {
	if err := s.ds.Set(bindingsKey(scope), bindings); err != nil {
		return fmt.Errorf("store bindings for scope %q: %w", scope, err)
	}
	return nil
}

// Bindings returns the persisted bindings of one scope, empty when the scope
// was never synced.
func (s *Storage) Bindings(scope string) ([]CommandBinding, error) {
	var out []CommandBinding
	ok, err := s.ds.Get(bindingsKey(scope), &out)
	if err != nil {
		return nil, fmt.Errorf("decode stored bindings: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return out, nil
}

// Close flushes and shuts the underlying datastore down.
func (s *Storage) Close() error {
	return s.ds.Close()
}

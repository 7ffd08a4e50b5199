package testsupport

import (
	"context"
	"testing"

	"novelkit/internal/asset"
	"novelkit/internal/asset/handle"
	"novelkit/internal/asset/store"
	"novelkit/internal/config"
)

// MustRegistry creates a handle registry for tests.
func MustRegistry(t testing.TB) *handle.Registry {
	t.Helper()
	return handle.NewRegistry(nil)
}

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config, registry *handle.Registry) *store.Store {
	t.Helper()

	st, err := store.Open(cfg, registry, nil)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// SaveAsset persists an asset with payload bytes and returns it with its
// fresh handle applied.
func SaveAsset(t testing.TB, st *store.Store, projectID string, a asset.Asset, data []byte) asset.Asset {
	t.Helper()

	h, err := st.Save(context.Background(), projectID, a, data)
	if err != nil {
		t.Fatalf("store.Save: %v", err)
	}
	a.URL = h
	a.Metadata.Size = int64(len(data))
	return a
}

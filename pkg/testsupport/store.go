package testsupport

import (
	"context"
	"path/filepath"
	"testing"

	"crops3d/pkg/dataset"
)

// OpenStore opens a fresh dataset store in a temp dir and closes it when the
// test ends.
func OpenStore(t testing.TB) *dataset.Store {
	t.Helper()

	store, err := dataset.Open(context.Background(), filepath.Join(t.TempDir(), "datasets.db"), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

package testsupport

import (
	"testing"

	"cepstra/internal/featstore"
)

// MustOpenStore opens a feature store read-only and registers cleanup.
func MustOpenStore(t testing.TB, path string) *featstore.Store {
	t.Helper()

	store, err := featstore.Open(path)
	if err != nil {
		t.Fatalf("featstore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

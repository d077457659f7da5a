package testsupport

import (
	"context"
	"testing"
	"time"

	"archivist/internal/catalog"
	"archivist/internal/config"
)

// MustOpenStore opens the catalog named by cfg and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(context.Background(), cfg.Paths.CatalogPath, catalog.Options{})
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// Record builds a catalog record captured at noon on dateKey (YYYY-MM-DD).
func Record(identity string, size uint64, dateKey string) catalog.Record {
	day, err := time.Parse(catalog.TemporalKeyLayout, dateKey)
	if err != nil {
		panic("testsupport.Record: bad date key " + dateKey)
	}
	return catalog.NewRecord(catalog.BasicEntry{Identity: identity, Size: size}, day.Add(12*time.Hour))
}

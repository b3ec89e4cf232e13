// Package testutil provides shared test helpers for workspaces and catalogs.
package testutil

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/starford/mdlforge/internal/catalog"
	"github.com/starford/mdlforge/internal/storage"
)

// CrateSource is a small valid model source with two helpers.
const CrateSource = `name: Crate
sequences:
  - name: Stand
    interval: [0, 1000]
helpers:
  - name: Root
    pivot: [0, 0, 1]
  - name: Lid
    parent: Root
    pivot: [0, 0, 2]
    translation:
      interpolation: linear
      keys:
        - time: 0
          value: [0, 0, 0]
        - time: 500
          value: [0, 0, 0.5]
`

// TestCatalog opens a catalog in a temp dir that is closed on cleanup.
func TestCatalog(t *testing.T) *catalog.DB {
	t.Helper()
	db, err := catalog.Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestWorkspace creates an empty store rooted in a temp dir.
func TestWorkspace(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// Logger discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

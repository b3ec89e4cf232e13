package catalog

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/starford/mdlforge/internal/apperr"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func crateRows() (ModelRow, []NodeRow) {
	return ModelRow{Path: "crate.model.yaml", Name: "Crate", Checksum: "c1", Helpers: 2, Sequences: 1},
		[]NodeRow{
			{ObjectID: 0, Name: "Root", Kind: "helper", ParentID: -1, Size: 96},
			{ObjectID: 1, Name: "Lid", Kind: "helper", ParentID: 0, Size: 136},
		}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	for _, table := range []string{"models", "nodes", "exports"} {
		var n int
		if err := db.conn.QueryRow(`SELECT count(*) FROM ` + table).Scan(&n); err != nil {
			t.Errorf("%s table missing: %v", table, err)
		}
	}
}

func TestUpsertAndGetModel(t *testing.T) {
	db := testDB(t)
	row, nodes := crateRows()
	if err := db.UpsertModel(row, nodes); err != nil {
		t.Fatalf("UpsertModel: %v", err)
	}
	got, err := db.GetModel("crate.model.yaml")
	if err != nil {
		t.Fatalf("GetModel: %v", err)
	}
	if got.Name != "Crate" || got.Helpers != 2 || got.Checksum != "c1" {
		t.Errorf("model = %+v", got)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("updated_at not set")
	}
}

func TestUpsertReplacesNodes(t *testing.T) {
	db := testDB(t)
	row, nodes := crateRows()
	_ = db.UpsertModel(row, nodes)

	row.Checksum = "c2"
	row.Helpers = 1
	if err := db.UpsertModel(row, nodes[:1]); err != nil {
		t.Fatalf("UpsertModel: %v", err)
	}
	g, err := db.Graph(row.Path)
	if err != nil {
		t.Fatalf("Graph: %v", err)
	}
	if len(g.Nodes) != 1 || len(g.Links) != 0 {
		t.Errorf("graph = %+v", g)
	}
	cs, _ := db.GetChecksum(row.Path)
	if cs != "c2" {
		t.Errorf("checksum = %q", cs)
	}
}

func TestGraphLinksFollowParents(t *testing.T) {
	db := testDB(t)
	row, nodes := crateRows()
	_ = db.UpsertModel(row, nodes)

	g, err := db.Graph(row.Path)
	if err != nil {
		t.Fatalf("Graph: %v", err)
	}
	if len(g.Nodes) != 2 || g.Nodes[1].Size != 136 {
		t.Errorf("nodes = %+v", g.Nodes)
	}
	if len(g.Links) != 1 || g.Links[0] != (GraphLink{Source: 1, Target: 0}) {
		t.Errorf("links = %+v", g.Links)
	}
	if _, err := db.Graph("missing.model.yaml"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing graph err = %v", err)
	}
}

func TestDeleteModelDropsEverything(t *testing.T) {
	db := testDB(t)
	row, nodes := crateRows()
	_ = db.UpsertModel(row, nodes)
	_ = db.RecordExport(ExportRow{Path: row.Path, Output: "crate.mdl", Bytes: 10})

	if err := db.DeleteModel(row.Path); err != nil {
		t.Fatalf("DeleteModel: %v", err)
	}
	if _, err := db.GetModel(row.Path); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("GetModel err = %v", err)
	}
	if _, err := db.GetExport(row.Path); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("GetExport err = %v", err)
	}
	var n int
	_ = db.conn.QueryRow(`SELECT count(*) FROM nodes`).Scan(&n)
	if n != 0 {
		t.Errorf("%d nodes left", n)
	}
}

func TestGetChecksumUnknown(t *testing.T) {
	db := testDB(t)
	cs, err := db.GetChecksum("nope.model.yaml")
	if err != nil || cs != "" {
		t.Errorf("GetChecksum = %q, %v", cs, err)
	}
}

func TestListModelsPaging(t *testing.T) {
	db := testDB(t)
	for _, p := range []string{"c.model.yaml", "a.model.yaml", "b.model.yaml"} {
		_ = db.UpsertModel(ModelRow{Path: p, Name: p, Checksum: "x"}, nil)
	}
	rows, total, err := db.ListModels(2, 0, "path")
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if total != 3 || len(rows) != 2 || rows[0].Path != "a.model.yaml" {
		t.Errorf("page 1 = %+v total %d", rows, total)
	}
	rows, _, _ = db.ListModels(2, 2, "path")
	if len(rows) != 1 || rows[0].Path != "c.model.yaml" {
		t.Errorf("page 2 = %+v", rows)
	}
	if _, _, err := db.ListModels(10, 0, "bogus"); err == nil {
		t.Error("expected error for unknown sort")
	}
}

func TestSearchMatchesNodeNames(t *testing.T) {
	db := testDB(t)
	row, nodes := crateRows()
	_ = db.UpsertModel(row, nodes)
	_ = db.UpsertModel(ModelRow{Path: "barrel.model.yaml", Name: "Barrel", Checksum: "b"}, nil)

	res, err := db.Search("Lid", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res) != 1 || res[0].Path != "crate.model.yaml" || res[0].Match != "Lid" {
		t.Errorf("results = %+v", res)
	}

	res, _ = db.Search("barrel", 10)
	if len(res) != 1 || res[0].Name != "Barrel" || res[0].Match != "" {
		t.Errorf("results = %+v", res)
	}
}

func TestRecordExportUpserts(t *testing.T) {
	db := testDB(t)
	_ = db.RecordExport(ExportRow{Path: "crate.model.yaml", Error: "boom"})
	if err := db.RecordExport(ExportRow{Path: "crate.model.yaml", Output: "crate.mdl", Checksum: "e1", Bytes: 42}); err != nil {
		t.Fatalf("RecordExport: %v", err)
	}
	e, err := db.GetExport("crate.model.yaml")
	if err != nil {
		t.Fatalf("GetExport: %v", err)
	}
	if e.Error != "" || e.Bytes != 42 || e.Output != "crate.mdl" {
		t.Errorf("export = %+v", e)
	}
}

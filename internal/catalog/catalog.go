// Package catalog keeps a SQLite record of the workspace: every parsed model
// source, its scene-graph nodes and the outcome of its last export.
package catalog

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS models (
	path       TEXT PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	checksum   TEXT NOT NULL DEFAULT '',
	helpers    INTEGER NOT NULL DEFAULT 0,
	sequences  INTEGER NOT NULL DEFAULT 0,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS nodes (
	model     TEXT NOT NULL REFERENCES models(path) ON DELETE CASCADE,
	object_id INTEGER NOT NULL,
	name      TEXT NOT NULL,
	kind      TEXT NOT NULL,
	parent_id INTEGER NOT NULL DEFAULT -1,
	size      INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (model, object_id)
);

CREATE TABLE IF NOT EXISTS exports (
	path        TEXT PRIMARY KEY,
	output      TEXT NOT NULL DEFAULT '',
	checksum    TEXT NOT NULL DEFAULT '',
	bytes       INTEGER NOT NULL DEFAULT 0,
	exported_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	error       TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_nodes_name ON nodes(name);
`

// Catalog is the query surface used by services. *DB implements it.
type Catalog interface {
	UpsertModel(m ModelRow, nodes []NodeRow) error
	DeleteModel(path string) error
	GetModel(path string) (*ModelRow, error)
	GetChecksum(path string) (string, error)
	ListModels(limit, offset int, sort string) ([]ModelRow, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	Graph(path string) (*Graph, error)
	RecordExport(e ExportRow) error
	GetExport(path string) (*ExportRow, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

var _ Catalog = (*DB)(nil)

// DB is a catalog stored in SQLite.
type DB struct {
	conn *sql.DB
}

// Open opens or creates the database at dsn and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("catalog: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("catalog: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("catalog: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

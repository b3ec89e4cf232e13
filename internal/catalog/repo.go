package catalog

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/mdlforge/internal/apperr"
)

// ModelRow is one catalogued model source.
type ModelRow struct {
	Path      string    `json:"path"`
	Name      string    `json:"name"`
	Checksum  string    `json:"checksum"`
	Helpers   int       `json:"helpers"`
	Sequences int       `json:"sequences"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NodeRow is one scene-graph node of a model.
type NodeRow struct {
	ObjectID int    `json:"object_id"`
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	ParentID int    `json:"parent_id"`
	Size     int    `json:"size"`
}

// ExportRow records the last export of a model source.
type ExportRow struct {
	Path       string    `json:"path"`
	Output     string    `json:"output"`
	Checksum   string    `json:"checksum"`
	Bytes      int       `json:"bytes"`
	ExportedAt time.Time `json:"exported_at"`
	Error      string    `json:"error,omitempty"`
}

// SearchResult is one search hit. Match names the node that matched, if any.
type SearchResult struct {
	Path  string `json:"path"`
	Name  string `json:"name"`
	Match string `json:"match,omitempty"`
}

// GraphLink connects a node to its parent by object id.
type GraphLink struct {
	Source int `json:"source"`
	Target int `json:"target"`
}

// Graph is the node hierarchy of one model.
type Graph struct {
	Nodes []NodeRow   `json:"nodes"`
	Links []GraphLink `json:"links"`
}

var sortColumns = map[string]string{
	"":        "path ASC",
	"path":    "path ASC",
	"name":    "name ASC, path ASC",
	"updated": "updated_at DESC, path ASC",
	"helpers": "helpers DESC, path ASC",
}

// UpsertModel replaces a model and its nodes in one transaction.
func (db *DB) UpsertModel(m ModelRow, nodes []NodeRow) error {
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = time.Now().UTC()
	}
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.Exec(`
		INSERT INTO models (path, name, checksum, helpers, sequences, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			name       = excluded.name,
			checksum   = excluded.checksum,
			helpers    = excluded.helpers,
			sequences  = excluded.sequences,
			updated_at = excluded.updated_at
	`, m.Path, m.Name, m.Checksum, m.Helpers, m.Sequences, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("catalog: upsert model: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM nodes WHERE model = ?`, m.Path); err != nil {
		return fmt.Errorf("catalog: clear nodes: %w", err)
	}
	if len(nodes) > 0 {
		stmt, err := tx.Prepare(`INSERT INTO nodes (model, object_id, name, kind, parent_id, size) VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("catalog: prepare node insert: %w", err)
		}
		defer stmt.Close()
		for _, n := range nodes {
			if _, err := stmt.Exec(m.Path, n.ObjectID, n.Name, n.Kind, n.ParentID, n.Size); err != nil {
				return fmt.Errorf("catalog: insert node %q: %w", n.Name, err)
			}
		}
	}
	return tx.Commit()
}

// DeleteModel removes a model with its nodes and export record.
func (db *DB) DeleteModel(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, q := range []string{
		`DELETE FROM nodes WHERE model = ?`,
		`DELETE FROM exports WHERE path = ?`,
		`DELETE FROM models WHERE path = ?`,
	} {
		if _, err := tx.Exec(q, path); err != nil {
			return fmt.Errorf("catalog: delete model: %w", err)
		}
	}
	return tx.Commit()
}

// GetModel returns apperr.ErrNotFound for unknown paths.
func (db *DB) GetModel(path string) (*ModelRow, error) {
	var m ModelRow
	err := db.conn.QueryRow(`
		SELECT path, name, checksum, helpers, sequences, updated_at
		FROM models WHERE path = ?
	`, path).Scan(&m.Path, &m.Name, &m.Checksum, &m.Helpers, &m.Sequences, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("catalog: model %s: %w", path, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: get model: %w", err)
	}
	return &m, nil
}

// GetChecksum returns the stored checksum, or "" when the path is unknown.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM models WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("catalog: get checksum: %w", err)
	}
	return cs, nil
}

// ListModels returns one page of models and the total count.
func (db *DB) ListModels(limit, offset int, sort string) ([]ModelRow, int, error) {
	order, ok := sortColumns[sort]
	if !ok {
		return nil, 0, fmt.Errorf("catalog: %w: unknown sort %q", apperr.ErrInvalidInput, sort)
	}
	if limit <= 0 {
		limit = 50
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM models`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("catalog: count models: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT path, name, checksum, helpers, sequences, updated_at
		FROM models ORDER BY `+order+` LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("catalog: list models: %w", err)
	}
	defer rows.Close()

	out := []ModelRow{}
	for rows.Next() {
		var m ModelRow
		if err := rows.Scan(&m.Path, &m.Name, &m.Checksum, &m.Helpers, &m.Sequences, &m.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, m)
	}
	return out, total, rows.Err()
}

// Search matches query against model paths, model names and node names.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT m.path, m.name, COALESCE(MIN(n.name), '')
		FROM models m
		LEFT JOIN nodes n ON n.model = m.path AND n.name LIKE ?
		WHERE m.path LIKE ? OR m.name LIKE ? OR n.name IS NOT NULL
		GROUP BY m.path
		ORDER BY m.path
		LIMIT ?
	`, like, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("catalog: search: %w", err)
	}
	defer rows.Close()

	out := []SearchResult{}
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Path, &r.Name, &r.Match); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Graph returns the nodes of a model and one link per parented node.
func (db *DB) Graph(path string) (*Graph, error) {
	if _, err := db.GetModel(path); err != nil {
		return nil, err
	}
	rows, err := db.conn.Query(`
		SELECT object_id, name, kind, parent_id, size
		FROM nodes WHERE model = ? ORDER BY object_id
	`, path)
	if err != nil {
		return nil, fmt.Errorf("catalog: graph: %w", err)
	}
	defer rows.Close()

	g := &Graph{Nodes: []NodeRow{}, Links: []GraphLink{}}
	for rows.Next() {
		var n NodeRow
		if err := rows.Scan(&n.ObjectID, &n.Name, &n.Kind, &n.ParentID, &n.Size); err != nil {
			return nil, err
		}
		g.Nodes = append(g.Nodes, n)
		if n.ParentID >= 0 {
			g.Links = append(g.Links, GraphLink{Source: n.ObjectID, Target: n.ParentID})
		}
	}
	return g, rows.Err()
}

// RecordExport stores the outcome of an export, successful or not.
func (db *DB) RecordExport(e ExportRow) error {
	if e.ExportedAt.IsZero() {
		e.ExportedAt = time.Now().UTC()
	}
	_, err := db.conn.Exec(`
		INSERT INTO exports (path, output, checksum, bytes, exported_at, error)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			output      = excluded.output,
			checksum    = excluded.checksum,
			bytes       = excluded.bytes,
			exported_at = excluded.exported_at,
			error       = excluded.error
	`, e.Path, e.Output, e.Checksum, e.Bytes, e.ExportedAt, e.Error)
	if err != nil {
		return fmt.Errorf("catalog: record export: %w", err)
	}
	return nil
}

// GetExport returns apperr.ErrNotFound when the source was never exported.
func (db *DB) GetExport(path string) (*ExportRow, error) {
	var e ExportRow
	err := db.conn.QueryRow(`
		SELECT path, output, checksum, bytes, exported_at, error
		FROM exports WHERE path = ?
	`, path).Scan(&e.Path, &e.Output, &e.Checksum, &e.Bytes, &e.ExportedAt, &e.Error)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("catalog: export %s: %w", path, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: get export: %w", err)
	}
	return &e, nil
}

// AllChecksums maps every catalogued path to its checksum.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM models`)
	if err != nil {
		return nil, fmt.Errorf("catalog: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

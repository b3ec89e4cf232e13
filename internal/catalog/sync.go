package catalog

import (
	"fmt"
	"log/slog"

	"github.com/starford/mdlforge/internal/checksum"
	"github.com/starford/mdlforge/internal/models"
	"github.com/starford/mdlforge/internal/parser"
	"github.com/starford/mdlforge/internal/storage"
)

// SyncResult lists the paths a Sync pass touched.
type SyncResult struct {
	Indexed []string
	Removed []string
	Failed  []string
}

// Sync brings the catalog in line with the workspace. Changed sources are
// parsed and upserted; rows whose file is gone are removed. A source that
// fails to parse is logged and skipped.
func Sync(db Catalog, store storage.Provider, logger *slog.Logger) (*SyncResult, error) {
	files, err := store.List("")
	if err != nil {
		return nil, err
	}
	known, err := db.AllChecksums()
	if err != nil {
		return nil, err
	}

	res := &SyncResult{}
	onDisk := make(map[string]struct{}, len(files))
	for _, f := range files {
		onDisk[f.Path] = struct{}{}
		if known[f.Path] == f.Checksum {
			continue
		}
		data, err := store.Read(f.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", f.Path), slog.String("error", err.Error()))
			res.Failed = append(res.Failed, f.Path)
			continue
		}
		if _, err := IndexSource(db, f.Path, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", f.Path), slog.String("error", err.Error()))
			res.Failed = append(res.Failed, f.Path)
			continue
		}
		logger.Debug("sync: indexed", slog.String("path", f.Path))
		res.Indexed = append(res.Indexed, f.Path)
	}

	for p := range known {
		if _, ok := onDisk[p]; ok {
			continue
		}
		if err := db.DeleteModel(p); err != nil {
			logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		logger.Debug("sync: removed stale", slog.String("path", p))
		res.Removed = append(res.Removed, p)
	}
	return res, nil
}

// IndexSource parses a model source and upserts it with its nodes.
func IndexSource(db Catalog, path string, data []byte) (*models.Model, error) {
	res, err := parser.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog: index %s: %w", path, err)
	}
	m := res.Model
	row, nodes := Rows(path, checksum.Sum(data), m)
	if err := db.UpsertModel(row, nodes); err != nil {
		return nil, err
	}
	return m, nil
}

// Rows flattens a parsed model into catalog rows.
func Rows(path, sum string, m *models.Model) (ModelRow, []NodeRow) {
	row := ModelRow{
		Path:      path,
		Name:      m.Name,
		Checksum:  sum,
		Helpers:   len(m.Helpers),
		Sequences: len(m.Sequences),
	}
	nodes := make([]NodeRow, 0, len(m.Helpers))
	for _, h := range m.Helpers {
		d := h.Data()
		nodes = append(nodes, NodeRow{
			ObjectID: d.ObjectID,
			Name:     d.Name,
			Kind:     string(h.Kind()),
			ParentID: d.ParentID,
			Size:     h.Size(),
		})
	}
	return row, nodes
}

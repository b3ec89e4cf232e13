// Package exportservice coordinates model sources, the catalog and MDL
// exports. Transports (HTTP, MCP, CLI) call into it.
package exportservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/starford/mdlforge/internal/apperr"
	"github.com/starford/mdlforge/internal/catalog"
	"github.com/starford/mdlforge/internal/checksum"
	"github.com/starford/mdlforge/internal/models"
	"github.com/starford/mdlforge/internal/parser"
	"github.com/starford/mdlforge/internal/storage"
)

// Notifier receives service events. *sse.Broker implements it.
type Notifier interface {
	PublishModelEvent(kind, path string)
	PublishExport(path, output string, bytes int)
	PublishExportFailure(path string, err error)
}

// ModelDetail is the full representation of a model source.
type ModelDetail struct {
	Path      string             `json:"path"`
	Name      string             `json:"name"`
	Content   string             `json:"content"`
	Checksum  string             `json:"checksum"`
	Model     *models.Model      `json:"model"`
	Export    *catalog.ExportRow `json:"export,omitempty"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Options tunes exports.
type Options struct {
	HeaderTitle    string
	MaxBufferBytes int
	Concurrency    int
}

// Service coordinates storage, catalog and exports.
type Service struct {
	sources  storage.Provider
	outputs  storage.Provider
	db       catalog.Catalog
	opts     Options
	logger   *slog.Logger
	notifier Notifier
}

// NewService wires a service. sources holds *.model.yaml files, outputs
// receives the .mdl text.
func NewService(sources, outputs storage.Provider, db catalog.Catalog, opts Options, logger *slog.Logger) *Service {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{sources: sources, outputs: outputs, db: db, opts: opts, logger: logger}
}

// SetNotifier attaches an event sink. Nil disables events.
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// GetModel reads, parses and describes a source.
func (s *Service) GetModel(_ context.Context, path string) (*ModelDetail, error) {
	data, err := s.read(path)
	if err != nil {
		return nil, err
	}
	return s.detail(path, data)
}

// CreateModel writes a new source after checking that it parses.
func (s *Service) CreateModel(_ context.Context, path string, content []byte) (*ModelDetail, error) {
	if err := checkSourcePath(path); err != nil {
		return nil, err
	}
	if _, err := s.sources.Read(path); err == nil {
		return nil, apperr.ErrAlreadyExists
	}
	if err := s.store(path, content); err != nil {
		return nil, err
	}
	s.publishModel("created", path)
	return s.detail(path, content)
}

// UpdateModel replaces a source. A non-empty ifMatch must equal the checksum
// of the current content.
func (s *Service) UpdateModel(_ context.Context, path string, content []byte, ifMatch string) (*ModelDetail, error) {
	existing, err := s.read(path)
	if err != nil {
		return nil, err
	}
	if ifMatch != "" && !checksum.Matches(ifMatch, existing) {
		return nil, apperr.ErrConflict
	}
	if err := s.store(path, content); err != nil {
		return nil, err
	}
	s.publishModel("updated", path)
	return s.detail(path, content)
}

// DeleteModel removes a source, its export and its catalog rows.
func (s *Service) DeleteModel(_ context.Context, path string) error {
	if err := s.sources.Delete(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return apperr.ErrNotFound
		}
		return err
	}
	if err := s.outputs.Delete(OutputPath(path)); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("delete export failed", slog.String("path", path), slog.String("error", err.Error()))
	}
	if err := s.db.DeleteModel(path); err != nil {
		return err
	}
	s.publishModel("deleted", path)
	return nil
}

// ListModels returns one page of catalogued models.
func (s *Service) ListModels(_ context.Context, limit, offset int, sort string) ([]catalog.ModelRow, int, error) {
	return s.db.ListModels(limit, offset, sort)
}

// Search matches model names, paths and node names.
func (s *Service) Search(_ context.Context, query string, limit int) ([]catalog.SearchResult, error) {
	return s.db.Search(query, limit)
}

// Graph returns the node hierarchy of one model.
func (s *Service) Graph(_ context.Context, path string) (*catalog.Graph, error) {
	return s.db.Graph(path)
}

// HandleChange reacts to a catalog change reported by the watcher.
// Created and updated sources are re-exported when reexport is set.
func (s *Service) HandleChange(ctx context.Context, kind catalog.ChangeKind, path string, reexport bool) {
	s.publishModel(string(kind), path)
	if kind == catalog.Deleted || !reexport {
		return
	}
	if _, err := s.Export(ctx, path); err != nil {
		s.logger.Warn("re-export failed", slog.String("path", path), slog.String("error", err.Error()))
	}
}

func (s *Service) read(path string) ([]byte, error) {
	data, err := s.sources.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// store validates content, writes it and refreshes the catalog.
func (s *Service) store(path string, content []byte) error {
	if _, err := parser.Parse(content); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalidModel, err)
	}
	if err := s.sources.Write(path, content); err != nil {
		return err
	}
	_, err := catalog.IndexSource(s.db, path, content)
	return err
}

func (s *Service) detail(path string, data []byte) (*ModelDetail, error) {
	res, err := parser.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidModel, err)
	}
	d := &ModelDetail{
		Path:      path,
		Name:      res.Model.Name,
		Content:   string(data),
		Checksum:  checksum.Sum(data),
		Model:     res.Model,
		UpdatedAt: time.Now().UTC(),
	}
	if row, err := s.db.GetModel(path); err == nil {
		d.UpdatedAt = row.UpdatedAt
	}
	if e, err := s.db.GetExport(path); err == nil {
		d.Export = e
	}
	return d, nil
}

func (s *Service) publishModel(kind, path string) {
	if s.notifier != nil {
		s.notifier.PublishModelEvent(kind, path)
	}
}

func checkSourcePath(path string) error {
	if !storage.IsSource(path) {
		return fmt.Errorf("%w: path must end in %v", apperr.ErrInvalidModel, storage.SourceExts)
	}
	return nil
}

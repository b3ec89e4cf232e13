package exportservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/mdlforge/internal/apperr"
	"github.com/starford/mdlforge/internal/buffer"
	"github.com/starford/mdlforge/internal/catalog"
	"github.com/starford/mdlforge/internal/checksum"
	"github.com/starford/mdlforge/internal/mdl"
	"github.com/starford/mdlforge/internal/parser"
	"github.com/starford/mdlforge/internal/storage"
)

// Result describes one export.
type Result struct {
	Path     string `json:"path"`
	Output   string `json:"output"`
	Bytes    int    `json:"bytes"`
	Checksum string `json:"checksum,omitempty"`
	Error    string `json:"error,omitempty"`
}

// OutputPath maps a source path to the path of its MDL text.
func OutputPath(source string) string {
	return storage.Stem(source) + ".mdl"
}

// Export parses one source, encodes it into a fresh buffer and writes the
// buffer to the output store. The outcome is recorded in the catalog either
// way.
func (s *Service) Export(ctx context.Context, src string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res := &Result{Path: src, Output: OutputPath(src)}

	data, err := s.read(src)
	if err != nil {
		return nil, err
	}
	parsed, err := parser.Parse(data)
	if err != nil {
		return nil, s.fail(res, fmt.Errorf("%w: %v", apperr.ErrInvalidModel, err))
	}

	buf, err := buffer.New(0, buffer.WithMaxCapacity(s.opts.MaxBufferBytes))
	if err != nil {
		return nil, s.fail(res, err)
	}
	n, err := mdl.Export(parsed.Model, buf, mdl.Options{
		HeaderTitle:     s.opts.HeaderTitle,
		FileName:        path.Base(res.Output),
		AssignObjectIDs: true,
	})
	if err != nil {
		return nil, s.fail(res, fmt.Errorf("%w: %w", apperr.ErrExportFailed, err))
	}
	if err := s.outputs.Write(res.Output, buf.Data()); err != nil {
		return nil, s.fail(res, fmt.Errorf("%w: %w", apperr.ErrExportFailed, err))
	}

	res.Bytes = n
	res.Checksum = checksum.Sum(buf.Data())
	if err := s.db.RecordExport(catalog.ExportRow{
		Path:       src,
		Output:     res.Output,
		Checksum:   res.Checksum,
		Bytes:      n,
		ExportedAt: time.Now().UTC(),
	}); err != nil {
		return nil, err
	}
	s.logger.Info("model exported", slog.String("path", src), slog.String("output", res.Output), slog.Int("bytes", n))
	if s.notifier != nil {
		s.notifier.PublishExport(src, res.Output, n)
	}
	return res, nil
}

func (s *Service) fail(res *Result, err error) error {
	res.Error = err.Error()
	if recErr := s.db.RecordExport(catalog.ExportRow{
		Path:       res.Path,
		Output:     res.Output,
		ExportedAt: time.Now().UTC(),
		Error:      res.Error,
	}); recErr != nil {
		s.logger.Warn("record failed export", slog.String("path", res.Path), slog.String("error", recErr.Error()))
	}
	if s.notifier != nil {
		s.notifier.PublishExportFailure(res.Path, err)
	}
	return err
}

// ExportAll exports the given sources, or every source in the workspace when
// paths is empty, with bounded concurrency. A failing source does not stop
// the others; failures are joined into the returned error.
func (s *Service) ExportAll(ctx context.Context, paths []string) ([]Result, error) {
	if len(paths) == 0 {
		files, err := s.sources.List("")
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			paths = append(paths, f.Path)
		}
	}

	results := make([]Result, len(paths))
	errs := make([]error, len(paths))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for i, p := range paths {
		g.Go(func() error {
			r, err := s.Export(gCtx, p)
			if err != nil {
				if ctxErr := gCtx.Err(); ctxErr != nil {
					return ctxErr
				}
				results[i] = Result{Path: p, Output: OutputPath(p), Error: err.Error()}
				errs[i] = fmt.Errorf("%s: %w", p, err)
				return nil
			}
			results[i] = *r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, errors.Join(errs...)
}

// GetExport returns the export record of a source and the MDL text.
func (s *Service) GetExport(_ context.Context, src string) (*catalog.ExportRow, []byte, error) {
	row, err := s.db.GetExport(src)
	if err != nil {
		return nil, nil, err
	}
	if row.Error != "" {
		return row, nil, fmt.Errorf("%w: %s", apperr.ErrExportFailed, row.Error)
	}
	text, err := s.outputs.Read(row.Output)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, apperr.ErrNotFound
		}
		return nil, nil, err
	}
	return row, text, nil
}

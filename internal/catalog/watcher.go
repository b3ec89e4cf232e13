package catalog

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/mdlforge/internal/storage"
)

// ChangeKind names a catalog mutation caused by a file event.
type ChangeKind string

const (
	Created ChangeKind = "created"
	Updated ChangeKind = "updated"
	Deleted ChangeKind = "deleted"
)

// ChangeFunc is invoked after each successful catalog mutation.
type ChangeFunc func(kind ChangeKind, path string)

const reconcileDelay = 200 * time.Millisecond

type watcher struct {
	fsw      *fsnotify.Watcher
	db       Catalog
	store    storage.Provider
	root     string
	logger   *slog.Logger
	onChange ChangeFunc
}

// Watch follows file events under root until ctx is cancelled, keeping the
// catalog current. Directories created at runtime are watched as they
// appear. A rename removes the old entry at once and schedules a
// reconciliation pass.
func Watch(ctx context.Context, db Catalog, store storage.Provider, root string, logger *slog.Logger, onChange ChangeFunc) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	w := &watcher{fsw: fsw, db: db, store: store, root: root, logger: logger, onChange: onChange}
	if err := w.addTree(root); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("root", root))

	reconcile := time.NewTimer(reconcileDelay)
	reconcile.Stop()
	defer reconcile.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil
		case <-reconcile.C:
			w.reconcile()
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if w.handle(ev) {
				reconcile.Reset(reconcileDelay)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", err.Error()))
		}
	}
}

// handle applies one event and reports whether a reconciliation is needed.
func (w *watcher) handle(ev fsnotify.Event) bool {
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addTree(ev.Name); err != nil {
				w.logger.Warn("watcher: add dir failed", slog.String("path", ev.Name), slog.String("error", err.Error()))
			}
			w.indexTree(ev.Name)
			return false
		}
	}
	if !storage.IsSource(ev.Name) {
		return false
	}
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)

	switch {
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		kind := Updated
		if ev.Has(fsnotify.Create) {
			kind = Created
		}
		w.index(rel, kind)
	case ev.Has(fsnotify.Remove):
		w.remove(rel)
	case ev.Has(fsnotify.Rename):
		w.remove(rel)
		return true
	}
	return false
}

func (w *watcher) index(rel string, kind ChangeKind) {
	data, err := w.store.Read(rel)
	if err != nil {
		w.logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	cs, _ := w.db.GetChecksum(rel)
	if _, err := IndexSource(w.db, rel, data); err != nil {
		w.logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	if kind == Updated && cs == "" {
		kind = Created
	}
	w.logger.Debug("watcher: indexed", slog.String("path", rel), slog.String("op", string(kind)))
	w.notify(kind, rel)
}

func (w *watcher) remove(rel string) {
	if err := w.db.DeleteModel(rel); err != nil {
		w.logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	w.logger.Debug("watcher: deleted", slog.String("path", rel))
	w.notify(Deleted, rel)
}

func (w *watcher) notify(kind ChangeKind, rel string) {
	if w.onChange != nil {
		w.onChange(kind, rel)
	}
}

// reconcile diffs the catalog against the workspace after renames, which
// fsnotify reports on the old path only.
func (w *watcher) reconcile() {
	known, err := w.db.AllChecksums()
	if err != nil {
		w.logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}
	files, err := w.store.List("")
	if err != nil {
		w.logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}
	onDisk := make(map[string]string, len(files))
	for _, f := range files {
		onDisk[f.Path] = f.Checksum
	}
	for p := range known {
		if _, ok := onDisk[p]; !ok {
			w.remove(p)
		}
	}
	for p, cs := range onDisk {
		if prev, ok := known[p]; !ok {
			w.index(p, Created)
		} else if prev != cs {
			w.index(p, Updated)
		}
	}
}

func (w *watcher) indexTree(dir string) {
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !storage.IsSource(p) {
			return nil
		}
		if rel, err := filepath.Rel(w.root, p); err == nil {
			w.index(filepath.ToSlash(rel), Created)
		}
		return nil
	})
}

func (w *watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.fsw.Add(p)
	})
}

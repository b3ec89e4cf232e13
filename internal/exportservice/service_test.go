package exportservice

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/starford/mdlforge/internal/apperr"
	"github.com/starford/mdlforge/internal/checksum"
	"github.com/starford/mdlforge/internal/storage"
	"github.com/starford/mdlforge/internal/testutil"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) add(ev string) {
	n.mu.Lock()
	n.events = append(n.events, ev)
	n.mu.Unlock()
}

func (n *recordingNotifier) PublishModelEvent(kind, path string) { n.add("model." + kind + ":" + path) }
func (n *recordingNotifier) PublishExport(path, _ string, _ int) { n.add("model.exported:" + path) }
func (n *recordingNotifier) PublishExportFailure(path string, _ error) {
	n.add("export.failed:" + path)
}

func (n *recordingNotifier) list() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}

func newTestService(t *testing.T, opts Options) (*Service, *storage.FS, *storage.FS) {
	t.Helper()
	_, sources := testutil.TestWorkspace(t)
	_, outputs := testutil.TestWorkspace(t)
	db := testutil.TestCatalog(t)
	return NewService(sources, outputs, db, opts, testutil.Logger()), sources, outputs
}

func TestCreateGetUpdateDelete(t *testing.T) {
	svc, _, _ := newTestService(t, Options{})
	ctx := context.Background()
	n := &recordingNotifier{}
	svc.SetNotifier(n)

	created, err := svc.CreateModel(ctx, "crate.model.yaml", []byte(testutil.CrateSource))
	if err != nil {
		t.Fatalf("CreateModel: %v", err)
	}
	if created.Name != "Crate" || len(created.Model.Helpers) != 2 {
		t.Errorf("created = %+v", created)
	}
	if _, err := svc.CreateModel(ctx, "crate.model.yaml", []byte(testutil.CrateSource)); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("duplicate create err = %v", err)
	}

	got, err := svc.GetModel(ctx, "crate.model.yaml")
	if err != nil {
		t.Fatalf("GetModel: %v", err)
	}
	if got.Checksum != checksum.Sum([]byte(testutil.CrateSource)) {
		t.Errorf("checksum = %s", got.Checksum)
	}

	updated := strings.Replace(testutil.CrateSource, "name: Crate", "name: Chest", 1)
	if _, err := svc.UpdateModel(ctx, "crate.model.yaml", []byte(updated), "stale"); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("stale update err = %v", err)
	}
	res, err := svc.UpdateModel(ctx, "crate.model.yaml", []byte(updated), got.Checksum)
	if err != nil {
		t.Fatalf("UpdateModel: %v", err)
	}
	if res.Name != "Chest" {
		t.Errorf("name = %q", res.Name)
	}

	if err := svc.DeleteModel(ctx, "crate.model.yaml"); err != nil {
		t.Fatalf("DeleteModel: %v", err)
	}
	if _, err := svc.GetModel(ctx, "crate.model.yaml"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("get after delete err = %v", err)
	}
	if err := svc.DeleteModel(ctx, "crate.model.yaml"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v", err)
	}

	want := []string{
		"model.created:crate.model.yaml",
		"model.updated:crate.model.yaml",
		"model.deleted:crate.model.yaml",
	}
	if got := n.list(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("events = %v", got)
	}
}

func TestCreateRejectsInvalidSource(t *testing.T) {
	svc, sources, _ := newTestService(t, Options{})
	ctx := context.Background()

	if _, err := svc.CreateModel(ctx, "crate.yaml", []byte(testutil.CrateSource)); !errors.Is(err, apperr.ErrInvalidModel) {
		t.Errorf("bad extension err = %v", err)
	}
	if _, err := svc.CreateModel(ctx, "bad.model.yaml", []byte("helpers: [")); !errors.Is(err, apperr.ErrInvalidModel) {
		t.Errorf("bad yaml err = %v", err)
	}
	if _, err := sources.Read("bad.model.yaml"); err == nil {
		t.Error("invalid source was written")
	}
}

func TestExportWritesMDL(t *testing.T) {
	svc, _, outputs := newTestService(t, Options{HeaderTitle: "Test Export"})
	ctx := context.Background()
	n := &recordingNotifier{}
	svc.SetNotifier(n)
	_, _ = svc.CreateModel(ctx, "props/crate.model.yaml", []byte(testutil.CrateSource))

	res, err := svc.Export(ctx, "props/crate.model.yaml")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if res.Output != "props/crate.mdl" {
		t.Errorf("output = %q", res.Output)
	}
	text, err := outputs.Read("props/crate.mdl")
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if len(text) != res.Bytes {
		t.Errorf("bytes = %d, file = %d", res.Bytes, len(text))
	}
	s := string(text)
	for _, want := range []string{"//|Test Export\r\n", "Model \"Crate\" {\r\n", "\tNumHelpers 2,\r\n", "Helper \"Lid\" {\r\n", "\tParent 0,\r\n", "PivotPoints 2 {\r\n"} {
		if !strings.Contains(s, want) {
			t.Errorf("output missing %q", want)
		}
	}

	row, body, err := svc.GetExport(ctx, "props/crate.model.yaml")
	if err != nil {
		t.Fatalf("GetExport: %v", err)
	}
	if row.Checksum != checksum.Sum(text) || string(body) != s {
		t.Errorf("export row = %+v", row)
	}

	detail, _ := svc.GetModel(ctx, "props/crate.model.yaml")
	if detail.Export == nil || detail.Export.Bytes != res.Bytes {
		t.Errorf("detail export = %+v", detail.Export)
	}

	evs := n.list()
	if evs[len(evs)-1] != "model.exported:props/crate.model.yaml" {
		t.Errorf("events = %v", evs)
	}
}

func TestExportBufferLimitRecordsFailure(t *testing.T) {
	svc, _, outputs := newTestService(t, Options{MaxBufferBytes: 32})
	ctx := context.Background()
	n := &recordingNotifier{}
	_, _ = svc.CreateModel(ctx, "crate.model.yaml", []byte(testutil.CrateSource))
	svc.SetNotifier(n)

	if _, err := svc.Export(ctx, "crate.model.yaml"); !errors.Is(err, apperr.ErrExportFailed) {
		t.Fatalf("err = %v", err)
	}
	if _, err := outputs.Read("crate.mdl"); err == nil {
		t.Error("output written despite failure")
	}
	row, _, err := svc.GetExport(ctx, "crate.model.yaml")
	if !errors.Is(err, apperr.ErrExportFailed) || row == nil || !strings.Contains(row.Error, "crate.mdl") {
		t.Errorf("GetExport = %+v, %v", row, err)
	}
	if evs := n.list(); len(evs) != 1 || evs[0] != "export.failed:crate.model.yaml" {
		t.Errorf("events = %v", evs)
	}
}

func TestExportMissingSource(t *testing.T) {
	svc, _, _ := newTestService(t, Options{})
	if _, err := svc.Export(context.Background(), "nope.model.yaml"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestExportAll(t *testing.T) {
	svc, sources, outputs := newTestService(t, Options{Concurrency: 2})
	ctx := context.Background()
	for _, p := range []string{"a.model.yaml", "b.model.yaml", "sub/c.model.yaml"} {
		_, _ = svc.CreateModel(ctx, p, []byte(testutil.CrateSource))
	}
	_ = sources.Write("broken.model.yaml", []byte("name: \"\n"))

	results, err := svc.ExportAll(ctx, nil)
	if err == nil || !strings.Contains(err.Error(), "broken.model.yaml") {
		t.Errorf("err = %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("results = %d", len(results))
	}
	ok := 0
	for _, r := range results {
		if r.Error == "" {
			ok++
		}
	}
	if ok != 3 {
		t.Errorf("%d successful exports", ok)
	}
	files, _ := outputs.ListExt("", ".mdl")
	if len(files) != 3 {
		t.Errorf("outputs = %+v", files)
	}
}

func TestExportAllCancelled(t *testing.T) {
	svc, _, _ := newTestService(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	_, _ = svc.CreateModel(context.Background(), "a.model.yaml", []byte(testutil.CrateSource))
	cancel()
	if _, err := svc.ExportAll(ctx, []string{"a.model.yaml"}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v", err)
	}
}

func TestSearchAndGraph(t *testing.T) {
	svc, _, _ := newTestService(t, Options{})
	ctx := context.Background()
	_, _ = svc.CreateModel(ctx, "crate.model.yaml", []byte(testutil.CrateSource))

	hits, err := svc.Search(ctx, "Lid", 10)
	if err != nil || len(hits) != 1 {
		t.Fatalf("Search = %+v, %v", hits, err)
	}
	g, err := svc.Graph(ctx, "crate.model.yaml")
	if err != nil {
		t.Fatalf("Graph: %v", err)
	}
	if len(g.Nodes) != 2 || len(g.Links) != 1 || g.Links[0].Target != 0 {
		t.Errorf("graph = %+v", g)
	}
	items, total, err := svc.ListModels(ctx, 10, 0, "")
	if err != nil || total != 1 || items[0].Helpers != 2 {
		t.Errorf("ListModels = %+v %d %v", items, total, err)
	}
}

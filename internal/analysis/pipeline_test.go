package analysis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/revise/internal/graph"
	"github.com/verte-zerg/revise/internal/logging"
	"github.com/verte-zerg/revise/internal/model"
	"github.com/verte-zerg/revise/internal/state"
)

type fakeExtractor struct {
	concepts map[string][]string
	errs     map[string]error
	calls    []string
}

func (f *fakeExtractor) Extract(_ context.Context, doc model.Document) ([]model.Concept, error) {
	f.calls = append(f.calls, doc.Filename)
	if err := f.errs[doc.Filename]; err != nil {
		return nil, err
	}
	var out []model.Concept
	for i, name := range f.concepts[doc.Filename] {
		out = append(out, model.Concept{
			ID:             fmt.Sprintf("%s_%d", doc.Filename, i),
			Name:           name,
			SourceDocument: doc.Filename,
			Importance:     model.ImportanceMedium,
		})
	}
	return out, nil
}

type fixture struct {
	dir      string
	pipeline *Pipeline
	fake     *fakeExtractor
}

var runTime = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	fake := &fakeExtractor{concepts: map[string][]string{}, errs: map[string]error{}}
	return &fixture{
		dir:  dir,
		fake: fake,
		pipeline: &Pipeline{
			Extractor:      fake,
			Now:            func() time.Time { return runTime },
			StatePath:      filepath.Join(dir, "data", "analysis_state.json"),
			ConceptMapPath: filepath.Join(dir, "exports", "concept_map.json"),
		},
	}
}

func doc(filename, content string) model.Document {
	return model.Document{Path: "cours/" + filename, Filename: filename, Content: content}
}

func (f *fixture) names(t *testing.T) []string {
	t.Helper()
	cm, err := graph.LoadConceptMap(f.pipeline.ConceptMapPath)
	if err != nil {
		t.Fatalf("LoadConceptMap: %v", err)
	}
	var names []string
	for _, n := range cm.Nodes {
		names = append(names, n.Name)
	}
	sort.Strings(names)
	return names
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestFirstRunIsFull(t *testing.T) {
	f := newFixture(t)
	f.fake.concepts["AA01.md"] = []string{"Loi d'Ohm", "Puissance"}
	f.fake.concepts["AA02.md"] = []string{"Disjoncteur"}

	report, err := f.pipeline.Run(context.Background(), []model.Document{doc("AA01.md", "ohm"), doc("AA02.md", "disj")}, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Mode != ModeFull || report.TotalConcepts != 3 || len(report.Results) != 2 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if got := f.names(t); !equal(got, []string{"Disjoncteur", "Loi d'Ohm", "Puissance"}) {
		t.Fatalf("unexpected nodes: %v", got)
	}

	st, err := state.Load(f.pipeline.StatePath, nil)
	if err != nil {
		t.Fatalf("state.Load: %v", err)
	}
	if st.Previous()["cours/AA01.md"].ConceptsCount != 2 {
		t.Fatalf("expected concept count recorded, got %+v", st.Previous())
	}
}

func TestUnchangedRunSkipsExtraction(t *testing.T) {
	f := newFixture(t)
	f.fake.concepts["AA01.md"] = []string{"Loi d'Ohm"}
	docs := []model.Document{doc("AA01.md", "ohm")}
	if _, err := f.pipeline.Run(context.Background(), docs, Options{}); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	f.fake.calls = nil

	report, err := f.pipeline.Run(context.Background(), docs, Options{})
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if !report.UpToDate || len(f.fake.calls) != 0 {
		t.Fatalf("expected up to date without extraction, report=%+v calls=%v", report, f.fake.calls)
	}
	if report.Summary.SavingsPct != 100 {
		t.Fatalf("expected 100%% savings, got %v", report.Summary.SavingsPct)
	}
}

func TestIncrementalRunReplacesModifiedAndDeleted(t *testing.T) {
	f := newFixture(t)
	f.fake.concepts["AA01.md"] = []string{"Loi d'Ohm", "Puissance"}
	f.fake.concepts["AA02.md"] = []string{"Disjoncteur"}
	f.fake.concepts["AA03.md"] = []string{"Terre"}
	docs := []model.Document{doc("AA01.md", "v1"), doc("AA02.md", "disj"), doc("AA03.md", "terre")}
	if _, err := f.pipeline.Run(context.Background(), docs, Options{}); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	f.fake.calls = nil
	f.fake.concepts["AA01.md"] = []string{"Loi d'Ohm", "Tension"}
	report, err := f.pipeline.Run(context.Background(), []model.Document{doc("AA01.md", "v2"), doc("AA02.md", "disj")}, Options{})
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if report.Mode != ModeIncremental {
		t.Fatalf("expected incremental mode, got %s", report.Mode)
	}
	if !equal(f.fake.calls, []string{"AA01.md"}) {
		t.Fatalf("only the modified document must be extracted, got %v", f.fake.calls)
	}
	if got := f.names(t); !equal(got, []string{"Disjoncteur", "Loi d'Ohm", "Tension"}) {
		t.Fatalf("unexpected nodes: %v", got)
	}
}

func TestFailedDocumentIsRetried(t *testing.T) {
	f := newFixture(t)
	f.fake.concepts["AA01.md"] = []string{"Loi d'Ohm"}
	f.fake.concepts["AA02.md"] = []string{"Disjoncteur"}
	if _, err := f.pipeline.Run(context.Background(), []model.Document{doc("AA01.md", "v1"), doc("AA02.md", "v1")}, Options{}); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	f.fake.errs["AA02.md"] = errors.New("model unavailable")
	f.fake.concepts["AA01.md"] = []string{"Loi d'Ohm", "Tension"}
	report, err := f.pipeline.Run(context.Background(), []model.Document{doc("AA01.md", "v2"), doc("AA02.md", "v2")}, Options{})
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	failed := report.Failed()
	if len(failed) != 1 || failed[0].Filename != "AA02.md" || failed[0].Reason == "" {
		t.Fatalf("unexpected failures: %+v", failed)
	}
	if got := f.names(t); !equal(got, []string{"Disjoncteur", "Loi d'Ohm", "Tension"}) {
		t.Fatalf("previous concepts of the failed document must be kept: %v", got)
	}

	delete(f.fake.errs, "AA02.md")
	f.fake.calls = nil
	if _, err := f.pipeline.Run(context.Background(), []model.Document{doc("AA01.md", "v2"), doc("AA02.md", "v2")}, Options{}); err != nil {
		t.Fatalf("third Run: %v", err)
	}
	if !equal(f.fake.calls, []string{"AA02.md"}) {
		t.Fatalf("failed document must be retried, got %v", f.fake.calls)
	}
}

func TestDryRunWritesNothing(t *testing.T) {
	f := newFixture(t)
	f.fake.concepts["AA01.md"] = []string{"Loi d'Ohm"}
	report, err := f.pipeline.Run(context.Background(), []model.Document{doc("AA01.md", "v1")}, Options{DryRun: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.Results) != 1 || report.Results[0].Status != StatusPending {
		t.Fatalf("unexpected results: %+v", report.Results)
	}
	if len(f.fake.calls) != 0 {
		t.Fatalf("dry run must not extract")
	}
	for _, p := range []string{f.pipeline.StatePath, f.pipeline.ConceptMapPath} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Fatalf("dry run wrote %s", p)
		}
	}
}

func TestForcedFullRunReextractsEverything(t *testing.T) {
	f := newFixture(t)
	f.fake.concepts["AA01.md"] = []string{"Loi d'Ohm"}
	f.fake.concepts["AA02.md"] = []string{"Disjoncteur"}
	docs := []model.Document{doc("AA01.md", "v1"), doc("AA02.md", "v1")}
	if _, err := f.pipeline.Run(context.Background(), docs, Options{}); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	f.fake.calls = nil
	report, err := f.pipeline.Run(context.Background(), docs, Options{Full: true})
	if err != nil {
		t.Fatalf("full Run: %v", err)
	}
	if report.Mode != ModeFull || len(f.fake.calls) != 2 {
		t.Fatalf("expected full re-extraction, mode=%s calls=%v", report.Mode, f.fake.calls)
	}
}

func TestCancelledRunStopsBeforeWriting(t *testing.T) {
	f := newFixture(t)
	f.pipeline.Delay = time.Hour
	f.fake.concepts["AA01.md"] = []string{"Loi d'Ohm"}
	f.fake.concepts["AA02.md"] = []string{"Disjoncteur"}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.pipeline.Run(ctx, []model.Document{doc("AA01.md", "v1"), doc("AA02.md", "v1")}, Options{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, err := os.Stat(f.pipeline.ConceptMapPath); !os.IsNotExist(err) {
		t.Fatalf("cancelled run must not write the concept map")
	}
}

func TestRunLogsCarryMode(t *testing.T) {
	f := newFixture(t)
	f.fake.concepts["AA01.md"] = []string{"Loi d'Ohm"}
	logPath := filepath.Join(f.dir, "revise.log")
	log, err := logging.New(logging.Options{Level: "info", Format: "json", Output: logPath})
	if err != nil {
		t.Fatalf("logging.New: %v", err)
	}
	f.pipeline.Log = log

	if _, err := f.pipeline.Run(context.Background(), []model.Document{doc("AA01.md", "ohm")}, Options{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	log.Sync()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) < 2 {
		t.Fatalf("expected per-document and summary entries, got:\n%s", data)
	}
	for _, line := range lines {
		if !strings.Contains(line, `"mode":"full"`) {
			t.Fatalf("entry missing mode: %s", line)
		}
	}
}

package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/revise/internal/analysis"
	"github.com/verte-zerg/revise/internal/graph"
	"github.com/verte-zerg/revise/internal/model"
	"github.com/verte-zerg/revise/internal/planning"
	"github.com/verte-zerg/revise/internal/state"
	"github.com/verte-zerg/revise/internal/store"
)

func TestRenderAnalysisListsFailures(t *testing.T) {
	r := analysis.Report{
		Mode: analysis.ModeIncremental,
		Summary: state.Summary{
			Total: 3, Modified: 2, Unchanged: 1, SavingsPct: 33.3,
			DeletedFiles: []string{"AA09.md"}, Deleted: 1,
		},
		Results: []analysis.DocResult{
			{Filename: "AA01.md", Status: analysis.StatusOK, Concepts: 4},
			{Filename: "AA02.md", Status: analysis.StatusFailed, Reason: "invalid JSON"},
		},
		TotalConcepts: 12,
		Suppressed:    []graph.Edge{{From: "A", To: "B"}},
	}
	var buf bytes.Buffer
	if err := RenderAnalysis(&buf, r, Options{}); err != nil {
		t.Fatalf("RenderAnalysis: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Analysis (incremental)",
		"Skipped work: 33%",
		"AA02.md   failed",
		"Removed: AA09.md",
		"Concepts in map: 12",
		"Cycle broken: A -> B",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestRenderSessionsMarksCompleted(t *testing.T) {
	sessions := []model.RevisionSession{
		{ID: "rev_2026-03-09_aaaa0000", Date: "2026-03-09", DayName: "Lundi", DurationMinutes: 30, SessionType: model.SessionNewLearning, Concepts: []string{"Loi d'Ohm"}, Completed: true},
		{ID: "rev_2026-03-10_bbbb0000", Date: "2026-03-10", DayName: "Mardi", DurationMinutes: 45, SessionType: model.SessionRevision, Concepts: []string{"Reviser: Puissance"}},
	}
	var buf bytes.Buffer
	if err := RenderSessions(&buf, "Semaine", sessions, Options{}); err != nil {
		t.Fatalf("RenderSessions: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if lines[0] != "Semaine" {
		t.Fatalf("unexpected title %q", lines[0])
	}
	if !strings.HasPrefix(lines[2], "[x]  Lundi 2026-03-09") || !strings.HasPrefix(lines[3], "[ ]  Mardi 2026-03-10") {
		t.Fatalf("unexpected rows:\n%s", buf.String())
	}
	if !strings.HasPrefix(lines[len(lines)-1], "Load: ") {
		t.Fatalf("expected load sparkline, got %q", lines[len(lines)-1])
	}

	buf.Reset()
	if err := RenderSessions(&buf, "Vide", nil, Options{}); err != nil {
		t.Fatalf("RenderSessions empty: %v", err)
	}
	if buf.String() != "Vide\nNo sessions.\n" {
		t.Fatalf("unexpected empty output %q", buf.String())
	}
}

func TestRenderStatus(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.Local)
	plan := &planning.Plan{
		ExamDate:      "2026-04-01",
		TotalSessions: 2,
		TotalHours:    1.5,
		Sessions:      []model.RevisionSession{{Completed: true}, {}},
		Milestones:    []model.Milestone{{Date: "2026-03-01", Name: "Passé"}, {Date: "2026-03-09", Name: "Premier Quart", Objective: "Bases essentielles"}},
	}
	st := Status{
		Now: now, HasAnalysis: true, LastAnalysis: now, AnalyzedFiles: 3,
		Concepts: 4, Mastered: 1, Plan: plan,
		Runs:     []store.Run{{GeneratedAt: now, TotalSessions: 2, TotalConcepts: 4, TotalHours: 1.5}},
		Upcoming: []model.CourseSession{{Date: "2026-03-04", ModuleCode: "AA02", ModuleName: "Protection", DurationHours: 3.5}},
	}
	plan.HeldBack = []string{"Disjoncteur"}
	var buf bytes.Buffer
	if err := RenderStatus(&buf, st, Options{}); err != nil {
		t.Fatalf("RenderStatus: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Documents: 3",
		"Mastered: 1 (25.0%)",
		"Exam: 2026-04-01 (30 days left)",
		"Completed: 50.0%",
		"Next milestone: 2026-03-09 Premier Quart (Bases essentielles)",
		"Recent plans",
		"Upcoming classes",
		"2026-03-04  AA02    Protection",
		"Held back until their module starts: 1",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestRenderStatusWithoutData(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderStatus(&buf, Status{}, Options{}); err != nil {
		t.Fatalf("RenderStatus: %v", err)
	}
	if !strings.Contains(buf.String(), "revise analyze") || !strings.Contains(buf.String(), "revise plan") {
		t.Fatalf("expected hints, got:\n%s", buf.String())
	}
}

func TestRenderChainEndsWithTarget(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderChain(&buf, "Disjoncteur", []string{"Loi d'Ohm", "Puissance"}, Options{}); err != nil {
		t.Fatalf("RenderChain: %v", err)
	}
	want := "Prerequisites of Disjoncteur\n 1. Loi d'Ohm\n 2. Puissance\n 3. Disjoncteur\n"
	if buf.String() != want {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestRenderGapsAndStats(t *testing.T) {
	var buf bytes.Buffer
	gaps := []graph.Gap{{Concept: "Terre", Importance: "critical", Blocks: 2, ReadyToLearn: true}}
	if err := RenderGaps(&buf, gaps, Options{}); err != nil {
		t.Fatalf("RenderGaps: %v", err)
	}
	if !strings.Contains(buf.String(), "Terre    critical         2  yes") {
		t.Fatalf("unexpected gaps output:\n%s", buf.String())
	}

	buf.Reset()
	s := graph.Stats{Nodes: 3, Edges: 2, Hubs: []graph.Hub{{Name: "Loi d'Ohm", Dependents: 2}}, ByModule: map[string]int{"AA02": 1, "AA01": 2}}
	if err := RenderGraphStats(&buf, s, Options{}); err != nil {
		t.Fatalf("RenderGraphStats: %v", err)
	}
	out := buf.String()
	if strings.Index(out, "AA01") > strings.Index(out, "AA02") {
		t.Fatalf("modules must be sorted:\n%s", out)
	}
}

func TestSparkline(t *testing.T) {
	if got := Sparkline([]float64{0, 5, 10}); got != " +@" {
		t.Fatalf("unexpected sparkline %q", got)
	}
	if got := Sparkline([]float64{3, 3}); got != "++" {
		t.Fatalf("unexpected flat sparkline %q", got)
	}
}

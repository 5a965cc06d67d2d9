package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/verte-zerg/revise/internal/analysis"
	"github.com/verte-zerg/revise/internal/graph"
	"github.com/verte-zerg/revise/internal/model"
	"github.com/verte-zerg/revise/internal/planning"
	"github.com/verte-zerg/revise/internal/store"
)

const conceptColumnWidth = 48

// RenderAnalysis prints the change summary and the per-document results.
func RenderAnalysis(w io.Writer, r analysis.Report, o Options) error {
	s := r.Summary
	title := "Analysis (" + r.Mode + ")"
	if r.DryRun {
		title += " [dry run]"
	}
	lines := []string{
		o.heading(title),
		fmt.Sprintf("Documents: %d  new: %d  modified: %d  unchanged: %d  deleted: %d", s.Total, s.New, s.Modified, s.Unchanged, s.Deleted),
		fmt.Sprintf("Skipped work: %.0f%%", s.SavingsPct),
	}
	if r.UpToDate {
		lines = append(lines, "Concept map is up to date.")
	}
	if len(r.Results) > 0 {
		t := newTable("Document", "Status", "Concepts", "Reason").alignRight(2)
		for _, res := range r.Results {
			t.add(res.Filename, string(res.Status), strconv.Itoa(res.Concepts), truncate(res.Reason, conceptColumnWidth))
		}
		lines = append(lines, "")
		lines = append(lines, t.lines()...)
	}
	if len(s.DeletedFiles) > 0 {
		lines = append(lines, "", "Removed: "+strings.Join(s.DeletedFiles, ", "))
	}
	lines = append(lines, "", fmt.Sprintf("Concepts in map: %d", r.TotalConcepts))
	if n := len(r.Dangling); n > 0 {
		lines = append(lines, o.warn(fmt.Sprintf("Unknown prerequisites: %d", n)))
	}
	for _, e := range r.Suppressed {
		lines = append(lines, o.warn(fmt.Sprintf("Cycle broken: %s -> %s", e.From, e.To)))
	}
	return write(w, lines)
}

// RenderPlanResult prints the outcome of a plan generation.
func RenderPlanResult(w io.Writer, res planning.Result, o Options) error {
	if !res.Success {
		return write(w, []string{o.warn("Plan generation failed: " + res.Error)})
	}
	lines := []string{
		o.heading("Revision plan"),
		fmt.Sprintf("Sessions: %d", res.TotalSessions),
		fmt.Sprintf("Concepts: %d", res.TotalConcepts),
		fmt.Sprintf("Hours: %.1f", res.TotalHours),
		fmt.Sprintf("Days until exam: %d", res.DaysUntilExam),
	}
	if res.Reconciled != nil {
		lines = append(lines, fmt.Sprintf("Progress: %d kept, %d moved, %d orphaned",
			res.Reconciled.Kept, res.Reconciled.Migrated, len(res.Reconciled.Orphaned)))
	}
	if len(res.Milestones) > 0 {
		lines = append(lines, "", o.heading("Milestones"))
		t := newTable().alignRight(3)
		for _, m := range res.Milestones {
			t.add(m.Date, m.Name, m.Objective, strconv.Itoa(m.Progress)+"%")
		}
		lines = append(lines, t.lines()...)
	}
	for _, warning := range res.Warnings {
		lines = append(lines, o.warn("warning: "+warning))
	}
	lines = append(lines, "", "Written: "+res.JSONPath, "Written: "+res.MDPath)
	return write(w, lines)
}

// RenderSessions prints sessions as a table.
func RenderSessions(w io.Writer, title string, sessions []model.RevisionSession, o Options) error {
	lines := []string{o.heading(title)}
	if len(sessions) == 0 {
		lines = append(lines, "No sessions.")
		return write(w, lines)
	}
	t := newTable("", "Day", "Type", "Min", "Concepts", "Id").alignRight(3)
	minutes := make([]float64, 0, len(sessions))
	for _, s := range sessions {
		mark := " "
		if s.Completed {
			mark = "x"
		}
		t.add(
			"["+mark+"]",
			s.DayName+" "+s.Date,
			string(s.SessionType),
			strconv.Itoa(s.DurationMinutes),
			truncate(strings.Join(s.Concepts, ", "), conceptColumnWidth),
			s.ID,
		)
		minutes = append(minutes, float64(s.DurationMinutes))
	}
	lines = append(lines, t.lines()...)
	if len(sessions) > 1 {
		lines = append(lines, "", "Load: "+Sparkline(minutes))
	}
	return write(w, lines)
}

// Status gathers what the status command shows.
type Status struct {
	Now           time.Time
	HasAnalysis   bool
	LastAnalysis  time.Time
	AnalyzedFiles int
	Concepts      int
	Plan          *planning.Plan
	Mastered      int
	Runs          []store.Run
	Orphaned      int
	// Upcoming lists the next in-person classes.
	Upcoming []model.CourseSession
}

// RenderStatus prints analysis, plan and progress information.
func RenderStatus(w io.Writer, st Status, o Options) error {
	lines := []string{o.heading("Analysis")}
	if st.HasAnalysis {
		lines = append(lines,
			"Last run: "+st.LastAnalysis.Local().Format("2006-01-02 15:04"),
			fmt.Sprintf("Documents: %d", st.AnalyzedFiles),
		)
	} else {
		lines = append(lines, "No analysis yet. Run: revise analyze")
	}
	lines = append(lines, fmt.Sprintf("Concepts: %d", st.Concepts))
	if st.Concepts > 0 {
		lines = append(lines, fmt.Sprintf("Mastered: %d (%.1f%%)", st.Mastered, float64(st.Mastered)/float64(st.Concepts)*100))
	}

	lines = append(lines, "", o.heading("Plan"))
	if st.Plan == nil {
		lines = append(lines, "No plan yet. Run: revise plan")
	} else {
		p := st.Plan
		lines = append(lines,
			fmt.Sprintf("Exam: %s (%d days left)", p.ExamDate, daysLeft(st.Now, p.ExamDate)),
			fmt.Sprintf("Sessions: %d  hours: %.1f", p.TotalSessions, p.TotalHours),
			o.done(fmt.Sprintf("Completed: %.1f%%", p.CompletionRate())),
		)
		if next, ok := nextMilestone(p.Milestones, st.Now); ok {
			lines = append(lines, fmt.Sprintf("Next milestone: %s %s (%s)", next.Date, next.Name, next.Objective))
		}
		if len(p.Unscheduled) > 0 {
			lines = append(lines, o.warn(fmt.Sprintf("Unscheduled concepts: %d", len(p.Unscheduled))))
		}
		if len(p.HeldBack) > 0 {
			lines = append(lines, o.warn(fmt.Sprintf("Held back until their module starts: %d", len(p.HeldBack))))
		}
	}
	if st.Orphaned > 0 {
		lines = append(lines, o.warn(fmt.Sprintf("Orphaned completions: %d", st.Orphaned)))
	}

	if len(st.Upcoming) > 0 {
		lines = append(lines, "", o.heading("Upcoming classes"))
		t := newTable("Date", "Module", "Name", "Hours").alignRight(3)
		for _, cs := range st.Upcoming {
			hours := ""
			if cs.DurationHours > 0 {
				hours = strconv.FormatFloat(cs.DurationHours, 'f', 1, 64)
			}
			t.add(cs.Date, cs.ModuleCode, cs.ModuleName, hours)
		}
		lines = append(lines, t.lines()...)
	}

	if len(st.Runs) > 0 {
		lines = append(lines, "", o.heading("Recent plans"))
		t := newTable("Generated", "Sessions", "Concepts", "Hours").alignRight(1, 2, 3)
		for _, r := range st.Runs {
			t.add(
				r.GeneratedAt.Local().Format("2006-01-02 15:04"),
				strconv.Itoa(r.TotalSessions),
				strconv.Itoa(r.TotalConcepts),
				strconv.FormatFloat(r.TotalHours, 'f', 1, 64),
			)
		}
		lines = append(lines, t.lines()...)
	}
	return write(w, lines)
}

func daysLeft(now time.Time, examDate string) int {
	exam, err := model.ParseDay(examDate, now.Location())
	if err != nil {
		return 0
	}
	return model.DaysBetween(now, exam)
}

func nextMilestone(milestones []model.Milestone, now time.Time) (model.Milestone, bool) {
	today := model.DayKey(now)
	for _, m := range milestones {
		if m.Date >= today {
			return m, true
		}
	}
	return model.Milestone{}, false
}

// RenderImpact prints what depends on a concept.
func RenderImpact(w io.Writer, im graph.Impact, o Options) error {
	lines := []string{
		o.heading("Impact of " + im.Concept),
		fmt.Sprintf("Score: %d", im.ImpactScore),
		"Direct dependents: " + joinOrNone(im.DirectDependents),
		"All dependents: " + joinOrNone(im.AllDependents),
	}
	if im.IsFoundational {
		lines = append(lines, o.warn("Foundational concept: learn it early."))
	}
	return write(w, lines)
}

// RenderChain prints the prerequisites of a concept in learning order.
func RenderChain(w io.Writer, name string, chain []string, o Options) error {
	lines := []string{o.heading("Prerequisites of " + name)}
	if len(chain) == 0 {
		lines = append(lines, "None.")
		return write(w, lines)
	}
	for i, c := range chain {
		lines = append(lines, fmt.Sprintf("%2d. %s", i+1, c))
	}
	lines = append(lines, fmt.Sprintf("%2d. %s", len(chain)+1, name))
	return write(w, lines)
}

// RenderGaps prints the knowledge gaps table.
func RenderGaps(w io.Writer, gaps []graph.Gap, o Options) error {
	lines := []string{o.heading("Knowledge gaps")}
	if len(gaps) == 0 {
		lines = append(lines, "No gaps.")
		return write(w, lines)
	}
	t := newTable("Concept", "Importance", "Blocks", "Ready", "Missing").alignRight(2)
	for _, g := range gaps {
		ready := "no"
		if g.ReadyToLearn {
			ready = "yes"
		}
		t.add(
			truncate(g.Concept, conceptColumnWidth),
			g.Importance,
			strconv.Itoa(g.Blocks),
			ready,
			truncate(strings.Join(g.MissingPrerequisites, ", "), conceptColumnWidth),
		)
	}
	lines = append(lines, t.lines()...)
	return write(w, lines)
}

// RenderGraphStats prints the shape of the concept graph.
func RenderGraphStats(w io.Writer, s graph.Stats, o Options) error {
	lines := []string{
		o.heading("Concept graph"),
		fmt.Sprintf("Concepts: %d  links: %d  isolated: %d", s.Nodes, s.Edges, s.Isolated),
	}
	if s.Dangling > 0 {
		lines = append(lines, o.warn(fmt.Sprintf("Unknown prerequisites: %d", s.Dangling)))
	}
	if s.Suppressed > 0 {
		lines = append(lines, o.warn(fmt.Sprintf("Cycle edges ignored: %d", s.Suppressed)))
	}
	if len(s.Hubs) > 0 {
		lines = append(lines, "", o.heading("Hubs"))
		t := newTable("Concept", "Dependents").alignRight(1)
		for _, h := range s.Hubs {
			t.add(h.Name, strconv.Itoa(h.Dependents))
		}
		lines = append(lines, t.lines()...)
	}
	if len(s.ByModule) > 0 {
		modules := make([]string, 0, len(s.ByModule))
		for m := range s.ByModule {
			modules = append(modules, m)
		}
		sort.Strings(modules)
		t := newTable("Module", "Concepts").alignRight(1)
		for _, m := range modules {
			t.add(m, strconv.Itoa(s.ByModule[m]))
		}
		lines = append(lines, "", o.heading("Modules"))
		lines = append(lines, t.lines()...)
	}
	return write(w, lines)
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

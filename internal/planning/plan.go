// Package planning builds, exports and regenerates the revision plan.
package planning

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/verte-zerg/revise/internal/graph"
	"github.com/verte-zerg/revise/internal/model"
	"github.com/verte-zerg/revise/internal/schedule"
)

var (
	// ErrNoConceptMap is returned when no analysed concepts are available.
	ErrNoConceptMap = errors.New("planning: no concept map, run analyze first")
	// ErrNoPlan is returned when the plan has not been generated yet.
	ErrNoPlan = errors.New("planning: no plan, run plan first")
	// ErrExamPassed is reported as a plan warning when no day is left before the exam.
	ErrExamPassed = errors.New("planning: exam date is not in the future")
)

// Plan is the exported revision plan.
type Plan struct {
	GeneratedAt     time.Time               `json:"generated_at"`
	ExamDate        string                  `json:"exam_date"`
	StartDate       string                  `json:"start_date"`
	TotalSessions   int                     `json:"total_sessions"`
	TotalConcepts   int                     `json:"total_concepts"`
	TotalHours      float64                 `json:"total_hours"`
	WeekdayMinutes  int                     `json:"weekday_minutes"`
	WeekendHours    float64                 `json:"weekend_hours"`
	ConceptsCovered []string                `json:"concepts_covered"`
	Categories      map[string][]string     `json:"categories"`
	Milestones      []model.Milestone       `json:"milestones"`
	Sessions        []model.RevisionSession `json:"sessions"`
	Statistics      schedule.Statistics     `json:"statistics"`
	Unscheduled     []string                `json:"unscheduled"`
	HeldBack        []string                `json:"held_back,omitempty"`
	Warnings        []string                `json:"warnings"`
}

// Options configures Generate.
type Options struct {
	Now            time.Time
	Start          time.Time
	Exam           time.Time
	WeekdayMinutes int
	WeekendHours   float64
	PracticeDays   int
	CourseDates    map[string]bool
	// Completed holds ids of sessions already done.
	Completed map[string]bool
	// ModuleStarted, when set, holds back concepts whose module has not had
	// its first class yet. Concepts without a module are always kept.
	ModuleStarted func(code string) bool
}

// Generate schedules the concepts of cm in learning order, overlays reviews
// and the practice block, then assigns ids, milestones and statistics.
func Generate(cm *graph.ConceptMap, opts Options) (*Plan, error) {
	if cm.IsEmpty() {
		return nil, ErrNoConceptMap
	}
	g := graph.Build(cm.Nodes)
	concepts, heldBack := holdBack(g.OrderedConcepts(), opts.ModuleStarted)
	today := model.StartOfDay(opts.Now)
	start := opts.Start
	if start.IsZero() || start.Before(today) {
		start = today
	}

	sessions, unscheduled := schedule.Generate(concepts, schedule.Options{
		Start:          start,
		Exam:           opts.Exam,
		WeekdayMinutes: opts.WeekdayMinutes,
		WeekendHours:   opts.WeekendHours,
		CourseDates:    opts.CourseDates,
	})
	// Review offsets count from start, the first learning day.
	sessions = schedule.InjectReviews(sessions, concepts, schedule.ReviewOptions{
		Now:         start,
		Exam:        opts.Exam,
		CourseDates: opts.CourseDates,
	})
	if opts.PracticeDays > 0 {
		sessions = schedule.AddPractice(sessions, schedule.PracticeOptions{
			Start:       start,
			Exam:        opts.Exam,
			Days:        opts.PracticeDays,
			CourseDates: opts.CourseDates,
		})
	}
	schedule.SortSessions(sessions)
	schedule.AssignIDs(sessions)
	for i := range sessions {
		sessions[i].Completed = opts.Completed[sessions[i].ID]
	}

	stats := schedule.ComputeStats(sessions, opts.Now, opts.Exam, len(unscheduled))
	plan := &Plan{
		GeneratedAt:     opts.Now,
		ExamDate:        model.DayKey(opts.Exam),
		StartDate:       model.DayKey(start),
		TotalSessions:   len(sessions),
		TotalConcepts:   len(concepts),
		TotalHours:      stats.TotalRevisionHours,
		WeekdayMinutes:  opts.WeekdayMinutes,
		WeekendHours:    opts.WeekendHours,
		ConceptsCovered: make([]string, 0, len(concepts)),
		Categories:      g.Categories(),
		Milestones:      schedule.Milestones(opts.Now, opts.Exam),
		Sessions:        sessions,
		Statistics:      stats,
		Unscheduled:     []string{},
		Warnings:        []string{},
	}
	if plan.Milestones == nil {
		plan.Milestones = []model.Milestone{}
	}
	if plan.Sessions == nil {
		plan.Sessions = []model.RevisionSession{}
	}
	for _, c := range concepts {
		plan.ConceptsCovered = append(plan.ConceptsCovered, c.Name)
	}
	for _, c := range unscheduled {
		plan.Unscheduled = append(plan.Unscheduled, c.Name)
	}
	modules := map[string]bool{}
	for _, c := range heldBack {
		plan.HeldBack = append(plan.HeldBack, c.Name)
		modules[strings.TrimSpace(c.Module)] = true
	}

	if !model.StartOfDay(opts.Exam).After(today) {
		plan.Warnings = append(plan.Warnings, ErrExamPassed.Error())
	} else if len(unscheduled) > 0 {
		plan.Warnings = append(plan.Warnings, fmt.Sprintf("%d concepts could not be scheduled before the exam", len(unscheduled)))
	}
	if len(heldBack) > 0 {
		codes := make([]string, 0, len(modules))
		for code := range modules {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		plan.Warnings = append(plan.Warnings, fmt.Sprintf("%d concepts held back until their module starts: %s", len(heldBack), strings.Join(codes, ", ")))
	}
	for _, e := range g.SuppressedEdges() {
		plan.Warnings = append(plan.Warnings, fmt.Sprintf("prerequisite cycle: ignored %q -> %q", e.From, e.To))
	}
	if n := len(g.DanglingRefs()); n > 0 {
		plan.Warnings = append(plan.Warnings, fmt.Sprintf("%d prerequisites refer to unknown concepts", n))
	}
	return plan, nil
}

// holdBack splits concepts into those whose module has started and the rest,
// keeping learning order in both.
func holdBack(concepts []model.Concept, started func(string) bool) (kept, held []model.Concept) {
	if started == nil {
		return concepts, nil
	}
	for _, c := range concepts {
		if code := strings.TrimSpace(c.Module); code != "" && !started(code) {
			held = append(held, c)
			continue
		}
		kept = append(kept, c)
	}
	return kept, held
}

// CompletionRate returns the share of sessions marked completed, in percent.
func (p *Plan) CompletionRate() float64 {
	if len(p.Sessions) == 0 {
		return 0
	}
	done := 0
	for _, s := range p.Sessions {
		if s.Completed {
			done++
		}
	}
	return float64(done) / float64(len(p.Sessions)) * 100
}

// Session returns the session with the given id.
func (p *Plan) Session(id string) (model.RevisionSession, bool) {
	for _, s := range p.Sessions {
		if s.ID == id {
			return s, true
		}
	}
	return model.RevisionSession{}, false
}

// Week returns sessions dated within the seven days starting at from.
func (p *Plan) Week(from time.Time) []model.RevisionSession {
	lo := model.DayKey(from)
	hi := model.DayKey(from.AddDate(0, 0, 7))
	var out []model.RevisionSession
	for _, s := range p.Sessions {
		if s.Date >= lo && s.Date < hi {
			out = append(out, s)
		}
	}
	return out
}

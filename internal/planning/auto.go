package planning

import (
	"context"
	"fmt"

	"github.com/verte-zerg/revise/internal/app"
	"github.com/verte-zerg/revise/internal/courses"
	"github.com/verte-zerg/revise/internal/graph"
	"github.com/verte-zerg/revise/internal/model"
	"github.com/verte-zerg/revise/internal/schedule"
	"github.com/verte-zerg/revise/internal/store"
)

// Result is what AutoGenerate reports to its caller.
type Result struct {
	Success       bool                   `json:"success"`
	JSONPath      string                 `json:"json_path,omitempty"`
	MDPath        string                 `json:"md_path,omitempty"`
	TotalConcepts int                    `json:"total_concepts"`
	TotalSessions int                    `json:"total_sessions"`
	TotalHours    float64                `json:"total_hours"`
	DaysUntilExam int                    `json:"days_until_exam"`
	Milestones    []model.Milestone      `json:"milestones,omitempty"`
	Warnings      []string               `json:"warnings,omitempty"`
	Reconciled    *store.ReconcileResult `json:"reconciled,omitempty"`
	RunID         string                 `json:"run_id,omitempty"`
	Error         string                 `json:"error,omitempty"`
}

// AutoGenerate regenerates the whole plan from the concept map, reconciles
// completion records with the new session ids and writes the JSON and
// Markdown exports. Errors are reported in the Result.
func AutoGenerate(ctx context.Context, a *app.Context) Result {
	res, err := autoGenerate(ctx, a)
	if err != nil {
		a.Log.Error("plan generation failed", "error", err)
		return Result{Success: false, Error: err.Error()}
	}
	return res
}

func autoGenerate(ctx context.Context, a *app.Context) (Result, error) {
	cm, err := graph.LoadConceptMap(a.Paths.ConceptMap)
	if err != nil {
		return Result{}, err
	}
	if cm.IsEmpty() {
		return Result{}, ErrNoConceptMap
	}
	sched, err := courses.Load(a.Paths.CourseSchedule)
	if err != nil {
		return Result{}, err
	}

	plan, err := Generate(cm, OptionsFor(a, sched))
	if err != nil {
		return Result{}, err
	}

	var reconciled *store.ReconcileResult
	if a.Store != nil {
		rec, err := a.Store.Reconcile(ctx, PlanSessions(plan))
		if err != nil {
			return Result{}, fmt.Errorf("failed to reconcile progress: %w", err)
		}
		reconciled = &rec
		if len(rec.Orphaned) > 0 {
			a.Log.Warn("completed sessions no longer planned", "count", len(rec.Orphaned), "ids", rec.Orphaned)
			plan.Warnings = append(plan.Warnings, fmt.Sprintf("%d completed sessions no longer match the plan", len(rec.Orphaned)))
		}
		done, err := a.Store.CompletedSessions(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("failed to load progress: %w", err)
		}
		ApplyCompleted(plan, done)
	}

	now := a.Clock()
	if err := SavePlan(a.Paths.Plan, plan); err != nil {
		return Result{}, err
	}
	if err := SaveMarkdown(a.Paths.PlanMarkdown, plan, now); err != nil {
		return Result{}, err
	}

	res := Result{
		Success:       true,
		JSONPath:      a.Paths.Plan,
		MDPath:        a.Paths.PlanMarkdown,
		TotalConcepts: plan.TotalConcepts,
		TotalSessions: plan.TotalSessions,
		TotalHours:    plan.TotalHours,
		DaysUntilExam: plan.Statistics.DaysUntilExam,
		Milestones:    plan.Milestones,
		Warnings:      plan.Warnings,
		Reconciled:    reconciled,
	}
	if a.Store != nil {
		id, err := a.Store.RecordRun(ctx, store.Run{
			GeneratedAt:   plan.GeneratedAt,
			ExamDate:      plan.ExamDate,
			TotalSessions: plan.TotalSessions,
			TotalConcepts: plan.TotalConcepts,
			TotalHours:    plan.TotalHours,
		})
		if err != nil {
			return Result{}, err
		}
		res.RunID = id
	}
	a.Log.Info("plan generated",
		"sessions", res.TotalSessions,
		"concepts", res.TotalConcepts,
		"hours", res.TotalHours,
		"days_until_exam", res.DaysUntilExam,
	)
	return res, nil
}

// OptionsFor builds generation options from the runtime context.
func OptionsFor(a *app.Context, sched *courses.Schedule) Options {
	s := a.Settings
	opts := Options{
		Now:            a.Clock(),
		Start:          a.StartDate(),
		Exam:           s.ExamDate,
		WeekdayMinutes: s.WeekdayMinutes,
		WeekendHours:   s.WeekendHours,
		PracticeDays:   s.PracticeDays,
	}
	if sched != nil {
		opts.CourseDates = sched.BlockedDates()
		if s.OnlyStartedModules {
			now := opts.Now
			opts.ModuleStarted = func(code string) bool { return sched.IsModuleStarted(code, now) }
		}
	}
	return opts
}

// PlanSessions lists the ids and content keys used for reconciliation.
func PlanSessions(plan *Plan) []store.PlanSession {
	out := make([]store.PlanSession, len(plan.Sessions))
	for i, s := range plan.Sessions {
		out[i] = store.PlanSession{ID: s.ID, ContentKey: schedule.ContentKey(s), Date: s.Date}
	}
	return out
}

// ApplyCompleted sets each session's Completed flag from done.
func ApplyCompleted(plan *Plan, done map[string]bool) {
	for i := range plan.Sessions {
		plan.Sessions[i].Completed = done[plan.Sessions[i].ID]
	}
}

package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/revise/internal/analysis"
	"github.com/verte-zerg/revise/internal/courses"
	"github.com/verte-zerg/revise/internal/extractor"
	"github.com/verte-zerg/revise/internal/planning"
	"github.com/verte-zerg/revise/internal/report"
	"github.com/verte-zerg/revise/internal/scanner"
	"github.com/verte-zerg/revise/internal/state"
)

var (
	analyzeFull   bool
	analyzeDryRun bool
	analyzeNoPlan bool

	weekOffset int
)

const upcomingClasses = 5

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Extract concepts from new and modified course documents",
		Args:  cobra.NoArgs,
		RunE:  runAnalyzeCmd,
	}
	cmd.Flags().BoolVar(&analyzeFull, "full", false, "re-analyse every document and rebuild the concept map")
	cmd.Flags().BoolVar(&analyzeDryRun, "dry-run", false, "show what would be analysed without calling the model")
	cmd.Flags().BoolVar(&analyzeNoPlan, "no-plan", false, "do not regenerate the plan after analysis")
	addPlanFlags(cmd)
	return cmd
}

func runAnalyzeCmd(cmd *cobra.Command, _ []string) error {
	a, err := openContext(cmd)
	if err != nil {
		return err
	}
	defer closeContext(a)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	docs, err := scanner.Scan(a.Paths.Courses)
	if err != nil {
		return err
	}

	p := &analysis.Pipeline{
		Log:            a.Log,
		Delay:          a.Settings.LLM.Delay,
		Now:            a.Now,
		StatePath:      a.Paths.State,
		ConceptMapPath: a.Paths.ConceptMap,
	}
	if !analyzeDryRun {
		client, err := extractor.NewClient(a.Settings.LLM)
		if err != nil {
			return fmt.Errorf("failed to create %s client: %w", a.Settings.LLM.Provider, err)
		}
		p.Extractor = extractor.New(client, a.Settings.LLM.MaxContentChars)
	}

	rep, err := p.Run(ctx, docs, analysis.Options{Full: analyzeFull, DryRun: analyzeDryRun})
	if err != nil {
		return err
	}
	opts := renderOptions(cmd)
	if err := report.RenderAnalysis(cmd.OutOrStdout(), rep, opts); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if rep.DryRun {
		logErrln("dry run: state, concept map and plan left untouched")
		return nil
	}
	if rep.UpToDate || analyzeNoPlan {
		return nil
	}

	res := planning.AutoGenerate(ctx, a)
	if _, err := fmt.Fprintln(cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := report.RenderPlanResult(cmd.OutOrStdout(), res, opts); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if n := len(rep.Failed()); n > 0 {
		logErrf("%d documents failed and will be retried on the next run\n", n)
	}
	return nil
}

func newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Regenerate the revision plan from the concept map",
		Args:  cobra.NoArgs,
		RunE:  runPlanCmd,
	}
	addPlanFlags(cmd)
	return cmd
}

func runPlanCmd(cmd *cobra.Command, _ []string) error {
	a, err := openContext(cmd)
	if err != nil {
		return err
	}
	defer closeContext(a)

	res := planning.AutoGenerate(cmd.Context(), a)
	if !res.Success {
		return errors.New(res.Error)
	}
	if err := report.RenderPlanResult(cmd.OutOrStdout(), res, renderOptions(cmd)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show analysis, plan and progress status",
		Args:  cobra.NoArgs,
		RunE:  runStatusCmd,
	}
}

func runStatusCmd(cmd *cobra.Command, _ []string) error {
	a, err := openContext(cmd)
	if err != nil {
		return err
	}
	defer closeContext(a)
	ctx := cmd.Context()

	st := report.Status{Now: a.Clock()}
	fingerprints, err := state.Load(a.Paths.State, a.Now)
	if err != nil {
		return err
	}
	st.LastAnalysis, st.AnalyzedFiles, st.HasAnalysis = fingerprints.LastAnalysis()

	cm, err := loadConceptMap(a.Paths.ConceptMap)
	if err != nil && !errors.Is(err, planning.ErrNoConceptMap) {
		return err
	}
	if cm != nil {
		st.Concepts = len(cm.Nodes)
	}

	// Best-effort: an unreadable calendar is logged and skipped.
	if sched, err := courses.Load(a.Paths.CourseSchedule); err != nil {
		a.Log.Warn("course schedule unreadable", "path", a.Paths.CourseSchedule, "error", err)
	} else {
		st.Upcoming = sched.Upcoming(a.Clock(), upcomingClasses)
	}

	if st.Plan, err = planning.LoadPlan(a.Paths.Plan); err != nil {
		return err
	}
	if st.Plan != nil {
		if err := syncCompleted(ctx, a, st.Plan); err != nil {
			return err
		}
	}

	mastered, err := a.Store.MasteredNames(ctx)
	if err != nil {
		return fmt.Errorf("failed to load mastered concepts: %w", err)
	}
	st.Mastered = len(mastered)
	if st.Runs, err = a.Store.ListRuns(ctx, 5); err != nil {
		return fmt.Errorf("failed to load plan runs: %w", err)
	}
	completions, err := a.Store.ListCompletions(ctx)
	if err != nil {
		return fmt.Errorf("failed to load completions: %w", err)
	}
	for _, c := range completions {
		if c.Orphaned {
			st.Orphaned++
		}
	}

	if err := report.RenderStatus(cmd.OutOrStdout(), st, renderOptions(cmd)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newWeekCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "week",
		Short: "Show the sessions of the next seven days",
		Args:  cobra.NoArgs,
		RunE:  runWeekCmd,
	}
	cmd.Flags().IntVar(&weekOffset, "offset", 0, "number of weeks to shift (negative for past weeks)")
	return cmd
}

func runWeekCmd(cmd *cobra.Command, _ []string) error {
	a, err := openContext(cmd)
	if err != nil {
		return err
	}
	defer closeContext(a)

	plan, err := loadPlan(a.Paths.Plan)
	if err != nil {
		return err
	}
	if err := syncCompleted(cmd.Context(), a, plan); err != nil {
		return err
	}
	from := a.Today().AddDate(0, 0, 7*weekOffset)
	title := "Week of " + from.Format("2006-01-02")
	if err := report.RenderSessions(cmd.OutOrStdout(), title, plan.Week(from), renderOptions(cmd)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

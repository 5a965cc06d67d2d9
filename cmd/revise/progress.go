package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/revise/internal/app"
	"github.com/verte-zerg/revise/internal/graph"
	"github.com/verte-zerg/revise/internal/planning"
	"github.com/verte-zerg/revise/internal/schedule"
	"github.com/verte-zerg/revise/internal/store"
	"github.com/verte-zerg/revise/internal/tui"
)

var exportHTML bool

func newDoneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "done <session-id>",
		Short: "Mark a session as completed",
		Args:  cobra.ExactArgs(1),
		RunE:  runDoneCmd,
	}
}

func runDoneCmd(cmd *cobra.Command, args []string) error {
	a, err := openContext(cmd)
	if err != nil {
		return err
	}
	defer closeContext(a)
	ctx := cmd.Context()

	plan, err := loadPlan(a.Paths.Plan)
	if err != nil {
		return err
	}
	s, ok := plan.Session(args[0])
	if !ok {
		return fmt.Errorf("unknown session %q (see: revise week)", args[0])
	}
	err = a.Store.MarkSessionDone(ctx, store.Completion{
		SessionID:   s.ID,
		ContentKey:  schedule.ContentKey(s),
		Date:        s.Date,
		CompletedAt: a.Clock(),
	})
	if err != nil {
		return fmt.Errorf("failed to save completion: %w", err)
	}
	if err := savePlanProgress(ctx, a, plan); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Completed %s (%s). Progress: %.1f%%\n", s.ID, s.Date, plan.CompletionRate())
	return err
}

func newUndoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "undo <session-id>",
		Short: "Clear the completion of a session",
		Args:  cobra.ExactArgs(1),
		RunE:  runUndoCmd,
	}
}

func runUndoCmd(cmd *cobra.Command, args []string) error {
	a, err := openContext(cmd)
	if err != nil {
		return err
	}
	defer closeContext(a)
	ctx := cmd.Context()

	removed, err := a.Store.UnmarkSession(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to clear completion: %w", err)
	}
	if !removed {
		return fmt.Errorf("session %q is not marked done", args[0])
	}
	plan, err := planning.LoadPlan(a.Paths.Plan)
	if err != nil {
		return err
	}
	if plan != nil {
		if err := savePlanProgress(ctx, a, plan); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", args[0])
	return err
}

func newMasterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "master <concept>",
		Short: "Mark a concept as mastered",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runMasterCmd,
	}
}

func runMasterCmd(cmd *cobra.Command, args []string) error {
	a, err := openContext(cmd)
	if err != nil {
		return err
	}
	defer closeContext(a)

	cm, err := loadConceptMap(a.Paths.ConceptMap)
	if err != nil {
		return err
	}
	name := conceptArg(args)
	c, ok := graph.Build(cm.Nodes).Concept(name)
	if !ok {
		return fmt.Errorf("%w: %q", graph.ErrConceptNotFound, name)
	}
	if err := a.Store.MarkConceptMastered(cmd.Context(), c.Name, a.Clock()); err != nil {
		return fmt.Errorf("failed to save mastery: %w", err)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Mastered %s\n", c.Name)
	return err
}

func newUnmasterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unmaster <concept>",
		Short: "Clear the mastery of a concept",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runUnmasterCmd,
	}
}

func runUnmasterCmd(cmd *cobra.Command, args []string) error {
	a, err := openContext(cmd)
	if err != nil {
		return err
	}
	defer closeContext(a)

	name := conceptArg(args)
	removed, err := a.Store.UnmarkConcept(cmd.Context(), name)
	if err != nil {
		return fmt.Errorf("failed to clear mastery: %w", err)
	}
	if !removed {
		return fmt.Errorf("concept %q is not marked mastered", name)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", name)
	return err
}

func newProgressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "progress",
		Short: "Open the interactive session checklist",
		Args:  cobra.NoArgs,
		RunE:  runProgressCmd,
	}
}

func runProgressCmd(cmd *cobra.Command, _ []string) error {
	a, err := openContext(cmd)
	if err != nil {
		return err
	}
	defer closeContext(a)
	ctx := cmd.Context()

	plan, err := loadPlan(a.Paths.Plan)
	if err != nil {
		return err
	}
	if err := syncCompleted(ctx, a, plan); err != nil {
		return err
	}

	model := tui.NewModel(a.Store, plan.Sessions, a.Now)
	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return savePlanProgress(ctx, a, plan)
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the plan as Markdown (and HTML)",
		Args:  cobra.NoArgs,
		RunE:  runExportCmd,
	}
	cmd.Flags().BoolVar(&exportHTML, "html", false, "also write a standalone HTML page")
	return cmd
}

func runExportCmd(cmd *cobra.Command, _ []string) error {
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
	now := a.Clock()
	written := []string{a.Paths.PlanMarkdown}
	if err := planning.SaveMarkdown(a.Paths.PlanMarkdown, plan, now); err != nil {
		return err
	}
	if exportHTML {
		if err := planning.SaveHTML(a.Paths.PlanHTML, plan, now); err != nil {
			return err
		}
		written = append(written, a.Paths.PlanHTML)
	}
	for _, path := range written {
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func loadPlan(path string) (*planning.Plan, error) {
	plan, err := planning.LoadPlan(path)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, planning.ErrNoPlan
	}
	return plan, nil
}

// syncCompleted refreshes the plan's completion flags from the database,
// which is the source of truth.
func syncCompleted(ctx context.Context, a *app.Context, plan *planning.Plan) error {
	done, err := a.Store.CompletedSessions(ctx)
	if err != nil {
		return fmt.Errorf("failed to load completions: %w", err)
	}
	planning.ApplyCompleted(plan, done)
	return nil
}

func savePlanProgress(ctx context.Context, a *app.Context, plan *planning.Plan) error {
	if err := syncCompleted(ctx, a, plan); err != nil {
		return err
	}
	return planning.SavePlan(a.Paths.Plan, plan)
}

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/revise/internal/config"
	"github.com/verte-zerg/revise/internal/graph"
	"github.com/verte-zerg/revise/internal/planning"
	"github.com/verte-zerg/revise/internal/report"
)

func newImpactCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "impact <concept>",
		Short: "Show what depends on a concept",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runImpactCmd,
	}
}

func runImpactCmd(cmd *cobra.Command, args []string) error {
	g, err := loadGraph(cmd)
	if err != nil {
		return err
	}
	im, err := g.ImpactAnalysis(conceptArg(args))
	if err != nil {
		return err
	}
	if err := report.RenderImpact(cmd.OutOrStdout(), im, renderOptions(cmd)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newChainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chain <concept>",
		Short: "Show the prerequisites to study before a concept",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runChainCmd,
	}
}

func runChainCmd(cmd *cobra.Command, args []string) error {
	g, err := loadGraph(cmd)
	if err != nil {
		return err
	}
	name := conceptArg(args)
	chain, err := g.PrerequisiteChain(name)
	if err != nil {
		return err
	}
	if c, ok := g.Concept(name); ok {
		name = c.Name
	}
	if err := report.RenderChain(cmd.OutOrStdout(), name, chain, renderOptions(cmd)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newGapsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gaps",
		Short: "List concepts whose prerequisites are not mastered",
		Args:  cobra.NoArgs,
		RunE:  runGapsCmd,
	}
}

func runGapsCmd(cmd *cobra.Command, _ []string) error {
	a, err := openContext(cmd)
	if err != nil {
		return err
	}
	defer closeContext(a)

	cm, err := loadConceptMap(a.Paths.ConceptMap)
	if err != nil {
		return err
	}
	known, err := a.Store.MasteredNames(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load mastered concepts: %w", err)
	}
	gaps := graph.Build(cm.Nodes).KnowledgeGaps(known)
	if err := report.RenderGaps(cmd.OutOrStdout(), gaps, renderOptions(cmd)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newGraphCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "graph",
		Short: "Show concept graph statistics",
		Args:  cobra.NoArgs,
		RunE:  runGraphCmd,
	}
}

func runGraphCmd(cmd *cobra.Command, _ []string) error {
	g, err := loadGraph(cmd)
	if err != nil {
		return err
	}
	if err := report.RenderGraphStats(cmd.OutOrStdout(), g.Stats(), renderOptions(cmd)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// loadGraph builds the graph without opening the progress database.
func loadGraph(cmd *cobra.Command) (*graph.Graph, error) {
	settings, err := loadSettings(cmd)
	if err != nil {
		return nil, err
	}
	cm, err := loadConceptMap(config.Layout(settings).ConceptMap)
	if err != nil {
		return nil, err
	}
	return graph.Build(cm.Nodes), nil
}

func loadConceptMap(path string) (*graph.ConceptMap, error) {
	cm, err := graph.LoadConceptMap(path)
	if err != nil {
		return nil, err
	}
	if cm.IsEmpty() {
		return nil, planning.ErrNoConceptMap
	}
	return cm, nil
}

func conceptArg(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

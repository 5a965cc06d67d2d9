package graph

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/verte-zerg/revise/internal/model"
)

func concept(name string, imp model.Importance, prereqs ...string) model.Concept {
	return model.Concept{Name: name, Importance: imp, Category: "Electricite", Prerequisites: prereqs}
}

func TestLearningOrderOhmBeforePower(t *testing.T) {
	g := Build([]model.Concept{
		concept("Power", model.ImportanceCritical, "Ohm's Law"),
		concept("Ohm's Law", model.ImportanceCritical),
	})
	if got := g.LearningOrder(); !reflect.DeepEqual(got, []string{"Ohm's Law", "Power"}) {
		t.Fatalf("unexpected order: %v", got)
	}
	g = Build([]model.Concept{
		concept("Ohm's Law", model.ImportanceCritical),
		concept("Power", model.ImportanceCritical, "Ohm's Law"),
	})
	if got := g.LearningOrder(); !reflect.DeepEqual(got, []string{"Ohm's Law", "Power"}) {
		t.Fatalf("unexpected order: %v", got)
	}
}

func TestLearningOrderTieBreakByImportanceThenInsertion(t *testing.T) {
	g := Build([]model.Concept{
		concept("Low", model.ImportanceLow),
		concept("Medium A", model.ImportanceMedium),
		concept("Critical", model.ImportanceCritical),
		concept("Medium B", model.ImportanceMedium),
		concept("High", model.ImportanceHigh),
	})
	want := []string{"Critical", "High", "Medium A", "Medium B", "Low"}
	if got := g.LearningOrder(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestLearningOrderIsTopological(t *testing.T) {
	var concepts []model.Concept
	for i := 0; i < 30; i++ {
		var prereqs []string
		if i > 0 {
			prereqs = append(prereqs, fmt.Sprintf("C%d", (i*7)%i))
		}
		if i > 3 {
			prereqs = append(prereqs, fmt.Sprintf("c%d", i-3))
		}
		imp := []model.Importance{model.ImportanceLow, model.ImportanceCritical, model.ImportanceMedium}[i%3]
		concepts = append(concepts, concept(fmt.Sprintf("C%d", i), imp, prereqs...))
	}
	for i, j := 0, len(concepts)-1; i < j; i, j = i+1, j-1 {
		concepts[i], concepts[j] = concepts[j], concepts[i]
	}
	g := Build(concepts)
	order := g.LearningOrder()
	if len(order) != len(concepts) {
		t.Fatalf("expected total order, got %d of %d", len(order), len(concepts))
	}
	pos := map[string]int{}
	for i, name := range order {
		pos[name] = i
	}
	for _, c := range g.Nodes() {
		for _, p := range c.Prerequisites {
			resolved, ok := g.Concept(p)
			if !ok {
				continue
			}
			if pos[resolved.Name] >= pos[c.Name] {
				t.Fatalf("%s placed before its prerequisite %s", c.Name, resolved.Name)
			}
		}
	}
	if len(g.SuppressedEdges()) != 0 {
		t.Fatalf("acyclic graph must not suppress edges: %v", g.SuppressedEdges())
	}
}

func TestCycleIsBrokenAndRecorded(t *testing.T) {
	g := Build([]model.Concept{
		concept("A", model.ImportanceMedium, "C"),
		concept("B", model.ImportanceHigh, "A"),
		concept("C", model.ImportanceMedium, "B"),
		concept("D", model.ImportanceLow, "D"),
	})
	order := g.LearningOrder()
	if len(order) != 4 {
		t.Fatalf("expected all concepts placed, got %v", order)
	}
	suppressed := g.SuppressedEdges()
	if len(suppressed) != 2 {
		t.Fatalf("expected self loop and one cycle edge, got %v", suppressed)
	}
	if suppressed[0] != (Edge{From: "D", To: "D"}) {
		t.Fatalf("expected self loop first, got %v", suppressed[0])
	}
	if suppressed[1] != (Edge{From: "A", To: "B"}) {
		t.Fatalf("expected B forced first, got %v (order %v)", suppressed[1], order)
	}
	if !reflect.DeepEqual(order, []string{"D", "B", "C", "A"}) {
		t.Fatalf("unexpected cycle order: %v", order)
	}
}

func TestDanglingPrerequisitesAreRecorded(t *testing.T) {
	g := Build([]model.Concept{
		concept("Puissance", model.ImportanceHigh, "Tension", "Loi de Kirchhoff"),
		concept("tension ", model.ImportanceLow),
		concept("Isolation", model.ImportanceMedium),
	})
	dangling := g.DanglingRefs()
	if len(dangling) != 1 || dangling[0] != (DanglingRef{Concept: "Puissance", Prerequisite: "Loi de Kirchhoff"}) {
		t.Fatalf("unexpected dangling refs: %v", dangling)
	}
	order := g.LearningOrder()
	want := []string{"Isolation", "tension ", "Puissance"}
	if !reflect.DeepEqual(order, want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	tension, ok := g.Concept("TENSION")
	if !ok || !reflect.DeepEqual(tension.Dependents, []string{"Puissance"}) {
		t.Fatalf("expected case-insensitive dependents, got %+v", tension)
	}
}

func TestBuildDedupLastWins(t *testing.T) {
	old := concept("Facteur de puissance", model.ImportanceLow)
	old.Description = "old"
	fresh := concept("facteur de PUISSANCE", model.ImportanceHigh)
	fresh.Description = "new"
	g := Build([]model.Concept{old, concept("Cos phi", model.ImportanceMedium), fresh})
	if g.Len() != 2 {
		t.Fatalf("expected 2 nodes, got %d", g.Len())
	}
	c, _ := g.Concept("facteur de puissance")
	if c.Description != "new" {
		t.Fatalf("expected newest concept to win, got %q", c.Description)
	}
}

func TestDedupKeepsSurvivorAtLastPosition(t *testing.T) {
	got := Dedup([]model.Concept{
		concept("Terre", model.ImportanceMedium),
		concept("Disjoncteur", model.ImportanceMedium),
		concept(" terre ", model.ImportanceMedium),
		concept("", model.ImportanceMedium),
	})
	if len(got) != 2 || got[0].Name != "Disjoncteur" || got[1].Name != " terre " {
		t.Fatalf("unexpected dedup order: %+v", got)
	}
}

func TestLearningOrderTieBreakFollowsMergedPosition(t *testing.T) {
	order := Build([]model.Concept{
		concept("Terre", model.ImportanceMedium),
		concept("Disjoncteur", model.ImportanceMedium),
		concept("terre", model.ImportanceMedium),
	}).LearningOrder()
	if len(order) != 2 || order[0] != "Disjoncteur" || order[1] != "terre" {
		t.Fatalf("expected the re-added concept last, got %v", order)
	}
}

func TestImpactAnalysis(t *testing.T) {
	concepts := []model.Concept{concept("Base", model.ImportanceCritical)}
	prev := "Base"
	for i := 0; i < 6; i++ {
		name := fmt.Sprintf("L%d", i)
		concepts = append(concepts, concept(name, model.ImportanceMedium, prev))
		prev = name
	}
	concepts = append(concepts, concept("Loop", model.ImportanceLow, "L5"), concept("Side", model.ImportanceLow, "L4"))
	concepts[0].Prerequisites = model.StringList{"Loop"}
	g := Build(concepts)

	impact, err := g.ImpactAnalysis("base")
	if err != nil {
		t.Fatalf("impact: %v", err)
	}
	if !reflect.DeepEqual(impact.DirectDependents, []string{"L0"}) {
		t.Fatalf("unexpected direct dependents: %v", impact.DirectDependents)
	}
	if impact.ImpactScore != 8 || !impact.IsFoundational {
		t.Fatalf("expected 8 transitive dependents and foundational, got %+v", impact)
	}
	for _, d := range impact.AllDependents {
		if d == "Base" {
			t.Fatalf("concept must not depend on itself")
		}
	}

	leaf, err := g.ImpactAnalysis("Side")
	if err != nil {
		t.Fatalf("impact: %v", err)
	}
	if leaf.IsFoundational || leaf.ImpactScore != 0 {
		t.Fatalf("expected non foundational, got %+v", leaf)
	}
	if _, err := g.ImpactAnalysis("unknown"); !errors.Is(err, ErrConceptNotFound) {
		t.Fatalf("expected ErrConceptNotFound, got %v", err)
	}
}

func TestPrerequisiteChain(t *testing.T) {
	g := Build([]model.Concept{
		concept("A", model.ImportanceMedium),
		concept("B", model.ImportanceMedium, "A"),
		concept("C", model.ImportanceMedium, "A", "B"),
		concept("D", model.ImportanceMedium, "C", "D", "missing"),
	})
	chain, err := g.PrerequisiteChain("d")
	if err != nil {
		t.Fatalf("chain: %v", err)
	}
	if !reflect.DeepEqual(chain, []string{"A", "B", "C"}) {
		t.Fatalf("unexpected chain: %v", chain)
	}
	root, err := g.PrerequisiteChain("A")
	if err != nil || len(root) != 0 {
		t.Fatalf("expected empty chain, got %v %v", root, err)
	}
}

func TestPrerequisiteChainWithCycleTerminates(t *testing.T) {
	g := Build([]model.Concept{
		concept("A", model.ImportanceMedium, "B"),
		concept("B", model.ImportanceMedium, "A"),
	})
	chain, err := g.PrerequisiteChain("A")
	if err != nil {
		t.Fatalf("chain: %v", err)
	}
	if !reflect.DeepEqual(chain, []string{"B"}) {
		t.Fatalf("unexpected chain: %v", chain)
	}
}

func TestKnowledgeGaps(t *testing.T) {
	exam := concept("Protection", model.ImportanceMedium, "Terre", "Disjoncteur")
	exam.ExamRelevant = true
	g := Build([]model.Concept{
		concept("Terre", model.ImportanceMedium),
		concept("Disjoncteur", model.ImportanceCritical),
		exam,
		concept("Histoire", model.ImportanceLow),
	})
	gaps := g.KnowledgeGaps([]string{"terre"})
	if len(gaps) != 2 {
		t.Fatalf("expected 2 gaps, got %+v", gaps)
	}
	if gaps[0].Concept != "Disjoncteur" || !gaps[0].ReadyToLearn || gaps[0].Blocks != 1 {
		t.Fatalf("unexpected first gap: %+v", gaps[0])
	}
	if gaps[1].Concept != "Protection" || gaps[1].ReadyToLearn {
		t.Fatalf("unexpected second gap: %+v", gaps[1])
	}
	if !reflect.DeepEqual(gaps[1].MissingPrerequisites, []string{"Disjoncteur"}) {
		t.Fatalf("unexpected missing prerequisites: %v", gaps[1].MissingPrerequisites)
	}
}

func TestStats(t *testing.T) {
	a := concept("A", model.ImportanceMedium)
	a.Module = "AA01"
	g := Build([]model.Concept{
		a,
		concept("B", model.ImportanceMedium, "A", "ghost"),
		concept("C", model.ImportanceMedium, "A"),
		concept("Alone", model.ImportanceLow),
	})
	s := g.Stats()
	if s.Nodes != 4 || s.Edges != 2 || s.Isolated != 1 || s.Dangling != 1 {
		t.Fatalf("unexpected stats: %+v", s)
	}
	if len(s.Hubs) != 1 || s.Hubs[0] != (Hub{Name: "A", Dependents: 2}) {
		t.Fatalf("unexpected hubs: %+v", s.Hubs)
	}
	if s.ByModule["AA01"] != 1 || s.ByModule["General"] != 3 {
		t.Fatalf("unexpected modules: %+v", s.ByModule)
	}
}

func TestConceptMapRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exports", "concept_map.json")
	missing, err := LoadConceptMap(path)
	if err != nil || missing != nil {
		t.Fatalf("expected nil map for missing file, got %v %v", missing, err)
	}
	g := Build([]model.Concept{
		concept("Ohm's Law", model.ImportanceCritical),
		concept("Power", model.ImportanceCritical, "Ohm's Law", "Energie"),
	})
	when := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	if err := SaveConceptMap(path, g.Export(when, true)); err != nil {
		t.Fatalf("save: %v", err)
	}
	cm, err := LoadConceptMap(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cm.IsEmpty() || cm.Metadata.TotalConcepts != 2 || !cm.Metadata.Incremental {
		t.Fatalf("unexpected metadata: %+v", cm.Metadata)
	}
	if !reflect.DeepEqual(cm.LearningOrder, []string{"Ohm's Law", "Power"}) {
		t.Fatalf("unexpected learning order: %v", cm.LearningOrder)
	}
	if len(cm.DanglingPrerequisites) != 1 || cm.DanglingPrerequisites[0].Prerequisite != "Energie" {
		t.Fatalf("unexpected dangling refs: %v", cm.DanglingPrerequisites)
	}
	if !reflect.DeepEqual(cm.Nodes[0].Dependents, []string{"Power"}) {
		t.Fatalf("unexpected dependents: %v", cm.Nodes[0].Dependents)
	}
}

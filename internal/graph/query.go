package graph

import (
	"fmt"
	"sort"
)

// Impact describes what depends on a concept.
type Impact struct {
	Concept          string   `json:"concept"`
	DirectDependents []string `json:"direct_dependents"`
	AllDependents    []string `json:"all_dependents"`
	ImpactScore      int      `json:"impact_score"`
	IsFoundational   bool     `json:"is_foundational"`
}

// ImpactAnalysis walks the transitive closure of dependents.
func (g *Graph) ImpactAnalysis(name string) (Impact, error) {
	root, ok := g.index[NormalizeName(name)]
	if !ok {
		return Impact{}, fmt.Errorf("%w: %q", ErrConceptNotFound, name)
	}
	impact := Impact{Concept: g.nodes[root].Name}
	for _, d := range g.dependents[root] {
		impact.DirectDependents = append(impact.DirectDependents, g.nodes[d].Name)
	}
	visited := map[int]bool{root: true}
	queue := append([]int(nil), g.dependents[root]...)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		impact.AllDependents = append(impact.AllDependents, g.nodes[cur].Name)
		queue = append(queue, g.dependents[cur]...)
	}
	impact.ImpactScore = len(impact.AllDependents)
	impact.IsFoundational = impact.ImpactScore > FoundationalThreshold
	return impact, nil
}

// PrerequisiteChain lists everything to learn before name, deepest first.
// The concept itself is excluded.
func (g *Graph) PrerequisiteChain(name string) ([]string, error) {
	root, ok := g.index[NormalizeName(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrConceptNotFound, name)
	}
	visited := map[int]bool{}
	var chain []string
	var visit func(i int)
	visit = func(i int) {
		if visited[i] {
			return
		}
		visited[i] = true
		for _, p := range g.prereqs[i] {
			visit(p)
		}
		if i != root {
			chain = append(chain, g.nodes[i].Name)
		}
	}
	visit(root)
	return chain, nil
}

// Categories groups concept names by category, in insertion order.
func (g *Graph) Categories() map[string][]string {
	out := map[string][]string{}
	for _, c := range g.nodes {
		cat := c.Category
		if cat == "" {
			cat = "General"
		}
		out[cat] = append(out[cat], c.Name)
	}
	return out
}

// Gap is a concept still to learn that matters for the exam or blocks others.
type Gap struct {
	Concept              string   `json:"concept"`
	Importance           string   `json:"importance"`
	MissingPrerequisites []string `json:"missing_prerequisites"`
	ReadyToLearn         bool     `json:"ready_to_learn"`
	Blocks               int      `json:"blocks"`
}

// KnowledgeGaps lists unmastered concepts that are exam relevant, important
// or prerequisites of others. Most important and most blocking come first.
func (g *Graph) KnowledgeGaps(known []string) []Gap {
	knownSet := make(map[string]bool, len(known))
	for _, k := range known {
		knownSet[NormalizeName(k)] = true
	}
	var gaps []Gap
	for i, c := range g.nodes {
		if knownSet[NormalizeName(c.Name)] {
			continue
		}
		if !c.ExamRelevant && !c.Importance.IsHigh() && len(g.dependents[i]) == 0 {
			continue
		}
		gap := Gap{
			Concept:    c.Name,
			Importance: string(c.Importance),
			Blocks:     len(g.dependents[i]),
		}
		for _, p := range c.Prerequisites {
			if NormalizeName(p) == "" || knownSet[NormalizeName(p)] {
				continue
			}
			gap.MissingPrerequisites = append(gap.MissingPrerequisites, p)
		}
		gap.ReadyToLearn = len(gap.MissingPrerequisites) == 0
		gaps = append(gaps, gap)
	}
	sort.SliceStable(gaps, func(a, b int) bool {
		ra := g.nodes[g.index[NormalizeName(gaps[a].Concept)]].Importance.Rank()
		rb := g.nodes[g.index[NormalizeName(gaps[b].Concept)]].Importance.Rank()
		if ra != rb {
			return ra < rb
		}
		return gaps[a].Blocks > gaps[b].Blocks
	})
	return gaps
}

// Hub is a concept with many direct dependents.
type Hub struct {
	Name       string `json:"name"`
	Dependents int    `json:"dependents"`
}

// Stats summarizes the graph shape.
type Stats struct {
	Nodes      int            `json:"nodes"`
	Edges      int            `json:"edges"`
	Isolated   int            `json:"isolated"`
	Hubs       []Hub          `json:"hubs"`
	ByModule   map[string]int `json:"by_module"`
	Dangling   int            `json:"dangling"`
	Suppressed int            `json:"suppressed"`
}

const maxHubs = 5

// Stats computes graph statistics.
func (g *Graph) Stats() Stats {
	s := Stats{
		Nodes:      len(g.nodes),
		ByModule:   map[string]int{},
		Dangling:   len(g.dangling),
		Suppressed: len(g.suppressed),
	}
	for i, c := range g.nodes {
		s.Edges += len(g.prereqs[i])
		if len(g.prereqs[i]) == 0 && len(g.dependents[i]) == 0 {
			s.Isolated++
		}
		module := c.Module
		if module == "" {
			module = "General"
		}
		s.ByModule[module]++
		if len(g.dependents[i]) > 0 {
			s.Hubs = append(s.Hubs, Hub{Name: c.Name, Dependents: len(g.dependents[i])})
		}
	}
	sort.SliceStable(s.Hubs, func(a, b int) bool {
		return s.Hubs[a].Dependents > s.Hubs[b].Dependents
	})
	if len(s.Hubs) > maxHubs {
		s.Hubs = s.Hubs[:maxHubs]
	}
	return s
}

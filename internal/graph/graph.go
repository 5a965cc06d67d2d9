// Package graph builds the prerequisite graph of concepts and answers ordering
// and impact queries over it.
package graph

import (
	"errors"
	"strings"

	"golang.org/x/text/cases"

	"github.com/verte-zerg/revise/internal/model"
)

// FoundationalThreshold is the transitive dependent count above which a
// concept is foundational.
const FoundationalThreshold = 5

// ErrConceptNotFound is returned by queries naming an unknown concept.
var ErrConceptNotFound = errors.New("graph: concept not found")

var folder = cases.Fold()

// NormalizeName is the single place where concept names are compared.
func NormalizeName(name string) string {
	return folder.String(strings.Join(strings.Fields(name), " "))
}

// DanglingRef is a prerequisite name that matches no concept in the graph.
type DanglingRef struct {
	Concept      string `json:"concept"`
	Prerequisite string `json:"prerequisite"`
}

// Edge is a prerequisite relation: From must be learned before To.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Graph is an immutable prerequisite graph.
type Graph struct {
	nodes      []model.Concept
	index      map[string]int
	prereqs    [][]int
	dependents [][]int
	dangling   []DanglingRef
	order      []int
	suppressed []Edge
}

// Dedup keeps one concept per normalized name. The last occurrence wins and
// keeps its own position, so fresh concepts appended after kept ones end up
// after them.
func Dedup(concepts []model.Concept) []model.Concept {
	seen := map[string]bool{}
	out := make([]model.Concept, 0, len(concepts))
	for i := len(concepts) - 1; i >= 0; i-- {
		key := NormalizeName(concepts[i].Name)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, concepts[i])
	}
	for l, r := 0, len(out)-1; l < r; l, r = l+1, r-1 {
		out[l], out[r] = out[r], out[l]
	}
	return out
}

// Build resolves prerequisites by name and computes dependents and the learning order.
func Build(concepts []model.Concept) *Graph {
	nodes := Dedup(concepts)
	g := &Graph{
		nodes:      make([]model.Concept, len(nodes)),
		index:      make(map[string]int, len(nodes)),
		prereqs:    make([][]int, len(nodes)),
		dependents: make([][]int, len(nodes)),
	}
	for i, c := range nodes {
		c.Importance = model.ParseImportance(string(c.Importance))
		c.Dependents = nil
		g.nodes[i] = c
		g.index[NormalizeName(c.Name)] = i
	}
	var selfLoops []Edge
	for i := range g.nodes {
		seen := map[int]bool{}
		for _, raw := range g.nodes[i].Prerequisites {
			key := NormalizeName(raw)
			if key == "" {
				continue
			}
			j, ok := g.index[key]
			if !ok {
				g.dangling = append(g.dangling, DanglingRef{Concept: g.nodes[i].Name, Prerequisite: strings.TrimSpace(raw)})
				continue
			}
			if j == i {
				selfLoops = append(selfLoops, Edge{From: g.nodes[i].Name, To: g.nodes[i].Name})
				continue
			}
			if seen[j] {
				continue
			}
			seen[j] = true
			g.prereqs[i] = append(g.prereqs[i], j)
			g.dependents[j] = append(g.dependents[j], i)
		}
	}
	for j := range g.nodes {
		names := make([]string, 0, len(g.dependents[j]))
		for _, i := range g.dependents[j] {
			names = append(names, g.nodes[i].Name)
		}
		g.nodes[j].Dependents = names
	}
	g.computeOrder()
	g.suppressed = append(selfLoops, g.suppressed...)
	return g
}

// Len returns the number of concepts.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Nodes returns a copy of the concepts in insertion order.
func (g *Graph) Nodes() []model.Concept {
	out := make([]model.Concept, len(g.nodes))
	for i, c := range g.nodes {
		out[i] = cloneConcept(c)
	}
	return out
}

// Concept looks up a concept by name.
func (g *Graph) Concept(name string) (model.Concept, bool) {
	i, ok := g.index[NormalizeName(name)]
	if !ok {
		return model.Concept{}, false
	}
	return cloneConcept(g.nodes[i]), true
}

// DanglingRefs lists prerequisites that resolved to no concept.
func (g *Graph) DanglingRefs() []DanglingRef {
	return append([]DanglingRef(nil), g.dangling...)
}

// SuppressedEdges lists the prerequisite edges ignored to break cycles.
func (g *Graph) SuppressedEdges() []Edge {
	return append([]Edge(nil), g.suppressed...)
}

// LearningOrder returns every concept name so that resolved prerequisites come first.
func (g *Graph) LearningOrder() []string {
	out := make([]string, len(g.order))
	for k, i := range g.order {
		out[k] = g.nodes[i].Name
	}
	return out
}

// OrderedConcepts returns the concepts in learning order.
func (g *Graph) OrderedConcepts() []model.Concept {
	out := make([]model.Concept, len(g.order))
	for k, i := range g.order {
		out[k] = cloneConcept(g.nodes[i])
	}
	return out
}

// computeOrder runs Kahn's algorithm. A concept with dangling prerequisites
// never reaches zero indegree; it is placed once its resolved prerequisites
// are. When nothing is placeable the graph has a cycle: the best remaining
// concept is forced and its unplaced prerequisite edges are recorded.
func (g *Graph) computeOrder() {
	n := len(g.nodes)
	remaining := make([]int, n)
	hasDangling := make([]bool, n)
	for i := range g.nodes {
		remaining[i] = len(g.prereqs[i])
	}
	for _, d := range g.dangling {
		hasDangling[g.index[NormalizeName(d.Concept)]] = true
	}
	placed := make([]bool, n)
	g.order = make([]int, 0, n)
	for len(g.order) < n {
		best := g.pick(placed, func(i int) bool { return remaining[i] == 0 && !hasDangling[i] })
		if best < 0 {
			best = g.pick(placed, func(i int) bool { return remaining[i] == 0 })
		}
		if best < 0 {
			best = g.pick(placed, func(int) bool { return true })
			for _, p := range g.prereqs[best] {
				if !placed[p] {
					g.suppressed = append(g.suppressed, Edge{From: g.nodes[p].Name, To: g.nodes[best].Name})
				}
			}
		}
		placed[best] = true
		g.order = append(g.order, best)
		for _, d := range g.dependents[best] {
			remaining[d]--
		}
	}
}

// pick returns the unplaced candidate with the best importance, then the
// earliest insertion index, or -1.
func (g *Graph) pick(placed []bool, ok func(int) bool) int {
	best := -1
	for i := range g.nodes {
		if placed[i] || !ok(i) {
			continue
		}
		if best < 0 || g.nodes[i].Importance.Rank() < g.nodes[best].Importance.Rank() {
			best = i
		}
	}
	return best
}

func cloneConcept(c model.Concept) model.Concept {
	c.PageReferences = append(model.StringList(nil), c.PageReferences...)
	c.Keywords = append(model.StringList(nil), c.Keywords...)
	c.Prerequisites = append(model.StringList(nil), c.Prerequisites...)
	c.RelatedConcepts = append(model.StringList(nil), c.RelatedConcepts...)
	c.Dependents = append([]string(nil), c.Dependents...)
	return c
}

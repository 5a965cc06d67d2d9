// Package incremental merges freshly extracted concepts into a persisted concept map.
package incremental

import (
	"path/filepath"
	"time"

	"github.com/verte-zerg/revise/internal/graph"
	"github.com/verte-zerg/revise/internal/model"
)

// ConceptCounter receives per-document concept counts.
type ConceptCounter interface {
	SetConceptCount(filename string, n int)
}

// Merge replaces the concepts of every re-analyzed or deleted document and
// rebuilds the graph. It returns nil when existing is missing or has no
// nodes, telling the caller to rebuild from scratch.
//
// Kept nodes come before new ones, so when names collide the new concept wins.
func Merge(existing *graph.ConceptMap, newConcepts []model.Concept, reanalyzed []model.Document, deletedPaths []string, counter ConceptCounter, now time.Time) *graph.ConceptMap {
	if existing.IsEmpty() {
		return nil
	}
	purge := PurgeSet(reanalyzed, deletedPaths)
	combined := make([]model.Concept, 0, len(existing.Nodes)+len(newConcepts))
	for _, node := range existing.Nodes {
		if purge[node.SourceDocument] {
			continue
		}
		combined = append(combined, node)
	}
	combined = append(combined, newConcepts...)

	g := graph.Build(graph.Dedup(combined))
	if counter != nil {
		counts := CountBySource(newConcepts)
		for _, doc := range reanalyzed {
			counter.SetConceptCount(doc.Filename, counts[doc.Filename])
		}
	}
	return g.Export(now, true)
}

// PurgeSet returns the source filenames whose concepts must be dropped.
func PurgeSet(reanalyzed []model.Document, deletedPaths []string) map[string]bool {
	purge := make(map[string]bool, len(reanalyzed)+len(deletedPaths))
	for _, doc := range reanalyzed {
		purge[doc.Filename] = true
	}
	for _, p := range deletedPaths {
		purge[filepath.Base(p)] = true
	}
	return purge
}

// CountBySource counts concepts per source document.
func CountBySource(concepts []model.Concept) map[string]int {
	counts := map[string]int{}
	for _, c := range concepts {
		counts[c.SourceDocument]++
	}
	return counts
}

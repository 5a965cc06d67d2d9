package graph

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/verte-zerg/revise/internal/fsutil"
	"github.com/verte-zerg/revise/internal/model"
)

// ConceptMap is the persisted form of a graph.
type ConceptMap struct {
	Nodes                 []model.Concept     `json:"nodes"`
	Categories            map[string][]string `json:"categories"`
	LearningOrder         []string            `json:"learning_order"`
	DanglingPrerequisites []DanglingRef       `json:"dangling_prerequisites"`
	SuppressedEdges       []Edge              `json:"suppressed_edges"`
	Metadata              Metadata            `json:"metadata"`
}

// Metadata describes the last update of a concept map.
type Metadata struct {
	LastUpdated   time.Time `json:"last_updated"`
	TotalConcepts int       `json:"total_concepts"`
	Incremental   bool      `json:"incremental"`
}

// IsEmpty reports whether the map is missing or has no nodes.
func (cm *ConceptMap) IsEmpty() bool {
	return cm == nil || len(cm.Nodes) == 0
}

// Export converts the graph to its persisted form.
func (g *Graph) Export(updated time.Time, incremental bool) *ConceptMap {
	nodes := g.Nodes()
	for i := range nodes {
		if nodes[i].Prerequisites == nil {
			nodes[i].Prerequisites = model.StringList{}
		}
		if nodes[i].Dependents == nil {
			nodes[i].Dependents = []string{}
		}
		if nodes[i].Keywords == nil {
			nodes[i].Keywords = model.StringList{}
		}
	}
	dangling := g.DanglingRefs()
	if dangling == nil {
		dangling = []DanglingRef{}
	}
	suppressed := g.SuppressedEdges()
	if suppressed == nil {
		suppressed = []Edge{}
	}
	return &ConceptMap{
		Nodes:                 nodes,
		Categories:            g.Categories(),
		LearningOrder:         g.LearningOrder(),
		DanglingPrerequisites: dangling,
		SuppressedEdges:       suppressed,
		Metadata: Metadata{
			LastUpdated:   updated,
			TotalConcepts: len(nodes),
			Incremental:   incremental,
		},
	}
}

// LoadConceptMap reads a concept map. A missing file returns nil and no error.
func LoadConceptMap(path string) (*ConceptMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read concept map: %w", err)
	}
	var cm ConceptMap
	if err := json.Unmarshal(data, &cm); err != nil {
		return nil, fmt.Errorf("failed to decode concept map %s: %w", path, err)
	}
	return &cm, nil
}

// SaveConceptMap writes the map atomically.
func SaveConceptMap(path string, cm *ConceptMap) error {
	if err := fsutil.WriteJSON(path, cm); err != nil {
		return fmt.Errorf("failed to write concept map: %w", err)
	}
	return nil
}

// Package analysis runs change detection, concept extraction and merging for one scan.
package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/verte-zerg/revise/internal/graph"
	"github.com/verte-zerg/revise/internal/incremental"
	"github.com/verte-zerg/revise/internal/logging"
	"github.com/verte-zerg/revise/internal/model"
	"github.com/verte-zerg/revise/internal/state"
)

// Extractor returns the concepts of one document.
type Extractor interface {
	Extract(ctx context.Context, doc model.Document) ([]model.Concept, error)
}

// Status of one document in a run.
type Status string

// Document statuses.
const (
	StatusOK      Status = "ok"
	StatusFailed  Status = "failed"
	StatusPending Status = "pending"
)

// Modes.
const (
	ModeFull        = "full"
	ModeIncremental = "incremental"
)

// DocResult is the outcome for one analysed document.
type DocResult struct {
	Path     string `json:"path"`
	Filename string `json:"filename"`
	Status   Status `json:"status"`
	Concepts int    `json:"concepts"`
	Reason   string `json:"reason,omitempty"`
}

// Report summarizes a run.
type Report struct {
	Mode          string              `json:"mode"`
	DryRun        bool                `json:"dry_run"`
	UpToDate      bool                `json:"up_to_date"`
	Summary       state.Summary       `json:"summary"`
	Results       []DocResult         `json:"results"`
	TotalConcepts int                 `json:"total_concepts"`
	Dangling      []graph.DanglingRef `json:"dangling_prerequisites"`
	Suppressed    []graph.Edge        `json:"suppressed_edges"`
}

// Failed returns the results of documents whose extraction failed.
func (r Report) Failed() []DocResult {
	var out []DocResult
	for _, res := range r.Results {
		if res.Status == StatusFailed {
			out = append(out, res)
		}
	}
	return out
}

// Options configures Run.
type Options struct {
	// Full re-extracts every document and rebuilds the concept map.
	Full bool
	// DryRun classifies documents and reports what would be analysed.
	DryRun bool
}

// Pipeline wires the collaborators of an analysis run.
type Pipeline struct {
	Extractor      Extractor
	Log            *logging.Logger
	Delay          time.Duration
	Now            func() time.Time
	StatePath      string
	ConceptMapPath string
}

// Run analyses docs. Failed documents keep their previous fingerprint and
// concepts so they are retried on the next run. The concept map is written
// before the state file.
func (p *Pipeline) Run(ctx context.Context, docs []model.Document, opts Options) (Report, error) {
	now := p.now()
	base := p.Log
	if base == nil {
		base = logging.Nop()
	}

	st, err := state.Load(p.StatePath, p.Now)
	if err != nil {
		return Report{}, err
	}
	existing, err := graph.LoadConceptMap(p.ConceptMapPath)
	if err != nil {
		return Report{}, err
	}

	cmp := st.Compare(docs)
	report := Report{Mode: ModeIncremental, DryRun: opts.DryRun, Summary: state.Summarize(cmp)}
	full := opts.Full || !st.HasPreviousAnalysis() || existing.IsEmpty()
	targets := cmp.Changed()
	if full {
		report.Mode = ModeFull
		targets = append(targets, cmp.Unchanged...)
	}
	log := base.With("mode", report.Mode)

	if opts.DryRun {
		for _, doc := range targets {
			report.Results = append(report.Results, DocResult{Path: doc.Path, Filename: doc.Filename, Status: StatusPending})
		}
		if existing != nil {
			report.TotalConcepts = len(existing.Nodes)
		}
		return report, nil
	}
	if !full && len(targets) == 0 && len(cmp.Deleted) == 0 {
		log.Info("concept map up to date", "documents", report.Summary.Total)
		report.UpToDate = true
		report.TotalConcepts = len(existing.Nodes)
		report.Dangling = existing.DanglingPrerequisites
		report.Suppressed = existing.SuppressedEdges
		return report, nil
	}

	var fresh []model.Concept
	var succeeded []model.Document
	failed := map[string]bool{}
	for i, doc := range targets {
		if i > 0 {
			if err := wait(ctx, p.Delay); err != nil {
				return report, fmt.Errorf("analysis interrupted: %w", err)
			}
		}
		concepts, err := p.Extractor.Extract(ctx, doc)
		if err != nil {
			if ctx.Err() != nil {
				return report, fmt.Errorf("analysis interrupted: %w", ctx.Err())
			}
			log.Warn("concept extraction failed", "file", doc.Filename, "error", err)
			st.Retain(doc.Path)
			failed[doc.Filename] = true
			report.Results = append(report.Results, DocResult{Path: doc.Path, Filename: doc.Filename, Status: StatusFailed, Reason: err.Error()})
			continue
		}
		log.Info("document analyzed", "file", doc.Filename, "concepts", len(concepts))
		fresh = append(fresh, concepts...)
		succeeded = append(succeeded, doc)
		report.Results = append(report.Results, DocResult{Path: doc.Path, Filename: doc.Filename, Status: StatusOK, Concepts: len(concepts)})
	}

	var cm *graph.ConceptMap
	if !full {
		cm = incremental.Merge(existing, fresh, succeeded, cmp.Deleted, st, now)
	}
	if cm == nil {
		if report.Mode != ModeFull {
			log.Info("incremental merge not possible, rebuilding the concept map")
		}
		report.Mode = ModeFull
		log = base.With("mode", report.Mode)
		cm = rebuild(existing, fresh, succeeded, failed, st, now)
	}

	if err := graph.SaveConceptMap(p.ConceptMapPath, cm); err != nil {
		return report, err
	}
	if err := st.Save(); err != nil {
		return report, err
	}

	report.TotalConcepts = len(cm.Nodes)
	report.Dangling = cm.DanglingPrerequisites
	report.Suppressed = cm.SuppressedEdges
	log.Info("analysis complete",
		"analyzed", len(succeeded),
		"failed", len(failed),
		"deleted", len(cmp.Deleted),
		"concepts", report.TotalConcepts,
	)
	return report, nil
}

// rebuild builds a fresh map from the extracted concepts plus the previous
// concepts of documents that failed this time.
func rebuild(existing *graph.ConceptMap, fresh []model.Concept, succeeded []model.Document, failed map[string]bool, counter incremental.ConceptCounter, now time.Time) *graph.ConceptMap {
	var combined []model.Concept
	if existing != nil {
		for _, node := range existing.Nodes {
			if failed[node.SourceDocument] {
				combined = append(combined, node)
			}
		}
	}
	combined = append(combined, fresh...)
	counts := incremental.CountBySource(fresh)
	for _, doc := range succeeded {
		counter.SetConceptCount(doc.Filename, counts[doc.Filename])
	}
	return graph.Build(graph.Dedup(combined)).Export(now, false)
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (p *Pipeline) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}

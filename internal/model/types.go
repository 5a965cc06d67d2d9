// Package model defines shared data structures.
package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Importance ranks how central a concept is for the exam.
type Importance string

// Importance levels, most important first.
const (
	ImportanceCritical Importance = "critical"
	ImportanceHigh     Importance = "high"
	ImportanceMedium   Importance = "medium"
	ImportanceLow      Importance = "low"
)

// ParseImportance normalizes a free-text importance. Unknown values map to medium.
func ParseImportance(raw string) Importance {
	switch Importance(strings.ToLower(strings.TrimSpace(raw))) {
	case ImportanceCritical:
		return ImportanceCritical
	case ImportanceHigh:
		return ImportanceHigh
	case ImportanceLow:
		return ImportanceLow
	default:
		return ImportanceMedium
	}
}

// Rank returns 0 for critical up to 3 for low.
func (i Importance) Rank() int {
	switch i {
	case ImportanceCritical:
		return 0
	case ImportanceHigh:
		return 1
	case ImportanceLow:
		return 3
	default:
		return 2
	}
}

// IsHigh reports whether the importance is critical or high.
func (i Importance) IsHigh() bool {
	return i == ImportanceCritical || i == ImportanceHigh
}

// UnmarshalJSON accepts any casing and falls back to medium.
func (i *Importance) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		*i = ImportanceMedium
		return nil
	}
	*i = ParseImportance(raw)
	return nil
}

// StringList decodes from a JSON array, a single string, or a stringified list
// such as "['a', 'b']".
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *StringList) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		*l = nil
		return nil
	}
	var items []any
	if err := json.Unmarshal(data, &items); err == nil {
		out := make([]string, 0, len(items))
		for _, item := range items {
			if item == nil {
				continue
			}
			s := strings.TrimSpace(fmt.Sprint(item))
			if s != "" {
				out = append(out, s)
			}
		}
		*l = out
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return fmt.Errorf("invalid string list: %s", trimmed)
	}
	*l = splitListLiteral(single)
	return nil
}

func splitListLiteral(raw string) []string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "[") && strings.HasSuffix(raw, "]") {
		raw = raw[1 : len(raw)-1]
	} else if raw != "" {
		return []string{raw}
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.Trim(strings.TrimSpace(part), `'"`)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Document is one scanned course document with its extracted text.
type Document struct {
	Path     string `json:"path"`
	Filename string `json:"filename"`
	Module   string `json:"module"`
	Content  string `json:"content"`
	// ExtractErr is set when the text could not be extracted.
	ExtractErr error `json:"-"`
}

// Concept is a unit of knowledge extracted from one source document.
type Concept struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Description     string     `json:"description"`
	Category        string     `json:"category"`
	Importance      Importance `json:"importance"`
	Module          string     `json:"module,omitempty"`
	SourceDocument  string     `json:"source_document"`
	PageReferences  StringList `json:"page_references"`
	Keywords        StringList `json:"keywords"`
	Prerequisites   StringList `json:"prerequisites"`
	Dependents      []string   `json:"dependents"`
	RelatedConcepts StringList `json:"related_concepts,omitempty"`
	ExamRelevant    bool       `json:"exam_relevant"`
}

// FileState fingerprints one source document as of its last analysis.
type FileState struct {
	Path          string    `json:"path"`
	Filename      string    `json:"filename"`
	Module        string    `json:"module"`
	ContentHash   string    `json:"content_hash"`
	Size          int       `json:"size"`
	AnalyzedAt    time.Time `json:"analyzed_at"`
	ConceptsCount int       `json:"concepts_count"`
}

// Priority of a revision session.
type Priority string

// Session priorities.
const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// SessionType tells what a revision session is for.
type SessionType string

// Session types.
const (
	SessionNewLearning SessionType = "new_learning"
	SessionRevision    SessionType = "revision"
	SessionPractice    SessionType = "practice"
)

// ReviewPrefix marks spaced-repetition entries inside a session's concept list.
const ReviewPrefix = "Reviser: "

// RevisionSession is one scheduled block of study.
type RevisionSession struct {
	ID              string      `json:"id"`
	Date            string      `json:"date"`
	DayName         string      `json:"day_name"`
	DurationMinutes int         `json:"duration_minutes"`
	Concepts        []string    `json:"concepts"`
	Category        string      `json:"category"`
	Priority        Priority    `json:"priority"`
	SessionType     SessionType `json:"session_type"`
	Module          string      `json:"module"`
	Completed       bool        `json:"completed"`
	Objectives      []string    `json:"objectives"`
}

// Milestone is a progress checkpoint between now and the exam.
type Milestone struct {
	Date      string `json:"date"`
	Name      string `json:"name"`
	Objective string `json:"objective"`
	Progress  int    `json:"progress"`
}

// CourseSession is one in-person class from the course calendar.
type CourseSession struct {
	Date          string   `json:"date" yaml:"date"`
	ModuleCode    string   `json:"module_code" yaml:"module_code"`
	ModuleName    string   `json:"module_name,omitempty" yaml:"module_name"`
	DurationHours float64  `json:"duration_hours,omitempty" yaml:"duration_hours"`
	Topics        []string `json:"topics,omitempty" yaml:"topics"`
	Status        string   `json:"status,omitempty" yaml:"status"`
	Notes         string   `json:"notes,omitempty" yaml:"notes"`
}

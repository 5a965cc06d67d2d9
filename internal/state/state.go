// Package state persists per-document fingerprints and detects changes between scans.
package state

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/verte-zerg/revise/internal/fsutil"
	"github.com/verte-zerg/revise/internal/model"
)

// HashLength is the number of hex characters kept from the digest.
const HashLength = 16

// ErrCorruptState is returned when the state file exists but cannot be decoded.
var ErrCorruptState = errors.New("state: corrupt analysis state")

type stateFile struct {
	LastAnalysis *time.Time                 `json:"last_analysis,omitempty"`
	TotalFiles   int                        `json:"total_files"`
	Files        map[string]model.FileState `json:"files"`
}

// Store holds the persisted fingerprints and the in-memory state of the current scan.
type Store struct {
	path         string
	now          func() time.Time
	lastAnalysis time.Time
	previous     map[string]model.FileState
	current      map[string]model.FileState
}

// Comparison classifies the documents of a scan against the persisted state.
type Comparison struct {
	New       []model.Document
	Modified  []model.Document
	Unchanged []model.Document
	Deleted   []string
}

// Changed returns new documents followed by modified ones.
func (c Comparison) Changed() []model.Document {
	out := make([]model.Document, 0, len(c.New)+len(c.Modified))
	out = append(out, c.New...)
	return append(out, c.Modified...)
}

// HashContent returns the truncated SHA-256 hex digest of content.
func HashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])[:HashLength]
}

// Load reads the state file. A missing file yields an empty state.
func Load(path string, now func() time.Time) (*Store, error) {
	if now == nil {
		now = time.Now
	}
	s := &Store{
		path:     path,
		now:      now,
		previous: map[string]model.FileState{},
		current:  map[string]model.FileState{},
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read state: %w", err)
	}
	var raw stateFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptState, path, err)
	}
	for p, fs := range raw.Files {
		if fs.Path == "" {
			fs.Path = p
		}
		s.previous[p] = fs
	}
	if raw.LastAnalysis != nil {
		s.lastAnalysis = *raw.LastAnalysis
	}
	s.current = cloneStates(s.previous)
	return s, nil
}

// HasPreviousAnalysis reports whether any fingerprint was persisted.
func (s *Store) HasPreviousAnalysis() bool {
	return len(s.previous) > 0
}

// LastAnalysis returns the time and file count of the last saved run.
func (s *Store) LastAnalysis() (time.Time, int, bool) {
	if s.lastAnalysis.IsZero() {
		return time.Time{}, 0, false
	}
	return s.lastAnalysis, len(s.previous), true
}

// Compare classifies docs and rebuilds the in-memory current state from them.
// Nothing is written to disk until Save.
func (s *Store) Compare(docs []model.Document) Comparison {
	var cmp Comparison
	now := s.now()
	current := make(map[string]model.FileState, len(docs))
	for _, doc := range docs {
		if _, seen := current[doc.Path]; seen {
			continue
		}
		content := doc.Content
		if doc.ExtractErr != nil {
			content = ""
		}
		hash := HashContent(content)
		entry := model.FileState{
			Path:        doc.Path,
			Filename:    doc.Filename,
			Module:      doc.Module,
			ContentHash: hash,
			Size:        len(content),
			AnalyzedAt:  now,
		}
		prev, known := s.previous[doc.Path]
		switch {
		case !known:
			cmp.New = append(cmp.New, doc)
		case prev.ContentHash != hash:
			cmp.Modified = append(cmp.Modified, doc)
		default:
			entry.ConceptsCount = prev.ConceptsCount
			cmp.Unchanged = append(cmp.Unchanged, doc)
		}
		current[doc.Path] = entry
	}
	for path := range s.previous {
		if _, ok := current[path]; !ok {
			cmp.Deleted = append(cmp.Deleted, path)
		}
	}
	sort.Strings(cmp.Deleted)
	s.current = current
	return cmp
}

// SetConceptCount records how many concepts were extracted from a document.
func (s *Store) SetConceptCount(filename string, n int) {
	for path, fs := range s.current {
		if fs.Filename == filename {
			fs.ConceptsCount = n
			s.current[path] = fs
		}
	}
}

// Retain restores the persisted fingerprint of path, or forgets it when none
// exists, so the document is detected again on the next run.
func (s *Store) Retain(path string) {
	if prev, ok := s.previous[path]; ok {
		s.current[path] = prev
		return
	}
	delete(s.current, path)
}

// Current returns a copy of the in-memory state.
func (s *Store) Current() map[string]model.FileState {
	return cloneStates(s.current)
}

// Previous returns a copy of the persisted state.
func (s *Store) Previous() map[string]model.FileState {
	return cloneStates(s.previous)
}

// Save atomically writes the current state and makes it the new baseline.
func (s *Store) Save() error {
	now := s.now()
	raw := stateFile{
		LastAnalysis: &now,
		TotalFiles:   len(s.current),
		Files:        s.current,
	}
	if err := fsutil.WriteJSON(s.path, raw); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	s.previous = cloneStates(s.current)
	s.lastAnalysis = now
	return nil
}

func cloneStates(in map[string]model.FileState) map[string]model.FileState {
	out := make(map[string]model.FileState, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

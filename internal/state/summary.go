package state

import "path/filepath"

// Summary reports comparison counts and how much work incremental mode saves.
type Summary struct {
	Total         int      `json:"total"`
	New           int      `json:"new"`
	Modified      int      `json:"modified"`
	Unchanged     int      `json:"unchanged"`
	Deleted       int      `json:"deleted"`
	NewFiles      []string `json:"new_files"`
	ModifiedFiles []string `json:"modified_files"`
	DeletedFiles  []string `json:"deleted_files"`
	SavingsPct    float64  `json:"savings_pct"`
}

// Summarize builds a Summary. SavingsPct is the share of scanned documents
// that need no extraction.
func Summarize(c Comparison) Summary {
	s := Summary{
		New:       len(c.New),
		Modified:  len(c.Modified),
		Unchanged: len(c.Unchanged),
		Deleted:   len(c.Deleted),
	}
	s.Total = s.New + s.Modified + s.Unchanged
	for _, d := range c.New {
		s.NewFiles = append(s.NewFiles, d.Filename)
	}
	for _, d := range c.Modified {
		s.ModifiedFiles = append(s.ModifiedFiles, d.Filename)
	}
	for _, p := range c.Deleted {
		s.DeletedFiles = append(s.DeletedFiles, filepath.Base(p))
	}
	if s.Total > 0 {
		s.SavingsPct = float64(s.Unchanged) / float64(s.Total) * 100
	}
	return s
}

// Package courses loads the in-person course calendar.
package courses

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/revise/internal/model"
)

// Schedule is the list of course sessions.
type Schedule struct {
	Sessions []model.CourseSession `json:"sessions" yaml:"sessions"`
}

// Load reads a JSON or YAML (by extension) course schedule. The document may be
// an object with a "sessions" list or a bare list. A missing file is an empty schedule.
func Load(path string) (*Schedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Schedule{}, nil
		}
		return nil, fmt.Errorf("failed to read course schedule: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return &Schedule{}, nil
	}
	var s Schedule
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = decodeYAML(data, &s)
	default:
		err = decodeJSON(data, &s)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode course schedule %s: %w", path, err)
	}
	return &s, nil
}

func decodeJSON(data []byte, s *Schedule) error {
	if data[0] == '[' {
		return json.Unmarshal(data, &s.Sessions)
	}
	return json.Unmarshal(data, s)
}

func decodeYAML(data []byte, s *Schedule) error {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return err
	}
	if len(node.Content) > 0 && node.Content[0].Kind == yaml.SequenceNode {
		return node.Content[0].Decode(&s.Sessions)
	}
	return node.Decode(s)
}

// BlockedDates returns the YYYY-MM-DD keys of every course day.
func (s *Schedule) BlockedDates() map[string]bool {
	out := map[string]bool{}
	for _, cs := range s.Sessions {
		if key := dayPart(cs.Date); key != "" {
			out[key] = true
		}
	}
	return out
}

// IsModuleStarted reports whether a class of module code took place on or before at.
func (s *Schedule) IsModuleStarted(code string, at time.Time) bool {
	code = strings.TrimSpace(code)
	if code == "" {
		return true
	}
	limit := model.DayKey(at)
	for _, cs := range s.Sessions {
		if !strings.EqualFold(cs.ModuleCode, code) {
			continue
		}
		if dayPart(cs.Date) <= limit {
			return true
		}
	}
	return false
}

// Upcoming returns up to n sessions dated on or after at, earliest first.
func (s *Schedule) Upcoming(at time.Time, n int) []model.CourseSession {
	from := model.DayKey(at)
	var out []model.CourseSession
	for _, cs := range s.Sessions {
		if dayPart(cs.Date) >= from {
			out = append(out, cs)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return dayPart(out[i].Date) < dayPart(out[j].Date) })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func dayPart(date string) string {
	date = strings.TrimSpace(date)
	if len(date) > len(model.DayLayout) {
		return date[:len(model.DayLayout)]
	}
	return date
}

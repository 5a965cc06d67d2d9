// Package schedule turns an ordered concept list into dated revision sessions.
package schedule

import (
	"fmt"
	"time"

	"github.com/verte-zerg/revise/internal/model"
)

// Packing constants.
const (
	MinutesPerConcept     = 15
	MinConceptsPerSession = 1
	MaxConceptsPerSession = 6
	DefaultCategory       = "General"
	DefaultModule         = "General"
)

const weekendQuizObjective = "Faire un quiz de contrôle en fin de session"

// Options configures Generate.
type Options struct {
	Start          time.Time
	Exam           time.Time
	WeekdayMinutes int
	WeekendHours   float64
	// CourseDates holds YYYY-MM-DD keys of days taken by in-person classes.
	CourseDates map[string]bool
}

// Generate walks days from Start (inclusive) to Exam (exclusive), skipping
// course days, and packs concepts in the given order. Concepts left over when
// the exam is reached are returned as unscheduled.
func Generate(concepts []model.Concept, opts Options) ([]model.RevisionSession, []model.Concept) {
	var sessions []model.RevisionSession
	next := 0
	exam := model.StartOfDay(opts.Exam)
	for day := model.StartOfDay(opts.Start); day.Before(exam) && next < len(concepts); day = day.AddDate(0, 0, 1) {
		key := model.DayKey(day)
		if opts.CourseDates[key] {
			continue
		}
		duration := availableMinutes(day, opts)
		if duration <= 0 {
			continue
		}
		n := clamp(duration/MinutesPerConcept, MinConceptsPerSession, MaxConceptsPerSession)
		if next+n > len(concepts) {
			n = len(concepts) - next
		}
		batch := concepts[next : next+n]
		next += n
		sessions = append(sessions, newLearningSession(day, duration, batch))
	}
	return sessions, append([]model.Concept(nil), concepts[next:]...)
}

func availableMinutes(day time.Time, opts Options) int {
	if model.IsWeekend(day) {
		return int(opts.WeekendHours * 60)
	}
	return opts.WeekdayMinutes
}

func newLearningSession(day time.Time, duration int, batch []model.Concept) model.RevisionSession {
	s := model.RevisionSession{
		Date:            model.DayKey(day),
		DayName:         model.DayName(day),
		DurationMinutes: duration,
		Category:        categoryOf(batch[0]),
		Priority:        model.PriorityMedium,
		SessionType:     model.SessionNewLearning,
		Module:          moduleOf(batch[0]),
	}
	for _, c := range batch {
		s.Concepts = append(s.Concepts, c.Name)
		if c.Importance.IsHigh() {
			s.Priority = model.PriorityHigh
			s.Objectives = append(s.Objectives, fmt.Sprintf("Maîtriser %s (concept prioritaire pour l'examen)", c.Name))
		} else {
			s.Objectives = append(s.Objectives, fmt.Sprintf("Comprendre et retenir %s", c.Name))
		}
	}
	if model.IsWeekend(day) {
		s.Objectives = append(s.Objectives, weekendQuizObjective)
	}
	return s
}

func categoryOf(c model.Concept) string {
	if c.Category == "" {
		return DefaultCategory
	}
	return c.Category
}

func moduleOf(c model.Concept) string {
	if c.Module == "" {
		return DefaultModule
	}
	return c.Module
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

package schedule

import (
	"time"

	"github.com/verte-zerg/revise/internal/model"
)

// PracticeMinutes is the length of an exam-style practice block.
const PracticeMinutes = 90

// PracticeOptions configures AddPractice.
type PracticeOptions struct {
	Start       time.Time
	Exam        time.Time
	Days        int
	CourseDates map[string]bool
}

// AddPractice fills free days among the last Days days before the exam with
// practice sessions. Days holding a class or another session are left alone.
func AddPractice(sessions []model.RevisionSession, opts PracticeOptions) []model.RevisionSession {
	out := cloneSessions(sessions)
	if opts.Days <= 0 {
		return out
	}
	taken := map[string]bool{}
	for _, s := range out {
		taken[s.Date] = true
	}
	exam := model.StartOfDay(opts.Exam)
	start := model.StartOfDay(opts.Start)
	for day := exam.AddDate(0, 0, -opts.Days); day.Before(exam); day = day.AddDate(0, 0, 1) {
		key := model.DayKey(day)
		if day.Before(start) || taken[key] || opts.CourseDates[key] {
			continue
		}
		out = append(out, model.RevisionSession{
			Date:            key,
			DayName:         model.DayName(day),
			DurationMinutes: PracticeMinutes,
			Concepts:        []string{"Exercices pratiques", "Révision générale"},
			Category:        "Pratique",
			Priority:        model.PriorityHigh,
			SessionType:     model.SessionPractice,
			Module:          DefaultModule,
			Objectives: []string{
				"Faire des exercices type examen",
				"Identifier les points faibles",
				"Renforcer la compréhension",
			},
		})
	}
	SortSessions(out)
	return out
}

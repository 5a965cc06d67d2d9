package schedule

import (
	"math"
	"time"

	"github.com/verte-zerg/revise/internal/model"
)

// Statistics summarizes a generated plan.
type Statistics struct {
	TotalRevisionHours        float64        `json:"total_revision_hours"`
	SessionsByPriority        map[string]int `json:"sessions_by_priority"`
	SessionsByType            map[string]int `json:"sessions_by_type"`
	AverageConceptsPerSession float64        `json:"average_concepts_per_session"`
	DaysUntilExam             int            `json:"days_until_exam"`
	UnscheduledConcepts       int            `json:"unscheduled_concepts"`
}

// ComputeStats aggregates session durations, priorities and types.
func ComputeStats(sessions []model.RevisionSession, now, exam time.Time, unscheduled int) Statistics {
	st := Statistics{
		SessionsByPriority: map[string]int{
			string(model.PriorityHigh):   0,
			string(model.PriorityMedium): 0,
			string(model.PriorityLow):    0,
		},
		SessionsByType: map[string]int{
			string(model.SessionNewLearning): 0,
			string(model.SessionRevision):    0,
			string(model.SessionPractice):    0,
		},
		DaysUntilExam:       model.DaysBetween(now, exam),
		UnscheduledConcepts: unscheduled,
	}
	totalMinutes := 0
	totalConcepts := 0
	for _, s := range sessions {
		totalMinutes += s.DurationMinutes
		totalConcepts += len(s.Concepts)
		st.SessionsByPriority[string(s.Priority)]++
		st.SessionsByType[string(s.SessionType)]++
	}
	st.TotalRevisionHours = round1(float64(totalMinutes) / 60)
	if len(sessions) > 0 {
		st.AverageConceptsPerSession = round1(float64(totalConcepts) / float64(len(sessions)))
	}
	return st
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

package schedule

import (
	"time"

	"github.com/verte-zerg/revise/internal/model"
)

// FinalReviewDays is how long before the exam the last milestone falls.
const FinalReviewDays = 7

// Milestones returns the 25/50/75% checkpoints between now and the exam plus
// a final one a week before it. It returns nil once the exam day is reached.
func Milestones(now, exam time.Time) []model.Milestone {
	today := model.StartOfDay(now)
	total := model.DaysBetween(today, exam)
	if total <= 0 {
		return nil
	}
	at := func(fraction float64) string {
		return model.DayKey(today.AddDate(0, 0, int(float64(total)*fraction)))
	}
	return []model.Milestone{
		{Date: at(0.25), Name: "Premier Quart", Objective: "Bases essentielles", Progress: 25},
		{Date: at(0.50), Name: "Mi-parcours", Objective: "Concepts avancés", Progress: 50},
		{Date: at(0.75), Name: "Dernier Sprint", Objective: "Révisions intensives", Progress: 75},
		{Date: model.DayKey(model.StartOfDay(exam).AddDate(0, 0, -FinalReviewDays)), Name: "Révision Finale", Objective: "Consolidation", Progress: 95},
	}
}

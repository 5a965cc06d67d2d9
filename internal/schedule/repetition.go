package schedule

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/verte-zerg/revise/internal/model"
)

// Spaced repetition limits.
const (
	MaxReviewConcepts      = 20
	ShortSessionMinutes    = 45
	shortMaxReviews        = 1
	shortMaxSlots          = 2
	longMaxReviews         = 2
	longMaxSlots           = 8
	minDueForNewSession    = 2
	maxReviewSessionTopics = 3
)

// ReviewOffsets are the days after "now" at which a concept is reviewed.
var ReviewOffsets = []int{7, 21, 45}

// ReviewOptions configures InjectReviews.
type ReviewOptions struct {
	Now         time.Time
	Exam        time.Time
	CourseDates map[string]bool
}

// InjectReviews overlays review entries for critical, high and exam relevant
// concepts. Existing entries are never removed or reordered.
func InjectReviews(sessions []model.RevisionSession, concepts []model.Concept, opts ReviewOptions) []model.RevisionSession {
	out := cloneSessions(sessions)
	selected := selectForReview(concepts)
	if len(selected) == 0 {
		return out
	}

	today := model.StartOfDay(opts.Now)
	exam := model.StartOfDay(opts.Exam)
	due := map[string][]model.Concept{}
	days := map[string]time.Time{}
	for i, c := range selected {
		for _, offset := range ReviewOffsets {
			day := today.AddDate(0, 0, offset+i%7)
			if !day.Before(exam) {
				continue
			}
			key := model.DayKey(day)
			due[key] = append(due[key], c)
			days[key] = day
		}
	}

	keys := make([]string, 0, len(due))
	for k := range due {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		reviews := due[key]
		if idx := sessionOn(out, key); idx >= 0 {
			appendReviews(&out[idx], reviews)
			continue
		}
		if len(reviews) < minDueForNewSession || opts.CourseDates[key] {
			continue
		}
		out = append(out, newRevisionSession(days[key], reviews))
	}
	SortSessions(out)
	return out
}

func selectForReview(concepts []model.Concept) []model.Concept {
	var out []model.Concept
	for _, c := range concepts {
		if !c.Importance.IsHigh() && !c.ExamRelevant {
			continue
		}
		out = append(out, c)
		if len(out) == MaxReviewConcepts {
			break
		}
	}
	return out
}

func sessionOn(sessions []model.RevisionSession, key string) int {
	found := -1
	for i, s := range sessions {
		if s.Date != key {
			continue
		}
		if s.SessionType == model.SessionNewLearning {
			return i
		}
		if found < 0 {
			found = i
		}
	}
	return found
}

func appendReviews(s *model.RevisionSession, reviews []model.Concept) {
	maxReviews, maxSlots := longMaxReviews, longMaxSlots
	if s.DurationMinutes <= ShortSessionMinutes {
		maxReviews, maxSlots = shortMaxReviews, shortMaxSlots
	}
	added := 0
	for _, entry := range s.Concepts {
		if strings.HasPrefix(entry, model.ReviewPrefix) {
			added++
		}
	}
	for _, r := range reviews {
		if added >= maxReviews || len(s.Concepts) >= maxSlots {
			return
		}
		if containsConcept(s.Concepts, r.Name) {
			continue
		}
		s.Concepts = append(s.Concepts, model.ReviewPrefix+r.Name)
		added++
	}
}

func containsConcept(entries []string, name string) bool {
	for _, e := range entries {
		if strings.TrimPrefix(e, model.ReviewPrefix) == name {
			return true
		}
	}
	return false
}

func newRevisionSession(day time.Time, reviews []model.Concept) model.RevisionSession {
	if len(reviews) > maxReviewSessionTopics {
		reviews = reviews[:maxReviewSessionTopics]
	}
	first := reviews[0]
	s := model.RevisionSession{
		Date:            model.DayKey(day),
		DayName:         model.DayName(day),
		DurationMinutes: len(reviews) * MinutesPerConcept,
		Category:        categoryOf(first),
		Priority:        model.PriorityMedium,
		SessionType:     model.SessionRevision,
		Module:          moduleOf(first),
	}
	for _, r := range reviews {
		s.Concepts = append(s.Concepts, model.ReviewPrefix+r.Name)
		s.Objectives = append(s.Objectives, fmt.Sprintf("Réviser %s", r.Name))
		if r.Importance.IsHigh() {
			s.Priority = model.PriorityHigh
		}
	}
	return s
}

func cloneSessions(in []model.RevisionSession) []model.RevisionSession {
	out := make([]model.RevisionSession, len(in))
	for i, s := range in {
		s.Concepts = append([]string(nil), s.Concepts...)
		s.Objectives = append([]string(nil), s.Objectives...)
		out[i] = s
	}
	return out
}

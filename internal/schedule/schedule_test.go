package schedule

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/revise/internal/model"
)

func day(s string) time.Time {
	t, err := time.ParseInLocation(model.DayLayout, s, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

func concepts(n int, imp model.Importance) []model.Concept {
	out := make([]model.Concept, n)
	for i := range out {
		out[i] = model.Concept{Name: fmt.Sprintf("C%d", i), Importance: imp, Category: "Electricite"}
	}
	return out
}

func TestGenerateSkipsCourseDates(t *testing.T) {
	sessions, unscheduled := Generate(concepts(5, model.ImportanceMedium), Options{
		Start:          day("2026-03-09"),
		Exam:           day("2026-03-12"),
		WeekdayMinutes: 30,
		WeekendHours:   8,
		CourseDates:    map[string]bool{"2026-03-10": true},
	})
	var dates []string
	for _, s := range sessions {
		dates = append(dates, s.Date)
	}
	if !reflect.DeepEqual(dates, []string{"2026-03-09", "2026-03-11"}) {
		t.Fatalf("unexpected session dates: %v", dates)
	}
	if len(unscheduled) != 1 || unscheduled[0].Name != "C4" {
		t.Fatalf("expected C4 unscheduled, got %+v", unscheduled)
	}
	if !reflect.DeepEqual(sessions[1].Concepts, []string{"C2", "C3"}) {
		t.Fatalf("concepts must be consumed in order, got %v", sessions[1].Concepts)
	}
	if sessions[0].DayName != "Lundi" || sessions[0].DurationMinutes != 30 {
		t.Fatalf("unexpected first session: %+v", sessions[0])
	}
}

func TestGenerateCapacityBounds(t *testing.T) {
	cases := []struct {
		name    string
		weekday int
		weekend float64
		start   string
		want    int
	}{
		{name: "tiny weekday", weekday: 5, weekend: 8, start: "2026-03-09", want: 1},
		{name: "normal weekday", weekday: 45, weekend: 8, start: "2026-03-09", want: 3},
		{name: "long weekend", weekday: 30, weekend: 8, start: "2026-03-14", want: 6},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sessions, _ := Generate(concepts(40, model.ImportanceLow), Options{
				Start:          day(tc.start),
				Exam:           day(tc.start).AddDate(0, 0, 1),
				WeekdayMinutes: tc.weekday,
				WeekendHours:   tc.weekend,
			})
			if len(sessions) != 1 || len(sessions[0].Concepts) != tc.want {
				t.Fatalf("expected one session with %d concepts, got %+v", tc.want, sessions)
			}
		})
	}

	sessions, _ := Generate(concepts(200, model.ImportanceLow), Options{
		Start:          day("2026-03-01"),
		Exam:           day("2026-05-01"),
		WeekdayMinutes: 20,
		WeekendHours:   3,
	})
	for _, s := range sessions {
		if len(s.Concepts) < MinConceptsPerSession || len(s.Concepts) > MaxConceptsPerSession {
			t.Fatalf("session %s has %d concepts", s.Date, len(s.Concepts))
		}
	}
}

func TestGenerateSessionAttributes(t *testing.T) {
	batch := []model.Concept{
		{Name: "Terre", Importance: model.ImportanceMedium, Category: "Protection"},
		{Name: "Disjoncteur", Importance: model.ImportanceCritical, Category: "Appareils", Module: "AA02"},
	}
	sessions, _ := Generate(batch, Options{
		Start:          day("2026-03-14"),
		Exam:           day("2026-04-01"),
		WeekdayMinutes: 30,
		WeekendHours:   2,
	})
	if len(sessions) != 1 {
		t.Fatalf("expected one weekend session, got %d", len(sessions))
	}
	s := sessions[0]
	if s.Priority != model.PriorityHigh || s.Category != "Protection" || s.Module != DefaultModule {
		t.Fatalf("unexpected attributes: %+v", s)
	}
	if s.DurationMinutes != 120 || s.SessionType != model.SessionNewLearning {
		t.Fatalf("unexpected duration or type: %+v", s)
	}
	want := []string{
		"Comprendre et retenir Terre",
		"Maîtriser Disjoncteur (concept prioritaire pour l'examen)",
		weekendQuizObjective,
	}
	if !reflect.DeepEqual(s.Objectives, want) {
		t.Fatalf("unexpected objectives: %v", s.Objectives)
	}
}

func TestGenerateWithExamInPast(t *testing.T) {
	sessions, unscheduled := Generate(concepts(3, model.ImportanceHigh), Options{
		Start:          day("2026-03-09"),
		Exam:           day("2026-03-01"),
		WeekdayMinutes: 30,
	})
	if len(sessions) != 0 || len(unscheduled) != 3 {
		t.Fatalf("expected nothing scheduled, got %d sessions, %d left", len(sessions), len(unscheduled))
	}
}

func TestInjectReviewsCreatesRevisionSessionWhenTwoDue(t *testing.T) {
	list := concepts(8, model.ImportanceHigh)
	list = append(list, model.Concept{Name: "Skip", Importance: model.ImportanceLow})
	out := InjectReviews(nil, list, ReviewOptions{
		Now:         day("2026-03-01"),
		Exam:        day("2026-05-01"),
		CourseDates: map[string]bool{"2026-03-22": true},
	})
	var onEighth *model.RevisionSession
	for i := range out {
		switch out[i].Date {
		case "2026-03-08":
			onEighth = &out[i]
		case "2026-03-09", "2026-03-22":
			t.Fatalf("unexpected session on %s", out[i].Date)
		}
		for _, c := range out[i].Concepts {
			if strings.Contains(c, "Skip") {
				t.Fatalf("low importance concept must not be reviewed")
			}
		}
	}
	if onEighth == nil {
		t.Fatalf("expected revision session on 2026-03-08")
	}
	if onEighth.SessionType != model.SessionRevision || onEighth.DurationMinutes != 30 {
		t.Fatalf("unexpected revision session: %+v", onEighth)
	}
	if !reflect.DeepEqual(onEighth.Concepts, []string{"Reviser: C0", "Reviser: C7"}) {
		t.Fatalf("unexpected review concepts: %v", onEighth.Concepts)
	}
}

func TestInjectReviewsRespectsCapsAndKeepsExisting(t *testing.T) {
	list := concepts(15, model.ImportanceCritical)
	existing := []model.RevisionSession{
		{Date: "2026-03-08", DurationMinutes: 30, Concepts: []string{"Nouveau"}, SessionType: model.SessionNewLearning},
		{Date: "2026-03-22", DurationMinutes: 480, Concepts: []string{"A", "B", "C", "D", "E"}, SessionType: model.SessionNewLearning},
		{Date: "2026-04-15", DurationMinutes: 480, Concepts: []string{"A", "B", "C", "D", "E", "F", "G"}, SessionType: model.SessionNewLearning},
	}
	out := InjectReviews(existing, list, ReviewOptions{Now: day("2026-03-01"), Exam: day("2026-06-01")})
	byDate := map[string]model.RevisionSession{}
	for _, s := range out {
		if s.SessionType == model.SessionNewLearning {
			byDate[s.Date] = s
		}
	}
	if got := byDate["2026-03-08"].Concepts; !reflect.DeepEqual(got, []string{"Nouveau", "Reviser: C0"}) {
		t.Fatalf("short session: unexpected concepts %v", got)
	}
	if got := byDate["2026-03-22"].Concepts; len(got) != 7 || got[5] != "Reviser: C0" || got[6] != "Reviser: C7" {
		t.Fatalf("long session: unexpected concepts %v", got)
	}
	if got := byDate["2026-04-15"].Concepts; len(got) != 8 || got[7] != "Reviser: C0" {
		t.Fatalf("full session: unexpected concepts %v", got)
	}
	if existing[0].Concepts[0] != "Nouveau" || len(existing[0].Concepts) != 1 {
		t.Fatalf("input sessions must not be mutated")
	}
}

func TestInjectReviewsLimitsSelection(t *testing.T) {
	out := InjectReviews(nil, concepts(25, model.ImportanceHigh), ReviewOptions{Now: day("2026-03-01"), Exam: day("2027-01-01")})
	for _, s := range out {
		for _, c := range s.Concepts {
			for i := MaxReviewConcepts; i < 25; i++ {
				if c == fmt.Sprintf("Reviser: C%d", i) {
					t.Fatalf("concept C%d is beyond the review limit", i)
				}
			}
		}
	}
}

func TestReviewDatesStayBeforeExam(t *testing.T) {
	out := InjectReviews(nil, concepts(20, model.ImportanceHigh), ReviewOptions{Now: day("2026-03-01"), Exam: day("2026-03-20")})
	for _, s := range out {
		if s.Date >= "2026-03-20" {
			t.Fatalf("review scheduled on or after exam: %s", s.Date)
		}
	}
}

func TestAddPractice(t *testing.T) {
	existing := []model.RevisionSession{{Date: "2026-03-18", SessionType: model.SessionNewLearning, Concepts: []string{"X"}}}
	out := AddPractice(existing, PracticeOptions{
		Start:       day("2026-03-16"),
		Exam:        day("2026-03-20"),
		Days:        5,
		CourseDates: map[string]bool{"2026-03-17": true},
	})
	var practice []string
	for _, s := range out {
		if s.SessionType == model.SessionPractice {
			practice = append(practice, s.Date)
			if s.DurationMinutes != PracticeMinutes {
				t.Fatalf("unexpected practice duration %d", s.DurationMinutes)
			}
		}
	}
	if !reflect.DeepEqual(practice, []string{"2026-03-16", "2026-03-19"}) {
		t.Fatalf("unexpected practice days: %v", practice)
	}
	if none := AddPractice(existing, PracticeOptions{Exam: day("2026-03-20")}); len(none) != 1 {
		t.Fatalf("expected practice disabled by default")
	}
}

func TestMilestones(t *testing.T) {
	ms := Milestones(day("2026-03-01"), day("2026-05-10"))
	want := []model.Milestone{
		{Date: "2026-03-18", Name: "Premier Quart", Objective: "Bases essentielles", Progress: 25},
		{Date: "2026-04-05", Name: "Mi-parcours", Objective: "Concepts avancés", Progress: 50},
		{Date: "2026-04-22", Name: "Dernier Sprint", Objective: "Révisions intensives", Progress: 75},
		{Date: "2026-05-03", Name: "Révision Finale", Objective: "Consolidation", Progress: 95},
	}
	if !reflect.DeepEqual(ms, want) {
		t.Fatalf("unexpected milestones: %+v", ms)
	}
	if Milestones(day("2026-05-10"), day("2026-05-10")) != nil {
		t.Fatalf("expected no milestones on exam day")
	}
}

func TestAssignIDsAreContentStable(t *testing.T) {
	base := []model.RevisionSession{
		{Date: "2026-03-09", Concepts: []string{"Terre", "Disjoncteur"}},
		{Date: "2026-03-11", Concepts: []string{"Puissance"}},
	}
	first := cloneSessions(base)
	AssignIDs(first)

	shifted := append([]model.RevisionSession{{Date: "2026-03-08", Concepts: []string{"Loi d'Ohm"}}}, cloneSessions(base)...)
	shifted[1].Concepts = []string{"disjoncteur", "Terre"}
	AssignIDs(shifted)

	if first[0].ID != shifted[1].ID || first[1].ID != shifted[2].ID {
		t.Fatalf("ids must not depend on position: %v vs %v", first, shifted)
	}
	if !strings.HasPrefix(first[0].ID, "rev_2026-03-09_") || len(first[0].ID) != len("rev_2026-03-09_")+8 {
		t.Fatalf("unexpected id format: %s", first[0].ID)
	}

	dups := []model.RevisionSession{
		{Date: "2026-03-09", Concepts: []string{"A"}},
		{Date: "2026-03-09", Concepts: []string{"A"}},
	}
	AssignIDs(dups)
	if dups[1].ID != dups[0].ID+"_2" {
		t.Fatalf("expected suffixed duplicate id, got %s and %s", dups[0].ID, dups[1].ID)
	}
}

func TestContentKeyIgnoresDate(t *testing.T) {
	a := model.RevisionSession{Date: "2026-03-09", Concepts: []string{"Terre", "Disjoncteur"}, SessionType: model.SessionNewLearning}
	b := model.RevisionSession{Date: "2026-03-12", Concepts: []string{"Disjoncteur", "terre"}, SessionType: model.SessionNewLearning}
	if ContentKey(a) != ContentKey(b) {
		t.Fatalf("expected same content key")
	}
	b.SessionType = model.SessionRevision
	if ContentKey(a) == ContentKey(b) {
		t.Fatalf("expected session type to change the key")
	}
}

func TestComputeStats(t *testing.T) {
	sessions := []model.RevisionSession{
		{DurationMinutes: 30, Concepts: []string{"A", "B"}, Priority: model.PriorityHigh, SessionType: model.SessionNewLearning},
		{DurationMinutes: 480, Concepts: []string{"C"}, Priority: model.PriorityMedium, SessionType: model.SessionNewLearning},
		{DurationMinutes: 30, Concepts: []string{"Reviser: A", "Reviser: C"}, Priority: model.PriorityHigh, SessionType: model.SessionRevision},
	}
	st := ComputeStats(sessions, day("2026-03-01"), day("2026-03-31"), 4)
	if st.TotalRevisionHours != 9 || st.AverageConceptsPerSession != 1.7 {
		t.Fatalf("unexpected totals: %+v", st)
	}
	if st.SessionsByPriority["high"] != 2 || st.SessionsByType["revision"] != 1 || st.SessionsByType["practice"] != 0 {
		t.Fatalf("unexpected breakdown: %+v", st)
	}
	if st.DaysUntilExam != 30 || st.UnscheduledConcepts != 4 {
		t.Fatalf("unexpected days or unscheduled: %+v", st)
	}
}

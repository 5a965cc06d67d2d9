package schedule

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/verte-zerg/revise/internal/graph"
	"github.com/verte-zerg/revise/internal/model"
)

var typeOrder = map[model.SessionType]int{
	model.SessionNewLearning: 0,
	model.SessionRevision:    1,
	model.SessionPractice:    2,
}

// SortSessions orders sessions by date, then new learning before revision
// before practice. The sort is stable.
func SortSessions(sessions []model.RevisionSession) {
	sort.SliceStable(sessions, func(i, j int) bool {
		if sessions[i].Date != sessions[j].Date {
			return sessions[i].Date < sessions[j].Date
		}
		return typeOrder[sessions[i].SessionType] < typeOrder[sessions[j].SessionType]
	})
}

// ContentKey identifies what a session covers regardless of its date.
func ContentKey(s model.RevisionSession) string {
	names := make([]string, 0, len(s.Concepts))
	for _, c := range s.Concepts {
		names = append(names, graph.NormalizeName(c))
	}
	sort.Strings(names)
	sum := sha256.Sum256([]byte(string(s.SessionType) + "\n" + strings.Join(names, "\n")))
	return hex.EncodeToString(sum[:])[:16]
}

// SessionID derives the id of a session from its date and content.
func SessionID(s model.RevisionSession) string {
	names := make([]string, 0, len(s.Concepts))
	for _, c := range s.Concepts {
		names = append(names, graph.NormalizeName(c))
	}
	sort.Strings(names)
	sum := sha256.Sum256([]byte(s.Date + "\n" + strings.Join(names, "\n")))
	return fmt.Sprintf("rev_%s_%s", s.Date, hex.EncodeToString(sum[:])[:8])
}

// AssignIDs sets content-stable ids. Exact duplicates get _2, _3 suffixes in
// list order, so sessions must already be sorted.
func AssignIDs(sessions []model.RevisionSession) {
	seen := map[string]int{}
	for i := range sessions {
		id := SessionID(sessions[i])
		seen[id]++
		if n := seen[id]; n > 1 {
			id = fmt.Sprintf("%s_%d", id, n)
		}
		sessions[i].ID = id
	}
}

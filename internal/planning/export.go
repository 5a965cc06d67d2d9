package planning

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"os"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"

	"github.com/verte-zerg/revise/internal/fsutil"
	"github.com/verte-zerg/revise/internal/model"
)

// MarkdownSessions is how many upcoming sessions the Markdown export lists.
const MarkdownSessions = 14

const markdownTopics = 3

const displayDate = "02/01/2006"

// SavePlan writes the plan JSON atomically.
func SavePlan(path string, plan *Plan) error {
	if err := fsutil.WriteJSON(path, plan); err != nil {
		return fmt.Errorf("failed to write plan: %w", err)
	}
	return nil
}

// LoadPlan reads a plan JSON. A missing file returns nil and no error.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read plan: %w", err)
	}
	var plan Plan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("failed to decode plan %s: %w", path, err)
	}
	return &plan, nil
}

// Markdown renders the milestones and the first upcoming sessions.
func Markdown(plan *Plan, now time.Time) string {
	exam, err := model.ParseDay(plan.ExamDate, now.Location())
	examLabel := plan.ExamDate
	daysLeft := plan.Statistics.DaysUntilExam
	if err == nil {
		examLabel = exam.Format(displayDate)
		daysLeft = model.DaysBetween(now, exam)
	}

	lines := []string{
		"# Planning de Revision Personnalise",
		"",
		"Genere le: " + now.Format(displayDate),
		"Examen: " + examLabel,
		fmt.Sprintf("Jours restants: %d", daysLeft),
		"",
		"## Jalons",
		"",
	}
	for _, m := range plan.Milestones {
		lines = append(lines, fmt.Sprintf("- **%s** - %s: %s", m.Date, m.Name, m.Objective))
	}
	lines = append(lines, "", "## Sessions de la semaine", "")
	sessions := plan.Sessions
	if len(sessions) > MarkdownSessions {
		sessions = sessions[:MarkdownSessions]
	}
	for _, s := range sessions {
		topics := s.Concepts
		if len(topics) > markdownTopics {
			topics = topics[:markdownTopics]
		}
		lines = append(lines, fmt.Sprintf("- **%s %s** (%dmin): %s", s.DayName, s.Date, s.DurationMinutes, strings.Join(topics, ", ")))
	}
	return strings.Join(lines, "\n")
}

// SaveMarkdown writes the Markdown export atomically.
func SaveMarkdown(path string, plan *Plan, now time.Time) error {
	if err := fsutil.WriteFileAtomic(path, []byte(Markdown(plan, now))); err != nil {
		return fmt.Errorf("failed to write markdown plan: %w", err)
	}
	return nil
}

var markdownEngine = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Typographer,
	),
	goldmark.WithRendererOptions(
		htmlrenderer.WithXHTML(),
	),
)

// HTML renders a standalone page from the Markdown export.
func HTML(plan *Plan, now time.Time) (string, error) {
	var body bytes.Buffer
	if err := markdownEngine.Convert([]byte(Markdown(plan, now)), &body); err != nil {
		return "", fmt.Errorf("failed to render plan: %w", err)
	}
	var page strings.Builder
	page.WriteString("<!DOCTYPE html>\n<html lang=\"fr\">\n<head>\n<meta charset=\"utf-8\" />\n")
	page.WriteString("<title>" + html.EscapeString("Planning de révision "+plan.ExamDate) + "</title>\n")
	page.WriteString("</head>\n<body>\n")
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")
	return page.String(), nil
}

// SaveHTML writes the HTML export atomically.
func SaveHTML(path string, plan *Plan, now time.Time) error {
	page, err := HTML(plan, now)
	if err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(path, []byte(page)); err != nil {
		return fmt.Errorf("failed to write html plan: %w", err)
	}
	return nil
}

// Package tui provides the Bubble Tea progress checklist.
package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/revise/internal/model"
	"github.com/verte-zerg/revise/internal/schedule"
	"github.com/verte-zerg/revise/internal/store"
)

// Tracker persists completion toggles.
type Tracker interface {
	MarkSessionDone(ctx context.Context, c store.Completion) error
	UnmarkSession(ctx context.Context, sessionID string) (bool, error)
}

// Model implements the checklist UI.
type Model struct {
	tracker  Tracker
	now      func() time.Time
	sessions []model.RevisionSession
	visible  []int
	hideDone bool
	table    table.Model
	status   string

	width  int
	height int
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#C89A3A"))
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
)

const (
	defaultTableHeight = 20
	chromeLines        = 4
)

// NewModel builds the checklist. now may be nil.
func NewModel(tracker Tracker, sessions []model.RevisionSession, now func() time.Time) *Model {
	if now == nil {
		now = time.Now
	}
	m := &Model{
		tracker:  tracker,
		now:      now,
		sessions: append([]model.RevisionSession(nil), sessions...),
	}
	m.table = table.New(
		table.WithColumns(columns(0)),
		table.WithFocused(true),
		table.WithHeight(defaultTableHeight),
	)
	m.table.SetStyles(checklistStyles())
	m.refreshRows()
	m.jumpToToday()
	return m
}

// Sessions returns the sessions with their current completion flags.
func (m *Model) Sessions() []model.RevisionSession {
	return append([]model.RevisionSession(nil), m.sessions...)
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetColumns(columns(msg.Width))
		m.table.SetWidth(msg.Width)
		m.table.SetHeight(maxInt(1, msg.Height-chromeLines))
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case " ", "space", "enter", "x":
			m.toggleSelected()
			return m, nil
		case "h":
			m.hideDone = !m.hideDone
			m.refreshRows()
			return m, nil
		case "t":
			m.jumpToToday()
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Planning de révision"))
	b.WriteString("\n\n")
	if len(m.visible) == 0 {
		b.WriteString("Aucune session à afficher.\n")
	} else {
		b.WriteString(m.table.View())
		b.WriteString("\n")
	}
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m *Model) renderFooter() string {
	done := 0
	for _, s := range m.sessions {
		if s.Completed {
			done++
		}
	}
	pct := 0
	if len(m.sessions) > 0 {
		pct = int(float64(done) / float64(len(m.sessions)) * 100)
	}
	segments := []string{
		fmt.Sprintf("Progress %d/%d (%d%%)", done, len(m.sessions), pct),
		"space toggle",
		"h hide done",
		"t today",
		"q quit",
	}
	footer := footerStyle.Render(strings.Join(segments, "  "))
	if m.status != "" {
		footer += "\n" + errorStyle.Render(m.status)
	}
	return footer
}

func (m *Model) toggleSelected() {
	idx, ok := m.selected()
	if !ok {
		return
	}
	s := m.sessions[idx]
	ctx := context.Background()
	m.status = ""
	if s.Completed {
		if _, err := m.tracker.UnmarkSession(ctx, s.ID); err != nil {
			m.status = fmt.Sprintf("failed to save: %v", err)
			return
		}
	} else {
		err := m.tracker.MarkSessionDone(ctx, store.Completion{
			SessionID:   s.ID,
			ContentKey:  schedule.ContentKey(s),
			Date:        s.Date,
			CompletedAt: m.now(),
		})
		if err != nil {
			m.status = fmt.Sprintf("failed to save: %v", err)
			return
		}
	}
	m.sessions[idx].Completed = !s.Completed
	cursor := m.table.Cursor()
	m.refreshRows()
	if cursor >= len(m.visible) {
		cursor = len(m.visible) - 1
	}
	if cursor >= 0 {
		m.table.SetCursor(cursor)
	}
}

func (m *Model) selected() (int, bool) {
	cursor := m.table.Cursor()
	if cursor < 0 || cursor >= len(m.visible) {
		return 0, false
	}
	return m.visible[cursor], true
}

func (m *Model) refreshRows() {
	m.visible = m.visible[:0]
	rows := make([]table.Row, 0, len(m.sessions))
	for i, s := range m.sessions {
		if m.hideDone && s.Completed {
			continue
		}
		m.visible = append(m.visible, i)
		mark := "[ ]"
		if s.Completed {
			mark = "[x]"
		}
		rows = append(rows, table.Row{
			mark,
			s.Date,
			s.DayName,
			sessionTypeLabel(s.SessionType),
			strconv.Itoa(s.DurationMinutes),
			strings.Join(s.Concepts, ", "),
		})
	}
	m.table.SetRows(rows)
}

func (m *Model) jumpToToday() {
	today := model.DayKey(m.now())
	for row, idx := range m.visible {
		if m.sessions[idx].Date >= today {
			m.table.SetCursor(row)
			return
		}
	}
}

func sessionTypeLabel(t model.SessionType) string {
	switch t {
	case model.SessionNewLearning:
		return "nouveau"
	case model.SessionRevision:
		return "révision"
	case model.SessionPractice:
		return "pratique"
	default:
		return string(t)
	}
}

func columns(width int) []table.Column {
	cols := []table.Column{
		{Title: "", Width: 3},
		{Title: "Date", Width: 10},
		{Title: "Jour", Width: 8},
		{Title: "Type", Width: 8},
		{Title: "Min", Width: 4},
		{Title: "Concepts", Width: 40},
	}
	if width > 0 {
		used := 0
		for _, c := range cols[:len(cols)-1] {
			used += c.Width + 1
		}
		cols[len(cols)-1].Width = maxInt(10, width-used-1)
	}
	return cols
}

func checklistStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

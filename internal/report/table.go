// Package report renders plain-text views of analyses, plans and the concept graph.
package report

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

const columnGap = "  "

// table lays cells out in columns measured in terminal cells, so accented
// and wide characters line up.
type table struct {
	header []string
	right  map[int]bool
	rows   [][]string
}

// newTable starts a table. Without a header only the rows are printed.
func newTable(header ...string) *table {
	return &table{header: header, right: map[int]bool{}}
}

// alignRight right-aligns the columns at the given indexes.
func (t *table) alignRight(cols ...int) *table {
	for _, c := range cols {
		t.right[c] = true
	}
	return t
}

// add appends a row. A row longer than the header opens extra columns.
func (t *table) add(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *table) lines() []string {
	all := t.rows
	if len(t.header) > 0 {
		all = append([][]string{t.header}, t.rows...)
	}
	widths := columnWidths(all)
	out := make([]string, 0, len(all))
	for _, cells := range all {
		out = append(out, t.render(cells, widths))
	}
	return out
}

func (t *table) render(cells []string, widths []int) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		var cell string
		if i < len(cells) {
			cell = cells[i]
		}
		if t.right[i] {
			parts[i] = runewidth.FillLeft(cell, w)
		} else {
			parts[i] = runewidth.FillRight(cell, w)
		}
	}
	return strings.TrimRight(strings.Join(parts, columnGap), " ")
}

func columnWidths(rows [][]string) []int {
	var widths []int
	for _, cells := range rows {
		for i, cell := range cells {
			if i == len(widths) {
				widths = append(widths, 0)
			}
			widths[i] = max(widths[i], displayWidth(cell))
		}
	}
	return widths
}

func displayWidth(value string) int {
	return runewidth.StringWidth(value)
}

// truncate shortens value to width cells, ending with an ellipsis.
func truncate(value string, width int) string {
	if width <= 0 || displayWidth(value) <= width {
		return value
	}
	return runewidth.Truncate(value, width, "…")
}

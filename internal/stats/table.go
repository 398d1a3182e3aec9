package stats

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

type column struct {
	title string
	right bool
}

// table renders fixed columns padded to the widest cell, measured in
// terminal cells so wide runes stay aligned.
type table struct {
	cols []column
	rows [][]string
}

func newTable(cols ...column) *table {
	return &table{cols: cols}
}

// add appends a row; missing trailing cells render empty.
func (t *table) add(cells ...string) {
	row := make([]string, len(t.cols))
	copy(row, cells)
	t.rows = append(t.rows, row)
}

func (t *table) widths() []int {
	widths := make([]int, len(t.cols))
	for i, c := range t.cols {
		widths[i] = runewidth.StringWidth(c.title)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}
	return widths
}

func (t *table) line(cells []string, widths []int) string {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		if t.cols[i].right {
			parts[i] = runewidth.FillLeft(cell, widths[i])
		} else {
			parts[i] = runewidth.FillRight(cell, widths[i])
		}
	}
	return strings.Join(parts, " ")
}

func (t *table) lines() []string {
	widths := t.widths()
	titles := make([]string, len(t.cols))
	for i, c := range t.cols {
		titles[i] = c.title
	}
	out := make([]string, 0, len(t.rows)+1)
	out = append(out, t.line(titles, widths))
	for _, row := range t.rows {
		out = append(out, t.line(row, widths))
	}
	return out
}

func (t *table) writeTo(w io.Writer) error {
	for _, l := range t.lines() {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}

package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type Column struct {
	Header     string
	AlignRight bool
}

type Table struct {
	Columns []Column
	Rows    [][]string
}

func NewTable(columns ...Column) *Table {
	return &Table{Columns: columns}
}

func (t *Table) AddRow(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// Render lays out the table with columns sized to their widest cell.
func (t *Table) Render() string {
	if len(t.Columns) == 0 {
		return ""
	}

	widths := make([]int, len(t.Columns))
	for i, col := range t.Columns {
		widths[i] = lipgloss.Width(col.Header)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}

	var b strings.Builder
	header := make([]string, len(t.Columns))
	rule := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		header[i] = pad(col.Header, widths[i], false)
		rule[i] = strings.Repeat("─", widths[i])
	}
	b.WriteString(StyleTableHeader.Render(strings.Join(header, "  ")))
	b.WriteString("\n")
	b.WriteString(StyleTableBorder.Render(strings.Join(rule, "  ")))
	b.WriteString("\n")

	for _, row := range t.Rows {
		cells := make([]string, len(t.Columns))
		for i := range t.Columns {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			cells[i] = pad(cell, widths[i], t.Columns[i].AlignRight)
		}
		b.WriteString(strings.TrimRight(strings.Join(cells, "  "), " "))
		b.WriteString("\n")
	}
	return b.String()
}

func pad(s string, width int, right bool) string {
	n := width - lipgloss.Width(s)
	if n <= 0 {
		return s
	}
	if right {
		return strings.Repeat(" ", n) + s
	}
	return s + strings.Repeat(" ", n)
}

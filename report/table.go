package report

import "strings"

// table renders rows of cells right-aligned to the widest cell of each column.
// Hidden rows contribute to column widths but are not printed.
type table struct {
	rows   [][]string
	hidden []bool
	widths []int
}

func newTable(header ...string) *table {
	t := &table{widths: make([]int, len(header))}
	t.add(true, header...)
	return t
}

func (t *table) add(visible bool, cells ...string) {
	for i, cell := range cells {
		t.widths[i] = max(t.widths[i], len(cell))
	}
	t.rows = append(t.rows, cells)
	t.hidden = append(t.hidden, !visible)
}

// String renders the header, a dashed separator spanning all columns and the
// visible body rows, joined by newlines without a trailing newline.
func (t *table) String() string {
	lines := make([]string, 0, len(t.rows)+1)
	for i, row := range t.rows {
		if !t.hidden[i] {
			lines = append(lines, t.format(row))
		}
		if i == 0 {
			lines = append(lines, strings.Repeat("-", t.width()))
		}
	}
	return strings.Join(lines, "\n")
}

func (t *table) format(row []string) string {
	cells := make([]string, len(row))
	for i, cell := range row {
		cells[i] = strings.Repeat(" ", t.widths[i]-len(cell)) + cell
	}
	return strings.Join(cells, " ")
}

// width is the total line width: all columns plus single-space gaps.
func (t *table) width() int {
	total := len(t.widths) - 1
	for _, w := range t.widths {
		total += w
	}
	return total
}

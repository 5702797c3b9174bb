package report

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Mode controls the output format.
type Mode int

const (
	ASCII    Mode = iota // box-drawn terminal tables
	Markdown             // GitHub-flavoured Markdown, for CI job summaries
)

// ModeFor maps a --markdown flag to a Mode.
func ModeFor(markdown bool) Mode {
	if markdown {
		return Markdown
	}
	return ASCII
}

// Table is a result table. Columns holding only integers are right-aligned
// when rendered.
type Table struct {
	mode    Mode
	header  []string
	rows    [][]any
	footer  []any
	title   string
	widths  map[string]int
	numeric []bool
}

// NewTable starts a table with the given column headers.
func NewTable(m Mode, header ...string) *Table {
	numeric := make([]bool, len(header))
	for i := range numeric {
		numeric[i] = true
	}
	return &Table{mode: m, header: header, numeric: numeric, widths: map[string]int{}}
}

// Title sets a caption rendered above the table.
func (t *Table) Title(s string) { t.title = s }

// Row appends a data row. Cells are rendered with fmt.Sprint.
func (t *Table) Row(cells ...any) {
	for i, c := range cells {
		if i < len(t.numeric) && !isInt(c) {
			t.numeric[i] = false
		}
	}
	t.rows = append(t.rows, cells)
}

// Footer sets the totals row.
func (t *Table) Footer(cells ...any) { t.footer = cells }

// Wrap limits the column named col to width characters, wrapping longer
// cells. Unknown names are ignored.
func (t *Table) Wrap(col string, width int) { t.widths[col] = width }

func (t *Table) String() string {
	w := table.NewWriter()
	if t.mode == ASCII {
		w.SetStyle(table.StyleLight)
	}
	if t.title != "" {
		w.SetTitle(t.title)
	}

	hdr := make(table.Row, len(t.header))
	for i, h := range t.header {
		hdr[i] = h
	}
	w.AppendHeader(hdr)
	for _, r := range t.rows {
		w.AppendRow(table.Row(r))
	}
	if t.footer != nil {
		w.AppendFooter(table.Row(t.footer))
	}

	var cfgs []table.ColumnConfig
	for i, h := range t.header {
		c := table.ColumnConfig{Number: i + 1}
		if len(t.rows) > 0 && t.numeric[i] {
			c.Align = text.AlignRight
			c.AlignFooter = text.AlignRight
		}
		if n := t.widths[h]; n > 0 {
			c.WidthMax = n
		}
		cfgs = append(cfgs, c)
	}
	w.SetColumnConfigs(cfgs)

	if t.mode == Markdown {
		return w.RenderMarkdown()
	}
	return w.Render()
}

func isInt(v any) bool {
	switch v.(type) {
	case int, int32, int64, uint, uint32, uint64:
		return true
	}
	return false
}

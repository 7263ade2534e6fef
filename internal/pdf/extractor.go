package pdf

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Table is a grid of cell text detected on a single page.
type Table struct {
	Page int        `json:"page"`
	Rows [][]string `json:"rows"`
}

// rowYTolerance groups text fragments into the same visual row when
// their baselines are within this many points.
const rowYTolerance = 2.0

// cellGapThreshold is the horizontal gap, in points, that separates
// two fragments into distinct cells rather than one run of text.
const cellGapThreshold = 18.0

// minTableRows is the minimum number of consecutive multi-cell rows
// required before a region is reported as a table.
const minTableRows = 2

// ExtractText extracts the plain text of every readable page, joined
// with blank lines. Unreadable or empty pages are skipped rather than
// failing the whole document.
func ExtractText(content []byte) (text string, err error) {
	// The parser panics on some malformed documents.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("pdf: parser panic: %v", r)
		}
	}()

	if len(content) == 0 {
		return "", fmt.Errorf("pdf: empty content")
	}

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("pdf: open: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue // skip unreadable pages
		}
		pageText = strings.TrimSpace(pageText)
		if pageText == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(pageText)
	}

	return strings.TrimSpace(b.String()), nil
}

// ExtractTables detects tabular regions on every readable page. The
// heuristic groups positioned text fragments into rows by baseline,
// splits rows into cells at large horizontal gaps, and reports runs of
// consecutive multi-cell rows as tables.
func ExtractTables(content []byte) (tables []Table, err error) {
	defer func() {
		if r := recover(); r != nil {
			tables, err = nil, fmt.Errorf("pdf: parser panic: %v", r)
		}
	}()

	if len(content) == 0 {
		return nil, fmt.Errorf("pdf: empty content")
	}

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("pdf: open: %w", err)
	}

	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		texts := page.Content().Text
		if len(texts) == 0 {
			continue
		}
		rows := groupIntoRows(texts, rowYTolerance)
		for _, grid := range detectTables(rows, cellGapThreshold) {
			tables = append(tables, Table{Page: i, Rows: grid})
		}
	}
	return tables, nil
}

// groupIntoRows clusters fragments whose Y coordinates are within yTol
// into visual rows, ordered top-to-bottom with fragments left-to-right.
func groupIntoRows(texts []pdf.Text, yTol float64) [][]pdf.Text {
	sorted := make([]pdf.Text, len(texts))
	copy(sorted, texts)
	// PDF Y grows upward, so descending Y is top-to-bottom.
	sort.SliceStable(sorted, func(a, b int) bool {
		if sorted[a].Y != sorted[b].Y {
			return sorted[a].Y > sorted[b].Y
		}
		return sorted[a].X < sorted[b].X
	})

	var rows [][]pdf.Text
	for _, t := range sorted {
		if t.S == "" {
			continue
		}
		if len(rows) > 0 {
			last := rows[len(rows)-1]
			if last[0].Y-t.Y <= yTol {
				rows[len(rows)-1] = append(last, t)
				continue
			}
		}
		rows = append(rows, []pdf.Text{t})
	}

	for _, row := range rows {
		sort.SliceStable(row, func(a, b int) bool { return row[a].X < row[b].X })
	}
	return rows
}

// splitRowIntoCells merges adjacent fragments into a cell and starts a
// new cell whenever the horizontal gap exceeds gapTol.
func splitRowIntoCells(row []pdf.Text, gapTol float64) []string {
	if len(row) == 0 {
		return nil
	}

	var cells []string
	var cell strings.Builder
	cell.WriteString(row[0].S)
	prevEnd := row[0].X + row[0].W

	for _, t := range row[1:] {
		if t.X-prevEnd > gapTol {
			cells = append(cells, strings.TrimSpace(cell.String()))
			cell.Reset()
		}
		cell.WriteString(t.S)
		prevEnd = t.X + t.W
	}
	cells = append(cells, strings.TrimSpace(cell.String()))
	return cells
}

// detectTables scans rows top-to-bottom and collects runs of at least
// minTableRows consecutive rows with two or more cells each.
func detectTables(rows [][]pdf.Text, gapTol float64) [][][]string {
	var tables [][][]string
	var current [][]string

	flush := func() {
		if len(current) >= minTableRows {
			tables = append(tables, current)
		}
		current = nil
	}

	for _, row := range rows {
		cells := splitRowIntoCells(row, gapTol)
		if len(cells) >= 2 {
			current = append(current, cells)
			continue
		}
		flush()
	}
	flush()

	return tables
}

// TablesMarkdown extracts tables and renders them as markdown: a page
// header per page, a "Table N" label per table, the first row as the
// header row, and a --- separator per column. It is a total function:
// any error yields an empty string.
func TablesMarkdown(content []byte) string {
	tables, err := ExtractTables(content)
	if err != nil || len(tables) == 0 {
		return ""
	}

	var b strings.Builder
	lastPage := 0
	n := 0
	for _, t := range tables {
		if t.Page != lastPage {
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "## Page %d\n\n", t.Page)
			lastPage = t.Page
			n = 0
		}
		n++
		fmt.Fprintf(&b, "### Table %d\n\n", n)
		b.WriteString(FormatTableMarkdown(t.Rows))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatTableMarkdown renders a cell grid as a markdown table, using
// the first row as the header.
func FormatTableMarkdown(rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		b.WriteString("| ")
		b.WriteString(strings.Join(cells, " | "))
		b.WriteString(" |\n")
	}

	writeRow(rows[0])
	sep := make([]string, len(rows[0]))
	for i := range sep {
		sep[i] = "---"
	}
	writeRow(sep)
	for _, row := range rows[1:] {
		writeRow(row)
	}
	return b.String()
}

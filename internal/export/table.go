package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/width"

	"github.com/sells-group/gcis-cli/pkg/gcis"
)

// maxDescWidth caps the description column in display cells.
const maxDescWidth = 40

// DisplayWidth returns the number of terminal cells s occupies. Wide and
// fullwidth East Asian runes take two cells.
func DisplayWidth(s string) int {
	n := 0
	for _, r := range s {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			n += 2
		default:
			n++
		}
	}
	return n
}

// truncateWidth shortens s to at most max cells, marking the cut with "…".
func truncateWidth(s string, max int) string {
	if DisplayWidth(s) <= max {
		return s
	}
	var b strings.Builder
	n := 0
	for _, r := range s {
		w := DisplayWidth(string(r))
		if n+w > max-1 {
			break
		}
		b.WriteRune(r)
		n += w
	}
	b.WriteString("…")
	return b.String()
}

func pad(s string, w int) string {
	if d := w - DisplayWidth(s); d > 0 {
		return s + strings.Repeat(" ", d)
	}
	return s
}

// WriteTable writes items as a column-aligned table. text/tabwriter counts
// runes, which misaligns CJK text, so widths are measured in display cells.
func WriteTable(w io.Writer, items []gcis.BusinessItem) error {
	rows := [][]string{{"CODE", "CATEGORY", "DESCRIPTION", "DGBAS"}}
	for _, it := range items {
		codes := make([]string, len(it.Dgbas))
		for i, d := range it.Dgbas {
			codes[i] = d.Code
		}
		rows = append(rows, []string{
			it.BusinessItem,
			it.Category,
			truncateWidth(it.BusinessItemDesc, maxDescWidth),
			strings.Join(codes, ","),
		})
	}

	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			if cw := DisplayWidth(cell); cw > widths[i] {
				widths[i] = cw
			}
		}
	}

	for _, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			if i == len(row)-1 {
				cells[i] = cell
				continue
			}
			cells[i] = pad(cell, widths[i])
		}
		if _, err := fmt.Fprintln(w, strings.TrimRight(strings.Join(cells, "  "), " ")); err != nil {
			return eris.Wrap(err, "export: write table")
		}
	}
	return nil
}

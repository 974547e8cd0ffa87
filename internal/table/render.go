package table

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"

	"github.com/battlewithbytes/migration-console/internal/ui"
)

// Render draws a page for the terminal. The sorted column header carries an
// arrow and superseded values are struck through.
func Render(p Page) string {
	headers := make([]string, len(p.Headers))
	for i, h := range p.Headers {
		headers[i] = h
		if p.State.Sorted() && p.State.SortColumn == i {
			if p.State.Direction == Ascending {
				headers[i] += " ▲"
			} else {
				headers[i] += " ▼"
			}
		}
	}

	rows := make([][]string, 0, len(p.Rows))
	for _, r := range p.Rows {
		cells := make([]string, len(p.Headers))
		for i := range cells {
			cells[i] = renderCell(r.At(i))
		}
		rows = append(rows, cells)
	}

	t := ltable.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(ui.Dim).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == ltable.HeaderRow {
				return ui.Header
			}
			return ui.Cell
		})

	var sb strings.Builder
	sb.WriteString(t.String())
	sb.WriteString("\n")
	sb.WriteString(ui.Dim.Render(fmt.Sprintf("page %d of %d · %d rows · %d per page",
		p.State.Page, p.TotalPages, p.TotalRows, p.State.PerPage)))
	return sb.String()
}

func renderCell(c Cell) string {
	if parts, ok := c.Value.(Composite); ok {
		out := make([]string, 0, len(parts))
		for _, part := range parts {
			out = append(out, renderCell(part))
		}
		return strings.Join(out, " ")
	}
	if c.Class == ClassSuperseded {
		return ui.Superseded.Render(c.Text())
	}
	return c.Text()
}

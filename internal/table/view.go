package table

// Page is one rendered page of a table.
type Page struct {
	Headers    []string `json:"headers"`
	Rows       []Row    `json:"rows"`
	State      State    `json:"state"`
	TotalRows  int      `json:"total_rows"`
	TotalPages int      `json:"total_pages"`
}

// View normalizes s against t, sorts the whole row set and slices out the
// current page. The returned page carries the normalized state.
func View(t Table, s State) Page {
	s = s.Normalize(len(t.Rows))
	if s.SortColumn >= len(t.Headers) {
		s = s.ClearSort()
	}

	sorted := Sort(t.Rows, s.SortColumn, s.Direction)
	start := (s.Page - 1) * s.PerPage
	end := min(start+s.PerPage, len(sorted))
	if start > end {
		start = end
	}

	rows := make([]Row, 0, end-start)
	for _, r := range sorted[start:end] {
		rows = append(rows, padRow(r, len(t.Headers)))
	}

	return Page{
		Headers:    t.Headers,
		Rows:       rows,
		State:      s,
		TotalRows:  len(t.Rows),
		TotalPages: TotalPages(len(t.Rows), s.PerPage),
	}
}

// padRow fills short rows with blank cells so renderers never index past the end.
func padRow(r Row, width int) Row {
	if len(r) >= width {
		return r
	}
	out := make(Row, width)
	copy(out, r)
	return out
}

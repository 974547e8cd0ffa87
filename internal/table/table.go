// Package table implements the sortable, paginated data grid shared by every
// console view. Tables are plain values; sorting and paging are pure functions
// of a Table and a State.
package table

import (
	"fmt"
	"strings"
)

// ClassSuperseded marks a cell whose value has been replaced by an override.
const ClassSuperseded = "superseded"

// Cell is one table cell. When SortKey is nil the cell's primitive value is
// used for ordering.
type Cell struct {
	Value   any    `json:"value"`
	SortKey any    `json:"sort_key,omitempty"`
	Class   string `json:"class,omitempty"`
}

// Composite is a renderable made of several cells shown side by side.
type Composite []Cell

// Row holds one cell per header.
type Row []Cell

// Table is a header sequence plus rows of equal length.
type Table struct {
	Headers []string `json:"headers"`
	Rows    []Row    `json:"rows"`
}

// Text returns the display string of the cell. Nil values render blank.
func (c Cell) Text() string {
	switch v := c.Value.(type) {
	case nil:
		return ""
	case string:
		return v
	case Composite:
		parts := make([]string, 0, len(v))
		for _, p := range v {
			parts = append(parts, p.Text())
		}
		return strings.Join(parts, " ")
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Key returns the value used to order the cell.
func (c Cell) Key() any {
	if c.SortKey != nil {
		return c.SortKey
	}
	if _, ok := c.Value.(Composite); ok {
		return c.Text()
	}
	return c.Value
}

// At returns the cell in column col, or an empty cell when the row is short.
func (r Row) At(col int) Cell {
	if col < 0 || col >= len(r) {
		return Cell{}
	}
	return r[col]
}

// Validate checks that every row has exactly one cell per header.
func (t Table) Validate() error {
	for i, row := range t.Rows {
		if len(row) != len(t.Headers) {
			return fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(t.Headers))
		}
	}
	return nil
}

// Text is a convenience constructor for a plain text cell.
func Text(s string) Cell {
	return Cell{Value: s}
}

// Keyed builds a cell that renders value and sorts by key.
func Keyed(value any, key any) Cell {
	return Cell{Value: value, SortKey: key}
}

package table

import (
	"fmt"
	"slices"
	"strings"
)

// Direction is the sort direction of a column.
type Direction int

const (
	None Direction = iota
	Ascending
	Descending
)

func (d Direction) String() string {
	switch d {
	case Ascending:
		return "asc"
	case Descending:
		return "desc"
	default:
		return ""
	}
}

// MarshalText encodes the direction as "asc", "desc" or "".
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText is the inverse of MarshalText.
func (d *Direction) UnmarshalText(b []byte) error {
	v, err := ParseDirection(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// ParseDirection accepts "asc", "desc" or an empty string.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return None, nil
	case "asc", "ascending":
		return Ascending, nil
	case "desc", "descending":
		return Descending, nil
	default:
		return None, fmt.Errorf("invalid sort direction %q (valid: asc, desc)", s)
	}
}

// DefaultPerPage is the initial page size.
const DefaultPerPage = 20

// PerPageOptions is the fixed set of page sizes a table offers.
var PerPageOptions = []int{10, 20, 50, 100}

// State is the view state of one table. Methods never modify the receiver;
// they return the next state.
type State struct {
	Page       int       `json:"page"`
	PerPage    int       `json:"per_page"`
	SortColumn int       `json:"sort_column"`
	Direction  Direction `json:"direction"`
}

// NewState returns page 1, the default page size and no sort.
func NewState() State {
	return State{Page: 1, PerPage: DefaultPerPage, SortColumn: -1}
}

// Sorted reports whether a column sort is active.
func (s State) Sorted() bool {
	return s.SortColumn >= 0 && s.Direction != None
}

// SetSort handles a click on column col. Clicking the sorted column flips
// between ascending and descending; any other column starts ascending.
func (s State) SetSort(col int) State {
	if col < 0 {
		return s
	}
	if s.Sorted() && s.SortColumn == col {
		if s.Direction == Ascending {
			s.Direction = Descending
		} else {
			s.Direction = Ascending
		}
		return s
	}
	s.SortColumn = col
	s.Direction = Ascending
	return s
}

// ClearSort returns to the original row order.
func (s State) ClearSort() State {
	s.SortColumn = -1
	s.Direction = None
	return s
}

// SetPage moves to page p clamped into [1, TotalPages(rowCount)].
func (s State) SetPage(p, rowCount int) State {
	total := TotalPages(rowCount, s.perPage())
	switch {
	case p < 1:
		p = 1
	case p > total:
		p = total
	}
	s.Page = p
	return s
}

// SetPerPage changes the page size. Values outside PerPageOptions fall back to
// the default. The current page is left alone; Normalize resets it when it no
// longer exists.
func (s State) SetPerPage(n int) State {
	if !slices.Contains(PerPageOptions, n) {
		n = DefaultPerPage
	}
	s.PerPage = n
	return s
}

// NextPerPage cycles to the next page size option.
func (s State) NextPerPage() State {
	i := slices.Index(PerPageOptions, s.perPage())
	return s.SetPerPage(PerPageOptions[(i+1)%len(PerPageOptions)])
}

// Normalize applies the render-time correction: a page beyond the last page
// (after rows shrank or the page size grew) resets to page 1.
func (s State) Normalize(rowCount int) State {
	s.PerPage = s.perPage()
	if s.Page < 1 || s.Page > TotalPages(rowCount, s.PerPage) {
		s.Page = 1
	}
	if s.SortColumn < 0 || s.Direction == None {
		s.SortColumn = -1
		s.Direction = None
	}
	return s
}

func (s State) perPage() int {
	if s.PerPage <= 0 {
		return DefaultPerPage
	}
	return s.PerPage
}

// TotalPages is ceil(rowCount/perPage), never less than 1.
func TotalPages(rowCount, perPage int) int {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if rowCount <= 0 {
		return 1
	}
	return (rowCount + perPage - 1) / perPage
}

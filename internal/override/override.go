// Package override resolves administrator overrides against source-derived values.
package override

import (
	"github.com/google/uuid"

	"github.com/battlewithbytes/migration-console/internal/table"
)

// ClassSuperseded marks an original value that an override replaces.
const ClassSuperseded = table.ClassSuperseded

// Record is the override object attached to an entity by the backend.
// A record whose ID is the nil UUID is an empty placeholder, not an override.
type Record struct {
	ID        uuid.UUID `json:"override_id"`
	CPUCount  *int      `json:"cpu_count,omitempty"`
	MemoryMiB *uint64   `json:"memory,omitempty"`
	Name      string    `json:"name,omitempty"`
}

// HasOverride reports whether rec represents a genuine override.
func HasOverride(rec *Record) bool {
	return rec != nil && rec.ID != uuid.Nil
}

// Applied reports whether rec replaces at least one value. A genuine record
// whose fields are all zero changes nothing.
func Applied(rec *Record) bool {
	if !HasOverride(rec) {
		return false
	}
	return (rec.CPUCount != nil && *rec.CPUCount > 0) || (rec.MemoryMiB != nil && *rec.MemoryMiB > 0)
}

// Number is the set of field types ResolveField accepts.
type Number interface {
	~int | ~int32 | ~int64 | ~uint | ~uint32 | ~uint64 | ~float64
}

// Resolved is the outcome of resolving one field.
type Resolved[T Number] struct {
	Original  T
	Override  T
	Effective T
	Shown     bool
}

// ResolveField picks the effective value for one field. A zero override is
// treated the same as no override.
func ResolveField[T Number](original T, override *T, hasOverride bool) Resolved[T] {
	r := Resolved[T]{Original: original, Effective: original}
	if override != nil {
		r.Override = *override
	}
	if hasOverride && override != nil && *override > 0 {
		r.Shown = true
		r.Effective = *override
	}
	return r
}

// Cells returns the display cells for a resolved field: the original value,
// struck through when an override is shown, followed by the override.
// Both cells sort by the effective value.
func Cells[T Number](r Resolved[T], format func(T) string) []table.Cell {
	if !r.Shown {
		return []table.Cell{{Value: format(r.Original), SortKey: r.Effective}}
	}
	return []table.Cell{
		{Value: format(r.Original), SortKey: r.Effective, Class: ClassSuperseded},
		{Value: format(r.Override), SortKey: r.Effective},
	}
}

// Cell composes Cells into a single table cell whose value is the list of parts.
func Cell[T Number](r Resolved[T], format func(T) string) table.Cell {
	parts := Cells(r, format)
	if len(parts) == 1 {
		return parts[0]
	}
	return table.Cell{Value: table.Composite(parts), SortKey: r.Effective}
}

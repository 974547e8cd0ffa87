package table

import (
	"cmp"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"time"
)

// Compare orders two sort keys. Numbers compare numerically across all Go
// numeric kinds, strings lexically, booleans false before true and times
// chronologically. Nil sorts first. Keys of unrelated kinds order numbers,
// then strings, then booleans, then everything else.
func Compare(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}

	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb)
		}
	}

	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	ka, kb := kindClass(va.Kind()), kindClass(vb.Kind())

	switch {
	case ka == classInt && kb == classInt:
		return cmp.Compare(va.Int(), vb.Int())
	case ka == classUint && kb == classUint:
		return cmp.Compare(va.Uint(), vb.Uint())
	case isNumeric(ka) && isNumeric(kb):
		return compareMixed(va, ka, vb, kb)
	case ka == classString && kb == classString:
		return strings.Compare(va.String(), vb.String())
	case ka == classBool && kb == classBool:
		return cmp.Compare(boolRank(va.Bool()), boolRank(vb.Bool()))
	case ka != kb:
		return cmp.Compare(ka, kb)
	default:
		return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
	}
}

// Sort returns a copy of rows ordered by column col. Rows with equal keys keep
// their original relative order in both directions.
func Sort(rows []Row, col int, dir Direction) []Row {
	out := make([]Row, len(rows))
	if dir == None || col < 0 {
		copy(out, rows)
		return out
	}

	order := make([]int, len(rows))
	for i := range order {
		order[i] = i
	}
	slices.SortFunc(order, func(i, j int) int {
		c := Compare(rows[i].At(col).Key(), rows[j].At(col).Key())
		if dir == Descending {
			c = -c
		}
		if c != 0 {
			return c
		}
		return cmp.Compare(i, j)
	})
	for pos, idx := range order {
		out[pos] = rows[idx]
	}
	return out
}

type kind int

const (
	classInt kind = iota
	classUint
	classFloat
	classString
	classBool
	classOther
)

func kindClass(k reflect.Kind) kind {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return classInt
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return classUint
	case reflect.Float32, reflect.Float64:
		return classFloat
	case reflect.String:
		return classString
	case reflect.Bool:
		return classBool
	default:
		return classOther
	}
}

func isNumeric(k kind) bool {
	return k == classInt || k == classUint || k == classFloat
}

// compareMixed handles comparisons across signedness or against floats.
func compareMixed(va reflect.Value, ka kind, vb reflect.Value, kb kind) int {
	if ka == classInt && kb == classUint {
		if va.Int() < 0 {
			return -1
		}
		return cmp.Compare(uint64(va.Int()), vb.Uint())
	}
	if ka == classUint && kb == classInt {
		return -compareMixed(vb, kb, va, ka)
	}
	return cmp.Compare(asFloat(va, ka), asFloat(vb, kb))
}

func asFloat(v reflect.Value, k kind) float64 {
	switch k {
	case classInt:
		return float64(v.Int())
	case classUint:
		return float64(v.Uint())
	default:
		return v.Float()
	}
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Package column implements the typed-column data model of spec.md §3: the
// recognized element types, their canonical lift into the scalar field, and
// the Table/Column containers the proof-expression algebra evaluates over.
package column

import (
	"fmt"

	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/field"
)

// Type identifies a column's SQL element type.
type Type int

const (
	TypeBoolean Type = iota
	TypeTinyInt
	TypeSmallInt
	TypeInt
	TypeBigInt
	TypeInt128
	TypeUint8
	TypeDecimal75
	TypeVarChar
	TypeVarBinary
	TypeTimestampTZ
)

func (t Type) String() string {
	switch t {
	case TypeBoolean:
		return "Boolean"
	case TypeTinyInt:
		return "TinyInt"
	case TypeSmallInt:
		return "SmallInt"
	case TypeInt:
		return "Int"
	case TypeBigInt:
		return "BigInt"
	case TypeInt128:
		return "Int128"
	case TypeUint8:
		return "Uint8"
	case TypeDecimal75:
		return "Decimal75"
	case TypeVarChar:
		return "VarChar"
	case TypeVarBinary:
		return "VarBinary"
	case TypeTimestampTZ:
		return "TimestampTZ"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// DecimalMeta carries the (precision, scale) pair every Decimal75 column and
// arithmetic expression node must declare explicitly — widening/narrowing is
// never silent, per spec.md §4.1.
type DecimalMeta struct {
	Precision uint8
	Scale     int8
}

// MaxDecimalPrecision is the largest representable Decimal75 precision.
const MaxDecimalPrecision = 75

// TimestampMeta carries the unit/zone pair for TimestampTZ columns.
type TimestampMeta struct {
	Unit string // "second" | "millisecond" | "microsecond" | "nanosecond"
	Zone string // IANA zone name, "UTC" if unspecified
}

// Column is a finite ordered sequence of typed values plus their canonical
// scalar lift. For VarChar/VarBinary the byte side is carried alongside the
// scalar side per the design invariant in spec.md §3: proofs consume only
// Scalars, Bytes is carried for result materialization and recommitment.
type Column struct {
	Type      Type
	Decimal   DecimalMeta   // valid iff Type == TypeDecimal75
	Timestamp TimestampMeta // valid iff Type == TypeTimestampTZ
	Scalars   []field.Element
	Bytes     [][]byte // valid iff Type == TypeVarChar || Type == TypeVarBinary
}

// Len returns the column's row count.
func (c Column) Len() int { return len(c.Scalars) }

// Slice returns the half-open row range [start, end) of c. The Scalars
// slice and the outer Bytes slice are copied; each row's byte string is
// still shared with c.
func (c Column) Slice(start, end int) Column {
	out := Column{Type: c.Type, Decimal: c.Decimal, Timestamp: c.Timestamp}
	out.Scalars = append([]field.Element(nil), c.Scalars[start:end]...)
	if c.Bytes != nil {
		out.Bytes = append([][]byte(nil), c.Bytes[start:end]...)
	}
	return out
}

// Concat appends b's rows after a's rows; a and b must share Type (and, for
// Decimal75, the same DecimalMeta).
func Concat(a, b Column) (Column, error) {
	if a.Type != b.Type {
		return Column{}, fmt.Errorf("column: concat type mismatch: %s vs %s", a.Type, b.Type)
	}
	if a.Type == TypeDecimal75 && a.Decimal != b.Decimal {
		return Column{}, fmt.Errorf("column: concat decimal meta mismatch: %+v vs %+v", a.Decimal, b.Decimal)
	}
	out := Column{Type: a.Type, Decimal: a.Decimal, Timestamp: a.Timestamp}
	out.Scalars = append(append([]field.Element(nil), a.Scalars...), b.Scalars...)
	if a.Bytes != nil || b.Bytes != nil {
		out.Bytes = append(append([][]byte(nil), a.Bytes...), b.Bytes...)
	}
	return out, nil
}

// Table is an ordered mapping from column identifier to Column; all columns
// have equal length, row_count may be explicitly 0 with no columns.
type Table struct {
	Order    []string
	Columns  map[string]Column
	RowCount int
}

// NewTable builds a Table from an explicit column order, validating equal
// lengths.
func NewTable(order []string, cols map[string]Column) (Table, error) {
	rowCount := 0
	if len(order) > 0 {
		rowCount = cols[order[0]].Len()
	}
	for _, name := range order {
		c, ok := cols[name]
		if !ok {
			return Table{}, fmt.Errorf("column: table missing declared column %q", name)
		}
		if c.Len() != rowCount {
			return Table{}, fmt.Errorf("column: table column %q has length %d, want %d", name, c.Len(), rowCount)
		}
	}
	return Table{Order: order, Columns: cols, RowCount: rowCount}, nil
}

// Get returns the named column, or false if absent.
func (t Table) Get(name string) (Column, bool) {
	c, ok := t.Columns[name]
	return c, ok
}

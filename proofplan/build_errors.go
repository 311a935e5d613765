package proofplan

import (
	"fmt"

	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/accessor"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/column"
)

// Plan construction errors, per spec.md §7: these surface only from the
// external planner layer building a Plan tree, never from Prove/Verify —
// the core assumes every Plan it is handed is already well-typed. A plan
// node producing a column of the wrong length at evaluation time is a
// programmer error (unchecked assertion, panic), not one of these.

// PrecisionOverflow reports a decimal cast or arithmetic result that would
// need more than column.MaxDecimalPrecision digits, or a narrowing cast
// (scale decrease) that CastExpr never performs silently.
type PrecisionOverflow struct {
	Context  string
	From, To column.DecimalMeta
}

func (e PrecisionOverflow) Error() string {
	return fmt.Sprintf("proofplan: %s: decimal precision overflow: %+v -> %+v", e.Context, e.From, e.To)
}

// InvalidIdentifier wraps an accessor.NewIdentifier failure with the
// builder context it occurred in.
type InvalidIdentifier struct {
	Context string
	Err     error
}

func (e InvalidIdentifier) Error() string {
	return fmt.Sprintf("proofplan: %s: invalid identifier: %v", e.Context, e.Err)
}

func (e InvalidIdentifier) Unwrap() error { return e.Err }

// ColumnNotFound reports a reference to a column absent from the schema it
// was resolved against.
type ColumnNotFound struct {
	Context string
	Column  Identifier
}

func (e ColumnNotFound) Error() string {
	return fmt.Sprintf("proofplan: %s: column %q not found", e.Context, e.Column)
}

// TypeMismatch reports an operand, cast, or column reference whose
// declared type does not match what the builder expected.
type TypeMismatch struct {
	Context  string
	Got, Want column.Type
}

func (e TypeMismatch) Error() string {
	return fmt.Sprintf("proofplan: %s: type mismatch: got %s, want %s", e.Context, e.Got, e.Want)
}

// ResolveIdentifier validates name for use in context, wrapping any
// failure as InvalidIdentifier.
func ResolveIdentifier(context, name string) (Identifier, error) {
	id, err := accessor.NewIdentifier(name)
	if err != nil {
		return Identifier{}, InvalidIdentifier{Context: context, Err: err}
	}
	return id, nil
}

// LookupSchemaColumn finds name in schema, or returns ColumnNotFound.
func LookupSchemaColumn(context string, schema []accessor.ColumnSchema, name Identifier) (accessor.ColumnSchema, error) {
	for _, s := range schema {
		if s.ID.Equal(name) {
			return s, nil
		}
	}
	return accessor.ColumnSchema{}, ColumnNotFound{Context: context, Column: name}
}

// CheckType reports TypeMismatch if got != want.
func CheckType(context string, got, want column.Type) error {
	if got != want {
		return TypeMismatch{Context: context, Got: got, Want: want}
	}
	return nil
}

// decimalScaleFactor returns 10^(to.Scale-from.Scale) as an exact integer,
// used to build a CastExpr's ScaleFactor. It is called only after
// checkDecimalWiden has confirmed the cast is a legal widen.
func decimalScaleFactor(from, to column.DecimalMeta) uint64 {
	factor := uint64(1)
	for i := int8(0); i < to.Scale-from.Scale; i++ {
		factor *= 10
	}
	return factor
}

// checkDecimalWiden validates that casting from -> to is a widen, never a
// silent narrow, per spec.md §4.1 ("widening/narrowing is not performed
// silently"). A narrowing scale, or a destination precision too small to
// hold the widened value's maximum digit count, is a build-time
// PrecisionOverflow rather than a runtime truncation.
func checkDecimalWiden(context string, from, to column.DecimalMeta) error {
	if to.Scale < from.Scale {
		return PrecisionOverflow{Context: context, From: from, To: to}
	}
	widenedDigits := int(from.Precision) + int(to.Scale-from.Scale)
	if int(to.Precision) < widenedDigits || to.Precision > column.MaxDecimalPrecision {
		return PrecisionOverflow{Context: context, From: from, To: to}
	}
	return nil
}

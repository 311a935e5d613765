package proofexpr

import (
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/column"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/field"
)

// CastExpr widens an operand to a wider numeric or higher-scale Decimal75
// type. Per the Open Question 1 decision (DESIGN.md "Decimal promotion"):
// decimal-decimal comparisons upscale the lower-scale side to
// max(scale_l, scale_r), and integer-decimal comparisons upscale the
// integer side to the decimal's scale; both are resolved by the plan
// builder inserting a CastExpr before ever constructing the comparison
// node. Widening by 10^k is an exact field multiplication — never a
// truncating operation — so Cast never narrows: the plan builder rejects
// narrowing casts at build time with PrecisionOverflow rather than ever
// asking this node to silently lose precision (spec.md §4.1).
type CastExpr struct {
	Inner Expr
	To    column.Type
	// ScaleFactor is 10^k for the decimal places this cast adds (1 for a
	// same-scale numeric widen, e.g. TinyInt -> Int), fixed by the plan
	// builder from the source and destination (precision, scale).
	ScaleFactor field.Element
}

func (CastExpr) exprKind() {}

func (e CastExpr) ResultType() column.Type { return e.To }

func (e CastExpr) FirstRoundEvaluate(b *FirstRoundBuilder, table column.Table) column.Column {
	return e.scale(e.Inner.FirstRoundEvaluate(b, table))
}

func (e CastExpr) FinalRoundEvaluate(b *FinalRoundBuilder, table column.Table) column.Column {
	return e.scale(e.Inner.FinalRoundEvaluate(b, table))
}

func (e CastExpr) scale(inner column.Column) column.Column {
	out := make([]field.Element, inner.Len())
	for i := range out {
		out[i] = field.Mul(inner.Scalars[i], e.ScaleFactor)
	}
	return column.Column{Type: e.To, Scalars: out}
}

// VerifierEvaluate is exact by linearity: (k*f)~(r) = k*f~(r), so Cast
// needs no commitment of its own, unlike Mul/And/Or.
func (e CastExpr) VerifierEvaluate(b *VerificationBuilder, accessorEvals OneEvalMap) field.Element {
	return field.Mul(e.Inner.VerifierEvaluate(b, accessorEvals), e.ScaleFactor)
}

var _ Expr = CastExpr{}

package proofexpr

import (
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/column"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/field"
)

// LiteralExpr is a compile-time-constant value broadcast to every row of
// the current input, per spec.md §4.5 ("Literals ... compile to constant
// MLEs; their evaluations are computed by the verifier from the claim
// alone — no commitments consumed").
type LiteralExpr struct {
	Value field.Element
	Type  column.Type
}

func (LiteralExpr) exprKind()                 {}
func (e LiteralExpr) ResultType() column.Type { return e.Type }

func (e LiteralExpr) FirstRoundEvaluate(b *FirstRoundBuilder, table column.Table) column.Column {
	return e.broadcast(table.RowCount)
}

func (e LiteralExpr) FinalRoundEvaluate(b *FinalRoundBuilder, table column.Table) column.Column {
	return e.broadcast(table.RowCount)
}

func (e LiteralExpr) broadcast(n int) column.Column {
	scalars := make([]field.Element, n)
	for i := range scalars {
		scalars[i] = e.Value
	}
	return column.Column{Type: e.Type, Scalars: scalars}
}

// VerifierEvaluate returns value * eval(1_n, r) = value * (the verifier's
// known row-count evaluation), matching the all-ones MLE truncated to n
// rows referenced throughout spec.md §4.5 ("1_n the all-ones MLE truncated
// to n"). The driver supplies that evaluation pre-keyed under the
// reserved RowCountEvalKey entry of accessorEvals.
func (e LiteralExpr) VerifierEvaluate(b *VerificationBuilder, accessorEvals OneEvalMap) field.Element {
	rowCountEval := accessorEvals[RowCountEvalKey]
	return field.Mul(e.Value, rowCountEval)
}

// RowCountEvalKey is the reserved OneEvalMap key under which the driver
// stores the current scope's row-count MLE evaluation (1_n at the
// sumcheck point), consumed by Literal/Placeholder verification.
const RowCountEvalKey = "\x00row-count"

var _ Expr = LiteralExpr{}

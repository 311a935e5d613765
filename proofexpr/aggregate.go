package proofexpr

import (
	"fmt"

	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/column"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/field"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/mle"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/sumcheck"
)

// AggregateOp is the set of aggregates spec.md §5 gives an identity for:
// SUM and the implicit COUNT(*). MIN/MAX order-statistics arguments are a
// Non-goal (spec.md only specifies group-by-with-sum), so AggregateExpr
// panics on any other op.
type AggregateOp int

const (
	AggregateSum AggregateOp = iota
	AggregateCount
)

func (op AggregateOp) String() string {
	switch op {
	case AggregateSum:
		return "SUM"
	case AggregateCount:
		return "COUNT"
	default:
		return fmt.Sprintf("AggregateOp(%d)", int(op))
	}
}

// AggregateExpr reduces its inner column to a single value over the whole
// current input, per the plan-level (non-grouped) form of spec.md §3's
// `Aggregate(op, inner)`. Grouped sums go through proofplan's GroupBy
// identity instead (spec.md §5's χ-folded sum-per-key argument); this node
// is the ungrouped `SELECT SUM(x) FROM t` case.
//
// COUNT(*) is treated as SUM over an all-ones column, so both ops share one
// mechanism: the claimed total is committed as a one-row intermediate MLE
// [total], constrained by a single ZeroSum subpolynomial
// Σ_i summand[i] - total = 0, where summand is inner for SUM and the
// all-ones column for COUNT.
type AggregateExpr struct {
	Op    AggregateOp
	Inner Expr
}

func (AggregateExpr) exprKind() {}

func (e AggregateExpr) ResultType() column.Type {
	if e.Op == AggregateCount {
		return column.TypeBigInt
	}
	return e.Inner.ResultType()
}

func (e AggregateExpr) FirstRoundEvaluate(b *FirstRoundBuilder, table column.Table) column.Column {
	inner := e.Inner.FirstRoundEvaluate(b, table)
	total := sumColumn(e.summand(inner))
	return column.Column{Type: e.ResultType(), Scalars: []field.Element{total}}
}

func (e AggregateExpr) FinalRoundEvaluate(b *FinalRoundBuilder, table column.Table) column.Column {
	inner := e.Inner.FinalRoundEvaluate(b, table)
	summand := e.summand(inner)
	total := sumColumn(summand)

	totalMLE := b.ProduceIntermediateMLE([]field.Element{total})
	summandMLE := mle.New(summand)
	b.ProduceSubpolynomial(sumcheck.Subpolynomial{
		Label:  "aggregate-" + e.Op.String(),
		Flavor: sumcheck.ZeroSum,
		Terms: []mle.Product{
			{Coefficient: field.One(), Factors: []mle.MLE{summandMLE}},
			{Coefficient: field.Neg(field.One()), Factors: []mle.MLE{totalMLE}},
		},
		Degree: 1,
	})
	return column.Column{Type: e.ResultType(), Scalars: []field.Element{total}}
}

// summand returns the column actually summed: inner itself for SUM, an
// all-ones column of the same length for COUNT.
func (e AggregateExpr) summand(inner column.Column) []field.Element {
	switch e.Op {
	case AggregateSum:
		return inner.Scalars
	case AggregateCount:
		ones := make([]field.Element, inner.Len())
		for i := range ones {
			ones[i] = field.One()
		}
		return ones
	default:
		panic(fmt.Sprintf("proofexpr: AggregateExpr: unsupported op %s", e.Op))
	}
}

func sumColumn(vs []field.Element) field.Element {
	var acc field.Element
	for _, v := range vs {
		acc = field.Add(acc, v)
	}
	return acc
}

// VerifierEvaluate returns the claimed total: the single committed
// intermediate MLE's evaluation, the same one FinalRoundEvaluate produced.
// Inner is still walked first (to consume whatever challenges/evaluations
// its own subtree declared), but its returned evaluation is the summand's
// claim only for SUM: for COUNT the summand is the all-ones column of the
// scope's row count, whose evaluation is the scope's RowCountEvalKey entry
// (1_n at the sumcheck point), needing no commitment of its own.
func (e AggregateExpr) VerifierEvaluate(b *VerificationBuilder, accessorEvals OneEvalMap) field.Element {
	innerEval := e.Inner.VerifierEvaluate(b, accessorEvals)
	summandEval := innerEval
	if e.Op == AggregateCount {
		summandEval = accessorEvals[RowCountEvalKey]
	}

	totalEval := b.NextMLEEvaluation()
	b.ProduceSubpolynomialClaim(sumcheck.ZeroSum, []ScalarTerm{
		{Coefficient: field.One(), Factors: []field.Element{summandEval}},
		{Coefficient: field.Neg(field.One()), Factors: []field.Element{totalEval}},
	})
	return totalEval
}

var _ Expr = AggregateExpr{}

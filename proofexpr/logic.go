package proofexpr

import (
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/column"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/field"
)

// AndExpr and OrExpr are boolean combinators over {0,1}-valued operands.
// Neither is linear (both reduce to a pointwise product, like MulExpr), so
// both commit their output as an intermediate MLE constrained by the same
// out = l*r Identity gadget arithmetic's MulExpr uses. NotExpr is linear
// (1 - l) and needs no commitment at all.
type AndExpr struct {
	Left, Right Expr
}

type OrExpr struct {
	Left, Right Expr
}

type NotExpr struct {
	Inner Expr
}

func (AndExpr) exprKind() {}
func (OrExpr) exprKind()  {}
func (NotExpr) exprKind() {}

func (AndExpr) ResultType() column.Type { return column.TypeBoolean }
func (OrExpr) ResultType() column.Type  { return column.TypeBoolean }
func (NotExpr) ResultType() column.Type { return column.TypeBoolean }

func (e AndExpr) FirstRoundEvaluate(b *FirstRoundBuilder, table column.Table) column.Column {
	l := e.Left.FirstRoundEvaluate(b, table)
	r := e.Right.FirstRoundEvaluate(b, table)
	return elementwise(column.TypeBoolean, l, r, field.Mul)
}

func (e AndExpr) FinalRoundEvaluate(b *FinalRoundBuilder, table column.Table) column.Column {
	l := e.Left.FinalRoundEvaluate(b, table)
	r := e.Right.FinalRoundEvaluate(b, table)
	out := elementwise(column.TypeBoolean, l, r, field.Mul)
	registerProductIdentity(b, "and", l.Scalars, r.Scalars, out.Scalars)
	return out
}

func (e AndExpr) VerifierEvaluate(b *VerificationBuilder, accessorEvals OneEvalMap) field.Element {
	lEval := e.Left.VerifierEvaluate(b, accessorEvals)
	rEval := e.Right.VerifierEvaluate(b, accessorEvals)
	outEval := b.NextMLEEvaluation()
	registerProductClaim(b, outEval, lEval, rEval)
	return outEval
}

// e.Left OR e.Right = l + r - l*r: the l*r term alone is the nonlinear part
// that needs its own commitment and Identity constraint; the linear l+r
// part folds directly into the verifier's evaluation.
func (e OrExpr) FirstRoundEvaluate(b *FirstRoundBuilder, table column.Table) column.Column {
	l := e.Left.FirstRoundEvaluate(b, table)
	r := e.Right.FirstRoundEvaluate(b, table)
	return orValues(l, r)
}

func (e OrExpr) FinalRoundEvaluate(b *FinalRoundBuilder, table column.Table) column.Column {
	l := e.Left.FinalRoundEvaluate(b, table)
	r := e.Right.FinalRoundEvaluate(b, table)
	prod := elementwise(column.TypeBoolean, l, r, field.Mul)
	registerProductIdentity(b, "or", l.Scalars, r.Scalars, prod.Scalars)
	return orValues(l, r)
}

func orValues(l, r column.Column) column.Column {
	out := make([]field.Element, l.Len())
	for i := range out {
		out[i] = field.Sub(field.Add(l.Scalars[i], r.Scalars[i]), field.Mul(l.Scalars[i], r.Scalars[i]))
	}
	return column.Column{Type: column.TypeBoolean, Scalars: out}
}

func (e OrExpr) VerifierEvaluate(b *VerificationBuilder, accessorEvals OneEvalMap) field.Element {
	lEval := e.Left.VerifierEvaluate(b, accessorEvals)
	rEval := e.Right.VerifierEvaluate(b, accessorEvals)
	prodEval := b.NextMLEEvaluation()
	registerProductClaim(b, prodEval, lEval, rEval)
	return field.Sub(field.Add(lEval, rEval), prodEval)
}

func (e NotExpr) FirstRoundEvaluate(b *FirstRoundBuilder, table column.Table) column.Column {
	return notValues(e.Inner.FirstRoundEvaluate(b, table))
}

func (e NotExpr) FinalRoundEvaluate(b *FinalRoundBuilder, table column.Table) column.Column {
	return notValues(e.Inner.FinalRoundEvaluate(b, table))
}

func notValues(inner column.Column) column.Column {
	out := make([]field.Element, inner.Len())
	for i := range out {
		out[i] = field.Sub(field.One(), inner.Scalars[i])
	}
	return column.Column{Type: column.TypeBoolean, Scalars: out}
}

func (e NotExpr) VerifierEvaluate(b *VerificationBuilder, accessorEvals OneEvalMap) field.Element {
	return field.Sub(field.One(), e.Inner.VerifierEvaluate(b, accessorEvals))
}

var _ Expr = AndExpr{}
var _ Expr = OrExpr{}
var _ Expr = NotExpr{}

package proofexpr

import (
	"fmt"

	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/column"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/field"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/mle"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/sumcheck"
)

// AddExpr, SubExpr and MulExpr are the arithmetic nodes of spec.md §4.1.
// Both operands must already share a common (precision, scale) — the plan
// builder inserts a Cast to reconcile mismatched Decimal75 operands before
// ever constructing one of these, so these nodes never widen or coerce
// themselves.
type AddExpr struct {
	Left, Right Expr
	Type        column.Type
}

type SubExpr struct {
	Left, Right Expr
	Type        column.Type
}

// MulExpr is the one arithmetic node that is not linear in its operands'
// MLEs: (l*r)~(r) != l~(r)*r~(r), so its output column must be committed as
// its own intermediate MLE and constrained by an Identity subpolynomial
// enforcing out = l*r pointwise, per spec.md §4.3's degree-2 product terms.
type MulExpr struct {
	Left, Right Expr
	Type        column.Type
}

func (AddExpr) exprKind() {}
func (SubExpr) exprKind() {}
func (MulExpr) exprKind() {}

func (e AddExpr) ResultType() column.Type { return e.Type }
func (e SubExpr) ResultType() column.Type { return e.Type }
func (e MulExpr) ResultType() column.Type { return e.Type }

func (e AddExpr) FirstRoundEvaluate(b *FirstRoundBuilder, table column.Table) column.Column {
	l := e.Left.FirstRoundEvaluate(b, table)
	r := e.Right.FirstRoundEvaluate(b, table)
	return elementwise(e.Type, l, r, field.Add)
}

func (e AddExpr) FinalRoundEvaluate(b *FinalRoundBuilder, table column.Table) column.Column {
	l := e.Left.FinalRoundEvaluate(b, table)
	r := e.Right.FinalRoundEvaluate(b, table)
	return elementwise(e.Type, l, r, field.Add)
}

func (e AddExpr) VerifierEvaluate(b *VerificationBuilder, accessorEvals OneEvalMap) field.Element {
	return field.Add(e.Left.VerifierEvaluate(b, accessorEvals), e.Right.VerifierEvaluate(b, accessorEvals))
}

func (e SubExpr) FirstRoundEvaluate(b *FirstRoundBuilder, table column.Table) column.Column {
	l := e.Left.FirstRoundEvaluate(b, table)
	r := e.Right.FirstRoundEvaluate(b, table)
	return elementwise(e.Type, l, r, field.Sub)
}

func (e SubExpr) FinalRoundEvaluate(b *FinalRoundBuilder, table column.Table) column.Column {
	l := e.Left.FinalRoundEvaluate(b, table)
	r := e.Right.FinalRoundEvaluate(b, table)
	return elementwise(e.Type, l, r, field.Sub)
}

func (e SubExpr) VerifierEvaluate(b *VerificationBuilder, accessorEvals OneEvalMap) field.Element {
	return field.Sub(e.Left.VerifierEvaluate(b, accessorEvals), e.Right.VerifierEvaluate(b, accessorEvals))
}

// FirstRoundEvaluate computes l*r directly; the product's commitment and
// constraint are deferred to FinalRoundEvaluate, since only the final round
// builder can register intermediate MLEs and subpolynomials.
func (e MulExpr) FirstRoundEvaluate(b *FirstRoundBuilder, table column.Table) column.Column {
	l := e.Left.FirstRoundEvaluate(b, table)
	r := e.Right.FirstRoundEvaluate(b, table)
	return elementwise(e.Type, l, r, field.Mul)
}

func (e MulExpr) FinalRoundEvaluate(b *FinalRoundBuilder, table column.Table) column.Column {
	l := e.Left.FinalRoundEvaluate(b, table)
	r := e.Right.FinalRoundEvaluate(b, table)
	out := elementwise(e.Type, l, r, field.Mul)
	registerProductIdentity(b, "mul", l.Scalars, r.Scalars, out.Scalars)
	return out
}

func (e MulExpr) VerifierEvaluate(b *VerificationBuilder, accessorEvals OneEvalMap) field.Element {
	lEval := e.Left.VerifierEvaluate(b, accessorEvals)
	rEval := e.Right.VerifierEvaluate(b, accessorEvals)
	outEval := b.NextMLEEvaluation()
	registerProductClaim(b, outEval, lEval, rEval)
	return outEval
}

var _ Expr = AddExpr{}
var _ Expr = SubExpr{}
var _ Expr = MulExpr{}

// elementwise applies op to every row of l and r, panicking if their lengths
// disagree — a host-programmer error per spec.md §4.8, never a runtime proof
// failure.
func elementwise(t column.Type, l, r column.Column, op func(field.Element, field.Element) field.Element) column.Column {
	if l.Len() != r.Len() {
		panic(fmt.Sprintf("proofexpr: elementwise: length mismatch %d vs %d", l.Len(), r.Len()))
	}
	out := make([]field.Element, l.Len())
	for i := range out {
		out[i] = op(l.Scalars[i], r.Scalars[i])
	}
	return column.Column{Type: t, Scalars: out}
}

// registerProductIdentity commits out as an intermediate MLE and adds the
// Identity subpolynomial out - l*r = 0, the standard degree-2 multiplication
// gadget every nonlinear node in this package (Mul, And, Or) reduces to.
func registerProductIdentity(b *FinalRoundBuilder, label string, l, r, out []field.Element) mle.MLE {
	outMLE := b.ProduceIntermediateMLE(out)
	lMLE := mle.New(l)
	rMLE := mle.New(r)
	b.ProduceSubpolynomial(sumcheck.Subpolynomial{
		Label:  label,
		Flavor: sumcheck.Identity,
		Terms: []mle.Product{
			{Coefficient: field.Neg(field.One()), Factors: []mle.MLE{outMLE}},
			{Coefficient: field.One(), Factors: []mle.MLE{lMLE, rMLE}},
		},
		Degree: 2,
	})
	return outMLE
}

// registerProductClaim is registerProductIdentity's verifier-side mirror:
// the same out - l*r = 0 Identity, with each MLE factor replaced by its
// claimed scalar evaluation at the sumcheck point.
func registerProductClaim(b *VerificationBuilder, outEval, lEval, rEval field.Element) {
	b.ProduceSubpolynomialClaim(sumcheck.Identity, []ScalarTerm{
		{Coefficient: field.Neg(field.One()), Factors: []field.Element{outEval}},
		{Coefficient: field.One(), Factors: []field.Element{lEval, rEval}},
	})
}

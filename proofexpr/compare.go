package proofexpr

import (
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/column"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/field"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/gadgets"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/mle"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/sumcheck"
)

// EqualsExpr is the standard is-zero equality gadget applied to diff = l -
// r: witness inv (the field inverse of diff, or zero when diff is itself
// zero) and boolean output out, constrained by
//
//	diff*inv + out = 1    (forces out=1 when diff=0)
//	diff*out = 0          (forces out=0 when diff!=0)
//
// which together pin out to exactly {0,1} with no separate booleanity check
// needed, per spec.md §4.2's equality predicate.
type EqualsExpr struct {
	Left, Right Expr
}

// InequalityExpr is Left < Right (StrictLess) or Left <= Right, decided by
// range-decomposing a signed diff into sign+magnitude bits via the
// gadgets.BuildBinaryRange gadget: for StrictLess diff = l - r, negative
// (sign bit 1) iff l < r, so out is the sign bit; for <= diff = r - l,
// negative iff l > r, so out is the sign bit's complement, per spec.md
// §4.6.2.
type InequalityExpr struct {
	Left, Right Expr
	StrictLess  bool
	// BitBound is the magnitude-bit width of the range decomposition; it
	// must exceed the maximum possible |l[i] - r[i]| for the operand types,
	// set by the plan builder from the operands' declared types.
	BitBound int
}

func (EqualsExpr) exprKind()     {}
func (InequalityExpr) exprKind() {}

func (EqualsExpr) ResultType() column.Type     { return column.TypeBoolean }
func (InequalityExpr) ResultType() column.Type { return column.TypeBoolean }

func (e EqualsExpr) FirstRoundEvaluate(b *FirstRoundBuilder, table column.Table) column.Column {
	l := e.Left.FirstRoundEvaluate(b, table)
	r := e.Right.FirstRoundEvaluate(b, table)
	out, _, _ := equalsWitness(l.Scalars, r.Scalars)
	return column.Column{Type: column.TypeBoolean, Scalars: out}
}

func (e EqualsExpr) FinalRoundEvaluate(b *FinalRoundBuilder, table column.Table) column.Column {
	l := e.Left.FinalRoundEvaluate(b, table)
	r := e.Right.FinalRoundEvaluate(b, table)
	out, diff, inv := equalsWitness(l.Scalars, r.Scalars)

	outMLE := b.ProduceIntermediateMLE(out)
	invMLE := b.ProduceIntermediateMLE(inv)
	diffMLE := mle.New(diff)

	b.ProduceSubpolynomial(sumcheck.Subpolynomial{
		Label:  "equals-consistency",
		Flavor: sumcheck.Identity,
		Terms: []mle.Product{
			{Coefficient: field.One(), Factors: []mle.MLE{diffMLE, invMLE}},
			{Coefficient: field.One(), Factors: []mle.MLE{outMLE}},
			{Coefficient: field.Neg(field.One()), Factors: []mle.MLE{}}, // -1 constant, see note below
		},
		Degree: 2,
	})
	b.ProduceSubpolynomial(sumcheck.Subpolynomial{
		Label:  "equals-exclusive",
		Flavor: sumcheck.Identity,
		Terms: []mle.Product{
			{Coefficient: field.One(), Factors: []mle.MLE{diffMLE, outMLE}},
		},
		Degree: 2,
	})
	return column.Column{Type: column.TypeBoolean, Scalars: out}
}

func (e EqualsExpr) VerifierEvaluate(b *VerificationBuilder, accessorEvals OneEvalMap) field.Element {
	lEval := e.Left.VerifierEvaluate(b, accessorEvals)
	rEval := e.Right.VerifierEvaluate(b, accessorEvals)
	diffEval := field.Sub(lEval, rEval)
	outEval := b.NextMLEEvaluation()
	invEval := b.NextMLEEvaluation()

	b.ProduceSubpolynomialClaim(sumcheck.Identity, []ScalarTerm{
		{Coefficient: field.One(), Factors: []field.Element{diffEval, invEval}},
		{Coefficient: field.One(), Factors: []field.Element{outEval}},
		{Coefficient: field.Neg(field.One()), Factors: nil},
	})
	b.ProduceSubpolynomialClaim(sumcheck.Identity, []ScalarTerm{
		{Coefficient: field.One(), Factors: []field.Element{diffEval, outEval}},
	})
	return outEval
}

var _ Expr = EqualsExpr{}

// equalsWitness computes out[i] = 1 iff l[i] == r[i], plus the diff and
// inverse witness columns the Identity constraints above reference.
func equalsWitness(l, r []field.Element) (out, diff, inv []field.Element) {
	n := len(l)
	out = make([]field.Element, n)
	diff = make([]field.Element, n)
	inv = make([]field.Element, n)
	for i := 0; i < n; i++ {
		diff[i] = field.Sub(l[i], r[i])
		if diff[i].IsZero() {
			out[i] = field.One()
		} else {
			inv[i] = field.Inverse(diff[i])
		}
	}
	return out, diff, inv
}

func (e InequalityExpr) FirstRoundEvaluate(b *FirstRoundBuilder, table column.Table) column.Column {
	l := e.Left.FirstRoundEvaluate(b, table)
	r := e.Right.FirstRoundEvaluate(b, table)
	out, _ := inequalityWitness(l.Scalars, r.Scalars, e.StrictLess)
	return column.Column{Type: column.TypeBoolean, Scalars: out}
}

func (e InequalityExpr) FinalRoundEvaluate(b *FinalRoundBuilder, table column.Table) column.Column {
	l := e.Left.FinalRoundEvaluate(b, table)
	r := e.Right.FinalRoundEvaluate(b, table)
	out, diff := inequalityWitness(l.Scalars, r.Scalars, e.StrictLess)

	aux := gadgets.BuildBinaryRange(b.Arena(), diff, e.BitBound)
	// Commit every bit column under this builder's own handle (BuildBinaryRange
	// only allocates them in the arena) so the verifier has a claimed
	// evaluation to check the boolean and reconstruction identities against.
	for _, bits := range aux.MagnitudeBits {
		b.ProduceIntermediateMLE(bits)
	}
	b.ProduceIntermediateMLE(aux.SignBit)
	for _, sub := range gadgets.BooleanSubpolynomials("inequality-bit", aux) {
		b.ProduceSubpolynomial(sub)
	}
	diffMLE := b.ProduceIntermediateMLE(diff)
	b.ProduceSubpolynomial(gadgets.ReconstructionSubpolynomial("inequality-reconstruct", diffMLE, aux))

	// out is the sign bit itself (StrictLess) or its complement (<=); either
	// way it is already committed as part of aux, so commit it once more
	// under this node's own handle for the verifier-side evaluation claim.
	outMLE := b.ProduceIntermediateMLE(out)
	signMLE := mle.New(aux.SignBit)
	if e.StrictLess {
		b.ProduceSubpolynomial(sumcheck.Subpolynomial{
			Label:  "inequality-out",
			Flavor: sumcheck.Identity,
			Terms: []mle.Product{
				{Coefficient: field.One(), Factors: []mle.MLE{outMLE}},
				{Coefficient: field.Neg(field.One()), Factors: []mle.MLE{signMLE}},
			},
			Degree: 1,
		})
	} else {
		b.ProduceSubpolynomial(sumcheck.Subpolynomial{
			Label:  "inequality-out",
			Flavor: sumcheck.Identity,
			Terms: []mle.Product{
				{Coefficient: field.One(), Factors: []mle.MLE{outMLE}},
				{Coefficient: field.One(), Factors: []mle.MLE{signMLE}},
				{Coefficient: field.Neg(field.One()), Factors: []mle.MLE{}},
			},
			Degree: 1,
		})
	}
	return column.Column{Type: column.TypeBoolean, Scalars: out}
}

func (e InequalityExpr) VerifierEvaluate(b *VerificationBuilder, accessorEvals OneEvalMap) field.Element {
	_ = e.Left.VerifierEvaluate(b, accessorEvals)
	_ = e.Right.VerifierEvaluate(b, accessorEvals)

	bitEvals := make([]field.Element, e.BitBound)
	for k := range bitEvals {
		bitEvals[k] = b.NextMLEEvaluation()
	}
	signEval := b.NextMLEEvaluation()
	diffEval := b.NextMLEEvaluation()
	for _, claim := range RangeClaims(diffEval, bitEvals, signEval) {
		b.ProduceSubpolynomialClaim(claim.Flavor, claim.Terms)
	}

	outEval := b.NextMLEEvaluation()
	if e.StrictLess {
		b.ProduceSubpolynomialClaim(sumcheck.Identity, []ScalarTerm{
			{Coefficient: field.One(), Factors: []field.Element{outEval}},
			{Coefficient: field.Neg(field.One()), Factors: []field.Element{signEval}},
		})
	} else {
		b.ProduceSubpolynomialClaim(sumcheck.Identity, []ScalarTerm{
			{Coefficient: field.One(), Factors: []field.Element{outEval}},
			{Coefficient: field.One(), Factors: []field.Element{signEval}},
			{Coefficient: field.Neg(field.One()), Factors: nil},
		})
	}
	return outEval
}

var _ Expr = InequalityExpr{}

// inequalityWitness returns out[i] = 1 iff l[i] < r[i] (strictLess) or
// l[i] <= r[i], and the signed diff whose sign bit is out[i] (strictLess:
// diff[i] = l[i] - r[i]) or its complement (diff[i] = r[i] - l[i]).
func inequalityWitness(l, r []field.Element, strictLess bool) (out, diff []field.Element) {
	n := len(l)
	out = make([]field.Element, n)
	diff = make([]field.Element, n)
	for i := 0; i < n; i++ {
		if strictLess {
			diff[i] = field.Sub(l[i], r[i])
		} else {
			diff[i] = field.Sub(r[i], l[i])
		}
		lt := field.SignedCmp(l[i], r[i]) < 0
		if strictLess {
			if lt {
				out[i] = field.One()
			}
		} else {
			if lt || l[i].Equal(r[i]) {
				out[i] = field.One()
			}
		}
	}
	return out, diff
}

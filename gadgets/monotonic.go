// Package gadgets implements the reusable subgadgets of spec.md §4.6:
// monotonicity, binary range checks, byte-distribution classification, and
// the Bulletproofs-style inner-product evaluation proof, each grounded on
// the halving-fold and sumcheck identity shapes used throughout the rest of
// this module.
package gadgets

import (
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/field"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/internal/arena"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/mle"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/sumcheck"
)

// MonotonicProof bundles the auxiliary difference column and the
// sumcheck subpolynomials proving a committed column is strictly
// increasing, per spec.md §4.6.1: commit d[i] = c[i+1]-c[i]-1, then prove
// d >= 0 via a binary-range decomposition.
type MonotonicProof struct {
	Diff           []field.Element
	Range          BinaryRangeAux
	Subpolynomials []sumcheck.Subpolynomial
}

// BuildMonotonic computes the auxiliary difference column of c and its
// binary-range decomposition, returning every identity the caller must fold
// into the plan node's subpolynomial list. bound must be large enough that
// no legal difference between two column values overflows it; callers size
// it from the column's declared type.
func BuildMonotonic(alloc *arena.Arena, label string, c []field.Element, bound int) MonotonicProof {
	diff := monotonicDiff(alloc, c)
	rng := BuildBinaryRange(alloc, diff, bound)

	subs := BooleanSubpolynomials(label+"-bit", rng)
	subs = append(subs, ReconstructionSubpolynomial(label+"-reconstruct", mle.New(diff), rng))
	// The range decomposition alone only proves |diff| <= 2^bound-1; without
	// forcing the sign bit to zero a negative diff would still pass, so
	// strictly-increasing would not actually be enforced.
	subs = append(subs, sumcheck.Subpolynomial{
		Label:  label + "-nonneg",
		Flavor: sumcheck.Identity,
		Terms: []mle.Product{
			{Coefficient: field.One(), Factors: []mle.MLE{mle.New(rng.SignBit)}},
		},
		Degree: 1,
	})

	return MonotonicProof{Diff: diff, Range: rng, Subpolynomials: subs}
}

// monotonicDiff computes d[i] = c[i+1] - c[i] - 1 for a length-n column,
// yielding a length-(n-1) auxiliary column that is non-negative iff c is
// strictly increasing.
func monotonicDiff(alloc *arena.Arena, c []field.Element) []field.Element {
	if len(c) <= 1 {
		return arena.Put(alloc, []field.Element{})
	}
	diff := make([]field.Element, len(c)-1)
	for i := range diff {
		diff[i] = field.Sub(field.Sub(c[i+1], c[i]), field.One())
	}
	return arena.Put(alloc, diff)
}

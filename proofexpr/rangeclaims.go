package proofexpr

import (
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/field"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/sumcheck"
)

// BooleanClaim returns the Identity claim mirroring gadgets.booleanIdentity:
// bitEval*(bitEval-1) = 0.
func BooleanClaim(bitEval field.Element) SubpolynomialClaim {
	return SubpolynomialClaim{Flavor: sumcheck.Identity, Terms: []ScalarTerm{
		{Coefficient: field.One(), Factors: []field.Element{bitEval, bitEval}},
		{Coefficient: field.Neg(field.One()), Factors: []field.Element{bitEval}},
	}}
}

// ReconstructionClaim mirrors gadgets.ReconstructionSubpolynomial: xEval =
// (1-2*signEval) * Σ_k 2^k*bitEvals[k].
func ReconstructionClaim(xEval field.Element, bitEvals []field.Element, signEval field.Element) SubpolynomialClaim {
	terms := make([]ScalarTerm, 0, 2*len(bitEvals)+1)
	terms = append(terms, ScalarTerm{Coefficient: field.One(), Factors: []field.Element{xEval}})
	two := field.FromUint64(2)
	for k, bitEval := range bitEvals {
		weight := field.FromUint64(uint64(1) << uint(k))
		terms = append(terms,
			ScalarTerm{Coefficient: field.Neg(weight), Factors: []field.Element{bitEval}},
			ScalarTerm{Coefficient: field.Mul(two, weight), Factors: []field.Element{bitEval, signEval}},
		)
	}
	return SubpolynomialClaim{Flavor: sumcheck.Identity, Terms: terms}
}

// NonNegClaim mirrors gadgets.BuildMonotonic's "-nonneg" Identity
// subpolynomial: forces signEval to the constant 0.
func NonNegClaim(signEval field.Element) SubpolynomialClaim {
	return SubpolynomialClaim{Flavor: sumcheck.Identity, Terms: []ScalarTerm{
		{Coefficient: field.One(), Factors: []field.Element{signEval}},
	}}
}

// RangeClaims bundles BooleanClaim (once per magnitude bit plus the sign
// bit) and ReconstructionClaim, mirroring gadgets.BooleanSubpolynomials +
// gadgets.ReconstructionSubpolynomial term-for-term. Registers nothing by
// itself; callers append the result to a VerificationBuilder via
// ProduceSubpolynomialClaim (InequalityExpr and the monotonicity checks of
// GroupBy/SortMergeJoin then register their extra out/nonneg claim after
// it, matching the prover's registration order).
func RangeClaims(xEval field.Element, bitEvals []field.Element, signEval field.Element) []SubpolynomialClaim {
	claims := make([]SubpolynomialClaim, 0, len(bitEvals)+2)
	for _, bitEval := range bitEvals {
		claims = append(claims, BooleanClaim(bitEval))
	}
	claims = append(claims, BooleanClaim(signEval))
	claims = append(claims, ReconstructionClaim(xEval, bitEvals, signEval))
	return claims
}

// Package proofexpr implements the proof-expression algebra of spec.md
// §3/§4.5: a closed sum type of scalar-valued expression nodes
// (Column, Literal, Placeholder, Equals, Inequality, Add/Sub/Mul, And/Or/Not,
// Aggregate, Cast), each evaluated twice by the query driver (first round,
// final round) and once by the verifier against the shared builder
// contracts defined in this file.
package proofexpr

import (
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/field"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/internal/arena"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/mle"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/sumcheck"
)

// FirstRoundBuilder accumulates what the first pass over a plan tree
// records, per spec.md §4.5: the output row count and the number of
// post-result challenges every node requests, in declaration order. It
// owns the arena every first-round Column a node returns is allocated
// from.
type FirstRoundBuilder struct {
	alloc                *arena.Arena
	postResultChallenges int
}

// NewFirstRoundBuilder returns a builder backed by alloc.
func NewFirstRoundBuilder(alloc *arena.Arena) *FirstRoundBuilder {
	return &FirstRoundBuilder{alloc: alloc}
}

// Arena returns the bump allocator backing this round.
func (b *FirstRoundBuilder) Arena() *arena.Arena { return b.alloc }

// RequestPostResultChallenges reserves n challenges to be dispensed, in
// this same declaration order, during the final round.
func (b *FirstRoundBuilder) RequestPostResultChallenges(n int) {
	b.postResultChallenges += n
}

// NumPostResultChallenges reports the total reserved so far.
func (b *FirstRoundBuilder) NumPostResultChallenges() int { return b.postResultChallenges }

// FinalRoundBuilder accumulates what the second pass records, per spec.md
// §4.5: intermediate committed MLEs and sumcheck subpolynomials, plus the
// post-result challenges dispensed to nodes in the exact order they were
// requested during the first round.
type FinalRoundBuilder struct {
	alloc          *arena.Arena
	challenges     []field.Element
	nextChallenge  int
	intermediate   []mle.MLE
	subpolynomials []sumcheck.Subpolynomial
}

// NewFinalRoundBuilder returns a builder backed by alloc, dispensing
// challenges (drawn by the driver between rounds) in order.
func NewFinalRoundBuilder(alloc *arena.Arena, challenges []field.Element) *FinalRoundBuilder {
	return &FinalRoundBuilder{alloc: alloc, challenges: challenges}
}

// Arena returns the bump allocator backing this round.
func (b *FinalRoundBuilder) Arena() *arena.Arena { return b.alloc }

// NextChallenge consumes and returns the next post-result challenge in
// declaration order; calling it more times than were requested in the
// first round is a programmer error and panics.
func (b *FinalRoundBuilder) NextChallenge() field.Element {
	if b.nextChallenge >= len(b.challenges) {
		panic("proofexpr: FinalRoundBuilder: more challenges consumed than requested")
	}
	c := b.challenges[b.nextChallenge]
	b.nextChallenge++
	return c
}

// ProduceIntermediateMLE registers values as a committed intermediate MLE
// (to be absorbed into the transcript and later opened against the
// sumcheck point), returning the MLE handle for use inside subpolynomial
// terms.
func (b *FinalRoundBuilder) ProduceIntermediateMLE(values []field.Element) mle.MLE {
	m := mle.New(values)
	b.intermediate = append(b.intermediate, m)
	return m
}

// ProduceSubpolynomial registers one contribution to the master sumcheck
// polynomial.
func (b *FinalRoundBuilder) ProduceSubpolynomial(sub sumcheck.Subpolynomial) {
	b.subpolynomials = append(b.subpolynomials, sub)
}

// IntermediateMLEs returns every MLE registered this round, in
// registration order — the order the driver commits to and later absorbs
// their evaluations in.
func (b *FinalRoundBuilder) IntermediateMLEs() []mle.MLE { return b.intermediate }

// Subpolynomials returns every subpolynomial registered this round.
func (b *FinalRoundBuilder) Subpolynomials() []sumcheck.Subpolynomial { return b.subpolynomials }

// ScalarTerm is the verifier-side mirror of mle.Product: a coefficient times
// a product of scalars, each scalar being a claimed MLE evaluation at the
// sumcheck point rather than a full value vector (an MLE's evaluation at a
// fixed point is itself just a scalar, so a product of MLEs evaluated at
// that point is just a product of scalars — no vector work needed here).
type ScalarTerm struct {
	Coefficient field.Element
	Factors     []field.Element
}

func (t ScalarTerm) eval() field.Element {
	acc := t.Coefficient
	for _, f := range t.Factors {
		acc = field.Mul(acc, f)
	}
	return acc
}

// SubpolynomialClaim is the verifier-side mirror of sumcheck.Subpolynomial,
// registered by a node's VerifierEvaluate in the same declaration order its
// FinalRoundEvaluate registered the matching sumcheck.Subpolynomial. The
// query driver combines every claim with the same subpolynomial multipliers
// and chi evaluation it drew from the transcript (mirroring sumcheck.Build)
// and checks the weighted sum against the sumcheck engine's returned final
// evaluation — the one step no single node can check on its own, since the
// multiplier/chi values are drawn once for the whole master polynomial.
type SubpolynomialClaim struct {
	Flavor sumcheck.Flavor
	Terms  []ScalarTerm
}

// Eval sums every term, giving this subpolynomial's claimed evaluation at
// the sumcheck point before the driver applies its multiplier/chi weight.
func (c SubpolynomialClaim) Eval() field.Element {
	var acc field.Element
	for _, t := range c.Terms {
		acc = field.Add(acc, t.eval())
	}
	return acc
}

// VerificationBuilder is the verifier-side mirror of FinalRoundBuilder: it
// dispenses the same post-result challenges and the claimed intermediate
// MLE evaluations (taken from the proof, never recomputed), in the same
// declaration order the prover used, per spec.md §4.5, and accumulates the
// SubpolynomialClaim every node registers to match its FinalRoundEvaluate
// subpolynomials.
type VerificationBuilder struct {
	challenges     []field.Element
	nextChallenge  int
	mleEvaluations []field.Element
	nextMLEEval    int
	claims         []SubpolynomialClaim
}

// NewVerificationBuilder returns a builder dispensing challenges and
// claimed intermediate-MLE evaluations in the orders the proof declares
// them.
func NewVerificationBuilder(challenges, mleEvaluations []field.Element) *VerificationBuilder {
	return &VerificationBuilder{challenges: challenges, mleEvaluations: mleEvaluations}
}

// ProduceSubpolynomialClaim registers the scalar evaluation of one
// subpolynomial's terms at the sumcheck point, matching a FinalRoundBuilder
// ProduceSubpolynomial call one-for-one, in the same order.
func (b *VerificationBuilder) ProduceSubpolynomialClaim(flavor sumcheck.Flavor, terms []ScalarTerm) {
	b.claims = append(b.claims, SubpolynomialClaim{Flavor: flavor, Terms: terms})
}

// SubpolynomialClaims returns every claim registered so far, in declaration
// order, for the driver to combine with the subpolynomial multipliers and
// chi evaluation once the whole plan has been walked.
func (b *VerificationBuilder) SubpolynomialClaims() []SubpolynomialClaim { return b.claims }

// NextChallenge consumes the next post-result challenge.
func (b *VerificationBuilder) NextChallenge() field.Element {
	if b.nextChallenge >= len(b.challenges) {
		panic("proofexpr: VerificationBuilder: more challenges consumed than requested")
	}
	c := b.challenges[b.nextChallenge]
	b.nextChallenge++
	return c
}

// NextMLEEvaluation consumes the next claimed intermediate-MLE evaluation.
func (b *VerificationBuilder) NextMLEEvaluation() field.Element {
	if b.nextMLEEval >= len(b.mleEvaluations) {
		panic("proofexpr: VerificationBuilder: more MLE evaluations consumed than produced")
	}
	v := b.mleEvaluations[b.nextMLEEval]
	b.nextMLEEval++
	return v
}

// RemainingMLEEvaluations reports how many claimed evaluations are left
// unconsumed, used by the driver to check the proof declared exactly as
// many intermediate MLEs as the plan consumed.
func (b *VerificationBuilder) RemainingMLEEvaluations() int {
	return len(b.mleEvaluations) - b.nextMLEEval
}

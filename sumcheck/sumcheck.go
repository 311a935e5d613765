// Package sumcheck implements the native (non-circuit) sumcheck
// prover/verifier of spec.md §4.3: reducing a hypercube-sum claim over a
// composite polynomial to a single evaluation claim, one round per
// variable. The round structure mirrors what consensys/gnark's std/gkr
// package verifies inside a SNARK circuit (std/gkr/gkr_test.go references
// sumcheck.Proof / sumcheck.ArithmeticTranscript from
// github.com/consensys/gnark/std/sumcheck); this package reimplements the
// same check natively over field.Element instead of frontend.Variable,
// since the prover and verifier here run as plain Go code, not inside an
// arithmetic circuit.
package sumcheck

import (
	"fmt"

	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/field"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/mle"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/transcript"
)

// Flavor distinguishes the two subpolynomial shapes of spec.md §4.3.
type Flavor int

const (
	// ZeroSum subpolynomials must sum to zero over the whole hypercube.
	ZeroSum Flavor = iota
	// Identity subpolynomials must be zero at every boolean point; the
	// engine folds them into ZeroSum form by multiplying with a random
	// "chi" MLE before summing.
	Identity
)

// Subpolynomial is one contribution to the master sumcheck polynomial: a
// list of Products (each itself coefficient * prod(MLEs)) tagged with the
// flavor that determines how it's folded into the outer sum.
type Subpolynomial struct {
	Label   string
	Flavor  Flavor
	Terms   []mle.Product
	Degree  int // max per-variable degree across Terms; Prove does not read it, it sizes rounds from the built terms' factor counts
}

// MasterPolynomial is the sum the sumcheck prover/verifier run over: every
// subpolynomial's terms, each ZeroSum term scaled by its own fresh
// subpolynomial multiplier, each Identity term additionally scaled by the
// shared entrywise "chi" MLE before summing, per spec.md §4.3.
type MasterPolynomial struct {
	Vars  int
	Terms []mle.Product
}

// Build combines subpolynomials into one MasterPolynomial, drawing one
// multiplier per subpolynomial and one vars-length vector of entrywise
// multiplier challenges from tr, in that order, per spec.md §4.3's
// randomness-usage rule ("one fresh challenge per subpolynomial ... drawn
// ... after all commitments of the current phase are absorbed").
func Build(tr *transcript.Transcript, vars int, subs []Subpolynomial) (MasterPolynomial, error) {
	multipliers, err := tr.Challenges(transcript.LabelSubpolyMultiplier, len(subs))
	if err != nil {
		return MasterPolynomial{}, fmt.Errorf("sumcheck: draw subpolynomial multipliers: %w", err)
	}
	chiPoint, err := tr.Challenges(transcript.LabelEntrywiseMultiplier, vars)
	if err != nil {
		return MasterPolynomial{}, fmt.Errorf("sumcheck: draw entrywise multipliers: %w", err)
	}
	chi := mle.New(mle.EvalVector(chiPoint))

	var terms []mle.Product
	for i, sub := range subs {
		mult := multipliers[i]
		for _, term := range sub.Terms {
			coeff := field.Mul(mult, term.Coefficient)
			factors := term.Factors
			if sub.Flavor == Identity {
				factors = append(append([]mle.MLE(nil), factors...), chi)
			}
			terms = append(terms, mle.Product{Coefficient: coeff, Factors: factors})
		}
	}
	return MasterPolynomial{Vars: vars, Terms: terms}, nil
}

// RoundPoly is one round's univariate message: its evaluations at
// 0,1,...,degree.
type RoundPoly struct {
	Evals []field.Element
}

// At evaluates the round polynomial at x via Lagrange interpolation over the
// integer nodes 0..len(Evals)-1.
func (p RoundPoly) At(x field.Element) field.Element {
	n := len(p.Evals)
	var acc field.Element
	for i := 0; i < n; i++ {
		num := field.One()
		den := field.One()
		xi := field.FromUint64(uint64(i))
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			xj := field.FromUint64(uint64(j))
			num = field.Mul(num, field.Sub(x, xj))
			den = field.Mul(den, field.Sub(xi, xj))
		}
		term := field.Mul(p.Evals[i], field.Mul(num, field.Inverse(den)))
		acc = field.Add(acc, term)
	}
	return acc
}

// Proof is the sequence of round messages the sumcheck prover sends.
type Proof struct {
	Rounds []RoundPoly
}

// Prove runs the sumcheck prover over poly, returning the proof, the final
// challenge point, and the claimed evaluation P(r) at that point.
func Prove(tr *transcript.Transcript, poly MasterPolynomial, claimedSum field.Element) (Proof, []field.Element, field.Element, error) {
	terms := poly.Terms
	point := make([]field.Element, 0, poly.Vars)
	proof := Proof{Rounds: make([]RoundPoly, poly.Vars)}

	if actual := sumTermsOverHypercube(terms, poly.Vars); !actual.Equal(claimedSum) {
		panic("sumcheck: prover's claimed sum does not match the polynomial - programmer error")
	}

	for round := 0; round < poly.Vars; round++ {
		remainingVars := poly.Vars - round
		degree := maxDegree(terms)
		evals := make([]field.Element, degree+1)
		for x := 0; x <= degree; x++ {
			evals[x] = evalTermsAtFixedFirstVar(terms, remainingVars, field.FromUint64(uint64(x)))
		}
		rp := RoundPoly{Evals: evals}
		proof.Rounds[round] = rp

		if err := tr.AppendScalars(transcript.LabelSumcheckRound, evals); err != nil {
			return Proof{}, nil, field.Element{}, fmt.Errorf("sumcheck: absorb round %d: %w", round, err)
		}
		r, err := tr.Challenge(transcript.LabelSumcheckRound)
		if err != nil {
			return Proof{}, nil, field.Element{}, fmt.Errorf("sumcheck: draw round %d challenge: %w", round, err)
		}
		point = append(point, r)

		next := make([]mle.Product, len(terms))
		for i, t := range terms {
			next[i] = mle.FoldAll(t, r)
		}
		terms = next
	}

	finalEval := evalFoldedTerms(terms)
	return proof, point, finalEval, nil
}

func sumTermsOverHypercube(terms []mle.Product, vars int) field.Element {
	var acc field.Element
	n := 1 << uint(vars)
	for i := 0; i < n; i++ {
		for _, t := range terms {
			acc = field.Add(acc, t.EvalAtBooleanPoint(i))
		}
	}
	return acc
}

func evalFoldedTerms(terms []mle.Product) field.Element {
	var acc field.Element
	for _, t := range terms {
		v := t.Coefficient
		for _, f := range t.Factors {
			var fv field.Element
			if len(f.Values) > 0 {
				fv = f.Values[0]
			}
			v = field.Mul(v, fv)
		}
		acc = field.Add(acc, v)
	}
	return acc
}

func maxDegree(terms []mle.Product) int {
	max := 0
	for _, t := range terms {
		d := len(t.Factors)
		if d > max {
			max = d
		}
	}
	return max
}

// evalTermsAtFixedFirstVar evaluates sum over the remaining hypercube with
// the first remaining variable fixed to x, used to build one round's
// evaluation-at-x entry.
func evalTermsAtFixedFirstVar(terms []mle.Product, remainingVars int, x field.Element) field.Element {
	var acc field.Element
	n := 1 << uint(remainingVars-1)
	for i := 0; i < n; i++ {
		for _, t := range terms {
			v := t.Coefficient
			for _, f := range t.Factors {
				lo := safeAt(f, 2*i)
				hi := safeAt(f, 2*i+1)
				fv := field.Add(field.Mul(field.Sub(field.One(), x), lo), field.Mul(x, hi))
				v = field.Mul(v, fv)
			}
			acc = field.Add(acc, v)
		}
	}
	return acc
}

func safeAt(m mle.MLE, i int) field.Element {
	if i < len(m.Values) {
		return m.Values[i]
	}
	return field.Zero()
}

// Verify checks a sumcheck proof against claimedSum, returning the final
// challenge point and the claimed evaluation P(r) the caller must then
// verify via a separate evaluation argument (spec.md §4.3).
func Verify(tr *transcript.Transcript, vars int, proof Proof, claimedSum field.Element) ([]field.Element, field.Element, error) {
	if len(proof.Rounds) != vars {
		return nil, field.Element{}, fmt.Errorf("sumcheck: proof has %d rounds, want %d", len(proof.Rounds), vars)
	}
	point := make([]field.Element, 0, vars)
	claim := claimedSum
	for round, rp := range proof.Rounds {
		if len(rp.Evals) < 1 {
			return nil, field.Element{}, fmt.Errorf("sumcheck: round %d has no evaluations", round)
		}
		sum := field.Add(rp.Evals[0], rp.At(field.One()))
		if !sum.Equal(claim) {
			return nil, field.Element{}, fmt.Errorf("sumcheck: round %d consistency check failed", round)
		}
		if err := tr.AppendScalars(transcript.LabelSumcheckRound, rp.Evals); err != nil {
			return nil, field.Element{}, fmt.Errorf("sumcheck: absorb round %d: %w", round, err)
		}
		r, err := tr.Challenge(transcript.LabelSumcheckRound)
		if err != nil {
			return nil, field.Element{}, fmt.Errorf("sumcheck: draw round %d challenge: %w", round, err)
		}
		point = append(point, r)
		claim = rp.At(r)
	}
	return point, claim, nil
}

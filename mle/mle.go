// Package mle implements the multilinear-extension kit of spec.md §4.3:
// evaluating an MLE at a point, folding an MLE by one variable, and a lazy
// product-of-MLEs term used by the sumcheck engine.
package mle

import (
	"math/bits"

	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/field"
)

// NumVars returns ⌈log2(n)⌉, the number of boolean variables an MLE over a
// length-n column needs; NumVars(0) and NumVars(1) are both 0.
func NumVars(n int) int {
	if n <= 1 {
		return 0
	}
	return bits.Len(uint(n - 1))
}

// MLE is the unique multilinear polynomial agreeing with a length-n column
// on {0,1}^NumVars(n), zero-extended beyond n, per spec.md §4.3.
type MLE struct {
	Values []field.Element // length n, n <= 2^NumVars
	Vars   int
}

// New wraps a column's scalar values as an MLE over NumVars(len(values))
// variables.
func New(values []field.Element) MLE {
	return MLE{Values: values, Vars: NumVars(len(values))}
}

// at returns c[i] for i < len(c.Values), else zero.
func (m MLE) at(i int) field.Element {
	if i < len(m.Values) {
		return m.Values[i]
	}
	return field.Zero()
}

// EvalVector computes e_r[i] = prod_j (r_j*bit_j(i) + (1-r_j)*(1-bit_j(i)))
// for every i in [0, 2^len(r)), per spec.md §4.3.
func EvalVector(r []field.Element) []field.Element {
	v := len(r)
	out := make([]field.Element, 1<<uint(v))
	out[0] = field.One()
	size := 1
	for j := 0; j < v; j++ {
		rj := r[j]
		oneMinusRj := field.Sub(field.One(), rj)
		for i := size - 1; i >= 0; i-- {
			base := out[i]
			out[i] = field.Mul(base, oneMinusRj)
			out[i+size] = field.Mul(base, rj)
		}
		size <<= 1
	}
	return out
}

// EqEval computes eq(a,b) = prod_j (a_j*b_j + (1-a_j)*(1-b_j)), the
// continuous extension of EvalVector's entrywise formula to two arbitrary
// points rather than one point and a boolean index. The verifier uses this
// to evaluate an entrywise "chi" multiplier MLE (built from a transcript
// point) at the sumcheck's final challenge point without materializing
// EvalVector's full 2^v-length vector.
func EqEval(a, b []field.Element) field.Element {
	acc := field.One()
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for j := 0; j < n; j++ {
		term := field.Add(field.Mul(a[j], b[j]), field.Mul(field.Sub(field.One(), a[j]), field.Sub(field.One(), b[j])))
		acc = field.Mul(acc, term)
	}
	return acc
}

// Evaluate computes c~(r) = <c, e_r> for a point r of m.Vars variables (or
// more, if r has extra leading variables past NumVars(len(m.Values)) - the
// MLE is implicitly zero there, consistent with invariant 1 of spec.md §3).
func Evaluate(m MLE, r []field.Element) field.Element {
	e := EvalVector(r)
	var acc field.Element
	for i, ei := range e {
		if ei.IsZero() {
			continue
		}
		acc = field.Add(acc, field.Mul(m.at(i), ei))
	}
	return acc
}

// Fold binds the lowest-indexed remaining variable to challenge r, halving
// the MLE's length: fold(c)[i] = (1-r)*c[2i] + r*c[2i+1]. Used by the
// sumcheck prover between rounds.
func Fold(m MLE, r field.Element) MLE {
	n := len(m.Values)
	half := (n + 1) / 2
	out := make([]field.Element, half)
	oneMinusR := field.Sub(field.One(), r)
	for i := 0; i < half; i++ {
		lo := m.at(2 * i)
		hi := m.at(2*i + 1)
		out[i] = field.Add(field.Mul(oneMinusR, lo), field.Mul(r, hi))
	}
	vars := m.Vars - 1
	if vars < 0 {
		vars = 0
	}
	return MLE{Values: out, Vars: vars}
}

// Product is a scalar-weighted product of MLE factors, the term shape the
// sumcheck engine sums over the hypercube: coefficient * prod(factors).
type Product struct {
	Coefficient field.Element
	Factors     []MLE
}

// EvalAtBooleanPoint evaluates p at a boolean hypercube point i (0 <= i <
// 2^maxVars), used when summing a Product over the whole hypercube.
func (p Product) EvalAtBooleanPoint(i int) field.Element {
	acc := p.Coefficient
	for _, f := range p.Factors {
		acc = field.Mul(acc, f.at(i))
	}
	return acc
}

// SumOverHypercube computes sum_{x in {0,1}^vars} p(x), the ground-truth
// value the sumcheck prover claims and the verifier ultimately trusts via
// the sumcheck protocol rather than recomputing directly.
func SumOverHypercube(p Product, vars int) field.Element {
	var acc field.Element
	n := 1 << uint(vars)
	for i := 0; i < n; i++ {
		acc = field.Add(acc, p.EvalAtBooleanPoint(i))
	}
	return acc
}

// FoldAll folds every factor of p by r, returning a new Product of half the
// hypercube size.
func FoldAll(p Product, r field.Element) Product {
	factors := make([]MLE, len(p.Factors))
	for i, f := range p.Factors {
		factors[i] = Fold(f, r)
	}
	return Product{Coefficient: p.Coefficient, Factors: factors}
}

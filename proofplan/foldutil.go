package proofplan

import "github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/field"

// foldColumns computes fold[i] = alpha + Σ_k beta^(k+1)*columns[k][i] for
// i in [0,n), the random linear combination spec.md §4.5 calls f_in/f_out,
// collapsing an arbitrary-width row into one field element so a single
// reciprocal-sum argument can prove multiset equality between row sets.
func foldColumns(alpha, beta field.Element, columns [][]field.Element, n int) []field.Element {
	out := make([]field.Element, n)
	for i := range out {
		out[i] = alpha
	}
	power := beta
	for _, col := range columns {
		for i := 0; i < n; i++ {
			out[i] = field.Add(out[i], field.Mul(power, col[i]))
		}
		power = field.Mul(power, beta)
	}
	return out
}

// foldEvals is foldColumns' verifier-side mirror: the same random linear
// combination applied to already-claimed column evaluations instead of
// full value vectors, since a linear combination of MLEs evaluated at a
// point equals the same combination of their evaluations.
func foldEvals(alpha, beta field.Element, evals []field.Element) field.Element {
	acc := alpha
	power := beta
	for _, e := range evals {
		acc = field.Add(acc, field.Mul(power, e))
		power = field.Mul(power, beta)
	}
	return acc
}

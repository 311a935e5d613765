package mle_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/field"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/mle"
)

func feSlice(vs ...uint64) []field.Element {
	out := make([]field.Element, len(vs))
	for i, v := range vs {
		out[i] = field.FromUint64(v)
	}
	return out
}

func TestEvaluateAtBooleanPointMatchesColumn(t *testing.T) {
	require := require.New(t)
	col := feSlice(10, 20, 30, 40)
	m := mle.New(col)
	require.Equal(2, m.Vars)

	for i, want := range col {
		bits := make([]field.Element, m.Vars)
		for j := 0; j < m.Vars; j++ {
			if i&(1<<uint(j)) != 0 {
				bits[j] = field.One()
			}
		}
		got := mle.Evaluate(m, bits)
		require.True(got.Equal(want), "index %d", i)
	}
}

func TestEvaluateBeyondLengthIsZero(t *testing.T) {
	require := require.New(t)
	col := feSlice(1, 2, 3) // length 3, zero-extended to index 3
	m := mle.New(col)
	bits := []field.Element{field.One(), field.One()} // index 3
	got := mle.Evaluate(m, bits)
	require.True(got.IsZero())
}

func TestFoldReducesLength(t *testing.T) {
	require := require.New(t)
	col := feSlice(1, 2, 3, 4)
	m := mle.New(col)
	folded := mle.Fold(m, field.Zero())
	require.Len(folded.Values, 2)
	require.True(folded.Values[0].Equal(field.FromUint64(1)))
	require.True(folded.Values[1].Equal(field.FromUint64(3)))

	foldedOne := mle.Fold(m, field.One())
	require.True(foldedOne.Values[0].Equal(field.FromUint64(2)))
	require.True(foldedOne.Values[1].Equal(field.FromUint64(4)))
}

func TestSumOverHypercube(t *testing.T) {
	require := require.New(t)
	col := feSlice(1, 2, 3, 4)
	m := mle.New(col)
	p := mle.Product{Coefficient: field.One(), Factors: []mle.MLE{m}}
	sum := mle.SumOverHypercube(p, m.Vars)
	require.True(sum.Equal(field.FromUint64(10)))
}

func TestEqEvalMatchesEvalVectorAtBooleanPoints(t *testing.T) {
	require := require.New(t)
	a := feSlice(7, 11) // arbitrary non-boolean point, 2 variables
	vec := mle.EvalVector(a)
	for i, want := range vec {
		b := make([]field.Element, len(a))
		for j := range b {
			if i&(1<<uint(j)) != 0 {
				b[j] = field.One()
			}
		}
		got := mle.EqEval(a, b)
		require.True(got.Equal(want), "index %d", i)
	}
}

func TestEqEvalIsSymmetric(t *testing.T) {
	require := require.New(t)
	a := feSlice(3, 5, 9)
	b := feSlice(2, 8, 1)
	require.True(mle.EqEval(a, b).Equal(mle.EqEval(b, a)))
}

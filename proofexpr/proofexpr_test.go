package proofexpr_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/column"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/field"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/internal/arena"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/mle"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/proofexpr"
)

func fe(vs ...int64) []field.Element {
	out := make([]field.Element, len(vs))
	for i, v := range vs {
		out[i] = field.FromSignedInt(v)
	}
	return out
}

func intColumn(t column.Type, vs ...int64) column.Column {
	return column.Column{Type: t, Scalars: fe(vs...)}
}

func tableOf(cols map[string]column.Column, order []string) column.Table {
	tbl, err := column.NewTable(order, cols)
	if err != nil {
		panic(err)
	}
	return tbl
}

func TestColumnExprRoundTrip(t *testing.T) {
	require := require.New(t)
	tbl := tableOf(map[string]column.Column{"x": intColumn(column.TypeBigInt, 1, 2, 3)}, []string{"x"})
	e := proofexpr.ColumnExpr{Name: "x", Type: column.TypeBigInt}

	alloc := arena.New()
	fb := proofexpr.NewFirstRoundBuilder(alloc)
	out := e.FirstRoundEvaluate(fb, tbl)
	require.Equal(fe(1, 2, 3), out.Scalars)

	claim := field.FromUint64(42)
	vb := proofexpr.NewVerificationBuilder(nil, nil)
	got := e.VerifierEvaluate(vb, proofexpr.OneEvalMap{"x": claim})
	require.True(got.Equal(claim))
}

func TestLiteralExprBroadcastsAndScalesByRowCount(t *testing.T) {
	require := require.New(t)
	tbl := tableOf(map[string]column.Column{"x": intColumn(column.TypeBigInt, 1, 2, 3, 4)}, []string{"x"})
	lit := proofexpr.LiteralExpr{Value: field.FromUint64(7), Type: column.TypeBigInt}

	alloc := arena.New()
	fb := proofexpr.NewFirstRoundBuilder(alloc)
	out := lit.FirstRoundEvaluate(fb, tbl)
	require.Equal(fe(7, 7, 7, 7), out.Scalars)

	rowCountEval := field.FromUint64(9) // stand-in for eval(1_n, r)
	vb := proofexpr.NewVerificationBuilder(nil, nil)
	got := lit.VerifierEvaluate(vb, proofexpr.OneEvalMap{proofexpr.RowCountEvalKey: rowCountEval})
	require.True(got.Equal(field.Mul(field.FromUint64(7), rowCountEval)))
}

func TestPlaceholderExprResolvesToLiteral(t *testing.T) {
	require := require.New(t)
	ph := proofexpr.PlaceholderExpr{ID: 1, Type: column.TypeInt}
	bindings := []field.Element{field.FromUint64(10), field.FromUint64(20)}
	types := []column.Type{column.TypeInt, column.TypeInt}

	lit := ph.ResolvedLiteral(bindings, types)
	require.True(lit.Value.Equal(field.FromUint64(20)))
	require.Equal(column.TypeInt, lit.Type)

	require.Panics(func() {
		proofexpr.PlaceholderExpr{ID: 5, Type: column.TypeInt}.Resolve(bindings, types)
	})
	require.Panics(func() {
		proofexpr.PlaceholderExpr{ID: 0, Type: column.TypeBigInt}.Resolve(bindings, types)
	})
}

func TestAddSubAreLinearAndNeedNoIntermediateMLE(t *testing.T) {
	require := require.New(t)
	tbl := tableOf(map[string]column.Column{
		"a": intColumn(column.TypeBigInt, 1, 2, 3),
		"b": intColumn(column.TypeBigInt, 10, 20, 30),
	}, []string{"a", "b"})

	add := proofexpr.AddExpr{
		Left:  proofexpr.ColumnExpr{Name: "a", Type: column.TypeBigInt},
		Right: proofexpr.ColumnExpr{Name: "b", Type: column.TypeBigInt},
		Type:  column.TypeBigInt,
	}
	sub := proofexpr.SubExpr{
		Left:  proofexpr.ColumnExpr{Name: "b", Type: column.TypeBigInt},
		Right: proofexpr.ColumnExpr{Name: "a", Type: column.TypeBigInt},
		Type:  column.TypeBigInt,
	}

	alloc := arena.New()
	fb := proofexpr.NewFinalRoundBuilder(alloc, nil)
	addOut := add.FinalRoundEvaluate(fb, tbl)
	require.Equal(fe(11, 22, 33), addOut.Scalars)
	subOut := sub.FinalRoundEvaluate(fb, tbl)
	require.Equal(fe(9, 18, 27), subOut.Scalars)
	require.Empty(fb.IntermediateMLEs())
	require.Empty(fb.Subpolynomials())

	vb := proofexpr.NewVerificationBuilder(nil, nil)
	evals := proofexpr.OneEvalMap{"a": field.FromUint64(3), "b": field.FromUint64(5)}
	require.True(add.VerifierEvaluate(vb, evals).Equal(field.FromUint64(8)))
	require.True(sub.VerifierEvaluate(vb, evals).Equal(field.FromUint64(2)))
}

func TestMulExprRegistersProductIdentity(t *testing.T) {
	require := require.New(t)
	tbl := tableOf(map[string]column.Column{
		"a": intColumn(column.TypeBigInt, 2, 3, 4),
		"b": intColumn(column.TypeBigInt, 5, 6, 7),
	}, []string{"a", "b"})

	mul := proofexpr.MulExpr{
		Left:  proofexpr.ColumnExpr{Name: "a", Type: column.TypeBigInt},
		Right: proofexpr.ColumnExpr{Name: "b", Type: column.TypeBigInt},
		Type:  column.TypeBigInt,
	}

	alloc := arena.New()
	fb := proofexpr.NewFinalRoundBuilder(alloc, nil)
	out := mul.FinalRoundEvaluate(fb, tbl)
	require.Equal(fe(10, 18, 28), out.Scalars)
	require.Len(fb.IntermediateMLEs(), 1)
	require.Len(fb.Subpolynomials(), 1)

	sub := fb.Subpolynomials()[0]
	vars := mle.NumVars(out.Len())
	n := 1 << uint(vars)
	for i := 0; i < n; i++ {
		var acc field.Element
		for _, term := range sub.Terms {
			acc = field.Add(acc, term.EvalAtBooleanPoint(i))
		}
		require.True(acc.IsZero(), "identity not zero at boolean point %d", i)
	}

	vb := proofexpr.NewVerificationBuilder(nil, []field.Element{field.FromUint64(99)})
	got := mul.VerifierEvaluate(vb, proofexpr.OneEvalMap{"a": field.FromUint64(1), "b": field.FromUint64(1)})
	require.True(got.Equal(field.FromUint64(99)))
	require.Equal(0, vb.RemainingMLEEvaluations())
}

func TestEqualsExprIdentitiesHoldAndOutputIsBoolean(t *testing.T) {
	require := require.New(t)
	tbl := tableOf(map[string]column.Column{
		"a": intColumn(column.TypeBigInt, 1, 2, 3, 4),
		"b": intColumn(column.TypeBigInt, 1, 5, 3, 9),
	}, []string{"a", "b"})

	eq := proofexpr.EqualsExpr{
		Left:  proofexpr.ColumnExpr{Name: "a", Type: column.TypeBigInt},
		Right: proofexpr.ColumnExpr{Name: "b", Type: column.TypeBigInt},
	}

	alloc := arena.New()
	fb := proofexpr.NewFinalRoundBuilder(alloc, nil)
	out := eq.FinalRoundEvaluate(fb, tbl)
	require.Equal(fe(1, 0, 1, 0), out.Scalars)
	require.Len(fb.IntermediateMLEs(), 2) // out, inv
	require.Len(fb.Subpolynomials(), 2)

	vars := mle.NumVars(out.Len())
	n := 1 << uint(vars)
	for _, sub := range fb.Subpolynomials() {
		for i := 0; i < n; i++ {
			var acc field.Element
			for _, term := range sub.Terms {
				acc = field.Add(acc, term.EvalAtBooleanPoint(i))
			}
			require.True(acc.IsZero(), "%s not zero at boolean point %d", sub.Label, i)
		}
	}
}

func TestInequalityExprStrictLess(t *testing.T) {
	require := require.New(t)
	tbl := tableOf(map[string]column.Column{
		"a": intColumn(column.TypeTinyInt, 1, 5, 3, -4),
		"b": intColumn(column.TypeTinyInt, 2, 5, 1, 0),
	}, []string{"a", "b"})

	lt := proofexpr.InequalityExpr{
		Left:       proofexpr.ColumnExpr{Name: "a", Type: column.TypeTinyInt},
		Right:      proofexpr.ColumnExpr{Name: "b", Type: column.TypeTinyInt},
		StrictLess: true,
		BitBound:   16,
	}

	alloc := arena.New()
	fb := proofexpr.NewFinalRoundBuilder(alloc, nil)
	out := lt.FinalRoundEvaluate(fb, tbl)
	require.Equal(fe(1, 0, 0, 1), out.Scalars)

	vars := mle.NumVars(out.Len())
	n := 1 << uint(vars)
	for _, sub := range fb.Subpolynomials() {
		for i := 0; i < n; i++ {
			var acc field.Element
			for _, term := range sub.Terms {
				acc = field.Add(acc, term.EvalAtBooleanPoint(i))
			}
			require.True(acc.IsZero(), "%s not zero at boolean point %d", sub.Label, i)
		}
	}
}

func TestAndOrNot(t *testing.T) {
	require := require.New(t)
	tbl := tableOf(map[string]column.Column{
		"p": intColumn(column.TypeBoolean, 1, 1, 0, 0),
		"q": intColumn(column.TypeBoolean, 1, 0, 1, 0),
	}, []string{"p", "q"})

	and := proofexpr.AndExpr{Left: proofexpr.ColumnExpr{Name: "p", Type: column.TypeBoolean}, Right: proofexpr.ColumnExpr{Name: "q", Type: column.TypeBoolean}}
	or := proofexpr.OrExpr{Left: proofexpr.ColumnExpr{Name: "p", Type: column.TypeBoolean}, Right: proofexpr.ColumnExpr{Name: "q", Type: column.TypeBoolean}}
	not := proofexpr.NotExpr{Inner: proofexpr.ColumnExpr{Name: "p", Type: column.TypeBoolean}}

	alloc := arena.New()
	fb := proofexpr.NewFinalRoundBuilder(alloc, nil)
	require.Equal(fe(1, 0, 0, 0), and.FinalRoundEvaluate(fb, tbl).Scalars)
	require.Equal(fe(1, 1, 1, 0), or.FinalRoundEvaluate(fb, tbl).Scalars)
	require.Equal(fe(0, 0, 1, 1), not.FinalRoundEvaluate(fb, tbl).Scalars)

	vb := proofexpr.NewVerificationBuilder(nil, []field.Element{field.Zero(), field.Zero()})
	pEval, qEval := field.One(), field.Zero()
	evals := proofexpr.OneEvalMap{"p": pEval, "q": qEval}
	require.True(not.VerifierEvaluate(vb, evals).Equal(field.Sub(field.One(), pEval)))
}

func TestCastExprIsLinearRescale(t *testing.T) {
	require := require.New(t)
	tbl := tableOf(map[string]column.Column{"a": intColumn(column.TypeInt, 1, 2, 3)}, []string{"a"})

	cast := proofexpr.CastExpr{
		Inner:       proofexpr.ColumnExpr{Name: "a", Type: column.TypeInt},
		To:          column.TypeDecimal75,
		ScaleFactor: field.FromUint64(100),
	}

	alloc := arena.New()
	fb := proofexpr.NewFinalRoundBuilder(alloc, nil)
	out := cast.FinalRoundEvaluate(fb, tbl)
	require.Equal(fe(100, 200, 300), out.Scalars)
	require.Empty(fb.IntermediateMLEs())

	vb := proofexpr.NewVerificationBuilder(nil, nil)
	got := cast.VerifierEvaluate(vb, proofexpr.OneEvalMap{"a": field.FromUint64(7)})
	require.True(got.Equal(field.FromUint64(700)))
}

func TestAggregateSumAndCount(t *testing.T) {
	require := require.New(t)
	tbl := tableOf(map[string]column.Column{"v": intColumn(column.TypeBigInt, 10, 20, 30, 40, 50)}, []string{"v"})

	sum := proofexpr.AggregateExpr{Op: proofexpr.AggregateSum, Inner: proofexpr.ColumnExpr{Name: "v", Type: column.TypeBigInt}}
	count := proofexpr.AggregateExpr{Op: proofexpr.AggregateCount, Inner: proofexpr.ColumnExpr{Name: "v", Type: column.TypeBigInt}}

	alloc := arena.New()
	fb := proofexpr.NewFinalRoundBuilder(alloc, nil)
	sumOut := sum.FinalRoundEvaluate(fb, tbl)
	require.True(sumOut.Scalars[0].Equal(field.FromUint64(150)))

	countOut := count.FinalRoundEvaluate(fb, tbl)
	require.True(countOut.Scalars[0].Equal(field.FromUint64(5)))

	vars := mle.NumVars(tbl.RowCount)
	n := 1 << uint(vars)
	for _, sub := range fb.Subpolynomials() {
		var total field.Element
		for i := 0; i < n; i++ {
			for _, term := range sub.Terms {
				total = field.Add(total, term.EvalAtBooleanPoint(i))
			}
		}
		require.True(total.IsZero(), "%s does not sum to zero over hypercube", sub.Label)
	}
}

func TestMulExprClaimMatchesSubpolynomialAtArbitraryPoint(t *testing.T) {
	require := require.New(t)
	tbl := tableOf(map[string]column.Column{
		"a": intColumn(column.TypeBigInt, 2, 3, 5, 7),
		"b": intColumn(column.TypeBigInt, 11, 13, 17, 19),
	}, []string{"a", "b"})

	mul := proofexpr.MulExpr{
		Left:  proofexpr.ColumnExpr{Name: "a", Type: column.TypeBigInt},
		Right: proofexpr.ColumnExpr{Name: "b", Type: column.TypeBigInt},
		Type:  column.TypeBigInt,
	}

	alloc := arena.New()
	fb := proofexpr.NewFinalRoundBuilder(alloc, nil)
	out := mul.FinalRoundEvaluate(fb, tbl)
	require.Equal(fe(22, 39, 85, 133), out.Scalars)
	require.Len(fb.IntermediateMLEs(), 1)
	require.Len(fb.Subpolynomials(), 1)

	r := []field.Element{field.FromUint64(9), field.FromUint64(4)}
	wantSubEval := evalTermsAt(fb.Subpolynomials()[0].Terms, r)

	aEval := mle.Evaluate(mle.New(tbl.Columns["a"].Scalars), r)
	bEval := mle.Evaluate(mle.New(tbl.Columns["b"].Scalars), r)
	outEval := mle.Evaluate(fb.IntermediateMLEs()[0], r)

	vb := proofexpr.NewVerificationBuilder(nil, []field.Element{outEval})
	gotOutEval := mul.VerifierEvaluate(vb, proofexpr.OneEvalMap{"a": aEval, "b": bEval})
	require.True(gotOutEval.Equal(outEval))
	require.Equal(0, vb.RemainingMLEEvaluations())

	claims := vb.SubpolynomialClaims()
	require.Len(claims, 1)
	require.True(claims[0].Eval().Equal(wantSubEval), "claim eval %s != direct subpolynomial eval %s", claims[0].Eval().String(), wantSubEval.String())
}

func TestEqualsExprClaimsMatchSubpolynomialsAtArbitraryPoint(t *testing.T) {
	require := require.New(t)
	tbl := tableOf(map[string]column.Column{
		"a": intColumn(column.TypeBigInt, 1, 2, 3, 2),
		"b": intColumn(column.TypeBigInt, 1, 5, 3, 9),
	}, []string{"a", "b"})

	eq := proofexpr.EqualsExpr{
		Left:  proofexpr.ColumnExpr{Name: "a", Type: column.TypeBigInt},
		Right: proofexpr.ColumnExpr{Name: "b", Type: column.TypeBigInt},
	}

	alloc := arena.New()
	fb := proofexpr.NewFinalRoundBuilder(alloc, nil)
	out := eq.FinalRoundEvaluate(fb, tbl)
	require.Equal(fe(1, 0, 1, 0), out.Scalars)
	require.Len(fb.IntermediateMLEs(), 2) // out, inv
	require.Len(fb.Subpolynomials(), 2)

	r := []field.Element{field.FromUint64(5), field.FromUint64(8)}
	wantEvals := make([]field.Element, len(fb.Subpolynomials()))
	for i, sub := range fb.Subpolynomials() {
		wantEvals[i] = evalTermsAt(sub.Terms, r)
	}

	aEval := mle.Evaluate(mle.New(tbl.Columns["a"].Scalars), r)
	bEval := mle.Evaluate(mle.New(tbl.Columns["b"].Scalars), r)
	outEval := mle.Evaluate(fb.IntermediateMLEs()[0], r)
	invEval := mle.Evaluate(fb.IntermediateMLEs()[1], r)

	vb := proofexpr.NewVerificationBuilder(nil, []field.Element{outEval, invEval})
	gotOutEval := eq.VerifierEvaluate(vb, proofexpr.OneEvalMap{"a": aEval, "b": bEval})
	require.True(gotOutEval.Equal(outEval))
	require.Equal(0, vb.RemainingMLEEvaluations())

	claims := vb.SubpolynomialClaims()
	require.Len(claims, 2)
	for i, claim := range claims {
		require.True(claim.Eval().Equal(wantEvals[i]), "claim %d: %s != %s", i, claim.Eval().String(), wantEvals[i].String())
	}
}

// evalTermsAt evaluates a list of mle.Product terms at an arbitrary point r
// (not necessarily boolean), summing coefficient*prod(factor~(r)).
func evalTermsAt(terms []mle.Product, r []field.Element) field.Element {
	var acc field.Element
	for _, term := range terms {
		v := term.Coefficient
		for _, f := range term.Factors {
			v = field.Mul(v, mle.Evaluate(f, r))
		}
		acc = field.Add(acc, v)
	}
	return acc
}

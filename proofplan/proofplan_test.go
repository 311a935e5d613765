package proofplan_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/accessor"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/column"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/field"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/internal/arena"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/mle"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/proofexpr"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/proofplan"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/sumcheck"
)

func fe(vs ...int64) []field.Element {
	out := make([]field.Element, len(vs))
	for i, v := range vs {
		out[i] = field.FromSignedInt(v)
	}
	return out
}

func id(s string) proofplan.Identifier { return accessor.MustIdentifier(s) }

func table(ref accessor.TableRef, order []string, cols map[string]column.Column) column.Table {
	tbl, err := column.NewTable(order, cols)
	if err != nil {
		panic(err)
	}
	return tbl
}

// assertZeroOverHypercube checks every subpolynomial in subs sums to zero
// at every boolean point of a 2^vars-sized hypercube, the same check
// proofexpr's own tests use. MLEs shorter than 2^vars zero-pad (mle.at),
// so mixing e.g. an n-row cStar with an m-row chi in one Product is safe.
func assertZeroOverHypercube(t *testing.T, require *require.Assertions, vars int, subs []sumcheck.Subpolynomial) {
	t.Helper()
	n := 1 << uint(vars)
	for _, sub := range subs {
		var total field.Element
		for i := 0; i < n; i++ {
			for _, term := range sub.Terms {
				total = field.Add(total, term.EvalAtBooleanPoint(i))
			}
		}
		require.True(total.IsZero(), "%s does not sum to zero over hypercube", sub.Label)
	}
}

// --- TableScan ---

func TestTableScanRoundTrip(t *testing.T) {
	require := require.New(t)
	ref := accessor.TableRef{Table: id("t")}
	data := accessor.NewMemoryAccessor()
	data.AddTable(ref, table(ref, []string{"x"}, map[string]column.Column{
		"x": {Type: column.TypeBigInt, Scalars: fe(1, 2, 3)},
	}), 0)

	scan := proofplan.TableScan{
		Table:   ref,
		Columns: []proofplan.ColumnSelection{{ID: id("x"), Type: column.TypeBigInt}},
	}

	alloc := arena.New()
	fb := proofexpr.NewFirstRoundBuilder(alloc)
	out := scan.FirstRoundEvaluate(fb, data)
	require.Equal(fe(1, 2, 3), out.Columns["x"].Scalars)

	refs := scan.BaseColumnRefs()
	require.Len(refs, 1)

	baseEvals := proofexpr.OneEvalMap{
		refs[0].String():                     field.FromUint64(42),
		"\x00row-count:" + ref.String():       field.FromUint64(3),
	}
	vb := proofexpr.NewVerificationBuilder(nil, nil)
	colEvals, rowCountEval := scan.VerifierEvaluate(vb, baseEvals)
	require.True(colEvals["x"].Equal(field.FromUint64(42)))
	require.True(rowCountEval.Equal(field.FromUint64(3)))
}

// --- Projection ---

func TestProjectionAppliesExprsAndPreservesRowCount(t *testing.T) {
	require := require.New(t)
	ref := accessor.TableRef{Table: id("t")}
	data := accessor.NewMemoryAccessor()
	data.AddTable(ref, table(ref, []string{"a", "b"}, map[string]column.Column{
		"a": {Type: column.TypeBigInt, Scalars: fe(1, 2, 3)},
		"b": {Type: column.TypeBigInt, Scalars: fe(10, 20, 30)},
	}), 0)

	scan := proofplan.TableScan{Table: ref, Columns: []proofplan.ColumnSelection{
		{ID: id("a"), Type: column.TypeBigInt}, {ID: id("b"), Type: column.TypeBigInt},
	}}
	proj := proofplan.Projection{
		Child: scan,
		Columns: []proofplan.ProjectionColumn{
			{ID: id("sum"), Expr: proofexpr.AddExpr{
				Left:  proofexpr.ColumnExpr{Name: "a", Type: column.TypeBigInt},
				Right: proofexpr.ColumnExpr{Name: "b", Type: column.TypeBigInt},
				Type:  column.TypeBigInt,
			}},
		},
	}

	alloc := arena.New()
	fb := proofexpr.NewFinalRoundBuilder(alloc, nil)
	out := proj.FinalRoundEvaluate(fb, data)
	require.Equal(fe(11, 22, 33), out.Columns["sum"].Scalars)
	require.Empty(fb.IntermediateMLEs())

	refs := proj.BaseColumnRefs()
	baseEvals := proofexpr.OneEvalMap{
		refs[0].String():               field.FromUint64(3),
		refs[1].String():               field.FromUint64(5),
		"\x00row-count:" + ref.String(): field.FromUint64(3),
	}
	vb := proofexpr.NewVerificationBuilder(nil, nil)
	colEvals, rowCountEval := proj.VerifierEvaluate(vb, baseEvals)
	require.True(colEvals["sum"].Equal(field.FromUint64(8)))
	require.True(rowCountEval.Equal(field.FromUint64(3)))
}

// --- Filter ---

func filterPlan() (proofplan.Plan, accessor.TableRef) {
	ref := accessor.TableRef{Table: id("t")}
	scan := proofplan.TableScan{Table: ref, Columns: []proofplan.ColumnSelection{
		{ID: id("a"), Type: column.TypeBigInt},
	}}
	f := proofplan.Filter{
		Child: scan,
		Predicate: proofexpr.InequalityExpr{
			Left:       proofexpr.ColumnExpr{Name: "a", Type: column.TypeBigInt},
			Right:      proofexpr.LiteralExpr{Value: field.FromUint64(3), Type: column.TypeBigInt},
			StrictLess: false,
			BitBound:   16,
		},
	}
	return f, ref
}

func TestFilterKeepsMatchingRowsAndIdentitiesHoldOverHypercube(t *testing.T) {
	require := require.New(t)
	f, ref := filterPlan()
	data := accessor.NewMemoryAccessor()
	data.AddTable(ref, table(ref, []string{"a"}, map[string]column.Column{
		"a": {Type: column.TypeBigInt, Scalars: fe(1, 5, 2, 9, 3)},
	}), 0)

	alloc := arena.New()
	fb1 := proofexpr.NewFirstRoundBuilder(alloc)
	firstOut := f.FirstRoundEvaluate(fb1, data)
	require.Equal(fe(1, 2, 3), firstOut.Columns["a"].Scalars)
	require.Equal(2, fb1.NumPostResultChallenges())

	challenges := []field.Element{field.FromUint64(7), field.FromUint64(11)}
	fb2 := proofexpr.NewFinalRoundBuilder(alloc, challenges)
	finalOut := f.FinalRoundEvaluate(fb2, data)
	require.Equal(firstOut.Columns["a"].Scalars, finalOut.Columns["a"].Scalars)

	assertZeroOverHypercube(t, require, mle.NumVars(5), fb2.Subpolynomials())
}

func TestFilterClaimsMatchSubpolynomialsAtArbitraryPoint(t *testing.T) {
	require := require.New(t)
	f, ref := filterPlan()
	data := accessor.NewMemoryAccessor()
	data.AddTable(ref, table(ref, []string{"a"}, map[string]column.Column{
		"a": {Type: column.TypeBigInt, Scalars: fe(1, 5, 2, 9, 3)},
	}), 0)

	alloc := arena.New()
	challenges := []field.Element{field.FromUint64(7), field.FromUint64(11)}
	fb := proofexpr.NewFinalRoundBuilder(alloc, challenges)
	f.FinalRoundEvaluate(fb, data)
	require.Len(fb.Subpolynomials(), 3)

	r := []field.Element{field.FromUint64(4), field.FromUint64(6), field.FromUint64(2)}
	wantEvals := make([]field.Element, len(fb.Subpolynomials()))
	for i, sub := range fb.Subpolynomials() {
		wantEvals[i] = evalTermsAt(sub.Terms, r)
	}

	mleEvals := make([]field.Element, len(fb.IntermediateMLEs()))
	for i, m := range fb.IntermediateMLEs() {
		mleEvals[i] = mle.Evaluate(m, r)
	}
	aEval := mle.Evaluate(mle.New(fe(1, 5, 2, 9, 3)), r)

	refs := f.BaseColumnRefs()
	baseEvals := proofexpr.OneEvalMap{
		refs[0].String():                aEval,
		"\x00row-count:" + ref.String(): field.FromUint64(5),
	}

	vb := proofexpr.NewVerificationBuilder(challenges, mleEvals)
	_, chiEval := f.VerifierEvaluate(vb, baseEvals)
	require.Equal(0, vb.RemainingMLEEvaluations())
	require.NotNil(chiEval)

	claims := vb.SubpolynomialClaims()
	require.Len(claims, 3)
	for i, claim := range claims {
		require.True(claim.Eval().Equal(wantEvals[i]), "claim %d: %s != %s", i, claim.Eval().String(), wantEvals[i].String())
	}
}

// --- GroupBy ---

func TestGroupBySumsPerKeyAndIdentitiesHoldOverHypercube(t *testing.T) {
	require := require.New(t)
	ref := accessor.TableRef{Table: id("t")}
	scan := proofplan.TableScan{Table: ref, Columns: []proofplan.ColumnSelection{
		{ID: id("k"), Type: column.TypeBigInt}, {ID: id("v"), Type: column.TypeBigInt},
	}}
	g := proofplan.GroupBy{
		KeyID: id("k"),
		Key:   proofexpr.ColumnExpr{Name: "k", Type: column.TypeBigInt},
		Sums: []proofplan.GroupBySum{
			{ID: id("total"), Expr: proofexpr.ColumnExpr{Name: "v", Type: column.TypeBigInt}},
		},
		CountAlias:  id("n"),
		Child:       scan,
		KeyBitBound: 16,
	}

	data := accessor.NewMemoryAccessor()
	data.AddTable(ref, table(ref, []string{"k", "v"}, map[string]column.Column{
		"k": {Type: column.TypeBigInt, Scalars: fe(1, 2, 1, 2, 1)},
		"v": {Type: column.TypeBigInt, Scalars: fe(10, 20, 30, 40, 50)},
	}), 0)

	alloc := arena.New()
	fb1 := proofexpr.NewFirstRoundBuilder(alloc)
	firstOut := g.FirstRoundEvaluate(fb1, data)
	require.Equal(fe(1, 2), firstOut.Columns["k"].Scalars)
	require.Equal(fe(90, 60), firstOut.Columns["total"].Scalars)
	require.Equal(fe(3, 2), firstOut.Columns["n"].Scalars)
	require.Equal(1, fb1.NumPostResultChallenges())

	challenges := []field.Element{field.FromUint64(17)}
	fb2 := proofexpr.NewFinalRoundBuilder(alloc, challenges)
	finalOut := g.FinalRoundEvaluate(fb2, data)
	require.Equal(firstOut.Columns["k"].Scalars, finalOut.Columns["k"].Scalars)

	assertZeroOverHypercube(t, require, mle.NumVars(5), fb2.Subpolynomials())
}

// --- Union ---

func TestUnionConcatenatesChildrenAndIdentitiesHoldOverHypercube(t *testing.T) {
	require := require.New(t)
	refA := accessor.TableRef{Table: id("ta")}
	refB := accessor.TableRef{Table: id("tb")}
	scanA := proofplan.TableScan{Table: refA, Columns: []proofplan.ColumnSelection{{ID: id("x"), Type: column.TypeBigInt}}}
	scanB := proofplan.TableScan{Table: refB, Columns: []proofplan.ColumnSelection{{ID: id("x"), Type: column.TypeBigInt}}}
	u := proofplan.Union{
		Children: []proofplan.Plan{scanA, scanB},
		Schema:   []accessor.ColumnSchema{{ID: id("x"), Type: column.TypeBigInt}},
	}

	data := accessor.NewMemoryAccessor()
	data.AddTable(refA, table(refA, []string{"x"}, map[string]column.Column{"x": {Type: column.TypeBigInt, Scalars: fe(1, 2)}}), 0)
	data.AddTable(refB, table(refB, []string{"x"}, map[string]column.Column{"x": {Type: column.TypeBigInt, Scalars: fe(3, 4, 5)}}), 0)

	alloc := arena.New()
	fb1 := proofexpr.NewFirstRoundBuilder(alloc)
	firstOut := u.FirstRoundEvaluate(fb1, data)
	require.Equal(fe(1, 2, 3, 4, 5), firstOut.Columns["x"].Scalars)
	require.Equal(2, fb1.NumPostResultChallenges())

	challenges := []field.Element{field.FromUint64(13), field.FromUint64(29)}
	fb2 := proofexpr.NewFinalRoundBuilder(alloc, challenges)
	finalOut := u.FinalRoundEvaluate(fb2, data)
	require.Equal(firstOut.Columns["x"].Scalars, finalOut.Columns["x"].Scalars)

	assertZeroOverHypercube(t, require, mle.NumVars(5), fb2.Subpolynomials())
}

// --- Slice ---

func TestSliceClampsAndIdentitiesHoldOverHypercube(t *testing.T) {
	require := require.New(t)
	ref := accessor.TableRef{Table: id("t")}
	scan := proofplan.TableScan{Table: ref, Columns: []proofplan.ColumnSelection{{ID: id("x"), Type: column.TypeBigInt}}}
	s := proofplan.Slice{Offset: 1, Limit: 2, Child: scan}

	data := accessor.NewMemoryAccessor()
	data.AddTable(ref, table(ref, []string{"x"}, map[string]column.Column{"x": {Type: column.TypeBigInt, Scalars: fe(10, 20, 30, 40, 50)}}), 0)

	alloc := arena.New()
	fb1 := proofexpr.NewFirstRoundBuilder(alloc)
	firstOut := s.FirstRoundEvaluate(fb1, data)
	require.Equal(fe(20, 30), firstOut.Columns["x"].Scalars)
	require.Equal(2, fb1.NumPostResultChallenges())

	challenges := []field.Element{field.FromUint64(3), field.FromUint64(9)}
	fb2 := proofexpr.NewFinalRoundBuilder(alloc, challenges)
	finalOut := s.FinalRoundEvaluate(fb2, data)
	require.Equal(firstOut.Columns["x"].Scalars, finalOut.Columns["x"].Scalars)

	assertZeroOverHypercube(t, require, mle.NumVars(5), fb2.Subpolynomials())
}

func TestSliceOutOfRangeBoundsClampLikeSQLLimitOffset(t *testing.T) {
	require := require.New(t)
	ref := accessor.TableRef{Table: id("t")}
	scan := proofplan.TableScan{Table: ref, Columns: []proofplan.ColumnSelection{{ID: id("x"), Type: column.TypeBigInt}}}
	data := accessor.NewMemoryAccessor()
	data.AddTable(ref, table(ref, []string{"x"}, map[string]column.Column{"x": {Type: column.TypeBigInt, Scalars: fe(1, 2, 3)}}), 0)

	negOffset := proofplan.Slice{Offset: -5, Limit: 2, Child: scan}
	alloc := arena.New()
	fb := proofexpr.NewFirstRoundBuilder(alloc)
	require.Equal(fe(1, 2), negOffset.FirstRoundEvaluate(fb, data).Columns["x"].Scalars)

	negLimit := proofplan.Slice{Offset: 1, Limit: -1, Child: scan}
	require.Equal(fe(2, 3), negLimit.FirstRoundEvaluate(fb, data).Columns["x"].Scalars)

	beyond := proofplan.Slice{Offset: 10, Limit: 5, Child: scan}
	require.Equal(0, beyond.FirstRoundEvaluate(fb, data).RowCount)
}

// --- Aggregate (plan) ---

func TestPlanAggregateSumsWholeChildAndClaimsConstantOneRow(t *testing.T) {
	require := require.New(t)
	ref := accessor.TableRef{Table: id("t")}
	scan := proofplan.TableScan{Table: ref, Columns: []proofplan.ColumnSelection{{ID: id("v"), Type: column.TypeBigInt}}}
	agg := proofplan.Aggregate{
		Child: scan,
		Columns: []proofplan.AggregateColumn{
			{ID: id("total"), Expr: proofexpr.AggregateExpr{Op: proofexpr.AggregateSum, Inner: proofexpr.ColumnExpr{Name: "v", Type: column.TypeBigInt}}},
		},
	}

	data := accessor.NewMemoryAccessor()
	data.AddTable(ref, table(ref, []string{"v"}, map[string]column.Column{"v": {Type: column.TypeBigInt, Scalars: fe(1, 2, 3, 4)}}), 0)

	alloc := arena.New()
	fb := proofexpr.NewFinalRoundBuilder(alloc, nil)
	out := agg.FinalRoundEvaluate(fb, data)
	require.True(out.Columns["total"].Scalars[0].Equal(field.FromUint64(10)))
	require.Len(fb.IntermediateMLEs(), 1)

	refs := agg.BaseColumnRefs()
	baseEvals := proofexpr.OneEvalMap{
		refs[0].String():                field.FromUint64(1),
		"\x00row-count:" + ref.String(): field.FromUint64(4),
	}
	vb := proofexpr.NewVerificationBuilder(nil, []field.Element{field.FromUint64(10)})
	colEvals, rowCountEval := agg.VerifierEvaluate(vb, baseEvals)
	require.True(colEvals["total"].Equal(field.FromUint64(10)))
	require.True(rowCountEval.Equal(field.One()))
}

// --- Empty ---

func TestEmptyHasZeroRowsAndConstantClaims(t *testing.T) {
	require := require.New(t)
	e := proofplan.Empty{Schema: []accessor.ColumnSchema{{ID: id("x"), Type: column.TypeBigInt}}}
	require.Empty(e.BaseColumnRefs())

	alloc := arena.New()
	fb := proofexpr.NewFirstRoundBuilder(alloc)
	out := e.FirstRoundEvaluate(fb, nil)
	require.Equal(0, out.RowCount)

	vb := proofexpr.NewVerificationBuilder(nil, nil)
	colEvals, rowCountEval := e.VerifierEvaluate(vb, nil)
	require.True(colEvals["x"].IsZero())
	require.True(rowCountEval.IsZero())
}

// --- SortMergeJoin ---

func TestSortMergeJoinCrossProductsPerKeyAndIdentitiesHoldOverHypercube(t *testing.T) {
	require := require.New(t)
	refL := accessor.TableRef{Table: id("l")}
	refR := accessor.TableRef{Table: id("r")}
	scanL := proofplan.TableScan{Table: refL, Columns: []proofplan.ColumnSelection{
		{ID: id("k"), Type: column.TypeBigInt}, {ID: id("lv"), Type: column.TypeBigInt},
	}}
	scanR := proofplan.TableScan{Table: refR, Columns: []proofplan.ColumnSelection{
		{ID: id("k"), Type: column.TypeBigInt}, {ID: id("rv"), Type: column.TypeBigInt},
	}}
	j := proofplan.SortMergeJoin{
		Left:        scanL,
		Right:       scanR,
		LeftKey:     proofexpr.ColumnExpr{Name: "k", Type: column.TypeBigInt},
		RightKey:    proofexpr.ColumnExpr{Name: "k", Type: column.TypeBigInt},
		LeftColumns: []proofplan.JoinColumn{{ID: id("lv_out"), Source: id("lv")}},
		RightColumns: []proofplan.JoinColumn{{ID: id("rv_out"), Source: id("rv")}},
		KeyBitBound: 16,
	}

	data := accessor.NewMemoryAccessor()
	// key 1 has 2 left rows, 2 right rows -> 4 output rows; key 2 has 1/1 -> 1 row.
	data.AddTable(refL, table(refL, []string{"k", "lv"}, map[string]column.Column{
		"k":  {Type: column.TypeBigInt, Scalars: fe(1, 1, 2)},
		"lv": {Type: column.TypeBigInt, Scalars: fe(100, 101, 200)},
	}), 0)
	data.AddTable(refR, table(refR, []string{"k", "rv"}, map[string]column.Column{
		"k":  {Type: column.TypeBigInt, Scalars: fe(1, 1, 2)},
		"rv": {Type: column.TypeBigInt, Scalars: fe(900, 901, 902)},
	}), 0)

	alloc := arena.New()
	fb1 := proofexpr.NewFirstRoundBuilder(alloc)
	firstOut := j.FirstRoundEvaluate(fb1, data)
	require.Equal(5, firstOut.RowCount) // 2*2 + 1*1
	require.Equal(1, fb1.NumPostResultChallenges())

	challenges := []field.Element{field.FromUint64(23)}
	fb2 := proofexpr.NewFinalRoundBuilder(alloc, challenges)
	finalOut := j.FinalRoundEvaluate(fb2, data)
	require.Equal(firstOut.RowCount, finalOut.RowCount)

	assertZeroOverHypercube(t, require, mle.NumVars(5), fb2.Subpolynomials())
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

package proofplan

import (
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/accessor"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/column"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/field"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/mle"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/proofexpr"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/sumcheck"
)

// Filter keeps the child's rows for which Predicate evaluates true,
// preserving order, per spec.md §4.5. Predicate must be boolean.
//
// The row selection itself isn't directly checkable by the verifier (it
// never sees which rows were kept), so Filter commits two auxiliary
// columns, c★ and d★, and a length-m all-ones column chi (m = output row
// count), and proves three identities grounded on
// original_source's dense_filter_expr.rs (prove_filter/verify_filter):
//
//	c★·s − d★ = 0                (ZeroSum, s = predicate column)
//	c★·f_in − 1_n = 0             (Identity, forces c★ = 1/f_in everywhere)
//	d★·f_out − chi = 0            (Identity, forces d★ = 1/f_out on the
//	                               first m rows and 0 after)
//
// where f_in/f_out are the same alpha+Σbeta^k-folded row hash, computed
// over the input and output columns respectively in schema order. Because
// f_in and f_out use the same alpha/beta and the same per-column order,
// two rows fold to the same value only if their contents match, so the
// ZeroSum identity (a sum of reciprocals of row hashes) binds the selected
// input multiset to the output multiset.
type Filter struct {
	Predicate proofexpr.Expr
	Child     Plan
}

func (Filter) planKind() {}

func (f Filter) OutputSchema() []accessor.ColumnSchema { return f.Child.OutputSchema() }

func (f Filter) BaseColumnRefs() []accessor.ColumnRef { return f.Child.BaseColumnRefs() }

func (f Filter) FirstRoundEvaluate(b *proofexpr.FirstRoundBuilder, data accessor.DataAccessor) column.Table {
	childTable := f.Child.FirstRoundEvaluate(b, data)
	sel := f.Predicate.FirstRoundEvaluate(b, childTable)
	out := selectRows(childTable, sel.Scalars)
	b.RequestPostResultChallenges(2)
	return out
}

func (f Filter) FinalRoundEvaluate(b *proofexpr.FinalRoundBuilder, data accessor.DataAccessor) column.Table {
	childTable := f.Child.FinalRoundEvaluate(b, data)
	sel := f.Predicate.FinalRoundEvaluate(b, childTable)
	out := selectRows(childTable, sel.Scalars)

	alpha := b.NextChallenge()
	beta := b.NextChallenge()

	n := childTable.RowCount
	m := out.RowCount
	inCols := columnsInOrder(childTable)
	outCols := columnsInOrder(out)

	cFold := foldColumns(alpha, beta, inCols, n)
	dFold := foldColumns(alpha, beta, outCols, m)

	cStar := append([]field.Element(nil), cFold...)
	field.BatchInvert(cStar)

	dStar := append([]field.Element(nil), dFold...)
	field.BatchInvert(dStar)

	chi := make([]field.Element, m)
	for i := range chi {
		chi[i] = field.One()
	}

	for _, col := range outCols {
		b.ProduceIntermediateMLE(col)
	}
	cStarMLE := b.ProduceIntermediateMLE(cStar)
	dStarMLE := b.ProduceIntermediateMLE(dStar)
	chiMLE := b.ProduceIntermediateMLE(chi)

	selMLE := mle.New(sel.Scalars)
	cFoldMLE := mle.New(cFold)
	dFoldMLE := mle.New(dFold)

	b.ProduceSubpolynomial(sumcheck.Subpolynomial{
		Label:  "filter-membership",
		Flavor: sumcheck.ZeroSum,
		Terms: []mle.Product{
			{Coefficient: field.One(), Factors: []mle.MLE{cStarMLE, selMLE}},
			{Coefficient: field.Neg(field.One()), Factors: []mle.MLE{dStarMLE}},
		},
		Degree: 2,
	})
	b.ProduceSubpolynomial(sumcheck.Subpolynomial{
		Label:  "filter-c-star",
		Flavor: sumcheck.Identity,
		Terms: []mle.Product{
			{Coefficient: field.One(), Factors: []mle.MLE{cStarMLE, cFoldMLE}},
			{Coefficient: field.Neg(field.One()), Factors: []mle.MLE{}},
		},
		Degree: 2,
	})
	b.ProduceSubpolynomial(sumcheck.Subpolynomial{
		Label:  "filter-d-star",
		Flavor: sumcheck.Identity,
		Terms: []mle.Product{
			{Coefficient: field.One(), Factors: []mle.MLE{dStarMLE, dFoldMLE}},
			{Coefficient: field.Neg(field.One()), Factors: []mle.MLE{chiMLE}},
		},
		Degree: 2,
	})

	return out
}

func (f Filter) VerifierEvaluate(b *proofexpr.VerificationBuilder, baseEvals proofexpr.OneEvalMap) (proofexpr.OneEvalMap, field.Element) {
	childEvals, childRowCountEval := f.Child.VerifierEvaluate(b, baseEvals)
	scope := outputTableOneEvalMap(childEvals, childRowCountEval)
	selEval := f.Predicate.VerifierEvaluate(b, scope)

	schema := f.Child.OutputSchema()
	inEvals := make([]field.Element, len(schema))
	for i, c := range schema {
		inEvals[i] = childEvals[c.ID.Name()]
	}

	outEvals := make([]field.Element, len(schema))
	colEvals := make(proofexpr.OneEvalMap, len(schema))
	for i, c := range schema {
		e := b.NextMLEEvaluation()
		outEvals[i] = e
		colEvals[c.ID.Name()] = e
	}

	cStarEval := b.NextMLEEvaluation()
	dStarEval := b.NextMLEEvaluation()
	chiEval := b.NextMLEEvaluation()

	alpha := b.NextChallenge()
	beta := b.NextChallenge()
	cFoldEval := foldEvals(alpha, beta, inEvals)
	dFoldEval := foldEvals(alpha, beta, outEvals)

	b.ProduceSubpolynomialClaim(sumcheck.ZeroSum, []proofexpr.ScalarTerm{
		{Coefficient: field.One(), Factors: []field.Element{cStarEval, selEval}},
		{Coefficient: field.Neg(field.One()), Factors: []field.Element{dStarEval}},
	})
	b.ProduceSubpolynomialClaim(sumcheck.Identity, []proofexpr.ScalarTerm{
		{Coefficient: field.One(), Factors: []field.Element{cStarEval, cFoldEval}},
		{Coefficient: field.Neg(field.One()), Factors: nil},
	})
	b.ProduceSubpolynomialClaim(sumcheck.Identity, []proofexpr.ScalarTerm{
		{Coefficient: field.One(), Factors: []field.Element{dStarEval, dFoldEval}},
		{Coefficient: field.Neg(field.One()), Factors: []field.Element{chiEval}},
	})

	return colEvals, chiEval
}

// selectRows keeps the rows of t for which sel[i] is the field element 1,
// in order, across every column.
func selectRows(t column.Table, sel []field.Element) column.Table {
	keep := make([]int, 0, len(sel))
	for i, s := range sel {
		if s.Equal(field.One()) {
			keep = append(keep, i)
		}
	}
	cols := make(map[string]column.Column, len(t.Order))
	for _, name := range t.Order {
		c := t.Columns[name]
		cols[name] = sliceColumn(c, keep)
	}
	tbl, err := column.NewTable(append([]string(nil), t.Order...), cols)
	if err != nil {
		panic("proofplan: Filter: " + err.Error())
	}
	return tbl
}

func sliceColumn(c column.Column, keep []int) column.Column {
	out := column.Column{Type: c.Type, Decimal: c.Decimal, Timestamp: c.Timestamp}
	out.Scalars = make([]field.Element, len(keep))
	for i, k := range keep {
		out.Scalars[i] = c.Scalars[k]
	}
	if c.Bytes != nil {
		out.Bytes = make([][]byte, len(keep))
		for i, k := range keep {
			out.Bytes[i] = c.Bytes[k]
		}
	}
	return out
}

// columnsInOrder returns t's columns as plain scalar slices, in t.Order.
func columnsInOrder(t column.Table) [][]field.Element {
	cols := make([][]field.Element, len(t.Order))
	for i, name := range t.Order {
		cols[i] = t.Columns[name].Scalars
	}
	return cols
}

var _ Plan = Filter{}

package proofplan

import (
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/accessor"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/column"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/field"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/mle"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/proofexpr"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/sumcheck"
)

// Slice returns child rows [Offset, Offset+Limit), per spec.md §3's
// `Slice(offset, limit, child)`. A negative or out-of-range Limit/Offset
// clamps to the child's actual row count, matching ordinary SQL
// `LIMIT`/`OFFSET` semantics rather than erroring.
//
// The output is a contiguous sub-range of the child's row order. It is
// proven the way Filter proves a selection (see FinalRoundEvaluate): the
// c★/d★ reciprocal multiset argument, with a committed selector that is 1
// exactly on child rows [start, end).
type Slice struct {
	Offset, Limit int
	Child         Plan
}

func (Slice) planKind() {}

func (s Slice) OutputSchema() []accessor.ColumnSchema { return s.Child.OutputSchema() }
func (s Slice) BaseColumnRefs() []accessor.ColumnRef  { return s.Child.BaseColumnRefs() }

func (s Slice) bounds(n int) (start, end int) {
	start = s.Offset
	if start < 0 {
		start = 0
	}
	if start > n {
		start = n
	}
	end = start + s.Limit
	if s.Limit < 0 || end > n {
		end = n
	}
	if end < start {
		end = start
	}
	return start, end
}

func (s Slice) slice(childTable column.Table) column.Table {
	start, end := s.bounds(childTable.RowCount)
	cols := make(map[string]column.Column, len(childTable.Order))
	for _, name := range childTable.Order {
		cols[name] = childTable.Columns[name].Slice(start, end)
	}
	tbl, err := column.NewTable(append([]string(nil), childTable.Order...), cols)
	if err != nil {
		panic("proofplan: Slice: " + err.Error())
	}
	return tbl
}

func (s Slice) FirstRoundEvaluate(b *proofexpr.FirstRoundBuilder, data accessor.DataAccessor) column.Table {
	childTable := s.Child.FirstRoundEvaluate(b, data)
	b.RequestPostResultChallenges(2)
	return s.slice(childTable)
}

// FinalRoundEvaluate proves Slice's output the same way Filter proves an
// arbitrary selection: a length-n Identity shift (`out[i] = in[i+start]`)
// is awkward to express directly in a sumcheck subpolynomial, which is
// pointwise over one shared hypercube index rather than an indexed shift,
// so Slice is instead modeled as Filter with a deterministic,
// data-independent selector `sel[i] = 1 iff start<=i<end` — the same
// c★/d★ reciprocal multiset argument, specialized to a public selector.
func (s Slice) FinalRoundEvaluate(b *proofexpr.FinalRoundBuilder, data accessor.DataAccessor) column.Table {
	childTable := s.Child.FinalRoundEvaluate(b, data)
	start, end := s.bounds(childTable.RowCount)
	out := s.slice(childTable)

	alpha := b.NextChallenge()
	beta := b.NextChallenge()

	n := childTable.RowCount
	m := out.RowCount
	sel := make([]field.Element, n)
	for i := start; i < end; i++ {
		sel[i] = field.One()
	}

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
	// sel is a public, offset/limit-derived indicator (not secret data), but
	// committed the same way chi is rather than asking the verifier to
	// evaluate a contiguous-range indicator's continuous extension in
	// closed form — consistent with this package's existing convention of
	// committing/opening public-shape columns rather than special-casing
	// their evaluation.
	selMLE := b.ProduceIntermediateMLE(sel)
	cFoldMLE := mle.New(cFold)
	dFoldMLE := mle.New(dFold)

	b.ProduceSubpolynomial(sumcheck.Subpolynomial{
		Label:  "slice-membership",
		Flavor: sumcheck.ZeroSum,
		Terms: []mle.Product{
			{Coefficient: field.One(), Factors: []mle.MLE{cStarMLE, selMLE}},
			{Coefficient: field.Neg(field.One()), Factors: []mle.MLE{dStarMLE}},
		},
		Degree: 2,
	})
	b.ProduceSubpolynomial(sumcheck.Subpolynomial{
		Label:  "slice-c-star",
		Flavor: sumcheck.Identity,
		Terms: []mle.Product{
			{Coefficient: field.One(), Factors: []mle.MLE{cStarMLE, cFoldMLE}},
			{Coefficient: field.Neg(field.One()), Factors: []mle.MLE{}},
		},
		Degree: 2,
	})
	b.ProduceSubpolynomial(sumcheck.Subpolynomial{
		Label:  "slice-d-star",
		Flavor: sumcheck.Identity,
		Terms: []mle.Product{
			{Coefficient: field.One(), Factors: []mle.MLE{dStarMLE, dFoldMLE}},
			{Coefficient: field.Neg(field.One()), Factors: []mle.MLE{chiMLE}},
		},
		Degree: 2,
	})

	return out
}

func (s Slice) VerifierEvaluate(b *proofexpr.VerificationBuilder, baseEvals proofexpr.OneEvalMap) (proofexpr.OneEvalMap, field.Element) {
	childEvals, _ := s.Child.VerifierEvaluate(b, baseEvals)

	schema := s.Child.OutputSchema()
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
	selEval := b.NextMLEEvaluation()

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

var _ Plan = Slice{}

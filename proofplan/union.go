package proofplan

import (
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/accessor"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/column"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/field"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/mle"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/proofexpr"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/sumcheck"
)

// Union concatenates k children sharing one declared Schema, per spec.md
// §4.5's "Union-all": output length N = Σ nᵢ. Every input row is kept (the
// selector is implicitly all-ones), so this is Filter's c★/d★ multiset
// argument with k separate c★ vectors, one per child, all reciprocal-summed
// against the single output d★ — "Identities mirror §4.5 Filter but with k
// separate c★ vectors summing to the output side," quoted directly from
// spec.md.
type Union struct {
	Children []Plan
	Schema   []accessor.ColumnSchema
}

func (Union) planKind() {}

func (u Union) OutputSchema() []accessor.ColumnSchema { return u.Schema }

func (u Union) BaseColumnRefs() []accessor.ColumnRef {
	var refs []accessor.ColumnRef
	for _, c := range u.Children {
		refs = append(refs, c.BaseColumnRefs()...)
	}
	return refs
}

func (u Union) concat(tables []column.Table) column.Table {
	order := make([]string, len(u.Schema))
	cols := make(map[string]column.Column, len(u.Schema))
	for i, s := range u.Schema {
		name := s.ID.Name()
		order[i] = name
		var acc column.Column
		for ti, t := range tables {
			c, ok := t.Get(name)
			if !ok {
				panic("proofplan: Union: child is missing column " + name)
			}
			if ti == 0 {
				acc = c
				continue
			}
			merged, err := column.Concat(acc, c)
			if err != nil {
				panic("proofplan: Union: " + err.Error())
			}
			acc = merged
		}
		cols[name] = acc
	}
	tbl, err := column.NewTable(order, cols)
	if err != nil {
		panic("proofplan: Union: " + err.Error())
	}
	return tbl
}

func (u Union) FirstRoundEvaluate(b *proofexpr.FirstRoundBuilder, data accessor.DataAccessor) column.Table {
	tables := make([]column.Table, len(u.Children))
	for i, c := range u.Children {
		tables[i] = c.FirstRoundEvaluate(b, data)
	}
	b.RequestPostResultChallenges(2)
	return u.concat(tables)
}

func (u Union) FinalRoundEvaluate(b *proofexpr.FinalRoundBuilder, data accessor.DataAccessor) column.Table {
	tables := make([]column.Table, len(u.Children))
	for i, c := range u.Children {
		tables[i] = c.FinalRoundEvaluate(b, data)
	}
	out := u.concat(tables)

	alpha := b.NextChallenge()
	beta := b.NextChallenge()

	outCols := columnsInOrder(out)
	for _, col := range outCols {
		b.ProduceIntermediateMLE(col)
	}

	N := out.RowCount
	chi := make([]field.Element, N)
	for i := range chi {
		chi[i] = field.One()
	}
	chiMLE := b.ProduceIntermediateMLE(chi)

	dFold := foldColumns(alpha, beta, outCols, N)
	dStar := append([]field.Element(nil), dFold...)
	field.BatchInvert(dStar)
	dStarMLE := b.ProduceIntermediateMLE(dStar)
	dFoldMLE := mle.New(dFold)

	b.ProduceSubpolynomial(sumcheck.Subpolynomial{
		Label:  "union-d-star",
		Flavor: sumcheck.Identity,
		Terms: []mle.Product{
			{Coefficient: field.One(), Factors: []mle.MLE{dStarMLE, dFoldMLE}},
			{Coefficient: field.Neg(field.One()), Factors: []mle.MLE{chiMLE}},
		},
		Degree: 2,
	})

	cStarMLEs := make([]mle.MLE, len(tables))
	for i, t := range tables {
		inCols := columnsInOrder(t)
		cFold := foldColumns(alpha, beta, inCols, t.RowCount)
		cStar := append([]field.Element(nil), cFold...)
		field.BatchInvert(cStar)
		cStarMLE := b.ProduceIntermediateMLE(cStar)
		cFoldMLE := mle.New(cFold)
		cStarMLEs[i] = cStarMLE

		b.ProduceSubpolynomial(sumcheck.Subpolynomial{
			Label:  "union-c-star",
			Flavor: sumcheck.Identity,
			Terms: []mle.Product{
				{Coefficient: field.One(), Factors: []mle.MLE{cStarMLE, cFoldMLE}},
				{Coefficient: field.Neg(field.One()), Factors: []mle.MLE{}},
			},
			Degree: 2,
		})
	}

	zeroSumTerms := make([]mle.Product, 0, len(cStarMLEs)+1)
	for _, cStarMLE := range cStarMLEs {
		zeroSumTerms = append(zeroSumTerms, mle.Product{Coefficient: field.One(), Factors: []mle.MLE{cStarMLE}})
	}
	zeroSumTerms = append(zeroSumTerms, mle.Product{Coefficient: field.Neg(field.One()), Factors: []mle.MLE{dStarMLE}})
	b.ProduceSubpolynomial(sumcheck.Subpolynomial{
		Label:  "union-membership",
		Flavor: sumcheck.ZeroSum,
		Terms:  zeroSumTerms,
		Degree: 1,
	})

	return out
}

func (u Union) VerifierEvaluate(b *proofexpr.VerificationBuilder, baseEvals proofexpr.OneEvalMap) (proofexpr.OneEvalMap, field.Element) {
	childEvals := make([]proofexpr.OneEvalMap, len(u.Children))
	for i, c := range u.Children {
		childEvals[i], _ = c.VerifierEvaluate(b, baseEvals)
	}

	outEvals := make([]field.Element, len(u.Schema))
	colEvals := make(proofexpr.OneEvalMap, len(u.Schema))
	for i, s := range u.Schema {
		e := b.NextMLEEvaluation()
		outEvals[i] = e
		colEvals[s.ID.Name()] = e
	}

	chiEval := b.NextMLEEvaluation()
	dStarEval := b.NextMLEEvaluation()

	alpha := b.NextChallenge()
	beta := b.NextChallenge()
	dFoldEval := foldEvals(alpha, beta, outEvals)

	b.ProduceSubpolynomialClaim(sumcheck.Identity, []proofexpr.ScalarTerm{
		{Coefficient: field.One(), Factors: []field.Element{dStarEval, dFoldEval}},
		{Coefficient: field.Neg(field.One()), Factors: []field.Element{chiEval}},
	})

	cStarEvals := make([]field.Element, len(u.Children))
	for i := range u.Children {
		inEvals := make([]field.Element, len(u.Schema))
		for j, s := range u.Schema {
			inEvals[j] = childEvals[i][s.ID.Name()]
		}
		cFoldEval := foldEvals(alpha, beta, inEvals)
		cStarEval := b.NextMLEEvaluation()
		cStarEvals[i] = cStarEval

		b.ProduceSubpolynomialClaim(sumcheck.Identity, []proofexpr.ScalarTerm{
			{Coefficient: field.One(), Factors: []field.Element{cStarEval, cFoldEval}},
			{Coefficient: field.Neg(field.One()), Factors: nil},
		})
	}

	terms := make([]proofexpr.ScalarTerm, 0, len(cStarEvals)+1)
	for _, e := range cStarEvals {
		terms = append(terms, proofexpr.ScalarTerm{Coefficient: field.One(), Factors: []field.Element{e}})
	}
	terms = append(terms, proofexpr.ScalarTerm{Coefficient: field.Neg(field.One()), Factors: []field.Element{dStarEval}})
	b.ProduceSubpolynomialClaim(sumcheck.ZeroSum, terms)

	return colEvals, chiEval
}

var _ Plan = Union{}

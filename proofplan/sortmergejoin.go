package proofplan

import (
	"sort"

	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/accessor"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/column"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/field"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/gadgets"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/mle"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/proofexpr"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/sumcheck"
)

// JoinColumn names one output column of a SortMergeJoin and which of the
// child's own output-schema columns it copies.
type JoinColumn struct {
	ID     Identifier
	Source Identifier
}

// SortMergeJoin is an equi-join on a single key expression per side (the
// common single-column case; composite `left_keys`/`right_keys` are a
// documented scope simplification, the same one GroupBy makes), per
// spec.md §4.5's "Sort-merge join" bullet. Output is the full cross
// product of matching rows per distinct key (inner-join semantics: a key
// present on only one side contributes no output rows).
//
// "Sort-merge" names the prover's join STRATEGY, not a verified property
// of the output — unlike GroupBy's own output, nothing here requires the
// join's output rows be sorted. A monotonicity gadget does still run, but
// on an internal table, not the output: see the distinct-key/count table
// built in FinalRoundEvaluate, which needs the same strictly-increasing
// argument GroupBy uses on its key column to make its per-key counts
// well-defined.
type SortMergeJoin struct {
	Left, Right               Plan
	LeftKey, RightKey         proofexpr.Expr
	LeftColumns, RightColumns []JoinColumn
	// KeyBitBound sizes the count table's monotonicity gadget's range
	// decomposition, mirroring GroupBy.KeyBitBound; it must exceed the
	// maximum possible gap between two sorted distinct key values.
	KeyBitBound int
}

func (SortMergeJoin) planKind() {}

func (j SortMergeJoin) OutputSchema() []accessor.ColumnSchema {
	leftSchema := schemaByName(j.Left.OutputSchema())
	rightSchema := schemaByName(j.Right.OutputSchema())
	out := make([]accessor.ColumnSchema, 0, len(j.LeftColumns)+len(j.RightColumns))
	for _, c := range j.LeftColumns {
		out = append(out, accessor.ColumnSchema{ID: c.ID, Type: leftSchema[c.Source.Name()]})
	}
	for _, c := range j.RightColumns {
		out = append(out, accessor.ColumnSchema{ID: c.ID, Type: rightSchema[c.Source.Name()]})
	}
	return out
}

func schemaByName(schema []accessor.ColumnSchema) map[string]column.Type {
	m := make(map[string]column.Type, len(schema))
	for _, s := range schema {
		m[s.ID.Name()] = s.Type
	}
	return m
}

func (j SortMergeJoin) BaseColumnRefs() []accessor.ColumnRef {
	refs := append([]accessor.ColumnRef(nil), j.Left.BaseColumnRefs()...)
	return append(refs, j.Right.BaseColumnRefs()...)
}

// indexGroup is one distinct key's member row indices, in original order.
type indexGroup struct {
	key     field.Element
	indices []int
}

// groupIndices partitions row indices of keyCol by exact key equality,
// returned sorted ascending by key for a fixed, challenge-independent
// order (mirroring groupby.go's groupRows).
func groupIndices(keyCol []field.Element) []indexGroup {
	index := make(map[field.Element]int)
	var groups []indexGroup
	for i, k := range keyCol {
		idx, ok := index[k]
		if !ok {
			idx = len(groups)
			index[k] = idx
			groups = append(groups, indexGroup{key: k})
		}
		groups[idx].indices = append(groups[idx].indices, i)
	}
	sort.Slice(groups, func(a, b int) bool { return field.SignedCmp(groups[a].key, groups[b].key) < 0 })
	return groups
}

// crossJoin computes the matching output row index pairs: every (li, ri)
// whose rows share a key, in left-group then right-group order.
func crossJoin(leftKeyCol, rightKeyCol []field.Element) (leftIdx, rightIdx []int) {
	leftGroups := groupIndices(leftKeyCol)
	rightGroups := groupIndices(rightKeyCol)
	rightByKey := make(map[field.Element]indexGroup, len(rightGroups))
	for _, g := range rightGroups {
		rightByKey[g.key] = g
	}

	for _, lg := range leftGroups {
		rg, ok := rightByKey[lg.key]
		if !ok {
			continue
		}
		for _, li := range lg.indices {
			for _, ri := range rg.indices {
				leftIdx = append(leftIdx, li)
				rightIdx = append(rightIdx, ri)
			}
		}
	}
	return leftIdx, rightIdx
}

// unionGroups returns the sorted union of distinct key values appearing in
// either side's key column, with each entry's row count on the left and on
// the right (0 where the key is absent from that side). This is the table
// FinalRoundEvaluate binds both sides' per-key row counts to, so that the
// join's count-completeness identity (spec.md §4.5: "for each distinct key,
// |L_key|·|R_key| output rows exist") rests on counts the prover cannot
// choose freely, rather than trusting an unverified per-row weight.
func unionGroups(leftKeyCol, rightKeyCol []field.Element) (keys, leftCount, rightCount []field.Element) {
	leftByKey := make(map[field.Element]int)
	for _, g := range groupIndices(leftKeyCol) {
		leftByKey[g.key] = len(g.indices)
	}
	rightByKey := make(map[field.Element]int)
	for _, g := range groupIndices(rightKeyCol) {
		rightByKey[g.key] = len(g.indices)
	}

	seen := make(map[field.Element]struct{}, len(leftByKey)+len(rightByKey))
	var all []field.Element
	for _, col := range [][]field.Element{leftKeyCol, rightKeyCol} {
		for _, k := range col {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			all = append(all, k)
		}
	}
	sort.Slice(all, func(a, b int) bool { return field.SignedCmp(all[a], all[b]) < 0 })

	leftCount = make([]field.Element, len(all))
	rightCount = make([]field.Element, len(all))
	for i, k := range all {
		leftCount[i] = field.FromUint64(uint64(leftByKey[k]))
		rightCount[i] = field.FromUint64(uint64(rightByKey[k]))
	}
	return all, leftCount, rightCount
}

func (j SortMergeJoin) buildOutput(leftTable, rightTable column.Table, leftIdx, rightIdx []int) column.Table {
	order := make([]string, 0, len(j.LeftColumns)+len(j.RightColumns))
	cols := make(map[string]column.Column, len(j.LeftColumns)+len(j.RightColumns))
	for _, c := range j.LeftColumns {
		src := leftTable.Columns[c.Source.Name()]
		order = append(order, c.ID.Name())
		cols[c.ID.Name()] = sliceColumn(src, leftIdx)
	}
	for _, c := range j.RightColumns {
		src := rightTable.Columns[c.Source.Name()]
		order = append(order, c.ID.Name())
		cols[c.ID.Name()] = sliceColumn(src, rightIdx)
	}
	tbl, err := column.NewTable(order, cols)
	if err != nil {
		panic("proofplan: SortMergeJoin: " + err.Error())
	}
	return tbl
}

func (j SortMergeJoin) FirstRoundEvaluate(b *proofexpr.FirstRoundBuilder, data accessor.DataAccessor) column.Table {
	leftTable := j.Left.FirstRoundEvaluate(b, data)
	rightTable := j.Right.FirstRoundEvaluate(b, data)
	leftKeyCol := j.LeftKey.FirstRoundEvaluate(b, leftTable).Scalars
	rightKeyCol := j.RightKey.FirstRoundEvaluate(b, rightTable).Scalars
	leftIdx, rightIdx := crossJoin(leftKeyCol, rightKeyCol)
	b.RequestPostResultChallenges(1)
	return j.buildOutput(leftTable, rightTable, leftIdx, rightIdx)
}

// weightedLogUp registers the three identities of a weighted multiset
// lookup (filter.go's c★/d★ shape, generalized to carry a weight instead
// of an implicit 0/1 selector, exactly as groupby.go's logup argument
// does): commits cStar = weight/(xi-keyIn) over keyIn, dStar = 1/(xi-k)
// over the other side's denominators (denomOut, precomputed by the
// caller), and proves cStar·denomIn-weight=0, dStar·denomOut-1=0,
// Σcstar-Σdstar=0. Used here twice: once per side, to bind that side's
// per-key row count to its real key column (keyIn = the shared
// distinct-key table, weight = that side's count column, denomOut = the
// side's full key column).
func weightedLogUp(b *proofexpr.FinalRoundBuilder, label string, xi field.Element, keyIn, weight []field.Element, denomOut []field.Element) {
	denomIn := make([]field.Element, len(keyIn))
	for i, k := range keyIn {
		denomIn[i] = field.Sub(xi, k)
	}
	invDenomIn := append([]field.Element(nil), denomIn...)
	field.BatchInvert(invDenomIn)
	invDenomOut := append([]field.Element(nil), denomOut...)
	field.BatchInvert(invDenomOut)

	cStar := make([]field.Element, len(keyIn))
	for i := range cStar {
		cStar[i] = field.Mul(weight[i], invDenomIn[i])
	}
	dStar := invDenomOut

	cStarMLE := b.ProduceIntermediateMLE(cStar)
	dStarMLE := b.ProduceIntermediateMLE(dStar)
	denomInMLE := mle.New(denomIn)
	denomOutMLE := mle.New(denomOut)
	weightMLE := mle.New(weight)

	b.ProduceSubpolynomial(sumcheck.Subpolynomial{
		Label:  label + "-c-star",
		Flavor: sumcheck.Identity,
		Terms: []mle.Product{
			{Coefficient: field.One(), Factors: []mle.MLE{cStarMLE, denomInMLE}},
			{Coefficient: field.Neg(field.One()), Factors: []mle.MLE{weightMLE}},
		},
		Degree: 2,
	})
	b.ProduceSubpolynomial(sumcheck.Subpolynomial{
		Label:  label + "-d-star",
		Flavor: sumcheck.Identity,
		Terms: []mle.Product{
			{Coefficient: field.One(), Factors: []mle.MLE{dStarMLE, denomOutMLE}},
			{Coefficient: field.Neg(field.One()), Factors: []mle.MLE{}},
		},
		Degree: 2,
	})
	b.ProduceSubpolynomial(sumcheck.Subpolynomial{
		Label:  label + "-logup",
		Flavor: sumcheck.ZeroSum,
		Terms: []mle.Product{
			{Coefficient: field.One(), Factors: []mle.MLE{cStarMLE}},
			{Coefficient: field.Neg(field.One()), Factors: []mle.MLE{dStarMLE}},
		},
		Degree: 1,
	})
}

func (j SortMergeJoin) FinalRoundEvaluate(b *proofexpr.FinalRoundBuilder, data accessor.DataAccessor) column.Table {
	leftTable := j.Left.FinalRoundEvaluate(b, data)
	rightTable := j.Right.FinalRoundEvaluate(b, data)
	leftKeyCol := j.LeftKey.FinalRoundEvaluate(b, leftTable).Scalars
	rightKeyCol := j.RightKey.FinalRoundEvaluate(b, rightTable).Scalars
	leftIdx, rightIdx := crossJoin(leftKeyCol, rightKeyCol)
	out := j.buildOutput(leftTable, rightTable, leftIdx, rightIdx)

	for _, name := range out.Order {
		b.ProduceIntermediateMLE(out.Columns[name].Scalars)
	}
	chi := make([]field.Element, out.RowCount)
	for i := range chi {
		chi[i] = field.One()
	}
	b.ProduceIntermediateMLE(chi)

	leftKeyOut := make([]field.Element, len(leftIdx))
	for i, li := range leftIdx {
		leftKeyOut[i] = leftKeyCol[li]
	}
	rightKeyOut := make([]field.Element, len(rightIdx))
	for i, ri := range rightIdx {
		rightKeyOut[i] = rightKeyCol[ri]
	}
	b.ProduceIntermediateMLE(leftKeyOut)
	b.ProduceIntermediateMLE(rightKeyOut)

	// distinctKey/leftCount/rightCount is an independently grouped-and-
	// counted key table (the GroupBy-style count argument groupby.go
	// already builds, reused here): strictly increasing so every key
	// appears at most once, with leftCount[v]/rightCount[v] bound below to
	// the real number of rows sharing v on each side. Output
	// count-completeness then rests on leftCount[v]*rightCount[v] instead
	// of a prover-trusted per-row weight.
	distinctKey, leftCount, rightCount := unionGroups(leftKeyCol, rightKeyCol)
	b.ProduceIntermediateMLE(distinctKey)

	aux := gadgets.BuildMonotonic(b.Arena(), "sortmergejoin-key", distinctKey, j.KeyBitBound)
	for _, bits := range aux.Range.MagnitudeBits {
		b.ProduceIntermediateMLE(bits)
	}
	b.ProduceIntermediateMLE(aux.Range.SignBit)
	b.ProduceIntermediateMLE(aux.Diff)
	for _, sub := range aux.Subpolynomials {
		b.ProduceSubpolynomial(sub)
	}

	leftCountMLE := b.ProduceIntermediateMLE(leftCount)
	rightCountMLE := b.ProduceIntermediateMLE(rightCount)

	xi := b.NextChallenge()

	denomFullLeft := make([]field.Element, len(leftKeyCol))
	for i, k := range leftKeyCol {
		denomFullLeft[i] = field.Sub(xi, k)
	}
	denomFullRight := make([]field.Element, len(rightKeyCol))
	for i, k := range rightKeyCol {
		denomFullRight[i] = field.Sub(xi, k)
	}
	weightedLogUp(b, "join-left-count", xi, distinctKey, leftCount, denomFullLeft)
	weightedLogUp(b, "join-right-count", xi, distinctKey, rightCount, denomFullRight)

	// cStar's numerator is leftCount[v]*rightCount[v] directly (no separate
	// commitment needed: the Identity term below multiplies the two
	// already-committed count MLEs), so the output completeness check
	// below is tied to row counts bound, not asserted.
	denomDistinct := make([]field.Element, len(distinctKey))
	for i, k := range distinctKey {
		denomDistinct[i] = field.Sub(xi, k)
	}
	invDenomDistinct := append([]field.Element(nil), denomDistinct...)
	field.BatchInvert(invDenomDistinct)
	cStar := make([]field.Element, len(distinctKey))
	for i := range cStar {
		cStar[i] = field.Mul(field.Mul(leftCount[i], rightCount[i]), invDenomDistinct[i])
	}
	cStarMLE := b.ProduceIntermediateMLE(cStar)
	denomDistinctMLE := mle.New(denomDistinct)

	b.ProduceSubpolynomial(sumcheck.Subpolynomial{
		Label:  "join-count-c-star",
		Flavor: sumcheck.Identity,
		Terms: []mle.Product{
			{Coefficient: field.One(), Factors: []mle.MLE{cStarMLE, denomDistinctMLE}},
			{Coefficient: field.Neg(field.One()), Factors: []mle.MLE{leftCountMLE, rightCountMLE}},
		},
		Degree: 2,
	})

	denomLeftOut := make([]field.Element, len(leftKeyOut))
	for i, k := range leftKeyOut {
		denomLeftOut[i] = field.Sub(xi, k)
	}
	denomRightOut := make([]field.Element, len(rightKeyOut))
	for i, k := range rightKeyOut {
		denomRightOut[i] = field.Sub(xi, k)
	}
	joinCompleteness(b, "join-left-complete", cStarMLE, denomLeftOut)
	joinCompleteness(b, "join-right-complete", cStarMLE, denomRightOut)

	return out
}

// joinCompleteness registers the d★ half of a LogUp equality against the
// shared cStarMLE built in FinalRoundEvaluate (one reciprocal term per
// output row on this side) plus the Σcstar-Σdstar zero-sum: together they
// prove the number of output rows sharing each distinct key equals
// cStarMLE's own numerator at that key, i.e. leftCount[v]*rightCount[v].
func joinCompleteness(b *proofexpr.FinalRoundBuilder, label string, cStarMLE mle.MLE, denomOut []field.Element) {
	invDenomOut := append([]field.Element(nil), denomOut...)
	field.BatchInvert(invDenomOut)
	dStarMLE := b.ProduceIntermediateMLE(invDenomOut)
	denomOutMLE := mle.New(denomOut)

	b.ProduceSubpolynomial(sumcheck.Subpolynomial{
		Label:  label + "-d-star",
		Flavor: sumcheck.Identity,
		Terms: []mle.Product{
			{Coefficient: field.One(), Factors: []mle.MLE{dStarMLE, denomOutMLE}},
			{Coefficient: field.Neg(field.One()), Factors: []mle.MLE{}},
		},
		Degree: 2,
	})
	b.ProduceSubpolynomial(sumcheck.Subpolynomial{
		Label:  label + "-logup",
		Flavor: sumcheck.ZeroSum,
		Terms: []mle.Product{
			{Coefficient: field.One(), Factors: []mle.MLE{cStarMLE}},
			{Coefficient: field.Neg(field.One()), Factors: []mle.MLE{dStarMLE}},
		},
		Degree: 1,
	})
}

func (j SortMergeJoin) verifyWeightedLogUp(b *proofexpr.VerificationBuilder, xi, keyInEval, weightEval, keyOutEval field.Element) {
	cStarEval := b.NextMLEEvaluation()
	dStarEval := b.NextMLEEvaluation()
	denomInEval := field.Sub(xi, keyInEval)
	denomOutEval := field.Sub(xi, keyOutEval)

	b.ProduceSubpolynomialClaim(sumcheck.Identity, []proofexpr.ScalarTerm{
		{Coefficient: field.One(), Factors: []field.Element{cStarEval, denomInEval}},
		{Coefficient: field.Neg(field.One()), Factors: []field.Element{weightEval}},
	})
	b.ProduceSubpolynomialClaim(sumcheck.Identity, []proofexpr.ScalarTerm{
		{Coefficient: field.One(), Factors: []field.Element{dStarEval, denomOutEval}},
		{Coefficient: field.Neg(field.One()), Factors: nil},
	})
	b.ProduceSubpolynomialClaim(sumcheck.ZeroSum, []proofexpr.ScalarTerm{
		{Coefficient: field.One(), Factors: []field.Element{cStarEval}},
		{Coefficient: field.Neg(field.One()), Factors: []field.Element{dStarEval}},
	})
}

// verifyJoinCompleteness mirrors joinCompleteness: reads this side's dStar
// evaluation and checks it against the shared cStarEval.
func (j SortMergeJoin) verifyJoinCompleteness(b *proofexpr.VerificationBuilder, xi, cStarEval, keyOutEval field.Element) {
	dStarEval := b.NextMLEEvaluation()
	denomOutEval := field.Sub(xi, keyOutEval)

	b.ProduceSubpolynomialClaim(sumcheck.Identity, []proofexpr.ScalarTerm{
		{Coefficient: field.One(), Factors: []field.Element{dStarEval, denomOutEval}},
		{Coefficient: field.Neg(field.One()), Factors: nil},
	})
	b.ProduceSubpolynomialClaim(sumcheck.ZeroSum, []proofexpr.ScalarTerm{
		{Coefficient: field.One(), Factors: []field.Element{cStarEval}},
		{Coefficient: field.Neg(field.One()), Factors: []field.Element{dStarEval}},
	})
}

func (j SortMergeJoin) VerifierEvaluate(b *proofexpr.VerificationBuilder, baseEvals proofexpr.OneEvalMap) (proofexpr.OneEvalMap, field.Element) {
	leftEvals, leftRowCountEval := j.Left.VerifierEvaluate(b, baseEvals)
	rightEvals, rightRowCountEval := j.Right.VerifierEvaluate(b, baseEvals)
	leftScope := outputTableOneEvalMap(leftEvals, leftRowCountEval)
	rightScope := outputTableOneEvalMap(rightEvals, rightRowCountEval)
	leftKeyEval := j.LeftKey.VerifierEvaluate(b, leftScope)
	rightKeyEval := j.RightKey.VerifierEvaluate(b, rightScope)

	colEvals := make(proofexpr.OneEvalMap, len(j.LeftColumns)+len(j.RightColumns))
	for _, c := range j.LeftColumns {
		colEvals[c.ID.Name()] = b.NextMLEEvaluation()
	}
	for _, c := range j.RightColumns {
		colEvals[c.ID.Name()] = b.NextMLEEvaluation()
	}
	chiEval := b.NextMLEEvaluation()

	leftKeyOutEval := b.NextMLEEvaluation()
	rightKeyOutEval := b.NextMLEEvaluation()

	distinctKeyEval := b.NextMLEEvaluation()

	bitEvals := make([]field.Element, j.KeyBitBound)
	for k := range bitEvals {
		bitEvals[k] = b.NextMLEEvaluation()
	}
	signEval := b.NextMLEEvaluation()
	diffEval := b.NextMLEEvaluation()
	for _, claim := range proofexpr.RangeClaims(diffEval, bitEvals, signEval) {
		b.ProduceSubpolynomialClaim(claim.Flavor, claim.Terms)
	}
	b.ProduceSubpolynomialClaim(sumcheck.Identity, []proofexpr.ScalarTerm{
		proofexpr.NonNegClaim(signEval).Terms[0],
	})

	leftCountEval := b.NextMLEEvaluation()
	rightCountEval := b.NextMLEEvaluation()

	xi := b.NextChallenge()

	j.verifyWeightedLogUp(b, xi, distinctKeyEval, leftCountEval, leftKeyEval)
	j.verifyWeightedLogUp(b, xi, distinctKeyEval, rightCountEval, rightKeyEval)

	cStarEval := b.NextMLEEvaluation()
	denomDistinctEval := field.Sub(xi, distinctKeyEval)
	b.ProduceSubpolynomialClaim(sumcheck.Identity, []proofexpr.ScalarTerm{
		{Coefficient: field.One(), Factors: []field.Element{cStarEval, denomDistinctEval}},
		{Coefficient: field.Neg(field.One()), Factors: []field.Element{leftCountEval, rightCountEval}},
	})

	j.verifyJoinCompleteness(b, xi, cStarEval, leftKeyOutEval)
	j.verifyJoinCompleteness(b, xi, cStarEval, rightKeyOutEval)

	return colEvals, chiEval
}

var _ Plan = SortMergeJoin{}

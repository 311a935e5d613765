package query

import (
	"fmt"

	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/accessor"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/column"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/commitment"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/field"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/internal/arena"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/mle"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/proofexpr"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/proofplan"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/sumcheck"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/transcript"
)

// Proof is the transcript-independent artifact Prove produces and Verify
// checks, per spec.md §4.7. ResultTable is revealed in full (the query
// result itself is public); everything else is opaque proof material.
type Proof struct {
	ResultTable             column.Table
	IntermediateCommitments []commitment.Commitment
	Sumcheck                sumcheck.Proof
	// MLEEvaluations holds the claimed evaluation, at the sumcheck point,
	// of every registered MLE: first one per plan.BaseColumnRefs() entry
	// (in that order), then one per intermediate MLE in registration
	// order, matching the order batching factors are drawn and applied in
	// step 7 of spec.md §4.7.
	MLEEvaluations  []field.Element
	EvaluationProof commitment.Proof
}

// allLabels lists every transcript.Label this driver and everything it
// calls (sumcheck, the commitment backend) ever binds or challenges over a
// proof's lifetime; transcript.New requires every label declared up front.
func allLabels() []transcript.Label {
	return []transcript.Label{
		transcript.LabelResultColumns,
		transcript.LabelResultRowCount,
		transcript.LabelPostResultChallenge,
		transcript.LabelIntermediateCommit,
		transcript.LabelSubpolyMultiplier,
		transcript.LabelEntrywiseMultiplier,
		transcript.LabelSumcheckRound,
		transcript.LabelMLEEvaluation,
		transcript.LabelBatchingFactor,
		transcript.LabelEvaluationProof,
	}
}

func tableColumns(t column.Table) []column.Column {
	cols := make([]column.Column, len(t.Order))
	for i, name := range t.Order {
		cols[i] = t.Columns[name]
	}
	return cols
}

func commitmentPoints(cs []commitment.Commitment) []transcript.PointBytes {
	out := make([]transcript.PointBytes, len(cs))
	for i, c := range cs {
		out[i] = c
	}
	return out
}

// combineWeighted folds vectors (each shorter than or equal to 2^vars,
// implicitly zero beyond its own length) into one length-2^vars vector,
// weighting vectors[i] by factors[i] — the padded linear combination
// ProveEvaluation's single values argument expects, per spec.md §4.7 step
// 7 ("prove the claimed combined evaluation of the weighted sum of every
// opened MLE").
func combineWeighted(vars int, factors []field.Element, vectors [][]field.Element) []field.Element {
	n := 1 << uint(vars)
	out := make([]field.Element, n)
	for fi, vec := range vectors {
		factor := factors[fi]
		limit := len(vec)
		if limit > n {
			limit = n
		}
		for i := 0; i < limit; i++ {
			out[i] = field.Add(out[i], field.Mul(factor, vec[i]))
		}
	}
	return out
}

// combineClaims reconstructs the weighted, chi-folded sum of every
// subpolynomial claim exactly the way sumcheck.Build folds the real
// Subpolynomials into a MasterPolynomial, so the verifier can check it
// against the final evaluation sumcheck.Verify returns — the one
// cross-cutting check no single plan node's VerifierEvaluate can perform
// alone, since the multipliers and chi point are drawn once for the whole
// proof.
func combineClaims(multipliers []field.Element, chiPoint, r []field.Element, claims []proofexpr.SubpolynomialClaim) field.Element {
	chiEval := mle.EqEval(chiPoint, r)
	var total field.Element
	for i, claim := range claims {
		v := field.Mul(multipliers[i], claim.Eval())
		if claim.Flavor == sumcheck.Identity {
			v = field.Mul(v, chiEval)
		}
		total = field.Add(total, v)
	}
	return total
}

// Prove runs the prover side of spec.md §4.7's seven-step protocol:
// evaluate the plan twice (first round, final round), commit to the
// result columns and every intermediate MLE the second pass produces, run
// sumcheck over the combined master polynomial, open every base and
// intermediate MLE at the sumcheck point, and fold those openings into one
// batched evaluation proof. offset is the shared global row offset every
// referenced base column and every freshly committed result/intermediate
// column is treated as starting at — a self-contained query proof commits
// its transient columns at the same offset its base tables are read from,
// so one scalar suffices; composing evaluation proofs across base tables
// at genuinely different global offsets is out of scope here (see
// DESIGN.md).
func Prove(
	plan proofplan.Plan,
	data accessor.DataAccessor,
	placeholders []field.Element,
	placeholderTypes []column.Type,
	backend commitment.Backend,
	setup commitment.ProverSetup,
	offset int,
	opts ...ProveOption,
) (*Proof, error) {
	cfg := NewProverConfig(opts...)

	resolved, err := resolvePlan(plan, placeholders, placeholderTypes)
	if err != nil {
		return nil, err
	}

	alloc := arena.New()
	defer alloc.Release()

	tr := transcript.New(allLabels()...)

	fb1 := proofexpr.NewFirstRoundBuilder(alloc)
	resultTable := resolved.FirstRoundEvaluate(fb1, data)

	resultCommits, err := backend.ComputeCommitments(tableColumns(resultTable), offset, setup)
	if err != nil {
		return nil, fmt.Errorf("query: commit result columns: %w", err)
	}
	if err := tr.AppendPoints(transcript.LabelResultColumns, commitmentPoints(resultCommits)); err != nil {
		return nil, fmt.Errorf("query: absorb result commitments: %w", err)
	}
	if err := tr.AppendScalars(transcript.LabelResultRowCount, []field.Element{field.FromUint64(uint64(resultTable.RowCount))}); err != nil {
		return nil, fmt.Errorf("query: absorb result row count: %w", err)
	}

	numPostResult := fb1.NumPostResultChallenges()
	postChallenges, err := tr.Challenges(transcript.LabelPostResultChallenge, numPostResult)
	if err != nil {
		return nil, fmt.Errorf("query: draw post-result challenges: %w", err)
	}

	fb2 := proofexpr.NewFinalRoundBuilder(alloc, postChallenges)
	resolved.FinalRoundEvaluate(fb2, data)

	intermediateMLEs := fb2.IntermediateMLEs()
	intermediateCols := make([]column.Column, len(intermediateMLEs))
	for i, m := range intermediateMLEs {
		intermediateCols[i] = column.Column{Type: column.TypeBigInt, Scalars: m.Values}
	}
	intermediateCommits, err := backend.ComputeCommitments(intermediateCols, offset, setup)
	if err != nil {
		return nil, fmt.Errorf("query: commit intermediate MLEs: %w", err)
	}
	if err := tr.AppendPoints(transcript.LabelIntermediateCommit, commitmentPoints(intermediateCommits)); err != nil {
		return nil, fmt.Errorf("query: absorb intermediate commitments: %w", err)
	}

	baseRefs := resolved.BaseColumnRefs()
	baseCols := make([]column.Column, len(baseRefs))
	for i, ref := range baseRefs {
		col, err := data.GetColumn(ref.Table, ref.Column)
		if err != nil {
			return nil, fmt.Errorf("query: read base column %s: %w", ref, err)
		}
		baseCols[i] = col
	}

	maxLen := resultTable.RowCount
	for _, col := range baseCols {
		if col.Len() > maxLen {
			maxLen = col.Len()
		}
	}
	for _, m := range intermediateMLEs {
		if len(m.Values) > maxLen {
			maxLen = len(m.Values)
		}
	}
	vars := mle.NumVars(maxLen)

	subs := fb2.Subpolynomials()
	master, err := sumcheck.Build(tr, vars, subs)
	if err != nil {
		return nil, fmt.Errorf("query: build master polynomial: %w", err)
	}

	sumProof, r, _, err := sumcheck.Prove(tr, master, field.Zero())
	if err != nil {
		return nil, fmt.Errorf("query: sumcheck prove: %w", err)
	}

	evals := make([]field.Element, 0, len(baseRefs)+len(intermediateMLEs))
	vectors := make([][]field.Element, 0, len(baseRefs)+len(intermediateMLEs))
	for _, col := range baseCols {
		evals = append(evals, mle.Evaluate(mle.New(col.Scalars), r))
		vectors = append(vectors, col.Scalars)
	}
	for _, m := range intermediateMLEs {
		evals = append(evals, mle.Evaluate(m, r))
		vectors = append(vectors, m.Values)
	}
	if err := tr.AppendScalars(transcript.LabelMLEEvaluation, evals); err != nil {
		return nil, fmt.Errorf("query: absorb MLE evaluations: %w", err)
	}

	factors, err := tr.Challenges(transcript.LabelBatchingFactor, len(evals))
	if err != nil {
		return nil, fmt.Errorf("query: draw batching factors: %w", err)
	}

	combined := combineWeighted(vars, factors, vectors)
	evalProof, err := backend.ProveEvaluation(tr, combined, r, offset, setup)
	if err != nil {
		return nil, fmt.Errorf("query: prove evaluation: %w", err)
	}

	cfg.Logger.Debug().
		Int("vars", vars).
		Int("subpolynomials", len(subs)).
		Int("mle_evaluations", len(evals)).
		Msg("query: proof built")

	return &Proof{
		ResultTable:             resultTable,
		IntermediateCommitments: intermediateCommits,
		Sumcheck:                sumProof,
		MLEEvaluations:          evals,
		EvaluationProof:         evalProof,
	}, nil
}

// Verify runs the verifier side of spec.md §4.7, reconstructing the exact
// same transcript by never touching raw data: the result table comes from
// proof.ResultTable, base-column evaluations are checked against
// commitments looked up from commitments, and the cross-cutting
// subpolynomial/sumcheck/evaluation checks replace anything a single plan
// node's VerifierEvaluate could confirm alone. Returns the verified result
// table on success, or a ProofError (or a wrapped accessor/backend error)
// on failure.
func Verify(
	plan proofplan.Plan,
	commitments accessor.CommitmentAccessor,
	placeholders []field.Element,
	placeholderTypes []column.Type,
	backend commitment.Backend,
	setup commitment.VerifierSetup,
	offset int,
	proof *Proof,
	opts ...VerifyOption,
) (column.Table, error) {
	cfg := NewVerifierConfig(opts...)

	resolved, err := resolvePlan(plan, placeholders, placeholderTypes)
	if err != nil {
		return column.Table{}, err
	}

	tr := transcript.New(allLabels()...)

	resultTable := proof.ResultTable
	resultCommits, err := backend.ComputeCommitments(tableColumns(resultTable), offset, setup)
	if err != nil {
		return column.Table{}, fmt.Errorf("query: recompute result commitments: %w", err)
	}
	if err := tr.AppendPoints(transcript.LabelResultColumns, commitmentPoints(resultCommits)); err != nil {
		return column.Table{}, fmt.Errorf("query: absorb result commitments: %w", err)
	}
	if err := tr.AppendScalars(transcript.LabelResultRowCount, []field.Element{field.FromUint64(uint64(resultTable.RowCount))}); err != nil {
		return column.Table{}, fmt.Errorf("query: absorb result row count: %w", err)
	}

	numPostResult := proofplan.NumPostResultChallenges(resolved)
	postChallenges, err := tr.Challenges(transcript.LabelPostResultChallenge, numPostResult)
	if err != nil {
		return column.Table{}, fmt.Errorf("query: draw post-result challenges: %w", err)
	}

	if err := tr.AppendPoints(transcript.LabelIntermediateCommit, commitmentPoints(proof.IntermediateCommitments)); err != nil {
		return column.Table{}, fmt.Errorf("query: absorb intermediate commitments: %w", err)
	}

	baseRefs := resolved.BaseColumnRefs()
	baseCommits := make([]commitment.Commitment, len(baseRefs))
	for i, ref := range baseRefs {
		c, err := commitments.GetCommitment(ref)
		if err != nil {
			return column.Table{}, fmt.Errorf("query: lookup base commitment %s: %w", ref, err)
		}
		baseCommits[i] = c
	}

	numBaseAndIntermediate := len(baseRefs) + len(proof.IntermediateCommitments)
	if len(proof.MLEEvaluations) != numBaseAndIntermediate {
		return column.Table{}, formatErrorf(
			"proof declares %d MLE evaluations, plan needs %d (%d base + %d intermediate)",
			len(proof.MLEEvaluations), numBaseAndIntermediate, len(baseRefs), len(proof.IntermediateCommitments),
		)
	}

	tableLengths := make(map[accessor.TableRef]int)
	for _, table := range baseTables(baseRefs) {
		n, err := commitments.Length(table)
		if err != nil {
			return column.Table{}, fmt.Errorf("query: lookup table length %s: %w", table, err)
		}
		tableLengths[table] = n
	}

	intermediateEvals := proof.MLEEvaluations[len(baseRefs):]

	// Column evaluations are opaque prover claims — independent of the
	// sumcheck point r's numeric value until VerifyBatchedEvaluation checks
	// them against r at the very end — so they can be plugged in now. Each
	// base table's row-count evaluation (the all-ones MLE of that table's
	// length, evaluated at r, per tablescan.go's RowCountKey contract) is
	// NOT opaque: it is public, computable by the verifier from (length,
	// r) alone, but r itself is only produced by sumcheck.Verify below —
	// which in turn needs the subpolynomial count this very
	// VerifierEvaluate walk produces. That count depends only on plan
	// shape, never on evaluation values, so a first "counting" pass with
	// placeholder zero row-count evaluations is safe: it is thrown away
	// once r is known and the walk is repeated with the real values.
	baseEvals := make(proofexpr.OneEvalMap, len(baseRefs)+len(tableLengths))
	for i, ref := range baseRefs {
		baseEvals[ref.String()] = proof.MLEEvaluations[i]
	}
	for table := range tableLengths {
		baseEvals[proofplan.RowCountKey(table)] = field.Zero()
	}

	countingVB := proofexpr.NewVerificationBuilder(postChallenges, intermediateEvals)
	resolved.VerifierEvaluate(countingVB, baseEvals)
	numSubs := len(countingVB.SubpolynomialClaims())

	maxLen := resultTable.RowCount
	for _, c := range baseCommits {
		if c.Length() > maxLen {
			maxLen = c.Length()
		}
	}
	for _, c := range proof.IntermediateCommitments {
		if c.Length() > maxLen {
			maxLen = c.Length()
		}
	}
	vars := mle.NumVars(maxLen)

	multipliers, err := tr.Challenges(transcript.LabelSubpolyMultiplier, numSubs)
	if err != nil {
		return column.Table{}, fmt.Errorf("query: draw subpolynomial multipliers: %w", err)
	}
	chiPoint, err := tr.Challenges(transcript.LabelEntrywiseMultiplier, vars)
	if err != nil {
		return column.Table{}, fmt.Errorf("query: draw entrywise multipliers: %w", err)
	}

	if len(proof.Sumcheck.Rounds) != vars {
		return column.Table{}, formatErrorf("proof has %d sumcheck rounds, plan needs %d", len(proof.Sumcheck.Rounds), vars)
	}
	r, finalEval, err := sumcheck.Verify(tr, vars, proof.Sumcheck, field.Zero())
	if err != nil {
		return column.Table{}, verificationErrorf("sumcheck: %v", err)
	}

	for table, n := range tableLengths {
		baseEvals[proofplan.RowCountKey(table)] = onesEval(n, r)
	}
	finalVB := proofexpr.NewVerificationBuilder(postChallenges, append([]field.Element(nil), intermediateEvals...))
	resolved.VerifierEvaluate(finalVB, baseEvals)
	if finalVB.RemainingMLEEvaluations() != 0 {
		return column.Table{}, formatErrorf("proof declares %d unused intermediate MLE evaluations", finalVB.RemainingMLEEvaluations())
	}
	claims := finalVB.SubpolynomialClaims()
	if len(claims) != numSubs {
		return column.Table{}, formatErrorf("subpolynomial count changed between counting and evaluation passes")
	}

	if combined := combineClaims(multipliers, chiPoint, r, claims); !combined.Equal(finalEval) {
		return column.Table{}, verificationErrorf("combined subpolynomial claims do not match sumcheck's final evaluation")
	}

	if err := tr.AppendScalars(transcript.LabelMLEEvaluation, proof.MLEEvaluations); err != nil {
		return column.Table{}, fmt.Errorf("query: absorb MLE evaluations: %w", err)
	}

	factors, err := tr.Challenges(transcript.LabelBatchingFactor, len(proof.MLEEvaluations))
	if err != nil {
		return column.Table{}, fmt.Errorf("query: draw batching factors: %w", err)
	}

	allCommits := make([]commitment.Commitment, 0, numBaseAndIntermediate)
	allCommits = append(allCommits, baseCommits...)
	allCommits = append(allCommits, proof.IntermediateCommitments...)

	if err := backend.VerifyBatchedEvaluation(tr, allCommits, factors, proof.MLEEvaluations, r, offset, 1<<uint(vars), setup, proof.EvaluationProof); err != nil {
		return column.Table{}, verificationErrorf("evaluation proof: %v", err)
	}

	cfg.Logger.Debug().Int("vars", vars).Int("subpolynomials", len(claims)).Msg("query: proof verified")

	return resultTable, nil
}

// onesEval computes 1_n~(r), the all-ones length-n MLE evaluated at r,
// the row-count evaluation claim tablescan.go's RowCountKey expects: a
// value the verifier can compute unassisted from n and r, needing no
// column data.
func onesEval(n int, r []field.Element) field.Element {
	ones := make([]field.Element, n)
	for i := range ones {
		ones[i] = field.One()
	}
	return mle.Evaluate(mle.New(ones), r)
}

// baseTables returns the distinct tables refs touches, in first-appearance
// order.
func baseTables(refs []accessor.ColumnRef) []accessor.TableRef {
	seen := make(map[accessor.TableRef]bool)
	var out []accessor.TableRef
	for _, ref := range refs {
		if !seen[ref.Table] {
			seen[ref.Table] = true
			out = append(out, ref.Table)
		}
	}
	return out
}

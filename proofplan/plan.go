// Package proofplan implements the proof plan algebra of spec.md §3/§4.5: a
// closed sum type of relational plan nodes (TableScan, Filter, Projection,
// GroupBy, Union, SortMergeJoin, Aggregate, Slice, Empty), each walked twice
// by the query driver exactly like proofexpr's expression nodes, plus a
// third verifier-side walk that never touches raw data.
package proofplan

import (
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/accessor"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/column"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/field"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/proofexpr"
)

// Identifier is accessor's validated identifier type; proofplan depends on
// accessor (the foundational contract layer), not the reverse, so this is a
// plain alias rather than a redeclaration.
type Identifier = accessor.Identifier

// Plan is the closed sum type of spec.md §3's proof-plan sub-language.
// Dispatch is a Go type switch over the concrete types in this package
// (the same tagged-union discipline proofexpr.Expr uses); planKind is
// unexported so the set is closed to this package.
type Plan interface {
	planKind()

	// OutputSchema is the plan's declared output column list, in order,
	// fixed at construction — never inferred from data.
	OutputSchema() []accessor.ColumnSchema

	// BaseColumnRefs lists every base table column this plan (or any
	// descendant) reads, in the fixed structural order FirstRoundEvaluate
	// visits them. The query driver calls this once, before ever touching
	// data, to know which pre-existing commitments (from a
	// CommitmentAccessor) must join the final batched evaluation proof
	// alongside the intermediate MLEs every node commits during evaluation.
	BaseColumnRefs() []accessor.ColumnRef

	// FirstRoundEvaluate computes the plan's output table, recording row
	// count and any post-result challenges its subtree requests.
	FirstRoundEvaluate(b *proofexpr.FirstRoundBuilder, data accessor.DataAccessor) column.Table

	// FinalRoundEvaluate recomputes the same output table, this time
	// registering intermediate MLEs and sumcheck subpolynomials.
	FinalRoundEvaluate(b *proofexpr.FinalRoundBuilder, data accessor.DataAccessor) column.Table

	// VerifierEvaluate recomputes the plan's claimed output-column
	// evaluations (and row-count evaluation) at the sumcheck point, from
	// already-known base-column evaluations (baseEvals, keyed by
	// ColumnRef.String(), populated by the driver from the evaluation
	// proof in BaseColumnRefs order) and the VerificationBuilder's
	// intermediate-MLE/challenge channels, mirroring FinalRoundEvaluate
	// without touching raw data.
	VerifierEvaluate(b *proofexpr.VerificationBuilder, baseEvals proofexpr.OneEvalMap) (proofexpr.OneEvalMap, field.Element)
}

// outputTableOneEvalMap builds the OneEvalMap a compound node threads into
// its child exprs' VerifierEvaluate calls: the child plan's own column
// evaluations plus its row-count evaluation under the reserved key.
func outputTableOneEvalMap(colEvals proofexpr.OneEvalMap, rowCountEval field.Element) proofexpr.OneEvalMap {
	m := make(proofexpr.OneEvalMap, len(colEvals)+1)
	for k, v := range colEvals {
		m[k] = v
	}
	m[proofexpr.RowCountEvalKey] = rowCountEval
	return m
}

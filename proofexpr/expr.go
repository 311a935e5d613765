package proofexpr

import (
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/column"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/field"
)

// Expr is the closed sum type of spec.md §3's proof-expression
// sub-language: Column, Literal, Placeholder, Equals, Inequality,
// Add/Sub/Mul, And/Or/Not, Aggregate, Cast. Dispatch is a Go type switch
// over the concrete types in this package (Design Notes §9: "tagged union
// instead of trait objects"), not a wider interface any caller could
// implement — exprKind is unexported so the set is closed to this
// package.
type Expr interface {
	exprKind()
	// ResultType is the expression's declared output column type, fixed at
	// construction (arithmetic/cast nodes validate and carry their own
	// precision/scale, never inferring or widening silently).
	ResultType() column.Type
	// FirstRoundEvaluate computes the expression's value column over every
	// row of the current input, per spec.md §4.5's uniform node shape.
	FirstRoundEvaluate(b *FirstRoundBuilder, table column.Table) column.Column
	// FinalRoundEvaluate recomputes the same value column, this time able
	// to consume post-result challenges and register intermediate MLEs /
	// subpolynomials.
	FinalRoundEvaluate(b *FinalRoundBuilder, table column.Table) column.Column
	// VerifierEvaluate recomputes the expression's claimed evaluation at
	// the sumcheck point from already-evaluated column/intermediate-MLE
	// claims, mirroring FinalRoundEvaluate without touching raw data.
	VerifierEvaluate(b *VerificationBuilder, accessorEvals OneEvalMap) field.Element
}

// OneEvalMap gives VerifierEvaluate the claimed evaluation (at the
// sumcheck point) of every base column an expression tree bottoms out at,
// keyed by the column's local identifier within the current plan node's
// input scope (a TableScan's own columns, or a child plan's output
// schema). The driver populates it from the commitment backend's
// claimed-evaluation list before walking the plan's verifier side, per
// spec.md §4.5.
type OneEvalMap map[string]field.Element

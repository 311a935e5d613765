package proofexpr

import (
	"fmt"

	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/column"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/field"
)

// PlaceholderExpr names a query-parameter slot resolved at prove/verify
// time against the caller-supplied placeholder list, per spec.md §3
// ("Placeholder(id, type)"). A type mismatch between the declared type and
// the bound value is a ProofError::Placeholder at verify time — see
// query.ProofError — never a silent coercion (spec.md Design Notes §9
// decision 2).
type PlaceholderExpr struct {
	ID   int
	Type column.Type
}

func (PlaceholderExpr) exprKind()                 {}
func (e PlaceholderExpr) ResultType() column.Type { return e.Type }

// Resolve looks up this placeholder's bound value, checking its type
// matches exactly.
func (e PlaceholderExpr) Resolve(bindings []field.Element, types []column.Type) field.Element {
	if e.ID < 0 || e.ID >= len(bindings) {
		panic(fmt.Sprintf("proofexpr: PlaceholderExpr: id %d out of range (%d bindings)", e.ID, len(bindings)))
	}
	if types[e.ID] != e.Type {
		panic(fmt.Sprintf("proofexpr: PlaceholderExpr: id %d bound as %s, declared %s", e.ID, types[e.ID], e.Type))
	}
	return bindings[e.ID]
}

func (e PlaceholderExpr) FirstRoundEvaluate(b *FirstRoundBuilder, table column.Table) column.Column {
	panic("proofexpr: PlaceholderExpr.FirstRoundEvaluate: must be resolved via ResolvedLiteral before evaluation")
}

func (e PlaceholderExpr) FinalRoundEvaluate(b *FinalRoundBuilder, table column.Table) column.Column {
	panic("proofexpr: PlaceholderExpr.FinalRoundEvaluate: must be resolved via ResolvedLiteral before evaluation")
}

func (e PlaceholderExpr) VerifierEvaluate(b *VerificationBuilder, accessorEvals OneEvalMap) field.Element {
	panic("proofexpr: PlaceholderExpr.VerifierEvaluate: must be resolved via ResolvedLiteral before evaluation")
}

// ResolvedLiteral converts a placeholder into the LiteralExpr the plan
// actually evaluates against, once its value is known (bound at
// Prove/Verify time from the caller's placeholder list). Plan builders
// call this during construction, not during evaluation, so Placeholder
// itself never needs to appear inside a live expression tree.
func (e PlaceholderExpr) ResolvedLiteral(bindings []field.Element, types []column.Type) LiteralExpr {
	return LiteralExpr{Value: e.Resolve(bindings, types), Type: e.Type}
}

var _ Expr = PlaceholderExpr{}

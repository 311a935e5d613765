package query

import (
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/column"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/field"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/proofexpr"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/proofplan"
)

// resolvePlan rewrites every proofexpr.PlaceholderExpr reachable from p into
// a resolved proofexpr.LiteralExpr, binding against placeholders/types, per
// spec.md §3's Placeholder(id, type) and placeholder.go's documented
// contract that a live expression tree must never contain a Placeholder
// node by the time FirstRoundEvaluate/FinalRoundEvaluate/VerifierEvaluate
// run. PlaceholderExpr.Resolve panics on an out-of-range id or a type
// mismatch; resolvePlan recovers that panic into a query.ProofError{Kind:
// Placeholder} so a bad binding surfaces as a normal returned error rather
// than crashing Prove/Verify.
func resolvePlan(p proofplan.Plan, placeholders []field.Element, types []column.Type) (result proofplan.Plan, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, placeholderErrorf("%v", r)
		}
	}()
	return rewritePlan(p, placeholders, types), nil
}

func rewritePlan(p proofplan.Plan, bindings []field.Element, types []column.Type) proofplan.Plan {
	rw := func(e proofexpr.Expr) proofexpr.Expr { return rewriteExpr(e, bindings, types) }

	switch n := p.(type) {
	case proofplan.TableScan:
		return n
	case proofplan.Projection:
		cols := make([]proofplan.ProjectionColumn, len(n.Columns))
		for i, c := range n.Columns {
			cols[i] = proofplan.ProjectionColumn{ID: c.ID, Expr: rw(c.Expr)}
		}
		n.Child = rewritePlan(n.Child, bindings, types)
		n.Columns = cols
		return n
	case proofplan.Filter:
		n.Predicate = rw(n.Predicate)
		n.Child = rewritePlan(n.Child, bindings, types)
		return n
	case proofplan.GroupBy:
		n.Key = rw(n.Key)
		sums := make([]proofplan.GroupBySum, len(n.Sums))
		for i, s := range n.Sums {
			sums[i] = proofplan.GroupBySum{ID: s.ID, Expr: rw(s.Expr)}
		}
		n.Sums = sums
		n.Child = rewritePlan(n.Child, bindings, types)
		return n
	case proofplan.Union:
		children := make([]proofplan.Plan, len(n.Children))
		for i, c := range n.Children {
			children[i] = rewritePlan(c, bindings, types)
		}
		n.Children = children
		return n
	case proofplan.SortMergeJoin:
		n.LeftKey = rw(n.LeftKey)
		n.RightKey = rw(n.RightKey)
		n.Left = rewritePlan(n.Left, bindings, types)
		n.Right = rewritePlan(n.Right, bindings, types)
		return n
	case proofplan.Aggregate:
		cols := make([]proofplan.AggregateColumn, len(n.Columns))
		for i, c := range n.Columns {
			rewritten := rw(c.Expr)
			agg, ok := rewritten.(proofexpr.AggregateExpr)
			if !ok {
				agg = proofexpr.AggregateExpr{Op: c.Expr.Op, Inner: rw(c.Expr.Inner)}
			}
			cols[i] = proofplan.AggregateColumn{ID: c.ID, Expr: agg}
		}
		n.Child = rewritePlan(n.Child, bindings, types)
		n.Columns = cols
		return n
	case proofplan.Slice:
		n.Child = rewritePlan(n.Child, bindings, types)
		return n
	case proofplan.Empty:
		return n
	default:
		panic("query: resolvePlan: unhandled plan node")
	}
}

// rewriteExpr recursively resolves every PlaceholderExpr inside e, leaving
// every other node shape unchanged but rebuilt with its children rewritten.
// AggregateExpr.Inner is itself an Expr (not a concrete AggregateExpr), so
// rewriteExpr alone handles it; rewritePlan's Aggregate case only needs the
// top-level type assertion because proofplan.AggregateColumn.Expr is typed
// as the concrete AggregateExpr rather than the Expr interface.
func rewriteExpr(e proofexpr.Expr, bindings []field.Element, types []column.Type) proofexpr.Expr {
	switch n := e.(type) {
	case proofexpr.PlaceholderExpr:
		return n.ResolvedLiteral(bindings, types)
	case proofexpr.LiteralExpr:
		return n
	case proofexpr.ColumnExpr:
		return n
	case proofexpr.AddExpr:
		n.Left = rewriteExpr(n.Left, bindings, types)
		n.Right = rewriteExpr(n.Right, bindings, types)
		return n
	case proofexpr.SubExpr:
		n.Left = rewriteExpr(n.Left, bindings, types)
		n.Right = rewriteExpr(n.Right, bindings, types)
		return n
	case proofexpr.MulExpr:
		n.Left = rewriteExpr(n.Left, bindings, types)
		n.Right = rewriteExpr(n.Right, bindings, types)
		return n
	case proofexpr.CastExpr:
		n.Inner = rewriteExpr(n.Inner, bindings, types)
		return n
	case proofexpr.EqualsExpr:
		n.Left = rewriteExpr(n.Left, bindings, types)
		n.Right = rewriteExpr(n.Right, bindings, types)
		return n
	case proofexpr.InequalityExpr:
		n.Left = rewriteExpr(n.Left, bindings, types)
		n.Right = rewriteExpr(n.Right, bindings, types)
		return n
	case proofexpr.AndExpr:
		n.Left = rewriteExpr(n.Left, bindings, types)
		n.Right = rewriteExpr(n.Right, bindings, types)
		return n
	case proofexpr.OrExpr:
		n.Left = rewriteExpr(n.Left, bindings, types)
		n.Right = rewriteExpr(n.Right, bindings, types)
		return n
	case proofexpr.NotExpr:
		n.Inner = rewriteExpr(n.Inner, bindings, types)
		return n
	case proofexpr.AggregateExpr:
		n.Inner = rewriteExpr(n.Inner, bindings, types)
		return n
	default:
		panic("query: resolvePlan: unhandled expr node")
	}
}

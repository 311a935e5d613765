package proofplan

import (
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/accessor"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/column"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/field"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/proofexpr"
)

// AggregateColumn names one ungrouped aggregate output column of an
// Aggregate plan node.
type AggregateColumn struct {
	ID   Identifier
	Expr proofexpr.AggregateExpr
}

// Aggregate is the plan-level (ungrouped) form of spec.md §3's
// `Aggregate` node: one row out, each column a SUM or COUNT over the
// whole child input. Unlike GroupBy it needs no permutation or LogUp
// argument of its own — proofexpr.AggregateExpr already supplies the
// single ZeroSum identity per column (`Σ summand - total = 0`), so this
// node is a thin Projection-shaped wrapper collecting one-row output from
// however many AggregateExpr columns are declared.
type Aggregate struct {
	Child   Plan
	Columns []AggregateColumn
}

func (Aggregate) planKind() {}

func (a Aggregate) OutputSchema() []accessor.ColumnSchema {
	out := make([]accessor.ColumnSchema, len(a.Columns))
	for i, c := range a.Columns {
		out[i] = accessor.ColumnSchema{ID: c.ID, Type: c.Expr.ResultType()}
	}
	return out
}

func (a Aggregate) BaseColumnRefs() []accessor.ColumnRef { return a.Child.BaseColumnRefs() }

func (a Aggregate) FirstRoundEvaluate(b *proofexpr.FirstRoundBuilder, data accessor.DataAccessor) column.Table {
	childTable := a.Child.FirstRoundEvaluate(b, data)
	return a.build(func(e proofexpr.Expr) column.Column { return e.FirstRoundEvaluate(b, childTable) })
}

func (a Aggregate) FinalRoundEvaluate(b *proofexpr.FinalRoundBuilder, data accessor.DataAccessor) column.Table {
	childTable := a.Child.FinalRoundEvaluate(b, data)
	return a.build(func(e proofexpr.Expr) column.Column { return e.FinalRoundEvaluate(b, childTable) })
}

func (a Aggregate) build(eval func(proofexpr.Expr) column.Column) column.Table {
	order := make([]string, len(a.Columns))
	cols := make(map[string]column.Column, len(a.Columns))
	for i, c := range a.Columns {
		order[i] = c.ID.Name()
		cols[c.ID.Name()] = eval(c.Expr)
	}
	tbl, err := column.NewTable(order, cols)
	if err != nil {
		panic("proofplan: Aggregate: " + err.Error())
	}
	return tbl
}

func (a Aggregate) VerifierEvaluate(b *proofexpr.VerificationBuilder, baseEvals proofexpr.OneEvalMap) (proofexpr.OneEvalMap, field.Element) {
	childEvals, rowCountEval := a.Child.VerifierEvaluate(b, baseEvals)
	scope := outputTableOneEvalMap(childEvals, rowCountEval)
	colEvals := make(proofexpr.OneEvalMap, len(a.Columns))
	for _, c := range a.Columns {
		colEvals[c.ID.Name()] = c.Expr.VerifierEvaluate(b, scope)
	}
	// Aggregate always emits exactly one output row: its row-count claim
	// is the constant 1, needing no commitment (mirrors how LiteralExpr's
	// own 1_n never needs one — a public, data-independent quantity).
	return colEvals, field.One()
}

var _ Plan = Aggregate{}

package proofplan

import (
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/accessor"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/column"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/field"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/proofexpr"
)

// Projection evaluates a fixed list of expressions over its child's output
// table, row for row. Row count is unchanged from the child, so no
// permutation argument is needed — this is the simplest compound node in
// spec.md §4.5.
type Projection struct {
	Child   Plan
	Columns []ProjectionColumn
}

// ProjectionColumn names one output column and the expression that
// computes it.
type ProjectionColumn struct {
	ID   Identifier
	Expr proofexpr.Expr
}

func (Projection) planKind() {}

func (p Projection) OutputSchema() []accessor.ColumnSchema {
	out := make([]accessor.ColumnSchema, len(p.Columns))
	for i, c := range p.Columns {
		out[i] = accessor.ColumnSchema{ID: c.ID, Type: c.Expr.ResultType()}
	}
	return out
}

func (p Projection) BaseColumnRefs() []accessor.ColumnRef {
	return p.Child.BaseColumnRefs()
}

func (p Projection) FirstRoundEvaluate(b *proofexpr.FirstRoundBuilder, data accessor.DataAccessor) column.Table {
	childTable := p.Child.FirstRoundEvaluate(b, data)
	return p.project(func(e proofexpr.Expr) column.Column {
		return e.FirstRoundEvaluate(b, childTable)
	}, childTable.RowCount)
}

func (p Projection) FinalRoundEvaluate(b *proofexpr.FinalRoundBuilder, data accessor.DataAccessor) column.Table {
	childTable := p.Child.FinalRoundEvaluate(b, data)
	return p.project(func(e proofexpr.Expr) column.Column {
		return e.FinalRoundEvaluate(b, childTable)
	}, childTable.RowCount)
}

func (p Projection) project(eval func(proofexpr.Expr) column.Column, rowCount int) column.Table {
	order := make([]string, len(p.Columns))
	cols := make(map[string]column.Column, len(p.Columns))
	for i, c := range p.Columns {
		order[i] = c.ID.Name()
		cols[c.ID.Name()] = eval(c.Expr)
	}
	tbl, err := column.NewTable(order, cols)
	if err != nil {
		panic("proofplan: Projection: " + err.Error())
	}
	tbl.RowCount = rowCount
	return tbl
}

func (p Projection) VerifierEvaluate(b *proofexpr.VerificationBuilder, baseEvals proofexpr.OneEvalMap) (proofexpr.OneEvalMap, field.Element) {
	childEvals, rowCountEval := p.Child.VerifierEvaluate(b, baseEvals)
	scope := outputTableOneEvalMap(childEvals, rowCountEval)
	colEvals := make(proofexpr.OneEvalMap, len(p.Columns))
	for _, c := range p.Columns {
		colEvals[c.ID.Name()] = c.Expr.VerifierEvaluate(b, scope)
	}
	return colEvals, rowCountEval
}

var _ Plan = Projection{}

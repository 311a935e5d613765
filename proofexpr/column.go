package proofexpr

import (
	"fmt"

	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/column"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/field"
)

// ColumnExpr reads a single named column from the current input table.
// Its evaluations need no commitments of their own — the column is
// already committed by whatever TableScan or child plan produced it — so
// both evaluate methods are pure lookups.
type ColumnExpr struct {
	Name string
	Type column.Type
}

func (ColumnExpr) exprKind()                  {}
func (e ColumnExpr) ResultType() column.Type  { return e.Type }

func (e ColumnExpr) FirstRoundEvaluate(b *FirstRoundBuilder, table column.Table) column.Column {
	return e.lookup(table)
}

func (e ColumnExpr) FinalRoundEvaluate(b *FinalRoundBuilder, table column.Table) column.Column {
	return e.lookup(table)
}

func (e ColumnExpr) lookup(table column.Table) column.Column {
	c, ok := table.Get(e.Name)
	if !ok {
		panic(fmt.Sprintf("proofexpr: ColumnExpr: column %q not present in input table", e.Name))
	}
	if c.Type != e.Type {
		panic(fmt.Sprintf("proofexpr: ColumnExpr: column %q has type %s, declared %s", e.Name, c.Type, e.Type))
	}
	return c
}

func (e ColumnExpr) VerifierEvaluate(b *VerificationBuilder, accessorEvals OneEvalMap) field.Element {
	v, ok := accessorEvals[e.Name]
	if !ok {
		panic(fmt.Sprintf("proofexpr: ColumnExpr: no evaluation claim registered for column %q", e.Name))
	}
	return v
}

var _ Expr = ColumnExpr{}

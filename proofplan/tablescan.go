package proofplan

import (
	"fmt"

	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/accessor"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/column"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/field"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/proofexpr"
)

// TableScan is the leaf plan node of spec.md §3: it reads a fixed,
// ordered projection of a base table's columns straight from a
// DataAccessor. It needs no intermediate commitments or subpolynomials of
// its own — every column it returns is already committed externally; the
// query driver folds those pre-existing commitments into the same batched
// evaluation proof as every other node's intermediate MLEs, using
// BaseColumnRefs to know which commitment backs which evaluation claim.
type TableScan struct {
	Table   accessor.TableRef
	Columns []ColumnSelection
}

// ColumnSelection names one projected column and its declared type,
// checked against the accessor's schema at evaluation time.
type ColumnSelection struct {
	ID   Identifier
	Type column.Type
}

func (TableScan) planKind() {}

func (s TableScan) OutputSchema() []accessor.ColumnSchema {
	out := make([]accessor.ColumnSchema, len(s.Columns))
	for i, c := range s.Columns {
		out[i] = accessor.ColumnSchema{ID: c.ID, Type: c.Type}
	}
	return out
}

func (s TableScan) BaseColumnRefs() []accessor.ColumnRef {
	refs := make([]accessor.ColumnRef, len(s.Columns))
	for i, c := range s.Columns {
		refs[i] = accessor.ColumnRef{Table: s.Table, Column: c.ID}
	}
	return refs
}

func (s TableScan) FirstRoundEvaluate(b *proofexpr.FirstRoundBuilder, data accessor.DataAccessor) column.Table {
	return s.read(data)
}

func (s TableScan) FinalRoundEvaluate(b *proofexpr.FinalRoundBuilder, data accessor.DataAccessor) column.Table {
	return s.read(data)
}

func (s TableScan) read(data accessor.DataAccessor) column.Table {
	order := make([]string, len(s.Columns))
	cols := make(map[string]column.Column, len(s.Columns))
	for i, c := range s.Columns {
		got, err := data.GetColumn(s.Table, c.ID)
		if err != nil {
			panic(fmt.Sprintf("proofplan: TableScan: read %s.%s: %v", s.Table, c.ID, err))
		}
		if got.Type != c.Type {
			panic(fmt.Sprintf("proofplan: TableScan: column %s.%s has type %s, declared %s", s.Table, c.ID, got.Type, c.Type))
		}
		order[i] = c.ID.Name()
		cols[c.ID.Name()] = got
	}
	tbl, err := column.NewTable(order, cols)
	if err != nil {
		panic(fmt.Sprintf("proofplan: TableScan: %v", err))
	}
	return tbl
}

// VerifierEvaluate looks up each column's claimed evaluation by its
// ColumnRef (the same ones BaseColumnRefs declared, in the same order),
// and the table's declared row-count evaluation, both already resolved by
// the driver into baseEvals — it never calls NextMLEEvaluation, since base
// columns are not part of any node's "intermediate" channel.
func (s TableScan) VerifierEvaluate(b *proofexpr.VerificationBuilder, baseEvals proofexpr.OneEvalMap) (proofexpr.OneEvalMap, field.Element) {
	colEvals := make(proofexpr.OneEvalMap, len(s.Columns))
	for _, c := range s.Columns {
		ref := accessor.ColumnRef{Table: s.Table, Column: c.ID}
		v, ok := baseEvals[ref.String()]
		if !ok {
			panic(fmt.Sprintf("proofplan: TableScan: no base evaluation claim for %s", ref))
		}
		colEvals[c.ID.Name()] = v
	}
	rowCountEval, ok := baseEvals[RowCountKey(s.Table)]
	if !ok {
		panic(fmt.Sprintf("proofplan: TableScan: no row-count evaluation claim for %s", s.Table))
	}
	return colEvals, rowCountEval
}

// RowCountKey is the baseEvals key under which the query driver stores a
// base table's row-count MLE evaluation (the all-ones indicator truncated
// to its length), distinct from any column's own key. Exported so the
// driver can populate it without duplicating the key format.
func RowCountKey(t accessor.TableRef) string {
	return "\x00row-count:" + t.String()
}

var _ Plan = TableScan{}

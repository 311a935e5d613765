package proofplan

import (
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/accessor"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/column"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/field"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/proofexpr"
)

// Empty is spec.md §3's statically-known-empty leaf: a fixed schema, zero
// rows, no base columns. It arises from query planning short-circuits
// (e.g. a `WHERE false` predicate folded away before proving), not from a
// runtime-computed row count — the zero is public and known at plan
// construction, unlike Filter's data-dependent row count, so it needs no
// commitment or subpolynomial of its own. Grounded on `tablescan.go`'s
// leaf shape, specialized to the degenerate zero-row case.
type Empty struct {
	Schema []accessor.ColumnSchema
}

func (Empty) planKind() {}

func (e Empty) OutputSchema() []accessor.ColumnSchema { return e.Schema }

func (e Empty) BaseColumnRefs() []accessor.ColumnRef { return nil }

func (e Empty) table() column.Table {
	order := make([]string, len(e.Schema))
	cols := make(map[string]column.Column, len(e.Schema))
	for i, s := range e.Schema {
		order[i] = s.ID.Name()
		cols[s.ID.Name()] = column.Column{Type: s.Type}
	}
	tbl, err := column.NewTable(order, cols)
	if err != nil {
		panic("proofplan: Empty: " + err.Error())
	}
	return tbl
}

func (e Empty) FirstRoundEvaluate(b *proofexpr.FirstRoundBuilder, data accessor.DataAccessor) column.Table {
	return e.table()
}

func (e Empty) FinalRoundEvaluate(b *proofexpr.FinalRoundBuilder, data accessor.DataAccessor) column.Table {
	return e.table()
}

func (e Empty) VerifierEvaluate(b *proofexpr.VerificationBuilder, baseEvals proofexpr.OneEvalMap) (proofexpr.OneEvalMap, field.Element) {
	colEvals := make(proofexpr.OneEvalMap, len(e.Schema))
	for _, s := range e.Schema {
		colEvals[s.ID.Name()] = field.Zero()
	}
	return colEvals, field.Zero()
}

var _ Plan = Empty{}

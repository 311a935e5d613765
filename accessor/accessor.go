// Package accessor defines the read-only view contracts spec.md §6 places
// between the proof core and whatever external store holds table data and
// commitments: the core never opens a connection, parses SQL, or touches a
// filesystem itself, it only calls through these four traits.
package accessor

import (
	"fmt"

	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/column"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/commitment"
)

// TableRef names a table, optionally namespaced by schema, the way a plan
// node's TableScan identifies which table it reads.
type TableRef struct {
	Schema Identifier
	Table  Identifier
}

// String renders "schema.table", or bare "table" when Schema is the zero
// Identifier.
func (r TableRef) String() string {
	if r.Schema.Name() == "" {
		return r.Table.Name()
	}
	return r.Schema.Name() + "." + r.Table.Name()
}

// ColumnRef names one column of one table; CommitmentAccessor looks
// commitments up by this pair, per spec.md §6
// ("CommitmentAccessor::get_commitment(column_ref) -> Commitment").
type ColumnRef struct {
	Table  TableRef
	Column Identifier
}

// String renders "schema.table.column", or "table.column" when the
// table's Schema is the zero Identifier.
func (r ColumnRef) String() string {
	return fmt.Sprintf("%s.%s", r.Table.String(), r.Column.Name())
}

// MetadataAccessor reports a table's row count and global row offset,
// per spec.md §6 ("MetadataAccessor::length(table) -> usize, offset(table)
// -> usize"). Offset is the table's starting row index in whatever global
// commitment numbering the backing store uses; it is 0 for a table
// committed from its own start.
type MetadataAccessor interface {
	Length(table TableRef) (int, error)
	Offset(table TableRef) (int, error)
}

// SchemaAccessor resolves column identifiers to their declared type, and
// enumerates a table's full schema in column order, per spec.md §6
// ("SchemaAccessor::lookup_column(table, id) -> Option<Type>,
// lookup_schema(table) -> [(id, Type)]").
type SchemaAccessor interface {
	LookupColumn(table TableRef, id Identifier) (column.Type, bool)
	LookupSchema(table TableRef) []ColumnSchema
}

// ColumnSchema pairs a column's identifier with its declared type, the
// element of SchemaAccessor.LookupSchema's result.
type ColumnSchema struct {
	ID   Identifier
	Type column.Type
}

// DataAccessor is the prover-side read path: it returns the actual column
// data a TableScan plan node commits to and evaluates over, per spec.md §6
// ("DataAccessor::get_column(table, id) -> Column"). A wrong-type or
// missing column is a host-programmer error (spec.md §4.8) and the
// implementation is expected to panic rather than return it as an error —
// GetColumn's error return is reserved for accessor-level I/O failure
// (e.g. the backing store is unreachable), never for "column doesn't
// exist," which the caller should have already checked via SchemaAccessor.
type DataAccessor interface {
	MetadataAccessor
	SchemaAccessor
	GetColumn(table TableRef, id Identifier) (column.Column, error)
}

// CommitmentAccessor is the verifier-side read path: it returns the
// precomputed commitment to a column rather than the column itself, since
// the verifier never sees raw data, per spec.md §6
// ("CommitmentAccessor::get_commitment(column_ref) -> Commitment").
type CommitmentAccessor interface {
	MetadataAccessor
	SchemaAccessor
	GetCommitment(ref ColumnRef) (commitment.Commitment, error)
}

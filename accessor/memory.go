package accessor

import (
	"fmt"

	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/column"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/commitment"
)

// MemoryTable is an in-memory table plus its global row offset, the unit
// MemoryAccessor.AddTable registers.
type MemoryTable struct {
	Table  column.Table
	Offset int
}

// MemoryAccessor is an in-memory DataAccessor, grounded on the
// OwnedTableTestAccessor fixture the original test suite builds against
// (owned_table_test_accessor_test.rs: "new_empty_with_setup" +
// "add_table(table_ref, data, offset)"). It is used by package tests that
// need a concrete DataAccessor/CommitmentAccessor without standing up an
// external store.
type MemoryAccessor struct {
	tables map[string]MemoryTable
}

// NewMemoryAccessor returns an accessor with no tables registered.
func NewMemoryAccessor() *MemoryAccessor {
	return &MemoryAccessor{tables: make(map[string]MemoryTable)}
}

// AddTable registers data under ref at the given global row offset,
// replacing any prior registration for the same ref.
func (a *MemoryAccessor) AddTable(ref TableRef, data column.Table, offset int) {
	a.tables[ref.String()] = MemoryTable{Table: data, Offset: offset}
}

func (a *MemoryAccessor) lookup(table TableRef) (MemoryTable, error) {
	t, ok := a.tables[table.String()]
	if !ok {
		return MemoryTable{}, fmt.Errorf("accessor: table %q not registered", table.String())
	}
	return t, nil
}

// Length implements MetadataAccessor.
func (a *MemoryAccessor) Length(table TableRef) (int, error) {
	t, err := a.lookup(table)
	if err != nil {
		return 0, err
	}
	return t.Table.RowCount, nil
}

// Offset implements MetadataAccessor.
func (a *MemoryAccessor) Offset(table TableRef) (int, error) {
	t, err := a.lookup(table)
	if err != nil {
		return 0, err
	}
	return t.Offset, nil
}

// LookupColumn implements SchemaAccessor.
func (a *MemoryAccessor) LookupColumn(table TableRef, id Identifier) (column.Type, bool) {
	t, err := a.lookup(table)
	if err != nil {
		return 0, false
	}
	c, ok := t.Table.Get(id.Name())
	if !ok {
		return 0, false
	}
	return c.Type, true
}

// LookupSchema implements SchemaAccessor.
func (a *MemoryAccessor) LookupSchema(table TableRef) []ColumnSchema {
	t, err := a.lookup(table)
	if err != nil {
		return nil
	}
	schema := make([]ColumnSchema, 0, len(t.Table.Order))
	for _, name := range t.Table.Order {
		id, err := NewIdentifier(name)
		if err != nil {
			panic(fmt.Sprintf("accessor: table %q has invalid column name %q: %v", table.String(), name, err))
		}
		schema = append(schema, ColumnSchema{ID: id, Type: t.Table.Columns[name].Type})
	}
	return schema
}

// GetColumn implements DataAccessor. A missing table or column is a
// host-programmer error per spec.md §4.8 and panics rather than returning
// an error.
func (a *MemoryAccessor) GetColumn(table TableRef, id Identifier) (column.Column, error) {
	t, err := a.lookup(table)
	if err != nil {
		panic(err)
	}
	c, ok := t.Table.Get(id.Name())
	if !ok {
		panic(fmt.Sprintf("accessor: column %q not found in table %q", id.Name(), table.String()))
	}
	return c, nil
}

var _ DataAccessor = (*MemoryAccessor)(nil)

// MemoryCommitmentAccessor is the verifier-side counterpart of
// MemoryAccessor: it stores precomputed commitments instead of raw
// columns, the same shape the original test suite's commitment accessor
// fixtures use (query_commitments.rs).
type MemoryCommitmentAccessor struct {
	tables      map[string]MemoryTable
	commitments map[string]commitment.Commitment
}

// NewMemoryCommitmentAccessor returns an accessor with nothing registered.
func NewMemoryCommitmentAccessor() *MemoryCommitmentAccessor {
	return &MemoryCommitmentAccessor{
		tables:      make(map[string]MemoryTable),
		commitments: make(map[string]commitment.Commitment),
	}
}

// AddTable registers a table's length/offset and schema (but not its data)
// under ref.
func (a *MemoryCommitmentAccessor) AddTable(ref TableRef, rowCount, offset int, schema []ColumnSchema) {
	order := make([]string, len(schema))
	cols := make(map[string]column.Column, len(schema))
	for i, s := range schema {
		order[i] = s.ID.Name()
		cols[s.ID.Name()] = column.Column{Type: s.Type}
	}
	a.tables[ref.String()] = MemoryTable{
		Table:  column.Table{Order: order, Columns: cols, RowCount: rowCount},
		Offset: offset,
	}
}

// AddCommitment registers the commitment for one column of a registered
// table.
func (a *MemoryCommitmentAccessor) AddCommitment(ref ColumnRef, c commitment.Commitment) {
	a.commitments[ref.String()] = c
}

func (a *MemoryCommitmentAccessor) lookup(table TableRef) (MemoryTable, error) {
	t, ok := a.tables[table.String()]
	if !ok {
		return MemoryTable{}, fmt.Errorf("accessor: table %q not registered", table.String())
	}
	return t, nil
}

// Length implements MetadataAccessor.
func (a *MemoryCommitmentAccessor) Length(table TableRef) (int, error) {
	t, err := a.lookup(table)
	if err != nil {
		return 0, err
	}
	return t.Table.RowCount, nil
}

// Offset implements MetadataAccessor.
func (a *MemoryCommitmentAccessor) Offset(table TableRef) (int, error) {
	t, err := a.lookup(table)
	if err != nil {
		return 0, err
	}
	return t.Offset, nil
}

// LookupColumn implements SchemaAccessor.
func (a *MemoryCommitmentAccessor) LookupColumn(table TableRef, id Identifier) (column.Type, bool) {
	t, err := a.lookup(table)
	if err != nil {
		return 0, false
	}
	c, ok := t.Table.Get(id.Name())
	if !ok {
		return 0, false
	}
	return c.Type, true
}

// LookupSchema implements SchemaAccessor.
func (a *MemoryCommitmentAccessor) LookupSchema(table TableRef) []ColumnSchema {
	t, err := a.lookup(table)
	if err != nil {
		return nil
	}
	schema := make([]ColumnSchema, 0, len(t.Table.Order))
	for _, name := range t.Table.Order {
		id, err := NewIdentifier(name)
		if err != nil {
			panic(fmt.Sprintf("accessor: table %q has invalid column name %q: %v", table.String(), name, err))
		}
		schema = append(schema, ColumnSchema{ID: id, Type: t.Table.Columns[name].Type})
	}
	return schema
}

// GetCommitment implements CommitmentAccessor.
func (a *MemoryCommitmentAccessor) GetCommitment(ref ColumnRef) (commitment.Commitment, error) {
	c, ok := a.commitments[ref.String()]
	if !ok {
		return nil, fmt.Errorf("accessor: no commitment registered for %q", ref.String())
	}
	return c, nil
}

var _ CommitmentAccessor = (*MemoryCommitmentAccessor)(nil)

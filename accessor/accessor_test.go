package accessor_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/accessor"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/column"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/field"
)

func bigintColumn(vs ...int64) column.Column {
	scalars := make([]field.Element, len(vs))
	for i, v := range vs {
		scalars[i] = field.FromSignedInt(v)
	}
	return column.Column{Type: column.TypeBigInt, Scalars: scalars}
}

func TestMemoryAccessorLength(t *testing.T) {
	a := accessor.NewMemoryAccessor()
	ref1 := accessor.TableRef{Schema: accessor.MustIdentifier("sxt"), Table: accessor.MustIdentifier("test")}
	ref2 := accessor.TableRef{Schema: accessor.MustIdentifier("sxt"), Table: accessor.MustIdentifier("test2")}

	table1, err := column.NewTable([]string{"a", "b"}, map[string]column.Column{
		"a": bigintColumn(1, 2, 3),
		"b": bigintColumn(4, 5, 6),
	})
	require.NoError(t, err)
	a.AddTable(ref1, table1, 0)

	length, err := a.Length(ref1)
	require.NoError(t, err)
	require.Equal(t, 3, length)

	table2, err := column.NewTable([]string{"a", "b"}, map[string]column.Column{
		"a": bigintColumn(1, 2, 3, 4),
		"b": bigintColumn(4, 5, 6, 5),
	})
	require.NoError(t, err)
	a.AddTable(ref2, table2, 0)

	length1, err := a.Length(ref1)
	require.NoError(t, err)
	require.Equal(t, 3, length1)

	length2, err := a.Length(ref2)
	require.NoError(t, err)
	require.Equal(t, 4, length2)
}

func TestMemoryAccessorGetColumn(t *testing.T) {
	a := accessor.NewMemoryAccessor()
	ref1 := accessor.TableRef{Schema: accessor.MustIdentifier("sxt"), Table: accessor.MustIdentifier("test")}
	ref2 := accessor.TableRef{Schema: accessor.MustIdentifier("sxt"), Table: accessor.MustIdentifier("test2")}

	table1, err := column.NewTable([]string{"a", "b"}, map[string]column.Column{
		"a": bigintColumn(1, 2, 3),
		"b": bigintColumn(4, 5, 6),
	})
	require.NoError(t, err)
	a.AddTable(ref1, table1, 0)

	table2, err := column.NewTable([]string{"a", "b"}, map[string]column.Column{
		"a": bigintColumn(1, 2, 3, 4),
		"b": bigintColumn(4, 5, 6, 5),
	})
	require.NoError(t, err)
	a.AddTable(ref2, table2, 0)

	got, err := a.GetColumn(ref1, accessor.MustIdentifier("b"))
	require.NoError(t, err)
	require.Equal(t, bigintColumn(4, 5, 6), got)

	got, err = a.GetColumn(ref2, accessor.MustIdentifier("a"))
	require.NoError(t, err)
	require.Equal(t, bigintColumn(1, 2, 3, 4), got)
}

func TestMemoryAccessorLookupSchema(t *testing.T) {
	a := accessor.NewMemoryAccessor()
	ref := accessor.TableRef{Table: accessor.MustIdentifier("test")}
	table, err := column.NewTable([]string{"a", "b"}, map[string]column.Column{
		"a": bigintColumn(1, 2),
		"b": bigintColumn(3, 4),
	})
	require.NoError(t, err)
	a.AddTable(ref, table, 0)

	schema := a.LookupSchema(ref)
	require.Len(t, schema, 2)
	require.Equal(t, "a", schema[0].ID.Name())
	require.Equal(t, column.TypeBigInt, schema[0].Type)

	typ, ok := a.LookupColumn(ref, accessor.MustIdentifier("b"))
	require.True(t, ok)
	require.Equal(t, column.TypeBigInt, typ)

	_, ok = a.LookupColumn(ref, accessor.MustIdentifier("missing"))
	require.False(t, ok)
}

func TestIdentifierValidation(t *testing.T) {
	_, err := accessor.NewIdentifier("valid_name1")
	require.NoError(t, err)

	id, err := accessor.NewIdentifier("MixedCase")
	require.NoError(t, err)
	require.Equal(t, "mixedcase", id.Name())

	_, err = accessor.NewIdentifier("select")
	require.Error(t, err)

	_, err = accessor.NewIdentifier("1leading_digit")
	require.Error(t, err)

	_, err = accessor.NewIdentifier("")
	require.Error(t, err)

	long := make([]byte, accessor.MaxIdentifierLength+1)
	for i := range long {
		long[i] = 'a'
	}
	_, err = accessor.NewIdentifier(string(long))
	require.Error(t, err)
}

func TestColumnRefString(t *testing.T) {
	ref := accessor.ColumnRef{
		Table:  accessor.TableRef{Schema: accessor.MustIdentifier("sxt"), Table: accessor.MustIdentifier("t")},
		Column: accessor.MustIdentifier("c"),
	}
	require.Equal(t, "sxt.t.c", ref.String())
}

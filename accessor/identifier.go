package accessor

import (
	"fmt"
	"strings"
)

// Identifier is a validated SQL identifier: ASCII, case-folded to lower on
// construction, at most 64 bytes, and never a reserved word — the contract
// spec.md §6 places on table and column names. Construct one only via
// NewIdentifier; the zero value is not a valid Identifier.
type Identifier struct {
	name string
}

// MaxIdentifierLength is the longest byte length NewIdentifier accepts.
const MaxIdentifierLength = 64

// reservedWords are SQL keywords an identifier may never equal after
// case-folding.
var reservedWords = map[string]bool{
	"select": true, "from": true, "where": true, "group": true, "by": true,
	"order": true, "having": true, "join": true, "on": true, "as": true,
	"and": true, "or": true, "not": true, "null": true, "true": true,
	"false": true, "table": true, "union": true, "all": true, "insert": true,
	"update": true, "delete": true, "create": true, "drop": true, "alter": true,
	"limit": true, "offset": true, "distinct": true, "case": true, "when": true,
	"then": true, "else": true, "end": true, "timestamp": true, "cast": true,
	"in": true, "is": true, "between": true, "like": true,
}

// NewIdentifier validates and case-folds s, rejecting empty strings,
// non-ASCII-identifier characters, strings over MaxIdentifierLength bytes,
// and reserved words, per spec.md §6 ("identifier syntax ... ASCII,
// case-folded, ≤64 bytes, reserved-word checked").
func NewIdentifier(s string) (Identifier, error) {
	if len(s) == 0 {
		return Identifier{}, fmt.Errorf("accessor: identifier: empty")
	}
	if len(s) > MaxIdentifierLength {
		return Identifier{}, fmt.Errorf("accessor: identifier %q exceeds %d bytes", s, MaxIdentifierLength)
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		case r == '_':
		default:
			return Identifier{}, fmt.Errorf("accessor: identifier %q: invalid character %q at byte %d", s, r, i)
		}
	}
	lower := strings.ToLower(s)
	if reservedWords[lower] {
		return Identifier{}, fmt.Errorf("accessor: identifier %q is a reserved word", s)
	}
	return Identifier{name: lower}, nil
}

// MustIdentifier calls NewIdentifier and panics on error, for use with
// compile-time-constant names (test fixtures, generated plan builders).
func MustIdentifier(s string) Identifier {
	id, err := NewIdentifier(s)
	if err != nil {
		panic(err)
	}
	return id
}

// Name returns the case-folded identifier text.
func (id Identifier) Name() string { return id.name }

// String implements fmt.Stringer.
func (id Identifier) String() string { return id.name }

// Equal reports whether two identifiers name the same thing (comparison is
// already case-folded at construction, so this is just equality).
func (id Identifier) Equal(other Identifier) bool { return id.name == other.name }

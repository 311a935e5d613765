package gadgets

// ByteClass classifies one byte position across every row of a column's
// little-endian byte decomposition, per spec.md §4.6.3.
type ByteClass int

const (
	// ByteVarying means the byte position takes more than one value across
	// rows and needs a full range check.
	ByteVarying ByteClass = iota
	// ByteFixedZero means every row has 0x00 at this position.
	ByteFixedZero
	// ByteFixedMax means every row has 0xFF at this position.
	ByteFixedMax
)

// ClassifyByteColumn reports whether a single byte position is constant
// across rows (and which constant) or varies.
func ClassifyByteColumn(col []byte) ByteClass {
	if len(col) == 0 {
		return ByteVarying
	}
	first := col[0]
	for _, b := range col[1:] {
		if b != first {
			return ByteVarying
		}
	}
	switch first {
	case 0x00:
		return ByteFixedZero
	case 0xFF:
		return ByteFixedMax
	default:
		return ByteVarying
	}
}

// ClassifyByteDistribution classifies every byte position of a
// scalar's little-endian decomposition (rows[i][pos] is row i's byte at
// position pos), letting the caller skip a full boolean-bit range check on
// byte positions that are provably constant across the whole column.
func ClassifyByteDistribution(rows [][]byte) []ByteClass {
	if len(rows) == 0 {
		return nil
	}
	width := len(rows[0])
	classes := make([]ByteClass, width)
	col := make([]byte, len(rows))
	for pos := 0; pos < width; pos++ {
		for i, r := range rows {
			col[i] = r[pos]
		}
		classes[pos] = ClassifyByteColumn(col)
	}
	return classes
}

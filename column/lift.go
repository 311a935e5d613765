package column

import (
	"fmt"
	"math/big"

	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/field"
)

// LiftBooleans lifts a []bool column.
func LiftBooleans(vs []bool) Column {
	scalars := make([]field.Element, len(vs))
	for i, v := range vs {
		scalars[i] = field.FromBool(v)
	}
	return Column{Type: TypeBoolean, Scalars: scalars}
}

// LiftInts lifts a []int64 column as the given signed integer Type
// (TinyInt/SmallInt/Int/BigInt/Int128), mapping negatives to p+k per
// spec.md §4.1.
func LiftInts(t Type, vs []int64) (Column, error) {
	switch t {
	case TypeTinyInt, TypeSmallInt, TypeInt, TypeBigInt, TypeInt128:
	default:
		return Column{}, fmt.Errorf("column: %s is not a signed integer type", t)
	}
	scalars := make([]field.Element, len(vs))
	for i, v := range vs {
		scalars[i] = field.FromSignedInt(v)
	}
	return Column{Type: t, Scalars: scalars}, nil
}

// LiftUint8s lifts a []uint8 column.
func LiftUint8s(vs []uint8) Column {
	scalars := make([]field.Element, len(vs))
	for i, v := range vs {
		scalars[i] = field.FromUint64(uint64(v))
	}
	return Column{Type: TypeUint8, Scalars: scalars}
}

// LiftDecimal75 lifts already-scaled big.Int values (value = decimal *
// 10^scale) as a Decimal75 column, rejecting any precision above
// MaxDecimalPrecision, per spec.md §4.1.
func LiftDecimal75(meta DecimalMeta, vs []*big.Int) (Column, error) {
	if meta.Precision > MaxDecimalPrecision {
		return Column{}, fmt.Errorf("column: decimal precision %d exceeds max %d", meta.Precision, MaxDecimalPrecision)
	}
	bound := decimalBound(meta.Precision)
	scalars := make([]field.Element, len(vs))
	for i, v := range vs {
		abs := new(big.Int).Abs(v)
		if abs.Cmp(bound) >= 0 {
			return Column{}, fmt.Errorf("column: decimal value %s exceeds precision %d", v, meta.Precision)
		}
		scalars[i] = field.FromBigInt(v)
	}
	return Column{Type: TypeDecimal75, Decimal: meta, Scalars: scalars}, nil
}

func decimalBound(precision uint8) *big.Int {
	ten := big.NewInt(10)
	return new(big.Int).Exp(ten, big.NewInt(int64(precision)), nil)
}

// LiftVarChar lifts a []string column, carrying both the byte side and the
// hash-to-field scalar side, per the paired-representation design invariant
// in spec.md §3.
func LiftVarChar(vs []string) Column {
	scalars := make([]field.Element, len(vs))
	bs := make([][]byte, len(vs))
	for i, v := range vs {
		b := []byte(v)
		bs[i] = b
		scalars[i] = field.HashBytesToScalar(b)
	}
	return Column{Type: TypeVarChar, Scalars: scalars, Bytes: bs}
}

// LiftVarBinary lifts a [][]byte column the same way as LiftVarChar.
func LiftVarBinary(vs [][]byte) Column {
	scalars := make([]field.Element, len(vs))
	bs := make([][]byte, len(vs))
	for i, v := range vs {
		bs[i] = append([]byte(nil), v...)
		scalars[i] = field.HashBytesToScalar(v)
	}
	return Column{Type: TypeVarBinary, Scalars: scalars, Bytes: bs}
}

// LiftTimestampTZ lifts unit-normalized epoch integers.
func LiftTimestampTZ(meta TimestampMeta, vs []int64) Column {
	scalars := make([]field.Element, len(vs))
	for i, v := range vs {
		scalars[i] = field.FromSignedInt(v)
	}
	return Column{Type: TypeTimestampTZ, Timestamp: meta, Scalars: scalars}
}

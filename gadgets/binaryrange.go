package gadgets

import (
	"math/big"
	"strconv"

	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/field"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/internal/arena"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/mle"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/sumcheck"
)

// BinaryRangeAux is the bit decomposition of a length-n signed column x
// proving |x[i]| <= 2^Bound - 1, per spec.md §4.6.2: Bound magnitude-bit
// columns plus one sign-bit column, each boolean, with
// x = sign * Σ 2^k·bit_k.
type BinaryRangeAux struct {
	Bound         int
	MagnitudeBits [][]field.Element // Bound columns, MagnitudeBits[k][i] is bit k of |x[i]|
	SignBit       []field.Element   // 1 column, 1 iff x[i] is negative
}

// BuildBinaryRange decomposes every element of xs into its sign and
// Bound-bit magnitude, committing Bound+1 boolean columns.
func BuildBinaryRange(alloc *arena.Arena, xs []field.Element, bound int) BinaryRangeAux {
	n := len(xs)
	magBits := make([][]field.Element, bound)
	for k := range magBits {
		magBits[k] = make([]field.Element, n)
	}
	sign := make([]field.Element, n)

	for i, x := range xs {
		v := field.SignedBigInt(x)
		if v.Sign() < 0 {
			sign[i] = field.One()
		}
		mag := new(big.Int).Abs(v)
		for k := 0; k < bound; k++ {
			if mag.Bit(k) == 1 {
				magBits[k][i] = field.One()
			}
		}
	}

	for k := range magBits {
		magBits[k] = arena.Put(alloc, magBits[k])
	}
	sign = arena.Put(alloc, sign)

	return BinaryRangeAux{Bound: bound, MagnitudeBits: magBits, SignBit: sign}
}

// booleanIdentity builds the b·(b-1) = 0 Identity subpolynomial for a single
// bit column, the standard range-check boolean constraint.
func booleanIdentity(label string, bits []field.Element) sumcheck.Subpolynomial {
	bMLE := mle.New(bits)
	return sumcheck.Subpolynomial{
		Label:  label,
		Flavor: sumcheck.Identity,
		Terms: []mle.Product{
			{Coefficient: field.One(), Factors: []mle.MLE{bMLE, bMLE}},
			{Coefficient: field.Neg(field.One()), Factors: []mle.MLE{bMLE}},
		},
		Degree: 2,
	}
}

// BooleanSubpolynomials returns one b·(b-1)=0 Identity subpolynomial per
// magnitude-bit column and one for the sign column.
func BooleanSubpolynomials(labelPrefix string, aux BinaryRangeAux) []sumcheck.Subpolynomial {
	subs := make([]sumcheck.Subpolynomial, 0, len(aux.MagnitudeBits)+1)
	for k, bits := range aux.MagnitudeBits {
		subs = append(subs, booleanIdentity(labelAt(labelPrefix, k), bits))
	}
	subs = append(subs, booleanIdentity(labelPrefix+"-sign", aux.SignBit))
	return subs
}

// ReconstructionSubpolynomial builds the Identity subpolynomial enforcing
// x[i] = (1 - 2·sign[i]) · Σ_k 2^k·bit_k[i] at every row, per spec.md
// §4.6.2's "x = Σ 2^k bₖ · sign" rule.
func ReconstructionSubpolynomial(label string, xMLE mle.MLE, aux BinaryRangeAux) sumcheck.Subpolynomial {
	terms := make([]mle.Product, 0, 2*len(aux.MagnitudeBits)+1)
	terms = append(terms, mle.Product{Coefficient: field.One(), Factors: []mle.MLE{xMLE}})

	signMLE := mle.New(aux.SignBit)
	two := field.FromUint64(2)
	for k, bits := range aux.MagnitudeBits {
		bMLE := mle.New(bits)
		weight := field.FromUint64(uint64(1) << uint(k))
		// -2^k·bit_k
		terms = append(terms, mle.Product{Coefficient: field.Neg(weight), Factors: []mle.MLE{bMLE}})
		// +2·2^k·bit_k·sign
		terms = append(terms, mle.Product{Coefficient: field.Mul(two, weight), Factors: []mle.MLE{bMLE, signMLE}})
	}

	return sumcheck.Subpolynomial{Label: label, Flavor: sumcheck.Identity, Terms: terms, Degree: 3}
}

func labelAt(prefix string, k int) string {
	return prefix + "-" + strconv.Itoa(k)
}

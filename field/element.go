// Package field wraps the bn254 scalar field used throughout the proof
// system, giving every other package a single named scalar type instead of
// passing gnark-crypto's fr.Element around directly.
package field

import (
	"crypto/sha256"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// Element is a prime-field scalar. The zero value is the additive identity.
type Element struct {
	inner fr.Element
}

// Zero returns the additive identity.
func Zero() Element { return Element{} }

// One returns the multiplicative identity.
func One() Element {
	var e Element
	e.inner.SetOne()
	return e
}

// FromUint64 lifts a small unsigned integer into the field.
func FromUint64(v uint64) Element {
	var e Element
	e.inner.SetUint64(v)
	return e
}

// FromBool lifts a boolean to 0 or 1, per spec.md §4.1.
func FromBool(b bool) Element {
	if b {
		return One()
	}
	return Zero()
}

// FromSignedInt maps a signed integer k to k mod p, i.e. negatives wrap to
// p+k, per spec.md §4.1.
func FromSignedInt(k int64) Element {
	var e Element
	if k >= 0 {
		e.inner.SetUint64(uint64(k))
		return e
	}
	var neg big.Int
	neg.SetInt64(-k)
	e.inner.SetBigInt(&neg)
	e.inner.Neg(&e.inner)
	return e
}

// FromBigInt reduces an arbitrary-precision integer mod p.
func FromBigInt(v *big.Int) Element {
	var e Element
	e.inner.SetBigInt(v)
	return e
}

// Add returns a+b.
func Add(a, b Element) Element {
	var r Element
	r.inner.Add(&a.inner, &b.inner)
	return r
}

// Sub returns a-b.
func Sub(a, b Element) Element {
	var r Element
	r.inner.Sub(&a.inner, &b.inner)
	return r
}

// Mul returns a*b.
func Mul(a, b Element) Element {
	var r Element
	r.inner.Mul(&a.inner, &b.inner)
	return r
}

// Neg returns -a.
func Neg(a Element) Element {
	var r Element
	r.inner.Neg(&a.inner)
	return r
}

// Inverse returns a^-1. Panics on zero; callers must not invert zero, which
// never happens on a correctly-constructed witness (a programmer error
// otherwise, per spec.md §7).
func Inverse(a Element) Element {
	var r Element
	if r.inner.Inverse(&a.inner) == nil {
		panic("field: inverse of zero")
	}
	return r
}

// IsZero reports whether a is the additive identity.
func (a Element) IsZero() bool { return a.inner.IsZero() }

// Equal reports whether a == b.
func (a Element) Equal(b Element) bool { return a.inner.Equal(&b.inner) }

// BatchInvert inverts every element of vs in place using the Montgomery
// trick: one real inversion, 3(n-1) multiplications, instead of n
// inversions. Elements equal to zero are left as zero.
func BatchInvert(vs []Element) {
	n := len(vs)
	if n == 0 {
		return
	}
	prefix := make([]fr.Element, n)
	var acc fr.Element
	acc.SetOne()
	zero := make([]bool, n)
	for i, v := range vs {
		if v.inner.IsZero() {
			zero[i] = true
			prefix[i] = acc
			continue
		}
		prefix[i] = acc
		acc.Mul(&acc, &v.inner)
	}
	accInv := new(fr.Element).Inverse(&acc)
	for i := n - 1; i >= 0; i-- {
		if zero[i] {
			continue
		}
		var inv fr.Element
		inv.Mul(accInv, &prefix[i])
		accInv.Mul(accInv, &vs[i].inner)
		vs[i].inner = inv
	}
}

// SignedCmp compares a and b as if both had been produced by FromSignedInt,
// interpreting any element greater than p/2 as negative (x - p). Returns -1,
// 0, or 1.
func SignedCmp(a, b Element) int {
	as := a.toSigned()
	bs := b.toSigned()
	return as.Cmp(bs)
}

// SignedBigInt returns a's representative in (-p/2, p/2], the inverse of
// FromSignedInt. Range-check gadgets use this to recover the magnitude and
// sign of a field element produced from a signed column difference.
func SignedBigInt(a Element) *big.Int {
	return a.toSigned()
}

func (a Element) toSigned() *big.Int {
	v := new(big.Int)
	a.inner.BigInt(v)
	modulus := fr.Modulus()
	half := new(big.Int).Rsh(modulus, 1)
	if v.Cmp(half) > 0 {
		v.Sub(v, modulus)
	}
	return v
}

// hashToFieldDomain domain-separates VarChar/VarBinary hashing from every
// other absorption point in the protocol.
const hashToFieldDomain = "sxt-proof-of-sql/varchar-hash-to-field"

// HashBytesToScalar deterministically maps bytes to a field element, used to
// lift VarChar/VarBinary columns per spec.md §3 (the paired representation
// design invariant).
func HashBytesToScalar(data []byte) Element {
	h := sha256.New()
	h.Write([]byte(hashToFieldDomain))
	h.Write(data)
	digest := h.Sum(nil)
	var e Element
	e.inner.SetBytes(digest)
	return e
}

// SampleUniform derives a uniformly-distributed field element from a 32-byte
// seed, used for Fiat-Shamir challenge derivation.
func SampleUniform(seed [32]byte) Element {
	var e Element
	e.inner.SetBytes(seed[:])
	return e
}

// Bytes returns the canonical little-endian encoding of a, per spec.md §6
// ("Endianness is little-endian for scalars").
func (a Element) Bytes() [32]byte {
	be := a.inner.Bytes()
	var le [32]byte
	for i, b := range be {
		le[32-1-i] = b
	}
	return le
}

// SetBytes decodes a canonical little-endian scalar.
func SetBytes(b [32]byte) Element {
	var be [32]byte
	for i, v := range b {
		be[32-1-i] = v
	}
	var e Element
	e.inner.SetBytes(be[:])
	return e
}

// String returns a decimal representation, used for debugging and test
// failure messages only.
func (a Element) String() string { return a.inner.String() }

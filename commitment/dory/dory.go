// Package dory implements backend B1 of spec.md §4.4: a transparent
// pairing-based commitment scheme in the style of Dory/Dynamic-Dory,
// grounded on gnark-crypto's bls12-381 pairing group
// (github.com/consensys/gnark-crypto/ecc/bls12-381) the way
// consensys/gnark structures its Groth16 pairing-check verifier
// (backend/groth16/bn254/mpcsetup), generalized to BLS12-381 and to a
// rectangular (row, col) column layout instead of a fixed R1CS shape.
package dory

import (
	"fmt"
	"math/big"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"

	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/column"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/commitment"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/field"
)

// Setup holds the two generator vectors (Gamma1 in G1, Gamma2 in G2) public
// parameters require, sized to the largest rectangle this deployment will
// ever commit.
type Setup struct {
	Gamma1 []bls12381.G1Affine
	Gamma2 []bls12381.G2Affine
}

func (*Setup) isPublicSetup()   {}
func (*Setup) isProverSetup()   {}
func (*Setup) isVerifierSetup() {}

var (
	_ commitment.ProverSetup   = (*Setup)(nil)
	_ commitment.VerifierSetup = (*Setup)(nil)
)

// width is the fixed column count of the setup's rectangular layout. Every
// commitment under the same Setup shares this width so that a global row
// index (offset+i)/width, column index (offset+i)%width is independent of
// where any one column's sub-range starts or ends — the property Add's
// concatenation homomorphism depends on, per spec.md §4.4 ("a rectangular
// layout ... chosen to balance row and column work").
func width(s *Setup) int {
	if len(s.Gamma2) == 0 {
		return 1
	}
	return len(s.Gamma2)
}

// rowsNeeded reports how many Gamma1 rows a column spanning global indices
// [offset, offset+n) touches under the setup's fixed width.
func rowsNeeded(offset, n, w int) int {
	if n == 0 {
		return 0
	}
	last := offset + n - 1
	return last/w + 1
}

// Commitment is a single GT (pairing-target) element plus the column
// metadata spec.md §3 requires.
type Commitment struct {
	C    bls12381.GT
	Type column.Type
	Len  int
	Off  int
}

var _ commitment.Commitment = Commitment{}

func (c Commitment) Add(other commitment.Commitment) (commitment.Commitment, error) {
	o, ok := other.(Commitment)
	if !ok {
		return nil, fmt.Errorf("dory: Add: other commitment is not a dory.Commitment")
	}
	if o.Off != c.Off+c.Len {
		return nil, fmt.Errorf("dory: Add: ranges not adjacent: [%d,%d) + [%d,%d)", c.Off, c.Off+c.Len, o.Off, o.Off+o.Len)
	}
	if o.Type != c.Type {
		return nil, fmt.Errorf("dory: Add: column type mismatch: %s vs %s", c.Type, o.Type)
	}
	var sum bls12381.GT
	sum.Mul(&c.C, &o.C)
	return Commitment{C: sum, Type: c.Type, Len: c.Len + o.Len, Off: c.Off}, nil
}

func (c Commitment) CompressedBytes() []byte {
	b := c.C.Bytes()
	return b[:]
}

func (c Commitment) ColumnType() column.Type { return c.Type }
func (c Commitment) Length() int             { return c.Len }
func (c Commitment) Offset() int             { return c.Off }

// Backend implements commitment.Backend for the Dory-style transparent
// pairing scheme.
type Backend struct{}

var _ commitment.Backend = Backend{}

func toFr(v field.Element) fr.Element {
	var out fr.Element
	b := v.Bytes()
	var be [32]byte
	for i, x := range b {
		be[31-i] = x
	}
	out.SetBytes(be[:])
	return out
}

// ComputeCommitments computes C = sum_i e(Gamma1[row(i)], Gamma2[col(i)])^{a_i}
// under the rectangular (row, col) layout phi(offset+i) = ((offset+i) / w,
// (offset+i) % w) for the setup's fixed width w, per spec.md §4.4. Indexing
// by the global position offset+i (rather than resetting row/col at each
// column's own start) is what makes adjacent commitments compose under Add:
// commit(c, o) * commit(c', o+len(c)) == commit(c||c', o).
func (Backend) ComputeCommitments(cols []column.Column, offset int, setup commitment.PublicSetup) ([]commitment.Commitment, error) {
	s, ok := setup.(*Setup)
	if !ok {
		return nil, fmt.Errorf("dory: ComputeCommitments: setup is not a dory.Setup")
	}
	w := width(s)
	out := make([]commitment.Commitment, len(cols))
	for ci, col := range cols {
		n := col.Len()
		if rowsNeeded(offset, n, w) > len(s.Gamma1) {
			return nil, fmt.Errorf("dory: ComputeCommitments: column %d exceeds setup size", ci)
		}
		var acc bls12381.GT
		acc.SetOne()
		for i := 0; i < n; i++ {
			global := offset + i
			row := global / w
			col2 := global % w
			ai := toFr(col.Scalars[i])
			var aiInt big.Int
			ai.BigInt(&aiInt)
			var g1 bls12381.G1Affine
			g1.ScalarMultiplication(&s.Gamma1[row], &aiInt)
			pairing, err := bls12381.Pair([]bls12381.G1Affine{g1}, []bls12381.G2Affine{s.Gamma2[col2]})
			if err != nil {
				return nil, fmt.Errorf("dory: pairing at row %d, col %d: %w", row, col2, err)
			}
			acc.Mul(&acc, &pairing)
		}
		out[ci] = Commitment{C: acc, Type: col.Type, Len: n, Off: offset}
	}
	return out, nil
}

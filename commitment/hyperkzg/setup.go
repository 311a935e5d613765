// Package hyperkzg implements backend B2 of spec.md §4.4: a universal
// (trusted-setup) polynomial commitment scheme built on
// gnark-crypto/ecc/bn254/kzg, extended from univariate openings to the
// log-n multilinear opening HyperKZG needs by folding the evaluation vector
// one variable at a time (the same halving-fold shape the sumcheck engine
// uses, grounded on the KZG usage in
// other_examples/d2f9e470_kevaundray-gnark-crypto__..._plookup-table.go.go
// and other_examples/74c8579d_..._shplonk.go.go).
package hyperkzg

import (
	"fmt"
	"io"

	"github.com/consensys/gnark-crypto/ecc/bn254/kzg"

	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/commitment"
)

// Setup wraps a powers-of-tau SRS, usable as both ProverSetup and
// VerifierSetup since gnark-crypto's kzg.SRS carries both the full G1 vector
// (needed to commit/open) and the two G2 elements (needed to verify).
type Setup struct {
	SRS kzg.SRS
}

func (*Setup) isPublicSetup()   {}
func (*Setup) isProverSetup()   {}
func (*Setup) isVerifierSetup() {}

var (
	_ commitment.ProverSetup   = (*Setup)(nil)
	_ commitment.VerifierSetup = (*Setup)(nil)
)

// LoadSetup reads a powers-of-tau file per spec.md §6: a length-prefixed
// concatenation of a ck G1-vector, an h G2 element, and a tau*H G2 element,
// all in compressed canonical form — the same WriteTo/ReadFrom convention
// consensys/gnark uses for its trusted-setup artifacts
// (backend/groth16/bn254/mpcsetup/marshal.go).
func LoadSetup(r io.Reader) (*Setup, error) {
	var degree uint64
	if err := readUint64(r, &degree); err != nil {
		return nil, fmt.Errorf("hyperkzg: read degree prefix: %w", err)
	}
	var srs kzg.SRS
	if _, err := srs.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("hyperkzg: read srs: %w", err)
	}
	if uint64(len(srs.Pk.G1)) < degree {
		return nil, fmt.Errorf("hyperkzg: srs shorter (%d) than declared degree (%d)", len(srs.Pk.G1), degree)
	}
	return &Setup{SRS: srs}, nil
}

// WriteSetup writes s in the same format LoadSetup reads.
func WriteSetup(w io.Writer, s *Setup) error {
	if err := writeUint64(w, uint64(len(s.SRS.Pk.G1))); err != nil {
		return fmt.Errorf("hyperkzg: write degree prefix: %w", err)
	}
	if _, err := s.SRS.WriteTo(w); err != nil {
		return fmt.Errorf("hyperkzg: write srs: %w", err)
	}
	return nil
}

func readUint64(r io.Reader, out *uint64) error {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return err
	}
	*out = 0
	for i := 7; i >= 0; i-- {
		*out = (*out << 8) | uint64(buf[i])
	}
	return nil
}

func writeUint64(w io.Writer, v uint64) error {
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(v)
		v >>= 8
	}
	_, err := w.Write(buf[:])
	return err
}

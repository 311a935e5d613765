package dory

import (
	"fmt"
	"io"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"

	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/column"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/commitment"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/field"
)

func writeUint64(w io.Writer, v uint64) error {
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(v)
		v >>= 8
	}
	_, err := w.Write(buf[:])
	return err
}

func readUint64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	var v uint64
	for i := 7; i >= 0; i-- {
		v = (v << 8) | uint64(buf[i])
	}
	return v, nil
}

// WriteTo implements io.WriterTo, encoding the commitment's GT digest
// followed by its column metadata.
func (c Commitment) WriteTo(w io.Writer) (int64, error) {
	var total int64
	cb := c.C.Bytes()
	n, err := w.Write(cb[:])
	total += int64(n)
	if err != nil {
		return total, fmt.Errorf("dory: write commitment digest: %w", err)
	}
	if err := writeUint64(w, uint64(c.Type)); err != nil {
		return total, fmt.Errorf("dory: write commitment type: %w", err)
	}
	total += 8
	if err := writeUint64(w, uint64(c.Len)); err != nil {
		return total, fmt.Errorf("dory: write commitment length: %w", err)
	}
	total += 8
	if err := writeUint64(w, uint64(c.Off)); err != nil {
		return total, fmt.Errorf("dory: write commitment offset: %w", err)
	}
	return total + 8, nil
}

// ReadFrom implements io.ReaderFrom, the inverse of WriteTo.
func (c *Commitment) ReadFrom(r io.Reader) (int64, error) {
	var total int64
	cb := c.C.Bytes()
	n, err := io.ReadFull(r, cb[:])
	total += int64(n)
	if err != nil {
		return total, fmt.Errorf("dory: read commitment digest: %w", err)
	}
	if err := c.C.SetBytes(cb[:]); err != nil {
		return total, fmt.Errorf("dory: decode commitment digest: %w", err)
	}
	typ, err := readUint64(r)
	if err != nil {
		return total, fmt.Errorf("dory: read commitment type: %w", err)
	}
	total += 8
	length, err := readUint64(r)
	if err != nil {
		return total, fmt.Errorf("dory: read commitment length: %w", err)
	}
	total += 8
	off, err := readUint64(r)
	if err != nil {
		return total, fmt.Errorf("dory: read commitment offset: %w", err)
	}
	total += 8
	c.Type, c.Len, c.Off = column.Type(typ), int(length), int(off)
	return total, nil
}

// WriteTo implements io.WriterTo for a Dory evaluation proof: the round
// count, then each round's (G0, G1, G2) sumcheck samples and (C0, C1, C2)
// commitment samples, then the final folded scalar.
func (p Proof) WriteTo(w io.Writer) (int64, error) {
	var total int64
	if err := writeUint64(w, uint64(len(p.Rounds))); err != nil {
		return total, fmt.Errorf("dory: write round count: %w", err)
	}
	total += 8
	for i, round := range p.Rounds {
		for j, f := range [3]field.Element{round.G0, round.G1, round.G2} {
			fb := f.Bytes()
			n, err := w.Write(fb[:])
			total += int64(n)
			if err != nil {
				return total, fmt.Errorf("dory: write round %d G%d: %w", i, j, err)
			}
		}
		for j, c := range [3]bls12381.GT{round.C0, round.C1, round.C2} {
			cb := c.Bytes()
			n, err := w.Write(cb[:])
			total += int64(n)
			if err != nil {
				return total, fmt.Errorf("dory: write round %d C%d: %w", i, j, err)
			}
		}
	}
	fvb := p.FinalVal.Bytes()
	n, err := w.Write(fvb[:])
	total += int64(n)
	if err != nil {
		return total, fmt.Errorf("dory: write final value: %w", err)
	}
	return total, nil
}

// ReadFrom implements io.ReaderFrom, the inverse of WriteTo.
func (p *Proof) ReadFrom(r io.Reader) (int64, error) {
	var total int64
	count, err := readUint64(r)
	if err != nil {
		return total, fmt.Errorf("dory: read round count: %w", err)
	}
	total += 8
	p.Rounds = make([]evalRound, count)
	for i := range p.Rounds {
		scalars := [3]*field.Element{&p.Rounds[i].G0, &p.Rounds[i].G1, &p.Rounds[i].G2}
		for j, s := range scalars {
			var fb [32]byte
			n, err := io.ReadFull(r, fb[:])
			total += int64(n)
			if err != nil {
				return total, fmt.Errorf("dory: read round %d G%d: %w", i, j, err)
			}
			*s = field.SetBytes(fb)
		}
		gts := [3]*bls12381.GT{&p.Rounds[i].C0, &p.Rounds[i].C1, &p.Rounds[i].C2}
		for j, c := range gts {
			cb := c.Bytes()
			n, err := io.ReadFull(r, cb[:])
			total += int64(n)
			if err != nil {
				return total, fmt.Errorf("dory: read round %d C%d: %w", i, j, err)
			}
			if err := c.SetBytes(cb[:]); err != nil {
				return total, fmt.Errorf("dory: decode round %d C%d: %w", i, j, err)
			}
		}
	}
	var fvb [32]byte
	n, err := io.ReadFull(r, fvb[:])
	total += int64(n)
	if err != nil {
		return total, fmt.Errorf("dory: read final value: %w", err)
	}
	p.FinalVal = field.SetBytes(fvb)
	return total, nil
}

// Codec implements proofserde.Codec for the Dory backend.
type Codec struct{}

func (Codec) WriteCommitment(w io.Writer, c commitment.Commitment) (int64, error) {
	dc, ok := c.(Commitment)
	if !ok {
		return 0, fmt.Errorf("dory: WriteCommitment: not a dory.Commitment")
	}
	return dc.WriteTo(w)
}

func (Codec) ReadCommitment(r io.Reader) (commitment.Commitment, int64, error) {
	var c Commitment
	n, err := c.ReadFrom(r)
	if err != nil {
		return nil, n, err
	}
	return c, n, nil
}

func (Codec) WriteProof(w io.Writer, p commitment.Proof) (int64, error) {
	dp, ok := p.(Proof)
	if !ok {
		return 0, fmt.Errorf("dory: WriteProof: not a dory.Proof")
	}
	return dp.WriteTo(w)
}

func (Codec) ReadProof(r io.Reader) (commitment.Proof, int64, error) {
	var p Proof
	n, err := p.ReadFrom(r)
	if err != nil {
		return nil, n, err
	}
	return p, n, nil
}

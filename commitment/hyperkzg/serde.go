package hyperkzg

import (
	"fmt"
	"io"

	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/column"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/commitment"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/field"
)

// WriteTo implements io.WriterTo, encoding the commitment digest's
// compressed form followed by its column metadata, in the same
// field-by-field style backend/groth16/bn254/mpcsetup/marshal.go uses.
func (c Commitment) WriteTo(w io.Writer) (int64, error) {
	var total int64
	db := c.Digest.Bytes()
	n, err := w.Write(db[:])
	total += int64(n)
	if err != nil {
		return total, fmt.Errorf("hyperkzg: write commitment digest: %w", err)
	}
	if err := writeUint64(w, uint64(c.Type)); err != nil {
		return total, fmt.Errorf("hyperkzg: write commitment type: %w", err)
	}
	total += 8
	if err := writeUint64(w, uint64(c.Len)); err != nil {
		return total, fmt.Errorf("hyperkzg: write commitment length: %w", err)
	}
	total += 8
	if err := writeUint64(w, uint64(c.Off)); err != nil {
		return total, fmt.Errorf("hyperkzg: write commitment offset: %w", err)
	}
	return total + 8, nil
}

// ReadFrom implements io.ReaderFrom, the inverse of WriteTo.
func (c *Commitment) ReadFrom(r io.Reader) (int64, error) {
	var total int64
	var db [32]byte
	n, err := io.ReadFull(r, db[:])
	total += int64(n)
	if err != nil {
		return total, fmt.Errorf("hyperkzg: read commitment digest: %w", err)
	}
	if _, err := c.Digest.SetBytes(db[:]); err != nil {
		return total, fmt.Errorf("hyperkzg: decode commitment digest: %w", err)
	}
	var typ, length, off uint64
	if err := readUint64(r, &typ); err != nil {
		return total, fmt.Errorf("hyperkzg: read commitment type: %w", err)
	}
	total += 8
	if err := readUint64(r, &length); err != nil {
		return total, fmt.Errorf("hyperkzg: read commitment length: %w", err)
	}
	total += 8
	if err := readUint64(r, &off); err != nil {
		return total, fmt.Errorf("hyperkzg: read commitment offset: %w", err)
	}
	total += 8
	c.Type, c.Len, c.Off = column.Type(typ), int(length), int(off)
	return total, nil
}

// WriteTo implements io.WriterTo for a HyperKZG evaluation proof: the round
// count, then each round's folded commitment and its +r/-r openings
// (gnark-crypto's kzg.Digest and kzg.OpeningProof already implement
// io.WriterTo themselves, the same way kzg.SRS does — see setup.go's
// WriteSetup/LoadSetup), then a link-opening presence flag and the link
// opening itself for every round but the first, then the final scalar.
func (p Proof) WriteTo(w io.Writer) (int64, error) {
	var total int64
	if err := writeUint64(w, uint64(len(p.Rounds))); err != nil {
		return total, fmt.Errorf("hyperkzg: write round count: %w", err)
	}
	total += 8
	for i, round := range p.Rounds {
		n, err := round.commitment.WriteTo(w)
		total += n
		if err != nil {
			return total, fmt.Errorf("hyperkzg: write round %d commitment: %w", i, err)
		}
		n, err = round.posOpening.WriteTo(w)
		total += n
		if err != nil {
			return total, fmt.Errorf("hyperkzg: write round %d +r opening: %w", i, err)
		}
		n, err = round.negOpening.WriteTo(w)
		total += n
		if err != nil {
			return total, fmt.Errorf("hyperkzg: write round %d -r opening: %w", i, err)
		}
		hasLink := uint64(0)
		if round.hasLink {
			hasLink = 1
		}
		if err := writeUint64(w, hasLink); err != nil {
			return total, fmt.Errorf("hyperkzg: write round %d link flag: %w", i, err)
		}
		total += 8
		if round.hasLink {
			n, err = round.linkOpening.WriteTo(w)
			total += n
			if err != nil {
				return total, fmt.Errorf("hyperkzg: write round %d link opening: %w", i, err)
			}
		}
	}
	fb := p.Final.Bytes()
	n, err := w.Write(fb[:])
	total += int64(n)
	if err != nil {
		return total, fmt.Errorf("hyperkzg: write final value: %w", err)
	}
	return total, nil
}

// ReadFrom implements io.ReaderFrom, the inverse of WriteTo.
func (p *Proof) ReadFrom(r io.Reader) (int64, error) {
	var total int64
	var count uint64
	if err := readUint64(r, &count); err != nil {
		return total, fmt.Errorf("hyperkzg: read round count: %w", err)
	}
	total += 8
	p.Rounds = make([]foldRound, count)
	for i := range p.Rounds {
		n, err := p.Rounds[i].commitment.ReadFrom(r)
		total += n
		if err != nil {
			return total, fmt.Errorf("hyperkzg: read round %d commitment: %w", i, err)
		}
		n, err = p.Rounds[i].posOpening.ReadFrom(r)
		total += n
		if err != nil {
			return total, fmt.Errorf("hyperkzg: read round %d +r opening: %w", i, err)
		}
		n, err = p.Rounds[i].negOpening.ReadFrom(r)
		total += n
		if err != nil {
			return total, fmt.Errorf("hyperkzg: read round %d -r opening: %w", i, err)
		}
		var hasLink uint64
		if err := readUint64(r, &hasLink); err != nil {
			return total, fmt.Errorf("hyperkzg: read round %d link flag: %w", i, err)
		}
		total += 8
		if hasLink != 0 {
			p.Rounds[i].hasLink = true
			n, err = p.Rounds[i].linkOpening.ReadFrom(r)
			total += n
			if err != nil {
				return total, fmt.Errorf("hyperkzg: read round %d link opening: %w", i, err)
			}
		}
	}
	var fb [32]byte
	n, err := io.ReadFull(r, fb[:])
	total += int64(n)
	if err != nil {
		return total, fmt.Errorf("hyperkzg: read final value: %w", err)
	}
	p.Final = field.SetBytes(fb)
	return total, nil
}

// Codec implements proofserde.Codec for the HyperKZG backend, dispatching
// to Commitment/Proof's own WriteTo/ReadFrom methods once the opaque
// commitment.Commitment/commitment.Proof values are asserted to their
// concrete HyperKZG type.
type Codec struct{}

func (Codec) WriteCommitment(w io.Writer, c commitment.Commitment) (int64, error) {
	hc, ok := c.(Commitment)
	if !ok {
		return 0, fmt.Errorf("hyperkzg: WriteCommitment: not a hyperkzg.Commitment")
	}
	return hc.WriteTo(w)
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
	hp, ok := p.(Proof)
	if !ok {
		return 0, fmt.Errorf("hyperkzg: WriteProof: not a hyperkzg.Proof")
	}
	return hp.WriteTo(w)
}

func (Codec) ReadProof(r io.Reader) (commitment.Proof, int64, error) {
	var p Proof
	n, err := p.ReadFrom(r)
	if err != nil {
		return nil, n, err
	}
	return p, n, nil
}

// Package proofserde implements the deterministic proof encoding of
// spec.md §6: a field-by-field WriteTo(io.Writer)/ReadFrom(io.Reader)
// convention, modeled on backend/groth16/bn254/mpcsetup/marshal.go's
// field-by-field encoding but written with encoding/binary uint64 length
// prefixes and 32-byte field elements, not curve.Encoder/Decoder. Since
// query.Proof's commitment and
// evaluation-proof fields are backend-specific opaque interfaces
// (commitment.Commitment, commitment.Proof), encoding/decoding them needs
// a Codec supplied by the caller's chosen backend
// (commitment/hyperkzg.Codec{} or commitment/dory.Codec{}); everything
// else (the result table, the sumcheck transcript, the MLE evaluations)
// is encoded directly since its shape never depends on the backend.
package proofserde

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/column"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/commitment"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/field"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/query"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/sumcheck"
)

// Codec supplies the backend-specific encode/decode pair for the opaque
// commitment.Commitment/commitment.Proof values a query.Proof carries.
// commitment/hyperkzg and commitment/dory each implement this with a
// Codec{} value dispatching to their own concrete type's WriteTo/ReadFrom.
type Codec interface {
	WriteCommitment(w io.Writer, c commitment.Commitment) (int64, error)
	ReadCommitment(r io.Reader) (commitment.Commitment, int64, error)
	WriteProof(w io.Writer, p commitment.Proof) (int64, error)
	ReadProof(r io.Reader) (commitment.Proof, int64, error)
}

// Envelope pairs a query.Proof with the Codec needed to decode its
// backend-specific fields, the way backend/groth16/bn254/mpcsetup's Phase1
// and Phase2 types each own their WriteTo/ReadFrom pair for exactly the
// fields they carry.
type Envelope struct {
	Proof query.Proof
	Codec Codec
}

// WriteTo implements io.WriterTo.
func (e Envelope) WriteTo(w io.Writer) (int64, error) {
	var total int64

	n, err := writeTable(w, e.Proof.ResultTable)
	total += n
	if err != nil {
		return total, fmt.Errorf("proofserde: write result table: %w", err)
	}

	n, err = writeUint64(w, uint64(len(e.Proof.IntermediateCommitments)))
	total += n
	if err != nil {
		return total, fmt.Errorf("proofserde: write commitment count: %w", err)
	}
	for i, c := range e.Proof.IntermediateCommitments {
		n, err = e.Codec.WriteCommitment(w, c)
		total += n
		if err != nil {
			return total, fmt.Errorf("proofserde: write intermediate commitment %d: %w", i, err)
		}
	}

	n, err = writeSumcheckProof(w, e.Proof.Sumcheck)
	total += n
	if err != nil {
		return total, fmt.Errorf("proofserde: write sumcheck proof: %w", err)
	}

	n, err = writeElements(w, e.Proof.MLEEvaluations)
	total += n
	if err != nil {
		return total, fmt.Errorf("proofserde: write MLE evaluations: %w", err)
	}

	n, err = e.Codec.WriteProof(w, e.Proof.EvaluationProof)
	total += n
	if err != nil {
		return total, fmt.Errorf("proofserde: write evaluation proof: %w", err)
	}

	return total, nil
}

// ReadFrom implements io.ReaderFrom.
func (e *Envelope) ReadFrom(r io.Reader) (int64, error) {
	var total int64

	tbl, n, err := readTable(r)
	total += n
	if err != nil {
		return total, fmt.Errorf("proofserde: read result table: %w", err)
	}
	e.Proof.ResultTable = tbl

	count, n, err := readUint64(r)
	total += n
	if err != nil {
		return total, fmt.Errorf("proofserde: read commitment count: %w", err)
	}
	commitments := make([]commitment.Commitment, count)
	for i := range commitments {
		c, n, err := e.Codec.ReadCommitment(r)
		total += n
		if err != nil {
			return total, fmt.Errorf("proofserde: read intermediate commitment %d: %w", i, err)
		}
		commitments[i] = c
	}
	e.Proof.IntermediateCommitments = commitments

	sc, n, err := readSumcheckProof(r)
	total += n
	if err != nil {
		return total, fmt.Errorf("proofserde: read sumcheck proof: %w", err)
	}
	e.Proof.Sumcheck = sc

	evals, n, err := readElements(r)
	total += n
	if err != nil {
		return total, fmt.Errorf("proofserde: read MLE evaluations: %w", err)
	}
	e.Proof.MLEEvaluations = evals

	ep, n, err := e.Codec.ReadProof(r)
	total += n
	if err != nil {
		return total, fmt.Errorf("proofserde: read evaluation proof: %w", err)
	}
	e.Proof.EvaluationProof = ep

	return total, nil
}

func writeUint64(w io.Writer, v uint64) (int64, error) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	n, err := w.Write(buf[:])
	return int64(n), err
}

func readUint64(r io.Reader) (uint64, int64, error) {
	var buf [8]byte
	n, err := io.ReadFull(r, buf[:])
	if err != nil {
		return 0, int64(n), err
	}
	return binary.BigEndian.Uint64(buf[:]), int64(n), nil
}

func writeBytes(w io.Writer, b []byte) (int64, error) {
	total, err := writeUint64(w, uint64(len(b)))
	if err != nil {
		return total, err
	}
	n, err := w.Write(b)
	return total + int64(n), err
}

func readBytes(r io.Reader) ([]byte, int64, error) {
	length, total, err := readUint64(r)
	if err != nil {
		return nil, total, err
	}
	buf := make([]byte, length)
	n, err := io.ReadFull(r, buf)
	total += int64(n)
	if err != nil {
		return nil, total, err
	}
	return buf, total, nil
}

func writeString(w io.Writer, s string) (int64, error) {
	return writeBytes(w, []byte(s))
}

func readString(r io.Reader) (string, int64, error) {
	b, n, err := readBytes(r)
	return string(b), n, err
}

func writeElement(w io.Writer, e field.Element) (int64, error) {
	b := e.Bytes()
	n, err := w.Write(b[:])
	return int64(n), err
}

func readElement(r io.Reader) (field.Element, int64, error) {
	var b [32]byte
	n, err := io.ReadFull(r, b[:])
	if err != nil {
		return field.Element{}, int64(n), err
	}
	return field.SetBytes(b), int64(n), nil
}

func writeElements(w io.Writer, es []field.Element) (int64, error) {
	total, err := writeUint64(w, uint64(len(es)))
	if err != nil {
		return total, err
	}
	for i, e := range es {
		n, err := writeElement(w, e)
		total += n
		if err != nil {
			return total, fmt.Errorf("element %d: %w", i, err)
		}
	}
	return total, nil
}

func readElements(r io.Reader) ([]field.Element, int64, error) {
	count, total, err := readUint64(r)
	if err != nil {
		return nil, total, err
	}
	out := make([]field.Element, count)
	for i := range out {
		e, n, err := readElement(r)
		total += n
		if err != nil {
			return nil, total, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = e
	}
	return out, total, nil
}

func writeColumn(w io.Writer, c column.Column) (int64, error) {
	var total int64
	n, err := writeUint64(w, uint64(c.Type))
	total += n
	if err != nil {
		return total, fmt.Errorf("type: %w", err)
	}
	n, err = writeUint64(w, uint64(c.Decimal.Precision))
	total += n
	if err != nil {
		return total, fmt.Errorf("decimal precision: %w", err)
	}
	n, err = writeUint64(w, uint64(c.Decimal.Scale))
	total += n
	if err != nil {
		return total, fmt.Errorf("decimal scale: %w", err)
	}
	n, err = writeString(w, c.Timestamp.Unit)
	total += n
	if err != nil {
		return total, fmt.Errorf("timestamp unit: %w", err)
	}
	n, err = writeString(w, c.Timestamp.Zone)
	total += n
	if err != nil {
		return total, fmt.Errorf("timestamp zone: %w", err)
	}
	n, err = writeElements(w, c.Scalars)
	total += n
	if err != nil {
		return total, fmt.Errorf("scalars: %w", err)
	}
	n, err = writeUint64(w, uint64(len(c.Bytes)))
	total += n
	if err != nil {
		return total, fmt.Errorf("bytes count: %w", err)
	}
	for i, b := range c.Bytes {
		n, err = writeBytes(w, b)
		total += n
		if err != nil {
			return total, fmt.Errorf("bytes %d: %w", i, err)
		}
	}
	return total, nil
}

func readColumn(r io.Reader) (column.Column, int64, error) {
	var total int64
	var c column.Column

	typ, n, err := readUint64(r)
	total += n
	if err != nil {
		return c, total, fmt.Errorf("type: %w", err)
	}
	c.Type = column.Type(typ)

	precision, n, err := readUint64(r)
	total += n
	if err != nil {
		return c, total, fmt.Errorf("decimal precision: %w", err)
	}
	c.Decimal.Precision = uint8(precision)

	scale, n, err := readUint64(r)
	total += n
	if err != nil {
		return c, total, fmt.Errorf("decimal scale: %w", err)
	}
	c.Decimal.Scale = int8(scale)

	unit, n, err := readString(r)
	total += n
	if err != nil {
		return c, total, fmt.Errorf("timestamp unit: %w", err)
	}
	c.Timestamp.Unit = unit

	zone, n, err := readString(r)
	total += n
	if err != nil {
		return c, total, fmt.Errorf("timestamp zone: %w", err)
	}
	c.Timestamp.Zone = zone

	scalars, n, err := readElements(r)
	total += n
	if err != nil {
		return c, total, fmt.Errorf("scalars: %w", err)
	}
	c.Scalars = scalars

	count, n, err := readUint64(r)
	total += n
	if err != nil {
		return c, total, fmt.Errorf("bytes count: %w", err)
	}
	if count > 0 {
		bs := make([][]byte, count)
		for i := range bs {
			b, n, err := readBytes(r)
			total += n
			if err != nil {
				return c, total, fmt.Errorf("bytes %d: %w", i, err)
			}
			bs[i] = b
		}
		c.Bytes = bs
	}
	return c, total, nil
}

func writeTable(w io.Writer, t column.Table) (int64, error) {
	var total int64
	n, err := writeUint64(w, uint64(len(t.Order)))
	total += n
	if err != nil {
		return total, fmt.Errorf("order count: %w", err)
	}
	for i, name := range t.Order {
		n, err = writeString(w, name)
		total += n
		if err != nil {
			return total, fmt.Errorf("order %d: %w", i, err)
		}
		n, err = writeColumn(w, t.Columns[name])
		total += n
		if err != nil {
			return total, fmt.Errorf("column %q: %w", name, err)
		}
	}
	return total, nil
}

func readTable(r io.Reader) (column.Table, int64, error) {
	var total int64
	count, n, err := readUint64(r)
	total += n
	if err != nil {
		return column.Table{}, total, fmt.Errorf("order count: %w", err)
	}
	order := make([]string, count)
	cols := make(map[string]column.Column, count)
	for i := range order {
		name, n, err := readString(r)
		total += n
		if err != nil {
			return column.Table{}, total, fmt.Errorf("order %d: %w", i, err)
		}
		col, n, err := readColumn(r)
		total += n
		if err != nil {
			return column.Table{}, total, fmt.Errorf("column %q: %w", name, err)
		}
		order[i] = name
		cols[name] = col
	}
	tbl, err := column.NewTable(order, cols)
	if err != nil {
		return column.Table{}, total, fmt.Errorf("rebuild table: %w", err)
	}
	return tbl, total, nil
}

func writeSumcheckProof(w io.Writer, p sumcheck.Proof) (int64, error) {
	var total int64
	n, err := writeUint64(w, uint64(len(p.Rounds)))
	total += n
	if err != nil {
		return total, fmt.Errorf("round count: %w", err)
	}
	for i, round := range p.Rounds {
		n, err = writeElements(w, round.Evals)
		total += n
		if err != nil {
			return total, fmt.Errorf("round %d: %w", i, err)
		}
	}
	return total, nil
}

func readSumcheckProof(r io.Reader) (sumcheck.Proof, int64, error) {
	var total int64
	count, n, err := readUint64(r)
	total += n
	if err != nil {
		return sumcheck.Proof{}, total, fmt.Errorf("round count: %w", err)
	}
	rounds := make([]sumcheck.RoundPoly, count)
	for i := range rounds {
		evals, n, err := readElements(r)
		total += n
		if err != nil {
			return sumcheck.Proof{}, total, fmt.Errorf("round %d: %w", i, err)
		}
		rounds[i] = sumcheck.RoundPoly{Evals: evals}
	}
	return sumcheck.Proof{Rounds: rounds}, total, nil
}

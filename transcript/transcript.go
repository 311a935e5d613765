// Package transcript implements the Fiat-Shamir sponge shared by the
// sumcheck engine and the commitment backends, wrapping
// gnark-crypto/fiat-shamir the same way consensys/gnark's PLONK/fflonk
// provers do.
package transcript

import (
	"crypto/sha256"
	"fmt"
	"strconv"

	fiatshamir "github.com/consensys/gnark-crypto/fiat-shamir"

	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/field"
)

// Label domain-separates absorbed data. Every absorption in this library
// goes through one of the enumerated constants below; no unlabeled data may
// be absorbed, per spec.md §4.2.
type Label string

const (
	LabelResultColumns      Label = "result-columns"
	LabelResultRowCount     Label = "result-row-count"
	LabelPostResultChallenge Label = "post-result-challenge"
	LabelIntermediateCommit Label = "intermediate-commitment"
	LabelSubpolyMultiplier  Label = "subpoly-multiplier"
	LabelEntrywiseMultiplier Label = "entrywise-multiplier"
	LabelSumcheckRound      Label = "sumcheck-round"
	LabelMLEEvaluation      Label = "mle-evaluation"
	LabelBatchingFactor     Label = "batching-factor"
	LabelEvaluationProof    Label = "evaluation-proof"
)

// Transcript is a sequential, write-only (from the verifier's viewpoint)
// oracle. Prover and verifier reconstruct byte-identical transcripts from
// the same public inputs, per spec.md's transcript-determinism property.
type Transcript struct {
	fs      *fiatshamir.Transcript
	counter map[Label]int
}

// New creates a transcript seeded with every label that will ever be bound
// or challenged over its lifetime. gnark-crypto's fiat-shamir requires all
// labels to be declared up front, exactly as
// backend/fflonk/bn254/prove.go does (`fiatshamir.NewTranscript(hash,
// "gamma", "beta", "alpha", "zeta")`).
func New(labels ...Label) *Transcript {
	strs := make([]string, len(labels))
	for i, l := range labels {
		strs[i] = string(l)
	}
	return &Transcript{
		fs:      fiatshamir.NewTranscript(sha256.New(), strs...),
		counter: make(map[Label]int),
	}
}

// AppendScalars absorbs labeled field elements.
func (t *Transcript) AppendScalars(label Label, scalars []field.Element) error {
	for _, s := range scalars {
		b := s.Bytes()
		if err := t.fs.Bind(string(label), b[:]); err != nil {
			return fmt.Errorf("transcript: bind scalars under %q: %w", label, err)
		}
	}
	return nil
}

// AppendBytes absorbs a labeled byte string.
func (t *Transcript) AppendBytes(label Label, data []byte) error {
	if err := t.fs.Bind(string(label), data); err != nil {
		return fmt.Errorf("transcript: bind bytes under %q: %w", label, err)
	}
	return nil
}

// PointBytes is anything with a canonical compressed byte encoding -
// commitment group elements, satisfied by both the Dory and HyperKZG
// commitment types.
type PointBytes interface {
	CompressedBytes() []byte
}

// AppendPoints absorbs labeled commitment/group elements.
func (t *Transcript) AppendPoints(label Label, points []PointBytes) error {
	for _, p := range points {
		if err := t.fs.Bind(string(label), p.CompressedBytes()); err != nil {
			return fmt.Errorf("transcript: bind points under %q: %w", label, err)
		}
	}
	return nil
}

// Challenge squeezes one challenge scalar bound to label.
func (t *Transcript) Challenge(label Label) (field.Element, error) {
	b, err := t.fs.ComputeChallenge(string(label))
	if err != nil {
		return field.Element{}, fmt.Errorf("transcript: challenge %q: %w", label, err)
	}
	var out [32]byte
	copy(out[:], b)
	return field.SetBytes(out), nil
}

// Challenges squeezes n challenge scalars bound to label, each under a
// sub-label suffixed by its index, the same "derive several challenges from
// one bound label" trick used by the deriveRandomness helpers in the pack's
// plookup/shplonk examples.
func (t *Transcript) Challenges(label Label, n int) ([]field.Element, error) {
	out := make([]field.Element, n)
	for i := 0; i < n; i++ {
		sub := Label(string(label) + "#" + strconv.Itoa(t.counter[label]))
		t.counter[label]++
		if err := t.fs.Bind(string(label), []byte(sub)); err != nil {
			return nil, fmt.Errorf("transcript: seed challenge %d of %q: %w", i, label, err)
		}
		c, err := t.Challenge(label)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

// Wrap executes f against a domain-separated child transcript seeded by
// absorbing label, then folds the child's final state back into the parent
// so the child protocol's messages are incorporated verbatim into the
// parent's Fiat-Shamir challenges, per spec.md §4.2.
func Wrap(parent *Transcript, label Label, childLabels []Label, f func(child *Transcript) error) error {
	seed, err := parent.Challenge(label)
	if err != nil {
		return err
	}
	child := New(childLabels...)
	seedBytes := seed.Bytes()
	if err := child.AppendBytes(Label("seed"), seedBytes[:]); err != nil {
		return err
	}
	if err := f(child); err != nil {
		return err
	}
	digest, err := child.Challenge(Label("final"))
	if err != nil {
		return err
	}
	db := digest.Bytes()
	return parent.AppendBytes(label, db[:])
}

package hyperkzg_test

import (
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/kzg"
	"github.com/stretchr/testify/require"

	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/column"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/commitment"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/commitment/hyperkzg"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/field"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/mle"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/transcript"
)

func newTranscript() *transcript.Transcript {
	return transcript.New(transcript.LabelEvaluationProof)
}

func testSetup(t *testing.T, size uint64) *hyperkzg.Setup {
	t.Helper()
	srs, err := kzg.NewSRS(size, big.NewInt(42))
	require.NoError(t, err)
	return &hyperkzg.Setup{SRS: *srs}
}

func feSlice(vs ...uint64) []field.Element {
	out := make([]field.Element, len(vs))
	for i, v := range vs {
		out[i] = field.FromUint64(v)
	}
	return out
}

func TestComputeCommitmentsBinding(t *testing.T) {
	require := require.New(t)
	setup := testSetup(t, 8)
	backend := hyperkzg.Backend{}

	colA := column.Column{Type: column.TypeBigInt, Scalars: feSlice(1, 2, 3, 4)}
	colB := column.Column{Type: column.TypeBigInt, Scalars: feSlice(1, 2, 3, 5)}

	comsA, err := backend.ComputeCommitments([]column.Column{colA}, 0, setup)
	require.NoError(err)
	comsB, err := backend.ComputeCommitments([]column.Column{colB}, 0, setup)
	require.NoError(err)

	require.NotEqual(comsA[0].(hyperkzg.Commitment).Digest, comsB[0].(hyperkzg.Commitment).Digest)
}

func TestComputeCommitmentsHomomorphism(t *testing.T) {
	require := require.New(t)
	setup := testSetup(t, 8)
	backend := hyperkzg.Backend{}

	full := column.Column{Type: column.TypeBigInt, Scalars: feSlice(1, 2, 3, 4)}
	left := column.Column{Type: column.TypeBigInt, Scalars: feSlice(1, 2)}
	right := column.Column{Type: column.TypeBigInt, Scalars: feSlice(3, 4)}

	comFull, err := backend.ComputeCommitments([]column.Column{full}, 0, setup)
	require.NoError(err)
	comLeft, err := backend.ComputeCommitments([]column.Column{left}, 0, setup)
	require.NoError(err)
	comRight, err := backend.ComputeCommitments([]column.Column{right}, 2, setup)
	require.NoError(err)

	sum, err := comLeft[0].Add(comRight[0])
	require.NoError(err)

	require.Equal(comFull[0].(hyperkzg.Commitment).Digest, sum.(hyperkzg.Commitment).Digest)
	require.Equal(commitment.Commitment(comFull[0]).CompressedBytes(), sum.CompressedBytes())
}

// TestProveVerifyRoundTrip checks that an honest evaluation proof, built
// against the real commitment returned by ComputeCommitments, verifies -
// exercising the round-chaining VerifyBatchedEvaluation is supposed to
// enforce (spec.md §8).
func TestProveVerifyRoundTrip(t *testing.T) {
	require := require.New(t)
	setup := testSetup(t, 8)
	backend := hyperkzg.Backend{}

	col := column.Column{Type: column.TypeBigInt, Scalars: feSlice(1, 2, 3, 4)}
	evalPoint := []field.Element{field.FromUint64(5), field.FromUint64(9)}

	comms, err := backend.ComputeCommitments([]column.Column{col}, 0, setup)
	require.NoError(err)
	claimedEval := mle.Evaluate(mle.New(col.Scalars), evalPoint)

	proof, err := backend.ProveEvaluation(newTranscript(), col.Scalars, evalPoint, 0, setup)
	require.NoError(err)

	factors := []field.Element{field.One()}
	err = backend.VerifyBatchedEvaluation(newTranscript(), comms, factors, []field.Element{claimedEval}, evalPoint, 0, len(col.Scalars), setup, proof)
	require.NoError(err)
}

// TestProveVerifyRejectsWrongClaim checks that a tampered claimed evaluation
// is rejected rather than silently accepted.
func TestProveVerifyRejectsWrongClaim(t *testing.T) {
	require := require.New(t)
	setup := testSetup(t, 8)
	backend := hyperkzg.Backend{}

	col := column.Column{Type: column.TypeBigInt, Scalars: feSlice(1, 2, 3, 4)}
	evalPoint := []field.Element{field.FromUint64(5), field.FromUint64(9)}

	comms, err := backend.ComputeCommitments([]column.Column{col}, 0, setup)
	require.NoError(err)
	wrongEval := field.Add(mle.Evaluate(mle.New(col.Scalars), evalPoint), field.One())

	proof, err := backend.ProveEvaluation(newTranscript(), col.Scalars, evalPoint, 0, setup)
	require.NoError(err)

	factors := []field.Element{field.One()}
	err = backend.VerifyBatchedEvaluation(newTranscript(), comms, factors, []field.Element{wrongEval}, evalPoint, 0, len(col.Scalars), setup, proof)
	require.Error(err)
}

// TestProveVerifyRejectsWrongCommitment checks that swapping in a commitment
// to different data, with the proof and claimed evaluation left untouched,
// is rejected - the round-0 binding check must actually depend on commits,
// not merely replay the transcript.
func TestProveVerifyRejectsWrongCommitment(t *testing.T) {
	require := require.New(t)
	setup := testSetup(t, 8)
	backend := hyperkzg.Backend{}

	col := column.Column{Type: column.TypeBigInt, Scalars: feSlice(1, 2, 3, 4)}
	otherCol := column.Column{Type: column.TypeBigInt, Scalars: feSlice(9, 9, 9, 9)}
	evalPoint := []field.Element{field.FromUint64(5), field.FromUint64(9)}

	otherComms, err := backend.ComputeCommitments([]column.Column{otherCol}, 0, setup)
	require.NoError(err)
	claimedEval := mle.Evaluate(mle.New(col.Scalars), evalPoint)

	proof, err := backend.ProveEvaluation(newTranscript(), col.Scalars, evalPoint, 0, setup)
	require.NoError(err)

	factors := []field.Element{field.One()}
	err = backend.VerifyBatchedEvaluation(newTranscript(), otherComms, factors, []field.Element{claimedEval}, evalPoint, 0, len(col.Scalars), setup, proof)
	require.Error(err)
}

// TestProveVerifyRejectsTamperedRound checks that substituting a later
// round's commitment for an unrelated one breaks the link-opening chain
// rather than passing silently (the defect the review flagged: rounds were
// previously never chained to each other at all).
func TestProveVerifyRejectsTamperedRound(t *testing.T) {
	require := require.New(t)
	setup := testSetup(t, 8)
	backend := hyperkzg.Backend{}

	col := column.Column{Type: column.TypeBigInt, Scalars: feSlice(1, 2, 3, 4)}
	evalPoint := []field.Element{field.FromUint64(5), field.FromUint64(9)}

	comms, err := backend.ComputeCommitments([]column.Column{col}, 0, setup)
	require.NoError(err)
	claimedEval := mle.Evaluate(mle.New(col.Scalars), evalPoint)

	proof, err := backend.ProveEvaluation(newTranscript(), col.Scalars, evalPoint, 0, setup)
	require.NoError(err)
	require.Len(proof.(hyperkzg.Proof).Rounds, 2)

	otherCol := column.Column{Type: column.TypeBigInt, Scalars: feSlice(9, 9, 9, 9)}
	otherProof, err := backend.ProveEvaluation(newTranscript(), otherCol.Scalars, evalPoint, 0, setup)
	require.NoError(err)

	tampered := proof.(hyperkzg.Proof)
	tampered.Rounds[1] = otherProof.(hyperkzg.Proof).Rounds[1]

	factors := []field.Element{field.One()}
	err = backend.VerifyBatchedEvaluation(newTranscript(), comms, factors, []field.Element{claimedEval}, evalPoint, 0, len(col.Scalars), setup, tampered)
	require.Error(err)
}

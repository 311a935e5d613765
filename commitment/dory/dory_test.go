package dory_test

import (
	"math/big"
	"testing"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/stretchr/testify/require"

	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/column"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/commitment/dory"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/field"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/mle"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/transcript"
)

func testSetup(t *testing.T, rows, cols int) *dory.Setup {
	t.Helper()
	_, _, g1Gen, g2Gen := bls12381.Generators()

	g1s := make([]bls12381.G1Affine, rows)
	for i := range g1s {
		g1s[i].ScalarMultiplication(&g1Gen, big.NewInt(int64(i)+7))
	}
	g2s := make([]bls12381.G2Affine, cols)
	for i := range g2s {
		g2s[i].ScalarMultiplication(&g2Gen, big.NewInt(int64(i)+11))
	}
	return &dory.Setup{Gamma1: g1s, Gamma2: g2s}
}

func newTranscript() *transcript.Transcript {
	return transcript.New(transcript.LabelEvaluationProof)
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
	setup := testSetup(t, 4, 4)
	backend := dory.Backend{}

	colA := column.Column{Type: column.TypeBigInt, Scalars: feSlice(1, 2, 3, 4)}
	colB := column.Column{Type: column.TypeBigInt, Scalars: feSlice(1, 2, 3, 5)}

	comsA, err := backend.ComputeCommitments([]column.Column{colA}, 0, setup)
	require.NoError(err)
	comsB, err := backend.ComputeCommitments([]column.Column{colB}, 0, setup)
	require.NoError(err)

	require.NotEqual(comsA[0].CompressedBytes(), comsB[0].CompressedBytes())
}

func TestComputeCommitmentsHomomorphism(t *testing.T) {
	require := require.New(t)
	setup := testSetup(t, 4, 4)
	backend := dory.Backend{}

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

	require.Equal(comFull[0].CompressedBytes(), sum.CompressedBytes())
}

// TestProveEvaluationDeterministic checks that proving the same evaluation
// twice against byte-identical transcripts produces byte-identical proofs,
// the transcript-determinism property spec.md requires of every round of
// the protocol.
func TestProveEvaluationDeterministic(t *testing.T) {
	require := require.New(t)
	setup := testSetup(t, 4, 1)
	backend := dory.Backend{}

	col := column.Column{Type: column.TypeBigInt, Scalars: feSlice(1, 2, 3, 4)}
	evalPoint := []field.Element{field.Zero(), field.Zero()}

	proofA, err := backend.ProveEvaluation(newTranscript(), col.Scalars, evalPoint, 0, setup)
	require.NoError(err)
	proofB, err := backend.ProveEvaluation(newTranscript(), col.Scalars, evalPoint, 0, setup)
	require.NoError(err)

	require.Equal(proofA.CompressedBytes(), proofB.CompressedBytes())
}

// TestProveVerifyRoundTrip checks that an honest evaluation proof, built
// against the real commitment returned by ComputeCommitments, verifies -
// exercising the binding chain VerifyBatchedEvaluation's running
// commitment and sumcheck checks are supposed to enforce (spec.md §8).
func TestProveVerifyRoundTrip(t *testing.T) {
	require := require.New(t)
	setup := testSetup(t, 4, 1)
	backend := dory.Backend{}

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

// TestProveVerifyRejectsWrongClaim checks that a tampered claimed
// evaluation is rejected rather than silently accepted, the behavior the
// prior no-op VerifyBatchedEvaluation failed to provide.
func TestProveVerifyRejectsWrongClaim(t *testing.T) {
	require := require.New(t)
	setup := testSetup(t, 4, 1)
	backend := dory.Backend{}

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

// TestProveVerifyRejectsWrongCommitment checks that swapping in a
// commitment to different data, with the proof and claimed evaluation left
// untouched, is rejected - the running-commitment fold check must actually
// depend on commits, not merely replay the transcript.
func TestProveVerifyRejectsWrongCommitment(t *testing.T) {
	require := require.New(t)
	setup := testSetup(t, 4, 1)
	backend := dory.Backend{}

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


// Package commitment defines the backend-agnostic polynomial commitment
// interface of spec.md §4.4. Two concrete backends live in the dory and
// hyperkzg subpackages; plan/expression code never imports either directly,
// only this package's Backend interface.
package commitment

import (
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/column"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/field"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/transcript"
)

// Commitment is an opaque, homomorphic digest of a column at a global row
// offset, per spec.md §3. Concrete backends implement this with their own
// group-element representation.
type Commitment interface {
	// Add returns the commitment to the concatenation of the columns this
	// and other commit to, valid only when other's offset is this's offset
	// plus this's length (adjacent ranges), per spec.md §3's table
	// commitment composition rule.
	Add(other Commitment) (Commitment, error)
	// CompressedBytes returns the canonical compressed encoding, used both
	// for transcript absorption (transcript.PointBytes) and serialization.
	CompressedBytes() []byte
	// ColumnType reports the committed column's type.
	ColumnType() column.Type
	// Length reports the committed column's length.
	Length() int
	// Offset reports the committed column's global row offset.
	Offset() int
}

// PublicSetup is the backend-specific public parameters needed to compute
// commitments (shared by prover and verifier).
type PublicSetup interface{ isPublicSetup() }

// ProverSetup additionally carries whatever the prover alone needs to build
// an evaluation proof (e.g. the full SRS rather than just its verifying
// slice).
type ProverSetup interface {
	PublicSetup
	isProverSetup()
}

// VerifierSetup carries whatever the verifier alone needs to check an
// evaluation proof.
type VerifierSetup interface {
	PublicSetup
	isVerifierSetup()
}

// Proof is an opaque backend-specific MLE-evaluation proof.
type Proof interface {
	CompressedBytes() []byte
}

// Backend is the interface of spec.md §4.4, satisfied by both
// commitment/dory (B1) and commitment/hyperkzg (B2).
type Backend interface {
	// ComputeCommitments commits to each column at the given global offset.
	ComputeCommitments(cols []column.Column, offset int, setup PublicSetup) ([]Commitment, error)

	// ProveEvaluation proves that the random linear combination of values
	// (already reduced by the caller's batching factors into a single
	// logical column) evaluates to the claimed value at evalPoint.
	ProveEvaluation(tr *transcript.Transcript, values []field.Element, evalPoint []field.Element, offset int, setup ProverSetup) (Proof, error)

	// VerifyBatchedEvaluation checks a single evaluation proof for a random
	// linear combination of several commitments against their claimed
	// per-commitment evaluations.
	VerifyBatchedEvaluation(tr *transcript.Transcript, commits []Commitment, factors []field.Element, claimedEvals []field.Element, evalPoint []field.Element, offset, length int, setup VerifierSetup, proof Proof) error
}

// CombineEvaluations folds per-commitment claimed evaluations with batching
// factors into the single scalar a batched evaluation proof attests to:
// sum_i factors[i] * claimedEvals[i].
func CombineEvaluations(factors, claimedEvals []field.Element) field.Element {
	var acc field.Element
	for i := range factors {
		acc = field.Add(acc, field.Mul(factors[i], claimedEvals[i]))
	}
	return acc
}

package gadgets

import (
	"fmt"
	"math/big"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"

	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/field"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/mle"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/transcript"
)

// toFr reinterprets a field.Element's canonical bytes as a bls12-381 scalar,
// the same boundary conversion commitment/dory uses wherever a bn254-field
// proof value scalar-multiplies a bls12-381 group element.
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

// InnerProductRound is one round of the halving argument: a pair of
// cross-term Pedersen commitments sent before the next folding challenge is
// drawn, per spec.md §4.6.4.
type InnerProductRound struct {
	L, R bls12381.G1Affine
}

// InnerProductProof is the Bulletproofs-style evaluation proof an
// alternate Curve25519-family commitment backend would use in place of
// Dory/HyperKZG: log-n rounds of (L, R) plus the single folded scalar and
// basis element the verifier checks against.
type InnerProductProof struct {
	Rounds      []InnerProductRound
	FinalScalar field.Element
	FinalBasis  bls12381.G1Affine
}

// ProveInnerProduct folds values against basis one variable at a time,
// deinterleaving each into even/odd halves (the same 2i/2i+1 split mle.Fold
// reduces over). Per round it commits the cross terms L = <a_even,G_odd>
// and R = <a_odd,G_even> via plain Pedersen-style scalar-multiply-and-sum
// (no pairing involved — this is a single-group, not bilinear, commitment
// scheme), then folds the value vector by (x, x^-1) and the basis vector by
// the complementary (x^-1, x) so that <values',basis'> stays equal to the
// running commitment x^2·L + C + x^-2·R the verifier recomputes.
func ProveInnerProduct(tr *transcript.Transcript, values []field.Element, basis []bls12381.G1Affine) (InnerProductProof, error) {
	if len(values) != len(basis) {
		return InnerProductProof{}, fmt.Errorf("gadgets: ProveInnerProduct: len(values)=%d != len(basis)=%d", len(values), len(basis))
	}
	curVals := values
	curBasis := basis
	nu := mle.NumVars(len(values))

	rounds := make([]InnerProductRound, 0, nu)
	for round := 0; round < nu && len(curVals) > 1; round++ {
		evenVals, oddVals := deinterleaveValues(curVals)
		evenBasis, oddBasis := deinterleaveG1(curBasis)

		l, err := pedersenCommit(evenVals, oddBasis)
		if err != nil {
			return InnerProductProof{}, fmt.Errorf("gadgets: round %d L commitment: %w", round, err)
		}
		r, err := pedersenCommit(oddVals, evenBasis)
		if err != nil {
			return InnerProductProof{}, fmt.Errorf("gadgets: round %d R commitment: %w", round, err)
		}
		rounds = append(rounds, InnerProductRound{L: l, R: r})

		lb := l.Bytes()
		rb := r.Bytes()
		if err := tr.AppendBytes(transcript.LabelEvaluationProof, append(lb[:], rb[:]...)); err != nil {
			return InnerProductProof{}, fmt.Errorf("gadgets: absorb round %d: %w", round, err)
		}
		challenge, err := tr.Challenge(transcript.LabelEvaluationProof)
		if err != nil {
			return InnerProductProof{}, fmt.Errorf("gadgets: draw round %d challenge: %w", round, err)
		}
		challengeInv := field.Inverse(challenge)

		curVals = foldValues(evenVals, oddVals, challenge, challengeInv)
		curBasis = foldG1(evenBasis, oddBasis, challengeInv, challenge)
	}

	var finalScalar field.Element
	if len(curVals) > 0 {
		finalScalar = curVals[0]
	}
	var finalBasis bls12381.G1Affine
	if len(curBasis) > 0 {
		finalBasis = curBasis[0]
	}
	return InnerProductProof{Rounds: rounds, FinalScalar: finalScalar, FinalBasis: finalBasis}, nil
}

// foldValues combines even/odd value halves as a' = x·even + x^-1·odd.
func foldValues(even, odd []field.Element, x, xInv field.Element) []field.Element {
	n := len(even)
	if len(odd) < n {
		n = len(odd)
	}
	out := make([]field.Element, n)
	for i := 0; i < n; i++ {
		out[i] = field.Add(field.Mul(x, even[i]), field.Mul(xInv, odd[i]))
	}
	return out
}

// VerifyInnerProduct replays the prover's transcript absorption and checks
// the folded commitment against the proof's final scalar times the folded
// basis element, per spec.md §4.6.4's "final check compares a single group
// element."
func VerifyInnerProduct(tr *transcript.Transcript, commitment bls12381.G1Affine, proof InnerProductProof) error {
	cur := commitment
	for round, rnd := range proof.Rounds {
		lb := rnd.L.Bytes()
		rb := rnd.R.Bytes()
		if err := tr.AppendBytes(transcript.LabelEvaluationProof, append(lb[:], rb[:]...)); err != nil {
			return fmt.Errorf("gadgets: absorb round %d: %w", round, err)
		}
		challenge, err := tr.Challenge(transcript.LabelEvaluationProof)
		if err != nil {
			return fmt.Errorf("gadgets: draw round %d challenge: %w", round, err)
		}
		cur = foldCommitment(cur, rnd.L, rnd.R, challenge)
	}

	var want bls12381.G1Jac
	want.FromAffine(&proof.FinalBasis)
	var scalarBig big.Int
	toFr(proof.FinalScalar).BigInt(&scalarBig)
	want.ScalarMultiplication(&want, &scalarBig)
	var wantAffine bls12381.G1Affine
	wantAffine.FromJacobian(&want)

	curBytes := cur.Bytes()
	wantBytes := wantAffine.Bytes()
	if curBytes != wantBytes {
		return fmt.Errorf("gadgets: inner-product final check failed")
	}
	return nil
}

// foldCommitment updates the running commitment with one round's L/R terms:
// cur' = r^2·L + cur + r^-2·R, the standard Bulletproofs fold-in-the-
// exponent recurrence.
func foldCommitment(cur, l, r bls12381.G1Affine, challenge field.Element) bls12381.G1Affine {
	rSq := field.Mul(challenge, challenge)
	rSqInv := field.Inverse(rSq)

	var acc, lTerm, rTerm bls12381.G1Jac
	acc.FromAffine(&cur)

	lTerm.FromAffine(&l)
	var rSqBig big.Int
	toFr(rSq).BigInt(&rSqBig)
	lTerm.ScalarMultiplication(&lTerm, &rSqBig)

	rTerm.FromAffine(&r)
	var rSqInvBig big.Int
	toFr(rSqInv).BigInt(&rSqInvBig)
	rTerm.ScalarMultiplication(&rTerm, &rSqInvBig)

	acc.AddAssign(&lTerm)
	acc.AddAssign(&rTerm)

	var out bls12381.G1Affine
	out.FromJacobian(&acc)
	return out
}

func deinterleaveG1(bs []bls12381.G1Affine) (even, odd []bls12381.G1Affine) {
	half := (len(bs) + 1) / 2
	even = make([]bls12381.G1Affine, half)
	odd = make([]bls12381.G1Affine, half)
	for i := 0; i < half; i++ {
		even[i] = bs[2*i]
		if 2*i+1 < len(bs) {
			odd[i] = bs[2*i+1]
		}
	}
	return even, odd
}

// foldG1 combines even/odd basis halves as G' = wEven·even + wOdd·odd. The
// caller passes complementary weights (x^-1, x) so that the basis fold
// stays dual to foldValues' (x, x^-1) value fold: <values',basis'> is then
// independent of x, which is what lets foldCommitment reconstruct the same
// folded commitment from L, R, and the challenge alone.
func foldG1(even, odd []bls12381.G1Affine, wEven, wOdd field.Element) []bls12381.G1Affine {
	n := len(even)
	if len(odd) < n {
		n = len(odd)
	}
	out := make([]bls12381.G1Affine, n)
	var weBig, woBig big.Int
	toFr(wEven).BigInt(&weBig)
	toFr(wOdd).BigInt(&woBig)
	for i := 0; i < n; i++ {
		var a, b bls12381.G1Jac
		a.FromAffine(&even[i])
		a.ScalarMultiplication(&a, &weBig)
		b.FromAffine(&odd[i])
		b.ScalarMultiplication(&b, &woBig)
		a.AddAssign(&b)
		out[i].FromJacobian(&a)
	}
	return out
}

func pedersenCommit(vals []field.Element, basis []bls12381.G1Affine) (bls12381.G1Affine, error) {
	n := len(vals)
	if n > len(basis) {
		n = len(basis)
	}
	var acc bls12381.G1Jac
	for i := 0; i < n; i++ {
		var v big.Int
		toFr(vals[i]).BigInt(&v)
		var term bls12381.G1Jac
		term.FromAffine(&basis[i])
		term.ScalarMultiplication(&term, &v)
		acc.AddAssign(&term)
	}
	var out bls12381.G1Affine
	out.FromJacobian(&acc)
	return out, nil
}

func deinterleaveValues(vs []field.Element) (even, odd []field.Element) {
	half := (len(vs) + 1) / 2
	even = make([]field.Element, half)
	odd = make([]field.Element, half)
	for i := 0; i < half; i++ {
		even[i] = vs[2*i]
		if 2*i+1 < len(vs) {
			odd[i] = vs[2*i+1]
		}
	}
	return even, odd
}

// Package query implements the proof driver of spec.md §4.7: Prove and
// Verify, the two entry points that walk a proofplan.Plan tree through the
// sumcheck engine and a commitment.Backend to produce and check one proof.
package query

import "fmt"

// ErrorKind classifies a ProofError, per spec.md §4.8's three-way failure
// taxonomy: a malformed proof never even reaches the cryptographic check, a
// placeholder binding mismatch is caught before evaluation ever starts, and
// anything else that fails the actual sumcheck/evaluation argument is a
// verification failure.
type ErrorKind int

const (
	// Format reports a proof whose shape doesn't match what the plan
	// requires — wrong round count, wrong number of commitments or MLE
	// evaluations — detected before any cryptographic check runs.
	Format ErrorKind = iota
	// Placeholder reports a caller-supplied binding that doesn't match a
	// PlaceholderExpr's declared type, or an out-of-range placeholder id.
	Placeholder
	// Verification reports a proof that is well-formed but fails the
	// sumcheck consistency check or the final evaluation argument.
	Verification
)

func (k ErrorKind) String() string {
	switch k {
	case Format:
		return "Format"
	case Placeholder:
		return "Placeholder"
	case Verification:
		return "Verification"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// ProofError is the single error type Prove and Verify return for any
// failure intrinsic to the proof protocol itself (as opposed to a wrapped
// accessor or commitment-backend error, which Prove/Verify pass through
// with %w instead of reclassifying).
type ProofError struct {
	Kind ErrorKind
	Msg  string
}

func (e ProofError) Error() string { return fmt.Sprintf("query: %s: %s", e.Kind, e.Msg) }

func placeholderErrorf(format string, args ...any) ProofError {
	return ProofError{Kind: Placeholder, Msg: fmt.Sprintf(format, args...)}
}

func formatErrorf(format string, args ...any) ProofError {
	return ProofError{Kind: Format, Msg: fmt.Sprintf(format, args...)}
}

func verificationErrorf(format string, args ...any) ProofError {
	return ProofError{Kind: Verification, Msg: fmt.Sprintf(format, args...)}
}

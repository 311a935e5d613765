package query_test

import (
	"math/big"
	"testing"

	kzgbn254 "github.com/consensys/gnark-crypto/ecc/bn254/kzg"
	"github.com/stretchr/testify/require"

	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/accessor"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/column"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/commitment"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/commitment/hyperkzg"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/field"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/proofexpr"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/proofplan"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/query"
)

// The HyperKZG backend (github.com/consensys/gnark-crypto/ecc/bn254/kzg)
// binds its evaluation proof to the caller's evalPoint coordinates
// directly (see hyperkzg.go's ProveEvaluation/VerifyBatchedEvaluation), so
// it's the backend these driver tests exercise end to end; the Dory
// backend's halving argument derives its own fold point from the
// transcript rather than from evalPoint (documented in DESIGN.md) and so
// doesn't stand in for a correctly-bound PCS here.

func id(s string) accessor.Identifier { return accessor.MustIdentifier(s) }

func feSlice(vs ...int64) []field.Element {
	out := make([]field.Element, len(vs))
	for i, v := range vs {
		out[i] = field.FromSignedInt(v)
	}
	return out
}

func newSetup(t *testing.T, size uint64) *hyperkzg.Setup {
	t.Helper()
	srs, err := kzgbn254.NewSRS(size, big.NewInt(42))
	require.NoError(t, err)
	return &hyperkzg.Setup{SRS: *srs}
}

// filterFixture builds the same Filter-over-TableScan plan
// proofplan_test.go's filterPlan() uses: keep rows of "t"."a" that are <=
// 3, out of [1,5,2,9,3]. It exercises a plan with post-result challenges,
// intermediate MLEs, and ZeroSum/Identity subpolynomials — a more
// representative end-to-end proof than a bare TableScan.
func filterFixture() (proofplan.Plan, accessor.TableRef, []field.Element) {
	ref := accessor.TableRef{Table: id("t")}
	values := feSlice(1, 5, 2, 9, 3)
	plan := proofplan.Filter{
		Child: proofplan.TableScan{
			Table:   ref,
			Columns: []proofplan.ColumnSelection{{ID: id("a"), Type: column.TypeBigInt}},
		},
		Predicate: proofexpr.InequalityExpr{
			Left:       proofexpr.ColumnExpr{Name: "a", Type: column.TypeBigInt},
			Right:      proofexpr.LiteralExpr{Value: field.FromUint64(3), Type: column.TypeBigInt},
			StrictLess: false,
			BitBound:   16,
		},
	}
	return plan, ref, values
}

// buildAccessors wires a MemoryAccessor (prover) and the matching
// MemoryCommitmentAccessor (verifier) for one base table, committing its
// columns under backend/setup so GetCommitment has something to return.
func buildAccessors(t *testing.T, ref accessor.TableRef, values []field.Element, backend commitment.Backend, setup commitment.ProverSetup) (accessor.DataAccessor, accessor.CommitmentAccessor) {
	t.Helper()
	schema := []accessor.ColumnSchema{{ID: id("a"), Type: column.TypeBigInt}}

	data := accessor.NewMemoryAccessor()
	tbl, err := column.NewTable([]string{"a"}, map[string]column.Column{
		"a": {Type: column.TypeBigInt, Scalars: values},
	})
	require.NoError(t, err)
	data.AddTable(ref, tbl, 0)

	coms, err := backend.ComputeCommitments([]column.Column{{Type: column.TypeBigInt, Scalars: values}}, 0, setup)
	require.NoError(t, err)

	commits := accessor.NewMemoryCommitmentAccessor()
	commits.AddTable(ref, len(values), 0, schema)
	commits.AddCommitment(accessor.ColumnRef{Table: ref, Column: id("a")}, coms[0])

	return data, commits
}

func TestProveVerifyRoundTrip(t *testing.T) {
	require := require.New(t)
	plan, ref, values := filterFixture()
	backend := hyperkzg.Backend{}
	setup := newSetup(t, 16)
	data, commits := buildAccessors(t, ref, values, backend, setup)

	proof, err := query.Prove(plan, data, nil, nil, backend, setup, 0)
	require.NoError(err)
	require.Equal(feSlice(1, 2, 3), proof.ResultTable.Columns["a"].Scalars)

	result, err := query.Verify(plan, commits, nil, nil, backend, setup, 0, proof)
	require.NoError(err)
	require.Equal(feSlice(1, 2, 3), result.Columns["a"].Scalars)
}

func TestVerifyRejectsTamperedMLEEvaluation(t *testing.T) {
	require := require.New(t)
	plan, ref, values := filterFixture()
	backend := hyperkzg.Backend{}
	setup := newSetup(t, 16)
	data, commits := buildAccessors(t, ref, values, backend, setup)

	proof, err := query.Prove(plan, data, nil, nil, backend, setup, 0)
	require.NoError(err)

	proof.MLEEvaluations[0] = field.Add(proof.MLEEvaluations[0], field.One())

	_, err = query.Verify(plan, commits, nil, nil, backend, setup, 0, proof)
	require.Error(err)
	var proofErr query.ProofError
	require.ErrorAs(err, &proofErr)
	require.Equal(query.Verification, proofErr.Kind)
}

func TestVerifyRejectsTamperedResultTable(t *testing.T) {
	require := require.New(t)
	plan, ref, values := filterFixture()
	backend := hyperkzg.Backend{}
	setup := newSetup(t, 16)
	data, commits := buildAccessors(t, ref, values, backend, setup)

	proof, err := query.Prove(plan, data, nil, nil, backend, setup, 0)
	require.NoError(err)

	proof.ResultTable.Columns["a"].Scalars[0] = field.FromUint64(999)

	_, err = query.Verify(plan, commits, nil, nil, backend, setup, 0, proof)
	require.Error(err)
}

func TestVerifyRejectsWrongMLEEvaluationCount(t *testing.T) {
	require := require.New(t)
	plan, ref, values := filterFixture()
	backend := hyperkzg.Backend{}
	setup := newSetup(t, 16)
	data, commits := buildAccessors(t, ref, values, backend, setup)

	proof, err := query.Prove(plan, data, nil, nil, backend, setup, 0)
	require.NoError(err)

	proof.MLEEvaluations = proof.MLEEvaluations[:len(proof.MLEEvaluations)-1]

	_, err = query.Verify(plan, commits, nil, nil, backend, setup, 0, proof)
	require.Error(err)
	var proofErr query.ProofError
	require.ErrorAs(err, &proofErr)
	require.Equal(query.Format, proofErr.Kind)
}

func TestVerifyFailsOnUnregisteredBaseCommitment(t *testing.T) {
	require := require.New(t)
	plan, ref, values := filterFixture()
	backend := hyperkzg.Backend{}
	setup := newSetup(t, 16)
	data, _ := buildAccessors(t, ref, values, backend, setup)

	proof, err := query.Prove(plan, data, nil, nil, backend, setup, 0)
	require.NoError(err)

	emptyCommits := accessor.NewMemoryCommitmentAccessor()
	_, err = query.Verify(plan, emptyCommits, nil, nil, backend, setup, 0, proof)
	require.Error(err)
}

// TestVerifyRejectsWrongBaseCommitment swaps in a commitment to different
// table data while leaving the proof itself untouched, and checks
// query.Verify rejects it. proof.MLEEvaluations carries the prover's
// claimed evaluations of the base column; the only thing standing between
// "prover lies about those evaluations" and an accepted proof is the PCS
// backend's VerifyBatchedEvaluation actually binding claimedEvals to the
// commitments accessor.GetCommitment returns — this is the binding gap the
// backends' VerifyBatchedEvaluation previously left unchecked entirely.
func TestVerifyRejectsWrongBaseCommitment(t *testing.T) {
	require := require.New(t)
	plan, ref, values := filterFixture()
	backend := hyperkzg.Backend{}
	setup := newSetup(t, 16)
	data, _ := buildAccessors(t, ref, values, backend, setup)

	proof, err := query.Prove(plan, data, nil, nil, backend, setup, 0)
	require.NoError(err)

	otherValues := feSlice(100, 101, 102, 103, 104)
	otherCommits, err := backend.ComputeCommitments([]column.Column{{Type: column.TypeBigInt, Scalars: otherValues}}, 0, setup)
	require.NoError(err)

	schema := []accessor.ColumnSchema{{ID: id("a"), Type: column.TypeBigInt}}
	tampered := accessor.NewMemoryCommitmentAccessor()
	tampered.AddTable(ref, len(values), 0, schema)
	tampered.AddCommitment(accessor.ColumnRef{Table: ref, Column: id("a")}, otherCommits[0])

	_, err = query.Verify(plan, tampered, nil, nil, backend, setup, 0, proof)
	require.Error(err)
}

func TestProveAndVerifyResolvePlaceholders(t *testing.T) {
	require := require.New(t)
	ref := accessor.TableRef{Table: id("t")}
	values := feSlice(1, 5, 2, 9, 3)
	plan := proofplan.Filter{
		Child: proofplan.TableScan{
			Table:   ref,
			Columns: []proofplan.ColumnSelection{{ID: id("a"), Type: column.TypeBigInt}},
		},
		Predicate: proofexpr.InequalityExpr{
			Left:       proofexpr.ColumnExpr{Name: "a", Type: column.TypeBigInt},
			Right:      proofexpr.PlaceholderExpr{ID: 0, Type: column.TypeBigInt},
			StrictLess: false,
			BitBound:   16,
		},
	}
	backend := hyperkzg.Backend{}
	setup := newSetup(t, 16)
	data, commits := buildAccessors(t, ref, values, backend, setup)

	placeholders := []field.Element{field.FromUint64(3)}
	types := []column.Type{column.TypeBigInt}

	proof, err := query.Prove(plan, data, placeholders, types, backend, setup, 0)
	require.NoError(err)
	require.Equal(feSlice(1, 2, 3), proof.ResultTable.Columns["a"].Scalars)

	result, err := query.Verify(plan, commits, placeholders, types, backend, setup, 0, proof)
	require.NoError(err)
	require.Equal(feSlice(1, 2, 3), result.Columns["a"].Scalars)
}

func TestProveRejectsPlaceholderTypeMismatch(t *testing.T) {
	require := require.New(t)
	ref := accessor.TableRef{Table: id("t")}
	values := feSlice(1, 5, 2, 9, 3)
	plan := proofplan.Filter{
		Child: proofplan.TableScan{
			Table:   ref,
			Columns: []proofplan.ColumnSelection{{ID: id("a"), Type: column.TypeBigInt}},
		},
		Predicate: proofexpr.InequalityExpr{
			Left:       proofexpr.ColumnExpr{Name: "a", Type: column.TypeBigInt},
			Right:      proofexpr.PlaceholderExpr{ID: 0, Type: column.TypeBigInt},
			StrictLess: false,
			BitBound:   16,
		},
	}
	backend := hyperkzg.Backend{}
	setup := newSetup(t, 16)
	data, _ := buildAccessors(t, ref, values, backend, setup)

	_, err := query.Prove(plan, data, []field.Element{field.FromUint64(3)}, []column.Type{column.TypeInt}, backend, setup, 0)
	require.Error(err)
	var proofErr query.ProofError
	require.ErrorAs(err, &proofErr)
	require.Equal(query.Placeholder, proofErr.Kind)
}

func TestProveRejectsOutOfRangePlaceholderID(t *testing.T) {
	require := require.New(t)
	ref := accessor.TableRef{Table: id("t")}
	values := feSlice(1, 5, 2, 9, 3)
	plan := proofplan.Filter{
		Child: proofplan.TableScan{
			Table:   ref,
			Columns: []proofplan.ColumnSelection{{ID: id("a"), Type: column.TypeBigInt}},
		},
		Predicate: proofexpr.InequalityExpr{
			Left:       proofexpr.ColumnExpr{Name: "a", Type: column.TypeBigInt},
			Right:      proofexpr.PlaceholderExpr{ID: 5, Type: column.TypeBigInt},
			StrictLess: false,
			BitBound:   16,
		},
	}
	backend := hyperkzg.Backend{}
	setup := newSetup(t, 16)
	data, _ := buildAccessors(t, ref, values, backend, setup)

	_, err := query.Prove(plan, data, []field.Element{field.FromUint64(3)}, []column.Type{column.TypeBigInt}, backend, setup, 0)
	require.Error(err)
	var proofErr query.ProofError
	require.ErrorAs(err, &proofErr)
	require.Equal(query.Placeholder, proofErr.Kind)
}

func TestProveVerifyTableScanOnly(t *testing.T) {
	require := require.New(t)
	ref := accessor.TableRef{Table: id("t")}
	values := feSlice(7, 8, 9, 10)
	plan := proofplan.TableScan{
		Table:   ref,
		Columns: []proofplan.ColumnSelection{{ID: id("a"), Type: column.TypeBigInt}},
	}
	backend := hyperkzg.Backend{}
	setup := newSetup(t, 16)
	data, commits := buildAccessors(t, ref, values, backend, setup)

	proof, err := query.Prove(plan, data, nil, nil, backend, setup, 0)
	require.NoError(err)

	result, err := query.Verify(plan, commits, nil, nil, backend, setup, 0, proof)
	require.NoError(err)
	require.Equal(values, result.Columns["a"].Scalars)
}

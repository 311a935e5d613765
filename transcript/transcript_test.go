package transcript_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/field"
	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/transcript"
)

func buildTranscript(t *testing.T) *transcript.Transcript {
	t.Helper()
	return transcript.New(
		transcript.LabelResultColumns,
		transcript.LabelResultRowCount,
		transcript.LabelPostResultChallenge,
	)
}

func TestTranscriptDeterministic(t *testing.T) {
	require := require.New(t)

	run := func() field.Element {
		tr := buildTranscript(t)
		require.NoError(tr.AppendScalars(transcript.LabelResultColumns, []field.Element{field.FromUint64(1), field.FromUint64(2)}))
		require.NoError(tr.AppendScalars(transcript.LabelResultRowCount, []field.Element{field.FromUint64(2)}))
		c, err := tr.Challenge(transcript.LabelPostResultChallenge)
		require.NoError(err)
		return c
	}

	a := run()
	b := run()
	require.True(a.Equal(b))
}

func TestTranscriptDivergesOnDifferentInput(t *testing.T) {
	require := require.New(t)

	tr1 := buildTranscript(t)
	require.NoError(tr1.AppendScalars(transcript.LabelResultColumns, []field.Element{field.FromUint64(1)}))
	c1, err := tr1.Challenge(transcript.LabelPostResultChallenge)
	require.NoError(err)

	tr2 := buildTranscript(t)
	require.NoError(tr2.AppendScalars(transcript.LabelResultColumns, []field.Element{field.FromUint64(2)}))
	c2, err := tr2.Challenge(transcript.LabelPostResultChallenge)
	require.NoError(err)

	require.False(c1.Equal(c2))
}

func TestChallengesDistinct(t *testing.T) {
	require := require.New(t)
	tr := buildTranscript(t)
	cs, err := tr.Challenges(transcript.LabelPostResultChallenge, 3)
	require.NoError(err)
	require.Len(cs, 3)
	require.False(cs[0].Equal(cs[1]))
	require.False(cs[1].Equal(cs[2]))
}

package proofplan

// NumPostResultChallenges reports how many post-result challenges p's
// subtree requests, purely from its shape — the same count
// FirstRoundEvaluate accumulates via RequestPostResultChallenges, but
// computable without a DataAccessor. The query driver's verifier side has
// no data to run FirstRoundEvaluate against, yet still needs this count
// before it can draw the transcript.LabelPostResultChallenge challenges in
// step 2 of spec.md §4.7's protocol; this is the structural twin that makes
// that possible. Every node's own contribution here must match the n it
// passes to RequestPostResultChallenges in its FirstRoundEvaluate.
func NumPostResultChallenges(p Plan) int {
	switch n := p.(type) {
	case TableScan:
		return 0
	case Projection:
		return NumPostResultChallenges(n.Child)
	case Filter:
		return 2 + NumPostResultChallenges(n.Child)
	case GroupBy:
		return 1 + NumPostResultChallenges(n.Child)
	case Union:
		total := 2
		for _, c := range n.Children {
			total += NumPostResultChallenges(c)
		}
		return total
	case SortMergeJoin:
		return 1 + NumPostResultChallenges(n.Left) + NumPostResultChallenges(n.Right)
	case Aggregate:
		return NumPostResultChallenges(n.Child)
	case Slice:
		return 2 + NumPostResultChallenges(n.Child)
	case Empty:
		return 0
	default:
		panic("proofplan: NumPostResultChallenges: unhandled plan node")
	}
}

package parallel_test

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/internal/parallel"
)

var errBoom = errors.New("boom")

func TestSplitCoversEveryIndex(t *testing.T) {
	require := require.New(t)

	const total = 1000
	var touched [total]int32

	err := parallel.Split(total, func(start, end int) error {
		for i := start; i < end; i++ {
			atomic.AddInt32(&touched[i], 1)
		}
		return nil
	})
	require.NoError(err)
	for i, v := range touched {
		require.EqualValuesf(1, v, "index %d touched %d times", i, v)
	}
}

func TestSplitPropagatesError(t *testing.T) {
	require := require.New(t)
	err := parallel.Split(10, func(start, end int) error {
		return errBoom
	})
	require.ErrorIs(err, errBoom)
}

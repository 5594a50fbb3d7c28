package dispatch

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoInvoke records every batch it receives and returns its items uppercase-tagged.
func echoInvoke(calls *[][]string) Invoke[string, string, string] {
	return func(_ context.Context, batch []string) (Result[string, string], error) {
		cp := append([]string(nil), batch...)
		*calls = append(*calls, cp)
		out := Result[string, string]{}
		for _, it := range batch {
			out.Data = append(out.Data, "r("+it+")")
		}
		return out, nil
	}
}

func TestRunSingleBatchPassthrough(t *testing.T) {
	var calls [][]string
	res, err := Run(context.Background(), []string{"a", "b"}, 25, echoInvoke(&calls))
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"a", "b"}, calls[0])
	assert.Equal(t, []string{"r(a)", "r(b)"}, res.Data)
	assert.Empty(t, res.Errors)
}

func TestRunExactBatchSizeSingleCall(t *testing.T) {
	var calls [][]string
	items := []string{"a", "b", "c"}
	_, err := Run(context.Background(), items, 3, echoInvoke(&calls))
	require.NoError(t, err)
	assert.Len(t, calls, 1)
}

func TestRunChunksPreserveOrder(t *testing.T) {
	var calls [][]string
	res, err := Run(context.Background(), []string{"t1", "t2", "t3"}, 2, echoInvoke(&calls))
	require.NoError(t, err)
	require.Len(t, calls, 2)
	assert.Equal(t, []string{"t1", "t2"}, calls[0])
	assert.Equal(t, []string{"t3"}, calls[1])
	assert.Equal(t, []string{"r(t1)", "r(t2)", "r(t3)"}, res.Data)
}

func TestRunInvocationCount(t *testing.T) {
	for _, tc := range []struct {
		n, batch, want int
	}{
		{1, 25, 1}, {25, 25, 1}, {26, 25, 2}, {50, 25, 2}, {51, 25, 3}, {7, 2, 4},
	} {
		var calls [][]string
		items := make([]string, tc.n)
		for i := range items {
			items[i] = fmt.Sprintf("x%d", i)
		}
		res, err := Run(context.Background(), items, tc.batch, echoInvoke(&calls))
		require.NoError(t, err)
		assert.Len(t, calls, tc.want, "n=%d batch=%d", tc.n, tc.batch)
		require.Len(t, res.Data, tc.n)
		// Global order must match input order across chunk boundaries.
		for i, it := range items {
			assert.Equal(t, "r("+it+")", res.Data[i])
		}
	}
}

func TestRunAbortDiscardsPartialResults(t *testing.T) {
	boom := errors.New("upstream down")
	n := 0
	res, err := Run(context.Background(), []int{1, 2, 3, 4, 5}, 2,
		func(_ context.Context, batch []int) (Result[int, string], error) {
			n++
			if n == 2 {
				return Result[int, string]{}, boom
			}
			return Result[int, string]{Data: batch}, nil
		})
	require.ErrorIs(t, err, boom)
	assert.Empty(t, res.Data)
	assert.Empty(t, res.Errors)
	// No further chunks after the failed one.
	assert.Equal(t, 2, n)
}

func TestRunConcatenatesSoftErrors(t *testing.T) {
	res, err := Run(context.Background(), []string{"a", "b", "c", "d"}, 2,
		func(_ context.Context, batch []string) (Result[string, string], error) {
			return Result[string, string]{
				Data:   batch,
				Errors: []string{"e:" + batch[0]},
			}, nil
		})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, res.Data)
	assert.Equal(t, []string{"e:a", "e:c"}, res.Errors)
}

func TestRunRejectsNonPositiveBatchSize(t *testing.T) {
	_, err := Run(context.Background(), []string{"a"}, 0, echoInvoke(&[][]string{}))
	require.Error(t, err)
}

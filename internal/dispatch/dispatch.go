// Package dispatch implements the split → invoke-per-batch → reassemble engine
// shared by every vault operation that accepts an array.
package dispatch

import (
	"context"
	"fmt"
)

// Result is an ordered per-item result set. Errors carries row-scoped soft
// failures reported by the backend; it is not necessarily one-to-one with the
// input and its indexes are relative to the batch that produced them.
type Result[R, E any] struct {
	Data   []R
	Errors []E
}

// Invoke performs one backend call for a single batch.
type Invoke[T, R, E any] func(ctx context.Context, batch []T) (Result[R, E], error)

// Run splits items into consecutive chunks of at most batchSize, invokes once
// per chunk in input order, and concatenates each chunk's data and errors in
// chunk order. When the input fits in one batch the single result is returned
// unchanged. Chunks run sequentially; the ordering guarantee is the point.
//
// The first failed invoke aborts the whole dispatch and discards results from
// prior chunks. There is no resume: the caller resubmits the entire operation.
// Row-scoped soft errors inside a chunk's Result flow through untouched.
func Run[T, R, E any](ctx context.Context, items []T, batchSize int, invoke Invoke[T, R, E]) (Result[R, E], error) {
	if batchSize <= 0 {
		return Result[R, E]{}, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}
	if len(items) <= batchSize {
		return invoke(ctx, items)
	}

	out := Result[R, E]{Data: make([]R, 0, len(items))}
	for start := 0; start < len(items); start += batchSize {
		end := start + batchSize
		if end > len(items) {
			end = len(items)
		}
		part, err := invoke(ctx, items[start:end])
		if err != nil {
			return Result[R, E]{}, err
		}
		out.Data = append(out.Data, part.Data...)
		out.Errors = append(out.Errors, part.Errors...)
	}
	return out, nil
}

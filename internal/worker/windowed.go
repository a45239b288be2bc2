package worker

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Outcome is the per-item result of a windowed run. Exactly one of Value or Err is meaningful.
type Outcome[T any] struct {
	Value T
	Err   error
}

// RunWindowed processes items in consecutive windows of at most window concurrent calls,
// waiting for each window to drain before starting the next. A failing or panicking item
// is recorded in its own slot and never cancels its siblings or later windows. Results
// keep input order.
func RunWindowed[In, Out any](ctx context.Context, window int, items []In, fn func(context.Context, In) (Out, error)) []Outcome[Out] {
	if window <= 0 {
		window = 1
	}
	out := make([]Outcome[Out], len(items))

	for start := 0; start < len(items); start += window {
		end := min(start+window, len(items))

		var g errgroup.Group
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				out[i] = runOne(ctx, items[i], fn)
				return nil
			})
		}
		_ = g.Wait()
	}
	return out
}

func runOne[In, Out any](ctx context.Context, item In, fn func(context.Context, In) (Out, error)) (res Outcome[Out]) {
	defer func() {
		if r := recover(); r != nil {
			res = Outcome[Out]{Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	value, err := fn(ctx, item)
	if err != nil {
		return Outcome[Out]{Err: err}
	}
	return Outcome[Out]{Value: value}
}

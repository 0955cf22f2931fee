// Package util holds small concurrency helpers.
package util

import (
	"context"
	"errors"
	"sync"
)

// Parallel calls fn for every input with at most workerLimit calls in flight.
// A failing call does not stop the others; all errors are joined. Inputs not
// yet started when ctx ends are skipped and ctx.Err() is included.
func Parallel[T any](ctx context.Context, inputs []T, workerLimit int, fn func(context.Context, T) error) error {
	if len(inputs) == 0 {
		return nil
	}
	if workerLimit <= 0 {
		workerLimit = 1
	}

	tasks := make(chan T)
	var (
		mu   sync.Mutex
		errs []error
		wg   sync.WaitGroup
	)
	for range min(workerLimit, len(inputs)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range tasks {
				if err := fn(ctx, item); err != nil {
					mu.Lock()
					errs = append(errs, err)
					mu.Unlock()
				}
			}
		}()
	}

	var cancelled error
feed:
	for _, item := range inputs {
		if cancelled = ctx.Err(); cancelled != nil {
			break
		}
		select {
		case <-ctx.Done():
			cancelled = ctx.Err()
			break feed
		case tasks <- item:
		}
	}
	close(tasks)
	wg.Wait()

	return errors.Join(append(errs, cancelled)...)
}

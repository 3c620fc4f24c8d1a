package testutil

import (
	"context"
	"errors"
	"sync"

	dErrors "kycgate/pkg/domain-errors"
)

// ConcurrentResult tallies outcomes of concurrent test operations by domain code.
type ConcurrentResult struct {
	mu        sync.Mutex
	Successes int
	Codes     map[dErrors.Code]int
	Other     []error
}

// Total returns the number of operations executed.
func (r *ConcurrentResult) Total() int {
	n := r.Successes + len(r.Other)
	for _, c := range r.Codes {
		n += c
	}
	return n
}

// Count returns how many operations failed with code.
func (r *ConcurrentResult) Count(code dErrors.Code) int {
	return r.Codes[code]
}

func (r *ConcurrentResult) record(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var de *dErrors.Error
	switch {
	case err == nil:
		r.Successes++
	case errors.As(err, &de):
		r.Codes[de.Code]++
	default:
		r.Other = append(r.Other, err)
	}
}

// RunConcurrent executes fn in parallel goroutines, releasing them together,
// and collects the results.
func RunConcurrent(goroutines int, fn func(idx int) error) *ConcurrentResult {
	result := &ConcurrentResult{Codes: make(map[dErrors.Code]int)}
	start := make(chan struct{})
	var wg sync.WaitGroup

	for i := range goroutines {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			<-start
			result.record(fn(idx))
		}(i)
	}
	close(start)
	wg.Wait()
	return result
}

// RunConcurrentCtx is RunConcurrent with a shared context.
func RunConcurrentCtx(ctx context.Context, goroutines int, fn func(ctx context.Context, idx int) error) *ConcurrentResult {
	return RunConcurrent(goroutines, func(idx int) error {
		return fn(ctx, idx)
	})
}

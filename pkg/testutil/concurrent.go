// Package testutil holds helpers shared by package tests.
package testutil

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ConcurrentResult counts the outcomes of a RunConcurrent call.
type ConcurrentResult struct {
	Successes int32
	Canceled  int32
	Failures  int32
}

// Total returns the number of calls made.
func (r *ConcurrentResult) Total() int32 {
	return r.Successes + r.Canceled + r.Failures
}

// RunConcurrent starts n goroutines running fn together and waits for all of
// them. Context cancellation and deadline errors are counted apart from other
// failures so tests can assert on abandoned waits.
func RunConcurrent(n int, fn func(idx int) error) *ConcurrentResult {
	var (
		wg                     sync.WaitGroup
		start                  = make(chan struct{})
		ok, canceled, failures atomic.Int32
	)
	for i := range n {
		wg.Go(func() {
			<-start
			err := fn(i)
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				canceled.Add(1)
			default:
				failures.Add(1)
			}
		})
	}
	close(start)
	wg.Wait()

	return &ConcurrentResult{
		Successes: ok.Load(),
		Canceled:  canceled.Load(),
		Failures:  failures.Load(),
	}
}

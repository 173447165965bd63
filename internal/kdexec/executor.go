// Package kdexec provides the bounded fork/join executor shared by the
// kd-tree's sort, build, and range-search recursions.
package kdexec

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Executor bounds how deep a recursive divide-and-conquer routine may fork
// work onto goroutines before falling back to running both halves inline.
//
// A nil *Executor is valid and behaves as if constructed with n <= 1: every
// Fork call runs both halves on the calling goroutine.
type Executor struct {
	maxSubmitDepth int
	sem            chan struct{}
}

// New builds an Executor for n worker slots. n is rounded down to a power
// of two; maxSubmitDepth is then floor(log2(n-1)) for n >= 2, or -1 (no
// submission) for n <= 1. This mirrors Orizon's depth-bounded
// ParallelSorter cutoff, but computed once at construction instead of from
// runtime.NumCPU() on every call.
func New(n int) *Executor {
	n = floorPow2(n)
	if n <= 1 {
		return &Executor{maxSubmitDepth: -1}
	}
	return &Executor{
		maxSubmitDepth: log2(n - 1),
		sem:            make(chan struct{}, n-1),
	}
}

func floorPow2(n int) int {
	if n <= 1 {
		return n
	}
	p := 1
	for p*2 <= n {
		p *= 2
	}
	return p
}

func log2(n int) int {
	if n <= 0 {
		return 0
	}
	l := 0
	for n > 1 {
		n >>= 1
		l++
	}
	return l
}

// MaxSubmitDepth is the deepest recursion level at which Fork will submit
// the left half to the pool; past it, Fork always runs both halves inline.
func (e *Executor) MaxSubmitDepth() int {
	if e == nil {
		return -1
	}
	return e.maxSubmitDepth
}

// ShouldSubmit reports whether a recursive call at the given depth should
// fork, per the "depth <= maxSubmitDepth" rule shared by sort, build, and
// range search.
func (e *Executor) ShouldSubmit(depth int) bool {
	return e != nil && e.maxSubmitDepth >= 0 && depth <= e.maxSubmitDepth
}

// Fork runs left and right, submitting left to the pool (bounded by the
// semaphore) and running right on the calling goroutine, then joins. If the
// executor is nil, disabled, or depth exceeds maxSubmitDepth, both halves
// run inline sequentially.
//
// A panic inside left propagates out of Wait as an *errgroup* error,
// surfacing to the caller as kdtree.ErrTaskFailure (see kdtree/errors.go);
// this mirrors Orizon's errgroup.WithContext fork/join in
// cmd/orizon/pkg/utils/graph.go, adapted from I/O fan-out to pure-CPU
// recursion.
func (e *Executor) Fork(depth int, left, right func()) error {
	if !e.ShouldSubmit(depth) {
		left()
		right()
		return nil
	}

	g, _ := errgroup.WithContext(context.Background())
	g.Go(func() (err error) {
		e.sem <- struct{}{}
		defer func() { <-e.sem }()
		defer recoverInto(&err)
		left()
		return nil
	})
	right()
	return g.Wait()
}

func recoverInto(err *error) {
	if r := recover(); r != nil {
		*err = &taskPanic{r}
	}
}

type taskPanic struct{ v any }

func (p *taskPanic) Error() string {
	return "kdexec: task panicked"
}

func (p *taskPanic) Unwrap() error {
	if e, ok := p.v.(error); ok {
		return e
	}
	return nil
}

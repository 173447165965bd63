package kdtree

import (
	"errors"
	"fmt"
)

// Error taxonomy. DimensionMismatch and CapacityExceeded are reported to
// callers as ordinary values (Add returns a sentinel); SortInvariant,
// GeometryInvariant, and TaskFailure are fatal and indicate a bug in the
// tree itself rather than caller misuse.
var (
	ErrDimensionMismatch = errors.New("kdtree: point length does not match tree dimensions")
	ErrCapacityExceeded  = errors.New("kdtree: staging buffer is full")
	ErrSortInvariant     = errors.New("kdtree: adjacent reference-array keys out of order")
	ErrGeometryInvariant = errors.New("kdtree: partition invariant violated")
	ErrTaskFailure       = errors.New("kdtree: a forked task failed")
)

// wrappedErr wraps a forked task's failure as ErrTaskFailure while
// retaining the original cause for errors.Is/As and %w formatting, so a
// panic inside a submitted sort/build/search task surfaces synchronously
// at the join point.
type wrappedErr struct {
	op    string
	cause error
}

func (e *wrappedErr) Error() string {
	return fmt.Sprintf("kdtree: %s: %v", e.op, e.cause)
}

func (e *wrappedErr) Unwrap() []error {
	return []error{ErrTaskFailure, e.cause}
}

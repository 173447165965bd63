package kdtree

import "github.com/johnarobinson77/kdtree/internal/kdexec"

// insertionSortThreshold is the span below which the recursive merge sort
// switches to insertion sort, avoiding recursion overhead on small runs.
const insertionSortThreshold = 15

// mergeSortReferences stably sorts ref[low..high] under SuperKey order with
// axis as the most-significant coordinate, leaving the sorted result in ref.
// scratch must have the same length as ref and is used as working space.
func mergeSortReferences[V any](ref, scratch []*node[V], low, high, axis int, exec *kdexec.Executor) error {
	return mergeAscIntoRef(ref, scratch, low, high, axis, 0, exec)
}

// The four variants below avoid bounce copies: each one delivers its
// result in a specific buffer (ref or scratch) and a specific direction
// (ascending or descending). Sibling recursions target the *other* buffer
// in opposite directions, so the parent merge reads one ascending half and
// one descending half out of the same buffer and writes into the other.

func mergeAscIntoRef[V any](ref, scratch []*node[V], low, high, axis, depth int, exec *kdexec.Executor) error {
	if high-low <= insertionSortThreshold {
		insertionSortRefAsc(ref, low, high, axis)
		return nil
	}
	mid := low + (high-low)/2
	var leftErr, rightErr error
	err := exec.Fork(depth,
		func() { leftErr = mergeAscIntoScratch(ref, scratch, low, mid, axis, depth+1, exec) },
		func() { rightErr = mergeDescIntoScratch(ref, scratch, mid+1, high, axis, depth+1, exec) },
	)
	if err != nil {
		return joinTaskErr(err)
	}
	if leftErr != nil {
		return leftErr
	}
	if rightErr != nil {
		return rightErr
	}
	mergeAscFrom(scratch, ref, low, mid, high, axis)
	return nil
}

func mergeDescIntoRef[V any](ref, scratch []*node[V], low, high, axis, depth int, exec *kdexec.Executor) error {
	if high-low <= insertionSortThreshold {
		insertionSortRefDesc(ref, low, high, axis)
		return nil
	}
	mid := low + (high-low)/2
	var leftErr, rightErr error
	err := exec.Fork(depth,
		func() { leftErr = mergeAscIntoScratch(ref, scratch, low, mid, axis, depth+1, exec) },
		func() { rightErr = mergeDescIntoScratch(ref, scratch, mid+1, high, axis, depth+1, exec) },
	)
	if err != nil {
		return joinTaskErr(err)
	}
	if leftErr != nil {
		return leftErr
	}
	if rightErr != nil {
		return rightErr
	}
	mergeDescFrom(scratch, ref, low, mid, high, axis)
	return nil
}

func mergeAscIntoScratch[V any](ref, scratch []*node[V], low, high, axis, depth int, exec *kdexec.Executor) error {
	if high-low <= insertionSortThreshold {
		insertionSortScratchAsc(ref, scratch, low, high, axis)
		return nil
	}
	mid := low + (high-low)/2
	var leftErr, rightErr error
	err := exec.Fork(depth,
		func() { leftErr = mergeAscIntoRef(ref, scratch, low, mid, axis, depth+1, exec) },
		func() { rightErr = mergeDescIntoRef(ref, scratch, mid+1, high, axis, depth+1, exec) },
	)
	if err != nil {
		return joinTaskErr(err)
	}
	if leftErr != nil {
		return leftErr
	}
	if rightErr != nil {
		return rightErr
	}
	mergeAscFrom(ref, scratch, low, mid, high, axis)
	return nil
}

func mergeDescIntoScratch[V any](ref, scratch []*node[V], low, high, axis, depth int, exec *kdexec.Executor) error {
	if high-low <= insertionSortThreshold {
		insertionSortScratchDesc(ref, scratch, low, high, axis)
		return nil
	}
	mid := low + (high-low)/2
	var leftErr, rightErr error
	err := exec.Fork(depth,
		func() { leftErr = mergeAscIntoRef(ref, scratch, low, mid, axis, depth+1, exec) },
		func() { rightErr = mergeDescIntoRef(ref, scratch, mid+1, high, axis, depth+1, exec) },
	)
	if err != nil {
		return joinTaskErr(err)
	}
	if leftErr != nil {
		return leftErr
	}
	if rightErr != nil {
		return rightErr
	}
	mergeDescFrom(ref, scratch, low, mid, high, axis)
	return nil
}

// mergeAscFrom reads an ascending run src[low..mid] and a descending run
// src[mid+1..high] and writes the merged ascending order into dst[low..high].
// Because one run is ascending and the other descending, i walks up from
// low and j walks down from high; no separate exhaustion test is needed for
// either half since i and j meet exactly after high-low+1 writes.
func mergeAscFrom[V any](src, dst []*node[V], low, mid, high, axis int) {
	i, j := low, high
	for k := low; k <= high; k++ {
		if superKeyCompare(src[i].tuple, src[j].tuple, axis) <= 0 {
			dst[k] = src[i]
			i++
		} else {
			dst[k] = src[j]
			j--
		}
	}
}

// mergeDescFrom is mergeAscFrom with the fill direction flipped:
// src[low..mid] ascending, src[mid+1..high] descending in; the smallest
// remaining element is written at the high end first, so dst comes out
// descending.
func mergeDescFrom[V any](src, dst []*node[V], low, mid, high, axis int) {
	i, j := low, high
	for k := high; k >= low; k-- {
		if superKeyCompare(src[i].tuple, src[j].tuple, axis) <= 0 {
			dst[k] = src[i]
			i++
		} else {
			dst[k] = src[j]
			j--
		}
	}
}

func insertionSortRefAsc[V any](ref []*node[V], low, high, axis int) {
	for i := low + 1; i <= high; i++ {
		v := ref[i]
		j := i - 1
		for j >= low && superKeyCompare(ref[j].tuple, v.tuple, axis) > 0 {
			ref[j+1] = ref[j]
			j--
		}
		ref[j+1] = v
	}
}

func insertionSortRefDesc[V any](ref []*node[V], low, high, axis int) {
	for i := low + 1; i <= high; i++ {
		v := ref[i]
		j := i - 1
		for j >= low && superKeyCompare(ref[j].tuple, v.tuple, axis) < 0 {
			ref[j+1] = ref[j]
			j--
		}
		ref[j+1] = v
	}
}

func insertionSortScratchAsc[V any](ref, scratch []*node[V], low, high, axis int) {
	copy(scratch[low:high+1], ref[low:high+1])
	insertionSortRefAsc(scratch, low, high, axis)
}

func insertionSortScratchDesc[V any](ref, scratch []*node[V], low, high, axis int) {
	copy(scratch[low:high+1], ref[low:high+1])
	insertionSortRefDesc(scratch, low, high, axis)
}

func joinTaskErr(err error) error {
	if err == nil {
		return nil
	}
	return &wrappedErr{op: "sort", cause: err}
}

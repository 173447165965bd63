package kdtree

import (
	"fmt"

	"github.com/johnarobinson77/kdtree/internal/kdexec"
)

// buildPermutation precomputes perm[h] = h mod d for h in [0, maxDepth], so
// the recursive builder and every traversal can index into it instead of
// computing a modulus at each level.
func buildPermutation(maxDepth, dimensions int) []int {
	perm := make([]int, maxDepth+1)
	for h := range perm {
		perm[h] = h % dimensions
	}
	return perm
}

// buildBalanced recursively partitions d pre-sorted, deduplicated reference
// arrays (ref[i] sorted under SuperKey with axis i most significant) into a
// balanced tree. scratch is shared working space of the same length as each
// ref[i]; concurrent calls only ever touch disjoint [start, end] ranges of
// it.
func buildBalanced[V any](ref [][]*node[V], scratch []*node[V], start, end, depth int, perm []int, exec *kdexec.Executor) (*node[V], error) {
	if end < start {
		return nil, fmt.Errorf("buildBalanced: %w: end %d < start %d", ErrGeometryInvariant, end, start)
	}

	dims := len(ref)
	axis := perm[depth]

	switch end - start {
	case 0:
		return ref[0][start], nil
	case 1:
		n := ref[0][start]
		n.gt = ref[0][end]
		return n, nil
	case 2:
		n := ref[0][start+1]
		n.lt = ref[0][start]
		n.gt = ref[0][end]
		return n, nil
	}

	mid := start + (end-start)/2
	median := ref[0][mid]
	if mid <= start || mid >= end {
		return nil, fmt.Errorf("buildBalanced: %w: median %d not in (%d, %d)", ErrGeometryInvariant, mid, start, end)
	}

	copy(scratch[start:end+1], ref[0][start:end+1])

	for i := 1; i < dims; i++ {
		src := ref[i]
		dst := ref[i-1]
		if err := partitionAboutMedian(src, dst, median, start, mid, end, axis, depth, exec); err != nil {
			return nil, &wrappedErr{op: "build", cause: err}
		}
	}
	copy(ref[dims-1][start:end+1], scratch[start:end+1])

	var lt, gt *node[V]
	var ltErr, gtErr error
	err := exec.Fork(depth,
		func() { lt, ltErr = buildBalanced(ref, scratch, start, mid-1, depth+1, perm, exec) },
		func() { gt, gtErr = buildBalanced(ref, scratch, mid+1, end, depth+1, perm, exec) },
	)
	if err != nil {
		return nil, &wrappedErr{op: "build", cause: err}
	}
	if ltErr != nil {
		return nil, ltErr
	}
	if gtErr != nil {
		return nil, gtErr
	}
	median.lt, median.gt = lt, gt
	return median, nil
}

// partitionAboutMedian splits src[start..end], excluding the median element
// itself, into dst: elements with SuperKey < median go to dst[start..mid-1]
// in original relative order, elements > median go to dst[mid+1..end] in
// original relative order. The lower scan walks forward and fills forward;
// the upper scan walks backward and fills backward, which is what keeps
// each half in its original order without a second pass. The two scans
// touch disjoint dst ranges and may run in parallel.
func partitionAboutMedian[V any](src, dst []*node[V], median *node[V], start, mid, end, axis, depth int, exec *kdexec.Executor) error {
	return exec.Fork(depth,
		func() {
			w := start
			for k := start; k <= end; k++ {
				e := src[k]
				if e == median {
					continue
				}
				if superKeyCompare(e.tuple, median.tuple, axis) < 0 {
					dst[w] = e
					w++
				}
			}
		},
		func() {
			w := end
			for k := end; k >= start; k-- {
				e := src[k]
				if e == median {
					continue
				}
				if superKeyCompare(e.tuple, median.tuple, axis) > 0 {
					dst[w] = e
					w--
				}
			}
		},
	)
}

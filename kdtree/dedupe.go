package kdtree

import "fmt"

// dedupe walks ref[0..end] (already sorted under SuperKey with axis 0 as
// most significant) once in order, merging the value lists of adjacent
// equal tuples into the earlier node and dropping the later slot. It
// returns the index of the last survivor; the caller's subsequent build
// work is restricted to [0, returned].
//
// A strictly-decreasing adjacent pair means the preceding sort is broken;
// that is a bug, not caller error, so it is reported as ErrSortInvariant.
func dedupe[V any](ref []*node[V], low, high int) (int, error) {
	if high <= low {
		return high, nil
	}
	end := low
	for i := low + 1; i <= high; i++ {
		c := superKeyCompare(ref[i].tuple, ref[end].tuple, 0)
		switch {
		case c < 0:
			return 0, fmt.Errorf("dedupe: %w at index %d", ErrSortInvariant, i)
		case c == 0:
			ref[end].values = append(ref[end].values, ref[i].values...)
		default:
			end++
			ref[end] = ref[i]
		}
	}
	return end, nil
}

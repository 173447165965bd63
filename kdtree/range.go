package kdtree

import (
	"math"

	"github.com/johnarobinson77/kdtree/internal/kdexec"
)

// clampAdd computes q+c, saturating to math.MaxInt64/math.MinInt64 instead
// of wrapping on overflow.
func clampAdd(q, c int64) int64 {
	if c > 0 && q > math.MaxInt64-c {
		return math.MaxInt64
	}
	if c < 0 && q < math.MinInt64-c {
		return math.MinInt64
	}
	return q + c
}

// clampSub computes a-b, saturating to math.MaxInt64/math.MinInt64 instead
// of wrapping on overflow.
func clampSub(a, b int64) int64 {
	if b < 0 && a > math.MaxInt64+b {
		return math.MaxInt64
	}
	if b > 0 && a < math.MinInt64+b {
		return math.MinInt64
	}
	return a - b
}

// boxFromCutoff expands a query point by a non-negative cutoff into a
// queryPlus/queryMinus hyperrectangle, one axis at a time.
func boxFromCutoff(q Tuple, cutoff int64) (plus, minus Tuple) {
	plus = make(Tuple, len(q))
	minus = make(Tuple, len(q))
	for i, qi := range q {
		plus[i] = clampAdd(qi, cutoff)
		minus[i] = clampAdd(qi, -cutoff)
	}
	return plus, minus
}

// normalizeBox swaps queryMinus[i] and queryPlus[i] in place wherever
// minus > plus, so an inverted box on any axis auto-corrects instead of
// matching nothing.
func normalizeBox(plus, minus Tuple) {
	for i := range plus {
		if minus[i] > plus[i] {
			plus[i], minus[i] = minus[i], plus[i]
		}
	}
}

func inBox(tuple, plus, minus Tuple) bool {
	for i, t := range tuple {
		if t < minus[i] || t >= plus[i] {
			return false
		}
	}
	return true
}

// searchRange performs the non-destructive orthogonal range traversal,
// appending every live value found to the returned slice. Result order
// across goroutines is unspecified; callers must treat it as a multiset.
func searchRange[V any](n *node[V], depth int, perm []int, plus, minus Tuple, exec *kdexec.Executor) ([]V, error) {
	if n == nil {
		return nil, nil
	}
	axis := perm[depth]

	var out []V
	if inBox(n.tuple, plus, minus) {
		out = append(out, n.values...)
	}

	descendLT := n.lt != nil && minus[axis] <= n.tuple[axis]
	descendGT := n.gt != nil && plus[axis] >= n.tuple[axis]

	var ltRes, gtRes []V
	var ltErr, gtErr error
	err := exec.Fork(depth,
		func() {
			if descendLT {
				ltRes, ltErr = searchRange(n.lt, depth+1, perm, plus, minus, exec)
			}
		},
		func() {
			if descendGT {
				gtRes, gtErr = searchRange(n.gt, depth+1, perm, plus, minus, exec)
			}
		},
	)
	if err != nil {
		return nil, &wrappedErr{op: "range search", cause: err}
	}
	if ltErr != nil {
		return nil, ltErr
	}
	if gtErr != nil {
		return nil, gtErr
	}
	out = append(out, ltRes...)
	out = append(out, gtRes...)
	return out, nil
}

// searchRangeTuples is searchRange's tuples+values variant.
func searchRangeTuples[V any](n *node[V], depth int, perm []int, plus, minus Tuple, exec *kdexec.Executor) ([]Tuple, []V, error) {
	if n == nil {
		return nil, nil, nil
	}
	axis := perm[depth]

	var outTuples []Tuple
	var outValues []V
	if inBox(n.tuple, plus, minus) {
		for range n.values {
			outTuples = append(outTuples, n.tuple)
		}
		outValues = append(outValues, n.values...)
	}

	descendLT := n.lt != nil && minus[axis] <= n.tuple[axis]
	descendGT := n.gt != nil && plus[axis] >= n.tuple[axis]

	var ltT, gtT []Tuple
	var ltV, gtV []V
	var ltErr, gtErr error
	err := exec.Fork(depth,
		func() {
			if descendLT {
				ltT, ltV, ltErr = searchRangeTuples(n.lt, depth+1, perm, plus, minus, exec)
			}
		},
		func() {
			if descendGT {
				gtT, gtV, gtErr = searchRangeTuples(n.gt, depth+1, perm, plus, minus, exec)
			}
		},
	)
	if err != nil {
		return nil, nil, &wrappedErr{op: "range search", cause: err}
	}
	if ltErr != nil {
		return nil, nil, ltErr
	}
	if gtErr != nil {
		return nil, nil, gtErr
	}
	outTuples = append(outTuples, ltT...)
	outTuples = append(outTuples, gtT...)
	outValues = append(outValues, ltV...)
	outValues = append(outValues, gtV...)
	return outTuples, outValues, nil
}

// searchAndRemoveRange is the destructive counterpart of searchRange: every
// hit's value list is appended to the result and cleared, and the
// tri-state pruneStatus tells the parent whether to drop the child link.
func searchAndRemoveRange[V any](np **node[V], depth int, perm []int, plus, minus Tuple, exec *kdexec.Executor) ([]V, pruneStatus, error) {
	n := *np
	if n == nil {
		return nil, statusEmpty, nil
	}
	axis := perm[depth]

	var out []V
	selfHit := inBox(n.tuple, plus, minus) && len(n.values) > 0
	if selfHit {
		out = append(out, n.values...)
		n.values = nil
	}

	descendLT := n.lt != nil && minus[axis] <= n.tuple[axis]
	descendGT := n.gt != nil && plus[axis] >= n.tuple[axis]

	var ltRes, gtRes []V
	var ltStatus, gtStatus pruneStatus
	var ltErr, gtErr error
	err := exec.Fork(depth,
		func() {
			if descendLT {
				ltRes, ltStatus, ltErr = searchAndRemoveRange(&n.lt, depth+1, perm, plus, minus, exec)
			}
		},
		func() {
			if descendGT {
				gtRes, gtStatus, gtErr = searchAndRemoveRange(&n.gt, depth+1, perm, plus, minus, exec)
			}
		},
	)
	if err != nil {
		return nil, statusEmpty, &wrappedErr{op: "search and remove", cause: err}
	}
	if ltErr != nil {
		return nil, statusEmpty, ltErr
	}
	if gtErr != nil {
		return nil, statusEmpty, gtErr
	}
	out = append(out, ltRes...)
	out = append(out, gtRes...)

	found := selfHit || ltStatus != statusEmpty || gtStatus != statusEmpty
	if !found {
		return out, statusEmpty, nil
	}
	if n.dead() {
		*np = nil
		return out, statusDead, nil
	}
	return out, statusAlive, nil
}

// Package kdtree implements a balanced, static k-d tree over integer
// coordinate tuples: presorted bulk construction, orthogonal range search,
// bounded k-nearest-neighbor search, and the destructive remove/pick
// operations a DBSCAN-style clustering pass needs.
package kdtree

import (
	"fmt"
	"log"
	"math/bits"

	"github.com/johnarobinson77/kdtree/internal/kdexec"
)

// stagedPoint is one entry of the staging buffer: a point awaiting Build.
type stagedPoint[V any] struct {
	tuple Tuple
	value V
}

// Tree is a balanced static k-d tree parametric in the caller's value type
// V. The zero value is not usable; construct with New.
type Tree[V comparable] struct {
	dimensions int
	capacity   int

	staged []stagedPoint[V]
	root   *node[V]
	built  bool

	perm []int
	exec *kdexec.Executor
}

// New creates an unbuilt tree with a fixed staging capacity and a fixed
// number of dimensions.
func New[V comparable](capacity, dimensions int) *Tree[V] {
	t := &Tree[V]{
		dimensions: dimensions,
		capacity:   capacity,
		staged:     make([]stagedPoint[V], 0, capacity),
		exec:       kdexec.New(0),
	}
	return t
}

// GetNumDimensions returns d, fixed at New.
func (t *Tree[V]) GetNumDimensions() int { return t.dimensions }

// SetNumThreads configures the fork/join worker pool. n is rounded down to
// a power of two; maxSubmitDepth is derived from n-1. n <= 1 disables all
// submission.
func (t *Tree[V]) SetNumThreads(n int) {
	if n < 0 {
		n = 0
	}
	t.exec = kdexec.New(n)
	log.Printf("kdtree: worker pool reconfigured for %d threads (maxSubmitDepth=%d)", n, t.exec.MaxSubmitDepth())
}

// Add stages a point/value pair. It returns the new staged count, or -1 if
// the buffer is full or point's length does not match the tree's
// dimensions. Add after Build invalidates the built tree: root is cleared
// and the next query triggers a fresh Build.
func (t *Tree[V]) Add(point Tuple, value V) int {
	if len(point) != t.dimensions {
		return -1
	}
	if len(t.staged) >= t.capacity {
		return -1
	}
	t.staged = append(t.staged, stagedPoint[V]{tuple: point.clone(), value: value})
	t.root = nil
	t.built = false
	return len(t.staged)
}

// Size returns the number of points currently staged or built.
func (t *Tree[V]) Size() int {
	return len(t.staged)
}

// Built reports whether the tree has a constructed root.
func (t *Tree[V]) Built() bool { return t.root != nil }

// Build constructs the tree from the staged buffer if it is not already
// built. It is idempotent: a no-op once the tree has been built, until a
// later Add; a tree emptied by destructive operations stays built and empty.
func (t *Tree[V]) Build() error {
	if t.built || len(t.staged) == 0 {
		return nil
	}

	n := len(t.staged)
	maxDepth := bits.Len(uint(n)) + 1
	t.perm = buildPermutation(maxDepth, t.dimensions)

	ref := make([][]*node[V], t.dimensions)
	ref[0] = make([]*node[V], n)
	for i, p := range t.staged {
		ref[0][i] = newNode(p.tuple, p.value)
	}

	scratch := make([]*node[V], n)
	if err := mergeSortReferences(ref[0], scratch, 0, n-1, 0, t.exec); err != nil {
		return err
	}

	end, err := dedupe(ref[0], 0, n-1)
	if err != nil {
		return err
	}

	for i := 1; i < t.dimensions; i++ {
		ref[i] = make([]*node[V], end+1)
		copy(ref[i], ref[0][:end+1])
		if err := mergeSortReferences(ref[i], scratch[:end+1], 0, end, i, t.exec); err != nil {
			return err
		}
	}
	ref[0] = ref[0][:end+1]

	root, err := buildBalanced(ref, scratch, 0, end, 0, t.perm, t.exec)
	if err != nil {
		return err
	}
	t.root = root
	t.built = true
	return nil
}

func (t *Tree[V]) ensureBuilt() error {
	return t.Build()
}

// SearchTree returns every live value inside the hypercube [q-cutoff,
// q+cutoff) per axis (lower inclusive, upper exclusive, as in
// SearchTreeBox) with saturating bound arithmetic.
func (t *Tree[V]) SearchTree(q Tuple, cutoff int64) ([]V, error) {
	if len(q) != t.dimensions {
		return nil, ErrDimensionMismatch
	}
	plus, minus := boxFromCutoff(q, cutoff)
	return t.SearchTreeBox(plus, minus)
}

// SearchTreeBox returns every live value inside the box
// [queryMinus, queryPlus) (lower inclusive, upper exclusive), per axis,
// swapping any axis where minus > plus.
func (t *Tree[V]) SearchTreeBox(queryPlus, queryMinus Tuple) ([]V, error) {
	if len(queryPlus) != t.dimensions || len(queryMinus) != t.dimensions {
		return nil, ErrDimensionMismatch
	}
	if err := t.ensureBuilt(); err != nil {
		return nil, err
	}
	plus, minus := queryPlus.clone(), queryMinus.clone()
	normalizeBox(plus, minus)
	return searchRange(t.root, 0, t.perm, plus, minus, t.exec)
}

// SearchTreeTuples is the tuples+values box variant.
func (t *Tree[V]) SearchTreeTuples(queryPlus, queryMinus Tuple) ([]Tuple, []V, error) {
	if len(queryPlus) != t.dimensions || len(queryMinus) != t.dimensions {
		return nil, nil, ErrDimensionMismatch
	}
	if err := t.ensureBuilt(); err != nil {
		return nil, nil, err
	}
	plus, minus := queryPlus.clone(), queryMinus.clone()
	normalizeBox(plus, minus)
	return searchRangeTuples(t.root, 0, t.perm, plus, minus, t.exec)
}

// SearchAndRemove is the destructive hypercube form.
func (t *Tree[V]) SearchAndRemove(q Tuple, cutoff int64) ([]V, error) {
	if len(q) != t.dimensions {
		return nil, ErrDimensionMismatch
	}
	plus, minus := boxFromCutoff(q, cutoff)
	return t.SearchAndRemoveBox(plus, minus)
}

// SearchAndRemoveBox is the destructive box form: every value found is
// removed from the tree and dead subtrees are pruned.
func (t *Tree[V]) SearchAndRemoveBox(queryPlus, queryMinus Tuple) ([]V, error) {
	if len(queryPlus) != t.dimensions || len(queryMinus) != t.dimensions {
		return nil, ErrDimensionMismatch
	}
	if err := t.ensureBuilt(); err != nil {
		return nil, err
	}
	plus, minus := queryPlus.clone(), queryMinus.clone()
	normalizeBox(plus, minus)
	out, _, err := searchAndRemoveRange(&t.root, 0, t.perm, plus, minus, t.exec)
	return out, err
}

// NearestNeighborSearch returns the k nearest live values to q, using
// enable to mask out axes from the distance computation (nil enables all
// axes). Results are delivered by repeated removeTop internally; reversal
// to nearest-first order is NOT guaranteed, since removeTop always yields
// the current farthest admitted neighbor.
func (t *Tree[V]) NearestNeighborSearch(q Tuple, k int, enable []bool) ([]V, error) {
	if len(q) != t.dimensions {
		return nil, ErrDimensionMismatch
	}
	if enable != nil && len(enable) != t.dimensions {
		return nil, ErrDimensionMismatch
	}
	if err := t.ensureBuilt(); err != nil {
		return nil, err
	}
	if k <= 0 || t.root == nil {
		return nil, nil
	}
	h := newNNHeap[V](k)
	nearestNeighbor(t.root, 0, t.perm, q, enable, h)

	out := make([]V, 0, h.len())
	for {
		nb, ok := h.removeTop()
		if !ok {
			break
		}
		out = append(out, nb.n.values[len(nb.n.values)-1])
	}
	return out, nil
}

// Remove deletes the first occurrence of value at the exact key q,
// reporting whether it was found.
func (t *Tree[V]) Remove(q Tuple, value V) (bool, error) {
	if len(q) != t.dimensions {
		return false, ErrDimensionMismatch
	}
	if err := t.ensureBuilt(); err != nil {
		return false, err
	}
	found, _ := removeValue(&t.root, 0, t.perm, q, value)
	return found, nil
}

// PickValue pops an arbitrary live value using a biased descent selector
// (BiasLeft/BiasRight/BiasAlternating/BiasRandom); for BiasRandom the
// caller supplies selector directly via PickValueWithSelector. outKey
// receives the picked value's tuple. ok is false if the tree is empty.
func (t *Tree[V]) PickValue(outKey Tuple, bias int, remove bool) (V, bool, error) {
	return t.PickValueWithSelector(outKey, selectorFor(bias), remove)
}

// PickValueWithSelector is PickValue with a caller-supplied 64-bit
// descent selector, used for BiasRandom.
func (t *Tree[V]) PickValueWithSelector(outKey Tuple, selector uint64, remove bool) (V, bool, error) {
	if len(outKey) != t.dimensions {
		var zero V
		return zero, false, ErrDimensionMismatch
	}
	if err := t.ensureBuilt(); err != nil {
		var zero V
		return zero, false, err
	}
	v, ok, _ := pickValue(&t.root, 0, selector, remove, outKey)
	return v, ok, nil
}

// CopyTree deep-copies src into a new Tree by pre-order traversal,
// allocating a fresh node per source node and sharing nothing with src.
func CopyTree[V comparable](src *Tree[V]) *Tree[V] {
	dst := &Tree[V]{}
	dst.Copy(src)
	return dst
}

// Copy deep-copies src's staging buffer and built tree into t, the tree by
// pre-order traversal, allocating a fresh node per source node and sharing
// nothing with src.
func (t *Tree[V]) Copy(src *Tree[V]) {
	t.dimensions = src.dimensions
	t.capacity = src.capacity
	t.perm = append([]int(nil), src.perm...)
	t.exec = src.exec
	t.staged = make([]stagedPoint[V], len(src.staged), src.capacity)
	for i, p := range src.staged {
		t.staged[i] = stagedPoint[V]{tuple: p.tuple.clone(), value: p.value}
	}
	t.built = src.built
	t.root = copyNode(src.root)
}

func copyNode[V any](n *node[V]) *node[V] {
	if n == nil {
		return nil
	}
	c := &node[V]{
		tuple:  n.tuple.clone(),
		values: append([]V(nil), n.values...),
	}
	c.lt = copyNode(n.lt)
	c.gt = copyNode(n.gt)
	return c
}

// verify walks the built tree and re-checks that every node respects the
// SuperKey partition bounds established by its ancestors, returning
// ErrGeometryInvariant on the first violation. Intended for tests and
// diagnostics, not the hot query path.
func (t *Tree[V]) verify() error {
	return verifyNode(t.root, 0, t.perm, nil, 0)
}

func verifyNode[V any](n *node[V], depth int, perm []int, path []boundPair, dims int) error {
	if n == nil {
		return nil
	}
	axis := perm[depth]
	for _, b := range path {
		if b.lt {
			if superKeyCompare(n.tuple, b.key, b.axis) >= 0 {
				return fmt.Errorf("verify: %w: node at depth %d violates lt bound on axis %d", ErrGeometryInvariant, depth, b.axis)
			}
		} else {
			if superKeyCompare(n.tuple, b.key, b.axis) <= 0 {
				return fmt.Errorf("verify: %w: node at depth %d violates gt bound on axis %d", ErrGeometryInvariant, depth, b.axis)
			}
		}
	}
	ltPath := append(append([]boundPair(nil), path...), boundPair{key: n.tuple, axis: axis, lt: true})
	gtPath := append(append([]boundPair(nil), path...), boundPair{key: n.tuple, axis: axis, lt: false})
	if err := verifyNode(n.lt, depth+1, perm, ltPath, dims); err != nil {
		return err
	}
	return verifyNode(n.gt, depth+1, perm, gtPath, dims)
}

type boundPair struct {
	key  Tuple
	axis int
	lt   bool
}

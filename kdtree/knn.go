package kdtree

import "math"

// neighbor pairs a node with its distance from the query point, the
// payload of the nearest-neighbor heap.
type neighbor[V any] struct {
	dist int64
	n    *node[V]
}

// nnHeap is a fixed-capacity max-heap of size k, ordered by distance, so
// the farthest admitted neighbor always sits at index 1 (index 0 unused,
// the classic binary-heap array layout, here bounded to k+1 slots instead
// of growing unbounded).
type nnHeap[V any] struct {
	k    int
	data []neighbor[V]
}

func newNNHeap[V any](k int) *nnHeap[V] {
	return &nnHeap[V]{k: k, data: make([]neighbor[V], 1, k+1)}
}

func (h *nnHeap[V]) len() int   { return len(h.data) - 1 }
func (h *nnHeap[V]) full() bool { return h.len() >= h.k }
func (h *nnHeap[V]) max() int64 {
	if h.len() == 0 {
		return math.MaxInt64
	}
	return h.data[1].dist
}

// admit pushes a candidate if the heap isn't full, or replaces the current
// farthest neighbor if the candidate is closer.
func (h *nnHeap[V]) admit(dist int64, n *node[V]) {
	if len(n.values) == 0 {
		return
	}
	if !h.full() {
		h.data = append(h.data, neighbor[V]{dist: dist, n: n})
		h.siftUp(h.len())
		return
	}
	if dist < h.max() {
		h.data[1] = neighbor[V]{dist: dist, n: n}
		h.siftDown(1)
	}
}

func (h *nnHeap[V]) siftUp(i int) {
	for i > 1 {
		p := i / 2
		if h.data[p].dist >= h.data[i].dist {
			break
		}
		h.data[p], h.data[i] = h.data[i], h.data[p]
		i = p
	}
}

func (h *nnHeap[V]) siftDown(i int) {
	n := h.len()
	for {
		l, r := 2*i, 2*i+1
		largest := i
		if l <= n && h.data[l].dist > h.data[largest].dist {
			largest = l
		}
		if r <= n && h.data[r].dist > h.data[largest].dist {
			largest = r
		}
		if largest == i {
			return
		}
		h.data[i], h.data[largest] = h.data[largest], h.data[i]
		i = largest
	}
}

// removeTop yields the current farthest neighbor, shrinks the heap, and
// restores the heap property, delivering results farthest-to-nearest.
func (h *nnHeap[V]) removeTop() (neighbor[V], bool) {
	if h.len() == 0 {
		var z neighbor[V]
		return z, false
	}
	top := h.data[1]
	last := h.data[len(h.data)-1]
	h.data = h.data[:len(h.data)-1]
	if h.len() > 0 {
		h.data[1] = last
		h.siftDown(1)
	}
	return top, true
}

// euclideanDist is the integer-rounded distance over enabled axes: squared
// differences accumulate in float64, the sum is square-rooted, then
// truncated to int64 for heap comparison and storage.
func euclideanDist(a, b Tuple, enable []bool) int64 {
	var sum float64
	for i := range a {
		if enable != nil && !enable[i] {
			continue
		}
		diff := float64(a[i] - b[i])
		sum += diff * diff
	}
	return int64(math.Sqrt(sum))
}

// nearestNeighbor descends the tree toward q, admitting live nodes into h
// and pruning branches the current bound rules out. This walk is always
// single-threaded: heap admission order matters for correctness (closer
// candidates must land before farther ones are rejected), so it does not
// fork through the Executor.
func nearestNeighbor[V any](n *node[V], depth int, perm []int, q Tuple, enable []bool, h *nnHeap[V]) {
	if n == nil {
		return
	}
	axis := perm[depth]

	switch {
	case q[axis] < n.tuple[axis]:
		nearestNeighbor(n.lt, depth+1, perm, q, enable, h)
		diff := clampSub(n.tuple[axis], q[axis])
		if (enable != nil && !enable[axis]) || diff <= h.max() || !h.full() {
			nearestNeighbor(n.gt, depth+1, perm, q, enable, h)
			h.admit(euclideanDist(q, n.tuple, enable), n)
		}
	case q[axis] > n.tuple[axis]:
		nearestNeighbor(n.gt, depth+1, perm, q, enable, h)
		diff := clampSub(q[axis], n.tuple[axis])
		if (enable != nil && !enable[axis]) || diff <= h.max() || !h.full() {
			nearestNeighbor(n.lt, depth+1, perm, q, enable, h)
			h.admit(euclideanDist(q, n.tuple, enable), n)
		}
	default:
		nearestNeighbor(n.lt, depth+1, perm, q, enable, h)
		nearestNeighbor(n.gt, depth+1, perm, q, enable, h)
		h.admit(euclideanDist(q, n.tuple, enable), n)
	}
}

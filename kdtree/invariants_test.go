package kdtree

import (
	"math"
	"math/rand"
	"testing"
)

func randomTree(t *testing.T, n, dims, threads int, seed int64) (*Tree[int], []Tuple) {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	tr := New[int](n, dims)
	tr.SetNumThreads(threads)
	points := make([]Tuple, n)
	for i := 0; i < n; i++ {
		p := make(Tuple, dims)
		for d := range p {
			p[d] = rng.Int63n(10000)
		}
		points[i] = p
		if tr.Add(p, i) < 0 {
			t.Fatalf("add rejected at %d", i)
		}
	}
	if err := tr.Build(); err != nil {
		t.Fatalf("build: %v", err)
	}
	return tr, points
}

// TestPartitionInvariant is P1: every node's descendants respect the SuperKey
// partition bounds established by its ancestors.
func TestPartitionInvariant(t *testing.T) {
	tr, _ := randomTree(t, 2000, 3, 4, 100)
	if err := tr.verify(); err != nil {
		t.Fatalf("partition invariant violated: %v", err)
	}
}

// TestNoDuplicateTuples is P2: after build, no two distinct nodes carry the
// same tuple (duplicates are merged into one node's value list by dedupe).
func TestNoDuplicateTuples(t *testing.T) {
	tr, _ := randomTree(t, 500, 2, 2, 101)
	seen := map[string]bool{}
	var walk func(n *node[int])
	walk = func(n *node[int]) {
		if n == nil {
			return
		}
		key := tupleKey(n.tuple)
		if seen[key] {
			t.Fatalf("duplicate tuple %v found as two distinct nodes", n.tuple)
		}
		seen[key] = true
		walk(n.lt)
		walk(n.gt)
	}
	walk(tr.root)
}

func tupleKey(tp Tuple) string {
	b := make([]byte, 0, len(tp)*9)
	for _, v := range tp {
		b = append(b, byte(v), byte(v>>8), byte(v>>16), byte(v>>24),
			byte(v>>32), byte(v>>40), byte(v>>48), byte(v>>56), ',')
	}
	return string(b)
}

// TestBalanceHeightBound is P3: a tree built from n points via repeated
// median partition has height O(log n); it must not degrade to a linked
// list shape under sorted or adversarial input.
func TestBalanceHeightBound(t *testing.T) {
	const n = 4096
	tr := New[int](n, 2)
	for i := 0; i < n; i++ {
		// Strictly increasing input: the worst case for an unbalanced
		// insertion-order BST, but buildBalanced always medians-split.
		tr.Add(Tuple{int64(i), int64(n - i)}, i)
	}
	if err := tr.Build(); err != nil {
		t.Fatalf("build: %v", err)
	}

	var height func(n *node[int]) int
	height = func(n *node[int]) int {
		if n == nil {
			return 0
		}
		l, r := height(n.lt), height(n.gt)
		if l > r {
			return l + 1
		}
		return r + 1
	}
	h := height(tr.root)
	bound := 2 * (math.Ilogb(float64(n)) + 2)
	if h > bound {
		t.Fatalf("tree height %d exceeds balanced bound %d for n=%d", h, bound, n)
	}
}

// TestValueConservationThroughBuild is P4: build must not drop, duplicate,
// or corrupt any staged value, including duplicate-tuple merges.
func TestValueConservationThroughBuild(t *testing.T) {
	tr := buildS1(t)
	got, err := tr.SearchTreeBox(Tuple{math.MaxInt64, math.MaxInt64}, Tuple{math.MinInt64, math.MinInt64})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	assertMultisetEqual(t, got, []string{"a", "b", "c", "d", "e"})
}

// TestFullRangeReturnsEverything is R1: the maximal box returns every
// currently-live value.
func TestFullRangeReturnsEverything(t *testing.T) {
	tr, _ := randomTree(t, 1000, 3, 1, 202)
	got, err := tr.SearchTreeBox(Tuple{math.MaxInt64, math.MaxInt64, math.MaxInt64}, Tuple{math.MinInt64, math.MinInt64, math.MinInt64})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1000 {
		t.Fatalf("expected all 1000 values, got %d", len(got))
	}
}

// TestSingleVsMultiThreadedSetEquality is R3/R4: single- and multi-threaded
// execution of the same query over the same tree contents must agree, as a
// multiset, regardless of submission depth.
func TestSingleVsMultiThreadedSetEquality(t *testing.T) {
	rng := rand.New(rand.NewSource(303))
	points := make([]Tuple, 2000)
	for i := range points {
		points[i] = Tuple{rng.Int63n(5000), rng.Int63n(5000)}
	}

	build := func(threads int) *Tree[int] {
		tr := New[int](len(points), 2)
		tr.SetNumThreads(threads)
		for i, p := range points {
			tr.Add(p, i)
		}
		if err := tr.Build(); err != nil {
			t.Fatalf("build threads=%d: %v", threads, err)
		}
		return tr
	}

	t1 := build(1)
	t4 := build(4)

	r1, err := t1.SearchTree(Tuple{2500, 2500}, 1000)
	if err != nil {
		t.Fatalf("search (1 thread): %v", err)
	}
	r4, err := t4.SearchTree(Tuple{2500, 2500}, 1000)
	if err != nil {
		t.Fatalf("search (4 threads): %v", err)
	}
	assertMultisetEqual(t, r4, r1)
}

// TestCopyPreservesSearchResults is R5: a deep copy must answer queries
// identically to the source at the moment of copy.
func TestCopyPreservesSearchResults(t *testing.T) {
	tr, _ := randomTree(t, 500, 2, 2, 404)
	cp := CopyTree(tr)
	if cp.Size() != tr.Size() {
		t.Fatalf("copy size %d, want source size %d", cp.Size(), tr.Size())
	}

	q := Tuple{5000, 5000}
	want, err := tr.SearchTree(q, 2000)
	if err != nil {
		t.Fatalf("source search: %v", err)
	}
	plus, minus := boxFromCutoff(q, 2000)
	got, err := cp.SearchTreeBox(plus, minus)
	if err != nil {
		t.Fatalf("copy search: %v", err)
	}
	assertMultisetEqual(t, got, want)
}

// TestCutoffSaturatesInsteadOfOverflowing is B2: a cutoff large enough that
// q+cutoff would overflow int64 must saturate to MaxInt64, not wrap.
func TestCutoffSaturatesInsteadOfOverflowing(t *testing.T) {
	q := Tuple{math.MaxInt64 - 10, 0}
	plus, minus := boxFromCutoff(q, 1000)
	if plus[0] != math.MaxInt64 {
		t.Fatalf("expected saturated MaxInt64, got %d", plus[0])
	}
	if minus[0] != math.MaxInt64-1010 {
		t.Fatalf("unexpected lower bound: %d", minus[0])
	}
}

// TestBoxAutoSwapsInvertedBounds is B3: a box with minus > plus on some axis
// must be auto-corrected by swapping, not treated as empty.
func TestBoxAutoSwapsInvertedBounds(t *testing.T) {
	tr := buildS1(t)
	// Deliberately inverted: plus < minus on axis 0.
	got, err := tr.SearchTreeBox(Tuple{0, 2}, Tuple{2, 0})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	assertMultisetEqual(t, got, []string{"a", "b", "c", "d", "e"})
}

// TestBoundaryInclusiveOnPartitionAxis is B4: a point exactly on a box's
// lower bound is included; a point exactly on the upper bound is excluded.
func TestBoundaryInclusiveOnPartitionAxis(t *testing.T) {
	tr := New[string](3, 1)
	tr.Add(Tuple{0}, "lower")
	tr.Add(Tuple{5}, "upper")
	tr.Add(Tuple{2}, "middle")
	if err := tr.Build(); err != nil {
		t.Fatalf("build: %v", err)
	}
	got, err := tr.SearchTreeBox(Tuple{5}, Tuple{0})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	assertMultisetEqual(t, got, []string{"lower", "middle"})
}

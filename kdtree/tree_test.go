package kdtree

import "testing"

func TestAddRejectsDimensionMismatch(t *testing.T) {
	tr := New[string](4, 2)
	if n := tr.Add(Tuple{1, 2, 3}, "x"); n != -1 {
		t.Fatalf("expected -1 for dimension mismatch, got %d", n)
	}
}

func TestAddRejectsFullBuffer(t *testing.T) {
	tr := New[string](1, 2)
	if n := tr.Add(Tuple{1, 2}, "a"); n != 1 {
		t.Fatalf("expected count 1 after first add, got %d", n)
	}
	if n := tr.Add(Tuple{3, 4}, "b"); n != -1 {
		t.Fatalf("expected -1 once buffer is full (B1), got %d", n)
	}
	if tr.Size() != 1 {
		t.Fatalf("rejected add must not mutate staged buffer, got size %d", tr.Size())
	}
}

func TestBuildIsIdempotent(t *testing.T) {
	tr := New[string](4, 2)
	tr.Add(Tuple{0, 0}, "a")
	tr.Add(Tuple{1, 1}, "b")
	if err := tr.Build(); err != nil {
		t.Fatalf("build: %v", err)
	}
	root := tr.root
	if err := tr.Build(); err != nil {
		t.Fatalf("second build: %v", err)
	}
	if tr.root != root {
		t.Fatal("Build should be a no-op once root is present")
	}
}

func TestAddAfterBuildInvalidatesRoot(t *testing.T) {
	tr := New[string](4, 2)
	tr.Add(Tuple{0, 0}, "a")
	if err := tr.Build(); err != nil {
		t.Fatalf("build: %v", err)
	}
	tr.Add(Tuple{1, 1}, "b")
	if tr.Built() {
		t.Fatal("Add after Build must invalidate root")
	}
	if err := tr.Build(); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	vals, err := tr.SearchTreeBox(Tuple{2, 2}, Tuple{0, 0})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	assertMultisetEqual(t, vals, []string{"a", "b"})
}

func TestCopyTreeIsIndependent(t *testing.T) {
	src := New[string](4, 2)
	src.Add(Tuple{0, 0}, "a")
	src.Add(Tuple{1, 1}, "b")
	if err := src.Build(); err != nil {
		t.Fatalf("build: %v", err)
	}

	dst := CopyTree(src)
	if dst.root == src.root {
		t.Fatal("copy must not share the root node with the source")
	}

	srcVals, err := src.SearchTreeBox(Tuple{2, 2}, Tuple{0, 0})
	if err != nil {
		t.Fatalf("src search: %v", err)
	}
	dstVals, err := dst.SearchTreeBox(Tuple{2, 2}, Tuple{0, 0})
	if err != nil {
		t.Fatalf("dst search: %v", err)
	}
	assertMultisetEqual(t, dstVals, srcVals)

	if _, err := src.Remove(Tuple{0, 0}, "a"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	dstVals2, err := dst.SearchTreeBox(Tuple{2, 2}, Tuple{0, 0})
	if err != nil {
		t.Fatalf("dst search after src mutation: %v", err)
	}
	assertMultisetEqual(t, dstVals2, []string{"a", "b"})
}

func TestSetNumThreadsRounding(t *testing.T) {
	cases := []struct {
		n        int
		wantDepth int
	}{
		{0, -1},
		{1, -1},
		{2, 0},
		{3, 0}, // rounds down to 2
		{8, 2},
		{9, 2}, // rounds down to 8
	}
	for _, c := range cases {
		tr := New[int](1, 1)
		tr.SetNumThreads(c.n)
		if got := tr.exec.MaxSubmitDepth(); got != c.wantDepth {
			t.Errorf("SetNumThreads(%d): maxSubmitDepth = %d, want %d", c.n, got, c.wantDepth)
		}
	}
}

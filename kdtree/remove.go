package kdtree

// removeValue descends toward q using SuperKey order and removes the first
// occurrence of v from the matching node's value list. found reports
// whether v was actually removed. The tri-state pruneStatus lets the
// caller clear its own child link, mirroring searchAndRemoveRange.
func removeValue[V comparable](np **node[V], depth int, perm []int, q Tuple, v V) (found bool, status pruneStatus) {
	n := *np
	if n == nil {
		return false, statusEmpty
	}
	axis := perm[depth]

	switch superKeyCompare(q, n.tuple, axis) {
	case -1:
		found, _ := removeValue(&n.lt, depth+1, perm, q, v)
		return found, selfStatus(np, found)
	case 1:
		found, _ := removeValue(&n.gt, depth+1, perm, q, v)
		return found, selfStatus(np, found)
	default:
		removed := false
		for i, have := range n.values {
			if have == v {
				n.values = append(n.values[:i], n.values[i+1:]...)
				removed = true
				break
			}
		}
		if !removed {
			return false, statusEmpty
		}
		if n.dead() {
			*np = nil
			return true, statusDead
		}
		return true, statusAlive
	}
}

// selfStatus reports the status of *np after a descendant walk; a dead
// node is unlinked here so the parent's child link is cleared.
func selfStatus[V any](np **node[V], found bool) pruneStatus {
	if !found {
		return statusEmpty
	}
	if (*np).dead() {
		*np = nil
		return statusDead
	}
	return statusAlive
}

// Bias selectors for pickValue.
const (
	BiasLeft        = 0 // all-zeros: always descend lt
	BiasRight       = 1 // all-ones: always descend gt
	BiasAlternating = 2 // 0x2AAA...A: alternate gt/lt by depth
	BiasRandom      = 3 // caller-supplied random 64-bit selector
)

// selectorFor returns the 64-bit descent selector for a standard bias; for
// BiasRandom the caller must supply its own value via PickValueWithSelector.
func selectorFor(bias int) uint64 {
	switch bias {
	case BiasLeft:
		return 0
	case BiasRight:
		return ^uint64(0) >> 1 // all-ones in the low 63 bits
	case BiasAlternating:
		return 0x2AAAAAAAAAAAAAAA
	default:
		return 0
	}
}

// pickValue walks a biased descent path: at each depth, the selector's low
// bit chooses gt (if present) else lt, then the selector is shifted right.
// At a node with no viable chosen child, it pops the last value of that
// node's list, copies its tuple into outKey, and if remove is true shrinks
// the list and propagates the prune status. A node whose own list is empty
// is not a stopping point: the walk descends into its other child instead.
func pickValue[V any](np **node[V], depth int, selector uint64, remove bool, outKey Tuple) (V, bool, pruneStatus) {
	n := *np
	if n == nil {
		var zero V
		return zero, false, statusEmpty
	}

	wantGT := selector&1 != 0
	var next **node[V]
	switch {
	case wantGT && n.gt != nil:
		next = &n.gt
	case !wantGT && n.lt != nil:
		next = &n.lt
	case len(n.values) == 0 && n.gt != nil:
		next = &n.gt
	case len(n.values) == 0 && n.lt != nil:
		next = &n.lt
	}

	if next != nil {
		v, ok, _ := pickValue(next, depth+1, selector>>1, remove, outKey)
		if !ok {
			return v, false, statusEmpty
		}
		if !remove {
			return v, true, statusAlive
		}
		return v, true, selfStatus(np, true)
	}

	if len(n.values) == 0 {
		var zero V
		return zero, false, statusEmpty
	}
	copy(outKey, n.tuple)
	last := len(n.values) - 1
	v := n.values[last]
	if !remove {
		return v, true, statusAlive
	}
	n.values = n.values[:last]
	if n.dead() {
		*np = nil
		return v, true, statusDead
	}
	return v, true, statusAlive
}

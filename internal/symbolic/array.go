package symbolic

// EnumerateArray yields the leaves of v (a possibly nested ArrayVal tree) in
// lexicographic multi-index order, alongside the multi-index each leaf was
// found at. Non-array values yield a single leaf at the empty index.
func EnumerateArray(v Value) (leaves []Value, indices [][]int) {
	var walk func(Value, []int)
	walk = func(v Value, prefix []int) {
		if v.Kind != ArrayVal {
			idx := append([]int(nil), prefix...)
			leaves = append(leaves, v)
			indices = append(indices, idx)
			return
		}
		for i, e := range v.Elements {
			walk(e, append(prefix, i))
		}
	}
	walk(v, nil)
	return leaves, indices
}

// UpdateNestedArray returns a copy of v with the leaf at pos replaced by x,
// allocating NOP placeholders for any sibling slots pos implies but v
// doesn't yet have (the mirrored base array grows as scalar leaves are
// bound during array substitution).
func UpdateNestedArray(pos []int, v Value, x Value) Value {
	if len(pos) == 0 {
		return x
	}
	elems := append([]Value(nil), v.Elements...)
	for len(elems) <= pos[0] {
		elems = append(elems, NOPVal())
	}
	elems[pos[0]] = UpdateNestedArray(pos[1:], elems[pos[0]], x)
	return NewArray(elems)
}

// ReadNestedArray reads back the leaf at pos, used by tests to validate the
// UpdateNestedArray round-trip.
func ReadNestedArray(pos []int, v Value) (Value, bool) {
	cur := v
	for _, i := range pos {
		if cur.Kind != ArrayVal || i < 0 || i >= len(cur.Elements) {
			return Value{}, false
		}
		cur = cur.Elements[i]
	}
	return cur, true
}

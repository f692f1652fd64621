// Package unused implements the unused-output oracle: a declared output
// whose name
// never appears anywhere in the side-constraint set can be driven to any
// value without affecting satisfiability, which is itself an
// under-constrained bug independent of the main trace/side verification
// table.
//
// A reference-graph walk from the side-constraint set flags every declared
// output the constraints never reach.
package unused

import "github.com/zkfuzz/zkfuzz/internal/symbolic"

// Witness names one declared output id that no side constraint references.
type Witness struct {
	OutputID uint64
}

// Find builds the set of variable ids reachable from (referenced anywhere
// within) side and reports every id in outputs absent from that set. Reachability is computed over base ids rather than fully qualified
// Names: an output is considered constrained as soon as any access path
// rooted at its id appears in a side constraint, since partial-array
// constraint coverage is already the array-leaf binding machinery's concern
// (internal/executor), not this oracle's.
func Find(side []symbolic.Value, outputs map[uint64]bool) []Witness {
	referenced := make(map[uint64]bool)
	for _, v := range side {
		collectIDs(v, referenced)
	}

	var out []Witness
	for id := range outputs {
		if !referenced[id] {
			out = append(out, Witness{OutputID: id})
		}
	}
	return out
}

func collectIDs(v symbolic.Value, seen map[uint64]bool) {
	switch v.Kind {
	case symbolic.Variable:
		seen[v.Name.ID] = true
		for _, a := range v.Name.Access {
			if a.Kind == symbolic.ArrayAccess {
				collectIDs(a.Index, seen)
			}
		}
	case symbolic.BinaryOp, symbolic.AuxBinaryOp:
		collectIDs(*v.Lhs, seen)
		collectIDs(*v.Rhs, seen)
	case symbolic.UnaryOp:
		collectIDs(*v.Lhs, seen)
	case symbolic.Conditional:
		collectIDs(*v.Cond, seen)
		collectIDs(*v.Then, seen)
		collectIDs(*v.Else, seen)
	case symbolic.Assign, symbolic.AssignEq, symbolic.AssignTemplParam, symbolic.AssignCall:
		collectIDs(*v.Lhs, seen)
		collectIDs(*v.Rhs, seen)
	case symbolic.ArrayVal:
		for _, e := range v.Elements {
			collectIDs(e, seen)
		}
	case symbolic.UniformArray:
		collectIDs(*v.Elem, seen)
		collectIDs(*v.Count, seen)
	case symbolic.Call:
		for _, a := range v.Args {
			collectIDs(a, seen)
		}
	}
}

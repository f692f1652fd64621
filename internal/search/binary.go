package search

import (
	"math/big"

	"github.com/zkfuzz/zkfuzz/internal/field"
	"github.com/zkfuzz/zkfuzz/internal/symbolic"
)

var oneConst = big.NewInt(1)

// detectBinaryInputs scans side for the x*(1-x) == 0 / x - x*x == 0 shape
// that marks a signal as boolean-constrained, descending up to
// searchLevel levels into each side constraint.
// A detected input id biases randomFieldValueBiased towards {0,1} once
// binary mode triggers.
func detectBinaryInputs(side []symbolic.Value, inputs []symbolic.Name, searchLevel int) map[uint64]bool {
	inputIDs := make(map[uint64]bool, len(inputs))
	for _, n := range inputs {
		inputIDs[n.ID] = true
	}

	found := make(map[uint64]bool)
	for _, v := range side {
		scanForBinaryPattern(v, inputIDs, searchLevel, found)
	}
	return found
}

func scanForBinaryPattern(v symbolic.Value, inputIDs map[uint64]bool, depth int, found map[uint64]bool) {
	if depth < 0 {
		return
	}
	if id, ok := binaryPatternID(v, inputIDs); ok {
		found[id] = true
	}
	switch v.Kind {
	case symbolic.AssignEq, symbolic.BinaryOp, symbolic.AuxBinaryOp:
		scanForBinaryPattern(*v.Lhs, inputIDs, depth-1, found)
		scanForBinaryPattern(*v.Rhs, inputIDs, depth-1, found)
	case symbolic.UnaryOp:
		scanForBinaryPattern(*v.Lhs, inputIDs, depth-1, found)
	case symbolic.Conditional:
		scanForBinaryPattern(*v.Cond, inputIDs, depth-1, found)
		scanForBinaryPattern(*v.Then, inputIDs, depth-1, found)
		scanForBinaryPattern(*v.Else, inputIDs, depth-1, found)
	}
}

// binaryPatternID recognizes `expr == 0` (or its AssignEq-shaped
// equivalent) where expr is x*(1-x), (1-x)*x, or x - x*x, returning x's id.
func binaryPatternID(v symbolic.Value, inputIDs map[uint64]bool) (uint64, bool) {
	var lhs, rhs symbolic.Value
	switch v.Kind {
	case symbolic.AssignEq:
		lhs, rhs = *v.Lhs, *v.Rhs
	case symbolic.BinaryOp, symbolic.AuxBinaryOp:
		if v.Op != field.Eq {
			return 0, false
		}
		lhs, rhs = *v.Lhs, *v.Rhs
	default:
		return 0, false
	}

	if isZeroConst(rhs) {
		if id, ok := binaryExpr(lhs, inputIDs); ok {
			return id, true
		}
	}
	if isZeroConst(lhs) {
		if id, ok := binaryExpr(rhs, inputIDs); ok {
			return id, true
		}
	}
	return 0, false
}

func isZeroConst(v symbolic.Value) bool {
	return v.IsConstInt() && v.Int.Sign() == 0
}

func binaryExpr(v symbolic.Value, inputIDs map[uint64]bool) (uint64, bool) {
	if v.Kind != symbolic.BinaryOp && v.Kind != symbolic.AuxBinaryOp {
		return 0, false
	}
	switch v.Op {
	case field.Mul:
		if id, ok := mulOneMinusX(*v.Lhs, *v.Rhs, inputIDs); ok {
			return id, true
		}
		if id, ok := mulOneMinusX(*v.Rhs, *v.Lhs, inputIDs); ok {
			return id, true
		}
	case field.Sub:
		if id, ok := varID(*v.Lhs, inputIDs); ok && isSquareOf(*v.Rhs, id) {
			return id, true
		}
	}
	return 0, false
}

// mulOneMinusX recognizes a*b where a is an input variable x and b is
// (1 - x) for the same x.
func mulOneMinusX(a, b symbolic.Value, inputIDs map[uint64]bool) (uint64, bool) {
	id, ok := varID(a, inputIDs)
	if !ok {
		return 0, false
	}
	if b.Kind != symbolic.BinaryOp && b.Kind != symbolic.AuxBinaryOp {
		return 0, false
	}
	if b.Op != field.Sub || !b.Lhs.IsConstInt() || b.Lhs.Int.Cmp(oneConst) != 0 {
		return 0, false
	}
	bid, ok := varID(*b.Rhs, inputIDs)
	return id, ok && bid == id
}

func isSquareOf(v symbolic.Value, id uint64) bool {
	if v.Kind != symbolic.BinaryOp && v.Kind != symbolic.AuxBinaryOp {
		return false
	}
	if v.Op != field.Mul {
		return false
	}
	lid, lok := varID(*v.Lhs, nil)
	rid, rok := varID(*v.Rhs, nil)
	return lok && rok && lid == id && rid == id
}

func varID(v symbolic.Value, inputIDs map[uint64]bool) (uint64, bool) {
	if v.Kind != symbolic.Variable {
		return 0, false
	}
	if inputIDs != nil && !inputIDs[v.Name.ID] {
		return 0, false
	}
	return v.Name.ID, true
}

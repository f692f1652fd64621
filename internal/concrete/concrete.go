// Package concrete implements the concrete interpreter:
// the same recursion shape as internal/symbolic.Simplify, but one that fails
// closed (returns "unbound") instead of leaving a free symbol, plus the
// trace emulator the verification oracle and mutation-test driver both run
// candidate assignments through.
//
// This is a second interpretation pass over the same value shapes the
// symbolic executor produces, differing only in how it fails: an unbound
// name halts evaluation instead of remaining a free symbol.
package concrete

import (
	"math/big"

	"github.com/zkfuzz/zkfuzz/internal/invariant"
	"github.com/zkfuzz/zkfuzz/internal/symbolic"
	"github.com/zkfuzz/zkfuzz/internal/symstate"
)

// Assignment is a concrete witness: a binding from symbolic names to field
// elements (represented as ConstantInt/ConstantBool Values for reuse of
// symstate.NameMap's hash-bucket lookup).
type Assignment = *symstate.NameMap

// NewAssignment creates an empty concrete assignment.
func NewAssignment() Assignment { return symstate.NewNameMap() }

// Evaluate resolves v to a concrete field element: it mirrors
// symbolic.Simplify's recursion shape but returns ok=false the moment it
// hits a referenced name with no binding in assignment, rather than leaving
// a free Variable node in the result.
func Evaluate(p *big.Int, v symbolic.Value, assignment Assignment) (symbolic.Value, bool) {
	switch v.Kind {
	case symbolic.NOP, symbolic.ConstantInt, symbolic.ConstantBool:
		return v, true

	case symbolic.Variable:
		bound, ok := assignment.Get(v.Name)
		if !ok {
			return symbolic.Value{}, false
		}
		// A free-placeholder self-binding carries no concrete value.
		if bound.Kind == symbolic.Variable && bound.Name.Equal(v.Name) {
			return symbolic.Value{}, false
		}
		return Evaluate(p, bound, assignment)

	case symbolic.BinaryOp, symbolic.AuxBinaryOp:
		lhs, ok := Evaluate(p, *v.Lhs, assignment)
		if !ok {
			return symbolic.Value{}, false
		}
		rhs, ok := Evaluate(p, *v.Rhs, assignment)
		if !ok {
			return symbolic.Value{}, false
		}
		return symbolic.EvaluateBinaryOp(lhs, v.Op, rhs, p, v.Kind == symbolic.AuxBinaryOp), true

	case symbolic.UnaryOp:
		operand, ok := Evaluate(p, *v.Lhs, assignment)
		if !ok {
			return symbolic.Value{}, false
		}
		return symbolic.EvaluateUnaryOp(v.Un, operand, p), true

	case symbolic.Conditional:
		cond, ok := Evaluate(p, *v.Cond, assignment)
		if !ok || !cond.IsConstBool() {
			return symbolic.Value{}, false
		}
		if cond.Bool {
			return Evaluate(p, *v.Then, assignment)
		}
		return Evaluate(p, *v.Else, assignment)

	case symbolic.ArrayVal:
		elems := make([]symbolic.Value, len(v.Elements))
		for i, el := range v.Elements {
			r, ok := Evaluate(p, el, assignment)
			if !ok {
				return symbolic.Value{}, false
			}
			elems[i] = r
		}
		return symbolic.NewArray(elems), true

	case symbolic.UniformArray:
		elem, ok := Evaluate(p, *v.Elem, assignment)
		if !ok {
			return symbolic.Value{}, false
		}
		count, ok := Evaluate(p, *v.Count, assignment)
		if !ok || !count.IsConstInt() {
			return symbolic.Value{}, false
		}
		n := count.Int.Int64()
		elems := make([]symbolic.Value, n)
		for i := range elems {
			elems[i] = elem
		}
		return symbolic.NewArray(elems), true

	default:
		// Assign/AssignEq/AssignTemplParam/AssignCall/Call are not
		// themselves evaluable values in concrete mode - the trace emulator
		// handles them as statement-shaped nodes instead.
		return symbolic.Value{}, false
	}
}

// Outcome is the result of walking one trace to completion or first failure.
type Outcome struct {
	Success      bool
	FirstFailure int // -1 when Success
}

// EmulateTrace walks trace in order, updating assignment for
// witness-producing nodes and checking every
// other node as a predicate. runtimeMutable marks the trace indices where
// the back-propagation ("runtime mutation") trick is permitted. Returns
// ok=false only when evaluation hits an unbound variable with no permitted
// mutation to resolve it.
func EmulateTrace(p *big.Int, trace []symbolic.Value, runtimeMutable map[int]bool, assignment Assignment) (Outcome, bool) {
	for i, v := range trace {
		switch v.Kind {
		case symbolic.Assign, symbolic.AssignEq, symbolic.AssignCall, symbolic.AssignTemplParam:
			if ok := bindWitness(p, v, assignment); !ok {
				return Outcome{Success: false, FirstFailure: i}, true
			}
		default:
			satisfied, ok := evalPredicate(p, v, assignment, runtimeMutable[i])
			if !ok {
				return Outcome{}, false
			}
			if !satisfied {
				return Outcome{Success: false, FirstFailure: i}, true
			}
		}
	}
	return Outcome{Success: true, FirstFailure: -1}, true
}

// bindWitness handles an Assign node during trace emulation: compute rhs;
// constants bind directly (bools coerce to 0/1), arrays fan out
// element-wise, NOP default-binds to 0, anything else is a failure at this
// position.
func bindWitness(p *big.Int, v symbolic.Value, assignment Assignment) bool {
	invariant.Check(v.Lhs != nil && v.Lhs.Kind == symbolic.Variable, "concrete: witness lhs must be a Variable")
	name := v.Lhs.Name

	if v.Rhs.Kind == symbolic.NOP {
		assignment.Set(name, symbolic.IntI(0))
		return true
	}

	r, ok := Evaluate(p, *v.Rhs, assignment)
	if !ok {
		return false
	}
	switch {
	case r.IsConstInt():
		assignment.Set(name, r)
		return true
	case r.IsConstBool():
		if r.Bool {
			assignment.Set(name, symbolic.IntI(1))
		} else {
			assignment.Set(name, symbolic.IntI(0))
		}
		return true
	case r.Kind == symbolic.ArrayVal:
		leaves, indices := symbolic.EnumerateArray(r)
		for i, leaf := range leaves {
			access := append(append([]symbolic.Access(nil), name.Access...), arrayAccess(indices[i])...)
			assignment.Set(symbolic.NewName(name.ID, name.OwnerStack, access), leaf)
		}
		return true
	default:
		return false
	}
}

func arrayAccess(idx []int) []symbolic.Access {
	out := make([]symbolic.Access, len(idx))
	for i, n := range idx {
		out[i] = symbolic.Access{Kind: symbolic.ArrayAccess, Index: symbolic.IntI(int64(n))}
	}
	return out
}

// evalPredicate evaluates a non-witness trace node as a boolean predicate,
// applying the runtime-mutation back-propagation trick at BinaryOp/
// AuxBinaryOp nodes when permitted: if exactly one side is an
// unbound free Variable and the other side is concrete, the free side is
// bound to the concrete value rather than failing. When both sides are
// simultaneously free, this is a no-op.
func evalPredicate(p *big.Int, v symbolic.Value, assignment Assignment, mutable bool) (satisfied, ok bool) {
	if v.Kind == symbolic.BinaryOp || v.Kind == symbolic.AuxBinaryOp {
		lhs, lhsOK := Evaluate(p, *v.Lhs, assignment)
		rhs, rhsOK := Evaluate(p, *v.Rhs, assignment)

		if mutable {
			switch {
			case !lhsOK && rhsOK && v.Lhs.Kind == symbolic.Variable:
				assignment.Set(v.Lhs.Name, rhs)
				lhs, lhsOK = rhs, true
			case lhsOK && !rhsOK && v.Rhs.Kind == symbolic.Variable:
				assignment.Set(v.Rhs.Name, lhs)
				rhs, rhsOK = lhs, true
			}
		}

		if !lhsOK || !rhsOK {
			return false, false
		}
		result := symbolic.EvaluateBinaryOp(lhs, v.Op, rhs, p, v.Kind == symbolic.AuxBinaryOp)
		return truthy(result), true
	}

	val, valOK := Evaluate(p, v, assignment)
	if !valOK {
		return false, false
	}
	return truthy(val), true
}

func truthy(v symbolic.Value) bool {
	switch {
	case v.IsConstBool():
		return v.Bool
	case v.IsConstInt():
		return v.Int.Sign() != 0
	default:
		return false
	}
}

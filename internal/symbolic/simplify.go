package symbolic

import (
	"math/big"

	"github.com/zkfuzz/zkfuzz/internal/field"
)

// NameClass categorizes a Name for the simplifier's substitution rules:
// plain `var` locals fold unconditionally during constant folding, signal
// categories are substituted only in the modes that ask for it.
type NameClass int

const (
	ClassVar NameClass = iota
	ClassSignalInput
	ClassSignalOutput
	ClassSignalIntermediate
	ClassComponent
	ClassUnknown
)

func (c NameClass) IsSignal() bool {
	return c == ClassSignalInput || c == ClassSignalOutput || c == ClassSignalIntermediate
}

// Environment resolves names to bound values and classifies them, without
// the simplifier needing to depend on package symstate directly - symstate's
// State implements this interface.
type Environment interface {
	Resolve(Name) (Value, bool)
	Classify(Name) NameClass
}

// SimplifyMode selects which names the simplifier is permitted to resolve.
type SimplifyMode struct {
	ConstOnly        bool // constant folding: only Var-category locals, signals only if SubstituteOutput
	VarOnly          bool // variable substitution: all non-signal names
	SubstituteOutput bool // under ConstOnly, also substitute bound signal outputs
}

// FullSubstitution is the mode that resolves every bound name.
func FullSubstitution() SimplifyMode { return SimplifyMode{} }

// ConstantFolding is the mode that only resolves plain `var` locals (and,
// optionally, outputs).
func ConstantFolding(substituteOutput bool) SimplifyMode {
	return SimplifyMode{ConstOnly: true, SubstituteOutput: substituteOutput}
}

// VariableSubstitution is the mode that resolves every non-signal name.
func VariableSubstitution() SimplifyMode { return SimplifyMode{VarOnly: true} }

// Simplify recursively rewrites v: it resolves names permitted under mode,
// folds binary/unary operators and constant conditionals, and is idempotent
// on its own output when the environment doesn't change between calls.
func Simplify(v Value, p *big.Int, env Environment, mode SimplifyMode) Value {
	switch v.Kind {
	case NOP, ConstantInt, ConstantBool:
		return v

	case Variable:
		if resolved, ok := lookupUnderMode(env, v.Name, mode); ok {
			// A declared-but-unassigned name is bound to itself as a free
			// placeholder; resolving it again would never terminate.
			if resolved.Kind == Variable && resolved.Name.Equal(v.Name) {
				return v
			}
			// Re-simplify the resolved value: a bound name may itself be
			// bound to another (already-simplified, but cheap to re-walk)
			// Variable node in shallow-cloned states.
			return Simplify(resolved, p, env, mode)
		}
		return v

	case Assign:
		lhs := Simplify(*v.Lhs, p, env, mode)
		rhs := Simplify(*v.Rhs, p, env, mode)
		return NewAssign(lhs, rhs, v.Safe, v.ZeroDiv)

	case AssignEq:
		return NewAssignEq(Simplify(*v.Lhs, p, env, mode), Simplify(*v.Rhs, p, env, mode))

	case AssignTemplParam:
		return NewAssignTemplParam(Simplify(*v.Lhs, p, env, mode), Simplify(*v.Rhs, p, env, mode), v.Mutable)

	case AssignCall:
		return NewAssignCall(Simplify(*v.Lhs, p, env, mode), Simplify(*v.Rhs, p, env, mode), v.Mutable)

	case BinaryOp:
		lhs := Simplify(*v.Lhs, p, env, mode)
		rhs := Simplify(*v.Rhs, p, env, mode)
		return EvaluateBinaryOp(lhs, v.Op, rhs, p, false)

	case AuxBinaryOp:
		lhs := Simplify(*v.Lhs, p, env, mode)
		rhs := Simplify(*v.Rhs, p, env, mode)
		return EvaluateBinaryOp(lhs, v.Op, rhs, p, true)

	case UnaryOp:
		expr := Simplify(*v.Lhs, p, env, mode)
		return EvaluateUnaryOp(v.Un, expr, p)

	case Conditional:
		cond := Simplify(*v.Cond, p, env, mode)
		if cond.IsConstBool() {
			if cond.Bool {
				return Simplify(*v.Then, p, env, mode)
			}
			return Simplify(*v.Else, p, env, mode)
		}
		then := Simplify(*v.Then, p, env, mode)
		els := Simplify(*v.Else, p, env, mode)
		return NewConditional(cond, then, els)

	case ArrayVal:
		elems := make([]Value, len(v.Elements))
		for i, e := range v.Elements {
			elems[i] = Simplify(e, p, env, mode)
		}
		return NewArray(elems)

	case UniformArray:
		elem := Simplify(*v.Elem, p, env, mode)
		count := Simplify(*v.Count, p, env, mode)
		return NewUniformArray(elem, count)

	case Call:
		args := make([]Value, len(v.Args))
		for i, a := range v.Args {
			args[i] = Simplify(a, p, env, mode)
		}
		return NewCall(v.FuncID, args)

	default:
		return v
	}
}

func lookupUnderMode(env Environment, name Name, mode SimplifyMode) (Value, bool) {
	if env == nil {
		return Value{}, false
	}
	class := env.Classify(name)

	allowed := false
	switch {
	case mode.ConstOnly:
		allowed = class == ClassVar || (class.IsSignal() && class == ClassSignalOutput && mode.SubstituteOutput)
	case mode.VarOnly:
		allowed = !class.IsSignal()
	default:
		allowed = true
	}
	if !allowed {
		return Value{}, false
	}
	return env.Resolve(name)
}

// Negate builds the logical negation of a predicate, folding the
// relational operator pairs the way the executor's IfThenElse handler
// needs when it pushes a branch's negated condition to trace/side
// constraints: == <-> !=, < <-> >=, > <-> <=, De Morgan over &&/||, and
// plain boolean not otherwise.
func Negate(v Value) Value {
	switch v.Kind {
	case BinaryOp, AuxBinaryOp:
		neg, ok := negatedOp(v.Op)
		if ok {
			if v.Kind == AuxBinaryOp {
				return NewAuxBinaryOp(*v.Lhs, neg, *v.Rhs)
			}
			return NewBinaryOp(*v.Lhs, neg, *v.Rhs)
		}
	case ConstantBool:
		return Bool_(!v.Bool)
	case UnaryOp:
		if v.Un == UnaryBoolNot {
			return *v.Lhs
		}
	}
	return NewUnaryOp(UnaryBoolNot, v)
}

func negatedOp(op BinOp) (BinOp, bool) {
	switch op {
	case field.Eq:
		return field.NotEq, true
	case field.NotEq:
		return field.Eq, true
	case field.Lesser:
		return field.GreaterEq, true
	case field.GreaterEq:
		return field.Lesser, true
	case field.Greater:
		return field.LesserEq, true
	case field.LesserEq:
		return field.Greater, true
	default:
		return op, false
	}
}

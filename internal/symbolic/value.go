package symbolic

import (
	"math/big"

	"github.com/zkfuzz/zkfuzz/internal/field"
)

// Kind tags the variant a Value holds. A single struct with one field per
// possible payload - rather than an interface per variant - keeps pattern
// matching a plain switch on Kind instead of a type switch over a dozen
// concrete types.
type Kind int

const (
	NOP Kind = iota
	ConstantInt
	ConstantBool
	Variable
	Assign
	AssignEq
	AssignTemplParam
	AssignCall
	BinaryOp
	AuxBinaryOp
	UnaryOp
	Conditional
	ArrayVal
	UniformArray
	Call
)

// BinOp enumerates the binary operators a BinaryOp/AuxBinaryOp node may
// carry. Re-exported from package field so callers never need to import
// both packages just to build a node.
type BinOp = field.Op

// UnOp enumerates unary operators.
type UnOp int

const (
	UnarySub UnOp = iota
	UnaryBoolNot
	UnaryComplement
)

// Value is an immutable node in the symbolic value DAG. Non-leaf variants
// hold shared references to sub-values (via Go's ordinary slice/pointer
// aliasing - ownership is conceptual, not enforced at the type level;
// reference counting collapses onto the Go GC).
type Value struct {
	Kind Kind

	// ConstantInt
	Int *big.Int

	// ConstantBool
	Bool bool

	// Variable
	Name Name

	// Assign / AssignEq / AssignTemplParam / AssignCall / BinaryOp /
	// AuxBinaryOp / UnaryOp share Lhs/Rhs/Op/Mutable/Safe/ZeroDiv as needed.
	Lhs *Value
	Rhs *Value
	Op  BinOp
	Un  UnOp

	Safe     bool // Assign: true when the containing template is whitelisted
	Mutable  bool // AssignTemplParam / AssignCall
	ZeroDiv  *ZeroDivInfo

	// Conditional
	Cond *Value
	Then *Value
	Else *Value

	// ArrayVal
	Elements []Value

	// UniformArray
	Elem  *Value
	Count *Value

	// Call
	FuncID uint64
	Args   []Value
}

// ZeroDivInfo captures the polynomial decomposition of both sides of an
// Assign's rhs, used by the mutation driver's zero-division attempt to recover an input that drives a division's denominator to zero
// (or, symmetrically, its numerator). Target names the input variable the
// two decompositions are expressed in terms of.
type ZeroDivInfo struct {
	Target      Name
	Numerator   PolyCoeffs
	Denominator PolyCoeffs
}

// PolyCoeffs is the [c0, c1, c2] triple such that expr === c0 + c1*t + c2*t^2
// for some chosen target variable t.
type PolyCoeffs [3]Value

// Constructors. None of these fold or simplify - folding is the dedicated
// job of Simplify/EvaluateBinaryOp.

func Int(n *big.Int) Value    { return Value{Kind: ConstantInt, Int: new(big.Int).Set(n)} }
func IntI(n int64) Value      { return Int(big.NewInt(n)) }
func Bool_(b bool) Value      { return Value{Kind: ConstantBool, Bool: b} }
func Var(n Name) Value        { return Value{Kind: Variable, Name: n} }
func NOPVal() Value           { return Value{Kind: NOP} }

func NewAssign(lhs, rhs Value, safe bool, zd *ZeroDivInfo) Value {
	return Value{Kind: Assign, Lhs: &lhs, Rhs: &rhs, Safe: safe, ZeroDiv: zd}
}

func NewAssignEq(lhs, rhs Value) Value {
	return Value{Kind: AssignEq, Lhs: &lhs, Rhs: &rhs}
}

func NewAssignTemplParam(lhs, rhs Value, mutable bool) Value {
	return Value{Kind: AssignTemplParam, Lhs: &lhs, Rhs: &rhs, Mutable: mutable}
}

func NewAssignCall(lhs, rhs Value, mutable bool) Value {
	return Value{Kind: AssignCall, Lhs: &lhs, Rhs: &rhs, Mutable: mutable}
}

func NewBinaryOp(lhs Value, op BinOp, rhs Value) Value {
	return Value{Kind: BinaryOp, Lhs: &lhs, Op: op, Rhs: &rhs}
}

func NewAuxBinaryOp(lhs Value, op BinOp, rhs Value) Value {
	return Value{Kind: AuxBinaryOp, Lhs: &lhs, Op: op, Rhs: &rhs}
}

func NewUnaryOp(op UnOp, expr Value) Value {
	return Value{Kind: UnaryOp, Un: op, Lhs: &expr}
}

func NewConditional(cond, then, els Value) Value {
	return Value{Kind: Conditional, Cond: &cond, Then: &then, Else: &els}
}

func NewArray(elems []Value) Value {
	return Value{Kind: ArrayVal, Elements: append([]Value(nil), elems...)}
}

func NewUniformArray(elem, count Value) Value {
	return Value{Kind: UniformArray, Elem: &elem, Count: &count}
}

func NewCall(funcID uint64, args []Value) Value {
	return Value{Kind: Call, FuncID: funcID, Args: append([]Value(nil), args...)}
}

// IsConstInt reports whether v is a folded integer constant.
func (v Value) IsConstInt() bool { return v.Kind == ConstantInt }

// IsConstBool reports whether v is a folded boolean constant.
func (v Value) IsConstBool() bool { return v.Kind == ConstantBool }

// IsFullyConcrete reports whether v contains no free Variable/Call nodes -
// used to decide whether a function's return value can be folded or an array can be compared wholesale for non-determinism.
func IsFullyConcrete(v Value) bool {
	switch v.Kind {
	case ConstantInt, ConstantBool, NOP:
		return true
	case Variable, Call, AssignTemplParam, AssignCall:
		return false
	case ArrayVal:
		for _, e := range v.Elements {
			if !IsFullyConcrete(e) {
				return false
			}
		}
		return true
	case UniformArray:
		return IsFullyConcrete(*v.Elem) && IsFullyConcrete(*v.Count)
	case BinaryOp, AuxBinaryOp:
		return IsFullyConcrete(*v.Lhs) && IsFullyConcrete(*v.Rhs)
	case UnaryOp:
		return IsFullyConcrete(*v.Lhs)
	case Conditional:
		return IsFullyConcrete(*v.Cond) && IsFullyConcrete(*v.Then) && IsFullyConcrete(*v.Else)
	case Assign, AssignEq:
		return IsFullyConcrete(*v.Lhs) && IsFullyConcrete(*v.Rhs)
	default:
		return false
	}
}

// Equal reports structural equality between two value trees.
func Equal(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case NOP:
		return true
	case ConstantInt:
		return a.Int.Cmp(b.Int) == 0
	case ConstantBool:
		return a.Bool == b.Bool
	case Variable:
		return a.Name.Equal(b.Name)
	case Assign:
		return a.Safe == b.Safe && Equal(*a.Lhs, *b.Lhs) && Equal(*a.Rhs, *b.Rhs)
	case AssignEq:
		return Equal(*a.Lhs, *b.Lhs) && Equal(*a.Rhs, *b.Rhs)
	case AssignTemplParam, AssignCall:
		return a.Mutable == b.Mutable && Equal(*a.Lhs, *b.Lhs) && Equal(*a.Rhs, *b.Rhs)
	case BinaryOp, AuxBinaryOp:
		return a.Op == b.Op && Equal(*a.Lhs, *b.Lhs) && Equal(*a.Rhs, *b.Rhs)
	case UnaryOp:
		return a.Un == b.Un && Equal(*a.Lhs, *b.Lhs)
	case Conditional:
		return Equal(*a.Cond, *b.Cond) && Equal(*a.Then, *b.Then) && Equal(*a.Else, *b.Else)
	case ArrayVal:
		if len(a.Elements) != len(b.Elements) {
			return false
		}
		for i := range a.Elements {
			if !Equal(a.Elements[i], b.Elements[i]) {
				return false
			}
		}
		return true
	case UniformArray:
		return Equal(*a.Elem, *b.Elem) && Equal(*a.Count, *b.Count)
	case Call:
		if a.FuncID != b.FuncID || len(a.Args) != len(b.Args) {
			return false
		}
		for i := range a.Args {
			if !Equal(a.Args[i], b.Args[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

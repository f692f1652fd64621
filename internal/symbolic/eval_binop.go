package symbolic

import (
	"math/big"

	"github.com/zkfuzz/zkfuzz/internal/field"
)

// EvaluateBinaryOp folds a BinaryOp/AuxBinaryOp node when both operands
// are constants, coercing integer<->bool via (v mod p) != 0; otherwise it
// returns the node unfolded. This is the sole place folding of binary
// operators happens - constructors never short-circuit.
func EvaluateBinaryOp(lhs Value, op field.Op, rhs Value, p *big.Int, aux bool) Value {
	switch op {
	case field.BoolAnd, field.BoolOr:
		lb, lok := asBool(lhs, p)
		rb, rok := asBool(rhs, p)
		if lok && rok {
			return Bool_(field.ToBool(field.EvaluateBinaryOp(field.FromBool(lb), field.FromBool(rb), p, op, aux), p))
		}
		if aux {
			return NewAuxBinaryOp(lhs, op, rhs)
		}
		return NewBinaryOp(lhs, op, rhs)
	default:
		li, lok := asInt(lhs, p)
		ri, rok := asInt(rhs, p)
		if !lok || !rok {
			if aux {
				return NewAuxBinaryOp(lhs, op, rhs)
			}
			return NewBinaryOp(lhs, op, rhs)
		}
		result := field.EvaluateBinaryOp(li, ri, p, op, aux)
		if isRelational(op) || op == field.Eq || op == field.NotEq {
			return Bool_(result.Sign() != 0)
		}
		return Int(result)
	}
}

func isRelational(op field.Op) bool {
	switch op {
	case field.Lesser, field.Greater, field.LesserEq, field.GreaterEq:
		return true
	default:
		return false
	}
}

// asInt coerces a constant value to its big.Int field representative: an
// int constant as-is, a bool constant via FromBool. Returns ok=false for
// anything not yet folded to a constant.
func asInt(v Value, p *big.Int) (*big.Int, bool) {
	switch v.Kind {
	case ConstantInt:
		return v.Int, true
	case ConstantBool:
		return field.FromBool(v.Bool), true
	default:
		return nil, false
	}
}

func asBool(v Value, p *big.Int) (bool, bool) {
	switch v.Kind {
	case ConstantBool:
		return v.Bool, true
	case ConstantInt:
		return field.ToBool(v.Int, p), true
	default:
		return false, false
	}
}

// EvaluateUnaryOp folds a UnaryOp node when its operand is constant.
func EvaluateUnaryOp(op UnOp, expr Value, p *big.Int) Value {
	switch op {
	case UnarySub:
		if expr.IsConstInt() {
			return Int(field.Reduce(new(big.Int).Neg(expr.Int), p))
		}
	case UnaryBoolNot:
		if b, ok := asBool(expr, p); ok {
			return Bool_(!b)
		}
	case UnaryComplement:
		if expr.IsConstInt() {
			return Int(field.Reduce(new(big.Int).Not(field.Reduce(expr.Int, p)), p))
		}
	}
	return NewUnaryOp(op, expr)
}

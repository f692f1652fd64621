package symbolic

import (
	"math"
	"math/big"

	"github.com/zkfuzz/zkfuzz/internal/field"
)

// MaxDegree is the sentinel "infinity" degree returned for expressions that
// aren't a low-degree polynomial in the target variable.
const MaxDegree = math.MaxInt32

// Degree computes expr's polynomial degree in target: 0 for constants and
// non-matching variables, 1 for the matching variable, Add/Sub take the max
// of their operands' degrees, Mul sums them, and any other operator with a
// nonzero-degree operand returns MaxDegree.
func Degree(expr Value, target Name) int {
	switch expr.Kind {
	case ConstantInt, ConstantBool, NOP:
		return 0
	case Variable:
		if expr.Name.Equal(target) {
			return 1
		}
		return 0
	case BinaryOp, AuxBinaryOp:
		dl := Degree(*expr.Lhs, target)
		dr := Degree(*expr.Rhs, target)
		switch expr.Op {
		case field.Add, field.Sub:
			return maxInt(dl, dr)
		case field.Mul:
			if dl == MaxDegree || dr == MaxDegree {
				return MaxDegree
			}
			return dl + dr
		default:
			if dl != 0 || dr != 0 {
				return MaxDegree
			}
			return 0
		}
	case UnaryOp:
		d := Degree(*expr.Lhs, target)
		if expr.Un == UnarySub {
			return d
		}
		if d != 0 {
			return MaxDegree
		}
		return 0
	default:
		if containsVariable(expr, target) {
			return MaxDegree
		}
		return 0
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func containsVariable(v Value, target Name) bool {
	switch v.Kind {
	case Variable:
		return v.Name.Equal(target)
	case BinaryOp, AuxBinaryOp:
		return containsVariable(*v.Lhs, target) || containsVariable(*v.Rhs, target)
	case UnaryOp:
		return containsVariable(*v.Lhs, target)
	case Conditional:
		return containsVariable(*v.Cond, target) || containsVariable(*v.Then, target) || containsVariable(*v.Else, target)
	case ArrayVal:
		for _, e := range v.Elements {
			if containsVariable(e, target) {
				return true
			}
		}
		return false
	case Call:
		for _, a := range v.Args {
			if containsVariable(a, target) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Coefficients decomposes expr as a polynomial in target:
// the [c0, c1, c2] triple such that expr === c0 + c1*target + c2*target^2,
// valid when Degree(expr, target) <= 2. For non-matching subtrees [expr, 0,
// 0] is returned. Sub-expressions are folded with the field
// arithmetic helpers as encountered.
func Coefficients(expr Value, target Name, p *big.Int) PolyCoeffs {
	if Degree(expr, target) > 2 {
		return PolyCoeffs{expr, IntI(0), IntI(0)}
	}

	switch expr.Kind {
	case Variable:
		if expr.Name.Equal(target) {
			return PolyCoeffs{IntI(0), IntI(1), IntI(0)}
		}
		return PolyCoeffs{expr, IntI(0), IntI(0)}

	case ConstantInt, ConstantBool, NOP:
		return PolyCoeffs{expr, IntI(0), IntI(0)}

	case BinaryOp, AuxBinaryOp:
		switch expr.Op {
		case field.Add:
			return addCoeffs(Coefficients(*expr.Lhs, target, p), Coefficients(*expr.Rhs, target, p), p)
		case field.Sub:
			rc := Coefficients(*expr.Rhs, target, p)
			neg := PolyCoeffs{negate(rc[0], p), negate(rc[1], p), negate(rc[2], p)}
			return addCoeffs(Coefficients(*expr.Lhs, target, p), neg, p)
		case field.Mul:
			lc := Coefficients(*expr.Lhs, target, p)
			rc := Coefficients(*expr.Rhs, target, p)
			return mulCoeffs(lc, rc, p)
		default:
			return PolyCoeffs{expr, IntI(0), IntI(0)}
		}

	case UnaryOp:
		if expr.Un == UnarySub {
			c := Coefficients(*expr.Lhs, target, p)
			return PolyCoeffs{negate(c[0], p), negate(c[1], p), negate(c[2], p)}
		}
		return PolyCoeffs{expr, IntI(0), IntI(0)}

	default:
		return PolyCoeffs{expr, IntI(0), IntI(0)}
	}
}

func negate(v Value, p *big.Int) Value {
	if v.IsConstInt() {
		return Int(field.Reduce(new(big.Int).Neg(v.Int), p))
	}
	return NewUnaryOp(UnarySub, v)
}

func addCoeffs(a, b PolyCoeffs, p *big.Int) PolyCoeffs {
	var out PolyCoeffs
	for i := 0; i < 3; i++ {
		out[i] = foldAdd(a[i], b[i], p)
	}
	return out
}

// mulCoeffs multiplies two <=1-degree-each polynomials (each already
// truncated to degree <=2 by the caller) and truncates the result back to
// [c0, c1, c2] - valid because Degree() already ensured the product stays
// within degree 2 for any expr this is called on.
func mulCoeffs(a, b PolyCoeffs, p *big.Int) PolyCoeffs {
	// (a0 + a1 t + a2 t^2)(b0 + b1 t + b2 t^2) truncated to t^2:
	c0 := foldMul(a[0], b[0], p)
	c1 := foldAdd(foldMul(a[0], b[1], p), foldMul(a[1], b[0], p), p)
	c2 := foldAdd(foldMul(a[0], b[2], p), foldAdd(foldMul(a[1], b[1], p), foldMul(a[2], b[0], p), p), p)
	return PolyCoeffs{c0, c1, c2}
}

func foldAdd(a, b Value, p *big.Int) Value {
	if a.IsConstInt() && b.IsConstInt() {
		return Int(field.Reduce(new(big.Int).Add(a.Int, b.Int), p))
	}
	if isZeroConst(a) {
		return b
	}
	if isZeroConst(b) {
		return a
	}
	return NewBinaryOp(a, field.Add, b)
}

func foldMul(a, b Value, p *big.Int) Value {
	if isZeroConst(a) || isZeroConst(b) {
		return IntI(0)
	}
	if a.IsConstInt() && b.IsConstInt() {
		return Int(field.Reduce(new(big.Int).Mul(a.Int, b.Int), p))
	}
	return NewBinaryOp(a, field.Mul, b)
}

func isZeroConst(v Value) bool {
	return v.IsConstInt() && v.Int.Sign() == 0
}

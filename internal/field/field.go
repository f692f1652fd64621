// Package field implements modular arithmetic over a prime field and the
// quadratic solver the mutation driver uses to resolve zero-division
// witnesses. The polynomial-coefficient extraction that feeds the solver
// lives in internal/symbolic.
//
// Every exported function takes the field modulus p explicitly rather than
// carrying it on a receiver: the executor, the evaluator, and the search
// driver all share a single p for the duration of a run, but none of them
// owns it, so a bare function set keeps the dependency explicit at every
// call site.
package field

import (
	"math/big"
)

// Op enumerates the binary operators the field evaluator understands.
type Op int

const (
	Add Op = iota
	Sub
	Mul
	Pow
	Div
	IntDiv
	Mod
	BitAnd
	BitOr
	BitXor
	ShiftL
	ShiftR
	Eq
	NotEq
	Lesser
	Greater
	LesserEq
	GreaterEq
	BoolAnd
	BoolOr
)

var zero = big.NewInt(0)
var one = big.NewInt(1)
var two = big.NewInt(2)

// Reduce returns the canonical non-negative representative of a in [0, p).
func Reduce(a, p *big.Int) *big.Int {
	r := new(big.Int).Mod(a, p)
	if r.Sign() < 0 {
		r.Add(r, p)
	}
	return r
}

// Signed returns the signed representative of a: values z >= ceil(p/2)+1 map
// to z - p. Used by relational operators in non-Aux (signal) mode.
func Signed(a, p *big.Int) *big.Int {
	r := Reduce(a, p)
	half := new(big.Int).Rsh(new(big.Int).Add(p, one), 1) // ceil(p/2)
	threshold := new(big.Int).Add(half, one)
	if r.Cmp(threshold) >= 0 {
		return new(big.Int).Sub(r, p)
	}
	return r
}

// EvaluateBinaryOp applies op to a, b modulo p using the signed-representative
// convention for relational operators, and the unsigned representative for
// everything else. aux selects the "integer mode" used by internally
// generated AuxBinaryOp predicates, where relational operators compare
// unsigned representatives instead.
func EvaluateBinaryOp(a, b *big.Int, p *big.Int, op Op, aux bool) *big.Int {
	switch op {
	case Add:
		return Reduce(new(big.Int).Add(a, b), p)
	case Sub:
		return Reduce(new(big.Int).Sub(a, b), p)
	case Mul:
		return Reduce(new(big.Int).Mul(a, b), p)
	case Pow:
		ua := Reduce(a, p)
		ub := Reduce(b, p)
		return new(big.Int).Exp(ua, ub, p)
	case Div:
		ua := Reduce(a, p)
		ub := Reduce(b, p)
		if ua.Sign() == 0 || ub.Sign() == 0 {
			return big.NewInt(0)
		}
		inv := new(big.Int).ModInverse(ub, p)
		return Reduce(new(big.Int).Mul(ua, inv), p)
	case IntDiv:
		ua := Reduce(a, p)
		ub := Reduce(b, p)
		if ua.Sign() == 0 || ub.Sign() == 0 {
			return big.NewInt(0)
		}
		return new(big.Int).Div(ua, ub)
	case Mod:
		ua := Reduce(a, p)
		ub := Reduce(b, p)
		if ua.Sign() == 0 || ub.Sign() == 0 {
			return big.NewInt(0)
		}
		return new(big.Int).Mod(ua, ub)
	case BitAnd:
		return new(big.Int).And(Reduce(a, p), Reduce(b, p))
	case BitOr:
		return new(big.Int).Or(Reduce(a, p), Reduce(b, p))
	case BitXor:
		return new(big.Int).Xor(Reduce(a, p), Reduce(b, p))
	case ShiftL:
		return Reduce(new(big.Int).Lsh(Reduce(a, p), uint(Reduce(b, p).Uint64())), p)
	case ShiftR:
		return new(big.Int).Rsh(Reduce(a, p), uint(Reduce(b, p).Uint64()))
	case Eq:
		return boolInt(Reduce(a, p).Cmp(Reduce(b, p)) == 0)
	case NotEq:
		return boolInt(Reduce(a, p).Cmp(Reduce(b, p)) != 0)
	case Lesser, Greater, LesserEq, GreaterEq:
		var x, y *big.Int
		if aux {
			x, y = Reduce(a, p), Reduce(b, p)
		} else {
			x, y = Signed(a, p), Signed(b, p)
		}
		cmp := x.Cmp(y)
		switch op {
		case Lesser:
			return boolInt(cmp < 0)
		case Greater:
			return boolInt(cmp > 0)
		case LesserEq:
			return boolInt(cmp <= 0)
		default:
			return boolInt(cmp >= 0)
		}
	case BoolAnd:
		return boolInt(isTrue(a) && isTrue(b))
	case BoolOr:
		return boolInt(isTrue(a) || isTrue(b))
	default:
		panic("field: unsupported binary operator")
	}
}

func boolInt(b bool) *big.Int {
	if b {
		return big.NewInt(1)
	}
	return big.NewInt(0)
}

func isTrue(v *big.Int) bool {
	return v.Sign() != 0
}

// ToBool coerces a field element to a boolean: b = (v mod p) != 0.
func ToBool(v, p *big.Int) bool {
	return Reduce(v, p).Sign() != 0
}

// FromBool coerces a boolean to a field element: true -> 1, false -> 0.
func FromBool(b bool) *big.Int {
	return boolInt(b)
}

// ExtendedEuclidean returns (g, x, y) such that a*x + b*y = g = gcd(a, b).
func ExtendedEuclidean(a, b *big.Int) (g, x, y *big.Int) {
	old_r, r := new(big.Int).Set(a), new(big.Int).Set(b)
	old_s, s := big.NewInt(1), big.NewInt(0)
	old_t, t := big.NewInt(0), big.NewInt(1)

	for r.Sign() != 0 {
		q := new(big.Int).Div(old_r, r)

		old_r, r = r, new(big.Int).Sub(old_r, new(big.Int).Mul(q, r))
		old_s, s = s, new(big.Int).Sub(old_s, new(big.Int).Mul(q, s))
		old_t, t = t, new(big.Int).Sub(old_t, new(big.Int).Mul(q, t))
	}
	return old_r, old_s, old_t
}

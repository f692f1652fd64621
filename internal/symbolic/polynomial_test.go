package symbolic

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zkfuzz/zkfuzz/internal/field"
)

func substituteConst(expr Value, target Name, c *big.Int, p *big.Int) Value {
	env := &fakeEnv{
		bindings: map[uint64]Value{target.ID: Int(c)},
		classes:  map[uint64]NameClass{target.ID: ClassVar},
	}
	return Simplify(expr, p, env, ConstantFolding(false))
}

func TestDegreeOfLinearAndQuadraticExpressions(t *testing.T) {
	p := big.NewInt(101)
	_ = p
	x := NewName(1, nil, nil)
	y := NewName(2, nil, nil)

	require.Equal(t, 0, Degree(IntI(5), x))
	require.Equal(t, 1, Degree(Var(x), x))
	require.Equal(t, 0, Degree(Var(y), x))

	linear := NewBinaryOp(Var(x), field.Mul, IntI(3))
	require.Equal(t, 1, Degree(linear, x))

	quadratic := NewBinaryOp(Var(x), field.Mul, Var(x))
	require.Equal(t, 2, Degree(quadratic, x))

	cubic := NewBinaryOp(quadratic, field.Mul, Var(x))
	require.Equal(t, 3, Degree(cubic, x))

	divByX := NewBinaryOp(IntI(1), field.Div, Var(x))
	require.Equal(t, MaxDegree, Degree(divByX, x))
}

func TestCoefficientExtractionRoundTrip(t *testing.T) {
	p := big.NewInt(101)
	x := NewName(1, nil, nil)

	exprs := []Value{
		IntI(7),
		Var(x),
		NewBinaryOp(Var(x), field.Mul, IntI(3)),
		NewBinaryOp(NewBinaryOp(Var(x), field.Mul, Var(x)), field.Add, NewBinaryOp(IntI(2), field.Mul, Var(x))),
		NewBinaryOp(IntI(5), field.Sub, NewBinaryOp(Var(x), field.Mul, Var(x))),
	}

	for _, e := range exprs {
		if Degree(e, x) > 2 {
			continue
		}
		coeffs := Coefficients(e, x, p)
		for _, tv := range []int64{0, 1, 2, 3, 16, 100} {
			t_ := big.NewInt(tv)

			lhs := substituteConst(e, x, t_, p)
			require.True(t, lhs.IsConstInt(), "expr should fold to a constant once x is bound")

			c0 := substituteConst(coeffs[0], x, t_, p)
			c1 := substituteConst(coeffs[1], x, t_, p)
			c2 := substituteConst(coeffs[2], x, t_, p)
			require.True(t, c0.IsConstInt())
			require.True(t, c1.IsConstInt())
			require.True(t, c2.IsConstInt())

			rhs := new(big.Int).Add(c0.Int, new(big.Int).Mul(c1.Int, t_))
			rhs.Add(rhs, new(big.Int).Mul(c2.Int, new(big.Int).Mul(t_, t_)))
			rhs = field.Reduce(rhs, p)

			require.Equal(t, field.Reduce(lhs.Int, p), rhs)
		}
	}
}

package concrete

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zkfuzz/zkfuzz/internal/field"
	"github.com/zkfuzz/zkfuzz/internal/symbolic"
)

func TestEvaluateUnboundVariableFailsClosed(t *testing.T) {
	p := big.NewInt(17)
	a := NewAssignment()
	name := symbolic.NewName(1, nil, nil)

	_, ok := Evaluate(p, symbolic.Var(name), a)
	require.False(t, ok)

	a.Set(name, symbolic.IntI(5))
	v, ok := Evaluate(p, symbolic.Var(name), a)
	require.True(t, ok)
	require.True(t, v.IsConstInt())
	require.Equal(t, big.NewInt(5), v.Int)
}

func TestEvaluateBinaryOpOverBoundVariables(t *testing.T) {
	p := big.NewInt(17)
	a := NewAssignment()
	x := symbolic.NewName(1, nil, nil)
	y := symbolic.NewName(2, nil, nil)
	a.Set(x, symbolic.IntI(5))
	a.Set(y, symbolic.IntI(9))

	expr := symbolic.NewBinaryOp(symbolic.Var(x), field.Add, symbolic.Var(y))
	v, ok := Evaluate(p, expr, a)
	require.True(t, ok)
	require.True(t, v.IsConstInt())
	require.Equal(t, big.NewInt(14), v.Int) // (5+9) mod 17 == 14
}

func TestEmulateTraceBindsWitnessAssignments(t *testing.T) {
	p := big.NewInt(17)
	a := NewAssignment()
	in := symbolic.NewName(1, nil, nil)
	inv := symbolic.NewName(2, nil, nil)
	a.Set(in, symbolic.IntI(5))

	// inv <-- 1/in
	rhs := symbolic.NewBinaryOp(symbolic.IntI(1), field.Div, symbolic.Var(in))
	trace := []symbolic.Value{symbolic.NewAssign(symbolic.Var(inv), rhs, false, nil)}

	outcome, ok := EmulateTrace(p, trace, nil, a)
	require.True(t, ok)
	require.True(t, outcome.Success)
	require.Equal(t, -1, outcome.FirstFailure)

	v, ok := a.Get(inv)
	require.True(t, ok)
	require.True(t, v.IsConstInt())
	// 1/5 mod 17: 5*7=35=2*17+1, so inverse of 5 is 7.
	require.Equal(t, big.NewInt(7), v.Int)
}

func TestEmulateTraceReportsFirstFailure(t *testing.T) {
	p := big.NewInt(17)
	a := NewAssignment()
	x := symbolic.NewName(1, nil, nil)
	a.Set(x, symbolic.IntI(3))

	// assert x == 4 -- false, should fail at index 1.
	trace := []symbolic.Value{
		symbolic.NewAssignEq(symbolic.Var(x), symbolic.IntI(3)), // satisfied, binds nothing new
		symbolic.NewBinaryOp(symbolic.Var(x), field.Eq, symbolic.IntI(4)),
	}
	outcome, ok := EmulateTrace(p, trace, nil, a)
	require.True(t, ok)
	require.False(t, outcome.Success)
	require.Equal(t, 1, outcome.FirstFailure)
}

func TestEmulateTraceRuntimeMutationBackPropagates(t *testing.T) {
	p := big.NewInt(17)
	a := NewAssignment()
	x := symbolic.NewName(1, nil, nil) // left unbound

	// x == 4, with position 0 marked runtime-mutable: back-propagate 4 into x.
	trace := []symbolic.Value{symbolic.NewBinaryOp(symbolic.Var(x), field.Eq, symbolic.IntI(4))}
	outcome, ok := EmulateTrace(p, trace, map[int]bool{0: true}, a)
	require.True(t, ok)
	require.True(t, outcome.Success)

	v, ok := a.Get(x)
	require.True(t, ok)
	require.Equal(t, big.NewInt(4), v.Int)
}

func TestEmulateTraceUnresolvedWithoutMutationFails(t *testing.T) {
	p := big.NewInt(17)
	a := NewAssignment()
	x := symbolic.NewName(1, nil, nil)

	trace := []symbolic.Value{symbolic.NewBinaryOp(symbolic.Var(x), field.Eq, symbolic.IntI(4))}
	_, ok := EmulateTrace(p, trace, nil, a)
	require.False(t, ok)
}

func TestEmulateTraceBothSidesFreeIsNoOp(t *testing.T) {
	p := big.NewInt(17)
	a := NewAssignment()
	x := symbolic.NewName(1, nil, nil)
	y := symbolic.NewName(2, nil, nil)

	trace := []symbolic.Value{symbolic.NewBinaryOp(symbolic.Var(x), field.Eq, symbolic.Var(y))}
	_, ok := EmulateTrace(p, trace, map[int]bool{0: true}, a)
	require.False(t, ok)

	if _, bound := a.Get(x); bound {
		t.Fatalf("x should not have been bound when both sides are free")
	}
	if _, bound := a.Get(y); bound {
		t.Fatalf("y should not have been bound when both sides are free")
	}
}

package unused

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zkfuzz/zkfuzz/internal/field"
	"github.com/zkfuzz/zkfuzz/internal/symbolic"
)

func TestFindFlagsOutputAbsentFromSideConstraints(t *testing.T) {
	out := symbolic.NewName(1, nil, nil)
	unused := symbolic.NewName(2, nil, nil)
	outputs := map[uint64]bool{out.ID: true, unused.ID: true}

	side := []symbolic.Value{
		symbolic.NewBinaryOp(symbolic.Var(out), field.Eq, symbolic.IntI(1)),
	}

	witnesses := Find(side, outputs)
	require.Len(t, witnesses, 1)
	require.Equal(t, unused.ID, witnesses[0].OutputID)
}

func TestFindReturnsEmptyWhenAllOutputsReferenced(t *testing.T) {
	a := symbolic.NewName(1, nil, nil)
	b := symbolic.NewName(2, nil, nil)
	outputs := map[uint64]bool{a.ID: true, b.ID: true}

	side := []symbolic.Value{
		symbolic.NewBinaryOp(symbolic.Var(a), field.Eq, symbolic.Var(b)),
	}
	require.Empty(t, Find(side, outputs))
}

func TestFindTraversesNestedExpressionShapes(t *testing.T) {
	out := symbolic.NewName(1, nil, nil)
	outputs := map[uint64]bool{out.ID: true}

	// Conditional wraps a UnaryOp wraps a BinaryOp referencing the output.
	inner := symbolic.NewBinaryOp(symbolic.Var(out), field.Add, symbolic.IntI(1))
	un := symbolic.NewUnaryOp(symbolic.UnarySub, inner)
	cond := symbolic.NewConditional(symbolic.Bool_(true), un, symbolic.IntI(0))

	require.Empty(t, Find([]symbolic.Value{cond}, outputs))
}

func TestFindTraversesArrayAndCallShapes(t *testing.T) {
	out := symbolic.NewName(1, nil, nil)
	outputs := map[uint64]bool{out.ID: true}

	arr := symbolic.NewArray([]symbolic.Value{symbolic.IntI(0), symbolic.Var(out)})
	require.Empty(t, Find([]symbolic.Value{arr}, outputs))

	call := symbolic.NewCall(7, []symbolic.Value{symbolic.Var(out)})
	require.Empty(t, Find([]symbolic.Value{call}, outputs))
}

func TestFindOnEmptySideFlagsEveryOutput(t *testing.T) {
	out := symbolic.NewName(1, nil, nil)
	outputs := map[uint64]bool{out.ID: true}
	witnesses := Find(nil, outputs)
	require.Len(t, witnesses, 1)
	require.Equal(t, out.ID, witnesses[0].OutputID)
}

package search

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zkfuzz/zkfuzz/internal/ast"
	"github.com/zkfuzz/zkfuzz/internal/field"
	"github.com/zkfuzz/zkfuzz/internal/mutationcfg"
	"github.com/zkfuzz/zkfuzz/internal/namepool"
	"github.com/zkfuzz/zkfuzz/internal/symbolic"
	"github.com/zkfuzz/zkfuzz/internal/symlib"
	"github.com/zkfuzz/zkfuzz/internal/trace"
	"github.com/zkfuzz/zkfuzz/internal/verify"
)

func TestInputsCloneIsIndependent(t *testing.T) {
	x := symbolic.NewName(1, nil, nil)
	in := newInputs()
	in.Set(x, symbolic.IntI(1))
	clone := in.Clone()
	clone.Set(x, symbolic.IntI(2))

	inVal, _ := in.Get(x)
	cloneVal, _ := clone.Get(x)
	require.Equal(t, symbolic.IntI(1), inVal)
	require.Equal(t, symbolic.IntI(2), cloneVal)
}

func TestEligiblePositionsSkipsSafeAssignsUnlessNaive(t *testing.T) {
	unsafe := symbolic.NewAssign(symbolic.IntI(0), symbolic.IntI(1), false, nil)
	safe := symbolic.NewAssign(symbolic.IntI(0), symbolic.IntI(1), true, nil)
	trc := []symbolic.Value{unsafe, safe}

	require.Equal(t, []int{0}, eligiblePositions(trc, mutationcfg.MethodConstant))
	require.Equal(t, []int{0, 1}, eligiblePositions(trc, mutationcfg.MethodNaive))
}

func TestEligiblePositionsIncludesMutableAssignCall(t *testing.T) {
	mutableCall := symbolic.NewAssignCall(symbolic.IntI(0), symbolic.IntI(1), true)
	fixedCall := symbolic.NewAssignCall(symbolic.IntI(0), symbolic.IntI(1), false)
	trc := []symbolic.Value{mutableCall, fixedCall}

	require.Equal(t, []int{0}, eligiblePositions(trc, mutationcfg.MethodConstant))
}

func TestApplyGeneOverlaysWithoutMutatingOriginal(t *testing.T) {
	trc := []symbolic.Value{symbolic.IntI(1), symbolic.IntI(2)}
	out := applyGene(trc, Gene{1: symbolic.IntI(99)})

	require.Equal(t, symbolic.IntI(1), out[0])
	require.Equal(t, symbolic.IntI(99), out[1])
	require.Equal(t, symbolic.IntI(2), trc[1], "original trace slice must be untouched")
}

func TestApplyGeneEmptyReturnsSameSlice(t *testing.T) {
	trc := []symbolic.Value{symbolic.IntI(1)}
	out := applyGene(trc, Gene{})
	require.Equal(t, trc, out)
}

// TestEvaluateOverConstrainedOnEmptyGene covers evaluate's direct
// OverConstrained cell: an unmutated trace binds a witness the
// side constraints reject.
func TestEvaluateOverConstrainedOnEmptyGene(t *testing.T) {
	p := big.NewInt(17)
	in := symbolic.NewName(1, nil, nil)
	out := symbolic.NewName(2, nil, nil)

	trc := []symbolic.Value{symbolic.NewAssign(symbolic.Var(out), symbolic.Var(in), false, nil)}
	side := []symbolic.Value{symbolic.NewBinaryOp(symbolic.Var(out), field.Eq, symbolic.IntI(99))}

	d := &Driver{Modulus: p, Trace: trc, Side: side}
	inputs := newInputs()
	inputs.Set(in, symbolic.IntI(5))

	fit, ce := d.evaluate(Gene{}, inputs)
	require.NotNil(t, ce)
	require.Equal(t, FoundOverConstrained, ce.kind)
	require.Equal(t, 0.0, fit.score)
}

// TestEvaluateWellConstrainedReturnsNoCounterexample covers the satisfied
// path: an empty gene whose trace and side constraints agree scores a zero
// error and reports no bug.
func TestEvaluateWellConstrainedReturnsNoCounterexample(t *testing.T) {
	p := big.NewInt(17)
	in := symbolic.NewName(1, nil, nil)
	out := symbolic.NewName(2, nil, nil)

	assign := symbolic.NewAssignEq(symbolic.Var(out), symbolic.Var(in))
	trc := []symbolic.Value{assign}
	side := []symbolic.Value{assign}

	d := &Driver{Modulus: p, Trace: trc, Side: side}
	inputs := newInputs()
	inputs.Set(in, symbolic.IntI(5))

	fit, ce := d.evaluate(Gene{}, inputs)
	require.Nil(t, ce)
	require.Equal(t, 0.0, fit.score)
}

// TestEvaluateIllegalSubscriptScoresNegative covers the emulation-failure
// branch: a trace that cannot even resolve a witness reports a negative
// score and the illegal-subscript flag.
func TestEvaluateIllegalSubscriptScoresNegative(t *testing.T) {
	p := big.NewInt(17)
	x := symbolic.NewName(1, nil, nil) // never bound
	y := symbolic.NewName(2, nil, nil) // never bound

	trc := []symbolic.Value{symbolic.NewBinaryOp(symbolic.Var(x), field.Eq, symbolic.Var(y))}
	d := &Driver{Modulus: p, Trace: trc, Side: nil}

	fit, ce := d.evaluate(Gene{}, Inputs{})
	require.Nil(t, ce)
	require.True(t, fit.illegalSubscript)
	require.Less(t, fit.score, 0.0)
}

// TestDriverRunFindsOverConstrainedImmediately covers Run end-to-end on
// a trivial driver where the baseline (empty-gene) generation already
// exposes the bug, so Run must return on generation 0 without needing any
// mutation.
func TestDriverRunFindsOverConstrainedImmediately(t *testing.T) {
	p := big.NewInt(17)
	names := namepool.New()
	lib := symlib.NewLibrary(names, false, nil)
	tmplID := lib.RegisterTemplate("T", nil, ast.Statement{Kind: ast.Block})
	tmpl, _ := lib.Template(tmplID)

	in := symbolic.NewName(1, nil, nil)
	out := symbolic.NewName(2, nil, nil)
	neverBound := symbolic.NewName(3, nil, nil)
	trc := []symbolic.Value{symbolic.NewAssign(symbolic.Var(out), symbolic.Var(in), false, nil)}
	// Side references a name no candidate input ever binds, so it can never
	// resolve satisfied regardless of which random `in` the driver draws -
	// keeping this test deterministic without depending on the RNG stream.
	side := []symbolic.Value{symbolic.NewBinaryOp(symbolic.Var(out), field.Eq, symbolic.Var(neverBound))}

	cfg := mutationcfg.Default()
	cfg.MaxGenerations = 5
	cfg.ProgramPopulationSize = 1
	cfg.InputPopulationSize = 1

	d := NewDriver(p, trc, side, []symbolic.Name{in}, []symbolic.Name{out}, tmpl, nil, cfg, 1, trace.New())
	outcome := d.Run(1)
	require.Equal(t, FoundOverConstrained, outcome.Kind)
}

// TestSearchOutcomeSurvivesVerification: whenever Run returns a
// counterexample, feeding its assignment back through the verification
// oracle must reproduce a matching vulnerable outcome.
func TestSearchOutcomeSurvivesVerification(t *testing.T) {
	p := big.NewInt(17)
	names := namepool.New()
	lib := symlib.NewLibrary(names, false, nil)
	tmplID := lib.RegisterTemplate("T", nil, ast.Statement{Kind: ast.Block})
	tmpl, _ := lib.Template(tmplID)

	in := symbolic.NewName(1, nil, nil)
	out := symbolic.NewName(2, nil, nil)
	neverBound := symbolic.NewName(3, nil, nil)
	trc := []symbolic.Value{symbolic.NewAssign(symbolic.Var(out), symbolic.Var(in), false, nil)}
	side := []symbolic.Value{symbolic.NewBinaryOp(symbolic.Var(out), field.Eq, symbolic.Var(neverBound))}

	cfg := mutationcfg.Default()
	cfg.MaxGenerations = 5
	cfg.ProgramPopulationSize = 2
	cfg.InputPopulationSize = 2

	d := NewDriver(p, trc, side, []symbolic.Name{in}, []symbolic.Name{out}, tmpl, nil, cfg, 7, trace.New())
	outcome := d.Run(7)
	require.Equal(t, FoundOverConstrained, outcome.Kind)

	result := verify.Verify(tmpl, trc, side, outcome.Inputs.ToAssignment(), verify.Config{Modulus: p})
	require.Equal(t, verify.OverConstrained, result.Kind)
}

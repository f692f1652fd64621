// Package executor implements the symbolic executor: a
// single-threaded recursive AST walker that produces, for every reachable
// control-flow path, a final symstate.State carrying an operational trace
// and a declarative side-constraint set.
//
// Branching (IfThenElse, component firing) is modeled as multiple in-flight continuations threaded through each
// handler: a statement is executed against a slice of candidate states and
// returns the slice of states that result, rather than a single state -
// Block simply flat-maps its children over that slice.
package executor

import (
	"math/big"

	"github.com/zkfuzz/zkfuzz/internal/ast"
	"github.com/zkfuzz/zkfuzz/internal/field"
	"github.com/zkfuzz/zkfuzz/internal/invariant"
	"github.com/zkfuzz/zkfuzz/internal/namepool"
	"github.com/zkfuzz/zkfuzz/internal/symbolic"
	"github.com/zkfuzz/zkfuzz/internal/symlib"
	"github.com/zkfuzz/zkfuzz/internal/symstate"
)

// Config carries the executor-owned feature flags for a run.
type Config struct {
	KeepTrackConstraints        bool // push branch conditions to trace+side
	PropagateAssignments        bool // adopt a fired sub-component's bindings
	SkipInitializationBlocks    bool // skip input-signal declarations inside InitializationBlock
	FlagSymbolicTemplateParams  bool // treat unresolved template params as symbolic rather than erroring
	ConstraintAssertDisabled    bool // Assert statements become no-ops
}

// DefaultConfig mirrors the CLI's defaults: full constraint
// tracking and assignment propagation on, nothing disabled.
func DefaultConfig() Config {
	return Config{KeepTrackConstraints: true, PropagateAssignments: true}
}

// Executor walks a template or function body against a symlib.Library under
// a fixed field modulus. It is stateless between Run calls - all mutable
// state lives in the symstate.State values threaded through the walk.
type Executor struct {
	Lib     *symlib.Library
	Modulus *big.Int
	Cfg     Config
}

// New creates an Executor.
func New(lib *symlib.Library, modulus *big.Int, cfg Config) *Executor {
	return &Executor{Lib: lib, Modulus: modulus, Cfg: cfg}
}

// Run executes body against the initial state st and returns every final
// state reached.
func (e *Executor) Run(body ast.Statement, st *symstate.State) []*symstate.State {
	return e.execStatement(body, st)
}

// execStatement dispatches on stmt.Kind, returning the set of continuation
// states reached after executing it from st.
func (e *Executor) execStatement(stmt ast.Statement, st *symstate.State) []*symstate.State {
	switch stmt.Kind {
	case ast.Declaration:
		return e.execDeclaration(stmt, st)
	case ast.InitializationBlock:
		return e.execInitializationBlock(stmt, st)
	case ast.Block:
		return e.execBlock(stmt.Children, st)
	case ast.IfThenElse:
		return e.execIfThenElse(stmt, st)
	case ast.While:
		return e.execWhile(stmt, st)
	case ast.Return:
		return e.execReturn(stmt, st)
	case ast.ConstraintEquality:
		return e.execConstraintEquality(stmt, st)
	case ast.Assert:
		return e.execAssert(stmt, st)
	case ast.Substitution:
		return e.execSubstitution(stmt, st)
	case ast.MultSubstitution:
		return e.execMultSubstitution(stmt, st)
	case ast.UnderscoreSubstitution:
		return e.execUnderscoreSubstitution(stmt, st)
	case ast.LogCall:
		return []*symstate.State{st}
	default:
		invariant.Check(false, "executor: unhandled statement kind %d", stmt.Kind)
		return nil
	}
}

// execBlock flat-maps children over the running state set, letting each
// statement fork the set further.
func (e *Executor) execBlock(children []ast.Statement, st *symstate.State) []*symstate.State {
	states := []*symstate.State{st}
	for _, child := range children {
		var next []*symstate.State
		for _, s := range states {
			next = append(next, e.execStatement(child, s)...)
		}
		states = next
	}
	return states
}

// execDeclaration registers the declared type and binds the name to a free
// Variable placeholder, unless the name is a signal input that already
// holds a value (a fired component's input, bound before its body runs).
func (e *Executor) execDeclaration(stmt ast.Statement, st *symstate.State) []*symstate.State {
	if e.Cfg.SkipInitializationBlocks && st.InInitBlock && stmt.VarType == ast.TypeSignalInput {
		return []*symstate.State{st}
	}
	id := e.Lib.Names.Intern(stmt.DeclName)
	st.DeclareType(id, stmt.VarType)
	name := st.Qualify(id, nil)
	if _, bound := st.Bindings.Get(name); bound && stmt.VarType == ast.TypeSignalInput {
		return []*symstate.State{st}
	}
	st.Bindings.Set(name, symbolic.Var(name))
	return []*symstate.State{st}
}

// execInitializationBlock marks InInitBlock for the duration of its
// children, executed as singleton blocks.
func (e *Executor) execInitializationBlock(stmt ast.Statement, st *symstate.State) []*symstate.State {
	st.InInitBlock = true
	states := []*symstate.State{st}
	for _, child := range stmt.Children {
		var next []*symstate.State
		for _, s := range states {
			next = append(next, e.execStatement(child, s)...)
		}
		states = next
	}
	for _, s := range states {
		s.InInitBlock = false
	}
	return states
}

// execIfThenElse evaluates and constant-folds the condition; a statically
// resolved condition takes only the live branch, a symbolic one forks the
// state and pushes the (negated, for the else arm) condition to trace/side
// when KeepTrackConstraints is set.
func (e *Executor) execIfThenElse(stmt ast.Statement, st *symstate.State) []*symstate.State {
	cond := symbolic.Simplify(e.evalExpr(*stmt.Condition, st), e.Modulus, st, symbolic.ConstantFolding(true))

	if cond.IsConstBool() {
		if cond.Bool {
			return e.execStatement(*stmt.ThenBlock, st)
		}
		if stmt.ElseBlock != nil {
			return e.execStatement(*stmt.ElseBlock, st)
		}
		return []*symstate.State{st}
	}

	thenState := st.Clone()
	elseState := st.Clone()
	if e.Cfg.KeepTrackConstraints {
		neg := symbolic.Negate(cond)
		thenState.PushTraceConstraint(cond)
		thenState.PushSideConstraint(cond)
		elseState.PushTraceConstraint(neg)
		elseState.PushSideConstraint(neg)
	}

	thenStates := e.execStatement(*stmt.ThenBlock, thenState)
	var elseStates []*symstate.State
	if stmt.ElseBlock != nil {
		elseStates = e.execStatement(*stmt.ElseBlock, elseState)
	} else {
		elseStates = []*symstate.State{elseState}
	}
	return append(thenStates, elseStates...)
}

// execWhile simplifies the condition; a statically true condition executes
// the body and re-enters the loop on every resulting state, a statically
// false one falls through, and a symbolic one marks HasSymbolicLoop and
// skips the loop body entirely.
func (e *Executor) execWhile(stmt ast.Statement, st *symstate.State) []*symstate.State {
	cond := symbolic.Simplify(e.evalExpr(*stmt.WhileCond, st), e.Modulus, st, symbolic.ConstantFolding(true))

	if !cond.IsConstBool() {
		st.HasSymbolicLoop = true
		return []*symstate.State{st}
	}
	if !cond.Bool {
		return []*symstate.State{st}
	}

	bodyStates := e.execStatement(*stmt.Body, st)
	var out []*symstate.State
	for _, s := range bodyStates {
		out = append(out, e.execWhile(stmt, s)...)
	}
	return out
}

// execReturn stores the evaluated expression under the function-return
// sentinel name.
func (e *Executor) execReturn(stmt ast.Statement, st *symstate.State) []*symstate.State {
	if stmt.ReturnExpr == nil {
		return []*symstate.State{st}
	}
	v := e.evalExpr(*stmt.ReturnExpr, st)
	v = symbolic.Simplify(v, e.Modulus, st, symbolic.FullSubstitution())
	retName := st.Qualify(namepool.RETURN_ID, nil)
	st.Bindings.Set(retName, v)
	return []*symstate.State{st}
}

// execConstraintEquality pushes lhe==rhe into both trace and side
// constraints.
func (e *Executor) execConstraintEquality(stmt ast.Statement, st *symstate.State) []*symstate.State {
	lhs := e.simplifyExpr(*stmt.Lhe, st)
	rhs := e.simplifyExpr(*stmt.Rhe2, st)
	eq := symbolic.NewBinaryOp(lhs, field.Eq, rhs)
	st.PushTraceConstraint(eq)
	st.PushSideConstraint(eq)
	return []*symstate.State{st}
}

// execAssert pushes the asserted predicate into trace only, unless assert
// checking has been disabled.
func (e *Executor) execAssert(stmt ast.Statement, st *symstate.State) []*symstate.State {
	if e.Cfg.ConstraintAssertDisabled {
		return []*symstate.State{st}
	}
	v := e.simplifyExpr(*stmt.AssertExpr, st)
	st.PushTraceConstraint(v)
	return []*symstate.State{st}
}

func (e *Executor) evalExpr(expr ast.Expression, st *symstate.State) symbolic.Value {
	return translateExpr(expr, st, e)
}

func (e *Executor) simplifyExpr(expr ast.Expression, st *symstate.State) symbolic.Value {
	v := e.evalExpr(expr, st)
	return symbolic.Simplify(v, e.Modulus, st, symbolic.FullSubstitution())
}

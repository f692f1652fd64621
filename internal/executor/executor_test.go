package executor

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zkfuzz/zkfuzz/internal/ast"
	"github.com/zkfuzz/zkfuzz/internal/field"
	"github.com/zkfuzz/zkfuzz/internal/namepool"
	"github.com/zkfuzz/zkfuzz/internal/symbolic"
	"github.com/zkfuzz/zkfuzz/internal/symlib"
	"github.com/zkfuzz/zkfuzz/internal/symstate"
)

func numExpr(n int64) ast.Expression { return ast.Expression{Kind: ast.Number, Value: big.NewInt(n)} }
func varExpr(name string) ast.Expression {
	return ast.Expression{Kind: ast.VariableExpr, Name: name}
}
func infix(op string, l, r ast.Expression) ast.Expression {
	return ast.Expression{Kind: ast.InfixOp, Op: op, Lhs: &l, Rhs: &r}
}
func callExpr(callee string, args ...ast.Expression) ast.Expression {
	return ast.Expression{Kind: ast.CallExpr, Callee: callee, Args: args}
}
func decl(vt ast.VarType, name string) ast.Statement {
	return ast.Statement{Kind: ast.Declaration, VarType: vt, DeclName: name}
}
func sub(name string, op ast.SubOp, rhe ast.Expression) ast.Statement {
	return ast.Statement{Kind: ast.Substitution, TargetName: name, SubOperator: op, Rhe: &rhe}
}
func compFieldSub(target, compField string, op ast.SubOp, rhe ast.Expression) ast.Statement {
	return ast.Statement{
		Kind: ast.Substitution, TargetName: target,
		TargetAccess: []ast.Access{{Kind: ast.ComponentAccess, Component: compField}},
		SubOperator:  op, Rhe: &rhe,
	}
}
func block(stmts ...ast.Statement) ast.Statement {
	return ast.Statement{Kind: ast.Block, Children: stmts}
}

func runMain(t *testing.T, lib *symlib.Library, mainID uint64, p *big.Int) []*symstate.State {
	t.Helper()
	tmpl, ok := lib.Template(mainID)
	require.True(t, ok)
	exec := New(lib, p, DefaultConfig())
	st := symstate.NewState(symstate.DeclEnv(tmpl.DeclaredTypes))
	st.TemplateID = mainID
	return exec.Run(tmpl.Body, st)
}

// TestComponentFiring: a component whose
// inputs are bound one assignment at a time fires on the second assignment,
// and the parent's trace picks up the fired sub-component's AssignEq node.
func TestComponentFiring(t *testing.T) {
	p := big.NewInt(17)
	names := namepool.New()
	lib := symlib.NewLibrary(names, false, nil)

	tBody := block(
		decl(ast.TypeSignalInput, "a"),
		decl(ast.TypeSignalInput, "b"),
		decl(ast.TypeSignalOutput, "c"),
		sub("c", ast.SubConstraint, infix("+", varExpr("a"), varExpr("b"))),
	)
	mainBody := block(
		decl(ast.TypeComponent, "t"),
		sub("t", ast.SubEqual, callExpr("T")),
		compFieldSub("t", "a", ast.SubConstraint, numExpr(2)),
		compFieldSub("t", "b", ast.SubConstraint, numExpr(3)),
	)

	lib.RegisterTemplate("T", nil, tBody)
	mainID := lib.RegisterTemplate("Main", nil, mainBody)

	finals := runMain(t, lib, mainID, p)
	require.Len(t, finals, 1)

	found := false
	for _, v := range finals[0].Trace {
		if v.Kind == symbolic.AssignEq && v.Rhs.IsConstInt() && v.Rhs.Int.Cmp(big.NewInt(5)) == 0 {
			found = true
		}
	}
	require.True(t, found, "expected an AssignEq(.., 5) node in the parent trace after T fires")
}

// TestLessThanInjection: firing a component
// named "LessThan" synthesizes the comparator constraint
// (1==out && in[0]<in[1]) || (0==out && in[0]>=in[1]).
func TestLessThanInjection(t *testing.T) {
	p := big.NewInt(17)
	names := namepool.New()
	lib := symlib.NewLibrary(names, false, nil)

	ltBody := block(
		decl(ast.TypeSignalOutput, "out"),
	)
	mainBody := block(
		decl(ast.TypeComponent, "lt"),
		sub("lt", ast.SubEqual, callExpr("LessThan")),
		compFieldSub("lt", "in", ast.SubConstraint, numExpr(3)),
	)

	lib.RegisterTemplate("LessThan", nil, ltBody)
	mainID := lib.RegisterTemplate("Main", nil, mainBody)
	tmpl, ok := lib.Template(names.Intern("LessThan"))
	require.True(t, ok)
	require.True(t, tmpl.IsLessThan)

	finals := runMain(t, lib, mainID, p)
	require.Len(t, finals, 1)

	foundBoolOr := false
	for _, v := range finals[0].Trace {
		if v.Kind == symbolic.BinaryOp && v.Op == field.BoolOr {
			foundBoolOr = true
		}
	}
	require.True(t, foundBoolOr, "expected the synthesized LessThan disjunction in the fired component's trace")
}

// TestDeclarationBindsFreeVariable checks the Declaration handler:
// a declared name is bound to a free Variable placeholder under the current
// owner stack.
func TestDeclarationBindsFreeVariable(t *testing.T) {
	p := big.NewInt(17)
	names := namepool.New()
	lib := symlib.NewLibrary(names, false, nil)
	body := block(decl(ast.TypeVar, "x"))
	mainID := lib.RegisterTemplate("Main", nil, body)

	finals := runMain(t, lib, mainID, p)
	require.Len(t, finals, 1)

	id := names.Intern("x")
	v, ok := finals[0].Bindings.Get(symbolic.NewName(id, nil, nil))
	require.True(t, ok)
	require.Equal(t, symbolic.Variable, v.Kind)
}

// TestIfThenElseForksOnSymbolicCondition checks the IfThenElse
// handler: a condition that depends on a free input forks into two states,
// each carrying the (possibly negated) condition in trace and side.
func TestIfThenElseForksOnSymbolicCondition(t *testing.T) {
	p := big.NewInt(17)
	names := namepool.New()
	lib := symlib.NewLibrary(names, false, nil)

	thenBlock := sub("y", ast.SubConstraint, numExpr(1))
	elseBlock := sub("y", ast.SubConstraint, numExpr(0))
	body := block(
		decl(ast.TypeSignalInput, "x"),
		decl(ast.TypeSignalOutput, "y"),
		ast.Statement{
			Kind: ast.IfThenElse,
			Condition: func() *ast.Expression {
				e := infix(">", varExpr("x"), numExpr(5))
				return &e
			}(),
			ThenBlock: &thenBlock,
			ElseBlock: &elseBlock,
		},
	)
	mainID := lib.RegisterTemplate("Main", nil, body)

	finals := runMain(t, lib, mainID, p)
	require.Len(t, finals, 2)
}

package executor

import (
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zkfuzz/zkfuzz/internal/ast"
	"github.com/zkfuzz/zkfuzz/internal/namepool"
	"github.com/zkfuzz/zkfuzz/internal/symbolic"
	"github.com/zkfuzz/zkfuzz/internal/symlib"
)

func declDims(vt ast.VarType, name string, dims ...ast.Expression) ast.Statement {
	return ast.Statement{Kind: ast.Declaration, VarType: vt, DeclName: name, Dimensions: dims}
}

func arrExpr(elems ...ast.Expression) ast.Expression {
	return ast.Expression{Kind: ast.ArrayInLine, Elements: elems}
}

func ifStmt(cond ast.Expression, then, els ast.Statement) ast.Statement {
	return ast.Statement{Kind: ast.IfThenElse, Condition: &cond, ThenBlock: &then, ElseBlock: &els}
}

// TestExecutorDeterminism: running the executor twice on the same AST must
// produce byte-identical rendered trace and side-constraint lists, including
// across forked branch states.
func TestExecutorDeterminism(t *testing.T) {
	p := big.NewInt(17)
	render := func() string {
		names := namepool.New()
		lib := symlib.NewLibrary(names, false, nil)
		body := block(
			decl(ast.TypeSignalInput, "x"),
			decl(ast.TypeSignalOutput, "y"),
			ifStmt(infix(">", varExpr("x"), numExpr(5)),
				sub("y", ast.SubConstraint, numExpr(1)),
				sub("y", ast.SubConstraint, numExpr(0)),
			),
		)
		mainID := lib.RegisterTemplate("Main", nil, body)
		finals := runMain(t, lib, mainID, p)

		var sb strings.Builder
		for _, f := range finals {
			for _, v := range f.Trace {
				sb.WriteString(symbolic.LookupFmt(v, names))
				sb.WriteByte('\n')
			}
			sb.WriteString("--\n")
			for _, v := range f.SideConstraints {
				sb.WriteString(symbolic.LookupFmt(v, names))
				sb.WriteByte('\n')
			}
			sb.WriteString("==\n")
		}
		return sb.String()
	}

	first := render()
	require.NotEmpty(t, first)
	require.Equal(t, first, render())
}

// TestArrayLiteralSubstitutionBindsEverySlot: assigning a nested array
// literal to a name declared with shape [2][3] binds every slot m[i][j] to
// the literal value at (i, j).
func TestArrayLiteralSubstitutionBindsEverySlot(t *testing.T) {
	p := big.NewInt(17)
	names := namepool.New()
	lib := symlib.NewLibrary(names, false, nil)

	body := block(
		declDims(ast.TypeVar, "m", numExpr(2), numExpr(3)),
		sub("m", ast.SubEqual, arrExpr(
			arrExpr(numExpr(1), numExpr(2), numExpr(3)),
			arrExpr(numExpr(4), numExpr(5), numExpr(6)),
		)),
	)
	mainID := lib.RegisterTemplate("Main", nil, body)

	finals := runMain(t, lib, mainID, p)
	require.Len(t, finals, 1)

	id := names.Intern("m")
	want := int64(1)
	for i := int64(0); i < 2; i++ {
		for j := int64(0); j < 3; j++ {
			n := symbolic.NewName(id, nil, []symbolic.Access{
				{Kind: symbolic.ArrayAccess, Index: symbolic.IntI(i)},
				{Kind: symbolic.ArrayAccess, Index: symbolic.IntI(j)},
			})
			v, ok := finals[0].Bindings.Get(n)
			require.True(t, ok, "m[%d][%d] unbound", i, j)
			require.True(t, v.IsConstInt())
			require.EqualValues(t, want, v.Int.Int64(), "m[%d][%d]", i, j)
			want++
		}
	}
}

// TestBulkAssignmentMirrorsVariableRhs: assigning a bare variable to a name
// whose declared dimensionality exceeds the supplied access fans out
// element-wise, mirroring the index chain onto the rhs.
func TestBulkAssignmentMirrorsVariableRhs(t *testing.T) {
	p := big.NewInt(17)
	names := namepool.New()
	lib := symlib.NewLibrary(names, false, nil)

	body := block(
		declDims(ast.TypeSignalInput, "b", numExpr(2)),
		declDims(ast.TypeVar, "a", numExpr(2)),
		sub("a", ast.SubEqual, varExpr("b")),
	)
	mainID := lib.RegisterTemplate("Main", nil, body)

	finals := runMain(t, lib, mainID, p)
	require.Len(t, finals, 1)

	aID := names.Intern("a")
	bID := names.Intern("b")
	for i := int64(0); i < 2; i++ {
		idx := []symbolic.Access{{Kind: symbolic.ArrayAccess, Index: symbolic.IntI(i)}}
		v, ok := finals[0].Bindings.Get(symbolic.NewName(aID, nil, idx))
		require.True(t, ok, "a[%d] unbound", i)
		require.Equal(t, symbolic.Variable, v.Kind)
		require.True(t, v.Name.Equal(symbolic.NewName(bID, nil, idx)), "a[%d] should mirror b[%d]", i, i)
	}
}

package symlib

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zkfuzz/zkfuzz/internal/ast"
	"github.com/zkfuzz/zkfuzz/internal/namepool"
)

func blockStmt(stmts ...ast.Statement) ast.Statement {
	return ast.Statement{Kind: ast.Block, Children: stmts}
}
func declStmt(vt ast.VarType, name string) ast.Statement {
	return ast.Statement{Kind: ast.Declaration, VarType: vt, DeclName: name}
}

func TestRegisterTemplateCollectsInputsAndOutputs(t *testing.T) {
	names := namepool.New()
	lib := NewLibrary(names, false, nil)

	body := blockStmt(
		declStmt(ast.TypeSignalInput, "a"),
		declStmt(ast.TypeSignalInput, "b"),
		declStmt(ast.TypeSignalOutput, "c"),
		declStmt(ast.TypeVar, "tmp"),
	)
	id := lib.RegisterTemplate("Adder", []string{"p"}, body)

	tmpl, ok := lib.Template(id)
	require.True(t, ok)
	require.Len(t, tmpl.Params, 1)
	require.Len(t, tmpl.Inputs, 2)
	require.Len(t, tmpl.Outputs, 1)
	require.Contains(t, tmpl.Inputs, names.Intern("a"))
	require.Contains(t, tmpl.Inputs, names.Intern("b"))
	require.Contains(t, tmpl.Outputs, names.Intern("c"))
	require.NotContains(t, tmpl.Outputs, names.Intern("tmp"))
}

func TestRegisterTemplateAppendsSyntheticReturn(t *testing.T) {
	names := namepool.New()
	lib := NewLibrary(names, false, nil)

	id := lib.RegisterTemplate("Empty", nil, blockStmt())
	tmpl, ok := lib.Template(id)
	require.True(t, ok)
	require.NotEmpty(t, tmpl.Body.Children)
	last := tmpl.Body.Children[len(tmpl.Body.Children)-1]
	require.Equal(t, ast.Return, last.Kind)
}

func TestRegisterTemplateWrapsNonBlockBody(t *testing.T) {
	names := namepool.New()
	lib := NewLibrary(names, false, nil)

	single := declStmt(ast.TypeVar, "x")
	id := lib.RegisterTemplate("Single", nil, single)
	tmpl, ok := lib.Template(id)
	require.True(t, ok)
	require.Equal(t, ast.Block, tmpl.Body.Kind)
	require.Len(t, tmpl.Body.Children, 2)
	require.Equal(t, ast.Return, tmpl.Body.Children[1].Kind)
}

func TestRegisterTemplateFlagsLessThan(t *testing.T) {
	names := namepool.New()
	lib := NewLibrary(names, false, nil)

	id := lib.RegisterTemplate("LessThan", nil, blockStmt())
	tmpl, ok := lib.Template(id)
	require.True(t, ok)
	require.True(t, tmpl.IsLessThan)
}

func TestRegisterTemplateDisableLessThanSuppressesFlag(t *testing.T) {
	names := namepool.New()
	lib := NewLibrary(names, true, nil)

	id := lib.RegisterTemplate("LessThan", nil, blockStmt())
	tmpl, ok := lib.Template(id)
	require.True(t, ok)
	require.False(t, tmpl.IsLessThan)
}

func TestRegisterTemplateWhitelistMarksSafe(t *testing.T) {
	names := namepool.New()
	lib := NewLibrary(names, false, []string{"Trusted"})

	safeID := lib.RegisterTemplate("Trusted", nil, blockStmt())
	safe, ok := lib.Template(safeID)
	require.True(t, ok)
	require.True(t, safe.IsSafe)

	otherID := lib.RegisterTemplate("Other", nil, blockStmt())
	other, ok := lib.Template(otherID)
	require.True(t, ok)
	require.False(t, other.IsSafe)
}

func TestNextFunctionCounterIncrementsPerFunction(t *testing.T) {
	names := namepool.New()
	lib := NewLibrary(names, false, nil)

	id := lib.RegisterFunction("f", []string{"x"}, blockStmt())
	require.Equal(t, 0, lib.NextFunctionCounter(id))
	require.Equal(t, 1, lib.NextFunctionCounter(id))
	require.Equal(t, 2, lib.NextFunctionCounter(id))

	lib.ClearFunctionCounters()
	require.Equal(t, 0, lib.NextFunctionCounter(id))
}

func TestTemplateAndFunctionLookupMissReportsFalse(t *testing.T) {
	names := namepool.New()
	lib := NewLibrary(names, false, nil)

	_, ok := lib.Template(999)
	require.False(t, ok)
	_, ok = lib.Function(999)
	require.False(t, ok)
}

package executor

import (
	"github.com/zkfuzz/zkfuzz/internal/ast"
	"github.com/zkfuzz/zkfuzz/internal/field"
	"github.com/zkfuzz/zkfuzz/internal/invariant"
	"github.com/zkfuzz/zkfuzz/internal/symbolic"
	"github.com/zkfuzz/zkfuzz/internal/symlib"
	"github.com/zkfuzz/zkfuzz/internal/symstate"
)

// infixOps maps the AST's stringly-typed infix operator spelling to the
// field package's Op enum.
var infixOps = map[string]field.Op{
	"+": field.Add, "-": field.Sub, "*": field.Mul, "**": field.Pow,
	"/": field.Div, "\\": field.IntDiv, "%": field.Mod,
	"&": field.BitAnd, "|": field.BitOr, "^": field.BitXor,
	"<<": field.ShiftL, ">>": field.ShiftR,
	"==": field.Eq, "!=": field.NotEq,
	"<": field.Lesser, ">": field.Greater,
	"<=": field.LesserEq, ">=": field.GreaterEq,
	"&&": field.BoolAnd, "||": field.BoolOr,
}

// translateExpr turns an AST expression into a symbolic value tree, resolving
// Variable references through st's current owner stack and inlining or
// constructing Call nodes. It does not fold - Simplify
// is the only folding path.
func translateExpr(expr ast.Expression, st *symstate.State, e *Executor) symbolic.Value {
	switch expr.Kind {
	case ast.Number:
		return symbolic.Int(expr.Value)

	case ast.VariableExpr:
		id := e.Lib.Names.Intern(expr.Name)
		access := translateAccess(expr.Access, st, e)
		return symbolic.Var(qualifyFull(st, id, access))

	case ast.InfixOp:
		lhs := translateExpr(*expr.Lhs, st, e)
		rhs := translateExpr(*expr.Rhs, st, e)
		op, ok := infixOps[expr.Op]
		invariant.Check(ok, "executor: unknown infix operator %q", expr.Op)
		return symbolic.NewBinaryOp(lhs, op, rhs)

	case ast.PrefixOp:
		operand := translateExpr(*expr.Operand, st, e)
		switch expr.PrefixOperator {
		case "-":
			return symbolic.NewUnaryOp(symbolic.UnarySub, operand)
		case "!":
			return symbolic.NewUnaryOp(symbolic.UnaryBoolNot, operand)
		case "~":
			return symbolic.NewUnaryOp(symbolic.UnaryComplement, operand)
		default:
			invariant.Check(false, "executor: unknown prefix operator %q", expr.PrefixOperator)
			return symbolic.Value{}
		}

	case ast.InlineSwitchOp:
		cond := translateExpr(*expr.Cond, st, e)
		then := translateExpr(*expr.Then, st, e)
		els := translateExpr(*expr.Else, st, e)
		return symbolic.NewConditional(cond, then, els)

	case ast.ParallelOp:
		return translateExpr(*expr.Inner, st, e)

	case ast.CallExpr:
		return e.translateCall(expr, st)

	case ast.BusCallExpr, ast.AnonymousComp:
		// Treated as an ordinary call expression: the symbolic library
		// registers anonymous/bus components the same way it registers a
		// named template.
		return e.translateCall(expr, st)

	case ast.ArrayInLine, ast.TupleExpr:
		elems := make([]symbolic.Value, len(expr.Elements))
		for i, el := range expr.Elements {
			elems[i] = translateExpr(el, st, e)
		}
		return symbolic.NewArray(elems)

	case ast.UniformArrayExpr:
		elem := translateExpr(*expr.Elem, st, e)
		count := translateExpr(*expr.Count, st, e)
		return symbolic.NewUniformArray(elem, count)

	default:
		invariant.Check(false, "executor: unhandled expression kind %d", expr.Kind)
		return symbolic.Value{}
	}
}

// translateAccess lowers an AST access chain to symbolic access steps,
// interning component names and recursively translating array index
// expressions.
func translateAccess(access []ast.Access, st *symstate.State, e *Executor) []symbolic.Access {
	if len(access) == 0 {
		return nil
	}
	out := make([]symbolic.Access, len(access))
	for i, a := range access {
		switch a.Kind {
		case ast.ComponentAccess:
			out[i] = symbolic.Access{
				Kind:      symbolic.ComponentAccess,
				Component: e.Lib.Names.Intern(a.Component),
			}
		case ast.ArrayAccess:
			idx := translateExpr(*a.Index, st, e)
			idx = symbolic.Simplify(idx, e.Modulus, st, symbolic.FullSubstitution())
			out[i] = symbolic.Access{Kind: symbolic.ArrayAccess, Index: idx}
		}
	}
	return out
}

// translateCall resolves a Call expression's callee id and simplifies its
// arguments. A callee registered as a function is inlined on the spot
// (inlineFunction); any other callee yields an opaque Call node, which the
// substitution handler turns into a component construction.
func (e *Executor) translateCall(expr ast.Expression, st *symstate.State) symbolic.Value {
	id := e.Lib.Names.Intern(expr.Callee)
	args := make([]symbolic.Value, len(expr.Args))
	for i, a := range expr.Args {
		args[i] = symbolic.Simplify(translateExpr(a, st, e), e.Modulus, st, symbolic.FullSubstitution())
	}

	if _, ok := e.Lib.Function(id); ok {
		return e.inlineFunction(id, args, st)
	}
	// Template calls stay opaque Call nodes until the substitution handler
	// recognizes them as component construction.
	return symbolic.NewCall(id, args)
}

// templateOf reports whether id names a registered template, distinguishing
// a function Call (inlined eagerly) from a template Call (deferred to
// component construction).
func (e *Executor) templateOf(id uint64) (*symlib.TemplateDescriptor, bool) {
	return e.Lib.Template(id)
}

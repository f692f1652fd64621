package symbolic

import (
	"fmt"
	"strings"

	"github.com/zkfuzz/zkfuzz/internal/field"
	"github.com/zkfuzz/zkfuzz/internal/namepool"
)

var opSymbols = map[field.Op]string{
	field.Add: "+", field.Sub: "-", field.Mul: "*", field.Pow: "**",
	field.Div: "/", field.IntDiv: "\\", field.Mod: "%",
	field.BitAnd: "&", field.BitOr: "|", field.BitXor: "^",
	field.ShiftL: "<<", field.ShiftR: ">>",
	field.Eq: "==", field.NotEq: "!=",
	field.Lesser: "<", field.Greater: ">", field.LesserEq: "<=", field.GreaterEq: ">=",
	field.BoolAnd: "&&", field.BoolOr: "||",
}

// LookupFmt produces a canonical, color-free, whitespace-normalized string
// rendering of v, resolving interned ids through names. Determinism-
// sensitive (used by diagnostics and by tests comparing renders across
// runs), so it must never depend on map iteration
// order or on anything but the value tree's own structure.
func LookupFmt(v Value, names *namepool.Pool) string {
	var b strings.Builder
	writeValue(&b, v, names)
	return b.String()
}

func writeValue(b *strings.Builder, v Value, names *namepool.Pool) {
	switch v.Kind {
	case NOP:
		b.WriteString("<nop>")
	case ConstantInt:
		b.WriteString(v.Int.String())
	case ConstantBool:
		fmt.Fprintf(b, "%t", v.Bool)
	case Variable:
		writeName(b, v.Name, names)
	case Assign:
		writeValue(b, *v.Lhs, names)
		if v.Safe {
			b.WriteString(" <== ")
		} else {
			b.WriteString(" <-- ")
		}
		writeValue(b, *v.Rhs, names)
	case AssignEq:
		writeValue(b, *v.Lhs, names)
		b.WriteString(" === ")
		writeValue(b, *v.Rhs, names)
	case AssignTemplParam:
		writeValue(b, *v.Lhs, names)
		b.WriteString(" := ")
		writeValue(b, *v.Rhs, names)
	case AssignCall:
		writeValue(b, *v.Lhs, names)
		b.WriteString(" <-call- ")
		writeValue(b, *v.Rhs, names)
	case BinaryOp, AuxBinaryOp:
		b.WriteString("(")
		writeValue(b, *v.Lhs, names)
		b.WriteString(" ")
		b.WriteString(opSymbols[v.Op])
		b.WriteString(" ")
		writeValue(b, *v.Rhs, names)
		b.WriteString(")")
	case UnaryOp:
		switch v.Un {
		case UnarySub:
			b.WriteString("-")
		case UnaryBoolNot:
			b.WriteString("!")
		case UnaryComplement:
			b.WriteString("~")
		}
		writeValue(b, *v.Lhs, names)
	case Conditional:
		b.WriteString("(")
		writeValue(b, *v.Cond, names)
		b.WriteString(" ? ")
		writeValue(b, *v.Then, names)
		b.WriteString(" : ")
		writeValue(b, *v.Else, names)
		b.WriteString(")")
	case ArrayVal:
		b.WriteString("[")
		for i, e := range v.Elements {
			if i > 0 {
				b.WriteString(", ")
			}
			writeValue(b, e, names)
		}
		b.WriteString("]")
	case UniformArray:
		b.WriteString("[")
		writeValue(b, *v.Elem, names)
		b.WriteString("; ")
		writeValue(b, *v.Count, names)
		b.WriteString("]")
	case Call:
		fmt.Fprintf(b, "%s(", names.MustLookup(v.FuncID))
		for i, a := range v.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			writeValue(b, a, names)
		}
		b.WriteString(")")
	default:
		b.WriteString("<?>")
	}
}

func writeName(b *strings.Builder, n Name, names *namepool.Pool) {
	for _, f := range n.OwnerStack {
		b.WriteString(names.MustLookup(f.ID))
		if f.Counter != 0 {
			fmt.Fprintf(b, "#%d", f.Counter)
		}
		writeAccessPath(b, f.Access, names)
		b.WriteString(".")
	}
	if n.ID == namepool.RETURN_ID {
		b.WriteString("(return)")
	} else {
		b.WriteString(names.MustLookup(n.ID))
	}
	writeAccessPath(b, n.Access, names)
}

func writeAccessPath(b *strings.Builder, accesses []Access, names *namepool.Pool) {
	for _, a := range accesses {
		switch a.Kind {
		case ComponentAccess:
			b.WriteString(".")
			b.WriteString(names.MustLookup(a.Component))
		case ArrayAccess:
			b.WriteString("[")
			writeValue(b, a.Index, names)
			b.WriteString("]")
		}
	}
}

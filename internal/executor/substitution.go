package executor

import (
	"github.com/zkfuzz/zkfuzz/internal/ast"
	"github.com/zkfuzz/zkfuzz/internal/field"
	"github.com/zkfuzz/zkfuzz/internal/invariant"
	"github.com/zkfuzz/zkfuzz/internal/symbolic"
	"github.com/zkfuzz/zkfuzz/internal/symstate"
)

// partitionAccess splits an access chain into the dimensions before a
// component step, the component step itself (if any), and the dimensions
// after it. Only one ComponentAccess step is recognized per chain - nested
// dotted paths (a.b.c) are out of scope for this implementation's rotation
// scheme (one hop, not arbitrary depth).
func partitionAccess(access []symbolic.Access) (pre []symbolic.Access, comp *symbolic.Access, post []symbolic.Access) {
	for i, a := range access {
		if a.Kind == symbolic.ComponentAccess {
			c := a
			return access[:i], &c, access[i+1:]
		}
	}
	return access, nil, nil
}

// qualifyFull builds the fullName half of the (baseName, fullName) pair:
// a plain access chain qualifies under the current owner stack as usual,
// but a chain crossing a component boundary rotates so the component's own
// field id becomes the name's id and the owning component instance becomes
// a fresh owner-stack frame.
func qualifyFull(st *symstate.State, id uint64, access []symbolic.Access) symbolic.Name {
	pre, comp, post := partitionAccess(access)
	if comp == nil {
		return st.Qualify(id, pre)
	}
	frame := symbolic.OwnerFrame{ID: id, Counter: 0, Access: pre}
	stack := append(append([]symbolic.OwnerFrame(nil), st.OwnerStack...), frame)
	return symbolic.NewName(comp.Component, stack, post)
}

// execSubstitution evaluates the rhs and routes the assignment through
// bindTarget's decision tree.
func (e *Executor) execSubstitution(stmt ast.Statement, st *symstate.State) []*symstate.State {
	rPrime := e.simplifyExpr(*stmt.Rhe, st)
	return e.bindTarget(st, stmt.TargetName, stmt.TargetAccess, stmt.SubOperator, rPrime)
}

// bindTarget applies the substitution decision tree to an already-evaluated
// rhs value, shared by Substitution and each slot of a MultSubstitution.
func (e *Executor) bindTarget(
	st *symstate.State, targetName string, targetAccess []ast.Access, op ast.SubOp, rPrime symbolic.Value,
) []*symstate.State {
	id := e.Lib.Names.Intern(targetName)
	access := translateAccess(targetAccess, st, e)
	pre, comp, post := partitionAccess(access)

	baseName := st.Qualify(id, pre)
	var fullName symbolic.Name
	if comp != nil {
		frame := symbolic.OwnerFrame{ID: id, Counter: 0, Access: pre}
		stack := append(append([]symbolic.OwnerFrame(nil), st.OwnerStack...), frame)
		fullName = symbolic.NewName(comp.Component, stack, post)
	} else {
		fullName = baseName
	}
	switch {
	case rPrime.Kind == symbolic.ArrayVal:
		bindArrayLeaves(st, fullName, rPrime)
	case e.isBulkAssignment(fullName, post):
		e.bindBulk(st, fullName, rPrime)
	default:
		st.Bindings.Set(fullName, rPrime)
	}

	if rPrime.Kind == symbolic.Call {
		if comp == nil {
			return e.constructComponent(st, baseName, rPrime)
		}
	}

	if comp != nil {
		return e.bindComponentInput(st, baseName, comp, post, rPrime)
	}

	if op != ast.SubEqual {
		e.pushSubstitutionConstraint(st, op, fullName, rPrime)
	}
	return []*symstate.State{st}
}

// pushSubstitutionConstraint records the Assign (for `<--`) or AssignEq
// (for `<==`) node into trace (and side, for `<==`). The Assign's safe
// flag mirrors whether the currently executing template was whitelisted;
// its zero-division info is populated when rhs contains a division whose
// denominator depends on a free input signal.
func (e *Executor) pushSubstitutionConstraint(st *symstate.State, op ast.SubOp, fullName symbolic.Name, rPrime symbolic.Value) {
	lhs := symbolic.Var(fullName)
	switch op {
	case ast.SubAssignment:
		v := symbolic.NewAssign(lhs, rPrime, e.currentTemplateIsSafe(st), e.zeroDivInfo(st, rPrime))
		st.PushTraceConstraint(v)
	case ast.SubConstraint:
		v := symbolic.NewAssignEq(lhs, rPrime)
		st.PushTraceConstraint(v)
		st.PushSideConstraint(v)
	}
}

// currentTemplateIsSafe looks up whether st's currently executing template
// was registered from the caller-supplied whitelist.
func (e *Executor) currentTemplateIsSafe(st *symstate.State) bool {
	desc, ok := e.Lib.Template(st.TemplateID)
	return ok && desc.IsSafe
}

// zeroDivInfo scans rhs for its first division sub-expression and, if its
// denominator references a free input signal, extracts both sides' degree-
// <=2 polynomial decomposition in that signal. Returns nil when rhs has no
// division, or when no input signal appears in the denominator.
func (e *Executor) zeroDivInfo(st *symstate.State, rhs symbolic.Value) *symbolic.ZeroDivInfo {
	numerator, denominator, found := findDivision(rhs)
	if !found {
		return nil
	}
	target, ok := findInputVariable(denominator, st)
	if !ok {
		return nil
	}
	return &symbolic.ZeroDivInfo{
		Target:      target,
		Numerator:   symbolic.Coefficients(numerator, target, e.Modulus),
		Denominator: symbolic.Coefficients(denominator, target, e.Modulus),
	}
}

// findDivision pre-order searches v for the first BinaryOp(Div) node and
// returns its numerator/denominator sub-expressions.
func findDivision(v symbolic.Value) (numerator, denominator symbolic.Value, found bool) {
	switch v.Kind {
	case symbolic.BinaryOp, symbolic.AuxBinaryOp:
		if v.Op == field.Div {
			return *v.Lhs, *v.Rhs, true
		}
		if n, d, ok := findDivision(*v.Lhs); ok {
			return n, d, true
		}
		return findDivision(*v.Rhs)
	case symbolic.UnaryOp:
		return findDivision(*v.Lhs)
	case symbolic.Conditional:
		if n, d, ok := findDivision(*v.Cond); ok {
			return n, d, true
		}
		if n, d, ok := findDivision(*v.Then); ok {
			return n, d, true
		}
		return findDivision(*v.Else)
	default:
		return symbolic.Value{}, symbolic.Value{}, false
	}
}

// findInputVariable pre-order searches v for the first Variable node
// classifying as a signal input under st's current scope.
func findInputVariable(v symbolic.Value, st *symstate.State) (symbolic.Name, bool) {
	switch v.Kind {
	case symbolic.Variable:
		if st.Classify(v.Name) == symbolic.ClassSignalInput {
			return v.Name, true
		}
		return symbolic.Name{}, false
	case symbolic.BinaryOp, symbolic.AuxBinaryOp:
		if n, ok := findInputVariable(*v.Lhs, st); ok {
			return n, true
		}
		return findInputVariable(*v.Rhs, st)
	case symbolic.UnaryOp:
		return findInputVariable(*v.Lhs, st)
	default:
		return symbolic.Name{}, false
	}
}

// bindArrayLeaves recursively binds every scalar leaf of an Array rhs to
// name extended with the matching ArrayAccess chain.
func bindArrayLeaves(st *symstate.State, name symbolic.Name, arr symbolic.Value) {
	leaves, indices := symbolic.EnumerateArray(arr)
	for i, leaf := range leaves {
		access := append(append([]symbolic.Access(nil), name.Access...), indexAccess(indices[i])...)
		leafName := symbolic.NewName(name.ID, name.OwnerStack, access)
		st.Bindings.Set(leafName, leaf)
	}
}

func indexAccess(idx []int) []symbolic.Access {
	out := make([]symbolic.Access, len(idx))
	for i, v := range idx {
		out[i] = symbolic.Access{Kind: symbolic.ArrayAccess, Index: symbolic.IntI(int64(v))}
	}
	return out
}

// isBulkAssignment reports whether fullName's declared dimensionality (from
// the currently executing scope's declarations) exceeds the number of
// array-index steps already present in post. Only the
// directly-executing template/function's own declarations are consulted;
// bulk assignment through a freshly rotated component field name is treated
// as not-bulk (scope decision, documented in DESIGN.md) since the common
// case - assigning a whole array of component inputs - goes through
// per-element Substitution statements the parser already expands.
func (e *Executor) isBulkAssignment(fullName symbolic.Name, post []symbolic.Access) bool {
	tmpl, ok := e.Lib.Template(fullNameOwnerTemplate(fullName))
	if !ok {
		return false
	}
	dims, ok := tmpl.Dimensions[fullName.ID]
	if !ok {
		return false
	}
	present := 0
	for _, a := range post {
		if a.Kind == symbolic.ArrayAccess {
			present++
		}
	}
	return len(dims) > present
}

// fullNameOwnerTemplate reports the template id that should govern
// fullName's declarations: the innermost owner frame's id if any, else the
// sentinel 0 (top-level main template convention: interning starts at 0
// with the first registered name, which is always the main template).
func fullNameOwnerTemplate(name symbolic.Name) uint64 {
	if len(name.OwnerStack) == 0 {
		return 0
	}
	return name.OwnerStack[len(name.OwnerStack)-1].ID
}

// bindBulk fans a bulk assignment out into element-wise (name, value) pairs
// by evaluating the declared dimension expressions and taking their
// Cartesian product. When rhs is itself a bare Variable, the
// same multi-index is mirrored onto it so per-element semantics are
// preserved; any other rhs shape is broadcast to every slot.
func (e *Executor) bindBulk(st *symstate.State, fullName symbolic.Name, rhs symbolic.Value) {
	tmpl, ok := e.Lib.Template(fullNameOwnerTemplate(fullName))
	if !ok {
		return
	}
	dimExprs, ok := tmpl.Dimensions[fullName.ID]
	if !ok {
		return
	}
	sizes := make([]int, len(dimExprs))
	for i, d := range dimExprs {
		v := symbolic.Simplify(translateExpr(d, st, e), e.Modulus, st, symbolic.FullSubstitution())
		invariant.Check(v.IsConstInt(), "executor: bulk-assignment dimension must be constant")
		sizes[i] = int(v.Int.Int64())
	}
	for _, idx := range cartesian(sizes) {
		extra := indexAccess(idx)
		lhs := symbolic.NewName(fullName.ID, fullName.OwnerStack, append(append([]symbolic.Access(nil), fullName.Access...), extra...))
		var slot symbolic.Value
		if rhs.Kind == symbolic.Variable {
			slot = symbolic.Var(symbolic.NewName(rhs.Name.ID, rhs.Name.OwnerStack, append(append([]symbolic.Access(nil), rhs.Name.Access...), extra...)))
		} else {
			slot = rhs
		}
		st.Bindings.Set(lhs, slot)
	}
}

// cartesian returns every multi-index over sizes in lexicographic order.
func cartesian(sizes []int) [][]int {
	if len(sizes) == 0 {
		return nil
	}
	total := 1
	for _, s := range sizes {
		total *= s
	}
	out := make([][]int, 0, total)
	idx := make([]int, len(sizes))
	for {
		out = append(out, append([]int(nil), idx...))
		pos := len(sizes) - 1
		for pos >= 0 {
			idx[pos]++
			if idx[pos] < sizes[pos] {
				break
			}
			idx[pos] = 0
			pos--
		}
		if pos < 0 {
			break
		}
	}
	return out
}

// execMultSubstitution fans a single rhs value out across a grouped
// destructuring target.
func (e *Executor) execMultSubstitution(stmt ast.Statement, st *symstate.State) []*symstate.State {
	rPrime := e.simplifyExpr(*stmt.Rhe, st)
	elems := rPrime.Elements
	if rPrime.Kind != symbolic.ArrayVal {
		elems = []symbolic.Value{rPrime}
	}

	states := []*symstate.State{st}
	for i, target := range stmt.Targets {
		var slot symbolic.Value
		if i < len(elems) {
			slot = elems[i]
		} else {
			slot = symbolic.NOPVal()
		}
		var next []*symstate.State
		for _, s := range states {
			next = append(next, e.bindTarget(s, target.Name, target.Access, target.Op, slot)...)
		}
		states = next
	}
	return states
}

// execUnderscoreSubstitution evaluates the rhs for its side effects (e.g.
// component construction) but discards the result - the `_ <== f()` pattern.
func (e *Executor) execUnderscoreSubstitution(stmt ast.Statement, st *symstate.State) []*symstate.State {
	rPrime := e.simplifyExpr(*stmt.Rhe, st)
	if rPrime.Kind == symbolic.Call {
		blank := e.Lib.Names.Intern("_")
		blankName := st.Qualify(blank, nil)
		return e.constructComponent(st, blankName, rPrime)
	}
	return []*symstate.State{st}
}

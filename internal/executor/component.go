package executor

import (
	"github.com/zkfuzz/zkfuzz/internal/field"
	"github.com/zkfuzz/zkfuzz/internal/invariant"
	"github.com/zkfuzz/zkfuzz/internal/namepool"
	"github.com/zkfuzz/zkfuzz/internal/symbolic"
	"github.com/zkfuzz/zkfuzz/internal/symlib"
	"github.com/zkfuzz/zkfuzz/internal/symstate"
)

// constructComponent spawns a fresh Component
// instance under name from a template Call, with every input leaf
// pre-enumerated so readiness can be checked by simple membership.
func (e *Executor) constructComponent(st *symstate.State, name symbolic.Name, call symbolic.Value) []*symstate.State {
	tmpl, ok := e.Lib.Template(call.FuncID)
	invariant.Check(ok, "executor: component construction references unknown template id %d", call.FuncID)

	required := e.enumerateRequiredInputs(tmpl, st)
	inst := symstate.NewComponent(call.FuncID, call.Args, required)
	st.Components.Set(name, inst)
	return []*symstate.State{st}
}

// enumerateRequiredInputs expands every declared input id of tmpl across its
// declared dimensions into the relative (owner-stack-free) leaf names a
// fired component's caller will bind one at a time.
func (e *Executor) enumerateRequiredInputs(tmpl *symlib.TemplateDescriptor, st *symstate.State) []symbolic.Name {
	var names []symbolic.Name
	for id := range tmpl.Inputs {
		dims := tmpl.Dimensions[id]
		if len(dims) == 0 {
			names = append(names, symbolic.NewName(id, nil, nil))
			continue
		}
		sizes := make([]int, len(dims))
		for i, d := range dims {
			v := symbolic.Simplify(translateExpr(d, st, e), e.Modulus, st, symbolic.FullSubstitution())
			invariant.Check(v.IsConstInt(), "executor: component input dimension must be constant")
			sizes[i] = int(v.Int.Int64())
		}
		for _, idx := range cartesian(sizes) {
			names = append(names, symbolic.NewName(id, nil, indexAccess(idx)))
		}
	}
	return names
}

// bindComponentInput registers an input-field assignment in the target
// component's binding map and fires it once every required slot is bound.
func (e *Executor) bindComponentInput(
	st *symstate.State, baseName symbolic.Name, comp *symbolic.Access, post []symbolic.Access, value symbolic.Value,
) []*symstate.State {
	inst, ok := st.Components.Get(baseName)
	invariant.Check(ok, "executor: assignment into unregistered component")

	fieldName := symbolic.NewName(comp.Component, nil, post)
	inst.Bind(fieldName, value)

	if inst.Ready() {
		return e.fireComponent(st, baseName, inst)
	}
	return []*symstate.State{st}
}

// fireComponent spawns a sub-executor, runs the template body to
// completion, and forks one continuation state per final
// sub-state, each carrying forward the sub-state's trace/side constraints
// (and, if configured, its bindings) plus a LessThan constraint injection
// when the fired template is the well-known comparator.
func (e *Executor) fireComponent(st *symstate.State, name symbolic.Name, inst *symstate.Component) []*symstate.State {
	tmpl, ok := e.Lib.Template(inst.TemplateID)
	invariant.Check(ok, "executor: fired component references unknown template id %d", inst.TemplateID)

	frame := symbolic.OwnerFrame{ID: name.ID, Counter: 0, Access: name.Access}
	subOwnerStack := append(append([]symbolic.OwnerFrame(nil), st.OwnerStack...), frame)

	subState := symstate.NewState(tmpl.DeclaredTypes)
	subState.OwnerStack = subOwnerStack
	subState.Depth = st.Depth + 1
	subState.TemplateID = inst.TemplateID

	for i, paramID := range tmpl.Params {
		if i >= len(inst.Args) {
			break
		}
		pname := symbolic.NewName(paramID, subOwnerStack, nil)
		subState.Bindings.Set(pname, inst.Args[i])
	}
	inst.Bound.Each(func(fieldName symbolic.Name, v symbolic.Value) {
		full := symbolic.NewName(fieldName.ID, subOwnerStack, fieldName.Access)
		subState.Bindings.Set(full, v)
	})

	finals := e.Run(tmpl.Body, subState)

	var out []*symstate.State
	for _, fin := range finals {
		cloned := st.Clone()
		cloned.Trace = append(cloned.Trace, fin.Trace...)
		cloned.SideConstraints = append(cloned.SideConstraints, fin.SideConstraints...)
		if fin.Depth > cloned.Depth {
			cloned.Depth = fin.Depth
		}
		if e.Cfg.PropagateAssignments {
			fin.Bindings.Each(func(n symbolic.Name, v symbolic.Value) {
				cloned.Bindings.Set(n, v)
			})
		}
		if tmpl.IsLessThan {
			InjectLessThanConstraint(cloned, subOwnerStack, e.Lib.Names)
		}
		out = append(out, cloned)
	}
	inst.Done = true
	return out
}

// InjectLessThanConstraint appends the synthesized comparator constraint
// `(1==out ∧ in[0]<in[1]) ∨ (0==out ∧ in[0]≥in[1])` to both trace and side
// constraints, using AuxBinaryOp so the relational operators use unsigned
// semantics. Exported so the facade can apply the same
// injection when the *main* template is itself the well-known comparator
// (run directly rather than fired as a sub-component, ownerStack nil) -
// a directly-executed LessThan gets the same synthesized constraint as
// one reached through a parent's component instantiation.
func InjectLessThanConstraint(st *symstate.State, ownerStack []symbolic.OwnerFrame, names *namepool.Pool) {
	outID := names.Intern("out")
	inID := names.Intern("in")

	outName := symbolic.Var(symbolic.NewName(outID, ownerStack, nil))
	in0 := symbolic.Var(symbolic.NewName(inID, ownerStack, []symbolic.Access{{Kind: symbolic.ArrayAccess, Index: symbolic.IntI(0)}}))
	in1 := symbolic.Var(symbolic.NewName(inID, ownerStack, []symbolic.Access{{Kind: symbolic.ArrayAccess, Index: symbolic.IntI(1)}}))

	lt := symbolic.NewAuxBinaryOp(in0, field.Lesser, in1)
	ge := symbolic.NewAuxBinaryOp(in0, field.GreaterEq, in1)

	branchTrue := symbolic.NewBinaryOp(symbolic.NewBinaryOp(symbolic.IntI(1), field.Eq, outName), field.BoolAnd, lt)
	branchFalse := symbolic.NewBinaryOp(symbolic.NewBinaryOp(symbolic.IntI(0), field.Eq, outName), field.BoolAnd, ge)
	constraint := symbolic.NewBinaryOp(branchTrue, field.BoolOr, branchFalse)

	st.PushTraceConstraint(constraint)
	st.PushSideConstraint(constraint)
}

// inlineFunction eagerly runs a function call to completion and folds its
// return value when possible.
func (e *Executor) inlineFunction(id uint64, args []symbolic.Value, st *symstate.State) symbolic.Value {
	fn, ok := e.Lib.Function(id)
	if !ok {
		return symbolic.NewCall(id, args)
	}

	counter := e.Lib.NextFunctionCounter(id)
	frame := symbolic.OwnerFrame{ID: id, Counter: counter}
	subOwnerStack := append(append([]symbolic.OwnerFrame(nil), st.OwnerStack...), frame)

	subState := symstate.NewState(nil)
	subState.OwnerStack = subOwnerStack
	subState.Depth = st.Depth + 1
	for i, argID := range fn.Args {
		if i >= len(args) {
			break
		}
		subState.Bindings.Set(symbolic.NewName(argID, subOwnerStack, nil), args[i])
	}

	subExec := &Executor{Lib: e.Lib, Modulus: e.Modulus, Cfg: Config{
		KeepTrackConstraints: false,
		PropagateAssignments: e.Cfg.PropagateAssignments,
	}}
	finals := subExec.Run(fn.Body, subState)

	invariant.Check(len(finals) >= 1, "executor: function call produced no final state")
	if len(finals) > 1 {
		return symbolic.NewCall(id, args)
	}
	fin := finals[0]
	st.Trace = append(st.Trace, fin.Trace...)
	if fin.Depth > st.Depth {
		st.Depth = fin.Depth
	}

	retName := symbolic.NewName(namepool.RETURN_ID, subOwnerStack, nil)
	ret, ok := fin.Bindings.Get(retName)
	if !ok {
		return symbolic.NewCall(id, args)
	}
	if ret.IsConstInt() || ret.IsConstBool() || (ret.Kind == symbolic.ArrayVal && symbolic.IsFullyConcrete(ret)) {
		return ret
	}
	return symbolic.NewCall(id, args)
}

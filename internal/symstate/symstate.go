// Package symstate implements the per-execution mutable state the symbolic
// executor threads through a run: bindings from symbolic
// names to values, the ordered trace and side-constraint lists, the owner
// stack, and the nesting depth counter. State implements symbolic.Environment
// so the simplifier can resolve and classify names without this package
// depending back on the executor.
//
// The binding table is keyed by a derived digest rather than the key's own
// identity, because symbolic.Name carries slices and can't be a Go map key
// directly. The digest is Name.Hash() with bucket chaining on collision.
package symstate

import (
	"github.com/zkfuzz/zkfuzz/internal/ast"
	"github.com/zkfuzz/zkfuzz/internal/symbolic"
)

// binding is one chained entry in a NameMap bucket.
type binding struct {
	name  symbolic.Name
	value symbolic.Value
}

// NameMap is a map keyed by symbolic.Name equality (not Go's native map key
// equality, which Name's slice fields rule out), bucketed on Name.Hash.
type NameMap struct {
	buckets map[uint64][]binding
}

// NewNameMap creates an empty NameMap.
func NewNameMap() *NameMap {
	return &NameMap{buckets: make(map[uint64][]binding)}
}

// Get looks up name's bound value.
func (m *NameMap) Get(name symbolic.Name) (symbolic.Value, bool) {
	for _, b := range m.buckets[name.Hash()] {
		if b.name.Equal(name) {
			return b.value, true
		}
	}
	return symbolic.Value{}, false
}

// Set binds name to value, replacing any prior binding.
func (m *NameMap) Set(name symbolic.Name, value symbolic.Value) {
	h := name.Hash()
	bucket := m.buckets[h]
	for i, b := range bucket {
		if b.name.Equal(name) {
			bucket[i].value = value
			return
		}
	}
	m.buckets[h] = append(bucket, binding{name: name, value: value})
}

// Clone returns a shallow copy: a new bucket map whose slices are copied (so
// later Set calls on the clone don't mutate the original's buckets) but whose
// Name and Value entries are shared by reference.
func (m *NameMap) Clone() *NameMap {
	out := make(map[uint64][]binding, len(m.buckets))
	for h, bucket := range m.buckets {
		out[h] = append([]binding(nil), bucket...)
	}
	return &NameMap{buckets: out}
}

// Len reports the number of distinct bound names.
func (m *NameMap) Len() int {
	n := 0
	for _, bucket := range m.buckets {
		n += len(bucket)
	}
	return n
}

// Each calls fn once per binding, in no particular order. Callers that need
// determinism (e.g. rendering a JSON report) should collect and sort by
// symbolic.SortNames first.
func (m *NameMap) Each(fn func(symbolic.Name, symbolic.Value)) {
	for _, bucket := range m.buckets {
		for _, b := range bucket {
			fn(b.name, b.value)
		}
	}
}

// Component is a single instantiated sub-component: the
// template it was constructed from, the arguments it was built with, the set
// of input names it's still waiting on, and the bindings collected so far.
type Component struct {
	TemplateID uint64
	Args       []symbolic.Value
	Required   []symbolic.Name
	Bound      *NameMap
	Done       bool
}

// NewComponent creates a fresh, unbound component instance.
func NewComponent(templateID uint64, args []symbolic.Value, required []symbolic.Name) *Component {
	return &Component{
		TemplateID: templateID,
		Args:       args,
		Required:   append([]symbolic.Name(nil), required...),
		Bound:      NewNameMap(),
	}
}

// Bind records a binding for one of the component's input names.
func (c *Component) Bind(name symbolic.Name, v symbolic.Value) {
	c.Bound.Set(name, v)
}

// Ready reports whether every required input is bound and the component has
// not already fired.
func (c *Component) Ready() bool {
	if c.Done {
		return false
	}
	for _, r := range c.Required {
		if _, ok := c.Bound.Get(r); !ok {
			return false
		}
	}
	return true
}

// clone returns an independently mutable copy of c: a new Component sharing
// Args/Required by reference (both immutable after construction) but with
// its own Bound table, so firing/binding along one branch of an execution
// fork never leaks into a sibling branch.
func (c *Component) clone() *Component {
	return &Component{
		TemplateID: c.TemplateID,
		Args:       c.Args,
		Required:   c.Required,
		Bound:      c.Bound.Clone(),
		Done:       c.Done,
	}
}

// componentEntry is one chained entry in a ComponentMap bucket.
type componentEntry struct {
	name symbolic.Name
	comp *Component
}

// ComponentMap maps symbolic.Name to *Component, with the same hash-bucket
// chaining NameMap uses and for the same reason (Name isn't a valid native
// Go map key).
type ComponentMap struct {
	buckets map[uint64][]componentEntry
}

// NewComponentMap creates an empty ComponentMap.
func NewComponentMap() *ComponentMap {
	return &ComponentMap{buckets: make(map[uint64][]componentEntry)}
}

// Get looks up the component instantiated under name.
func (m *ComponentMap) Get(name symbolic.Name) (*Component, bool) {
	for _, e := range m.buckets[name.Hash()] {
		if e.name.Equal(name) {
			return e.comp, true
		}
	}
	return nil, false
}

// Set records comp as the component instantiated under name.
func (m *ComponentMap) Set(name symbolic.Name, comp *Component) {
	h := name.Hash()
	bucket := m.buckets[h]
	for i, e := range bucket {
		if e.name.Equal(name) {
			bucket[i].comp = comp
			return
		}
	}
	m.buckets[h] = append(bucket, componentEntry{name: name, comp: comp})
}

// Len reports the number of component instances recorded.
func (m *ComponentMap) Len() int {
	n := 0
	for _, bucket := range m.buckets {
		n += len(bucket)
	}
	return n
}

// Clone deep-clones every component's mutable Bound table so a forked branch
// can bind further inputs without affecting its sibling (see Component.clone).
func (m *ComponentMap) Clone() *ComponentMap {
	out := make(map[uint64][]componentEntry, len(m.buckets))
	for h, bucket := range m.buckets {
		cloned := make([]componentEntry, len(bucket))
		for i, e := range bucket {
			cloned[i] = componentEntry{name: e.name, comp: e.comp.clone()}
		}
		out[h] = cloned
	}
	return &ComponentMap{buckets: out}
}

// DeclEnv is the subset of a symlib.TemplateDescriptor the state needs to
// classify bare local names under the currently executing template or
// function. It is intentionally narrow (symstate does not
// import symlib) - the
// executor passes the active scope's declared-type map in when it pushes a
// new frame.
type DeclEnv map[uint64]ast.VarType

// State is the symbolic executor's per-run mutable state:
// bindings, trace, side constraints, owner stack, depth, and the two
// execution-mode flags the executor flips while walking InitializationBlock
// and While statements.
type State struct {
	Bindings        *NameMap
	Components      *ComponentMap
	Trace           []symbolic.Value
	SideConstraints []symbolic.Value
	OwnerStack      []symbolic.OwnerFrame
	Depth           int

	TemplateID       uint64
	InInitBlock      bool
	HasSymbolicLoop  bool

	// decl is the declared-type map of the template/function currently
	// executing, consulted by Classify for bare local references. Nested
	// component field accesses are classified ClassComponent without
	// consulting decl.
	// Declaration statements grow this map at runtime via DeclareType, so
	// Clone must copy it rather than share it.
	decl DeclEnv
}

// NewState creates an empty top-level state.
func NewState(decl DeclEnv) *State {
	return &State{
		Bindings:   NewNameMap(),
		Components: NewComponentMap(),
		decl:       decl,
	}
}

// DeclareType records id's declared type in the current scope. Lazily allocates the map on first
// use so a state built with a nil DeclEnv can still accumulate declarations.
func (s *State) DeclareType(id uint64, vt ast.VarType) {
	if s.decl == nil {
		s.decl = make(DeclEnv)
	}
	s.decl[id] = vt
}

// Clone returns a shallow copy of s: a new State sharing interned
// references and value nodes but with independently growable
// Trace/SideConstraints/OwnerStack/decl, so mutating the clone (e.g. along
// one branch of an IfThenElse) never affects the original.
func (s *State) Clone() *State {
	var decl DeclEnv
	if s.decl != nil {
		decl = make(DeclEnv, len(s.decl))
		for k, v := range s.decl {
			decl[k] = v
		}
	}
	return &State{
		Bindings:        s.Bindings.Clone(),
		Components:      s.Components.Clone(),
		Trace:           append([]symbolic.Value(nil), s.Trace...),
		SideConstraints: append([]symbolic.Value(nil), s.SideConstraints...),
		OwnerStack:      append([]symbolic.OwnerFrame(nil), s.OwnerStack...),
		Depth:           s.Depth,
		TemplateID:      s.TemplateID,
		InInitBlock:     s.InInitBlock,
		HasSymbolicLoop: s.HasSymbolicLoop,
		decl:            decl,
	}
}

// PushOwner appends a new frame to the owner stack and
// increments the nesting depth.
func (s *State) PushOwner(frame symbolic.OwnerFrame) {
	s.OwnerStack = append(s.OwnerStack, frame)
	s.Depth++
}

// PopOwner removes the innermost owner frame and decrements the depth. It is
// a no-op on an empty stack.
func (s *State) PopOwner() {
	if len(s.OwnerStack) == 0 {
		return
	}
	s.OwnerStack = s.OwnerStack[:len(s.OwnerStack)-1]
	s.Depth--
}

// WithDecl returns a copy of s whose declared-type map is replaced, used when
// entering a new template/function scope.
func (s *State) WithDecl(decl DeclEnv) *State {
	clone := s.Clone()
	clone.decl = decl
	return clone
}

// Qualify builds the fully owner-qualified Name for a bare local id under s's
// current owner stack.
func (s *State) Qualify(id uint64, access []symbolic.Access) symbolic.Name {
	return symbolic.NewName(id, s.OwnerStack, access)
}

// PushTraceConstraint appends v to the operational trace.
func (s *State) PushTraceConstraint(v symbolic.Value) {
	s.Trace = append(s.Trace, v)
}

// PushSideConstraint appends v to the declarative side-constraint list.
func (s *State) PushSideConstraint(v symbolic.Value) {
	s.SideConstraints = append(s.SideConstraints, v)
}

// Resolve implements symbolic.Environment: it looks up name's qualified
// binding. Unqualified lookups (bare ids under the current owner stack)
// should go through Qualify first; Resolve itself just does the table hit so
// it can also serve names built by other frames (e.g. resolving a callee's
// output after it returns).
func (s *State) Resolve(name symbolic.Name) (symbolic.Value, bool) {
	return s.Bindings.Get(name)
}

// Classify implements symbolic.Environment. A name with a
// trailing component access is always ClassComponent: the executor resolves
// fields through the fired sub-component's own bindings rather than this
// classification path. A name with no declared-type entry (e.g. it belongs
// to an outer frame not covered by decl) classifies ClassUnknown, which the
// simplifier's ConstOnly mode treats as not-substitutable; VarOnly, which
// only excludes signals, substitutes it.
func (s *State) Classify(name symbolic.Name) symbolic.NameClass {
	for _, a := range name.Access {
		if a.Kind == symbolic.ComponentAccess {
			return symbolic.ClassComponent
		}
	}
	if s.decl == nil {
		return symbolic.ClassUnknown
	}
	switch s.decl[name.ID] {
	case ast.TypeSignalInput:
		return symbolic.ClassSignalInput
	case ast.TypeSignalOutput:
		return symbolic.ClassSignalOutput
	case ast.TypeSignalIntermediate:
		return symbolic.ClassSignalIntermediate
	case ast.TypeComponent, ast.TypeAnonymousComponent:
		return symbolic.ClassComponent
	case ast.TypeVar, ast.TypeBus:
		return symbolic.ClassVar
	default:
		return symbolic.ClassUnknown
	}
}

var _ interface {
	Resolve(symbolic.Name) (symbolic.Value, bool)
	Classify(symbolic.Name) symbolic.NameClass
} = (*State)(nil)

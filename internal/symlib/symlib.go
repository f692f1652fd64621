// Package symlib implements the symbolic library: a registry mapping
// interned template/function identifiers to their descriptors, a
// mutex-guarded map behind Register/Lookup in the database/sql
// driver-registration style.
package symlib

import (
	"sync"

	"github.com/zkfuzz/zkfuzz/internal/ast"
	"github.com/zkfuzz/zkfuzz/internal/invariant"
	"github.com/zkfuzz/zkfuzz/internal/namepool"
)

// lessThanName is the well-known comparator template name that triggers
// constraint injection on firing.
const lessThanName = "LessThan"

// TemplateDescriptor is the registered shape of a template.
type TemplateDescriptor struct {
	Params        []uint64
	Inputs        map[uint64]bool
	Outputs       map[uint64]bool
	DeclaredTypes map[uint64]ast.VarType
	Dimensions    map[uint64][]ast.Expression
	Body          ast.Statement
	IsLessThan    bool
	IsSafe        bool
}

// FunctionDescriptor is the registered shape of a function.
type FunctionDescriptor struct {
	Args       []uint64
	Dimensions map[uint64][]ast.Expression
	Body       ast.Statement
}

// Library is the symbolic library: the registry plus the name table and the
// per-function invocation counters used to disambiguate nested calls in
// owner stacks.
type Library struct {
	Names *namepool.Pool

	mu              sync.RWMutex
	templates       map[uint64]*TemplateDescriptor
	functions       map[uint64]*FunctionDescriptor
	funcCounters    map[uint64]int
	disableLessThan bool
	whitelist       map[string]bool
}

// NewLibrary creates an empty library. disableLessThan mirrors the CLI's
// `lessthan_dissabled` flag; whitelist mirrors
// `path_to_whitelist`.
func NewLibrary(names *namepool.Pool, disableLessThan bool, whitelist []string) *Library {
	wl := make(map[string]bool, len(whitelist))
	for _, w := range whitelist {
		wl[w] = true
	}
	return &Library{
		Names:           names,
		templates:       make(map[uint64]*TemplateDescriptor),
		functions:       make(map[uint64]*FunctionDescriptor),
		funcCounters:    make(map[uint64]int),
		disableLessThan: disableLessThan,
		whitelist:       wl,
	}
}

// RegisterTemplate interns name, gathers its declarations, marks
// is_lessthan/is_safe, appends the synthetic Ret statement, and returns the
// template's id.
func (l *Library) RegisterTemplate(name string, paramNames []string, body ast.Statement) uint64 {
	id := l.Names.Intern(name)

	params := make([]uint64, len(paramNames))
	for i, p := range paramNames {
		params[i] = l.Names.Intern(p)
	}

	inputs, outputs, types, dims := collectDeclarations(body, l.Names)
	finalBody := appendRet(body)

	desc := &TemplateDescriptor{
		Params:        params,
		Inputs:        inputs,
		Outputs:       outputs,
		DeclaredTypes: types,
		Dimensions:    dims,
		Body:          finalBody,
		IsLessThan:    name == lessThanName && !l.disableLessThan,
		IsSafe:        l.whitelist[name],
	}

	l.mu.Lock()
	l.templates[id] = desc
	l.mu.Unlock()
	return id
}

// RegisterFunction interns name, gathers its dimension declarations, appends
// the synthetic Ret statement, and returns the function's id.
func (l *Library) RegisterFunction(name string, argNames []string, body ast.Statement) uint64 {
	id := l.Names.Intern(name)

	args := make([]uint64, len(argNames))
	for i, a := range argNames {
		args[i] = l.Names.Intern(a)
	}

	_, _, _, dims := collectDeclarations(body, l.Names)
	finalBody := appendRet(body)

	l.mu.Lock()
	l.functions[id] = &FunctionDescriptor{Args: args, Dimensions: dims, Body: finalBody}
	l.funcCounters[id] = 0
	l.mu.Unlock()
	return id
}

// Template looks up a registered template by id.
func (l *Library) Template(id uint64) (*TemplateDescriptor, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	d, ok := l.templates[id]
	return d, ok
}

// Function looks up a registered function by id.
func (l *Library) Function(id uint64) (*FunctionDescriptor, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	d, ok := l.functions[id]
	return d, ok
}

// NextFunctionCounter returns the next invocation counter for function id
// and advances it - used to build the fresh owner frame each inlined call
// gets.
func (l *Library) NextFunctionCounter(id uint64) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.funcCounters[id]
	invariant.Check(ok, "NextFunctionCounter: function id %d not registered", id)
	l.funcCounters[id] = c + 1
	return c
}

// ClearFunctionCounters resets every function id's counter to 0.
func (l *Library) ClearFunctionCounters() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id := range l.funcCounters {
		l.funcCounters[id] = 0
	}
}

// appendRet appends an explicit Return statement with no expression to the
// end of body's top-level block, synthesizing a Block wrapper if body isn't
// already one.
func appendRet(body ast.Statement) ast.Statement {
	ret := ast.Statement{Kind: ast.Return}
	if body.Kind == ast.Block {
		children := append(append([]ast.Statement(nil), body.Children...), ret)
		return ast.Statement{Kind: ast.Block, Meta: body.Meta, Children: children}
	}
	return ast.Statement{Kind: ast.Block, Children: []ast.Statement{body, ret}}
}

// collectDeclarations walks body once, recording every Declaration
// statement's input/output category, declared type, and dimension
// expressions.
func collectDeclarations(body ast.Statement, names *namepool.Pool) (
	inputs, outputs map[uint64]bool, types map[uint64]ast.VarType, dims map[uint64][]ast.Expression,
) {
	inputs = make(map[uint64]bool)
	outputs = make(map[uint64]bool)
	types = make(map[uint64]ast.VarType)
	dims = make(map[uint64][]ast.Expression)

	var walk func(ast.Statement)
	walk = func(s ast.Statement) {
		switch s.Kind {
		case ast.Declaration:
			id := names.Intern(s.DeclName)
			types[id] = s.VarType
			dims[id] = s.Dimensions
			switch s.VarType {
			case ast.TypeSignalInput:
				inputs[id] = true
			case ast.TypeSignalOutput:
				outputs[id] = true
			}
		case ast.InitializationBlock, ast.Block:
			for _, c := range s.Children {
				walk(c)
			}
		case ast.IfThenElse:
			if s.ThenBlock != nil {
				walk(*s.ThenBlock)
			}
			if s.ElseBlock != nil {
				walk(*s.ElseBlock)
			}
		case ast.While:
			if s.Body != nil {
				walk(*s.Body)
			}
		}
	}
	walk(body)
	return
}

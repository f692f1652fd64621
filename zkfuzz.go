// Package zkfuzz is the public facade:
// given an already-parsed circuit AST (parsing itself is an external,
// interface-only collaborator), it registers the main template,
// symbolically executes every reachable path, and for each path either
// verifies a supplied witness or runs the configured search strategy,
// stopping at the first confirmed bug.
//
// The surface is an Options struct plus a couple of top-level entry points
// sitting above the parser/validator/executor pipeline, rather than a god
// object the caller has to construct field by field.
package zkfuzz

import (
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/zkfuzz/zkfuzz/internal/ast"
	"github.com/zkfuzz/zkfuzz/internal/concrete"
	"github.com/zkfuzz/zkfuzz/internal/executor"
	"github.com/zkfuzz/zkfuzz/internal/field"
	"github.com/zkfuzz/zkfuzz/internal/mutationcfg"
	"github.com/zkfuzz/zkfuzz/internal/namepool"
	"github.com/zkfuzz/zkfuzz/internal/report"
	"github.com/zkfuzz/zkfuzz/internal/search"
	"github.com/zkfuzz/zkfuzz/internal/symbolic"
	"github.com/zkfuzz/zkfuzz/internal/symlib"
	"github.com/zkfuzz/zkfuzz/internal/symstate"
	"github.com/zkfuzz/zkfuzz/internal/trace"
	"github.com/zkfuzz/zkfuzz/internal/unused"
	"github.com/zkfuzz/zkfuzz/internal/verify"
	"github.com/zkfuzz/zkfuzz/internal/zkerr"
)

// SearchMode selects how zkFuzz tries to refute well-constrainedness once a
// path's trace and side constraints are known.
// "quick"/"full"/"heuristics" all route to the same GA driver in this
// implementation, distinguished only by the mutation config they're paired
// with (population sizes, generation budget) - no separate brute-force or
// heuristic-only strategy is implemented.
type SearchMode string

const (
	SearchOff        SearchMode = "off"
	SearchQuick      SearchMode = "quick"
	SearchFull       SearchMode = "full"
	SearchHeuristics SearchMode = "heuristics"
	SearchGA         SearchMode = "ga"
)

// Options bundles every recognized knob that affects the core.
type Options struct {
	Modulus                    *big.Int
	SearchMode                 SearchMode
	Whitelist                  []string
	MutationConfig             mutationcfg.Config
	FlagSymbolicTemplateParams bool
	ConstraintAssertDisabled   bool
	LessThanDisabled           bool
	Seed                       int64
	TargetPath                 string
}

// Program is one registered main template, ready to Run: the result of
// interning mainName/paramNames/body into a fresh symlib.Library.
type Program struct {
	Names  *namepool.Pool
	Lib    *symlib.Library
	MainID uint64
	Tmpl   *symlib.TemplateDescriptor
}

// TemplateDef describes one auxiliary template LoadProgram registers
// alongside the main template - any template a component-instantiating
// Substitution may fire, including the well-known "LessThan"
// comparator.
type TemplateDef struct {
	Name       string
	ParamNames []string
	Body       ast.Statement
}

// FunctionDef describes one auxiliary function LoadProgram registers
// alongside the main template - any function an inlined Call may reach.
type FunctionDef struct {
	Name     string
	ArgNames []string
	Body     ast.Statement
}

// LoadProgram registers mainName as the main template first - claiming
// interned id 0, the sentinel fullNameOwnerTemplate relies on for
// top-level (no owner stack) declaration lookups - then
// registers every auxiliary template and function a fired component or
// inlined call may reference. Auxiliary registration order does not
// matter: components only get fired once every required input is bound,
// by which point the callee's descriptor must already exist in the
// library.
func LoadProgram(
	mainName string, paramNames []string, body ast.Statement,
	templates []TemplateDef, functions []FunctionDef, opts Options,
) (*Program, error) {
	names := namepool.New()
	lib := symlib.NewLibrary(names, opts.LessThanDisabled, opts.Whitelist)
	id := lib.RegisterTemplate(mainName, paramNames, body)
	for _, t := range templates {
		lib.RegisterTemplate(t.Name, t.ParamNames, t.Body)
	}
	for _, f := range functions {
		lib.RegisterFunction(f.Name, f.ArgNames, f.Body)
	}
	tmpl, ok := lib.Template(id)
	if !ok {
		return nil, zkerr.Wrap("loading main template", "registration did not produce a descriptor")
	}
	return &Program{Names: names, Lib: lib, MainID: id, Tmpl: tmpl}, nil
}

// Load registers mainName as the sole template in a fresh library - the
// single-template special case of LoadProgram.
func Load(mainName string, paramNames []string, body ast.Statement, opts Options) (*Program, error) {
	return LoadProgram(mainName, paramNames, body, nil, nil, opts)
}

// Run symbolically executes p's main template along every reachable path.
// When assignment is non-nil, every path's witness is checked against it
// directly; otherwise, unless opts.SearchMode is SearchOff, the
// mutation-test search driver looks for a counterexample on each path.
// Returns the first confirmed bug; when every path checks out, the returned
// report carries the WellConstrained flag.
func Run(p *Program, assignment map[string]*big.Int, opts Options) (*report.CounterExample, error) {
	start := time.Now()
	mainName := p.Names.MustLookup(p.MainID)

	execCfg := executor.Config{
		KeepTrackConstraints:       true,
		PropagateAssignments:       true,
		FlagSymbolicTemplateParams: opts.FlagSymbolicTemplateParams,
		ConstraintAssertDisabled:   opts.ConstraintAssertDisabled,
	}
	exec := executor.New(p.Lib, opts.Modulus, execCfg)

	decl := symstate.DeclEnv(p.Tmpl.DeclaredTypes)
	st := symstate.NewState(decl)
	st.TemplateID = p.MainID
	finals := exec.Run(p.Tmpl.Body, st)

	if p.Tmpl.IsLessThan {
		for _, final := range finals {
			executor.InjectLessThanConstraint(final, nil, p.Names)
		}
	}

	inputNames := namesFor(p.Tmpl.Inputs)
	outputNames := namesFor(p.Tmpl.Outputs)

	for _, final := range finals {
		if witnesses := unused.Find(final.SideConstraints, p.Tmpl.Outputs); len(witnesses) > 0 {
			ce := report.FromVerify(
				verify.Result{Kind: verify.UnderConstrainedUnusedOutput},
				p.Names, opts.TargetPath, mainName, string(opts.SearchMode),
				time.Since(start).String(), nil,
				report.AuxiliaryResult{MutationTestConfig: opts.MutationConfig},
			)
			return &ce, nil
		}

		runtimeMutable := runtimeMutablePositions(final.Trace, opts.MutationConfig)
		verifyCfg := verify.Config{Modulus: opts.Modulus, RuntimeMutable: runtimeMutable}

		if assignment != nil {
			conc := toConcreteAssignment(assignment, p.Names)
			result := verify.Verify(p.Tmpl, final.Trace, final.SideConstraints, conc, verifyCfg)
			if result.Kind == verify.WellConstrained {
				continue
			}
			ce := report.FromVerify(
				result, p.Names, opts.TargetPath, mainName, string(opts.SearchMode),
				time.Since(start).String(), assignmentToNames(conc),
				report.AuxiliaryResult{MutationTestConfig: opts.MutationConfig},
			)
			return &ce, nil
		}

		if opts.SearchMode == SearchOff {
			continue
		}

		driver := search.NewDriver(
			opts.Modulus, final.Trace, final.SideConstraints, inputNames, outputNames,
			p.Tmpl, runtimeMutable, opts.MutationConfig, opts.Seed, trace.New(),
		)
		outcome := driver.Run(opts.Seed)
		if outcome.Kind == search.NoCounterExample {
			continue
		}

		aux := report.AuxiliaryResult{
			MutationTestConfig: opts.MutationConfig,
			MutationTestLog: report.MutationTestLog{
				RandomSeed:      outcome.Seed,
				Generation:      outcome.Generation,
				FitnessScoreLog: outcome.FitnessScoreLog,
			},
		}
		ce := report.FromVerify(
			outcomeToResult(outcome), p.Names, opts.TargetPath, mainName, string(opts.SearchMode),
			time.Since(start).String(), outcome.Inputs.ToAssignment(), aux,
		)
		return &ce, nil
	}

	ce := report.FromVerify(
		verify.Result{Kind: verify.WellConstrained}, p.Names, opts.TargetPath, mainName,
		string(opts.SearchMode), time.Since(start).String(), nil,
		report.AuxiliaryResult{MutationTestConfig: opts.MutationConfig},
	)
	return &ce, nil
}

// ComputeStats symbolically executes p's main template once and aggregates
// the constraint-statistics counters over every reachable path, taking the
// worst (largest) value per counter so the numbers reflect the heaviest
// path the search driver would have to walk.
func ComputeStats(p *Program, opts Options) trace.Stats {
	exec := executor.New(p.Lib, opts.Modulus, executor.Config{
		KeepTrackConstraints: true,
		PropagateAssignments: true,
	})
	st := symstate.NewState(symstate.DeclEnv(p.Tmpl.DeclaredTypes))
	st.TemplateID = p.MainID
	finals := exec.Run(p.Tmpl.Body, st)

	var s trace.Stats
	for _, f := range finals {
		if len(f.Trace) > s.TraceLength {
			s.TraceLength = len(f.Trace)
		}
		if len(f.SideConstraints) > s.SideConstraintLen {
			s.SideConstraintLen = len(f.SideConstraints)
		}
		unsafe := 0
		for _, v := range f.Trace {
			if v.Kind == symbolic.Assign && !v.Safe {
				unsafe++
			}
		}
		if unsafe > s.UnsafeAssignSites {
			s.UnsafeAssignSites = unsafe
		}
		if n := f.Components.Len(); n > s.ComponentsFired {
			s.ComponentsFired = n
		}
		if f.Depth > s.MaxDepth {
			s.MaxDepth = f.Depth
		}
	}
	return s
}

func namesFor(ids map[uint64]bool) []symbolic.Name {
	out := make([]symbolic.Name, 0, len(ids))
	for id := range ids {
		out = append(out, symbolic.NewName(id, nil, nil))
	}
	symbolic.SortNames(out)
	return out
}

func toConcreteAssignment(assignment map[string]*big.Int, names *namepool.Pool) concrete.Assignment {
	a := concrete.NewAssignment()
	for k, v := range assignment {
		base, indices := splitIndexedName(k)
		id := names.Intern(base)
		a.Set(symbolic.NewName(id, nil, indexAccesses(indices)), symbolic.Int(v))
	}
	return a
}

// splitIndexedName parses a rendered signal name of the form base[i][j]...
// into its base identifier and index chain. A name with no brackets, or with
// a malformed index, passes through whole as the base.
func splitIndexedName(s string) (string, []int64) {
	open := strings.IndexByte(s, '[')
	if open < 0 {
		return s, nil
	}
	base, rest := s[:open], s[open:]
	var indices []int64
	for rest != "" {
		if rest[0] != '[' {
			return s, nil
		}
		close := strings.IndexByte(rest, ']')
		if close < 0 {
			return s, nil
		}
		n, err := strconv.ParseInt(rest[1:close], 10, 64)
		if err != nil {
			return s, nil
		}
		indices = append(indices, n)
		rest = rest[close+1:]
	}
	return base, indices
}

func indexAccesses(indices []int64) []symbolic.Access {
	if len(indices) == 0 {
		return nil
	}
	out := make([]symbolic.Access, len(indices))
	for i, n := range indices {
		out[i] = symbolic.Access{Kind: symbolic.ArrayAccess, Index: symbolic.IntI(n)}
	}
	return out
}

func assignmentToNames(a concrete.Assignment) concrete.Assignment {
	out := concrete.NewAssignment()
	a.Each(func(n symbolic.Name, v symbolic.Value) { out.Set(n, v) })
	return out
}

// runtimeMutablePositions marks every BinaryOp/AuxBinaryOp trace position as
// eligible for the back-propagation trick, except equality
// predicates when dissable_runtime_mutation_for_hash_check is set - that
// knob exists precisely to stop the trick from trivially "solving" a hash
// comparison by binding one side to the other's already-known value.
func runtimeMutablePositions(trc []symbolic.Value, cfg mutationcfg.Config) map[int]bool {
	out := make(map[int]bool, len(trc))
	for i, v := range trc {
		if v.Kind != symbolic.BinaryOp && v.Kind != symbolic.AuxBinaryOp {
			continue
		}
		if cfg.DisableRuntimeMutationForHashCheck && (v.Op == field.Eq || v.Op == field.NotEq) {
			continue
		}
		out[i] = true
	}
	return out
}

func outcomeToResult(o *search.Outcome) verify.Result {
	switch o.Kind {
	case search.FoundOverConstrained:
		return verify.Result{Kind: verify.OverConstrained, FailureIndex: o.FailureIdx, Violated: o.Violated}
	case search.FoundUnderConstrainedUnexpectedInput:
		return verify.Result{Kind: verify.UnderConstrainedUnexpectedInput, FailureIndex: o.FailureIdx, Violated: o.Violated}
	case search.FoundUnderConstrainedNonDeterministic:
		return verify.Result{Kind: verify.UnderConstrainedNonDeterministic, OutputName: o.OutputName, ExpectedValue: o.Expected, ConcreteValue: o.Concrete}
	default:
		return verify.Result{Kind: verify.WellConstrained}
	}
}

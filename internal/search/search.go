// Package search implements the mutation-test counterexample search
// driver: a genetic/mutation-test loop that jointly evolves two
// populations - trace mutations ("genes") and candidate input assignments -
// scoring each pairing by how far the mutated trace's side constraints are
// from satisfied, until a counterexample is found or max_generations is
// exhausted.
//
// The GA mechanics themselves (selection, crossover, mutation) are plain
// Go over internal/field, internal/symbolic, and internal/concrete.
package search

import (
	"math/big"
	"math/rand"

	"github.com/zkfuzz/zkfuzz/internal/concrete"
	"github.com/zkfuzz/zkfuzz/internal/coverage"
	"github.com/zkfuzz/zkfuzz/internal/mutationcfg"
	"github.com/zkfuzz/zkfuzz/internal/symbolic"
	"github.com/zkfuzz/zkfuzz/internal/symlib"
	"github.com/zkfuzz/zkfuzz/internal/symstate"
	"github.com/zkfuzz/zkfuzz/internal/trace"
)

// Gene is one trace-mutation candidate: a sparse map from trace index to
// its replacement SymbolicValue.
type Gene map[int]symbolic.Value

// Inputs is one candidate input assignment: every input signal reachable
// from the main template, bound to a concrete field element. Backed by
// symstate.NameMap rather than a native Go map, since symbolic.Name carries
// slices and can't be a map key directly.
type Inputs struct {
	m *symstate.NameMap
}

// newInputs creates an empty Inputs.
func newInputs() Inputs {
	return Inputs{m: symstate.NewNameMap()}
}

// Get looks up name's bound value.
func (in Inputs) Get(name symbolic.Name) (symbolic.Value, bool) {
	if in.m == nil {
		return symbolic.Value{}, false
	}
	return in.m.Get(name)
}

// Set binds name to value, replacing any prior binding.
func (in *Inputs) Set(name symbolic.Name, v symbolic.Value) {
	if in.m == nil {
		in.m = symstate.NewNameMap()
	}
	in.m.Set(name, v)
}

// Each calls fn once per binding, in no particular order.
func (in Inputs) Each(fn func(symbolic.Name, symbolic.Value)) {
	if in.m == nil {
		return
	}
	in.m.Each(fn)
}

// Clone returns an independent copy of in.
func (in Inputs) Clone() Inputs {
	if in.m == nil {
		return newInputs()
	}
	return Inputs{m: in.m.Clone()}
}

// ToAssignment copies in into a concrete.Assignment for the emulator.
func (in Inputs) ToAssignment() concrete.Assignment {
	if in.m == nil {
		return concrete.NewAssignment()
	}
	return in.m.Clone()
}

// OutcomeKind tags what Run found.
type OutcomeKind int

const (
	NoCounterExample OutcomeKind = iota
	FoundOverConstrained
	FoundUnderConstrainedUnexpectedInput
	FoundUnderConstrainedNonDeterministic
)

// Outcome is what the driver found, plus the reproducibility log: the
// random seed and the per-generation best score history.
type Outcome struct {
	Kind       OutcomeKind
	Inputs     Inputs
	Gene       Gene
	FailureIdx int            // FoundUnderConstrainedUnexpectedInput
	Violated   symbolic.Value // FoundUnderConstrainedUnexpectedInput
	OutputName symbolic.Name  // FoundUnderConstrainedNonDeterministic
	Expected   symbolic.Value // FoundUnderConstrainedNonDeterministic, from the mutated assignment
	Concrete   symbolic.Value // FoundUnderConstrainedNonDeterministic, from the concrete replay

	Seed            int64
	Generation      int
	FitnessScoreLog []float64
}

// Strategy is the refutation surface the facade drives: anything able to
// search one fixed trace/side pair for a counterexample. Driver is the only
// implementation here; the seam exists so an exhaustive strategy could slot
// in without widening the GA driver.
type Strategy interface {
	Run(seed int64) *Outcome
}

var _ Strategy = (*Driver)(nil)

// Driver owns one search run's fixed inputs: the field modulus, the
// symbolic trace/side-constraints produced by the symbolic executor for the
// target path, the set of input names to evolve assignments over, and the
// GA configuration.
type Driver struct {
	Modulus        *big.Int
	Trace          []symbolic.Value
	Side           []symbolic.Value
	InputNames     []symbolic.Name
	Outputs        []symbolic.Name // declared output names, for non-determinism comparison
	Template       *symlib.TemplateDescriptor
	RuntimeMutable map[int]bool
	Cfg            mutationcfg.Config
	RNG            *rand.Rand
	Telemetry      *trace.Telemetry

	eligible     []int
	coverage     *coverage.Tracker
	binaryIDs    map[uint64]bool
	zeroDivCache map[string]*big.Int // resolved (c0,c1,c2) triple -> root, nil for unsolvable
}

// NewDriver builds a Driver with a deterministic RNG seeded from seed. tmpl and
// runtimeMutable are the same template descriptor and runtime-mutation map
// the verification oracle uses, so the two stay in lockstep when the search
// driver falls back to internal/verify for classification.
func NewDriver(modulus *big.Int, trc, side []symbolic.Value, inputs, outputs []symbolic.Name, tmpl *symlib.TemplateDescriptor, runtimeMutable map[int]bool, cfg mutationcfg.Config, seed int64, tel *trace.Telemetry) *Driver {
	d := &Driver{
		Modulus:        modulus,
		Trace:          trc,
		Side:           side,
		InputNames:     inputs,
		Outputs:        outputs,
		Template:       tmpl,
		RuntimeMutable: runtimeMutable,
		Cfg:            cfg,
		RNG:            rand.New(rand.NewSource(seed)),
		Telemetry:      tel,
		coverage:       coverage.NewTracker(),
	}
	d.eligible = eligiblePositions(trc, cfg.TraceMutationMethod)
	d.binaryIDs = detectBinaryInputs(side, inputs, cfg.BinaryModeSearchLevel)
	return d
}

// Run executes the generational loop until a counterexample is
// found or max_generations is exhausted.
func (d *Driver) Run(seed int64) *Outcome {
	out := &Outcome{Kind: NoCounterExample, Seed: seed}

	tracePop := d.initTracePopulation()
	inputPop := d.initInputPopulation(0)

	binaryMode := false
	illegalStreak := 0

	for gen := 0; gen < d.Cfg.MaxGenerations; gen++ {
		out.Generation = gen

		if !binaryMode && gen >= d.Cfg.BinaryModeWarmupRound && len(d.binaryIDs) > 0 {
			binaryMode = true
		}

		if d.Cfg.InputUpdateInterval > 0 && gen%d.Cfg.InputUpdateInterval == 0 && gen > 0 {
			inputPop = d.updateInputs(inputPop, gen, binaryMode)
		}

		if len(tracePop) > 0 {
			tracePop = d.evolveTracePopulation(tracePop)
		}
		tracePop = append(tracePop, Gene{}) // always include the unmutated baseline

		if len(d.zeroDivSites()) > 0 {
			for i, in := range inputPop {
				if d.RNG.Float64() < d.Cfg.ZeroDivAttemptProb {
					inputPop[i] = d.attemptZeroDiv(in)
				}
			}
		}

		best := 0.0
		bestSet := false
		illegalThisGen := 0

		for _, gene := range tracePop {
			for _, in := range inputPop {
				fit, result := d.evaluate(gene, in)
				if !bestSet || fit.score > best {
					best = fit.score
					bestSet = true
				}
				if fit.illegalSubscript {
					illegalThisGen++
				}
				if result != nil {
					if d.Cfg.SaveFitnessScores {
						out.FitnessScoreLog = append(out.FitnessScoreLog, fit.score)
					}
					applyResultToOutcome(out, result, gene, in)
					return out
				}
			}
		}
		if d.Cfg.SaveFitnessScores {
			out.FitnessScoreLog = append(out.FitnessScoreLog, best)
		}

		if illegalThisGen == len(tracePop)*len(inputPop) && !d.Cfg.DisableHeuristicForInvalidArraySubscript {
			illegalStreak++
			if illegalStreak >= 1 {
				binaryMode = true
			}
		} else {
			illegalStreak = 0
		}

		tracePop = d.replaceWorst(tracePop)
	}
	return out
}

func applyResultToOutcome(out *Outcome, result *counterexample, gene Gene, in Inputs) {
	out.Kind = result.kind
	out.Inputs = in.Clone()
	out.Gene = cloneGene(gene)
	out.FailureIdx = result.failureIdx
	out.Violated = result.violated
	out.OutputName = result.outputName
	out.Expected = result.expected
	out.Concrete = result.concrete
}

func cloneGene(g Gene) Gene {
	out := make(Gene, len(g))
	for k, v := range g {
		out[k] = v
	}
	return out
}

// eligiblePositions restricts mutation sites to trace indices whose op is
// Assign(_,_,false,_) or AssignCall(_,_,true) - unless method is naive, in
// which case every Assign/AssignCall position is eligible.
func eligiblePositions(trc []symbolic.Value, method mutationcfg.TraceMutationMethod) []int {
	naive := method == mutationcfg.MethodNaive
	var out []int
	for i, v := range trc {
		switch v.Kind {
		case symbolic.Assign:
			if naive || !v.Safe {
				out = append(out, i)
			}
		case symbolic.AssignCall:
			if naive || v.Mutable {
				out = append(out, i)
			}
		}
	}
	return out
}

func (d *Driver) zeroDivSites() []int {
	var out []int
	for i, v := range d.Trace {
		if v.Kind == symbolic.Assign && v.ZeroDiv != nil {
			out = append(out, i)
		}
	}
	return out
}

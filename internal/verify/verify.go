// Package verify implements the verification oracle: the
// 2x2 decision table that classifies a candidate assignment against a
// symbolically-executed trace/side-constraint pair, falling back to a
// concrete replay to tell an unexpected-input bug apart from genuine
// non-determinism.
//
// A small decision function sits above the interpreter rather than inside
// it, re-running the same program a second way to cross-check itself.
package verify

import (
	"math/big"
	"sort"

	"github.com/zkfuzz/zkfuzz/internal/concrete"
	"github.com/zkfuzz/zkfuzz/internal/field"
	"github.com/zkfuzz/zkfuzz/internal/symbolic"
	"github.com/zkfuzz/zkfuzz/internal/symlib"
)

// OutcomeKind tags which of the five verification outcomes a Result holds.
type OutcomeKind int

const (
	WellConstrained OutcomeKind = iota
	OverConstrained
	UnderConstrainedUnexpectedInput
	UnderConstrainedNonDeterministic
	UnderConstrainedUnusedOutput
)

// Result is the verification oracle's classification of one candidate
// assignment.
type Result struct {
	Kind OutcomeKind

	// UnderConstrainedUnexpectedInput
	FailureIndex int
	Violated     symbolic.Value

	// UnderConstrainedNonDeterministic
	OutputName    symbolic.Name
	ExpectedValue symbolic.Value // from assignment
	ConcreteValue symbolic.Value // from the concrete replay
}

// Config mirrors the subset of the executor's knobs the concrete replay
// needs: the field modulus and which trace positions may use the
// runtime-mutation trick.
type Config struct {
	Modulus        *big.Int
	RuntimeMutable map[int]bool
}

// Verify classifies one candidate assignment. trace and side are the
// symbolic executor's outputs for one path; assignment binds every name the
// trace/side constraints reference (at minimum, every input signal). The
// emulation runs on a clone so the caller's assignment survives untouched
// and the supplied output values stay available for the divergence check.
func Verify(tmpl *symlib.TemplateDescriptor, trace, side []symbolic.Value, assignment concrete.Assignment, cfg Config) Result {
	emulated := assignment.Clone()
	traceOutcome, traceOK := concrete.EmulateTrace(cfg.Modulus, trace, cfg.RuntimeMutable, emulated)
	sideOK := allSatisfied(cfg.Modulus, side, emulated)

	switch {
	case traceOK && traceOutcome.Success && sideOK:
		// Emulation rebinding a declared output away from the supplied
		// witness value means the witness-generator would not have produced
		// this witness, even though both checks pass on the emulated state.
		return compareOutputs(tmpl, assignment, emulated, cfg)
	case traceOK && traceOutcome.Success && !sideOK:
		return Result{Kind: OverConstrained}
	case (!traceOK || !traceOutcome.Success) && sideOK:
		return replayConcrete(tmpl, trace, assignment, cfg)
	default:
		return Result{Kind: WellConstrained}
	}
}

// allSatisfied evaluates every side constraint against assignment; an
// unresolved (unbound) side constraint counts as unsatisfied, since a
// well-constrained path must have every side constraint fully determined by
// the candidate assignment.
func allSatisfied(p *big.Int, side []symbolic.Value, assignment concrete.Assignment) bool {
	for _, v := range side {
		satisfied, ok := evalSide(p, v, assignment)
		if !ok || !satisfied {
			return false
		}
	}
	return true
}

func evalSide(p *big.Int, v symbolic.Value, assignment concrete.Assignment) (bool, bool) {
	switch v.Kind {
	case symbolic.AssignEq:
		return evalSide(p, symbolic.NewBinaryOp(*v.Lhs, field.Eq, *v.Rhs), assignment)
	default:
		r, ok := concrete.Evaluate(p, v, assignment)
		if !ok {
			return false, false
		}
		switch {
		case r.IsConstBool():
			return r.Bool, true
		case r.IsConstInt():
			return r.Int.Sign() != 0, true
		default:
			return false, false
		}
	}
}

// replayConcrete handles the trace-fail/side-pass cell of the outcome
// table: run the executor in concrete mode with assignment as inputs, and
// distinguish UnexpectedInput from NonDeterministic from WellConstrained.
func replayConcrete(tmpl *symlib.TemplateDescriptor, trace []symbolic.Value, assignment concrete.Assignment, cfg Config) Result {
	replay := assignment.Clone()
	outcome, ok := concrete.EmulateTrace(cfg.Modulus, trace, cfg.RuntimeMutable, replay)
	if !ok || !outcome.Success {
		idx := outcome.FirstFailure
		var violated symbolic.Value
		if idx >= 0 && idx < len(trace) {
			violated = trace[idx]
		}
		return Result{Kind: UnderConstrainedUnexpectedInput, FailureIndex: idx, Violated: violated}
	}
	return compareOutputs(tmpl, assignment, replay, cfg)
}

// compareOutputs checks every declared output of tmpl between the supplied
// witness and the trace-emulated assignment; the first divergence (mod p) is
// a non-determinism witness, agreement everywhere is WellConstrained.
func compareOutputs(tmpl *symlib.TemplateDescriptor, supplied, emulated concrete.Assignment, cfg Config) Result {
	ids := make([]uint64, 0, len(tmpl.Outputs))
	for id := range tmpl.Outputs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, outID := range ids {
		name := symbolic.NewName(outID, nil, nil)
		expected, hasExpected := supplied.Get(name)
		concreteVal, hasConcrete := emulated.Get(name)
		if !hasExpected || !hasConcrete {
			continue
		}
		if !valuesEqual(cfg.Modulus, expected, concreteVal) {
			return Result{
				Kind:          UnderConstrainedNonDeterministic,
				OutputName:    name,
				ExpectedValue: expected,
				ConcreteValue: concreteVal,
			}
		}
	}
	return Result{Kind: WellConstrained}
}

func valuesEqual(p *big.Int, a, b symbolic.Value) bool {
	ai, aok := asFieldInt(a)
	bi, bok := asFieldInt(b)
	if !aok || !bok {
		return symbolic.Equal(a, b)
	}
	return field.Reduce(ai, p).Cmp(field.Reduce(bi, p)) == 0
}

func asFieldInt(v symbolic.Value) (*big.Int, bool) {
	switch {
	case v.IsConstInt():
		return v.Int, true
	case v.IsConstBool():
		return field.FromBool(v.Bool), true
	default:
		return nil, false
	}
}

package search

import (
	"math/big"

	"github.com/zkfuzz/zkfuzz/internal/concrete"
	"github.com/zkfuzz/zkfuzz/internal/field"
	"github.com/zkfuzz/zkfuzz/internal/mutationcfg"
	"github.com/zkfuzz/zkfuzz/internal/symbolic"
	"github.com/zkfuzz/zkfuzz/internal/verify"
)

// fitness scores one (gene, inputs) pairing for the GA's selection
// pressure: the score is the negated aggregate side-constraint error under
// the configured fitness_function, so 0 means every side constraint is
// satisfied and more-negative means further from satisfiable. A trace that
// cannot even produce a witness scores minus the sum of the trace length
// and the side-constraint count.
type fitness struct {
	score            float64
	illegalSubscript bool
}

// counterexample is evaluate's internal report of a confirmed bug, folded
// into an Outcome by applyResultToOutcome once Run decides to stop.
type counterexample struct {
	kind       OutcomeKind
	failureIdx int
	violated   symbolic.Value
	outputName symbolic.Name
	expected   symbolic.Value
	concrete   symbolic.Value
}

// evaluate runs gene applied over the trace (the unmutated trace when gene
// is empty) against in, and reports both a continuous fitness score and,
// when the pairing exposes a bug, a counterexample.
//
// Three cases reach a verdict:
//   - gene is empty and the real trace binds a witness the real side
//     constraints reject: OverConstrained, evaluated directly since no
//     mutation was needed to find it.
//   - gene is empty, the real trace fails at index k, and the side
//     constraints are all satisfied by the partial witness: an input the
//     verifier accepts but the program aborts on, UnexpectedInput(k).
//   - gene is non-empty, its mutated witness satisfies every side
//     constraint, and that same witness disagrees with what the real
//     circuit does on these inputs: the exact "trace failed or diverged,
//     side passed" cell internal/verify's oracle already classifies, so
//     evaluate defers to verify.Verify rather than re-deriving the
//     UnexpectedInput/NonDeterministic distinction.
func (d *Driver) evaluate(gene Gene, in Inputs) (fitness, *counterexample) {
	mutated := applyGene(d.Trace, gene)
	assignment := in.ToAssignment()

	runtimeMutable := d.RuntimeMutable
	if d.RNG != nil && d.RNG.Float64() < d.Cfg.RuntimeMutationRate {
		runtimeMutable = nil
	}

	outcome, ok := concrete.EmulateTrace(d.Modulus, mutated, runtimeMutable, assignment)
	if !ok {
		return fitness{score: -float64(len(mutated) + len(d.Side)), illegalSubscript: true}, nil
	}
	if !outcome.Success {
		if len(gene) == 0 {
			errTotal, unsat, _ := d.sideError(assignment)
			if unsat == 0 {
				var violated symbolic.Value
				if outcome.FirstFailure >= 0 && outcome.FirstFailure < len(mutated) {
					violated = mutated[outcome.FirstFailure]
				}
				return fitness{score: 0}, &counterexample{
					kind:       FoundUnderConstrainedUnexpectedInput,
					failureIdx: outcome.FirstFailure,
					violated:   violated,
				}
			}
			return fitness{score: -errTotal + float64(outcome.FirstFailure-len(mutated))}, nil
		}
		return fitness{score: float64(outcome.FirstFailure - len(mutated))}, nil
	}

	errTotal, unsat, firstUnsat := d.sideError(assignment)

	if len(gene) == 0 {
		if unsat > 0 {
			var violated symbolic.Value
			if firstUnsat >= 0 {
				violated = d.Side[firstUnsat]
			}
			return fitness{score: 0}, &counterexample{
				kind:       FoundOverConstrained,
				failureIdx: firstUnsat,
				violated:   violated,
			}
		}
		return fitness{score: 0}, nil
	}

	if unsat > 0 {
		return fitness{score: -errTotal}, nil
	}

	result := verify.Verify(d.Template, d.Trace, d.Side, assignment, verify.Config{
		Modulus:        d.Modulus,
		RuntimeMutable: d.RuntimeMutable,
	})
	switch result.Kind {
	case verify.UnderConstrainedUnexpectedInput:
		return fitness{score: 0}, &counterexample{
			kind:       FoundUnderConstrainedUnexpectedInput,
			failureIdx: result.FailureIndex,
			violated:   result.Violated,
		}
	case verify.UnderConstrainedNonDeterministic:
		return fitness{score: 0}, &counterexample{
			kind:       FoundUnderConstrainedNonDeterministic,
			outputName: result.OutputName,
			expected:   result.ExpectedValue,
			concrete:   result.ConcreteValue,
		}
	default:
		return fitness{score: 0}, nil
	}
}

// sideError aggregates the per-constraint errors under the configured
// fitness_function: accumulate-error sums them, count-error counts the
// unsatisfied constraints, max-error keeps the single worst, const is flat.
// Also reports how many constraints are unsatisfied and the first such
// index, which the aggregate modes share.
func (d *Driver) sideError(assignment concrete.Assignment) (aggregate float64, unsat int, first int) {
	total, maxErr := 0.0, 0.0
	first = -1
	for i, v := range d.Side {
		e := constraintError(d.Modulus, v, assignment)
		if e > 0 {
			unsat++
			if first < 0 {
				first = i
			}
			total += e
			if e > maxErr {
				maxErr = e
			}
		}
	}
	switch d.Cfg.FitnessFunction {
	case mutationcfg.FitnessCountError:
		return float64(unsat), unsat, first
	case mutationcfg.FitnessMaxError:
		return maxErr, unsat, first
	case mutationcfg.FitnessConst:
		if unsat > 0 {
			return 1, unsat, first
		}
		return 0, unsat, first
	default:
		return total, unsat, first
	}
}

// constraintError is the per-constraint truth-distance surrogate: 0 when the
// constraint holds, a positive magnitude indicating how far it is from
// holding otherwise. Equality-shaped nodes measure |a-b| on the signed
// representatives, relational nodes measure how far past the boundary the
// losing side sits, and everything else (including an unresolved constraint)
// degrades to a flat 0/1 distance.
func constraintError(p *big.Int, v symbolic.Value, assignment concrete.Assignment) float64 {
	switch v.Kind {
	case symbolic.AssignEq, symbolic.Assign, symbolic.AssignCall:
		return equalityError(p, *v.Lhs, *v.Rhs, assignment)

	case symbolic.BinaryOp, symbolic.AuxBinaryOp:
		lhs, lok := evalToInt(p, *v.Lhs, assignment)
		rhs, rok := evalToInt(p, *v.Rhs, assignment)
		if !lok || !rok {
			return boolError(p, v, assignment)
		}
		a := field.Signed(field.Reduce(lhs, p), p)
		b := field.Signed(field.Reduce(rhs, p), p)
		diff := new(big.Int).Sub(a, b)
		switch v.Op {
		case field.Eq:
			return clampAbs(diff)
		case field.NotEq:
			if diff.Sign() == 0 {
				return 1
			}
			return 0
		case field.Lesser:
			return clampPositive(new(big.Int).Add(diff, big.NewInt(1)))
		case field.LesserEq:
			return clampPositive(diff)
		case field.Greater:
			return clampPositive(new(big.Int).Add(new(big.Int).Neg(diff), big.NewInt(1)))
		case field.GreaterEq:
			return clampPositive(new(big.Int).Neg(diff))
		default:
			return boolError(p, v, assignment)
		}

	case symbolic.UnaryOp:
		if v.Un == symbolic.UnaryBoolNot {
			inner := constraintError(p, *v.Lhs, assignment)
			if inner > 0 {
				return 0
			}
			return 1
		}
		return boolError(p, v, assignment)

	default:
		return boolError(p, v, assignment)
	}
}

func equalityError(p *big.Int, lhs, rhs symbolic.Value, assignment concrete.Assignment) float64 {
	a, aok := evalToInt(p, lhs, assignment)
	b, bok := evalToInt(p, rhs, assignment)
	if !aok || !bok {
		return 1
	}
	sa := field.Signed(field.Reduce(a, p), p)
	sb := field.Signed(field.Reduce(b, p), p)
	return clampAbs(new(big.Int).Sub(sa, sb))
}

// boolError is the flat fallback: evaluate the node as a predicate, 0 when
// it holds, 1 when it fails or cannot be resolved.
func boolError(p *big.Int, v symbolic.Value, assignment concrete.Assignment) float64 {
	satisfied, ok := evalSideBool(p, v, assignment)
	if ok && satisfied {
		return 0
	}
	return 1
}

func evalToInt(p *big.Int, v symbolic.Value, assignment concrete.Assignment) (*big.Int, bool) {
	r, ok := concrete.Evaluate(p, v, assignment)
	if !ok {
		return nil, false
	}
	switch {
	case r.IsConstInt():
		return r.Int, true
	case r.IsConstBool():
		return field.FromBool(r.Bool), true
	default:
		return nil, false
	}
}

func clampAbs(d *big.Int) float64 {
	f, _ := new(big.Float).SetInt(new(big.Int).Abs(d)).Float64()
	return f
}

func clampPositive(d *big.Int) float64 {
	if d.Sign() <= 0 {
		return 0
	}
	f, _ := new(big.Float).SetInt(d).Float64()
	return f
}

// applyGene overlays gene's replacements onto trace, leaving every
// unmutated position aliased to the original slice.
func applyGene(trace []symbolic.Value, gene Gene) []symbolic.Value {
	if len(gene) == 0 {
		return trace
	}
	out := make([]symbolic.Value, len(trace))
	copy(out, trace)
	for idx, v := range gene {
		if idx >= 0 && idx < len(out) {
			out[idx] = v
		}
	}
	return out
}

// evalSideBool mirrors internal/verify's side-constraint truth evaluation:
// an AssignEq is a disguised equality predicate, everything else evaluates
// and coerces to bool the way a witness-checker would.
func evalSideBool(p *big.Int, v symbolic.Value, assignment concrete.Assignment) (bool, bool) {
	switch v.Kind {
	case symbolic.AssignEq:
		return evalSideBool(p, symbolic.NewBinaryOp(*v.Lhs, field.Eq, *v.Rhs), assignment)
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

package search

import (
	"math/big"

	"github.com/zkfuzz/zkfuzz/internal/field"
	"github.com/zkfuzz/zkfuzz/internal/mutationcfg"
	"github.com/zkfuzz/zkfuzz/internal/symbolic"
)

// mutatePrimitive builds a replacement for trace[idx] (an Assign or
// AssignCall node) per trace_mutation_method: the lhs is kept,
// only the rhs changes shape.
func (d *Driver) mutatePrimitive(original symbolic.Value) symbolic.Value {
	method := d.Cfg.TraceMutationMethod
	if method == mutationcfg.MethodNaive {
		switch d.RNG.Intn(4) {
		case 0:
			method = mutationcfg.MethodConstant
		case 1:
			method = mutationcfg.MethodConstantOperator
		case 2:
			method = mutationcfg.MethodConstantOperatorAdd
		default:
			method = mutationcfg.MethodConstantOperatorDelete
		}
	}

	newRhs := d.mutateRhs(*original.Rhs, method)

	switch original.Kind {
	case symbolic.Assign:
		return symbolic.NewAssign(*original.Lhs, newRhs, original.Safe, nil)
	case symbolic.AssignCall:
		return symbolic.NewAssignCall(*original.Lhs, newRhs, original.Mutable)
	default:
		return original
	}
}

func (d *Driver) mutateRhs(rhs symbolic.Value, method mutationcfg.TraceMutationMethod) symbolic.Value {
	switch method {
	case mutationcfg.MethodConstantOperator:
		if rhs.Kind == symbolic.BinaryOp {
			return symbolic.NewBinaryOp(*rhs.Lhs, d.randomOtherOp(rhs.Op), *rhs.Rhs)
		}
		return d.randomConstValue()
	case mutationcfg.MethodConstantOperatorAdd:
		base := rhs
		if rhs.Kind == symbolic.BinaryOp {
			base = symbolic.NewBinaryOp(*rhs.Lhs, d.randomOtherOp(rhs.Op), *rhs.Rhs)
		}
		return symbolic.NewBinaryOp(base, field.Add, d.randomConstValue())
	case mutationcfg.MethodConstantOperatorDelete:
		if rhs.Kind == symbolic.BinaryOp {
			if d.RNG.Intn(2) == 0 {
				return *rhs.Lhs
			}
			return *rhs.Rhs
		}
		return d.randomConstValue()
	default: // constant
		return d.randomConstValue()
	}
}

func (d *Driver) randomConstValue() symbolic.Value {
	n := new(big.Int).Rand(d.RNG, d.Modulus)
	return symbolic.Int(n)
}

var mutableOps = []field.Op{
	field.Add, field.Sub, field.Mul, field.Div,
	field.Lesser, field.Greater, field.LesserEq, field.GreaterEq, field.Eq, field.NotEq,
}

func (d *Driver) randomOtherOp(current field.Op) field.Op {
	for tries := 0; tries < 8; tries++ {
		op := mutableOps[d.RNG.Intn(len(mutableOps))]
		if op != current {
			return op
		}
	}
	return current
}

// evolveTracePopulation runs one generation of roulette-weighted selection,
// crossover, and mutation over the trace population.
func (d *Driver) evolveTracePopulation(pop []Gene) []Gene {
	weights := d.fitnessWeights(pop)
	next := make([]Gene, 0, len(pop))
	for len(next) < len(pop) {
		a := d.selectByWeight(pop, weights)
		b := d.selectByWeight(pop, weights)
		child := crossover(a, b, d.RNG, d.Cfg.CrossoverRate)
		child = d.mutateGene(child)
		next = append(next, child)
	}
	return next
}

// fitnessWeights scores every gene against one representative input (a
// freshly drawn random input serves as the probe; the
// main evaluation loop still scores every gene x input pairing) and maps
// the resulting error to a positive roulette weight.
func (d *Driver) fitnessWeights(pop []Gene) []float64 {
	weights := make([]float64, len(pop))
	probe := d.randomInputs(false)
	for i, g := range pop {
		fit, _ := d.evaluate(g, probe)
		weights[i] = 1.0 / (1.0 + errorMagnitude(fit.score))
	}
	return weights
}

func errorMagnitude(score float64) float64 {
	if score < 0 {
		return -score
	}
	return score
}

func (d *Driver) selectByWeight(pop []Gene, weights []float64) Gene {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return pop[d.RNG.Intn(len(pop))]
	}
	r := d.RNG.Float64() * total
	acc := 0.0
	for i, w := range weights {
		acc += w
		if r <= acc {
			return pop[i]
		}
	}
	return pop[len(pop)-1]
}

// crossover picks each gene slot randomly from one parent or the other.
func crossover(a, b Gene, rng interface{ Float64() float64 }, rate float64) Gene {
	out := Gene{}
	keys := map[int]bool{}
	for k := range a {
		keys[k] = true
	}
	for k := range b {
		keys[k] = true
	}
	for k := range keys {
		if rng.Float64() < rate {
			if v, ok := b[k]; ok {
				out[k] = v
				continue
			}
		}
		if v, ok := a[k]; ok {
			out[k] = v
		} else if v, ok := b[k]; ok {
			out[k] = v
		}
	}
	return out
}

// mutateGene applies per-slot mutation_rate mutation, plus a chance to
// introduce a mutation at a previously-unmutated eligible position.
func (d *Driver) mutateGene(g Gene) Gene {
	out := Gene{}
	for k, v := range g {
		if d.RNG.Float64() < d.Cfg.MutationRate {
			out[k] = d.mutatePrimitive(d.Trace[k])
		} else {
			out[k] = v
		}
	}
	for _, idx := range d.eligible {
		if _, already := out[idx]; already {
			continue
		}
		if d.RNG.Float64() < d.Cfg.MutationRate {
			out[idx] = d.mutatePrimitive(d.Trace[idx])
		}
	}
	return out
}

// replaceWorst evaluates every gene against a fresh random probe input and
// replaces the worst-performing slots with freshly initialized genes.
func (d *Driver) replaceWorst(pop []Gene) []Gene {
	if len(pop) == 0 {
		return pop
	}
	probe := d.randomInputs(false)
	type scored struct {
		gene  Gene
		score float64
	}
	ranked := make([]scored, len(pop))
	for i, g := range pop {
		fit, _ := d.evaluate(g, probe)
		ranked[i] = scored{g, fit.score}
	}
	for i := 0; i < len(ranked); i++ {
		for j := i + 1; j < len(ranked); j++ {
			if ranked[j].score > ranked[i].score {
				ranked[i], ranked[j] = ranked[j], ranked[i]
			}
		}
	}
	eliminated := len(ranked) / 4
	out := make([]Gene, len(ranked))
	for i, s := range ranked {
		out[i] = s.gene
	}
	for i := 0; i < eliminated; i++ {
		out[len(out)-1-i] = d.randomGene()
	}
	return out
}

package search

import (
	"math/big"

	"github.com/zkfuzz/zkfuzz/internal/coverage"
	"github.com/zkfuzz/zkfuzz/internal/mutationcfg"
	"github.com/zkfuzz/zkfuzz/internal/symbolic"
)

// initTracePopulation seeds program_population_size genes.
func (d *Driver) initTracePopulation() []Gene {
	pop := make([]Gene, 0, d.Cfg.ProgramPopulationSize)
	for i := 0; i < d.Cfg.ProgramPopulationSize; i++ {
		pop = append(pop, d.randomGene())
	}
	return pop
}

// randomGene builds one gene by mutating each eligible trace position with
// probability mutation_rate.
func (d *Driver) randomGene() Gene {
	g := Gene{}
	for _, idx := range d.eligible {
		if d.RNG.Float64() < d.Cfg.MutationRate {
			g[idx] = d.mutatePrimitive(d.Trace[idx])
		}
	}
	return g
}

// initInputPopulation seeds input_population_size candidate assignments.
// gen is the generation this initialization happens at, used
// only for telemetry.
func (d *Driver) initInputPopulation(gen int) []Inputs {
	pop := make([]Inputs, 0, d.Cfg.InputPopulationSize)
	for i := 0; i < d.Cfg.InputPopulationSize; i++ {
		pop = append(pop, d.randomInputs(false))
	}
	if d.Telemetry != nil {
		d.Telemetry.Infof("search", "initialized %d input candidates at generation %d", len(pop), gen)
	}
	return pop
}

// randomInputs draws one field element per input name. When binaryMode is
// set, inputs detected as participating in an x*(1-x)==0 pattern
// are drawn from {0,1} with probability
// binary_mode_prob instead of the full range.
func (d *Driver) randomInputs(binaryMode bool) Inputs {
	in := newInputs()
	for _, name := range d.InputNames {
		in.Set(name, d.randomFieldValueBiased(name, binaryMode))
	}
	return in
}

// randomFieldValue draws a uniformly random element of [0, p), or, when
// random_value_ranges/probs are configured, from the configured mixture of
// sub-ranges.
func (d *Driver) randomFieldValue() symbolic.Value {
	if rangeCfg, ok := d.pickRange(); ok {
		return symbolic.Int(randomInRange(d.RNG.Int63(), rangeCfg))
	}
	n := new(big.Int).Rand(d.RNG, d.Modulus)
	return symbolic.Int(n)
}

func (d *Driver) pickRange() (mutationcfg.RandomValueRange, bool) {
	if len(d.Cfg.RandomValueRanges) == 0 || len(d.Cfg.RandomValueRanges) != len(d.Cfg.RandomValueProbs) {
		return mutationcfg.RandomValueRange{}, false
	}
	total := 0.0
	for _, p := range d.Cfg.RandomValueProbs {
		total += p
	}
	if total <= 0 {
		return mutationcfg.RandomValueRange{}, false
	}
	r := d.RNG.Float64() * total
	acc := 0.0
	for i, p := range d.Cfg.RandomValueProbs {
		acc += p
		if r <= acc {
			return d.Cfg.RandomValueRanges[i], true
		}
	}
	return d.Cfg.RandomValueRanges[len(d.Cfg.RandomValueRanges)-1], true
}

func randomInRange(seed int64, rangeCfg mutationcfg.RandomValueRange) *big.Int {
	low, lowOK := new(big.Int).SetString(rangeCfg.Low, 10)
	high, highOK := new(big.Int).SetString(rangeCfg.High, 10)
	if !lowOK || !highOK || high.Cmp(low) <= 0 {
		return big.NewInt(0)
	}
	span := new(big.Int).Sub(high, low)
	if seed < 0 {
		seed = -seed
	}
	offset := new(big.Int).Mod(big.NewInt(seed), span)
	return new(big.Int).Add(low, offset)
}

// updateInputs regenerates the input population per
// input_initialization_method: "random" draws fresh candidates
// each time; "fitness" keeps the half of the population that scored best
// last round and perturbs it, backfilling the rest randomly; "coverage"
// keeps the candidates whose side-constraint satisfaction pattern is a novel
// path fingerprint and perturbs the rest.
func (d *Driver) updateInputs(pop []Inputs, gen int, binaryMode bool) []Inputs {
	switch d.Cfg.InputInitializationMethod {
	case mutationcfg.InputFitness:
		return d.updateInputsByFitness(pop, binaryMode)
	case mutationcfg.InputCoverage:
		return d.updateInputsByCoverage(pop, binaryMode)
	default:
		out := make([]Inputs, len(pop))
		for i := range pop {
			out[i] = d.randomInputs(binaryMode)
		}
		return out
	}
}

func (d *Driver) updateInputsByFitness(pop []Inputs, binaryMode bool) []Inputs {
	type scoredInput struct {
		in    Inputs
		score float64
	}
	scored := make([]scoredInput, len(pop))
	for i, in := range pop {
		fit, _ := d.evaluate(Gene{}, in)
		scored[i] = scoredInput{in, fit.score}
	}
	for i := 0; i < len(scored); i++ {
		for j := i + 1; j < len(scored); j++ {
			if scored[j].score > scored[i].score {
				scored[i], scored[j] = scored[j], scored[i]
			}
		}
	}
	keep := len(scored) / 2
	if keep < 1 {
		keep = 1
	}
	out := make([]Inputs, len(pop))
	for i := 0; i < len(pop); i++ {
		if i < keep {
			out[i] = d.perturbInputs(scored[i].in, binaryMode)
		} else {
			out[i] = d.randomInputs(binaryMode)
		}
	}
	return out
}

func (d *Driver) updateInputsByCoverage(pop []Inputs, binaryMode bool) []Inputs {
	out := make([]Inputs, len(pop))
	for i, in := range pop {
		if d.isNovelCoverage(in) {
			out[i] = in
		} else {
			out[i] = d.perturbInputs(in, binaryMode)
		}
	}
	return out
}

// isNovelCoverage evaluates every side constraint against in's bound inputs
// (no trace emulation) and records a coarse path fingerprint derived from
// which of them hold, reporting whether the fingerprint is new.
func (d *Driver) isNovelCoverage(in Inputs) bool {
	assignment := in.ToAssignment()
	dirs := make([]coverage.Direction, 0, len(d.Side))
	for _, v := range d.Side {
		satisfied, _ := evalSideBool(d.Modulus, v, assignment)
		if satisfied {
			dirs = append(dirs, coverage.Then)
		} else {
			dirs = append(dirs, coverage.Else)
		}
	}
	return d.coverage.Record(dirs)
}

// perturbInputs nudges every input by a small random delta, used by the
// "fitness"/"coverage" update strategies to explore near a promising
// candidate rather than discarding it outright.
func (d *Driver) perturbInputs(in Inputs, binaryMode bool) Inputs {
	out := in.Clone()
	for _, name := range d.InputNames {
		if d.RNG.Float64() < d.Cfg.MutationRate {
			out.Set(name, d.randomFieldValueBiased(name, binaryMode))
		}
	}
	return out
}

func (d *Driver) randomFieldValueBiased(name symbolic.Name, binaryMode bool) symbolic.Value {
	if binaryMode && d.binaryIDs[name.ID] && d.RNG.Float64() < d.Cfg.BinaryModeProb {
		if d.RNG.Intn(2) == 0 {
			return symbolic.IntI(0)
		}
		return symbolic.IntI(1)
	}
	return d.randomFieldValue()
}

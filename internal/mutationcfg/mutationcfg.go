// Package mutationcfg loads and validates the mutation-test search driver's
// JSON configuration.
//
// The loader compiles the config's JSON Schema once with
// github.com/santhosh-tekuri/jsonschema/v5 and validates the raw JSON
// against it before unmarshalling into the typed Config struct, so a
// malformed config fails with a schema-level diagnostic instead of a
// confusing zero-value default slipping silently into the search driver.
package mutationcfg

import (
	"encoding/json"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/zkfuzz/zkfuzz/internal/zkerr"
)

// TraceMutationMethod selects the trace-gene initialization/mutation
// primitive.
type TraceMutationMethod string

const (
	MethodConstant               TraceMutationMethod = "constant"
	MethodConstantOperator       TraceMutationMethod = "constant_operator"
	MethodConstantOperatorAdd    TraceMutationMethod = "constant_operator_add"
	MethodConstantOperatorDelete TraceMutationMethod = "constant_operator_delete"
	MethodNaive                  TraceMutationMethod = "naive"
)

// InputInitializationMethod selects the input-update strategy.
type InputInitializationMethod string

const (
	InputRandom   InputInitializationMethod = "random"
	InputFitness  InputInitializationMethod = "fitness"
	InputCoverage InputInitializationMethod = "coverage"
)

// FitnessFunction selects how unsatisfied side constraints are scored.
type FitnessFunction string

const (
	FitnessAccumulateError FitnessFunction = "accumulate-error"
	FitnessCountError      FitnessFunction = "count-error"
	FitnessMaxError        FitnessFunction = "max-error"
	FitnessConst           FitnessFunction = "const"
)

// RandomValueRange is one entry of the random-value mixture.
type RandomValueRange struct {
	Low  string `json:"low"`
	High string `json:"high"`
}

// Config is the fully typed mutation-test configuration.
type Config struct {
	ProgramPopulationSize int     `json:"program_population_size"`
	InputPopulationSize   int     `json:"input_population_size"`
	MaxGenerations        int     `json:"max_generations"`
	MutationRate          float64 `json:"mutation_rate"`
	CrossoverRate         float64 `json:"crossover_rate"`
	InputUpdateInterval   int     `json:"input_update_interval"`

	TraceMutationMethod       TraceMutationMethod       `json:"trace_mutation_method"`
	InputInitializationMethod InputInitializationMethod `json:"input_initialization_method"`
	FitnessFunction           FitnessFunction           `json:"fitness_function"`

	BinaryModeProb        float64 `json:"binary_mode_prob"`
	BinaryModeSearchLevel int     `json:"binary_mode_search_level"`
	BinaryModeWarmupRound int     `json:"binary_mode_warmup_round"`

	RandomValueRanges []RandomValueRange `json:"random_value_ranges"`
	RandomValueProbs  []float64          `json:"random_value_probs"`

	ZeroDivAttemptProb  float64 `json:"zero_div_attempt_prob"`
	RuntimeMutationRate float64 `json:"runtime_mutation_rate"`

	DisableRuntimeMutationForHashCheck       bool `json:"dissable_runtime_mutation_for_hash_check"`
	DisableHeuristicForInvalidArraySubscript bool `json:"dissable_heuristic_for_invalid_array_subscript"`
	SaveFitnessScores                        bool `json:"save_fitness_scores"`
}

// Default is a small, fast-terminating configuration suitable as a
// starting point before a user supplies their own
// `path_to_mutation_setting`.
func Default() Config {
	return Config{
		ProgramPopulationSize:     8,
		InputPopulationSize:       16,
		MaxGenerations:            50,
		MutationRate:              0.1,
		CrossoverRate:             0.5,
		InputUpdateInterval:       5,
		TraceMutationMethod:       MethodConstant,
		InputInitializationMethod: InputRandom,
		FitnessFunction:           FitnessAccumulateError,
		BinaryModeProb:            0.3,
		BinaryModeSearchLevel:     2,
		BinaryModeWarmupRound:     5,
		ZeroDivAttemptProb:        0.2,
		RuntimeMutationRate:       0.5,
		SaveFitnessScores:         true,
	}
}

const schemaDoc = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "program_population_size": {"type": "integer", "minimum": 1},
    "input_population_size": {"type": "integer", "minimum": 1},
    "max_generations": {"type": "integer", "minimum": 1},
    "mutation_rate": {"type": "number", "minimum": 0, "maximum": 1},
    "crossover_rate": {"type": "number", "minimum": 0, "maximum": 1},
    "input_update_interval": {"type": "integer", "minimum": 1},
    "trace_mutation_method": {
      "type": "string",
      "enum": ["constant", "constant_operator", "constant_operator_add", "constant_operator_delete", "naive"]
    },
    "input_initialization_method": {
      "type": "string",
      "enum": ["random", "fitness", "coverage"]
    },
    "fitness_function": {
      "type": "string",
      "enum": ["accumulate-error", "count-error", "max-error", "const"]
    },
    "binary_mode_prob": {"type": "number", "minimum": 0, "maximum": 1},
    "binary_mode_search_level": {"type": "integer", "minimum": 0},
    "binary_mode_warmup_round": {"type": "integer", "minimum": 0},
    "zero_div_attempt_prob": {"type": "number", "minimum": 0, "maximum": 1},
    "runtime_mutation_rate": {"type": "number", "minimum": 0, "maximum": 1},
    "dissable_runtime_mutation_for_hash_check": {"type": "boolean"},
    "dissable_heuristic_for_invalid_array_subscript": {"type": "boolean"},
    "save_fitness_scores": {"type": "boolean"}
  }
}`

var compiledSchema *jsonschema.Schema

func schema() (*jsonschema.Schema, error) {
	if compiledSchema != nil {
		return compiledSchema, nil
	}
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	url := "schema://mutationcfg.json"
	if err := compiler.AddResource(url, strings.NewReader(schemaDoc)); err != nil {
		return nil, err
	}
	s, err := compiler.Compile(url)
	if err != nil {
		return nil, err
	}
	compiledSchema = s
	return s, nil
}

// Load validates raw (the contents of `path_to_mutation_setting`) against
// the embedded JSON Schema, then unmarshals it on top of Default() so any
// knob the caller omits keeps its sane default.
func Load(raw []byte) (Config, error) {
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return Config{}, zkerr.Wrap("parsing mutation-test config", err.Error())
	}

	s, err := schema()
	if err != nil {
		return Config{}, zkerr.Wrap("compiling mutation-test config schema", err.Error())
	}
	if err := s.Validate(generic); err != nil {
		return Config{}, &zkerr.Error{
			Context:    "validating mutation-test config",
			Message:    err.Error(),
			Suggestion: "check trace_mutation_method/input_initialization_method/fitness_function against their allowed enum values",
		}
	}

	cfg := Default()
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return Config{}, zkerr.Wrap("decoding mutation-test config", err.Error())
	}
	return cfg, nil
}

// ValidEnumValue reports whether v is a recognized value for one of the
// three string-enum knobs.
func ValidEnumValue(field, v string) bool {
	var allowed []string
	switch field {
	case "trace_mutation_method":
		allowed = []string{string(MethodConstant), string(MethodConstantOperator), string(MethodConstantOperatorAdd), string(MethodConstantOperatorDelete), string(MethodNaive)}
	case "input_initialization_method":
		allowed = []string{string(InputRandom), string(InputFitness), string(InputCoverage)}
	case "fitness_function":
		allowed = []string{string(FitnessAccumulateError), string(FitnessCountError), string(FitnessMaxError), string(FitnessConst)}
	default:
		return false
	}
	for _, a := range allowed {
		if a == v {
			return true
		}
	}
	return false
}

// EnumValues returns the allowed values for field, or nil if field isn't a
// recognized enum knob.
func EnumValues(field string) []string {
	switch field {
	case "trace_mutation_method":
		return []string{string(MethodConstant), string(MethodConstantOperator), string(MethodConstantOperatorAdd), string(MethodConstantOperatorDelete), string(MethodNaive)}
	case "input_initialization_method":
		return []string{string(InputRandom), string(InputFitness), string(InputCoverage)}
	case "fitness_function":
		return []string{string(FitnessAccumulateError), string(FitnessCountError), string(FitnessMaxError), string(FitnessConst)}
	default:
		return nil
	}
}

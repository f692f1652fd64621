package mutationcfg

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaultsForOmittedFields(t *testing.T) {
	cfg, err := Load([]byte(`{"max_generations": 100}`))
	require.NoError(t, err)
	require.Equal(t, 100, cfg.MaxGenerations)
	require.Equal(t, Default().ProgramPopulationSize, cfg.ProgramPopulationSize)
	require.Equal(t, Default().TraceMutationMethod, cfg.TraceMutationMethod)
}

func TestLoadRejectsInvalidEnum(t *testing.T) {
	_, err := Load([]byte(`{"trace_mutation_method": "bogus"}`))
	require.Error(t, err)
}

func TestLoadRejectsOutOfRangeProbability(t *testing.T) {
	_, err := Load([]byte(`{"mutation_rate": 1.5}`))
	require.Error(t, err)
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	_, err := Load([]byte(`not json`))
	require.Error(t, err)
}

func TestLoadAcceptsFullyOverriddenConfig(t *testing.T) {
	raw := []byte(`{
		"program_population_size": 4,
		"input_population_size": 8,
		"max_generations": 10,
		"mutation_rate": 0.2,
		"crossover_rate": 0.7,
		"input_update_interval": 2,
		"trace_mutation_method": "naive",
		"input_initialization_method": "coverage",
		"fitness_function": "max-error",
		"binary_mode_prob": 0.5,
		"binary_mode_search_level": 3,
		"binary_mode_warmup_round": 1,
		"zero_div_attempt_prob": 0.1,
		"runtime_mutation_rate": 0.9,
		"dissable_runtime_mutation_for_hash_check": true,
		"dissable_heuristic_for_invalid_array_subscript": true,
		"save_fitness_scores": true
	}`)
	cfg, err := Load(raw)
	require.NoError(t, err)
	require.Equal(t, 4, cfg.ProgramPopulationSize)
	require.Equal(t, MethodNaive, cfg.TraceMutationMethod)
	require.Equal(t, InputCoverage, cfg.InputInitializationMethod)
	require.Equal(t, FitnessMaxError, cfg.FitnessFunction)
	require.True(t, cfg.DisableRuntimeMutationForHashCheck)
	require.True(t, cfg.SaveFitnessScores)
}

func TestValidEnumValue(t *testing.T) {
	require.True(t, ValidEnumValue("trace_mutation_method", "naive"))
	require.False(t, ValidEnumValue("trace_mutation_method", "nope"))
	require.True(t, ValidEnumValue("input_initialization_method", "coverage"))
	require.False(t, ValidEnumValue("unknown_field", "anything"))
}

func TestEnumValuesReturnsNilForUnknownField(t *testing.T) {
	require.Nil(t, EnumValues("not_a_field"))
	require.ElementsMatch(t, []string{"accumulate-error", "count-error", "max-error", "const"}, EnumValues("fitness_function"))
}

func TestDefaultParameters(t *testing.T) {
	cfg := Default()
	require.Equal(t, 8, cfg.ProgramPopulationSize)
	require.Equal(t, 16, cfg.InputPopulationSize)
	require.Equal(t, 50, cfg.MaxGenerations)
}

// Package report serializes a counterexample (or its absence) to the JSON
// report shape: keys carry lexicographic numeric prefixes
// so a plain `json.Marshal` of a struct (whose field order IS the encoding
// order in Go) reproduces the required key ordering without needing an
// ordered-map type.
package report

import (
	"encoding/json"
	"runtime/debug"

	"golang.org/x/crypto/blake2b"

	"github.com/zkfuzz/zkfuzz/internal/concrete"
	"github.com/zkfuzz/zkfuzz/internal/mutationcfg"
	"github.com/zkfuzz/zkfuzz/internal/namepool"
	"github.com/zkfuzz/zkfuzz/internal/symbolic"
	"github.com/zkfuzz/zkfuzz/internal/verify"
)

// FlagType is the outer `5_flag.1_type` discriminant.
type FlagType string

const (
	FlagWellConstrained                  FlagType = "WellConstrained"
	FlagOverConstrained                  FlagType = "OverConstrained"
	FlagUnderConstrainedUnusedOutput     FlagType = "UnderConstrained-UnusedOutput"
	FlagUnderConstrainedUnexpectedInput  FlagType = "UnderConstrained-UnexpectedInput"
	FlagUnderConstrainedNonDeterministic FlagType = "UnderConstrained-NonDeterministic"
)

// Flag is the `5_flag` object. At most one of ViolatedCondition/
// ExpectedOutput is populated, matching which outcome Type names; neither
// is set for WellConstrained, OverConstrained or UnusedOutput.
type Flag struct {
	Type              FlagType `json:"1_type"`
	ViolatedCondition string   `json:"2_violated_condition,omitempty"`
	ExpectedOutput    string   `json:"2_expected_output,omitempty"`
}

// MutationTestLog is the `8_auxiliary_result.mutation_test_log` object.
type MutationTestLog struct {
	RandomSeed      int64     `json:"random_seed"`
	Generation      int       `json:"generation"`
	FitnessScoreLog []float64 `json:"fitness_score_log"`
}

// AuxiliaryResult is the `8_auxiliary_result` object.
type AuxiliaryResult struct {
	MutationTestConfig mutationcfg.Config `json:"mutation_test_config"`
	MutationTestLog    MutationTestLog    `json:"mutation_test_log"`
}

// CounterExample is the full JSON report produced for one search run.
// Field declaration order drives the JSON key order.
type CounterExample struct {
	TargetPath    string            `json:"0_target_path"`
	MainTemplate  string            `json:"1_main_template"`
	SearchMode    string            `json:"2_search_mode"`
	ExecutionTime string            `json:"3_execution_time"`
	GitHash       string            `json:"4_git_hash"`
	FlagObj       Flag              `json:"5_flag"`
	TargetOutput  string            `json:"6_target_output"`
	Assignment    map[string]string `json:"7_assignment"`
	Auxiliary     AuxiliaryResult   `json:"8_auxiliary_result"`
}

// Marshal renders c as indented JSON.
func (c CounterExample) Marshal() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// RenderAssignment converts a concrete assignment into the `7_assignment`
// string-keyed decimal-string map, sorted for determinism
// via symbolic.SortNames before rendering.
func RenderAssignment(assignment concrete.Assignment, names *namepool.Pool) map[string]string {
	if assignment == nil {
		return map[string]string{}
	}
	keys := make([]symbolic.Name, 0, assignment.Len())
	assignment.Each(func(n symbolic.Name, v symbolic.Value) {
		keys = append(keys, n)
	})
	symbolic.SortNames(keys)

	out := make(map[string]string, len(keys))
	for _, n := range keys {
		v, _ := assignment.Get(n)
		rendered := symbolic.LookupFmt(symbolic.Var(n), names)
		switch {
		case v.IsConstInt():
			out[rendered] = v.Int.String()
		case v.IsConstBool():
			if v.Bool {
				out[rendered] = "1"
			} else {
				out[rendered] = "0"
			}
		default:
			out[rendered] = symbolic.LookupFmt(v, names)
		}
	}
	return out
}

// GitHash computes the `4_git_hash` field: the VCS revision from the build
// info when present, otherwise a blake2b hash of the module version
// string.
func GitHash() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			return s.Value
		}
	}
	sum := blake2b.Sum256([]byte(info.Main.Version))
	return hexEncode(sum[:8])
}

func hexEncode(b []byte) string {
	const hexDigits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hexDigits[c>>4]
		out[i*2+1] = hexDigits[c&0xf]
	}
	return string(out)
}

// FromVerify maps a verify.Result (plus the metadata the oracle doesn't
// carry: target path, main template name, search mode label, elapsed time,
// target assignment, and the auxiliary search log) into the
// CounterExample JSON shape.
func FromVerify(
	result verify.Result,
	names *namepool.Pool,
	targetPath, mainTemplate, searchMode, executionTime string,
	assignment concrete.Assignment,
	aux AuxiliaryResult,
) CounterExample {
	ce := CounterExample{
		TargetPath:    targetPath,
		MainTemplate:  mainTemplate,
		SearchMode:    searchMode,
		ExecutionTime: executionTime,
		GitHash:       GitHash(),
		Assignment:    RenderAssignment(assignment, names),
		Auxiliary:     aux,
	}

	switch result.Kind {
	case verify.WellConstrained:
		ce.FlagObj = Flag{Type: FlagWellConstrained}
	case verify.OverConstrained:
		ce.FlagObj = Flag{Type: FlagOverConstrained}
	case verify.UnderConstrainedUnexpectedInput:
		ce.FlagObj = Flag{
			Type:              FlagUnderConstrainedUnexpectedInput,
			ViolatedCondition: symbolic.LookupFmt(result.Violated, names),
		}
	case verify.UnderConstrainedNonDeterministic:
		ce.FlagObj = Flag{
			Type:           FlagUnderConstrainedNonDeterministic,
			ExpectedOutput: symbolic.LookupFmt(result.ConcreteValue, names),
		}
		ce.TargetOutput = symbolic.LookupFmt(symbolic.Var(result.OutputName), names)
	case verify.UnderConstrainedUnusedOutput:
		ce.FlagObj = Flag{Type: FlagUnderConstrainedUnusedOutput}
	}
	return ce
}

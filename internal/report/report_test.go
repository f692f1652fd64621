package report

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zkfuzz/zkfuzz/internal/concrete"
	"github.com/zkfuzz/zkfuzz/internal/namepool"
	"github.com/zkfuzz/zkfuzz/internal/symbolic"
	"github.com/zkfuzz/zkfuzz/internal/verify"
)

func TestFromVerifyWellConstrained(t *testing.T) {
	names := namepool.New()
	ce := FromVerify(verify.Result{Kind: verify.WellConstrained}, names, "c.circom", "Main", "off", "1ms", nil, AuxiliaryResult{})
	require.Equal(t, FlagWellConstrained, ce.FlagObj.Type)
	require.Empty(t, ce.FlagObj.ViolatedCondition)
	require.Empty(t, ce.FlagObj.ExpectedOutput)
}

func TestFromVerifyUnderConstrainedUnexpectedInputRendersViolatedCondition(t *testing.T) {
	names := namepool.New()
	x := symbolic.NewName(names.Intern("x"), nil, nil)
	violated := symbolic.NewBinaryOp(symbolic.Var(x), 0, symbolic.IntI(4))

	result := verify.Result{Kind: verify.UnderConstrainedUnexpectedInput, Violated: violated}
	ce := FromVerify(result, names, "c.circom", "Main", "ga", "2ms", nil, AuxiliaryResult{})

	require.Equal(t, FlagUnderConstrainedUnexpectedInput, ce.FlagObj.Type)
	require.NotEmpty(t, ce.FlagObj.ViolatedCondition)
}

func TestFromVerifyUnderConstrainedNonDeterministicSetsTargetOutput(t *testing.T) {
	names := namepool.New()
	out := symbolic.NewName(names.Intern("out"), nil, nil)

	result := verify.Result{
		Kind:          verify.UnderConstrainedNonDeterministic,
		OutputName:    out,
		ExpectedValue: symbolic.IntI(1),
		ConcreteValue: symbolic.IntI(0),
	}
	ce := FromVerify(result, names, "c.circom", "Main", "ga", "3ms", nil, AuxiliaryResult{})

	require.Equal(t, FlagUnderConstrainedNonDeterministic, ce.FlagObj.Type)
	require.Equal(t, "out", ce.TargetOutput)
	require.Equal(t, "0", ce.FlagObj.ExpectedOutput)
}

func TestFromVerifyUnusedOutput(t *testing.T) {
	names := namepool.New()
	ce := FromVerify(verify.Result{Kind: verify.UnderConstrainedUnusedOutput}, names, "", "Main", "off", "0s", nil, AuxiliaryResult{})
	require.Equal(t, FlagUnderConstrainedUnusedOutput, ce.FlagObj.Type)
}

func TestRenderAssignmentFormatsIntsAndBoolsAsDecimalStrings(t *testing.T) {
	names := namepool.New()
	a := symbolic.NewName(names.Intern("a"), nil, nil)
	b := symbolic.NewName(names.Intern("b"), nil, nil)

	assignment := concrete.NewAssignment()
	assignment.Set(a, symbolic.IntI(42))
	assignment.Set(b, symbolic.Bool_(true))
	rendered := RenderAssignment(assignment, names)
	require.Equal(t, "42", rendered["a"])
	require.Equal(t, "1", rendered["b"])
}

func TestMarshalPreservesKeyOrder(t *testing.T) {
	names := namepool.New()
	ce := FromVerify(verify.Result{Kind: verify.WellConstrained}, names, "c.circom", "Main", "off", "1ms", nil, AuxiliaryResult{})

	raw, err := ce.Marshal()
	require.NoError(t, err)

	var asMap map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &asMap))
	require.Contains(t, asMap, "0_target_path")
	require.Contains(t, asMap, "5_flag")

	// Go's json.Marshal on a struct emits object keys in field declaration
	// order, so the raw bytes must list 0_target_path before 5_flag.
	idxTarget := indexOf(string(raw), "0_target_path")
	idxFlag := indexOf(string(raw), "5_flag")
	require.Greater(t, idxFlag, idxTarget)
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}

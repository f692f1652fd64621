package zkerr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewBareMessage(t *testing.T) {
	err := New("something broke")
	require.Equal(t, "something broke", err.Error())
}

func TestWrapPrependsContext(t *testing.T) {
	err := Wrap("loading config", "unexpected EOF")
	require.Equal(t, "loading config: unexpected EOF", err.Error())
}

func TestErrorIncludesSuggestionAndExample(t *testing.T) {
	err := &Error{
		Context:    "validating mutation config",
		Message:    "unknown enum value",
		Suggestion: "did you mean \"naive\"?",
		Example:    `{"trace_mutation_method": "naive"}`,
	}
	got := err.Error()
	require.Contains(t, got, "validating mutation config: unknown enum value")
	require.Contains(t, got, "did you mean")
	require.Contains(t, got, `"trace_mutation_method": "naive"`)
}

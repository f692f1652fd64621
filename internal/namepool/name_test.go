package namepool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestInternIsStableAndBidirectional: the same name always yields the same id, and Lookup
// recovers the original string.
func TestInternIsStableAndBidirectional(t *testing.T) {
	p := New()
	id1 := p.Intern("in")
	id2 := p.Intern("in")
	require.Equal(t, id1, id2)

	name, ok := p.Lookup(id1)
	require.True(t, ok)
	require.Equal(t, "in", name)
}

func TestInternAssignsDistinctIdsToDistinctNames(t *testing.T) {
	p := New()
	a := p.Intern("a")
	b := p.Intern("b")
	require.NotEqual(t, a, b)
}

func TestPoolsAreIndependent(t *testing.T) {
	p1 := New()
	p2 := New()
	// A fresh pool's first interned name always claims id 0 - the
	// convention internal/executor's fullNameOwnerTemplate relies on for
	// the main template.
	require.Equal(t, uint64(0), p1.Intern("main"))
	require.Equal(t, uint64(0), p2.Intern("other"))
}

func TestLookupUnknownIDFails(t *testing.T) {
	p := New()
	_, ok := p.Lookup(12345)
	require.False(t, ok)
	require.Equal(t, "#unknown", p.MustLookup(12345))
}

func TestReturnIDSentinelRendersSpecially(t *testing.T) {
	p := New()
	name, ok := p.Lookup(RETURN_ID)
	require.True(t, ok)
	require.Equal(t, "(return)", name)
	// RETURN_ID must never be reachable through ordinary interning.
	require.NotEqual(t, RETURN_ID, p.Intern("anything"))
}

package symbolic

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNameHashRecomputationAgrees(t *testing.T) {
	n := NewName(7, []OwnerFrame{{ID: 1, Counter: 2}}, []Access{{Kind: ComponentAccess, Component: 9}})
	h1 := n.Hash()
	h2 := computeNameHash(n)
	require.Equal(t, h1, h2)
	// Hashing again (simulating a second, independently-built equal Name)
	// must still agree.
	n2 := NewName(7, []OwnerFrame{{ID: 1, Counter: 2}}, []Access{{Kind: ComponentAccess, Component: 9}})
	require.Equal(t, n.Hash(), n2.Hash())
}

func TestEqualNamesHaveEqualHashes(t *testing.T) {
	a := NewName(3, []OwnerFrame{{ID: 1}}, nil)
	b := NewName(3, []OwnerFrame{{ID: 1}}, nil)
	require.True(t, a.Equal(b))
	require.Equal(t, a.Hash(), b.Hash())
}

func TestDifferentOwnerStacksAreUnequal(t *testing.T) {
	a := NewName(3, []OwnerFrame{{ID: 1}}, nil)
	b := NewName(3, []OwnerFrame{{ID: 2}}, nil)
	require.False(t, a.Equal(b))
}

func TestArrayAccessNamesDistinguishIndices(t *testing.T) {
	a := NewName(3, nil, []Access{{Kind: ArrayAccess, Index: IntI(0)}})
	b := NewName(3, nil, []Access{{Kind: ArrayAccess, Index: IntI(1)}})
	require.False(t, a.Equal(b))
	require.NotEqual(t, a.Hash(), b.Hash())
}

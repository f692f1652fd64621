// Package symbolic implements the symbolic value algebra: the
// tagged-variant value tree, symbolic names and access paths, structural
// simplification, polynomial coefficient extraction, and the canonical
// pretty-printer.
//
// Values are immutable once constructed and freely shared by reference.
package symbolic

import (
	"encoding/binary"
	"sort"

	"golang.org/x/crypto/blake2b"

	"github.com/zkfuzz/zkfuzz/internal/namepool"
)

// AccessKind distinguishes the two shapes an Access can take.
type AccessKind int

const (
	ComponentAccess AccessKind = iota
	ArrayAccess
)

// Access is one step of a symbolic access path: either a dotted component
// field (by interned id) or an array index (an arbitrary, often
// constant-folded, symbolic value).
type Access struct {
	Kind      AccessKind
	Component uint64 // valid when Kind == ComponentAccess
	Index     Value  // valid when Kind == ArrayAccess
}

// OwnerFrame is one frame of an owner stack: the template/function instance
// that a name is scoped under.
type OwnerFrame struct {
	ID      uint64
	Counter int
	Access  []Access // nil if this frame has no further access qualification
}

// Name is a fully qualified symbolic name: an id, the owner stack leading to
// it, and an optional trailing access path.
//
// Equality and hashing depend on all three fields. The hash is computed
// lazily and cached on first use; recomputing it always yields the same
// value, so the cache is pure memoization and
// never invalidated - Name values are immutable once built.
type Name struct {
	ID         uint64
	OwnerStack []OwnerFrame
	Access     []Access

	hash    uint64
	hashSet bool
}

// NewName builds a symbolic name. The owner stack and access path are copied
// so later mutation of caller-owned slices can't corrupt a shared Name.
func NewName(id uint64, owner []OwnerFrame, access []Access) Name {
	return Name{
		ID:         id,
		OwnerStack: append([]OwnerFrame(nil), owner...),
		Access:     append([]Access(nil), access...),
	}
}

// Equal reports structural equality of two names.
func (n Name) Equal(o Name) bool {
	if n.ID != o.ID {
		return false
	}
	if !ownersEqual(n.OwnerStack, o.OwnerStack) {
		return false
	}
	return accessesEqual(n.Access, o.Access)
}

func ownersEqual(a, b []OwnerFrame) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Counter != b[i].Counter {
			return false
		}
		if !accessesEqual(a[i].Access, b[i].Access) {
			return false
		}
	}
	return true
}

func accessesEqual(a, b []Access) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Kind != b[i].Kind {
			return false
		}
		switch a[i].Kind {
		case ComponentAccess:
			if a[i].Component != b[i].Component {
				return false
			}
		case ArrayAccess:
			if !Equal(a[i].Index, b[i].Index) {
				return false
			}
		}
	}
	return true
}

// Hash returns the cached 64-bit hash of n, computing it on first use.
// Equal names are guaranteed to produce equal hashes: the digest is taken
// over a canonical byte encoding of every field that Equal compares.
func (n *Name) Hash() uint64 {
	if n.hashSet {
		return n.hash
	}
	n.hash = computeNameHash(*n)
	n.hashSet = true
	return n.hash
}

// computeNameHash is the pure (cache-free) computation backing Hash, exposed
// so tests can verify recomputation always agrees with the cached value
// without depending on cache internals.
func computeNameHash(n Name) uint64 {
	h, _ := blake2b.New512(nil)
	var buf [8]byte

	putU64 := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}

	putU64(n.ID)
	putU64(uint64(len(n.OwnerStack)))
	for _, f := range n.OwnerStack {
		putU64(f.ID)
		putU64(uint64(f.Counter))
		writeAccesses(h, f.Access)
	}
	writeAccesses(h, n.Access)

	sum := h.Sum(nil)
	return binary.LittleEndian.Uint64(sum[:8])
}

func writeAccesses(h interface{ Write([]byte) (int, error) }, accesses []Access) {
	var buf [8]byte
	putU64 := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}
	putU64(uint64(len(accesses)))
	for _, a := range accesses {
		putU64(uint64(a.Kind))
		switch a.Kind {
		case ComponentAccess:
			putU64(a.Component)
		case ArrayAccess:
			// Fold the index to bytes via its canonical render: array
			// indices are almost always constant-folded by the time a
			// name is built, so this stays cheap.
			s := LookupFmt(a.Index, namepool.Default)
			putU64(uint64(len(s)))
			h.Write([]byte(s))
		}
	}
}

// Less provides the stable pseudo-ordering over names used by the search
// driver's deterministic gene maps: ordering is by hash, with no semantic
// meaning attached.
func Less(a, b *Name) bool {
	return a.Hash() < b.Hash()
}

// SortNames sorts names by their (cached) hash. Useful wherever map
// iteration order would otherwise leak into deterministic output (e.g.
// rendering an assignment map into the JSON report).
func SortNames(names []Name) {
	sort.Slice(names, func(i, j int) bool {
		return names[i].Hash() < names[j].Hash()
	})
}

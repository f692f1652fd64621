// Package coverage implements the path-fingerprint tracker used only by the
// input-generation strategy: during concrete
// execution, record the sequence of branch directions taken, and count how
// many distinct fingerprints have been observed so far.
//
// The recipe is canonicalize-then-hash: build a stable structure first,
// CBOR-encode it (github.com/fxamacker/cbor/v2) to get a byte string
// independent of any in-memory representation detail, then hash the
// encoding (golang.org/x/crypto/blake2b) into a fixed-size set key.
package coverage

import (
	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"
)

// Direction tags which side of a branch point concrete execution took.
type Direction uint8

const (
	Then Direction = iota
	Else
)

// canonicalPath is the CBOR-stable encoding of a recorded path: a plain
// slice of small integers, so map iteration order can never leak in.
type canonicalPath struct {
	Directions []uint8
}

// Fingerprint returns the canonical byte digest of a branch-direction
// sequence: CBOR-encode the canonical form, then blake2b-hash it.
func Fingerprint(path []Direction) [32]byte {
	c := canonicalPath{Directions: make([]uint8, len(path))}
	for i, d := range path {
		c.Directions[i] = uint8(d)
	}
	data, err := cbor.Marshal(c)
	if err != nil {
		// CBOR-encoding a slice of uint8 cannot fail; treat it as an
		// invariant if it ever does rather than threading an error return
		// through every caller of a tracker recording a single branch.
		panic("coverage: canonical encode failed: " + err.Error())
	}
	return blake2b.Sum256(data)
}

// Tracker accumulates the set of distinct path fingerprints observed across
// a batch of concrete executions.
type Tracker struct {
	seen map[[32]byte]bool
}

// NewTracker creates an empty path-fingerprint tracker.
func NewTracker() *Tracker {
	return &Tracker{seen: make(map[[32]byte]bool)}
}

// Record appends path's fingerprint to the tracker's seen set and reports
// whether it was novel.
func (t *Tracker) Record(path []Direction) bool {
	fp := Fingerprint(path)
	if t.seen[fp] {
		return false
	}
	t.seen[fp] = true
	return true
}

// Count returns the cardinality of the recorded fingerprint set.
func (t *Tracker) Count() int {
	return len(t.seen)
}

// Recorder is threaded through a single concrete execution to build up the
// branch-direction sequence before it is recorded as one fingerprint.
type Recorder struct {
	path []Direction
}

// NewRecorder starts an empty path recording.
func NewRecorder() *Recorder { return &Recorder{} }

// Branch appends the direction taken at one branch point.
func (r *Recorder) Branch(d Direction) { r.path = append(r.path, d) }

// Path returns the recorded direction sequence so far.
func (r *Recorder) Path() []Direction { return append([]Direction(nil), r.path...) }

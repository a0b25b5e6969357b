package bigsi

import (
	"errors"
	"fmt"
)

var (
	// ErrNilArgument is returned when a required argument is nil.
	ErrNilArgument = errors.New("bigsi: nil argument")

	// ErrUnindexed is returned when a query or lookup runs before Index or Load.
	ErrUnindexed = errors.New("bigsi: index has not been built yet")

	// ErrIndexed is returned when Index is called twice, or Add is called
	// after the index has been built.
	ErrIndexed = errors.New("bigsi: indexing has already been run")

	// ErrNoColours is returned when Index is called on an empty build.
	ErrNoColours = errors.New("bigsi: no bloom filters have been added, nothing to index")

	// ErrColourLimit is returned when an Add would exhaust the colour space.
	ErrColourLimit = errors.New("bigsi: maximum number of colours reached")

	// ErrKeyNotFound is returned by a Store when a key is absent.
	ErrKeyNotFound = errors.New("bigsi: key not found in store")
)

// DuplicateIDError indicates a sequence ID that is already indexed.
type DuplicateIDError struct {
	ID string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("bigsi: duplicate sequence ID (%s)", e.ID)
}

// EmptyFilterError indicates a Bloom filter with no bits set.
type EmptyFilterError struct {
	ID string
}

func (e *EmptyFilterError) Error() string {
	return fmt.Sprintf("bigsi: empty bloom filter supplied for %s", e.ID)
}

// IncompatibleFilterError indicates a Bloom filter whose geometry disagrees
// with the index.
type IncompatibleFilterError struct {
	ID                   string
	NumBits, NumHashes   int
	WantBits, WantHashes int
}

func (e *IncompatibleFilterError) Error() string {
	return fmt.Sprintf("bigsi: bloom filter incompatible for %s (%d bits/%d hashes, want %d/%d)",
		e.ID, e.NumBits, e.NumHashes, e.WantBits, e.WantHashes)
}

// CountMismatchError indicates a batch whose size disagrees with the
// caller's expectation.
type CountMismatchError struct {
	Expected, Actual int
}

func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("bigsi: number of bloom filters read did not match expected number (%d vs %d)", e.Actual, e.Expected)
}

// HashCountMismatchError indicates a query with the wrong number of hash values.
type HashCountMismatchError struct {
	Expected, Actual int
}

func (e *HashCountMismatchError) Error() string {
	return fmt.Sprintf("bigsi: query hash count %d does not match index hash count %d", e.Actual, e.Expected)
}

// CapacityMismatchError indicates a result vector that cannot hold all colours.
type CapacityMismatchError struct {
	Expected, Actual int
}

func (e *CapacityMismatchError) Error() string {
	return fmt.Sprintf("bigsi: result vector capacity %d does not match colour count %d", e.Actual, e.Expected)
}

// ColourRangeError indicates a colour lookup outside the indexed range.
type ColourRangeError struct {
	Colour  int
	Colours int
}

func (e *ColourRangeError) Error() string {
	return fmt.Sprintf("bigsi: colour %d not present in index (have %d colours)", e.Colour, e.Colours)
}

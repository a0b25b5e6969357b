package bloom

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/will-rowe/ddevil/bitvector"
)

var (
	// ErrBadNumBits is returned for a non-positive filter size.
	ErrBadNumBits = errors.New("bloom: number of bits must be positive")

	// ErrBadNumHashes is returned for a non-positive hash count.
	ErrBadNumHashes = errors.New("bloom: number of hashes must be positive")

	// ErrBadEstimates is returned when sizing parameters are unusable.
	ErrBadEstimates = errors.New("bloom: max elements must be positive and false positive rate in (0,1)")
)

// Filter is a Bloom filter over a fixed-size bit vector.
//
// A key is considered present iff all of its hash positions (each taken
// modulo the filter size) are set.
type Filter struct {
	numHashes int
	bv        *bitvector.BitVector
}

// New creates an empty filter with numBits bits and numHashes hash
// functions per key.
func New(numBits, numHashes int) (*Filter, error) {
	if numBits <= 0 {
		return nil, ErrBadNumBits
	}
	if numHashes <= 0 {
		return nil, ErrBadNumHashes
	}
	return &Filter{
		numHashes: numHashes,
		bv:        bitvector.New(numBits),
	}, nil
}

// NewWithEstimates sizes a filter for maxElements keys at the requested
// false positive rate, using the standard m = -n*ln(p)/ln(2)^2 and
// k = m/n*ln(2) formulas.
func NewWithEstimates(maxElements int, fpRate float64) (*Filter, error) {
	if maxElements <= 0 || fpRate <= 0 || fpRate >= 1 {
		return nil, ErrBadEstimates
	}
	n := float64(maxElements)
	m := math.Ceil(-n * math.Log(fpRate) / (math.Ln2 * math.Ln2))
	k := math.Round(m / n * math.Ln2)
	if k < 1 {
		k = 1
	}
	return New(int(m), int(k))
}

// NumHashes returns the hash count per key.
func (f *Filter) NumHashes() int { return f.numHashes }

// NumBits returns the filter size in bits.
func (f *Filter) NumBits() int { return f.bv.Capacity() }

// BitVector returns the filter's backing bit vector.
func (f *Filter) BitVector() *bitvector.BitVector { return f.bv }

// Count returns the number of set bits.
func (f *Filter) Count() int { return f.bv.Count() }

// Add inserts a key.
func (f *Filter) Add(key []byte) {
	for _, hv := range HashValues(key, f.numHashes) {
		// Positions are in range by construction.
		_ = f.bv.Set(int(hv%uint64(f.bv.Capacity())), true)
	}
}

// Contains reports whether key may have been added. False positives are
// possible, false negatives are not.
func (f *Filter) Contains(key []byte) bool {
	for _, hv := range HashValues(key, f.numHashes) {
		ok, _ := f.bv.Get(int(hv % uint64(f.bv.Capacity())))
		if !ok {
			return false
		}
	}
	return true
}

// HashValues derives n 64-bit hash values for key by double hashing:
// h1 is the xxhash of the key, h2 the xxhash of h1's fixed-width encoding,
// and value i is h1 + i*h2. Queries against an index must use the same
// derivation as the filters the index was built from.
func HashValues(key []byte, n int) []uint64 {
	h1 := xxhash.Sum64(key)
	var seed [8]byte
	binary.LittleEndian.PutUint64(seed[:], h1)
	h2 := xxhash.Sum64(seed[:])

	hvs := make([]uint64, n)
	for i := range hvs {
		hvs[i] = h1 + uint64(i)*h2
	}
	return hvs
}

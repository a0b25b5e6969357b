package bigsi

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/will-rowe/ddevil/bitvector"
	"github.com/will-rowe/ddevil/bloom"
)

// filterWithBits builds a Bloom filter with exactly the given bits set.
func filterWithBits(t *testing.T, numBits, numHashes int, bits ...int) *bloom.Filter {
	t.Helper()
	f, err := bloom.New(numBits, numHashes)
	require.NoError(t, err)
	for _, i := range bits {
		require.NoError(t, f.BitVector().Set(i, true))
	}
	return f
}

// buildTwoColours is the shared two-colour fixture: "A" with bits {3,11},
// "B" with bits {3,7} over 16 bits and 2 hashes.
func buildTwoColours(t *testing.T, dir string) *BIGSI {
	t.Helper()
	b, err := New(16, 2, dir)
	require.NoError(t, err)
	require.NoError(t, b.Add(map[string]*bloom.Filter{
		"A": filterWithBits(t, 16, 2, 3, 11),
		"B": filterWithBits(t, 16, 2, 3, 7),
	}, 2))
	require.NoError(t, b.Index())
	return b
}

func TestNewRejectsBadGeometry(t *testing.T) {
	_, err := New(0, 2, t.TempDir())
	assert.Error(t, err)
	_, err = New(16, 0, t.TempDir())
	assert.Error(t, err)
}

func TestAddAssignsColours(t *testing.T) {
	b, err := New(16, 2, t.TempDir())
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, b.Add(map[string]*bloom.Filter{
		"A": filterWithBits(t, 16, 2, 3, 11),
		"B": filterWithBits(t, 16, 2, 3, 7),
	}, 2))

	assert.Equal(t, 2, b.Colours())
	assert.False(t, b.Indexed())

	// Colours are assigned in lexicographic sequence ID order.
	assert.Equal(t, []string{"A", "B"}, b.colourTable)
	assert.Equal(t, 0, b.idChecker["A"])
	assert.Equal(t, 1, b.idChecker["B"])
}

func TestAddRejections(t *testing.T) {
	dir := t.TempDir()

	t.Run("duplicate across batches", func(t *testing.T) {
		b, err := New(16, 2, dir)
		require.NoError(t, err)
		defer b.Close()

		require.NoError(t, b.Add(map[string]*bloom.Filter{"A": filterWithBits(t, 16, 2, 3)}, 1))
		err = b.Add(map[string]*bloom.Filter{"A": filterWithBits(t, 16, 2, 7)}, 1)

		var dup *DuplicateIDError
		require.ErrorAs(t, err, &dup)
		assert.Equal(t, "A", dup.ID)

		// The failed call left the earlier colour in place.
		assert.Equal(t, 1, b.Colours())
		assert.Contains(t, b.idChecker, "A")
	})

	t.Run("empty filter", func(t *testing.T) {
		b, err := New(16, 2, dir)
		require.NoError(t, err)
		defer b.Close()

		empty, err := bloom.New(16, 2)
		require.NoError(t, err)
		var ef *EmptyFilterError
		require.ErrorAs(t, b.Add(map[string]*bloom.Filter{"A": empty}, 1), &ef)
		assert.Equal(t, "A", ef.ID)
	})

	t.Run("incompatible filter", func(t *testing.T) {
		b, err := New(16, 2, dir)
		require.NoError(t, err)
		defer b.Close()

		var inc *IncompatibleFilterError
		require.ErrorAs(t, b.Add(map[string]*bloom.Filter{"A": filterWithBits(t, 32, 2, 3)}, 1), &inc)
		require.ErrorAs(t, b.Add(map[string]*bloom.Filter{"B": filterWithBits(t, 16, 3, 3)}, 1), &inc)
	})

	t.Run("count mismatch", func(t *testing.T) {
		b, err := New(16, 2, dir)
		require.NoError(t, err)
		defer b.Close()

		var cm *CountMismatchError
		require.ErrorAs(t, b.Add(map[string]*bloom.Filter{"A": filterWithBits(t, 16, 2, 3)}, 2), &cm)
		assert.Equal(t, 2, cm.Expected)
		assert.Equal(t, 1, cm.Actual)
	})

	t.Run("nil batch", func(t *testing.T) {
		b, err := New(16, 2, dir)
		require.NoError(t, err)
		defer b.Close()
		assert.ErrorIs(t, b.Add(nil, 0), ErrNilArgument)
	})
}

func TestIndexRequiresColours(t *testing.T) {
	b, err := New(16, 2, t.TempDir())
	require.NoError(t, err)
	defer b.Close()
	assert.ErrorIs(t, b.Index(), ErrNoColours)
}

func TestIndexRunsOnce(t *testing.T) {
	b := buildTwoColours(t, t.TempDir())
	defer b.Close()
	assert.ErrorIs(t, b.Index(), ErrIndexed)
	assert.ErrorIs(t, b.Add(map[string]*bloom.Filter{"C": filterWithBits(t, 16, 2, 3)}, 1), ErrIndexed)
}

func TestQuerySharedBit(t *testing.T) {
	b := buildTwoColours(t, t.TempDir())
	defer b.Close()

	// Both colours share bit 3.
	result := bitvector.New(2)
	require.NoError(t, b.Query([]uint64{3, 3}, result))
	assert.Equal(t, 2, result.Count())
	for colour := 0; colour < 2; colour++ {
		set, err := result.Get(colour)
		require.NoError(t, err)
		assert.True(t, set, "colour %d", colour)
	}
}

func TestQueryExcludesViaAND(t *testing.T) {
	b := buildTwoColours(t, t.TempDir())
	defer b.Close()

	// No colour has both bit 11 and bit 7.
	result := bitvector.New(2)
	require.NoError(t, b.Query([]uint64{11, 7}, result))
	assert.Equal(t, 0, result.Count())
}

func TestQueryEmptyRowEarlyExit(t *testing.T) {
	b, err := New(8, 1, t.TempDir())
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, b.Add(map[string]*bloom.Filter{"A": filterWithBits(t, 8, 1, 0)}, 1))
	require.NoError(t, b.Index())

	// Row 5 is empty, so the query succeeds with an all-zero result.
	result := bitvector.New(1)
	require.NoError(t, b.Query([]uint64{5}, result))
	assert.Equal(t, 0, result.Count())
}

func TestQueryValidation(t *testing.T) {
	b := buildTwoColours(t, t.TempDir())
	defer b.Close()

	result := bitvector.New(2)
	assert.ErrorIs(t, b.Query(nil, result), ErrNilArgument)
	assert.ErrorIs(t, b.Query([]uint64{3, 3}, nil), ErrNilArgument)

	var hcm *HashCountMismatchError
	require.ErrorAs(t, b.Query([]uint64{3}, result), &hcm)
	assert.Equal(t, 2, hcm.Expected)

	var cm *CapacityMismatchError
	require.ErrorAs(t, b.Query([]uint64{3, 3}, bitvector.New(1)), &cm)
	assert.Equal(t, 2, cm.Expected)
	assert.Equal(t, 1, cm.Actual)

	unbuilt, err := New(16, 2, t.TempDir())
	require.NoError(t, err)
	defer unbuilt.Close()
	assert.ErrorIs(t, unbuilt.Query([]uint64{3, 3}, result), ErrUnindexed)
}

func TestQueryIdempotent(t *testing.T) {
	b := buildTwoColours(t, t.TempDir())
	defer b.Close()

	first := bitvector.New(2)
	require.NoError(t, b.Query([]uint64{3, 11}, first))
	second := bitvector.New(2)
	require.NoError(t, b.Query([]uint64{3, 11}, second))
	assert.True(t, first.Equal(second))
}

func TestQueryMonotone(t *testing.T) {
	// Adding hash positions to a query can only shrink the result.
	rng := rand.New(rand.NewSource(7))
	const numBits = 32

	for _, numHashes := range []int{2, 3, 4} {
		b, err := New(numBits, numHashes, t.TempDir())
		require.NoError(t, err)

		batch := make(map[string]*bloom.Filter)
		for _, id := range []string{"A", "B", "C", "D"} {
			bits := make([]int, 0, 6)
			for len(bits) < 6 {
				bits = append(bits, rng.Intn(numBits))
			}
			batch[id] = filterWithBits(t, numBits, numHashes, bits...)
		}
		require.NoError(t, b.Add(batch, 4))
		require.NoError(t, b.Index())

		hvs := make([]uint64, numHashes)
		for i := range hvs {
			hvs[i] = uint64(rng.Intn(numBits))
		}
		prev := -1
		for n := 1; n <= numHashes; n++ {
			// Repeat the last hash so the query length always matches.
			padded := make([]uint64, numHashes)
			for i := range padded {
				if i < n {
					padded[i] = hvs[i]
				} else {
					padded[i] = hvs[n-1]
				}
			}
			result := bitvector.New(4)
			require.NoError(t, b.Query(padded, result))
			if prev >= 0 {
				assert.LessOrEqual(t, result.Count(), prev)
			}
			prev = result.Count()
		}
		require.NoError(t, b.Close())
	}
}

func TestTranspositionCorrectness(t *testing.T) {
	// Every bit of every random filter must land on the right colour in
	// the right row.
	rng := rand.New(rand.NewSource(99))
	const (
		numBits    = 24
		numHashes  = 3
		numColours = 8
	)

	b, err := New(numBits, numHashes, t.TempDir())
	require.NoError(t, err)

	ids := []string{"c0", "c1", "c2", "c3", "c4", "c5", "c6", "c7"}
	originals := make([]*bitvector.BitVector, numColours)
	batch := make(map[string]*bloom.Filter)
	for c, id := range ids {
		f, err := bloom.New(numBits, numHashes)
		require.NoError(t, err)
		for i := 0; i < numBits; i++ {
			if rng.Intn(2) == 0 {
				require.NoError(t, f.BitVector().Set(i, true))
			}
		}
		// Keep the filter non-empty.
		require.NoError(t, f.BitVector().Set(rng.Intn(numBits), true))
		originals[c] = f.BitVector().Clone()
		batch[id] = f
	}
	require.NoError(t, b.Add(batch, numColours))
	require.NoError(t, b.Index())
	defer b.Close()

	for i := 0; i < numBits; i++ {
		data, err := b.rows.Get(uint32(i))
		require.NoError(t, err)
		row := bitvector.New(0)
		require.NoError(t, row.UnmarshalBinary(data))
		require.Equal(t, numColours, row.Capacity())

		for c := 0; c < numColours; c++ {
			want, err := originals[c].Get(i)
			require.NoError(t, err)
			got, err := row.Get(c)
			require.NoError(t, err)
			assert.Equal(t, want, got, "row %d colour %d", i, c)
		}
	}
}

func TestLookupColour(t *testing.T) {
	b := buildTwoColours(t, t.TempDir())
	defer b.Close()

	id, err := b.LookupColour(0)
	require.NoError(t, err)
	assert.Equal(t, "A", id)

	id, err = b.LookupColour(1)
	require.NoError(t, err)
	assert.Equal(t, "B", id)

	var cre *ColourRangeError
	_, err = b.LookupColour(2)
	require.ErrorAs(t, err, &cre)
	_, err = b.LookupColour(-1)
	require.ErrorAs(t, err, &cre)

	unbuilt, err := New(16, 2, t.TempDir())
	require.NoError(t, err)
	defer unbuilt.Close()
	_, err = unbuilt.LookupColour(0)
	assert.ErrorIs(t, err, ErrUnindexed)
}

func TestPersistAndLoad(t *testing.T) {
	dir := t.TempDir()

	b := buildTwoColours(t, dir)
	want := bitvector.New(2)
	require.NoError(t, b.Query([]uint64{3, 3}, want))
	require.NoError(t, b.Close())

	loaded, err := Load(dir)
	require.NoError(t, err)
	defer loaded.Close()

	assert.Equal(t, 16, loaded.NumBits())
	assert.Equal(t, 2, loaded.NumHashes())
	assert.Equal(t, 2, loaded.Colours())
	assert.True(t, loaded.Indexed())

	got := bitvector.New(2)
	require.NoError(t, loaded.Query([]uint64{3, 3}, got))
	assert.True(t, want.Equal(got))

	id, err := loaded.LookupColour(0)
	require.NoError(t, err)
	assert.Equal(t, "A", id)
}

func TestLoadMissingFiles(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.Error(t, err)
}

func TestCloseBeforeIndex(t *testing.T) {
	b, err := New(16, 2, t.TempDir())
	require.NoError(t, err)
	require.NoError(t, b.Add(map[string]*bloom.Filter{"A": filterWithBits(t, 16, 2, 3)}, 1))
	require.NoError(t, b.Close())
	assert.Equal(t, 0, b.Colours())
}

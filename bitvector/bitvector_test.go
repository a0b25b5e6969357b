package bitvector

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGetCount(t *testing.T) {
	v := New(100)
	assert.Equal(t, 100, v.Capacity())
	assert.Equal(t, 0, v.Count())

	for i := 0; i < 100; i += 2 {
		require.NoError(t, v.Set(i, true))
	}
	assert.Equal(t, 50, v.Count())

	for i := 0; i < 100; i++ {
		got, err := v.Get(i)
		require.NoError(t, err)
		assert.Equal(t, i%2 == 0, got, "bit %d", i)
	}

	// Setting an already-set bit must not disturb the popcount.
	require.NoError(t, v.Set(0, true))
	assert.Equal(t, 50, v.Count())

	require.NoError(t, v.Set(0, false))
	assert.Equal(t, 49, v.Count())
}

func TestOutOfRange(t *testing.T) {
	v := New(8)

	_, err := v.Get(8)
	var oor *OutOfRangeError
	require.ErrorAs(t, err, &oor)
	assert.Equal(t, 8, oor.Index)
	assert.Equal(t, 8, oor.Capacity)

	require.Error(t, v.Set(100, true))
	_, err = v.Get(-1)
	require.Error(t, err)
}

func TestCloneAndReset(t *testing.T) {
	v := New(33)
	require.NoError(t, v.Set(0, true))
	require.NoError(t, v.Set(32, true))

	c := v.Clone()
	assert.True(t, v.Equal(c))

	// Mutating the clone must not touch the original.
	require.NoError(t, c.Set(1, true))
	assert.False(t, v.Equal(c))
	assert.Equal(t, 2, v.Count())
	assert.Equal(t, 3, c.Count())

	c.Reset()
	assert.Equal(t, 0, c.Count())
	ok, err := c.Get(32)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOr(t *testing.T) {
	a, b, dst := New(16), New(16), New(16)
	require.NoError(t, a.Set(3, true))
	require.NoError(t, b.Set(3, true))
	require.NoError(t, b.Set(7, true))

	require.NoError(t, Or(a, b, dst))
	assert.Equal(t, 2, dst.Count())
	for _, i := range []int{3, 7} {
		ok, err := dst.Get(i)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	assert.Error(t, Or(a, New(8), dst))
	assert.ErrorIs(t, Or(nil, b, dst), ErrNilVector)
}

func TestAnd(t *testing.T) {
	a, b := New(16), New(16)
	require.NoError(t, a.Set(3, true))
	require.NoError(t, a.Set(11, true))
	require.NoError(t, b.Set(3, true))
	require.NoError(t, b.Set(7, true))

	require.NoError(t, a.And(b))
	assert.Equal(t, 1, a.Count())
	ok, err := a.Get(3)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Error(t, a.And(New(15)))
	assert.ErrorIs(t, a.And(nil), ErrNilVector)
}

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for _, capacity := range []int{0, 1, 7, 8, 9, 64, 1000} {
		v := New(capacity)
		for i := 0; i < capacity; i++ {
			if rng.Intn(3) == 0 {
				require.NoError(t, v.Set(i, true))
			}
		}

		data, err := v.MarshalBinary()
		require.NoError(t, err)
		assert.Len(t, data, 8+(capacity+7)/8)

		got := New(0)
		require.NoError(t, got.UnmarshalBinary(data))
		assert.Equal(t, v.Capacity(), got.Capacity())
		assert.Equal(t, v.Count(), got.Count())
		assert.True(t, v.Equal(got), "capacity %d", capacity)
	}
}

func TestUnmarshalRejectsBadInput(t *testing.T) {
	v := New(0)
	assert.ErrorIs(t, v.UnmarshalBinary([]byte{1, 2, 3}), ErrTruncated)

	good, err := New(16).MarshalBinary()
	require.NoError(t, err)

	// Payload shorter than the declared capacity.
	assert.ErrorIs(t, v.UnmarshalBinary(good[:len(good)-1]), ErrTruncated)

	// Stored popcount disagreeing with the payload.
	bad := make([]byte, len(good))
	copy(bad, good)
	bad[4] = 9
	assert.ErrorIs(t, v.UnmarshalBinary(bad), ErrCorrupt)
}

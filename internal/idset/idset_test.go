package idset

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePostings(ids ...int32) []byte {
	buf := make([]byte, 0, len(ids)*4)
	for _, id := range ids {
		buf = binary.BigEndian.AppendUint32(buf, uint32(id))
	}
	return buf
}

func TestDecode(t *testing.T) {
	s, err := Decode(encodePostings(7, -3, 7, 42), false)
	require.NoError(t, err)

	assert.Equal(t, []int32{7, -3, 42}, s.Ordered(), "duplicates collapse, order preserved")
	assert.True(t, s.Contains(-3))
	assert.False(t, s.Contains(8))
	assert.False(t, s.Negated())
}

func TestDecode_Empty(t *testing.T) {
	s, err := Decode(nil, true)
	require.NoError(t, err)

	assert.Equal(t, 0, s.Len())
	assert.True(t, s.Negated())
}

func TestDecode_Truncated(t *testing.T) {
	_, err := Decode([]byte{0x00, 0x00, 0x01}, false)
	assert.ErrorIs(t, err, ErrTruncatedPostings)
}

func TestCombine_Intersection(t *testing.T) {
	base, err := Decode(encodePostings(5, 1, 9, 3), false)
	require.NoError(t, err)
	other, err := Decode(encodePostings(3, 5, 100), false)
	require.NoError(t, err)

	base.Combine(other)

	assert.Equal(t, []int32{5, 3}, base.Ordered(), "intersection keeps base order")
	assert.False(t, base.Contains(1))
}

func TestCombine_Subtraction(t *testing.T) {
	base, err := Decode(encodePostings(5, 1, 9, 3), false)
	require.NoError(t, err)
	other, err := Decode(encodePostings(3, 5, 100), true)
	require.NoError(t, err)

	base.Combine(other)

	assert.Equal(t, []int32{1, 9}, base.Ordered())
}

func TestCombine_SelfIdempotent(t *testing.T) {
	base, err := Decode(encodePostings(4, 8, 15), false)
	require.NoError(t, err)

	base.Combine(base)

	assert.Equal(t, []int32{4, 8, 15}, base.Ordered())
}

func TestCombine_EmptyOther(t *testing.T) {
	base, err := Decode(encodePostings(1, 2), false)
	require.NoError(t, err)

	// Non-negated empty set: nothing survives the intersection.
	base.Combine(New(false))
	assert.Equal(t, 0, base.Len())

	base, err = Decode(encodePostings(1, 2), false)
	require.NoError(t, err)

	// Negated empty set: nothing is subtracted.
	base.Combine(New(true))
	assert.Equal(t, []int32{1, 2}, base.Ordered())
}

func TestAdd_KeepsFirstPosition(t *testing.T) {
	s := New(false)
	s.Add(10)
	s.Add(20)
	s.Add(10)

	assert.Equal(t, []int32{10, 20}, s.Ordered())
	assert.Equal(t, 2, s.Len())
}

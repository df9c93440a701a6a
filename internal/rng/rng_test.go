package rng

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashString(t *testing.T) {
	tests := []struct {
		input    string
		expected uint32
	}{
		{"", 0},
		{"a", 97},
		{"ab", 97 + 98*2},
		{"abc123", 97 + 98*2 + 99*3 + 49*4 + 50*5 + 51*6},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, HashString(tt.input))
		})
	}
}

func TestZeroSeedRemapped(t *testing.T) {
	zero := New(0)
	one := New(1)

	for i := 0; i < 10; i++ {
		require.Equal(t, one.Next(), zero.Next())
	}
	assert.Equal(t, uint32(0), zero.Seed(), "original seed is preserved for replay")
}

func TestTextKeepsSeedAsGiven(t *testing.T) {
	assert.Equal(t, "abc123", NewFromString("abc123").Text())
	assert.Equal(t, "42", New(42).Text())
	assert.Equal(t, "0", New(0).Text())
}

func TestNextXorshift(t *testing.T) {
	r := New(1)
	// 1 ^ 1<<13 = 8193; 8193 ^ 8193>>17 = 8193; 8193 ^ 8193<<5 = 270369
	assert.Equal(t, uint32(270369), r.Next())
	assert.Equal(t, 1, r.Calls())
}

func TestDeterminism(t *testing.T) {
	a := NewFromString("abc123")
	b := NewFromString("abc123")

	for i := 0; i < 1000; i++ {
		require.Equal(t, a.Next(), b.Next(), "diverged at call %d", i)
	}
	assert.Equal(t, a.Calls(), b.Calls())
}

func TestIntBounds(t *testing.T) {
	r := New(42)
	seen := make(map[int]bool)
	for i := 0; i < 2000; i++ {
		v := r.Int(-3, 3)
		require.GreaterOrEqual(t, v, -3)
		require.LessOrEqual(t, v, 3)
		seen[v] = true
	}
	assert.Len(t, seen, 7, "every value in range should appear")

	assert.Equal(t, 5, r.Int(5, 5))
}

func TestFloatBounds(t *testing.T) {
	r := New(7)
	for i := 0; i < 1000; i++ {
		v := r.Float(2.5, 4.0)
		require.GreaterOrEqual(t, v, 2.5)
		require.LessOrEqual(t, v, 4.0)
	}
}

func TestChoice(t *testing.T) {
	r := New(9)

	_, ok := Choice(r, []string{})
	assert.False(t, ok)

	_, ok = Choice[int](r, nil)
	assert.False(t, ok)

	v, ok := Choice(r, []string{"only"})
	require.True(t, ok)
	assert.Equal(t, "only", v)
}

func TestShufflePermutation(t *testing.T) {
	r := New(1234)
	seq := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	Shuffle(r, seq)

	assert.ElementsMatch(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, seq)

	again := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	Shuffle(New(1234), again)
	assert.Equal(t, seq, again)
}

func TestWeightedIndex(t *testing.T) {
	r := New(5)

	assert.Equal(t, -1, r.WeightedIndex(nil))
	assert.Equal(t, -1, r.WeightedIndex([]float64{0, -1}))

	for i := 0; i < 100; i++ {
		require.Equal(t, 2, r.WeightedIndex([]float64{0, 0, 3}))
	}

	counts := make([]int, 2)
	for i := 0; i < 4000; i++ {
		counts[r.WeightedIndex([]float64{1, 3})]++
	}
	assert.Greater(t, counts[1], counts[0])
}

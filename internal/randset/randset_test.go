package randset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func TestAddRemoveLen(t *testing.T) {
	s := New("a", "b", "c")
	assert.Equal(t, 3, s.Len())

	s.Add("d")
	assert.Equal(t, 4, s.Len())
	assert.True(t, s.Contains("d"))

	// Duplicate add is a no-op.
	s.Add("a")
	assert.Equal(t, 4, s.Len())

	require.NoError(t, s.Remove("a"))
	assert.Equal(t, 3, s.Len())
	assert.False(t, s.Contains("a"))

	err := s.Remove("nope")
	assert.Error(t, err)
}

func TestRemoveSwapsLast(t *testing.T) {
	s := New("a", "b", "c", "d")
	require.NoError(t, s.Remove("a"))
	// Last element takes the vacated slot.
	assert.Equal(t, []string{"d", "b", "c"}, s.Items())
}

func TestChoiceUniform(t *testing.T) {
	s := New(0, 1, 2, 3)
	rng := rand.New(rand.NewSource(1))
	counts := make(map[int]int)
	const draws = 40000
	for i := 0; i < draws; i++ {
		counts[s.Choice(rng)]++
	}
	for item := 0; item < 4; item++ {
		frac := float64(counts[item]) / draws
		assert.InDelta(t, 0.25, frac, 0.02, "item %d drawn with frequency %f", item, frac)
	}
}

func TestChoiceSingleton(t *testing.T) {
	s := New(42)
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 10; i++ {
		assert.Equal(t, 42, s.Choice(rng))
	}
}

func TestItemsReversed(t *testing.T) {
	s := New("a", "b", "c")
	assert.Equal(t, []string{"c", "b", "a"}, s.ItemsReversed())

	// Reverse order tracks the same layout as Items after a swap-removal.
	require.NoError(t, s.Remove("a"))
	assert.Equal(t, []string{"c", "b"}, s.Items())
	assert.Equal(t, []string{"b", "c"}, s.ItemsReversed())

	assert.Empty(t, New[int]().ItemsReversed())
}

func TestItemsIsCopy(t *testing.T) {
	s := New(1, 2, 3)
	items := s.Items()
	items[0] = 99
	assert.Equal(t, []int{1, 2, 3}, s.Items())
}

func TestString(t *testing.T) {
	s := New("a", "b")
	assert.Equal(t, "Set(a, b)", s.String())
}

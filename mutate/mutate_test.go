package mutate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func TestGaussianMutatorMoments(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	m := NewGaussianMutator(1.0, 2.0)
	const draws = 200000
	var sum, sumsq float64
	for i := 0; i < draws; i++ {
		v := m.Mutate(rng, 0) // jump from zero isolates the kernel
		sum += v
		sumsq += v * v
	}
	mean := sum / draws
	std := math.Sqrt(sumsq/draws - mean*mean)
	assert.InDelta(t, 1.0, mean, 0.02)
	assert.InDelta(t, 2.0, std, 0.02)
}

func TestGaussianMutatorAdditive(t *testing.T) {
	m := NewGaussianMutator(0.5, 0)
	rng := rand.New(rand.NewSource(1))
	// Zero scale degenerates to a deterministic shift.
	assert.InDelta(t, 3.5, m.Mutate(rng, 3.0), 1e-12)
}

func TestKdeMutatorValidation(t *testing.T) {
	_, err := NewKdeMutator(nil, 0.1)
	assert.Error(t, err)

	m, err := NewKdeMutator([]float64{1, 2, 3}, 0)
	require.NoError(t, err)
	assert.Greater(t, m.Bandwidth, 0.0)
}

func TestKdeMutatorMean(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	m, err := NewKdeMutator([]float64{-1, 1}, 0.1)
	require.NoError(t, err)
	const draws = 100000
	var sum float64
	for i := 0; i < draws; i++ {
		sum += m.Mutate(rng, 0)
	}
	// Symmetric data, zero-mean noise.
	assert.InDelta(t, 0.0, sum/draws, 0.02)
}

func TestDiscreteMutatorValidation(t *testing.T) {
	_, err := NewDiscreteMutator(nil, nil)
	assert.Error(t, err)

	_, err = NewDiscreteMutator([]float64{0, 0}, [][]float64{{1, 0}, {0, 1}})
	assert.Error(t, err, "duplicate states")

	_, err = NewDiscreteMutator([]float64{0, 1}, [][]float64{{1, 0}})
	assert.Error(t, err, "row count mismatch")

	_, err = NewDiscreteMutator([]float64{0, 1}, [][]float64{{0.5, 0.4}, {0, 1}})
	assert.Error(t, err, "row does not sum to one")

	_, err = NewDiscreteMutator([]float64{0, 1}, [][]float64{{1.5, -0.5}, {0, 1}})
	assert.Error(t, err, "negative probability")
}

func TestDiscreteMutatorTransitions(t *testing.T) {
	m, err := NewDiscreteMutator(
		[]float64{0, 1},
		[][]float64{{0.25, 0.75}, {1, 0}},
	)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(3))
	const draws = 100000
	var to1 int
	for i := 0; i < draws; i++ {
		if m.Mutate(rng, 0) == 1 {
			to1++
		}
	}
	assert.InDelta(t, 0.75, float64(to1)/draws, 0.01)

	// State 1 always jumps to 0.
	for i := 0; i < 100; i++ {
		assert.Equal(t, 0.0, m.Mutate(rng, 1))
	}

	// Unknown state stays put.
	assert.Equal(t, 7.0, m.Mutate(rng, 7))
}

// Package mutate provides mutation kernels: generators of state changes
// applied at mutation events of a BDMS simulation.
package mutate

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Mutator draws a new lineage state given the current one.
type Mutator interface {
	Mutate(rng *rand.Rand, x float64) float64
}

// GaussianMutator adds a Gaussian jump to the state.
type GaussianMutator struct {
	Shift float64
	Scale float64
}

// NewGaussianMutator returns a mutator with jump distribution N(shift, scale).
func NewGaussianMutator(shift, scale float64) GaussianMutator {
	return GaussianMutator{Shift: shift, Scale: scale}
}

func (m GaussianMutator) Mutate(rng *rand.Rand, x float64) float64 {
	return x + distuv.Normal{Mu: m.Shift, Sigma: m.Scale, Src: rng}.Rand()
}

func (m GaussianMutator) String() string {
	return fmt.Sprintf("GaussianMutator(shift=%g, scale=%g)", m.Shift, m.Scale)
}

// KdeMutator draws jumps from a Gaussian kernel density estimate of an
// empirical shift distribution: a uniform resample of the data plus
// Gaussian noise at the bandwidth.
type KdeMutator struct {
	Data      []float64
	Bandwidth float64
}

// NewKdeMutator builds a KDE mutator over data. If bandwidth <= 0, Scott's
// rule bandwidth is used.
func NewKdeMutator(data []float64, bandwidth float64) (*KdeMutator, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("mutate: KDE mutator requires nonempty data")
	}
	if bandwidth <= 0 {
		bandwidth = scottBandwidth(data)
	}
	return &KdeMutator{Data: data, Bandwidth: bandwidth}, nil
}

func (m *KdeMutator) Mutate(rng *rand.Rand, x float64) float64 {
	shift := m.Data[rng.Intn(len(m.Data))]
	return x + shift + distuv.Normal{Mu: 0, Sigma: m.Bandwidth, Src: rng}.Rand()
}

func (m *KdeMutator) String() string {
	return fmt.Sprintf("KdeMutator(n=%d, bandwidth=%g)", len(m.Data), m.Bandwidth)
}

// scottBandwidth is Scott's rule for univariate data: sigma * n^(-1/5).
func scottBandwidth(data []float64) float64 {
	n := float64(len(data))
	var mean float64
	for _, v := range data {
		mean += v
	}
	mean /= n
	var ss float64
	for _, v := range data {
		d := v - mean
		ss += d * d
	}
	sigma := math.Sqrt(ss / n)
	if sigma == 0 {
		sigma = 1
	}
	return sigma * math.Pow(n, -0.2)
}

// DiscreteMutator jumps between a finite set of states according to a
// row-stochastic transition matrix. TransitionMatrix[i][j] is the
// probability of jumping from States[i] to States[j].
type DiscreteMutator struct {
	States           []float64
	TransitionMatrix [][]float64

	stateIndex map[float64]int
}

// NewDiscreteMutator validates the state set and transition matrix.
func NewDiscreteMutator(states []float64, matrix [][]float64) (*DiscreteMutator, error) {
	if len(states) == 0 {
		return nil, fmt.Errorf("mutate: discrete mutator requires at least one state")
	}
	index := make(map[float64]int, len(states))
	for i, s := range states {
		if _, dup := index[s]; dup {
			return nil, fmt.Errorf("mutate: duplicate state %g", s)
		}
		index[s] = i
	}
	if len(matrix) != len(states) {
		return nil, fmt.Errorf("mutate: transition matrix has %d rows for %d states",
			len(matrix), len(states))
	}
	for i, row := range matrix {
		if len(row) != len(states) {
			return nil, fmt.Errorf("mutate: transition matrix row %d has %d entries for %d states",
				i, len(row), len(states))
		}
		var sum float64
		for _, p := range row {
			if p < 0 {
				return nil, fmt.Errorf("mutate: negative transition probability in row %d", i)
			}
			sum += p
		}
		if math.Abs(sum-1) > 1e-9 {
			return nil, fmt.Errorf("mutate: transition matrix row %d sums to %g, want 1", i, sum)
		}
	}
	return &DiscreteMutator{States: states, TransitionMatrix: matrix, stateIndex: index}, nil
}

func (m *DiscreteMutator) Mutate(rng *rand.Rand, x float64) float64 {
	i, ok := m.stateIndex[x]
	if !ok {
		// A state outside the configured space cannot transition.
		return x
	}
	u := rng.Float64()
	var cum float64
	row := m.TransitionMatrix[i]
	for j, p := range row {
		cum += p
		if u < cum {
			return m.States[j]
		}
	}
	// Floating-point slack: fall through to the last state.
	return m.States[len(m.States)-1]
}

func (m *DiscreteMutator) String() string {
	return fmt.Sprintf("DiscreteMutator(%d states)", len(m.States))
}

// Package poisson defines the Poisson event processes that drive a
// birth-death-mutation-sampling simulation. Each process maps a lineage
// state to an event rate; waiting times for time-homogeneous processes are
// exponential in the aggregate rate.
package poisson

import (
	"fmt"
	"math"
	"sort"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Process is a Poisson point process whose intensity may depend on the
// state x of a lineage.
type Process interface {
	// Rate returns the process intensity for a lineage in state x.
	Rate(x float64) float64

	// WaitingTime draws the time until the next event for a lineage in
	// state x at absolute time t. rateMultiplier scales the intensity; it
	// carries both the number of lineages sharing the state and any
	// carrying-capacity modulation. A zero effective rate yields +Inf.
	WaitingTime(rng *rand.Rand, x, t, rateMultiplier float64) float64
}

// exponentialWaitingTime draws from Exp(rate); +Inf when the rate vanishes.
func exponentialWaitingTime(rng *rand.Rand, rate float64) float64 {
	if rate <= 0 {
		return math.Inf(1)
	}
	return distuv.Exponential{Rate: rate, Src: rng}.Rand()
}

// ConstantProcess has a state-independent intensity.
type ConstantProcess struct {
	Value float64
}

// NewConstantProcess returns a process with constant intensity value.
func NewConstantProcess(value float64) ConstantProcess {
	return ConstantProcess{Value: value}
}

func (p ConstantProcess) Rate(x float64) float64 {
	return p.Value
}

func (p ConstantProcess) WaitingTime(rng *rand.Rand, x, t, rateMultiplier float64) float64 {
	return exponentialWaitingTime(rng, p.Value*rateMultiplier)
}

func (p ConstantProcess) String() string {
	return fmt.Sprintf("ConstantProcess(%g)", p.Value)
}

// DiscreteProcess maps a finite set of states to intensities. States not in
// the table have zero intensity.
type DiscreteProcess struct {
	Rates map[float64]float64
}

// NewDiscreteProcess returns a process with the given state-to-rate table.
func NewDiscreteProcess(rates map[float64]float64) DiscreteProcess {
	return DiscreteProcess{Rates: rates}
}

func (p DiscreteProcess) Rate(x float64) float64 {
	return p.Rates[x]
}

func (p DiscreteProcess) WaitingTime(rng *rand.Rand, x, t, rateMultiplier float64) float64 {
	return exponentialWaitingTime(rng, p.Rate(x)*rateMultiplier)
}

func (p DiscreteProcess) String() string {
	states := make([]float64, 0, len(p.Rates))
	for x := range p.Rates {
		states = append(states, x)
	}
	sort.Float64s(states)
	s := "DiscreteProcess("
	for i, x := range states {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%g: %g", x, p.Rates[x])
	}
	return s + ")"
}

// SigmoidProcess interpolates logistically between a floor and a ceiling
// intensity as the state increases. Useful for fitness-style birth rates
// that saturate at high phenotype values.
type SigmoidProcess struct {
	// Floor and Ceiling bound the intensity at x -> -Inf and x -> +Inf.
	Floor   float64
	Ceiling float64
	// Midpoint is the state at which the intensity is halfway between the
	// bounds; Steepness controls the transition width.
	Midpoint  float64
	Steepness float64
}

func (p SigmoidProcess) Rate(x float64) float64 {
	return p.Floor + (p.Ceiling-p.Floor)/(1+math.Exp(-p.Steepness*(x-p.Midpoint)))
}

func (p SigmoidProcess) WaitingTime(rng *rand.Rand, x, t, rateMultiplier float64) float64 {
	return exponentialWaitingTime(rng, p.Rate(x)*rateMultiplier)
}

func (p SigmoidProcess) String() string {
	return fmt.Sprintf("SigmoidProcess(floor=%g, ceiling=%g, midpoint=%g, steepness=%g)",
		p.Floor, p.Ceiling, p.Midpoint, p.Steepness)
}

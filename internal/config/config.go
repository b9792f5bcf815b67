// Package config loads and validates simulation scenario files.
//
// A scenario is a YAML document describing one BDMS simulation: time
// horizon, initial population, carrying capacity, the three event
// processes, the mutation kernel, and post-processing (sampling, pruning).
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/WSDeWitt/BDMS/mutate"
	"github.com/WSDeWitt/BDMS/poisson"
	"github.com/WSDeWitt/BDMS/tree"
)

// Scenario is a full simulation description.
type Scenario struct {
	// Name labels the scenario in logs and the run store.
	Name string `yaml:"name"`

	// Time is the simulation duration.
	Time float64 `yaml:"time"`
	// InitPopulation is the number of starting lineages.
	InitPopulation int `yaml:"init_population"`
	// InitState is the root state.
	InitState float64 `yaml:"init_state"`

	// Capacity and CapacityMethod configure the carrying capacity
	// (method: "", "birth", "death", or "hard").
	Capacity       int    `yaml:"capacity"`
	CapacityMethod string `yaml:"capacity_method"`
	// MinSurvivors aborts replicates that finish with fewer survivors.
	MinSurvivors int `yaml:"min_survivors"`
	// BirthMutations mutates offspring at birth events.
	BirthMutations bool `yaml:"birth_mutations"`

	Birth    ProcessConfig `yaml:"birth"`
	Death    ProcessConfig `yaml:"death"`
	Mutation ProcessConfig `yaml:"mutation"`
	Mutator  MutatorConfig `yaml:"mutator"`

	Sampling SamplingConfig `yaml:"sampling"`
	// Prune restricts output trees to the sampled subtree.
	Prune bool `yaml:"prune"`
	// RemoveMutationEvents collapses mutation nodes into branch mutation
	// counts (requires Prune).
	RemoveMutationEvents bool `yaml:"remove_mutation_events"`
}

// ProcessConfig selects a Poisson process by type tag.
type ProcessConfig struct {
	// Type is "constant", "discrete", or "sigmoid".
	Type string `yaml:"type"`

	// Rate parameterizes the constant process.
	Rate float64 `yaml:"rate"`

	// Rates parameterizes the discrete process (state -> rate).
	Rates map[float64]float64 `yaml:"rates"`

	// Floor, Ceiling, Midpoint, and Steepness parameterize the sigmoid
	// process.
	Floor     float64 `yaml:"floor"`
	Ceiling   float64 `yaml:"ceiling"`
	Midpoint  float64 `yaml:"midpoint"`
	Steepness float64 `yaml:"steepness"`
}

// MutatorConfig selects a mutation kernel by type tag.
type MutatorConfig struct {
	// Type is "gaussian", "kde", or "discrete".
	Type string `yaml:"type"`

	// Shift and Scale parameterize the Gaussian kernel.
	Shift float64 `yaml:"shift"`
	Scale float64 `yaml:"scale"`

	// Data and Bandwidth parameterize the KDE kernel.
	Data      []float64 `yaml:"data"`
	Bandwidth float64   `yaml:"bandwidth"`

	// States and TransitionMatrix parameterize the discrete kernel.
	States           []float64   `yaml:"states"`
	TransitionMatrix [][]float64 `yaml:"transition_matrix"`
}

// SamplingConfig selects the survivor sampling step. Exactly one of N or P
// applies: N > 0 samples exactly N survivors, otherwise each survivor is
// sampled with probability P.
type SamplingConfig struct {
	N int     `yaml:"n"`
	P float64 `yaml:"p"`
}

// DefaultScenario mirrors the library defaults: unit birth and mutation,
// no death, standard Gaussian kernel, sample every survivor.
func DefaultScenario() Scenario {
	return Scenario{
		Name:           "default",
		Time:           1,
		InitPopulation: 1,
		Capacity:       1000,
		MinSurvivors:   1,
		Birth:          ProcessConfig{Type: "constant", Rate: 1},
		Death:          ProcessConfig{Type: "constant", Rate: 0},
		Mutation:       ProcessConfig{Type: "constant", Rate: 1},
		Mutator:        MutatorConfig{Type: "gaussian", Shift: 0, Scale: 1},
		Sampling:       SamplingConfig{P: 1},
	}
}

// Load reads and validates a scenario file. Fields absent from the file
// keep their DefaultScenario values.
func Load(path string) (Scenario, error) {
	s := DefaultScenario()
	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("config: reading scenario: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("config: parsing scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

// Validate checks scenario consistency, including that the process and
// mutator configs build.
func (s Scenario) Validate() error {
	if s.Time <= 0 {
		return fmt.Errorf("config: time must be positive, got %g", s.Time)
	}
	if s.InitPopulation <= 0 {
		return fmt.Errorf("config: init_population must be positive, got %d", s.InitPopulation)
	}
	if s.Capacity <= 0 {
		return fmt.Errorf("config: capacity must be positive, got %d", s.Capacity)
	}
	if s.InitPopulation > s.Capacity {
		return fmt.Errorf("config: init_population %d exceeds capacity %d",
			s.InitPopulation, s.Capacity)
	}
	switch tree.CapacityMethod(s.CapacityMethod) {
	case tree.CapacityNone, tree.CapacityBirth, tree.CapacityDeath, tree.CapacityHard:
	default:
		return fmt.Errorf("config: unknown capacity_method %q", s.CapacityMethod)
	}
	// The birth and death capacity methods divide by the modulated rate, so
	// a constant zero rate can never work. State-dependent processes are
	// checked during the run instead.
	if tree.CapacityMethod(s.CapacityMethod) == tree.CapacityBirth &&
		(s.Birth.Type == "constant" || s.Birth.Type == "") && s.Birth.Rate == 0 {
		return fmt.Errorf("config: capacity_method birth requires a nonzero birth rate")
	}
	if tree.CapacityMethod(s.CapacityMethod) == tree.CapacityDeath &&
		(s.Death.Type == "constant" || s.Death.Type == "") && s.Death.Rate == 0 {
		return fmt.Errorf("config: capacity_method death requires a nonzero death rate")
	}
	if s.MinSurvivors < 0 {
		return fmt.Errorf("config: min_survivors must be nonnegative, got %d", s.MinSurvivors)
	}
	if s.Sampling.N < 0 {
		return fmt.Errorf("config: sampling n must be nonnegative, got %d", s.Sampling.N)
	}
	if s.Sampling.P < 0 || s.Sampling.P > 1 {
		return fmt.Errorf("config: sampling p %g outside [0, 1]", s.Sampling.P)
	}
	if s.RemoveMutationEvents && !s.Prune {
		return fmt.Errorf("config: remove_mutation_events requires prune")
	}
	for _, pc := range []struct {
		name string
		cfg  ProcessConfig
	}{{"birth", s.Birth}, {"death", s.Death}, {"mutation", s.Mutation}} {
		if _, err := pc.cfg.Build(); err != nil {
			return fmt.Errorf("config: %s process: %w", pc.name, err)
		}
	}
	if _, err := s.Mutator.Build(); err != nil {
		return fmt.Errorf("config: mutator: %w", err)
	}
	return nil
}

// Build constructs the poisson process described by the config.
func (p ProcessConfig) Build() (poisson.Process, error) {
	switch p.Type {
	case "constant", "":
		if p.Rate < 0 {
			return nil, fmt.Errorf("negative rate %g", p.Rate)
		}
		return poisson.NewConstantProcess(p.Rate), nil
	case "discrete":
		if len(p.Rates) == 0 {
			return nil, fmt.Errorf("discrete process requires rates")
		}
		for x, r := range p.Rates {
			if r < 0 {
				return nil, fmt.Errorf("negative rate %g for state %g", r, x)
			}
		}
		return poisson.NewDiscreteProcess(p.Rates), nil
	case "sigmoid":
		if p.Floor < 0 || p.Ceiling < p.Floor {
			return nil, fmt.Errorf("sigmoid bounds [%g, %g] invalid", p.Floor, p.Ceiling)
		}
		return poisson.SigmoidProcess{
			Floor:     p.Floor,
			Ceiling:   p.Ceiling,
			Midpoint:  p.Midpoint,
			Steepness: p.Steepness,
		}, nil
	default:
		return nil, fmt.Errorf("unknown process type %q", p.Type)
	}
}

// Build constructs the mutation kernel described by the config.
func (m MutatorConfig) Build() (mutate.Mutator, error) {
	switch m.Type {
	case "gaussian", "":
		if m.Scale < 0 {
			return nil, fmt.Errorf("negative scale %g", m.Scale)
		}
		return mutate.NewGaussianMutator(m.Shift, m.Scale), nil
	case "kde":
		return mutate.NewKdeMutator(m.Data, m.Bandwidth)
	case "discrete":
		return mutate.NewDiscreteMutator(m.States, m.TransitionMatrix)
	default:
		return nil, fmt.Errorf("unknown mutator type %q", m.Type)
	}
}

// EvolveConfig assembles the tree.EvolveConfig for this scenario.
func (s Scenario) EvolveConfig() (tree.EvolveConfig, error) {
	birth, err := s.Birth.Build()
	if err != nil {
		return tree.EvolveConfig{}, fmt.Errorf("config: birth process: %w", err)
	}
	death, err := s.Death.Build()
	if err != nil {
		return tree.EvolveConfig{}, fmt.Errorf("config: death process: %w", err)
	}
	mutation, err := s.Mutation.Build()
	if err != nil {
		return tree.EvolveConfig{}, fmt.Errorf("config: mutation process: %w", err)
	}
	mutator, err := s.Mutator.Build()
	if err != nil {
		return tree.EvolveConfig{}, fmt.Errorf("config: mutator: %w", err)
	}
	return tree.EvolveConfig{
		Time:           s.Time,
		Birth:          birth,
		Death:          death,
		Mutation:       mutation,
		Mutator:        mutator,
		BirthMutations: s.BirthMutations,
		MinSurvivors:   s.MinSurvivors,
		Capacity:       s.Capacity,
		CapacityMethod: tree.CapacityMethod(s.CapacityMethod),
		InitPopulation: s.InitPopulation,
	}, nil
}

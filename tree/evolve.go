package tree

import (
	"context"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/exp/rand"

	"github.com/WSDeWitt/BDMS/internal/randset"
	"github.com/WSDeWitt/BDMS/mutate"
	"github.com/WSDeWitt/BDMS/poisson"
)

// CapacityMethod selects how the carrying capacity is enforced during
// Evolve.
type CapacityMethod string

const (
	// CapacityNone aborts the simulation with ErrCapacityExceeded when the
	// population exceeds the capacity.
	CapacityNone CapacityMethod = ""
	// CapacityBirth logistically modulates the birth rate so the process is
	// critical at carrying capacity.
	CapacityBirth CapacityMethod = "birth"
	// CapacityDeath logistically modulates the death rate so the process is
	// critical at carrying capacity.
	CapacityDeath CapacityMethod = "death"
	// CapacityHard kills a uniformly chosen lineage whenever a birth pushes
	// the population over capacity.
	CapacityHard CapacityMethod = "hard"
)

// EvolveConfig parameterizes a BDMS simulation run.
type EvolveConfig struct {
	// Time is the duration to evolve for.
	Time float64
	// Birth, Death, and Mutation are the event processes.
	Birth    poisson.Process
	Death    poisson.Process
	Mutation poisson.Process
	// Mutator generates state changes at mutation events (and at birth
	// events when BirthMutations is set).
	Mutator mutate.Mutator
	// BirthMutations applies a mutation to each offspring of a birth event.
	BirthMutations bool
	// MinSurvivors aborts the run with ErrTooFewSurvivors if fewer lineages
	// survive to the end time.
	MinSurvivors int
	// Capacity is the population carrying capacity; CapacityMethod selects
	// the enforcement mechanism.
	Capacity       int
	CapacityMethod CapacityMethod
	// InitPopulation is the number of lineages present at the start.
	InitPopulation int
	// Seed initializes the random source when RNG is nil.
	Seed uint64
	// RNG, if non-nil, is used directly and Seed is ignored.
	RNG *rand.Rand
	// Logger receives progress events; nil disables logging.
	Logger *zap.Logger
}

// DefaultEvolveConfig mirrors the conventional BDMS defaults: unit birth
// and mutation rates, no death, standard Gaussian mutation kernel.
func DefaultEvolveConfig() EvolveConfig {
	return EvolveConfig{
		Time:           1,
		Birth:          poisson.NewConstantProcess(1),
		Death:          poisson.NewConstantProcess(0),
		Mutation:       poisson.NewConstantProcess(1),
		Mutator:        mutate.NewGaussianMutator(0, 1),
		MinSurvivors:   1,
		Capacity:       1000,
		InitPopulation: 1,
	}
}

// progressLogEvery throttles per-event debug logging.
const progressLogEvery = 1000

// Evolve runs the BDMS event loop below the root for cfg.Time time units.
//
// The receiver must be an unevolved root. On successful return every leaf
// carries a death or survival event. Aborted runs (capacity exceeded with
// CapacityNone, fewer than MinSurvivors survivors, or context cancellation)
// detach everything below the root so it can be evolved again.
func (n *TreeNode) Evolve(ctx context.Context, cfg EvolveConfig) error {
	if !n.IsRoot() {
		return fmt.Errorf("%w: node %d has a parent", ErrNotRoot, n.Name)
	}
	if len(n.Children) > 0 {
		return fmt.Errorf("%w: node %d has %d descendant lineages",
			ErrAlreadyEvolved, n.Name, len(n.Children))
	}
	if cfg.Birth == nil {
		cfg.Birth = poisson.NewConstantProcess(1)
	}
	if cfg.Death == nil {
		cfg.Death = poisson.NewConstantProcess(0)
	}
	if cfg.Mutation == nil {
		cfg.Mutation = poisson.NewConstantProcess(1)
	}
	if cfg.Mutator == nil {
		cfg.Mutator = mutate.NewGaussianMutator(0, 1)
	}
	if cfg.InitPopulation <= 0 {
		cfg.InitPopulation = 1
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = 1000
	}
	if cfg.InitPopulation > cfg.Capacity {
		return fmt.Errorf("tree: init population %d exceeds capacity %d",
			cfg.InitPopulation, cfg.Capacity)
	}
	switch cfg.CapacityMethod {
	case CapacityNone, CapacityBirth, CapacityDeath, CapacityHard:
	default:
		return fmt.Errorf("tree: unknown capacity method %q", cfg.CapacityMethod)
	}

	rng := cfg.RNG
	if rng == nil {
		rng = rand.New(rand.NewSource(cfg.Seed))
	}

	e := &evolution{
		root:    n,
		cfg:     cfg,
		rng:     rng,
		nodes:   make(map[int]*TreeNode),
		active:  randset.New[int](),
		byState: make(map[float64]*randset.Set[int]),
	}
	if err := e.run(ctx); err != nil {
		n.abortedEvolveCleanup()
		return err
	}

	survivors := 0
	for _, leaf := range n.Leaves() {
		if leaf.Event == EventSurvival {
			survivors++
		}
	}
	if survivors < cfg.MinSurvivors {
		n.abortedEvolveCleanup()
		return fmt.Errorf("%w: %d survivors, need at least %d",
			ErrTooFewSurvivors, survivors, cfg.MinSurvivors)
	}
	if cfg.Logger != nil {
		cfg.Logger.Info("evolution finished",
			zap.Int("nodes", n.Len()),
			zap.Int("survivors", survivors),
			zap.Float64("end_time", n.T+cfg.Time))
	}
	return nil
}

// abortedEvolveCleanup detaches everything below the root and resets node
// naming so the root can be evolved again.
func (n *TreeNode) abortedEvolveCleanup() {
	for _, child := range append([]*TreeNode(nil), n.Children...) {
		child.Detach()
	}
	n.nextName = n.Name + 1
}

// evolution holds the event-loop state: the active lineages keyed by name,
// bucketed by state so waiting times can be aggregated per (event, state)
// pair, plus running totals of birth and death rates for the capacity
// multipliers.
type evolution struct {
	root *TreeNode
	cfg  EvolveConfig
	rng  *rand.Rand

	nodes   map[int]*TreeNode
	active  *randset.Set[int]
	byState map[float64]*randset.Set[int]

	totalBirth float64
	totalDeath float64

	birthMult    float64
	deathMult    float64
	mutationMult float64

	events int
}

func (e *evolution) newNode(t, x float64) *TreeNode {
	node := &TreeNode{Name: e.root.nextName, T: t, X: x}
	e.root.nextName++
	return node
}

func (e *evolution) activate(node *TreeNode) {
	e.nodes[node.Name] = node
	e.active.Add(node.Name)
	bucket, ok := e.byState[node.X]
	if !ok {
		bucket = randset.New[int]()
		e.byState[node.X] = bucket
	}
	bucket.Add(node.Name)
	e.totalBirth += e.cfg.Birth.Rate(node.X)
	e.totalDeath += e.cfg.Death.Rate(node.X)
}

func (e *evolution) deactivate(node *TreeNode) {
	delete(e.nodes, node.Name)
	_ = e.active.Remove(node.Name)
	bucket := e.byState[node.X]
	_ = bucket.Remove(node.Name)
	if bucket.Len() == 0 {
		delete(e.byState, node.X)
	}
	e.totalBirth -= e.cfg.Birth.Rate(node.X)
	e.totalDeath -= e.cfg.Death.Rate(node.X)
}

// occupiedStates returns the states with live lineages in ascending order.
// The fixed order keeps the sequence of RNG draws, and hence the whole
// simulation, reproducible for a given seed.
func (e *evolution) occupiedStates() []float64 {
	states := make([]float64, 0, len(e.byState))
	for x := range e.byState {
		states = append(states, x)
	}
	sort.Float64s(states)
	return states
}

func (e *evolution) run(ctx context.Context) error {
	current := e.root.T
	end := e.root.T + e.cfg.Time

	for i := 0; i < e.cfg.InitPopulation; i++ {
		child := e.newNode(e.root.T, e.root.X)
		e.root.AddChild(child)
		e.activate(child)
	}

	e.birthMult, e.deathMult, e.mutationMult = 1, 1, 1

	for e.active.Len() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := e.applyCapacity(current); err != nil {
			return err
		}

		wait, event, state := e.minWaitingTime(current)
		dt := math.Min(wait, end-current)
		current += dt
		for _, node := range e.nodes {
			node.Dist += dt
			node.T = current
		}

		if current < end {
			name := e.byState[state].Choice(e.rng)
			node := e.nodes[name]
			node.Event = event
			e.deactivate(node)
			switch event {
			case EventDeath:
			case EventBirth:
				for _, child := range e.birthOutcome(node) {
					e.activate(child)
				}
			case EventMutation:
				e.activate(e.mutationOutcome(node))
			}
			e.events++
			if e.cfg.Logger != nil && e.events%progressLogEvery == 0 {
				e.cfg.Logger.Debug("evolving",
					zap.Float64("t", current),
					zap.Int("population", e.active.Len()),
					zap.Int("events", e.events))
			}
		} else {
			for _, name := range e.active.Items() {
				node := e.nodes[name]
				node.Event = EventSurvival
				e.deactivate(node)
			}
		}
	}
	return nil
}

// applyCapacity updates the rate multipliers (or kills/aborts) according to
// the configured capacity method.
func (e *evolution) applyCapacity(current float64) error {
	n := float64(e.active.Len())
	k := float64(e.cfg.Capacity)
	switch e.cfg.CapacityMethod {
	case CapacityBirth:
		// The multiplier divides by the modulated rate; a zero total would
		// turn the birth rate into NaN and disable the brake.
		if e.totalBirth <= 0 {
			return fmt.Errorf("%w: total birth rate is zero at time %g",
				ErrZeroCapacityRate, current)
		}
		e.birthMult = math.Pow(e.totalDeath/e.totalBirth, n/k)
	case CapacityDeath:
		if e.totalDeath <= 0 {
			return fmt.Errorf("%w: total death rate is zero at time %g",
				ErrZeroCapacityRate, current)
		}
		e.deathMult = math.Pow(e.totalBirth/e.totalDeath, n/k)
	case CapacityHard:
		// A birth raises the population by one, so a single kill per
		// iteration is enough to hold the cap.
		if e.active.Len() > e.cfg.Capacity {
			name := e.active.Choice(e.rng)
			node := e.nodes[name]
			node.Event = EventDeath
			e.deactivate(node)
		}
	case CapacityNone:
		if e.active.Len() > e.cfg.Capacity {
			return fmt.Errorf("%w: capacity %d exceeded at time %g",
				ErrCapacityExceeded, e.cfg.Capacity, current)
		}
	}
	return nil
}

// minWaitingTime draws a waiting time for every (event, occupied state)
// pair, with the per-pair rate scaled by the bucket size and the capacity
// multiplier, and returns the minimum along with its event and state.
func (e *evolution) minWaitingTime(current float64) (wait float64, event Event, state float64) {
	type eventProcess struct {
		event Event
		proc  poisson.Process
		mult  float64
	}
	procs := [3]eventProcess{
		{EventBirth, e.cfg.Birth, e.birthMult},
		{EventDeath, e.cfg.Death, e.deathMult},
		{EventMutation, e.cfg.Mutation, e.mutationMult},
	}
	wait = math.Inf(1)
	states := e.occupiedStates()
	for _, ep := range procs {
		for _, x := range states {
			bucket := e.byState[x]
			w := ep.proc.WaitingTime(e.rng, x, current, ep.mult*float64(bucket.Len()))
			if w < wait {
				wait, event, state = w, ep.event, x
			}
		}
	}
	return wait, event, state
}

// birthOutcome realizes a birth at node: two children copying the parent
// state. With BirthMutations each child becomes a mutation node whose
// mutated state is inherited by a grandchild, and the grandchildren are the
// new active lineages.
func (e *evolution) birthOutcome(node *TreeNode) []*TreeNode {
	offspring := make([]*TreeNode, 0, OffspringNumber)
	for i := 0; i < OffspringNumber; i++ {
		child := e.newNode(node.T, node.X)
		if e.cfg.BirthMutations {
			child.Event = EventMutation
			child.X = e.cfg.Mutator.Mutate(e.rng, child.X)
			grandchild := e.newNode(child.T, child.X)
			child.AddChild(grandchild)
			offspring = append(offspring, grandchild)
		} else {
			offspring = append(offspring, child)
		}
		node.AddChild(child)
	}
	return offspring
}

// mutationOutcome realizes a mutation at node: the node state jumps and a
// single child continues the lineage.
func (e *evolution) mutationOutcome(node *TreeNode) *TreeNode {
	node.X = e.cfg.Mutator.Mutate(e.rng, node.X)
	child := e.newNode(node.T, node.X)
	node.AddChild(child)
	return child
}

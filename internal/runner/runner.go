// Package runner executes replicate batches of a simulation scenario.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"

	"github.com/WSDeWitt/BDMS/internal/config"
	"github.com/WSDeWitt/BDMS/internal/store"
	"github.com/WSDeWitt/BDMS/tree"
)

// Runner runs scenario replicates concurrently and optionally persists the
// results.
type Runner struct {
	// Store, if non-nil, receives completed runs.
	Store *store.RunStore
	// Logger receives progress events; nil disables logging.
	Logger *zap.Logger
	// Parallelism bounds concurrent replicates; <= 0 means unbounded.
	Parallelism int
	// MaxAttempts bounds retries of replicates aborted by stochastic
	// failure (extinction below min_survivors, capacity exceeded, or an
	// empty sample before pruning); <= 0 means a single attempt.
	MaxAttempts int
}

// ReplicateResult is the outcome of one replicate.
type ReplicateResult struct {
	Replicate int
	Seed      uint64
	Attempts  int
	Tree      *tree.TreeNode
	Survivors int
	Sampled   int
}

// Result is the outcome of a run.
type Result struct {
	RunID      string
	Scenario   string
	Seed       uint64
	Replicates []ReplicateResult
	Duration   time.Duration
}

// retryable reports whether a replicate failure is a stochastic abort
// worth retrying with a fresh seed.
func retryable(err error) bool {
	return errors.Is(err, tree.ErrTooFewSurvivors) ||
		errors.Is(err, tree.ErrCapacityExceeded) ||
		errors.Is(err, tree.ErrNoSampledLeaves)
}

// replicateSeed derives a distinct seed per (replicate, attempt) from the
// base seed, so replicates are independent and reruns reproducible.
func replicateSeed(base uint64, replicate, attempt int) uint64 {
	s := base + uint64(replicate)*0x9E3779B97F4A7C15 + uint64(attempt)*0xBF58476D1CE4E5B9
	// splitmix64 finalizer
	s ^= s >> 30
	s *= 0xBF58476D1CE4E5B9
	s ^= s >> 27
	s *= 0x94D049BB133111EB
	s ^= s >> 31
	return s
}

// Run executes the scenario for the given number of replicates.
func (r *Runner) Run(ctx context.Context, sc config.Scenario, replicates int, seed uint64) (*Result, error) {
	if replicates <= 0 {
		return nil, fmt.Errorf("runner: replicates must be positive, got %d", replicates)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	result := &Result{
		RunID:      uuid.NewString(),
		Scenario:   sc.Name,
		Seed:       seed,
		Replicates: make([]ReplicateResult, replicates),
	}
	if r.Logger != nil {
		r.Logger.Info("starting run",
			zap.String("run_id", result.RunID),
			zap.String("scenario", sc.Name),
			zap.Int("replicates", replicates),
			zap.Uint64("seed", seed))
	}

	g, ctx := errgroup.WithContext(ctx)
	if r.Parallelism > 0 {
		g.SetLimit(r.Parallelism)
	}
	for i := 0; i < replicates; i++ {
		i := i
		g.Go(func() error {
			rep, err := r.runReplicate(ctx, sc, seed, i)
			if err != nil {
				return fmt.Errorf("runner: replicate %d: %w", i, err)
			}
			result.Replicates[i] = rep
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	result.Duration = time.Since(start)

	if r.Store != nil {
		if err := r.save(result); err != nil {
			return nil, err
		}
	}
	if r.Logger != nil {
		r.Logger.Info("run finished",
			zap.String("run_id", result.RunID),
			zap.Duration("duration", result.Duration))
	}
	return result, nil
}

func (r *Runner) runReplicate(ctx context.Context, sc config.Scenario, baseSeed uint64, replicate int) (ReplicateResult, error) {
	maxAttempts := r.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		seed := replicateSeed(baseSeed, replicate, attempt)
		rep, err := r.attemptReplicate(ctx, sc, seed)
		if err == nil {
			rep.Replicate = replicate
			rep.Seed = seed
			rep.Attempts = attempt + 1
			return rep, nil
		}
		lastErr = err
		if !retryable(err) {
			return ReplicateResult{}, err
		}
		if r.Logger != nil {
			r.Logger.Debug("replicate aborted, retrying",
				zap.Int("replicate", replicate),
				zap.Int("attempt", attempt+1),
				zap.Error(err))
		}
	}
	return ReplicateResult{}, fmt.Errorf("giving up after %d attempts: %w", maxAttempts, lastErr)
}

func (r *Runner) attemptReplicate(ctx context.Context, sc config.Scenario, seed uint64) (ReplicateResult, error) {
	cfg, err := sc.EvolveConfig()
	if err != nil {
		return ReplicateResult{}, err
	}
	rng := rand.New(rand.NewSource(seed))
	cfg.RNG = rng
	cfg.Logger = r.Logger

	root := tree.New(0, sc.InitState)
	if err := root.Evolve(ctx, cfg); err != nil {
		return ReplicateResult{}, err
	}

	if sc.Sampling.N > 0 {
		err = root.SampleSurvivorsCount(rng, sc.Sampling.N)
	} else {
		err = root.SampleSurvivors(rng, sc.Sampling.P)
	}
	if err != nil {
		return ReplicateResult{}, err
	}

	rep := ReplicateResult{Tree: root}
	for _, leaf := range root.Leaves() {
		switch leaf.Event {
		case tree.EventSurvival:
			rep.Survivors++
		case tree.EventSampling:
			rep.Survivors++
			rep.Sampled++
		}
	}

	if sc.Prune {
		if err := root.Prune(); err != nil {
			return ReplicateResult{}, err
		}
		if sc.RemoveMutationEvents {
			if err := root.RemoveMutationEvents(); err != nil {
				return ReplicateResult{}, err
			}
		}
	}
	return rep, nil
}

func (r *Runner) save(result *Result) error {
	run := store.Run{
		ID:         result.RunID,
		Scenario:   result.Scenario,
		Seed:       result.Seed,
		Replicates: len(result.Replicates),
		CreatedAt:  time.Now(),
		Duration:   result.Duration,
		Status:     store.StatusCompleted,
	}
	trees := make([]store.Tree, 0, len(result.Replicates))
	for _, rep := range result.Replicates {
		trees = append(trees, store.Tree{
			RunID:     result.RunID,
			Replicate: rep.Replicate,
			Survivors: rep.Survivors,
			Sampled:   rep.Sampled,
			Newick:    rep.Tree.Newick(),
		})
	}
	return r.Store.SaveRun(run, trees)
}

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/exp/rand"

	"github.com/WSDeWitt/BDMS/tree"
)

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Inspect and transform stored trees",
}

var treeStatsCmd = &cobra.Command{
	Use:   "stats [tree.nwk]",
	Short: "Summarize a tree file",
	Args:  cobra.ExactArgs(1),
	RunE:  runTreeStats,
}

var treeShowCmd = &cobra.Command{
	Use:   "show [tree.nwk]",
	Short: "Render a tree file as ASCII",
	Args:  cobra.ExactArgs(1),
	RunE:  runTreeShow,
}

var (
	sliceTime float64

	treeSliceCmd = &cobra.Command{
		Use:   "slice [tree.nwk]",
		Short: "List lineage states at a time point",
		Args:  cobra.ExactArgs(1),
		RunE:  runTreeSlice,
	}
)

var (
	sampleN    int
	sampleP    float64
	sampleSeed uint64

	treeSampleCmd = &cobra.Command{
		Use:   "sample [tree.nwk]",
		Short: "Sample survivors of an evolved tree",
		Long: `Marks survivors of an evolved tree as sampled and rewrites the file.
With --n, exactly n survivors are chosen uniformly; otherwise each survivor
is sampled independently with probability --p.`,
		Args: cobra.ExactArgs(1),
		RunE: runTreeSample,
	}
)

var (
	pruneKeepMutations bool

	treePruneCmd = &cobra.Command{
		Use:   "prune [tree.nwk]",
		Short: "Prune a sampled tree to its observed subtree",
		Args:  cobra.ExactArgs(1),
		RunE:  runTreePrune,
	}
)

func init() {
	treeSliceCmd.Flags().Float64VarP(&sliceTime, "time", "t", 0, "slice time")
	_ = treeSliceCmd.MarkFlagRequired("time")

	treeSampleCmd.Flags().IntVar(&sampleN, "n", 0, "sample exactly n survivors")
	treeSampleCmd.Flags().Float64Var(&sampleP, "p", 1, "sampling probability per survivor")
	treeSampleCmd.Flags().Uint64Var(&sampleSeed, "seed", 0, "random seed")

	treePruneCmd.Flags().BoolVar(&pruneKeepMutations, "keep-mutation-events", false,
		"keep unifurcating mutation nodes instead of collapsing them to branch counts")

	treeCmd.AddCommand(treeStatsCmd, treeShowCmd, treeSliceCmd, treeSampleCmd, treePruneCmd)
	rootCmd.AddCommand(treeCmd)
}

func loadTreeFile(path string) (*tree.TreeNode, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading tree file: %w", err)
	}
	root, err := tree.ParseNewick(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, err
	}
	return root, nil
}

func writeTreeFile(path string, root *tree.TreeNode) error {
	if err := os.WriteFile(path, []byte(root.Newick()+"\n"), 0644); err != nil {
		return fmt.Errorf("writing tree file: %w", err)
	}
	return nil
}

func runTreeStats(cmd *cobra.Command, args []string) error {
	root, err := loadTreeFile(args[0])
	if err != nil {
		return err
	}
	events := map[tree.Event]int{}
	root.Preorder(func(n *tree.TreeNode) bool {
		events[n.Event]++
		return true
	})
	fmt.Printf("nodes:               %d\n", root.Len())
	fmt.Printf("leaves:              %d\n", len(root.Leaves()))
	fmt.Printf("end time:            %g\n", root.EndTime())
	fmt.Printf("total branch length: %g\n", root.TotalBranchLength())
	for _, e := range []tree.Event{tree.EventBirth, tree.EventDeath, tree.EventMutation,
		tree.EventSurvival, tree.EventSampling} {
		if events[e] > 0 {
			fmt.Printf("%-19s  %d\n", string(e)+" events:", events[e])
		}
	}
	fmt.Printf("sampled: %v, pruned: %v\n", root.Sampled(), root.Pruned())
	return nil
}

func runTreeShow(cmd *cobra.Command, args []string) error {
	root, err := loadTreeFile(args[0])
	if err != nil {
		return err
	}
	fmt.Print(root.Ascii())
	return nil
}

func runTreeSlice(cmd *cobra.Command, args []string) error {
	root, err := loadTreeFile(args[0])
	if err != nil {
		return err
	}
	states, err := root.Slice(sliceTime)
	if err != nil {
		return err
	}
	fmt.Printf("%d lineage(s) at t=%g:\n", len(states), sliceTime)
	for _, x := range states {
		fmt.Printf("%g\n", x)
	}
	return nil
}

func runTreeSample(cmd *cobra.Command, args []string) error {
	root, err := loadTreeFile(args[0])
	if err != nil {
		return err
	}
	rng := rand.New(rand.NewSource(sampleSeed))
	if sampleN > 0 {
		err = root.SampleSurvivorsCount(rng, sampleN)
	} else {
		err = root.SampleSurvivors(rng, sampleP)
	}
	if err != nil {
		return err
	}
	return writeTreeFile(args[0], root)
}

func runTreePrune(cmd *cobra.Command, args []string) error {
	root, err := loadTreeFile(args[0])
	if err != nil {
		return err
	}
	if err := root.Prune(); err != nil {
		return err
	}
	if !pruneKeepMutations {
		if err := root.RemoveMutationEvents(); err != nil {
			return err
		}
	}
	return writeTreeFile(args[0], root)
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/WSDeWitt/BDMS/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect the run store",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived runs",
	RunE:  runRunsList,
}

var runsShowTrees bool

var runsShowCmd = &cobra.Command{
	Use:   "show [run-id]",
	Short: "Show a run and its replicates",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

var runsDeleteCmd = &cobra.Command{
	Use:   "delete [run-id]",
	Short: "Delete a run and its trees",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsDelete,
}

func init() {
	runsShowCmd.Flags().BoolVar(&runsShowTrees, "trees", false, "print the Newick tree of each replicate")
	runsCmd.AddCommand(runsListCmd, runsShowCmd, runsDeleteCmd)
	rootCmd.AddCommand(runsCmd)
}

func openRunStore() (*store.RunStore, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("runs commands require --db")
	}
	return store.Open(dbPath)
}

func runRunsList(cmd *cobra.Command, args []string) error {
	st, err := openRunStore()
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs")
		return nil
	}
	for _, run := range runs {
		fmt.Printf("%s  %-20s  seed=%-12d replicates=%-4d %s  %s\n",
			run.ID, run.Scenario, run.Seed, run.Replicates,
			run.CreatedAt.Format("2006-01-02 15:04:05"), run.Status)
	}
	return nil
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	st, err := openRunStore()
	if err != nil {
		return err
	}
	defer st.Close()

	run, trees, err := st.GetRun(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("run:        %s\n", run.ID)
	fmt.Printf("scenario:   %s\n", run.Scenario)
	fmt.Printf("seed:       %d\n", run.Seed)
	fmt.Printf("replicates: %d\n", run.Replicates)
	fmt.Printf("created:    %s\n", run.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("duration:   %s\n", run.Duration)
	fmt.Printf("status:     %s\n", run.Status)
	for _, tr := range trees {
		fmt.Printf("  replicate %d: %d survivors, %d sampled\n", tr.Replicate, tr.Survivors, tr.Sampled)
		if runsShowTrees {
			fmt.Printf("    %s\n", tr.Newick)
		}
	}
	return nil
}

func runRunsDelete(cmd *cobra.Command, args []string) error {
	st, err := openRunStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.DeleteRun(args[0]); err != nil {
		return err
	}
	fmt.Printf("deleted run %s\n", args[0])
	return nil
}

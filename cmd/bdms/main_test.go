package main

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WSDeWitt/BDMS/tree"
)

func TestCommandRegistration(t *testing.T) {
	names := map[string]bool{}
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
	}
	for _, want := range []string{"simulate", "tree", "runs"} {
		assert.True(t, names[want], "missing command %q", want)
	}
}

func TestSimulateEndToEnd(t *testing.T) {
	dir := t.TempDir()
	scenarioPath := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(scenarioPath, []byte(`
name: cli-test
time: 1
birth:
  type: constant
  rate: 2
sampling:
  p: 1
`), 0644))

	outDir := filepath.Join(dir, "trees")
	rootCmd.SetArgs([]string{
		"simulate",
		"--scenario", scenarioPath,
		"--replicates", "2",
		"--seed", "4",
		"--out", outDir,
		"--max-attempts", "20",
	})
	require.NoError(t, rootCmd.Execute())

	for i := 0; i < 2; i++ {
		data, err := os.ReadFile(filepath.Join(outDir, fmt.Sprintf("cli-test_%d.nwk", i)))
		require.NoError(t, err)
		root, err := tree.ParseNewick(string(data[:len(data)-1]))
		require.NoError(t, err)
		assert.True(t, root.Sampled())
	}
}

func TestTreeStatsCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tree.nwk")
	nwk := "((3:1.5)2:0.5,4:1)1:1[&&NHX:t=1:x=0:event=birth];"
	require.NoError(t, os.WriteFile(path, []byte(nwk+"\n"), 0644))

	rootCmd.SetArgs([]string{"tree", "stats", path})
	require.NoError(t, rootCmd.Execute())
}

package tree

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSliceValues(t *testing.T) {
	root, _, _, _, _ := buildEvolvedTree()

	// Between the mutation (t=1.5) and d's death (t=2): two lineages, one
	// carrying the mutated state.
	states, err := root.Slice(1.75)
	require.NoError(t, err)
	if diff := cmp.Diff([]float64{2, 0}, states); diff != "" {
		t.Errorf("slice mismatch (-want +got):\n%s", diff)
	}

	// After d dies only the surviving lineage remains.
	states, err = root.Slice(2.5)
	require.NoError(t, err)
	assert.Equal(t, []float64{2}, states)

	// Before the birth event there is a single ancestral lineage.
	states, err = root.Slice(0.5)
	require.NoError(t, err)
	assert.Equal(t, []float64{0}, states)
}

func TestSliceAtNodeTime(t *testing.T) {
	root, _, _, _, _ := buildEvolvedTree()

	// At the root time the slice is the root state alone.
	states, err := root.Slice(0)
	require.NoError(t, err)
	assert.Equal(t, []float64{0}, states)

	// Exactly at the birth time the new lineages have not split off yet in
	// slice terms: the node at t carries its own state.
	states, err = root.Slice(1)
	require.NoError(t, err)
	assert.Equal(t, []float64{0}, states)

	// Exactly at the mutation time the mutated state is visible.
	states, err = root.Slice(1.5)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 0}, states)
}

func TestSliceErrors(t *testing.T) {
	root, _, _, _, _ := buildEvolvedTree()

	_, err := root.Slice(-1)
	assert.Error(t, err, "before root time")

	_, err = root.Slice(3.5)
	assert.Error(t, err, "after tree end")

	_, err = New(0, 0).Slice(0.5)
	assert.ErrorIs(t, err, ErrUnevolved)

	pruned, _, _, _, _ := sampledTree(t)
	require.NoError(t, pruned.Prune())
	_, err = pruned.Slice(0.5)
	assert.Error(t, err, "pruned tree")
}
